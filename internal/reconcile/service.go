package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/db"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/logger"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/model"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/pkg/errors"
)

type Outcome string

const (
	OutcomeLinked      Outcome = "linked"
	OutcomeRepaired    Outcome = "repaired"
	OutcomeNeedsReview Outcome = "needs_review"
	OutcomeBroken      Outcome = "broken"
)

// Match is the pure result of trying to resolve one guardian link. Nothing is
// persisted until CommitRepair.
type Match struct {
	Outcome    Outcome
	Candidate  *model.SubjectCandidate
	Candidates []model.SubjectCandidate
	Placement  *model.SubjectPlacement
}

// Service repairs guardian links whose student reference was invalidated by a
// bulk reimport. Matching is exact or substring on normalized names, nothing
// fuzzier: two students with genuinely identical names must go to review, not
// be guessed at.
type Service struct {
	repo db.Repository
	log  zerolog.Logger
}

func NewService(repo db.Repository) *Service {
	return &Service{
		repo: repo,
		log:  logger.Get(),
	}
}

// normalizeName trims and case-folds. No edit distance by contract.
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ResolveOrRepair classifies a link without writing anything:
// the reference still resolves (Linked), exactly one replacement was found
// (Repaired), several equally plausible ones were (NeedsReview), or none
// (Broken). Broken links keep their declared name and group for display.
func (s *Service) ResolveOrRepair(ctx context.Context, link model.GuardianLink) (Match, error) {
	if link.SubjectID != nil {
		placement, err := s.repo.GetSubjectPlacement(ctx, *link.SubjectID)
		if err == nil {
			return Match{Outcome: OutcomeLinked, Placement: placement}, nil
		}
		if err != errors.ErrSubjectNotFound {
			return Match{}, err
		}
	}

	// A blank declared name matches everything under substring rules, so it
	// must never reach the candidate queries.
	declared := normalizeName(link.DeclaredName)
	if declared == "" {
		return Match{Outcome: OutcomeBroken}, nil
	}

	// Strategy A: exact normalized name within the declared group.
	candidates, err := s.repo.FindCandidatesByNameAndGroup(ctx, link.DeclaredName, link.DeclaredGroup)
	if err != nil {
		return Match{}, err
	}
	if len(candidates) == 1 {
		return Match{Outcome: OutcomeRepaired, Candidate: &candidates[0]}, nil
	}
	if len(candidates) > 1 {
		return Match{Outcome: OutcomeNeedsReview, Candidates: candidates}, nil
	}

	// Strategy B: same group, name equal to or contained in the declared
	// name (or the reverse).
	groupCandidates, err := s.repo.FindCandidatesByGroup(ctx, link.DeclaredGroup)
	if err != nil {
		return Match{}, err
	}

	var matched []model.SubjectCandidate
	for _, c := range groupCandidates {
		name := normalizeName(c.Name)
		if name == declared || strings.Contains(name, declared) || strings.Contains(declared, name) {
			matched = append(matched, c)
		}
	}

	switch len(matched) {
	case 0:
		return Match{Outcome: OutcomeBroken}, nil
	case 1:
		return Match{Outcome: OutcomeRepaired, Candidate: &matched[0]}, nil
	default:
		return Match{Outcome: OutcomeNeedsReview, Candidates: matched}, nil
	}
}

// CommitRepair persists a repair. Repairs only ever tighten a link; undoing
// a bad one is a manual data correction.
func (s *Service) CommitRepair(ctx context.Context, link model.GuardianLink, candidateID int64) error {
	if err := s.repo.UpdateLinkRepair(ctx, link.ID, candidateID); err != nil {
		return err
	}

	s.log.Info().
		Int64("link_id", link.ID).
		Int64("student_id", candidateID).
		Str("declared_name", link.DeclaredName).
		Msg("Guardian link repaired")

	return nil
}

// LoadRoster loads every link of a guardian, repairing what it can along the
// way. Broken and ambiguous links stay visible with their declared data; they
// are flagged, never dropped.
func (s *Service) LoadRoster(ctx context.Context, guardianID int64) (model.RosterResult, error) {
	links, err := s.repo.GetGuardianLinks(ctx, guardianID)
	if err != nil {
		return model.RosterResult{}, err
	}

	result := model.RosterResult{GuardianID: guardianID}

	for _, link := range links {
		match, err := s.ResolveOrRepair(ctx, link)
		if err != nil {
			return model.RosterResult{}, err
		}

		entry := model.RosterEntry{Link: link}

		switch match.Outcome {
		case OutcomeLinked:
			entry.Subject = match.Placement
			if link.Status != model.LinkStatusLinked && link.Status != model.LinkStatusRepaired {
				if err := s.repo.UpdateLinkStatus(ctx, link.ID, model.LinkStatusLinked); err != nil {
					return model.RosterResult{}, err
				}
				entry.Link.Status = model.LinkStatusLinked
			}

		case OutcomeRepaired:
			if err := s.CommitRepair(ctx, link, match.Candidate.ID); err != nil {
				return model.RosterResult{}, err
			}
			id := match.Candidate.ID
			entry.Link.SubjectID = &id
			entry.Link.Status = model.LinkStatusRepaired
			if placement, err := s.repo.GetSubjectPlacement(ctx, id); err == nil {
				entry.Subject = placement
			}
			result.Notifications = append(result.Notifications,
				fmt.Sprintf("Student link for %q was re-matched automatically.", link.DeclaredName))

		case OutcomeNeedsReview:
			if err := s.repo.UpdateLinkStatus(ctx, link.ID, model.LinkStatusNeedsReview); err != nil {
				return model.RosterResult{}, err
			}
			entry.Link.Status = model.LinkStatusNeedsReview
			entry.Candidates = match.Candidates
			result.Notifications = append(result.Notifications,
				fmt.Sprintf("Several students match %q (group %s); an administrator must pick the right one.",
					link.DeclaredName, link.DeclaredGroup))

		case OutcomeBroken:
			if err := s.repo.UpdateLinkStatus(ctx, link.ID, model.LinkStatusBroken); err != nil {
				return model.RosterResult{}, err
			}
			entry.Link.Status = model.LinkStatusBroken
			result.Notifications = append(result.Notifications,
				fmt.Sprintf("No student found for %q (group %s); needs administrator attention.",
					link.DeclaredName, link.DeclaredGroup))
		}

		result.Entries = append(result.Entries, entry)
	}

	return result, nil
}

package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/db"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/model"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/pkg/errors"
)

type fakeRepo struct {
	db.Repository
	placements map[int64]*model.SubjectPlacement
	candidates []model.SubjectCandidate
	links      map[int64]*model.GuardianLink
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		placements: make(map[int64]*model.SubjectPlacement),
		links:      make(map[int64]*model.GuardianLink),
	}
}

func (f *fakeRepo) GetSubjectPlacement(_ context.Context, subjectID int64) (*model.SubjectPlacement, error) {
	if p, ok := f.placements[subjectID]; ok {
		return p, nil
	}
	return nil, errors.ErrSubjectNotFound
}

func (f *fakeRepo) FindCandidatesByNameAndGroup(_ context.Context, name, group string) ([]model.SubjectCandidate, error) {
	var out []model.SubjectCandidate
	for _, c := range f.candidates {
		if normalizeName(c.Name) == normalizeName(name) && c.GroupID == group {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeRepo) FindCandidatesByGroup(_ context.Context, group string) ([]model.SubjectCandidate, error) {
	var out []model.SubjectCandidate
	for _, c := range f.candidates {
		if c.GroupID == group {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetGuardianLinks(_ context.Context, guardianID int64) ([]model.GuardianLink, error) {
	var out []model.GuardianLink
	for _, l := range f.links {
		if l.GuardianID == guardianID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateLinkRepair(_ context.Context, linkID, subjectID int64) error {
	l := f.links[linkID]
	l.SubjectID = &subjectID
	l.Status = model.LinkStatusRepaired
	return nil
}

func (f *fakeRepo) UpdateLinkStatus(_ context.Context, linkID int64, status model.LinkStatus) error {
	f.links[linkID].Status = status
	return nil
}

func unresolvedLink(id int64, name, group string) model.GuardianLink {
	return model.GuardianLink{
		ID:            id,
		GuardianID:    7,
		DeclaredName:  name,
		DeclaredGroup: group,
		Verified:      true,
	}
}

func TestResolveLinkedReferenceUsedAsIs(t *testing.T) {
	repo := newFakeRepo()
	repo.placements[42] = &model.SubjectPlacement{SubjectID: 42, Name: "Jane Doe", SheetName: "5A", Row: 3}
	svc := NewService(repo)

	id := int64(42)
	link := unresolvedLink(1, "Jane Doe", "5")
	link.SubjectID = &id

	match, err := svc.ResolveOrRepair(context.Background(), link)
	require.NoError(t, err)
	assert.Equal(t, OutcomeLinked, match.Outcome)
	assert.Equal(t, int64(42), match.Placement.SubjectID)
}

func TestRepairExactNameAndGroup(t *testing.T) {
	repo := newFakeRepo()
	repo.candidates = []model.SubjectCandidate{
		{ID: 101, Name: "  Jane Doe ", GroupID: "5"},
		{ID: 102, Name: "Jane Doe", GroupID: "6"}, // wrong group
	}
	svc := NewService(repo)

	match, err := svc.ResolveOrRepair(context.Background(), unresolvedLink(1, "jane doe", "5"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRepaired, match.Outcome)
	assert.Equal(t, int64(101), match.Candidate.ID)
}

func TestRepairSubstringFallback(t *testing.T) {
	repo := newFakeRepo()
	repo.candidates = []model.SubjectCandidate{
		{ID: 201, Name: "Jane Alexandra Doe", GroupID: "5"},
		{ID: 202, Name: "Mark Spencer", GroupID: "5"},
	}
	svc := NewService(repo)

	match, err := svc.ResolveOrRepair(context.Background(), unresolvedLink(1, "Jane Alexandra Doe Smith", "5"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRepaired, match.Outcome)
	assert.Equal(t, int64(201), match.Candidate.ID)
}

func TestAmbiguousMatchIsNeverAutoSelected(t *testing.T) {
	repo := newFakeRepo()
	repo.candidates = []model.SubjectCandidate{
		{ID: 301, Name: "A. Smith", GroupID: "5"},
		{ID: 302, Name: "A. Smith", GroupID: "5"},
	}
	svc := NewService(repo)

	match, err := svc.ResolveOrRepair(context.Background(), unresolvedLink(1, "A. Smith", "5"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNeedsReview, match.Outcome)
	assert.Nil(t, match.Candidate)
	assert.Len(t, match.Candidates, 2)
}

func TestBlankDeclaredNameIsBroken(t *testing.T) {
	repo := newFakeRepo()
	// A lone student in the group must not be grabbed by an empty name.
	repo.candidates = []model.SubjectCandidate{
		{ID: 501, Name: "Only Student", GroupID: "5"},
	}
	svc := NewService(repo)

	for _, name := range []string{"", "   "} {
		match, err := svc.ResolveOrRepair(context.Background(), unresolvedLink(1, name, "5"))
		require.NoError(t, err)
		assert.Equal(t, OutcomeBroken, match.Outcome, "declared name %q", name)
		assert.Nil(t, match.Candidate)
		assert.Empty(t, match.Candidates)
	}
}

func TestNoCandidateIsBroken(t *testing.T) {
	svc := NewService(newFakeRepo())

	link := unresolvedLink(1, "Jane Doe", "5")
	match, err := svc.ResolveOrRepair(context.Background(), link)
	require.NoError(t, err)
	assert.Equal(t, OutcomeBroken, match.Outcome)

	// Declared data survives for display.
	assert.Equal(t, "Jane Doe", link.DeclaredName)
	assert.Equal(t, "5", link.DeclaredGroup)
}

func TestLoadRosterRepairsAndFlags(t *testing.T) {
	repo := newFakeRepo()
	repo.candidates = []model.SubjectCandidate{
		{ID: 101, Name: "Jane Doe", GroupID: "5"},
	}
	repo.placements[101] = &model.SubjectPlacement{SubjectID: 101, Name: "Jane Doe", SheetName: "5A", Row: 3}

	repairable := unresolvedLink(1, "Jane Doe", "5")
	broken := unresolvedLink(2, "Nobody Here", "5")
	repo.links[1] = &repairable
	repo.links[2] = &broken

	svc := NewService(repo)

	result, err := svc.LoadRoster(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	assert.Len(t, result.Notifications, 2)

	byID := map[int64]model.RosterEntry{}
	for _, e := range result.Entries {
		byID[e.Link.ID] = e
	}

	repaired := byID[1]
	assert.Equal(t, model.LinkStatusRepaired, repaired.Link.Status)
	require.NotNil(t, repaired.Link.SubjectID)
	assert.Equal(t, int64(101), *repaired.Link.SubjectID)
	assert.NotNil(t, repaired.Subject)

	// The broken entry stays in the roster with its declared data.
	brokenEntry := byID[2]
	assert.Equal(t, model.LinkStatusBroken, brokenEntry.Link.Status)
	assert.Equal(t, "Nobody Here", brokenEntry.Link.DeclaredName)
	assert.Equal(t, model.LinkStatusBroken, repo.links[2].Status)
}

func TestRepairIsOnlyTightening(t *testing.T) {
	repo := newFakeRepo()
	repo.candidates = []model.SubjectCandidate{{ID: 101, Name: "Jane Doe", GroupID: "5"}}
	repo.placements[101] = &model.SubjectPlacement{SubjectID: 101, SheetName: "5A", Row: 3}

	link := unresolvedLink(1, "Jane Doe", "5")
	repo.links[1] = &link
	svc := NewService(repo)

	_, err := svc.LoadRoster(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, model.LinkStatusRepaired, repo.links[1].Status)

	// A second load sees the repaired reference resolve and leaves it alone.
	result, err := svc.LoadRoster(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, model.LinkStatusRepaired, result.Entries[0].Link.Status)
	assert.Empty(t, result.Notifications)
}

package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/db"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/logger"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/model"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/pkg/errors"
)

const (
	CodeUnresolvedLinks     = "UNRESOLVED_LINKS"
	CodeMissingRepairFields = "MISSING_REPAIR_FIELDS"
	CodeOrphanedAnnotations = "ORPHANED_ANNOTATIONS"
	CodeDuplicateEvalKeys   = "DUPLICATE_EVALUATION_KEYS"
	CodeDuplicateAttendKeys = "DUPLICATE_ATTENDANCE_KEYS"
)

// Auditor runs the read-only integrity sweep that precedes a bulk
// reconciliation. It writes nothing.
type Auditor struct {
	repo db.Repository
	log  zerolog.Logger
}

func NewAuditor(repo db.Repository) *Auditor {
	return &Auditor{
		repo: repo,
		log:  logger.Get(),
	}
}

func (a *Auditor) Audit(ctx context.Context) (model.AuditReport, error) {
	report := model.AuditReport{
		ID:          uuid.NewString(),
		GeneratedAt: time.Now(),
	}

	links, err := a.repo.GetAllLinks(ctx)
	if err != nil {
		return report, err
	}

	var unresolvedDetails, missingDetails, orphanDetails []string
	for _, link := range links {
		report.Summary.TotalLinks++

		resolved := false
		if link.SubjectID != nil {
			_, err := a.repo.GetSubjectPlacement(ctx, *link.SubjectID)
			if err == nil {
				resolved = true
			} else if err != errors.ErrSubjectNotFound {
				return report, err
			}
		}

		if resolved {
			report.Summary.ResolvedLinks++
			continue
		}
		report.Summary.UnresolvedLinks++
		unresolvedDetails = append(unresolvedDetails, linkLabel(link))

		if strings.TrimSpace(link.DeclaredName) == "" || strings.TrimSpace(link.DeclaredGroup) == "" {
			report.Summary.MissingRepairFields++
			missingDetails = append(missingDetails, linkLabel(link))
		}
		if strings.TrimSpace(link.Note) != "" {
			report.Summary.OrphanedAnnotations++
			orphanDetails = append(orphanDetails, linkLabel(link))
		}
	}

	dupEval, err := a.repo.FindDuplicateEvaluationKeys(ctx)
	if err != nil {
		return report, err
	}
	dupAttend, err := a.repo.FindDuplicateAttendanceKeys(ctx)
	if err != nil {
		return report, err
	}
	report.Summary.DuplicateEvalKeys = len(dupEval)
	report.Summary.DuplicateAttendKeys = len(dupAttend)

	// An annotation on an orphaned link is data at risk of silent loss, so
	// it is always a hard issue, never a warning.
	if report.Summary.OrphanedAnnotations > 0 {
		report.Issues = append(report.Issues, model.AuditIssue{
			Severity: model.SeverityIssue,
			Code:     CodeOrphanedAnnotations,
			Message:  "unresolved links carry free-text annotations that bulk reconciliation could lose",
			Count:    report.Summary.OrphanedAnnotations,
			Details:  orphanDetails,
		})
		report.Recommendations = append(report.Recommendations,
			"Export or re-home the annotations on orphaned links before running a bulk repair.")
	}

	if report.Summary.MissingRepairFields > 0 {
		report.Issues = append(report.Issues, model.AuditIssue{
			Severity: model.SeverityIssue,
			Code:     CodeMissingRepairFields,
			Message:  "unresolved links are missing the declared name or group needed to repair them",
			Count:    report.Summary.MissingRepairFields,
			Details:  missingDetails,
		})
		report.Recommendations = append(report.Recommendations,
			"Fill in declared name and group on the listed links; they cannot be matched otherwise.")
	}

	if report.Summary.UnresolvedLinks > 0 {
		report.Warnings = append(report.Warnings, model.AuditIssue{
			Severity: model.SeverityWarning,
			Code:     CodeUnresolvedLinks,
			Message:  "links whose student reference no longer resolves",
			Count:    report.Summary.UnresolvedLinks,
			Details:  unresolvedDetails,
		})
		report.Recommendations = append(report.Recommendations,
			"Run reconciliation for the affected guardians to repair what can be matched.")
	}

	if len(dupEval) > 0 {
		report.Warnings = append(report.Warnings, model.AuditIssue{
			Severity: model.SeverityWarning,
			Code:     CodeDuplicateEvalKeys,
			Message:  "duplicate (student, period, category) evaluation keys",
			Count:    len(dupEval),
			Details:  dupEval,
		})
	}
	if len(dupAttend) > 0 {
		report.Warnings = append(report.Warnings, model.AuditIssue{
			Severity: model.SeverityWarning,
			Code:     CodeDuplicateAttendKeys,
			Message:  "duplicate (student, date) attendance keys",
			Count:    len(dupAttend),
			Details:  dupAttend,
		})
	}

	a.log.Info().
		Int("total_links", report.Summary.TotalLinks).
		Int("unresolved", report.Summary.UnresolvedLinks).
		Int("issues", len(report.Issues)).
		Int("warnings", len(report.Warnings)).
		Msg("Integrity audit completed")

	return report, nil
}

func linkLabel(link model.GuardianLink) string {
	return fmt.Sprintf("link %d: %s (group %s)", link.ID, link.DeclaredName, link.DeclaredGroup)
}

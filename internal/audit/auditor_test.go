package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/db"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/model"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/pkg/errors"
)

type fakeRepo struct {
	db.Repository
	links      []model.GuardianLink
	placements map[int64]*model.SubjectPlacement
	dupEval    []string
	dupAttend  []string
}

func (f *fakeRepo) GetAllLinks(_ context.Context) ([]model.GuardianLink, error) {
	return f.links, nil
}

func (f *fakeRepo) GetSubjectPlacement(_ context.Context, subjectID int64) (*model.SubjectPlacement, error) {
	if p, ok := f.placements[subjectID]; ok {
		return p, nil
	}
	return nil, errors.ErrSubjectNotFound
}

func (f *fakeRepo) FindDuplicateEvaluationKeys(_ context.Context) ([]string, error) {
	return f.dupEval, nil
}

func (f *fakeRepo) FindDuplicateAttendanceKeys(_ context.Context) ([]string, error) {
	return f.dupAttend, nil
}

func link(id int64, subjectID *int64, name, group, note string) model.GuardianLink {
	return model.GuardianLink{
		ID:            id,
		GuardianID:    1,
		SubjectID:     subjectID,
		DeclaredName:  name,
		DeclaredGroup: group,
		Note:          note,
	}
}

func TestAuditCountsAndClassifies(t *testing.T) {
	resolved := int64(10)
	gone := int64(99)

	repo := &fakeRepo{
		placements: map[int64]*model.SubjectPlacement{
			10: {SubjectID: 10, SheetName: "5A", Row: 2},
		},
		links: []model.GuardianLink{
			link(1, &resolved, "Jane Doe", "5", ""),
			link(2, &gone, "Mark Spencer", "5", ""),           // unresolved
			link(3, nil, "", "5", ""),                         // missing name
			link(4, nil, "Anna Lee", "6", "allergic to nuts"), // orphaned annotation
		},
		dupEval:   []string{"10/2025-09-21/homework"},
		dupAttend: nil,
	}

	report, err := NewAuditor(repo).Audit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, report.Summary.TotalLinks)
	assert.Equal(t, 1, report.Summary.ResolvedLinks)
	assert.Equal(t, 3, report.Summary.UnresolvedLinks)
	assert.Equal(t, 1, report.Summary.MissingRepairFields)
	assert.Equal(t, 1, report.Summary.OrphanedAnnotations)
	assert.Equal(t, 1, report.Summary.DuplicateEvalKeys)
	assert.Zero(t, report.Summary.DuplicateAttendKeys)
	assert.NotEmpty(t, report.ID)
	assert.NotEmpty(t, report.Recommendations)

	// Orphaned annotations are always a hard issue, never a warning.
	var orphanSeverity model.IssueSeverity
	for _, issue := range report.Issues {
		if issue.Code == CodeOrphanedAnnotations {
			orphanSeverity = issue.Severity
		}
	}
	assert.Equal(t, model.SeverityIssue, orphanSeverity)

	for _, w := range report.Warnings {
		assert.NotEqual(t, CodeOrphanedAnnotations, w.Code)
	}
}

func TestAuditCleanDataYieldsNoFindings(t *testing.T) {
	ok := int64(10)
	repo := &fakeRepo{
		placements: map[int64]*model.SubjectPlacement{10: {SubjectID: 10}},
		links:      []model.GuardianLink{link(1, &ok, "Jane Doe", "5", "")},
	}

	report, err := NewAuditor(repo).Audit(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Issues)
	assert.Empty(t, report.Warnings)
	assert.Equal(t, 1, report.Summary.ResolvedLinks)
}

func TestExportWorkbook(t *testing.T) {
	report := model.AuditReport{
		ID:          "r-1",
		GeneratedAt: time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC),
		Summary:     model.AuditSummary{TotalLinks: 2, UnresolvedLinks: 1},
		Issues: []model.AuditIssue{
			{Severity: model.SeverityIssue, Code: CodeOrphanedAnnotations, Message: "m", Count: 1, Details: []string{"link 4"}},
		},
		Recommendations: []string{"do the thing"},
	}

	buf, err := ExportWorkbook(report)
	require.NoError(t, err)
	assert.Greater(t, buf.Len(), 0)
	assert.Equal(t, "audit-reports/r-1.xlsx", ArchiveKey(report))
}

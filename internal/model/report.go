package model

import "time"

type IssueSeverity string

const (
	SeverityIssue   IssueSeverity = "ISSUE"
	SeverityWarning IssueSeverity = "WARNING"
)

type AuditIssue struct {
	Severity IssueSeverity `json:"severity"`
	Code     string        `json:"code"`
	Message  string        `json:"message"`
	Count    int           `json:"count"`
	Details  []string      `json:"details,omitempty"`
}

type AuditSummary struct {
	TotalLinks          int `json:"total_links"`
	ResolvedLinks       int `json:"resolved_links"`
	UnresolvedLinks     int `json:"unresolved_links"`
	MissingRepairFields int `json:"missing_repair_fields"`
	OrphanedAnnotations int `json:"orphaned_annotations"`
	DuplicateEvalKeys   int `json:"duplicate_eval_keys"`
	DuplicateAttendKeys int `json:"duplicate_attendance_keys"`
}

// AuditReport is the structured result of a read-only integrity sweep,
// produced before any bulk reconciliation is attempted.
type AuditReport struct {
	ID              string       `json:"id"`
	GeneratedAt     time.Time    `json:"generated_at"`
	Summary         AuditSummary `json:"summary"`
	Issues          []AuditIssue `json:"issues"`
	Warnings        []AuditIssue `json:"warnings"`
	Recommendations []string     `json:"recommendations"`
}

package model

import "time"

type RecordKind string

const (
	RecordKindAttendance RecordKind = "attendance"
	RecordKindEvaluation RecordKind = "evaluation"
)

// Evaluation categories in sheet column order. The offset of each category
// within a week's block is its position in this list.
const (
	CategoryDiscipline    = "discipline"
	CategoryBehaviour     = "behaviour"
	CategoryHomework      = "homework"
	CategoryParticipation = "participation"
)

// SyncRecord is a pending mirror write: one attendance or evaluation entry
// flattened to what the sync executor needs. The relational row stays the
// source of truth; the spreadsheet cell is a derived copy.
type SyncRecord struct {
	ID        int64      `json:"id" db:"id"`
	Kind      RecordKind `json:"kind"`
	OwnerID   int64      `json:"owner_id" db:"owner_id"`
	SubjectID int64      `json:"student_id" db:"student_id"`
	Date      time.Time  `json:"date" db:"entry_date"`
	Category  string     `json:"category,omitempty" db:"category"`
	Value     string     `json:"value" db:"value"`
	Note      string     `json:"note,omitempty" db:"note"`
	Synced    bool       `json:"synced_to_sheet" db:"synced_to_sheet"`
	SyncError *string    `json:"sync_error,omitempty" db:"sync_error"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// SubjectPlacement locates a student inside the owner's spreadsheet: which
// class tab they are on and which row holds their data.
type SubjectPlacement struct {
	SubjectID int64  `json:"student_id" db:"id"`
	Name      string `json:"name" db:"name"`
	SheetName string `json:"sheet_name" db:"class_name"`
	Row       int    `json:"row" db:"sheet_row"`
}

// SheetConfig is the per-owner mirror configuration: which spreadsheet to
// write, the term origin date week arithmetic is anchored to, and the first
// data column of each record kind.
type SheetConfig struct {
	OwnerID          int64     `json:"owner_id" db:"owner_id"`
	SpreadsheetID    string    `json:"spreadsheet_id" db:"spreadsheet_id"`
	OriginDate       time.Time `json:"origin_date" db:"origin_date"`
	EvalBaseColumn   int       `json:"eval_base_column" db:"eval_base_column"`
	AttendBaseColumn int       `json:"attendance_base_column" db:"attendance_base_column"`
}

type SyncResult struct {
	TotalRecords int `json:"total_records"`
	SyncedCount  int `json:"synced_count"`
	FailedCount  int `json:"failed_count"`
	SkippedCount int `json:"skipped_count"`
}

type SyncStatus struct {
	OwnerID      int64     `json:"owner_id"`
	Kind         string    `json:"kind"`
	TotalRecords int       `json:"total_records"`
	SyncedCount  int       `json:"synced_count"`
	FailedCount  int       `json:"failed_count"`
	Errors       []string  `json:"errors,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

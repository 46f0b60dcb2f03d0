package model

import "time"

type LinkStatus string

const (
	LinkStatusLinked      LinkStatus = "LINKED"
	LinkStatusRepaired    LinkStatus = "REPAIRED"
	LinkStatusNeedsReview LinkStatus = "NEEDS_REVIEW"
	LinkStatusBroken      LinkStatus = "BROKEN"
)

// GuardianLink associates a guardian account with a student record. The
// declared name and group are kept denormalized so the link can be repaired
// (or at least displayed) after a bulk reimport invalidates the reference.
type GuardianLink struct {
	ID            int64      `json:"id" db:"id"`
	GuardianID    int64      `json:"guardian_id" db:"guardian_id"`
	SubjectID     *int64     `json:"student_id,omitempty" db:"student_id"`
	DeclaredName  string     `json:"declared_name" db:"declared_name"`
	DeclaredGroup string     `json:"declared_group" db:"declared_group"`
	Verified      bool       `json:"verified" db:"verified"`
	Status        LinkStatus `json:"status" db:"status"`
	Note          string     `json:"note,omitempty" db:"note"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// SubjectCandidate is a prospective replacement subject produced by a
// reconciliation query. Transient, never stored.
type SubjectCandidate struct {
	ID      int64  `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	GroupID string `json:"group_id" db:"year_level"`
}

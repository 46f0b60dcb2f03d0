package model

import "time"

type SyncRequest struct {
	OwnerID int64 `json:"owner_id" binding:"required"`
}

type RetryRequest struct {
	OwnerID int64  `json:"owner_id" binding:"required"`
	Kind    string `json:"kind" binding:"required,oneof=attendance evaluation"`
}

type SyncResponse struct {
	Result       SyncResult `json:"result"`
	SessionError bool       `json:"session_error,omitempty"`
	Error        string     `json:"error,omitempty"`
}

type ExportRequest struct {
	Archive bool `json:"archive"`
}

type ExportResponse struct {
	ReportID   string `json:"report_id"`
	ArchiveKey string `json:"archive_key,omitempty"`
}

// RosterEntry is one guardian link after the loader has tried to resolve it.
// Broken and needs-review entries keep the declared fields so nothing the
// guardian typed disappears from their view.
type RosterEntry struct {
	Link       GuardianLink       `json:"link"`
	Subject    *SubjectPlacement  `json:"subject,omitempty"`
	Candidates []SubjectCandidate `json:"candidates,omitempty"`
}

type RosterResult struct {
	GuardianID    int64         `json:"guardian_id"`
	Entries       []RosterEntry `json:"entries"`
	Notifications []string      `json:"notifications,omitempty"`
}

// Credential is the process-wide access credential for one active session.
// Only the session manager mutates it; everyone else reads through Token.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
}

type SessionRefreshResponse struct {
	AccessToken string `json:"access_token,omitempty"`
	ExpiresIn   int    `json:"expires_in,omitempty"`
	Refreshed   bool   `json:"refreshed"`
}

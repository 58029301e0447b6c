package domain

import "time"

// CheckIn is one row of the append-only check-in ledger. DayNumber is always
// derived server-side from CheckInDate, never trusted from the client.
type CheckIn struct {
	ID          string
	ChallengeID string
	TenantID    string
	UserID      string
	DayNumber   int
	CheckInDate time.Time
	Note        string
	PhotoKey    string
	Source      string
	CreatedAt   time.Time
}

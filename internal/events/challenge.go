package events

import "time"

// ChallengeCreated is emitted when a new challenge is opened.
type ChallengeCreated struct {
	ChallengeID  string    `json:"challenge_id"`
	TenantID     string    `json:"tenant_id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	StartDate    time.Time `json:"start_date"`
	DurationDays int       `json:"duration_days"`
	CreatedAt    time.Time `json:"created_at"`
}

// ChallengeAbandoned is emitted when a user gives up on an active challenge.
type ChallengeAbandoned struct {
	ChallengeID string    `json:"challenge_id"`
	TenantID    string    `json:"tenant_id"`
	UserID      string    `json:"user_id"`
	AbandonedAt time.Time `json:"abandoned_at"`
}

// Package events defines the payloads emitted through the outbox.
package events

import "time"

// CheckInRecorded represents the message emitted when a daily check-in is accepted.
type CheckInRecorded struct {
	CheckInID   string    `json:"checkin_id"`
	ChallengeID string    `json:"challenge_id"`
	TenantID    string    `json:"tenant_id"`
	UserID      string    `json:"user_id"`
	DayNumber   int       `json:"day_number"`
	CheckInDate time.Time `json:"checkin_date"`
	HasNote     bool      `json:"has_note"`
	HasPhoto    bool      `json:"has_photo"`
	Source      string    `json:"source"`
	Version     string    `json:"version"`
}

// MilestoneReached is emitted when the checked-day count crosses a milestone.
type MilestoneReached struct {
	ChallengeID string    `json:"challenge_id"`
	TenantID    string    `json:"tenant_id"`
	UserID      string    `json:"user_id"`
	Day         int       `json:"day"`
	Tag         string    `json:"tag"`
	Message     string    `json:"message"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// ChallengeCompleted is emitted when every day of a challenge has a check-in.
type ChallengeCompleted struct {
	ChallengeID  string    `json:"challenge_id"`
	TenantID     string    `json:"tenant_id"`
	UserID       string    `json:"user_id"`
	DurationDays int       `json:"duration_days"`
	CompletedAt  time.Time `json:"completed_at"`
}

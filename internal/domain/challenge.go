package domain

import "time"

// ChallengeState represents the lifecycle status of a challenge.
type ChallengeState string

const (
	ChallengeStateActive    ChallengeState = "active"
	ChallengeStateCompleted ChallengeState = "completed"
	ChallengeStateAbandoned ChallengeState = "abandoned"
)

// DefaultDurationDays is the canonical challenge length.
const DefaultDurationDays = 100

// Challenge is the aggregate stored in Postgres. A challenge owns an
// append-only ledger of daily check-ins.
type Challenge struct {
	ID           string
	TenantID     string
	UserID       string
	Title        string
	Description  string
	StartDate    time.Time
	DurationDays int
	State        ChallengeState
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EndDate returns the date of the challenge's final day.
func (c Challenge) EndDate() time.Time {
	return c.StartDate.AddDate(0, 0, c.DurationDays-1)
}

// DayNumber maps a calendar date onto the 1-based day index of the challenge.
// Dates before the start return 0.
func (c Challenge) DayNumber(date time.Time) int {
	days := int(DateOnly(date).Sub(DateOnly(c.StartDate)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days + 1
}

// DateOnly truncates a timestamp to a UTC calendar date.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

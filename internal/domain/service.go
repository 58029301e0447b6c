// Package domain defines the business logic for the habit-tracking service.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrChallengeNotFound is returned when a challenge cannot be located.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrChallengeClosed indicates the challenge is completed or abandoned.
	ErrChallengeClosed = errors.New("challenge is not active")
	// ErrDuplicateCheckIn indicates the day already has a check-in.
	ErrDuplicateCheckIn = errors.New("check-in already recorded for day")
	// ErrCheckInOutOfWindow indicates the date is outside [start_date, today]
	// or past the final challenge day.
	ErrCheckInOutOfWindow = errors.New("check-in date outside challenge window")
)

// Cursor models the keyset pagination token. Key holds the ordering timestamp
// of the listing being paged: created_at for challenges, checkin_date for the
// check-in ledger.
type Cursor struct {
	Key time.Time
	ID  string
}

// CheckInOutcome captures side effects of accepting a check-in. The repository
// records the matching outbox events in the same transaction as the insert.
type CheckInOutcome struct {
	CheckedDays        int
	Milestone          *Milestone
	ChallengeCompleted bool
}

// Repository captures persistence operations.
type Repository interface {
	CreateChallenge(ctx context.Context, challenge Challenge) error
	GetChallenge(ctx context.Context, tenantID, challengeID string) (*Challenge, error)
	ListChallengesByUser(ctx context.Context, tenantID, userID string, cursor *Cursor, limit int) ([]Challenge, *Cursor, error)
	UpdateChallengeState(ctx context.Context, tenantID, challengeID string, state ChallengeState, updatedAt time.Time) error

	FindCheckInByIdempotency(ctx context.Context, tenantID, challengeID, idempotencyKey string) (*CheckIn, error)
	CreateCheckIn(ctx context.Context, checkIn CheckIn, idempotencyKey string, outcome CheckInOutcome) error
	ListCheckedDays(ctx context.Context, tenantID, challengeID string) ([]int, error)
	ListCheckIns(ctx context.Context, tenantID, challengeID string, cursor *Cursor, limit int) ([]CheckIn, *Cursor, error)
}

// Service orchestrates challenge and check-in workflows.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the service clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateChallengeInput captures the payload from the API layer.
type CreateChallengeInput struct {
	TenantID     string
	UserID       string
	Title        string
	Description  string
	StartDate    time.Time
	DurationDays int
}

// CreateChallenge registers a new challenge starting today unless a start date
// is provided.
func (s *Service) CreateChallenge(ctx context.Context, input CreateChallengeInput) (*Challenge, error) {
	now := s.now()

	start := input.StartDate
	if start.IsZero() {
		start = now
	}
	duration := input.DurationDays
	if duration <= 0 {
		duration = DefaultDurationDays
	}

	challenge := Challenge{
		ID:           uuid.NewString(),
		TenantID:     input.TenantID,
		UserID:       input.UserID,
		Title:        input.Title,
		Description:  input.Description,
		StartDate:    DateOnly(start),
		DurationDays: duration,
		State:        ChallengeStateActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateChallenge(ctx, challenge); err != nil {
		return nil, err
	}
	return &challenge, nil
}

// GetChallenge fetches by ID.
func (s *Service) GetChallenge(ctx context.Context, tenantID, challengeID string) (*Challenge, error) {
	challenge, err := s.repo.GetChallenge(ctx, tenantID, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge == nil {
		return nil, ErrChallengeNotFound
	}
	return challenge, nil
}

// ListChallengesByUser fetches challenges with cursor pagination.
func (s *Service) ListChallengesByUser(ctx context.Context, tenantID, userID string, cursor *Cursor, limit int) ([]Challenge, *Cursor, error) {
	return s.repo.ListChallengesByUser(ctx, tenantID, userID, cursor, limit)
}

// AbandonChallenge transitions an active challenge to abandoned.
func (s *Service) AbandonChallenge(ctx context.Context, tenantID, challengeID string) (*Challenge, error) {
	challenge, err := s.GetChallenge(ctx, tenantID, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge.State != ChallengeStateActive {
		return nil, ErrChallengeClosed
	}

	now := s.now()
	if err := s.repo.UpdateChallengeState(ctx, tenantID, challengeID, ChallengeStateAbandoned, now); err != nil {
		return nil, err
	}
	challenge.State = ChallengeStateAbandoned
	challenge.UpdatedAt = now
	return challenge, nil
}

// RecordCheckInInput captures the payload from the API layer.
type RecordCheckInInput struct {
	TenantID       string
	ChallengeID    string
	Date           time.Time // zero means today
	Note           string
	PhotoKey       string
	Source         string
	IdempotencyKey string
}

// RecordCheckIn appends one day to the challenge ledger. Replays via
// Idempotency-Key return the original record; duplicate days, closed
// challenges, and out-of-window dates are rejected. Crossing a milestone or
// finishing the final day is recorded through the outbox in the same
// transaction as the insert.
func (s *Service) RecordCheckIn(ctx context.Context, input RecordCheckInInput) (*CheckIn, *CheckInOutcome, bool, error) {
	if existing, err := s.repo.FindCheckInByIdempotency(ctx, input.TenantID, input.ChallengeID, input.IdempotencyKey); err == nil && existing != nil {
		return existing, nil, true, nil
	}

	challenge, err := s.GetChallenge(ctx, input.TenantID, input.ChallengeID)
	if err != nil {
		return nil, nil, false, err
	}
	if challenge.State != ChallengeStateActive {
		return nil, nil, false, ErrChallengeClosed
	}

	now := s.now()
	today := DateOnly(now)

	date := DateOnly(input.Date)
	if input.Date.IsZero() {
		date = today
	}
	if date.Before(challenge.StartDate) || date.After(today) {
		return nil, nil, false, ErrCheckInOutOfWindow
	}
	day := challenge.DayNumber(date)
	if day > challenge.DurationDays {
		return nil, nil, false, ErrCheckInOutOfWindow
	}

	days, err := s.repo.ListCheckedDays(ctx, input.TenantID, input.ChallengeID)
	if err != nil {
		return nil, nil, false, err
	}
	for _, existing := range days {
		if existing == day {
			return nil, nil, false, ErrDuplicateCheckIn
		}
	}

	checkIn := CheckIn{
		ID:          uuid.NewString(),
		ChallengeID: challenge.ID,
		TenantID:    challenge.TenantID,
		UserID:      challenge.UserID,
		DayNumber:   day,
		CheckInDate: date,
		Note:        input.Note,
		PhotoKey:    input.PhotoKey,
		Source:      input.Source,
		CreatedAt:   now,
	}

	total := len(days) + 1
	outcome := CheckInOutcome{
		CheckedDays:        total,
		Milestone:          MilestoneAt(total),
		ChallengeCompleted: total >= challenge.DurationDays,
	}

	if err := s.repo.CreateCheckIn(ctx, checkIn, input.IdempotencyKey, outcome); err != nil {
		return nil, nil, false, err
	}

	return &checkIn, &outcome, false, nil
}

// ListCheckIns fetches ledger entries with cursor pagination.
func (s *Service) ListCheckIns(ctx context.Context, tenantID, challengeID string, cursor *Cursor, limit int) ([]CheckIn, *Cursor, error) {
	return s.repo.ListCheckIns(ctx, tenantID, challengeID, cursor, limit)
}

// Progress merges streak figures, milestones, and the recent ledger timeline.
type Progress struct {
	Challenge Challenge
	Summary   StreakSummary
	Earned    []Milestone
	Next      *Milestone
	Timeline  []CheckIn
}

// GetProgress computes the analytics view for a challenge.
func (s *Service) GetProgress(ctx context.Context, tenantID, challengeID string, timelineLimit int) (*Progress, error) {
	challenge, err := s.GetChallenge(ctx, tenantID, challengeID)
	if err != nil {
		return nil, err
	}

	days, err := s.repo.ListCheckedDays(ctx, tenantID, challengeID)
	if err != nil {
		return nil, err
	}

	timeline, _, err := s.repo.ListCheckIns(ctx, tenantID, challengeID, nil, timelineLimit)
	if err != nil {
		return nil, err
	}

	summary := Summarize(days, challenge.DurationDays, challenge.StartDate, s.now())
	return &Progress{
		Challenge: *challenge,
		Summary:   summary,
		Earned:    EarnedMilestones(summary.CheckedDays),
		Next:      NextMilestone(summary.CheckedDays),
		Timeline:  timeline,
	}, nil
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/hundreddays/internal/domain"
	"example.com/hundreddays/internal/events"
	"example.com/hundreddays/internal/observability"
)

// Repository provides Postgres-backed persistence for challenges, check-ins,
// and outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const challengeColumns = `challenge_id, tenant_id, user_id, title, description, start_date, duration_days, state, created_at, updated_at`

const checkInColumns = `checkin_id, challenge_id, tenant_id, user_id, day_number, checkin_date, note, photo_key, source, created_at`

// CreateChallenge persists a new challenge.
func (r *Repository) CreateChallenge(ctx context.Context, challenge domain.Challenge) error {
	tx, err := r.beginTenantTx(ctx, challenge.TenantID)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const stmt = `INSERT INTO challenges (challenge_id, tenant_id, user_id, title, description, start_date, duration_days, state, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	if _, err := tx.Exec(ctx, stmt,
		challenge.ID,
		challenge.TenantID,
		challenge.UserID,
		challenge.Title,
		challenge.Description,
		challenge.StartDate,
		challenge.DurationDays,
		challenge.State,
		challenge.CreatedAt,
		challenge.UpdatedAt,
	); err != nil {
		return err
	}

	if err := r.insertOutbox(ctx, tx, challenge.TenantID, "challenge", challenge.ID, "challenge.created", events.ChallengeCreated{
		ChallengeID:  challenge.ID,
		TenantID:     challenge.TenantID,
		UserID:       challenge.UserID,
		Title:        challenge.Title,
		StartDate:    challenge.StartDate,
		DurationDays: challenge.DurationDays,
		CreatedAt:    challenge.CreatedAt,
	}, challenge.ID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetChallenge retrieves a challenge by ID, nil when absent.
func (r *Repository) GetChallenge(ctx context.Context, tenantID, challengeID string) (*domain.Challenge, error) {
	tx, err := r.beginTenantTx(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE tenant_id=$1 AND challenge_id=$2`

	row := tx.QueryRow(ctx, query, tenantID, challengeID)
	challenge, err := scanChallenge(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if err := tx.Commit(ctx); err != nil {
				return nil, err
			}
			return nil, nil
		}
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return challenge, nil
}

// ListChallengesByUser returns challenges ordered by creation time.
func (r *Repository) ListChallengesByUser(ctx context.Context, tenantID, userID string, cursor *domain.Cursor, limit int) ([]domain.Challenge, *domain.Cursor, error) {
	args := []interface{}{tenantID, userID, limit}
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE tenant_id=$1 AND user_id=$2`

	if cursor != nil {
		query += ` AND (created_at, challenge_id) < ($4, $5)`
		args = append(args, cursor.Key, cursor.ID)
	}

	query += ` ORDER BY created_at DESC, challenge_id DESC LIMIT $3`

	tx, err := r.beginTenantTx(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	results := make([]domain.Challenge, 0, limit)
	for rows.Next() {
		challenge, err := scanChallenge(rows)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, *challenge)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}

	var nextCursor *domain.Cursor
	if len(results) == limit {
		last := results[len(results)-1]
		nextCursor = &domain.Cursor{Key: last.CreatedAt, ID: last.ID}
	}
	return results, nextCursor, nil
}

// UpdateChallengeState transitions the challenge lifecycle state.
func (r *Repository) UpdateChallengeState(ctx context.Context, tenantID, challengeID string, state domain.ChallengeState, updatedAt time.Time) error {
	tx, err := r.beginTenantTx(ctx, tenantID)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var userID string
	row := tx.QueryRow(ctx,
		`UPDATE challenges SET state=$1, updated_at=$2 WHERE tenant_id=$3 AND challenge_id=$4 RETURNING user_id`,
		state, updatedAt, tenantID, challengeID,
	)
	if err := row.Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrChallengeNotFound
		}
		return err
	}

	if state == domain.ChallengeStateAbandoned {
		if err := r.insertOutbox(ctx, tx, tenantID, "challenge", challengeID, "challenge.abandoned", events.ChallengeAbandoned{
			ChallengeID: challengeID,
			TenantID:    tenantID,
			UserID:      userID,
			AbandonedAt: updatedAt,
		}, challengeID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// FindCheckInByIdempotency checks if a check-in already exists for the supplied key.
func (r *Repository) FindCheckInByIdempotency(ctx context.Context, tenantID, challengeID, idempotencyKey string) (*domain.CheckIn, error) {
	if idempotencyKey == "" {
		return nil, nil
	}

	tx, err := r.beginTenantTx(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + checkInColumns + ` FROM check_ins WHERE tenant_id=$1 AND challenge_id=$2 AND idempotency_key=$3`

	row := tx.QueryRow(ctx, query, tenantID, challengeID, idempotencyKey)
	checkIn, err := scanCheckIn(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tx.Commit(ctx)
		}
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return checkIn, nil
}

// CreateCheckIn appends the ledger row and records outbox events inside a
// single transaction. When the outcome completes the challenge the state flip
// happens in the same transaction.
func (r *Repository) CreateCheckIn(ctx context.Context, checkIn domain.CheckIn, idempotencyKey string, outcome domain.CheckInOutcome) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", checkIn.TenantID); err != nil {
		return err
	}

	const insertCheckIn = `INSERT INTO check_ins (checkin_id, challenge_id, tenant_id, user_id, day_number, checkin_date, note, photo_key, source, idempotency_key, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

	_, err = tx.Exec(ctx, insertCheckIn,
		checkIn.ID,
		checkIn.ChallengeID,
		checkIn.TenantID,
		checkIn.UserID,
		checkIn.DayNumber,
		checkIn.CheckInDate,
		nullIfEmpty(checkIn.Note),
		nullIfEmpty(checkIn.PhotoKey),
		checkIn.Source,
		nullIfEmpty(idempotencyKey),
		checkIn.CreatedAt,
	)
	if err != nil {
		err = translateCheckInError(err)
		return err
	}

	if err = r.insertOutbox(ctx, tx, checkIn.TenantID, "checkin", checkIn.ID, "checkin.recorded", events.CheckInRecorded{
		CheckInID:   checkIn.ID,
		ChallengeID: checkIn.ChallengeID,
		TenantID:    checkIn.TenantID,
		UserID:      checkIn.UserID,
		DayNumber:   checkIn.DayNumber,
		CheckInDate: checkIn.CheckInDate,
		HasNote:     checkIn.Note != "",
		HasPhoto:    checkIn.PhotoKey != "",
		Source:      checkIn.Source,
		Version:     "v1",
	}, fmt.Sprintf("%s:%s", checkIn.TenantID, checkIn.UserID)); err != nil {
		return err
	}

	if outcome.Milestone != nil {
		if err = r.insertOutbox(ctx, tx, checkIn.TenantID, "challenge", checkIn.ChallengeID, "milestone.reached", events.MilestoneReached{
			ChallengeID: checkIn.ChallengeID,
			TenantID:    checkIn.TenantID,
			UserID:      checkIn.UserID,
			Day:         outcome.Milestone.Day,
			Tag:         outcome.Milestone.Tag,
			Message:     outcome.Milestone.Message,
			OccurredAt:  checkIn.CreatedAt,
		}, checkIn.ChallengeID); err != nil {
			return err
		}
	}

	if outcome.ChallengeCompleted {
		if _, err = tx.Exec(ctx,
			`UPDATE challenges SET state=$1, updated_at=$2 WHERE tenant_id=$3 AND challenge_id=$4`,
			domain.ChallengeStateCompleted, checkIn.CreatedAt, checkIn.TenantID, checkIn.ChallengeID,
		); err != nil {
			return err
		}

		if err = r.insertOutbox(ctx, tx, checkIn.TenantID, "challenge", checkIn.ChallengeID, "challenge.completed", events.ChallengeCompleted{
			ChallengeID:  checkIn.ChallengeID,
			TenantID:     checkIn.TenantID,
			UserID:       checkIn.UserID,
			DurationDays: outcome.CheckedDays,
			CompletedAt:  checkIn.CreatedAt,
		}, checkIn.ChallengeID); err != nil {
			return err
		}
	}

	err = tx.Commit(ctx)
	if err != nil {
		return err
	}
	observability.RecordCheckInPersisted(checkIn.CreatedAt)
	if outcome.ChallengeCompleted {
		observability.RecordChallengeCompleted()
	}
	return nil
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, tenantID, aggregateType, aggregateID, eventType string, payload interface{}, partitionKey string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	dedupeKey := fmt.Sprintf("%s:%s", aggregateID, eventType)

	const stmt = `INSERT INTO outbox (tenant_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err = tx.Exec(ctx, stmt,
		tenantID,
		aggregateType,
		aggregateID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		partitionKey,
		body,
		dedupeKey,
	)
	return err
}

// ListCheckedDays returns the day numbers carrying a check-in, ascending.
func (r *Repository) ListCheckedDays(ctx context.Context, tenantID, challengeID string) ([]int, error) {
	tx, err := r.beginTenantTx(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx,
		`SELECT day_number FROM check_ins WHERE tenant_id=$1 AND challenge_id=$2 ORDER BY day_number`,
		tenantID, challengeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	days := make([]int, 0)
	for rows.Next() {
		var day int
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return days, nil
}

// ListCheckIns returns ledger entries ordered by calendar date. Ordering on
// checkin_date rather than created_at keeps back-dated entries in their place
// on the timeline.
func (r *Repository) ListCheckIns(ctx context.Context, tenantID, challengeID string, cursor *domain.Cursor, limit int) ([]domain.CheckIn, *domain.Cursor, error) {
	args := []interface{}{tenantID, challengeID, limit}
	query := `SELECT ` + checkInColumns + ` FROM check_ins WHERE tenant_id=$1 AND challenge_id=$2`

	if cursor != nil {
		query += ` AND (checkin_date, checkin_id) < ($4, $5)`
		args = append(args, cursor.Key, cursor.ID)
	}

	query += ` ORDER BY checkin_date DESC, checkin_id DESC LIMIT $3`

	tx, err := r.beginTenantTx(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	results := make([]domain.CheckIn, 0, limit)
	for rows.Next() {
		checkIn, err := scanCheckIn(rows)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, *checkIn)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}

	var nextCursor *domain.Cursor
	if len(results) == limit {
		last := results[len(results)-1]
		nextCursor = &domain.Cursor{Key: last.CheckInDate, ID: last.ID}
	}
	return results, nextCursor, nil
}

// translateCheckInError maps unique-constraint violations to the domain error.
// The service checks for duplicates before inserting, but two concurrent
// requests for the same day can both pass that check; the one losing the race
// trips check_ins_one_per_day or idx_check_ins_idempotency here.
func translateCheckInError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.ErrDuplicateCheckIn
	}
	return err
}

// beginTenantTx opens a transaction with the tenant RLS variable applied.
func (r *Repository) beginTenantTx(ctx context.Context, tenantID string) (pgx.Tx, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		tx.Rollback(ctx)
		return nil, err
	}
	return tx, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChallenge(row rowScanner) (*domain.Challenge, error) {
	var challenge domain.Challenge
	var description *string
	if err := row.Scan(&challenge.ID, &challenge.TenantID, &challenge.UserID, &challenge.Title, &description, &challenge.StartDate, &challenge.DurationDays, &challenge.State, &challenge.CreatedAt, &challenge.UpdatedAt); err != nil {
		return nil, err
	}
	if description != nil {
		challenge.Description = *description
	}
	return &challenge, nil
}

func scanCheckIn(row rowScanner) (*domain.CheckIn, error) {
	var checkIn domain.CheckIn
	var note, photoKey *string
	if err := row.Scan(&checkIn.ID, &checkIn.ChallengeID, &checkIn.TenantID, &checkIn.UserID, &checkIn.DayNumber, &checkIn.CheckInDate, &note, &photoKey, &checkIn.Source, &checkIn.CreatedAt); err != nil {
		return nil, err
	}
	if note != nil {
		checkIn.Note = *note
	}
	if photoKey != nil {
		checkIn.PhotoKey = *photoKey
	}
	return &checkIn, nil
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic         string
	SchemaSubject string
}

var eventCatalog = map[string]EventMetadata{
	"checkin.recorded": {
		Topic:         "habit_checkins",
		SchemaSubject: "habit_checkins-value",
	},
	"challenge.created": {
		Topic:         "habit_challenges",
		SchemaSubject: "habit_challenges-value",
	},
	"challenge.abandoned": {
		Topic:         "habit_challenges",
		SchemaSubject: "habit_challenges-value",
	},
	"milestone.reached": {
		Topic:         "habit_milestones",
		SchemaSubject: "habit_milestones-value",
	},
	"challenge.completed": {
		Topic:         "habit_milestones",
		SchemaSubject: "habit_milestones-value",
	},
}

package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/hundreddays/internal/events"
)

// ProgressHandler projects consumed events into per-user progress rollups and an
// append-only event log used for auditing.
type ProgressHandler struct {
	pool *pgxpool.Pool
}

// NewProgressHandler constructs a handler backed by the provided pool.
func NewProgressHandler(pool *pgxpool.Pool) *ProgressHandler {
	return &ProgressHandler{pool: pool}
}

// Handle appends the event to checkin_event_log and updates the user_progress
// rollup: check-ins bump the total, lifecycle events keep the active and
// completed challenge counts current.
func (h *ProgressHandler) Handle(ctx context.Context, msg Message) error {
	conn, err := h.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", msg.TenantID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO checkin_event_log (event_type, tenant_id, schema_id, schema_subject, topic, partition, record_offset, payload, received_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		msg.EventType,
		msg.TenantID,
		msg.SchemaID,
		msg.SchemaSubject,
		msg.Topic,
		msg.Partition,
		msg.Offset,
		msg.Payload,
		msg.Timestamp,
	); err != nil {
		return err
	}

	switch msg.EventType {
	case "checkin.recorded":
		err = h.applyCheckIn(ctx, tx, msg)
	case "challenge.created":
		err = h.applyCreation(ctx, tx, msg)
	case "challenge.abandoned":
		err = h.applyAbandonment(ctx, tx, msg)
	case "challenge.completed":
		err = h.applyCompletion(ctx, tx, msg)
	}
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (h *ProgressHandler) applyCheckIn(ctx context.Context, tx pgx.Tx, msg Message) error {
	var event events.CheckInRecorded
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("decode checkin.recorded: %w", err)
	}

	_, err := tx.Exec(ctx,
		`INSERT INTO user_progress (tenant_id, user_id, total_checkins, last_checkin_date, last_challenge_id, updated_at)
         VALUES ($1,$2,1,$3,$4,NOW())
         ON CONFLICT (tenant_id, user_id) DO UPDATE
            SET total_checkins = user_progress.total_checkins + 1,
                last_checkin_date = GREATEST(user_progress.last_checkin_date, EXCLUDED.last_checkin_date),
                last_challenge_id = EXCLUDED.last_challenge_id,
                updated_at = NOW()`,
		event.TenantID, event.UserID, event.CheckInDate, event.ChallengeID,
	)
	return err
}

func (h *ProgressHandler) applyCreation(ctx context.Context, tx pgx.Tx, msg Message) error {
	var event events.ChallengeCreated
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("decode challenge.created: %w", err)
	}

	_, err := tx.Exec(ctx,
		`INSERT INTO user_progress (tenant_id, user_id, active_challenges, updated_at)
         VALUES ($1,$2,1,NOW())
         ON CONFLICT (tenant_id, user_id) DO UPDATE
            SET active_challenges = user_progress.active_challenges + 1,
                updated_at = NOW()`,
		event.TenantID, event.UserID,
	)
	return err
}

func (h *ProgressHandler) applyAbandonment(ctx context.Context, tx pgx.Tx, msg Message) error {
	var event events.ChallengeAbandoned
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("decode challenge.abandoned: %w", err)
	}

	_, err := tx.Exec(ctx,
		`INSERT INTO user_progress (tenant_id, user_id, active_challenges, updated_at)
         VALUES ($1,$2,0,NOW())
         ON CONFLICT (tenant_id, user_id) DO UPDATE
            SET active_challenges = GREATEST(user_progress.active_challenges - 1, 0),
                updated_at = NOW()`,
		event.TenantID, event.UserID,
	)
	return err
}

// applyCompletion moves a challenge out of the active count and into the
// completed tally.
func (h *ProgressHandler) applyCompletion(ctx context.Context, tx pgx.Tx, msg Message) error {
	var event events.ChallengeCompleted
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("decode challenge.completed: %w", err)
	}

	_, err := tx.Exec(ctx,
		`INSERT INTO user_progress (tenant_id, user_id, total_checkins, challenges_completed, updated_at)
         VALUES ($1,$2,0,1,NOW())
         ON CONFLICT (tenant_id, user_id) DO UPDATE
            SET challenges_completed = user_progress.challenges_completed + 1,
                active_challenges = GREATEST(user_progress.active_challenges - 1, 0),
                updated_at = NOW()`,
		event.TenantID, event.UserID,
	)
	return err
}

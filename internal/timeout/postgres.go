package timeout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "onboarding-gateway/pkg/domain"
	"onboarding-gateway/pkg/platform/sentinel"
	"onboarding-gateway/pkg/platform/tx"
)

// PostgresStore persists timers in PostgreSQL so wait bounds survive a
// restart.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

func (p *PostgresStore) Schedule(ctx context.Context, timer *Timer) error {
	_, err := tx.Resolve(ctx, p.db).ExecContext(ctx, `
		INSERT INTO timers (id, workflow_id, waiting, fire_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.UUID(timer.ID), uuid.UUID(timer.WorkflowID), string(timer.Waiting), timer.FireAt, timer.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == "23505" {
		return sentinel.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("schedule timer: %w", err)
	}
	return nil
}

func (p *PostgresStore) Due(ctx context.Context, now time.Time) ([]*Timer, error) {
	rows, err := tx.Resolve(ctx, p.db).QueryContext(ctx, `
		SELECT id, workflow_id, waiting, fire_at, created_at, fired_at, canceled_at
		FROM timers
		WHERE fired_at IS NULL AND canceled_at IS NULL AND fire_at <= $1
		ORDER BY fire_at
	`, now)
	if err != nil {
		return nil, fmt.Errorf("list due timers: %w", err)
	}
	defer rows.Close()

	var out []*Timer
	for rows.Next() {
		var (
			timer      Timer
			timerID    uuid.UUID
			workflowID uuid.UUID
			waiting    string
			firedAt    sql.NullTime
			canceledAt sql.NullTime
		)
		if err := rows.Scan(&timerID, &workflowID, &waiting, &timer.FireAt, &timer.CreatedAt, &firedAt, &canceledAt); err != nil {
			return nil, fmt.Errorf("scan timer: %w", err)
		}
		timer.ID = id.TimerID(timerID)
		timer.WorkflowID = id.WorkflowID(workflowID)
		timer.Waiting = Waiting(waiting)
		if firedAt.Valid {
			timer.FiredAt = &firedAt.Time
		}
		if canceledAt.Valid {
			timer.CanceledAt = &canceledAt.Time
		}
		out = append(out, &timer)
	}
	return out, rows.Err()
}

func (p *PostgresStore) MarkFired(ctx context.Context, timerID id.TimerID, at time.Time) error {
	result, err := tx.Resolve(ctx, p.db).ExecContext(ctx, `
		UPDATE timers SET fired_at = $1
		WHERE id = $2 AND fired_at IS NULL AND canceled_at IS NULL
	`, at, uuid.UUID(timerID))
	if err != nil {
		return fmt.Errorf("mark timer fired: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark timer fired rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

func (p *PostgresStore) Cancel(ctx context.Context, workflowID id.WorkflowID, waiting Waiting, at time.Time) error {
	_, err := tx.Resolve(ctx, p.db).ExecContext(ctx, `
		UPDATE timers SET canceled_at = $1
		WHERE workflow_id = $2 AND waiting = $3 AND fired_at IS NULL AND canceled_at IS NULL
	`, at, uuid.UUID(workflowID), string(waiting))
	if err != nil {
		return fmt.Errorf("cancel timer: %w", err)
	}
	return nil
}

func (p *PostgresStore) CancelAll(ctx context.Context, workflowID id.WorkflowID, at time.Time) error {
	_, err := tx.Resolve(ctx, p.db).ExecContext(ctx, `
		UPDATE timers SET canceled_at = $1
		WHERE workflow_id = $2 AND fired_at IS NULL AND canceled_at IS NULL
	`, at, uuid.UUID(workflowID))
	if err != nil {
		return fmt.Errorf("cancel workflow timers: %w", err)
	}
	return nil
}

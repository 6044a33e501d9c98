package quote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "onboarding-gateway/pkg/domain"
	"onboarding-gateway/pkg/platform/sentinel"
	"onboarding-gateway/pkg/platform/tx"
)

// PostgresStore persists quotes in PostgreSQL. Quote records carry the
// approved financial terms, so they live next to the workflow rows rather
// than in memory.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

func (p *PostgresStore) Create(ctx context.Context, quote *Quote) error {
	_, err := tx.Resolve(ctx, p.db).ExecContext(ctx, `
		INSERT INTO quotes
			(id, workflow_id, amount, base_fee, adjusted_fee, status,
			 rationale, generated_by, overlimit, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		uuid.UUID(quote.ID), uuid.UUID(quote.WorkflowID),
		int64(quote.Amount), int64(quote.BaseFee), int64(quote.AdjustedFee),
		string(quote.Status), quote.Rationale, quote.GeneratedBy, quote.Overlimit,
		quote.CreatedAt, quote.UpdatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == "23505" {
		return sentinel.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create quote: %w", err)
	}
	return nil
}

func (p *PostgresStore) FindByID(ctx context.Context, quoteID id.QuoteID) (*Quote, error) {
	row := tx.Resolve(ctx, p.db).QueryRowContext(ctx, `
		SELECT id, workflow_id, amount, base_fee, adjusted_fee, status,
		       rationale, generated_by, overlimit, created_at, updated_at
		FROM quotes
		WHERE id = $1
	`, uuid.UUID(quoteID))
	return scanQuote(row)
}

func (p *PostgresStore) FindByWorkflow(ctx context.Context, workflowID id.WorkflowID) (*Quote, error) {
	row := tx.Resolve(ctx, p.db).QueryRowContext(ctx, `
		SELECT id, workflow_id, amount, base_fee, adjusted_fee, status,
		       rationale, generated_by, overlimit, created_at, updated_at
		FROM quotes
		WHERE workflow_id = $1
	`, uuid.UUID(workflowID))
	return scanQuote(row)
}

func (p *PostgresStore) Update(ctx context.Context, quote *Quote) error {
	result, err := tx.Resolve(ctx, p.db).ExecContext(ctx, `
		UPDATE quotes
		SET amount = $1, base_fee = $2, adjusted_fee = $3, status = $4,
		    rationale = $5, overlimit = $6, updated_at = $7
		WHERE id = $8
	`,
		int64(quote.Amount), int64(quote.BaseFee), int64(quote.AdjustedFee),
		string(quote.Status), quote.Rationale, quote.Overlimit, quote.UpdatedAt,
		uuid.UUID(quote.ID),
	)
	if err != nil {
		return fmt.Errorf("update quote: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update quote rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanQuote(row *sql.Row) (*Quote, error) {
	var (
		quote      Quote
		quoteID    uuid.UUID
		workflowID uuid.UUID
		amount     int64
		baseFee    int64
		adjusted   int64
		status     string
	)
	err := row.Scan(&quoteID, &workflowID, &amount, &baseFee, &adjusted, &status,
		&quote.Rationale, &quote.GeneratedBy, &quote.Overlimit, &quote.CreatedAt, &quote.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan quote: %w", err)
	}
	quote.ID = id.QuoteID(quoteID)
	quote.WorkflowID = id.WorkflowID(workflowID)
	quote.Amount = id.Money(amount)
	quote.BaseFee = id.Money(baseFee)
	quote.AdjustedFee = id.Money(adjusted)
	quote.Status = Status(status)
	return &quote, nil
}

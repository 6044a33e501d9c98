package form

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

// PostgresStore persists form instances and submissions in PostgreSQL.
// Submissions are append-only; the version column keeps re-requested forms
// from overwriting earlier answer sets.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

func (p *PostgresStore) Create(ctx context.Context, instance *Instance) error {
	_, err := tx.Resolve(ctx, p.db).ExecContext(ctx, `
		INSERT INTO form_instances
			(id, workflow_id, form_type, status, token_hash, expires_at, created_at, updated_at, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		uuid.UUID(instance.ID), uuid.UUID(instance.WorkflowID),
		string(instance.Type), string(instance.Status), instance.TokenHash,
		instance.ExpiresAt, instance.CreatedAt, instance.UpdatedAt, instance.SubmittedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == "23505" {
		return sentinel.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create form instance: %w", err)
	}
	return nil
}

func (p *PostgresStore) FindByID(ctx context.Context, instanceID id.FormInstanceID) (*Instance, error) {
	row := tx.Resolve(ctx, p.db).QueryRowContext(ctx, `
		SELECT id, workflow_id, form_type, status, token_hash, expires_at, created_at, updated_at, submitted_at
		FROM form_instances
		WHERE id = $1
	`, uuid.UUID(instanceID))
	instance, err := scanInstance(row)
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func (p *PostgresStore) ListByWorkflow(ctx context.Context, workflowID id.WorkflowID) ([]*Instance, error) {
	rows, err := tx.Resolve(ctx, p.db).QueryContext(ctx, `
		SELECT id, workflow_id, form_type, status, token_hash, expires_at, created_at, updated_at, submitted_at
		FROM form_instances
		WHERE workflow_id = $1
		ORDER BY created_at
	`, uuid.UUID(workflowID))
	if err != nil {
		return nil, fmt.Errorf("list form instances: %w", err)
	}
	defer rows.Close()

	var out []*Instance
	for rows.Next() {
		instance, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, instance)
	}
	return out, rows.Err()
}

func (p *PostgresStore) Update(ctx context.Context, instance *Instance) error {
	result, err := tx.Resolve(ctx, p.db).ExecContext(ctx, `
		UPDATE form_instances
		SET status = $1, updated_at = $2, submitted_at = $3
		WHERE id = $4
	`, string(instance.Status), instance.UpdatedAt, instance.SubmittedAt, uuid.UUID(instance.ID))
	if err != nil {
		return fmt.Errorf("update form instance: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update form instance rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (p *PostgresStore) AddSubmission(ctx context.Context, submission *Submission) error {
	_, err := tx.Resolve(ctx, p.db).ExecContext(ctx, `
		INSERT INTO form_submissions
			(form_instance_id, workflow_id, form_type, version, answers,
			 submitted_at, actor_type, actor_id, actor_device)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		uuid.UUID(submission.FormInstanceID), uuid.UUID(submission.WorkflowID),
		string(submission.Type), submission.Version, []byte(submission.Answers),
		submission.SubmittedAt, string(submission.Actor.Type), submission.Actor.ID, submission.Actor.Device,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == "23505" {
		return sentinel.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("add form submission: %w", err)
	}
	return nil
}

func (p *PostgresStore) CountSubmissions(ctx context.Context, workflowID id.WorkflowID, formType Type) (int, error) {
	var count int
	err := tx.Resolve(ctx, p.db).QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM form_submissions
		WHERE workflow_id = $1 AND form_type = $2
	`, uuid.UUID(workflowID), string(formType)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count form submissions: %w", err)
	}
	return count, nil
}

type instanceScanner interface {
	Scan(dest ...any) error
}

func scanInstance(row instanceScanner) (*Instance, error) {
	var (
		instance    Instance
		instanceID  uuid.UUID
		workflowID  uuid.UUID
		formType    string
		status      string
		submittedAt sql.NullTime
	)
	err := row.Scan(&instanceID, &workflowID, &formType, &status, &instance.TokenHash,
		&instance.ExpiresAt, &instance.CreatedAt, &instance.UpdatedAt, &submittedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan form instance: %w", err)
	}
	instance.ID = id.FormInstanceID(instanceID)
	instance.WorkflowID = id.WorkflowID(workflowID)
	instance.Type = Type(formType)
	instance.Status = Status(status)
	if submittedAt.Valid {
		instance.SubmittedAt = &submittedAt.Time
	}
	return &instance, nil
}

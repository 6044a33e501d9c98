package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"onboarding-gateway/internal/workflow/models"
	id "onboarding-gateway/pkg/domain"
	"onboarding-gateway/pkg/platform/sentinel"
	"onboarding-gateway/pkg/platform/tx"
)

// uniqueViolation is the postgres error code for unique constraint hits.
const uniqueViolation = "23505"

// Postgres persists workflows and the event log in PostgreSQL. All methods
// honor a transaction placed in the context by InTx, so the event append and
// snapshot update commit atomically.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed workflow store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

var (
	_ WorkflowStore = (*Postgres)(nil)
	_ EventStore    = (*Postgres)(nil)
	_ TxRunner      = (*Postgres)(nil)
)

// InTx runs fn inside a SQL transaction stored in the context.
func (p *Postgres) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := tx.From(ctx); ok {
		return fn(ctx)
	}
	sqlTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx.WithTx(ctx, sqlTx)); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (p *Postgres) Create(ctx context.Context, workflow *models.Workflow) error {
	contextJSON, err := json.Marshal(workflow.Context)
	if err != nil {
		return fmt.Errorf("marshal workflow context: %w", err)
	}
	_, err = tx.Resolve(ctx, p.db).ExecContext(ctx, `
		INSERT INTO workflows (id, applicant_id, stage, status, started_at, updated_at, context, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		uuid.UUID(workflow.ID), uuid.UUID(workflow.ApplicantID), int(workflow.Stage),
		string(workflow.Status), workflow.StartedAt, workflow.UpdatedAt, contextJSON, workflow.Version,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create workflow: %w", err)
	}
	return nil
}

func (p *Postgres) FindByID(ctx context.Context, workflowID id.WorkflowID) (*models.Workflow, error) {
	row := tx.Resolve(ctx, p.db).QueryRowContext(ctx, `
		SELECT id, applicant_id, stage, status, started_at, updated_at, context, version
		FROM workflows
		WHERE id = $1
	`, uuid.UUID(workflowID))
	return scanWorkflow(row)
}

func (p *Postgres) Update(ctx context.Context, workflow *models.Workflow) error {
	contextJSON, err := json.Marshal(workflow.Context)
	if err != nil {
		return fmt.Errorf("marshal workflow context: %w", err)
	}
	result, err := tx.Resolve(ctx, p.db).ExecContext(ctx, `
		UPDATE workflows
		SET stage = $1, status = $2, updated_at = $3, context = $4, version = version + 1
		WHERE id = $5 AND version = $6
	`,
		int(workflow.Stage), string(workflow.Status), workflow.UpdatedAt,
		contextJSON, uuid.UUID(workflow.ID), workflow.Version,
	)
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update workflow rows affected: %w", err)
	}
	if affected == 0 {
		// Either the row is gone or another writer bumped the version.
		if _, findErr := p.FindByID(ctx, workflow.ID); errors.Is(findErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrVersionConflict
	}
	workflow.Version++
	return nil
}

func (p *Postgres) Append(ctx context.Context, event *models.WorkflowEvent) error {
	payloadJSON, err := models.MarshalPayload(event.Payload)
	if err != nil {
		return err
	}
	row := tx.Resolve(ctx, p.db).QueryRowContext(ctx, `
		INSERT INTO workflow_events
			(id, workflow_id, applicant_id, event_type, payload, idempotency_key,
			 ts, actor_type, actor_id, actor_device, applied_status, applied_stage, ignored, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING seq
	`,
		uuid.UUID(event.ID), uuid.UUID(event.WorkflowID), uuid.UUID(event.ApplicantID),
		string(event.Type), payloadJSON, event.IdempotencyKey, event.Timestamp,
		string(event.Actor.Type), event.Actor.ID, event.Actor.Device,
		string(event.AppliedStatus), int(event.AppliedStage), event.Ignored, event.Note,
	)
	if err := row.Scan(&event.Seq); err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrDuplicate
		}
		return fmt.Errorf("append workflow event: %w", err)
	}
	return nil
}

func (p *Postgres) FindByIdempotencyKey(ctx context.Context, key string) (*models.WorkflowEvent, error) {
	row := tx.Resolve(ctx, p.db).QueryRowContext(ctx, `
		SELECT id, workflow_id, applicant_id, event_type, payload, idempotency_key,
		       ts, seq, actor_type, actor_id, actor_device, applied_status, applied_stage, ignored, note
		FROM workflow_events
		WHERE idempotency_key = $1
	`, key)
	event, err := scanEvent(row)
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (p *Postgres) ListByWorkflow(ctx context.Context, workflowID id.WorkflowID) ([]*models.WorkflowEvent, error) {
	rows, err := tx.Resolve(ctx, p.db).QueryContext(ctx, `
		SELECT id, workflow_id, applicant_id, event_type, payload, idempotency_key,
		       ts, seq, actor_type, actor_id, actor_device, applied_status, applied_stage, ignored, note
		FROM workflow_events
		WHERE workflow_id = $1
		ORDER BY ts, seq
	`, uuid.UUID(workflowID))
	if err != nil {
		return nil, fmt.Errorf("list workflow events: %w", err)
	}
	defer rows.Close()

	var out []*models.WorkflowEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow    models.Workflow
		workflowID  uuid.UUID
		applicantID uuid.UUID
		stage       int
		status      string
		contextJSON []byte
	)
	err := row.Scan(&workflowID, &applicantID, &stage, &status,
		&workflow.StartedAt, &workflow.UpdatedAt, &contextJSON, &workflow.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan workflow: %w", err)
	}
	if err := json.Unmarshal(contextJSON, &workflow.Context); err != nil {
		return nil, fmt.Errorf("unmarshal workflow context: %w", err)
	}
	workflow.ID = id.WorkflowID(workflowID)
	workflow.ApplicantID = id.ApplicantID(applicantID)
	workflow.Stage = models.Stage(stage)
	workflow.Status = models.Status(status)
	return &workflow, nil
}

func scanEvent(row rowScanner) (*models.WorkflowEvent, error) {
	var (
		event        models.WorkflowEvent
		eventID      uuid.UUID
		workflowID   uuid.UUID
		applicantID  uuid.UUID
		eventType    string
		payloadJSON  []byte
		actorType    string
		appliedState string
		appliedStage int
	)
	err := row.Scan(&eventID, &workflowID, &applicantID, &eventType, &payloadJSON,
		&event.IdempotencyKey, &event.Timestamp, &event.Seq,
		&actorType, &event.Actor.ID, &event.Actor.Device,
		&appliedState, &appliedStage, &event.Ignored, &event.Note)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan workflow event: %w", err)
	}
	payload, err := models.UnmarshalPayload(payloadJSON)
	if err != nil {
		return nil, err
	}
	event.ID = id.EventID(eventID)
	event.WorkflowID = id.WorkflowID(workflowID)
	event.ApplicantID = id.ApplicantID(applicantID)
	event.Type = models.EventType(eventType)
	event.Payload = payload
	event.Actor.Type = id.ActorType(actorType)
	event.AppliedStatus = models.Status(appliedState)
	event.AppliedStage = models.Stage(appliedStage)
	return &event, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}

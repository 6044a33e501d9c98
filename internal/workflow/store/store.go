// Package store persists workflow snapshots and the append-only event log.
// Stores are interface-driven so the orchestrator can run against memory in
// tests and PostgreSQL in production without rewiring business code.
package store

import (
	"context"

	"onboarding-gateway/internal/workflow/models"
	id "onboarding-gateway/pkg/domain"
)

// WorkflowStore holds current workflow snapshots.
//
// Update enforces optimistic concurrency: it matches on the version the
// caller loaded and increments it on success, returning
// sentinel.ErrVersionConflict when another writer got there first. Each
// workflow is single-writer per commit, never serialized behind a global
// lock.
type WorkflowStore interface {
	Create(ctx context.Context, workflow *models.Workflow) error
	FindByID(ctx context.Context, workflowID id.WorkflowID) (*models.Workflow, error)
	Update(ctx context.Context, workflow *models.Workflow) error
}

// EventStore is the append-only event log.
//
// Append assigns the store sequence number and enforces idempotency-key
// uniqueness (sentinel.ErrDuplicate). Rows are never updated or deleted.
type EventStore interface {
	Append(ctx context.Context, event *models.WorkflowEvent) error
	FindByIdempotencyKey(ctx context.Context, key string) (*models.WorkflowEvent, error)
	// ListByWorkflow returns events ordered by timestamp then sequence, so
	// replaying them is deterministic.
	ListByWorkflow(ctx context.Context, workflowID id.WorkflowID) ([]*models.WorkflowEvent, error)
}

// TxRunner executes fn atomically: the event append and the snapshot update
// issued inside fn commit or roll back together.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

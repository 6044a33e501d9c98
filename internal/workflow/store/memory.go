package store

import (
	"context"
	"sort"
	"sync"

	"onboarding-gateway/internal/workflow/models"
	id "onboarding-gateway/pkg/domain"
	"onboarding-gateway/pkg/platform/sentinel"
)

// Memory is the in-memory store used by tests and unconfigured deployments.
// One mutex covers snapshots and log together, which also makes InTx trivially
// atomic: validation happens before any mutation, so fn either applies fully
// or not at all.
type Memory struct {
	mu        sync.RWMutex
	workflows map[id.WorkflowID]*models.Workflow
	events    []*models.WorkflowEvent
	byKey     map[string]*models.WorkflowEvent
	seq       int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		workflows: make(map[id.WorkflowID]*models.Workflow),
		byKey:     make(map[string]*models.WorkflowEvent),
	}
}

var (
	_ WorkflowStore = (*Memory)(nil)
	_ EventStore    = (*Memory)(nil)
	_ TxRunner      = (*Memory)(nil)
)

type memTxKey struct{}

// InTx serializes fn under the store lock. Nested calls reuse the outer
// "transaction" instead of deadlocking.
func (m *Memory) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(context.WithValue(ctx, memTxKey{}, true))
}

func (m *Memory) lock(ctx context.Context) func() {
	if ctx.Value(memTxKey{}) != nil {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *Memory) rlock(ctx context.Context) func() {
	if ctx.Value(memTxKey{}) != nil {
		return func() {}
	}
	m.mu.RLock()
	return m.mu.RUnlock
}

func (m *Memory) Create(ctx context.Context, workflow *models.Workflow) error {
	defer m.lock(ctx)()
	if _, exists := m.workflows[workflow.ID]; exists {
		return sentinel.ErrDuplicate
	}
	m.workflows[workflow.ID] = workflow.Clone()
	return nil
}

func (m *Memory) FindByID(ctx context.Context, workflowID id.WorkflowID) (*models.Workflow, error) {
	defer m.rlock(ctx)()
	workflow, ok := m.workflows[workflowID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return workflow.Clone(), nil
}

func (m *Memory) Update(ctx context.Context, workflow *models.Workflow) error {
	defer m.lock(ctx)()
	current, ok := m.workflows[workflow.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != workflow.Version {
		return sentinel.ErrVersionConflict
	}
	next := workflow.Clone()
	next.Version++
	m.workflows[workflow.ID] = next
	workflow.Version = next.Version
	return nil
}

func (m *Memory) Append(ctx context.Context, event *models.WorkflowEvent) error {
	defer m.lock(ctx)()
	if _, exists := m.byKey[event.IdempotencyKey]; exists {
		return sentinel.ErrDuplicate
	}
	m.seq++
	event.Seq = m.seq
	stored := *event
	m.events = append(m.events, &stored)
	m.byKey[event.IdempotencyKey] = &stored
	return nil
}

func (m *Memory) FindByIdempotencyKey(ctx context.Context, key string) (*models.WorkflowEvent, error) {
	defer m.rlock(ctx)()
	event, ok := m.byKey[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *event
	return &cp, nil
}

func (m *Memory) ListByWorkflow(ctx context.Context, workflowID id.WorkflowID) ([]*models.WorkflowEvent, error) {
	defer m.rlock(ctx)()
	var out []*models.WorkflowEvent
	for _, event := range m.events {
		if event.WorkflowID == workflowID {
			cp := *event
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

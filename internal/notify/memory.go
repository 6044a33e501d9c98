package notify

import (
	"context"
	"sync"

	"onboarding-gateway/internal/workflow/models"
)

// Memory records published messages for test assertions.
type Memory struct {
	mu            sync.Mutex
	events        []*models.WorkflowEvent
	escalations   []Escalation
	escalationErr error
}

func NewMemory() *Memory { return &Memory{} }

var _ Notifier = (*Memory)(nil)

func (m *Memory) PublishEvent(ctx context.Context, event *models.WorkflowEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *Memory) PublishEscalation(ctx context.Context, escalation Escalation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.escalationErr != nil {
		return m.escalationErr
	}
	m.escalations = append(m.escalations, escalation)
	return nil
}

// FailEscalations makes every subsequent escalation publish return err until
// cleared with nil.
func (m *Memory) FailEscalations(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.escalationErr = err
}

// Events returns a copy of everything published so far.
func (m *Memory) Events() []*models.WorkflowEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.WorkflowEvent(nil), m.events...)
}

// Escalations returns a copy of every escalation raised so far.
func (m *Memory) Escalations() []Escalation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Escalation(nil), m.escalations...)
}

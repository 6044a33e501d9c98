package timeout

import (
	"context"
	"sort"
	"sync"
	"time"

	id "onboarding-gateway/pkg/domain"
	"onboarding-gateway/pkg/platform/sentinel"
)

// Store persists timers.
type Store interface {
	Schedule(ctx context.Context, timer *Timer) error
	// Due returns pending timers whose fire time has passed, oldest first.
	Due(ctx context.Context, now time.Time) ([]*Timer, error)
	MarkFired(ctx context.Context, timerID id.TimerID, at time.Time) error
	// Cancel cancels the pending timer for the workflow and wait kind, if
	// any. Canceling a timer that already fired or does not exist is a no-op.
	Cancel(ctx context.Context, workflowID id.WorkflowID, waiting Waiting, at time.Time) error
	// CancelAll cancels every pending timer for the workflow.
	CancelAll(ctx context.Context, workflowID id.WorkflowID, at time.Time) error
}

// MemoryStore is the in-memory timer store.
type MemoryStore struct {
	mu     sync.RWMutex
	timers map[id.TimerID]*Timer
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{timers: make(map[id.TimerID]*Timer)}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Schedule(ctx context.Context, timer *Timer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.timers[timer.ID]; exists {
		return sentinel.ErrDuplicate
	}
	s.timers[timer.ID] = timer.Clone()
	return nil
}

func (s *MemoryStore) Due(ctx context.Context, now time.Time) ([]*Timer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Timer
	for _, timer := range s.timers {
		if timer.Pending() && !timer.FireAt.After(now) {
			out = append(out, timer.Clone())
		}
	}
	sortTimers(out)
	return out, nil
}

func (s *MemoryStore) MarkFired(ctx context.Context, timerID id.TimerID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	timer, ok := s.timers[timerID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !timer.Pending() {
		return sentinel.ErrInvalidState
	}
	timer.FiredAt = &at
	return nil
}

func (s *MemoryStore) Cancel(ctx context.Context, workflowID id.WorkflowID, waiting Waiting, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, timer := range s.timers {
		if timer.WorkflowID == workflowID && timer.Waiting == waiting && timer.Pending() {
			timer.CanceledAt = &at
		}
	}
	return nil
}

func (s *MemoryStore) CancelAll(ctx context.Context, workflowID id.WorkflowID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, timer := range s.timers {
		if timer.WorkflowID == workflowID && timer.Pending() {
			timer.CanceledAt = &at
		}
	}
	return nil
}

func sortTimers(timers []*Timer) {
	sort.Slice(timers, func(i, j int) bool { return timers[i].FireAt.Before(timers[j].FireAt) })
}

package timeout

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "onboarding-gateway/pkg/domain"
	"onboarding-gateway/pkg/platform/sentinel"
)

type recordingHandler struct {
	mu      sync.Mutex
	fired   []id.TimerID
	failFor map[id.TimerID]bool
}

func (h *recordingHandler) HandleTimeout(ctx context.Context, timer *Timer) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failFor[timer.ID] {
		return assert.AnError
	}
	h.fired = append(h.fired, timer.ID)
	return nil
}

func (h *recordingHandler) firedIDs() []id.TimerID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]id.TimerID(nil), h.fired...)
}

func scheduleTimer(t *testing.T, store Store, workflowID id.WorkflowID, waiting Waiting, fireAt time.Time) *Timer {
	t.Helper()
	timer := &Timer{
		ID:         id.NewTimerID(),
		WorkflowID: workflowID,
		Waiting:    waiting,
		FireAt:     fireAt,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.Schedule(context.Background(), timer))
	return timer
}

func TestMemoryStore_DueAndCancel(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	workflowID := id.NewWorkflowID()
	now := time.Now().UTC()

	expired := scheduleTimer(t, store, workflowID, WaitingSignature, now.Add(-time.Minute))
	scheduleTimer(t, store, workflowID, WaitingCompliance, now.Add(time.Hour))

	t.Run("only expired timers are due", func(t *testing.T) {
		due, err := store.Due(ctx, now)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, expired.ID, due[0].ID)
	})

	t.Run("canceled timer never becomes due", func(t *testing.T) {
		require.NoError(t, store.Cancel(ctx, workflowID, WaitingCompliance, now))
		due, err := store.Due(ctx, now.Add(2*time.Hour))
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, expired.ID, due[0].ID)
	})

	t.Run("firing is single shot", func(t *testing.T) {
		require.NoError(t, store.MarkFired(ctx, expired.ID, now))
		assert.ErrorIs(t, store.MarkFired(ctx, expired.ID, now), sentinel.ErrInvalidState)
		due, err := store.Due(ctx, now.Add(2*time.Hour))
		require.NoError(t, err)
		assert.Empty(t, due)
	})
}

func TestMemoryStore_CancelAll(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	workflowID := id.NewWorkflowID()
	now := time.Now().UTC()

	scheduleTimer(t, store, workflowID, WaitingSignature, now.Add(time.Hour))
	scheduleTimer(t, store, workflowID, WaitingCompliance, now.Add(time.Hour))
	other := scheduleTimer(t, store, id.NewWorkflowID(), WaitingSignature, now.Add(time.Hour))

	require.NoError(t, store.CancelAll(ctx, workflowID, now))

	due, err := store.Due(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, other.ID, due[0].ID)
}

func TestManager_Sweep(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	handler := &recordingHandler{failFor: map[id.TimerID]bool{}}
	manager := NewManager(store, handler, time.Hour, nil, slog.Default())

	now := time.Now().UTC()
	due := scheduleTimer(t, store, id.NewWorkflowID(), WaitingSignature, now.Add(-time.Minute))
	failing := scheduleTimer(t, store, id.NewWorkflowID(), WaitingCompliance, now.Add(-time.Minute))
	handler.failFor[failing.ID] = true

	manager.sweep(ctx)

	assert.Equal(t, []id.TimerID{due.ID}, handler.firedIDs())

	t.Run("handled timer does not fire again", func(t *testing.T) {
		manager.sweep(ctx)
		assert.Equal(t, []id.TimerID{due.ID}, handler.firedIDs())
	})

	t.Run("failed timer is retried on the next sweep", func(t *testing.T) {
		handler.mu.Lock()
		handler.failFor[failing.ID] = false
		handler.mu.Unlock()
		manager.sweep(ctx)
		assert.Equal(t, []id.TimerID{due.ID, failing.ID}, handler.firedIDs())
	})
}

func TestManager_RunStopsOnCancel(t *testing.T) {
	store := NewMemoryStore()
	handler := &recordingHandler{}
	manager := NewManager(store, handler, time.Millisecond, nil, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		manager.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("manager did not stop on context cancel")
	}
}

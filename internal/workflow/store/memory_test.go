package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboarding-gateway/internal/workflow/models"
	id "onboarding-gateway/pkg/domain"
	"onboarding-gateway/pkg/platform/sentinel"
)

func newTestWorkflow() *models.Workflow {
	return models.NewWorkflow(id.NewApplicantID(), time.Now().UTC())
}

func newTestEvent(workflow *models.Workflow, key string) *models.WorkflowEvent {
	return &models.WorkflowEvent{
		ID:             id.NewEventID(),
		WorkflowID:     workflow.ID,
		ApplicantID:    workflow.ApplicantID,
		Type:           models.EventLeadCreated,
		Payload:        models.LeadCreatedPayload{ApplicantID: workflow.ApplicantID},
		IdempotencyKey: key,
		Timestamp:      time.Now().UTC(),
		Actor:          id.SystemActor(),
		AppliedStatus:  models.StatusPending,
		AppliedStage:   models.StageCapture,
	}
}

func TestMemory_WorkflowLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	workflow := newTestWorkflow()

	t.Run("find before create returns not found", func(t *testing.T) {
		_, err := store.FindByID(ctx, workflow.ID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("create and find round-trips", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, workflow))
		found, err := store.FindByID(ctx, workflow.ID)
		require.NoError(t, err)
		assert.Equal(t, workflow.ID, found.ID)
		assert.Equal(t, models.StatusPending, found.Status)
	})

	t.Run("duplicate create rejected", func(t *testing.T) {
		assert.ErrorIs(t, store.Create(ctx, workflow), sentinel.ErrDuplicate)
	})

	t.Run("stored snapshot is isolated from caller mutation", func(t *testing.T) {
		found, err := store.FindByID(ctx, workflow.ID)
		require.NoError(t, err)
		found.Status = models.StatusTerminated

		again, err := store.FindByID(ctx, workflow.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, again.Status)
	})
}

func TestMemory_OptimisticConcurrency(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	workflow := newTestWorkflow()
	require.NoError(t, store.Create(ctx, workflow))

	first, err := store.FindByID(ctx, workflow.ID)
	require.NoError(t, err)
	second, err := store.FindByID(ctx, workflow.ID)
	require.NoError(t, err)

	first.Status = models.StatusInProgress
	require.NoError(t, store.Update(ctx, first))

	// The stale copy must lose.
	second.Status = models.StatusFailed
	assert.ErrorIs(t, store.Update(ctx, second), sentinel.ErrVersionConflict)

	found, err := store.FindByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, found.Status)
	assert.Equal(t, first.Version, found.Version)
}

func TestMemory_EventLog(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	workflow := newTestWorkflow()

	t.Run("append assigns increasing sequence", func(t *testing.T) {
		first := newTestEvent(workflow, "key-1")
		second := newTestEvent(workflow, "key-2")
		require.NoError(t, store.Append(ctx, first))
		require.NoError(t, store.Append(ctx, second))
		assert.Less(t, first.Seq, second.Seq)
	})

	t.Run("duplicate idempotency key rejected", func(t *testing.T) {
		dup := newTestEvent(workflow, "key-1")
		assert.ErrorIs(t, store.Append(ctx, dup), sentinel.ErrDuplicate)
	})

	t.Run("find by idempotency key", func(t *testing.T) {
		found, err := store.FindByIdempotencyKey(ctx, "key-2")
		require.NoError(t, err)
		assert.Equal(t, workflow.ID, found.WorkflowID)

		_, err = store.FindByIdempotencyKey(ctx, "missing")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("list orders by timestamp then sequence", func(t *testing.T) {
		// An event with an earlier timestamp appended later must sort first.
		early := newTestEvent(workflow, "key-early")
		early.Timestamp = time.Now().UTC().Add(-time.Hour)
		require.NoError(t, store.Append(ctx, early))

		events, err := store.ListByWorkflow(ctx, workflow.ID)
		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.Equal(t, "key-early", events[0].IdempotencyKey)
	})

	t.Run("list filters by workflow", func(t *testing.T) {
		other := newTestWorkflow()
		require.NoError(t, store.Append(ctx, newTestEvent(other, "other-key")))

		events, err := store.ListByWorkflow(ctx, other.ID)
		require.NoError(t, err)
		require.Len(t, events, 1)
	})
}

func TestMemory_InTxAtomicVisibility(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	workflow := newTestWorkflow()
	require.NoError(t, store.Create(ctx, workflow))

	err := store.InTx(ctx, func(txCtx context.Context) error {
		loaded, err := store.FindByID(txCtx, workflow.ID)
		if err != nil {
			return err
		}
		loaded.Status = models.StatusInProgress
		if err := store.Update(txCtx, loaded); err != nil {
			return err
		}
		return store.Append(txCtx, newTestEvent(workflow, "tx-key"))
	})
	require.NoError(t, err)

	found, err := store.FindByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, found.Status)

	events, err := store.ListByWorkflow(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

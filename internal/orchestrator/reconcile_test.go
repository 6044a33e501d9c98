package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboarding-gateway/internal/form"
	"onboarding-gateway/internal/workflow/models"
	id "onboarding-gateway/pkg/domain"
)

// driveToCompletion runs a workflow through the whole saga.
func driveToCompletion(t *testing.T, h *harness) id.WorkflowID {
	t.Helper()
	workflow := h.start(t)
	h.signQuote(t, workflow.ID)
	h.apply(t, workflow.ID, models.FormSubmittedPayload{
		FormInstanceID: id.NewFormInstanceID(),
		FormType:       string(form.TypeComplianceQuestionnaire),
	})
	h.apply(t, workflow.ID, models.ContractSignedPayload{ContractRef: "contract-1"})
	h.apply(t, workflow.ID, models.FinalApprovalPayload{})
	return workflow.ID
}

func TestRebuild_ReproducesSnapshot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	workflowID := driveToCompletion(t, h)

	live := h.current(t, workflowID)
	events, err := h.orch.History(ctx, workflowID)
	require.NoError(t, err)

	rebuilt, err := Rebuild(workflowID, events)
	require.NoError(t, err)
	assert.Equal(t, live.Status, rebuilt.Status)
	assert.Equal(t, live.Stage, rebuilt.Stage)
	assert.Equal(t, live.Context, rebuilt.Context)
}

func TestRebuild_SkipsIgnoredEvents(t *testing.T) {
	h := newHarness(t)
	h.credit.score = 400
	workflow := h.start(t)
	require.Equal(t, models.StatusFailed, workflow.Status)

	// An audit-only record on a failed workflow must not leak into replay.
	h.apply(t, workflow.ID, models.DocumentUploadedPayload{DocumentType: "id", DocumentRef: "doc-9"})

	events, err := h.orch.History(context.Background(), workflow.ID)
	require.NoError(t, err)
	rebuilt, err := Rebuild(workflow.ID, events)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, rebuilt.Status)
	assert.Equal(t, h.current(t, workflow.ID).Context, rebuilt.Context)
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("healthy snapshot is untouched", func(t *testing.T) {
		h := newHarness(t)
		workflowID := driveToCompletion(t, h)
		before := h.current(t, workflowID)

		reconciled, err := h.orch.Reconcile(ctx, workflowID)
		require.NoError(t, err)
		assert.Equal(t, before.Version, reconciled.Version)
		assert.Equal(t, before.Status, reconciled.Status)
	})

	t.Run("diverged snapshot is repaired from the log", func(t *testing.T) {
		h := newHarness(t)
		workflowID := driveToCompletion(t, h)

		// Corrupt the snapshot behind the orchestrator's back.
		corrupted := h.current(t, workflowID)
		corrupted.Status = models.StatusInProgress
		corrupted.Stage = models.StageQuotation
		corrupted.Context.IntegrationRef = ""
		require.NoError(t, h.store.Update(ctx, corrupted))

		reconciled, err := h.orch.Reconcile(ctx, workflowID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, reconciled.Status)
		assert.Equal(t, models.StageIntegration, reconciled.Stage)
		assert.NotEmpty(t, reconciled.Context.IntegrationRef)

		assert.Equal(t, models.StatusCompleted, h.current(t, workflowID).Status)
	})
}

func TestRebuild_RequiresLeadEvent(t *testing.T) {
	workflowID := id.NewWorkflowID()
	_, err := Rebuild(workflowID, nil)
	assert.Error(t, err)

	_, err = Rebuild(workflowID, []*models.WorkflowEvent{{
		Type:          models.EventDocumentUploaded,
		Payload:       models.DocumentUploadedPayload{},
		AppliedStatus: models.StatusInProgress,
		AppliedStage:  models.StageVerification,
	}})
	assert.Error(t, err)
}

package killswitch

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboarding-gateway/internal/adapters"
	"onboarding-gateway/internal/form"
	"onboarding-gateway/internal/notify"
	"onboarding-gateway/internal/orchestrator"
	"onboarding-gateway/internal/quote"
	"onboarding-gateway/internal/timeout"
	"onboarding-gateway/internal/workflow/models"
	"onboarding-gateway/internal/workflow/store"
	id "onboarding-gateway/pkg/domain"
	dErrors "onboarding-gateway/pkg/domain-errors"
)

// flakyFormStore fails updates for selected instances so partial revocation
// can be exercised.
type flakyFormStore struct {
	form.Store
	failUpdate map[id.FormInstanceID]bool
}

func (f *flakyFormStore) Update(ctx context.Context, instance *form.Instance) error {
	if f.failUpdate[instance.ID] {
		return assert.AnError
	}
	return f.Store.Update(ctx, instance)
}

type fixture struct {
	workflows *store.Memory
	orch      *orchestrator.Orchestrator
	forms     *form.Service
	formStore *flakyFormStore
	quotes    *quote.Service
	timers    *timeout.MemoryStore
	svc       *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.Default()
	memory := store.NewMemory()
	formStore := &flakyFormStore{Store: form.NewMemoryStore(), failUpdate: map[id.FormInstanceID]bool{}}
	forms := form.NewService(formStore, form.NewMemoryRevocationList(), time.Hour, logger)
	quotes := quote.NewService(quote.NewMemoryStore(), 50_000_000, logger)
	timers := timeout.NewMemoryStore()
	analyzer := adapters.StubDocumentAnalyzer{}
	screener := adapters.StubSanctionsScreener{}

	orch := orchestrator.New(orchestrator.Deps{
		Workflows:   memory,
		Events:      memory,
		TxRunner:    memory,
		Quotes:      quotes,
		Forms:       forms,
		Timers:      timers,
		Credit:      adapters.StubCreditChecker{},
		Evidence:    adapters.NewEvidenceGatherer(analyzer, screener, time.Second, nil),
		Provisioner: adapters.StubIntegrationProvisioner{},
		Notifier:    notify.NewMemory(),
		Logger:      logger,
	}, orchestrator.Config{
		CreditScoreFloor:    300, // every stub score passes
		TrustScoreThreshold: 70,
		SignatureWaitBound:  time.Hour,
		ComplianceWaitBound: time.Hour,
		ConflictRetries:     3,
	})
	return &fixture{
		workflows: memory,
		orch:      orch,
		forms:     forms,
		formStore: formStore,
		quotes:    quotes,
		timers:    timers,
		svc:       NewService(memory, orch, forms, timers, nil, logger),
	}
}

// startAtVerification drives a workflow until forms and timers exist.
func (f *fixture) startAtVerification(t *testing.T) id.WorkflowID {
	t.Helper()
	ctx := context.Background()
	result, err := f.orch.StartWorkflow(ctx, orchestrator.StartInput{
		ApplicantID:    id.NewApplicantID(),
		IdempotencyKey: "start:" + id.NewEventID().String(),
		Actor:          id.PlatformActor("crm"),
	})
	require.NoError(t, err)
	workflowID := result.Workflow.ID

	current, err := f.orch.Get(ctx, workflowID)
	require.NoError(t, err)
	require.NotNil(t, current.Context.QuoteID, "expected a drafted quote")
	approved, err := f.quotes.Approve(ctx, *current.Context.QuoteID, quote.ApproveTerms{})
	require.NoError(t, err)
	_, err = f.orch.Apply(ctx, workflowID, models.IncomingEvent{
		IdempotencyKey: "release:" + workflowID.String(),
		Type:           models.EventQuoteApproved,
		Payload: models.QuoteApprovedPayload{
			QuoteID:     approved.ID,
			Amount:      approved.Amount,
			AdjustedFee: approved.AdjustedFee,
			ApprovedBy:  "ops",
		},
		Actor:     id.SystemActor(),
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)
	_, err = f.orch.Apply(ctx, workflowID, models.IncomingEvent{
		IdempotencyKey: "sign:" + workflowID.String(),
		Type:           models.EventQuoteSigned,
		Payload:        models.QuoteSignedPayload{QuoteID: *current.Context.QuoteID, SignedBy: "applicant"},
		Actor:          id.SystemActor(),
		Timestamp:      time.Now().UTC(),
	})
	require.NoError(t, err)
	return workflowID
}

func TestTerminate(t *testing.T) {
	ctx := context.Background()
	actor := id.Actor{Type: id.ActorUser, ID: "risk-1"}

	t.Run("terminates and unwinds obligations", func(t *testing.T) {
		f := newFixture(t)
		workflowID := f.startAtVerification(t)

		result, err := f.svc.Terminate(ctx, workflowID, "procurement denied", actor)
		require.NoError(t, err)
		assert.False(t, result.AlreadyTerminated)
		assert.False(t, result.Partial())
		assert.NotEmpty(t, result.InvalidatedForms)

		workflow, err := f.orch.Get(ctx, workflowID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusTerminated, workflow.Status)
		assert.Equal(t, "procurement denied", workflow.Context.TerminationReason)

		// Every open form is now revoked.
		for _, formID := range result.InvalidatedForms {
			instance, err := f.forms.Get(ctx, formID)
			require.NoError(t, err)
			assert.Equal(t, form.StatusRevoked, instance.Status)
		}

		// No timer may fire afterwards.
		due, err := f.timers.Due(ctx, time.Now().Add(48*time.Hour))
		require.NoError(t, err)
		assert.Empty(t, due)
	})

	t.Run("repeat termination is a no-op", func(t *testing.T) {
		f := newFixture(t)
		workflowID := f.startAtVerification(t)

		_, err := f.svc.Terminate(ctx, workflowID, "first", actor)
		require.NoError(t, err)
		again, err := f.svc.Terminate(ctx, workflowID, "second", actor)
		require.NoError(t, err)
		assert.True(t, again.AlreadyTerminated)

		workflow, err := f.orch.Get(ctx, workflowID)
		require.NoError(t, err)
		assert.Equal(t, "first", workflow.Context.TerminationReason)
	})

	t.Run("partial revocation is surfaced not swallowed", func(t *testing.T) {
		f := newFixture(t)
		workflowID := f.startAtVerification(t)

		instances, err := f.formStore.ListByWorkflow(ctx, workflowID)
		require.NoError(t, err)
		require.NotEmpty(t, instances)
		f.formStore.failUpdate[instances[0].ID] = true

		result, err := f.svc.Terminate(ctx, workflowID, "compliance order", actor)
		require.NoError(t, err)
		assert.True(t, result.Partial())
		assert.Contains(t, result.FailedForms, instances[0].ID)

		// The workflow is still terminated; the failure is reported, not
		// rolled back.
		workflow, err := f.orch.Get(ctx, workflowID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusTerminated, workflow.Status)
	})

	t.Run("completed workflow cannot be terminated", func(t *testing.T) {
		f := newFixture(t)
		workflowID := f.startAtVerification(t)
		workflow, err := f.orch.Get(ctx, workflowID)
		require.NoError(t, err)

		if workflow.Stage == models.StageVerification {
			_, err = f.orch.Apply(ctx, workflowID, models.IncomingEvent{
				IdempotencyKey: "risk:" + workflowID.String(),
				Type:           models.EventRiskDecision,
				Payload:        models.RiskDecisionPayload{Outcome: models.OutcomeApproved},
				Actor:          actor,
				Timestamp:      time.Now().UTC(),
			})
			require.NoError(t, err)
		}
		_, err = f.orch.Apply(ctx, workflowID, models.IncomingEvent{
			IdempotencyKey: "contract:" + workflowID.String(),
			Type:           models.EventContractSigned,
			Payload:        models.ContractSignedPayload{ContractRef: "c-1"},
			Actor:          actor,
			Timestamp:      time.Now().UTC(),
		})
		require.NoError(t, err)
		_, err = f.orch.Apply(ctx, workflowID, models.IncomingEvent{
			IdempotencyKey: "approve:" + workflowID.String(),
			Type:           models.EventFinalApproval,
			Payload:        models.FinalApprovalPayload{ContractSigned: true, ComplianceFormComplete: true},
			Actor:          actor,
			Timestamp:      time.Now().UTC(),
		})
		require.NoError(t, err)

		_, err = f.svc.Terminate(ctx, workflowID, "too late", actor)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("missing reason rejected", func(t *testing.T) {
		f := newFixture(t)
		workflowID := f.startAtVerification(t)
		_, err := f.svc.Terminate(ctx, workflowID, "", actor)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

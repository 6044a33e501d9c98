package orchestrator

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
	"onboarding-gateway/internal/quote"
	"onboarding-gateway/internal/timeout"
	"onboarding-gateway/internal/workflow/models"
	"onboarding-gateway/internal/workflow/store"
	id "onboarding-gateway/pkg/domain"
	dErrors "onboarding-gateway/pkg/domain-errors"
)

type scriptedCredit struct {
	score int
	err   error
}

func (s *scriptedCredit) Check(ctx context.Context, _ id.ApplicantID) (adapters.CreditResult, error) {
	if s.err != nil {
		return adapters.CreditResult{}, s.err
	}
	return adapters.CreditResult{Score: s.score, Source: "test-bureau"}, nil
}

type scriptedAnalyzer struct {
	assessment models.RiskAssessment
}

func (s *scriptedAnalyzer) Analyze(ctx context.Context, _ id.WorkflowID, _ id.ApplicantID) (models.RiskAssessment, error) {
	return s.assessment, nil
}

type scriptedScreener struct {
	listed bool
}

func (s *scriptedScreener) Screen(ctx context.Context, _ id.ApplicantID) (bool, error) {
	return s.listed, nil
}

type harness struct {
	store    *store.Memory
	orch     *Orchestrator
	forms    *form.Service
	quotes   *quote.Service
	timers   *timeout.MemoryStore
	notifier *notify.Memory
	credit   *scriptedCredit
	analyzer *scriptedAnalyzer
	screener *scriptedScreener
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.Default()
	memory := store.NewMemory()
	quotes := quote.NewService(quote.NewMemoryStore(), 50_000_000, logger)
	forms := form.NewService(form.NewMemoryStore(), form.NewMemoryRevocationList(), time.Hour, logger)
	timers := timeout.NewMemoryStore()
	notifier := notify.NewMemory()
	credit := &scriptedCredit{score: 680}
	analyzer := &scriptedAnalyzer{assessment: models.RiskAssessment{
		TrustScore:     85,
		Recommendation: models.RecommendAutoApprove,
	}}
	screener := &scriptedScreener{}

	orch := New(Deps{
		Workflows:   memory,
		Events:      memory,
		TxRunner:    memory,
		Quotes:      quotes,
		Forms:       forms,
		Timers:      timers,
		Credit:      credit,
		Evidence:    adapters.NewEvidenceGatherer(analyzer, screener, time.Second, nil),
		Provisioner: adapters.StubIntegrationProvisioner{},
		Notifier:    notifier,
		Metrics:     nil,
		Logger:      logger,
	}, Config{
		CreditScoreFloor:    520,
		TrustScoreThreshold: 70,
		SignatureWaitBound:  time.Hour,
		ComplianceWaitBound: time.Hour,
		ConflictRetries:     3,
	})
	return &harness{
		store: memory, orch: orch, forms: forms, quotes: quotes,
		timers: timers, notifier: notifier,
		credit: credit, analyzer: analyzer, screener: screener,
	}
}

func (h *harness) start(t *testing.T) *models.Workflow {
	t.Helper()
	result, err := h.orch.StartWorkflow(context.Background(), StartInput{
		ApplicantID:    id.NewApplicantID(),
		Channel:        "web",
		IdempotencyKey: "start:" + id.NewEventID().String(),
		Actor:          id.PlatformActor("crm"),
	})
	require.NoError(t, err)
	current, err := h.orch.Get(context.Background(), result.Workflow.ID)
	require.NoError(t, err)
	return current
}

func (h *harness) apply(t *testing.T, workflowID id.WorkflowID, payload models.Payload) *Result {
	t.Helper()
	result, err := h.orch.Apply(context.Background(), workflowID, models.IncomingEvent{
		IdempotencyKey: "test:" + id.NewEventID().String(),
		Type:           payload.EventType(),
		Payload:        payload,
		Actor:          id.SystemActor(),
		Timestamp:      time.Now().UTC(),
	})
	require.NoError(t, err)
	return result
}

func (h *harness) current(t *testing.T, workflowID id.WorkflowID) *models.Workflow {
	t.Helper()
	workflow, err := h.orch.Get(context.Background(), workflowID)
	require.NoError(t, err)
	return workflow
}

// approveQuote releases the drafted quote for signature, mirroring the
// internal-ops approval endpoint.
func (h *harness) approveQuote(t *testing.T, workflowID id.WorkflowID) {
	t.Helper()
	workflow := h.current(t, workflowID)
	require.NotNil(t, workflow.Context.QuoteID, "workflow has no quote to approve")
	approved, err := h.quotes.Approve(context.Background(), *workflow.Context.QuoteID, quote.ApproveTerms{})
	require.NoError(t, err)
	h.apply(t, workflowID, models.QuoteApprovedPayload{
		QuoteID:     approved.ID,
		Amount:      approved.Amount,
		AdjustedFee: approved.AdjustedFee,
		ApprovedBy:  "ops",
	})
}

// signQuote drives the workflow through approval and the quotation signature.
func (h *harness) signQuote(t *testing.T, workflowID id.WorkflowID) {
	t.Helper()
	workflow := h.current(t, workflowID)
	require.NotNil(t, workflow.Context.QuoteID, "workflow has no quote to sign")
	if !workflow.Context.QuoteApproved {
		h.approveQuote(t, workflowID)
	}
	h.apply(t, workflowID, models.QuoteSignedPayload{QuoteID: *workflow.Context.QuoteID, SignedBy: "applicant"})
}

func TestOrchestrator_HappyPath(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	workflow := h.start(t)
	// Credit cleared the floor, so the quote was drafted and the saga is
	// waiting for the internal approval.
	assert.Equal(t, models.StageQuotation, workflow.Stage)
	assert.Equal(t, models.StatusAwaitingHuman, workflow.Status)
	require.NotNil(t, workflow.Context.CreditScore)
	assert.Equal(t, 680, *workflow.Context.CreditScore)
	require.NotNil(t, workflow.Context.QuoteID)
	assert.False(t, workflow.Context.QuoteApproved)

	drafted, err := h.quotes.GetByWorkflow(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, quote.StatusPendingApproval, drafted.Status)

	h.approveQuote(t, workflow.ID)
	workflow = h.current(t, workflow.ID)
	assert.True(t, workflow.Context.QuoteApproved)

	h.signQuote(t, workflow.ID)
	// Evidence auto-approved, advancing straight to integration sign-off.
	workflow = h.current(t, workflow.ID)
	assert.Equal(t, models.StageIntegration, workflow.Stage)
	assert.Equal(t, models.StatusAwaitingHuman, workflow.Status)
	require.NotNil(t, workflow.Context.Assessment)
	assert.Equal(t, 85, workflow.Context.Assessment.TrustScore)

	// Compliance form comes back and the contract is signed.
	h.apply(t, workflow.ID, models.FormSubmittedPayload{
		FormInstanceID: id.NewFormInstanceID(),
		FormType:       string(form.TypeComplianceQuestionnaire),
		Version:        1,
	})
	h.apply(t, workflow.ID, models.ContractSignedPayload{ContractRef: "contract-1"})

	h.apply(t, workflow.ID, models.FinalApprovalPayload{ContractSigned: true, ComplianceFormComplete: true})
	workflow = h.current(t, workflow.ID)
	assert.Equal(t, models.StatusCompleted, workflow.Status)
	assert.Equal(t, models.StageIntegration, workflow.Stage)
	assert.NotEmpty(t, workflow.Context.IntegrationRef)

	// The drafted quote was finalized when the applicant signed.
	storedQuote, err := h.quotes.GetByWorkflow(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, quote.StatusApproved, storedQuote.Status)

	// Every commit was published.
	events, err := h.orch.History(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Len(t, h.notifier.Events(), len(events))
}

func TestOrchestrator_LowCreditAutoDeclines(t *testing.T) {
	h := newHarness(t)
	h.credit.score = 480

	workflow := h.start(t)
	assert.Equal(t, models.StatusFailed, workflow.Status)
	assert.Equal(t, models.StageCapture, workflow.Stage)
	assert.Nil(t, workflow.Context.QuoteID)
}

func TestOrchestrator_CreditAdapterFailureFailsStep(t *testing.T) {
	h := newHarness(t)
	h.credit.err = assert.AnError

	workflow := h.start(t)
	assert.Equal(t, models.StatusFailed, workflow.Status)

	events, err := h.orch.History(context.Background(), workflow.ID)
	require.NoError(t, err)
	var sawStepFailed bool
	for _, event := range events {
		if event.Type == models.EventStepFailed {
			sawStepFailed = true
		}
	}
	assert.True(t, sawStepFailed, "expected a step failure on the log")
}

func TestOrchestrator_Idempotency(t *testing.T) {
	h := newHarness(t)
	workflow := h.start(t)
	ctx := context.Background()

	require.NotNil(t, workflow.Context.QuoteID)
	h.approveQuote(t, workflow.ID)
	incoming := models.IncomingEvent{
		IdempotencyKey: "sign-once",
		Type:           models.EventQuoteSigned,
		Payload:        models.QuoteSignedPayload{QuoteID: *workflow.Context.QuoteID, SignedBy: "applicant"},
		Actor:          id.SystemActor(),
		Timestamp:      time.Now().UTC(),
	}
	first, err := h.orch.Apply(ctx, workflow.ID, incoming)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	before, err := h.orch.History(ctx, workflow.ID)
	require.NoError(t, err)

	second, err := h.orch.Apply(ctx, workflow.ID, incoming)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Event.ID, second.Event.ID)
	assert.Equal(t, first.Event.AppliedStatus, second.Event.AppliedStatus)

	after, err := h.orch.History(ctx, workflow.ID)
	require.NoError(t, err)
	// Replay appends nothing and dispatches nothing.
	assert.Len(t, after, len(before))
}

func TestOrchestrator_SanctionsHitEscalatesToHuman(t *testing.T) {
	h := newHarness(t)
	h.screener.listed = true

	workflow := h.start(t)
	h.signQuote(t, workflow.ID)

	workflow = h.current(t, workflow.ID)
	assert.Equal(t, models.StageVerification, workflow.Stage)
	assert.Equal(t, models.StatusAwaitingHuman, workflow.Status)
	require.NotNil(t, workflow.Context.SanctionsListed)
	assert.True(t, *workflow.Context.SanctionsListed)
}

func TestOrchestrator_RiskDecisions(t *testing.T) {
	setupAtVerification := func(t *testing.T) (*harness, id.WorkflowID) {
		h := newHarness(t)
		// Low trust forces a manual risk decision.
		h.analyzer.assessment = models.RiskAssessment{
			TrustScore:     40,
			Recommendation: models.RecommendManualReview,
		}
		workflow := h.start(t)
		h.signQuote(t, workflow.ID)
		current := h.current(t, workflow.ID)
		require.Equal(t, models.StageVerification, current.Stage)
		require.Equal(t, models.StatusAwaitingHuman, current.Status)
		return h, workflow.ID
	}

	t.Run("approval advances to integration", func(t *testing.T) {
		h, workflowID := setupAtVerification(t)
		h.apply(t, workflowID, models.RiskDecisionPayload{Outcome: models.OutcomeApproved})
		workflow := h.current(t, workflowID)
		assert.Equal(t, models.StageIntegration, workflow.Stage)
		assert.Equal(t, models.StatusAwaitingHuman, workflow.Status)
	})

	t.Run("rejection fails the workflow", func(t *testing.T) {
		h, workflowID := setupAtVerification(t)
		h.apply(t, workflowID, models.RiskDecisionPayload{Outcome: models.OutcomeRejected, Reason: "insufficient collateral"})
		workflow := h.current(t, workflowID)
		assert.Equal(t, models.StatusFailed, workflow.Status)
	})

	t.Run("more info reissues the compliance form", func(t *testing.T) {
		h, workflowID := setupAtVerification(t)
		h.apply(t, workflowID, models.FormSubmittedPayload{
			FormInstanceID: id.NewFormInstanceID(),
			FormType:       string(form.TypeComplianceQuestionnaire),
		})
		require.True(t, h.current(t, workflowID).Context.ComplianceFormComplete)

		h.apply(t, workflowID, models.RiskDecisionPayload{Outcome: models.OutcomeRequestMoreInfo})
		workflow := h.current(t, workflowID)
		assert.Equal(t, models.StatusAwaitingHuman, workflow.Status)
		assert.False(t, workflow.Context.ComplianceFormComplete)
	})

	t.Run("decision at the wrong stage conflicts", func(t *testing.T) {
		h := newHarness(t)
		workflow := h.start(t)
		_, err := h.orch.Apply(context.Background(), workflow.ID, models.IncomingEvent{
			IdempotencyKey: "early-decision",
			Type:           models.EventRiskDecision,
			Payload:        models.RiskDecisionPayload{Outcome: models.OutcomeApproved},
			Actor:          id.SystemActor(),
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func TestOrchestrator_FinalApprovalGates(t *testing.T) {
	h := newHarness(t)
	workflow := h.start(t)
	h.signQuote(t, workflow.ID)
	require.Equal(t, models.StageIntegration, h.current(t, workflow.ID).Stage)

	t.Run("unsigned contract refuses approval", func(t *testing.T) {
		_, err := h.orch.Apply(context.Background(), workflow.ID, models.IncomingEvent{
			IdempotencyKey: "premature-approval",
			Type:           models.EventFinalApproval,
			Payload:        models.FinalApprovalPayload{ContractSigned: false, ComplianceFormComplete: true},
			Actor:          id.SystemActor(),
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("approval completes once both gates hold", func(t *testing.T) {
		h.apply(t, workflow.ID, models.ContractSignedPayload{ContractRef: "contract-9"})
		h.apply(t, workflow.ID, models.FormSubmittedPayload{
			FormInstanceID: id.NewFormInstanceID(),
			FormType:       string(form.TypeComplianceQuestionnaire),
		})
		h.apply(t, workflow.ID, models.FinalApprovalPayload{})
		assert.Equal(t, models.StatusCompleted, h.current(t, workflow.ID).Status)
	})
}

func TestOrchestrator_TimeoutAndRecovery(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	workflow := h.start(t)
	require.Equal(t, models.StatusAwaitingHuman, workflow.Status)

	// No signature wait runs until the quote is released.
	due, err := h.timers.Due(ctx, time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	require.Empty(t, due, "no timer should run before the quote is approved")

	h.approveQuote(t, workflow.ID)
	due, err = h.timers.Due(ctx, time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1, "approval should schedule the signature timer")
	timer := due[0]

	require.NoError(t, h.orch.HandleTimeout(ctx, timer))
	current := h.current(t, workflow.ID)
	assert.Equal(t, models.StatusTimeout, current.Status)
	assert.Equal(t, models.StageQuotation, current.Stage)
	require.Len(t, h.notifier.Escalations(), 1)

	t.Run("late signature recovers the saga", func(t *testing.T) {
		h.signQuote(t, workflow.ID)
		recovered := h.current(t, workflow.ID)
		assert.NotEqual(t, models.StatusTimeout, recovered.Status)
		assert.Equal(t, models.StageIntegration, recovered.Stage)
	})
}

func TestOrchestrator_EscalationRetriesUntilPublished(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	workflow := h.start(t)
	h.approveQuote(t, workflow.ID)

	due, err := h.timers.Due(ctx, time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	timer := due[0]

	// A failed publish surfaces as an error so the manager redelivers the
	// timer; the timeout event itself is already on the log.
	h.notifier.FailEscalations(assert.AnError)
	require.Error(t, h.orch.HandleTimeout(ctx, timer))
	assert.Empty(t, h.notifier.Escalations())
	assert.Equal(t, models.StatusTimeout, h.current(t, workflow.ID).Status)

	before, err := h.orch.History(ctx, workflow.ID)
	require.NoError(t, err)

	// The redelivery replays the logged event and completes the publish.
	h.notifier.FailEscalations(nil)
	require.NoError(t, h.orch.HandleTimeout(ctx, timer))
	require.Len(t, h.notifier.Escalations(), 1)

	after, err := h.orch.History(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Len(t, after, len(before), "redelivery must not append a second timeout event")
}

func TestOrchestrator_SignatureRequiresReleasedQuote(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	workflow := h.start(t)
	require.NotNil(t, workflow.Context.QuoteID)

	_, err := h.orch.Apply(ctx, workflow.ID, models.IncomingEvent{
		IdempotencyKey: "sign-before-approval",
		Type:           models.EventQuoteSigned,
		Payload:        models.QuoteSignedPayload{QuoteID: *workflow.Context.QuoteID, SignedBy: "applicant"},
		Actor:          id.SystemActor(),
		Timestamp:      time.Now().UTC(),
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	// The refused signature changed nothing; approval then signing proceeds.
	current := h.current(t, workflow.ID)
	assert.Equal(t, models.StageQuotation, current.Stage)
	assert.Equal(t, models.StatusAwaitingHuman, current.Status)

	h.signQuote(t, workflow.ID)
	assert.Equal(t, models.StageIntegration, h.current(t, workflow.ID).Stage)
}

func TestOrchestrator_QuoteRejectionFailsWorkflow(t *testing.T) {
	h := newHarness(t)
	workflow := h.start(t)
	require.NotNil(t, workflow.Context.QuoteID)

	h.apply(t, workflow.ID, models.QuoteRejectedPayload{
		QuoteID:   *workflow.Context.QuoteID,
		Rationale: "pricing outside policy",
	})
	current := h.current(t, workflow.ID)
	assert.Equal(t, models.StatusFailed, current.Status)
	assert.Equal(t, models.StageQuotation, current.Stage)
}

func TestOrchestrator_TerminalWorkflowRecordsWithoutEffect(t *testing.T) {
	h := newHarness(t)
	h.credit.score = 400
	workflow := h.start(t)
	require.Equal(t, models.StatusFailed, workflow.Status)

	result := h.apply(t, workflow.ID, models.DocumentUploadedPayload{DocumentType: "id", DocumentRef: "doc-1"})
	assert.True(t, result.Ignored)
	assert.Equal(t, models.StatusFailed, result.Workflow.Status)
	assert.NotEmpty(t, result.Event.Note)
}

func TestOrchestrator_StartIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	in := StartInput{
		ApplicantID:    id.NewApplicantID(),
		IdempotencyKey: "start-once",
		Actor:          id.PlatformActor("crm"),
	}
	first, err := h.orch.StartWorkflow(ctx, in)
	require.NoError(t, err)
	second, err := h.orch.StartWorkflow(ctx, in)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Workflow.ID, second.Workflow.ID)
}

package orchestrator

import (
	"context"
	"time"

	"onboarding-gateway/internal/form"
	"onboarding-gateway/internal/quote"
	"onboarding-gateway/internal/timeout"
	"onboarding-gateway/internal/workflow/models"
	id "onboarding-gateway/pkg/domain"
)

// dispatch runs side effects strictly after their triggering transition has
// committed. Effects run at most once per committed event: a redelivered
// event is answered from the log and never reaches this point.
func (o *Orchestrator) dispatch(ctx context.Context, w *models.Workflow, trigger *models.WorkflowEvent, effects []effect) {
	for _, e := range effects {
		switch e.kind {
		case effectRunCreditCheck:
			o.runCreditCheck(ctx, w)
		case effectDraftQuote:
			o.draftQuote(ctx, w)
		case effectMarkQuoteSigned:
			o.markQuoteSigned(ctx, w)
		case effectScheduleSignatureTimer:
			o.scheduleTimer(ctx, w, timeout.WaitingSignature, o.cfg.SignatureWaitBound)
		case effectCancelSignatureTimer:
			o.cancelTimer(ctx, w, timeout.WaitingSignature)
		case effectIssueVerificationForms:
			o.issueForm(ctx, w, form.TypeComplianceQuestionnaire)
			o.issueForm(ctx, w, form.TypeMandate)
		case effectReissueComplianceForm:
			o.issueForm(ctx, w, form.TypeComplianceQuestionnaire)
		case effectScheduleComplianceTimer:
			o.scheduleTimer(ctx, w, timeout.WaitingCompliance, o.cfg.ComplianceWaitBound)
		case effectCancelComplianceTimer:
			o.cancelTimer(ctx, w, timeout.WaitingCompliance)
		case effectGatherEvidence:
			o.gatherEvidence(ctx, w, trigger)
		case effectProvision:
			o.provision(ctx, w, trigger)
		}
	}
}

// applyInternal proposes an orchestrator-emitted event through the same
// Apply path external events take, so internal facts get the identical
// idempotency, audit and replay treatment.
func (o *Orchestrator) applyInternal(ctx context.Context, workflowID id.WorkflowID, key string, payload models.Payload) {
	_, err := o.Apply(ctx, workflowID, models.IncomingEvent{
		IdempotencyKey: key,
		Type:           payload.EventType(),
		Payload:        payload,
		Actor:          id.SystemActor(),
		Timestamp:      time.Now().UTC(),
	})
	if err != nil {
		o.logger.ErrorContext(ctx, "failed to apply internal event",
			"workflow_id", workflowID, "event_type", payload.EventType(), "error", err)
	}
}

func (o *Orchestrator) runCreditCheck(ctx context.Context, w *models.Workflow) {
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.AdapterTimeout)
	defer cancel()
	started := time.Now()
	result, err := o.credit.Check(callCtx, w.ApplicantID)
	o.metrics.ObserveAdapterLatency("credit_check", time.Since(started).Seconds())
	if err != nil {
		o.logger.ErrorContext(ctx, "credit check failed",
			"workflow_id", w.ID, "applicant_id", w.ApplicantID, "error", err)
		o.applyInternal(ctx, w.ID, "credit-failed:"+w.ID.String(), models.StepFailedPayload{
			Step:   "credit_check",
			Reason: err.Error(),
		})
		return
	}
	o.applyInternal(ctx, w.ID, "credit:"+w.ID.String(), models.CreditCheckPayload{
		Score:  result.Score,
		Source: result.Source,
	})
}

// Pricing bands for the drafted quote. Terms are indicative; a human approves
// or edits them before anything is sent for signature.
const (
	quoteBaseAmount = id.Money(10_000_000) // facility principal in cents
	quoteBaseFeeBps = 200                  // base fee as bps of principal
)

func quoteAdjustmentBps(creditScore int) int64 {
	switch {
	case creditScore >= 700:
		return -50
	case creditScore >= 600:
		return 0
	default:
		return 150
	}
}

func (o *Orchestrator) draftQuote(ctx context.Context, w *models.Workflow) {
	score := 0
	if w.Context.CreditScore != nil {
		score = *w.Context.CreditScore
	}
	drafted, err := o.quotes.Draft(ctx, quote.DraftInput{
		WorkflowID:            w.ID,
		Amount:                quoteBaseAmount,
		BaseFee:               id.Money(int64(quoteBaseAmount) * quoteBaseFeeBps / 10_000),
		AdjustmentBasisPoints: quoteAdjustmentBps(score),
		Rationale:             "standard terms from credit band",
		GeneratedBy:           "pricing-engine",
	})
	if err == nil && drafted.Status == quote.StatusDraft {
		// The generated terms need no pre-review; hand them straight to the
		// approval queue.
		drafted, err = o.quotes.SubmitForApproval(ctx, drafted.ID)
	}
	if err != nil {
		o.logger.ErrorContext(ctx, "failed to draft quote", "workflow_id", w.ID, "error", err)
		o.applyInternal(ctx, w.ID, "quote-failed:"+w.ID.String(), models.StepFailedPayload{
			Step:   "quote_draft",
			Reason: err.Error(),
		})
		return
	}
	o.applyInternal(ctx, w.ID, "quote:"+w.ID.String(), models.QuoteGeneratedPayload{
		QuoteID:     drafted.ID,
		Amount:      drafted.Amount,
		BaseFee:     drafted.BaseFee,
		AdjustedFee: drafted.AdjustedFee,
		Overlimit:   drafted.Overlimit,
	})
}

func (o *Orchestrator) markQuoteSigned(ctx context.Context, w *models.Workflow) {
	if w.Context.QuoteID == nil {
		return
	}
	if _, err := o.quotes.MarkSigned(ctx, *w.Context.QuoteID); err != nil {
		o.logger.ErrorContext(ctx, "failed to finalize signed quote",
			"workflow_id", w.ID, "quote_id", *w.Context.QuoteID, "error", err)
	}
}

func (o *Orchestrator) scheduleTimer(ctx context.Context, w *models.Workflow, waiting timeout.Waiting, bound time.Duration) {
	now := time.Now().UTC()
	// Replace any previous bound for the same wait kind.
	if err := o.timers.Cancel(ctx, w.ID, waiting, now); err != nil {
		o.logger.ErrorContext(ctx, "failed to cancel previous timer",
			"workflow_id", w.ID, "waiting", waiting, "error", err)
	}
	timer := &timeout.Timer{
		ID:         id.NewTimerID(),
		WorkflowID: w.ID,
		Waiting:    waiting,
		FireAt:     now.Add(bound),
		CreatedAt:  now,
	}
	if err := o.timers.Schedule(ctx, timer); err != nil {
		o.logger.ErrorContext(ctx, "failed to schedule timer",
			"workflow_id", w.ID, "waiting", waiting, "error", err)
		return
	}
	o.logger.InfoContext(ctx, "wait bound scheduled",
		"workflow_id", w.ID, "waiting", waiting, "fire_at", timer.FireAt)
}

func (o *Orchestrator) cancelTimer(ctx context.Context, w *models.Workflow, waiting timeout.Waiting) {
	if err := o.timers.Cancel(ctx, w.ID, waiting, time.Now().UTC()); err != nil {
		o.logger.ErrorContext(ctx, "failed to cancel timer",
			"workflow_id", w.ID, "waiting", waiting, "error", err)
	}
}

func (o *Orchestrator) issueForm(ctx context.Context, w *models.Workflow, formType form.Type) {
	issued, err := o.forms.Issue(ctx, w.ID, formType)
	if err != nil {
		o.logger.ErrorContext(ctx, "failed to issue form",
			"workflow_id", w.ID, "form_type", formType, "error", err)
		return
	}
	// Delivery of the magic link is a messaging concern handled elsewhere;
	// only the instance id is logged, never the token.
	o.logger.InfoContext(ctx, "form issued for delivery",
		"workflow_id", w.ID, "form_type", formType, "form_instance_id", issued.Instance.ID)
}

// gatherEvidence fans out to the verification providers. A failed gather is
// logged and left for the next document upload to retrigger rather than
// failing the workflow.
func (o *Orchestrator) gatherEvidence(ctx context.Context, w *models.Workflow, trigger *models.WorkflowEvent) {
	evidence, err := o.evidence.Gather(ctx, w.ID, w.ApplicantID)
	if err != nil {
		o.logger.ErrorContext(ctx, "evidence gathering failed",
			"workflow_id", w.ID, "error", err)
		return
	}
	o.applyInternal(ctx, w.ID, "analysis:"+trigger.ID.String(), models.AnalysisCompletedPayload{
		Assessment:      evidence.Assessment,
		SanctionsListed: evidence.SanctionsListed,
	})
}

func (o *Orchestrator) provision(ctx context.Context, w *models.Workflow, trigger *models.WorkflowEvent) {
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.AdapterTimeout)
	defer cancel()
	started := time.Now()
	ref, err := o.provisioner.Provision(callCtx, w)
	o.metrics.ObserveAdapterLatency("integration_provision", time.Since(started).Seconds())
	if err != nil {
		o.logger.ErrorContext(ctx, "integration provisioning failed",
			"workflow_id", w.ID, "error", err)
		o.applyInternal(ctx, w.ID, "provision-failed:"+trigger.ID.String(), models.StepFailedPayload{
			Step:   "integration_provision",
			Reason: err.Error(),
		})
		return
	}
	o.applyInternal(ctx, w.ID, "provision:"+w.ID.String(), models.IntegrationProvisionedPayload{Ref: ref})
}

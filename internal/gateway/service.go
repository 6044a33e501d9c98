// Package gateway is the inbound boundary: it translates HTTP requests and
// platform callbacks into canonical events and routes them through the
// orchestrator. Senders must name the event they are reporting; the gateway
// never guesses an event from workflow state.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"

	"onboarding-gateway/internal/form"
	"onboarding-gateway/internal/killswitch"
	"onboarding-gateway/internal/orchestrator"
	"onboarding-gateway/internal/quote"
	"onboarding-gateway/internal/workflow/models"
	id "onboarding-gateway/pkg/domain"
	dErrors "onboarding-gateway/pkg/domain-errors"
	"onboarding-gateway/pkg/requestcontext"
)

// Service fronts the orchestrator for all inbound traffic.
type Service struct {
	orch   *orchestrator.Orchestrator
	kill   *killswitch.Service
	forms  *form.Service
	quotes *quote.Service
	logger *slog.Logger
}

func NewService(orch *orchestrator.Orchestrator, kill *killswitch.Service, forms *form.Service, quotes *quote.Service, logger *slog.Logger) *Service {
	return &Service{orch: orch, kill: kill, forms: forms, quotes: quotes, logger: logger}
}

// StartOnboarding creates a workflow for the applicant.
func (s *Service) StartOnboarding(ctx context.Context, applicantID id.ApplicantID, channel, idempotencyKey string) (*orchestrator.Result, error) {
	return s.orch.StartWorkflow(ctx, orchestrator.StartInput{
		ApplicantID:    applicantID,
		Channel:        channel,
		IdempotencyKey: orKey(idempotencyKey),
		Actor:          requestcontext.Actor(ctx),
		Timestamp:      requestcontext.Now(ctx).UTC(),
	})
}

// GetWorkflow returns the current snapshot.
func (s *Service) GetWorkflow(ctx context.Context, workflowID id.WorkflowID) (*models.Workflow, error) {
	return s.orch.Get(ctx, workflowID)
}

// GetHistory returns the workflow's event log in replay order.
func (s *Service) GetHistory(ctx context.Context, workflowID id.WorkflowID) ([]*models.WorkflowEvent, error) {
	return s.orch.History(ctx, workflowID)
}

// SubmitRiskDecision records a risk manager's verdict. Decisions against a
// finished workflow are refused outright rather than recorded as ignored.
func (s *Service) SubmitRiskDecision(ctx context.Context, workflowID id.WorkflowID, outcome models.DecisionOutcome, reason, idempotencyKey string) (*orchestrator.Result, error) {
	if err := s.requireOpen(ctx, workflowID); err != nil {
		return nil, err
	}
	return s.orch.Apply(ctx, workflowID, models.IncomingEvent{
		IdempotencyKey: orKey(idempotencyKey),
		Type:           models.EventRiskDecision,
		Payload:        models.RiskDecisionPayload{Outcome: outcome, Reason: reason},
		Actor:          requestcontext.Actor(ctx),
		Timestamp:      requestcontext.Now(ctx).UTC(),
	})
}

// SubmitProcurement records a vetting verdict. A denial pulls the kill
// switch: the decision is committed first, then the workflow is torn down.
func (s *Service) SubmitProcurement(ctx context.Context, workflowID id.WorkflowID, outcome models.DecisionOutcome, reason, idempotencyKey string) (*orchestrator.Result, *killswitch.TerminationResult, error) {
	if err := s.requireOpen(ctx, workflowID); err != nil {
		return nil, nil, err
	}
	result, err := s.orch.Apply(ctx, workflowID, models.IncomingEvent{
		IdempotencyKey: orKey(idempotencyKey),
		Type:           models.EventProcurementCompleted,
		Payload:        models.ProcurementPayload{Outcome: outcome, Reason: reason},
		Actor:          requestcontext.Actor(ctx),
		Timestamp:      requestcontext.Now(ctx).UTC(),
	})
	if err != nil {
		return nil, nil, err
	}
	if outcome != models.OutcomeDenied {
		return result, nil, nil
	}
	terminationReason := "procurement denied"
	if reason != "" {
		terminationReason += ": " + reason
	}
	termination, err := s.kill.Terminate(ctx, workflowID, terminationReason, requestcontext.Actor(ctx))
	if err != nil {
		return result, nil, err
	}
	return result, termination, nil
}

// SubmitFinalApproval records the account manager's sign-off.
func (s *Service) SubmitFinalApproval(ctx context.Context, workflowID id.WorkflowID, contractSigned, complianceComplete bool, idempotencyKey string) (*orchestrator.Result, error) {
	if err := s.requireOpen(ctx, workflowID); err != nil {
		return nil, err
	}
	return s.orch.Apply(ctx, workflowID, models.IncomingEvent{
		IdempotencyKey: orKey(idempotencyKey),
		Type:           models.EventFinalApproval,
		Payload: models.FinalApprovalPayload{
			ContractSigned:         contractSigned,
			ComplianceFormComplete: complianceComplete,
		},
		Actor:          requestcontext.Actor(ctx),
		Timestamp:      requestcontext.Now(ctx).UTC(),
	})
}

// RecordCallback accepts an explicitly named platform event. Internal
// orchestrator events are rejected at parse time.
func (s *Service) RecordCallback(ctx context.Context, workflowID id.WorkflowID, eventType string, data json.RawMessage, idempotencyKey string) (*orchestrator.Result, error) {
	parsed, err := models.ParseEventType(eventType)
	if err != nil {
		return nil, err
	}
	payload, err := models.DecodePayload(parsed, data)
	if err != nil {
		return nil, err
	}
	return s.orch.Apply(ctx, workflowID, models.IncomingEvent{
		IdempotencyKey: orKey(idempotencyKey),
		Type:           parsed,
		Payload:        payload,
		Actor:          requestcontext.Actor(ctx),
		Timestamp:      requestcontext.Now(ctx).UTC(),
	})
}

// Reconcile replays the workflow's event log and repairs a diverged
// snapshot.
func (s *Service) Reconcile(ctx context.Context, workflowID id.WorkflowID) (*models.Workflow, error) {
	return s.orch.Reconcile(ctx, workflowID)
}

// GetQuote returns the quote drafted for the workflow.
func (s *Service) GetQuote(ctx context.Context, workflowID id.WorkflowID) (*quote.Quote, error) {
	return s.quotes.GetByWorkflow(ctx, workflowID)
}

// ApproveQuote applies edited terms, releases the quote for signature, and
// records the release on the workflow's log so the orchestrator starts the
// signature wait. Approvals against finished workflows are refused before
// the quote is touched.
func (s *Service) ApproveQuote(ctx context.Context, quoteID id.QuoteID, terms quote.ApproveTerms) (*quote.Quote, error) {
	existing, err := s.quotes.Get(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOpen(ctx, existing.WorkflowID); err != nil {
		return nil, err
	}
	approved, err := s.quotes.Approve(ctx, quoteID, terms)
	if err != nil {
		return nil, err
	}
	_, err = s.orch.Apply(ctx, approved.WorkflowID, models.IncomingEvent{
		IdempotencyKey: "quote-approve:" + quoteID.String(),
		Type:           models.EventQuoteApproved,
		Payload: models.QuoteApprovedPayload{
			QuoteID:     approved.ID,
			Amount:      approved.Amount,
			AdjustedFee: approved.AdjustedFee,
			ApprovedBy:  requestcontext.Actor(ctx).ID,
		},
		Actor:     requestcontext.Actor(ctx),
		Timestamp: requestcontext.Now(ctx).UTC(),
	})
	if err != nil {
		// The quote is released; the workflow event will land via retry or
		// reconciliation rather than blocking the approval response.
		s.logger.ErrorContext(ctx, "quote approved but workflow event failed",
			"quote_id", quoteID, "workflow_id", approved.WorkflowID, "error", err)
	}
	return approved, nil
}

// RejectQuote finalizes the quote as rejected and fails the workflow.
func (s *Service) RejectQuote(ctx context.Context, quoteID id.QuoteID, rationale string) (*quote.Quote, error) {
	existing, err := s.quotes.Get(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOpen(ctx, existing.WorkflowID); err != nil {
		return nil, err
	}
	rejected, err := s.quotes.Reject(ctx, quoteID, rationale)
	if err != nil {
		return nil, err
	}
	_, err = s.orch.Apply(ctx, rejected.WorkflowID, models.IncomingEvent{
		IdempotencyKey: "quote-reject:" + quoteID.String(),
		Type:           models.EventQuoteRejected,
		Payload:        models.QuoteRejectedPayload{QuoteID: rejected.ID, Rationale: rationale},
		Actor:          requestcontext.Actor(ctx),
		Timestamp:      requestcontext.Now(ctx).UTC(),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "quote rejected but workflow event failed",
			"quote_id", quoteID, "workflow_id", rejected.WorkflowID, "error", err)
	}
	return rejected, nil
}

// Terminate pulls the kill switch directly.
func (s *Service) Terminate(ctx context.Context, workflowID id.WorkflowID, reason string) (*killswitch.TerminationResult, error) {
	return s.kill.Terminate(ctx, workflowID, reason, requestcontext.Actor(ctx))
}

// ViewForm validates a magic link and marks the instance viewed.
func (s *Service) ViewForm(ctx context.Context, instanceID id.FormInstanceID, token string) (*form.Instance, error) {
	return s.forms.MarkViewed(ctx, instanceID, token)
}

// SubmitForm accepts a magic-link submission and commits the matching
// form/submitted event to the owning workflow. The declared form type must
// match the instance; the form service rejects mismatches.
func (s *Service) SubmitForm(ctx context.Context, instanceID id.FormInstanceID, token string, formType form.Type, answers json.RawMessage) (*form.Submission, error) {
	submission, err := s.forms.Submit(ctx, instanceID, token, formType, answers)
	if err != nil {
		return nil, err
	}
	_, err = s.orch.Apply(ctx, submission.WorkflowID, models.IncomingEvent{
		IdempotencyKey: "form-submit:" + instanceID.String(),
		Type:           models.EventFormSubmitted,
		Payload: models.FormSubmittedPayload{
			FormInstanceID: submission.FormInstanceID,
			FormType:       string(submission.Type),
			Version:        submission.Version,
		},
		Actor:     requestcontext.Actor(ctx),
		Timestamp: requestcontext.Now(ctx).UTC(),
	})
	if err != nil {
		// The submission is stored; the workflow event will be retried by
		// redelivery or reconciliation. Surface the submission regardless.
		s.logger.ErrorContext(ctx, "form submission stored but workflow event failed",
			"form_instance_id", instanceID, "workflow_id", submission.WorkflowID, "error", err)
	}
	return submission, nil
}

// requireOpen refuses decisions against finished workflows.
func (s *Service) requireOpen(ctx context.Context, workflowID id.WorkflowID) error {
	workflow, err := s.orch.Get(ctx, workflowID)
	if err != nil {
		return err
	}
	if workflow.Status.IsTerminal() {
		return dErrors.Newf(dErrors.CodeConflict, "workflow is %s and accepts no further decisions", workflow.Status)
	}
	return nil
}

// orKey assigns a fresh idempotency key when the sender supplied none. Such
// requests cannot be deduplicated, so each delivery is treated as new.
func orKey(key string) string {
	if key != "" {
		return key
	}
	return "gw:" + id.NewEventID().String()
}

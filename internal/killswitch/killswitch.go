// Package killswitch terminates a workflow and unwinds its outstanding
// obligations: open form links are revoked, pending timers canceled, and the
// termination is committed to the event log as one summary event.
package killswitch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"onboarding-gateway/internal/form"
	"onboarding-gateway/internal/orchestrator"
	"onboarding-gateway/internal/platform/metrics"
	"onboarding-gateway/internal/timeout"
	"onboarding-gateway/internal/workflow/models"
	"onboarding-gateway/internal/workflow/store"
	id "onboarding-gateway/pkg/domain"
	dErrors "onboarding-gateway/pkg/domain-errors"
	"onboarding-gateway/pkg/platform/sentinel"
)

// Outcomes recorded on the kill switch metric.
const (
	OutcomeCompleted = "completed"
	OutcomePartial   = "partial"
	OutcomeNoop      = "noop"
)

// TerminationResult reports what the kill switch actually achieved. Failed
// revocations are surfaced, never swallowed: the caller must know which
// links may still be live.
type TerminationResult struct {
	WorkflowID        id.WorkflowID
	AlreadyTerminated bool
	InvalidatedForms  []id.FormInstanceID
	FailedForms       []id.FormInstanceID
}

// Partial reports whether some compensations did not land.
func (r TerminationResult) Partial() bool { return len(r.FailedForms) > 0 }

// Service is the kill switch.
type Service struct {
	workflows store.WorkflowStore
	orch      *orchestrator.Orchestrator
	forms     *form.Service
	timers    timeout.Store
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewService(workflows store.WorkflowStore, orch *orchestrator.Orchestrator, forms *form.Service, timers timeout.Store, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{workflows: workflows, orch: orch, forms: forms, timers: timers, metrics: m, logger: logger}
}

// Terminate runs the compensating transaction. It is idempotent: repeating
// it against a terminated workflow is a no-op answered from the event log.
// A completed workflow cannot be terminated.
func (s *Service) Terminate(ctx context.Context, workflowID id.WorkflowID, reason string, actor id.Actor) (*TerminationResult, error) {
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "termination reason is required")
	}
	workflow, err := s.workflows.FindByID(ctx, workflowID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "workflow not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load workflow")
	}
	if workflow.Status == models.StatusTerminated {
		s.metrics.RecordKillSwitch(OutcomeNoop)
		return &TerminationResult{WorkflowID: workflowID, AlreadyTerminated: true}, nil
	}
	if workflow.Status == models.StatusCompleted {
		return nil, dErrors.New(dErrors.CodeConflict, "completed workflows cannot be terminated")
	}

	// Compensations first, so the summary event can record exactly which
	// links were killed and which refused to die.
	revoked, failed, err := s.forms.RevokeAllForWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if err := s.timers.CancelAll(ctx, workflowID, time.Now().UTC()); err != nil {
		s.logger.ErrorContext(ctx, "failed to cancel timers during termination",
			"workflow_id", workflowID, "error", err)
	}

	applied, err := s.orch.Apply(ctx, workflowID, models.IncomingEvent{
		IdempotencyKey: "terminate:" + workflowID.String(),
		Type:           models.EventTerminated,
		Payload: models.TerminatedPayload{
			Reason:            reason,
			InvalidatedForms:  revoked,
			FailedInvalidated: failed,
		},
		Actor:     actor,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	result := &TerminationResult{
		WorkflowID:        workflowID,
		AlreadyTerminated: applied.Replayed,
		InvalidatedForms:  revoked,
		FailedForms:       failed,
	}
	outcome := OutcomeCompleted
	switch {
	case applied.Replayed:
		outcome = OutcomeNoop
	case result.Partial():
		outcome = OutcomePartial
	}
	s.metrics.RecordKillSwitch(outcome)
	s.logger.InfoContext(ctx, "workflow terminated",
		"workflow_id", workflowID, "reason", reason,
		"forms_invalidated", len(revoked), "forms_failed", len(failed), "outcome", outcome)
	return result, nil
}

package orchestrator

import (
	"context"

	"onboarding-gateway/internal/notify"
	"onboarding-gateway/internal/timeout"
	"onboarding-gateway/internal/workflow/models"
	id "onboarding-gateway/pkg/domain"
)

// HandleTimeout converts a fired wait bound into an explicit timeout event
// and raises the management escalation. The idempotency key is derived from
// the timer id, so a redelivered timer replays from the log instead of
// committing twice. The escalation publish participates in the error return:
// a failed publish keeps the timer live and the next sweep retries, so the
// alert is delivered at least once and the timer is marked fired only after
// it went out.
func (o *Orchestrator) HandleTimeout(ctx context.Context, timer *timeout.Timer) error {
	result, err := o.Apply(ctx, timer.WorkflowID, models.IncomingEvent{
		IdempotencyKey: "timer:" + timer.ID.String(),
		Type:           models.EventTimeoutExpired,
		Payload: models.TimeoutExpiredPayload{
			TimerID: timer.ID,
			Waiting: string(timer.Waiting),
		},
		Actor:     id.SystemActor(),
		Timestamp: timer.FireAt,
	})
	if err != nil {
		return err
	}
	if result.Ignored || result.Event.Ignored {
		o.logger.InfoContext(ctx, "timer fired against a workflow that already moved on",
			"workflow_id", timer.WorkflowID, "timer_id", timer.ID)
		return nil
	}

	escalation := notify.Escalation{
		WorkflowID:  result.Workflow.ID,
		ApplicantID: result.Workflow.ApplicantID,
		Stage:       result.Workflow.Stage.String(),
		Waiting:     string(timer.Waiting),
		TimerID:     timer.ID,
		FiredAt:     timer.FireAt,
	}
	if o.notifier != nil {
		if err := o.notifier.PublishEscalation(ctx, escalation); err != nil {
			o.logger.ErrorContext(ctx, "failed to publish escalation, timer will be redelivered",
				"workflow_id", timer.WorkflowID, "timer_id", timer.ID, "error", err)
			return err
		}
	}
	if o.metrics != nil {
		o.metrics.Escalations.Inc()
	}
	o.logger.WarnContext(ctx, "workflow escalated to management",
		"workflow_id", timer.WorkflowID, "stage", escalation.Stage, "waiting", escalation.Waiting)
	return nil
}

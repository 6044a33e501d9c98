// Package notify fans workflow facts out to interested systems. Delivery is
// best-effort and happens strictly after the owning transaction commits; a
// publish failure is logged, never rolled into the saga's own state.
package notify

import (
	"context"
	"time"

	"onboarding-gateway/internal/workflow/models"
	id "onboarding-gateway/pkg/domain"
)

// Escalation is the alert raised when a wait bound expires. Exactly one is
// produced per fired timer.
type Escalation struct {
	WorkflowID  id.WorkflowID  `json:"workflow_id"`
	ApplicantID id.ApplicantID `json:"applicant_id"`
	Stage       string         `json:"stage"`
	Waiting     string         `json:"waiting"`
	TimerID     id.TimerID     `json:"timer_id"`
	FiredAt     time.Time      `json:"fired_at"`
}

// Notifier publishes committed events and escalations.
type Notifier interface {
	PublishEvent(ctx context.Context, event *models.WorkflowEvent) error
	PublishEscalation(ctx context.Context, escalation Escalation) error
}

// Nop discards everything; used when no broker is configured.
type Nop struct{}

var _ Notifier = Nop{}

func (Nop) PublishEvent(context.Context, *models.WorkflowEvent) error { return nil }
func (Nop) PublishEscalation(context.Context, Escalation) error       { return nil }

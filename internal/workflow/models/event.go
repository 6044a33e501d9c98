package models

import (
	"time"

	id "onboarding-gateway/pkg/domain"
	dErrors "onboarding-gateway/pkg/domain-errors"
)

// EventType is the canonical namespace/action vocabulary. External senders
// must name the event explicitly; the gateway never infers it from workflow
// state.
type EventType string

const (
	EventLeadCreated          EventType = "onboarding/lead.created"
	EventCreditCheckCompleted EventType = "itc/check.completed"
	EventQuoteGenerated       EventType = "onboarding/quote-generated"
	EventQuoteSigned          EventType = "quote/signed"
	EventFormSubmitted        EventType = "form/submitted"
	EventDocumentUploaded     EventType = "document/uploaded"
	EventMandateSubmitted     EventType = "document/mandate.submitted"
	EventRiskDecision         EventType = "risk/decision.received"
	EventProcurementCompleted EventType = "risk/procurement.completed"
	EventFinalApproval        EventType = "onboarding/final-approval.received"
	EventContractSigned       EventType = "contract/signed"

	// Internal events emitted by the orchestrator itself.
	EventQuoteApproved          EventType = "quote/approved"
	EventQuoteRejected          EventType = "quote/rejected"
	EventAnalysisCompleted      EventType = "workflow/analysis.completed"
	EventStepFailed             EventType = "workflow/step.failed"
	EventTimeoutExpired         EventType = "workflow/timeout.expired"
	EventTerminated             EventType = "workflow/terminated"
	EventIntegrationProvisioned EventType = "integration/provisioned"
)

var validEventTypes = map[EventType]bool{
	EventLeadCreated:            true,
	EventCreditCheckCompleted:   true,
	EventQuoteGenerated:         true,
	EventQuoteSigned:            true,
	EventQuoteApproved:          true,
	EventQuoteRejected:          true,
	EventFormSubmitted:          true,
	EventDocumentUploaded:       true,
	EventMandateSubmitted:       true,
	EventRiskDecision:           true,
	EventProcurementCompleted:   true,
	EventFinalApproval:          true,
	EventContractSigned:         true,
	EventAnalysisCompleted:      true,
	EventStepFailed:             true,
	EventTimeoutExpired:         true,
	EventTerminated:             true,
	EventIntegrationProvisioned: true,
}

// IsValid checks if the event type belongs to the canonical vocabulary.
func (t EventType) IsValid() bool { return validEventTypes[t] }

// ParseEventType constructs an EventType from external input. Internal
// orchestrator events are rejected at the boundary; only the orchestrator
// may emit them.
func ParseEventType(s string) (EventType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "event type cannot be empty")
	}
	t := EventType(s)
	if !t.IsValid() || t.internalOnly() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown event type %q", s)
	}
	return t, nil
}

func (t EventType) internalOnly() bool {
	switch t {
	case EventQuoteApproved, EventQuoteRejected, EventAnalysisCompleted, EventStepFailed,
		EventTimeoutExpired, EventTerminated, EventIntegrationProvisioned:
		return true
	}
	return false
}

// IncomingEvent is a proposed event entering the orchestrator. Handlers and
// adapters only propose; the orchestrator accepts, rejects, or records it as
// ignored based on current state.
type IncomingEvent struct {
	// IdempotencyKey suppresses duplicate processing under at-least-once
	// delivery. When the sender supplies none, the gateway assigns one.
	IdempotencyKey string
	Type           EventType
	Payload        Payload
	Actor          id.Actor
	Timestamp      time.Time
}

// Validate rejects malformed proposals before they touch state.
func (e IncomingEvent) Validate() error {
	if e.IdempotencyKey == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "idempotency key is required")
	}
	if !e.Type.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid event type")
	}
	if e.Payload == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "event payload is required")
	}
	if e.Payload.EventType() != e.Type {
		return dErrors.New(dErrors.CodeInvalidInput, "payload does not match event type")
	}
	if !e.Actor.Type.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid actor type")
	}
	return nil
}

// WorkflowEvent is one committed, append-only event log row. It is the
// durability and audit backbone: the workflow snapshot must always be
// reconstructable by replaying these in (Timestamp, Seq) order.
type WorkflowEvent struct {
	ID             id.EventID
	WorkflowID     id.WorkflowID
	ApplicantID    id.ApplicantID
	Type           EventType
	Payload        Payload
	IdempotencyKey string
	Timestamp      time.Time
	// Seq is assigned by the store on append and breaks timestamp ties so
	// replay order is total.
	Seq   int64
	Actor id.Actor

	// Outcome recorded at commit time. A redelivered event is answered from
	// these fields without recomputing business logic.
	AppliedStatus Status
	AppliedStage  Stage
	// Ignored marks an event recorded for audit only. Replay skips its
	// payload so a rebuilt snapshot matches the live one.
	Ignored bool
	// Note carries informational detail, e.g. why an event produced no
	// state change.
	Note string
}

// Package domain holds shared identifier and value types. IDs are distinct
// uuid-backed types so the compiler rejects cross-entity mixups; construct
// them via the Parse* functions at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "onboarding-gateway/pkg/domain-errors"
)

// WorkflowID identifies an onboarding workflow.
type WorkflowID uuid.UUID

// ApplicantID identifies the applicant a workflow belongs to.
type ApplicantID uuid.UUID

// QuoteID identifies a fee quote.
type QuoteID uuid.UUID

// FormInstanceID identifies a magic-link form instance.
type FormInstanceID uuid.UUID

// EventID identifies a workflow event row; it doubles as the idempotency key
// when the sender does not supply one.
type EventID uuid.UUID

// TimerID identifies a scheduled bounded wait.
type TimerID uuid.UUID

func (id WorkflowID) String() string     { return uuid.UUID(id).String() }
func (id ApplicantID) String() string    { return uuid.UUID(id).String() }
func (id QuoteID) String() string        { return uuid.UUID(id).String() }
func (id FormInstanceID) String() string { return uuid.UUID(id).String() }
func (id EventID) String() string        { return uuid.UUID(id).String() }
func (id TimerID) String() string        { return uuid.UUID(id).String() }

func (id WorkflowID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ApplicantID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id QuoteID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id FormInstanceID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id TimerID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }

// NewWorkflowID returns a fresh random workflow ID.
func NewWorkflowID() WorkflowID { return WorkflowID(uuid.New()) }

// NewApplicantID returns a fresh random applicant ID.
func NewApplicantID() ApplicantID { return ApplicantID(uuid.New()) }

// NewQuoteID returns a fresh random quote ID.
func NewQuoteID() QuoteID { return QuoteID(uuid.New()) }

// NewFormInstanceID returns a fresh random form instance ID.
func NewFormInstanceID() FormInstanceID { return FormInstanceID(uuid.New()) }

// NewEventID returns a fresh random event ID.
func NewEventID() EventID { return EventID(uuid.New()) }

// NewTimerID returns a fresh random timer ID.
func NewTimerID() TimerID { return TimerID(uuid.New()) }

// parseUUID enforces the shared invariant: IDs must be valid, non-empty,
// non-nil UUIDs.
func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be empty", kind)
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid %s", kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be nil", kind)
	}
	return parsed, nil
}

// ParseWorkflowID constructs a WorkflowID from external input.
func ParseWorkflowID(s string) (WorkflowID, error) {
	parsed, err := parseUUID(s, "workflow id")
	return WorkflowID(parsed), err
}

// ParseApplicantID constructs an ApplicantID from external input.
func ParseApplicantID(s string) (ApplicantID, error) {
	parsed, err := parseUUID(s, "applicant id")
	return ApplicantID(parsed), err
}

// ParseQuoteID constructs a QuoteID from external input.
func ParseQuoteID(s string) (QuoteID, error) {
	parsed, err := parseUUID(s, "quote id")
	return QuoteID(parsed), err
}

// ParseFormInstanceID constructs a FormInstanceID from external input.
func ParseFormInstanceID(s string) (FormInstanceID, error) {
	parsed, err := parseUUID(s, "form instance id")
	return FormInstanceID(parsed), err
}

// ParseEventID constructs an EventID from external input.
func ParseEventID(s string) (EventID, error) {
	parsed, err := parseUUID(s, "event id")
	return EventID(parsed), err
}

// ParseTimerID constructs a TimerID from external input.
func ParseTimerID(s string) (TimerID, error) {
	parsed, err := parseUUID(s, "timer id")
	return TimerID(parsed), err
}

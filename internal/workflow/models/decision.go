package models

import dErrors "onboarding-gateway/pkg/domain-errors"

// DecisionOutcome is the closed union of human decision outcomes. Handlers
// parse with the endpoint-specific constructors so each endpoint only
// accepts its own subset; the orchestrator switches exhaustively.
type DecisionOutcome string

const (
	OutcomeApproved        DecisionOutcome = "APPROVED"
	OutcomeRejected        DecisionOutcome = "REJECTED"
	OutcomeRequestMoreInfo DecisionOutcome = "REQUEST_MORE_INFO"
	OutcomeCleared         DecisionOutcome = "CLEARED"
	OutcomeDenied          DecisionOutcome = "DENIED"
)

// ParseRiskOutcome accepts the risk decision subset.
func ParseRiskOutcome(s string) (DecisionOutcome, error) {
	switch DecisionOutcome(s) {
	case OutcomeApproved, OutcomeRejected, OutcomeRequestMoreInfo:
		return DecisionOutcome(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid risk outcome %q", s)
}

// ParseProcurementOutcome accepts the procurement decision subset.
func ParseProcurementOutcome(s string) (DecisionOutcome, error) {
	switch DecisionOutcome(s) {
	case OutcomeCleared, OutcomeDenied:
		return DecisionOutcome(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid procurement outcome %q", s)
}

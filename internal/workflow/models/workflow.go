package models

import (
	"time"

	id "onboarding-gateway/pkg/domain"
	dErrors "onboarding-gateway/pkg/domain-errors"
)

// Stage is the ordinal onboarding stage. Stages advance monotonically; a
// stage may be re-entered after a recoverable failure but never regresses.
type Stage int

const (
	StageCapture Stage = iota + 1
	StageQuotation
	StageVerification
	StageIntegration
)

func (s Stage) String() string {
	switch s {
	case StageCapture:
		return "capture"
	case StageQuotation:
		return "quotation"
	case StageVerification:
		return "verification"
	case StageIntegration:
		return "integration"
	default:
		return "unknown"
	}
}

// IsValid checks the stage is within the 1-4 ordinal range.
func (s Stage) IsValid() bool { return s >= StageCapture && s <= StageIntegration }

// Status is the workflow lifecycle status.
type Status string

const (
	StatusPending       Status = "pending"
	StatusInProgress    Status = "in_progress"
	StatusAwaitingHuman Status = "awaiting_human"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
	StatusTimeout       Status = "timeout"
	StatusTerminated    Status = "terminated"
)

var validStatuses = map[Status]bool{
	StatusPending:       true,
	StatusInProgress:    true,
	StatusAwaitingHuman: true,
	StatusCompleted:     true,
	StatusFailed:        true,
	StatusTimeout:       true,
	StatusTerminated:    true,
}

// IsValid checks if the status is one of the supported enum values.
func (s Status) IsValid() bool { return validStatuses[s] }

// IsTerminal reports whether no further mutation is permitted. `timeout` is
// deliberately not terminal: a manual decision can still resume the saga.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusTerminated
}

// ParseStatus constructs a Status from external input.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid workflow status")
	}
	return status, nil
}

// Severity grades a risk flag.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// RiskFlag is a categorical finding from document analysis.
type RiskFlag struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
}

// Recommendation is the analysis verdict the orchestrator consumes to decide
// auto-approval vs. human escalation. The orchestrator never mutates it.
type Recommendation string

const (
	RecommendAutoApprove  Recommendation = "auto_approve"
	RecommendManualReview Recommendation = "manual_review"
	RecommendDecline      Recommendation = "decline"
)

// RiskAssessment is the normalized document-analysis result attached to a
// workflow's context.
type RiskAssessment struct {
	TrustScore     int            `json:"trust_score"`
	Flags          []RiskFlag     `json:"flags,omitempty"`
	Recommendation Recommendation `json:"recommendation"`
}

// Context carries typed intermediate results between stages. Fields are
// pointers where absence is meaningful.
type Context struct {
	CreditScore            *int            `json:"credit_score,omitempty"`
	CreditSource           string          `json:"credit_source,omitempty"`
	QuoteID                *id.QuoteID     `json:"quote_id,omitempty"`
	QuoteOverlimit         bool            `json:"quote_overlimit,omitempty"`
	QuoteApproved          bool            `json:"quote_approved,omitempty"`
	Assessment             *RiskAssessment `json:"assessment,omitempty"`
	SanctionsListed        *bool           `json:"sanctions_listed,omitempty"`
	ContractSigned         bool            `json:"contract_signed,omitempty"`
	ComplianceFormComplete bool            `json:"compliance_form_complete,omitempty"`
	IntegrationRef         string          `json:"integration_ref,omitempty"`
	TerminationReason      string          `json:"termination_reason,omitempty"`
}

// Workflow is the current snapshot for one applicant's onboarding saga.
// Version backs the optimistic concurrency check; the snapshot must always
// be reconstructable by replaying the event log.
type Workflow struct {
	ID          id.WorkflowID
	ApplicantID id.ApplicantID
	Stage       Stage
	Status      Status
	StartedAt   time.Time
	UpdatedAt   time.Time
	Context     Context
	Version     int64
}

// NewWorkflow creates a stage-1 pending workflow for an applicant.
func NewWorkflow(applicantID id.ApplicantID, now time.Time) *Workflow {
	return &Workflow{
		ID:          id.NewWorkflowID(),
		ApplicantID: applicantID,
		Stage:       StageCapture,
		Status:      StatusPending,
		StartedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
}

// Clone returns a deep copy so stores can hand out snapshots without
// aliasing the caller's mutations.
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}
	cp := *w
	if w.Context.CreditScore != nil {
		v := *w.Context.CreditScore
		cp.Context.CreditScore = &v
	}
	if w.Context.QuoteID != nil {
		v := *w.Context.QuoteID
		cp.Context.QuoteID = &v
	}
	if w.Context.SanctionsListed != nil {
		v := *w.Context.SanctionsListed
		cp.Context.SanctionsListed = &v
	}
	if w.Context.Assessment != nil {
		a := *w.Context.Assessment
		a.Flags = append([]RiskFlag(nil), w.Context.Assessment.Flags...)
		cp.Context.Assessment = &a
	}
	return &cp
}

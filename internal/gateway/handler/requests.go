package handler

import (
	"encoding/json"
	"strings"

	"onboarding-gateway/internal/form"
	"onboarding-gateway/internal/workflow/models"
	id "onboarding-gateway/pkg/domain"
	dErrors "onboarding-gateway/pkg/domain-errors"
)

// StartWorkflowRequest is the body for POST /onboarding/workflows.
type StartWorkflowRequest struct {
	ApplicantID string `json:"applicant_id"`
	Channel     string `json:"channel"`

	parsedApplicantID id.ApplicantID
}

func (r *StartWorkflowRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	applicantID, err := id.ParseApplicantID(strings.TrimSpace(r.ApplicantID))
	if err != nil {
		return err
	}
	r.parsedApplicantID = applicantID
	r.Channel = strings.TrimSpace(r.Channel)
	return nil
}

// ParsedApplicantID returns the validated applicant ID.
func (r *StartWorkflowRequest) ParsedApplicantID() id.ApplicantID { return r.parsedApplicantID }

// RiskDecisionRequest is the body for the risk decision endpoint.
type RiskDecisionRequest struct {
	Outcome string `json:"outcome"`
	Reason  string `json:"reason"`

	parsedOutcome models.DecisionOutcome
}

func (r *RiskDecisionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	outcome, err := models.ParseRiskOutcome(strings.TrimSpace(r.Outcome))
	if err != nil {
		return err
	}
	r.parsedOutcome = outcome
	r.Reason = strings.TrimSpace(r.Reason)
	return nil
}

// ParsedOutcome returns the validated decision outcome.
func (r *RiskDecisionRequest) ParsedOutcome() models.DecisionOutcome { return r.parsedOutcome }

// ProcurementRequest is the body for the procurement decision endpoint.
type ProcurementRequest struct {
	Outcome string `json:"outcome"`
	Reason  string `json:"reason"`

	parsedOutcome models.DecisionOutcome
}

func (r *ProcurementRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	outcome, err := models.ParseProcurementOutcome(strings.TrimSpace(r.Outcome))
	if err != nil {
		return err
	}
	r.parsedOutcome = outcome
	r.Reason = strings.TrimSpace(r.Reason)
	return nil
}

// ParsedOutcome returns the validated procurement outcome.
func (r *ProcurementRequest) ParsedOutcome() models.DecisionOutcome { return r.parsedOutcome }

// FinalApprovalRequest is the body for the final approval endpoint. The
// orchestrator cross-checks the attested gates against its own context.
type FinalApprovalRequest struct {
	ContractSigned         bool `json:"contract_signed"`
	ComplianceFormComplete bool `json:"compliance_form_complete"`
}

// CallbackRequest is the body for the explicit-event callback endpoint. The
// sender names the event; payload shape is validated against the named type.
type CallbackRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (r *CallbackRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Type = strings.TrimSpace(r.Type)
	if r.Type == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "type is required")
	}
	return nil
}

// TerminateRequest is the body for the kill switch endpoint.
type TerminateRequest struct {
	Reason string `json:"reason"`
}

func (r *TerminateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "reason is required")
	}
	return nil
}

// ApproveQuoteRequest carries optional term edits applied at approval time.
type ApproveQuoteRequest struct {
	Amount      *int64  `json:"amount,omitempty"`
	AdjustedFee *int64  `json:"adjusted_fee,omitempty"`
	Rationale   *string `json:"rationale,omitempty"`
}

func (r *ApproveQuoteRequest) Validate() error {
	if r.Amount != nil && *r.Amount <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "amount must be positive")
	}
	if r.AdjustedFee != nil && *r.AdjustedFee < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "adjusted_fee cannot be negative")
	}
	return nil
}

// RejectQuoteRequest is the body for quote rejection.
type RejectQuoteRequest struct {
	Rationale string `json:"rationale"`
}

func (r *RejectQuoteRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Rationale = strings.TrimSpace(r.Rationale)
	if r.Rationale == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "rationale is required")
	}
	return nil
}

// SubmitFormRequest is the body for a magic-link form submission. The sender
// declares which form it is answering; the form service checks the claim
// against the issued instance.
type SubmitFormRequest struct {
	Token    string          `json:"token"`
	FormType string          `json:"form_type"`
	Answers  json.RawMessage `json:"answers"`

	parsedType form.Type
}

func (r *SubmitFormRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Token == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "token is required")
	}
	formType, ok := form.ParseType(strings.TrimSpace(r.FormType))
	if !ok {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown form type")
	}
	r.parsedType = formType
	if len(r.Answers) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "answers are required")
	}
	return nil
}

// ParsedType returns the validated form type.
func (r *SubmitFormRequest) ParsedType() form.Type { return r.parsedType }

package models

import (
	"encoding/json"
	"fmt"

	id "onboarding-gateway/pkg/domain"
	dErrors "onboarding-gateway/pkg/domain-errors"
)

// PayloadSchemaVersion is stamped into every persisted envelope so shape
// drift between producer and consumer is detectable instead of silent.
const PayloadSchemaVersion = 1

// Payload is the closed union of event payloads. Each event type has exactly
// one payload shape, decoded at the boundary.
type Payload interface {
	EventType() EventType
}

// LeadCreatedPayload starts a workflow.
type LeadCreatedPayload struct {
	ApplicantID id.ApplicantID `json:"applicant_id"`
	Channel     string         `json:"channel,omitempty"`
}

// CreditCheckPayload is the normalized credit bureau result.
type CreditCheckPayload struct {
	Score  int    `json:"score"`
	Source string `json:"source"`
}

// QuoteGeneratedPayload records a drafted fee quote.
type QuoteGeneratedPayload struct {
	QuoteID     id.QuoteID `json:"quote_id"`
	Amount      id.Money   `json:"amount"`
	BaseFee     id.Money   `json:"base_fee"`
	AdjustedFee id.Money   `json:"adjusted_fee"`
	Overlimit   bool       `json:"overlimit"`
}

// QuoteApprovedPayload records a staff member releasing the quote for
// signature (internal; the gateway emits it after the quote service commits
// the approval).
type QuoteApprovedPayload struct {
	QuoteID     id.QuoteID `json:"quote_id"`
	Amount      id.Money   `json:"amount"`
	AdjustedFee id.Money   `json:"adjusted_fee"`
	ApprovedBy  string     `json:"approved_by,omitempty"`
}

// QuoteRejectedPayload records a staff rejection of the quote (internal).
type QuoteRejectedPayload struct {
	QuoteID   id.QuoteID `json:"quote_id"`
	Rationale string     `json:"rationale,omitempty"`
}

// QuoteSignedPayload records the signed-quotation submission.
type QuoteSignedPayload struct {
	QuoteID  id.QuoteID `json:"quote_id"`
	SignedBy string     `json:"signed_by"`
}

// FormSubmittedPayload records an accepted magic-link form submission.
type FormSubmittedPayload struct {
	FormInstanceID id.FormInstanceID `json:"form_instance_id"`
	FormType       string            `json:"form_type"`
	Version        int               `json:"version"`
}

// DocumentUploadedPayload records a compliance document upload.
type DocumentUploadedPayload struct {
	DocumentType string `json:"document_type"`
	DocumentRef  string `json:"document_ref"`
}

// MandateSubmittedPayload records a debit-order mandate submission.
type MandateSubmittedPayload struct {
	MandateRef string `json:"mandate_ref"`
}

// RiskDecisionPayload is a risk manager's decision.
type RiskDecisionPayload struct {
	Outcome DecisionOutcome `json:"outcome"`
	Reason  string          `json:"reason,omitempty"`
}

// ProcurementPayload is a procurement/vetting decision.
type ProcurementPayload struct {
	Outcome DecisionOutcome `json:"outcome"`
	Reason  string          `json:"reason,omitempty"`
}

// FinalApprovalPayload is the account manager's final sign-off.
type FinalApprovalPayload struct {
	ContractSigned         bool `json:"contract_signed"`
	ComplianceFormComplete bool `json:"compliance_form_complete"`
}

// ContractSignedPayload records contract execution.
type ContractSignedPayload struct {
	ContractRef string `json:"contract_ref"`
}

// AnalysisCompletedPayload is the document-analysis result (internal).
type AnalysisCompletedPayload struct {
	Assessment      RiskAssessment `json:"assessment"`
	SanctionsListed bool           `json:"sanctions_listed"`
}

// StepFailedPayload records a failed adapter step (internal). The step is
// retried or escalated, never silently ignored.
type StepFailedPayload struct {
	Step   string `json:"step"`
	Reason string `json:"reason"`
}

// TimeoutExpiredPayload records a bounded wait converted into an explicit
// timeout (internal).
type TimeoutExpiredPayload struct {
	TimerID id.TimerID `json:"timer_id"`
	Waiting string     `json:"waiting"`
}

// IntegrationProvisionedPayload records successful downstream account
// provisioning (internal).
type IntegrationProvisionedPayload struct {
	Ref string `json:"ref"`
}

// TerminatedPayload is the kill switch summary event (internal).
type TerminatedPayload struct {
	Reason            string              `json:"reason"`
	InvalidatedForms  []id.FormInstanceID `json:"invalidated_forms"`
	FailedInvalidated []id.FormInstanceID `json:"failed_invalidations,omitempty"`
}

func (LeadCreatedPayload) EventType() EventType       { return EventLeadCreated }
func (CreditCheckPayload) EventType() EventType       { return EventCreditCheckCompleted }
func (QuoteGeneratedPayload) EventType() EventType    { return EventQuoteGenerated }
func (QuoteApprovedPayload) EventType() EventType     { return EventQuoteApproved }
func (QuoteRejectedPayload) EventType() EventType     { return EventQuoteRejected }
func (QuoteSignedPayload) EventType() EventType       { return EventQuoteSigned }
func (FormSubmittedPayload) EventType() EventType     { return EventFormSubmitted }
func (DocumentUploadedPayload) EventType() EventType  { return EventDocumentUploaded }
func (MandateSubmittedPayload) EventType() EventType  { return EventMandateSubmitted }
func (RiskDecisionPayload) EventType() EventType      { return EventRiskDecision }
func (ProcurementPayload) EventType() EventType       { return EventProcurementCompleted }
func (FinalApprovalPayload) EventType() EventType     { return EventFinalApproval }
func (ContractSignedPayload) EventType() EventType    { return EventContractSigned }
func (AnalysisCompletedPayload) EventType() EventType { return EventAnalysisCompleted }
func (StepFailedPayload) EventType() EventType        { return EventStepFailed }
func (TimeoutExpiredPayload) EventType() EventType    { return EventTimeoutExpired }
func (TerminatedPayload) EventType() EventType        { return EventTerminated }

func (IntegrationProvisionedPayload) EventType() EventType { return EventIntegrationProvisioned }

// envelope is the persisted wire form: a schema-versioned, kind-tagged JSON
// wrapper so payloads never round-trip as opaque blobs.
type envelope struct {
	SchemaVersion int             `json:"schema_version"`
	Kind          EventType       `json:"kind"`
	Data          json.RawMessage `json:"data"`
}

// MarshalPayload encodes a payload into its versioned envelope.
func MarshalPayload(p Payload) ([]byte, error) {
	if p == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "payload is required")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return json.Marshal(envelope{
		SchemaVersion: PayloadSchemaVersion,
		Kind:          p.EventType(),
		Data:          data,
	})
}

// UnmarshalPayload decodes a versioned envelope back into its typed payload.
func UnmarshalPayload(raw []byte) (Payload, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.SchemaVersion != PayloadSchemaVersion {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unsupported payload schema version %d", env.SchemaVersion)
	}
	payload, err := emptyPayload(env.Kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(env.Data, payload); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", env.Kind, err)
	}
	return deref(payload), nil
}

// DecodePayload decodes raw payload data for an already-known event type.
// Used at the gateway boundary where the sender names the event.
func DecodePayload(kind EventType, data json.RawMessage) (Payload, error) {
	payload, err := emptyPayload(kind)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, payload); err != nil {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "malformed %s payload", kind)
	}
	return deref(payload), nil
}

func emptyPayload(kind EventType) (any, error) {
	switch kind {
	case EventLeadCreated:
		return &LeadCreatedPayload{}, nil
	case EventCreditCheckCompleted:
		return &CreditCheckPayload{}, nil
	case EventQuoteGenerated:
		return &QuoteGeneratedPayload{}, nil
	case EventQuoteApproved:
		return &QuoteApprovedPayload{}, nil
	case EventQuoteRejected:
		return &QuoteRejectedPayload{}, nil
	case EventQuoteSigned:
		return &QuoteSignedPayload{}, nil
	case EventFormSubmitted:
		return &FormSubmittedPayload{}, nil
	case EventDocumentUploaded:
		return &DocumentUploadedPayload{}, nil
	case EventMandateSubmitted:
		return &MandateSubmittedPayload{}, nil
	case EventRiskDecision:
		return &RiskDecisionPayload{}, nil
	case EventProcurementCompleted:
		return &ProcurementPayload{}, nil
	case EventFinalApproval:
		return &FinalApprovalPayload{}, nil
	case EventContractSigned:
		return &ContractSignedPayload{}, nil
	case EventAnalysisCompleted:
		return &AnalysisCompletedPayload{}, nil
	case EventStepFailed:
		return &StepFailedPayload{}, nil
	case EventTimeoutExpired:
		return &TimeoutExpiredPayload{}, nil
	case EventTerminated:
		return &TerminatedPayload{}, nil
	case EventIntegrationProvisioned:
		return &IntegrationProvisionedPayload{}, nil
	default:
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown event kind %q", kind)
	}
}

func deref(p any) Payload {
	switch v := p.(type) {
	case *LeadCreatedPayload:
		return *v
	case *CreditCheckPayload:
		return *v
	case *QuoteGeneratedPayload:
		return *v
	case *QuoteApprovedPayload:
		return *v
	case *QuoteRejectedPayload:
		return *v
	case *QuoteSignedPayload:
		return *v
	case *FormSubmittedPayload:
		return *v
	case *DocumentUploadedPayload:
		return *v
	case *MandateSubmittedPayload:
		return *v
	case *RiskDecisionPayload:
		return *v
	case *ProcurementPayload:
		return *v
	case *FinalApprovalPayload:
		return *v
	case *ContractSignedPayload:
		return *v
	case *AnalysisCompletedPayload:
		return *v
	case *StepFailedPayload:
		return *v
	case *TimeoutExpiredPayload:
		return *v
	case *TerminatedPayload:
		return *v
	case *IntegrationProvisionedPayload:
		return *v
	}
	return nil
}

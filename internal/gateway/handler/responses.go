package handler

import (
	"time"

	"onboarding-gateway/internal/form"
	"onboarding-gateway/internal/killswitch"
	"onboarding-gateway/internal/orchestrator"
	"onboarding-gateway/internal/quote"
	"onboarding-gateway/internal/workflow/models"
)

// WorkflowResponse is the snapshot representation returned to callers.
type WorkflowResponse struct {
	ID          string         `json:"id"`
	ApplicantID string         `json:"applicant_id"`
	Stage       string         `json:"stage"`
	Status      string         `json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Context     models.Context `json:"context"`
}

// FromWorkflow converts a workflow snapshot to its HTTP representation.
func FromWorkflow(w *models.Workflow) *WorkflowResponse {
	return &WorkflowResponse{
		ID:          w.ID.String(),
		ApplicantID: w.ApplicantID.String(),
		Stage:       w.Stage.String(),
		Status:      string(w.Status),
		StartedAt:   w.StartedAt,
		UpdatedAt:   w.UpdatedAt,
		Context:     w.Context,
	}
}

// EventResponse is one event log row.
type EventResponse struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	Payload       models.Payload `json:"payload"`
	Timestamp     time.Time      `json:"timestamp"`
	Seq           int64          `json:"seq"`
	ActorType     string         `json:"actor_type"`
	ActorID       string         `json:"actor_id,omitempty"`
	AppliedStatus string         `json:"applied_status"`
	AppliedStage  string         `json:"applied_stage"`
	Ignored       bool           `json:"ignored,omitempty"`
	Note          string         `json:"note,omitempty"`
}

// FromEvent converts an event log row to its HTTP representation.
func FromEvent(e *models.WorkflowEvent) *EventResponse {
	return &EventResponse{
		ID:            e.ID.String(),
		Type:          string(e.Type),
		Payload:       e.Payload,
		Timestamp:     e.Timestamp,
		Seq:           e.Seq,
		ActorType:     string(e.Actor.Type),
		ActorID:       e.Actor.ID,
		AppliedStatus: string(e.AppliedStatus),
		AppliedStage:  e.AppliedStage.String(),
		Ignored:       e.Ignored,
		Note:          e.Note,
	}
}

// FromHistory converts an event log to its HTTP representation.
func FromHistory(events []*models.WorkflowEvent) []*EventResponse {
	out := make([]*EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, FromEvent(e))
	}
	return out
}

// ApplyResponse reports the outcome of one accepted event proposal.
type ApplyResponse struct {
	Workflow *WorkflowResponse `json:"workflow"`
	Event    *EventResponse    `json:"event"`
	Replayed bool              `json:"replayed,omitempty"`
	Ignored  bool              `json:"ignored,omitempty"`
}

// FromResult converts an orchestrator result to its HTTP representation.
func FromResult(result *orchestrator.Result) *ApplyResponse {
	return &ApplyResponse{
		Workflow: FromWorkflow(result.Workflow),
		Event:    FromEvent(result.Event),
		Replayed: result.Replayed,
		Ignored:  result.Ignored,
	}
}

// TerminationResponse reports the kill switch outcome, including any
// compensations that did not land.
type TerminationResponse struct {
	WorkflowID        string   `json:"workflow_id"`
	AlreadyTerminated bool     `json:"already_terminated,omitempty"`
	Partial           bool     `json:"partial,omitempty"`
	InvalidatedForms  []string `json:"invalidated_forms,omitempty"`
	FailedForms       []string `json:"failed_forms,omitempty"`
}

// FromTermination converts a kill switch result to its HTTP representation.
func FromTermination(result *killswitch.TerminationResult) *TerminationResponse {
	out := &TerminationResponse{
		WorkflowID:        result.WorkflowID.String(),
		AlreadyTerminated: result.AlreadyTerminated,
		Partial:           result.Partial(),
	}
	for _, formID := range result.InvalidatedForms {
		out.InvalidatedForms = append(out.InvalidatedForms, formID.String())
	}
	for _, formID := range result.FailedForms {
		out.FailedForms = append(out.FailedForms, formID.String())
	}
	return out
}

// QuoteResponse is the HTTP representation of a fee quote. Money fields are
// smallest-unit integers.
type QuoteResponse struct {
	ID          string    `json:"id"`
	WorkflowID  string    `json:"workflow_id"`
	Amount      int64     `json:"amount"`
	BaseFee     int64     `json:"base_fee"`
	AdjustedFee int64     `json:"adjusted_fee"`
	Status      string    `json:"status"`
	Rationale   string    `json:"rationale,omitempty"`
	GeneratedBy string    `json:"generated_by"`
	Overlimit   bool      `json:"overlimit,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FromQuote converts a quote to its HTTP representation.
func FromQuote(q *quote.Quote) *QuoteResponse {
	return &QuoteResponse{
		ID:          q.ID.String(),
		WorkflowID:  q.WorkflowID.String(),
		Amount:      int64(q.Amount),
		BaseFee:     int64(q.BaseFee),
		AdjustedFee: int64(q.AdjustedFee),
		Status:      string(q.Status),
		Rationale:   q.Rationale,
		GeneratedBy: q.GeneratedBy,
		Overlimit:   q.Overlimit,
		CreatedAt:   q.CreatedAt,
		UpdatedAt:   q.UpdatedAt,
	}
}

// FormResponse is the HTTP representation of a form instance. The token is
// never included; it is only shown once at issue time.
type FormResponse struct {
	ID          string     `json:"id"`
	WorkflowID  string     `json:"workflow_id"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	ExpiresAt   time.Time  `json:"expires_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// FromForm converts a form instance to its HTTP representation.
func FromForm(instance *form.Instance) *FormResponse {
	return &FormResponse{
		ID:          instance.ID.String(),
		WorkflowID:  instance.WorkflowID.String(),
		Type:        string(instance.Type),
		Status:      string(instance.Status),
		ExpiresAt:   instance.ExpiresAt,
		SubmittedAt: instance.SubmittedAt,
	}
}

// SubmissionResponse acknowledges an accepted form submission.
type SubmissionResponse struct {
	FormInstanceID string    `json:"form_instance_id"`
	WorkflowID     string    `json:"workflow_id"`
	Type           string    `json:"type"`
	Version        int       `json:"version"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// FromSubmission converts a submission record to its HTTP representation.
func FromSubmission(sub *form.Submission) *SubmissionResponse {
	return &SubmissionResponse{
		FormInstanceID: sub.FormInstanceID.String(),
		WorkflowID:     sub.WorkflowID.String(),
		Type:           string(sub.Type),
		Version:        sub.Version,
		SubmittedAt:    sub.SubmittedAt,
	}
}

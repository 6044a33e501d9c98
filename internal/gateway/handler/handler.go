// Package handler exposes the decision gateway over HTTP. Staff decision
// endpoints sit behind role checks; form endpoints authenticate with the
// magic-link token instead of a bearer token.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"onboarding-gateway/internal/gateway"
	"onboarding-gateway/internal/platform/middleware"
	"onboarding-gateway/internal/quote"
	id "onboarding-gateway/pkg/domain"
	dErrors "onboarding-gateway/pkg/domain-errors"
	"onboarding-gateway/pkg/platform/httputil"
	"onboarding-gateway/pkg/requestcontext"
)

// Guard produces a role-check middleware for a route. Production passes
// middleware.RequireRole; tests pass a pass-through.
type Guard func(roles ...string) func(http.Handler) http.Handler

// Handler wires gateway endpoints to the gateway service.
type Handler struct {
	service *gateway.Service
	logger  *slog.Logger
}

// New constructs the gateway handler.
func New(service *gateway.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterStaff mounts the authenticated staff and platform endpoints. The
// caller supplies the auth chain; guard enforces per-route roles.
func (h *Handler) RegisterStaff(r chi.Router, guard Guard) {
	anyStaff := guard(middleware.RolePlatform, middleware.RoleRiskManager, middleware.RoleAccountManager)
	platform := guard(middleware.RolePlatform)
	risk := guard(middleware.RoleRiskManager)
	accounts := guard(middleware.RoleAccountManager)

	r.With(guard(middleware.RolePlatform, middleware.RoleAccountManager)).
		Post("/onboarding/workflows", h.HandleStartWorkflow)
	r.With(anyStaff).Get("/onboarding/workflows/{workflowID}", h.HandleGetWorkflow)
	r.With(anyStaff).Get("/onboarding/workflows/{workflowID}/events", h.HandleGetHistory)
	r.With(anyStaff).Get("/onboarding/workflows/{workflowID}/quote", h.HandleGetQuote)
	r.With(platform).Post("/onboarding/workflows/{workflowID}/events", h.HandleCallback)
	r.With(guard(middleware.RolePlatform, middleware.RoleRiskManager)).
		Post("/onboarding/workflows/{workflowID}/reconcile", h.HandleReconcile)
	r.With(risk).Post("/onboarding/workflows/{workflowID}/risk-decision", h.HandleRiskDecision)
	r.With(risk).Post("/onboarding/workflows/{workflowID}/procurement", h.HandleProcurement)
	r.With(risk).Post("/onboarding/workflows/{workflowID}/terminate", h.HandleTerminate)
	r.With(risk).Post("/quotes/{quoteID}/approve", h.HandleApproveQuote)
	r.With(risk).Post("/quotes/{quoteID}/reject", h.HandleRejectQuote)
	r.With(accounts).Post("/onboarding/workflows/{workflowID}/final-approval", h.HandleFinalApproval)
}

// RegisterPublic mounts the magic-link form endpoints. These must not sit
// behind bearer auth; the single-use token is the credential.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/forms/{formInstanceID}", h.HandleViewForm)
	r.Post("/forms/{formInstanceID}/submissions", h.HandleSubmitForm)
}

// HandleStartWorkflow handles POST /onboarding/workflows.
func (h *Handler) HandleStartWorkflow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[StartWorkflowRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.StartOnboarding(ctx, req.ParsedApplicantID(), req.Channel, idempotencyKey(r))
	if err != nil {
		h.logger.ErrorContext(ctx, "workflow start failed",
			"request_id", requestID,
			"applicant_id", req.ApplicantID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "workflow started",
		"request_id", requestID,
		"workflow_id", result.Workflow.ID,
		"replayed", result.Replayed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, FromResult(result))
}

// HandleGetWorkflow handles GET /onboarding/workflows/{workflowID}.
func (h *Handler) HandleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	workflowID, ok := h.workflowID(w, r)
	if !ok {
		return
	}
	workflow, err := h.service.GetWorkflow(r.Context(), workflowID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromWorkflow(workflow))
}

// HandleGetHistory handles GET /onboarding/workflows/{workflowID}/events.
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	workflowID, ok := h.workflowID(w, r)
	if !ok {
		return
	}
	events, err := h.service.GetHistory(r.Context(), workflowID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromHistory(events))
}

// HandleCallback handles POST /onboarding/workflows/{workflowID}/events.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	workflowID, ok := h.workflowID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CallbackRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.RecordCallback(ctx, workflowID, req.Type, req.Payload, idempotencyKey(r))
	if err != nil {
		h.logger.ErrorContext(ctx, "event callback rejected",
			"request_id", requestID,
			"workflow_id", workflowID,
			"event_type", req.Type,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "event recorded",
		"request_id", requestID,
		"workflow_id", workflowID,
		"event_type", req.Type,
		"replayed", result.Replayed,
		"ignored", result.Ignored,
	)
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}

// HandleRiskDecision handles POST /onboarding/workflows/{workflowID}/risk-decision.
func (h *Handler) HandleRiskDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	workflowID, ok := h.workflowID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RiskDecisionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.SubmitRiskDecision(ctx, workflowID, req.ParsedOutcome(), req.Reason, idempotencyKey(r))
	if err != nil {
		h.logger.ErrorContext(ctx, "risk decision rejected",
			"request_id", requestID,
			"workflow_id", workflowID,
			"outcome", req.Outcome,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "risk decision recorded",
		"request_id", requestID,
		"workflow_id", workflowID,
		"outcome", req.Outcome,
		"status", result.Workflow.Status,
	)
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}

// HandleProcurement handles POST /onboarding/workflows/{workflowID}/procurement.
// A denial terminates the workflow; the termination summary rides along in
// the response.
func (h *Handler) HandleProcurement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	workflowID, ok := h.workflowID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ProcurementRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, termination, err := h.service.SubmitProcurement(ctx, workflowID, req.ParsedOutcome(), req.Reason, idempotencyKey(r))
	if err != nil {
		h.logger.ErrorContext(ctx, "procurement decision rejected",
			"request_id", requestID,
			"workflow_id", workflowID,
			"outcome", req.Outcome,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "procurement decision recorded",
		"request_id", requestID,
		"workflow_id", workflowID,
		"outcome", req.Outcome,
		"terminated", termination != nil,
	)
	response := struct {
		*ApplyResponse
		Termination *TerminationResponse `json:"termination,omitempty"`
	}{ApplyResponse: FromResult(result)}
	if termination != nil {
		response.Termination = FromTermination(termination)
		// The apply snapshot predates the kill switch; report the final state.
		if workflow, err := h.service.GetWorkflow(ctx, workflowID); err == nil {
			response.Workflow = FromWorkflow(workflow)
		}
	}
	httputil.WriteJSON(w, http.StatusOK, response)
}

// HandleFinalApproval handles POST /onboarding/workflows/{workflowID}/final-approval.
func (h *Handler) HandleFinalApproval(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	workflowID, ok := h.workflowID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[FinalApprovalRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.SubmitFinalApproval(ctx, workflowID, req.ContractSigned, req.ComplianceFormComplete, idempotencyKey(r))
	if err != nil {
		h.logger.ErrorContext(ctx, "final approval rejected",
			"request_id", requestID,
			"workflow_id", workflowID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "final approval recorded",
		"request_id", requestID,
		"workflow_id", workflowID,
		"status", result.Workflow.Status,
	)
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}

// HandleTerminate handles POST /onboarding/workflows/{workflowID}/terminate.
func (h *Handler) HandleTerminate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	workflowID, ok := h.workflowID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[TerminateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Terminate(ctx, workflowID, req.Reason)
	if err != nil {
		h.logger.ErrorContext(ctx, "termination failed",
			"request_id", requestID,
			"workflow_id", workflowID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "workflow terminated",
		"request_id", requestID,
		"workflow_id", workflowID,
		"already_terminated", result.AlreadyTerminated,
		"partial", result.Partial(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromTermination(result))
}

// HandleReconcile handles POST /onboarding/workflows/{workflowID}/reconcile.
func (h *Handler) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	workflowID, ok := h.workflowID(w, r)
	if !ok {
		return
	}
	workflow, err := h.service.Reconcile(r.Context(), workflowID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromWorkflow(workflow))
}

// HandleGetQuote handles GET /onboarding/workflows/{workflowID}/quote.
func (h *Handler) HandleGetQuote(w http.ResponseWriter, r *http.Request) {
	workflowID, ok := h.workflowID(w, r)
	if !ok {
		return
	}
	q, err := h.service.GetQuote(r.Context(), workflowID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromQuote(q))
}

// HandleApproveQuote handles POST /quotes/{quoteID}/approve.
func (h *Handler) HandleApproveQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	quoteID, err := id.ParseQuoteID(chi.URLParam(r, "quoteID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ApproveQuoteRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	terms := quote.ApproveTerms{Rationale: req.Rationale}
	if req.Amount != nil {
		amount := id.Money(*req.Amount)
		terms.Amount = &amount
	}
	if req.AdjustedFee != nil {
		fee := id.Money(*req.AdjustedFee)
		terms.AdjustedFee = &fee
	}

	approved, err := h.service.ApproveQuote(ctx, quoteID, terms)
	if err != nil {
		h.logger.ErrorContext(ctx, "quote approval rejected",
			"request_id", requestID,
			"quote_id", quoteID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "quote approved",
		"request_id", requestID,
		"quote_id", quoteID,
		"workflow_id", approved.WorkflowID,
		"overlimit", approved.Overlimit,
	)
	httputil.WriteJSON(w, http.StatusOK, FromQuote(approved))
}

// HandleRejectQuote handles POST /quotes/{quoteID}/reject.
func (h *Handler) HandleRejectQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	quoteID, err := id.ParseQuoteID(chi.URLParam(r, "quoteID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[RejectQuoteRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rejected, err := h.service.RejectQuote(ctx, quoteID, req.Rationale)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "quote rejected",
		"request_id", requestID,
		"quote_id", quoteID,
		"workflow_id", rejected.WorkflowID,
	)
	httputil.WriteJSON(w, http.StatusOK, FromQuote(rejected))
}

// HandleViewForm handles GET /forms/{formInstanceID}. The token arrives as a
// query parameter because the magic link is opened from an email.
func (h *Handler) HandleViewForm(w http.ResponseWriter, r *http.Request) {
	instanceID, err := id.ParseFormInstanceID(chi.URLParam(r, "formInstanceID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "form link is invalid"))
		return
	}
	instance, err := h.service.ViewForm(r.Context(), instanceID, token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromForm(instance))
}

// HandleSubmitForm handles POST /forms/{formInstanceID}/submissions.
func (h *Handler) HandleSubmitForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	instanceID, err := id.ParseFormInstanceID(chi.URLParam(r, "formInstanceID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[SubmitFormRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	submission, err := h.service.SubmitForm(ctx, instanceID, req.Token, req.ParsedType(), req.Answers)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "form submitted",
		"request_id", requestID,
		"form_instance_id", instanceID,
		"workflow_id", submission.WorkflowID,
		"form_type", submission.Type,
		"version", submission.Version,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromSubmission(submission))
}

// workflowID parses the path parameter, writing the error response itself on
// failure.
func (h *Handler) workflowID(w http.ResponseWriter, r *http.Request) (id.WorkflowID, bool) {
	workflowID, err := id.ParseWorkflowID(chi.URLParam(r, "workflowID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.WorkflowID{}, false
	}
	return workflowID, true
}

// idempotencyKey reads the sender-supplied deduplication key, if any.
func idempotencyKey(r *http.Request) string {
	return r.Header.Get("Idempotency-Key")
}

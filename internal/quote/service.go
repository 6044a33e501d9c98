package quote

import (
	"context"
	"errors"
	"log/slog"

	id "onboarding-gateway/pkg/domain"
	dErrors "onboarding-gateway/pkg/domain-errors"
	"onboarding-gateway/pkg/platform/sentinel"
	"onboarding-gateway/pkg/requestcontext"
)

// Service owns quote lifecycle rules. The orchestrator drives it; the service
// never talks to the workflow machine directly.
type Service struct {
	store          Store
	overlimitCents id.Money
	logger         *slog.Logger
}

func NewService(store Store, overlimitCents int64, logger *slog.Logger) *Service {
	return &Service{
		store:          store,
		overlimitCents: id.Money(overlimitCents),
		logger:         logger,
	}
}

// DraftInput carries the generated terms for a new quote.
type DraftInput struct {
	WorkflowID            id.WorkflowID
	Amount                id.Money
	BaseFee               id.Money
	AdjustmentBasisPoints int64
	Rationale             string
	GeneratedBy           string
}

// Draft creates a quote in draft. The adjusted fee is derived from the base
// fee in integer basis points, truncating toward zero.
func (s *Service) Draft(ctx context.Context, in DraftInput) (*Quote, error) {
	if in.Amount <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "quote amount must be positive")
	}
	if in.BaseFee < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "quote base fee must not be negative")
	}
	if existing, err := s.store.FindByWorkflow(ctx, in.WorkflowID); err == nil {
		// One quote per workflow. A replayed draft returns the existing record.
		return existing, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "look up workflow quote")
	}

	now := requestcontext.Now(ctx)
	quote := &Quote{
		ID:          id.NewQuoteID(),
		WorkflowID:  in.WorkflowID,
		Amount:      in.Amount,
		BaseFee:     in.BaseFee,
		AdjustedFee: in.BaseFee.ApplyBasisPoints(in.AdjustmentBasisPoints),
		Status:      StatusDraft,
		Rationale:   in.Rationale,
		GeneratedBy: in.GeneratedBy,
		Overlimit:   in.Amount >= s.overlimitCents,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, quote); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create quote")
	}
	if quote.Overlimit {
		s.logger.InfoContext(ctx, "quote flagged overlimit",
			"quote_id", quote.ID, "workflow_id", quote.WorkflowID, "amount", quote.Amount)
	}
	return quote, nil
}

// SubmitForApproval hands a drafted quote to the approval queue. A quote
// already awaiting approval is returned as is, so a redelivered draft effect
// cannot double-submit.
func (s *Service) SubmitForApproval(ctx context.Context, quoteID id.QuoteID) (*Quote, error) {
	quote, err := s.find(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.Status == StatusPendingApproval {
		return quote, nil
	}
	if !CanTransition(quote.Status, StatusPendingApproval) {
		return nil, dErrors.Newf(dErrors.CodeConflict, "quote in status %s cannot be submitted for approval", quote.Status)
	}
	quote.Status = StatusPendingApproval
	quote.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, quote); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "submit quote for approval")
	}
	return quote, nil
}

// ApproveTerms carries optional edits applied at approval time. Nil fields
// leave the drafted value untouched.
type ApproveTerms struct {
	Amount      *id.Money
	AdjustedFee *id.Money
	Rationale   *string
}

// Approve applies edited terms and moves the quote to pending_signature in one
// step. Persisting the edit and flipping the status never happen separately,
// so a crash cannot leave edited terms on a quote still awaiting approval.
func (s *Service) Approve(ctx context.Context, quoteID id.QuoteID, terms ApproveTerms) (*Quote, error) {
	quote, err := s.find(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(quote.Status, StatusPendingSignature) {
		return nil, dErrors.Newf(dErrors.CodeConflict, "quote in status %s cannot be approved", quote.Status)
	}
	if terms.Amount != nil {
		if *terms.Amount <= 0 {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "quote amount must be positive")
		}
		quote.Amount = *terms.Amount
	}
	if terms.AdjustedFee != nil {
		if *terms.AdjustedFee < 0 {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "quote adjusted fee must not be negative")
		}
		quote.AdjustedFee = *terms.AdjustedFee
	}
	if terms.Rationale != nil {
		quote.Rationale = *terms.Rationale
	}
	quote.Overlimit = quote.Amount >= s.overlimitCents
	quote.Status = StatusPendingSignature
	quote.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, quote); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "approve quote")
	}
	return quote, nil
}

// Reject moves the quote to its rejected terminal status.
func (s *Service) Reject(ctx context.Context, quoteID id.QuoteID, rationale string) (*Quote, error) {
	quote, err := s.find(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.Status == StatusRejected {
		return quote, nil
	}
	if !CanTransition(quote.Status, StatusRejected) {
		return nil, dErrors.Newf(dErrors.CodeConflict, "quote in status %s cannot be rejected", quote.Status)
	}
	quote.Status = StatusRejected
	if rationale != "" {
		quote.Rationale = rationale
	}
	quote.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, quote); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "reject quote")
	}
	return quote, nil
}

// MarkSigned records the countersignature and finalizes the quote.
func (s *Service) MarkSigned(ctx context.Context, quoteID id.QuoteID) (*Quote, error) {
	quote, err := s.find(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.Status == StatusApproved {
		return quote, nil
	}
	if !CanTransition(quote.Status, StatusApproved) {
		return nil, dErrors.Newf(dErrors.CodeConflict, "quote in status %s cannot be signed", quote.Status)
	}
	quote.Status = StatusApproved
	quote.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, quote); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "mark quote signed")
	}
	return quote, nil
}

// Get returns the quote by id.
func (s *Service) Get(ctx context.Context, quoteID id.QuoteID) (*Quote, error) {
	return s.find(ctx, quoteID)
}

// GetByWorkflow returns the workflow's quote.
func (s *Service) GetByWorkflow(ctx context.Context, workflowID id.WorkflowID) (*Quote, error) {
	quote, err := s.store.FindByWorkflow(ctx, workflowID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "quote not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find quote by workflow")
	}
	return quote, nil
}

func (s *Service) find(ctx context.Context, quoteID id.QuoteID) (*Quote, error) {
	quote, err := s.store.FindByID(ctx, quoteID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "quote not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find quote")
	}
	return quote, nil
}

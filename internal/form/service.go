package form

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	id "onboarding-gateway/pkg/domain"
	dErrors "onboarding-gateway/pkg/domain-errors"
	"onboarding-gateway/pkg/platform/sentinel"
	"onboarding-gateway/pkg/requestcontext"
	"onboarding-gateway/pkg/secrets"
)

// Service manages form instances end to end. Submission is where the
// security invariants meet: token verification, expiry, single use and a
// revocation double-check all happen here.
type Service struct {
	store      Store
	revocation RevocationList
	tokenTTL   time.Duration
	logger     *slog.Logger
}

func NewService(store Store, revocation RevocationList, tokenTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		revocation: revocation,
		tokenTTL:   tokenTTL,
		logger:     logger,
	}
}

// IssuedForm pairs the persisted instance with the one-time plaintext token.
type IssuedForm struct {
	Instance *Instance
	// Token is shown once and never stored. Losing it means reissuing.
	Token string
}

// Issue creates a form instance and mints its magic-link token.
func (s *Service) Issue(ctx context.Context, workflowID id.WorkflowID, formType Type) (*IssuedForm, error) {
	secret, err := secrets.Generate()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "generate form token")
	}
	hash, err := secrets.Hash(secret)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "hash form token")
	}

	now := requestcontext.Now(ctx)
	instance := &Instance{
		ID:         id.NewFormInstanceID(),
		WorkflowID: workflowID,
		Type:       formType,
		Status:     StatusSent,
		TokenHash:  hash,
		ExpiresAt:  now.Add(s.tokenTTL),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.Create(ctx, instance); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create form instance")
	}
	s.logger.InfoContext(ctx, "form issued",
		"form_instance_id", instance.ID, "workflow_id", workflowID, "form_type", formType)
	return &IssuedForm{Instance: instance, Token: secret}, nil
}

// MarkViewed records the first open of the magic link. Viewing does not
// consume the token.
func (s *Service) MarkViewed(ctx context.Context, instanceID id.FormInstanceID, token string) (*Instance, error) {
	instance, err := s.authorize(ctx, instanceID, token)
	if err != nil {
		return nil, err
	}
	if instance.Status == StatusViewed {
		return instance, nil
	}
	instance.Status = StatusViewed
	instance.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, instance); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "mark form viewed")
	}
	return instance, nil
}

// Submit validates the token and records the answers. The token is single
// use: a submitted instance refuses any further submission. The declared
// form type must match the instance so answers can never land under the
// wrong questionnaire.
func (s *Service) Submit(ctx context.Context, instanceID id.FormInstanceID, token string, formType Type, answers json.RawMessage) (*Submission, error) {
	instance, err := s.authorize(ctx, instanceID, token)
	if err != nil {
		return nil, err
	}
	if formType != instance.Type {
		return nil, dErrors.Newf(dErrors.CodeConflict,
			"form type %s does not match the issued %s form", formType, instance.Type)
	}

	version, err := s.store.CountSubmissions(ctx, instance.WorkflowID, instance.Type)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "count form submissions")
	}

	now := requestcontext.Now(ctx)
	submission := &Submission{
		FormInstanceID: instance.ID,
		WorkflowID:     instance.WorkflowID,
		Type:           instance.Type,
		Version:        version + 1,
		Answers:        answers,
		SubmittedAt:    now,
		Actor:          requestcontext.Actor(ctx),
	}
	if err := s.store.AddSubmission(ctx, submission); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "record form submission")
	}
	instance.Status = StatusSubmitted
	instance.SubmittedAt = &now
	instance.UpdatedAt = now
	if err := s.store.Update(ctx, instance); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "finalize form instance")
	}
	s.logger.InfoContext(ctx, "form submitted",
		"form_instance_id", instance.ID, "workflow_id", instance.WorkflowID,
		"form_type", instance.Type, "version", submission.Version)
	return submission, nil
}

// Revoke invalidates an instance and places it on the deny list. Already
// terminal instances are left alone.
func (s *Service) Revoke(ctx context.Context, instanceID id.FormInstanceID) error {
	instance, err := s.store.FindByID(ctx, instanceID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "form instance not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "find form instance")
	}
	if instance.Status.Terminal() {
		return nil
	}
	instance.Status = StatusRevoked
	instance.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, instance); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "revoke form instance")
	}
	ttl := time.Until(instance.ExpiresAt)
	if ttl < time.Minute {
		ttl = time.Minute
	}
	if err := s.revocation.Revoke(ctx, instanceID, ttl); err != nil {
		// The store already says revoked; the deny list is a fast path.
		s.logger.ErrorContext(ctx, "failed to place form on revocation list",
			"form_instance_id", instanceID, "error", err)
	}
	return nil
}

// RevokeAllForWorkflow revokes every open instance for a workflow. It keeps
// going past individual failures and reports both outcomes so the caller can
// surface a partial result.
func (s *Service) RevokeAllForWorkflow(ctx context.Context, workflowID id.WorkflowID) (revoked, failed []id.FormInstanceID, err error) {
	instances, listErr := s.store.ListByWorkflow(ctx, workflowID)
	if listErr != nil {
		return nil, nil, dErrors.Wrap(listErr, dErrors.CodeInternal, "list workflow forms")
	}
	for _, instance := range instances {
		if instance.Status.Terminal() {
			continue
		}
		if revokeErr := s.Revoke(ctx, instance.ID); revokeErr != nil {
			s.logger.ErrorContext(ctx, "failed to revoke form during workflow teardown",
				"form_instance_id", instance.ID, "workflow_id", workflowID, "error", revokeErr)
			failed = append(failed, instance.ID)
			continue
		}
		revoked = append(revoked, instance.ID)
	}
	return revoked, failed, nil
}

// Get returns the instance by id.
func (s *Service) Get(ctx context.Context, instanceID id.FormInstanceID) (*Instance, error) {
	instance, err := s.store.FindByID(ctx, instanceID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "form instance not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find form instance")
	}
	return instance, nil
}

// authorize loads the instance and runs every access check in order: token
// match first so a bad link leaks nothing about instance state, then the
// revocation deny list, then expiry, then single use.
func (s *Service) authorize(ctx context.Context, instanceID id.FormInstanceID, token string) (*Instance, error) {
	instance, err := s.store.FindByID(ctx, instanceID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeForbidden, "invalid form link")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find form instance")
	}
	if err := secrets.Verify(token, instance.TokenHash); err != nil {
		return nil, dErrors.New(dErrors.CodeForbidden, "invalid form link")
	}

	revoked, err := s.revocation.IsRevoked(ctx, instanceID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "check form revocation")
	}
	if revoked || instance.Status == StatusRevoked {
		return nil, dErrors.New(dErrors.CodeConflict, "form link has been revoked")
	}

	now := requestcontext.Now(ctx)
	if now.After(instance.ExpiresAt) {
		if instance.Status != StatusExpired {
			instance.Status = StatusExpired
			instance.UpdatedAt = now
			if updateErr := s.store.Update(ctx, instance); updateErr != nil {
				return nil, dErrors.Wrap(updateErr, dErrors.CodeInternal, "expire form instance")
			}
		}
		return nil, dErrors.New(dErrors.CodeForbidden, "form link has expired")
	}
	if instance.Status == StatusSubmitted {
		return nil, dErrors.New(dErrors.CodeConflict, fmt.Sprintf("form %s was already submitted", instanceID))
	}
	return instance, nil
}

// Package orchestrator advances onboarding workflows. It is the only writer
// of workflow state: handlers and adapters propose events, the orchestrator
// validates them against the transition rules, commits the event append and
// snapshot update atomically, and only then dispatches side effects.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"onboarding-gateway/internal/adapters"
	"onboarding-gateway/internal/form"
	"onboarding-gateway/internal/notify"
	"onboarding-gateway/internal/platform/metrics"
	"onboarding-gateway/internal/quote"
	"onboarding-gateway/internal/timeout"
	"onboarding-gateway/internal/workflow/models"
	"onboarding-gateway/internal/workflow/store"
	id "onboarding-gateway/pkg/domain"
	dErrors "onboarding-gateway/pkg/domain-errors"
	"onboarding-gateway/pkg/platform/sentinel"
)

// Config carries the saga tuning knobs.
type Config struct {
	CreditScoreFloor    int
	TrustScoreThreshold int
	SignatureWaitBound  time.Duration
	ComplianceWaitBound time.Duration
	AdapterTimeout      time.Duration
	ConflictRetries     int
}

// Orchestrator coordinates the saga. All dependencies are interfaces or
// small services, so unit tests run fully in memory.
type Orchestrator struct {
	workflows store.WorkflowStore
	events    store.EventStore
	txRunner  store.TxRunner
	quotes    *quote.Service
	forms     *form.Service
	timers    timeout.Store

	credit      adapters.CreditChecker
	evidence    *adapters.EvidenceGatherer
	provisioner adapters.IntegrationProvisioner
	notifier    notify.Notifier

	cfg     Config
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Deps bundles constructor dependencies.
type Deps struct {
	Workflows   store.WorkflowStore
	Events      store.EventStore
	TxRunner    store.TxRunner
	Quotes      *quote.Service
	Forms       *form.Service
	Timers      timeout.Store
	Credit      adapters.CreditChecker
	Evidence    *adapters.EvidenceGatherer
	Provisioner adapters.IntegrationProvisioner
	Notifier    notify.Notifier
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

func New(deps Deps, cfg Config) *Orchestrator {
	if cfg.ConflictRetries < 1 {
		cfg.ConflictRetries = 1
	}
	if cfg.AdapterTimeout <= 0 {
		cfg.AdapterTimeout = 15 * time.Second
	}
	return &Orchestrator{
		workflows:   deps.Workflows,
		events:      deps.Events,
		txRunner:    deps.TxRunner,
		quotes:      deps.Quotes,
		forms:       deps.Forms,
		timers:      deps.Timers,
		credit:      deps.Credit,
		evidence:    deps.Evidence,
		provisioner: deps.Provisioner,
		notifier:    deps.Notifier,
		cfg:         cfg,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		tracer:      otel.Tracer("onboarding-gateway/orchestrator"),
	}
}

// Result is the outcome of applying one event.
type Result struct {
	Event    *models.WorkflowEvent
	Workflow *models.Workflow
	// Replayed means the idempotency key was already committed; the result
	// was answered from the log without reprocessing.
	Replayed bool
	// Ignored means the event was recorded for audit but produced no state
	// change.
	Ignored bool
}

// StartInput creates a new workflow.
type StartInput struct {
	ApplicantID    id.ApplicantID
	Channel        string
	IdempotencyKey string
	Actor          id.Actor
	Timestamp      time.Time
}

// StartWorkflow creates the workflow and its lead.created event atomically,
// then kicks off the capture-stage credit check.
func (o *Orchestrator) StartWorkflow(ctx context.Context, in StartInput) (*Result, error) {
	if in.IdempotencyKey == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "idempotency key is required")
	}
	if in.ApplicantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "applicant id is required")
	}
	if replay, err := o.answerFromLog(ctx, in.IdempotencyKey); err != nil {
		return nil, err
	} else if replay != nil {
		return replay, nil
	}

	now := in.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}
	workflow := models.NewWorkflow(in.ApplicantID, now)
	event := &models.WorkflowEvent{
		ID:             id.NewEventID(),
		WorkflowID:     workflow.ID,
		ApplicantID:    workflow.ApplicantID,
		Type:           models.EventLeadCreated,
		Payload:        models.LeadCreatedPayload{ApplicantID: in.ApplicantID, Channel: in.Channel},
		IdempotencyKey: in.IdempotencyKey,
		Timestamp:      now,
		Actor:          in.Actor,
		AppliedStatus:  workflow.Status,
		AppliedStage:   workflow.Stage,
	}

	err := o.txRunner.InTx(ctx, func(txCtx context.Context) error {
		if err := o.workflows.Create(txCtx, workflow); err != nil {
			return err
		}
		return o.events.Append(txCtx, event)
	})
	if errors.Is(err, sentinel.ErrDuplicate) {
		// Lost a race with a concurrent duplicate; answer from the log.
		if replay, replayErr := o.answerFromLog(ctx, in.IdempotencyKey); replayErr == nil && replay != nil {
			return replay, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeConflict, "duplicate workflow start")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "start workflow")
	}

	if o.metrics != nil {
		o.metrics.WorkflowsStarted.Inc()
	}
	o.logger.InfoContext(ctx, "workflow started",
		"workflow_id", workflow.ID, "applicant_id", workflow.ApplicantID)
	o.publish(ctx, event)
	o.dispatch(ctx, workflow, event, []effect{{kind: effectRunCreditCheck}})
	return &Result{Event: event, Workflow: workflow}, nil
}

// Apply commits one incoming event against the workflow. Redelivered events
// are answered from the event log; concurrent writers are resolved by
// optimistic retry, never by a lock around business logic.
func (o *Orchestrator) Apply(ctx context.Context, workflowID id.WorkflowID, incoming models.IncomingEvent) (*Result, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.Apply", trace.WithAttributes(
		attribute.String("workflow.id", workflowID.String()),
		attribute.String("event.type", string(incoming.Type)),
	))
	defer span.End()

	if err := incoming.Validate(); err != nil {
		return nil, err
	}
	if replay, err := o.answerFromLog(ctx, incoming.IdempotencyKey); err != nil {
		return nil, err
	} else if replay != nil {
		span.SetAttributes(attribute.Bool("event.replayed", true))
		return replay, nil
	}

	var lastErr error
	for attempt := 0; attempt < o.cfg.ConflictRetries; attempt++ {
		result, err := o.applyOnce(ctx, workflowID, incoming)
		if errors.Is(err, sentinel.ErrVersionConflict) {
			lastErr = err
			continue
		}
		if errors.Is(err, sentinel.ErrDuplicate) {
			// A concurrent delivery of the same key won the append race.
			if replay, replayErr := o.answerFromLog(ctx, incoming.IdempotencyKey); replayErr == nil && replay != nil {
				return replay, nil
			}
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "duplicate event")
		}
		return result, err
	}
	return nil, dErrors.Wrap(lastErr, dErrors.CodeConflict, "workflow update contention, retry the request")
}

func (o *Orchestrator) applyOnce(ctx context.Context, workflowID id.WorkflowID, incoming models.IncomingEvent) (*Result, error) {
	workflow, err := o.workflows.FindByID(ctx, workflowID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "workflow not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load workflow")
	}

	decision, err := decide(workflow, incoming, o.cfg)
	if err != nil {
		return nil, err
	}

	timestamp := incoming.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	event := &models.WorkflowEvent{
		ID:             id.NewEventID(),
		WorkflowID:     workflow.ID,
		ApplicantID:    workflow.ApplicantID,
		Type:           incoming.Type,
		Payload:        incoming.Payload,
		IdempotencyKey: incoming.IdempotencyKey,
		Timestamp:      timestamp,
		Actor:          incoming.Actor,
		Note:           decision.note,
	}

	if decision.ignored {
		event.AppliedStatus = workflow.Status
		event.AppliedStage = workflow.Stage
		event.Ignored = true
		if err := o.events.Append(ctx, event); err != nil {
			return nil, err
		}
		o.logger.InfoContext(ctx, "event recorded without state change",
			"workflow_id", workflow.ID, "event_type", event.Type, "note", decision.note)
		o.publish(ctx, event)
		return &Result{Event: event, Workflow: workflow, Ignored: true}, nil
	}

	event.AppliedStatus = decision.status
	event.AppliedStage = decision.stage

	updated := workflow.Clone()
	updated.Status = decision.status
	updated.Stage = decision.stage
	updated.UpdatedAt = timestamp
	if decision.mutate != nil {
		decision.mutate(&updated.Context)
	}

	err = o.txRunner.InTx(ctx, func(txCtx context.Context) error {
		if err := o.events.Append(txCtx, event); err != nil {
			return err
		}
		return o.workflows.Update(txCtx, updated)
	})
	if err != nil {
		return nil, err
	}

	o.metrics.RecordTransition(string(decision.status))
	o.logger.InfoContext(ctx, "workflow transitioned",
		"workflow_id", workflow.ID, "event_type", event.Type,
		"from_status", workflow.Status, "to_status", decision.status,
		"from_stage", workflow.Stage.String(), "to_stage", decision.stage.String())
	o.publish(ctx, event)
	o.dispatch(ctx, updated, event, decision.effects)
	return &Result{Event: event, Workflow: updated}, nil
}

// answerFromLog returns the recorded outcome for an idempotency key, or nil
// when the key is unseen.
func (o *Orchestrator) answerFromLog(ctx context.Context, key string) (*Result, error) {
	event, err := o.events.FindByIdempotencyKey(ctx, key)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check idempotency key")
	}
	workflow, err := o.workflows.FindByID(ctx, event.WorkflowID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load workflow for replay")
	}
	if o.metrics != nil {
		o.metrics.IdempotentReplays.Inc()
	}
	o.logger.InfoContext(ctx, "duplicate delivery answered from event log",
		"workflow_id", event.WorkflowID, "event_type", event.Type, "idempotency_key", key)
	return &Result{Event: event, Workflow: workflow, Replayed: true}, nil
}

// Get returns the current workflow snapshot.
func (o *Orchestrator) Get(ctx context.Context, workflowID id.WorkflowID) (*models.Workflow, error) {
	workflow, err := o.workflows.FindByID(ctx, workflowID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "workflow not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load workflow")
	}
	return workflow, nil
}

// History returns the workflow's event log in replay order.
func (o *Orchestrator) History(ctx context.Context, workflowID id.WorkflowID) ([]*models.WorkflowEvent, error) {
	if _, err := o.Get(ctx, workflowID); err != nil {
		return nil, err
	}
	events, err := o.events.ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list workflow events")
	}
	return events, nil
}

func (o *Orchestrator) publish(ctx context.Context, event *models.WorkflowEvent) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.PublishEvent(ctx, event); err != nil {
		o.logger.ErrorContext(ctx, "failed to publish workflow event",
			"workflow_id", event.WorkflowID, "event_type", event.Type, "error", err)
	}
}

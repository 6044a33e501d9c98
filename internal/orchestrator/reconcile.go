package orchestrator

import (
	"context"
	"reflect"

	"onboarding-gateway/internal/form"
	"onboarding-gateway/internal/workflow/models"
	id "onboarding-gateway/pkg/domain"
	dErrors "onboarding-gateway/pkg/domain-errors"
)

// Rebuild folds the event log into a workflow snapshot. The log is the
// source of truth: replaying it must reproduce the stored snapshot exactly,
// and Reconcile repairs the snapshot when it does not.
func Rebuild(workflowID id.WorkflowID, events []*models.WorkflowEvent) (*models.Workflow, error) {
	if len(events) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "no events for workflow")
	}
	first := events[0]
	if first.Type != models.EventLeadCreated {
		return nil, dErrors.New(dErrors.CodeInternal, "event log does not start with lead creation")
	}
	workflow := &models.Workflow{
		ID:          workflowID,
		ApplicantID: first.ApplicantID,
		StartedAt:   first.Timestamp,
		Version:     1,
	}
	for _, event := range events {
		if event.Ignored {
			continue
		}
		workflow.Status = event.AppliedStatus
		workflow.Stage = event.AppliedStage
		workflow.UpdatedAt = event.Timestamp
		foldContext(&workflow.Context, event.Payload)
	}
	return workflow, nil
}

// foldContext applies the payload's context contribution. Status and stage
// come from the event's recorded outcome, never from re-running rules, so a
// rebuilt snapshot reflects the decisions as they were made.
func foldContext(c *models.Context, payload models.Payload) {
	switch p := payload.(type) {
	case models.CreditCheckPayload:
		score := p.Score
		c.CreditScore = &score
		c.CreditSource = p.Source
	case models.QuoteGeneratedPayload:
		quoteID := p.QuoteID
		c.QuoteID = &quoteID
		c.QuoteOverlimit = p.Overlimit
	case models.QuoteApprovedPayload:
		c.QuoteApproved = true
	case models.FormSubmittedPayload:
		if p.FormType == string(form.TypeComplianceQuestionnaire) {
			c.ComplianceFormComplete = true
		}
	case models.RiskDecisionPayload:
		if p.Outcome == models.OutcomeRequestMoreInfo {
			c.ComplianceFormComplete = false
		}
	case models.AnalysisCompletedPayload:
		assessment := p.Assessment
		listed := p.SanctionsListed
		c.Assessment = &assessment
		c.SanctionsListed = &listed
	case models.ContractSignedPayload:
		c.ContractSigned = true
	case models.FinalApprovalPayload:
		c.ContractSigned = true
		c.ComplianceFormComplete = true
	case models.IntegrationProvisionedPayload:
		c.IntegrationRef = p.Ref
	case models.TerminatedPayload:
		c.TerminationReason = p.Reason
	}
}

// Reconcile rebuilds the snapshot from the log and repairs the stored row if
// the two have diverged. Returns the authoritative snapshot.
func (o *Orchestrator) Reconcile(ctx context.Context, workflowID id.WorkflowID) (*models.Workflow, error) {
	events, err := o.events.ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list workflow events")
	}
	rebuilt, err := Rebuild(workflowID, events)
	if err != nil {
		return nil, err
	}
	stored, err := o.workflows.FindByID(ctx, workflowID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load workflow")
	}
	if stored.Status == rebuilt.Status && stored.Stage == rebuilt.Stage &&
		reflect.DeepEqual(stored.Context, rebuilt.Context) {
		return stored, nil
	}

	o.logger.WarnContext(ctx, "workflow snapshot diverged from event log, repairing",
		"workflow_id", workflowID,
		"stored_status", stored.Status, "rebuilt_status", rebuilt.Status,
		"stored_stage", stored.Stage.String(), "rebuilt_stage", rebuilt.Stage.String())
	repaired := stored.Clone()
	repaired.Status = rebuilt.Status
	repaired.Stage = rebuilt.Stage
	repaired.Context = rebuilt.Context
	repaired.UpdatedAt = rebuilt.UpdatedAt
	if err := o.workflows.Update(ctx, repaired); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "repair workflow snapshot")
	}
	return repaired, nil
}

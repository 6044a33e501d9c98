package orchestrator

import (
	"fmt"

	"onboarding-gateway/internal/form"
	"onboarding-gateway/internal/workflow/machine"
	"onboarding-gateway/internal/workflow/models"
	dErrors "onboarding-gateway/pkg/domain-errors"
)

type effectKind int

const (
	effectRunCreditCheck effectKind = iota + 1
	effectDraftQuote
	effectMarkQuoteSigned
	effectScheduleSignatureTimer
	effectCancelSignatureTimer
	effectIssueVerificationForms
	effectReissueComplianceForm
	effectScheduleComplianceTimer
	effectCancelComplianceTimer
	effectGatherEvidence
	effectProvision
)

type effect struct {
	kind effectKind
}

// transition is the computed outcome of one event against one snapshot. It
// is pure data; nothing here has touched storage yet.
type transition struct {
	status  models.Status
	stage   models.Stage
	mutate  func(*models.Context)
	note    string
	ignored bool
	effects []effect
}

func ignore(w *models.Workflow, note string) *transition {
	return &transition{status: w.Status, stage: w.Stage, note: note, ignored: true}
}

// decide computes the transition for an event. It rejects events that would
// violate the transition rules and downgrades stage-inapplicable deliveries
// to audit-only records, so at-least-once senders never see spurious errors.
func decide(w *models.Workflow, incoming models.IncomingEvent, cfg Config) (*transition, error) {
	if w.Status.IsTerminal() {
		return ignore(w, fmt.Sprintf("workflow is %s; event recorded without effect", w.Status)), nil
	}

	var t *transition
	switch payload := incoming.Payload.(type) {
	case models.LeadCreatedPayload:
		t = ignore(w, "workflow already started")

	case models.CreditCheckPayload:
		t = decideCreditCheck(w, payload, cfg)

	case models.QuoteGeneratedPayload:
		if w.Stage != models.StageQuotation {
			t = ignore(w, "quote events only apply at the quotation stage")
			break
		}
		note := ""
		if payload.Overlimit {
			note = "quote amount exceeds the overlimit threshold"
		}
		quoteID := payload.QuoteID
		t = &transition{
			status: models.StatusAwaitingHuman,
			stage:  w.Stage,
			note:   note,
			mutate: func(c *models.Context) {
				c.QuoteID = &quoteID
				c.QuoteOverlimit = payload.Overlimit
			},
		}

	case models.QuoteApprovedPayload:
		if w.Stage != models.StageQuotation {
			t = ignore(w, "quote events only apply at the quotation stage")
			break
		}
		if w.Context.QuoteID == nil || *w.Context.QuoteID != payload.QuoteID {
			return nil, dErrors.New(dErrors.CodeConflict, "approved quote does not match the workflow's quote")
		}
		if w.Context.QuoteApproved {
			t = ignore(w, "quote already released for signature")
			break
		}
		// The signature wait bound starts when the quote goes out, not when
		// it is drafted.
		t = &transition{
			status:  models.StatusAwaitingHuman,
			stage:   w.Stage,
			note:    "quote released; awaiting the applicant's signature",
			mutate:  func(c *models.Context) { c.QuoteApproved = true },
			effects: []effect{{kind: effectScheduleSignatureTimer}},
		}

	case models.QuoteRejectedPayload:
		if w.Stage != models.StageQuotation {
			t = ignore(w, "quote events only apply at the quotation stage")
			break
		}
		if w.Context.QuoteID == nil || *w.Context.QuoteID != payload.QuoteID {
			return nil, dErrors.New(dErrors.CodeConflict, "rejected quote does not match the workflow's quote")
		}
		t = &transition{
			status:  models.StatusFailed,
			stage:   w.Stage,
			note:    fmt.Sprintf("quote rejected: %s", payload.Rationale),
			effects: []effect{{kind: effectCancelSignatureTimer}},
		}

	case models.QuoteSignedPayload:
		if w.Stage != models.StageQuotation {
			t = ignore(w, "quote events only apply at the quotation stage")
			break
		}
		if w.Context.QuoteID == nil || *w.Context.QuoteID != payload.QuoteID {
			return nil, dErrors.New(dErrors.CodeConflict, "signed quote does not match the workflow's quote")
		}
		if !w.Context.QuoteApproved {
			return nil, dErrors.New(dErrors.CodeConflict, "quote has not been released for signature")
		}
		t = &transition{
			status: models.StatusInProgress,
			stage:  models.StageVerification,
			effects: []effect{
				{kind: effectCancelSignatureTimer},
				{kind: effectMarkQuoteSigned},
				{kind: effectIssueVerificationForms},
				{kind: effectScheduleComplianceTimer},
				{kind: effectGatherEvidence},
			},
		}

	case models.FormSubmittedPayload:
		t = decideFormSubmitted(w, payload)

	case models.DocumentUploadedPayload:
		switch {
		case w.Stage != models.StageVerification:
			t = ignore(w, "document recorded outside the verification stage")
		case w.Status == models.StatusTimeout:
			t = ignore(w, "workflow timed out; document recorded pending a manual decision")
		default:
			t = &transition{
				status:  w.Status,
				stage:   w.Stage,
				effects: []effect{{kind: effectGatherEvidence}},
			}
		}

	case models.MandateSubmittedPayload:
		t = ignore(w, "mandate recorded")

	case models.AnalysisCompletedPayload:
		t = decideAnalysis(w, payload, cfg)

	case models.RiskDecisionPayload:
		var err error
		t, err = decideRiskDecision(w, payload)
		if err != nil {
			return nil, err
		}

	case models.ProcurementPayload:
		if payload.Outcome == models.OutcomeDenied {
			t = ignore(w, "procurement denied; workflow termination required")
		} else {
			t = ignore(w, "procurement cleared")
		}

	case models.ContractSignedPayload:
		if w.Stage != models.StageIntegration {
			t = ignore(w, "contract events only apply at the integration stage")
			break
		}
		status := w.Status
		if status == models.StatusTimeout {
			// The awaited signature arrived; resume the wait for sign-off.
			status = models.StatusAwaitingHuman
		}
		t = &transition{
			status: status,
			stage:  w.Stage,
			mutate: func(c *models.Context) { c.ContractSigned = true },
		}

	case models.FinalApprovalPayload:
		var err error
		t, err = decideFinalApproval(w, payload)
		if err != nil {
			return nil, err
		}

	case models.IntegrationProvisionedPayload:
		if w.Stage != models.StageIntegration {
			t = ignore(w, "provisioning events only apply at the integration stage")
			break
		}
		ref := payload.Ref
		t = &transition{
			status: models.StatusCompleted,
			stage:  w.Stage,
			mutate: func(c *models.Context) { c.IntegrationRef = ref },
		}

	case models.StepFailedPayload:
		t = &transition{
			status: models.StatusFailed,
			stage:  w.Stage,
			note:   fmt.Sprintf("step %s failed: %s", payload.Step, payload.Reason),
		}

	case models.TimeoutExpiredPayload:
		if w.Status == models.StatusTimeout {
			t = ignore(w, "workflow already timed out")
			break
		}
		t = &transition{
			status: models.StatusTimeout,
			stage:  w.Stage,
			note:   fmt.Sprintf("wait bound on %s expired", payload.Waiting),
		}

	case models.TerminatedPayload:
		reason := payload.Reason
		t = &transition{
			status: models.StatusTerminated,
			stage:  w.Stage,
			mutate: func(c *models.Context) { c.TerminationReason = reason },
		}

	default:
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unsupported event type %q", incoming.Type)
	}

	if t.ignored {
		return t, nil
	}
	if !machine.CanTransition(w.Status, t.status) {
		return nil, dErrors.Newf(dErrors.CodeConflict,
			"event %s is not valid while the workflow is %s", incoming.Type, w.Status)
	}
	if !machine.CanAdvanceStage(w.Stage, t.stage) {
		return nil, dErrors.Newf(dErrors.CodeConflict,
			"illegal stage move from %s to %s", w.Stage, t.stage)
	}
	if !machine.Reachable(t.stage, t.status) {
		return nil, dErrors.Newf(dErrors.CodeConflict,
			"state %s/%s is not reachable", t.stage, t.status)
	}
	return t, nil
}

func decideCreditCheck(w *models.Workflow, payload models.CreditCheckPayload, cfg Config) *transition {
	if w.Stage != models.StageCapture {
		return ignore(w, "credit check already consumed")
	}
	score := payload.Score
	source := payload.Source
	mutate := func(c *models.Context) {
		c.CreditScore = &score
		c.CreditSource = source
	}
	if score < cfg.CreditScoreFloor {
		return &transition{
			status: models.StatusFailed,
			stage:  w.Stage,
			mutate: mutate,
			note:   fmt.Sprintf("credit score %d below floor %d", score, cfg.CreditScoreFloor),
		}
	}
	return &transition{
		status:  models.StatusInProgress,
		stage:   models.StageQuotation,
		mutate:  mutate,
		effects: []effect{{kind: effectDraftQuote}},
	}
}

func decideFormSubmitted(w *models.Workflow, payload models.FormSubmittedPayload) *transition {
	if payload.FormType != string(form.TypeComplianceQuestionnaire) {
		return ignore(w, fmt.Sprintf("%s form submission recorded", payload.FormType))
	}
	if w.Status == models.StatusPending {
		return ignore(w, "compliance form recorded before the workflow advanced")
	}
	status := w.Status
	if status == models.StatusTimeout {
		// The awaited form arrived; resume the human review.
		status = models.StatusAwaitingHuman
	}
	return &transition{
		status:  status,
		stage:   w.Stage,
		mutate:  func(c *models.Context) { c.ComplianceFormComplete = true },
		effects: []effect{{kind: effectCancelComplianceTimer}},
	}
}

func decideAnalysis(w *models.Workflow, payload models.AnalysisCompletedPayload, cfg Config) *transition {
	if w.Stage != models.StageVerification {
		return ignore(w, "analysis results only apply at the verification stage")
	}
	assessment := payload.Assessment
	listed := payload.SanctionsListed
	mutate := func(c *models.Context) {
		c.Assessment = &assessment
		c.SanctionsListed = &listed
	}
	if listed {
		return &transition{
			status: models.StatusAwaitingHuman,
			stage:  w.Stage,
			mutate: mutate,
			note:   "sanctions list hit requires manual review",
		}
	}
	if assessment.Recommendation == models.RecommendAutoApprove && assessment.TrustScore >= cfg.TrustScoreThreshold {
		return &transition{
			status: models.StatusAwaitingHuman,
			stage:  models.StageIntegration,
			mutate: mutate,
			note:   fmt.Sprintf("verification auto-approved at trust score %d", assessment.TrustScore),
		}
	}
	return &transition{
		status: models.StatusAwaitingHuman,
		stage:  w.Stage,
		mutate: mutate,
		note:   "verification requires a risk manager decision",
	}
}

func decideRiskDecision(w *models.Workflow, payload models.RiskDecisionPayload) (*transition, error) {
	if w.Stage != models.StageVerification {
		return nil, dErrors.Newf(dErrors.CodeConflict,
			"risk decisions only apply at the verification stage, workflow is at %s", w.Stage)
	}
	switch payload.Outcome {
	case models.OutcomeApproved:
		return &transition{
			status: models.StatusAwaitingHuman,
			stage:  models.StageIntegration,
			note:   "risk approved; awaiting final sign-off",
		}, nil
	case models.OutcomeRejected:
		return &transition{
			status: models.StatusFailed,
			stage:  w.Stage,
			note:   fmt.Sprintf("risk rejected: %s", payload.Reason),
		}, nil
	case models.OutcomeRequestMoreInfo:
		return &transition{
			status: models.StatusAwaitingHuman,
			stage:  w.Stage,
			note:   "risk requested more information",
			mutate: func(c *models.Context) { c.ComplianceFormComplete = false },
			effects: []effect{
				{kind: effectReissueComplianceForm},
				{kind: effectScheduleComplianceTimer},
			},
		}, nil
	default:
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid risk outcome %q", payload.Outcome)
	}
}

func decideFinalApproval(w *models.Workflow, payload models.FinalApprovalPayload) (*transition, error) {
	if w.Stage != models.StageIntegration {
		return nil, dErrors.Newf(dErrors.CodeConflict,
			"final approval only applies at the integration stage, workflow is at %s", w.Stage)
	}
	if !payload.ContractSigned && !w.Context.ContractSigned {
		return nil, dErrors.New(dErrors.CodeConflict, "final approval requires a signed contract")
	}
	if !payload.ComplianceFormComplete && !w.Context.ComplianceFormComplete {
		return nil, dErrors.New(dErrors.CodeConflict, "final approval requires the completed compliance form")
	}
	return &transition{
		status: models.StatusInProgress,
		stage:  w.Stage,
		mutate: func(c *models.Context) {
			c.ContractSigned = true
			c.ComplianceFormComplete = true
		},
		effects: []effect{{kind: effectProvision}},
	}, nil
}

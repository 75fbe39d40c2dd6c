package stagegate

import (
	"context"

	"github.com/aretw0/stagegate/internal/guardrail"
	"github.com/aretw0/stagegate/pkg/domain"
)

// Violation codes reported by the compliance guardrail.
const (
	CodeSlotReask        = guardrail.CodeSlotReask
	CodeGenericOpener    = guardrail.CodeGenericOpener
	CodeDeadEnd          = guardrail.CodeDeadEnd
	CodeInternalData     = guardrail.CodeInternalData
	CodePrematurePricing = guardrail.CodePrematurePricing
	CodeTooManyQuestions = guardrail.CodeTooManyQuestions
)

type (
	// Validation is the outcome of validating a draft.
	Validation = guardrail.Validation
	// ComplianceCheck is the outcome of a rewriting pass over a draft.
	ComplianceCheck = guardrail.Check
)

// ComplyRequest carries a drafted reply for a session.
type ComplyRequest struct {
	SessionID string `json:"session_id"`
	Draft     string `json:"draft"`
	// Classification of the turn the draft answers. When nil, an empty
	// message is classified against the session so rewrites still draw on
	// the clarifying questions for what is missing.
	Classification *domain.Classification `json:"classification,omitempty"`
}

// Validate checks a draft against the session without rewriting it.
func (e *Engine) Validate(ctx context.Context, sessionID, draft string) (Validation, error) {
	sc, err := e.sessions.LoadOrStart(ctx, sessionID)
	if err != nil {
		return Validation{}, err
	}
	return e.guardrail.Validate(draft, sc), nil
}

// FinalComplianceCheck rewrites a draft that opens generically, dead-ends or
// leaks internal data. It needs no session.
func (e *Engine) FinalComplianceCheck(draft string, cls domain.Classification, lang domain.Language) ComplianceCheck {
	return e.guardrail.FinalComplianceCheck(draft, cls, lang)
}

// Comply returns a reply that is compliant with the session's tracked state,
// rewriting the draft when it is not.
func (e *Engine) Comply(ctx context.Context, req ComplyRequest) (ComplianceCheck, error) {
	if req.SessionID == "" {
		return ComplianceCheck{}, ErrEmptySessionID
	}
	sc, err := e.sessions.LoadOrStart(ctx, req.SessionID)
	if err != nil {
		return ComplianceCheck{}, err
	}

	var cls domain.Classification
	if req.Classification != nil {
		cls = *req.Classification
	} else {
		cls = e.classifier.Classify("", sc.Data.Language, sc)
	}

	check := e.guardrail.Comply(req.Draft, sc, cls)
	e.emitCompliance(ctx, sc.CurrentStage, check)
	return check, nil
}

func (e *Engine) emitCompliance(ctx context.Context, s domain.Stage, check ComplianceCheck) {
	if e.hooks.OnCompliance == nil {
		return
	}
	codes := make([]string, 0, len(check.Violations))
	for _, c := range check.Codes() {
		codes = append(codes, string(c))
	}
	e.hooks.OnCompliance(ctx, &domain.ComplianceEvent{
		EventBase:  domain.EventBase{Timestamp: e.now(), Type: domain.EventCompliance},
		Stage:      s,
		Violations: codes,
		Rewritten:  check.WasModified,
	})
}

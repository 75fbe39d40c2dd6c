package stagegate

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/stagegate/pkg/domain"
)

// Completion is the outcome of reporting an executed action.
type Completion struct {
	Enforcement domain.EnforcementResult `json:"enforcement"`
	Response    domain.Response          `json:"response"`
	Session     *domain.SessionContext   `json:"session"`
}

// AttemptTransition merges message into the session and advances its stage
// without deciding an action. Turn is the full pipeline; this is the stage
// step alone for hosts that enforce separately.
func (e *Engine) AttemptTransition(ctx context.Context, sessionID, message string) (Transition, error) {
	if sessionID == "" {
		return Transition{}, ErrEmptySessionID
	}
	var tr Transition
	_, err := e.sessions.Update(ctx, sessionID, func(ctx context.Context, sc *domain.SessionContext) error {
		cls := e.classifier.Classify(message, e.lockedLanguage(sc), sc)
		var err error
		tr, err = e.stages.AttemptTransition(sc, message, cls)
		return err
	})
	if err != nil {
		return Transition{}, fmt.Errorf("transition failed: %w", err)
	}
	return tr, nil
}

// EnforceActionExecution evaluates the enforcement table for the session as it
// stands. It does not modify the session.
func (e *Engine) EnforceActionExecution(ctx context.Context, sessionID, intent string, risk domain.RiskLevel) (domain.EnforcementResult, error) {
	sc, err := e.sessions.LoadOrStart(ctx, sessionID)
	if err != nil {
		return domain.EnforcementResult{}, err
	}
	return e.enforcer.Decide(sc, intent, risk), nil
}

// AssertMandatoryActionExecuted fails with a *domain.MandatoryActionViolation
// when the session's enforcement decision mandated an action that status does
// not report as executed.
func (e *Engine) AssertMandatoryActionExecuted(ctx context.Context, sessionID, intent string, risk domain.RiskLevel, status domain.ExecutionStatus) error {
	sc, err := e.sessions.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	_, err = e.enforcer.AssertMandatoryActionExecuted(sc, intent, risk, status)
	e.emitViolation(ctx, err)
	return err
}

// Complete records what the action-execution collaborator did for the last
// turn and selects the response for it. A status carrying an execution error
// is answered with a retry invitation; any other status must satisfy the
// last decision or the call fails with a *domain.MandatoryActionViolation and
// the session is left unchanged.
func (e *Engine) Complete(ctx context.Context, sessionID string, status domain.ExecutionStatus) (*Completion, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}
	var out *Completion
	sc, err := e.sessions.Update(ctx, sessionID, func(ctx context.Context, sc *domain.SessionContext) error {
		res := e.enforcer.Decide(sc, sc.Intent, sc.Risk)
		if status.Error == "" {
			var err error
			res, err = e.enforcer.AssertMandatoryActionExecuted(sc, sc.Intent, sc.Risk, status)
			if err != nil {
				return err
			}
		}

		if status.ActionExecuted && status.ActionType == domain.ActionTypeExecuteSearch {
			sc.SearchExecuted = true
			sc.LastResultCount = 0
			if status.Results != nil {
				sc.LastResultCount = status.Results.Count
			}
		}
		if status.ActionExecuted {
			sc.PendingConsent = ""
		}

		out = &Completion{
			Enforcement: res,
			Response:    e.enforcer.Respond(sc, res, &status),
		}
		return nil
	})
	if err != nil {
		e.emitViolation(ctx, err)
		return nil, err
	}
	out.Session = sc
	return out, nil
}

func (e *Engine) emitViolation(ctx context.Context, err error) {
	var v *domain.MandatoryActionViolation
	if e.hooks.OnViolation == nil || !errors.As(err, &v) {
		return
	}
	e.hooks.OnViolation(ctx, &domain.ViolationEvent{
		EventBase:      domain.EventBase{Timestamp: e.now(), Type: domain.EventViolation},
		Stage:          v.Stage,
		ExpectedAction: v.ExpectedAction,
	})
}

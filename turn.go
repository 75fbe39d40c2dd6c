package stagegate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/stagegate/internal/classify"
	"github.com/aretw0/stagegate/internal/stage"
	"github.com/aretw0/stagegate/pkg/domain"
)

// ErrEmptySessionID is returned when a request names no session.
var ErrEmptySessionID = errors.New("session id is required")

// errReplayed aborts the session update of a redelivered turn so nothing is saved.
var errReplayed = errors.New("turn already applied")

// TurnRequest is one incoming user message.
type TurnRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	// TurnID makes redelivery of any of the last domain.RecentTurnWindow turns
	// safe. A new one is generated when empty.
	TurnID string `json:"turn_id,omitempty"`
}

// TurnResult is the decision for one turn.
type TurnResult struct {
	SessionID      string                   `json:"session_id"`
	TurnID         string                   `json:"turn_id"`
	Replayed       bool                     `json:"replayed,omitempty"`
	Classification domain.Classification    `json:"classification"`
	Transition     Transition               `json:"transition"`
	Enforcement    domain.EnforcementResult `json:"enforcement"`
	Response       domain.Response          `json:"response"`
	Rule           domain.StageRule         `json:"rule"`
	Session        *domain.SessionContext   `json:"session"`
}

// Turn runs the pipeline for one message: classify, extract and transition,
// enforce, then select a compliant response. The session is read, modified and
// saved under its lock; a failing step saves nothing.
func (e *Engine) Turn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	if req.SessionID == "" {
		return nil, ErrEmptySessionID
	}
	start := e.now()
	turnID := req.TurnID
	if turnID == "" {
		turnID = uuid.NewString()
	}

	var res *TurnResult
	_, err := e.sessions.Update(ctx, req.SessionID, func(ctx context.Context, sc *domain.SessionContext) error {
		if sc.AppliedTurn(req.TurnID) {
			res = e.replay(sc, req)
			return errReplayed
		}

		var err error
		res, err = e.apply(sc, req.Message, turnID)
		return err
	})
	if err != nil && !errors.Is(err, errReplayed) {
		return nil, fmt.Errorf("turn failed: %w", err)
	}

	e.emitTurn(ctx, res, e.now().Sub(start))
	return res, nil
}

func (e *Engine) apply(sc *domain.SessionContext, message, turnID string) (*TurnResult, error) {
	cls := e.classifier.Classify(message, e.lockedLanguage(sc), sc)

	tr, err := e.stages.AttemptTransition(sc, message, cls)
	if err != nil {
		return nil, err
	}
	// The stage engine's result wins over the classifier's recommendation.
	classify.Recommend(&cls, sc.CurrentStage)

	sc.Intent = cls.Intent
	sc.Risk = cls.RiskLevel
	sc.Emotion = cls.Emotion
	sc.Turns++
	sc.RecordTurn(turnID)
	e.router.Settle(sc)

	enf := e.enforcer.Decide(sc, cls.Intent, cls.RiskLevel)
	enf.StageBefore = tr.StageBefore
	switch enf.ActionType {
	case domain.ActionTypeAskConsent:
		sc.PendingConsent = enf.Consent
	case domain.ActionTypeExecuteSearch, domain.ActionTypeInitiateBooking:
		sc.PendingConsent = ""
	}

	e.logger.Debug("Turn applied",
		"session_id", sc.SessionID,
		"stage_before", tr.StageBefore,
		"stage_after", sc.CurrentStage,
		"action", enf.ActionType,
	)

	return &TurnResult{
		SessionID:      sc.SessionID,
		TurnID:         turnID,
		Classification: cls,
		Transition:     tr,
		Enforcement:    enf,
		Response:       e.enforcer.Respond(sc, enf, nil),
		Rule:           stage.Rule(sc.CurrentStage),
		Session:        sc.Clone(),
	}, nil
}

// replay recomputes the decision of an already applied turn without touching sc.
func (e *Engine) replay(sc *domain.SessionContext, req TurnRequest) *TurnResult {
	cls := e.classifier.Classify(req.Message, e.lockedLanguage(sc), sc)
	classify.Recommend(&cls, sc.CurrentStage)
	enf := e.enforcer.Decide(sc, cls.Intent, cls.RiskLevel)

	e.logger.Info("Turn replayed", "session_id", sc.SessionID, "stage", sc.CurrentStage)
	return &TurnResult{
		SessionID:      sc.SessionID,
		TurnID:         req.TurnID,
		Replayed:       true,
		Classification: cls,
		Transition: Transition{
			StageBefore: sc.CurrentStage,
			NewStage:    sc.CurrentStage,
			Allowed:     true,
			UpdatedData: sc.Data.Clone(),
			Forbidden:   stage.Forbidden(sc.CurrentStage),
		},
		Enforcement: enf,
		Response:    e.enforcer.Respond(sc, enf, nil),
		Rule:        stage.Rule(sc.CurrentStage),
		Session:     sc.Clone(),
	}
}

// lockedLanguage returns the session language once locked, else the empty
// language so the classifier phrases questions in the detected one.
func (e *Engine) lockedLanguage(sc *domain.SessionContext) domain.Language {
	if sc.Data.LanguageLocked {
		return sc.Data.Language
	}
	return ""
}

func (e *Engine) emitTurn(ctx context.Context, res *TurnResult, d time.Duration) {
	if e.hooks.OnTurn == nil || res == nil {
		return
	}
	e.hooks.OnTurn(ctx, &domain.TurnEvent{
		EventBase:       domain.EventBase{Timestamp: e.now(), Type: domain.EventTurn},
		StageBefore:     res.Transition.StageBefore,
		StageAfter:      res.Session.CurrentStage,
		Action:          res.Enforcement.ActionType,
		FallbackBlocked: res.Enforcement.BlockFallback,
		Intent:          res.Classification.Intent,
		Risk:            res.Classification.RiskLevel,
		Chaos:           res.Classification.Chaos,
		Language:        res.Session.Data.Language,
		Replayed:        res.Replayed,
		Duration:        d,
	})
}

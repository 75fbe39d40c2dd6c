package stagegate

import (
	"context"
	"fmt"

	"github.com/aretw0/stagegate/internal/stage"
	"github.com/aretw0/stagegate/pkg/domain"
	"github.com/aretw0/stagegate/pkg/handoff"
)

// HandoffResult is a routed handoff and the contract the next agent resumes from.
type HandoffResult struct {
	Route    handoff.Route     `json:"route"`
	Contract *handoff.Contract `json:"contract"`
}

// Handoff moves the session to another team. The target is the intended team
// unless the loop guard forces the default agent. The session must carry an
// intent, a stage, a language and slots; otherwise the call fails with a
// *domain.MissingStateError and nothing changes.
func (e *Engine) Handoff(ctx context.Context, sessionID string, intended domain.Team) (*HandoffResult, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}
	var out *HandoffResult
	_, err := e.sessions.Update(ctx, sessionID, func(ctx context.Context, sc *domain.SessionContext) error {
		route := e.router.Route(sc, intended)
		contract, err := handoff.Create(handoff.StateFromSession(sc), route.From, route.To, e.now())
		if err != nil {
			return err
		}
		out = &HandoffResult{Route: route, Contract: contract}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("handoff failed: %w", err)
	}

	if e.hooks.OnHandoff != nil {
		e.hooks.OnHandoff(ctx, &domain.HandoffEvent{
			EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventHandoff},
			From:      out.Route.From,
			To:        out.Route.To,
			Forced:    out.Route.Forced,
		})
	}
	e.logger.Info("Handoff", "from", out.Route.From, "to", out.Route.To, "forced", out.Route.Forced)
	return out, nil
}

// Resume applies a handoff contract to sessionID so the receiving agent
// continues without re-asking anything. Slots merge by confidence, consents
// are only ever granted and the stage only moves forward.
func (e *Engine) Resume(ctx context.Context, sessionID string, contract *handoff.Contract) (*domain.SessionContext, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}
	state, err := handoff.StateFromContract(contract)
	if err != nil {
		return nil, err
	}

	sc, err := e.sessions.Update(ctx, sessionID, func(ctx context.Context, sc *domain.SessionContext) error {
		sc.Data.Merge(state.Slots)
		sc.Data.Language = state.Language
		sc.Data.LanguageLocked = true

		if state.Consents.SearchPermission {
			sc.Consents.Grant(domain.ConsentSearch)
		}
		if state.Consents.BookingPermission {
			sc.Consents.Grant(domain.ConsentBooking)
		}
		if _, err := e.stages.Restore(sc, state.Stage, stage.TriggerResumed); err != nil {
			return err
		}

		sc.Intent = state.Intent
		sc.Emotion = state.Emotion
		sc.ActiveAgent = contract.ToAgent
		sc.ConsecutiveHandoffs = state.HandoffCount
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("resume failed: %w", err)
	}
	e.logger.Info("Session resumed", "stage", sc.CurrentStage, "agent", sc.ActiveAgent)
	return sc, nil
}

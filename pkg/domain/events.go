package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTurn       EventType = "turn"
	EventCompliance EventType = "compliance"
	EventViolation  EventType = "violation"
	EventHandoff    EventType = "handoff"
)

// EventBase contains common fields for all events.
// Events never carry message text or session identifiers.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// TurnEvent summarizes one orchestrated turn.
type TurnEvent struct {
	EventBase
	StageBefore     Stage         `json:"stage_before"`
	StageAfter      Stage         `json:"stage_after"`
	Action          ActionType    `json:"action"`
	FallbackBlocked bool          `json:"fallback_blocked"`
	Intent          string        `json:"intent"`
	Risk            RiskLevel     `json:"risk"`
	Chaos           ChaosCategory `json:"chaos"`
	Language        Language      `json:"language"`
	Replayed        bool          `json:"replayed,omitempty"`
	Duration        time.Duration `json:"duration"`
}

// ComplianceEvent summarizes a guardrail pass over a draft.
type ComplianceEvent struct {
	EventBase
	Stage      Stage    `json:"stage"`
	Violations []string `json:"violations"`
	Rewritten  bool     `json:"rewritten"`
}

// ViolationEvent is emitted when a mandatory action was not executed.
type ViolationEvent struct {
	EventBase
	Stage          Stage      `json:"stage"`
	ExpectedAction ActionType `json:"expected_action"`
}

// HandoffEvent records a handoff between teams.
type HandoffEvent struct {
	EventBase
	From   Team `json:"from"`
	To     Team `json:"to"`
	Forced bool `json:"forced"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnTurn       func(context.Context, *TurnEvent)
	OnCompliance func(context.Context, *ComplianceEvent)
	OnViolation  func(context.Context, *ViolationEvent)
	OnHandoff    func(context.Context, *HandoffEvent)
}

// Combine returns hooks that call every non-nil hook of each set in order.
func Combine(sets ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, set := range sets {
		set := set
		if set.OnTurn != nil {
			prev := out.OnTurn
			out.OnTurn = func(ctx context.Context, e *TurnEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				set.OnTurn(ctx, e)
			}
		}
		if set.OnCompliance != nil {
			prev := out.OnCompliance
			out.OnCompliance = func(ctx context.Context, e *ComplianceEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				set.OnCompliance(ctx, e)
			}
		}
		if set.OnViolation != nil {
			prev := out.OnViolation
			out.OnViolation = func(ctx context.Context, e *ViolationEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				set.OnViolation(ctx, e)
			}
		}
		if set.OnHandoff != nil {
			prev := out.OnHandoff
			out.OnHandoff = func(ctx context.Context, e *HandoffEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				set.OnHandoff(ctx, e)
			}
		}
	}
	return out
}

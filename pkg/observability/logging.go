package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/stagegate/pkg/domain"
)

// LogHooks returns lifecycle hooks that write one structured line per event.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurn: func(ctx context.Context, e *domain.TurnEvent) {
			logger.InfoContext(ctx, "turn",
				"stage_before", e.StageBefore,
				"stage_after", e.StageAfter,
				"action", e.Action,
				"fallback_blocked", e.FallbackBlocked,
				"intent", e.Intent,
				"risk", e.Risk,
				"chaos", e.Chaos,
				"language", e.Language,
				"replayed", e.Replayed,
				"duration", e.Duration,
			)
		},
		OnCompliance: func(ctx context.Context, e *domain.ComplianceEvent) {
			if !e.Rewritten {
				return
			}
			logger.InfoContext(ctx, "response_rewritten", "stage", e.Stage, "violations", e.Violations)
		},
		OnViolation: func(ctx context.Context, e *domain.ViolationEvent) {
			logger.WarnContext(ctx, "mandatory_action_violation", "stage", e.Stage, "expected_action", e.ExpectedAction)
		},
		OnHandoff: func(ctx context.Context, e *domain.HandoffEvent) {
			logger.InfoContext(ctx, "handoff", "from", e.From, "to", e.To, "forced", e.Forced)
		},
	}
}

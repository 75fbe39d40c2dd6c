package observability

import (
	"context"
	"strconv"

	"github.com/aretw0/stagegate/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "stagegate"

// Metrics holds the Prometheus collectors fed by the lifecycle hooks.
type Metrics struct {
	Turns        *prometheus.CounterVec
	TurnDuration *prometheus.HistogramVec
	Transitions  *prometheus.CounterVec
	Compliance   *prometheus.CounterVec
	Violations   *prometheus.CounterVec
	Mandatory    *prometheus.CounterVec
	Handoffs     *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Orchestrated turns by resulting stage, action and classification.",
		}, []string{"stage", "action", "fallback_blocked", "intent", "risk", "chaos", "language"}),
		TurnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Time spent deciding a turn.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}, []string{"action"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_transitions_total",
			Help:      "Turns that moved the conversation to a later stage.",
		}, []string{"from", "to"}),
		Compliance: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compliance_checks_total",
			Help:      "Guardrail passes over drafted responses.",
		}, []string{"stage", "rewritten"}),
		Violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guardrail_violations_total",
			Help:      "Guardrail violations by code.",
		}, []string{"stage", "code"}),
		Mandatory: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mandatory_action_violations_total",
			Help:      "Required actions that were not executed.",
		}, []string{"stage", "expected_action"}),
		Handoffs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handoffs_total",
			Help:      "Handoffs between agent teams.",
		}, []string{"from", "to", "forced"}),
	}

	for _, c := range []prometheus.Collector{m.Turns, m.TurnDuration, m.Transitions, m.Compliance, m.Violations, m.Mandatory, m.Handoffs} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurn: func(_ context.Context, e *domain.TurnEvent) {
			if e.Replayed {
				return
			}
			m.Turns.WithLabelValues(
				string(e.StageAfter),
				string(e.Action),
				strconv.FormatBool(e.FallbackBlocked),
				e.Intent,
				string(e.Risk),
				string(e.Chaos),
				string(e.Language),
			).Inc()
			m.TurnDuration.WithLabelValues(string(e.Action)).Observe(e.Duration.Seconds())
			if e.StageAfter != e.StageBefore {
				m.Transitions.WithLabelValues(string(e.StageBefore), string(e.StageAfter)).Inc()
			}
		},
		OnCompliance: func(_ context.Context, e *domain.ComplianceEvent) {
			m.Compliance.WithLabelValues(string(e.Stage), strconv.FormatBool(e.Rewritten)).Inc()
			for _, code := range e.Violations {
				m.Violations.WithLabelValues(string(e.Stage), code).Inc()
			}
		},
		OnViolation: func(_ context.Context, e *domain.ViolationEvent) {
			m.Mandatory.WithLabelValues(string(e.Stage), string(e.ExpectedAction)).Inc()
		},
		OnHandoff: func(_ context.Context, e *domain.HandoffEvent) {
			m.Handoffs.WithLabelValues(string(e.From), string(e.To), strconv.FormatBool(e.Forced)).Inc()
		},
	}
}

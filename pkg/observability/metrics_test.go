package observability_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"log/slog"

	"github.com/aretw0/stagegate/pkg/domain"
	"github.com/aretw0/stagegate/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, c.Write(&out))
	return out.GetCounter().GetValue()
}

func searchTurn() *domain.TurnEvent {
	return &domain.TurnEvent{
		EventBase:       domain.EventBase{Type: domain.EventTurn, Timestamp: time.Now()},
		StageBefore:     domain.StageNarrowing,
		StageAfter:      domain.StageReadyToSearch,
		Action:          domain.ActionTypeExecuteSearch,
		FallbackBlocked: true,
		Intent:          domain.IntentFlightSearch,
		Risk:            domain.RiskLow,
		Chaos:           domain.ChaosClear,
		Language:        domain.LanguageEnglish,
		Duration:        2 * time.Millisecond,
	}
}

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnTurn(ctx, searchTurn())
	replay := searchTurn()
	replay.Replayed = true
	hooks.OnTurn(ctx, replay)

	assert.Equal(t, 1.0, value(t, m.Turns.WithLabelValues(
		"READY_TO_SEARCH", "execute_search", "true", "flight_search", "LOW", "CLEAR_INTENT", "en")))
	assert.Equal(t, 1.0, value(t, m.Transitions.WithLabelValues("NARROWING", "READY_TO_SEARCH")))

	hooks.OnCompliance(ctx, &domain.ComplianceEvent{Stage: domain.StageNarrowing, Violations: []string{"slot_reask", "too_many_questions"}, Rewritten: true})
	assert.Equal(t, 1.0, value(t, m.Compliance.WithLabelValues("NARROWING", "true")))
	assert.Equal(t, 1.0, value(t, m.Violations.WithLabelValues("NARROWING", "slot_reask")))

	hooks.OnViolation(ctx, &domain.ViolationEvent{Stage: domain.StageReadyToSearch, ExpectedAction: domain.ActionTypeExecuteSearch})
	assert.Equal(t, 1.0, value(t, m.Mandatory.WithLabelValues("READY_TO_SEARCH", "execute_search")))

	hooks.OnHandoff(ctx, &domain.HandoffEvent{From: domain.TeamCustomerService, To: domain.TeamFlights})
	assert.Equal(t, 1.0, value(t, m.Handoffs.WithLabelValues("customer-service", "flight-operations", "false")))
}

func TestMetrics_DoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	_, err = observability.NewMetrics(reg)
	assert.Error(t, err)
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	hooks := observability.LogHooks(slog.New(slog.NewJSONHandler(&buf, nil)))
	ctx := context.Background()

	hooks.OnTurn(ctx, searchTurn())
	hooks.OnCompliance(ctx, &domain.ComplianceEvent{Stage: domain.StageDiscovery})
	hooks.OnHandoff(ctx, &domain.HandoffEvent{From: domain.TeamFlights, To: domain.TeamCustomerService, Forced: true})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2, "compliant drafts are not logged")
	assert.Contains(t, lines[0], `"action":"execute_search"`)
	assert.Contains(t, lines[1], `"forced":true`)
}

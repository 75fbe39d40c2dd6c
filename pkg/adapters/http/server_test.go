package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stagegate"
	httpAdapter "github.com/aretw0/stagegate/pkg/adapters/http"
	"github.com/aretw0/stagegate/pkg/domain"
	"github.com/aretw0/stagegate/pkg/runner"
)

func newServer(t *testing.T, opts ...httpAdapter.Option) http.Handler {
	t.Helper()
	now := time.Date(2026, time.October, 16, 10, 0, 0, 0, time.UTC)
	eng, err := stagegate.New(stagegate.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	return httpAdapter.NewHandler(eng, opts...)
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestServer_TurnAndComplete(t *testing.T) {
	h := newServer(t)

	w := do(t, h, "POST", "/sessions/s1/turns", map[string]string{"message": "I want to fly from Lisbon to Paris on 10 November"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[stagegate.TurnResult](t, w)
	assert.Equal(t, domain.ActionTypeAskConsent, res.Enforcement.ActionType)
	assert.Equal(t, domain.StageReadyToSearch, res.Session.CurrentStage)

	w = do(t, h, "POST", "/sessions/s1/turns", map[string]string{"message": "yes, please search"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.ActionTypeExecuteSearch, decode[stagegate.TurnResult](t, w).Enforcement.ActionType)

	w = do(t, h, "POST", "/sessions/s1/complete", domain.ExecutionStatus{ActionType: domain.ActionTypeExecuteSearch})
	assert.Equal(t, http.StatusConflict, w.Code, "skipping a mandated search is a violation")
	errBody := decode[httpAdapter.ErrorResponse](t, w)
	assert.Contains(t, errBody.Error, "execute_search")
	assert.NotEmpty(t, errBody.Response)

	w = do(t, h, "POST", "/sessions/s1/complete", domain.ExecutionStatus{
		ActionExecuted: true,
		ActionType:     domain.ActionTypeExecuteSearch,
		Results:        &domain.SearchResults{Count: 3},
	})
	require.Equal(t, http.StatusOK, w.Code)
	done := decode[stagegate.Completion](t, w)
	assert.Equal(t, domain.ResponseResults, done.Response.Kind)
	assert.True(t, done.Session.SearchExecuted)

	w = do(t, h, "GET", "/sessions/s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode[domain.SessionContext](t, w).LastResultCount)

	w = do(t, h, "DELETE", "/sessions/s1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, "GET", "/sessions/s1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Comply(t *testing.T) {
	h := newServer(t)
	do(t, h, "POST", "/sessions/s1/turns", map[string]string{"message": "I want to fly to Paris"})

	w := do(t, h, "POST", "/sessions/s1/comply", map[string]string{"draft": "Where would you like to go?"})
	require.Equal(t, http.StatusOK, w.Code)
	check := decode[stagegate.ComplianceCheck](t, w)
	assert.True(t, check.WasModified)
	assert.NotContains(t, check.Response, "Where would you like to go?")
}

func TestServer_HandoffAndResume(t *testing.T) {
	h := newServer(t)

	w := do(t, h, "POST", "/sessions/s1/handoff", map[string]string{"target": "flight-operations"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "a fresh session has no intent to hand over")

	do(t, h, "POST", "/sessions/s1/turns", map[string]string{"message": "I want to fly from Lisbon to Paris on 10 November"})
	w = do(t, h, "POST", "/sessions/s1/handoff", map[string]string{"target": "flight-operations"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode[stagegate.HandoffResult](t, w)
	require.NotNil(t, out.Contract)
	assert.Equal(t, domain.TeamFlights, out.Contract.ToAgent)

	w = do(t, h, "POST", "/handoff/resume", map[string]any{"session_id": "s2", "contract": out.Contract})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sc := decode[domain.SessionContext](t, w)
	assert.Equal(t, domain.StageReadyToSearch, sc.CurrentStage)
	assert.Equal(t, "Paris", sc.Data.Value(domain.SlotDestination))

	w = do(t, h, "POST", "/handoff/resume", map[string]any{"session_id": "s3", "contract": map[string]any{"id": "x", "colour": "blue"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestServer_RejectsBadInput(t *testing.T) {
	t.Setenv(runner.EnvMaxInputSize, "16")
	h := newServer(t)

	w := do(t, h, "POST", "/sessions/s1/turns", map[string]string{"message": strings.Repeat("a", 32)})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "Let me make sure I get this right. Could you tell me a bit more about your trip?",
		decode[httpAdapter.ErrorResponse](t, w).Response)

	w = do(t, h, "POST", "/sessions/s1/turns", `{"msg": "typo"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, "POST", "/sessions/s1/turns", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_StagesHealthMetrics(t *testing.T) {
	h := newServer(t)

	w := do(t, h, "GET", "/stages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rules := decode[[]domain.StageRule](t, w)
	require.Len(t, rules, 5)
	assert.Equal(t, domain.StageDiscovery, rules[0].Stage)

	w = do(t, h, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, w)["status"])

	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/metrics", nil).Code)

	h = newServer(t, httpAdapter.WithMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})))
	w = do(t, h, "GET", "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "# metrics", w.Body.String())
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{stagegate.ErrEmptySessionID, http.StatusBadRequest},
		{domain.ErrSessionNotFound, http.StatusNotFound},
		{&domain.MandatoryActionViolation{}, http.StatusConflict},
		{&domain.MissingStateError{Fields: []string{"intent"}}, http.StatusUnprocessableEntity},
		{domain.ErrInvalidContract, http.StatusUnprocessableEntity},
		{runner.ErrInvalidUTF8, http.StatusUnprocessableEntity},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, httpAdapter.StatusFor(tt.err), tt.err.Error())
	}
}

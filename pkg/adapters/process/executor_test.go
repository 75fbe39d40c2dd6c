package process_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/aretw0/stagegate/pkg/adapters/process"
	"github.com/aretw0/stagegate/pkg/domain"
	"github.com/aretw0/stagegate/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.ActionExecutor = (*process.Executor)(nil)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("provider scripts use sh")
	}
}

func parisData() domain.TravelData {
	data := domain.NewTravelData(domain.LanguageEnglish)
	data.Merge(map[domain.SlotName]domain.Slot{
		domain.SlotDestination:   {Value: "Paris", Confidence: 0.9, Source: domain.SourceExact},
		domain.SlotDepartureDate: {Value: "2026-11-10", Confidence: 0.9, Source: domain.SourceExact},
	})
	return data
}

func TestExecutor_Execute(t *testing.T) {
	requireShell(t)
	ctx := context.Background()

	t.Run("object output", func(t *testing.T) {
		exec := process.NewExecutor()
		exec.Register(domain.ActionTypeExecuteSearch, "sh", "-c", `echo '{"count": 3}'`)

		status, err := exec.Execute(ctx, parisData(), domain.ActionTypeExecuteSearch)
		require.NoError(t, err)
		assert.True(t, status.ActionExecuted)
		assert.Equal(t, domain.ActionTypeExecuteSearch, status.ActionType)
		require.NotNil(t, status.Results)
		assert.Equal(t, 3, status.Results.Count)
	})

	t.Run("array output", func(t *testing.T) {
		exec := process.NewExecutor()
		exec.Register(domain.ActionTypeExecuteSearch, "sh", "-c", `echo '[{"id":1},{"id":2}]'`)

		status, err := exec.Execute(ctx, parisData(), domain.ActionTypeExecuteSearch)
		require.NoError(t, err)
		assert.Equal(t, 2, status.Results.Count)
	})

	t.Run("slots reach the process as env vars", func(t *testing.T) {
		exec := process.NewExecutor()
		exec.Register(domain.ActionTypeExecuteSearch, "sh", "-c",
			`printf '{"count": 1, "data": "%s %s %s"}' "$STAGEGATE_ACTION" "$STAGEGATE_SLOT_DESTINATION" "$STAGEGATE_SLOT_DEPARTURE_DATE"`)

		status, err := exec.Execute(ctx, parisData(), domain.ActionTypeExecuteSearch)
		require.NoError(t, err)
		assert.Equal(t, "execute_search Paris 2026-11-10", status.Results.Data)
	})

	t.Run("failing process is reported in the status", func(t *testing.T) {
		exec := process.NewExecutor()
		exec.Register(domain.ActionTypeInitiateBooking, "sh", "-c", "echo 'provider down' >&2; exit 3")

		status, err := exec.Execute(ctx, parisData(), domain.ActionTypeInitiateBooking)
		require.NoError(t, err)
		assert.False(t, status.ActionExecuted)
		assert.Contains(t, status.Error, "provider down")
	})

	t.Run("non JSON output", func(t *testing.T) {
		exec := process.NewExecutor()
		exec.Register(domain.ActionTypeExecuteSearch, "sh", "-c", "echo done")

		status, err := exec.Execute(ctx, parisData(), domain.ActionTypeExecuteSearch)
		require.NoError(t, err)
		assert.False(t, status.ActionExecuted)
		assert.Contains(t, status.Error, "expected JSON")
	})
}

func TestExecutor_Unregistered(t *testing.T) {
	exec := process.NewExecutor()

	_, err := exec.Execute(context.Background(), parisData(), domain.ActionTypeExecuteSearch)
	assert.ErrorContains(t, err, "no provider registered")

	_, err = exec.Execute(context.Background(), parisData(), domain.ActionTypeAskConsent)
	assert.ErrorContains(t, err, "not an executable action")
}

func TestLoadProviders(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "providers.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
providers:
  - action: execute_search
    command: ./search.sh
    args: ["--fast"]
    env:
      API_KEY: test
  - action: initiate_booking
    command: ./book.sh
`), 0o644))

	providers, err := process.LoadProviders(yamlPath)
	require.NoError(t, err)
	require.Len(t, providers, 2)
	assert.Equal(t, "./search.sh", providers[domain.ActionTypeExecuteSearch].Command)
	assert.Equal(t, []string{"--fast"}, providers[domain.ActionTypeExecuteSearch].Args)
	assert.Equal(t, "test", providers[domain.ActionTypeExecuteSearch].Environment["API_KEY"])

	jsonPath := filepath.Join(dir, "providers.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"providers":[{"action":"execute_search","command":"search"}]}`), 0o644))
	providers, err = process.LoadProviders(jsonPath)
	require.NoError(t, err)
	assert.Len(t, providers, 1)

	badPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badPath, []byte("providers:\n  - action: ask_consent\n    command: x\n"), 0o644))
	_, err = process.LoadProviders(badPath)
	assert.Error(t, err)

	providers, err = process.LoadProviders(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, providers)

	exec := process.NewExecutor(process.WithProviders(providers), process.WithBaseDir(dir))
	_, err = exec.Execute(context.Background(), parisData(), domain.ActionTypeExecuteSearch)
	assert.Error(t, err)
}

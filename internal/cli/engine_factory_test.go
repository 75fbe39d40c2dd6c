package cli

import (
	"bytes"
	"context"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stagegate"
	"github.com/aretw0/stagegate/internal/config"
	"github.com/aretw0/stagegate/internal/logging"
	"github.com/aretw0/stagegate/pkg/domain"
)

func TestNewRuntime_Backends(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"memory", func(c *config.Config) { c.Store.Backend = config.StoreMemory }},
		{"file", func(c *config.Config) {
			c.Store.Backend = config.StoreFile
			c.Store.Dir = t.TempDir()
		}},
		{"redis", func(c *config.Config) {
			c.Store.Backend = config.StoreRedis
			c.Redis.Addr = mr.Addr()
		}},
		{"encrypted and redacted", func(c *config.Config) {
			c.Store.Backend = config.StoreMemory
			c.Security.EncryptionKey = hex.EncodeToString(bytes.Repeat([]byte{7}, 32))
			c.Security.Redact = true
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)

			rt, err := NewRuntime(cfg, logging.NewNop(), false)
			require.NoError(t, err)
			defer rt.Close()

			ctx := context.Background()
			_, err = rt.Engine.Turn(ctx, turnReq("s1", "I want to fly to Paris"))
			require.NoError(t, err)

			sc, err := rt.Engine.Session(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, "Paris", sc.Data.Value(domain.SlotDestination))
			assert.Nil(t, rt.MetricsHandler())
		})
	}
}

func TestNewRuntime_Metrics(t *testing.T) {
	cfg := memoryConfig()
	cfg.Metrics = true

	rt, err := NewRuntime(cfg, logging.NewNop(), true)
	require.NoError(t, err)
	require.NotNil(t, rt.MetricsHandler())

	_, err = rt.Engine.Turn(context.Background(), turnReq("s1", "hello"))
	require.NoError(t, err)

	families, err := rt.Registry.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "stagegate_turns_total")
}

func TestParseKey(t *testing.T) {
	raw := strings.Repeat("k", 32)
	key, err := parseKey(raw)
	require.NoError(t, err)
	assert.Equal(t, []byte(raw), key)

	key, err = parseKey(hex.EncodeToString([]byte(raw)))
	require.NoError(t, err)
	assert.Equal(t, []byte(raw), key)

	_, err = parseKey("short")
	assert.Error(t, err)
}

func TestRunChat(t *testing.T) {
	rt, err := NewRuntime(memoryConfig(), logging.NewNop(), false)
	require.NoError(t, err)

	var out bytes.Buffer
	err = RunChat(context.Background(), rt, ChatOptions{
		SessionID: "chat",
		Status:    true,
		In:        strings.NewReader("I want to fly from Lisbon to Paris on 10 November\n/quit\n"),
		Out:       &out,
	}, logging.NewNop())
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Session 'chat' active.")
	assert.Contains(t, out.String(), "[READY_TO_SEARCH] ask_consent (search)")
	assert.Contains(t, out.String(), "Session 'chat' saved.")
}

func turnReq(id, msg string) stagegate.TurnRequest {
	return stagegate.TurnRequest{SessionID: id, Message: msg}
}

func memoryConfig() config.Config {
	cfg := config.Default()
	cfg.Store.Backend = config.StoreMemory
	return cfg
}

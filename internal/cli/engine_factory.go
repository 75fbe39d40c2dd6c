// Package cli wires configuration into a running engine for the stagegate
// command and hosts the interactive chat session.
package cli

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/stagegate"
	"github.com/aretw0/stagegate/internal/config"
	"github.com/aretw0/stagegate/pkg/adapters/file"
	"github.com/aretw0/stagegate/pkg/adapters/memory"
	"github.com/aretw0/stagegate/pkg/adapters/process"
	"github.com/aretw0/stagegate/pkg/adapters/redis"
	"github.com/aretw0/stagegate/pkg/domain"
	"github.com/aretw0/stagegate/pkg/observability"
	"github.com/aretw0/stagegate/pkg/persistence/middleware"
	"github.com/aretw0/stagegate/pkg/ports"
	"github.com/aretw0/stagegate/pkg/runner"
)

// Runtime is an engine together with the infrastructure built for it.
type Runtime struct {
	Engine   *stagegate.Engine
	Store    ports.SessionStore
	Executor *process.Executor
	Registry *prometheus.Registry

	closers []func() error
}

// MetricsHandler serves the runtime's registry, or nil when metrics are off.
func (rt *Runtime) MetricsHandler() http.Handler {
	if rt.Registry == nil {
		return nil
	}
	return promhttp.HandlerFor(rt.Registry, promhttp.HandlerOpts{})
}

// Close releases connections opened for the runtime.
func (rt *Runtime) Close() error {
	var errs []error
	for _, c := range rt.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// NewRuntime builds the engine described by cfg. Lifecycle events are logged
// at debug level when debug is set.
func NewRuntime(cfg config.Config, logger *slog.Logger, debug bool) (*Runtime, error) {
	rt := &Runtime{}
	if cfg.MaxInputSize > 0 {
		// STAGEGATE_MAX_INPUT_SIZE still wins when set.
		runner.DefaultMaxInputSize = cfg.MaxInputSize
	}

	store, locker, err := rt.openStore(cfg)
	if err != nil {
		return nil, err
	}
	store, err = wrapStore(store, cfg.Security)
	if err != nil {
		return nil, err
	}
	rt.Store = store

	hooks := []domain.LifecycleHooks{}
	if debug {
		hooks = append(hooks, observability.LogHooks(logger))
	}
	if cfg.Metrics {
		rt.Registry = prometheus.NewRegistry()
		rt.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m, err := observability.NewMetrics(rt.Registry)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		hooks = append(hooks, m.Hooks())
	}

	providers, err := process.LoadProviders(cfg.Providers)
	if err != nil {
		return nil, err
	}
	rt.Executor = process.NewExecutor(process.WithProviders(providers))

	opts := []stagegate.Option{
		stagegate.WithStore(store),
		stagegate.WithLogger(logger),
		stagegate.WithLockTTL(cfg.LockTTL),
		stagegate.WithLifecycleHooks(domain.Combine(hooks...)),
		stagegate.WithHandoffLimit(cfg.Handoff.MaxConsecutive, domain.Team(cfg.Handoff.DefaultAgent)),
	}
	if locker != nil {
		opts = append(opts, stagegate.WithLocker(locker))
	}
	if cfg.LexiconDir != "" {
		opts = append(opts, stagegate.WithLexiconDir(cfg.LexiconDir))
	}

	rt.Engine, err = stagegate.New(opts...)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return rt, nil
}

func (rt *Runtime) openStore(cfg config.Config) (ports.SessionStore, ports.DistributedLocker, error) {
	switch cfg.Store.Backend {
	case config.StoreFile:
		return file.New(cfg.Store.Dir), nil, nil
	case config.StoreRedis:
		client := backend.NewClient(&backend.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, client.Close)
		store := redis.NewFromClient(client, redis.WithPrefix(cfg.Redis.Prefix), redis.WithTTL(cfg.Redis.TTL))
		return store, redis.NewLocker(client, cfg.Redis.Prefix+"lock:"), nil
	default:
		return memory.NewStore(), nil, nil
	}
}

// wrapStore applies redaction and encryption at rest. Redaction runs before
// encryption so the sealed payload is already scrubbed.
func wrapStore(store ports.SessionStore, sec config.SecurityConfig) (ports.SessionStore, error) {
	var mws []middleware.Middleware
	if sec.Redact {
		mws = append(mws, middleware.NewRedactionMiddleware())
	}
	if sec.EncryptionKey != "" {
		key, err := parseKey(sec.EncryptionKey)
		if err != nil {
			return nil, err
		}
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, fmt.Errorf("invalid encryption key: %w", err)
		}
		mws = append(mws, enc)
	}
	return middleware.Chain(store, mws...), nil
}

// parseKey accepts a hex-encoded or raw 32-byte key.
func parseKey(s string) ([]byte, error) {
	if len(s) == 2*middleware.KeySize {
		if key, err := hex.DecodeString(s); err == nil {
			return key, nil
		}
	}
	if len(s) != middleware.KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes raw or %d hex characters", middleware.KeySize, 2*middleware.KeySize)
	}
	return []byte(s), nil
}

// Package config loads the stagegate process configuration.
//
// Values are layered: defaults, then an optional YAML file, then STAGEGATE_*
// environment variables. Nested keys map to environment names by joining the
// path with underscores, e.g. redis.addr is STAGEGATE_REDIS_ADDR.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STAGEGATE_"

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config is the full process configuration.
type Config struct {
	Addr string `mapstructure:"addr" yaml:"addr"`

	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
	Handoff  HandoffConfig  `mapstructure:"handoff" yaml:"handoff"`
	Security SecurityConfig `mapstructure:"security" yaml:"security"`

	LockTTL      time.Duration `mapstructure:"lock_ttl" yaml:"lock_ttl"`
	MaxInputSize int           `mapstructure:"max_input_size" yaml:"max_input_size"`
	Metrics      bool          `mapstructure:"metrics" yaml:"metrics"`
	LexiconDir   string        `mapstructure:"lexicon_dir" yaml:"lexicon_dir"`
	Providers    string        `mapstructure:"providers" yaml:"providers"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Dir     string `mapstructure:"dir" yaml:"dir"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

type HandoffConfig struct {
	MaxConsecutive int    `mapstructure:"max_consecutive" yaml:"max_consecutive"`
	DefaultAgent   string `mapstructure:"default_agent" yaml:"default_agent"`
}

// SecurityConfig controls the persistence middleware. The key is a 32-byte
// AES key, hex or raw; empty disables encryption at rest.
type SecurityConfig struct {
	EncryptionKey string `mapstructure:"encryption_key" yaml:"encryption_key"`
	Redact        bool   `mapstructure:"redact" yaml:"redact"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Addr: ":8080",
		Log:  LogConfig{Level: "info", Format: "text"},
		Store: StoreConfig{
			Backend: StoreFile,
			Dir:     ".stagegate/sessions",
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "stagegate:session:",
		},
		Handoff:      HandoffConfig{MaxConsecutive: 3, DefaultAgent: "customer-service"},
		LockTTL:      30 * time.Second,
		MaxInputSize: 4096,
	}
}

// Load reads path (optional) and the environment over the defaults. A
// missing file is only an error when path was given explicitly.
func Load(path string) (Config, error) {
	raw := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	overlayEnv(raw, os.Environ())

	cfg := Default()
	if err := decode(raw, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func decode(raw map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// overlayEnv writes every STAGEGATE_* variable that names a known key into raw.
func overlayEnv(raw map[string]any, environ []string) {
	keys := envKeys(reflect.TypeOf(Config{}), nil)
	for _, kv := range environ {
		name, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		path, known := keys[strings.TrimPrefix(name, EnvPrefix)]
		if !known {
			continue
		}
		set(raw, path, val)
	}
}

// envKeys maps the upper-cased underscore form of every leaf key to its path.
func envKeys(t reflect.Type, prefix []string) map[string][]string {
	out := map[string][]string{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}
		path := append(append([]string{}, prefix...), tag)
		if f.Type.Kind() == reflect.Struct {
			for k, v := range envKeys(f.Type, path) {
				out[k] = v
			}
			continue
		}
		out[strings.ToUpper(strings.Join(path, "_"))] = path
	}
	return out
}

func set(raw map[string]any, path []string, val string) {
	m := raw
	for _, p := range path[:len(path)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[path[len(path)-1]] = val
}

// Validate rejects values no component can run with.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if c.Handoff.MaxConsecutive < 1 {
		errs = append(errs, errors.New("handoff.max_consecutive must be at least 1"))
	}
	if c.MaxInputSize < 1 {
		errs = append(errs, errors.New("max_input_size must be positive"))
	}
	if c.LockTTL <= 0 {
		errs = append(errs, errors.New("lock_ttl must be positive"))
	}
	return errors.Join(errs...)
}

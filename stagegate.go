package stagegate

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/stagegate/internal/classify"
	"github.com/aretw0/stagegate/internal/enforce"
	"github.com/aretw0/stagegate/internal/extract"
	"github.com/aretw0/stagegate/internal/guardrail"
	"github.com/aretw0/stagegate/internal/lexicon"
	"github.com/aretw0/stagegate/internal/logging"
	"github.com/aretw0/stagegate/internal/stage"
	"github.com/aretw0/stagegate/pkg/adapters/memory"
	"github.com/aretw0/stagegate/pkg/domain"
	"github.com/aretw0/stagegate/pkg/handoff"
	"github.com/aretw0/stagegate/pkg/ports"
	"github.com/aretw0/stagegate/pkg/session"
)

// Transition is the stage engine's report for one turn.
type Transition = stage.Result

// Engine is the high-level entry point of the library. It owns the turn
// pipeline and is the only component that mutates session state.
type Engine struct {
	sessions   *session.Manager
	store      ports.SessionStore
	locker     ports.DistributedLocker
	lockTTL    time.Duration
	lexiconDir string

	lex        *lexicon.Lexicon
	extractor  *extract.Extractor
	classifier *classify.Classifier
	stages     *stage.Engine
	enforcer   *enforce.Enforcer
	guardrail  *guardrail.Guardrail
	router     *handoff.Router
	routerOpts []handoff.RouterOption

	hooks  domain.LifecycleHooks
	logger *slog.Logger
	now    func() time.Time
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore sets the session store. The default is an in-memory store.
func WithStore(store ports.SessionStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker serializes turns of one session across processes.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithLockTTL sets the TTL of distributed session locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.lockTTL = ttl
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock sets the clock used for dates, history and contract timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithHandoffLimit configures the handoff loop guard.
func WithHandoffLimit(maxConsecutive int, fallback domain.Team) Option {
	return func(e *Engine) {
		e.routerOpts = append(e.routerOpts, handoff.WithMaxConsecutive(maxConsecutive))
		if fallback != "" {
			e.routerOpts = append(e.routerOpts, handoff.WithDefaultAgent(fallback))
		}
	}
}

// WithLexiconDir replaces the embedded pattern tables with the YAML files in dir.
func WithLexiconDir(dir string) Option {
	return func(e *Engine) {
		e.lexiconDir = dir
	}
}

// New initializes an Engine. Without options it keeps sessions in memory and
// uses the embedded lexicon.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{
		lockTTL: session.DefaultLockTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}

	lex, err := eng.loadLexicon()
	if err != nil {
		return nil, err
	}
	eng.lex = lex

	eng.extractor = extract.New(lex, extract.WithClock(eng.now))
	eng.classifier = classify.New(lex, eng.extractor, classify.WithLogger(eng.logger))
	eng.enforcer = enforce.New(lex, eng.extractor, enforce.WithLogger(eng.logger))
	eng.guardrail = guardrail.New(lex, eng.extractor, guardrail.WithLogger(eng.logger))
	eng.stages, err = stage.New(lex, eng.extractor, stage.WithClock(eng.now), stage.WithLogger(eng.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to build stage chart: %w", err)
	}
	eng.router = handoff.NewRouter(append([]handoff.RouterOption{handoff.WithLogger(eng.logger)}, eng.routerOpts...)...)

	managerOpts := []session.Option{
		session.WithClock(eng.now),
		session.WithLogger(eng.logger),
		session.WithLockTTL(eng.lockTTL),
	}
	if eng.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(eng.locker))
	}
	eng.sessions = session.NewManager(eng.store, managerOpts...)

	return eng, nil
}

func (e *Engine) loadLexicon() (*lexicon.Lexicon, error) {
	if e.lexiconDir == "" {
		return lexicon.Default()
	}
	lex, err := lexicon.Load(os.DirFS(e.lexiconDir))
	if err != nil {
		return nil, fmt.Errorf("failed to load lexicon from %s: %w", e.lexiconDir, err)
	}
	return lex, nil
}

// Sessions returns the session manager backing the engine.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// Stages returns the rule of every stage in chart order.
func (e *Engine) Stages() []domain.StageRule {
	return stage.Rules()
}

// IsActionAllowed reports whether action is allowed in s.
func (e *Engine) IsActionAllowed(s domain.Stage, action domain.Action) bool {
	return stage.IsActionAllowed(s, action)
}

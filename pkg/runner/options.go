package runner

import (
	"log/slog"

	"github.com/aretw0/stagegate/pkg/ports"
)

// DefaultInputBufferSize is the default number of lines to buffer for input handlers.
const DefaultInputBufferSize = 64

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithEngine configures the engine that runs each turn. Required.
func WithEngine(engine Engine) Option {
	return func(r *Runner) {
		r.engine = engine
	}
}

// WithSessionID sets the conversation's session ID. Required.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		r.SessionID = id
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithExecutor configures the collaborator that carries out mandated actions.
// Without one, mandated actions are announced but left to the host.
func WithExecutor(executor ports.ActionExecutor) Option {
	return func(r *Runner) {
		r.Executor = executor
	}
}

// WithInterceptor configures the approval policy for mandated actions.
func WithInterceptor(interceptor ActionInterceptor) Option {
	return func(r *Runner) {
		r.Interceptor = interceptor
	}
}

// WithHeadless auto-approves mandated actions instead of asking the operator.
func WithHeadless(headless bool) Option {
	return func(r *Runner) {
		r.Headless = headless
	}
}

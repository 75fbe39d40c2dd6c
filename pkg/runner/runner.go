package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/stagegate"
	"github.com/aretw0/stagegate/internal/logging"
	"github.com/aretw0/stagegate/pkg/domain"
	"github.com/aretw0/stagegate/pkg/ports"
)

// Commands recognised on their own line instead of being sent as a turn.
const (
	CommandQuit  = "/quit"
	CommandReset = "/reset"
)

// Engine is the part of *stagegate.Engine the runner drives.
type Engine interface {
	Turn(ctx context.Context, req stagegate.TurnRequest) (*stagegate.TurnResult, error)
	Complete(ctx context.Context, sessionID string, status domain.ExecutionStatus) (*stagegate.Completion, error)
	Reset(ctx context.Context, sessionID string) error
}

// Runner handles the conversation loop using provided IO.
// It uses an IOHandler strategy to abstract the interaction mode (Text vs JSON).
type Runner struct {
	engine Engine

	// SessionID identifies the conversation.
	SessionID string

	// Handler is the strategy for IO. Defaults to a TextHandler on stdio.
	Handler IOHandler

	// Executor carries out mandated actions. If nil they are only announced.
	Executor ports.ActionExecutor

	// Interceptor approves mandated actions. If nil, headless runners
	// auto-approve and interactive ones ask through the Handler.
	Interceptor ActionInterceptor

	Headless bool

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger
}

// NewRunner creates a Runner from options.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reads messages until EOF, CommandQuit or ctx is done. A failed turn is
// reported through the handler and the conversation continues; only IO
// failures end the loop with an error.
func (r *Runner) Run(ctx context.Context) error {
	if r.engine == nil {
		return errors.New("runner: engine is required")
	}
	if r.SessionID == "" {
		return errors.New("runner: session id is required")
	}
	handler := r.resolveHandler()
	interceptor := r.resolveInterceptor(handler)
	logger := r.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	for {
		text, err := handler.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}

		switch strings.TrimSpace(text) {
		case "":
			continue
		case CommandQuit:
			return nil
		case CommandReset:
			if err := r.engine.Reset(ctx, r.SessionID); err != nil {
				return fmt.Errorf("reset failed: %w", err)
			}
			if err := handler.SystemOutput(ctx, "Session reset."); err != nil {
				return err
			}
			continue
		}

		res, err := r.engine.Turn(ctx, stagegate.TurnRequest{SessionID: r.SessionID, Message: text})
		if err != nil {
			logger.Error("Turn failed", "session_id", r.SessionID, "err", err)
			if err := handler.SystemOutput(ctx, fmt.Sprintf("turn failed: %v", err)); err != nil {
				return err
			}
			continue
		}
		if err := handler.Output(ctx, res); err != nil {
			return fmt.Errorf("output error: %w", err)
		}

		if err := r.execute(ctx, res, handler, interceptor, logger); err != nil {
			return err
		}
	}
}

// execute runs the action a turn mandated and reports it back to the engine.
func (r *Runner) execute(ctx context.Context, res *stagegate.TurnResult, handler IOHandler, interceptor ActionInterceptor, logger *slog.Logger) error {
	action := res.Enforcement.ActionType
	if !res.Enforcement.MustExecuteAction || !action.Executes() {
		return nil
	}
	if r.Executor == nil {
		return handler.SystemOutput(ctx, fmt.Sprintf("%s is mandated; no executor is configured", action))
	}

	allowed, reason, err := interceptor(ctx, res)
	if err != nil {
		return fmt.Errorf("action interceptor error: %w", err)
	}

	status := domain.ExecutionStatus{ActionType: action, Error: reason}
	if allowed {
		status, err = r.Executor.Execute(ctx, res.Session.Data, action)
		if err != nil {
			status = domain.ExecutionStatus{ActionType: action, Error: err.Error()}
		}
	}
	logger.Debug("Action executed", "action", action, "executed", status.ActionExecuted, "error", status.Error)

	done, err := r.engine.Complete(ctx, r.SessionID, status)
	if err != nil {
		var violation *domain.MandatoryActionViolation
		if errors.As(err, &violation) {
			return handler.SystemOutput(ctx, violation.Error())
		}
		return fmt.Errorf("complete failed: %w", err)
	}
	return handler.Completed(ctx, done)
}

// resolveHandler ensures a valid IOHandler is set.
func (r *Runner) resolveHandler() IOHandler {
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdout, WithStdin())
	}
	return r.Handler
}

// resolveInterceptor returns the configured or default interceptor.
func (r *Runner) resolveInterceptor(h IOHandler) ActionInterceptor {
	if r.Interceptor != nil {
		return r.Interceptor
	}
	if r.Headless {
		return AutoApproveMiddleware()
	}
	return ConfirmationMiddleware(h)
}

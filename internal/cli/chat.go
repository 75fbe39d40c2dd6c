package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/aretw0/stagegate"
	"github.com/aretw0/stagegate/internal/presentation/tui"
	"github.com/aretw0/stagegate/pkg/domain"
	"github.com/aretw0/stagegate/pkg/runner"
)

// ChatOptions contains the configuration for the chat command.
type ChatOptions struct {
	SessionID string
	Fresh     bool
	Headless  bool
	JSON      bool
	Status    bool

	In  io.Reader
	Out io.Writer
}

// RunChat runs an interactive conversation against rt until EOF, /quit or
// an interrupt signal. An existing session is resumed.
func RunChat(ctx context.Context, rt *Runtime, opts ChatOptions, logger *slog.Logger) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	quiet := opts.JSON || opts.Headless
	interactive := !quiet && tui.IsInteractive()

	sm := runner.NewSignalManager(ctx)
	defer sm.Stop()
	ctx = sm.Context()

	if opts.Fresh {
		if err := rt.Engine.Reset(ctx, opts.SessionID); err != nil {
			return fmt.Errorf("failed to reset session: %w", err)
		}
	}

	if interactive {
		tui.PrintBanner(opts.Out, stagegate.Version)
	}
	if !quiet {
		logSessionStatus(ctx, rt.Engine, opts.Out, opts.SessionID)
	}

	var handler runner.IOHandler
	if opts.JSON {
		handler = runner.NewJSONHandler(opts.Out, opts.In)
	} else {
		textOpts := []runner.TextHandlerOption{runner.WithInput(opts.In), runner.WithStatusLine(opts.Status)}
		if interactive {
			textOpts = append(textOpts, runner.WithTextHandlerRenderer(tui.NewRenderer()))
		}
		handler = runner.NewTextHandler(opts.Out, textOpts...)
	}

	runnerOpts := []runner.Option{
		runner.WithEngine(rt.Engine),
		runner.WithSessionID(opts.SessionID),
		runner.WithLogger(logger),
		runner.WithInputHandler(handler),
		runner.WithHeadless(opts.Headless),
	}
	if rt.Executor != nil && rt.Executor.Len() > 0 {
		runnerOpts = append(runnerOpts, runner.WithExecutor(rt.Executor))
	}
	r := runner.NewRunner(runnerOpts...)

	err := handleExecutionError(r.Run(ctx))
	if !quiet && err == nil {
		printSystemMessage(opts.Out, "Session '%s' saved.", opts.SessionID)
	}
	return err
}

func logSessionStatus(ctx context.Context, eng *stagegate.Engine, w io.Writer, sessionID string) {
	sc, err := eng.Session(ctx, sessionID)
	switch {
	case err == nil:
		printSystemMessage(w, "Resuming session '%s' at %s.", sessionID, sc.CurrentStage)
	case errors.Is(err, domain.ErrSessionNotFound):
		printSystemMessage(w, "Session '%s' active. Type /reset to start over, /quit to leave.", sessionID)
	default:
		printSystemMessage(w, "Session '%s' could not be loaded: %v", sessionID, err)
	}
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/stagegate/internal/config"
	"github.com/aretw0/stagegate/internal/logging"
)

// NewLogger configures the application logger from cfg. In debug mode the
// level is forced to debug; quiet discards everything below errors so chat
// output stays clean.
func NewLogger(cfg config.Config, debug, quiet bool) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	switch {
	case debug:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelError
	}
	return logging.NewWithFormat(level, cfg.Log.Format), nil
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

func isInterrupted(err error) bool {
	return err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, io.EOF))
}

func handleExecutionError(err error) error {
	if isInterrupted(err) {
		return nil // Exit 0 for interruptions
	}
	return err
}

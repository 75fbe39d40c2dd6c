package runner

import (
	"context"

	"github.com/aretw0/stagegate"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Input reads the next user message. io.EOF ends the conversation.
	Input(ctx context.Context) (string, error)

	// Output presents the decision of one turn.
	Output(ctx context.Context, res *stagegate.TurnResult) error

	// Completed presents the outcome of an executed action.
	Completed(ctx context.Context, c *stagegate.Completion) error

	// SystemOutput presents a meta-message (errors, approvals, status)
	// distinct from conversation content.
	SystemOutput(ctx context.Context, msg string) error
}

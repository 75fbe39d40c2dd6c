package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/stagegate"
	"github.com/aretw0/stagegate/pkg/domain"
)

// ContentRenderer transforms response text before it is printed, e.g.
// markdown to ANSI, without coupling the runner to a terminal library.
type ContentRenderer func(string) (string, error)

// TextHandler implements the standard text-based interface.
type TextHandler struct {
	linePump

	Writer   io.Writer
	Renderer ContentRenderer
	// Status prints the stage and enforcement decision under each reply.
	Status bool
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithInput reads user messages line by line from r.
func WithInput(r io.Reader) TextHandlerOption {
	return func(h *TextHandler) {
		h.source = r
	}
}

// WithStdin reads user messages from os.Stdin.
func WithStdin() TextHandlerOption {
	return WithInput(os.Stdin)
}

// WithStatusLine toggles the stage and action line printed under each reply.
func WithStatusLine(show bool) TextHandlerOption {
	return func(h *TextHandler) {
		h.Status = show
	}
}

// NewTextHandler creates a handler writing to w. Without WithInput, messages
// only arrive through FeedInput.
func NewTextHandler(w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{Writer: w}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Input prompts and returns the next sanitized line. Lines that fail
// sanitation are reported and the prompt is repeated.
func (h *TextHandler) Input(ctx context.Context) (string, error) {
	for {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		fmt.Fprint(h.Writer, "> ")

		text, err := h.next(ctx)
		if err != nil {
			return "", err
		}
		clean, err := SanitizeInput(strings.TrimSpace(text))
		if err != nil {
			fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
			continue
		}
		return clean, nil
	}
}

// Output prints the selected response and, when enabled, the status line.
func (h *TextHandler) Output(ctx context.Context, res *stagegate.TurnResult) error {
	h.print(res.Response.Text)
	if h.Status {
		fmt.Fprintln(h.Writer, statusLine(res))
	}
	return nil
}

// Completed prints the response chosen for an executed action.
func (h *TextHandler) Completed(ctx context.Context, c *stagegate.Completion) error {
	h.print(c.Response.Text)
	return nil
}

func (h *TextHandler) print(text string) {
	output := text
	if h.Renderer != nil {
		if rendered, err := h.Renderer(text); err == nil {
			output = rendered
		}
	}
	fmt.Fprintln(h.Writer, strings.TrimSpace(output))
}

// SystemOutput prints msg with a [System] prefix.
func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	fmt.Fprintf(h.Writer, "[System] %s\n", msg)
	return nil
}

func statusLine(res *stagegate.TurnResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  [%s] %s", res.Session.CurrentStage, res.Enforcement.ActionType)
	if res.Enforcement.Consent != "" {
		fmt.Fprintf(&b, " (%s)", res.Enforcement.Consent)
	}
	if res.Enforcement.BlockFallback {
		b.WriteString(" !fallback")
	}
	if len(res.Enforcement.MissingContext) > 0 {
		fmt.Fprintf(&b, " missing=%s", strings.Join(res.Enforcement.MissingContext, ","))
	}
	if res.Enforcement.ActionType == domain.ActionTypeNone && res.Enforcement.Reason != "" {
		fmt.Fprintf(&b, " (%s)", res.Enforcement.Reason)
	}
	return b.String()
}

package runner

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/stagegate"
)

// Event types emitted by JSONHandler, one JSON object per line.
const (
	EventTurn       = "turn"
	EventCompletion = "completion"
	EventSystem     = "system"
)

// Event is one line written by JSONHandler.
type Event struct {
	Type       string                `json:"type"`
	Turn       *stagegate.TurnResult `json:"turn,omitempty"`
	Completion *stagegate.Completion `json:"completion,omitempty"`
	Message    string                `json:"message,omitempty"`
}

// JSONHandler implements the IOHandler interface for JSON Lines.
type JSONHandler struct {
	linePump

	mu      sync.Mutex
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler writing events to w. r may be nil when
// messages arrive through FeedInput.
func NewJSONHandler(w io.Writer, r io.Reader) *JSONHandler {
	if w == nil {
		w = os.Stdout
	}
	h := &JSONHandler{Encoder: json.NewEncoder(w)}
	h.source = r
	return h
}

// Input accepts a JSON string, an object with a "message" field or raw text.
// Blank lines are skipped.
func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	for {
		line, err := h.next(ctx)
		if err != nil {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		text := line
		var s string
		var obj struct {
			Message string `json:"message"`
		}
		switch {
		case json.Unmarshal([]byte(line), &s) == nil:
			text = s
		case json.Unmarshal([]byte(line), &obj) == nil:
			text = obj.Message
		}

		clean, err := SanitizeInput(text)
		if err != nil {
			_ = h.SystemOutput(ctx, err.Error())
			continue
		}
		return clean, nil
	}
}

func (h *JSONHandler) emit(e Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Encoder.Encode(e)
}

// Output emits a turn event.
func (h *JSONHandler) Output(ctx context.Context, res *stagegate.TurnResult) error {
	return h.emit(Event{Type: EventTurn, Turn: res})
}

// Completed emits a completion event.
func (h *JSONHandler) Completed(ctx context.Context, c *stagegate.Completion) error {
	return h.emit(Event{Type: EventCompletion, Completion: c})
}

// SystemOutput emits a system event.
func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.emit(Event{Type: EventSystem, Message: msg})
}

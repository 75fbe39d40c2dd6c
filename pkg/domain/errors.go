package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrTerminalStage is returned when asked to advance past POST_BOOKING.
var ErrTerminalStage = errors.New("stage has no successor")

// ErrInvalidContract is returned when a handoff payload does not have the contract shape.
var ErrInvalidContract = errors.New("invalid handoff contract")

// MissingStateError lists every mandatory field absent from an agent state.
type MissingStateError struct {
	Fields []string
}

func (e *MissingStateError) Error() string {
	return fmt.Sprintf("missing mandatory state: %s", strings.Join(e.Fields, ", "))
}

// MandatoryActionViolation is raised when an action was required but not executed.
type MandatoryActionViolation struct {
	SessionID      string
	Stage          Stage
	ExpectedAction ActionType
	Reason         string
}

func (e *MandatoryActionViolation) Error() string {
	return fmt.Sprintf("mandatory action %q not executed (session=%s stage=%s): %s",
		e.ExpectedAction, e.SessionID, e.Stage, e.Reason)
}

// InvalidTransitionError marks a computed stage target outside the allowed adjacency.
// Reaching it is a defect.
type InvalidTransitionError struct {
	From Stage
	To   Stage
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid stage transition %s -> %s", e.From, e.To)
}

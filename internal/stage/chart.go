package stage

import (
	"fmt"
	"time"

	"github.com/aretw0/stagegate/pkg/domain"
	"github.com/felixgeelhaar/statekit"
)

const (
	chartID      = "stages"
	eventAdvance = statekit.EventType("ADVANCE")
)

// chartContext counts the transitions taken while stepping the chart.
type chartContext struct {
	advances int
}

func countAdvance(ctx **chartContext, _ statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	(*ctx).advances++
}

// Chart is the statechart of the five-stage forward chain. Every stage has a
// single ADVANCE event leading to its successor; POST_BOOKING is final.
type Chart struct {
	config *statekit.MachineConfig[*chartContext]
}

// NewChart builds the stage statechart.
func NewChart() (*Chart, error) {
	id := func(s domain.Stage) statekit.StateID { return statekit.StateID(s) }

	cfg, err := statekit.NewMachine[*chartContext](chartID).
		WithInitial(id(domain.StageDiscovery)).
		WithContext(&chartContext{}).
		WithAction("count", countAdvance).
		State(id(domain.StageDiscovery)).
		On(eventAdvance).Target(id(domain.StageNarrowing)).Do("count").
		Done().
		State(id(domain.StageNarrowing)).
		On(eventAdvance).Target(id(domain.StageReadyToSearch)).Do("count").
		Done().
		State(id(domain.StageReadyToSearch)).
		On(eventAdvance).Target(id(domain.StageReadyToBook)).Do("count").
		Done().
		State(id(domain.StageReadyToBook)).
		On(eventAdvance).Target(id(domain.StagePostBooking)).Do("count").
		Done().
		State(id(domain.StagePostBooking)).
		Final().
		Done().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build stage chart: %w", err)
	}
	return &Chart{config: cfg}, nil
}

// Step returns the stage that follows from. It returns ErrTerminalStage for
// the final stage.
func (c *Chart) Step(from domain.Stage) (next domain.Stage, err error) {
	if !from.Valid() {
		return "", &domain.InvalidTransitionError{From: from}
	}

	interp := statekit.NewInterpreter(c.config)
	ctx := &chartContext{}
	interp.UpdateContext(func(cc **chartContext) {
		*cc = ctx
	})
	interp.Start()

	snapshot := statekit.Snapshot[*chartContext]{
		MachineID:    chartID,
		CurrentState: statekit.StateID(from),
		Context:      ctx,
		CreatedAt:    time.Now(),
	}
	if err := interp.Restore(snapshot); err != nil {
		return "", fmt.Errorf("failed to restore chart at %s: %w", from, err)
	}
	if interp.Done() {
		return "", domain.ErrTerminalStage
	}

	// statekit panics on events the current state does not handle.
	defer func() {
		if r := recover(); r != nil {
			next, err = "", &domain.InvalidTransitionError{From: from}
		}
	}()
	interp.Send(statekit.Event{Type: eventAdvance})

	next = domain.Stage(interp.State().Value)
	if next == from || ctx.advances != 1 {
		return "", &domain.InvalidTransitionError{From: from}
	}
	return next, nil
}

// Verify checks that the rule table adjacency matches the chart exactly.
func (c *Chart) Verify(rules []domain.StageRule) error {
	for _, r := range rules {
		next, err := c.Step(r.Stage)
		switch {
		case r.Terminal():
			if err == nil {
				return &domain.InvalidTransitionError{From: r.Stage, To: next}
			}
		case err != nil:
			return fmt.Errorf("stage %s: %w", r.Stage, err)
		case len(r.NextStages) != 1 || r.NextStages[0] != next:
			return &domain.InvalidTransitionError{From: r.Stage, To: next}
		}
	}
	return nil
}

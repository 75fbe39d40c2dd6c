package stage

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/stagegate/internal/extract"
	"github.com/aretw0/stagegate/internal/lexicon"
	"github.com/aretw0/stagegate/internal/logging"
	"github.com/aretw0/stagegate/pkg/domain"
)

// Transition triggers recorded in the stage history.
const (
	TriggerDestination = "destination_known"
	TriggerExploratory = "exploratory_signal"
	TriggerDataReady   = "search_data_complete"
	TriggerSelection   = "option_selected"
	TriggerConfirmed   = "booking_confirmed"
	TriggerResumed     = "handoff_resumed"
)

// Result is the outcome of one AttemptTransition call.
type Result struct {
	StageBefore    domain.Stage             `json:"stage_before"`
	NewStage       domain.Stage             `json:"new_stage"`
	Allowed        bool                     `json:"allowed"`
	RequestedStage domain.Stage             `json:"requested_stage,omitempty"`
	Transitions    []domain.StageTransition `json:"transitions,omitempty"`
	UpdatedData    domain.TravelData        `json:"updated_data"`
	ChangedSlots   []domain.SlotName        `json:"changed_slots,omitempty"`
	Granted        []domain.ConsentKind     `json:"granted,omitempty"`
	Forbidden      []domain.Action          `json:"forbidden_actions"`
	Signals        Signals                  `json:"signals"`
}

// Engine applies a user message to a session context.
type Engine struct {
	lex       *lexicon.Lexicon
	extractor *extract.Extractor
	chart     *Chart
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures the Engine.
type Option func(*Engine)

// WithClock sets the clock used to timestamp transitions.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine. It fails if the rule table disagrees with the chart.
func New(lex *lexicon.Lexicon, extractor *extract.Extractor, opts ...Option) (*Engine, error) {
	chart, err := NewChart()
	if err != nil {
		return nil, err
	}
	if err := chart.Verify(Rules()); err != nil {
		return nil, fmt.Errorf("rule table does not match stage chart: %w", err)
	}
	e := &Engine{
		lex:       lex,
		extractor: extractor,
		chart:     chart,
		now:       time.Now,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// AttemptTransition merges the message's slots into sc, records any consent it
// grants and advances the stage as far as the transition rules allow. sc is
// modified in place; callers hold the session lock.
func (e *Engine) AttemptTransition(sc *domain.SessionContext, message string, cls domain.Classification) (Result, error) {
	start := sc.CurrentStage
	if !start.Valid() {
		return Result{}, &domain.InvalidTransitionError{From: start}
	}

	previous := sc.Data
	sc.Data = e.extractor.Apply(message, sc.Data)

	sig := DetectSignals(e.lex, lexicon.Fold(message))
	granted := grantConsents(sc, start, sig)

	var transitions []domain.StageTransition
	for {
		next, trigger, ok := NextStage(sc.CurrentStage, start, sc.Data, sc.SearchExecuted, cls, sig)
		if !ok {
			break
		}
		want, err := e.chart.Step(sc.CurrentStage)
		if err != nil {
			return Result{}, fmt.Errorf("stage chart rejected %s: %w", sc.CurrentStage, err)
		}
		if want != next {
			return Result{}, &domain.InvalidTransitionError{From: sc.CurrentStage, To: next}
		}
		t := sc.Advance(next, trigger, e.now())
		transitions = append(transitions, t)
		e.logger.Debug("Stage advanced", "from", t.From, "to", t.To, "trigger", trigger)
	}

	requested := sig.Requested()
	res := Result{
		StageBefore:  start,
		NewStage:     sc.CurrentStage,
		Allowed:      requested == "" || !sc.CurrentStage.Before(requested),
		Transitions:  transitions,
		UpdatedData:  sc.Data.Clone(),
		ChangedSlots: changedSlots(previous, sc.Data),
		Granted:      granted,
		Forbidden:    Forbidden(sc.CurrentStage),
		Signals:      sig,
	}
	if !res.Allowed {
		res.RequestedStage = requested
		e.logger.Info("Stage skip refused", "stage", sc.CurrentStage, "requested", requested)
	}
	return res, nil
}

// Restore walks sc forward one chart step at a time until it reaches target,
// recording each step with trigger. A target at or behind the current stage
// leaves sc unchanged; stages never move backwards.
func (e *Engine) Restore(sc *domain.SessionContext, target domain.Stage, trigger string) ([]domain.StageTransition, error) {
	if !target.Valid() {
		return nil, &domain.InvalidTransitionError{From: sc.CurrentStage, To: target}
	}
	var transitions []domain.StageTransition
	for sc.CurrentStage.Before(target) {
		next, err := e.chart.Step(sc.CurrentStage)
		if err != nil {
			return transitions, fmt.Errorf("stage chart rejected %s: %w", sc.CurrentStage, err)
		}
		transitions = append(transitions, sc.Advance(next, trigger, e.now()))
	}
	if len(transitions) > 0 {
		e.logger.Debug("Stage restored", "stage", sc.CurrentStage, "steps", len(transitions))
	}
	return transitions, nil
}

// NextStage is the pure transition function. It returns the single adjacent
// stage that current may advance to, or false when no edge fires. Signal edges
// only fire when current is the stage the turn started in.
func NextStage(current, start domain.Stage, data domain.TravelData, searchExecuted bool, cls domain.Classification, sig Signals) (domain.Stage, string, bool) {
	switch current {
	case domain.StageDiscovery:
		if data.Usable(domain.SlotDestination) {
			return domain.StageNarrowing, TriggerDestination, true
		}
		if strongExploratory(cls) {
			return domain.StageNarrowing, TriggerExploratory, true
		}
	case domain.StageNarrowing:
		place := data.Usable(domain.SlotOrigin) || data.Usable(domain.SlotDestination)
		if place && data.Usable(domain.SlotDepartureDate) {
			return domain.StageReadyToSearch, TriggerDataReady, true
		}
	case domain.StageReadyToSearch:
		if current == start && sig.Selection && searchExecuted {
			return domain.StageReadyToBook, TriggerSelection, true
		}
	case domain.StageReadyToBook:
		if current == start && sig.BookingConfirmation {
			return domain.StagePostBooking, TriggerConfirmed, true
		}
	}
	return current, "", false
}

func strongExploratory(cls domain.Classification) bool {
	switch cls.Chaos {
	case domain.ChaosFamily, domain.ChaosBudget:
		return true
	case domain.ChaosExploratory:
		return cls.RegionHint != ""
	}
	return false
}

// grantConsents records consents expressed by the message. Booking consent is
// only accepted once the conversation has reached READY_TO_SEARCH.
func grantConsents(sc *domain.SessionContext, stage domain.Stage, sig Signals) []domain.ConsentKind {
	bookingOpen := !stage.Before(domain.StageReadyToSearch)

	var granted []domain.ConsentKind
	grant := func(kind domain.ConsentKind) {
		if kind == domain.ConsentBooking && !bookingOpen {
			return
		}
		if !sc.Consents.Granted(kind) {
			sc.Consents.Grant(kind)
			granted = append(granted, kind)
		}
		if sc.PendingConsent == kind {
			sc.PendingConsent = ""
		}
	}

	if sig.ConsentSearch {
		grant(domain.ConsentSearch)
	}
	if sig.ConsentBooking {
		grant(domain.ConsentBooking)
	}
	if sig.Affirmative && sc.PendingConsent != "" {
		grant(sc.PendingConsent)
	}
	return granted
}

func changedSlots(before, after domain.TravelData) []domain.SlotName {
	var out []domain.SlotName
	for _, name := range after.Names() {
		if prev, ok := before.Slots[name]; !ok || prev != after.Slots[name] {
			out = append(out, name)
		}
	}
	return out
}

// Package guardrail validates drafted agent responses against the tracked
// session state and rewrites non-compliant drafts.
package guardrail

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/stagegate/internal/extract"
	"github.com/aretw0/stagegate/internal/lexicon"
	"github.com/aretw0/stagegate/internal/logging"
	"github.com/aretw0/stagegate/internal/stage"
	"github.com/aretw0/stagegate/pkg/domain"
)

// Code identifies a class of violation.
type Code string

const (
	CodeSlotReask        Code = "slot_reask"
	CodeGenericOpener    Code = "generic_opener"
	CodeDeadEnd          Code = "dead_end"
	CodeInternalData     Code = "internal_data"
	CodePrematurePricing Code = "premature_pricing"
	CodeTooManyQuestions Code = "too_many_questions"
)

// Severity grades a violation.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Violation is one problem found in a draft.
type Violation struct {
	Code     Code            `json:"code"`
	Severity Severity        `json:"severity"`
	Slot     domain.SlotName `json:"slot,omitempty"`
	Message  string          `json:"message"`
}

// Validation is the outcome of Validate.
type Validation struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations"`
}

// Check is the outcome of a rewriting pass.
type Check struct {
	Response    string      `json:"response"`
	WasModified bool        `json:"was_modified"`
	Violations  []Violation `json:"violations,omitempty"`
}

// Codes returns the violation codes in order.
func (c Check) Codes() []Code {
	out := make([]Code, 0, len(c.Violations))
	for _, v := range c.Violations {
		out = append(out, v.Code)
	}
	return out
}

// Slots whose re-ask patterns are checked, in report order.
var reaskSlots = []domain.SlotName{
	domain.SlotDestination,
	domain.SlotOrigin,
	domain.SlotDepartureDate,
	domain.SlotReturnDate,
	domain.SlotPassengers,
	domain.SlotCabinClass,
	domain.SlotTripType,
}

// Slots a fallback question is asked about, in order.
var questionOrder = []domain.SlotName{
	domain.SlotDestination,
	domain.SlotDepartureDate,
	domain.SlotOrigin,
	domain.SlotPassengers,
}

const maxSuggestions = 3

// Guardrail is stateless and safe for concurrent use.
type Guardrail struct {
	lex       *lexicon.Lexicon
	extractor *extract.Extractor
	logger    *slog.Logger
}

// Option configures the Guardrail.
type Option func(*Guardrail)

// WithLogger sets the guardrail logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guardrail) {
		g.logger = logger
	}
}

// New creates a Guardrail.
func New(lex *lexicon.Lexicon, extractor *extract.Extractor, opts ...Option) *Guardrail {
	g := &Guardrail{lex: lex, extractor: extractor, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Validate checks draft against the session's slots and stage rule.
func (g *Guardrail) Validate(draft string, sc *domain.SessionContext) Validation {
	folded := lexicon.Fold(draft)
	violations := g.reasks(folded, sc.Data)
	violations = append(violations, g.textViolations(folded)...)

	rule := stage.Rule(sc.CurrentStage)
	if rule.Forbids(domain.ActionShowPrices) && g.lex.Match("price_figure", folded) {
		violations = append(violations, Violation{
			Code:     CodePrematurePricing,
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("prices are not shown in %s", sc.CurrentStage),
		})
	}
	if n := strings.Count(draft, "?") + strings.Count(draft, "？"); n > rule.MaxQuestions {
		violations = append(violations, Violation{
			Code:     CodeTooManyQuestions,
			Severity: SeverityLow,
			Message:  fmt.Sprintf("%d questions, %s allows %d", n, sc.CurrentStage, rule.MaxQuestions),
		})
	}

	return Validation{Valid: len(violations) == 0, Violations: violations}
}

func (g *Guardrail) reasks(folded string, data domain.TravelData) []Violation {
	var out []Violation
	for _, name := range reaskSlots {
		slot, ok := data.Get(name)
		if !ok || !g.lex.Match(lexicon.Category("reask."+string(name)), folded) {
			continue
		}
		switch slot.Band() {
		case domain.BandTrusted:
			out = append(out, Violation{
				Code:     CodeSlotReask,
				Severity: SeverityHigh,
				Slot:     name,
				Message:  fmt.Sprintf("asks again for %s, already known as %q", name, slot.Value),
			})
		case domain.BandNeedsConfirmation:
			out = append(out, Violation{
				Code:     CodeSlotReask,
				Severity: SeverityMedium,
				Slot:     name,
				Message:  fmt.Sprintf("asks openly for %s instead of confirming %q", name, slot.Value),
			})
		}
	}
	return out
}

// textViolations are the classes that do not depend on session state.
func (g *Guardrail) textViolations(folded string) []Violation {
	var out []Violation
	if g.lex.Match("generic_opener", folded) {
		out = append(out, Violation{Code: CodeGenericOpener, Severity: SeverityMedium, Message: "opens with a generic greeting"})
	}
	if g.lex.Match("dead_end", folded) && !g.lex.Match("forward_motion", folded) {
		out = append(out, Violation{Code: CodeDeadEnd, Severity: SeverityHigh, Message: "refuses without a way forward"})
	}
	if g.lex.Match("internal_data", folded) {
		out = append(out, Violation{Code: CodeInternalData, Severity: SeverityHigh, Message: "exposes internal pricing data"})
	}
	return out
}

// FinalComplianceCheck replaces drafts that open generically, dead-end or leak
// internal data with a forward-moving text built only from the classification:
// a suggestion of its destinations, else its first clarifying question.
// A compliant draft is returned unchanged.
func (g *Guardrail) FinalComplianceCheck(draft string, cls domain.Classification, lang domain.Language) Check {
	violations := g.textViolations(lexicon.Fold(draft))
	if len(violations) == 0 {
		return Check{Response: draft}
	}

	g.logger.Debug("Draft rewritten", "violations", len(violations), "chaos", cls.Chaos)
	return Check{
		Response:    g.forward(cls, lang),
		WasModified: true,
		Violations:  violations,
	}
}

func (g *Guardrail) forward(cls domain.Classification, lang domain.Language) string {
	if len(cls.SuggestedDestinations) > 0 {
		options := cls.SuggestedDestinations
		if len(options) > maxSuggestions {
			options = options[:maxSuggestions]
		}
		return g.lex.Phrase(lang, "rewrite.suggestion", map[string]string{"options": g.joinOr(lang, options)})
	}
	if len(cls.ClarifyingQuestions) > 0 {
		return cls.ClarifyingQuestions[0]
	}
	return g.lex.Phrase(lang, "rewrite.clarify", nil)
}

func (g *Guardrail) joinOr(lang domain.Language, items []string) string {
	if len(items) == 1 {
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " " + g.lex.Phrase(lang, "join.or", nil) + " " + items[len(items)-1]
}

// Comply runs FinalComplianceCheck and then Validate against the session.
// Whatever still fails is replaced by a single question about the first
// required slot that is not yet trusted.
func (g *Guardrail) Comply(draft string, sc *domain.SessionContext, cls domain.Classification) Check {
	lang := sc.Data.Language
	check := g.FinalComplianceCheck(draft, cls, lang)

	v := g.Validate(check.Response, sc)
	if v.Valid {
		return check
	}
	check.Violations = append(check.Violations, v.Violations...)
	check.Response = g.Question(sc)
	check.WasModified = true

	if after := g.Validate(check.Response, sc); !after.Valid {
		g.logger.Warn("Rewrite still violates", "stage", sc.CurrentStage, "violations", len(after.Violations))
		check.Response = g.lex.Phrase(lang, "safe_fallback", nil)
	}
	return check
}

// Question returns one question about the first required slot the session does
// not trust yet, as a confirmation when the value only needs confirming.
func (g *Guardrail) Question(sc *domain.SessionContext) string {
	lang := sc.Data.Language
	for _, name := range questionOrder {
		slot, ok := sc.Data.Get(name)
		if ok && slot.Band() == domain.BandTrusted {
			continue
		}
		if ok {
			if q, confirm := g.extractor.ConfirmationPrompt(name, slot, lang); confirm {
				return q
			}
		}
		return g.lex.Phrase(lang, "question."+string(name), nil)
	}
	return g.lex.Phrase(lang, "response.open", nil)
}

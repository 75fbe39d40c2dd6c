// Package classify reads a user turn into an intent, a confidence level, a chaos
// category, emotional and risk context, and at most two clarifying questions.
package classify

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/aretw0/stagegate/internal/extract"
	"github.com/aretw0/stagegate/internal/lexicon"
	"github.com/aretw0/stagegate/internal/logging"
	"github.com/aretw0/stagegate/internal/stage"
	"github.com/aretw0/stagegate/pkg/domain"
)

const (
	catUncertainty     lexicon.Category = "chaos.uncertainty"
	catFamily          lexicon.Category = "chaos.family"
	catBudget          lexicon.Category = "chaos.budget"
	catExploratory     lexicon.Category = "chaos.exploratory"
	catJustTravel      lexicon.Category = "chaos.just_travel"
	catVague           lexicon.Category = "chaos.vague"
	catContradictory   lexicon.Category = "chaos.contradictory_time"
	catLanguageCue     lexicon.Category = "language_cue"
	lowInformationSize                  = 4
)

var regions = []string{"europe", "beach", "asia", "south_america"}

var emotions = []domain.EmotionState{
	domain.EmotionFrustration,
	domain.EmotionUrgency,
	domain.EmotionConfusion,
	domain.EmotionAppreciation,
}

var riskCategories = []struct {
	cat  lexicon.Category
	flag domain.RiskFlag
}{
	{"risk.legal_threat", domain.RiskLegalThreat},
	{"risk.security", domain.RiskSecurity},
	{"risk.internal_query", domain.RiskInternalQuery},
	{"risk.high_churn", domain.RiskHighChurn},
}

// Classifier is stateless and safe for concurrent use.
type Classifier struct {
	lex       *lexicon.Lexicon
	extractor *extract.Extractor
	logger    *slog.Logger
}

// Option configures the Classifier.
type Option func(*Classifier)

// WithLogger sets the classifier logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// New creates a Classifier. The extractor is used to see which travel
// entities the message itself carries.
func New(lex *lexicon.Lexicon, extractor *extract.Extractor, opts ...Option) *Classifier {
	c := &Classifier{lex: lex, extractor: extractor, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify reads message. state is optional; when present its collected data
// counts as known context. Questions are phrased in lang.
func (c *Classifier) Classify(message string, lang domain.Language, state *domain.SessionContext) domain.Classification {
	folded := lexicon.Fold(message)
	words := len(strings.Fields(folded))

	base := domain.TravelData{}
	if state != nil {
		base = state.Data
	}
	ext := c.extractor.Extract(message)
	known := c.extractor.Apply(message, base)
	if !lang.Valid() {
		lang = known.Language
	}

	cls := domain.Classification{
		Intent:     c.intent(folded),
		RegionHint: c.region(folded),
	}
	cls.Confidence = c.confidence(folded, words, cls.Intent)
	cls.Chaos = c.chaos(folded, words, len(ext.Slots) > 0, cls.Intent)
	cls.MissingContext = missingContext(cls.Intent, known)
	cls.ClarifyingQuestions = c.questions(cls, known, lang)
	cls.SuggestedDestinations = c.suggestions(cls, known)
	cls.Emotion = c.emotion(folded)
	cls.RiskFlags, cls.RiskLevel = c.risk(folded, cls.Emotion)
	cls.RecommendedAgent = recommendAgent(cls.Intent, cls.RiskFlags)
	Recommend(&cls, RecommendStage(known))

	c.logger.Debug("Turn classified",
		"intent", cls.Intent,
		"chaos", cls.Chaos,
		"risk", cls.RiskLevel,
		"stage", cls.ConversationStage,
	)
	return cls
}

// RecommendStage derives a stage purely from destination and date signals.
func RecommendStage(data domain.TravelData) domain.Stage {
	switch {
	case data.Usable(domain.SlotDestination) && data.Usable(domain.SlotDepartureDate):
		return domain.StageReadyToSearch
	case data.Usable(domain.SlotDestination):
		return domain.StageNarrowing
	}
	return domain.StageDiscovery
}

// Recommend sets the stage fields of cls from the rule table of s.
func Recommend(cls *domain.Classification, s domain.Stage) {
	cls.ConversationStage = s
	cls.StageActions = stage.Rule(s).AllowedActions
	cls.StageForbidden = stage.Forbidden(s)
}

func (c *Classifier) intent(folded string) string {
	for _, name := range c.lex.Intents() {
		if c.lex.Match(lexicon.Category("intent."+name), folded) {
			return name
		}
	}
	return domain.IntentGeneralInquiry
}

func (c *Classifier) region(folded string) string {
	for _, r := range regions {
		if c.lex.Match(lexicon.Category("region."+r), folded) {
			return r
		}
	}
	return ""
}

func (c *Classifier) confidence(folded string, words int, intent string) domain.ConfidenceLevel {
	switch {
	case intent == domain.IntentGeneralInquiry, c.lex.Match(catUncertainty, folded):
		return domain.ConfidenceLow
	case words < 5:
		return domain.ConfidenceMedium
	case words < 15:
		return domain.ConfidenceHigh
	}
	return domain.ConfidenceMedium
}

// chaos applies the category priority: family, budget, exploratory, low
// information, chaotic, clear.
func (c *Classifier) chaos(folded string, words int, hasEntity bool, intent string) domain.ChaosCategory {
	switch {
	case c.lex.Match(catFamily, folded):
		return domain.ChaosFamily
	case c.lex.Match(catBudget, folded):
		return domain.ChaosBudget
	case c.lex.Match(catExploratory, folded), c.lex.Match(catJustTravel, folded):
		return domain.ChaosExploratory
	case words <= lowInformationSize && !hasEntity && !domain.SupportIntents[intent]:
		return domain.ChaosLowInformation
	}

	markers := 0
	for _, cat := range []lexicon.Category{catVague, catContradictory, catUncertainty} {
		if c.lex.Match(cat, folded) {
			markers++
		}
	}
	if c.mixedLanguage(folded) {
		markers++
	}
	if markers >= 2 {
		return domain.ChaosChaotic
	}
	return domain.ChaosClear
}

func (c *Classifier) mixedLanguage(folded string) bool {
	seen := 0
	for _, lang := range domain.Languages {
		if c.lex.Count(catLanguageCue, folded, lang) > 0 {
			seen++
		}
	}
	return seen >= 2
}

// missingContext lists what a travel intent still lacks. Slots in the
// needs-confirmation band are reported as "confirm:<slot>".
func missingContext(intent string, known domain.TravelData) []string {
	var required []domain.SlotName
	switch intent {
	case domain.IntentBookingStatus, domain.IntentCancellation, domain.IntentPaymentIssue, domain.IntentBaggage:
		return []string{"booking_reference"}
	case domain.IntentComplaint, domain.IntentVisaPassport:
		return nil
	case domain.IntentHotelSearch:
		required = []domain.SlotName{domain.SlotDestination, domain.SlotDepartureDate, domain.SlotPassengers}
	default:
		required = []domain.SlotName{domain.SlotDestination, domain.SlotDepartureDate, domain.SlotOrigin, domain.SlotPassengers}
	}

	var missing []string
	for _, name := range required {
		slot, ok := known.Get(name)
		switch {
		case ok && slot.Band() == domain.BandTrusted:
			continue
		case ok && slot.Band() == domain.BandNeedsConfirmation:
			missing = append(missing, "confirm:"+string(name))
		case intent == domain.IntentHotelSearch && name == domain.SlotDepartureDate:
			missing = append(missing, "check_in_date")
		default:
			missing = append(missing, string(name))
		}
	}
	return missing
}

// Slots a catalog question may ask about, matched by the re-ask patterns.
var askableSlots = []domain.SlotName{
	domain.SlotDestination,
	domain.SlotOrigin,
	domain.SlotDepartureDate,
	domain.SlotReturnDate,
	domain.SlotPassengers,
	domain.SlotCabinClass,
	domain.SlotTripType,
}

// questions picks at most two clarifying questions. Chaos questions about a
// slot the session already holds are dropped, and the rest are topped up from
// the missing context without asking for the same slot twice.
func (c *Classifier) questions(cls domain.Classification, known domain.TravelData, lang domain.Language) []string {
	var out []string
	covered := map[domain.SlotName]bool{}

	if cls.Chaos != domain.ChaosClear && !domain.SupportIntents[cls.Intent] {
		for _, q := range c.lex.List(lang, "chaos."+string(cls.Chaos)) {
			asks := c.asks(q)
			if slices.ContainsFunc(asks, known.Usable) {
				continue
			}
			for _, name := range asks {
				covered[name] = true
			}
			out = append(out, q)
		}
	}

	for _, item := range cls.MissingContext {
		if len(out) >= domain.MaxClarifyingQuestions {
			break
		}
		name, confirm := strings.CutPrefix(item, "confirm:")
		slot := domain.SlotName(name)
		if item == "check_in_date" {
			slot = domain.SlotDepartureDate
		}
		if covered[slot] {
			continue
		}
		covered[slot] = true
		if confirm {
			current, _ := known.Get(slot)
			if q, ok := c.extractor.ConfirmationPrompt(slot, current, lang); ok {
				out = append(out, q)
			}
			continue
		}
		out = append(out, c.lex.Phrase(lang, "question."+item, nil))
	}

	if len(out) > domain.MaxClarifyingQuestions {
		out = out[:domain.MaxClarifyingQuestions]
	}
	return out
}

// asks lists the slots question asks for.
func (c *Classifier) asks(question string) []domain.SlotName {
	folded := lexicon.Fold(question)
	var out []domain.SlotName
	for _, name := range askableSlots {
		if c.lex.Match(lexicon.Category("reask."+string(name)), folded) {
			out = append(out, name)
		}
	}
	return out
}

func (c *Classifier) suggestions(cls domain.Classification, known domain.TravelData) []string {
	if known.Usable(domain.SlotDestination) {
		return nil
	}
	switch cls.Chaos {
	case domain.ChaosFamily:
		return c.lex.Suggestions("family")
	case domain.ChaosBudget:
		return c.lex.Suggestions("budget")
	case domain.ChaosExploratory:
		if cls.RegionHint != "" {
			return c.lex.Suggestions(cls.RegionHint)
		}
		return c.lex.Suggestions("exploratory")
	}
	return nil
}

func (c *Classifier) emotion(folded string) domain.Emotion {
	for _, e := range emotions {
		if n := c.lex.Count(lexicon.Category("emotion."+string(e)), folded); n > 0 {
			conf := 0.7 + 0.1*float64(n)
			if conf > 0.95 {
				conf = 0.95
			}
			return domain.Emotion{State: e, Confidence: conf}
		}
	}
	return domain.Emotion{State: domain.EmotionNeutral, Confidence: 0.5}
}

func (c *Classifier) risk(folded string, emotion domain.Emotion) ([]domain.RiskFlag, domain.RiskLevel) {
	var flags []domain.RiskFlag
	level := domain.RiskLow
	for _, rc := range riskCategories {
		if !c.lex.Match(rc.cat, folded) {
			continue
		}
		flags = append(flags, rc.flag)
		if rc.flag == domain.RiskInternalQuery {
			if level == domain.RiskLow {
				level = domain.RiskMedium
			}
			continue
		}
		level = domain.RiskHigh
	}
	if level == domain.RiskLow && emotion.State == domain.EmotionFrustration {
		level = domain.RiskMedium
	}
	return flags, level
}

func recommendAgent(intent string, flags []domain.RiskFlag) domain.Team {
	for _, f := range flags {
		if f == domain.RiskLegalThreat || f == domain.RiskSecurity {
			return domain.TeamCrisis
		}
	}
	switch intent {
	case domain.IntentFlightSearch:
		return domain.TeamFlights
	case domain.IntentHotelSearch:
		return domain.TeamHotels
	case domain.IntentPaymentIssue, domain.IntentPricing:
		return domain.TeamPayments
	}
	return domain.TeamCustomerService
}

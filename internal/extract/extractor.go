// Package extract turns free text into confidence-scored travel slots.
//
// Extraction is pattern and dictionary driven: route phrases, typo-tolerant city
// lookup, multi-language dates, passenger counts and a handful of keyword slots.
// Absence of entities is never an error; it simply yields fewer slots.
package extract

import (
	"strings"
	"time"

	"github.com/aretw0/stagegate/internal/lexicon"
	"github.com/aretw0/stagegate/pkg/domain"
)

// Lexicon categories used by the extractor.
const (
	catLanguageCue  lexicon.Category = "language_cue"
	catLanguageMark lexicon.Category = "language_mark"
)

// Extraction is the raw outcome of a single Extract call.
type Extraction struct {
	Language         domain.Language
	LanguageEvidence bool
	Slots            map[domain.SlotName]domain.Slot
}

// Extractor is stateless apart from its dictionaries and clock; safe for concurrent use.
type Extractor struct {
	lex    *lexicon.Lexicon
	now    func() time.Time
	cities []cityEntry
	byCode map[string]lexicon.City
}

// Option configures the Extractor.
type Option func(*Extractor)

// WithClock sets the clock used to resolve relative dates and roll years.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		e.now = now
	}
}

// New creates an Extractor backed by lex.
func New(lex *lexicon.Lexicon, opts ...Option) *Extractor {
	e := &Extractor{
		lex:    lex,
		now:    time.Now,
		byCode: make(map[string]lexicon.City),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.indexCities()
	return e
}

// Apply extracts slots from message and merges them into a copy of existing.
// Fields only move to equal-or-higher confidence values; the language is set
// and locked by the first message that carries language evidence.
func (e *Extractor) Apply(message string, existing domain.TravelData) domain.TravelData {
	out := existing.Clone()
	ext := e.Extract(message)

	if !out.LanguageLocked {
		if ext.LanguageEvidence {
			out.Language = ext.Language
			out.LanguageLocked = true
		} else if out.Language == "" {
			out.Language = ext.Language
		}
	}

	out.Merge(ext.Slots)

	if _, ok := out.Slots[domain.SlotTripType]; !ok && out.Usable(domain.SlotReturnDate) {
		out.Merge(map[domain.SlotName]domain.Slot{
			domain.SlotTripType: {Value: "round_trip", Confidence: 0.7, Source: domain.SourceInferred},
		})
	}
	return out
}

// Extract reads every slot it can find in message.
func (e *Extractor) Extract(message string) Extraction {
	lang, evidence := e.DetectLanguage(message)
	ext := Extraction{
		Language:         lang,
		LanguageEvidence: evidence,
		Slots:            make(map[domain.SlotName]domain.Slot),
	}
	if strings.TrimSpace(message) == "" {
		return ext
	}

	folded := lexicon.Fold(message)
	e.extractRoute(message, folded, ext.Slots)
	e.extractDates(folded, lang, ext.Slots)
	e.extractPassengers(folded, ext.Slots)
	e.extractKeywords(folded, ext.Slots)
	return ext
}

// DetectLanguage scores lexical cues per language. Without any evidence it
// returns English and false.
func (e *Extractor) DetectLanguage(message string) (domain.Language, bool) {
	raw := strings.ToLower(message)
	folded := lexicon.Fold(message)

	best, bestScore := domain.LanguageEnglish, 0
	for _, lang := range domain.Languages {
		score := e.lex.Count(catLanguageCue, folded, lang) + 2*e.lex.Count(catLanguageMark, raw, lang)
		if score > bestScore {
			best, bestScore = lang, score
		}
	}
	return best, bestScore > 0
}

// ConfirmationPrompt returns a yes/no confirmation question for slots in the
// needs-confirmation band. Other bands return false.
func (e *Extractor) ConfirmationPrompt(name domain.SlotName, slot domain.Slot, lang domain.Language) (string, bool) {
	if slot.Band() != domain.BandNeedsConfirmation {
		return "", false
	}
	vars := map[string]string{"value": slot.Value}
	switch name {
	case domain.SlotDestination, domain.SlotOrigin, domain.SlotDepartureDate, domain.SlotReturnDate:
		return e.lex.Phrase(lang, "confirm."+string(name), vars), true
	default:
		return e.lex.Phrase(lang, "confirm.generic", vars), true
	}
}

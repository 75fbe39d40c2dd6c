package domain

import (
	"sort"
	"strconv"
)

// Language is a supported conversation language.
type Language string

const (
	LanguageEnglish    Language = "en"
	LanguagePortuguese Language = "pt"
	LanguageSpanish    Language = "es"
)

// Languages lists the supported languages in lookup order.
var Languages = []Language{LanguageEnglish, LanguagePortuguese, LanguageSpanish}

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	for _, known := range Languages {
		if l == known {
			return true
		}
	}
	return false
}

// SlotName identifies a travel field.
type SlotName string

const (
	SlotOrigin        SlotName = "origin"
	SlotDestination   SlotName = "destination"
	SlotDepartureDate SlotName = "departure_date"
	SlotReturnDate    SlotName = "return_date"
	SlotPassengers    SlotName = "passengers"
	SlotTripType      SlotName = "trip_type"
	SlotCabinClass    SlotName = "cabin_class"
	SlotTravelType    SlotName = "travel_type"
	SlotBudgetStyle   SlotName = "budget_style"
)

// SlotSource is the provenance of an extracted value.
type SlotSource string

const (
	SourceExact    SlotSource = "exact"
	SourceFuzzy    SlotSource = "fuzzy"
	SourceInferred SlotSource = "inferred"
)

// Confidence thresholds shared by the extractor, the stage engine and the guardrail.
const (
	TrustedConfidence = 0.6
	ConfirmConfidence = 0.4
)

// Band classifies a confidence score.
type Band int

const (
	BandUnreliable Band = iota
	BandNeedsConfirmation
	BandTrusted
)

// BandOf returns the band a confidence score falls in.
func BandOf(confidence float64) Band {
	switch {
	case confidence >= TrustedConfidence:
		return BandTrusted
	case confidence >= ConfirmConfidence:
		return BandNeedsConfirmation
	default:
		return BandUnreliable
	}
}

func (b Band) String() string {
	switch b {
	case BandTrusted:
		return "trusted"
	case BandNeedsConfirmation:
		return "needs_confirmation"
	default:
		return "unreliable"
	}
}

// Slot is a single extracted value.
type Slot struct {
	Value      string     `json:"value"`
	Confidence float64    `json:"confidence"`
	Source     SlotSource `json:"source"`
	RawMatch   string     `json:"raw_match,omitempty"`
}

// Band returns the confidence band of the slot.
func (s Slot) Band() Band {
	return BandOf(s.Confidence)
}

// TravelData is the data accumulated for a session.
type TravelData struct {
	Language       Language          `json:"language"`
	LanguageLocked bool              `json:"language_locked"`
	Slots          map[SlotName]Slot `json:"slots"`
}

// NewTravelData returns empty data in the given language.
func NewTravelData(lang Language) TravelData {
	return TravelData{
		Language: lang,
		Slots:    make(map[SlotName]Slot),
	}
}

// Get returns the slot if present.
func (d TravelData) Get(name SlotName) (Slot, bool) {
	s, ok := d.Slots[name]
	return s, ok
}

// Usable reports whether the slot is present and not unreliable.
func (d TravelData) Usable(name SlotName) bool {
	s, ok := d.Slots[name]
	return ok && s.Confidence >= ConfirmConfidence
}

// Trusted reports whether the slot is present with a trusted confidence.
func (d TravelData) Trusted(name SlotName) bool {
	s, ok := d.Slots[name]
	return ok && s.Confidence >= TrustedConfidence
}

// Value returns the slot value or an empty string.
func (d TravelData) Value(name SlotName) string {
	return d.Slots[name].Value
}

// Passengers returns the passenger count when known.
func (d TravelData) Passengers() (int, bool) {
	s, ok := d.Slots[SlotPassengers]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s.Value)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Names returns the present slot names in a stable order.
func (d TravelData) Names() []SlotName {
	names := make([]SlotName, 0, len(d.Slots))
	for name := range d.Slots {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Clone returns a deep copy.
func (d TravelData) Clone() TravelData {
	out := TravelData{
		Language:       d.Language,
		LanguageLocked: d.LanguageLocked,
		Slots:          make(map[SlotName]Slot, len(d.Slots)),
	}
	for k, v := range d.Slots {
		out.Slots[k] = v
	}
	return out
}

// Merge folds incoming slots into d. A field is replaced only when the incoming
// confidence is equal or higher, so repeated merges of the same input are no-ops.
func (d *TravelData) Merge(incoming map[SlotName]Slot) []SlotName {
	if d.Slots == nil {
		d.Slots = make(map[SlotName]Slot)
	}
	var changed []SlotName
	for name, next := range incoming {
		if next.Value == "" {
			continue
		}
		current, ok := d.Slots[name]
		if ok && next.Confidence < current.Confidence {
			continue
		}
		if ok && current == next {
			continue
		}
		d.Slots[name] = next
		changed = append(changed, name)
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i] < changed[j] })
	return changed
}

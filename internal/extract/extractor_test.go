package extract_test

import (
	"testing"
	"time"

	"github.com/aretw0/stagegate/internal/extract"
	"github.com/aretw0/stagegate/internal/lexicon"
	"github.com/aretw0/stagegate/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExtractor(t *testing.T) *extract.Extractor {
	t.Helper()
	lex, err := lexicon.Default()
	require.NoError(t, err)
	clock := func() time.Time { return time.Date(2026, time.October, 16, 10, 0, 0, 0, time.UTC) }
	return extract.New(lex, extract.WithClock(clock))
}

func TestExtract_Destination(t *testing.T) {
	ex := newExtractor(t)

	tests := []struct {
		name    string
		message string
		want    string
		conf    float64
		source  domain.SlotSource
		lang    domain.Language
	}{
		{"pt alias", "Quero ir para sampa", "São Paulo", 1.0, domain.SourceExact, domain.LanguagePortuguese},
		{"en typo", "I want to fly to pariss", "Paris", 0.9, domain.SourceFuzzy, domain.LanguageEnglish},
		{"es accentless", "Quiero volar a bogota", "Bogotá", 1.0, domain.SourceExact, domain.LanguageSpanish},
		{"standalone mention", "Thinking about Barcelona", "Barcelona", 0.8, domain.SourceInferred, domain.LanguageEnglish},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ex.Extract(tt.message)
			slot, ok := got.Slots[domain.SlotDestination]
			require.True(t, ok, "destination not extracted")
			assert.Equal(t, tt.want, slot.Value)
			assert.InDelta(t, tt.conf, slot.Confidence, 0.001)
			assert.Equal(t, tt.source, slot.Source)
			assert.Equal(t, tt.lang, got.Language)
		})
	}
}

func TestExtract_AirportCodes(t *testing.T) {
	ex := newExtractor(t)

	got := ex.Extract("GRU to CDG")
	assert.Equal(t, "São Paulo", got.Slots[domain.SlotOrigin].Value)
	assert.Equal(t, "Paris", got.Slots[domain.SlotDestination].Value)
	assert.Equal(t, 1.0, got.Slots[domain.SlotDestination].Confidence)

	lower := ex.Extract("i need it for tomorrow")
	_, ok := lower.Slots[domain.SlotDestination]
	assert.False(t, ok, "lowercase words must not be read as airport codes")
}

func TestExtract_RouteAndDates(t *testing.T) {
	ex := newExtractor(t)

	got := ex.Extract("Flying from Paris to Rome on March 15 and back on March 22")
	assert.Equal(t, "Paris", got.Slots[domain.SlotOrigin].Value)
	assert.Equal(t, "Rome", got.Slots[domain.SlotDestination].Value)
	assert.Equal(t, "2027-03-15", got.Slots[domain.SlotDepartureDate].Value, "past month rolls to next year")
	assert.Equal(t, "2027-03-22", got.Slots[domain.SlotReturnDate].Value)
	assert.Equal(t, "round_trip", got.Slots[domain.SlotTripType].Value)
}

func TestExtract_DateFormats(t *testing.T) {
	ex := newExtractor(t)

	tests := []struct {
		name    string
		message string
		want    string
		source  domain.SlotSource
	}{
		{"pt day month", "Quero viajar dia 20 de dezembro", "2026-12-20", domain.SourceExact},
		{"es numeric day first", "Quiero viajar el 5/11", "2026-11-05", domain.SourceExact},
		{"en numeric month first", "I need a flight on 12/25", "2026-12-25", domain.SourceExact},
		{"explicit year", "15 de marco de 2028", "2028-03-15", domain.SourceExact},
		{"tomorrow", "I want to leave tomorrow", "2026-10-17", domain.SourceInferred},
		{"next month", "Thinking about Barcelona next month", "2026-11-01", domain.SourceInferred},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ex.Extract(tt.message)
			slot, ok := got.Slots[domain.SlotDepartureDate]
			require.True(t, ok)
			assert.Equal(t, tt.want, slot.Value)
			assert.Equal(t, tt.source, slot.Source)
		})
	}
}

func TestExtract_Passengers(t *testing.T) {
	ex := newExtractor(t)

	tests := []struct {
		message string
		want    string
	}{
		{"2 adults and 1 child", "3"},
		{"somos duas pessoas", "2"},
		{"4 passengers", "4"},
		{"just me this time", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			got := ex.Extract(tt.message)
			assert.Equal(t, tt.want, got.Slots[domain.SlotPassengers].Value)
		})
	}
}

func TestExtract_Keywords(t *testing.T) {
	ex := newExtractor(t)

	got := ex.Extract("premium economy for a work trip")
	assert.Equal(t, "premium_economy", got.Slots[domain.SlotCabinClass].Value)
	assert.Equal(t, "business", got.Slots[domain.SlotTravelType].Value)
	_, ok := got.Slots[domain.SlotBudgetStyle]
	assert.False(t, ok, "premium economy is not a budget signal")

	cheap := ex.Extract("cheapest one-way ticket")
	assert.Equal(t, "budget", cheap.Slots[domain.SlotBudgetStyle].Value)
	assert.Equal(t, "one_way", cheap.Slots[domain.SlotTripType].Value)
}

func TestExtract_NonStandaloneCity(t *testing.T) {
	ex := newExtractor(t)

	got := ex.Extract("Vou passar o natal com a familia")
	_, ok := got.Slots[domain.SlotDestination]
	assert.False(t, ok)
	assert.Equal(t, "family", got.Slots[domain.SlotTravelType].Value)
}

func TestExtract_Empty(t *testing.T) {
	ex := newExtractor(t)

	got := ex.Extract("   ")
	assert.Empty(t, got.Slots)
	assert.Equal(t, domain.LanguageEnglish, got.Language)
	assert.False(t, got.LanguageEvidence)
}

func TestApply_MonotonicAndLanguageLock(t *testing.T) {
	ex := newExtractor(t)

	data := ex.Apply("Quero viajar para Lisboa", domain.TravelData{})
	assert.Equal(t, domain.LanguagePortuguese, data.Language)
	assert.True(t, data.LanguageLocked)
	assert.Equal(t, "Lisbon", data.Value(domain.SlotDestination))

	data = ex.Apply("I want to go somewhere near pariss", data)
	assert.Equal(t, domain.LanguagePortuguese, data.Language, "language stays locked")
	assert.Equal(t, "Lisbon", data.Value(domain.SlotDestination), "lower confidence never overwrites")

	data = ex.Apply("hmm", data)
	assert.Equal(t, "Lisbon", data.Value(domain.SlotDestination))
}

func TestApply_InfersRoundTrip(t *testing.T) {
	ex := newExtractor(t)

	data := ex.Apply("from Lisbon to Madrid on 10 November, back on 20 November", domain.TravelData{})
	require.True(t, data.Usable(domain.SlotReturnDate))
	trip, ok := data.Get(domain.SlotTripType)
	require.True(t, ok)
	assert.Equal(t, "round_trip", trip.Value)
}

func TestConfirmationPrompt(t *testing.T) {
	ex := newExtractor(t)

	slot := domain.Slot{Value: "Paris", Confidence: 0.5, Source: domain.SourceFuzzy}
	prompt, ok := ex.ConfirmationPrompt(domain.SlotDestination, slot, domain.LanguageEnglish)
	require.True(t, ok)
	assert.Contains(t, prompt, "Paris")

	slot.Confidence = 0.9
	_, ok = ex.ConfirmationPrompt(domain.SlotDestination, slot, domain.LanguageEnglish)
	assert.False(t, ok)
}

func TestFindCity(t *testing.T) {
	ex := newExtractor(t)

	city, score, ok := ex.FindCity("Barcelna")
	require.True(t, ok)
	assert.Equal(t, "Barcelona", city.Name)
	assert.Greater(t, score, 0.8)

	_, _, ok = ex.FindCity("xyzzy")
	assert.False(t, ok)
}

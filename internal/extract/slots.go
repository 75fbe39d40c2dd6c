package extract

import (
	"strconv"
	"strings"

	"github.com/aretw0/stagegate/internal/lexicon"
	"github.com/aretw0/stagegate/pkg/domain"
)

const (
	catAdults         lexicon.Category = "passengers.adults"
	catChildren       lexicon.Category = "passengers.children"
	catCount          lexicon.Category = "passengers.count"
	catWords          lexicon.Category = "passengers.words"
	catSolo           lexicon.Category = "passengers.solo"
	catCouple         lexicon.Category = "passengers.couple"
	catRoundTrip      lexicon.Category = "trip.round_trip"
	catOneWay         lexicon.Category = "trip.one_way"
	catTravelBusiness lexicon.Category = "travel.business"
	catTravelLeisure  lexicon.Category = "travel.leisure"
	catFamily         lexicon.Category = "chaos.family"
	catBudget         lexicon.Category = "chaos.budget"
	catPremium        lexicon.Category = "budget.premium"

	maxPassengers = 20
)

// Cabin categories in match priority; premium economy must beat economy.
var cabins = []struct {
	cat   lexicon.Category
	value string
}{
	{"cabin.first", "first"},
	{"cabin.business", "business"},
	{"cabin.premium_economy", "premium_economy"},
	{"cabin.economy", "economy"},
}

func (e *Extractor) extractPassengers(folded string, slots map[domain.SlotName]domain.Slot) {
	set := func(n int, conf float64, src domain.SlotSource, raw string) {
		if n < 1 || n > maxPassengers {
			return
		}
		slots[domain.SlotPassengers] = domain.Slot{
			Value: strconv.Itoa(n), Confidence: conf, Source: src, RawMatch: raw,
		}
	}
	sum := func(cat lexicon.Category) (int, string) {
		total := 0
		var raw []string
		for _, m := range e.lex.FindAll(cat, folded) {
			total += atoi(m.Groups["n"])
			raw = append(raw, folded[m.Start:m.End])
		}
		return total, strings.Join(raw, ", ")
	}

	if adults, raw := sum(catAdults); adults > 0 {
		children, rawKids := sum(catChildren)
		if rawKids != "" {
			raw += ", " + rawKids
		}
		set(adults+children, 0.95, domain.SourceExact, raw)
		return
	}
	if n, raw := sum(catCount); n > 0 {
		set(n, 0.95, domain.SourceExact, raw)
		return
	}
	for _, m := range e.lex.FindAll(catWords, folded) {
		if n, ok := e.lex.Number(m.Groups["word"]); ok {
			set(n, 0.85, domain.SourceExact, folded[m.Start:m.End])
			return
		}
	}
	if m := e.lex.FindAll(catSolo, folded); len(m) > 0 {
		set(1, 0.7, domain.SourceInferred, folded[m[0].Start:m[0].End])
		return
	}
	if m := e.lex.FindAll(catCouple, folded); len(m) > 0 {
		set(2, 0.7, domain.SourceInferred, folded[m[0].Start:m[0].End])
	}
}

func (e *Extractor) extractKeywords(folded string, slots map[domain.SlotName]domain.Slot) {
	for _, c := range cabins {
		if m := e.lex.FindAll(c.cat, folded); len(m) > 0 {
			slots[domain.SlotCabinClass] = domain.Slot{
				Value: c.value, Confidence: 1.0, Source: domain.SourceExact, RawMatch: folded[m[0].Start:m[0].End],
			}
			break
		}
	}

	switch {
	case e.lex.Match(catOneWay, folded):
		slots[domain.SlotTripType] = domain.Slot{Value: "one_way", Confidence: 0.95, Source: domain.SourceExact}
	case e.lex.Match(catRoundTrip, folded):
		slots[domain.SlotTripType] = domain.Slot{Value: "round_trip", Confidence: 0.95, Source: domain.SourceExact}
	}

	switch {
	case e.lex.Match(catTravelBusiness, folded):
		slots[domain.SlotTravelType] = domain.Slot{Value: "business", Confidence: 0.8, Source: domain.SourceInferred}
	case e.lex.Match(catFamily, folded):
		slots[domain.SlotTravelType] = domain.Slot{Value: "family", Confidence: 0.8, Source: domain.SourceInferred}
	case e.lex.Match(catTravelLeisure, folded):
		slots[domain.SlotTravelType] = domain.Slot{Value: "leisure", Confidence: 0.7, Source: domain.SourceInferred}
	}

	// "premium economy" is a cabin, not a budget signal.
	budgetText := strings.NewReplacer("premium economy", "", "economica premium", "", "premium economica", "", "turista premium", "").Replace(folded)
	switch {
	case e.lex.Match(catBudget, budgetText):
		slots[domain.SlotBudgetStyle] = domain.Slot{Value: "budget", Confidence: 0.7, Source: domain.SourceInferred}
	case e.lex.Match(catPremium, budgetText):
		slots[domain.SlotBudgetStyle] = domain.Slot{Value: "premium", Confidence: 0.7, Source: domain.SourceInferred}
	}
}

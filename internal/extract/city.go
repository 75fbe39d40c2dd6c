package extract

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/aretw0/stagegate/internal/lexicon"
	"github.com/aretw0/stagegate/pkg/domain"
)

const (
	catRouteFromTo lexicon.Category = "route.from_to"
	catRouteTo     lexicon.Category = "route.to"
	catRouteFrom   lexicon.Category = "route.from"

	// Minimum similarity for a city inside a route phrase.
	phraseThreshold = 0.7
	// Minimum similarity for a city found anywhere else in the message.
	standaloneThreshold = 0.8
	// Confidence discount for standalone matches.
	standaloneDiscount = 0.8
	maxWindow          = 3
)

// Airport codes only count when written in uppercase in the raw message.
var (
	codePairRe = regexp.MustCompile(`\b([A-Z]{3})\s*(?:->|-|/|\bto\b|\bpara\b|\bpra\b|\ba\b|\bhasta\b)\s*([A-Z]{3})\b`)
	codeRe     = regexp.MustCompile(`\b[A-Z]{3}\b`)
	wordRe     = regexp.MustCompile(`[a-z]+`)
)

var phraseStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "o": true, "os": true, "as": true,
	"el": true, "la": true, "los": true, "las": true, "um": true, "uma": true,
	"city": true, "cidade": true, "ciudad": true,
}

var scanStopwords = map[string]bool{
	"to": true, "from": true, "for": true, "and": true, "the": true, "want": true, "would": true,
	"like": true, "travel": true, "trip": true, "flight": true, "flights": true, "please": true,
	"para": true, "pra": true, "de": true, "que": true, "quero": true, "viajar": true, "viagem": true,
	"voo": true, "voos": true, "quiero": true, "vuelo": true, "vuelos": true, "desde": true,
	"hasta": true, "con": true, "com": true, "por": true, "una": true, "uma": true,
	"where": true, "when": true, "onde": true, "donde": true, "cuando": true, "quando": true,
}

type cityEntry struct {
	city    lexicon.City
	aliases []string
}

type cityMatch struct {
	city   lexicon.City
	score  float64
	source domain.SlotSource
	raw    string
	words  int
}

func (e *Extractor) indexCities() {
	for _, c := range e.lex.Cities() {
		entry := cityEntry{city: c}
		seen := make(map[string]bool)
		for _, alias := range append([]string{c.Name}, c.Aliases...) {
			folded := lexicon.Fold(alias)
			if !seen[folded] {
				seen[folded] = true
				entry.aliases = append(entry.aliases, folded)
			}
		}
		e.cities = append(e.cities, entry)
		if c.Code != "" {
			e.byCode[strings.ToUpper(c.Code)] = c
		}
	}
}

// similarity scores two folded strings: 1.0 equal, 0.9 containment, else
// normalized edit distance. Short strings only match exactly.
func similarity(a, b string, containment bool) float64 {
	if a == b {
		return 1.0
	}
	if len(a) < 4 || len(b) < 4 {
		return 0
	}
	if containment && (strings.Contains(a, b) || strings.Contains(b, a)) {
		return 0.9
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
}

// bestCity finds the closest city to a single folded window. Standalone
// windows skip containment scoring since they are not bounded by a route phrase.
func (e *Extractor) bestCity(window string, standalone bool) (cityMatch, bool) {
	var best cityMatch
	found := false
	for _, entry := range e.cities {
		if standalone && !entry.city.AllowStandalone() {
			continue
		}
		for _, alias := range entry.aliases {
			if standalone && len(alias) < 3 {
				continue
			}
			score := similarity(window, alias, !standalone)
			if score <= best.score {
				continue
			}
			best = cityMatch{city: entry.city, score: score, source: domain.SourceFuzzy, raw: window}
			if score == 1.0 {
				best.source = domain.SourceExact
			}
			found = true
		}
	}
	return best, found
}

// FindCity matches a free phrase against the dictionary. It tries windows of up
// to three words from the left and keeps the best score, preferring longer windows.
func (e *Extractor) FindCity(phrase string) (lexicon.City, float64, bool) {
	m, ok := e.matchPhrase(lexicon.Fold(phrase), phraseThreshold)
	if !ok {
		return lexicon.City{}, 0, false
	}
	return m.city, m.score, true
}

func (e *Extractor) matchPhrase(phrase string, threshold float64) (cityMatch, bool) {
	words := strings.Fields(strings.Trim(phrase, " .'-"))
	for len(words) > 0 && phraseStopwords[words[0]] {
		words = words[1:]
	}
	var best cityMatch
	found := false
	for n := 1; n <= maxWindow && n <= len(words); n++ {
		window := strings.Join(words[:n], " ")
		m, ok := e.bestCity(window, false)
		if !ok || m.score < threshold {
			continue
		}
		m.words = n
		if !found || m.score > best.score || (m.score == best.score && n > best.words) {
			best, found = m, true
		}
	}
	return best, found
}

func citySlot(m cityMatch) domain.Slot {
	return domain.Slot{Value: m.city.Name, Confidence: m.score, Source: m.source, RawMatch: m.raw}
}

func codeSlot(c lexicon.City, raw string) domain.Slot {
	return domain.Slot{Value: c.Name, Confidence: 1.0, Source: domain.SourceExact, RawMatch: raw}
}

func (e *Extractor) extractRoute(raw, folded string, slots map[domain.SlotName]domain.Slot) {
	set := func(name domain.SlotName, s domain.Slot) {
		if cur, ok := slots[name]; !ok || s.Confidence > cur.Confidence {
			slots[name] = s
		}
	}

	for _, m := range codePairRe.FindAllStringSubmatch(raw, -1) {
		from, okFrom := e.byCode[m[1]]
		to, okTo := e.byCode[m[2]]
		if okFrom && okTo {
			set(domain.SlotOrigin, codeSlot(from, m[1]))
			set(domain.SlotDestination, codeSlot(to, m[2]))
		}
	}

	for _, m := range e.lex.FindAll(catRouteFromTo, folded) {
		if c, ok := e.matchPhrase(m.Groups["origin"], phraseThreshold); ok {
			set(domain.SlotOrigin, citySlot(c))
		}
		if c, ok := e.matchPhrase(m.Groups["destination"], phraseThreshold); ok {
			set(domain.SlotDestination, citySlot(c))
		}
	}

	if _, ok := slots[domain.SlotDestination]; !ok {
		for _, m := range e.lex.FindAll(catRouteTo, folded) {
			if c, ok := e.matchPhrase(m.Groups["destination"], phraseThreshold); ok {
				set(domain.SlotDestination, citySlot(c))
				break
			}
		}
	}

	if _, ok := slots[domain.SlotOrigin]; !ok {
		for _, m := range e.lex.FindAll(catRouteFrom, folded) {
			if c, ok := e.matchPhrase(m.Groups["origin"], phraseThreshold); ok {
				if c.city.Name != slots[domain.SlotDestination].Value {
					set(domain.SlotOrigin, citySlot(c))
					break
				}
			}
		}
	}

	if _, ok := slots[domain.SlotDestination]; !ok {
		for _, code := range codeRe.FindAllString(raw, -1) {
			if c, ok := e.byCode[code]; ok && c.Name != slots[domain.SlotOrigin].Value {
				set(domain.SlotDestination, codeSlot(c, code))
				break
			}
		}
	}

	if _, ok := slots[domain.SlotDestination]; !ok {
		if m, ok := e.scanStandalone(folded, slots[domain.SlotOrigin].Value); ok {
			s := citySlot(m)
			s.Confidence = m.score * standaloneDiscount
			s.Source = domain.SourceInferred
			slots[domain.SlotDestination] = s
		}
	}
}

// scanStandalone looks for a city name anywhere in the message.
func (e *Extractor) scanStandalone(folded, exclude string) (cityMatch, bool) {
	tokens := wordRe.FindAllString(folded, -1)
	for i := range tokens {
		if scanStopwords[tokens[i]] {
			continue
		}
		var best cityMatch
		found := false
		for n := maxWindow; n >= 1; n-- {
			if i+n > len(tokens) {
				continue
			}
			window := strings.Join(tokens[i:i+n], " ")
			if n == 1 && len(window) < 3 {
				continue
			}
			m, ok := e.bestCity(window, true)
			if !ok || m.score < standaloneThreshold || m.city.Name == exclude {
				continue
			}
			if !found || m.score > best.score {
				best, found = m, true
			}
		}
		if found {
			return best, true
		}
	}
	return cityMatch{}, false
}

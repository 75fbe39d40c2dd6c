// Package lexicon holds the multi-language pattern table, phrase catalog and
// dictionaries used by the extractor, classifier, stage engine and guardrail.
//
// Patterns are keyed by (language, category) and loaded once from embedded YAML.
// Matching always happens over folded text (lowercase, diacritics removed), so
// patterns are written without accents. The pseudo-language "any" applies to
// every language.
package lexicon

import (
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/aretw0/stagegate/pkg/domain"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var embedded embed.FS

// Category names a pattern set.
type Category string

// anyLanguage is the YAML key for language-independent patterns.
const anyLanguage domain.Language = "any"

// City is a dictionary entry used for typo-tolerant city matching.
type City struct {
	Name       string   `yaml:"name"`
	Code       string   `yaml:"code"`
	Aliases    []string `yaml:"aliases"`
	Standalone *bool    `yaml:"standalone"`
}

// AllowStandalone reports whether the city may be picked up outside a route phrase.
func (c City) AllowStandalone() bool {
	return c.Standalone == nil || *c.Standalone
}

type monthEntry struct {
	Number int      `yaml:"number"`
	Names  []string `yaml:"names"`
	Abbr   []string `yaml:"abbr"`
}

type patternFile struct {
	Version  string                                  `yaml:"version"`
	Intents  []string                                `yaml:"intents"`
	Patterns map[domain.Language]map[Category][]string `yaml:"patterns"`
}

type phraseFile struct {
	Phrases map[domain.Language]map[string]string   `yaml:"phrases"`
	Lists   map[domain.Language]map[string][]string `yaml:"lists"`
}

type placeFile struct {
	Cities      []City              `yaml:"cities"`
	Months      []monthEntry        `yaml:"months"`
	Numbers     map[string]int      `yaml:"numbers"`
	Suggestions map[string][]string `yaml:"suggestions"`
}

// Lexicon is the immutable, loaded table. It is safe for concurrent use.
type Lexicon struct {
	Version string

	intents     []string
	patterns    map[Category]map[domain.Language][]*regexp.Regexp
	phrases     map[domain.Language]map[string]string
	lists       map[domain.Language]map[string][]string
	cities      []City
	months      map[string]time.Month
	fullMonths  map[string]time.Month
	numbers     map[string]int
	suggestions map[string][]string
}

var (
	defaultOnce sync.Once
	defaultLex  *Lexicon
	defaultErr  error
)

// Default returns the embedded lexicon, loading it on first use.
func Default() (*Lexicon, error) {
	defaultOnce.Do(func() {
		sub, err := fs.Sub(embedded, "data")
		if err != nil {
			defaultErr = err
			return
		}
		defaultLex, defaultErr = Load(sub)
	})
	return defaultLex, defaultErr
}

// MustDefault is Default for callers that treat a broken embedded table as fatal.
func MustDefault() *Lexicon {
	lex, err := Default()
	if err != nil {
		panic(fmt.Sprintf("lexicon: %v", err))
	}
	return lex
}

// Load reads patterns.yaml, phrases.yaml and places.yaml from fsys.
func Load(fsys fs.FS) (*Lexicon, error) {
	var pf patternFile
	if err := decodeFile(fsys, "patterns.yaml", &pf); err != nil {
		return nil, err
	}
	var ph phraseFile
	if err := decodeFile(fsys, "phrases.yaml", &ph); err != nil {
		return nil, err
	}
	var pl placeFile
	if err := decodeFile(fsys, "places.yaml", &pl); err != nil {
		return nil, err
	}

	lex := &Lexicon{
		Version:     pf.Version,
		intents:     pf.Intents,
		patterns:    make(map[Category]map[domain.Language][]*regexp.Regexp),
		phrases:     ph.Phrases,
		lists:       ph.Lists,
		cities:      pl.Cities,
		months:      make(map[string]time.Month),
		fullMonths:  make(map[string]time.Month),
		numbers:     pl.Numbers,
		suggestions: pl.Suggestions,
	}

	for lang, cats := range pf.Patterns {
		if lang != anyLanguage && !lang.Valid() {
			return nil, fmt.Errorf("patterns.yaml: unsupported language %q", lang)
		}
		for cat, exprs := range cats {
			if lex.patterns[cat] == nil {
				lex.patterns[cat] = make(map[domain.Language][]*regexp.Regexp)
			}
			for _, expr := range exprs {
				re, err := regexp.Compile("(?i)" + expr)
				if err != nil {
					return nil, fmt.Errorf("patterns.yaml: %s/%s: %w", lang, cat, err)
				}
				lex.patterns[cat][lang] = append(lex.patterns[cat][lang], re)
			}
		}
	}

	for _, m := range pl.Months {
		if m.Number < 1 || m.Number > 12 {
			return nil, fmt.Errorf("places.yaml: invalid month number %d", m.Number)
		}
		for _, name := range m.Names {
			lex.months[Fold(name)] = time.Month(m.Number)
			lex.fullMonths[Fold(name)] = time.Month(m.Number)
		}
		for _, abbr := range m.Abbr {
			lex.months[Fold(abbr)] = time.Month(m.Number)
		}
	}

	return lex, nil
}

func decodeFile(fsys fs.FS, name string, out any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

// Fold lowercases s and strips diacritics, so "São Paulo" becomes "sao paulo".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

func (l *Lexicon) sets(cat Category, langs []domain.Language) [][]*regexp.Regexp {
	byLang := l.patterns[cat]
	if byLang == nil {
		return nil
	}
	if len(langs) == 0 {
		langs = domain.Languages
	}
	out := make([][]*regexp.Regexp, 0, len(langs)+1)
	for _, lang := range langs {
		out = append(out, byLang[lang])
	}
	return append(out, byLang[anyLanguage])
}

// Match reports whether any pattern of cat matches folded text. With no
// languages given, every language is consulted.
func (l *Lexicon) Match(cat Category, folded string, langs ...domain.Language) bool {
	for _, set := range l.sets(cat, langs) {
		for _, re := range set {
			if re.MatchString(folded) {
				return true
			}
		}
	}
	return false
}

// Count returns how many non-overlapping matches cat has in folded text.
func (l *Lexicon) Count(cat Category, folded string, langs ...domain.Language) int {
	n := 0
	for _, set := range l.sets(cat, langs) {
		for _, re := range set {
			n += len(re.FindAllStringIndex(folded, -1))
		}
	}
	return n
}

// Submatch is one pattern match with its named groups.
type Submatch struct {
	Start, End int
	Groups     map[string]string
}

// FindAll returns every match of every pattern in cat, ordered by position.
func (l *Lexicon) FindAll(cat Category, folded string, langs ...domain.Language) []Submatch {
	var out []Submatch
	for _, set := range l.sets(cat, langs) {
		for _, re := range set {
			names := re.SubexpNames()
			for _, idx := range re.FindAllStringSubmatchIndex(folded, -1) {
				m := Submatch{Start: idx[0], End: idx[1], Groups: make(map[string]string)}
				for i, name := range names {
					if name == "" || idx[2*i] < 0 {
						continue
					}
					m.Groups[name] = folded[idx[2*i]:idx[2*i+1]]
				}
				out = append(out, m)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Intents returns the intent names in priority order.
func (l *Lexicon) Intents() []string {
	out := make([]string, len(l.intents))
	copy(out, l.intents)
	return out
}

// Phrase returns the catalog text for key in lang, falling back to English.
// Placeholders of the form {name} are replaced from vars.
func (l *Lexicon) Phrase(lang domain.Language, key string, vars map[string]string) string {
	text, ok := l.phrases[lang][key]
	if !ok {
		text = l.phrases[domain.LanguageEnglish][key]
	}
	if len(vars) == 0 {
		return text
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// List returns the catalog list for key in lang, falling back to English.
func (l *Lexicon) List(lang domain.Language, key string) []string {
	items, ok := l.lists[lang][key]
	if !ok {
		items = l.lists[domain.LanguageEnglish][key]
	}
	out := make([]string, len(items))
	copy(out, items)
	return out
}

// Cities returns the city dictionary.
func (l *Lexicon) Cities() []City {
	return l.cities
}

// Month resolves a folded month word. Abbreviations are accepted only when abbr is true.
func (l *Lexicon) Month(word string, abbr bool) (time.Month, bool) {
	if abbr {
		m, ok := l.months[word]
		return m, ok
	}
	m, ok := l.fullMonths[word]
	return m, ok
}

// Number resolves a folded number word (one..nine in every language).
func (l *Lexicon) Number(word string) (int, bool) {
	n, ok := l.numbers[word]
	return n, ok
}

// Suggestions returns the destination suggestions stored under key.
func (l *Lexicon) Suggestions(key string) []string {
	items := l.suggestions[key]
	out := make([]string, len(items))
	copy(out, items)
	return out
}

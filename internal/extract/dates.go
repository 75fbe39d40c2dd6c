package extract

import (
	"sort"
	"strconv"
	"time"

	"github.com/aretw0/stagegate/internal/lexicon"
	"github.com/aretw0/stagegate/pkg/domain"
)

// DateLayout is the normalized format of date slots.
const DateLayout = "2006-01-02"

const (
	catDayMonth  lexicon.Category = "date.day_month"
	catMonthDay  lexicon.Category = "date.month_day"
	catNumeric   lexicon.Category = "date.numeric"
	catMonthOnly lexicon.Category = "date.month_only"
	catTomorrow  lexicon.Category = "date.tomorrow"
	catNextWeek  lexicon.Category = "date.next_week"
	catNextMonth lexicon.Category = "date.next_month"
)

type dateHit struct {
	start, end int
	date       time.Time
	confidence float64
	source     domain.SlotSource
	raw        string
}

func (h dateHit) overlaps(o dateHit) bool {
	return h.start < o.end && o.start < h.end
}

func (h dateHit) slot() domain.Slot {
	return domain.Slot{
		Value:      h.date.Format(DateLayout),
		Confidence: h.confidence,
		Source:     h.source,
		RawMatch:   h.raw,
	}
}

// extractDates assigns the first date in reading order to departure_date and
// the second, when it is not earlier, to return_date.
func (e *Extractor) extractDates(folded string, lang domain.Language, slots map[domain.SlotName]domain.Slot) {
	hits := e.findDates(folded, lang)
	if len(hits) == 0 {
		return
	}
	slots[domain.SlotDepartureDate] = hits[0].slot()
	for _, h := range hits[1:] {
		if !h.date.Before(hits[0].date) {
			slots[domain.SlotReturnDate] = h.slot()
			break
		}
	}
}

func (e *Extractor) findDates(folded string, lang domain.Language) []dateHit {
	today := truncateDay(e.now())
	var hits []dateHit
	add := func(h dateHit) {
		for _, o := range hits {
			if o.overlaps(h) {
				return
			}
		}
		hits = append(hits, h)
	}

	// Explicit forms first so the vaguer ones cannot claim their spans.
	for _, m := range e.lex.FindAll(catDayMonth, folded) {
		month, ok := e.lex.Month(m.Groups["month"], true)
		if !ok {
			continue
		}
		if d, ok := e.resolve(today, atoi(m.Groups["day"]), month, m.Groups["year"]); ok {
			add(dateHit{m.Start, m.End, d, 0.9, domain.SourceExact, folded[m.Start:m.End]})
		}
	}
	for _, m := range e.lex.FindAll(catMonthDay, folded) {
		month, ok := e.lex.Month(m.Groups["month"], true)
		if !ok {
			continue
		}
		if d, ok := e.resolve(today, atoi(m.Groups["day"]), month, m.Groups["year"]); ok {
			add(dateHit{m.Start, m.End, d, 0.9, domain.SourceExact, folded[m.Start:m.End]})
		}
	}
	for _, m := range e.lex.FindAll(catNumeric, folded) {
		day, month := atoi(m.Groups["a"]), atoi(m.Groups["b"])
		if lang == domain.LanguageEnglish {
			day, month = month, day
		}
		d, ok := e.resolve(today, day, time.Month(month), m.Groups["year"])
		if !ok {
			d, ok = e.resolve(today, month, time.Month(day), m.Groups["year"])
		}
		if ok {
			add(dateHit{m.Start, m.End, d, 0.8, domain.SourceExact, folded[m.Start:m.End]})
		}
	}

	for _, m := range e.lex.FindAll(catTomorrow, folded) {
		add(dateHit{m.Start, m.End, today.AddDate(0, 0, 1), 0.95, domain.SourceInferred, folded[m.Start:m.End]})
	}
	for _, m := range e.lex.FindAll(catNextWeek, folded) {
		add(dateHit{m.Start, m.End, today.AddDate(0, 0, 7), 0.7, domain.SourceInferred, folded[m.Start:m.End]})
	}
	for _, m := range e.lex.FindAll(catNextMonth, folded) {
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
		add(dateHit{m.Start, m.End, first, 0.6, domain.SourceInferred, folded[m.Start:m.End]})
	}
	for _, m := range e.lex.FindAll(catMonthOnly, folded) {
		month, ok := e.lex.Month(m.Groups["month"], false)
		if !ok {
			continue
		}
		d, ok := e.resolve(today, 1, month, "")
		if month == today.Month() {
			d, ok = today, true
		}
		if ok {
			add(dateHit{m.Start, m.End, d, 0.6, domain.SourceInferred, folded[m.Start:m.End]})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].start < hits[j].start })
	return hits
}

// resolve builds a calendar date. Without an explicit year, dates already
// past roll over to next year.
func (e *Extractor) resolve(today time.Time, day int, month time.Month, year string) (time.Time, bool) {
	if day < 1 || day > 31 || month < time.January || month > time.December {
		return time.Time{}, false
	}
	y := today.Year()
	explicit := year != ""
	if explicit {
		y = atoi(year)
		if y < 100 {
			y += 2000
		}
	}
	d := time.Date(y, month, day, 0, 0, 0, 0, time.UTC)
	if d.Day() != day {
		return time.Time{}, false
	}
	if !explicit && d.Before(today) {
		d = time.Date(y+1, month, day, 0, 0, 0, 0, time.UTC)
		if d.Day() != day {
			return time.Time{}, false
		}
	}
	return d, true
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

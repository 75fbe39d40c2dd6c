package enforce

import (
	"strconv"
	"strings"

	"github.com/aretw0/stagegate/pkg/domain"
)

// Respond selects the response for the turn from the enforcement result and,
// when the collaborator already ran the action, its execution status. Text is
// drawn from the phrase catalog in the session language.
func (e *Enforcer) Respond(sc *domain.SessionContext, res domain.EnforcementResult, status *domain.ExecutionStatus) domain.Response {
	lang := sc.Data.Language

	if status != nil {
		switch {
		case status.Error != "":
			return domain.Response{Kind: domain.ResponseError, Text: e.lex.Phrase(lang, "response.error", nil)}
		case status.ActionExecuted && status.Results != nil && status.Results.Count > 0:
			vars := map[string]string{"count": strconv.Itoa(status.Results.Count)}
			return domain.Response{Kind: domain.ResponseResults, Text: e.lex.Phrase(lang, "response.results", vars)}
		case status.ActionExecuted:
			return domain.Response{Kind: domain.ResponseEmpty, Text: e.lex.Phrase(lang, "response.empty", nil)}
		}
	}

	switch res.ActionType {
	case domain.ActionTypeAskConsent:
		vars := map[string]string{"summary": e.Summary(sc.Data)}
		return domain.Response{Kind: domain.ResponseConsent, Text: e.lex.Phrase(lang, "response.consent."+string(res.Consent), vars)}
	case domain.ActionTypeCollectData:
		if q := e.question(sc.Data, res.MissingContext); q != "" {
			return domain.Response{Kind: domain.ResponseCollect, Text: q}
		}
	}
	return domain.Response{Kind: domain.ResponseOpen, Text: e.lex.Phrase(lang, "response.open", nil)}
}

// question phrases the first missing item as a clarifying question, or as a
// yes/no confirmation for a value in the needs-confirmation band.
func (e *Enforcer) question(data domain.TravelData, missing []string) string {
	if len(missing) == 0 {
		return ""
	}
	item := missing[0]
	if name, ok := strings.CutPrefix(item, "confirm:"); ok {
		slot, _ := data.Get(domain.SlotName(name))
		if q, ok := e.extractor.ConfirmationPrompt(domain.SlotName(name), slot, data.Language); ok {
			return q
		}
		item = name
	}
	return e.lex.Phrase(data.Language, "question."+item, nil)
}

// Summary renders the collected trip in one line, e.g. "Lisbon to Paris on
// 2026-11-10 for 2".
func (e *Enforcer) Summary(data domain.TravelData) string {
	lang := data.Language
	origin := data.Value(domain.SlotOrigin)
	dest := data.Value(domain.SlotDestination)

	var parts []string
	switch {
	case origin != "" && dest != "":
		parts = append(parts, e.lex.Phrase(lang, "summary.route", map[string]string{"origin": origin, "destination": dest}))
	case dest != "":
		parts = append(parts, e.lex.Phrase(lang, "summary.to", map[string]string{"destination": dest}))
	case origin != "":
		parts = append(parts, e.lex.Phrase(lang, "summary.from", map[string]string{"origin": origin}))
	}
	if date := data.Value(domain.SlotDepartureDate); date != "" {
		parts = append(parts, e.lex.Phrase(lang, "summary.on", map[string]string{"date": date}))
	}
	if n, ok := data.Passengers(); ok {
		parts = append(parts, e.lex.Phrase(lang, "summary.passengers", map[string]string{"count": strconv.Itoa(n)}))
	}
	return strings.Join(parts, " ")
}

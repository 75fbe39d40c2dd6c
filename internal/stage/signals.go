package stage

import (
	"github.com/aretw0/stagegate/internal/lexicon"
	"github.com/aretw0/stagegate/pkg/domain"
)

const (
	catConsentSearch       lexicon.Category = "consent_search"
	catConsentBooking      lexicon.Category = "consent_booking"
	catAffirmative         lexicon.Category = "affirmative"
	catOptionSelection     lexicon.Category = "option_selection"
	catBookingConfirmation lexicon.Category = "booking_confirmation"
	catSearchRequest       lexicon.Category = "search_request"
	catBookingRequest      lexicon.Category = "booking_request"
)

// Signals are the explicit user utterances that can grant consent or drive a
// signal-based transition.
type Signals struct {
	ConsentSearch       bool `json:"consent_search"`
	ConsentBooking      bool `json:"consent_booking"`
	Affirmative         bool `json:"affirmative"`
	Selection           bool `json:"selection"`
	BookingConfirmation bool `json:"booking_confirmation"`
	SearchRequest       bool `json:"search_request"`
	BookingRequest      bool `json:"booking_request"`
}

// DetectSignals reads signals from a folded message. Patterns of every
// language are consulted, so a locked language does not hide a consent.
func DetectSignals(lex *lexicon.Lexicon, folded string) Signals {
	return Signals{
		ConsentSearch:       lex.Match(catConsentSearch, folded),
		ConsentBooking:      lex.Match(catConsentBooking, folded),
		Affirmative:         lex.Match(catAffirmative, folded),
		Selection:           lex.Match(catOptionSelection, folded),
		BookingConfirmation: lex.Match(catBookingConfirmation, folded),
		SearchRequest:       lex.Match(catSearchRequest, folded),
		BookingRequest:      lex.Match(catBookingRequest, folded),
	}
}

// Requested returns the furthest stage the message asks for, or "" when it
// asks for none.
func (s Signals) Requested() domain.Stage {
	switch {
	case s.BookingConfirmation:
		return domain.StagePostBooking
	case s.BookingRequest, s.ConsentBooking, s.Selection:
		return domain.StageReadyToBook
	case s.SearchRequest, s.ConsentSearch:
		return domain.StageReadyToSearch
	}
	return ""
}

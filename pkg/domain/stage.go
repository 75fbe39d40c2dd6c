package domain

// Stage is a conversation disclosure phase.
type Stage string

const (
	StageDiscovery     Stage = "DISCOVERY"
	StageNarrowing     Stage = "NARROWING"
	StageReadyToSearch Stage = "READY_TO_SEARCH"
	StageReadyToBook   Stage = "READY_TO_BOOK"
	StagePostBooking   Stage = "POST_BOOKING"
)

var stageOrder = []Stage{
	StageDiscovery,
	StageNarrowing,
	StageReadyToSearch,
	StageReadyToBook,
	StagePostBooking,
}

// Stages returns the stages in their fixed forward order.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// Index returns the position of the stage in the forward order, or -1 if unknown.
func (s Stage) Index() int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the five known stages.
func (s Stage) Valid() bool {
	return s.Index() >= 0
}

// Before reports whether s comes strictly earlier than other.
func (s Stage) Before(other Stage) bool {
	return s.Index() < other.Index()
}

func (s Stage) String() string {
	return string(s)
}

// Action names an agent behavior that a stage may allow or forbid.
type Action string

const (
	ActionExecuteSearch       Action = "execute_search"
	ActionShowPrices          Action = "show_prices"
	ActionInitiateBooking     Action = "initiate_booking"
	ActionAutoExecutePayment  Action = "auto_execute_payment"
	ActionPressureUpsell      Action = "pressure_upsell"
	ActionSkipStages          Action = "skip_stages"
	ActionAskConsent          Action = "ask_consent"
	ActionCollectPaymentInfo  Action = "collect_payment_info"
	ActionShowBookingForm     Action = "show_booking_form"
	ActionExposePricing       Action = "expose_pricing_internals"
	ActionShareMargins        Action = "share_margins_or_commissions"
	ActionAccessAdminData     Action = "access_admin_data"
	ActionSharePII            Action = "share_pii"
	ActionMakeLegalClaims     Action = "make_legal_claims"
	ActionSayCannotHelp       Action = "say_cannot_help"
	ActionHideCancellation    Action = "hide_cancellation_policy"
	ActionSkipConfirmation    Action = "skip_confirmation"
	ActionSkipReview          Action = "skip_review"
	ActionConfirmBooking      Action = "confirm_booking"
	ActionShowFlightResults   Action = "show_flight_results"
	ActionCollectPassengerInf Action = "collect_passenger_details"
	ActionAskClarifying       Action = "ask_clarifying_questions"
	ActionSuggestDestinations Action = "suggest_destinations"
	ActionCollectTravelData   Action = "collect_travel_data"
)

// AlwaysForbidden are forbidden in every stage, on top of each stage rule.
var AlwaysForbidden = []Action{
	ActionExposePricing,
	ActionShareMargins,
	ActionAccessAdminData,
	ActionSharePII,
	ActionMakeLegalClaims,
	ActionSayCannotHelp,
	ActionSkipStages,
}

// ConsentKind identifies a class of side-effecting action the user can authorize.
type ConsentKind string

const (
	ConsentSearch  ConsentKind = "search"
	ConsentBooking ConsentKind = "booking"
)

// StageRule is the static policy attached to a stage.
type StageRule struct {
	Stage            Stage         `json:"stage" yaml:"stage"`
	CanShowPrices    bool          `json:"can_show_prices" yaml:"can_show_prices"`
	MaxQuestions     int           `json:"max_questions" yaml:"max_questions"`
	AllowedActions   []Action      `json:"allowed_actions" yaml:"allowed_actions"`
	ForbiddenActions []Action      `json:"forbidden_actions" yaml:"forbidden_actions"`
	RequiresConsent  []ConsentKind `json:"requires_consent,omitempty" yaml:"requires_consent"`
	NextStages       []Stage       `json:"next_stages" yaml:"next_stages"`
}

// Allows reports whether action is in the allowed set.
func (r StageRule) Allows(action Action) bool {
	for _, a := range r.AllowedActions {
		if a == action {
			return true
		}
	}
	return false
}

// Forbids reports whether action is forbidden by the rule or globally.
func (r StageRule) Forbids(action Action) bool {
	for _, a := range r.ForbiddenActions {
		if a == action {
			return true
		}
	}
	for _, a := range AlwaysForbidden {
		if a == action {
			return true
		}
	}
	return false
}

// Requires reports whether kind of consent is needed in this stage.
func (r StageRule) Requires(kind ConsentKind) bool {
	for _, k := range r.RequiresConsent {
		if k == kind {
			return true
		}
	}
	return false
}

// Terminal reports whether the stage has no successors.
func (r StageRule) Terminal() bool {
	return len(r.NextStages) == 0
}

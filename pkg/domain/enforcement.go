package domain

// ActionType is the enforcement decision for a turn.
type ActionType string

const (
	ActionTypeExecuteSearch   ActionType = "execute_search"
	ActionTypeInitiateBooking ActionType = "initiate_booking"
	ActionTypeAskConsent      ActionType = "ask_consent"
	ActionTypeCollectData     ActionType = "collect_data"
	ActionTypeNone            ActionType = "none"
)

// Executes reports whether the action type is a side-effecting execution.
func (a ActionType) Executes() bool {
	return a == ActionTypeExecuteSearch || a == ActionTypeInitiateBooking
}

// EnforcementResult is the contract handed to the response generator.
type EnforcementResult struct {
	MustExecuteAction bool        `json:"must_execute_action"`
	ActionType        ActionType  `json:"action_type"`
	BlockFallback     bool        `json:"block_fallback"`
	MissingContext    []string    `json:"missing_context"`
	Consent           ConsentKind `json:"consent,omitempty"`
	StageBefore       Stage       `json:"stage_before"`
	StageAfter        Stage       `json:"stage_after"`
	Reason            string      `json:"reason"`
	Log               []string    `json:"log"`
}

// SearchResults is the outcome of an executed search or booking.
type SearchResults struct {
	Count int `json:"count"`
	Data  any `json:"data,omitempty"`
}

// ExecutionStatus is reported back by the action-execution collaborator.
type ExecutionStatus struct {
	ActionExecuted bool           `json:"action_executed"`
	ActionType     ActionType     `json:"action_type"`
	Results        *SearchResults `json:"results,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// ResponseKind is the category of a deterministically selected response.
type ResponseKind string

const (
	ResponseResults ResponseKind = "results"
	ResponseEmpty   ResponseKind = "empty"
	ResponseError   ResponseKind = "error"
	ResponseConsent ResponseKind = "consent"
	ResponseCollect ResponseKind = "collect"
	ResponseOpen    ResponseKind = "open"
)

// Response is a compliant text the core selected for the turn.
type Response struct {
	Kind ResponseKind `json:"kind"`
	Text string       `json:"text"`
}

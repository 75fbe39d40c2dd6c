package domain

// ConfidenceLevel is the coarse confidence of an intent reading.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// ChaosCategory describes how ambiguous or underspecified a turn is.
type ChaosCategory string

const (
	ChaosClear          ChaosCategory = "CLEAR_INTENT"
	ChaosExploratory    ChaosCategory = "EXPLORATORY_TRAVEL"
	ChaosBudget         ChaosCategory = "BUDGET_SENSITIVE"
	ChaosFamily         ChaosCategory = "FAMILY_TRAVEL"
	ChaosLowInformation ChaosCategory = "LOW_INFORMATION"
	ChaosChaotic        ChaosCategory = "CHAOTIC_INTENT"
)

// RiskLevel gates automatic enforcement.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// RiskFlag is a reason a turn was considered risky.
type RiskFlag string

const (
	RiskLegalThreat   RiskFlag = "LEGAL_THREAT"
	RiskSecurity      RiskFlag = "SECURITY_CONCERN"
	RiskInternalQuery RiskFlag = "INTERNAL_QUERY"
	RiskHighChurn     RiskFlag = "HIGH_CHURN_RISK"
)

// EmotionState is the detected emotional register of the user.
type EmotionState string

const (
	EmotionNeutral      EmotionState = "neutral"
	EmotionFrustration  EmotionState = "frustration"
	EmotionUrgency      EmotionState = "urgency"
	EmotionConfusion    EmotionState = "confusion"
	EmotionAppreciation EmotionState = "appreciation"
)

// Emotion is the emotional context carried across turns and handoffs.
type Emotion struct {
	State      EmotionState `json:"state" mapstructure:"state"`
	Confidence float64      `json:"confidence" mapstructure:"confidence"`
}

// Team names a specialist agent.
type Team string

const (
	TeamCustomerService Team = "customer-service"
	TeamFlights         Team = "flight-operations"
	TeamHotels          Team = "hotel-accommodations"
	TeamPayments        Team = "payment-billing"
	TeamCrisis          Team = "crisis-management"
)

// Intents recognized by the classifier.
const (
	IntentFlightSearch   = "flight_search"
	IntentHotelSearch    = "hotel_search"
	IntentBookingStatus  = "booking_status"
	IntentPaymentIssue   = "payment_issue"
	IntentCancellation   = "cancellation"
	IntentComplaint      = "complaint"
	IntentPricing        = "pricing"
	IntentVisaPassport   = "visa_passport"
	IntentBaggage        = "baggage"
	IntentGeneralInquiry = "general_inquiry"
)

// SupportIntents never carry a mandatory search or booking action.
var SupportIntents = map[string]bool{
	IntentBookingStatus: true,
	IntentPaymentIssue:  true,
	IntentCancellation:  true,
	IntentComplaint:     true,
	IntentVisaPassport:  true,
	IntentBaggage:       true,
}

// Classification is the classifier output for one turn.
type Classification struct {
	Intent                string          `json:"intent"`
	Confidence            ConfidenceLevel `json:"confidence"`
	Chaos                 ChaosCategory   `json:"chaos_category"`
	MissingContext        []string        `json:"missing_context"`
	ClarifyingQuestions   []string        `json:"clarifying_questions"`
	SuggestedDestinations []string        `json:"suggested_destinations,omitempty"`
	RegionHint            string          `json:"region_hint,omitempty"`

	// Stage recommendation; replaced by the stage engine's result before use.
	ConversationStage Stage    `json:"conversation_stage"`
	StageActions      []Action `json:"stage_actions"`
	StageForbidden    []Action `json:"stage_forbidden"`

	Emotion          Emotion    `json:"emotion"`
	RiskFlags        []RiskFlag `json:"risk_flags,omitempty"`
	RiskLevel        RiskLevel  `json:"risk_level"`
	RecommendedAgent Team       `json:"recommended_agent"`
}

// MaxClarifyingQuestions caps the clarifying questions of any classification.
const MaxClarifyingQuestions = 2

// Forbids reports whether the classification lists action as forbidden.
func (c Classification) Forbids(action Action) bool {
	for _, a := range c.StageForbidden {
		if a == action {
			return true
		}
	}
	return false
}

package domain

import (
	"slices"
	"time"
)

// StageTransition is one entry of the append-only stage history.
type StageTransition struct {
	From    Stage     `json:"from"`
	To      Stage     `json:"to"`
	Trigger string    `json:"trigger"`
	At      time.Time `json:"at"`
}

// Consents records the explicit authorizations given by the user.
type Consents struct {
	SearchPermission  bool `json:"search_permission" mapstructure:"search_permission"`
	BookingPermission bool `json:"booking_permission" mapstructure:"booking_permission"`
}

// Granted reports whether the given kind of consent is present.
func (c Consents) Granted(kind ConsentKind) bool {
	switch kind {
	case ConsentSearch:
		return c.SearchPermission
	case ConsentBooking:
		return c.BookingPermission
	}
	return false
}

// Grant sets the flag for kind. Consents are never revoked outside a reset.
func (c *Consents) Grant(kind ConsentKind) {
	switch kind {
	case ConsentSearch:
		c.SearchPermission = true
	case ConsentBooking:
		c.BookingPermission = true
	}
}

// SessionContext is the per-session stage context.
type SessionContext struct {
	SessionID     string            `json:"session_id"`
	CurrentStage  Stage             `json:"current_stage"`
	PreviousStage Stage             `json:"previous_stage,omitempty"`
	StageHistory  []StageTransition `json:"stage_history"`
	Data          TravelData        `json:"collected_data"`
	Consents      Consents          `json:"user_consents"`

	// PendingConsent is the consent requested on the last turn, if any.
	PendingConsent ConsentKind `json:"pending_consent,omitempty"`

	SearchExecuted  bool `json:"search_executed"`
	LastResultCount int  `json:"last_result_count"`

	Intent              string    `json:"intent,omitempty"`
	Risk                RiskLevel `json:"risk,omitempty"`
	Emotion             Emotion   `json:"emotion"`
	ActiveAgent         Team      `json:"active_agent,omitempty"`
	ConsecutiveHandoffs int       `json:"consecutive_handoffs"`

	Turns      int    `json:"turns"`
	LastTurnID string `json:"last_turn_id,omitempty"`
	// RecentTurnIDs holds the IDs of the last RecentTurnWindow applied turns, oldest first.
	RecentTurnIDs []string  `json:"recent_turn_ids,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Sealed carries the encrypted session when a store encrypts at rest.
	// It is empty on every context the engine works with.
	Sealed string `json:"sealed,omitempty"`
}

// NewSessionContext creates a session at DISCOVERY with empty data and no consents.
func NewSessionContext(sessionID string, now time.Time) *SessionContext {
	return &SessionContext{
		SessionID:    sessionID,
		CurrentStage: StageDiscovery,
		StageHistory: []StageTransition{},
		Data:         NewTravelData(LanguageEnglish),
		Emotion:      Emotion{State: EmotionNeutral},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Clone returns a deep copy of the session.
func (s *SessionContext) Clone() *SessionContext {
	if s == nil {
		return nil
	}
	out := *s
	out.StageHistory = make([]StageTransition, len(s.StageHistory))
	copy(out.StageHistory, s.StageHistory)
	out.Data = s.Data.Clone()
	if s.RecentTurnIDs != nil {
		out.RecentTurnIDs = append([]string(nil), s.RecentTurnIDs...)
	}
	return &out
}

// RecentTurnWindow is how many applied turn IDs a session remembers.
const RecentTurnWindow = 32

// RecordTurn marks id as the last applied turn.
func (s *SessionContext) RecordTurn(id string) {
	s.LastTurnID = id
	s.RecentTurnIDs = append(s.RecentTurnIDs, id)
	if n := len(s.RecentTurnIDs); n > RecentTurnWindow {
		s.RecentTurnIDs = append([]string(nil), s.RecentTurnIDs[n-RecentTurnWindow:]...)
	}
}

// AppliedTurn reports whether id is one of the recently applied turns.
func (s *SessionContext) AppliedTurn(id string) bool {
	return id != "" && (s.LastTurnID == id || slices.Contains(s.RecentTurnIDs, id))
}

// Advance moves the session one stage forward and records the step.
func (s *SessionContext) Advance(to Stage, trigger string, at time.Time) StageTransition {
	t := StageTransition{From: s.CurrentStage, To: to, Trigger: trigger, At: at}
	s.PreviousStage = s.CurrentStage
	s.CurrentStage = to
	s.StageHistory = append(s.StageHistory, t)
	return t
}

// Visited returns the stages the session has been in, in order.
func (s *SessionContext) Visited() []Stage {
	visited := []Stage{StageDiscovery}
	for _, t := range s.StageHistory {
		visited = append(visited, t.To)
	}
	return visited
}

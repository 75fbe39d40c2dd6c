// Package handoff builds and reads the portable snapshot exchanged when a
// conversation moves between specialist agents, and limits handoff loops.
package handoff

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/stagegate/pkg/domain"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

// AgentState is the state injected into an agent. Slots must be non-nil even
// when empty; a nil map means the slots were never provided.
type AgentState struct {
	Intent       string                          `json:"intent"`
	Stage        domain.Stage                    `json:"stage"`
	Language     domain.Language                 `json:"language"`
	Slots        map[domain.SlotName]domain.Slot `json:"slots"`
	Consents     domain.Consents                 `json:"consents"`
	Emotion      domain.Emotion                  `json:"emotion"`
	HandoffCount int                             `json:"handoff_count"`
}

// StateFromSession captures the agent state of a session.
func StateFromSession(sc *domain.SessionContext) AgentState {
	data := sc.Data.Clone()
	return AgentState{
		Intent:       sc.Intent,
		Stage:        sc.CurrentStage,
		Language:     data.Language,
		Slots:        data.Slots,
		Consents:     sc.Consents,
		Emotion:      sc.Emotion,
		HandoffCount: sc.ConsecutiveHandoffs,
	}
}

// Missing lists every mandatory field that is absent, in a single pass.
func (s AgentState) Missing() []string {
	var missing []string
	if s.Intent == "" {
		missing = append(missing, "intent")
	}
	if s.Stage == "" {
		missing = append(missing, "stage")
	}
	if s.Language == "" {
		missing = append(missing, "language")
	}
	if s.Slots == nil {
		missing = append(missing, "slots")
	}
	return missing
}

// Validate reports missing fields as a *domain.MissingStateError and unknown
// values as domain.ErrInvalidContract.
func (s AgentState) Validate() error {
	if missing := s.Missing(); len(missing) > 0 {
		return &domain.MissingStateError{Fields: missing}
	}
	if !s.Stage.Valid() {
		return fmt.Errorf("%w: unknown stage %q", domain.ErrInvalidContract, s.Stage)
	}
	if !s.Language.Valid() {
		return fmt.Errorf("%w: unsupported language %q", domain.ErrInvalidContract, s.Language)
	}
	return nil
}

// SlotValue is a slot as carried by a contract.
type SlotValue struct {
	Value      string            `json:"value" mapstructure:"value"`
	Confidence float64           `json:"confidence" mapstructure:"confidence"`
	Source     domain.SlotSource `json:"source" mapstructure:"source"`
}

// Contract is the point-in-time snapshot handed from one agent to another.
type Contract struct {
	ID                   string                        `json:"id" mapstructure:"id"`
	Intent               string                        `json:"intent" mapstructure:"intent"`
	Stage                domain.Stage                  `json:"stage" mapstructure:"stage"`
	ConversationLanguage domain.Language               `json:"conversation_language" mapstructure:"conversation_language"`
	Slots                map[domain.SlotName]SlotValue `json:"slots" mapstructure:"slots"`
	Consents             domain.Consents               `json:"consents" mapstructure:"consents"`
	Emotion              domain.Emotion                `json:"emotion" mapstructure:"emotion"`
	FromAgent            domain.Team                   `json:"from_agent" mapstructure:"from_agent"`
	ToAgent              domain.Team                   `json:"to_agent" mapstructure:"to_agent"`
	HandoffCount         int                           `json:"handoff_count" mapstructure:"handoff_count"`
	Timestamp            time.Time                     `json:"timestamp" mapstructure:"timestamp"`
}

// Create builds a contract from state. It fails with a *domain.MissingStateError
// naming every absent field rather than defaulting any of them.
func Create(state AgentState, from, to domain.Team, at time.Time) (*Contract, error) {
	if err := state.Validate(); err != nil {
		return nil, err
	}

	slots := make(map[domain.SlotName]SlotValue, len(state.Slots))
	for name, slot := range state.Slots {
		slots[name] = SlotValue{Value: slot.Value, Confidence: slot.Confidence, Source: slot.Source}
	}

	c := &Contract{
		ID:                   uuid.NewString(),
		Intent:               state.Intent,
		Stage:                state.Stage,
		ConversationLanguage: state.Language,
		Slots:                slots,
		Consents:             state.Consents,
		Emotion:              state.Emotion,
		FromAgent:            from,
		ToAgent:              to,
		HandoffCount:         state.HandoffCount,
		Timestamp:            at.UTC(),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that every mandatory field is present and well-formed.
func (c *Contract) Validate() error {
	var missing []string
	for _, f := range []struct {
		name   string
		absent bool
	}{
		{"id", c.ID == ""},
		{"intent", c.Intent == ""},
		{"stage", c.Stage == ""},
		{"conversation_language", c.ConversationLanguage == ""},
		{"slots", c.Slots == nil},
		{"from_agent", c.FromAgent == ""},
		{"to_agent", c.ToAgent == ""},
		{"timestamp", c.Timestamp.IsZero()},
	} {
		if f.absent {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &domain.MissingStateError{Fields: missing}
	}

	if !c.Stage.Valid() {
		return fmt.Errorf("%w: unknown stage %q", domain.ErrInvalidContract, c.Stage)
	}
	if !c.ConversationLanguage.Valid() {
		return fmt.Errorf("%w: unsupported language %q", domain.ErrInvalidContract, c.ConversationLanguage)
	}
	if c.HandoffCount < 0 {
		return fmt.Errorf("%w: negative handoff count", domain.ErrInvalidContract)
	}
	for name, slot := range c.Slots {
		if slot.Confidence < 0 || slot.Confidence > 1 {
			return fmt.Errorf("%w: slot %s confidence %v outside [0,1]", domain.ErrInvalidContract, name, slot.Confidence)
		}
	}
	return nil
}

// StateFromContract reconstructs the agent state carried by c.
func StateFromContract(c *Contract) (AgentState, error) {
	if c == nil {
		return AgentState{}, fmt.Errorf("%w: nil contract", domain.ErrInvalidContract)
	}
	if err := c.Validate(); err != nil {
		return AgentState{}, err
	}

	slots := make(map[domain.SlotName]domain.Slot, len(c.Slots))
	for name, v := range c.Slots {
		slots[name] = domain.Slot{Value: v.Value, Confidence: v.Confidence, Source: v.Source}
	}
	return AgentState{
		Intent:       c.Intent,
		Stage:        c.Stage,
		Language:     c.ConversationLanguage,
		Slots:        slots,
		Consents:     c.Consents,
		Emotion:      c.Emotion,
		HandoffCount: c.HandoffCount,
	}, nil
}

// Map renders the contract as the opaque value exchanged between agents.
func (c *Contract) Map() (map[string]any, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal contract: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to flatten contract: %w", err)
	}
	return out, nil
}

// Decode reads a contract from an opaque value. Only the contract shape is
// accepted: unknown keys and mistyped values fail with
// domain.ErrInvalidContract, absent fields with a *domain.MissingStateError.
func Decode(payload map[string]any) (*Contract, error) {
	if payload == nil {
		return nil, fmt.Errorf("%w: empty payload", domain.ErrInvalidContract)
	}

	var c Contract
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &c,
		ErrorUnused: true,
		DecodeHook:  mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build contract decoder: %w", err)
	}
	if err := decoder.Decode(payload); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidContract, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// DecodeJSON reads a contract from its JSON encoding.
func DecodeJSON(raw []byte) (*Contract, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errors.Join(domain.ErrInvalidContract, err)
	}
	return Decode(payload)
}

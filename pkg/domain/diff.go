package domain

// SessionDiff represents the changes a turn made to a session.
// It is designed to be serialized to JSON for partial updates on the client.
type SessionDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	Stage *Stage `json:"stage,omitempty"`

	// Slots contains only added or changed slots.
	Slots map[SlotName]Slot `json:"slots,omitempty"`

	// Granted lists consents that became true.
	Granted []ConsentKind `json:"granted,omitempty"`

	// Transitions appended to the stage history.
	Transitions []StageTransition `json:"transitions,omitempty"`

	Language *Language `json:"language,omitempty"`
}

// Diff calculates the difference between oldCtx and newCtx.
// If oldCtx is nil, it returns a diff representing the entire newCtx (initial load).
func Diff(oldCtx, newCtx *SessionContext) *SessionDiff {
	if newCtx == nil {
		return nil
	}

	diff := &SessionDiff{SessionID: newCtx.SessionID}

	if oldCtx == nil || oldCtx.CurrentStage != newCtx.CurrentStage {
		stage := newCtx.CurrentStage
		diff.Stage = &stage
	}
	if oldCtx == nil || oldCtx.Data.Language != newCtx.Data.Language {
		lang := newCtx.Data.Language
		diff.Language = &lang
	}

	diff.Slots = diffSlots(oldCtx, newCtx)
	diff.Granted = diffConsents(oldCtx, newCtx)
	diff.Transitions = diffHistory(oldCtx, newCtx)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffSlots(old, new *SessionContext) map[SlotName]Slot {
	delta := make(map[SlotName]Slot)
	for name, slot := range new.Data.Slots {
		if old != nil {
			if prev, ok := old.Data.Slots[name]; ok && prev == slot {
				continue
			}
		}
		delta[name] = slot
	}
	if len(delta) == 0 {
		return nil
	}
	return delta
}

func diffConsents(old, new *SessionContext) []ConsentKind {
	var prev Consents
	if old != nil {
		prev = old.Consents
	}
	var granted []ConsentKind
	if new.Consents.SearchPermission && !prev.SearchPermission {
		granted = append(granted, ConsentSearch)
	}
	if new.Consents.BookingPermission && !prev.BookingPermission {
		granted = append(granted, ConsentBooking)
	}
	return granted
}

// diffHistory assumes the append-only behavior of the stage history.
func diffHistory(old, new *SessionContext) []StageTransition {
	if len(new.StageHistory) == 0 {
		return nil
	}
	if old == nil {
		return new.StageHistory
	}
	if len(new.StageHistory) > len(old.StageHistory) {
		return new.StageHistory[len(old.StageHistory):]
	}
	return nil
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SessionDiff) IsEmpty() bool {
	return d.Stage == nil &&
		d.Language == nil &&
		len(d.Slots) == 0 &&
		len(d.Granted) == 0 &&
		len(d.Transitions) == 0
}

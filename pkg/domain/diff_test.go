package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	base := NewSessionContext("sess-1", now)

	t.Run("Initial Load (Old is Nil)", func(t *testing.T) {
		diff := Diff(nil, base)
		require.NotNil(t, diff)
		assert.Equal(t, "sess-1", diff.SessionID)
		require.NotNil(t, diff.Stage)
		assert.Equal(t, StageDiscovery, *diff.Stage)
	})

	t.Run("No Changes", func(t *testing.T) {
		assert.Nil(t, Diff(base, base.Clone()))
	})

	t.Run("Slot, Consent and Stage Changes", func(t *testing.T) {
		next := base.Clone()
		next.Data.Merge(map[SlotName]Slot{
			SlotDestination: {Value: "Paris", Confidence: 1, Source: SourceExact},
		})
		next.Consents.Grant(ConsentSearch)
		next.Advance(StageNarrowing, "destination", now)

		diff := Diff(base, next)
		require.NotNil(t, diff)
		assert.Equal(t, StageNarrowing, *diff.Stage)
		assert.Contains(t, diff.Slots, SlotDestination)
		assert.Equal(t, []ConsentKind{ConsentSearch}, diff.Granted)
		require.Len(t, diff.Transitions, 1)
		assert.Equal(t, StageDiscovery, diff.Transitions[0].From)
	})

	t.Run("Unchanged Slot Omitted", func(t *testing.T) {
		old := base.Clone()
		old.Data.Merge(map[SlotName]Slot{SlotOrigin: {Value: "Lisbon", Confidence: 1}})
		next := old.Clone()
		next.Data.Merge(map[SlotName]Slot{SlotDestination: {Value: "Rome", Confidence: 0.9}})

		diff := Diff(old, next)
		require.NotNil(t, diff)
		assert.NotContains(t, diff.Slots, SlotOrigin)
		assert.Contains(t, diff.Slots, SlotDestination)
		assert.Nil(t, diff.Stage)
	})
}

func TestTravelData_Merge(t *testing.T) {
	data := NewTravelData(LanguageEnglish)
	data.Merge(map[SlotName]Slot{SlotDestination: {Value: "Paris", Confidence: 0.8, Source: SourceInferred}})

	changed := data.Merge(map[SlotName]Slot{SlotDestination: {Value: "Porto", Confidence: 0.5, Source: SourceFuzzy}})
	assert.Empty(t, changed)
	assert.Equal(t, "Paris", data.Value(SlotDestination))

	changed = data.Merge(map[SlotName]Slot{SlotDestination: {Value: "Lisbon", Confidence: 1, Source: SourceExact}})
	assert.Equal(t, []SlotName{SlotDestination}, changed)
	assert.Equal(t, "Lisbon", data.Value(SlotDestination))

	again := data.Merge(map[SlotName]Slot{SlotDestination: {Value: "Lisbon", Confidence: 1, Source: SourceExact}})
	assert.Empty(t, again, "re-applying the same slot must be a no-op")
}

func TestBandOf(t *testing.T) {
	tests := []struct {
		confidence float64
		want       Band
	}{
		{1.0, BandTrusted},
		{0.6, BandTrusted},
		{0.59, BandNeedsConfirmation},
		{0.4, BandNeedsConfirmation},
		{0.39, BandUnreliable},
		{0, BandUnreliable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BandOf(tt.confidence), "confidence %v", tt.confidence)
	}
}

func TestStageOrder(t *testing.T) {
	stages := Stages()
	for i := 1; i < len(stages); i++ {
		assert.True(t, stages[i-1].Before(stages[i]))
	}
	assert.False(t, Stage("LIMBO").Valid())
	assert.Equal(t, -1, Stage("LIMBO").Index())
}

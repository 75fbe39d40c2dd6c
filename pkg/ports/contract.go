package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/stagegate/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")
	created := time.Date(2026, time.October, 16, 9, 30, 0, 0, time.UTC)

	sample := func(id string) *domain.SessionContext {
		sc := domain.NewSessionContext(id, created)
		sc.Data.Language = domain.LanguagePortuguese
		sc.Data.LanguageLocked = true
		sc.Data.Merge(map[domain.SlotName]domain.Slot{
			domain.SlotDestination:   {Value: "Paris", Confidence: 0.9, Source: domain.SourceFuzzy, RawMatch: "pariss"},
			domain.SlotDepartureDate: {Value: "2026-11-10", Confidence: 0.9, Source: domain.SourceExact},
		})
		sc.Advance(domain.StageNarrowing, "destination_known", created.Add(time.Minute))
		sc.Advance(domain.StageReadyToSearch, "search_data_complete", created.Add(time.Minute))
		sc.Consents.Grant(domain.ConsentSearch)
		sc.PendingConsent = domain.ConsentBooking
		sc.LastTurnID = "turn-1"
		return sc
	}

	t.Run("Save and Load", func(t *testing.T) {
		sc := sample(sessionID)
		require.NoError(t, store.Save(ctx, sessionID, sc), "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, sessionID, loaded.SessionID)
		assert.Equal(t, domain.StageReadyToSearch, loaded.CurrentStage)
		assert.Equal(t, domain.StageNarrowing, loaded.PreviousStage)
		require.Len(t, loaded.StageHistory, 2)
		assert.Equal(t, "search_data_complete", loaded.StageHistory[1].Trigger)
		assert.True(t, loaded.StageHistory[0].At.Equal(created.Add(time.Minute)))
		assert.Equal(t, sc.Data.Slots, loaded.Data.Slots)
		assert.Equal(t, domain.LanguagePortuguese, loaded.Data.Language)
		assert.True(t, loaded.Data.LanguageLocked)
		assert.True(t, loaded.Consents.SearchPermission)
		assert.False(t, loaded.Consents.BookingPermission)
		assert.Equal(t, domain.ConsentBooking, loaded.PendingConsent)
		assert.Equal(t, "turn-1", loaded.LastTurnID)
		assert.True(t, loaded.CreatedAt.Equal(created))
	})

	t.Run("Copies Are Isolated", func(t *testing.T) {
		sc := sample(sessionID)
		require.NoError(t, store.Save(ctx, sessionID, sc))

		sc.Data.Slots[domain.SlotOrigin] = domain.Slot{Value: "Lisbon", Confidence: 1}
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		_, ok := loaded.Data.Get(domain.SlotOrigin)
		assert.False(t, ok, "mutating the saved value must not leak into the store")

		loaded.Consents.Grant(domain.ConsentBooking)
		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.False(t, again.Consents.BookingPermission, "mutating a loaded value must not leak into the store")
	})

	t.Run("Overwrite", func(t *testing.T) {
		sc := sample(sessionID)
		require.NoError(t, store.Save(ctx, sessionID, sc))

		sc.Advance(domain.StageReadyToBook, "option_selected", created.Add(2*time.Minute))
		require.NoError(t, store.Save(ctx, sessionID, sc))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, domain.StageReadyToBook, loaded.CurrentStage)
		assert.Len(t, loaded.StageHistory, 3)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, sample(sessionID)))

		require.NoError(t, store.Delete(ctx, sessionID), "Delete should not return error")

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, "non-existent-"+sessionID), "Delete of an unknown session is a no-op")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, id1, sample(id1)))
		require.NoError(t, store.Save(ctx, id2, sample(id2)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}

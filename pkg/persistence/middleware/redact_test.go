package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/stagegate/pkg/adapters/memory"
	"github.com/aretw0/stagegate/pkg/domain"
	"github.com/aretw0/stagegate/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactionMiddleware(t *testing.T) {
	underlying := memory.NewStore()
	store := middleware.NewRedactionMiddleware()(underlying)
	ctx := context.Background()

	sc := lisbonSession("r1")
	require.NoError(t, store.Save(ctx, "r1", sc))

	assert.Equal(t, "lisboa", sc.Data.Slots[domain.SlotDestination].RawMatch, "caller's session must not be modified")

	stored, err := underlying.Load(ctx, "r1")
	require.NoError(t, err)
	slot := stored.Data.Slots[domain.SlotDestination]
	assert.Empty(t, slot.RawMatch)
	assert.Equal(t, "Lisbon", slot.Value)
	assert.Equal(t, 0.9, slot.Confidence)
}

func TestChain_OrderAndPassThrough(t *testing.T) {
	underlying := memory.NewStore()
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	store := middleware.Chain(underlying, middleware.NewRedactionMiddleware(), mw)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "c1", lisbonSession("c1")))

	loaded, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, loaded.Data.Slots[domain.SlotDestination].RawMatch, "redaction runs before sealing")

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids)

	require.NoError(t, store.Delete(ctx, "c1"))
	_, err = store.Load(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

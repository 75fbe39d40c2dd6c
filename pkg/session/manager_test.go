package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/stagegate/pkg/domain"
	"github.com/aretw0/stagegate/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke lost updates if locking is missing.
type SlowStore struct {
	data map[string]*domain.SessionContext
	mu   sync.Mutex
}

func (s *SlowStore) Save(ctx context.Context, sessionID string, sc *domain.SessionContext) error {
	time.Sleep(2 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string]*domain.SessionContext)
	}
	s.data[sessionID] = sc.Clone()
	return nil
}

func (s *SlowStore) Load(ctx context.Context, sessionID string) (*domain.SessionContext, error) {
	time.Sleep(2 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if sc, ok := s.data[sessionID]; ok {
		return sc.Clone(), nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s *SlowStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestManager_UpdateSerializesTurns(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "race-test"

	var wg sync.WaitGroup
	concurrentTurns := 20

	for i := 0; i < concurrentTurns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := manager.Update(ctx, id, func(ctx context.Context, sc *domain.SessionContext) error {
				sc.Turns++
				if i == 0 {
					sc.Consents.Grant(domain.ConsentSearch)
				}
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	sc, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, concurrentTurns, sc.Turns, "a read-modify-write was lost")
	assert.True(t, sc.Consents.SearchPermission, "a consent grant was lost")
}

func TestManager_UpdateFailureSavesNothing(t *testing.T) {
	manager := session.NewManager(&SlowStore{})
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := manager.Update(ctx, "s1", func(ctx context.Context, sc *domain.SessionContext) error {
		sc.Consents.Grant(domain.ConsentSearch)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = manager.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_LoadOrStart(t *testing.T) {
	store := &SlowStore{}
	now := time.Date(2026, time.October, 16, 9, 0, 0, 0, time.UTC)
	manager := session.NewManager(store, session.WithClock(func() time.Time { return now }))
	ctx := context.Background()
	id := "atomic-init"

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sc, err := manager.LoadOrStart(ctx, id)
			assert.NoError(t, err)
			assert.NotNil(t, sc)
		}()
	}
	wg.Wait()

	sc, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StageDiscovery, sc.CurrentStage)
	assert.False(t, sc.Consents.SearchPermission)
	assert.True(t, sc.CreatedAt.Equal(now))
}

func TestManager_Reset(t *testing.T) {
	manager := session.NewManager(&SlowStore{})
	ctx := context.Background()

	_, err := manager.Update(ctx, "s1", func(ctx context.Context, sc *domain.SessionContext) error {
		sc.Advance(domain.StageNarrowing, "destination_known", time.Now())
		sc.Consents.Grant(domain.ConsentSearch)
		return nil
	})
	require.NoError(t, err)

	ids, err := manager.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)

	require.NoError(t, manager.Reset(ctx, "s1"))

	sc, err := manager.LoadOrStart(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StageDiscovery, sc.CurrentStage)
	assert.False(t, sc.Consents.SearchPermission)
	assert.Empty(t, sc.StageHistory)
}

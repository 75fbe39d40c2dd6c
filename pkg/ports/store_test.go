package ports_test

import (
	"context"
	"sort"
	"testing"

	"github.com/aretw0/stagegate/pkg/domain"
	"github.com/aretw0/stagegate/pkg/ports"
)

// MockStore is a minimal map-backed SessionStore used to exercise the contract itself.
type MockStore struct {
	data map[string]*domain.SessionContext
}

func NewMockStore() *MockStore {
	return &MockStore{data: make(map[string]*domain.SessionContext)}
}

func (m *MockStore) Save(ctx context.Context, sessionID string, sc *domain.SessionContext) error {
	m.data[sessionID] = sc.Clone()
	return nil
}

func (m *MockStore) Load(ctx context.Context, sessionID string) (*domain.SessionContext, error) {
	sc, ok := m.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sc.Clone(), nil
}

func (m *MockStore) Delete(ctx context.Context, sessionID string) error {
	delete(m.data, sessionID)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func TestSessionStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, NewMockStore())
}

package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/agency-connect/internal/core/domain"
	"github.com/custodia-labs/agency-connect/internal/core/ports/driven"
)

// Ensure MockIntegrationStore implements IntegrationStore
var _ driven.IntegrationStore = (*MockIntegrationStore)(nil)

// MockIntegrationStore is an in-memory IntegrationStore for testing.
// Records are copied on the way in and out so callers cannot mutate stored state.
type MockIntegrationStore struct {
	mu           sync.RWMutex
	integrations map[string]*domain.Integration
	byTenant     map[string]string // key: tenantID:provider -> id

	// Error injection
	CreateErr           error
	MarkConnectedErr    error
	MarkDisconnectedErr error
	PingErr             error
}

// NewMockIntegrationStore creates a new MockIntegrationStore
func NewMockIntegrationStore() *MockIntegrationStore {
	return &MockIntegrationStore{
		integrations: make(map[string]*domain.Integration),
		byTenant:     make(map[string]string),
	}
}

func tenantKey(tenantID string, provider domain.ProviderType) string {
	return tenantID + ":" + string(provider)
}

func (m *MockIntegrationStore) Create(ctx context.Context, integration *domain.Integration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return m.CreateErr
	}

	key := tenantKey(integration.TenantID, integration.Provider)
	if _, exists := m.byTenant[key]; exists {
		return domain.ErrAlreadyExists
	}
	if _, exists := m.integrations[integration.ID]; exists {
		return domain.ErrAlreadyExists
	}

	m.integrations[integration.ID] = clone(integration)
	m.byTenant[key] = integration.ID
	return nil
}

func (m *MockIntegrationStore) Get(ctx context.Context, id string) (*domain.Integration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	integration, ok := m.integrations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(integration), nil
}

func (m *MockIntegrationStore) GetByTenantProvider(ctx context.Context, tenantID string, provider domain.ProviderType) (*domain.Integration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byTenant[tenantKey(tenantID, provider)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(m.integrations[id]), nil
}

func (m *MockIntegrationStore) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Integration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*domain.Integration
	for _, integration := range m.integrations {
		if integration.TenantID == tenantID {
			result = append(result, clone(integration))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockIntegrationStore) MarkConnected(ctx context.Context, id string, conn *domain.Connection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.MarkConnectedErr != nil {
		return m.MarkConnectedErr
	}

	integration, ok := m.integrations[id]
	if !ok {
		return domain.ErrNotFound
	}
	integration.ApplyConnection(conn)
	return nil
}

func (m *MockIntegrationStore) MarkDisconnected(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.MarkDisconnectedErr != nil {
		return m.MarkDisconnectedErr
	}

	integration, ok := m.integrations[id]
	if !ok {
		return domain.ErrNotFound
	}
	integration.ApplyDisconnect(time.Now())
	return nil
}

func (m *MockIntegrationStore) Ping(ctx context.Context) error {
	return m.PingErr
}

// Helper methods for testing

// Put stores a record directly, bypassing uniqueness checks.
func (m *MockIntegrationStore) Put(integration *domain.Integration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.integrations[integration.ID] = clone(integration)
	m.byTenant[tenantKey(integration.TenantID, integration.Provider)] = integration.ID
}

func (m *MockIntegrationStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.integrations)
}

func clone(in *domain.Integration) *domain.Integration {
	out := *in
	if in.Config != nil {
		out.Config = make(map[string]any, len(in.Config))
		for k, v := range in.Config {
			out.Config[k] = v
		}
	}
	if in.TokenExpiresAt != nil {
		t := *in.TokenExpiresAt
		out.TokenExpiresAt = &t
	}
	if in.LastSyncAt != nil {
		t := *in.LastSyncAt
		out.LastSyncAt = &t
	}
	return &out
}

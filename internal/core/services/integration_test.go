package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/agency-connect/internal/adapters/driven/secrets"
	"github.com/custodia-labs/agency-connect/internal/core/domain"
	"github.com/custodia-labs/agency-connect/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/agency-connect/internal/core/ports/driving"
)

func newIntegrationFixture(t *testing.T) (driving.IntegrationService, *mocks.MockIntegrationStore, *secrets.TokenCipher) {
	t.Helper()
	cipher, err := secrets.NewTokenCipher([]byte("01234567890123456789012345678901"))
	require.NoError(t, err)
	store := mocks.NewMockIntegrationStore()
	return NewIntegrationService(IntegrationServiceConfig{
		IntegrationStore: store,
		Sealer:           cipher,
	}), store, cipher
}

func connectedIntegration(t *testing.T, cipher *secrets.TokenCipher, id string, provider domain.ProviderType, created time.Time) *domain.Integration {
	t.Helper()
	access, err := cipher.SealString("access-" + id)
	require.NoError(t, err)
	refresh, err := cipher.SealString("refresh-" + id)
	require.NoError(t, err)

	integration := domain.NewIntegration(id, testTenant, provider, created)
	integration.ApplyConnection(&domain.Connection{
		AccessTokenSealed:  access,
		RefreshTokenSealed: refresh,
		ConnectedAt:        created,
		Scopes:             []string{"scope-a"},
	})
	return integration
}

func TestIntegrationService_ListForTenant(t *testing.T) {
	svc, store, cipher := newIntegrationFixture(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	store.Put(connectedIntegration(t, cipher, "b", domain.ProviderTypeSlack, base.Add(time.Minute)))
	store.Put(domain.NewIntegration("a", testTenant, domain.ProviderTypeGmail, base))
	store.Put(domain.NewIntegration("c", "other-tenant", domain.ProviderTypeGmail, base))

	summaries, err := svc.ListForTenant(context.Background(), testTenant)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "a", summaries[0].ID)
	assert.Equal(t, "b", summaries[1].ID)
	assert.True(t, summaries[1].IsConnected)

	// The projection carries no sealed material.
	raw, err := json.Marshal(summaries)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"iv"`)
	assert.NotContains(t, string(raw), "sealed")

	_, err = svc.ListForTenant(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIntegrationService_Get(t *testing.T) {
	svc, store, _ := newIntegrationFixture(t)
	store.Put(domain.NewIntegration("a", testTenant, domain.ProviderTypeGmail, time.Now()))

	summary, err := svc.Get(context.Background(), testTenant, domain.ProviderTypeGmail)
	require.NoError(t, err)
	assert.Equal(t, "a", summary.ID)

	_, err = svc.Get(context.Background(), "other-tenant", domain.ProviderTypeGmail)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Get(context.Background(), testTenant, "github")
	assert.ErrorIs(t, err, domain.ErrUnknownProvider)
}

func TestIntegrationService_MarkDisconnected(t *testing.T) {
	svc, store, cipher := newIntegrationFixture(t)
	store.Put(connectedIntegration(t, cipher, "a", domain.ProviderTypeSlack, time.Now()))

	summary, err := svc.MarkDisconnected(context.Background(), testTenant, domain.ProviderTypeSlack)
	require.NoError(t, err)
	assert.Equal(t, "a", summary.ID)
	assert.False(t, summary.IsConnected)

	stored, err := store.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Empty(t, stored.AccessTokenSealed)
	assert.Empty(t, stored.RefreshTokenSealed)

	_, err = svc.Credentials(context.Background(), testTenant, domain.ProviderTypeSlack)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	store.MarkDisconnectedErr = errors.New("db down")
	_, err = svc.MarkDisconnected(context.Background(), testTenant, domain.ProviderTypeSlack)
	assert.Error(t, err)
}

func TestIntegrationService_Credentials(t *testing.T) {
	svc, store, cipher := newIntegrationFixture(t)
	store.Put(connectedIntegration(t, cipher, "a", domain.ProviderTypeGmail, time.Now()))

	creds, err := svc.Credentials(context.Background(), testTenant, domain.ProviderTypeGmail)
	require.NoError(t, err)
	assert.Equal(t, "a", creds.IntegrationID)
	assert.Equal(t, "access-a", creds.AccessToken.Reveal())
	assert.Equal(t, "refresh-a", creds.RefreshToken.Reveal())

	_, err = svc.Credentials(context.Background(), testTenant, domain.ProviderTypeSlack)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIntegrationService_Credentials_Tampered(t *testing.T) {
	svc, store, cipher := newIntegrationFixture(t)
	integration := connectedIntegration(t, cipher, "a", domain.ProviderTypeGmail, time.Now())

	other, err := secrets.NewTokenCipher([]byte("abcdefghijklmnopqrstuvwxyz012345"))
	require.NoError(t, err)
	integration.AccessTokenSealed, err = other.SealString("foreign")
	require.NoError(t, err)
	store.Put(integration)

	_, err = svc.Credentials(context.Background(), testTenant, domain.ProviderTypeGmail)
	assert.ErrorIs(t, err, domain.ErrDecryptionFailed)
}

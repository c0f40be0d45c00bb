package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/agency-connect/internal/core/domain"
)

// openTestDB connects to TEST_DATABASE_URL or skips.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := Open(context.Background(), url, PoolConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestScopesPatch(t *testing.T) {
	empty, err := scopesPatch(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(empty))

	patch, err := scopesPatch([]string{"a", "b"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"scopes":["a","b"]}`, string(patch))
}

func TestIntegrationStore_Lifecycle(t *testing.T) {
	db := openTestDB(t)
	store := NewIntegrationStore(db.DB)
	ctx := context.Background()

	tenant := "tenant-" + uuid.NewString()
	now := time.Now().UTC().Truncate(time.Microsecond)
	integration := domain.NewIntegration(uuid.NewString(), tenant, domain.ProviderTypeGmail, now)
	integration.Config["manual"] = true

	require.NoError(t, store.Create(ctx, integration))

	dup := domain.NewIntegration(uuid.NewString(), tenant, domain.ProviderTypeGmail, now)
	assert.ErrorIs(t, store.Create(ctx, dup), domain.ErrAlreadyExists)

	expires := now.Add(time.Hour)
	require.NoError(t, store.MarkConnected(ctx, integration.ID, &domain.Connection{
		AccessTokenSealed:  `{"iv":"a","data":"b","tag":"c"}`,
		RefreshTokenSealed: `{"iv":"d","data":"e","tag":"f"}`,
		TokenExpiresAt:     &expires,
		ConnectedAt:        now,
		Scopes:             []string{"gmail.readonly"},
	}))

	got, err := store.GetByTenantProvider(ctx, tenant, domain.ProviderTypeGmail)
	require.NoError(t, err)
	assert.True(t, got.IsConnected)
	assert.Equal(t, integration.ID, got.ID)
	assert.Equal(t, true, got.Config["manual"])
	assert.Equal(t, []any{"gmail.readonly"}, got.Config["scopes"])
	require.NotNil(t, got.TokenExpiresAt)
	assert.True(t, expires.Equal(*got.TokenExpiresAt))

	require.NoError(t, store.MarkDisconnected(ctx, integration.ID))
	got, err = store.Get(ctx, integration.ID)
	require.NoError(t, err)
	assert.False(t, got.IsConnected)
	assert.Empty(t, got.AccessTokenSealed)

	list, err := store.ListByTenant(ctx, tenant)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.ErrorIs(t, store.MarkDisconnected(ctx, uuid.NewString()), domain.ErrNotFound)
	_, err = store.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

package domain

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"
)

func TestNewIntegration(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	i := NewIntegration("id-1", "tenant-1", ProviderTypeSlack, now)

	if i.IsConnected {
		t.Error("new integration must start disconnected")
	}
	if i.Config == nil {
		t.Error("expected non-nil config")
	}
	if !i.CreatedAt.Equal(now) || !i.UpdatedAt.Equal(now) {
		t.Error("expected timestamps to be set")
	}
	if err := i.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestIntegration_Validate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		mutate  func(*Integration)
		wantErr error
	}{
		{"missing id", func(i *Integration) { i.ID = "" }, ErrInvalidInput},
		{"missing tenant", func(i *Integration) { i.TenantID = "" }, ErrInvalidInput},
		{"unknown provider", func(i *Integration) { i.Provider = "github" }, ErrUnknownProvider},
		{"connected without token", func(i *Integration) { i.IsConnected = true }, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := NewIntegration("id-1", "tenant-1", ProviderTypeGmail, now)
			tt.mutate(i)
			if err := i.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestIntegration_ConnectAndDisconnect(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	connected := created.Add(time.Minute)
	expires := connected.Add(time.Hour)

	i := NewIntegration("id-1", "tenant-1", ProviderTypeGmail, created)
	i.Config["note"] = "kept"
	i.ApplyConnection(&Connection{
		AccessTokenSealed:  "sealed-access",
		RefreshTokenSealed: "sealed-refresh",
		TokenExpiresAt:     &expires,
		ConnectedAt:        connected,
		Scopes:             []string{"gmail.readonly"},
	})

	if !i.IsConnected || i.AccessTokenSealed != "sealed-access" {
		t.Fatal("expected connected integration with sealed token")
	}
	if i.LastSyncAt == nil || !i.LastSyncAt.Equal(connected) {
		t.Error("expected lastSyncAt to be the connection time")
	}
	if !reflect.DeepEqual(i.Config[ConfigKeyScopes], []string{"gmail.readonly"}) || i.Config["note"] != "kept" {
		t.Errorf("unexpected config: %v", i.Config)
	}
	if err := i.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}

	i.ApplyDisconnect(connected.Add(time.Hour))
	if i.IsConnected || i.AccessTokenSealed != "" || i.RefreshTokenSealed != "" || i.TokenExpiresAt != nil {
		t.Error("expected disconnect to drop tokens")
	}
	if i.ID != "id-1" {
		t.Error("disconnect must keep the id")
	}
}

func TestIntegration_ToSummaryHasNoSecrets(t *testing.T) {
	i := NewIntegration("id-1", "tenant-1", ProviderTypeSlack, time.Now())
	i.IsConnected = true
	i.AccessTokenSealed = "sealed-access"

	summary := reflect.TypeOf(*i.ToSummary())
	for _, name := range []string{"AccessTokenSealed", "RefreshTokenSealed", "TenantID"} {
		if _, ok := summary.FieldByName(name); ok {
			t.Errorf("summary must not expose %s", name)
		}
	}
	if !i.ToSummary().IsConnected {
		t.Error("expected summary to carry connection state")
	}
}

func TestIntegration_Expiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	i := NewIntegration("id-1", "tenant-1", ProviderTypeGmail, now)

	if i.NeedsRefresh(now) || i.IsExpired(now) {
		t.Error("integration without expiry never needs refresh")
	}

	soon := now.Add(4 * time.Minute)
	i.TokenExpiresAt = &soon
	if !i.NeedsRefresh(now) {
		t.Error("expected refresh within five minutes of expiry")
	}
	if i.IsExpired(now) {
		t.Error("token is not expired yet")
	}
	if !i.IsExpired(now.Add(5 * time.Minute)) {
		t.Error("expected token to be expired")
	}
}

func TestConnection_Validate(t *testing.T) {
	var nilConn *Connection
	if !errors.Is(nilConn.Validate(), ErrInvalidInput) {
		t.Error("nil connection must be invalid")
	}
	if !errors.Is((&Connection{}).Validate(), ErrInvalidInput) {
		t.Error("connection without access token must be invalid")
	}
	if err := (&Connection{AccessTokenSealed: "x"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSplitScopes(t *testing.T) {
	tests := map[string][]string{
		"":                         nil,
		"   ":                      nil,
		"a b":                      {"a", "b"},
		"channels:read,chat:write": {"channels:read", "chat:write"},
		"ads_read, ads_management": {"ads_read", "ads_management"},
	}
	for in, want := range tests {
		if got := SplitScopes(in); !reflect.DeepEqual(got, want) {
			t.Errorf("SplitScopes(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTokenSet_ExpiresAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if (&TokenSet{}).ExpiresAt(now) != nil {
		t.Error("expected no expiry without a lifetime")
	}

	got := (&TokenSet{ExpiresInSeconds: 3600}).ExpiresAt(now)
	if got == nil || !got.Equal(now.Add(time.Hour)) {
		t.Errorf("expected one hour, got %v", got)
	}

	got = (&TokenSet{ExpiresInSeconds: math.MaxInt64}).ExpiresAt(now)
	if got == nil || !got.Equal(now.Add(MaxTokenLifetime)) {
		t.Errorf("expected capped lifetime, got %v", got)
	}
}

package domain

import (
	"errors"
	"testing"
)

func TestKnownProviders(t *testing.T) {
	want := []ProviderType{ProviderTypeSlack, ProviderTypeGmail, ProviderTypeGoogleAds, ProviderTypeMetaAds}
	got := KnownProviders()
	if len(got) != len(want) {
		t.Fatalf("expected %d providers, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
		if !got[i].IsKnown() {
			t.Errorf("%s should be known", got[i])
		}
	}
}

func TestParseProviderType(t *testing.T) {
	tests := []struct {
		raw     string
		want    ProviderType
		wantErr bool
	}{
		{"slack", ProviderTypeSlack, false},
		{" gmail ", ProviderTypeGmail, false},
		{"google_ads", ProviderTypeGoogleAds, false},
		{"meta_ads", ProviderTypeMetaAds, false},
		{"Slack", "", true},
		{"github", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseProviderType(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownProvider) {
					t.Errorf("expected ErrUnknownProvider, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestProviderConfig_IsConfigured(t *testing.T) {
	full := &ProviderConfig{
		Provider:     ProviderTypeGmail,
		AuthURL:      "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL:     "https://oauth2.googleapis.com/token",
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "https://connect.example.com/oauth/callback",
	}
	if !full.IsConfigured() || !full.HasClientCredentials() {
		t.Fatal("expected full config to be configured")
	}

	noSecret := *full
	noSecret.ClientSecret = ""
	if noSecret.HasClientCredentials() || noSecret.IsConfigured() {
		t.Error("config without secret must not be configured")
	}

	noRedirect := *full
	noRedirect.RedirectURL = ""
	if !noRedirect.HasClientCredentials() || noRedirect.IsConfigured() {
		t.Error("config without redirect has credentials but is not configured")
	}

	var missing *ProviderConfig
	if missing.HasClientCredentials() || missing.IsConfigured() {
		t.Error("nil config must not be configured")
	}
}

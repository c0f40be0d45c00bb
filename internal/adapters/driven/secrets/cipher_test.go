package secrets

import (
	"errors"
	"strings"
	"testing"

	"github.com/custodia-labs/agency-connect/internal/core/domain"
)

var testKey = []byte("01234567890123456789012345678901")

func newTestCipher(t *testing.T, key []byte) *TokenCipher {
	t.Helper()
	c, err := NewTokenCipher(key)
	if err != nil {
		t.Fatalf("NewTokenCipher: %v", err)
	}
	return c
}

func TestTokenCipher_RoundTrip(t *testing.T) {
	c := newTestCipher(t, testKey)

	secrets := []string{
		"",
		"xoxp-1234-5678",
		"ya29.a0AfH6SMB" + strings.Repeat("x", 2048),
		"unicode ✓ token",
	}

	for _, s := range secrets {
		sealed, err := c.Seal(s)
		if err != nil {
			t.Fatalf("Seal: %v", err)
		}
		if len(sealed.IV) != nonceSize {
			t.Errorf("iv length: got %d, want %d", len(sealed.IV), nonceSize)
		}
		if len(sealed.AuthTag) != tagSize {
			t.Errorf("tag length: got %d, want %d", len(sealed.AuthTag), tagSize)
		}

		opened, err := c.Open(sealed)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if opened != s {
			t.Errorf("round trip: got %q, want %q", opened, s)
		}
	}
}

func TestTokenCipher_StringRoundTrip(t *testing.T) {
	c := newTestCipher(t, testKey)

	for _, s := range []string{"", "gho_abc123"} {
		serialized, err := c.SealString(s)
		if err != nil {
			t.Fatalf("SealString: %v", err)
		}
		if s != "" && strings.Contains(serialized, s) {
			t.Errorf("serialized envelope contains plaintext")
		}

		opened, err := c.OpenString(serialized)
		if err != nil {
			t.Fatalf("OpenString: %v", err)
		}
		if opened != s {
			t.Errorf("got %q, want %q", opened, s)
		}
	}
}

func TestTokenCipher_FreshNoncePerSeal(t *testing.T) {
	c := newTestCipher(t, testKey)

	a, err := c.SealString("same-token")
	if err != nil {
		t.Fatalf("SealString: %v", err)
	}
	b, err := c.SealString("same-token")
	if err != nil {
		t.Fatalf("SealString: %v", err)
	}
	if a == b {
		t.Error("two seals of the same plaintext produced identical envelopes")
	}
}

func TestTokenCipher_WrongKey(t *testing.T) {
	c1 := newTestCipher(t, testKey)
	c2 := newTestCipher(t, []byte("abcdefghijklmnopqrstuvwxyz012345"))

	sealed, err := c1.Seal("secret")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	_, err = c2.Open(sealed)
	if !errors.Is(err, domain.ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestTokenCipher_Tampered(t *testing.T) {
	c := newTestCipher(t, testKey)

	tests := []struct {
		name   string
		tamper func(s *SealedSecret)
	}{
		{"flipped ciphertext", func(s *SealedSecret) { s.Ciphertext[0] ^= 0x01 }},
		{"flipped tag", func(s *SealedSecret) { s.AuthTag[tagSize-1] ^= 0x80 }},
		{"flipped iv", func(s *SealedSecret) { s.IV[0] ^= 0x01 }},
		{"truncated tag", func(s *SealedSecret) { s.AuthTag = s.AuthTag[:tagSize-1] }},
		{"truncated iv", func(s *SealedSecret) { s.IV = s.IV[:4] }},
		{"truncated ciphertext", func(s *SealedSecret) { s.Ciphertext = s.Ciphertext[:1] }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sealed, err := c.Seal("refresh-token-value")
			if err != nil {
				t.Fatalf("Seal: %v", err)
			}
			tt.tamper(sealed)

			opened, err := c.Open(sealed)
			if !errors.Is(err, domain.ErrDecryptionFailed) {
				t.Errorf("expected ErrDecryptionFailed, got %v", err)
			}
			if opened != "" {
				t.Errorf("expected no partial output, got %q", opened)
			}
		})
	}

	if _, err := c.Open(nil); !errors.Is(err, domain.ErrDecryptionFailed) {
		t.Errorf("nil envelope: expected ErrDecryptionFailed, got %v", err)
	}
}

func TestNewTokenCipher_InvalidKeySize(t *testing.T) {
	for _, size := range []int{0, 16, 31, 33, 64} {
		_, err := NewTokenCipher(make([]byte, size))
		if !errors.Is(err, ErrInvalidKeySize) {
			t.Errorf("size %d: expected ErrInvalidKeySize, got %v", size, err)
		}
	}
}

func TestDeserialize_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"not json", "iv.data.tag"},
		{"json array", `["a","b","c"]`},
		{"json null", `null`},
		{"missing iv", `{"data":"AAAA","tag":"AAAA"}`},
		{"missing data", `{"iv":"AAAA","tag":"AAAA"}`},
		{"missing tag", `{"iv":"AAAA","data":"AAAA"}`},
		{"numeric iv", `{"iv":123,"data":"AAAA","tag":"AAAA"}`},
		{"null data", `{"iv":"AAAA","data":null,"tag":"AAAA"}`},
		{"object tag", `{"iv":"AAAA","data":"AAAA","tag":{"x":"y"}}`},
		{"extra field", `{"iv":"AAAA","data":"AAAA","tag":"AAAA","v":"1"}`},
		{"empty iv", `{"iv":"","data":"AAAA","tag":"AAAA"}`},
		{"bad base64", `{"iv":"!!!!","data":"AAAA","tag":"AAAA"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deserialize(tt.input)
			if !errors.Is(err, domain.ErrMalformedEnvelope) {
				t.Errorf("expected ErrMalformedEnvelope, got %v", err)
			}
		})
	}
}

func TestOpenString_Malformed(t *testing.T) {
	c := newTestCipher(t, testKey)

	_, err := c.OpenString(`{"iv":"AAAA","data":"AAAA"}`)
	if !errors.Is(err, domain.ErrMalformedEnvelope) {
		t.Errorf("expected ErrMalformedEnvelope, got %v", err)
	}
}

func TestSerialize_WireFormat(t *testing.T) {
	got, err := Serialize(&SealedSecret{
		IV:         []byte{0x01, 0x02, 0x03},
		Ciphertext: []byte("hi"),
		AuthTag:    []byte{0xff},
	})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	want := `{"iv":"AQID","data":"aGk=","tag":"/w=="}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

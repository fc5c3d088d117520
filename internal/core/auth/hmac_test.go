package auth

import (
	"strings"
	"testing"
)

const (
	testSecretID = "0189aabbccdd77889900112233445566"
	testRandom   = "aabbccddeeff00112233445566778899aabbccddeeff00112233445566778899"
)

func TestParseAPIKey_Valid(t *testing.T) {
	key := FormatAPIKey(testSecretID, testRandom)
	secretID, randomData, err := ParseAPIKey(key)
	if err != nil {
		t.Fatalf("ParseAPIKey() error = %v, want nil", err)
	}
	if secretID != testSecretID {
		t.Errorf("secretID = %q, want %q", secretID, testSecretID)
	}
	if randomData != testRandom {
		t.Errorf("randomData = %q, want %q", randomData, testRandom)
	}
}

func TestParseAPIKey_InvalidFormats(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"wrong prefix", "tk-v1-" + testSecretID + "-" + testRandom},
		{"wrong version", "hp-v2-" + testSecretID + "-" + testRandom},
		{"missing parts", "hp-v1-" + testSecretID},
		{"short secret id", "hp-v1-abc-" + testRandom},
		{"short random", "hp-v1-" + testSecretID + "-abc"},
		{"uppercase hex", "hp-v1-" + strings.ToUpper(testSecretID) + "-" + testRandom},
		{"non-hex chars", "hp-v1-" + strings.Replace(testSecretID, "0", "g", 1) + "-" + testRandom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ParseAPIKey(tt.key); err != ErrInvalidKeyFormat {
				t.Errorf("ParseAPIKey(%q) error = %v, want ErrInvalidKeyFormat", tt.key, err)
			}
		})
	}
}

func TestComputeHMAC_Deterministic(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	key := FormatAPIKey(testSecretID, testRandom)

	first := ComputeHMAC(secret, key)
	second := ComputeHMAC(secret, key)
	if first != second {
		t.Errorf("ComputeHMAC() not deterministic: %s != %s", first, second)
	}
	if len(first) != 64 {
		t.Errorf("ComputeHMAC() length = %d, want 64 hex chars", len(first))
	}

	other := ComputeHMAC([]byte("another-secret-another-secret-32"), key)
	if other == first {
		t.Errorf("different secrets produced identical signatures")
	}
	if !VerifyHMAC(first, second) {
		t.Errorf("VerifyHMAC() = false for equal signatures")
	}
	if VerifyHMAC(first, other) {
		t.Errorf("VerifyHMAC() = true for different signatures")
	}
}

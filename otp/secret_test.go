package otp

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewSecretDefaults(t *testing.T) {
	secret, err := NewSecret()
	if err != nil {
		t.Fatalf("NewSecret() error = %v", err)
	}
	if len(secret) != DefaultSecretLength {
		t.Fatalf("NewSecret() len = %d, want %d", len(secret), DefaultSecretLength)
	}

	encoded := secret.Base32()
	if encoded != strings.ToUpper(encoded) {
		t.Fatalf("Base32() = %s, want uppercase", encoded)
	}
	if strings.Contains(encoded, "=") {
		t.Fatalf("Base32() = %s, want no padding", encoded)
	}
}

func TestGenerateSecretRejectsShortLengths(t *testing.T) {
	for _, n := range []int{0, -1, MinSecretLength - 1} {
		if _, err := GenerateSecret(n); !errors.Is(err, ErrSecretInvalidLength) {
			t.Fatalf("GenerateSecret(%d) error = %v, want ErrSecretInvalidLength", n, err)
		}
	}
}

func TestParseSecretRoundTrip(t *testing.T) {
	secret, err := NewSecret()
	if err != nil {
		t.Fatalf("NewSecret() error = %v", err)
	}

	parsed, err := ParseSecret(secret.Base32())
	if err != nil {
		t.Fatalf("ParseSecret() error = %v", err)
	}
	if string(parsed) != string(secret) {
		t.Fatalf("ParseSecret() round trip mismatch")
	}
}

func TestParseSecretNormalizesInput(t *testing.T) {
	secret, err := NewSecret()
	if err != nil {
		t.Fatalf("NewSecret() error = %v", err)
	}
	encoded := secret.Base32()

	spaced := " " + strings.ToLower(encoded[:8]) + " " + encoded[8:] + " "
	parsed, err := ParseSecret(spaced)
	if err != nil {
		t.Fatalf("ParseSecret(normalized input) error = %v", err)
	}
	if string(parsed) != string(secret) {
		t.Fatalf("ParseSecret() did not normalize spacing/case")
	}
}

func TestParseSecretRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "  ", "not base32 !!!", "A"} {
		if _, err := ParseSecret(in); err == nil {
			t.Fatalf("ParseSecret(%q) expected error", in)
		}
	}
}

func TestSecretStringRedacts(t *testing.T) {
	secret, err := NewSecret()
	if err != nil {
		t.Fatalf("NewSecret() error = %v", err)
	}
	formatted := fmt.Sprintf("%v %s", secret, secret)
	if strings.Contains(formatted, secret.Base32()) {
		t.Fatalf("String() leaked secret material")
	}
}

func TestSecretClone(t *testing.T) {
	secret, err := NewSecret()
	if err != nil {
		t.Fatalf("NewSecret() error = %v", err)
	}
	clone := secret.Clone()
	clone[0] ^= 0xff
	if string(clone) == string(secret) {
		t.Fatalf("Clone() shares backing array with original")
	}
}

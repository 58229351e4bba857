package otp

import (
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSecretInvalidLength = errors.New("otp: invalid secret length")
	ErrSecretInvalidFormat = errors.New("otp: invalid base32 secret")
)

// DefaultSecretLength is the default shared-secret size in bytes (160 bits),
// the key size RFC 6238 recommends for SHA-1 based codes.
const DefaultSecretLength = 20

// MinSecretLength is the minimum accepted secret size in bytes (128 bits).
const MinSecretLength = 16

// secretEncoding is the user-facing secret representation: base32,
// uppercase, no padding. This is what authenticator apps expect.
var secretEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Secret is an immutable shared secret used to derive time-based codes.
// It is generated exclusively from the secure random source.
type Secret []byte

// NewSecret generates a secret of DefaultSecretLength bytes.
func NewSecret() (Secret, error) {
	return GenerateSecret(DefaultSecretLength)
}

// GenerateSecret generates a secret of n bytes. Lengths below
// MinSecretLength are rejected rather than silently padded.
func GenerateSecret(n int) (Secret, error) {
	if n < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", ErrSecretInvalidLength, MinSecretLength, n)
	}
	buf, err := RandomBytes(n)
	if err != nil {
		return nil, err
	}
	return Secret(buf), nil
}

// ParseSecret decodes a base32 secret as produced by Base32. Lowercase input
// and surrounding whitespace are tolerated since secrets are often retyped
// by hand during enrollment.
func ParseSecret(encoded string) (Secret, error) {
	cleaned := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(encoded), " ", ""))
	cleaned = strings.TrimRight(cleaned, "=")
	if cleaned == "" {
		return nil, ErrSecretInvalidFormat
	}
	raw, err := secretEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSecretInvalidFormat, err)
	}
	if len(raw) < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", ErrSecretInvalidLength, MinSecretLength, len(raw))
	}
	return Secret(raw), nil
}

// Base32 is the single explicit export point for the secret material, used
// for enrollment display and provisioning URIs.
func (s Secret) Base32() string {
	return secretEncoding.EncodeToString(s)
}

// String redacts the secret so it cannot leak through logging or %v
// formatting by accident.
func (s Secret) String() string {
	return "otp.Secret(redacted)"
}

// Clone returns an independent copy of the secret bytes.
func (s Secret) Clone() Secret {
	if len(s) == 0 {
		return nil
	}
	out := make(Secret, len(s))
	copy(out, s)
	return out
}

package otp

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"net/url"
	"strings"
	"time"
)

var (
	ErrInvalidStep     = errors.New("otp: step must be a positive whole number of seconds")
	ErrInvalidDigits   = errors.New("otp: code length must be between 6 and 10")
	ErrInvalidSkew     = errors.New("otp: drift tolerance must not be negative")
	ErrUnsupportedAlgo = errors.New("otp: unsupported hash algorithm")
	ErrTimeBeforeEpoch = errors.New("otp: time before unix epoch")
	ErrSecretRequired  = errors.New("otp: secret required")
)

// Algorithm identifies the HMAC hash used for code derivation.
type Algorithm string

const (
	AlgorithmSHA1   Algorithm = "SHA1"
	AlgorithmSHA256 Algorithm = "SHA256"
	AlgorithmSHA512 Algorithm = "SHA512"
)

func (a Algorithm) hasher() (func() hash.Hash, error) {
	switch a {
	case AlgorithmSHA1:
		return sha1.New, nil
	case AlgorithmSHA256:
		return sha256.New, nil
	case AlgorithmSHA512:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgo, string(a))
	}
}

// Default time-code parameters, compatible with standard authenticator apps.
const (
	DefaultStep   = 30 * time.Second
	DefaultDigits = 6
	DefaultSkew   = 1
)

// Options captures the knobs of the time-code derivation. The zero value
// means "use the defaults".
type Options struct {
	// Step is the length of one time window.
	Step time.Duration
	// Digits is the length of the derived code, between 6 and 10.
	Digits int
	// Algorithm selects the HMAC hash. Defaults to SHA1.
	Algorithm Algorithm
	// Skew is the number of steps checked before and after the current one
	// during verification. Widening it accepts more codes at any instant;
	// keep it small.
	Skew int
}

func (o Options) withDefaults() Options {
	if o.Step == 0 {
		o.Step = DefaultStep
	}
	if o.Digits == 0 {
		o.Digits = DefaultDigits
	}
	if o.Algorithm == "" {
		o.Algorithm = AlgorithmSHA1
	}
	return o
}

func (o Options) validate() error {
	// Counters and provisioning periods are whole seconds; fractional steps
	// would truncate (a 500ms step truncates to zero).
	if o.Step < time.Second || o.Step%time.Second != 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidStep, o.Step)
	}
	if o.Digits < 6 || o.Digits > 10 {
		return fmt.Errorf("%w: got %d", ErrInvalidDigits, o.Digits)
	}
	if o.Skew < 0 {
		return ErrInvalidSkew
	}
	_, err := o.Algorithm.hasher()
	return err
}

// Generator derives and verifies time-synchronized codes from a shared
// secret. Configuration is validated once at construction so that every
// derivation across the lifetime of a Generator uses identical parameters.
type Generator struct {
	opts Options
}

// NewGenerator builds a Generator, applying defaults and rejecting invalid
// parameters eagerly.
func NewGenerator(opts Options) (*Generator, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Generator{opts: opts}, nil
}

// Options returns the effective parameters after defaulting.
func (g *Generator) Options() Options {
	return g.opts
}

// CodeAt derives the code for the time window containing at.
func (g *Generator) CodeAt(secret Secret, at time.Time) (string, error) {
	if len(secret) == 0 {
		return "", ErrSecretRequired
	}
	unix := at.Unix()
	if unix < 0 {
		return "", ErrTimeBeforeEpoch
	}
	counter := uint64(unix) / uint64(g.opts.Step/time.Second)
	return g.hotp(secret, counter)
}

// hotp implements RFC 4226: HMAC over the big-endian counter, dynamic
// truncation to a 31-bit integer, reduction modulo 10^digits.
func (g *Generator) hotp(secret Secret, counter uint64) (string, error) {
	newHash, err := g.opts.Algorithm.hasher()
	if err != nil {
		return "", err
	}

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(newHash, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	value := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	return fmt.Sprintf("%0*d", g.opts.Digits, uint64(value)%pow10(g.opts.Digits)), nil
}

// Verify reports whether candidate matches the code of any window within
// the configured drift tolerance around at. Every window in the range is
// derived and compared in constant time; there is no early exit, so the
// verification time does not depend on where (or whether) a match occurs.
func (g *Generator) Verify(secret Secret, candidate string, at time.Time) (bool, error) {
	if len(secret) == 0 {
		return false, ErrSecretRequired
	}
	if at.Unix() < 0 {
		return false, ErrTimeBeforeEpoch
	}

	matched := 0
	for offset := -g.opts.Skew; offset <= g.opts.Skew; offset++ {
		windowAt := at.Add(time.Duration(offset) * g.opts.Step)
		if windowAt.Unix() < 0 {
			continue
		}
		code, err := g.CodeAt(secret, windowAt)
		if err != nil {
			return false, err
		}
		matched |= subtle.ConstantTimeCompare([]byte(candidate), []byte(code))
	}
	return matched == 1, nil
}

// ProvisioningURI renders the otpauth URI that seeds an authenticator app:
//
//	otpauth://totp/{issuer}:{account}?secret={base32}&issuer={issuer}&algorithm={ALG}&digits={digits}&period={step}
//
// This is the only place besides Secret.Base32 where the secret leaves the
// package in cleartext.
func (g *Generator) ProvisioningURI(secret Secret, account, issuer string) string {
	label := url.PathEscape(issuer) + ":" + url.PathEscape(account)
	var query strings.Builder
	query.WriteString("secret=" + secret.Base32())
	query.WriteString("&issuer=" + url.QueryEscape(issuer))
	query.WriteString("&algorithm=" + string(g.opts.Algorithm))
	query.WriteString(fmt.Sprintf("&digits=%d", g.opts.Digits))
	query.WriteString(fmt.Sprintf("&period=%d", int(g.opts.Step/time.Second)))
	return "otpauth://totp/" + label + "?" + query.String()
}

func pow10(n int) uint64 {
	out := uint64(1)
	for i := 0; i < n; i++ {
		out *= 10
	}
	return out
}

package otp

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrRecoveryInvalidCount = errors.New("otp: invalid recovery code count")
	ErrRecoveryInvalidCost  = errors.New("otp: invalid recovery hash cost")
)

// Recovery code defaults: ten codes of ten base32 characters, displayed in
// two groups of five.
const (
	DefaultRecoveryCount  = 10
	DefaultRecoveryLength = 10
	recoveryGroupSize     = 5
)

// RecoveryOptions configures recovery code generation.
type RecoveryOptions struct {
	Count  int
	Length int
	// Cost is the bcrypt cost used to hash the codes at rest.
	Cost int
}

// RecoveryCodeSet holds bcrypt hashes of single-use recovery codes. The
// cleartext codes exist only in the return value of GenerateRecoveryCodes;
// the set itself can be persisted via Snapshot without exposing them.
type RecoveryCodeSet struct {
	mu     sync.Mutex
	hashes [][]byte
}

// GenerateRecoveryCodes creates a fresh set of recovery codes, returning the
// cleartext codes for one-time display to the user together with the set
// holding their hashes.
func GenerateRecoveryCodes(opts RecoveryOptions) ([]string, *RecoveryCodeSet, error) {
	if opts.Count == 0 {
		opts.Count = DefaultRecoveryCount
	}
	if opts.Count < 0 {
		return nil, nil, fmt.Errorf("%w: got %d", ErrRecoveryInvalidCount, opts.Count)
	}
	if opts.Length == 0 {
		opts.Length = DefaultRecoveryLength
	}
	if opts.Cost == 0 {
		opts.Cost = bcrypt.DefaultCost
	}
	if opts.Cost < bcrypt.MinCost || opts.Cost > bcrypt.MaxCost {
		return nil, nil, fmt.Errorf("%w: got %d", ErrRecoveryInvalidCost, opts.Cost)
	}

	codes := make([]string, 0, opts.Count)
	hashes := make([][]byte, 0, opts.Count)
	for i := 0; i < opts.Count; i++ {
		code, err := recoveryCode(opts.Length)
		if err != nil {
			return nil, nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(normalizeRecoveryCode(code)), opts.Cost)
		if err != nil {
			return nil, nil, fmt.Errorf("otp: recovery code hash failed: %w", err)
		}
		codes = append(codes, code)
		hashes = append(hashes, hash)
	}
	return codes, &RecoveryCodeSet{hashes: hashes}, nil
}

// Consume verifies candidate against the remaining codes and, on a match,
// removes the matched code so it can never be used again.
func (s *RecoveryCodeSet) Consume(candidate string) bool {
	normalized := []byte(normalizeRecoveryCode(candidate))

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, hash := range s.hashes {
		if bcrypt.CompareHashAndPassword(hash, normalized) == nil {
			s.hashes = append(s.hashes[:i], s.hashes[i+1:]...)
			return true
		}
	}
	return false
}

// Remaining reports how many unused codes are left.
func (s *RecoveryCodeSet) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hashes)
}

// Snapshot returns the stored hashes for caller-owned persistence.
func (s *RecoveryCodeSet) Snapshot() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.hashes))
	for i, h := range s.hashes {
		out[i] = append([]byte(nil), h...)
	}
	return out
}

// RestoreRecoveryCodes rebuilds a set from persisted hashes.
func RestoreRecoveryCodes(hashes [][]byte) *RecoveryCodeSet {
	cloned := make([][]byte, len(hashes))
	for i, h := range hashes {
		cloned[i] = append([]byte(nil), h...)
	}
	return &RecoveryCodeSet{hashes: cloned}
}

// recoveryCode renders a base32 code grouped for readability, e.g.
// "J3K9Q-X2M4P".
func recoveryCode(length int) (string, error) {
	raw, err := RandomBytes(length)
	if err != nil {
		return "", err
	}
	encoded := secretEncoding.EncodeToString(raw)[:length]

	var b strings.Builder
	for i, r := range encoded {
		if i > 0 && i%recoveryGroupSize == 0 {
			b.WriteByte('-')
		}
		b.WriteRune(r)
	}
	return b.String(), nil
}

func normalizeRecoveryCode(code string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), "-", ""))
}

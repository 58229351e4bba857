package otp

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrCodeInvalidLength = errors.New("otp: invalid transient code length")
	ErrCodeInvalidTTL    = errors.New("otp: transient code ttl must be positive")
	ErrCodeInvalidRecord = errors.New("otp: invalid transient code record")
)

// Transient code defaults: 6 digits valid for 10 minutes.
const (
	DefaultCodeLength = 6
	DefaultCodeTTL    = 10 * time.Minute
)

// IssueOptions configures a new transient code. The zero value means "use
// the defaults".
type IssueOptions struct {
	Length int
	TTL    time.Duration
	// Now injects a deterministic clock, useful for tests.
	Now func() time.Time
}

// TransientCode is a random single-use numeric code delivered out-of-band.
// It verifies successfully at most once: the first correct, unexpired
// verification consumes it and every later attempt fails. A wrong candidate
// never consumes the code, so the user may retry until expiry.
type TransientCode struct {
	mu        sync.Mutex
	id        string
	code      string
	issuedAt  time.Time
	expiresAt time.Time
	consumed  bool
	now       func() time.Time
}

// Issue generates a transient code from the secure random source.
func Issue(opts IssueOptions) (*TransientCode, error) {
	if opts.Length == 0 {
		opts.Length = DefaultCodeLength
	}
	if opts.Length < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrCodeInvalidLength, opts.Length)
	}
	if opts.TTL == 0 {
		opts.TTL = DefaultCodeTTL
	}
	if opts.TTL < 0 {
		return nil, ErrCodeInvalidTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	code, err := RandomDigits(opts.Length)
	if err != nil {
		return nil, err
	}
	id, err := randomID()
	if err != nil {
		return nil, err
	}

	issued := opts.Now()
	return &TransientCode{
		id:        id,
		code:      code,
		issuedAt:  issued,
		expiresAt: issued.Add(opts.TTL),
		now:       opts.Now,
	}, nil
}

// ID returns an opaque handle for correlating the code across systems.
func (c *TransientCode) ID() string { return c.id }

// Code returns the digits to hand to the delivery transport.
func (c *TransientCode) Code() string { return c.code }

func (c *TransientCode) IssuedAt() time.Time { return c.issuedAt }

func (c *TransientCode) ExpiresAt() time.Time { return c.expiresAt }

// Consumed reports whether a successful verification already happened.
func (c *TransientCode) Consumed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.consumed
}

// Verify checks candidate against the stored code. The comparison runs in
// constant time and is always performed, so expired, consumed, and mismatch
// outcomes are not distinguishable by timing. Only a correct candidate on a
// live, unconsumed code returns true, and doing so consumes the code under
// the same critical section that checked it.
func (c *TransientCode) Verify(candidate string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	match := subtle.ConstantTimeCompare([]byte(candidate), []byte(c.code)) == 1
	expired := !c.now().Before(c.expiresAt)

	if c.consumed || expired || !match {
		return false
	}
	c.consumed = true
	return true
}

// Record is the serializable snapshot of a transient code. The package does
// not persist codes; callers that need codes to survive the issuing process
// store a Record and later rebuild the code with Restore.
type Record struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Consumed  bool      `json:"consumed"`
}

// Snapshot captures the current state of the code.
func (c *TransientCode) Snapshot() Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Record{
		ID:        c.id,
		Code:      c.code,
		IssuedAt:  c.issuedAt,
		ExpiresAt: c.expiresAt,
		Consumed:  c.consumed,
	}
}

// Restore rebuilds a transient code from a stored Record. The single-use
// invariant carries over: a record captured after consumption restores to a
// code that always fails verification.
func Restore(rec Record, now func() time.Time) (*TransientCode, error) {
	if rec.Code == "" || !rec.ExpiresAt.After(rec.IssuedAt) {
		return nil, ErrCodeInvalidRecord
	}
	for _, r := range rec.Code {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("%w: non-digit code", ErrCodeInvalidRecord)
		}
	}
	if now == nil {
		now = time.Now
	}
	return &TransientCode{
		id:        rec.ID,
		code:      rec.Code,
		issuedAt:  rec.IssuedAt,
		expiresAt: rec.ExpiresAt,
		consumed:  rec.Consumed,
		now:       now,
	}, nil
}

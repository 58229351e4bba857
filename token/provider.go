package token

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"strings"
	"sync"
	"time"

	"github.com/adeilh/go-mfa/otp"
)

var (
	ErrInvalidFormat     = errors.New("token: invalid token format")
	ErrInvalidSignature  = errors.New("token: invalid token signature")
	ErrUnsupportedAlgo   = errors.New("token: unsupported signing algorithm")
	ErrExpired           = errors.New("token: expired")
	ErrRevoked           = errors.New("token: revoked")
	ErrInvalidClaims     = errors.New("token: invalid claims")
	ErrMissingSigningKey = errors.New("token: missing signing key")
	ErrWeakSigningKey    = errors.New("token: signing key too short")
)

// MinKeyLength is the minimum recommended signing key length for HS256.
const MinKeyLength = 32

// DefaultTTL is applied when IssueOptions carries no TTL.
const DefaultTTL = 60 * time.Minute

// IssueOptions captures the per-issuance knobs.
type IssueOptions struct {
	// TTL bounds the token lifetime. Zero means DefaultTTL; negative is a
	// configuration error.
	TTL time.Duration
	// Algorithm overrides the provider default for this token.
	Algorithm string
}

type issuedToken struct {
	raw    string
	claims Claims
}

func (t issuedToken) Raw() string { return t.raw }

func (t issuedToken) Claims() Claims { return t.claims }

func (t issuedToken) IssuedAt() time.Time { return t.claims.IssuedAt }

func (t issuedToken) ExpiresAt() time.Time { return t.claims.ExpiresAt }

type tokenHeader struct {
	Algorithm string `json:"alg"`
	Type      string `json:"typ"`
}

type tokenPayload struct {
	ID          string   `json:"jti"`
	Subject     string   `json:"sub"`
	Principal   string   `json:"email,omitempty"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	IssuedAt    int64    `json:"iat"`
	ExpiresAt   int64    `json:"exp"`
}

// Provider issues and verifies HMAC-signed session tokens in the compact
// three-segment wire format (header.claims.signature, base64url without
// padding). The signing secret's secrecy is the entire trust boundary.
type Provider struct {
	secret      []byte
	policy      RolePolicy
	allowedAlgs map[string]struct{}
	defaultAlg  string
	leeway      time.Duration
	now         func() time.Time
	revoked     sync.Map
}

// NewProvider creates a token provider signing with secret. Algorithms
// defaults to HS256 when none are supplied. Permission sets come exclusively
// from policy.
func NewProvider(secret []byte, policy RolePolicy, algorithms ...string) (*Provider, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSigningKey
	}
	if len(algorithms) == 0 {
		algorithms = []string{"HS256"}
	}

	allowed := make(map[string]struct{}, len(algorithms))
	for _, alg := range algorithms {
		if _, err := signingHasher(alg); err != nil {
			return nil, err
		}
		allowed[alg] = struct{}{}
	}

	return &Provider{
		secret:      append([]byte(nil), secret...),
		policy:      policy,
		allowedAlgs: allowed,
		defaultAlg:  algorithms[0],
		leeway:      30 * time.Second,
		now:         time.Now,
	}, nil
}

// NewSecureProvider is NewProvider with enforced key length: at least 32
// bytes for HS256, 48 for HS384, 64 for HS512.
func NewSecureProvider(secret []byte, policy RolePolicy, algorithms ...string) (*Provider, error) {
	if len(algorithms) == 0 {
		algorithms = []string{"HS256"}
	}

	minLen := MinKeyLength
	for _, alg := range algorithms {
		switch alg {
		case "HS384":
			if minLen < 48 {
				minLen = 48
			}
		case "HS512":
			if minLen < 64 {
				minLen = 64
			}
		}
	}
	if len(secret) < minLen {
		return nil, fmt.Errorf("%w: need at least %d bytes", ErrWeakSigningKey, minLen)
	}

	return NewProvider(secret, policy, algorithms...)
}

// SetLeeway overrides the default expiration leeway used during verification.
func (p *Provider) SetLeeway(d time.Duration) {
	if d < 0 {
		d = 0
	}
	p.leeway = d
}

// SetNowFunc allows injecting a deterministic clock (useful for tests).
func (p *Provider) SetNowFunc(fn func() time.Time) {
	if fn == nil {
		fn = time.Now
	}
	p.now = fn
}

// Issue mints a token for the authenticated identity. The permission set is
// always derived from the role policy; there is no way for a caller to
// supply one.
func (p *Provider) Issue(ctx context.Context, identity, principal, role string, opts IssueOptions) (Token, error) {
	if err := contextError(ctx); err != nil {
		return nil, err
	}
	if identity == "" {
		return nil, fmt.Errorf("%w: empty identity", ErrInvalidClaims)
	}

	alg, err := p.resolveAlgorithm(opts.Algorithm)
	if err != nil {
		return nil, err
	}

	ttl := opts.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	if ttl < 0 {
		return nil, fmt.Errorf("%w: negative ttl", ErrInvalidClaims)
	}

	id, err := randomTokenID()
	if err != nil {
		return nil, err
	}

	now := p.now()
	claims := Claims{
		ID:          id,
		Subject:     identity,
		Principal:   principal,
		Role:        role,
		Permissions: p.policy.PermissionsFor(role),
		IssuedAt:    now,
		ExpiresAt:   now.Add(ttl),
	}

	headerSeg, err := encodeSegment(tokenHeader{Algorithm: alg, Type: "JWT"})
	if err != nil {
		return nil, err
	}
	payloadSeg, err := encodeSegment(payloadFromClaims(claims))
	if err != nil {
		return nil, err
	}

	signingInput := headerSeg + "." + payloadSeg
	signatureSeg, err := p.sign(signingInput, alg)
	if err != nil {
		return nil, err
	}

	return issuedToken{raw: signingInput + "." + signatureSeg, claims: claims}, nil
}

// Verify checks the signature and expiry of a raw token and returns its
// claims. The signature comparison is constant-time and happens strictly
// before the expiry branch, so "wrong signature" and "expired" are not
// distinguishable by timing.
func (p *Provider) Verify(ctx context.Context, raw string) (Claims, error) {
	if err := contextError(ctx); err != nil {
		return Claims{}, err
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return Claims{}, ErrInvalidFormat
	}

	var header tokenHeader
	if err := decodeSegment(parts[0], &header); err != nil {
		return Claims{}, ErrInvalidFormat
	}

	if err := p.verifySignature(parts[0]+"."+parts[1], parts[2], header.Algorithm); err != nil {
		return Claims{}, err
	}

	var payload tokenPayload
	if err := decodeSegment(parts[1], &payload); err != nil {
		return Claims{}, ErrInvalidFormat
	}

	claims := claimsFromPayload(payload)
	if !claims.ExpiresAt.IsZero() && p.now().After(claims.ExpiresAt.Add(p.leeway)) {
		return Claims{}, ErrExpired
	}

	if _, revoked := p.revoked.Load(claims.ID); revoked {
		return Claims{}, ErrRevoked
	}

	return claims, nil
}

// Revoke blacklists a token ID for the remainder of the process lifetime.
func (p *Provider) Revoke(tokenID string) error {
	if tokenID == "" {
		return fmt.Errorf("%w: empty token id", ErrInvalidClaims)
	}
	p.revoked.Store(tokenID, struct{}{})
	return nil
}

func (p *Provider) resolveAlgorithm(requested string) (string, error) {
	alg := requested
	if alg == "" {
		alg = p.defaultAlg
	}
	if _, ok := p.allowedAlgs[alg]; !ok {
		return "", ErrUnsupportedAlgo
	}
	return alg, nil
}

func (p *Provider) sign(input, alg string) (string, error) {
	hasher, err := signingHasher(alg)
	if err != nil {
		return "", err
	}
	mac := hmac.New(hasher, p.secret)
	_, _ = mac.Write([]byte(input))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}

func (p *Provider) verifySignature(input, signature, alg string) error {
	if _, ok := p.allowedAlgs[alg]; !ok {
		return ErrUnsupportedAlgo
	}

	hasher, err := signingHasher(alg)
	if err != nil {
		return err
	}

	provided, err := base64.RawURLEncoding.DecodeString(signature)
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(hasher, p.secret)
	_, _ = mac.Write([]byte(input))
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}

func signingHasher(alg string) (func() hash.Hash, error) {
	switch alg {
	case "HS256":
		return sha256.New, nil
	case "HS384":
		return sha512.New384, nil
	case "HS512":
		return sha512.New, nil
	default:
		return nil, ErrUnsupportedAlgo
	}
}

func payloadFromClaims(claims Claims) tokenPayload {
	return tokenPayload{
		ID:          claims.ID,
		Subject:     claims.Subject,
		Principal:   claims.Principal,
		Role:        claims.Role,
		Permissions: claims.Permissions,
		IssuedAt:    unixOrZero(claims.IssuedAt),
		ExpiresAt:   unixOrZero(claims.ExpiresAt),
	}
}

func claimsFromPayload(payload tokenPayload) Claims {
	return Claims{
		ID:          payload.ID,
		Subject:     payload.Subject,
		Principal:   payload.Principal,
		Role:        payload.Role,
		Permissions: payload.Permissions,
		IssuedAt:    timeFromUnix(payload.IssuedAt),
		ExpiresAt:   timeFromUnix(payload.ExpiresAt),
	}
}

func encodeSegment(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

func decodeSegment(segment string, dest any) error {
	data, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeFromUnix(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(v, 0).UTC()
}

func randomTokenID() (string, error) {
	buf, err := otp.RandomBytes(32)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func contextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

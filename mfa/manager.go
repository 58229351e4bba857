// Package mfa bundles code issuance, delivery, verification, and session
// token minting behind a single façade.
package mfa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/adeilh/go-mfa/cache"
	"github.com/adeilh/go-mfa/delivery"
	"github.com/adeilh/go-mfa/otp"
	"github.com/adeilh/go-mfa/token"
)

var (
	ErrMissingStore     = errors.New("mfa: cache store required")
	ErrMissingDeliverer = errors.New("mfa: deliverer required")
)

const (
	defaultSubject   = "Your verification code"
	defaultIssuer    = "go-mfa"
	codeKeyPrefix    = "mfacode"
	defaultCodeTTL   = otp.DefaultCodeTTL
	defaultCodeDigit = otp.DefaultCodeLength
)

// ManagerConfig wires the dependencies required for Manager.
type ManagerConfig struct {
	// Store holds pending out-of-band codes between send and verify.
	Store cache.Store
	// Deliverer carries rendered codes to recipients.
	Deliverer delivery.Deliverer
	// Renderer builds message bodies; defaults to the plain-text renderer.
	Renderer *delivery.Renderer

	// SigningKey and Policy configure the session token provider.
	SigningKey      []byte
	Policy          token.RolePolicy
	TokenAlgorithms []string

	// TOTP configures the time-code engine; zero value means defaults.
	TOTP otp.Options

	// CodeLength and CodeTTL shape out-of-band codes (6 digits, 10 minutes
	// by default).
	CodeLength int
	CodeTTL    time.Duration

	// Subject is the message subject for delivered codes.
	Subject string
	// Issuer names this application in provisioning URIs and messages.
	Issuer string

	Now func() time.Time
}

// Manager is the high-level entry point for a multi-factor authentication
// flow: send and verify out-of-band codes, enroll and verify authenticator
// apps, and mint session tokens after a successful factor.
type Manager struct {
	store      cache.Store
	sender     delivery.Deliverer
	renderer   *delivery.Renderer
	generator  *otp.Generator
	tokens     *token.Provider
	codeLength int
	codeTTL    time.Duration
	subject    string
	issuer     string
	now        func() time.Time
}

// NewManager builds a Manager with the provided dependencies.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Store == nil {
		return nil, ErrMissingStore
	}
	if cfg.Deliverer == nil {
		return nil, ErrMissingDeliverer
	}

	tokens, err := token.NewProvider(cfg.SigningKey, cfg.Policy, cfg.TokenAlgorithms...)
	if err != nil {
		return nil, err
	}

	generator, err := otp.NewGenerator(cfg.TOTP)
	if err != nil {
		return nil, err
	}

	renderer := cfg.Renderer
	if renderer == nil {
		renderer, err = delivery.NewRenderer()
		if err != nil {
			return nil, err
		}
	}

	m := &Manager{
		store:      cfg.Store,
		sender:     cfg.Deliverer,
		renderer:   renderer,
		generator:  generator,
		tokens:     tokens,
		codeLength: cfg.CodeLength,
		codeTTL:    cfg.CodeTTL,
		subject:    cfg.Subject,
		issuer:     cfg.Issuer,
		now:        cfg.Now,
	}
	if m.codeLength == 0 {
		m.codeLength = defaultCodeDigit
	}
	if m.codeTTL == 0 {
		m.codeTTL = defaultCodeTTL
	}
	if m.subject == "" {
		m.subject = defaultSubject
	}
	if m.issuer == "" {
		m.issuer = defaultIssuer
	}
	if m.now == nil {
		m.now = time.Now
	} else {
		m.tokens.SetNowFunc(m.now)
	}
	return m, nil
}

// SendCode issues a fresh out-of-band code for recipient, delivers it, and
// stores its record for later verification. The returned code is the one
// delivered; callers normally discard it. A delivery failure means the code
// never reached the user and is surfaced without retry.
func (m *Manager) SendCode(ctx context.Context, recipient string) (string, error) {
	code, err := otp.Issue(otp.IssueOptions{Length: m.codeLength, TTL: m.codeTTL, Now: m.now})
	if err != nil {
		return "", err
	}

	body, err := m.renderer.Render(delivery.CodeMessage{
		Code:             code.Code(),
		ExpiresInMinutes: int(m.codeTTL / time.Minute),
		AppName:          m.issuer,
	})
	if err != nil {
		return "", err
	}

	if err := m.sender.Deliver(ctx, recipient, m.subject, body); err != nil {
		return "", err
	}

	record, err := json.Marshal(code.Snapshot())
	if err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, m.codeKey(recipient), record, m.codeTTL); err != nil {
		return "", err
	}
	return code.Code(), nil
}

// VerifyCode checks candidate against the pending code for recipient. A
// successful verification consumes the code: it is removed from the store
// and can never verify again. A wrong candidate leaves the pending code in
// place so the user may retry until expiry.
func (m *Manager) VerifyCode(ctx context.Context, recipient, candidate string) (bool, error) {
	payload, err := m.store.Get(ctx, m.codeKey(recipient))
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	var rec otp.Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return false, err
	}
	code, err := otp.Restore(rec, m.now)
	if err != nil {
		return false, err
	}

	if !code.Verify(candidate) {
		return false, nil
	}
	if err := m.store.Delete(ctx, m.codeKey(recipient)); err != nil && !errors.Is(err, cache.ErrNotFound) {
		return false, err
	}
	return true, nil
}

// Enrollment is handed to the user during authenticator setup.
type Enrollment struct {
	Secret  otp.Secret
	URI     string
	Issuer  string
	Account string
}

// EnrollTOTP creates a fresh shared secret and the provisioning URI that
// seeds an authenticator app for account.
func (m *Manager) EnrollTOTP(account string) (Enrollment, error) {
	secret, err := otp.NewSecret()
	if err != nil {
		return Enrollment{}, err
	}
	return Enrollment{
		Secret:  secret,
		URI:     m.generator.ProvisioningURI(secret, account, m.issuer),
		Issuer:  m.issuer,
		Account: account,
	}, nil
}

// VerifyTOTP checks an authenticator code against secret at the current
// time, honoring the configured drift tolerance.
func (m *Manager) VerifyTOTP(secret otp.Secret, candidate string) (bool, error) {
	return m.generator.Verify(secret, candidate, m.now())
}

// IssueToken mints a session token for an identity that passed a factor.
func (m *Manager) IssueToken(ctx context.Context, identity, principal, role string, opts token.IssueOptions) (token.Token, error) {
	return m.tokens.Issue(ctx, identity, principal, role, opts)
}

// VerifyToken validates a session token and returns its claims.
func (m *Manager) VerifyToken(ctx context.Context, raw string) (token.Claims, error) {
	return m.tokens.Verify(ctx, raw)
}

// RevokeToken blacklists a token ID for the rest of the process lifetime.
func (m *Manager) RevokeToken(tokenID string) error {
	return m.tokens.Revoke(tokenID)
}

// TokenVerifier exposes the underlying verifier for middleware wiring.
func (m *Manager) TokenVerifier() token.Verifier {
	return m.tokens
}

func (m *Manager) codeKey(recipient string) string {
	return fmt.Sprintf("%s:%s", codeKeyPrefix, recipient)
}

package token

import (
	"context"
	"time"
)

// Claims models the payload carried inside a signed session token. The
// permission set is derived from the role policy at issuance and is never
// accepted from a caller, so a forged or replayed claim set cannot inject
// privileges.
type Claims struct {
	ID          string
	Subject     string
	Principal   string
	Role        string
	Permissions []string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// HasPermission reports whether the derived permission set contains perm.
func (c Claims) HasPermission(perm string) bool {
	for _, p := range c.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// Token exposes immutable information about an issued session token.
type Token interface {
	Raw() string
	Claims() Claims
	IssuedAt() time.Time
	ExpiresAt() time.Time
}

// Issuer mints signed session tokens for authenticated identities.
type Issuer interface {
	Issue(ctx context.Context, identity, principal, role string, opts IssueOptions) (Token, error)
}

// Verifier validates a raw token and returns its claims. Tokens are
// stateless and self-verifying; no server-side lookup is involved.
type Verifier interface {
	Verify(ctx context.Context, raw string) (Claims, error)
}

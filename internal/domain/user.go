package domain

import (
	"context"
	"time"
)

// RoleAdmin is the role claim that grants the administrative capability.
const RoleAdmin = "admin"

// Principal is the already-authenticated caller identity handed to the core by the
// identity provider. The core trusts it and never authenticates on its own.
type Principal struct {
	UserID string
	Admin  bool
}

// CanAccess reports whether the principal may act on a record owned by ownerID.
func (p Principal) CanAccess(ownerID string) bool {
	return p.Admin || (p.UserID != "" && p.UserID == ownerID)
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user. The API never issues
// tokens itself; implementations serve development tooling.
type TokenIssuer interface {
	Issue(userID, email string, roles []string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated principal.
type TokenVerifier interface {
	Verify(token string) (*Principal, error)
}

// Contact is the part of a user profile needed to notify them.
type Contact struct {
	UserID string
	Email  string
	Name   string
}

// UserDirectory resolves user ids to contacts. It is owned by the account system;
// the core only reads from it.
type UserDirectory interface {
	ContactFor(ctx context.Context, userID string) (*Contact, error)
}

// Package auth holds caller identity, roles, credentials and the account
// operations that issue them.
package auth

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

// Access control errors.
var (
	// ErrUnauthenticated is returned when a request carries no credential.
	ErrUnauthenticated = errors.New("access denied, no token provided")
	// ErrInvalidCredential is returned for malformed, expired or forged
	// credentials.
	ErrInvalidCredential = errors.New("invalid token")
	// ErrForbidden is returned when an authenticated caller lacks the
	// required role.
	ErrForbidden = errors.New("access denied")
)

// Role is the privilege level carried in a credential.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// UnknownRoleError reports a role outside the allow-list.
type UnknownRoleError struct {
	Value string
}

func (e *UnknownRoleError) Error() string {
	return fmt.Sprintf("unknown role %q", e.Value)
}

// ParseRole checks s against the allow-list of roles.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleCustomer, RoleAdmin:
		return r, nil
	default:
		return "", &UnknownRoleError{Value: s}
	}
}

// Identity is the authenticated caller attached to a request.
type Identity struct {
	Subject string
	Role    Role
}

// IsAdmin reports whether the identity holds elevated privilege.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// HasRole reports whether the identity holds any of roles.
func (i Identity) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity attached by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

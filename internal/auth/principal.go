// Package auth identifies callers. It holds the demo user directory, the
// signed session tokens issued at login, and the Principal/Access types the
// rest of the service uses to decide what a caller may do.
package auth

import (
	"context"
	"strings"
)

// Role is a coarse permission group.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Access answers the only two questions the wishlist asks about a caller.
// Role logic stays behind this interface.
type Access interface {
	IsAuthenticated() bool
	IsAdmin() bool
}

// Principal is the authenticated identity of a request. The zero value is
// the anonymous caller.
type Principal struct {
	Username string `json:"username"`
	Roles    []Role `json:"roles"`
}

// Anonymous returns the unauthenticated principal.
func Anonymous() Principal { return Principal{Roles: []Role{}} }

func (p Principal) IsAuthenticated() bool { return strings.TrimSpace(p.Username) != "" }

func (p Principal) IsAdmin() bool { return p.IsAuthenticated() && p.HasRole(RoleAdmin) }

// HasRole reports whether p carries r.
func (p Principal) HasRole(r Role) bool {
	for _, have := range p.Roles {
		if have == r {
			return true
		}
	}
	return false
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal, or Anonymous.
func FromContext(ctx context.Context) Principal {
	if p, ok := ctx.Value(principalKey{}).(Principal); ok {
		return p
	}
	return Anonymous()
}

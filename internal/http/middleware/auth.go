// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the caller's identity. Authenticate reads a session
// token from the "session" cookie or an "Authorization: Bearer" header,
// verifies it, and stores the resulting auth.Principal both in the Gin
// context and in the request's context.Context. Requests without a valid
// token continue as the anonymous principal; route-level guards
// (RequireAuth, RequireAdmin) decide whether that is acceptable.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tbourn/go-wishlist-backend/internal/auth"
)

const (
	ctxKeyPrincipal = "principal"
	// ctxKeyUserID mirrors Principal.Username for loggers and rate limiting.
	ctxKeyUserID = "userID"
)

// TokenParser verifies a session token. *auth.Sessions satisfies it.
type TokenParser interface {
	Parse(token string) (auth.Principal, error)
}

// PrincipalLookup re-reads a user's current roles. *auth.Directory satisfies it.
type PrincipalLookup interface {
	Lookup(username string) (auth.Principal, bool)
}

// Authenticate attaches the caller's principal to the request. A token that
// fails verification, or names a user no longer in the directory, leaves the
// request anonymous. It never aborts.
func Authenticate(tokens TokenParser, users PrincipalLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := auth.Anonymous()
		if tok := sessionToken(c); tok != "" && tokens != nil {
			if claimed, err := tokens.Parse(tok); err == nil {
				p = claimed
				if users != nil {
					if current, ok := users.Lookup(claimed.Username); ok {
						p = current
					} else {
						p = auth.Anonymous()
					}
				}
			}
		}
		SetPrincipal(c, p)
		c.Next()
	}
}

// SetPrincipal stores p on the Gin context and the request context.
func SetPrincipal(c *gin.Context, p auth.Principal) {
	c.Set(ctxKeyPrincipal, p)
	if p.IsAuthenticated() {
		c.Set(ctxKeyUserID, p.Username)
	}
	c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
}

// PrincipalFrom returns the principal set by Authenticate, or the anonymous
// principal when none was set.
func PrincipalFrom(c *gin.Context) auth.Principal {
	if v, ok := c.Get(ctxKeyPrincipal); ok {
		if p, ok := v.(auth.Principal); ok {
			return p
		}
	}
	return auth.FromContext(c.Request.Context())
}

// RequireAuth rejects anonymous callers with 401.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !PrincipalFrom(c).IsAuthenticated() {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects anonymous callers with 401 and non-admins with 403.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := PrincipalFrom(c)
		switch {
		case !p.IsAuthenticated():
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		case !p.IsAdmin():
			abortAuth(c, http.StatusForbidden, "forbidden", "admin role required")
			return
		}
		c.Next()
	}
}

func sessionToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		const prefix = "bearer "
		if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
			return strings.TrimSpace(h[len(prefix):])
		}
	}
	if v, err := c.Cookie(auth.SessionCookieName); err == nil {
		return strings.TrimSpace(v)
	}
	return ""
}

func abortAuth(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
	})
}

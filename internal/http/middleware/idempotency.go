// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements Idempotency-Key handling for unsafe requests. A client
// retrying POST /features with the same key must get the feature it created
// the first time, not a duplicate. IdempotencyValidator validates the header
// and resolves any stored outcome up front; the handler decides how to replay
// it and records new outcomes itself.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

const (
	// HeaderIdempotencyKey carries the client's retry key.
	HeaderIdempotencyKey = "Idempotency-Key"
	// HeaderIdempotencyReplayed is set to "true" on responses served from a
	// stored outcome.
	HeaderIdempotencyReplayed = "Idempotency-Replayed"

	defaultIdemMaxLen = 200
)

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // Replay
	ctxKeyRateBypass = "rate.bypass" // bool: true to skip rate limiting
)

var defaultIdemPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// Replay is the stored outcome of a completed request: the resource it
// produced and the status it answered with.
type Replay struct {
	ResourceID snowflake.ID
	Status     int
}

// IdempotencyLookup returns the unexpired outcome stored for
// (userID, scope, key), or nil when there is none. Errors are logged and
// treated as a miss.
type IdempotencyLookup func(ctx context.Context, userID, scope, key string, now time.Time) (*Replay, error)

// IdempotencyOptions configures IdempotencyValidator.
type IdempotencyOptions struct {
	// MaxLen caps the key length; <= 0 means 200.
	MaxLen int
	// Pattern restricts key characters; nil means ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
}

// IdempotencyValidator handles the Idempotency-Key header on POST, PUT,
// PATCH and DELETE:
//
//   - absent: no-op
//   - malformed: 400 bad_idempotency_key
//   - valid: the key is stashed for GetIdempotencyKey; for an authenticated
//     caller lookup runs, and a hit is stashed for ReplayFrom and exempts the
//     request from rate limiting
//
// Safe methods ignore the header.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = defaultIdemMaxLen
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultIdemPattern
	}

	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if key == "" || !unsafeMethod(c.Request.Method) {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		// Keys are per user; anonymous callers are rejected by the route guard anyway.
		user := asString(c.Value(ctxKeyUserID))
		if lookup != nil && user != "" {
			replay, err := lookup(c.Request.Context(), user, IdempotencyScope(c), key, time.Now().UTC())
			switch {
			case err != nil:
				LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
			case replay != nil:
				c.Set(ctxKeyIdemReplay, *replay)
				c.Set(ctxKeyRateBypass, true)
			}
		}

		c.Next()
	}
}

func unsafeMethod(m string) bool {
	switch m {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// GetIdempotencyKey returns the validated key stashed by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	s := asString(c.Value(ctxKeyIdemKey))
	return s, s != ""
}

// ReplayFrom returns the stored outcome found for this request's key.
func ReplayFrom(c *gin.Context) (Replay, bool) {
	r, ok := c.Value(ctxKeyIdemReplay).(Replay)
	return r, ok
}

// IdempotencyScope names the operation a key belongs to: the method plus the
// registered route, e.g. "POST /api/v1/features".
func IdempotencyScope(c *gin.Context) string {
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	return c.Request.Method + " " + path
}

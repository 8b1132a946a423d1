// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the access log of the wishlist API.
// Two kinds of values never reach the log in clear text:
//
//   - credentials: the session token (cookie or bearer header), and any
//     JWT-shaped string that leaks into a query or header
//   - identifiers: voter ids, emails, phone numbers and UUIDs
//
// Cookie headers are logged by name only ("session=[REDACTED]; voter-id=[REDACTED]"),
// so it stays visible whether a browser sent its voter cookie. Request and
// response bodies are never logged.
package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const redacted = "[REDACTED]"

// RedactOptions configures additional scrub behavior for RedactingLogger.
//
// MaskHeaders lists extra header names (case-insensitive) whose values are
// replaced with "[REDACTED]" in full.
type RedactOptions struct {
	MaskHeaders []string
}

var (
	// JWT first: its base64url segments would otherwise be half-eaten by the
	// looser patterns below.
	jwtRE   = regexp.MustCompile(`\beyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*`)
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Digits only, so the hex groups of a UUID never match.
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// scrub replaces identifiers and tokens found anywhere in s.
func scrub(s string) string {
	if s == "" {
		return s
	}
	s = jwtRE.ReplaceAllString(s, "[REDACTED:token]")
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// cookieNames keeps the names of the cookies in a Cookie header and drops
// every value.
func cookieNames(header string) string {
	parts := strings.Split(header, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		name, _, _ := strings.Cut(strings.TrimSpace(p), "=")
		if name != "" {
			out = append(out, name+"="+redacted)
		}
	}
	return strings.Join(out, "; ")
}

// authScheme keeps the scheme of an Authorization header ("Bearer") and
// drops the credential.
func authScheme(v string) string {
	if scheme, _, ok := strings.Cut(strings.TrimSpace(v), " "); ok && scheme != "" {
		return scheme + " " + redacted
	}
	return redacted
}

// safeHeaders returns a log-safe copy of h.
func safeHeaders(h http.Header, masked map[string]struct{}) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		val := strings.Join(vv, ", ")
		switch lk := strings.ToLower(k); {
		case lk == "authorization":
			out[k] = authScheme(val)
		case lk == "cookie":
			out[k] = cookieNames(val)
		case lk == "set-cookie":
			out[k] = redacted
		default:
			if _, ok := masked[lk]; ok {
				out[k] = redacted
				continue
			}
			out[k] = scrub(val)
		}
	}
	return out
}

// RedactingLogger returns a Gin middleware that writes one structured line
// per request: request id, method, route pattern, scrubbed query, status,
// size, latency, scrubbed headers and, when authenticated, the username.
// 4xx responses log at WARN and 5xx at ERROR.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	masked := make(map[string]struct{}, len(opts.MaskHeaders))
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			masked[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()
		headers := safeHeaders(c.Request.Header, masked)
		query := scrub(c.Request.URL.RawQuery)

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		reqID := c.Writer.Header().Get("X-Request-ID")
		if reqID == "" {
			reqID = c.GetHeader("X-Request-ID")
		}

		var ev *zerolog.Event
		switch status := c.Writer.Status(); {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		default:
			ev = log.Info()
		}
		if user, ok := c.Get(ctxKeyUserID); ok {
			ev = ev.Interface("user", user)
		}

		ev.
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", c.Writer.Status()).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}

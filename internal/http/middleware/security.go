// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides SecurityHeaders: browser hardening plus the cache policy
// of the wishlist API. Responses that depend on the caller (the voted flags of
// the feature list depend on the voter-id cookie, /auth/me on the session)
// must not be stored by shared caches, and login responses carry a session
// token and must not be stored at all.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// apiCSP locks down any HTML a browser might try to render from a JSON
// response. Swagger UI needs scripts and styles, so its prefix is exempt.
const apiCSP = "default-src 'none'; frame-ancestors 'none'"

// SecurityOptions configures SecurityHeaders.
//
// Fields:
//   - EnableHSTS: emit Strict-Transport-Security on HTTPS requests only. Set
//     it only when traffic is HTTPS end-to-end.
//   - HSTSMaxAge: HSTS lifetime; <= 0 defaults to 180 days.
//   - EnablePolicy: send Permissions-Policy and X-Permitted-Cross-Domain-Policies.
//   - NoStorePrefixes: path prefixes answered with Cache-Control: no-store.
//   - PrivatePrefixes: path prefixes answered with Cache-Control: private,
//     no-cache and Vary: Cookie, Authorization. Conditional requests (ETag)
//     still work; shared caches never mix two voters' views.
//   - HTMLPrefixes: path prefixes exempt from the API Content-Security-Policy.
type SecurityOptions struct {
	EnableHSTS      bool
	HSTSMaxAge      time.Duration
	EnablePolicy    bool
	NoStorePrefixes []string
	PrivatePrefixes []string
	HTMLPrefixes    []string
}

// SecurityHeaders returns a Gin middleware that adds security and cache
// headers before the handler runs.
//
// Always set: X-Content-Type-Options: nosniff, X-Frame-Options: DENY and
// Referrer-Policy: no-referrer. Content-Security-Policy is set outside
// HTMLPrefixes. When X-Request-ID is present it is added to
// Access-Control-Expose-Headers so browser clients can read it.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour).Seconds())
	}
	hsts := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()
		path := c.Request.URL.Path

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		if !hasAnyPrefix(path, opt.HTMLPrefixes) {
			h.Set("Content-Security-Policy", apiCSP)
		}

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}

		switch {
		case hasAnyPrefix(path, opt.NoStorePrefixes):
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		case hasAnyPrefix(path, opt.PrivatePrefixes):
			h.Set("Cache-Control", "private, no-cache")
			h.Add("Vary", "Cookie")
			h.Add("Vary", "Authorization")
		}

		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		if rid := h.Get("X-Request-ID"); rid != "" {
			const hdr = "Access-Control-Expose-Headers"
			cur := h.Get(hdr)
			if cur == "" {
				h.Set(hdr, "X-Request-ID")
			} else if !strings.Contains(cur, "X-Request-ID") {
				h.Set(hdr, cur+", X-Request-ID")
			}
		}

		c.Next()
	}
}

// hasAnyPrefix reports whether path starts with one of prefixes. Blank
// prefixes never match.
func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// isHTTPS reports whether the incoming request used HTTPS either directly
// (r.TLS != nil) or via a reverse proxy that set X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

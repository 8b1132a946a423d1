package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName carries the signed session token.
const SessionCookieName = "session"

const issuer = "wishlist"

// ErrInvalidSession covers malformed, forged and expired tokens.
var ErrInvalidSession = errors.New("invalid session")

type sessionClaims struct {
	Roles []Role `json:"roles"`
	jwt.RegisteredClaims
}

// Sessions issues and verifies HS256 session tokens.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessions returns a token issuer. An empty secret generates a random
// one, which invalidates every session on restart.
func NewSessions(secret string, ttl time.Duration) (*Sessions, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("auth: generate session secret: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Sessions{secret: key, ttl: ttl, now: time.Now}, nil
}

// TTL is the lifetime of issued tokens.
func (s *Sessions) TTL() time.Duration { return s.ttl }

// Issue signs a token for p.
func (s *Sessions) Issue(p Principal) (token string, expiresAt time.Time, err error) {
	if !p.IsAuthenticated() {
		return "", time.Time{}, errors.New("auth: cannot issue a session for an anonymous principal")
	}
	now := s.now()
	expiresAt = now.Add(s.ttl)
	claims := sessionClaims{
		Roles: p.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Username,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Parse verifies token and returns the principal it names.
func (s *Sessions) Parse(token string) (Principal, error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return Anonymous(), ErrInvalidSession
	}
	return Principal{Username: claims.Subject, Roles: claims.Roles}, nil
}

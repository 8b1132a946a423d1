// Session HTTP handlers.
//
// Login verifies credentials against the user directory and issues a signed
// session token, returned in the body and as the HttpOnly "session" cookie.
// Me also resolves the browser's voter id so a fresh client gets its
// voter-id cookie on the first call.
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-wishlist-backend/internal/auth"
	"github.com/tbourn/go-wishlist-backend/internal/http/middleware"
)

// Login godoc
// @ID          login
// @Summary     Log in
// @Description Verifies username and password and starts a session.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.LoginRequest  true  "Credentials"
//
// @Success     200  {object}  handlers.LoginResponse
// @Header      200  {string}  Set-Cookie  "session=<token>; HttpOnly"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Invalid credentials"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username and password required")
		return
	}

	p, err := h.users.Authenticate(strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			middleware.RecordLogin(false)
			fail(c, http.StatusUnauthorized, ErrCodeInvalidCredentials, "invalid username or password")
			return
		}
		failService(c, err)
		return
	}

	token, exp, err := h.sessions.Issue(p)
	if err != nil {
		failService(c, err)
		return
	}
	maxAge := int(time.Until(exp).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookieName, token, maxAge, "/", "", h.opts.SecureCookie, true)

	middleware.LoggerFrom(c).Info().Str("user", p.Username).Msg("login")
	middleware.RecordLogin(true)
	ok(c, http.StatusOK, LoginResponse{
		Username:  p.Username,
		Roles:     p.Roles,
		Token:     token,
		ExpiresAt: exp.UTC(),
	})
}

// Logout godoc
// @ID          logout
// @Summary     Log out
// @Description Clears the session cookie. Bearer tokens stay valid until they expire.
// @Tags        Auth
//
// @Success     204  {string}  string  "No Content"
// @Router      /auth/logout [post]
func (h *Handlers) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookieName, "", -1, "/", "", h.opts.SecureCookie, true)
	noContent(c)
}

// Me godoc
// @ID          me
// @Summary     Describe the caller
// @Description Returns the caller's principal and voter id. Issues the voter-id cookie when missing.
// @Tags        Auth
// @Produce     json
//
// @Success     200  {object}  handlers.MeResponse
// @Router      /auth/me [get]
func (h *Handlers) Me(c *gin.Context) {
	p := middleware.PrincipalFrom(c)
	voterID, _ := h.voteSvc.ResolveVoterIdentity(c)
	roles := p.Roles
	if roles == nil {
		roles = []auth.Role{}
	}
	ok(c, http.StatusOK, MeResponse{
		Username:        p.Username,
		Roles:           roles,
		IsAuthenticated: p.IsAuthenticated(),
		IsAdmin:         p.IsAdmin(),
		VoterID:         voterID,
	})
}

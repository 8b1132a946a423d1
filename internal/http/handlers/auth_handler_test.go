package handlers

import (
	"net/http"
	"testing"

	"github.com/tbourn/go-wishlist-backend/internal/auth"
	"github.com/tbourn/go-wishlist-backend/internal/services"
)

func TestLogin_Success_SetsSessionCookie(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/auth/login", LoginRequest{Username: " admin ", Password: "admin"})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	resp := decode[LoginResponse](t, w)
	if resp.Username != "admin" || resp.Token == "" || len(resp.Roles) != 1 || resp.Roles[0] != auth.RoleAdmin {
		t.Fatalf("unexpected login response: %+v", resp)
	}
	if resp.ExpiresAt.IsZero() {
		t.Fatalf("missing expiry: %+v", resp)
	}

	ck := findCookie(w, auth.SessionCookieName)
	if ck == nil || ck.Value != resp.Token || !ck.HttpOnly || ck.Path != "/" || ck.MaxAge <= 0 {
		t.Fatalf("unexpected session cookie: %+v", ck)
	}

	// the cookie alone authenticates later calls
	me := s.do(t, http.MethodGet, "/auth/me", nil, func(r *http.Request) { r.AddCookie(ck) })
	if got := decode[MeResponse](t, me); !got.IsAdmin || got.Username != "admin" {
		t.Fatalf("cookie session not honored: %+v", got)
	}
}

func TestLogin_Failures(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name string
		body any
		code int
		err  string
	}{
		{"wrong password", LoginRequest{Username: "user", Password: "nope"}, http.StatusUnauthorized, ErrCodeInvalidCredentials},
		{"unknown user", LoginRequest{Username: "ghost", Password: "user"}, http.StatusUnauthorized, ErrCodeInvalidCredentials},
		{"missing password", map[string]string{"username": "user"}, http.StatusBadRequest, ErrCodeBadRequest},
		{"not json", "just a string", http.StatusBadRequest, ErrCodeBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/auth/login", tc.body)
			if w.Code != tc.code {
				t.Fatalf("status=%d want %d", w.Code, tc.code)
			}
			if er := decode[ErrorResponse](t, w); er.Code != tc.err {
				t.Fatalf("code=%q want %q", er.Code, tc.err)
			}
			if findCookie(w, auth.SessionCookieName) != nil {
				t.Fatal("failed login must not set a session cookie")
			}
		})
	}
}

func TestLogout_ClearsCookie(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/auth/logout", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status=%d", w.Code)
	}
	ck := findCookie(w, auth.SessionCookieName)
	if ck == nil || ck.Value != "" || ck.MaxAge >= 0 {
		t.Fatalf("expected expiring session cookie, got %+v", ck)
	}
}

func TestMe(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/auth/me", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	anon := decode[MeResponse](t, w)
	if anon.IsAuthenticated || anon.IsAdmin || anon.Username != "" || anon.Roles == nil {
		t.Fatalf("unexpected anonymous view: %+v", anon)
	}
	ck := findCookie(w, services.VoterCookieName)
	if ck == nil || ck.Value != anon.VoterID {
		t.Fatalf("voter id not issued consistently: cookie=%+v body=%q", ck, anon.VoterID)
	}

	w = s.do(t, http.MethodGet, "/auth/me", nil,
		withBearer(s.token(t, "admin", auth.RoleAdmin)), withVoter("v-admin"))
	admin := decode[MeResponse](t, w)
	if !admin.IsAuthenticated || !admin.IsAdmin || admin.VoterID != "v-admin" {
		t.Fatalf("unexpected admin view: %+v", admin)
	}
	if findCookie(w, services.VoterCookieName) != nil {
		t.Fatal("existing voter cookie must not be reissued")
	}

	// roles come from the directory, not the token
	w = s.do(t, http.MethodGet, "/auth/me", nil, withBearer(s.token(t, "user", auth.RoleAdmin)))
	if got := decode[MeResponse](t, w); got.IsAdmin || got.Username != "user" {
		t.Fatalf("token roles must not override directory roles: %+v", got)
	}
}

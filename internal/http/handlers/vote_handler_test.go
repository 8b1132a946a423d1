package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/tbourn/go-wishlist-backend/internal/auth"
	"github.com/tbourn/go-wishlist-backend/internal/services"
)

func TestCastVote_RecordedThenAlreadyVoted(t *testing.T) {
	s := newTestServer(t)
	f := s.mustCreate(t, "Dark Mode")
	path := "/features/" + f.ID.String() + "/votes"
	user := withBearer(s.token(t, "user", auth.RoleUser))

	w := s.do(t, http.MethodPost, path, nil, user, withVoter("browser-1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("first vote: %d body=%s", w.Code, w.Body.String())
	}
	first := decode[VoteResponse](t, w)
	if first.Result != "recorded" || first.Votes != 1 || first.Notice != "" || first.FeatureID != f.ID {
		t.Fatalf("unexpected first vote: %+v", first)
	}

	w = s.do(t, http.MethodPost, path, nil, user, withVoter("browser-1"))
	if w.Code != http.StatusOK {
		t.Fatalf("second vote: %d", w.Code)
	}
	second := decode[VoteResponse](t, w)
	if second.Result != "already_voted" || second.Votes != 1 || second.Notice != services.AlreadyVotedNotice {
		t.Fatalf("unexpected second vote: %+v", second)
	}

	// the same user in another browser counts again
	w = s.do(t, http.MethodPost, path, nil, user, withVoter("browser-2"))
	if w.Code != http.StatusCreated || decode[VoteResponse](t, w).Votes != 2 {
		t.Fatalf("second browser: %d %s", w.Code, w.Body.String())
	}
}

func TestCastVote_IssuesCookieWhenMissing(t *testing.T) {
	s := newTestServer(t)
	f := s.mustCreate(t, "Dark Mode")

	w := s.do(t, http.MethodPost, "/features/"+f.ID.String()+"/votes", nil,
		withBearer(s.token(t, "user", auth.RoleUser)))
	if w.Code != http.StatusCreated {
		t.Fatalf("vote: %d", w.Code)
	}
	ck := findCookie(w, services.VoterCookieName)
	if ck == nil {
		t.Fatal("voter-id cookie not issued")
	}

	// the issued id is the one the vote was recorded under
	ids, err := s.votes.VotedBy(context.Background(), ck.Value)
	if err != nil || len(ids) != 1 || ids[0] != f.ID {
		t.Fatalf("vote not attributed to issued cookie: %v %v", ids, err)
	}
}

func TestCastVote_Errors(t *testing.T) {
	s := newTestServer(t)
	f := s.mustCreate(t, "Dark Mode")
	user := withBearer(s.token(t, "user", auth.RoleUser))

	w := s.do(t, http.MethodPost, "/features/"+f.ID.String()+"/votes", nil, withVoter("v1"))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401, got %d", w.Code)
	}
	if findCookie(w, services.VoterCookieName) != nil {
		t.Fatal("rejected request must not issue a voter cookie")
	}

	w = s.do(t, http.MethodPost, "/features/777/votes", nil, user, withVoter("v1"))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown feature: expected 404, got %d", w.Code)
	}
	if er := decode[ErrorResponse](t, w); er.Code != ErrCodeNotFound {
		t.Fatalf("unexpected error code: %+v", er)
	}

	w = s.do(t, http.MethodPost, "/features/nope/votes", nil, user, withVoter("v1"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad id: expected 400, got %d", w.Code)
	}
}

func TestMyVotes(t *testing.T) {
	s := newTestServer(t)
	a := s.mustCreate(t, "Dark Mode")
	b := s.mustCreate(t, "Export als PDF")
	s.mustCreate(t, "Jira Integration")
	s.mustVote(t, a.ID, "v1")
	s.mustVote(t, b.ID, "v1")
	s.mustVote(t, b.ID, "v2")

	w := s.do(t, http.MethodGet, "/votes/mine", nil, withVoter("v1"))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	got := decode[MyVotesResponse](t, w).FeatureIDs
	if len(got) != 2 {
		t.Fatalf("expected 2 ids, got %v", got)
	}
	seen := idSet(got)
	if !seen[a.ID] || !seen[b.ID] {
		t.Fatalf("unexpected ids: %v", got)
	}

	w = s.do(t, http.MethodGet, "/votes/mine", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("fresh browser: %d", w.Code)
	}
	if body := w.Body.String(); body != `{"feature_ids":[]}` {
		t.Fatalf("expected empty list, got %s", body)
	}
	if findCookie(w, services.VoterCookieName) == nil {
		t.Fatal("fresh browser should receive a voter cookie")
	}
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-wishlist-backend/internal/auth"
	"github.com/tbourn/go-wishlist-backend/internal/domain"
	"github.com/tbourn/go-wishlist-backend/internal/http/middleware"
	"github.com/tbourn/go-wishlist-backend/internal/repo"
	"github.com/tbourn/go-wishlist-backend/internal/services"
)

// ---------- test DB + repo shim ----------

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Unique DSN per call to avoid cross-test contamination
	dsn := fmt.Sprintf("file:wish_handlers_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Minimal shim implementing services.FeatureRepo using repo package (like router.go)
type testFeatureRepo struct{}

func (testFeatureRepo) CreateFeature(ctx context.Context, db *gorm.DB, f *domain.FeatureRequest) error {
	return repo.CreateFeature(ctx, db, f)
}

func (testFeatureRepo) GetFeature(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.FeatureRequest, error) {
	return repo.GetFeature(ctx, db, id)
}

func (testFeatureRepo) SaveFeature(ctx context.Context, db *gorm.DB, f *domain.FeatureRequest) error {
	return repo.SaveFeature(ctx, db, f)
}

func (testFeatureRepo) UpdateFeatureStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, s domain.Status) error {
	return repo.UpdateFeatureStatus(ctx, db, id, s)
}

func (testFeatureRepo) ListFeatures(ctx context.Context, db *gorm.DB, s *domain.Status) ([]domain.FeatureRequest, error) {
	return repo.ListFeatures(ctx, db, s)
}

// ---------- wired test server ----------

type testServer struct {
	r        *gin.Engine
	db       *gorm.DB
	features *services.FeatureService
	votes    *services.VoteService
	sessions *auth.Sessions
}

const testTicketBase = "https://jira.example.com/browse"

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	features := services.NewFeatureService(db, testFeatureRepo{}, node, testTicketBase)
	clock := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	features.Now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	votes := services.NewVoteService(db, node, nil, false)

	dir, err := auth.ParseUsers(auth.DefaultUsers, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	sess, err := auth.NewSessions("handler-test-secret", time.Hour)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}

	h := New(features, votes, dir, sess, Options{IdempotencyTTL: time.Hour})
	r := gin.New()
	r.Use(middleware.Authenticate(sess, dir))
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, IdempotencyLookup(db)))
	mount(r.Group(""), h)

	return &testServer{r: r, db: db, features: features, votes: votes, sessions: sess}
}

// mount registers the routes the same way the router does, without the
// process-wide middleware.
func mount(g *gin.RouterGroup, h *Handlers) {
	g.POST("/auth/login", h.Login)
	g.POST("/auth/logout", h.Logout)
	g.GET("/auth/me", h.Me)

	g.GET("/features", h.ListFeatures)
	g.GET("/features/similar", h.SimilarFeatures)
	g.GET("/features/:id", h.GetFeature)
	g.POST("/features", middleware.RequireAuth(), h.CreateFeature)
	g.PUT("/features/:id", middleware.RequireAdmin(), h.UpdateFeature)
	g.PATCH("/features/:id/status", middleware.RequireAdmin(), h.UpdateFeatureStatus)
	g.POST("/features/:id/votes", middleware.RequireAuth(), h.CastVote)
	g.GET("/votes/mine", h.MyVotes)
}

func (s *testServer) token(t *testing.T, username string, roles ...auth.Role) string {
	t.Helper()
	tok, _, err := s.sessions.Issue(auth.Principal{Username: username, Roles: roles})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tok
}

type reqOpt func(*http.Request)

func withBearer(tok string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }
}

func withVoter(id string) reqOpt {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: services.VoterCookieName, Value: id})
	}
}

func withHeader(k, v string) reqOpt {
	return func(r *http.Request) { r.Header.Set(k, v) }
}

func (s *testServer) do(t *testing.T, method, path string, body any, opts ...reqOpt) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, o := range opts {
		o(req)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

func (s *testServer) mustCreate(t *testing.T, title string) *domain.FeatureRequest {
	t.Helper()
	f, err := s.features.Create(context.Background(), services.CreateFeatureInput{Title: title}, "user")
	if err != nil {
		t.Fatalf("create %q: %v", title, err)
	}
	return f
}

func (s *testServer) mustVote(t *testing.T, id snowflake.ID, voter string) {
	t.Helper()
	if _, err := s.votes.CastVote(context.Background(), id, voter); err != nil {
		t.Fatalf("vote: %v", err)
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("json: %v (%s)", err, w.Body.String())
	}
	return v
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

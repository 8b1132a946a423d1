package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
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
	"github.com/tbourn/go-wishlist-backend/internal/cache"
	"github.com/tbourn/go-wishlist-backend/internal/config"
	"github.com/tbourn/go-wishlist-backend/internal/domain"
	"github.com/tbourn/go-wishlist-backend/internal/http/middleware"
	"github.com/tbourn/go-wishlist-backend/internal/repo"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:routerdb_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newDeps(t *testing.T) Deps {
	t.Helper()
	dir, err := auth.ParseUsers(auth.DefaultUsers, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	sess, err := auth.NewSessions("router-test-secret", time.Hour)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	return Deps{Users: dir, Sessions: sess, Counts: cache.NewMemory(time.Minute), IDs: node}
}

func baseConfig(base string) config.Config {
	return config.Config{
		APIBasePath:    base,
		RateRPS:        100,
		RateBurst:      50,
		LoginPerMinute: 100,
		VotesPerMinute: 100,
		CORS:           config.CORSConfig{AllowedOrigins: nil}, // triggers AllowAllOrigins branch
		Security:       config.SecurityConfig{EnableHSTS: false, HSTSMaxAge: 0},
		OTEL:           config.OTELConfig{ServiceName: "test-svc"},
		TicketBaseURL:  "https://jira.example.com/browse",
		IdempotencyTTL: time.Hour,
	}
}

func serve(r *gin.Engine, method, path string, body io.Reader, hdr map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, body)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, newTestDB(t), baseConfig("/api/v1"), newDeps(t))

	// /health works; a cross-site Origin makes it a CORS request
	w := serve(r, http.MethodGet, "/health", nil, map[string]string{"Origin": "http://ui.example.org"})
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	// CORS (AllowAllOrigins) → header "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}

	// /metrics is wired
	w = serve(r, http.MethodGet, "/metrics", nil, nil)
	if w.Code != http.StatusOK || len(w.Body.Bytes()) == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → 404
	w = serve(r, http.MethodGet, "/nope", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	// NoMethod → 405 (POST /health)
	w = serve(r, http.MethodPost, "/health", nil, nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}

	// Swagger is off unless enabled
	w = serve(r, http.MethodGet, "/swagger/index.html", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("swagger should be disabled, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := baseConfig("/api/v2")
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://ui.example.org"}}
	RegisterRoutes(r, newTestDB(t), cfg, newDeps(t))

	// httptest requests target example.com, so this origin is cross-site and
	// the CORS middleware must answer it.
	w := serve(r, http.MethodGet, "/health", nil, map[string]string{"Origin": "http://ui.example.org"})
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://ui.example.org" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("expected credentials to be allowed for listed origins, got %q", got)
	}

	// API mounted under the configured base path
	w = serve(r, http.MethodGet, "/api/v2/features", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/v2/features = %d", w.Code)
	}
}

func TestRegisterRoutes_SwaggerEnabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := baseConfig("/api/v1")
	cfg.SwaggerEnabled = true
	RegisterRoutes(r, newTestDB(t), cfg, newDeps(t))

	w := serve(r, http.MethodGet, "/swagger/doc.json", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /swagger/doc.json = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"/features/{id}/votes"`) {
		t.Fatal("swagger document should describe the vote endpoint")
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := serve(r, http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB"), nil) // 12 bytes
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// "/" and "" should mount at root
	root1 := groupWithPrefix(r, "/")
	root1.GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	root2 := groupWithPrefix(r, "")
	root2.GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })

	// non-root prefix
	api := groupWithPrefix(r, "/api")
	api.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		rec := serve(r, http.MethodGet, path, nil, nil)
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, rec.Code, rec.Body.String())
		}
	}
}

// Smoke test that a request traverses idempotency + ratelimit + otel + security headers pipeline.
func TestPipeline_Smoke(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := baseConfig("/api/v1")
	cfg.Security = config.SecurityConfig{EnableHSTS: true, HSTSMaxAge: time.Hour} // enabled (but only set on https)
	RegisterRoutes(r, newTestDB(t), cfg, newDeps(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	// simulate https so HSTS could be eligible if middleware checks scheme
	req.URL.Scheme = "https"
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("pipeline GET /health = %d", w.Code)
	}
	// RequestID header should be present (from RequestID middleware)
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
}

func TestRegisterRoutes_Gzip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, newTestDB(t), baseConfig("/api/v1"), newDeps(t))

	w := serve(r, http.MethodGet, "/api/v1/features", nil, map[string]string{"Accept-Encoding": "gzip"})
	if w.Code != http.StatusOK {
		t.Fatalf("GET /features = %d", w.Code)
	}
	if got := w.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("expected gzip response, got %q", got)
	}
}

// End-to-end: login, file a feature, vote twice from the same browser, see it ranked.
func TestRegisterRoutes_EndToEnd(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	db := newTestDB(t)
	RegisterRoutes(r, db, baseConfig("/api/v1"), newDeps(t))

	// anonymous create is rejected
	w := serve(r, http.MethodPost, "/api/v1/features", strings.NewReader(`{"title":"Dark Mode"}`),
		map[string]string{"Content-Type": "application/json"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous create expected 401, got %d", w.Code)
	}

	// login
	w = serve(r, http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"user","password":"user"}`),
		map[string]string{"Content-Type": "application/json"})
	if w.Code != http.StatusOK {
		t.Fatalf("login = %d %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("login must not be cached, Cache-Control=%q", got)
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &login); err != nil || login.Token == "" {
		t.Fatalf("login body: %v %s", err, w.Body.String())
	}
	authHdr := map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + login.Token,
		"Cookie":        "voter-id=browser-1",
	}

	// create
	w = serve(r, http.MethodPost, "/api/v1/features", strings.NewReader(`{"title":"Dark Mode","category":"UI/UX"}`), authHdr)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil || created.ID == "" {
		t.Fatalf("create body: %v %s", err, w.Body.String())
	}

	// vote, then vote again
	votePath := "/api/v1/features/" + created.ID + "/votes"
	if w = serve(r, http.MethodPost, votePath, nil, authHdr); w.Code != http.StatusCreated {
		t.Fatalf("first vote = %d %s", w.Code, w.Body.String())
	}
	if w = serve(r, http.MethodPost, votePath, nil, authHdr); w.Code != http.StatusOK {
		t.Fatalf("second vote = %d %s", w.Code, w.Body.String())
	}

	// list shows one vote, voted for this browser
	w = serve(r, http.MethodGet, "/api/v1/features", nil, map[string]string{"Cookie": "voter-id=browser-1"})
	var list struct {
		Features []struct {
			ID    string `json:"id"`
			Votes int64  `json:"votes"`
			Voted bool   `json:"voted"`
		} `json:"features"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("list body: %v", err)
	}
	if len(list.Features) != 1 || list.Features[0].ID != created.ID || list.Features[0].Votes != 1 || !list.Features[0].Voted {
		t.Fatalf("unexpected list: %+v", list.Features)
	}
	if got := w.Header().Get("Cache-Control"); got != "private, no-cache" {
		t.Fatalf("per-voter list must be private, Cache-Control=%q", got)
	}

	w = serve(r, http.MethodGet, "/metrics", nil, nil)
	for _, series := range []string{`wishlist_votes_total{outcome="already_voted"}`, `wishlist_features_created_total`, `wishlist_logins_total{result="ok"}`} {
		if !strings.Contains(w.Body.String(), series) {
			t.Fatalf("metrics missing %s", series)
		}
	}

	var n int64
	if err := db.Model(&domain.Vote{}).Count(&n).Error; err != nil || n != 1 {
		t.Fatalf("expected one stored vote, got %d (%v)", n, err)
	}
}

func TestRegisterRoutes_LoginRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := baseConfig("/api/v1")
	cfg.LoginPerMinute = 2
	RegisterRoutes(r, newTestDB(t), cfg, newDeps(t))

	hdr := map[string]string{"Content-Type": "application/json"}
	for i := 0; i < 2; i++ {
		w := serve(r, http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"user","password":"wrong"}`), hdr)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d = %d", i+1, w.Code)
		}
	}
	w := serve(r, http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"user","password":"user"}`), hdr)
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") == "" {
		t.Fatalf("third attempt expected 429 with Retry-After, got %d", w.Code)
	}

	// the login budget does not apply to other routes
	if w := serve(r, http.MethodGet, "/api/v1/features", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("list after login lockout = %d", w.Code)
	}
}

func TestRegisterRoutes_IdempotencyCallback_MissAndHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	db := newTestDB(t)
	deps := newDeps(t)
	RegisterRoutes(r, db, baseConfig("/api/vX"), deps)

	tok, _, err := deps.Sessions.Issue(auth.Principal{Username: "user", Roles: []auth.Role{auth.RoleUser}})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	hdr := map[string]string{
		"Content-Type":                  "application/json",
		"Authorization":                 "Bearer " + tok,
		middleware.HeaderIdempotencyKey: "key-hit",
	}

	// --- MISS: nothing stored yet, a feature is created ---
	w := serve(r, http.MethodPost, "/api/vX/features", strings.NewReader(`{"title":"Export als PDF"}`), hdr)
	if w.Code != http.StatusCreated || w.Header().Get("Idempotency-Replayed") != "" {
		t.Fatalf("miss expected fresh 201, got %d replayed=%q", w.Code, w.Header().Get("Idempotency-Replayed"))
	}

	// the handler stored the key under the route scope
	rec, err := repo.GetIdempotency(context.Background(), db, "user", "POST /api/vX/features", "key-hit", time.Now().UTC())
	if err != nil || rec == nil {
		t.Fatalf("expected stored idempotency record: %v", err)
	}

	// --- HIT: replayed ---
	w = serve(r, http.MethodPost, "/api/vX/features", strings.NewReader(`{"title":"Export als PDF"}`), hdr)
	if w.Code != http.StatusCreated || w.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("hit expected replayed 201, got %d", w.Code)
	}

	n, err := repo.CountFeatures(context.Background(), db)
	if err != nil || n != 1 {
		t.Fatalf("expected one feature after replay, got %d (%v)", n, err)
	}
}

func TestRegisterRoutes_IdempotencyLookupFailure_FallsThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	db := newTestDB(t)
	deps := newDeps(t)
	RegisterRoutes(r, db, baseConfig("/api/v1"), deps)

	tok, _, err := deps.Sessions.Issue(auth.Principal{Username: "user", Roles: []auth.Role{auth.RoleUser}})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// a closed pool makes the lookup fail; the create runs and fails on its own
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	_ = sqlDB.Close()

	w := serve(r, http.MethodPost, "/api/v1/features", strings.NewReader(`{"title":"Dark Mode"}`), map[string]string{
		"Content-Type":                  "application/json",
		"Authorization":                 "Bearer " + tok,
		middleware.HeaderIdempotencyKey: "k-closed",
	})
	if w.Code != http.StatusInternalServerError || w.Header().Get(middleware.HeaderIdempotencyReplayed) != "" {
		t.Fatalf("expected plain 500, got %d replayed=%q", w.Code, w.Header().Get(middleware.HeaderIdempotencyReplayed))
	}

	// malformed keys are rejected before any lookup
	w = serve(r, http.MethodPost, "/api/v1/features", strings.NewReader(`{"title":"Dark Mode"}`), map[string]string{
		"Authorization":                 "Bearer " + tok,
		middleware.HeaderIdempotencyKey: "has spaces",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed key expected 400, got %d", w.Code)
	}
}

func Test_featureRepoShim_Proxies(t *testing.T) {
	db := newTestDB(t)
	shim := featureRepoShim{}
	ctx := context.Background()

	f := &domain.FeatureRequest{ID: 1, Title: "Dark Mode", Status: domain.StatusOpen, CreatedAt: time.Now().UTC()}
	if err := shim.CreateFeature(ctx, db, f); err != nil {
		t.Fatalf("CreateFeature: %v", err)
	}

	got, err := shim.GetFeature(ctx, db, 1)
	if err != nil || got.Title != "Dark Mode" {
		t.Fatalf("GetFeature: %+v %v", got, err)
	}

	got.Title = "Dark Mode v2"
	if err := shim.SaveFeature(ctx, db, got); err != nil {
		t.Fatalf("SaveFeature: %v", err)
	}

	if err := shim.UpdateFeatureStatus(ctx, db, 1, domain.StatusDone); err != nil {
		t.Fatalf("UpdateFeatureStatus: %v", err)
	}

	st := domain.StatusDone
	all, err := shim.ListFeatures(ctx, db, &st)
	if err != nil || len(all) != 1 || all[0].Title != "Dark Mode v2" || all[0].Status != domain.StatusDone {
		t.Fatalf("ListFeatures: %+v %v", all, err)
	}

	open := domain.StatusOpen
	none, err := shim.ListFeatures(ctx, db, &open)
	if err != nil || len(none) != 0 {
		t.Fatalf("ListFeatures(OPEN): %+v %v", none, err)
	}
}

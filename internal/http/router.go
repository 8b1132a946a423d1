// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, authentication, CORS, security headers, idempotency, and rate
// limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-wishlist-backend/docs"
	"github.com/tbourn/go-wishlist-backend/internal/auth"
	"github.com/tbourn/go-wishlist-backend/internal/cache"
	"github.com/tbourn/go-wishlist-backend/internal/config"
	"github.com/tbourn/go-wishlist-backend/internal/domain"
	"github.com/tbourn/go-wishlist-backend/internal/http/handlers"
	"github.com/tbourn/go-wishlist-backend/internal/http/middleware"
	"github.com/tbourn/go-wishlist-backend/internal/repo"
	"github.com/tbourn/go-wishlist-backend/internal/services"
)

// featureRepoShim adapts the repository free functions to the
// services.FeatureRepo interface expected by the FeatureService. This keeps
// services decoupled from the concrete repo package while reusing existing
// functions.
type featureRepoShim struct{}

// CreateFeature proxies repo.CreateFeature.
func (featureRepoShim) CreateFeature(ctx context.Context, db *gorm.DB, f *domain.FeatureRequest) error {
	return repo.CreateFeature(ctx, db, f)
}

// GetFeature proxies repo.GetFeature.
func (featureRepoShim) GetFeature(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.FeatureRequest, error) {
	return repo.GetFeature(ctx, db, id)
}

// SaveFeature proxies repo.SaveFeature.
func (featureRepoShim) SaveFeature(ctx context.Context, db *gorm.DB, f *domain.FeatureRequest) error {
	return repo.SaveFeature(ctx, db, f)
}

// UpdateFeatureStatus proxies repo.UpdateFeatureStatus.
func (featureRepoShim) UpdateFeatureStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, s domain.Status) error {
	return repo.UpdateFeatureStatus(ctx, db, id, s)
}

// ListFeatures proxies repo.ListFeatures.
func (featureRepoShim) ListFeatures(ctx context.Context, db *gorm.DB, s *domain.Status) ([]domain.FeatureRequest, error) {
	return repo.ListFeatures(ctx, db, s)
}

// Deps carries the long-lived collaborators built at startup.
//
// Fields:
//   - Users: the user directory used by login and by Authenticate.
//   - Sessions: signs and verifies session tokens.
//   - Counts: vote count cache; nil disables caching.
//   - IDs: snowflake node for feature and vote ids.
type Deps struct {
	Users    *auth.Directory
	Sessions *auth.Sessions
	Counts   cache.CountCache
	IDs      *snowflake.Node
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), authentication,
// idempotency and rate limiting, CORS and security headers, health and
// metrics endpoints, and then mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics and gzip
//  7. Authenticate: principal for idempotency scoping and rate limit keys
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per user/IP, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config, deps Deps) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction (session and voter cookies are
	// masked with the rest of the Cookie header)
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint, then response compression
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 7) Resolve the caller from the session cookie or bearer token
	r.Use(middleware.Authenticate(deps.Sessions, deps.Users))

	// 8) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, handlers.IdempotencyLookup(db)))

	// 9) Token-bucket rate limiter per user/IP; login and votes get their own per-IP budgets below
	r.Use(middleware.NewRateLimiter("global", cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP()).Handler())
	loginLimit := middleware.PerMinute("login", cfg.LoginPerMinute, middleware.KeyByIP()).Handler()
	voteLimit := middleware.PerMinute("vote", cfg.VotesPerMinute, middleware.KeyByIP()).Handler()

	// 10) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderIdempotencyKey}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", middleware.HeaderIdempotencyReplayed}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		// Cookies (session, voter-id) cross origins only with an explicit allowlist.
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers: session endpoints are never stored, per-voter views stay private
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:      cfg.Security.EnableHSTS,
		HSTSMaxAge:      cfg.Security.HSTSMaxAge,
		EnablePolicy:    true,
		NoStorePrefixes: []string{apiBase + "/auth"},
		PrivatePrefixes: []string{apiBase},
		HTMLPrefixes:    []string{"/swagger"},
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/cache
	featureSvc := services.NewFeatureService(db, featureRepoShim{}, deps.IDs, cfg.TicketBaseURL)
	voteSvc := services.NewVoteService(db, deps.IDs, deps.Counts, cfg.Auth.CookieSecure)
	h := handlers.New(featureSvc, voteSvc, deps.Users, deps.Sessions, handlers.Options{
		SecureCookie:   cfg.Auth.CookieSecure,
		IdempotencyTTL: cfg.IdempotencyTTL,
	})

	// Public API
	api := groupWithPrefix(r, apiBase)
	{
		// Session
		api.POST("/auth/login", loginLimit, h.Login)
		api.POST("/auth/logout", h.Logout)
		api.GET("/auth/me", h.Me)

		// Feature catalog
		api.GET("/features", h.ListFeatures)
		api.GET("/features/similar", h.SimilarFeatures)
		api.GET("/features/:id", h.GetFeature)
		api.POST("/features", middleware.RequireAuth(), h.CreateFeature)
		api.PUT("/features/:id", middleware.RequireAdmin(), h.UpdateFeature)
		api.PATCH("/features/:id/status", middleware.RequireAdmin(), h.UpdateFeatureStatus)

		// Vote ledger
		api.POST("/features/:id/votes", middleware.RequireAuth(), voteLimit, h.CastVote)
		api.GET("/votes/mine", h.MyVotes)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

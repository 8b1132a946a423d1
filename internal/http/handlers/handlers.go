// Package handlers exposes the wishlist REST API over Gin.
//
// Endpoints (relative to the API base path):
//   - POST   /auth/login, /auth/logout; GET /auth/me
//   - GET    /features, /features/similar, /features/{id}
//   - POST   /features                 (authenticated, Idempotency-Key aware)
//   - PUT    /features/{id}            (admin)
//   - PATCH  /features/{id}/status     (admin)
//   - POST   /features/{id}/votes      (authenticated)
//   - GET    /votes/mine
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-wishlist-backend/internal/auth"
	"github.com/tbourn/go-wishlist-backend/internal/domain"
	"github.com/tbourn/go-wishlist-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// FeatureService defines catalog operations consumed by HTTP handlers.
type FeatureService interface {
	Create(ctx context.Context, in services.CreateFeatureInput, createdBy string) (*domain.FeatureRequest, error)
	Update(ctx context.Context, id snowflake.ID, in services.UpdateFeatureInput) (*domain.FeatureRequest, error)
	UpdateStatus(ctx context.Context, id snowflake.ID, status string) (*domain.FeatureRequest, error)
	Get(ctx context.Context, id snowflake.ID) (*domain.FeatureRequest, error)
	ListAll(ctx context.Context, filter *domain.Status) ([]domain.FeatureRequest, error)
	Similar(ctx context.Context, text string, k int) ([]domain.FeatureRequest, error)
}

// VoteService defines vote ledger operations consumed by HTTP handlers.
type VoteService interface {
	CastVote(ctx context.Context, featureID snowflake.ID, voterID string) (services.VoteResult, error)
	CountVotes(ctx context.Context, featureID snowflake.ID) (int64, error)
	CountsFor(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]int64, error)
	VotedBy(ctx context.Context, voterID string) ([]snowflake.ID, error)
	ResolveVoterIdentity(jar services.CookieJar) (voterID string, issued bool)
}

// Authenticator verifies a username/password pair.
type Authenticator interface {
	Authenticate(username, password string) (auth.Principal, error)
}

// SessionIssuer signs session tokens.
type SessionIssuer interface {
	Issue(p auth.Principal) (token string, expiresAt time.Time, err error)
}

//
// Handler wiring
//

// Options carries transport settings that are not owned by a service.
type Options struct {
	// SecureCookie sets the Secure flag on the session cookie.
	SecureCookie bool
	// IdempotencyTTL is how long a stored Idempotency-Key replays its result.
	IdempotencyTTL time.Duration
}

// Handlers groups the HTTP endpoints. It depends on abstract service
// interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	featureSvc FeatureService
	voteSvc    VoteService
	users      Authenticator
	sessions   SessionIssuer
	opts       Options
}

// New constructs and returns a Handlers instance bound to the given services.
func New(featureSvc FeatureService, voteSvc VoteService, users Authenticator, sessions SessionIssuer, opts Options) *Handlers {
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 24 * time.Hour
	}
	return &Handlers{
		featureSvc: featureSvc,
		voteSvc:    voteSvc,
		users:      users,
		sessions:   sessions,
		opts:       opts,
	}
}

//
// DTOs
//

// FeatureView is a feature as shown to a particular voter.
type FeatureView struct {
	ID          snowflake.ID  `json:"id" swaggertype:"string" example:"1795112359427985408"`
	Title       string        `json:"title" example:"Dark Mode"`
	Description string        `json:"description" example:"Dunkles Farbschema für die gesamte Anwendung"`
	Excerpt     string        `json:"excerpt" example:"Dunkles Farbschema für die gesamte Anwendung"`
	Category    string        `json:"category" example:"UI/UX"`
	Status      domain.Status `json:"status" swaggertype:"string" enums:"OPEN,IN_PROGRESS,DONE,REJECTED" example:"OPEN"`
	TicketURL   string        `json:"ticket_url,omitempty" example:"https://jira.example.com/browse/PROJ-123"`
	CreatedBy   string        `json:"created_by,omitempty" example:"user"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	// Votes is the current vote count.
	Votes int64 `json:"votes" example:"3"`
	// Voted is true when this browser's voter id already voted.
	Voted bool `json:"voted" example:"false"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListFeaturesResponse wraps a page of ranked features.
type ListFeaturesResponse struct {
	Features   []FeatureView `json:"features"`
	Pagination Pagination    `json:"pagination"`
}

// SimilarFeaturesResponse lists possible duplicates of a draft title.
type SimilarFeaturesResponse struct {
	Features []FeatureView `json:"features"`
}

// CreateFeatureRequest is the JSON payload for filing a feature.
type CreateFeatureRequest struct {
	Title       string `json:"title" example:"Dark Mode"`
	Description string `json:"description" example:"Dunkles Farbschema für die gesamte Anwendung"`
	Category    string `json:"category" example:"UI/UX"`
}

// UpdateFeatureRequest is the JSON payload for a full admin edit.
type UpdateFeatureRequest struct {
	Title       string `json:"title" example:"Jira Integration"`
	Description string `json:"description" example:"Verknüpfung mit Jira-Tickets"`
	Category    string `json:"category" example:"Integration"`
	Status      string `json:"status" enums:"OPEN,IN_PROGRESS,DONE,REJECTED" example:"IN_PROGRESS"`
	// TicketURL is blank, an http(s) URL, or a ticket key such as PROJ-123.
	TicketURL string `json:"ticket_url" example:"PROJ-123"`
}

// UpdateStatusRequest is the JSON payload for an inline status change.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required" enums:"OPEN,IN_PROGRESS,DONE,REJECTED" example:"DONE"`
}

// VoteResponse reports the outcome of a vote.
type VoteResponse struct {
	FeatureID snowflake.ID `json:"feature_id" swaggertype:"string" example:"1795112359427985408"`
	// Result is "recorded" or "already_voted".
	Result string `json:"result" enums:"recorded,already_voted" example:"recorded"`
	// Notice is set when the vote was not counted again.
	Notice string `json:"notice,omitempty" example:"You have already voted for this feature."`
	Votes  int64  `json:"votes" example:"4"`
}

// MyVotesResponse lists the features this browser voted for.
type MyVotesResponse struct {
	FeatureIDs []snowflake.ID `json:"feature_ids" swaggertype:"array,string"`
}

// LoginRequest is the JSON payload for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required" example:"admin"`
	Password string `json:"password" binding:"required" example:"admin"`
}

// LoginResponse returns the session token also set as the session cookie.
type LoginResponse struct {
	Username  string      `json:"username" example:"admin"`
	Roles     []auth.Role `json:"roles" swaggertype:"array,string" example:"ADMIN"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// MeResponse describes the caller.
type MeResponse struct {
	Username        string      `json:"username" example:"user"`
	Roles           []auth.Role `json:"roles" swaggertype:"array,string" example:"USER"`
	IsAuthenticated bool        `json:"is_authenticated" example:"true"`
	IsAdmin         bool        `json:"is_admin" example:"false"`
	VoterID         string      `json:"voter_id" example:"3f6c1d1e-0b8e-4a59-9d1c-7f3d2b6f4a10"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = queryInt(c, "page", defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = queryInt(c, "page_size", defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// queryInt returns query parameter key as an int, or def when it is absent
// or not a number.
func queryInt(c *gin.Context, key string, def int) int {
	if n, err := strconv.Atoi(c.Query(key)); err == nil {
		return n
	}
	return def
}

// featureID parses the :id path parameter.
func featureID(c *gin.Context) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func toView(f domain.FeatureRequest, votes int64, voted bool) FeatureView {
	return FeatureView{
		ID:          f.ID,
		Title:       f.Title,
		Description: f.Description,
		Excerpt:     services.Excerpt(f.Description, services.ExcerptLen),
		Category:    f.Category,
		Status:      f.Status,
		TicketURL:   f.TicketURL,
		CreatedBy:   f.CreatedBy,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
		Votes:       votes,
		Voted:       voted,
	}
}

func idSet(ids []snowflake.ID) map[snowflake.ID]bool {
	out := make(map[snowflake.ID]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

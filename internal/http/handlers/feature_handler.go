// Feature HTTP handlers.
//
// This file exposes the feature catalog:
//   - GET    /features               (ranked list, filters, ETag support)
//   - GET    /features/similar       (duplicate hints for a draft title)
//   - GET    /features/{id}
//   - POST   /features               (create, idempotent with Idempotency-Key)
//   - PUT    /features/{id}          (admin edit)
//   - PATCH  /features/{id}/status   (admin status change)
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// create exists for the same user and route, the stored feature is returned
// with its original status and `Idempotency-Replayed: true`.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-wishlist-backend/internal/domain"
	"github.com/tbourn/go-wishlist-backend/internal/http/middleware"
	"github.com/tbourn/go-wishlist-backend/internal/repo"
	"github.com/tbourn/go-wishlist-backend/internal/services"
)

// similarLimit caps /features/similar results.
const similarLimit = 5

// ListFeatures godoc
// @ID          listFeatures
// @Summary     List feature requests ranked by votes
// @Description Returns features ordered by vote count (highest first). Each item carries
// @Description its vote count and whether this browser already voted. Supports weak ETag
// @Description via If-None-Match and may return 304. Issues the voter-id cookie when missing.
// @Tags        Features
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"features:3:1700000000:5:1700000100:1a2b3c4d\")
// @Param       status         query   string  false "Only features in this status"  Enums(OPEN, IN_PROGRESS, DONE, REJECTED)
// @Param       q              query   string  false "Free-text filter on title, description and category"
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListFeaturesResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Invalid status"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /features [get]
func (h *Handlers) ListFeatures(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	var filter *domain.Status
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		st, valid := domain.ParseStatus(raw)
		if !valid {
			failService(c, services.ErrInvalidStatus)
			return
		}
		filter = &st
	}

	voterID, _ := h.voteSvc.ResolveVoterIdentity(c)

	// ETag pre-check (best effort).
	if db := h.catalogDB(); db != nil {
		if stats, err := repo.GetCatalogStats(ctx, db); err == nil {
			etag := catalogETag(stats, voterID, c.Request.URL.RawQuery)
			c.Header("ETag", etag)
			if etagMatches(c.GetHeader("If-None-Match"), etag) {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, err := h.featureSvc.ListAll(ctx, filter)
	if err != nil {
		failService(c, err)
		return
	}
	items = services.FilterByQuery(items, c.Query("q"))

	counts, err := h.voteSvc.CountsFor(ctx, featureIDs(items))
	if err != nil {
		failService(c, err)
		return
	}
	voted, err := h.voteSvc.VotedBy(ctx, voterID)
	if err != nil {
		failService(c, err)
		return
	}
	votedSet := idSet(voted)

	ranked := services.RankByVotesDescending(items, counts)
	total := int64(len(ranked))
	start := (page - 1) * pageSize
	if start > len(ranked) {
		start = len(ranked)
	}
	end := start + pageSize
	if end > len(ranked) {
		end = len(ranked)
	}

	views := make([]FeatureView, 0, end-start)
	for _, rf := range ranked[start:end] {
		views = append(views, toView(rf.Feature, rf.Votes, votedSet[rf.Feature.ID]))
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListFeaturesResponse{
		Features: views,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// SimilarFeatures godoc
// @ID          similarFeatures
// @Summary     Find possible duplicates
// @Description Returns up to five existing features whose wording overlaps the given title.
// @Tags        Features
// @Produce     json
//
// @Param       title  query  string  true  "Draft title"  example(dark theme)
//
// @Success     200  {object} handlers.SimilarFeaturesResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /features/similar [get]
func (h *Handlers) SimilarFeatures(c *gin.Context) {
	ctx := c.Request.Context()
	items, err := h.featureSvc.Similar(ctx, c.Query("title"), similarLimit)
	if err != nil {
		failService(c, err)
		return
	}
	counts, err := h.voteSvc.CountsFor(ctx, featureIDs(items))
	if err != nil {
		failService(c, err)
		return
	}
	views := make([]FeatureView, 0, len(items))
	for _, f := range items {
		views = append(views, toView(f, counts[f.ID], false))
	}
	ok(c, http.StatusOK, SimilarFeaturesResponse{Features: views})
}

// GetFeature godoc
// @ID          getFeature
// @Summary     Get one feature request
// @Tags        Features
// @Produce     json
//
// @Param       id  path  string  true  "Feature ID"  example(1795112359427985408)
//
// @Success     200  {object} handlers.FeatureView
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Feature not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /features/{id} [get]
func (h *Handlers) GetFeature(c *gin.Context) {
	id, valid := featureID(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "feature id must be numeric")
		return
	}
	f, err := h.featureSvc.Get(c.Request.Context(), id)
	if err != nil {
		failService(c, err)
		return
	}
	view, err := h.viewFor(c, f)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, view)
}

// CreateFeature godoc
// @ID          createFeature
// @Summary     File a feature request
// @Description Creates an OPEN feature attributed to the caller.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Features
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.CreateFeatureRequest  true  "Feature payload"
//
// @Success     201  {object}  handlers.FeatureView
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     401  {object}  handlers.ErrorResponse  "Authentication required"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /features [post]
func (h *Handlers) CreateFeature(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateFeatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	user := middleware.PrincipalFrom(c).Username
	scope := middleware.IdempotencyScope(c)

	// A retry of a completed create answers with the feature it produced.
	// If that feature is gone, the request is treated as new.
	if replay, found := middleware.ReplayFrom(c); found {
		if prev, err := h.featureSvc.Get(ctx, replay.ResourceID); err == nil {
			if view, err := h.viewFor(c, prev); err == nil {
				c.Header(middleware.HeaderIdempotencyReplayed, "true")
				middleware.RecordReplay(c)
				ok(c, replay.Status, view)
				return
			}
		}
	}

	f, err := h.featureSvc.Create(ctx, services.CreateFeatureInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
	}, user)
	if err != nil {
		failService(c, err)
		return
	}

	// Best effort: a lost record only means a retry creates a second feature.
	if idemKey, has := middleware.GetIdempotencyKey(c); has {
		if db := h.catalogDB(); db != nil {
			outcome := repo.Outcome{UserID: user, Scope: scope, Key: idemKey, ResourceID: f.ID, Status: http.StatusCreated}
			if _, err := repo.CreateIdempotency(ctx, db, outcome, time.Now().UTC(), h.opts.IdempotencyTTL); err != nil {
				middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency record not stored")
			}
		}
	}

	middleware.LoggerFrom(c).Info().Str("feature_id", f.ID.String()).Msg("feature created")
	ok(c, http.StatusCreated, toView(*f, 0, false))
}

// UpdateFeature godoc
// @ID          updateFeature
// @Summary     Edit a feature request
// @Description Replaces title, description, category, status and ticket link. Ticket keys
// @Description such as PROJ-123 are expanded against the configured ticket base URL.
// @Tags        Features
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  string                         true  "Feature ID"
// @Param       body  body  handlers.UpdateFeatureRequest  true  "Full feature payload"
//
// @Success     200  {object} handlers.FeatureView
// @Failure     400  {object} handlers.ErrorResponse "Validation failed"
// @Failure     401  {object} handlers.ErrorResponse "Authentication required"
// @Failure     403  {object} handlers.ErrorResponse "Admin role required"
// @Failure     404  {object} handlers.ErrorResponse "Feature not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /features/{id} [put]
func (h *Handlers) UpdateFeature(c *gin.Context) {
	id, valid := featureID(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "feature id must be numeric")
		return
	}
	var req UpdateFeatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	f, err := h.featureSvc.Update(c.Request.Context(), id, services.UpdateFeatureInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Status:      req.Status,
		TicketURL:   req.TicketURL,
	})
	if err != nil {
		failService(c, err)
		return
	}
	view, err := h.viewFor(c, f)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, view)
}

// UpdateFeatureStatus godoc
// @ID          updateFeatureStatus
// @Summary     Change a feature's status
// @Description Any status may move to any other status.
// @Tags        Features
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  string                        true  "Feature ID"
// @Param       body  body  handlers.UpdateStatusRequest  true  "New status"
//
// @Success     200  {object} handlers.FeatureView
// @Failure     400  {object} handlers.ErrorResponse "Validation failed"
// @Failure     401  {object} handlers.ErrorResponse "Authentication required"
// @Failure     403  {object} handlers.ErrorResponse "Admin role required"
// @Failure     404  {object} handlers.ErrorResponse "Feature not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /features/{id}/status [patch]
func (h *Handlers) UpdateFeatureStatus(c *gin.Context) {
	id, valid := featureID(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "feature id must be numeric")
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failService(c, services.ErrInvalidStatus)
		return
	}

	f, err := h.featureSvc.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		failService(c, err)
		return
	}
	view, err := h.viewFor(c, f)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, view)
}

// viewFor decorates f with its vote count and the caller's voted flag.
func (h *Handlers) viewFor(c *gin.Context, f *domain.FeatureRequest) (FeatureView, error) {
	ctx := c.Request.Context()
	votes, err := h.voteSvc.CountVotes(ctx, f.ID)
	if err != nil {
		return FeatureView{}, err
	}
	voterID, _ := h.voteSvc.ResolveVoterIdentity(c)
	voted, err := h.voteSvc.VotedBy(ctx, voterID)
	if err != nil {
		return FeatureView{}, err
	}
	return toView(*f, votes, idSet(voted)[f.ID]), nil
}

// IdempotencyLookup resolves stored create outcomes from db for
// middleware.IdempotencyValidator.
func IdempotencyLookup(db *gorm.DB) middleware.IdempotencyLookup {
	return func(ctx context.Context, userID, scope, key string, now time.Time) (*middleware.Replay, error) {
		rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &middleware.Replay{ResourceID: rec.ResourceID, Status: rec.Status}, nil
	}
}

// catalogDB reaches through to the concrete service's database for the ETag
// and idempotency paths. Other implementations skip both.
func (h *Handlers) catalogDB() *gorm.DB {
	if svc, ok := h.featureSvc.(*services.FeatureService); ok {
		return svc.DB
	}
	return nil
}

// catalogETag changes whenever a feature is created or edited, a vote is
// cast, or the voter or query differs.
func catalogETag(s repo.CatalogStats, voterID, rawQuery string) string {
	var featTS, voteTS int64
	if s.LastUpdatedAt != nil {
		featTS = s.LastUpdatedAt.UnixNano()
	}
	if s.LastVotedAt != nil {
		voteTS = s.LastVotedAt.UnixNano()
	}
	hsh := fnv.New32a()
	_, _ = hsh.Write([]byte(voterID))
	_, _ = hsh.Write([]byte{0})
	_, _ = hsh.Write([]byte(rawQuery))
	return fmt.Sprintf(`W/"features:%d:%d:%d:%d:%08x"`, s.Features, featTS, s.Votes, voteTS, hsh.Sum32())
}

// etagMatches applies the weak comparison of If-None-Match: any listed tag
// equal to etag once W/ is stripped, or "*".
func etagMatches(header, etag string) bool {
	want := strings.TrimPrefix(etag, "W/")
	for _, tag := range strings.Split(header, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "*" || (tag != "" && strings.TrimPrefix(tag, "W/") == want) {
			return true
		}
	}
	return false
}

func featureIDs(features []domain.FeatureRequest) []snowflake.ID {
	out := make([]snowflake.ID, len(features))
	for i, f := range features {
		out[i] = f.ID
	}
	return out
}

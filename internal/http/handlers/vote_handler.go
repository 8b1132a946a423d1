// Vote HTTP handlers.
//
// Votes are keyed by the browser's voter-id cookie, not by the logged-in
// user: casting requires a session, but two browsers of the same user hold
// two voter ids. A repeated vote is not an error; it answers 200 with the
// "already_voted" result and a notice.
package handlers

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-wishlist-backend/internal/http/middleware"
	"github.com/tbourn/go-wishlist-backend/internal/services"
)

// CastVote godoc
// @ID          castVote
// @Summary     Vote for a feature
// @Description Records one vote per browser (voter-id cookie) and feature. The first vote
// @Description answers 201 "recorded"; any later vote answers 200 "already_voted" with a notice.
// @Tags        Votes
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Feature ID"  example(1795112359427985408)
//
// @Success     201  {object}  handlers.VoteResponse  "Vote recorded"
// @Success     200  {object}  handlers.VoteResponse  "Already voted"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse "Authentication required"
// @Failure     404  {object}  handlers.ErrorResponse "Feature not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /features/{id}/votes [post]
func (h *Handlers) CastVote(c *gin.Context) {
	ctx := c.Request.Context()
	id, valid := featureID(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "feature id must be numeric")
		return
	}

	voterID, _ := h.voteSvc.ResolveVoterIdentity(c)
	result, err := h.voteSvc.CastVote(ctx, id, voterID)
	if err != nil {
		failService(c, err)
		return
	}
	votes, err := h.voteSvc.CountVotes(ctx, id)
	if err != nil {
		failService(c, err)
		return
	}

	middleware.LoggerFrom(c).Info().
		Str("feature_id", id.String()).
		Str("result", result.String()).
		Msg("vote")

	status := http.StatusOK
	if result == services.VoteRecorded {
		status = http.StatusCreated
	}
	ok(c, status, VoteResponse{
		FeatureID: id,
		Result:    result.String(),
		Notice:    result.Notice(),
		Votes:     votes,
	})
}

// MyVotes godoc
// @ID          myVotes
// @Summary     Features this browser voted for
// @Description Lists feature ids voted by the caller's voter-id cookie. Issues the cookie when missing.
// @Tags        Votes
// @Produce     json
//
// @Success     200  {object}  handlers.MyVotesResponse
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /votes/mine [get]
func (h *Handlers) MyVotes(c *gin.Context) {
	voterID, _ := h.voteSvc.ResolveVoterIdentity(c)
	ids, err := h.voteSvc.VotedBy(c.Request.Context(), voterID)
	if err != nil {
		failService(c, err)
		return
	}
	if ids == nil {
		ids = []snowflake.ID{}
	}
	ok(c, http.StatusOK, MyVotesResponse{FeatureIDs: ids})
}

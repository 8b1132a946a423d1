// Package services – VoteService
//
// This file implements the vote ledger: at most one vote per (feature, voter),
// vote counts, and the cookie-backed voter identity. The one-vote rule is held
// by the ux_votes_feature_voter unique index, so two concurrent submissions of
// the same pair cannot both insert; the loser sees VoteAlreadyCast.
package services

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-wishlist-backend/internal/cache"
	"github.com/tbourn/go-wishlist-backend/internal/domain"
	"github.com/tbourn/go-wishlist-backend/internal/observability"
	"github.com/tbourn/go-wishlist-backend/internal/repo"
)

// VoteResult is the normal outcome of CastVote.
type VoteResult int

const (
	// VoteRecorded means a new vote row was stored.
	VoteRecorded VoteResult = iota + 1
	// VoteAlreadyCast means the voter already held a vote; nothing changed.
	VoteAlreadyCast
)

// AlreadyVotedNotice is shown to a voter whose vote was not counted twice.
const AlreadyVotedNotice = "You have already voted for this feature."

func (r VoteResult) String() string {
	switch r {
	case VoteRecorded:
		return "recorded"
	case VoteAlreadyCast:
		return "already_voted"
	default:
		return "unknown"
	}
}

// Notice returns the user-facing notice for r, if any.
func (r VoteResult) Notice() string {
	if r == VoteAlreadyCast {
		return AlreadyVotedNotice
	}
	return ""
}

// Voter identity cookie.
const (
	VoterCookieName   = "voter-id"
	VoterCookiePath   = "/"
	VoterCookieMaxAge = 365 * 24 * 60 * 60 // one year, in seconds
)

// CookieJar is the slice of a request/response pair that voter identity
// needs. *gin.Context satisfies it.
type CookieJar interface {
	Cookie(name string) (string, error)
	SetSameSite(samesite http.SameSite)
	SetCookie(name, value string, maxAge int, path, domain string, secure, httpOnly bool)
}

var voterIDRE = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidVoterID reports whether id looks like a token this service issued.
func ValidVoterID(id string) bool { return voterIDRE.MatchString(id) }

// VoteService records votes and answers count queries.
type VoteService struct {
	// DB is the database handle used for all vote operations.
	DB *gorm.DB
	// IDs generates vote ids.
	IDs *snowflake.Node
	// Counts caches per-feature counts; invalidated on every recorded vote.
	// Nil disables caching.
	Counts cache.CountCache
	// SecureCookie sets the Secure flag on the voter cookie.
	SecureCookie bool
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// NewVoteService constructs a VoteService. A nil counts cache disables caching.
func NewVoteService(db *gorm.DB, ids *snowflake.Node, counts cache.CountCache, secureCookie bool) *VoteService {
	if counts == nil {
		counts = cache.Nop{}
	}
	return &VoteService{DB: db, IDs: ids, Counts: counts, SecureCookie: secureCookie, Now: time.Now}
}

// CastVote records voterID's vote for featureID.
//
// Semantics:
//   - voterID must be non-blank; otherwise ErrInvalidVoter.
//   - featureID must exist; otherwise ErrFeatureNotFound.
//   - A second vote by the same voter returns VoteAlreadyCast and no error.
//
// The lookup and insert run in one transaction, and the insert uses
// ON CONFLICT DO NOTHING against the unique index, so a concurrent duplicate
// that slips past the lookup still resolves to VoteAlreadyCast.
func (s *VoteService) CastVote(ctx context.Context, featureID snowflake.ID, voterID string) (VoteResult, error) {
	ctx, span := observability.StartSpan(ctx, "VoteService.CastVote", attribute.String("feature.id", featureID.String()))
	defer span.End()

	voterID = strings.TrimSpace(voterID)
	if voterID == "" {
		return 0, ErrInvalidVoter
	}

	var result VoteResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.GetFeature(ctx, tx, featureID); err != nil {
			if isNotFound(err) {
				return ErrFeatureNotFound
			}
			return err
		}

		if _, err := repo.FindVote(ctx, tx, featureID, voterID); err == nil {
			result = VoteAlreadyCast
			return nil
		} else if !isNotFound(err) {
			return err
		}

		inserted, err := repo.InsertVote(ctx, tx, &domain.Vote{
			ID:        s.IDs.Generate(),
			FeatureID: featureID,
			VoterID:   voterID,
			VotedAt:   s.now(),
		})
		if err != nil {
			if repo.IsUniqueViolation(err) {
				result = VoteAlreadyCast
				return nil
			}
			return err
		}
		if inserted {
			result = VoteRecorded
		} else {
			result = VoteAlreadyCast
		}
		return nil
	})
	if err != nil {
		observability.RecordError(span, err)
		return 0, err
	}

	if result == VoteRecorded {
		s.counts().Invalidate(ctx, featureID)
	}
	span.SetAttributes(attribute.String("vote.result", result.String()))
	observability.ObserveVote(result.String())
	return result, nil
}

// CountVotes returns the number of votes for featureID. Unknown features
// count zero. Pure read.
//
// On a miss the cache generation is taken before counting, so a vote that
// commits and invalidates while the count is in flight keeps the stale
// number out of the cache.
func (s *VoteService) CountVotes(ctx context.Context, featureID snowflake.ID) (int64, error) {
	counts := s.counts()
	if n, ok := counts.Get(ctx, featureID); ok {
		observability.ObserveCacheLookup(true)
		return n, nil
	}
	observability.ObserveCacheLookup(false)
	gen := counts.Generation(ctx, featureID)
	n, err := repo.CountVotes(ctx, s.DB, featureID)
	if err != nil {
		return 0, err
	}
	counts.Set(ctx, featureID, n, gen)
	return n, nil
}

// CountsFor returns the vote count of every id. Cache misses are counted in
// a single grouped query; ids without votes map to 0.
func (s *VoteService) CountsFor(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]int64, error) {
	counts := s.counts()
	out := make(map[snowflake.ID]int64, len(ids))
	misses := make([]snowflake.ID, 0, len(ids))
	gens := make(map[snowflake.ID]uint64)
	for _, id := range ids {
		if n, ok := counts.Get(ctx, id); ok {
			out[id] = n
			continue
		}
		misses = append(misses, id)
		gens[id] = counts.Generation(ctx, id)
	}
	if len(ids) > 0 {
		observability.ObserveCacheLookup(len(misses) == 0)
	}
	if len(misses) == 0 {
		return out, nil
	}

	counted, err := repo.CountVotesByFeature(ctx, s.DB, misses)
	if err != nil {
		return nil, err
	}
	for _, id := range misses {
		n := counted[id]
		out[id] = n
		counts.Set(ctx, id, n, gens[id])
	}
	return out, nil
}

// VotedBy returns the features voterID has voted for. A blank voter has
// voted for nothing.
func (s *VoteService) VotedBy(ctx context.Context, voterID string) ([]snowflake.ID, error) {
	voterID = strings.TrimSpace(voterID)
	if voterID == "" {
		return []snowflake.ID{}, nil
	}
	return repo.ListVotedFeatureIDs(ctx, s.DB, voterID)
}

// ResolveVoterIdentity returns the caller's voter id. A well-formed voter-id
// cookie is reused; otherwise a fresh random token is issued on jar (path /,
// one year, HttpOnly, SameSite=Lax) and issued is true.
func (s *VoteService) ResolveVoterIdentity(jar CookieJar) (voterID string, issued bool) {
	if v, err := jar.Cookie(VoterCookieName); err == nil && ValidVoterID(v) {
		return v, false
	}
	voterID = uuid.NewString()
	jar.SetSameSite(http.SameSiteLaxMode)
	jar.SetCookie(VoterCookieName, voterID, VoterCookieMaxAge, VoterCookiePath, "", s.SecureCookie, true)
	return voterID, true
}

func (s *VoteService) counts() cache.CountCache {
	if s.Counts == nil {
		return cache.Nop{}
	}
	return s.Counts
}

func (s *VoteService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

package services

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"

	"github.com/tbourn/go-wishlist-backend/internal/domain"
)

// RankedFeature pairs a feature with its current vote count.
type RankedFeature struct {
	Feature domain.FeatureRequest
	Votes   int64
}

// RankByVotesDescending orders features by vote count, highest first. The
// sort is stable: equal counts keep the order of features, which ListAll
// returns in creation order. Features missing from counts have zero votes.
// The rank is derived on every call and never stored.
func RankByVotesDescending(features []domain.FeatureRequest, counts map[snowflake.ID]int64) []RankedFeature {
	out := make([]RankedFeature, len(features))
	for i, f := range features {
		out[i] = RankedFeature{Feature: f, Votes: counts[f.ID]}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Votes > out[b].Votes
	})
	return out
}

// ExcerptLen is the description length shown in list views.
const ExcerptLen = 120

// Excerpt shortens s to at most n runes, ending in "…" when cut.
func Excerpt(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

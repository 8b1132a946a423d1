package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	// votesTotal counts vote attempts by outcome ("recorded", "already_voted").
	votesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wishlist_votes_total",
			Help: "Vote attempts by outcome.",
		},
		[]string{"outcome"},
	)

	featuresCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wishlist_features_created_total",
			Help: "Feature requests created.",
		},
	)

	// statusChanges counts admin status edits by target status.
	statusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wishlist_feature_status_changes_total",
			Help: "Feature status changes by new status.",
		},
		[]string{"status"},
	)

	voteCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wishlist_vote_cache_lookups_total",
			Help: "Vote count cache lookups by result (hit, miss).",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(votesTotal, featuresCreated, statusChanges, voteCacheLookups)
}

// ObserveVote records one CastVote outcome.
func ObserveVote(outcome string) { votesTotal.WithLabelValues(outcome).Inc() }

// ObserveFeatureCreated records one created feature.
func ObserveFeatureCreated() { featuresCreated.Inc() }

// ObserveStatusChange records a status edit.
func ObserveStatusChange(status string) { statusChanges.WithLabelValues(status).Inc() }

// ObserveCacheLookup records a vote count cache hit or miss.
func ObserveCacheLookup(hit bool) {
	if hit {
		voteCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	voteCacheLookups.WithLabelValues("miss").Inc()
}

package repo

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-wishlist-backend/internal/domain"
)

// CatalogStats summarizes everything a feature listing depends on: any
// create, edit or vote changes at least one field. The HTTP layer hashes it
// into the list ETag.
type CatalogStats struct {
	Features      int64
	LastUpdatedAt *time.Time
	Votes         int64
	LastVotedAt   *time.Time
}

// GetCatalogStats counts features and votes and finds the latest feature
// edit and the latest vote. The Last* fields are nil on empty tables.
func GetCatalogStats(ctx context.Context, db *gorm.DB) (CatalogStats, error) {
	var (
		s   CatalogStats
		err error
	)
	if s.Features, s.LastUpdatedAt, err = tableStats(ctx, db, &domain.FeatureRequest{}, "updated_at"); err != nil {
		return CatalogStats{}, fmt.Errorf("features stats: %w", err)
	}
	if s.Votes, s.LastVotedAt, err = tableStats(ctx, db, &domain.Vote{}, "voted_at"); err != nil {
		return CatalogStats{}, fmt.Errorf("votes stats: %w", err)
	}
	return s, nil
}

// tableStats returns the row count of model's table and its greatest value
// of the time column col. The latest value is read with ORDER BY rather
// than MAX(), which SQLite hands back as TEXT.
func tableStats(ctx context.Context, db *gorm.DB, model any, col string) (int64, *time.Time, error) {
	var n int64
	if err := db.WithContext(ctx).Model(model).Count(&n).Error; err != nil {
		return 0, nil, err
	}
	if n == 0 {
		return 0, nil, nil
	}
	var latest []time.Time
	if err := db.WithContext(ctx).Model(model).Order(col+" DESC").Limit(1).Pluck(col, &latest).Error; err != nil {
		return 0, nil, err
	}
	if len(latest) == 0 {
		return n, nil, nil
	}
	return n, &latest[0], nil
}

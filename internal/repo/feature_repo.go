// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// FeatureRequest model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a feature is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Usage:
//
//	f, err := repo.GetFeature(ctx, db, id)
//	if errors.Is(err, repo.ErrNotFound) {
//	    // handle missing
//	} else if err != nil {
//	    // handle DB failure
//	}
package repo

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/tbourn/go-wishlist-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// editableFeatureColumns are the columns an edit may touch. created_at and
// id are immutable after insert.
var editableFeatureColumns = []string{"title", "description", "category", "status", "ticket_url", "updated_at"}

// CreateFeature inserts f as-is. The caller assigns ID and CreatedAt.
func CreateFeature(ctx context.Context, db *gorm.DB, f *domain.FeatureRequest) error {
	return db.WithContext(ctx).Create(f).Error
}

// GetFeature fetches a single feature by ID, or ErrNotFound if missing.
func GetFeature(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.FeatureRequest, error) {
	var f domain.FeatureRequest
	if err := db.WithContext(ctx).First(&f, "id = ?", int64(id)).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

// SaveFeature writes every editable column of f, including zero values
// (an empty ticket URL clears the link). Returns ErrNotFound when no row
// matches f.ID.
func SaveFeature(ctx context.Context, db *gorm.DB, f *domain.FeatureRequest) error {
	res := db.WithContext(ctx).
		Model(&domain.FeatureRequest{}).
		Where("id = ?", int64(f.ID)).
		Select(editableFeatureColumns).
		Updates(f)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateFeatureStatus changes only the status column. Returns ErrNotFound
// when the feature does not exist.
func UpdateFeatureStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.Status) error {
	res := db.WithContext(ctx).
		Model(&domain.FeatureRequest{}).
		Where("id = ?", int64(id)).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFeatures returns features in creation order (created_at, then id so
// rows created in the same instant keep insertion order). A nil status
// returns every feature.
func ListFeatures(ctx context.Context, db *gorm.DB, status *domain.Status) ([]domain.FeatureRequest, error) {
	q := db.WithContext(ctx).Model(&domain.FeatureRequest{})
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var out []domain.FeatureRequest
	err := q.Order("created_at asc").Order("id asc").Find(&out).Error
	return out, err
}

// CountFeatures returns the number of stored features.
func CountFeatures(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.FeatureRequest{}).Count(&n).Error
	return n, err
}

// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Vote model.
// Votes are append-only; nothing here updates or deletes a vote row.
package repo

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-wishlist-backend/internal/domain"
)

// FindVote returns the vote held by voterID on featureID, or ErrNotFound.
func FindVote(ctx context.Context, db *gorm.DB, featureID snowflake.ID, voterID string) (*domain.Vote, error) {
	var v domain.Vote
	err := db.WithContext(ctx).
		Where("feature_id = ? AND voter_id = ?", int64(featureID), voterID).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// InsertVote inserts v unless the (feature_id, voter_id) pair already
// exists. inserted is false when the unique index swallowed the row.
func InsertVote(ctx context.Context, db *gorm.DB, v *domain.Vote) (inserted bool, err error) {
	res := db.WithContext(ctx).
		Omit("Feature").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "feature_id"}, {Name: "voter_id"}},
			DoNothing: true,
		}).
		Create(v)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CountVotes returns the number of votes recorded for featureID.
func CountVotes(ctx context.Context, db *gorm.DB, featureID snowflake.ID) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Vote{}).
		Where("feature_id = ?", int64(featureID)).
		Count(&n).Error
	return n, err
}

// CountVotesByFeature counts votes for all ids in one grouped query.
// Features without votes are absent from the map.
func CountVotesByFeature(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]int64, error) {
	out := make(map[snowflake.ID]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}
	var rows []struct {
		FeatureID int64
		Total     int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Vote{}).
		Select("feature_id, COUNT(*) AS total").
		Where("feature_id IN ?", raw).
		Group("feature_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[snowflake.ID(r.FeatureID)] = r.Total
	}
	return out, nil
}

// ListVotedFeatureIDs returns the features voterID has voted for, oldest
// vote first.
func ListVotedFeatureIDs(ctx context.Context, db *gorm.DB, voterID string) ([]snowflake.ID, error) {
	var raw []int64
	err := db.WithContext(ctx).
		Model(&domain.Vote{}).
		Where("voter_id = ?", voterID).
		Order("voted_at asc").
		Order("id asc").
		Pluck("feature_id", &raw).Error
	if err != nil {
		return nil, err
	}
	out := make([]snowflake.ID, len(raw))
	for i, id := range raw {
		out[i] = snowflake.ID(id)
	}
	return out, nil
}

package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-wishlist-backend/internal/domain"
	"github.com/tbourn/go-wishlist-backend/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:wishsvc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newNode(t *testing.T) *snowflake.Node {
	t.Helper()
	n, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return n
}

// dbFeatureRepo adapts the repo package functions to FeatureRepo.
type dbFeatureRepo struct{}

func (dbFeatureRepo) CreateFeature(ctx context.Context, db *gorm.DB, f *domain.FeatureRequest) error {
	return repo.CreateFeature(ctx, db, f)
}
func (dbFeatureRepo) GetFeature(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.FeatureRequest, error) {
	return repo.GetFeature(ctx, db, id)
}
func (dbFeatureRepo) SaveFeature(ctx context.Context, db *gorm.DB, f *domain.FeatureRequest) error {
	return repo.SaveFeature(ctx, db, f)
}
func (dbFeatureRepo) UpdateFeatureStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, s domain.Status) error {
	return repo.UpdateFeatureStatus(ctx, db, id, s)
}
func (dbFeatureRepo) ListFeatures(ctx context.Context, db *gorm.DB, s *domain.Status) ([]domain.FeatureRequest, error) {
	return repo.ListFeatures(ctx, db, s)
}

// tickingClock returns a clock that advances one second per call, so
// creation order is unambiguous.
func tickingClock() func() time.Time {
	t := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newFeatureSvc(t *testing.T, db *gorm.DB) *FeatureService {
	t.Helper()
	s := NewFeatureService(db, dbFeatureRepo{}, newNode(t), "")
	s.Now = tickingClock()
	return s
}

func mustCreate(t *testing.T, s *FeatureService, title string) *domain.FeatureRequest {
	t.Helper()
	f, err := s.Create(context.Background(), CreateFeatureInput{Title: title}, "tester")
	if err != nil {
		t.Fatalf("create %q: %v", title, err)
	}
	return f
}

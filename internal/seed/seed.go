// Package seed loads the demo catalog used for local runs and demos.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-wishlist-backend/internal/domain"
	"github.com/tbourn/go-wishlist-backend/internal/repo"
)

// demoFeature is one entry of the demo catalog. Age is subtracted from the
// seeding time to produce CreatedAt.
type demoFeature struct {
	Title       string
	Description string
	Category    string
	Status      domain.Status
	TicketURL   string
	Age         time.Duration
}

var demoFeatures = []demoFeature{
	{
		Title:       "Dark Mode",
		Description: "Ein Dark Mode für die gesamte Anwendung, um die Augen zu schonen.",
		Category:    "UI/UX",
		Status:      domain.StatusOpen,
		Age:         2 * 24 * time.Hour,
	},
	{
		Title:       "Export als PDF",
		Description: "Export von Featurelisten als PDF-Dokument.",
		Category:    "Funktion",
		Status:      domain.StatusInProgress,
		Age:         5 * 24 * time.Hour,
	},
	{
		Title:       "Jira Integration",
		Description: "Automatische Verknüpfung von Features mit Jira-Tickets.",
		Category:    "Integration",
		Status:      domain.StatusOpen,
		TicketURL:   "https://jira.example.com/browse/PROJ-123",
		Age:         24 * time.Hour,
	},
}

// DemoData inserts the demo catalog when the features table is empty and
// reports how many rows were written. A non-empty catalog is left alone.
func DemoData(ctx context.Context, db *gorm.DB, ids *snowflake.Node, now time.Time) (int, error) {
	if db == nil {
		return 0, errors.New("seed database handle is required")
	}
	if ids == nil {
		return 0, errors.New("seed id generator is required")
	}

	inserted := 0
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := repo.CountFeatures(ctx, tx)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Info().Int64("features", n).Msg("demo data skipped: catalog not empty")
			return nil
		}
		for _, d := range demoFeatures {
			f := &domain.FeatureRequest{
				ID:          ids.Generate(),
				Title:       d.Title,
				Description: d.Description,
				Category:    d.Category,
				Status:      d.Status,
				TicketURL:   d.TicketURL,
				CreatedBy:   "seed",
				CreatedAt:   now.Add(-d.Age).UTC(),
			}
			if err := repo.CreateFeature(ctx, tx, f); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if inserted > 0 {
		log.Info().Int("features", inserted).Msg("demo data loaded")
	}
	return inserted, nil
}

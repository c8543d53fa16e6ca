package database

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"greenorbit/internal/config"
	"greenorbit/internal/models"
)

// ErrNotFound is returned by lookups that match no row
var ErrNotFound = eris.New("database: not found")

// Store persists farms, readings, alerts and farmer feedback
type Store interface {
	UpsertFarm(ctx context.Context, farm models.Farm) error
	ListFarms(ctx context.Context) ([]models.Farm, error)
	GetFarm(ctx context.Context, id string) (models.Farm, error)

	SaveReading(ctx context.Context, r models.Reading) (models.Reading, error)
	LatestReading(ctx context.Context, farmID string) (models.Reading, error)
	// ListReadings returns the farm's readings taken at or after since, oldest first
	ListReadings(ctx context.Context, farmID string, since time.Time) ([]models.Reading, error)

	// SyncAlerts reconciles the farm's active alerts with a fresh set keyed by pest.
	// New pests are inserted as Active, pests still present keep their id and detection
	// date with refreshed risk, and active pests missing from the set are Resolved.
	// It returns the farm's active alerts after the sync.
	SyncAlerts(ctx context.Context, farmID string, alerts []models.Alert, now time.Time) ([]models.Alert, error)
	// ListAlerts returns alerts newest first. An empty farmID lists every farm; limit <= 0 means no limit.
	ListAlerts(ctx context.Context, farmID string, limit int) ([]models.Alert, error)
	CountAlerts(ctx context.Context) (active, resolved int, err error)

	SaveFeedback(ctx context.Context, fb models.Feedback) error
	// ListFeedback returns feedback newest first; limit <= 0 means no limit
	ListFeedback(ctx context.Context, limit int) ([]models.Feedback, error)

	Close() error
}

// Open returns the Store selected by storage.driver
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverMySQL:
		db, err := NewDB(ctx, cfg.DatabaseDSN(), logger)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DriverMemory, "":
		return NewMemory(), nil
	}
	return nil, eris.Errorf("database: unknown driver %q", cfg.Storage.Driver)
}

// SeedFarms upserts every farm, stopping at the first failure
func SeedFarms(ctx context.Context, s Store, farms []models.Farm) error {
	for _, f := range farms {
		if err := s.UpsertFarm(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

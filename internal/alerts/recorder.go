package alerts

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"greenorbit/internal/database"
	"greenorbit/internal/engine"
	"greenorbit/internal/metrics"
	"greenorbit/internal/models"
)

// Recorder stores each sensor update, assesses it and keeps the farm's alerts in sync.
// It is a realtime sink.
type Recorder struct {
	store     database.Store
	suggester *Suggester
	logger    *zap.Logger
	now       func() time.Time
}

// NewRecorder creates a recorder persisting updates and syncing their alerts
func NewRecorder(store database.Store, suggester *Suggester, logger *zap.Logger) *Recorder {
	return &Recorder{
		store:     store,
		suggester: suggester,
		logger:    logger,
		now:       time.Now,
	}
}

// Publish records one update. Updates for farms missing from the store are rejected.
func (r *Recorder) Publish(ctx context.Context, u models.SensorUpdate) error {
	if _, err := r.store.GetFarm(ctx, u.FarmID); err != nil {
		if eris.Is(err, database.ErrNotFound) {
			return eris.Errorf("alerts: unknown farm %s", u.FarmID)
		}
		return err
	}

	at := u.Timestamp
	if at.IsZero() {
		at = r.now().UTC()
	}

	sample := u.Sample()
	if _, err := r.store.SaveReading(ctx, models.NewReading(u.FarmID, sample, at)); err != nil {
		return err
	}

	report := engine.Assess(sample.Reading())
	metrics.RecordAssessment(u.FarmID, string(report.OverallPestRisk.Level), report.OverallPestRisk.Confidence)

	active, err := r.store.SyncAlerts(ctx, u.FarmID, r.suggester.SuggestAlerts(u.FarmID, report, at), at)
	if err != nil {
		return err
	}
	metrics.ActiveAlerts.WithLabelValues(u.FarmID).Set(float64(len(active)))

	r.logger.Debug("recorded update",
		zap.String("farm_id", u.FarmID),
		zap.String("pest_risk", string(report.OverallPestRisk.Level)),
		zap.Int("active_alerts", len(active)))
	return nil
}

package realtime

import (
	"context"
	"time"

	"go.uber.org/zap"

	"greenorbit/internal/metrics"
	"greenorbit/internal/models"
)

// Sampler produces a sample for a farm
type Sampler interface {
	Sample(ctx context.Context, farm models.Farm) (models.Sample, error)
}

// Sink receives every produced update
type Sink interface {
	Publish(ctx context.Context, u models.SensorUpdate) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ctx context.Context, u models.SensorUpdate) error

func (f SinkFunc) Publish(ctx context.Context, u models.SensorUpdate) error { return f(ctx, u) }

// Broadcaster samples farms on a fixed interval and fans the updates out to its sinks
type Broadcaster struct {
	farms    func(ctx context.Context) ([]models.Farm, error)
	sampler  Sampler
	sinks    []Sink
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	// Filter skips farms for which it returns false. Nil samples every farm.
	Filter func(farmID string) bool
	// Source labels the sensor update metric
	Source string
}

// NewBroadcaster creates a broadcaster sampling farms every interval into the sinks
func NewBroadcaster(farms func(ctx context.Context) ([]models.Farm, error), sampler Sampler, interval time.Duration, logger *zap.Logger, sinks ...Sink) *Broadcaster {
	return &Broadcaster{
		farms:    farms,
		sampler:  sampler,
		sinks:    sinks,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		Source:   "local",
	}
}

// StaticFarms serves a fixed farm list to the broadcaster
func StaticFarms(farms []models.Farm) func(context.Context) ([]models.Farm, error) {
	return func(context.Context) ([]models.Farm, error) { return farms, nil }
}

// Run ticks until ctx is done
func (b *Broadcaster) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	b.logger.Info("broadcaster started", zap.Duration("interval", b.interval))
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("broadcaster stopped")
			return nil
		case <-ticker.C:
			b.Tick(ctx)
		}
	}
}

// Tick samples every farm passing the filter once and returns the number of updates sent
func (b *Broadcaster) Tick(ctx context.Context) int {
	farms, err := b.farms(ctx)
	if err != nil {
		b.logger.Error("list farms", zap.Error(err))
		return 0
	}

	sent := 0
	for _, farm := range farms {
		if ctx.Err() != nil {
			return sent
		}
		if b.Filter != nil && !b.Filter(farm.ID) {
			continue
		}

		sample, err := b.sampler.Sample(ctx, farm)
		if err != nil {
			b.logger.Warn("sample farm", zap.String("farm_id", farm.ID), zap.Error(err))
			continue
		}

		sat := sample.Satellite
		u := models.SensorUpdate{
			Type:      models.TypeSensorUpdate,
			FarmID:    farm.ID,
			Data:      sample.Sensor,
			Satellite: &sat,
			Timestamp: b.now().UTC(),
		}
		for _, s := range b.sinks {
			if err := s.Publish(ctx, u); err != nil {
				b.logger.Warn("publish update", zap.String("farm_id", farm.ID), zap.Error(err))
			}
		}
		metrics.SensorUpdatesTotal.WithLabelValues(b.Source).Inc()
		sent++
	}
	return sent
}

// Fanout publishes to each sink in order, continuing past failures. It returns the first error.
func Fanout(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, u models.SensorUpdate) error {
		var first error
		for _, s := range sinks {
			if err := s.Publish(ctx, u); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}

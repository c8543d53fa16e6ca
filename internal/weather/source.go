package weather

import (
	"context"

	"go.uber.org/zap"

	"greenorbit/internal/models"
)

// Simulator supplies the values Open-Meteo cannot: vegetation indices, and sensor
// values when the API is unreachable or omits a field
type Simulator interface {
	SensorData() models.SensorData
	SatelliteData() models.SatelliteData
}

// Source samples farms from live weather conditions at their coordinates
type Source struct {
	client *OpenMeteoClient
	sim    Simulator
	logger *zap.Logger
}

// NewSource creates a sampler overlaying live weather on simulated values
func NewSource(client *OpenMeteoClient, sim Simulator, logger *zap.Logger) *Source {
	return &Source{client: client, sim: sim, logger: logger}
}

// Sample returns live sensor values with simulated satellite data. A failed lookup
// falls back to simulated sensor values rather than failing the tick.
func (s *Source) Sample(ctx context.Context, farm models.Farm) (models.Sample, error) {
	sample := models.Sample{
		Sensor:    s.sim.SensorData(),
		Satellite: s.sim.SatelliteData(),
	}

	cond, err := s.client.GetCurrentConditions(ctx, farm.Location.Latitude, farm.Location.Longitude)
	if err != nil {
		if ctx.Err() != nil {
			return sample, ctx.Err()
		}
		s.logger.Warn("weather lookup failed, using simulated sensor data",
			zap.String("farm_id", farm.ID), zap.Error(err))
		return sample, nil
	}

	if cond.Temperature != nil {
		sample.Sensor.Temperature = *cond.Temperature
	}
	if cond.Humidity != nil {
		sample.Sensor.Humidity = *cond.Humidity
	}
	if cond.SoilMoisture != nil {
		sample.Sensor.SoilMoisture = *cond.SoilMoisture
	}
	return sample, nil
}

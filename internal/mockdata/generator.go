// Package mockdata produces simulated sensor, satellite and historical data for farms
// that have no field hardware attached.
package mockdata

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"greenorbit/internal/models"
)

const satelliteSource = "Sentinel-2"

// Generator draws simulated samples from a seeded source. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

// NewGenerator creates a simulator seeded with seed
func NewGenerator(seed int64) *Generator {
	return &Generator{
		rnd: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
}

// WithClock replaces the time source, for tests
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

func (g *Generator) float() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.Float64()
}

// SensorData simulates soil moisture 45-75%, temperature 20-30°C and humidity 55-75%
func (g *Generator) SensorData() models.SensorData {
	return models.SensorData{
		SoilMoisture: 45 + g.float()*30,
		Temperature:  20 + g.float()*10,
		Humidity:     55 + g.float()*20,
		LastUpdate:   g.now().UTC(),
	}
}

// SatelliteData simulates NDRE 0.2-0.5, NDVI 0.4-0.75 and NDWI 0.2-0.6
func (g *Generator) SatelliteData() models.SatelliteData {
	return models.SatelliteData{
		NDRE:       0.2 + g.float()*0.3,
		NDVI:       0.4 + g.float()*0.35,
		NDWI:       0.2 + g.float()*0.4,
		LastUpdate: g.now().UTC(),
		Source:     satelliteSource,
	}
}

// Sample returns a fresh simulated sample for the farm
func (g *Generator) Sample(_ context.Context, _ models.Farm) (models.Sample, error) {
	return models.Sample{
		Sensor:    g.SensorData(),
		Satellite: g.SatelliteData(),
	}, nil
}

// Historical builds a daily series ending today, oldest first, with days+1 points.
// Each indicator follows a slow wave with small jitter; humidity is clamped to 30-95%
// and soil moisture to 20-85%.
func (g *Generator) Historical(days int) []models.HistoricalPoint {
	if days < 0 {
		days = 0
	}
	now := g.now().UTC()

	points := make([]models.HistoricalPoint, 0, days+1)
	for i := days; i >= 0; i-- {
		x := float64(i)
		baseTemp := 24 + math.Sin(x/10)*5
		baseHumidity := 60 + math.Cos(x/8)*15
		baseMoisture := 50 + math.Sin(x/12)*20

		points = append(points, models.HistoricalPoint{
			Date:         now.AddDate(0, 0, -i).Format("2006-01-02"),
			Temperature:  baseTemp + (g.float()-0.5)*2,
			Humidity:     clamp(baseHumidity+(g.float()-0.5)*3, 30, 95),
			SoilMoisture: clamp(baseMoisture+(g.float()-0.5)*4, 20, 85),
			NDRE:         0.25 + math.Sin(x/15)*0.15 + (g.float()-0.5)*0.05,
		})
	}
	return points
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// FeatureImportance is the relative weight of each input in the risk rules
func FeatureImportance() []models.FeatureImportance {
	return []models.FeatureImportance{
		{Feature: "NDRE", Importance: 28.5, Description: "Crop stress indicator"},
		{Feature: "Soil Moisture", Importance: 22.3, Description: "Root environment condition"},
		{Feature: "Temperature", Importance: 20.1, Description: "Pest development speed"},
		{Feature: "Humidity", Importance: 18.2, Description: "Disease and pest survival"},
		{Feature: "Rain Pattern", Importance: 6.8, Description: "Water availability"},
	}
}

package models

import (
	"sort"
	"time"

	"greenorbit/internal/engine"
)

// Alert statuses
const (
	AlertActive   = "Active"
	AlertResolved = "Resolved"
)

// Update message types pushed to websocket subscribers
const (
	TypeSensorUpdate = "sensor-update"
)

// Location is a farm's coordinates
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Farm is one monitored farm in the registry
type Farm struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Location    Location `json:"location"`
	CropType    string   `json:"cropType"`
	CropStage   string   `json:"cropStage"`
	AreaMeasure float64  `json:"areaMeasure"`
}

// SensorData is a field sensor sample
type SensorData struct {
	SoilMoisture float64   `json:"soilMoisture"`
	Temperature  float64   `json:"temperature"`
	Humidity     float64   `json:"humidity"`
	LastUpdate   time.Time `json:"lastUpdate"`
}

// SatelliteData is a vegetation index sample
type SatelliteData struct {
	NDRE       float64   `json:"ndre"`
	NDVI       float64   `json:"ndvi"`
	NDWI       float64   `json:"ndwi"`
	LastUpdate time.Time `json:"lastUpdate"`
	Source     string    `json:"source"`
}

// Sample pairs the sensor and satellite data taken for a farm at one time
type Sample struct {
	Sensor    SensorData    `json:"sensorData"`
	Satellite SatelliteData `json:"satelliteData"`
}

// Reading flattens the sample into the engine's input vector
func (s Sample) Reading() engine.Reading {
	return engine.Reading{
		NDRE:         s.Satellite.NDRE,
		SoilMoisture: s.Sensor.SoilMoisture,
		Temperature:  s.Sensor.Temperature,
		Humidity:     s.Sensor.Humidity,
	}
}

// SensorUpdate is the realtime message for one farm.
// Satellite is optional so subscribers that only render sensors keep working.
type SensorUpdate struct {
	Type      string         `json:"type"`
	FarmID    string         `json:"farmId"`
	Data      SensorData     `json:"data"`
	Satellite *SatelliteData `json:"satellite,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Sample rebuilds the sample carried by the update. Updates without satellite data
// use the default NDRE.
func (u SensorUpdate) Sample() Sample {
	s := Sample{Sensor: u.Data}
	if u.Satellite != nil {
		s.Satellite = *u.Satellite
	} else {
		s.Satellite = SatelliteData{NDRE: engine.DefaultNDRE, LastUpdate: u.Timestamp}
	}
	return s
}

// Reading is one stored sample row
type Reading struct {
	ID           int64     `json:"id"`
	FarmID       string    `json:"farmId"`
	Timestamp    time.Time `json:"timestamp"`
	NDRE         float64   `json:"ndre"`
	NDVI         float64   `json:"ndvi"`
	NDWI         float64   `json:"ndwi"`
	SoilMoisture float64   `json:"soilMoisture"`
	Temperature  float64   `json:"temperature"`
	Humidity     float64   `json:"humidity"`
	Source       string    `json:"source"`
}

// NewReading builds a row from a sample
func NewReading(farmID string, s Sample, at time.Time) Reading {
	return Reading{
		FarmID:       farmID,
		Timestamp:    at,
		NDRE:         s.Satellite.NDRE,
		NDVI:         s.Satellite.NDVI,
		NDWI:         s.Satellite.NDWI,
		SoilMoisture: s.Sensor.SoilMoisture,
		Temperature:  s.Sensor.Temperature,
		Humidity:     s.Sensor.Humidity,
		Source:       s.Satellite.Source,
	}
}

// Sample converts the row back into a sample stamped with its time
func (r Reading) Sample() Sample {
	return Sample{
		Sensor: SensorData{
			SoilMoisture: r.SoilMoisture,
			Temperature:  r.Temperature,
			Humidity:     r.Humidity,
			LastUpdate:   r.Timestamp,
		},
		Satellite: SatelliteData{
			NDRE:       r.NDRE,
			NDVI:       r.NDVI,
			NDWI:       r.NDWI,
			LastUpdate: r.Timestamp,
			Source:     r.Source,
		},
	}
}

// HistoricalPoint is one day of the historical chart
type HistoricalPoint struct {
	Date         string  `json:"date"`
	Temperature  float64 `json:"temperature"`
	Humidity     float64 `json:"humidity"`
	SoilMoisture float64 `json:"soilMoisture"`
	NDRE         float64 `json:"ndre"`
}

// DailyAverages groups readings by UTC date and averages each day, oldest first
func DailyAverages(readings []Reading) []HistoricalPoint {
	type sum struct {
		temp, hum, soil, ndre float64
		n                     int
	}

	days := make(map[string]*sum)
	for _, r := range readings {
		key := r.Timestamp.UTC().Format("2006-01-02")
		s, ok := days[key]
		if !ok {
			s = &sum{}
			days[key] = s
		}
		s.temp += r.Temperature
		s.hum += r.Humidity
		s.soil += r.SoilMoisture
		s.ndre += r.NDRE
		s.n++
	}

	points := make([]HistoricalPoint, 0, len(days))
	for date, s := range days {
		n := float64(s.n)
		points = append(points, HistoricalPoint{
			Date:         date,
			Temperature:  s.temp / n,
			Humidity:     s.hum / n,
			SoilMoisture: s.soil / n,
			NDRE:         s.ndre / n,
		})
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Date < points[j].Date
	})
	return points
}

// Alert is a pest warning raised for a farm
type Alert struct {
	ID           string       `json:"id"`
	FarmID       string       `json:"farmId"`
	PestKey      string       `json:"pestKey"`
	PestName     string       `json:"pestName"`
	RiskLevel    engine.Level `json:"riskLevel"`
	Confidence   int          `json:"confidence"`
	TimeWindow   string       `json:"timeWindow"`
	DetectedDate time.Time    `json:"detectedDate"`
	Status       string       `json:"status"`
}

// Feedback is a farmer's field confirmation of an alert
type Feedback struct {
	ID                   string    `json:"id"`
	FarmID               string    `json:"farmId"`
	AlertID              string    `json:"alertId"`
	Timestamp            time.Time `json:"timestamp"`
	PestConfirmed        bool      `json:"pestConfirmed"`
	Observations         string    `json:"observations"`
	ControlMeasuresTaken string    `json:"controlMeasuresTaken,omitempty"`
}

// SystemStats backs the admin dashboard counters
type SystemStats struct {
	TotalMonitoredFarms  int       `json:"totalMonitoredFarms"`
	ActiveAlerts         int       `json:"activeAlerts"`
	ResolvedAlerts       int       `json:"resolvedAlerts"`
	ModelConfidenceScore float64   `json:"modelConfidenceScore"`
	SensorsOnline        int       `json:"sensorsOnline"`
	SensorsOffline       int       `json:"sensorsOffline"`
	FeedbackCount        int       `json:"feedbackCount"`
	StartedAt            time.Time `json:"startedAt"`
}

// FeatureImportance is one indicator's weight in the risk rules
type FeatureImportance struct {
	Feature     string  `json:"feature"`
	Importance  float64 `json:"importance"`
	Description string  `json:"description"`
}

// Roles accepted at login
const (
	RoleFarmer = "farmer"
	RoleAdmin  = "admin"
)

// User is the authenticated principal returned by login
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Name  string `json:"name"`
}

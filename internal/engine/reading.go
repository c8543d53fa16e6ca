package engine

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Default indicator values used when a reading omits a field
const (
	DefaultNDRE         = 0.3
	DefaultSoilMoisture = 50.0
	DefaultTemperature  = 22.0
	DefaultHumidity     = 60.0
)

// Reading is the complete input vector of an assessment
type Reading struct {
	NDRE         float64 `json:"ndre"`
	SoilMoisture float64 `json:"soilMoisture"`
	Temperature  float64 `json:"temperature"`
	Humidity     float64 `json:"humidity"`
}

// DefaultReading returns a reading with every field at its default
func DefaultReading() Reading {
	return Reading{
		NDRE:         DefaultNDRE,
		SoilMoisture: DefaultSoilMoisture,
		Temperature:  DefaultTemperature,
		Humidity:     DefaultHumidity,
	}
}

// PartialReading is a reading whose fields may be absent. A nil field means
// "not supplied"; zero is a real measurement.
type PartialReading struct {
	NDRE         *float64 `json:"ndre,omitempty"`
	SoilMoisture *float64 `json:"soilMoisture,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	Humidity     *float64 `json:"humidity,omitempty"`
}

// Resolve fills absent or non-finite fields with defaults
func (p PartialReading) Resolve() Reading {
	r := DefaultReading()
	if usable(p.NDRE) {
		r.NDRE = *p.NDRE
	}
	if usable(p.SoilMoisture) {
		r.SoilMoisture = *p.SoilMoisture
	}
	if usable(p.Temperature) {
		r.Temperature = *p.Temperature
	}
	if usable(p.Humidity) {
		r.Humidity = *p.Humidity
	}
	return r
}

func usable(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

// ReadingFromMap builds a reading from loosely typed named fields such as a decoded
// JSON object. Keys are ndre, soilMoisture, temperature and humidity; values that
// are missing or not numeric fall back to the defaults.
func ReadingFromMap(fields map[string]any) Reading {
	var p PartialReading
	p.NDRE = number(fields["ndre"])
	p.SoilMoisture = number(fields["soilMoisture"])
	p.Temperature = number(fields["temperature"])
	p.Humidity = number(fields["humidity"])
	return p.Resolve()
}

func number(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}

package engine

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestPartialReading_Resolve(t *testing.T) {
	tests := []struct {
		name    string
		partial PartialReading
		want    Reading
	}{
		{"empty", PartialReading{}, DefaultReading()},
		{
			name:    "zero is a value",
			partial: PartialReading{NDRE: ptr(0), Humidity: ptr(0)},
			want:    Reading{NDRE: 0, SoilMoisture: DefaultSoilMoisture, Temperature: DefaultTemperature, Humidity: 0},
		},
		{
			name:    "non-finite falls back",
			partial: PartialReading{Temperature: ptr(math.NaN()), SoilMoisture: ptr(math.Inf(1))},
			want:    DefaultReading(),
		},
		{
			name:    "complete",
			partial: PartialReading{NDRE: ptr(0.1), SoilMoisture: ptr(33), Temperature: ptr(28), Humidity: ptr(51)},
			want:    Reading{NDRE: 0.1, SoilMoisture: 33, Temperature: 28, Humidity: 51},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.partial.Resolve())
		})
	}
}

func TestPartialReading_JSON(t *testing.T) {
	var p PartialReading
	require.NoError(t, json.Unmarshal([]byte(`{"ndre":0,"temperature":31.5}`), &p))

	r := p.Resolve()
	assert.Equal(t, 0.0, r.NDRE)
	assert.Equal(t, 31.5, r.Temperature)
	assert.Equal(t, DefaultSoilMoisture, r.SoilMoisture)
	assert.Equal(t, DefaultHumidity, r.Humidity)
}

func TestReadingFromMap(t *testing.T) {
	r := ReadingFromMap(map[string]any{
		"ndre":         json.Number("0.12"),
		"soilMoisture": 45,
		"temperature":  " 27.5 ",
		"humidity":     "wet",
		"wind":         12.0,
	})

	assert.Equal(t, 0.12, r.NDRE)
	assert.Equal(t, 45.0, r.SoilMoisture)
	assert.Equal(t, 27.5, r.Temperature)
	assert.Equal(t, DefaultHumidity, r.Humidity)
}

func TestReadingFromMap_Nil(t *testing.T) {
	assert.Equal(t, DefaultReading(), ReadingFromMap(nil))
	assert.Equal(t, DefaultReading(), ReadingFromMap(map[string]any{"ndre": nil, "humidity": true}))
}

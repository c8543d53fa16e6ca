package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"greenorbit/internal/models"
)

func TestNewOpenMeteoClient(t *testing.T) {
	client := NewOpenMeteoClient("", time.Second)
	require.NotNil(t, client)
	assert.NotNil(t, client.client)
	assert.Equal(t, DefaultBaseURL, client.baseURL)
}

func TestBuildURL(t *testing.T) {
	client := NewOpenMeteoClient("https://api.open-meteo.com/v1/", time.Second)

	tests := []struct {
		name   string
		params ForecastParams
		want   string
	}{
		{
			name: "basic current weather",
			params: ForecastParams{
				Latitude:      -1.2921,
				Longitude:     36.8219,
				CurrentFields: []string{"temperature_2m", "relative_humidity_2m"},
			},
			want: "https://api.open-meteo.com/v1/forecast?latitude=-1.2921&longitude=36.8219&timezone=auto&temperature_unit=celsius&current=temperature_2m,relative_humidity_2m",
		},
		{
			name: "hourly data with past days",
			params: ForecastParams{
				Latitude:     -1.2921,
				Longitude:    36.8219,
				HourlyFields: []string{"soil_moisture_0_to_1cm"},
				PastDays:     7,
			},
			want: "https://api.open-meteo.com/v1/forecast?latitude=-1.2921&longitude=36.8219&timezone=auto&temperature_unit=celsius&past_days=7&hourly=soil_moisture_0_to_1cm",
		},
		{
			name: "custom timezone and temperature unit",
			params: ForecastParams{
				Latitude:        51.5074,
				Longitude:       -0.1278,
				CurrentFields:   []string{"temperature_2m"},
				Timezone:        "Europe/London",
				TemperatureUnit: "fahrenheit",
				ForecastDays:    1,
			},
			want: "https://api.open-meteo.com/v1/forecast?latitude=51.5074&longitude=-0.1278&timezone=Europe/London&temperature_unit=fahrenheit&forecast_days=1&current=temperature_2m",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, client.BuildURL(tt.params))
		})
	}
}

const forecastBody = `{
  "latitude": -1.29,
  "longitude": 36.82,
  "timezone": "Africa/Nairobi",
  "current": {"time": "2024-06-01T10:15", "interval": 900, "temperature_2m": 27.4, "relative_humidity_2m": 48},
  "hourly": {
    "time": ["2024-06-01T09:00", "2024-06-01T10:00", "2024-06-01T11:00"],
    "soil_moisture_0_to_1cm": [0.31, 0.29, null]
  }
}`

func TestGetCurrentConditions(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast", r.URL.Path)
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(forecastBody))
	}))
	defer srv.Close()

	client := NewOpenMeteoClient(srv.URL, time.Second)
	cond, err := client.GetCurrentConditions(context.Background(), -1.29, 36.82)
	require.NoError(t, err)

	require.NotNil(t, cond.Temperature)
	assert.Equal(t, 27.4, *cond.Temperature)
	require.NotNil(t, cond.Humidity)
	assert.Equal(t, 48.0, *cond.Humidity)
	require.NotNil(t, cond.SoilMoisture)
	assert.InDelta(t, 29, *cond.SoilMoisture, 1e-9)
	assert.Equal(t, "2024-06-01T10:15", cond.ObservedAt)

	assert.Contains(t, gotQuery, "current=temperature_2m,relative_humidity_2m")
	assert.Contains(t, gotQuery, "hourly=soil_moisture_0_to_1cm")
	assert.Contains(t, gotQuery, "temperature_unit=celsius")
}

func TestGetForecast_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":true,"reason":"bad latitude"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewOpenMeteoClient(srv.URL, time.Second).GetForecast(context.Background(), ForecastParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestSoilMoisturePercent(t *testing.T) {
	v := func(f float64) *float64 { return &f }

	tests := []struct {
		name     string
		forecast Forecast
		want     *float64
	}{
		{"no hourly data", Forecast{}, nil},
		{
			name: "falls back to last reported hour",
			forecast: Forecast{
				Current: Current{Time: "2024-06-02T03:00"},
				Hourly:  Hourly{Time: []string{"2024-06-01T22:00", "2024-06-01T23:00"}, SoilMoisture0To1cm: []*float64{v(0.2), v(0.25)}},
			},
			want: v(25),
		},
		{
			name: "all null",
			forecast: Forecast{
				Hourly: Hourly{Time: []string{"2024-06-01T22:00"}, SoilMoisture0To1cm: []*float64{nil}},
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.forecast.soilMoisturePercent()
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

type fixedSim struct{}

func (fixedSim) SensorData() models.SensorData {
	return models.SensorData{SoilMoisture: 60, Temperature: 22, Humidity: 65}
}

func (fixedSim) SatelliteData() models.SatelliteData {
	return models.SatelliteData{NDRE: 0.33, Source: "Sentinel-2"}
}

func TestSource_Sample(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(forecastBody))
	}))
	defer srv.Close()

	src := NewSource(NewOpenMeteoClient(srv.URL, time.Second), fixedSim{}, zap.NewNop())
	s, err := src.Sample(context.Background(), models.Farm{ID: "FARM-001"})
	require.NoError(t, err)

	assert.Equal(t, 27.4, s.Sensor.Temperature)
	assert.Equal(t, 48.0, s.Sensor.Humidity)
	assert.InDelta(t, 29, s.Sensor.SoilMoisture, 1e-9)
	assert.Equal(t, 0.33, s.Satellite.NDRE)
}

func TestSource_SampleFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := NewSource(NewOpenMeteoClient(srv.URL, time.Second), fixedSim{}, zap.NewNop())
	s, err := src.Sample(context.Background(), models.Farm{ID: "FARM-001"})
	require.NoError(t, err)
	assert.Equal(t, fixedSim{}.SensorData(), s.Sensor)
}

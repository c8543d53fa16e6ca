package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const DefaultBaseURL = "https://api.open-meteo.com/v1"

// Fields requested for a farm's current conditions
var (
	currentFields = []string{"temperature_2m", "relative_humidity_2m"}
	hourlyFields  = []string{"soil_moisture_0_to_1cm"}
)

// Forecast is the subset of the Open-Meteo forecast response used for field conditions
type Forecast struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	Timezone         string  `json:"timezone"`
	Current          Current `json:"current"`
	Hourly           Hourly  `json:"hourly"`
	GenerationTimeMs float64 `json:"generation_time_ms"`
}

type Current struct {
	Time               string   `json:"time"`
	Interval           int      `json:"interval"`
	Temperature2m      *float64 `json:"temperature_2m"`
	RelativeHumidity2m *float64 `json:"relative_humidity_2m"`
}

type Hourly struct {
	Time               []string   `json:"time"`
	SoilMoisture0To1cm []*float64 `json:"soil_moisture_0_to_1cm"`
}

// OpenMeteoClient is a client for the Open-Meteo API
type OpenMeteoClient struct {
	client  *http.Client
	baseURL string
}

type ForecastParams struct {
	Latitude        float64
	Longitude       float64
	CurrentFields   []string
	HourlyFields    []string
	Timezone        string
	TemperatureUnit string
	PastDays        int // how many days in the past you want to get
	ForecastDays    int // how many days in the future you want to forecast
}

// NewOpenMeteoClient creates a new Open-Meteo API client. An empty baseURL uses the public API.
func NewOpenMeteoClient(baseURL string, timeout time.Duration) *OpenMeteoClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &OpenMeteoClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// GetForecast fetches forecast data for the given parameters
func (c *OpenMeteoClient) GetForecast(ctx context.Context, forecastParams ForecastParams) (*Forecast, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BuildURL(forecastParams), nil)
	if err != nil {
		return nil, eris.Wrap(err, "weather: build request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "weather: fetch forecast")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, eris.Errorf("weather: API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var forecast Forecast
	if err := json.NewDecoder(resp.Body).Decode(&forecast); err != nil {
		return nil, eris.Wrap(err, "weather: decode response")
	}

	return &forecast, nil
}

// Builds URL for OpenMeteoClient request
func (c *OpenMeteoClient) BuildURL(forecastParams ForecastParams) string {
	if forecastParams.Timezone == "" {
		forecastParams.Timezone = "auto"
	}

	if forecastParams.TemperatureUnit == "" {
		forecastParams.TemperatureUnit = "celsius"
	}

	url := fmt.Sprintf("%s/forecast?latitude=%.4f&longitude=%.4f&timezone=%s&temperature_unit=%s",
		c.baseURL, forecastParams.Latitude, forecastParams.Longitude, forecastParams.Timezone, forecastParams.TemperatureUnit)

	if forecastParams.PastDays > 0 {
		url += fmt.Sprintf("&past_days=%d", forecastParams.PastDays)
	}

	if forecastParams.ForecastDays > 0 {
		url += fmt.Sprintf("&forecast_days=%d", forecastParams.ForecastDays)
	}

	if len(forecastParams.CurrentFields) > 0 {
		url += "&current=" + strings.Join(forecastParams.CurrentFields, ",")
	}

	if len(forecastParams.HourlyFields) > 0 {
		url += "&hourly=" + strings.Join(forecastParams.HourlyFields, ",")
	}

	return url
}

// Conditions are the field values taken from a forecast. Nil fields were not reported.
type Conditions struct {
	Temperature  *float64
	Humidity     *float64
	SoilMoisture *float64 // percent
	ObservedAt   string
}

// GetCurrentConditions fetches current air temperature (celsius), relative humidity and the
// top-layer soil moisture for the hour of the observation
func (c *OpenMeteoClient) GetCurrentConditions(ctx context.Context, lat, long float64) (Conditions, error) {
	forecast, err := c.GetForecast(ctx, ForecastParams{
		Latitude:      lat,
		Longitude:     long,
		CurrentFields: currentFields,
		HourlyFields:  hourlyFields,
		ForecastDays:  1,
	})
	if err != nil {
		return Conditions{}, err
	}

	return Conditions{
		Temperature:  forecast.Current.Temperature2m,
		Humidity:     forecast.Current.RelativeHumidity2m,
		SoilMoisture: forecast.soilMoisturePercent(),
		ObservedAt:   forecast.Current.Time,
	}, nil
}

// soilMoisturePercent converts m³/m³ to percent, preferring the hour of the current
// observation and otherwise the last reported hour
func (f *Forecast) soilMoisturePercent() *float64 {
	values := f.Hourly.SoilMoisture0To1cm
	if len(values) == 0 {
		return nil
	}

	hour := ""
	if len(f.Current.Time) >= len("2006-01-02T15") {
		hour = f.Current.Time[:len("2006-01-02T15")] + ":00"
	}

	var picked *float64
	for i, v := range values {
		if v == nil {
			continue
		}
		picked = v
		if i < len(f.Hourly.Time) && f.Hourly.Time[i] == hour {
			break
		}
	}
	if picked == nil {
		return nil
	}

	percent := *picked * 100
	return &percent
}

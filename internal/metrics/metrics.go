package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greenorbit_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "greenorbit_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Risk metrics
var (
	// AssessmentsTotal counts engine assessments by aggregate pest risk level
	AssessmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greenorbit_assessments_total",
			Help: "Total number of risk assessments by overall pest risk level",
		},
		[]string{"level"},
	)

	FarmRiskConfidence = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "greenorbit_farm_risk_confidence",
			Help: "Confidence of the latest pest risk assessment per farm",
		},
		[]string{"farm_id"},
	)

	ActiveAlerts = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "greenorbit_active_alerts",
			Help: "Number of active pest alerts per farm",
		},
		[]string{"farm_id"},
	)
)

// Realtime metrics
var (
	WSClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "greenorbit_ws_clients",
			Help: "Number of connected websocket clients",
		},
	)

	WSMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greenorbit_ws_messages_total",
			Help: "Websocket messages by direction and type",
		},
		[]string{"direction", "type"},
	)

	SensorUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greenorbit_sensor_updates_total",
			Help: "Sensor updates produced or consumed by source",
		},
		[]string{"source"},
	)
)

// Store metrics
var (
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greenorbit_store_queries_total",
			Help: "Store queries by operation, table and outcome",
		},
		[]string{"operation", "table", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "greenorbit_store_query_duration_seconds",
			Help:    "Latency of store queries",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation", "table"},
	)

	// MySQL pool gauges, refreshed after writes
	DBConnectionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "greenorbit_store_pool_open",
		Help: "Open MySQL connections",
	})
	DBConnectionsInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "greenorbit_store_pool_in_use",
		Help: "MySQL connections serving a query",
	})
	DBConnectionsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "greenorbit_store_pool_idle",
		Help: "Idle MySQL connections",
	})
)

// Process metrics
var (
	// AppInfo provides static information about the application
	AppInfo = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "greenorbit_app_info",
			Help: "Application information (always 1)",
		},
	)

	// AppStartTime records when the application started
	AppStartTime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "greenorbit_app_start_time_seconds",
			Help: "Unix timestamp of when the application started",
		},
	)
)

var startedAt = time.Now()

func init() {
	AppInfo.Set(1)
	AppStartTime.Set(float64(startedAt.Unix()))
}

// StartedAt is the process start time recorded at package init
func StartedAt() time.Time {
	return startedAt
}

// RecordHTTPRequest records one served request under its route pattern
func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordAssessment records the outcome of a farm's assessment
func RecordAssessment(farmID, level string, confidence int) {
	AssessmentsTotal.WithLabelValues(level).Inc()
	if farmID != "" {
		FarmRiskConfidence.WithLabelValues(farmID).Set(float64(confidence))
	}
}

// RecordDBQuery counts one store query and its latency
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	DBQueriesTotal.WithLabelValues(operation, table, outcome).Inc()
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

func UpdateDBConnectionStats(open, inUse, idle int) {
	DBConnectionsOpen.Set(float64(open))
	DBConnectionsInUse.Set(float64(inUse))
	DBConnectionsIdle.Set(float64(idle))
}

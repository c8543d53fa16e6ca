package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"greenorbit/internal/database"
	"greenorbit/internal/engine"
	"greenorbit/internal/metrics"
	"greenorbit/internal/mockdata"
	"greenorbit/internal/models"
	"greenorbit/internal/report"
)

const (
	defaultHistoryDays = 30
	maxHistoryDays     = 365
)

// RiskOverview is the risk card shown for each farm
type RiskOverview struct {
	CropHealth  engine.CropHealth  `json:"cropHealth"`
	PestRisk    engine.RiskSummary `json:"pestRisk"`
	DiseaseRisk engine.DiseaseRisk `json:"diseaseRisk"`
}

// FarmView is a registry farm with its latest sample and risk
type FarmView struct {
	models.Farm
	LastUpdate     time.Time            `json:"lastUpdate"`
	SensorData     models.SensorData    `json:"sensorData"`
	SatelliteData  models.SatelliteData `json:"satelliteData"`
	RiskAssessment RiskOverview         `json:"riskAssessment"`
}

// AssessmentView is the full engine output for one reading
type AssessmentView struct {
	FarmID     string                    `json:"farmId,omitempty"`
	Timestamp  *time.Time                `json:"timestamp,omitempty"`
	Report     engine.Report             `json:"report"`
	PestRisk   engine.PestRiskAssessment `json:"pestRisk"`
	CropHealth engine.CropHealth         `json:"cropHealth"`
}

func newAssessment(r engine.Reading) AssessmentView {
	return AssessmentView{
		Report:     engine.Assess(r),
		PestRisk:   engine.AssessPestRisk(r),
		CropHealth: engine.CalculateCropHealth(r.NDRE),
	}
}

type feedbackRequest struct {
	FarmID               string `json:"farmId"`
	AlertID              string `json:"alertId"`
	PestConfirmed        bool   `json:"pestConfirmed"`
	Observations         string `json:"observations"`
	ControlMeasuresTaken string `json:"controlMeasuresTaken"`
}

// latestSample returns the farm's newest stored sample, or a fresh one from the
// sampler when nothing has been recorded yet
func (s *Server) latestSample(ctx context.Context, farm models.Farm) (models.Sample, time.Time, error) {
	rd, err := s.store.LatestReading(ctx, farm.ID)
	if err == nil {
		return rd.Sample(), rd.Timestamp, nil
	}
	if !eris.Is(err, database.ErrNotFound) {
		return models.Sample{}, time.Time{}, err
	}
	if s.sampler == nil {
		return models.Sample{}, time.Time{}, eris.Errorf("server: no sample for farm %s", farm.ID)
	}
	sample, err := s.sampler.Sample(ctx, farm)
	if err != nil {
		return models.Sample{}, time.Time{}, err
	}
	return sample, s.now().UTC(), nil
}

func (s *Server) farmView(ctx context.Context, farm models.Farm) (FarmView, error) {
	sample, at, err := s.latestSample(ctx, farm)
	if err != nil {
		return FarmView{}, err
	}
	rep := engine.Assess(sample.Reading())
	return FarmView{
		Farm:          farm,
		LastUpdate:    at,
		SensorData:    sample.Sensor,
		SatelliteData: sample.Satellite,
		RiskAssessment: RiskOverview{
			CropHealth:  engine.CalculateCropHealth(sample.Satellite.NDRE),
			PestRisk:    rep.OverallPestRisk,
			DiseaseRisk: rep.OverallDiseaseRisk,
		},
	}, nil
}

// lookupFarm writes a 404 and returns false when the farm in the path is unknown
func (s *Server) lookupFarm(w http.ResponseWriter, r *http.Request) (models.Farm, bool) {
	id := chi.URLParam(r, "farmId")
	farm, err := s.store.GetFarm(r.Context(), id)
	if err != nil {
		if eris.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "farm not found: "+id)
			return models.Farm{}, false
		}
		s.internalError(w, "failed to load farm", err)
		return models.Farm{}, false
	}
	return farm, true
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func (s *Server) handleListFarms(w http.ResponseWriter, r *http.Request) {
	farms, err := s.store.ListFarms(r.Context())
	if err != nil {
		s.internalError(w, "failed to list farms", err)
		return
	}

	views := make([]FarmView, 0, len(farms))
	for _, f := range farms {
		v, err := s.farmView(r.Context(), f)
		if err != nil {
			s.internalError(w, "failed to sample farm", err)
			return
		}
		views = append(views, v)
	}
	writeData(w, views)
}

func (s *Server) handleGetFarm(w http.ResponseWriter, r *http.Request) {
	farm, ok := s.lookupFarm(w, r)
	if !ok {
		return
	}
	v, err := s.farmView(r.Context(), farm)
	if err != nil {
		s.internalError(w, "failed to sample farm", err)
		return
	}
	writeData(w, v)
}

func (s *Server) handleFarmAssessment(w http.ResponseWriter, r *http.Request) {
	farm, ok := s.lookupFarm(w, r)
	if !ok {
		return
	}
	sample, at, err := s.latestSample(r.Context(), farm)
	if err != nil {
		s.internalError(w, "failed to sample farm", err)
		return
	}

	view := newAssessment(sample.Reading())
	view.FarmID = farm.ID
	view.Timestamp = &at
	writeData(w, view)
}

// handleAssess scores an ad hoc reading. Fields may be numbers or numeric strings;
// absent or unparsable fields take their defaults.
func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view := newAssessment(engine.ReadingFromMap(fields))
	metrics.AssessmentsTotal.WithLabelValues(string(view.Report.OverallPestRisk.Level)).Inc()
	writeData(w, view)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	s.writeAlerts(w, r, "")
}

func (s *Server) handleFarmAlerts(w http.ResponseWriter, r *http.Request) {
	farm, ok := s.lookupFarm(w, r)
	if !ok {
		return
	}
	s.writeAlerts(w, r, farm.ID)
}

// writeAlerts honours the optional status and limit query parameters
func (s *Server) writeAlerts(w http.ResponseWriter, r *http.Request, farmID string) {
	limit, ok := intQuery(w, r, "limit", 0)
	if !ok {
		return
	}
	status := r.URL.Query().Get("status")
	if status != "" && status != models.AlertActive && status != models.AlertResolved {
		writeError(w, http.StatusBadRequest, "status must be Active or Resolved")
		return
	}

	// filter before limiting
	fetch := limit
	if status != "" {
		fetch = 0
	}
	list, err := s.store.ListAlerts(r.Context(), farmID, fetch)
	if err != nil {
		s.internalError(w, "failed to list alerts", err)
		return
	}

	out := make([]models.Alert, 0, len(list))
	for _, a := range list {
		if status != "" && a.Status != status {
			continue
		}
		out = append(out, a)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	writeData(w, out)
}

// handleHistoricalData returns daily averages of stored readings over the window.
// Farms without readings get a synthetic series.
func (s *Server) handleHistoricalData(w http.ResponseWriter, r *http.Request) {
	farm, ok := s.lookupFarm(w, r)
	if !ok {
		return
	}
	days, ok := intQuery(w, r, "days", defaultHistoryDays)
	if !ok {
		return
	}
	if days > maxHistoryDays {
		days = maxHistoryDays
	}

	since := s.now().UTC().AddDate(0, 0, -days)
	readings, err := s.store.ListReadings(r.Context(), farm.ID, since)
	if err != nil {
		s.internalError(w, "failed to list readings", err)
		return
	}

	points := models.DailyAverages(readings)
	if len(points) == 0 && s.history != nil {
		points = s.history.Historical(days)
	}
	if points == nil {
		points = []models.HistoricalPoint{}
	}
	writeData(w, points)
}

func (s *Server) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	limit, ok := intQuery(w, r, "limit", 0)
	if !ok {
		return
	}
	list, err := s.store.ListFeedback(r.Context(), limit)
	if err != nil {
		s.internalError(w, "failed to list feedback", err)
		return
	}
	if list == nil {
		list = []models.Feedback{}
	}
	writeData(w, list)
}

func (s *Server) handleCreateFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FarmID == "" {
		writeError(w, http.StatusBadRequest, "farmId is required")
		return
	}
	if _, err := s.store.GetFarm(r.Context(), req.FarmID); err != nil {
		if eris.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "unknown farm: "+req.FarmID)
			return
		}
		s.internalError(w, "failed to load farm", err)
		return
	}

	fb := models.Feedback{
		ID:                   "FB-" + uuid.NewString(),
		FarmID:               req.FarmID,
		AlertID:              req.AlertID,
		Timestamp:            s.now().UTC(),
		PestConfirmed:        req.PestConfirmed,
		Observations:         req.Observations,
		ControlMeasuresTaken: req.ControlMeasuresTaken,
	}
	if err := s.store.SaveFeedback(r.Context(), fb); err != nil {
		s.internalError(w, "failed to save feedback", err)
		return
	}
	writeData(w, fb)
}

// handleStats derives the dashboard counters from the store. A sensor is online when
// its farm reported within the online window; model confidence is the mean pest risk
// confidence over farms with stored readings.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	farms, err := s.store.ListFarms(ctx)
	if err != nil {
		s.internalError(w, "failed to list farms", err)
		return
	}
	active, resolved, err := s.store.CountAlerts(ctx)
	if err != nil {
		s.internalError(w, "failed to count alerts", err)
		return
	}
	feedback, err := s.store.ListFeedback(ctx, 0)
	if err != nil {
		s.internalError(w, "failed to list feedback", err)
		return
	}

	stats := models.SystemStats{
		TotalMonitoredFarms: len(farms),
		ActiveAlerts:        active,
		ResolvedAlerts:      resolved,
		FeedbackCount:       len(feedback),
		StartedAt:           metrics.StartedAt(),
	}

	now := s.now()
	var confidence, assessed float64
	for _, f := range farms {
		rd, err := s.store.LatestReading(ctx, f.ID)
		if err != nil {
			if eris.Is(err, database.ErrNotFound) {
				stats.SensorsOffline++
				continue
			}
			s.internalError(w, "failed to load reading", err)
			return
		}
		if now.Sub(rd.Timestamp) <= s.opts.OnlineWindow {
			stats.SensorsOnline++
		} else {
			stats.SensorsOffline++
		}
		confidence += float64(engine.AssessPestRisk(rd.Sample().Reading()).Confidence)
		assessed++
	}
	if assessed > 0 {
		stats.ModelConfidenceScore = math.Round(confidence/assessed*10) / 10
	}
	writeData(w, stats)
}

func (s *Server) handleFeatureImportance(w http.ResponseWriter, r *http.Request) {
	writeData(w, mockdata.FeatureImportance())
}

func (s *Server) handleFarmsReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	farms, err := s.store.ListFarms(ctx)
	if err != nil {
		s.internalError(w, "failed to list farms", err)
		return
	}

	rows := make([]report.FarmRow, 0, len(farms))
	for _, f := range farms {
		sample, _, err := s.latestSample(ctx, f)
		if err != nil {
			s.internalError(w, "failed to sample farm", err)
			return
		}
		reading := sample.Reading()
		rows = append(rows, report.FarmRow{
			Farm:       f,
			Reading:    reading,
			Report:     engine.Assess(reading),
			CropHealth: engine.CalculateCropHealth(reading.NDRE),
		})
	}

	alerts, err := s.store.ListAlerts(ctx, "", 0)
	if err != nil {
		s.internalError(w, "failed to list alerts", err)
		return
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, rows, alerts); err != nil {
		s.internalError(w, "failed to build report", err)
		return
	}

	if u, ok := r.Context().Value(userKey).(models.User); ok {
		s.logger.Info("farms report exported", zap.String("user_id", u.ID), zap.Int("farms", len(rows)))
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="greenorbit-farms.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Warn("failed to write report", zap.Error(err))
	}
}

// intQuery parses a non-negative integer query parameter, writing a 400 on bad input
func intQuery(w http.ResponseWriter, r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, key+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}

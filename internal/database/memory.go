package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"greenorbit/internal/models"
)

const (
	// Readings kept per farm before the oldest are dropped
	maxMemoryReadings = 10000
	// Resolved alerts kept across all farms; active alerts are never dropped
	maxResolvedAlerts = 1000
)

// Memory is an in-process Store. It is the default driver and backs the tests.
type Memory struct {
	mu       sync.RWMutex
	farms    map[string]models.Farm
	order    []string
	readings map[string][]models.Reading
	alerts   []models.Alert
	feedback []models.Feedback
	nextID   int64

	maxResolved int
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-process store
func NewMemory() *Memory {
	return &Memory{
		farms:       make(map[string]models.Farm),
		readings:    make(map[string][]models.Reading),
		maxResolved: maxResolvedAlerts,
	}
}

func (m *Memory) UpsertFarm(_ context.Context, farm models.Farm) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.farms[farm.ID]; !ok {
		m.order = append(m.order, farm.ID)
	}
	m.farms[farm.ID] = farm
	return nil
}

func (m *Memory) ListFarms(_ context.Context) ([]models.Farm, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	farms := make([]models.Farm, 0, len(m.order))
	for _, id := range m.order {
		farms = append(farms, m.farms[id])
	}
	return farms, nil
}

func (m *Memory) GetFarm(_ context.Context, id string) (models.Farm, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	farm, ok := m.farms[id]
	if !ok {
		return models.Farm{}, ErrNotFound
	}
	return farm, nil
}

func (m *Memory) SaveReading(_ context.Context, r models.Reading) (models.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	r.ID = m.nextID

	rows := append(m.readings[r.FarmID], r)
	if len(rows) > maxMemoryReadings {
		rows = rows[len(rows)-maxMemoryReadings:]
	}
	m.readings[r.FarmID] = rows
	return r, nil
}

func (m *Memory) LatestReading(_ context.Context, farmID string) (models.Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := m.readings[farmID]
	if len(rows) == 0 {
		return models.Reading{}, ErrNotFound
	}

	latest := rows[0]
	for _, r := range rows[1:] {
		if !r.Timestamp.Before(latest.Timestamp) {
			latest = r
		}
	}
	return latest, nil
}

func (m *Memory) ListReadings(_ context.Context, farmID string, since time.Time) ([]models.Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Reading
	for _, r := range m.readings[farmID] {
		if !r.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (m *Memory) SyncAlerts(_ context.Context, farmID string, alerts []models.Alert, now time.Time) ([]models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	incoming := make(map[string]models.Alert, len(alerts))
	for _, a := range alerts {
		incoming[a.PestKey] = a
	}

	for i := range m.alerts {
		existing := &m.alerts[i]
		if existing.FarmID != farmID || existing.Status != models.AlertActive {
			continue
		}
		fresh, ok := incoming[existing.PestKey]
		if !ok {
			existing.Status = models.AlertResolved
			continue
		}
		existing.PestName = fresh.PestName
		existing.RiskLevel = fresh.RiskLevel
		existing.Confidence = fresh.Confidence
		existing.TimeWindow = fresh.TimeWindow
		delete(incoming, existing.PestKey)
	}

	// insert in the caller's order
	for _, a := range alerts {
		if _, ok := incoming[a.PestKey]; !ok {
			continue
		}
		a.FarmID = farmID
		a.Status = models.AlertActive
		if a.DetectedDate.IsZero() {
			a.DetectedDate = now
		}
		m.alerts = append(m.alerts, a)
		delete(incoming, a.PestKey)
	}
	m.pruneResolved()

	var active []models.Alert
	for _, a := range m.alerts {
		if a.FarmID == farmID && a.Status == models.AlertActive {
			active = append(active, a)
		}
	}
	return active, nil
}

// pruneResolved drops the oldest resolved alerts past the cap. Caller holds m.mu.
func (m *Memory) pruneResolved() {
	resolved := 0
	for _, a := range m.alerts {
		if a.Status == models.AlertResolved {
			resolved++
		}
	}
	drop := resolved - m.maxResolved
	if m.maxResolved <= 0 || drop <= 0 {
		return
	}

	kept := m.alerts[:0]
	for _, a := range m.alerts {
		if a.Status == models.AlertResolved && drop > 0 {
			drop--
			continue
		}
		kept = append(kept, a)
	}
	m.alerts = kept
}

func (m *Memory) ListAlerts(_ context.Context, farmID string, limit int) ([]models.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Alert, 0)
	for _, a := range m.alerts {
		if farmID == "" || a.FarmID == farmID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DetectedDate.After(out[j].DetectedDate)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) CountAlerts(_ context.Context) (active, resolved int, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.alerts {
		switch a.Status {
		case models.AlertActive:
			active++
		case models.AlertResolved:
			resolved++
		}
	}
	return active, resolved, nil
}

func (m *Memory) SaveFeedback(_ context.Context, fb models.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.feedback = append(m.feedback, fb)
	return nil
}

func (m *Memory) ListFeedback(_ context.Context, limit int) ([]models.Feedback, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Feedback, len(m.feedback))
	copy(out, m.feedback)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Close() error {
	return nil
}

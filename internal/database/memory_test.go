package database

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"greenorbit/internal/config"
	"greenorbit/internal/engine"
	"greenorbit/internal/models"
)

func TestMemory_Farms(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.UpsertFarm(ctx, models.Farm{ID: "FARM-002", Name: "B"}))
	require.NoError(t, m.UpsertFarm(ctx, models.Farm{ID: "FARM-001", Name: "A"}))
	require.NoError(t, m.UpsertFarm(ctx, models.Farm{ID: "FARM-002", Name: "B2"}))

	farms, err := m.ListFarms(ctx)
	require.NoError(t, err)
	require.Len(t, farms, 2)
	assert.Equal(t, "FARM-002", farms[0].ID)
	assert.Equal(t, "B2", farms[0].Name)

	_, err = m.GetFarm(ctx, "FARM-404")
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestMemory_Readings(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	_, err := m.LatestReading(ctx, "FARM-001")
	assert.True(t, eris.Is(err, ErrNotFound))

	for i, offset := range []int{2, 0, 1} {
		saved, err := m.SaveReading(ctx, models.Reading{
			FarmID:      "FARM-001",
			Timestamp:   base.Add(time.Duration(offset) * time.Hour),
			Temperature: float64(20 + offset),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), saved.ID)
	}
	_, err = m.SaveReading(ctx, models.Reading{FarmID: "FARM-002", Timestamp: base})
	require.NoError(t, err)

	latest, err := m.LatestReading(ctx, "FARM-001")
	require.NoError(t, err)
	assert.Equal(t, 22.0, latest.Temperature)

	rows, err := m.ListReadings(ctx, "FARM-001", base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 21.0, rows[0].Temperature)
	assert.Equal(t, 22.0, rows[1].Temperature)
}

func alert(pest string, level engine.Level, confidence int) models.Alert {
	return models.Alert{ID: "ALERT-" + pest, PestKey: pest, PestName: pest, RiskLevel: level, Confidence: confidence}
}

func TestMemory_SyncAlerts(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	day1 := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	active, err := m.SyncAlerts(ctx, "FARM-001", []models.Alert{
		alert("FAW", engine.VeryHigh, 75),
		alert("THRIPS", engine.Moderate, 50),
	}, day1)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, day1, active[0].DetectedDate)
	assert.Equal(t, models.AlertActive, active[0].Status)
	assert.Equal(t, "FARM-001", active[0].FarmID)

	second := alert("FAW", engine.High, 60)
	second.ID = "ALERT-other"
	active, err = m.SyncAlerts(ctx, "FARM-001", []models.Alert{second, alert("APHIDS", engine.Moderate, 40)}, day2)
	require.NoError(t, err)
	require.Len(t, active, 2)

	byPest := map[string]models.Alert{}
	for _, a := range active {
		byPest[a.PestKey] = a
	}
	assert.Equal(t, "ALERT-FAW", byPest["FAW"].ID, "refreshed alert keeps its id")
	assert.Equal(t, day1, byPest["FAW"].DetectedDate)
	assert.Equal(t, engine.High, byPest["FAW"].RiskLevel)
	assert.Equal(t, 60, byPest["FAW"].Confidence)
	assert.Equal(t, day2, byPest["APHIDS"].DetectedDate)

	activeCount, resolvedCount, err := m.CountAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, activeCount)
	assert.Equal(t, 1, resolvedCount)

	all, err := m.ListAlerts(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "APHIDS", all[0].PestKey)

	limited, err := m.ListAlerts(ctx, "FARM-001", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := m.ListAlerts(ctx, "FARM-002", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)
}

func TestMemory_SyncAlerts_IsolatesFarms(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now()

	_, err := m.SyncAlerts(ctx, "FARM-001", []models.Alert{alert("FAW", engine.High, 60)}, now)
	require.NoError(t, err)
	_, err = m.SyncAlerts(ctx, "FARM-002", nil, now)
	require.NoError(t, err)

	active, _, err := m.CountAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, active)
}

func TestMemory_SyncAlerts_CapsResolved(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.maxResolved = 2
	base := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)

	for day := 0; day < 4; day++ {
		now := base.Add(time.Duration(day) * 24 * time.Hour)
		_, err := m.SyncAlerts(ctx, "FARM-001", []models.Alert{alert("FAW", engine.High, 60)}, now)
		require.NoError(t, err)
		_, err = m.SyncAlerts(ctx, "FARM-001", nil, now)
		require.NoError(t, err)
	}
	_, err := m.SyncAlerts(ctx, "FARM-002", []models.Alert{alert("THRIPS", engine.Moderate, 40)}, base)
	require.NoError(t, err)

	active, resolved, err := m.CountAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, active)
	assert.Equal(t, 2, resolved)

	kept, err := m.ListAlerts(ctx, "FARM-001", 0)
	require.NoError(t, err)
	require.Len(t, kept, 2)
	assert.Equal(t, base.Add(72*time.Hour), kept[0].DetectedDate)
	assert.Equal(t, base.Add(48*time.Hour), kept[1].DetectedDate)
}

func TestMemory_Feedback(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now()

	require.NoError(t, m.SaveFeedback(ctx, models.Feedback{ID: "FB-1", Timestamp: now.Add(-time.Hour)}))
	require.NoError(t, m.SaveFeedback(ctx, models.Feedback{ID: "FB-2", Timestamp: now}))

	fb, err := m.ListFeedback(ctx, 0)
	require.NoError(t, err)
	require.Len(t, fb, 2)
	assert.Equal(t, "FB-2", fb[0].ID)

	fb, err = m.ListFeedback(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, fb, 1)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, &config.Config{Storage: config.StorageConfig{Driver: config.DriverMemory}}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)
	assert.NoError(t, s.Close())

	_, err = Open(ctx, &config.Config{Storage: config.StorageConfig{Driver: "sqlite"}}, zap.NewNop())
	assert.Error(t, err)
}

func TestSeedFarms(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, SeedFarms(ctx, m, []models.Farm{{ID: "FARM-001"}, {ID: "FARM-002"}}))

	farms, err := m.ListFarms(ctx)
	require.NoError(t, err)
	assert.Len(t, farms, 2)
}

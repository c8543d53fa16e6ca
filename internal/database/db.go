package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"greenorbit/internal/engine"
	"greenorbit/internal/metrics"
	"greenorbit/internal/models"
)

// DB is the MySQL Store
type DB struct {
	conn   *sql.DB
	logger *zap.Logger
}

var _ Store = (*DB)(nil)

// NewDB creates a new database connection and initializes the schema
// dsn format: "username:password@tcp(host:port)/dbname?parseTime=true"
// example: "user:pass@tcp(localhost:3306)/greenorbit?parseTime=true"
func NewDB(ctx context.Context, dsn string, logger *zap.Logger) (*DB, error) {
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "database: open")
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, eris.Wrap(err, "database: ping")
	}

	// Configure connection pool
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, logger: logger}

	if err := db.initSchema(ctx); err != nil {
		conn.Close()
		return nil, eris.Wrap(err, "database: initialize schema")
	}

	return db, nil
}

// MySQL doesn't support multiple statements in one Exec
var schema = []string{
	`CREATE TABLE IF NOT EXISTS farms (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		latitude DOUBLE NOT NULL,
		longitude DOUBLE NOT NULL,
		crop_type VARCHAR(100) NOT NULL DEFAULT '',
		crop_stage VARCHAR(100) NOT NULL DEFAULT '',
		area DOUBLE NOT NULL DEFAULT 0
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS readings (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		farm_id VARCHAR(64) NOT NULL,
		timestamp DATETIME(6) NOT NULL,
		ndre DOUBLE NOT NULL,
		ndvi DOUBLE NOT NULL,
		ndwi DOUBLE NOT NULL,
		soil_moisture DOUBLE NOT NULL,
		temperature DOUBLE NOT NULL,
		humidity DOUBLE NOT NULL,
		source VARCHAR(100) NOT NULL DEFAULT '',
		INDEX idx_readings_farm_time (farm_id, timestamp)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS alerts (
		id VARCHAR(64) PRIMARY KEY,
		farm_id VARCHAR(64) NOT NULL,
		pest_key VARCHAR(64) NOT NULL,
		pest_name VARCHAR(255) NOT NULL,
		risk_level VARCHAR(32) NOT NULL,
		confidence INT NOT NULL,
		time_window VARCHAR(64) NOT NULL,
		detected_date DATETIME(6) NOT NULL,
		status VARCHAR(16) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		INDEX idx_alerts_farm_status (farm_id, status),
		INDEX idx_alerts_detected (detected_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS feedback (
		id VARCHAR(64) PRIMARY KEY,
		farm_id VARCHAR(64) NOT NULL,
		alert_id VARCHAR(64) NOT NULL DEFAULT '',
		timestamp DATETIME(6) NOT NULL,
		pest_confirmed BOOLEAN NOT NULL,
		observations TEXT NOT NULL,
		control_measures TEXT NOT NULL,
		INDEX idx_feedback_timestamp (timestamp)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

func (db *DB) initSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return eris.Wrap(err, "database: execute schema statement")
		}
	}
	return nil
}

func (db *DB) updateStats() {
	stats := db.conn.Stats()
	metrics.UpdateDBConnectionStats(stats.OpenConnections, stats.InUse, stats.Idle)
}

func (db *DB) UpsertFarm(ctx context.Context, farm models.Farm) error {
	queryStart := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO farms (id, name, latitude, longitude, crop_type, crop_stage, area) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE name = VALUES(name), latitude = VALUES(latitude), longitude = VALUES(longitude),
		crop_type = VALUES(crop_type), crop_stage = VALUES(crop_stage), area = VALUES(area)`,
		farm.ID, farm.Name, farm.Location.Latitude, farm.Location.Longitude, farm.CropType, farm.CropStage, farm.AreaMeasure)
	metrics.RecordDBQuery("UPSERT", "farms", time.Since(queryStart), err)
	if err != nil {
		return eris.Wrapf(err, "database: upsert farm %s", farm.ID)
	}
	return nil
}

func (db *DB) ListFarms(ctx context.Context) ([]models.Farm, error) {
	queryStart := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, latitude, longitude, crop_type, crop_stage, area FROM farms ORDER BY id`)
	metrics.RecordDBQuery("SELECT", "farms", time.Since(queryStart), err)
	if err != nil {
		return nil, eris.Wrap(err, "database: query farms")
	}
	defer rows.Close()

	var farms []models.Farm
	for rows.Next() {
		f, err := scanFarm(rows)
		if err != nil {
			return nil, err
		}
		farms = append(farms, f)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "database: iterate farms")
	}
	return farms, nil
}

func (db *DB) GetFarm(ctx context.Context, id string) (models.Farm, error) {
	queryStart := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, name, latitude, longitude, crop_type, crop_stage, area FROM farms WHERE id = ? LIMIT 1`, id)
	f, err := scanFarm(row)
	metrics.RecordDBQuery("SELECT", "farms", time.Since(queryStart), ignoreNotFound(err))
	return f, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFarm(s scanner) (models.Farm, error) {
	var f models.Farm
	err := s.Scan(&f.ID, &f.Name, &f.Location.Latitude, &f.Location.Longitude, &f.CropType, &f.CropStage, &f.AreaMeasure)
	if err == sql.ErrNoRows {
		return f, ErrNotFound
	}
	if err != nil {
		return f, eris.Wrap(err, "database: scan farm")
	}
	return f, nil
}

func (db *DB) SaveReading(ctx context.Context, r models.Reading) (models.Reading, error) {
	defer db.updateStats()

	queryStart := time.Now()
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO readings (farm_id, timestamp, ndre, ndvi, ndwi, soil_moisture, temperature, humidity, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.FarmID, r.Timestamp.UTC(), r.NDRE, r.NDVI, r.NDWI, r.SoilMoisture, r.Temperature, r.Humidity, r.Source)
	metrics.RecordDBQuery("INSERT", "readings", time.Since(queryStart), err)
	if err != nil {
		return r, eris.Wrapf(err, "database: insert reading for %s", r.FarmID)
	}

	if id, err := res.LastInsertId(); err == nil {
		r.ID = id
	}
	return r, nil
}

const readingColumns = `id, farm_id, timestamp, ndre, ndvi, ndwi, soil_moisture, temperature, humidity, source`

func scanReading(s scanner) (models.Reading, error) {
	var r models.Reading
	err := s.Scan(&r.ID, &r.FarmID, &r.Timestamp, &r.NDRE, &r.NDVI, &r.NDWI, &r.SoilMoisture, &r.Temperature, &r.Humidity, &r.Source)
	if err == sql.ErrNoRows {
		return r, ErrNotFound
	}
	if err != nil {
		return r, eris.Wrap(err, "database: scan reading")
	}
	return r, nil
}

func (db *DB) LatestReading(ctx context.Context, farmID string) (models.Reading, error) {
	queryStart := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+readingColumns+` FROM readings WHERE farm_id = ? ORDER BY timestamp DESC, id DESC LIMIT 1`, farmID)
	r, err := scanReading(row)
	metrics.RecordDBQuery("SELECT", "readings", time.Since(queryStart), ignoreNotFound(err))
	return r, err
}

func (db *DB) ListReadings(ctx context.Context, farmID string, since time.Time) ([]models.Reading, error) {
	queryStart := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+readingColumns+` FROM readings WHERE farm_id = ? AND timestamp >= ? ORDER BY timestamp ASC`,
		farmID, since.UTC())
	metrics.RecordDBQuery("SELECT", "readings", time.Since(queryStart), err)
	if err != nil {
		return nil, eris.Wrapf(err, "database: query readings for %s", farmID)
	}
	defer rows.Close()

	var readings []models.Reading
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "database: iterate readings")
	}
	return readings, nil
}

func (db *DB) SyncAlerts(ctx context.Context, farmID string, alerts []models.Alert, now time.Time) ([]models.Alert, error) {
	defer db.updateStats()
	queryStart := time.Now()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "database: begin transaction")
	}
	defer tx.Rollback() // Will be ignored if committed

	rows, err := tx.QueryContext(ctx,
		`SELECT id, pest_key FROM alerts WHERE farm_id = ? AND status = ? FOR UPDATE`, farmID, models.AlertActive)
	if err != nil {
		return nil, eris.Wrap(err, "database: lock active alerts")
	}
	existing := make(map[string]string)
	for rows.Next() {
		var id, pestKey string
		if err := rows.Scan(&id, &pestKey); err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "database: scan active alert")
		}
		existing[pestKey] = id
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "database: iterate active alerts")
	}

	for _, a := range alerts {
		if id, ok := existing[a.PestKey]; ok {
			_, err = tx.ExecContext(ctx,
				`UPDATE alerts SET pest_name = ?, risk_level = ?, confidence = ?, time_window = ?, updated_at = ? WHERE id = ?`,
				a.PestName, string(a.RiskLevel), a.Confidence, a.TimeWindow, now.UTC(), id)
			delete(existing, a.PestKey)
		} else {
			detected := a.DetectedDate
			if detected.IsZero() {
				detected = now
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO alerts (id, farm_id, pest_key, pest_name, risk_level, confidence, time_window, detected_date, status, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				a.ID, farmID, a.PestKey, a.PestName, string(a.RiskLevel), a.Confidence, a.TimeWindow, detected.UTC(), models.AlertActive, now.UTC())
		}
		if err != nil {
			return nil, eris.Wrapf(err, "database: write alert %s for %s", a.PestKey, farmID)
		}
	}

	for _, id := range existing {
		if _, err := tx.ExecContext(ctx,
			`UPDATE alerts SET status = ?, updated_at = ? WHERE id = ?`, models.AlertResolved, now.UTC(), id); err != nil {
			return nil, eris.Wrapf(err, "database: resolve alert %s", id)
		}
	}

	err = tx.Commit()
	metrics.RecordDBQuery("SYNC", "alerts", time.Since(queryStart), err)
	if err != nil {
		return nil, eris.Wrap(err, "database: commit alerts")
	}

	if len(existing) > 0 {
		db.logger.Debug("resolved alerts", zap.String("farm_id", farmID), zap.Int("count", len(existing)))
	}

	return db.queryAlerts(ctx, `WHERE farm_id = ? AND status = ? ORDER BY detected_date DESC`, farmID, models.AlertActive)
}

func (db *DB) ListAlerts(ctx context.Context, farmID string, limit int) ([]models.Alert, error) {
	var where []string
	var args []any
	if farmID != "" {
		where = append(where, "farm_id = ?")
		args = append(args, farmID)
	}

	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}
	clause += " ORDER BY detected_date DESC"
	if limit > 0 {
		clause += " LIMIT ?"
		args = append(args, limit)
	}

	return db.queryAlerts(ctx, clause, args...)
}

func (db *DB) queryAlerts(ctx context.Context, clause string, args ...any) ([]models.Alert, error) {
	queryStart := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, farm_id, pest_key, pest_name, risk_level, confidence, time_window, detected_date, status FROM alerts `+clause,
		args...)
	metrics.RecordDBQuery("SELECT", "alerts", time.Since(queryStart), err)
	if err != nil {
		return nil, eris.Wrap(err, "database: query alerts")
	}
	defer rows.Close()

	alerts := make([]models.Alert, 0)
	for rows.Next() {
		var a models.Alert
		var level string
		if err := rows.Scan(&a.ID, &a.FarmID, &a.PestKey, &a.PestName, &level, &a.Confidence, &a.TimeWindow, &a.DetectedDate, &a.Status); err != nil {
			return nil, eris.Wrap(err, "database: scan alert")
		}
		a.RiskLevel = engine.Level(level)
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "database: iterate alerts")
	}
	return alerts, nil
}

func (db *DB) CountAlerts(ctx context.Context) (active, resolved int, err error) {
	queryStart := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(status = ?), 0), COALESCE(SUM(status = ?), 0) FROM alerts`,
		models.AlertActive, models.AlertResolved)
	err = row.Scan(&active, &resolved)
	metrics.RecordDBQuery("SELECT", "alerts", time.Since(queryStart), err)
	if err != nil {
		return 0, 0, eris.Wrap(err, "database: count alerts")
	}
	return active, resolved, nil
}

func (db *DB) SaveFeedback(ctx context.Context, fb models.Feedback) error {
	queryStart := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO feedback (id, farm_id, alert_id, timestamp, pest_confirmed, observations, control_measures)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		fb.ID, fb.FarmID, fb.AlertID, fb.Timestamp.UTC(), fb.PestConfirmed, fb.Observations, fb.ControlMeasuresTaken)
	metrics.RecordDBQuery("INSERT", "feedback", time.Since(queryStart), err)
	if err != nil {
		return eris.Wrapf(err, "database: insert feedback %s", fb.ID)
	}
	return nil
}

func (db *DB) ListFeedback(ctx context.Context, limit int) ([]models.Feedback, error) {
	query := `SELECT id, farm_id, alert_id, timestamp, pest_confirmed, observations, control_measures FROM feedback ORDER BY timestamp DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	queryStart := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("SELECT", "feedback", time.Since(queryStart), err)
	if err != nil {
		return nil, eris.Wrap(err, "database: query feedback")
	}
	defer rows.Close()

	feedback := make([]models.Feedback, 0)
	for rows.Next() {
		var fb models.Feedback
		if err := rows.Scan(&fb.ID, &fb.FarmID, &fb.AlertID, &fb.Timestamp, &fb.PestConfirmed, &fb.Observations, &fb.ControlMeasuresTaken); err != nil {
			return nil, eris.Wrap(err, "database: scan feedback")
		}
		feedback = append(feedback, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "database: iterate feedback")
	}
	return feedback, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

func ignoreNotFound(err error) error {
	if eris.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

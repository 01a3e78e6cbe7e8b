// Package store provides SQLite persistence for homepulse telemetry.
//
// The analytics layer treats this package as an opaque time-series store:
// append-only samples in, ordered result sets out. The only ordering
// guarantee is ascending timestamps per entity+family.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/homepulse/homepulse/internal/model"
	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database for homepulse data persistence.
type Store struct {
	db *sql.DB
}

// New opens or creates a SQLite database at the given path and runs migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", dbPath, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertSample records a single scalar sample.
func (s *Store) InsertSample(sample model.Sample) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO samples (ts, family, entity, value)
		VALUES (?, ?, ?, ?)`,
		sample.Timestamp, sample.Family, sample.Entity, sample.Value,
	)
	if err != nil {
		return fmt.Errorf("inserting sample %s/%s: %w", sample.Family, sample.Entity, err)
	}
	return nil
}

// InsertSamples records a batch of samples in a single transaction.
func (s *Store) InsertSamples(samples []model.Sample) error {
	if len(samples) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning sample batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO samples (ts, family, entity, value)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing sample insert: %w", err)
	}
	defer stmt.Close()

	for _, sample := range samples {
		if _, err := stmt.Exec(sample.Timestamp, sample.Family, sample.Entity, sample.Value); err != nil {
			return fmt.Errorf("inserting sample %s/%s: %w", sample.Family, sample.Entity, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing sample batch: %w", err)
	}
	return nil
}

// InsertSMARTSample records a per-disk SMART reading.
func (s *Store) InsertSMARTSample(sm model.SMARTSample) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO smart_samples
		(ts, disk, temperature, reallocated, pending, power_on_hours, health)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sm.Timestamp, sm.Disk, sm.Temperature, sm.Reallocated,
		sm.Pending, sm.PowerOnHours, sm.Health,
	)
	if err != nil {
		return fmt.Errorf("inserting SMART sample for %s: %w", sm.Disk, err)
	}
	return nil
}

// QuerySamples returns samples for a family since the given timestamp,
// ordered by timestamp ascending. An empty entity matches all entities.
// The disk_temperature family is backed by the SMART table so callers
// have one query path for every family.
func (s *Store) QuerySamples(family, entity string, since int64) ([]model.Sample, error) {
	if family == model.FamilyDiskTemperature {
		return s.queryDiskTemperature(entity, since)
	}

	query := `SELECT ts, family, entity, value FROM samples WHERE family = ? AND ts >= ?`
	args := []any{family, since}
	if entity != "" {
		query += ` AND entity = ?`
		args = append(args, entity)
	}
	query += ` ORDER BY ts ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying samples %s: %w", family, err)
	}
	defer rows.Close()

	var samples []model.Sample
	for rows.Next() {
		var sm model.Sample
		if err := rows.Scan(&sm.Timestamp, &sm.Family, &sm.Entity, &sm.Value); err != nil {
			return nil, fmt.Errorf("scanning sample: %w", err)
		}
		samples = append(samples, sm)
	}
	return samples, rows.Err()
}

func (s *Store) queryDiskTemperature(disk string, since int64) ([]model.Sample, error) {
	query := `SELECT ts, disk, temperature FROM smart_samples WHERE ts >= ?`
	args := []any{since}
	if disk != "" {
		query += ` AND disk = ?`
		args = append(args, disk)
	}
	query += ` ORDER BY ts ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying disk temperatures: %w", err)
	}
	defer rows.Close()

	var samples []model.Sample
	for rows.Next() {
		var sm model.Sample
		var temp int
		if err := rows.Scan(&sm.Timestamp, &sm.Entity, &temp); err != nil {
			return nil, fmt.Errorf("scanning disk temperature: %w", err)
		}
		sm.Family = model.FamilyDiskTemperature
		sm.Value = float64(temp)
		samples = append(samples, sm)
	}
	return samples, rows.Err()
}

// QueryLatest returns the most recent sample for a family, or nil when
// none exists. An empty entity matches all entities.
func (s *Store) QueryLatest(family, entity string) (*model.Sample, error) {
	query := `SELECT ts, family, entity, value FROM samples WHERE family = ?`
	args := []any{family}
	if entity != "" {
		query += ` AND entity = ?`
		args = append(args, entity)
	}
	query += ` ORDER BY ts DESC LIMIT 1`

	var sm model.Sample
	err := s.db.QueryRow(query, args...).Scan(&sm.Timestamp, &sm.Family, &sm.Entity, &sm.Value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest %s: %w", family, err)
	}
	return &sm, nil
}

// QueryLatestByEntity returns the most recent in-window sample for each
// entity of a family.
func (s *Store) QueryLatestByEntity(family string, since int64) (map[string]model.Sample, error) {
	rows, err := s.db.Query(`
		SELECT ts, family, entity, value FROM samples
		WHERE family = ? AND ts >= ?
		  AND ts = (SELECT MAX(ts) FROM samples s2
		            WHERE s2.family = samples.family AND s2.entity = samples.entity AND s2.ts >= ?)`,
		family, since, since,
	)
	if err != nil {
		return nil, fmt.Errorf("querying latest per entity %s: %w", family, err)
	}
	defer rows.Close()

	latest := make(map[string]model.Sample)
	for rows.Next() {
		var sm model.Sample
		if err := rows.Scan(&sm.Timestamp, &sm.Family, &sm.Entity, &sm.Value); err != nil {
			return nil, fmt.Errorf("scanning latest sample: %w", err)
		}
		latest[sm.Entity] = sm
	}
	return latest, rows.Err()
}

// QueryDailyAggregate returns one point per calendar day for a family,
// ordered by day ascending. Within a day each entity is averaged first;
// aggFn ("avg", "sum" or "max") then combines entities, so summing byte
// counters across pools does not multiply by the per-day sample count.
// The disk_temperature family aggregates from the SMART table. An empty
// entity matches all entities.
func (s *Store) QueryDailyAggregate(family, entity, aggFn string, since int64) ([]model.DailyPoint, error) {
	var outer string
	switch aggFn {
	case "avg":
		outer = "AVG(v)"
	case "sum":
		outer = "SUM(v)"
	case "max":
		outer = "MAX(v)"
	default:
		return nil, fmt.Errorf("unknown aggregate %q", aggFn)
	}

	var inner string
	var args []any
	if family == model.FamilyDiskTemperature {
		inner = `SELECT date(ts, 'unixepoch') AS day, disk AS entity, AVG(temperature) AS v
		         FROM smart_samples WHERE ts >= ?`
		args = []any{since}
		if entity != "" {
			inner += ` AND disk = ?`
			args = append(args, entity)
		}
	} else {
		inner = `SELECT date(ts, 'unixepoch') AS day, entity, AVG(value) AS v
		         FROM samples WHERE family = ? AND ts >= ?`
		args = []any{family, since}
		if entity != "" {
			inner += ` AND entity = ?`
			args = append(args, entity)
		}
	}
	inner += ` GROUP BY day, entity`

	query := fmt.Sprintf(`SELECT day, %s FROM (%s) GROUP BY day ORDER BY day ASC`, outer, inner)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying daily aggregate %s: %w", family, err)
	}
	defer rows.Close()

	var points []model.DailyPoint
	for rows.Next() {
		var p model.DailyPoint
		if err := rows.Scan(&p.Day, &p.Value); err != nil {
			return nil, fmt.Errorf("scanning daily point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// QuerySMARTHistory returns SMART readings for a disk since the given
// timestamp, most recent first.
func (s *Store) QuerySMARTHistory(disk string, since int64) ([]model.SMARTSample, error) {
	rows, err := s.db.Query(`
		SELECT ts, disk, temperature, reallocated, pending, power_on_hours, health
		FROM smart_samples
		WHERE disk = ? AND ts >= ?
		ORDER BY ts DESC`, disk, since)
	if err != nil {
		return nil, fmt.Errorf("querying SMART history for %s: %w", disk, err)
	}
	defer rows.Close()

	var history []model.SMARTSample
	for rows.Next() {
		var sm model.SMARTSample
		if err := rows.Scan(&sm.Timestamp, &sm.Disk, &sm.Temperature, &sm.Reallocated,
			&sm.Pending, &sm.PowerOnHours, &sm.Health); err != nil {
			return nil, fmt.Errorf("scanning SMART sample: %w", err)
		}
		history = append(history, sm)
	}
	return history, rows.Err()
}

// QueryLatestSMARTByDisk returns the most recent in-window SMART reading
// for each disk.
func (s *Store) QueryLatestSMARTByDisk(since int64) ([]model.SMARTSample, error) {
	rows, err := s.db.Query(`
		SELECT ts, disk, temperature, reallocated, pending, power_on_hours, health
		FROM smart_samples
		WHERE ts >= ?
		  AND ts = (SELECT MAX(ts) FROM smart_samples s2
		            WHERE s2.disk = smart_samples.disk AND s2.ts >= ?)
		ORDER BY disk ASC`, since, since)
	if err != nil {
		return nil, fmt.Errorf("querying latest SMART per disk: %w", err)
	}
	defer rows.Close()

	var latest []model.SMARTSample
	for rows.Next() {
		var sm model.SMARTSample
		if err := rows.Scan(&sm.Timestamp, &sm.Disk, &sm.Temperature, &sm.Reallocated,
			&sm.Pending, &sm.PowerOnHours, &sm.Health); err != nil {
			return nil, fmt.Errorf("scanning SMART sample: %w", err)
		}
		latest = append(latest, sm)
	}
	return latest, rows.Err()
}

// AppendDiskPrediction records a disk failure prediction as a new audit
// row. Prior predictions are never updated or deleted here.
func (s *Store) AppendDiskPrediction(p model.DiskFailurePrediction) error {
	factorsJSON, err := json.Marshal(p.Factors)
	if err != nil {
		return fmt.Errorf("marshaling prediction factors: %w", err)
	}

	var days *int
	if p.DaysUntilFailure != nil {
		d := *p.DaysUntilFailure
		days = &d
	}
	_, err = s.db.Exec(`
		INSERT INTO disk_predictions
		(ts, disk, failure_probability, days_until_failure, confidence, factors_json, recommended_action)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Timestamp, p.Disk, p.FailureProbability, days, p.Confidence,
		string(factorsJSON), p.RecommendedAction,
	)
	if err != nil {
		return fmt.Errorf("appending disk prediction for %s: %w", p.Disk, err)
	}
	return nil
}

// QueryDiskPredictions returns up to limit audit rows for a disk, most
// recent first.
func (s *Store) QueryDiskPredictions(disk string, limit int) ([]model.DiskFailurePrediction, error) {
	rows, err := s.db.Query(`
		SELECT ts, disk, failure_probability, days_until_failure, confidence, factors_json, recommended_action
		FROM disk_predictions
		WHERE disk = ?
		ORDER BY ts DESC, id DESC
		LIMIT ?`, disk, limit)
	if err != nil {
		return nil, fmt.Errorf("querying disk predictions for %s: %w", disk, err)
	}
	defer rows.Close()

	var predictions []model.DiskFailurePrediction
	for rows.Next() {
		var p model.DiskFailurePrediction
		var days sql.NullInt64
		var factorsJSON string
		if err := rows.Scan(&p.Timestamp, &p.Disk, &p.FailureProbability, &days,
			&p.Confidence, &factorsJSON, &p.RecommendedAction); err != nil {
			return nil, fmt.Errorf("scanning disk prediction: %w", err)
		}
		if days.Valid {
			d := int(days.Int64)
			p.DaysUntilFailure = &d
		}
		if err := json.Unmarshal([]byte(factorsJSON), &p.Factors); err != nil {
			return nil, fmt.Errorf("unmarshaling prediction factors: %w", err)
		}
		predictions = append(predictions, p)
	}
	return predictions, rows.Err()
}

// InsertAlert logs a fired alert.
func (s *Store) InsertAlert(ts int64, alertType, subject, message, severity string) error {
	_, err := s.db.Exec(`
		INSERT INTO alert_log (ts, alert_type, subject, message, severity)
		VALUES (?, ?, ?, ?, ?)`,
		ts, alertType, subject, message, severity,
	)
	if err != nil {
		return fmt.Errorf("inserting alert: %w", err)
	}
	return nil
}

// CountSamples reports the total number of stored samples. Used by the
// health endpoint.
func (s *Store) CountSamples() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM samples`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting samples: %w", err)
	}
	return n, nil
}

// CountAlerts reports the total number of logged alerts.
func (s *Store) CountAlerts() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM alert_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting alerts: %w", err)
	}
	return n, nil
}

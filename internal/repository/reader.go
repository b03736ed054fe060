package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"metrics-monitor/internal/domain"
	"metrics-monitor/internal/telemetry"
	"metrics-monitor/internal/util"
)

const (
	DefaultRangeWindow     = 24 * time.Hour
	DefaultAggregateWindow = 7 * 24 * time.Hour
	DefaultSnapshotLimit   = 100
)

// window turns opts into inclusive string bounds. Missing bounds are taken
// relative to the store clock.
func (s *SQLiteStore) window(opts domain.RangeOptions, span time.Duration) (string, string) {
	now := s.clock.Now()
	start, end := opts.Start, opts.End
	if start.IsZero() {
		start = now.Add(-span)
	}
	if end.IsZero() {
		end = now
	}
	return domain.FormatTimestamp(start), domain.FormatTimestamp(end)
}

func pageArgs(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *SQLiteStore) readFailed(operation string, err error) {
	telemetry.QueryErrorsTotal.WithLabelValues(operation).Inc()
	s.logger.LogEvent(util.LOG_LEVEL_ERROR, "error running", operation, "query:", err)
}

// RangeQuery returns the facts of deviceName/metricName inside the inclusive
// window, oldest first, with limit and offset applied after ordering. On
// failure the result is empty and the error is returned as well as logged.
func (s *SQLiteStore) RangeQuery(ctx context.Context, deviceName, metricName string, opts domain.RangeOptions) ([]domain.Point, error) {
	start, end := s.window(opts, DefaultRangeWindow)
	limit, offset := pageArgs(opts.Limit, opts.Offset)

	deviceID, metricID, err := s.lookupPair(ctx, deviceName, metricName)
	if err != nil {
		s.readFailed("range_query", err)
		return []domain.Point{}, err
	}

	points := []domain.Point{}
	err = s.withReadTx(ctx, "range_query", func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT timestamp, value FROM device_metrics
			WHERE device_id = ? AND metric_id = ? AND timestamp >= ? AND timestamp <= ?
			ORDER BY timestamp ASC, id ASC
			LIMIT ? OFFSET ?`, deviceID, metricID, start, end, limit, offset)
		if err != nil {
			return fmt.Errorf("error querying database: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var p domain.Point
			if err := rows.Scan(&p.Timestamp, &p.Value); err != nil {
				return fmt.Errorf("error scanning row: %w", err)
			}
			points = append(points, p)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error during rows iteration: %w", err)
		}
		return nil
	})
	if err != nil {
		s.readFailed("range_query", err)
		return []domain.Point{}, err
	}
	return points, nil
}

// AggregateQuery groups the facts in the window by interval bucket and
// returns avg/min/max/count per non-empty bucket in ascending bucket order.
func (s *SQLiteStore) AggregateQuery(ctx context.Context, deviceName, metricName string, interval domain.Interval, opts domain.RangeOptions) ([]domain.Bucket, error) {
	start, end := s.window(opts, DefaultAggregateWindow)
	limit, offset := pageArgs(opts.Limit, opts.Offset)
	interval = domain.ParseInterval(string(interval))

	deviceID, metricID, err := s.lookupPair(ctx, deviceName, metricName)
	if err != nil {
		s.readFailed("aggregate_query", err)
		return []domain.Bucket{}, err
	}

	buckets := []domain.Bucket{}
	err = s.withReadTx(ctx, "aggregate_query", func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT time_bucket(?, timestamp) AS bucket,
				AVG(value), MIN(value), MAX(value), COUNT(*)
			FROM device_metrics
			WHERE device_id = ? AND metric_id = ? AND timestamp >= ? AND timestamp <= ?
			GROUP BY bucket
			ORDER BY bucket ASC
			LIMIT ? OFFSET ?`, string(interval), deviceID, metricID, start, end, limit, offset)
		if err != nil {
			return fmt.Errorf("error querying database: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var b domain.Bucket
			if err := rows.Scan(&b.TimeBucket, &b.AvgValue, &b.MinValue, &b.MaxValue, &b.Count); err != nil {
				return fmt.Errorf("error scanning row: %w", err)
			}
			buckets = append(buckets, b)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error during rows iteration: %w", err)
		}
		return nil
	})
	if err != nil {
		s.readFailed("aggregate_query", err)
		return []domain.Bucket{}, err
	}
	return buckets, nil
}

func (s *SQLiteStore) lookupPair(ctx context.Context, deviceName, metricName string) (int64, int64, error) {
	deviceID, err := s.lookup(ctx, deviceTable, deviceName)
	if err != nil {
		return 0, 0, fmt.Errorf("error resolving device: %w", err)
	}
	metricID, err := s.lookup(ctx, metricTable, metricName)
	if err != nil {
		return 0, 0, fmt.Errorf("error resolving metric: %w", err)
	}
	return deviceID, metricID, nil
}

func (s *SQLiteStore) ListDevices(ctx context.Context) ([]domain.Device, error) {
	devices := []domain.Device{}
	if s.readDB == nil {
		return devices, ErrStoreNotInitialized
	}

	rows, err := s.readDB.QueryContext(ctx, `SELECT device_id, device_name, device_type, created_at FROM devices ORDER BY device_name`)
	if err != nil {
		s.readFailed("list_devices", err)
		return devices, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d domain.Device
		if err := rows.Scan(&d.ID, &d.Name, &d.Type, &d.CreatedAt); err != nil {
			s.readFailed("list_devices", err)
			return []domain.Device{}, fmt.Errorf("error scanning row: %w", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		s.readFailed("list_devices", err)
		return []domain.Device{}, fmt.Errorf("error during rows iteration: %w", err)
	}
	return devices, nil
}

func (s *SQLiteStore) ListMetrics(ctx context.Context) ([]domain.Metric, error) {
	metrics := []domain.Metric{}
	if s.readDB == nil {
		return metrics, ErrStoreNotInitialized
	}

	rows, err := s.readDB.QueryContext(ctx, `SELECT metric_id, metric_name, metric_type, unit, created_at FROM metrics ORDER BY metric_name`)
	if err != nil {
		s.readFailed("list_metrics", err)
		return metrics, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m domain.Metric
		if err := rows.Scan(&m.ID, &m.Name, &m.Type, &m.Unit, &m.CreatedAt); err != nil {
			s.readFailed("list_metrics", err)
			return []domain.Metric{}, fmt.Errorf("error scanning row: %w", err)
		}
		metrics = append(metrics, m)
	}
	if err := rows.Err(); err != nil {
		s.readFailed("list_metrics", err)
		return []domain.Metric{}, fmt.Errorf("error during rows iteration: %w", err)
	}
	return metrics, nil
}

// ListInstrumentSymbols returns the symbols of every Stock-* device, sorted.
func (s *SQLiteStore) ListInstrumentSymbols(ctx context.Context) ([]string, error) {
	symbols := []string{}
	if s.readDB == nil {
		return symbols, ErrStoreNotInitialized
	}

	rows, err := s.readDB.QueryContext(ctx, `SELECT device_name FROM devices WHERE device_name GLOB ? ORDER BY device_name`,
		domain.InstrumentDevicePrefix+"*")
	if err != nil {
		s.readFailed("list_symbols", err)
		return symbols, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			s.readFailed("list_symbols", err)
			return []string{}, fmt.Errorf("error scanning row: %w", err)
		}
		if symbol, ok := domain.SymbolFromDevice(name); ok && symbol != "" {
			symbols = append(symbols, symbol)
		}
	}
	if err := rows.Err(); err != nil {
		s.readFailed("list_symbols", err)
		return []string{}, fmt.Errorf("error during rows iteration: %w", err)
	}
	return symbols, nil
}

// LatestSnapshots returns the newest limit distinct timestamps stored for
// deviceName, newest first, each with all of its values keyed by
// domain.MetricKey.
func (s *SQLiteStore) LatestSnapshots(ctx context.Context, deviceName string, limit int) ([]domain.SnapshotRow, error) {
	if limit <= 0 {
		limit = DefaultSnapshotLimit
	}

	deviceID, err := s.lookup(ctx, deviceTable, deviceName)
	if err != nil {
		err = fmt.Errorf("error resolving device: %w", err)
		s.readFailed("latest_snapshots", err)
		return []domain.SnapshotRow{}, err
	}

	snapshots := []domain.SnapshotRow{}
	err = s.withReadTx(ctx, "latest_snapshots", func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT dm.timestamp, m.metric_name, dm.value
			FROM device_metrics dm
			JOIN metrics m ON m.metric_id = dm.metric_id
			WHERE dm.device_id = ? AND dm.timestamp IN (
				SELECT DISTINCT timestamp FROM device_metrics
				WHERE device_id = ?
				ORDER BY timestamp DESC
				LIMIT ?)
			ORDER BY dm.timestamp DESC, dm.id ASC`, deviceID, deviceID, limit)
		if err != nil {
			return fmt.Errorf("error querying database: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				ts, name string
				value    float64
			)
			if err := rows.Scan(&ts, &name, &value); err != nil {
				return fmt.Errorf("error scanning row: %w", err)
			}
			if n := len(snapshots); n == 0 || snapshots[n-1].Timestamp != ts {
				snapshots = append(snapshots, domain.SnapshotRow{Timestamp: ts, Values: map[string]float64{}})
			}
			snapshots[len(snapshots)-1].Values[domain.MetricKey(name)] = value
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error during rows iteration: %w", err)
		}
		return nil
	})
	if err != nil {
		s.readFailed("latest_snapshots", err)
		return []domain.SnapshotRow{}, err
	}
	return snapshots, nil
}

// LatestValue reports the most recent value of deviceName/metricName. The
// bool is false when nothing has been stored yet.
func (s *SQLiteStore) LatestValue(ctx context.Context, deviceName, metricName string) (float64, bool, error) {
	var (
		value float64
		found bool
	)
	deviceID, metricID, err := s.lookupPair(ctx, deviceName, metricName)
	if err != nil {
		s.readFailed("latest_value", err)
		return 0, false, err
	}

	err = s.withReadTx(ctx, "latest_value", func(ctx context.Context, tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `SELECT value FROM device_metrics
			WHERE device_id = ? AND metric_id = ?
			ORDER BY timestamp DESC, id DESC
			LIMIT 1`, deviceID, metricID).Scan(&value)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error querying database: %w", err)
		}
		found = true
		return nil
	})
	if err != nil {
		s.readFailed("latest_value", err)
		return 0, false, err
	}
	return value, found, nil
}

// RecentFacts lists the newest facts across all devices, newest first.
func (s *SQLiteStore) RecentFacts(ctx context.Context, limit int) ([]domain.FactRow, error) {
	facts := []domain.FactRow{}
	if s.readDB == nil {
		return facts, ErrStoreNotInitialized
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.readDB.QueryContext(ctx, `SELECT dm.id, d.device_name, m.metric_name, dm.value, dm.timestamp
		FROM device_metrics dm
		JOIN devices d ON d.device_id = dm.device_id
		JOIN metrics m ON m.metric_id = dm.metric_id
		ORDER BY dm.timestamp DESC, dm.id DESC
		LIMIT ?`, limit)
	if err != nil {
		s.readFailed("recent_facts", err)
		return facts, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f domain.FactRow
		if err := rows.Scan(&f.ID, &f.Device, &f.Metric, &f.Value, &f.Timestamp); err != nil {
			s.readFailed("recent_facts", err)
			return []domain.FactRow{}, fmt.Errorf("error scanning row: %w", err)
		}
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		s.readFailed("recent_facts", err)
		return []domain.FactRow{}, fmt.Errorf("error during rows iteration: %w", err)
	}
	return facts, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (domain.StoreStats, error) {
	stats := domain.StoreStats{Tables: []string{}}
	if s.readDB == nil {
		return stats, ErrStoreNotInitialized
	}

	if err := s.readDB.QueryRowContext(ctx, `SELECT sqlite_version()`).Scan(&stats.SQLiteVersion); err != nil {
		return stats, fmt.Errorf("error reading sqlite version: %w", err)
	}

	rows, err := s.readDB.QueryContext(ctx, `SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return stats, fmt.Errorf("error listing tables: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return stats, fmt.Errorf("error scanning row: %w", err)
		}
		stats.Tables = append(stats.Tables, name)
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("error during rows iteration: %w", err)
	}

	counts := []struct {
		table string
		dest  *int64
	}{
		{"devices", &stats.Devices},
		{"metrics", &stats.Metrics},
		{"device_metrics", &stats.Facts},
	}
	for _, c := range counts {
		if err := s.readDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dest); err != nil {
			return stats, fmt.Errorf("error counting %s: %w", c.table, err)
		}
	}
	return stats, nil
}

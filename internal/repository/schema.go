package repository

import (
	"context"
	"database/sql"
	"fmt"

	"metrics-monitor/internal/domain"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS devices (
		device_id   INTEGER PRIMARY KEY AUTOINCREMENT,
		device_name TEXT NOT NULL UNIQUE,
		device_type TEXT NOT NULL DEFAULT 'unknown',
		created_at  TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS metrics (
		metric_id   INTEGER PRIMARY KEY AUTOINCREMENT,
		metric_name TEXT NOT NULL UNIQUE,
		metric_type TEXT NOT NULL DEFAULT 'unknown',
		unit        TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS device_metrics (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		device_id INTEGER NOT NULL REFERENCES devices(device_id),
		metric_id INTEGER NOT NULL REFERENCES metrics(metric_id),
		value     REAL NOT NULL,
		timestamp TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_device_metrics_device_id ON device_metrics(device_id)`,
	`CREATE INDEX IF NOT EXISTS idx_device_metrics_metric_id ON device_metrics(metric_id)`,
	`CREATE INDEX IF NOT EXISTS idx_device_metrics_timestamp ON device_metrics(timestamp)`,
}

const (
	seedDeviceSQL = `INSERT INTO devices (device_name, device_type, created_at) VALUES (?, ?, ?)
		ON CONFLICT(device_name) DO NOTHING`
	seedMetricSQL = `INSERT INTO metrics (metric_name, metric_type, unit, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(metric_name) DO NOTHING`
)

// Bootstrap creates missing tables and indexes and seeds the default catalog.
// Existing rows are left alone, so it is safe on every start.
func (s *SQLiteStore) Bootstrap(ctx context.Context) error {
	return s.withTx(ctx, "bootstrap", func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range schemaStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("error creating schema: %w", err)
			}
		}

		createdAt := s.now()
		for _, d := range domain.DefaultDevices {
			if _, err := tx.ExecContext(ctx, seedDeviceSQL, d.Name, d.Type, createdAt); err != nil {
				return fmt.Errorf("error seeding device %q: %w", d.Name, err)
			}
		}

		seedMetrics := append(append([]domain.SeedMetric{}, domain.SystemMetrics...), domain.InstrumentMetrics...)
		for _, m := range seedMetrics {
			if _, err := tx.ExecContext(ctx, seedMetricSQL, m.Name, m.Type, m.Unit, createdAt); err != nil {
				return fmt.Errorf("error seeding metric %q: %w", m.Name, err)
			}
		}
		return nil
	})
}

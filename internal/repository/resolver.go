package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"metrics-monitor/internal/domain"
	"metrics-monitor/internal/telemetry"
)

type entityTable struct {
	entity    string
	selectSQL string
	insertSQL string
}

var (
	deviceTable = entityTable{
		entity:    "device",
		selectSQL: `SELECT device_id FROM devices WHERE device_name = ?`,
		insertSQL: `INSERT INTO devices (device_name, device_type, created_at) VALUES (?, 'unknown', ?)
			ON CONFLICT(device_name) DO NOTHING`,
	}
	metricTable = entityTable{
		entity:    "metric",
		selectSQL: `SELECT metric_id FROM metrics WHERE metric_name = ?`,
		insertSQL: `INSERT INTO metrics (metric_name, metric_type, unit, created_at) VALUES (?, 'unknown', '', ?)
			ON CONFLICT(metric_name) DO NOTHING`,
	}
)

// ResolveDevice returns the id of the named device, creating it with type
// unknown when it does not exist yet.
func (s *SQLiteStore) ResolveDevice(ctx context.Context, name string) (int64, error) {
	return s.resolveStandalone(ctx, deviceTable, name)
}

// ResolveMetric is ResolveDevice for metrics; new metrics get an empty unit.
func (s *SQLiteStore) ResolveMetric(ctx context.Context, name string) (int64, error) {
	return s.resolveStandalone(ctx, metricTable, name)
}

func (s *SQLiteStore) resolveStandalone(ctx context.Context, table entityTable, name string) (int64, error) {
	var id int64
	err := s.withTx(ctx, "resolve_"+table.entity, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		id, err = s.resolve(ctx, tx, table, name)
		return err
	})
	return id, err
}

// resolve is get-or-create inside the caller's transaction. The insert is a
// no-op when another writer created the row first, so the follow-up select
// always sees exactly one row.
func (s *SQLiteStore) resolve(ctx context.Context, tx *sql.Tx, table entityTable, name string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, domain.ErrEmptyName
	}

	var id int64
	err := tx.QueryRowContext(ctx, table.selectSQL, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("error looking up %s %q: %w", table.entity, name, err)
	}

	res, err := tx.ExecContext(ctx, table.insertSQL, name, s.now())
	if err != nil {
		return 0, fmt.Errorf("error creating %s %q: %w", table.entity, name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		telemetry.EntitiesCreatedTotal.WithLabelValues(table.entity).Inc()
	}

	if err := tx.QueryRowContext(ctx, table.selectSQL, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("error reading back %s %q: %w", table.entity, name, err)
	}
	return id, nil
}

// lookup resolves name for a read path. Known names are found with a plain
// SELECT on the read handle; only an unknown name goes through the
// IMMEDIATE get-or-create.
func (s *SQLiteStore) lookup(ctx context.Context, table entityTable, name string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, domain.ErrEmptyName
	}
	if s.readDB == nil {
		return 0, ErrStoreNotInitialized
	}

	var id int64
	err := s.readDB.QueryRowContext(ctx, table.selectSQL, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("error looking up %s %q: %w", table.entity, name, err)
	}
	return s.resolveStandalone(ctx, table, name)
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"

	"metrics-monitor/internal/domain"
	"metrics-monitor/internal/telemetry"
	"metrics-monitor/internal/util"
)

const insertFactSQL = `INSERT INTO device_metrics (device_id, metric_id, value, timestamp) VALUES (?, ?, ?, ?)`

type deviceSnapshot struct {
	device string
	values map[string]float64
}

// StoreSnapshot writes one fact per entry of values for deviceName. An empty
// timestamp means now.
func (s *SQLiteStore) StoreSnapshot(ctx context.Context, deviceName string, values map[string]float64, timestamp string) error {
	return s.storeSnapshots(ctx, telemetry.KindGeneric, timestamp, []deviceSnapshot{{device: deviceName, values: values}})
}

func (s *SQLiteStore) StoreSystemSnapshot(ctx context.Context, sample domain.SystemSample) error {
	return s.storeSnapshots(ctx, telemetry.KindSystem, sample.Timestamp, []deviceSnapshot{
		{device: domain.DeviceSystem, values: sample.Values()},
	})
}

// StoreInstrumentSnapshot stores every symbol under its own Stock-<symbol>
// device. All symbols share the sample timestamp and commit together.
func (s *SQLiteStore) StoreInstrumentSnapshot(ctx context.Context, sample domain.InstrumentSample) error {
	if len(sample.Stocks) == 0 {
		return nil
	}

	snaps := make([]deviceSnapshot, 0, len(sample.Stocks))
	for _, symbol := range slices.Sorted(maps.Keys(sample.Stocks)) {
		if symbol == "" {
			return fmt.Errorf("error storing instrument snapshot: %w", domain.ErrEmptyName)
		}
		snaps = append(snaps, deviceSnapshot{
			device: domain.InstrumentDeviceName(symbol),
			values: sample.Stocks[symbol].Values(),
		})
	}
	return s.storeSnapshots(ctx, telemetry.KindInstrument, sample.Timestamp, snaps)
}

func (s *SQLiteStore) snapshotTimestamp(timestamp string) (string, error) {
	if timestamp == "" {
		return s.now(), nil
	}
	return domain.NormalizeTimestamp(timestamp)
}

func (s *SQLiteStore) storeSnapshots(ctx context.Context, kind, timestamp string, snaps []deviceSnapshot) error {
	err := s.writeSnapshots(ctx, kind, timestamp, snaps)
	if err != nil {
		telemetry.SnapshotsTotal.WithLabelValues(kind, telemetry.ResultError).Inc()
		s.logger.LogEvent(util.LOG_LEVEL_ERROR, "error storing", kind, "snapshot:", err)
		return err
	}
	telemetry.SnapshotsTotal.WithLabelValues(kind, telemetry.ResultOK).Inc()
	return nil
}

func (s *SQLiteStore) writeSnapshots(ctx context.Context, kind, timestamp string, snaps []deviceSnapshot) error {
	ts, err := s.snapshotTimestamp(timestamp)
	if err != nil {
		return fmt.Errorf("error storing snapshot: %w", err)
	}

	facts := 0
	err = s.withTx(ctx, "store_snapshot", func(ctx context.Context, tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertFactSQL)
		if err != nil {
			return fmt.Errorf("error preparing insert statement: %w", err)
		}
		defer stmt.Close()

		metricIDs := make(map[string]int64)
		for _, snap := range snaps {
			deviceID, err := s.resolve(ctx, tx, deviceTable, snap.device)
			if err != nil {
				return fmt.Errorf("error resolving device: %w", err)
			}

			for _, name := range slices.Sorted(maps.Keys(snap.values)) {
				metricID, ok := metricIDs[name]
				if !ok {
					metricID, err = s.resolve(ctx, tx, metricTable, name)
					if err != nil {
						return fmt.Errorf("error resolving metric: %w", err)
					}
					metricIDs[name] = metricID
				}

				if _, err := stmt.ExecContext(ctx, deviceID, metricID, snap.values[name], ts); err != nil {
					return fmt.Errorf("error inserting metric %q for %q: %w", name, snap.device, err)
				}
				facts++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	telemetry.FactsWrittenTotal.WithLabelValues(kind).Add(float64(facts))
	return nil
}

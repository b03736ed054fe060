package domain

import (
	"context"
	"errors"
	"time"
)

var ErrEmptyName = errors.New("device and metric names must not be empty")

type Device struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
}

type Metric struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Unit      string `json:"unit"`
	CreatedAt string `json:"created_at"`
}

// Point is one stored fact as returned by a raw range query.
type Point struct {
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"value"`
}

// Bucket is one row of an aggregated query. Buckets with no facts are never
// produced.
type Bucket struct {
	TimeBucket string  `json:"time_bucket"`
	AvgValue   float64 `json:"avg_value"`
	MinValue   float64 `json:"min_value"`
	MaxValue   float64 `json:"max_value"`
	Count      int64   `json:"count"`
}

// RangeOptions bounds a read. Zero Start/End select the query's default
// window; Limit <= 0 means unlimited.
type RangeOptions struct {
	Start  time.Time
	End    time.Time
	Limit  int
	Offset int
}

// SnapshotRow is every value stored for a device at a single timestamp, keyed
// by MetricKey(metric name).
type SnapshotRow struct {
	Timestamp string             `json:"timestamp"`
	Values    map[string]float64 `json:"values"`
}

// FactRow is a fact joined with its device and metric names.
type FactRow struct {
	ID        int64   `json:"id"`
	Device    string  `json:"device"`
	Metric    string  `json:"metric"`
	Value     float64 `json:"value"`
	Timestamp string  `json:"timestamp"`
}

type StoreStats struct {
	SQLiteVersion string   `json:"sqlite_version"`
	Tables        []string `json:"tables"`
	Devices       int64    `json:"devices"`
	Metrics       int64    `json:"metrics"`
	Facts         int64    `json:"facts"`
}

type MetricWriter interface {
	StoreSnapshot(ctx context.Context, deviceName string, values map[string]float64, timestamp string) error
	StoreSystemSnapshot(ctx context.Context, sample SystemSample) error
	StoreInstrumentSnapshot(ctx context.Context, sample InstrumentSample) error
}

type MetricReader interface {
	RangeQuery(ctx context.Context, deviceName, metricName string, opts RangeOptions) ([]Point, error)
	AggregateQuery(ctx context.Context, deviceName, metricName string, interval Interval, opts RangeOptions) ([]Bucket, error)
	ListDevices(ctx context.Context) ([]Device, error)
	ListMetrics(ctx context.Context) ([]Metric, error)
	ListInstrumentSymbols(ctx context.Context) ([]string, error)
	LatestSnapshots(ctx context.Context, deviceName string, limit int) ([]SnapshotRow, error)
	LatestValue(ctx context.Context, deviceName, metricName string) (float64, bool, error)
}

type MetricStore interface {
	MetricWriter
	MetricReader
	Init() error
	ResolveDevice(ctx context.Context, name string) (int64, error)
	ResolveMetric(ctx context.Context, name string) (int64, error)
	Stats(ctx context.Context) (StoreStats, error)
	Close() error
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jonboulle/clockwork"
	"github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"

	"metrics-monitor/internal/domain"
	"metrics-monitor/internal/telemetry"
	"metrics-monitor/internal/util"
)

const (
	driverName = "sqlite3_metrics"

	DefaultLockTimeout  = 30 * time.Second
	DefaultOpenTimeout  = 10 * time.Second
	DefaultMaxOpenConns = 8
)

var ErrStoreNotInitialized = errors.New("store is not initialized")

// The driver exposes time_bucket(interval, timestamp) so that aggregation
// groups on exactly the same keys as domain.Interval.BucketKey.
func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("time_bucket", timeBucket, true)
		},
	})
}

func timeBucket(interval, timestamp string) (string, error) {
	t, err := domain.ParseTimestamp(timestamp)
	if err != nil {
		return "", err
	}
	return domain.ParseInterval(interval).BucketKey(t), nil
}

type StoreConfig struct {
	Path string

	// Optional with defaults.
	LockTimeout  time.Duration
	OpenTimeout  time.Duration
	MaxOpenConns int
	Clock        clockwork.Clock
	Logger       *util.MetricsLogger
}

func (c *StoreConfig) setDefaults() {
	if c.LockTimeout <= 0 {
		c.LockTimeout = DefaultLockTimeout
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = DefaultOpenTimeout
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = DefaultMaxOpenConns
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Logger == nil {
		c.Logger = util.GetLogger("repository")
	}
}

// SQLiteStore keeps two handles on the same file. db begins every
// transaction IMMEDIATE and is used for anything that may write; readDB
// begins DEFERRED so queries read the WAL snapshot without waiting for a
// writer.
type SQLiteStore struct {
	db     *sql.DB
	readDB *sql.DB
	dbPath string
	cfg    StoreConfig
	clock  clockwork.Clock
	logger *util.MetricsLogger
}

var _ domain.MetricStore = (*SQLiteStore)(nil)

func NewSQLiteStore(path string) *SQLiteStore {
	return NewSQLiteStoreWithConfig(StoreConfig{Path: path})
}

func NewSQLiteStoreWithConfig(cfg StoreConfig) *SQLiteStore {
	cfg.setDefaults()
	return &SQLiteStore{
		dbPath: cfg.Path,
		cfg:    cfg,
		clock:  cfg.Clock,
		logger: cfg.Logger,
	}
}

func (s *SQLiteStore) Path() string {
	return s.dbPath
}

func (s *SQLiteStore) dsn(txlock string) string {
	params := url.Values{}
	params.Set("_busy_timeout", strconv.FormatInt(s.cfg.LockTimeout.Milliseconds(), 10))
	params.Set("_foreign_keys", "on")
	params.Set("_journal_mode", "WAL")
	params.Set("_txlock", txlock)

	// SQLite decodes %XX in URI filenames, so '?', '#' and '%' in the path
	// must be escaped.
	path := (&url.URL{Path: s.dbPath}).EscapedPath()
	return "file:" + path + "?" + params.Encode()
}

// Init opens the database file, waits for it to answer and bootstraps the
// schema and seed catalog.
func (s *SQLiteStore) Init() error {
	var err error

	if s.dbPath == "" {
		return errors.New("error opening database: empty path")
	}

	s.db, err = sql.Open(driverName, s.dsn("immediate"))
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	s.db.SetMaxOpenConns(s.cfg.MaxOpenConns)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.OpenTimeout)
	defer cancel()

	attempt := 0
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		if attempt > 0 {
			s.logger.LogEvent(util.LOG_LEVEL_WARN, "database not ready, retrying ping, attempt", attempt)
		}
		attempt++
		return struct{}{}, s.db.PingContext(ctx)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxElapsedTime(s.cfg.OpenTimeout))
	if err != nil {
		s.Close()
		return fmt.Errorf("error connecting to database: %w", err)
	}

	if err = s.Bootstrap(ctx); err != nil {
		s.Close()
		return err
	}

	// Opened after bootstrap so the file is already in WAL mode.
	s.readDB, err = sql.Open(driverName, s.dsn("deferred"))
	if err != nil {
		s.Close()
		return fmt.Errorf("error opening read handle: %w", err)
	}
	s.readDB.SetMaxOpenConns(s.cfg.MaxOpenConns)
	if err = s.readDB.PingContext(ctx); err != nil {
		s.Close()
		return fmt.Errorf("error connecting read handle: %w", err)
	}

	s.logger.LogEvent(util.LOG_LEVEL_INFO, "SQLiteStore initialized:", s.dbPath)
	return nil
}

// withTx runs fn inside one IMMEDIATE transaction bounded by the lock
// timeout. The transaction is rolled back unless fn and the commit succeed.
func (s *SQLiteStore) withTx(ctx context.Context, operation string, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return s.runTx(ctx, s.db, operation, fn)
}

// withReadTx is withTx on the read handle. The transaction is DEFERRED and
// only ever reads, so it never takes the write lock.
func (s *SQLiteStore) withReadTx(ctx context.Context, operation string, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return s.runTx(ctx, s.readDB, operation, fn)
}

func (s *SQLiteStore) runTx(ctx context.Context, db *sql.DB, operation string, fn func(ctx context.Context, tx *sql.Tx) error) error {
	if db == nil {
		return ErrStoreNotInitialized
	}

	timer := prometheus.NewTimer(telemetry.StoreOperationDuration.WithLabelValues(operation))
	defer timer.ObserveDuration()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.LockTimeout)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) now() string {
	return domain.FormatTimestamp(s.clock.Now())
}

func (s *SQLiteStore) Close() error {
	var errs []error
	if s.readDB != nil {
		errs = append(errs, s.readDB.Close())
		s.readDB = nil
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
		s.db = nil
	}
	return errors.Join(errs...)
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"metrics-monitor/internal/collector"
	"metrics-monitor/internal/domain"
	"metrics-monitor/internal/repository"
	"metrics-monitor/internal/util"
)

// ingest backfills synthetic history ending now, for dashboards and load
// checks against an empty database.
func main() {
	dbPath := pflag.String("db-path", "metrics.db", "SQLite database file")
	window := pflag.Duration("duration", 5*time.Minute, "how far back the history starts")
	step := pflag.Duration("step", 10*time.Second, "spacing between snapshots")
	symbols := pflag.StringSlice("symbols", []string{"AAPL", "GOOGL", "MSFT"}, "instrument symbols to generate")
	seed := pflag.Int64("seed", time.Now().UnixNano(), "random seed")
	logLevel := pflag.String("log-level", "info", "error, warn, info or debug")
	pflag.Parse()

	if err := util.InitLogging(util.LogConfig{Level: util.ParseLogLevel(*logLevel), Console: true}); err != nil {
		fmt.Fprintln(os.Stderr, "Error while initializing the logger..", err)
		os.Exit(1)
	}
	defer util.ShutdownLogging()
	logger := util.GetLogger("ingest")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := generateAndIngest(ctx, *dbPath, *window, *step, *symbols, *seed, logger); err != nil {
		logger.LogEvent(util.LOG_LEVEL_ERROR, "Data ingestion failed:", err)
		util.ShutdownLogging()
		os.Exit(1)
	}
}

func generateAndIngest(ctx context.Context, dbPath string, window, step time.Duration, symbols []string, seed int64, logger *util.MetricsLogger) error {
	sqliteStore := repository.NewSQLiteStore(dbPath)
	if err := sqliteStore.Init(); err != nil {
		return fmt.Errorf("failed to initialize SQLite store for ingestion: %w", err)
	}
	defer sqliteStore.Close()

	for i, s := range symbols {
		symbols[i] = strings.TrimSpace(s)
	}

	endTime := time.Now().UTC()
	startTime := endTime.Add(-window)
	logger.LogEvent(util.LOG_LEVEL_INFO, "Ingesting data from", domain.FormatTimestamp(startTime), "to", domain.FormatTimestamp(endTime))

	written, err := collector.GenerateHistory(ctx, sqliteStore, collector.HistoryOptions{
		Start:   startTime,
		End:     endTime,
		Step:    step,
		Symbols: symbols,
		Seed:    seed,
	})
	if err != nil {
		return err
	}
	logger.LogEvent(util.LOG_LEVEL_INFO, "Data ingestion complete,", written, "snapshots written")
	return nil
}

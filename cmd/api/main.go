package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"metrics-monitor/internal/auth"
	"metrics-monitor/internal/collector"
	"metrics-monitor/internal/config"
	"metrics-monitor/internal/live"
	"metrics-monitor/internal/repository"
	"metrics-monitor/internal/router"
	"metrics-monitor/internal/telemetry"
	"metrics-monitor/internal/util"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type options struct {
	configPath  string
	envFile     string
	dbPath      string
	listenAddr  string
	metricsAddr string
	logLevel    string
	noCollector bool
	showVersion bool
}

func parseFlags(args []string) (*options, *pflag.FlagSet, error) {
	opts := &options{}
	fs := pflag.NewFlagSet("metrics-monitor", pflag.ContinueOnError)
	fs.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	fs.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	fs.StringVar(&opts.dbPath, "db-path", "", "SQLite database file (overrides config)")
	fs.StringVar(&opts.listenAddr, "listen-addr", "", "HTTP listen address (overrides config)")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "prometheus listen address (empty disables it)")
	fs.StringVar(&opts.logLevel, "log-level", "", "error, warn, info or debug (overrides config)")
	fs.BoolVar(&opts.noCollector, "no-collector", false, "serve the API without polling")
	fs.BoolVar(&opts.showVersion, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return opts, fs, nil
}

func loadConfig(opts *options, fs *pflag.FlagSet) (*config.Config, error) {
	if err := config.LoadEnvFile(opts.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	if fs.Changed("db-path") {
		cfg.Database.Path = opts.dbPath
	}
	if fs.Changed("listen-addr") {
		cfg.Server.ListenAddr = opts.listenAddr
	}
	if fs.Changed("metrics-addr") {
		cfg.Server.MetricsAddr = opts.metricsAddr
	}
	if fs.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.noCollector {
		cfg.Collector.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoggerInitialize(cfg config.LoggingConfig) (*util.MetricsLogger, error) {
	err := util.InitLogging(util.LogConfig{
		Level:   util.ParseLogLevel(cfg.Level),
		Format:  cfg.Format,
		Dir:     cfg.Dir,
		File:    cfg.File,
		Console: cfg.Console,
	})
	if err != nil {
		return nil, err
	}

	logger := util.GetLogger("main")
	logger.LogEvent(util.LOG_LEVEL_INFO, "Service started, version", version, "commit", commit)
	fmt.Fprintf(os.Stderr, "\n%s: MetricsMonitor started \n", time.Now().Format(time.RFC3339))
	return logger, nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, fs, err := parseFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if opts.showVersion {
		fmt.Printf("metrics-monitor %s (%s, %s)\n", version, commit, date)
		return 0
	}

	cfg, err := loadConfig(opts, fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Configuration error:", err)
		return 1
	}

	logger, err := LoggerInitialize(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error while initializing the logger..", err)
		return 1
	}
	defer util.ShutdownLogging()

	telemetry.BuildInfo.WithLabelValues(version, commit, date).Set(1)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, logger); err != nil {
		logger.LogEvent(util.LOG_LEVEL_ERROR, "Service stopped with error:", err)
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	logger.LogEvent(util.LOG_LEVEL_INFO, "Service stopped")
	return 0
}

func serve(ctx context.Context, cfg *config.Config, logger *util.MetricsLogger) error {
	metricStore := repository.NewSQLiteStoreWithConfig(repository.StoreConfig{
		Path:         cfg.Database.Path,
		LockTimeout:  cfg.Database.LockTimeout,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		Logger:       util.GetLogger("repository"),
	})
	if err := metricStore.Init(); err != nil {
		return fmt.Errorf("failed to initialize metric store: %w", err)
	}
	defer metricStore.Close()

	instruments, err := collector.NewInstrumentSampler(collector.InstrumentSamplerConfig{
		Symbols:  cfg.Collector.Symbols,
		Source:   collector.NewRandomWalkSource(time.Now().UnixNano()),
		PoolSize: cfg.Collector.PoolSize,
		Logger:   util.GetLogger("collector"),
	})
	if err != nil {
		return err
	}
	defer instruments.Stop()
	instruments.LoadPreviousPrices(ctx, metricStore)

	hub := live.NewHub(util.GetLogger("live"))

	poller, err := collector.NewPoller(collector.PollerConfig{
		System:      collector.NewHostSampler(collector.HostSamplerConfig{DiskPath: cfg.Collector.DiskPath}),
		Instruments: instruments,
		Store:       metricStore,
		Publisher:   hub,
		Interval:    cfg.Collector.PollInterval,
		Logger:      util.GetLogger("poller"),
	})
	if err != nil {
		return err
	}

	var authenticator router.Authenticator
	if cfg.Auth.Secret != "" {
		manager, err := auth.NewManager(auth.Config{
			Secret:   cfg.Auth.Secret,
			TokenTTL: cfg.Auth.TokenTTL,
			Users:    cfg.Auth.Users,
		})
		if err != nil {
			return err
		}
		authenticator = manager
	}

	appRouter, err := router.NewRouter(router.Dependencies{
		Store:       metricStore,
		Collector:   poller,
		Live:        hub,
		Auth:        authenticator,
		RequireAuth: cfg.Auth.RequireAuth,
		Logger:      util.GetLogger("web"),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()

	if cfg.Collector.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Run(ctx)
		}()
	} else {
		logger.LogEvent(util.LOG_LEVEL_INFO, "Collector disabled; serving stored data only")
	}

	if cfg.Server.MetricsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := router.Run(ctx, router.NewMetricsServer(cfg.Server.MetricsAddr), util.GetLogger("telemetry")); err != nil {
				logger.LogEvent(util.LOG_LEVEL_ERROR, "Metrics listener failed:", err)
			}
		}()
	}

	err = router.Run(ctx, router.NewServer(cfg.Server.ListenAddr, appRouter, router.WriteTimeoutFor(cfg.Database.LockTimeout)), util.GetLogger("web"))
	cancel()
	wg.Wait()
	return err
}

package router

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"metrics-monitor/internal/domain"
	"metrics-monitor/internal/endpoints"
	"metrics-monitor/internal/repository"
	"metrics-monitor/internal/util"
)

const shutdownTimeout = 25 * time.Second

// Dependencies is everything the HTTP surface talks to. Collector, Live and
// Auth are optional; their routes are left out or answer 503 when unset.
type Dependencies struct {
	Store       domain.MetricStore
	Collector   endpoints.LiveCollector
	Live        http.Handler
	Auth        Authenticator
	RequireAuth bool
	Logger      *util.MetricsLogger
}

func NewRouter(deps Dependencies) (*mux.Router, error) {
	if deps.Store == nil {
		return nil, errors.New("router: store is required")
	}
	if deps.RequireAuth && deps.Auth == nil {
		return nil, errors.New("router: authentication is required but no authenticator is configured")
	}
	if deps.Logger == nil {
		deps.Logger = util.GetLogger("web")
	}

	r := mux.NewRouter()

	addRoutes(r, deps)

	r.Use(recoveryMiddleware(deps.Logger))
	r.Use(loggingMiddleware(deps.Logger))
	r.Use(instrumentMiddleware)

	return r, nil
}

func addRoutes(r *mux.Router, deps Dependencies) {
	webSlogger := deps.Logger

	pages := &endpoints.Pages{}
	pages.Init(webSlogger)
	r.HandleFunc("/", pages.DashboardHandler).Methods("GET")
	r.HandleFunc("/history", pages.HistoryHandler).Methods("GET")

	if deps.Live != nil {
		r.Handle("/ws", deps.Live).Methods("GET")
	}

	live := &endpoints.Live{}
	live.Init(deps.Collector, webSlogger)
	r.HandleFunc("/metrics", live.SampleHandler).Methods("GET")

	catalog := &endpoints.Catalog{}
	catalog.Init(deps.Store, webSlogger)
	history := &endpoints.History{}
	history.Init(deps.Store, webSlogger)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/devices", catalog.ListDevicesHandler).Methods("GET")
	api.HandleFunc("/metrics", catalog.ListMetricsHandler).Methods("GET")
	api.HandleFunc("/symbols", catalog.ListSymbolsHandler).Methods("GET")
	api.HandleFunc("/device/{device}/metric/{metric}/history", history.MetricHistoryHandler).Methods("GET")
	api.HandleFunc("/history/system", history.SystemHistoryHandler).Methods("GET")
	api.HandleFunc("/history/stock/{symbol}", history.StockHistoryHandler).Methods("GET")

	ingest := &endpoints.Ingest{}
	ingest.Init(deps.Store, webSlogger)
	ingestRoutes := api.PathPrefix("/ingest").Subrouter()
	if deps.RequireAuth {
		ingestRoutes.Use(authMiddleware(deps.Auth, webSlogger))
	}
	ingestRoutes.HandleFunc("/system", ingest.SystemIngestHandler).Methods("POST")
	ingestRoutes.HandleFunc("/stocks", ingest.StocksIngestHandler).Methods("POST")

	if deps.Auth != nil {
		login := &endpoints.Login{}
		login.Init(deps.Auth, webSlogger)
		r.HandleFunc("/login", login.LoginHandler).Methods("POST")
	}
}

// writeTimeoutMargin is added on top of the store lock timeout so a request
// that waited the full lock timeout can still write its error response.
const writeTimeoutMargin = 10 * time.Second

// WriteTimeoutFor derives the server write timeout from the store lock
// timeout.
func WriteTimeoutFor(lockTimeout time.Duration) time.Duration {
	if lockTimeout <= 0 {
		lockTimeout = repository.DefaultLockTimeout
	}
	return lockTimeout + writeTimeoutMargin
}

func NewServer(addr string, handler http.Handler, writeTimeout time.Duration) *http.Server {
	if writeTimeout <= 0 {
		writeTimeout = WriteTimeoutFor(0)
	}
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  120 * time.Second,
	}
}

// NewMetricsServer exposes the prometheus registry on its own listener.
func NewMetricsServer(addr string) *http.Server {
	handler := http.NewServeMux()
	handler.Handle("/metrics", promhttp.Handler())
	return NewServer(addr, handler, writeTimeoutMargin)
}

// Run serves until ctx is cancelled, then shuts the server down gracefully.
// A listener failure is returned immediately.
func Run(ctx context.Context, server *http.Server, logger *util.MetricsLogger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.LogEvent(util.LOG_LEVEL_INFO, "Listening on", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.LogEvent(util.LOG_LEVEL_INFO, "Shutting down server", server.Addr)
	if err := gracefulShutdown(server, shutdownTimeout); err != nil {
		logger.LogEvent(util.LOG_LEVEL_ERROR, "Server stopped with error:", err)
		return err
	}
	logger.LogEvent(util.LOG_LEVEL_INFO, "Server stopped gracefully.")
	return nil
}

func gracefulShutdown(server *http.Server, maximumTime time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), maximumTime)
	defer cancel()

	return server.Shutdown(ctx)
}

package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultOK    = "ok"
	ResultError = "error"

	KindSystem     = "system"
	KindInstrument = "instrument"
	KindGeneric    = "generic"
)

var (
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "metrics_monitor_build_info",
		Help: "Build information of the metrics monitor",
	}, []string{"version", "commit", "date"})

	SnapshotsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metrics_monitor_snapshots_total", Help: "Snapshots handed to the write path, by kind and result.",
	}, []string{"kind", "result"})
	FactsWrittenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metrics_monitor_facts_written_total", Help: "Fact rows committed, by snapshot kind.",
	}, []string{"kind"})
	EntitiesCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metrics_monitor_entities_created_total", Help: "Devices and metrics created by the resolver.",
	}, []string{"entity"})

	StoreOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "metrics_monitor_store_operation_duration_seconds",
		Help:    "Duration of store operations.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{"operation"})
	QueryErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metrics_monitor_query_errors_total", Help: "Failed read path queries, by operation.",
	}, []string{"operation"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metrics_monitor_http_requests_total", Help: "HTTP requests served, by route, method and status code.",
	}, []string{"route", "method", "code"})
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "metrics_monitor_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	HTTPRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "metrics_monitor_http_requests_in_flight", Help: "HTTP requests currently being served.",
	})

	PollCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metrics_monitor_poll_cycles_total", Help: "Collector poll cycles, by result.",
	}, []string{"result"})
	LiveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "metrics_monitor_live_clients", Help: "Websocket dashboard clients currently connected.",
	})
)

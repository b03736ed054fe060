package endpoints

import (
	"net/http"

	"metrics-monitor/internal/domain"
	"metrics-monitor/internal/util"
)

type Catalog struct {
	Response APIResponse
	logger   *util.MetricsLogger
	store    domain.MetricReader
}

func (c *Catalog) Init(store domain.MetricReader, webSlogger *util.MetricsLogger) {
	c.store = store
	c.logger = webSlogger
}

func (c *Catalog) ListDevicesHandler(w http.ResponseWriter, r *http.Request) {
	devices, err := c.store.ListDevices(r.Context())
	if err != nil {
		writeReadError(w, c.Response, c.logger, "listing devices", err, []domain.Device{})
		return
	}
	c.Response.WriteResultResponse(w, devices)
}

func (c *Catalog) ListMetricsHandler(w http.ResponseWriter, r *http.Request) {
	metrics, err := c.store.ListMetrics(r.Context())
	if err != nil {
		writeReadError(w, c.Response, c.logger, "listing metrics", err, []domain.Metric{})
		return
	}
	c.Response.WriteResultResponse(w, metrics)
}

// ListSymbolsHandler returns every instrument symbol that has a device row,
// whether or not it is still being polled.
func (c *Catalog) ListSymbolsHandler(w http.ResponseWriter, r *http.Request) {
	symbols, err := c.store.ListInstrumentSymbols(r.Context())
	if err != nil {
		writeReadError(w, c.Response, c.logger, "listing symbols", err, []string{})
		return
	}
	c.Response.WriteResultResponse(w, symbols)
}

package endpoints

import (
	"encoding/json"
	"net/http"

	"metrics-monitor/internal/domain"
	"metrics-monitor/internal/util"
)

const maxIngestBody = 1 << 20

type IngestResult struct {
	Stored bool `json:"stored"`
}

type Ingest struct {
	Response APIResponse
	logger   *util.MetricsLogger
	store    domain.MetricWriter
}

func (i *Ingest) Init(store domain.MetricWriter, webSlogger *util.MetricsLogger) {
	i.store = store
	i.logger = webSlogger
}

func (i *Ingest) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxIngestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		i.logger.LogEvent(util.LOG_LEVEL_ERROR, "Occured while unmarshalling JSON Body. Err -", err)
		i.Response.WriteErrorResponseWithStatusCode(w, ErrInvalidRequestBody, http.StatusBadRequest)
		return false
	}
	return true
}

func (i *Ingest) SystemIngestHandler(w http.ResponseWriter, r *http.Request) {
	var sample domain.SystemSample
	if !i.decode(w, r, &sample) {
		return
	}

	if err := i.store.StoreSystemSnapshot(r.Context(), sample); err != nil {
		writeStoreError(w, i.Response, i.logger, "storing system snapshot", err)
		return
	}
	i.Response.WriteResultResponse(w, IngestResult{Stored: true})
}

func (i *Ingest) StocksIngestHandler(w http.ResponseWriter, r *http.Request) {
	var sample domain.InstrumentSample
	if !i.decode(w, r, &sample) {
		return
	}
	if sample.Stocks == nil {
		i.Response.WriteErrorResponseWithStatusCode(w, ErrInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := i.store.StoreInstrumentSnapshot(r.Context(), sample); err != nil {
		writeStoreError(w, i.Response, i.logger, "storing instrument snapshot", err)
		return
	}
	i.Response.WriteResultResponse(w, IngestResult{Stored: true})
}

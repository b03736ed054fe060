package endpoints

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"metrics-monitor/internal/domain"
	"metrics-monitor/internal/util"
)

const defaultSnapshotLimit = 100

type History struct {
	Response APIResponse
	logger   *util.MetricsLogger
	store    domain.MetricReader
}

func (h *History) Init(store domain.MetricReader, webSlogger *util.MetricsLogger) {
	h.store = store
	h.logger = webSlogger
}

// MetricHistoryHandler serves raw points, or hour/day/week buckets when
// aggregate=true. Unknown device and metric names are created, so an unseen
// pair answers with an empty list.
func (h *History) MetricHistoryHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	device := vars["device"]
	metric := vars["metric"]

	aggregate, err := queryBool(r, "aggregate")
	if err != nil {
		h.logger.LogEvent(util.LOG_LEVEL_ERROR, "While reading aggregate from URL. Err - ", err)
		h.Response.WriteErrorResponseWithStatusCode(w, err, http.StatusBadRequest)
		return
	}

	opts, err := h.rangeOptions(r)
	if err != nil {
		h.logger.LogEvent(util.LOG_LEVEL_ERROR, "While reading range from URL. Err - ", err)
		h.Response.WriteErrorResponseWithStatusCode(w, err, http.StatusBadRequest)
		return
	}

	if aggregate {
		interval := domain.ParseInterval(r.URL.Query().Get("interval"))
		buckets, err := h.store.AggregateQuery(r.Context(), device, metric, interval, opts)
		if err != nil {
			writeReadError(w, h.Response, h.logger, "aggregating "+device+"/"+metric, err, []domain.Bucket{})
			return
		}
		h.Response.WriteResultResponse(w, buckets)
		return
	}

	points, err := h.store.RangeQuery(r.Context(), device, metric, opts)
	if err != nil {
		writeReadError(w, h.Response, h.logger, "reading "+device+"/"+metric, err, []domain.Point{})
		return
	}
	h.Response.WriteResultResponse(w, points)
}

func (h *History) rangeOptions(r *http.Request) (domain.RangeOptions, error) {
	var opts domain.RangeOptions
	var err error

	if opts.Start, err = queryTime(r, "start_time"); err != nil {
		return opts, err
	}
	if opts.End, err = queryTime(r, "end_time"); err != nil {
		return opts, err
	}
	if opts.Limit, err = queryInt(r, "limit", 0); err != nil {
		return opts, err
	}
	if opts.Offset, err = queryInt(r, "offset", 0); err != nil {
		return opts, err
	}
	return opts, nil
}

func (h *History) SystemHistoryHandler(w http.ResponseWriter, r *http.Request) {
	h.snapshots(w, r, domain.DeviceSystem)
}

func (h *History) StockHistoryHandler(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(mux.Vars(r)["symbol"])
	if symbol == "" {
		h.Response.WriteErrorResponseWithStatusCode(w, domain.ErrEmptyName, http.StatusBadRequest)
		return
	}
	h.snapshots(w, r, domain.InstrumentDeviceName(symbol))
}

func (h *History) snapshots(w http.ResponseWriter, r *http.Request, device string) {
	limit, err := queryInt(r, "limit", defaultSnapshotLimit)
	if err != nil {
		h.logger.LogEvent(util.LOG_LEVEL_ERROR, "While getting limit from URL. Err - ", err)
		h.Response.WriteErrorResponseWithStatusCode(w, err, http.StatusBadRequest)
		return
	}

	rows, err := h.store.LatestSnapshots(r.Context(), device, limit)
	if err != nil {
		writeReadError(w, h.Response, h.logger, "reading snapshots of "+device, err, []domain.SnapshotRow{})
		return
	}
	h.Response.WriteResultResponse(w, rows)
}

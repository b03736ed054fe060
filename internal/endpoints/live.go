package endpoints

import (
	"context"
	"net/http"

	"metrics-monitor/internal/domain"
	"metrics-monitor/internal/util"
)

// LiveCollector runs one sample-store-publish cycle on demand.
type LiveCollector interface {
	Collect(ctx context.Context) (domain.Report, error)
}

type Live struct {
	Response  APIResponse
	logger    *util.MetricsLogger
	collector LiveCollector
}

func (l *Live) Init(collector LiveCollector, webSlogger *util.MetricsLogger) {
	l.collector = collector
	l.logger = webSlogger
}

// SampleHandler answers with the processed report even when storing it
// failed; report.stored tells the caller which case it got.
func (l *Live) SampleHandler(w http.ResponseWriter, r *http.Request) {
	if l.collector == nil {
		l.Response.WriteErrorResponse(w, ErrLiveUnavailable)
		return
	}

	report, err := l.collector.Collect(r.Context())
	if err != nil {
		l.logger.LogEvent(util.LOG_LEVEL_ERROR, "Error storing metrics in database:", err)
	}
	l.Response.WriteResultResponse(w, report)
}

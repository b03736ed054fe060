package collector

import (
	"metrics-monitor/internal/domain"
)

const (
	StatusHealthy = "healthy"
	StatusWarning = "warning"

	TrendUp       = "up"
	TrendDown     = "down"
	TrendNoChange = "no change"
	TrendNoData   = "no data"

	usageWarningThreshold = 80.0
)

// Summarize flags host usage above 80% and classifies each symbol's move.
func Summarize(system domain.SystemSample, stocks domain.InstrumentSample) domain.Summary {
	status := domain.SystemStatus{Status: StatusHealthy, Warnings: []string{}}

	checks := []struct {
		value   float64
		warning string
	}{
		{system.CPUPercent, "High CPU usage"},
		{system.MemoryPercent, "High memory usage"},
		{system.DiskPercent, "High disk usage"},
	}
	for _, c := range checks {
		if c.value > usageWarningThreshold {
			status.Status = StatusWarning
			status.Warnings = append(status.Warnings, c.warning)
		}
	}

	trends := make(map[string]string, len(stocks.Stocks))
	for symbol, q := range stocks.Stocks {
		switch {
		case q.Error != "":
			trends[symbol] = TrendNoData
		case q.Change > 0:
			trends[symbol] = TrendUp
		case q.Change < 0:
			trends[symbol] = TrendDown
		default:
			trends[symbol] = TrendNoChange
		}
	}

	return domain.Summary{SystemStatus: status, StockSummary: trends}
}

package domain

// SystemSample is the flat snapshot produced by the host sampler. Fields the
// sampler could not read are left at zero.
type SystemSample struct {
	Timestamp        string    `json:"timestamp,omitempty"`
	CPUPercent       float64   `json:"cpu_percent"`
	MemoryPercent    float64   `json:"memory_percent"`
	DiskPercent      float64   `json:"disk_percent"`
	RunningProcesses float64   `json:"running_processes"`
	ThreadCount      float64   `json:"thread_count"`
	Host             *HostInfo `json:"host,omitempty"`
}

// HostInfo carries descriptive details shown on the live dashboard. It is
// never persisted.
type HostInfo struct {
	Hostname        string `json:"hostname,omitempty"`
	Platform        string `json:"platform,omitempty"`
	PlatformVersion string `json:"platform_version,omitempty"`
	CPUCores        int    `json:"cpu_cores,omitempty"`
	MemoryTotal     uint64 `json:"memory_total,omitempty"`
	MemoryAvailable uint64 `json:"memory_available,omitempty"`
	DiskTotal       uint64 `json:"disk_total,omitempty"`
	DiskUsed        uint64 `json:"disk_used,omitempty"`
	DiskFree        uint64 `json:"disk_free,omitempty"`
}

func (s SystemSample) Values() map[string]float64 {
	return map[string]float64{
		MetricCPUUsage:         s.CPUPercent,
		MetricMemoryUsage:      s.MemoryPercent,
		MetricDiskUsage:        s.DiskPercent,
		MetricRunningProcesses: s.RunningProcesses,
		MetricThreadCount:      s.ThreadCount,
	}
}

// Quote is one instrument's values in a snapshot. Error is set when the
// sampler failed for that symbol and substituted zeros.
type Quote struct {
	Price         float64 `json:"price"`
	Volume        float64 `json:"volume"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	MarketCap     float64 `json:"market_cap"`
	Error         string  `json:"error,omitempty"`
}

func (q Quote) Values() map[string]float64 {
	return map[string]float64{
		MetricPrice:         q.Price,
		MetricVolume:        q.Volume,
		MetricChange:        q.Change,
		MetricChangePercent: q.ChangePercent,
		MetricMarketCap:     q.MarketCap,
	}
}

type InstrumentSample struct {
	Timestamp string           `json:"timestamp,omitempty"`
	Stocks    map[string]Quote `json:"stocks"`
}

// Report is what one poll cycle produced, as served to the live dashboard.
type Report struct {
	System  SystemSample     `json:"system"`
	Stocks  InstrumentSample `json:"stocks"`
	Summary Summary          `json:"summary"`
	Stored  bool             `json:"stored"`
}

type Summary struct {
	SystemStatus SystemStatus      `json:"system_status"`
	StockSummary map[string]string `json:"stock_summary"`
}

type SystemStatus struct {
	Status   string   `json:"status"`
	Warnings []string `json:"warnings"`
}

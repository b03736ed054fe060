package domain

import (
	"strings"
)

const (
	DeviceSystem   = "PC"
	DeviceStockAPI = "Stock API"

	// InstrumentDevicePrefix is prepended to a ticker symbol to form the
	// device name its facts are stored under.
	InstrumentDevicePrefix = "Stock-"
)

const (
	DeviceTypeSystem   = "system"
	DeviceTypeExternal = "external"
	DeviceTypeUnknown  = "unknown"

	MetricTypePercentage = "percentage"
	MetricTypeCurrency   = "currency"
	MetricTypeCount      = "count"
	MetricTypeUnknown    = "unknown"
)

const (
	MetricCPUUsage         = "CPU Usage"
	MetricMemoryUsage      = "Memory Usage"
	MetricDiskUsage        = "Disk Usage"
	MetricRunningProcesses = "Running Processes"
	MetricThreadCount      = "Thread Count"

	MetricPrice         = "Price"
	MetricVolume        = "Volume"
	MetricChange        = "Change"
	MetricChangePercent = "Change Percent"
	MetricMarketCap     = "Market Cap"
)

// SeedDevice and SeedMetric describe the catalog rows created at bootstrap.
type SeedDevice struct {
	Name string
	Type string
}

type SeedMetric struct {
	Name string
	Type string
	Unit string
}

var DefaultDevices = []SeedDevice{
	{Name: DeviceSystem, Type: DeviceTypeSystem},
	{Name: DeviceStockAPI, Type: DeviceTypeExternal},
}

var SystemMetrics = []SeedMetric{
	{Name: MetricCPUUsage, Type: MetricTypePercentage, Unit: "%"},
	{Name: MetricMemoryUsage, Type: MetricTypePercentage, Unit: "%"},
	{Name: MetricDiskUsage, Type: MetricTypePercentage, Unit: "%"},
	{Name: MetricRunningProcesses, Type: MetricTypeCount, Unit: "processes"},
	{Name: MetricThreadCount, Type: MetricTypeCount, Unit: "threads"},
}

var InstrumentMetrics = []SeedMetric{
	{Name: MetricPrice, Type: MetricTypeCurrency, Unit: "USD"},
	{Name: MetricVolume, Type: MetricTypeCount, Unit: "shares"},
	{Name: MetricChange, Type: MetricTypeCurrency, Unit: "USD"},
	{Name: MetricChangePercent, Type: MetricTypePercentage, Unit: "%"},
	{Name: MetricMarketCap, Type: MetricTypeCurrency, Unit: "USD"},
}

// InstrumentDeviceName maps a symbol to its device. Symbols are
// case-sensitive and kept exactly as given on every path.
func InstrumentDeviceName(symbol string) string {
	return InstrumentDevicePrefix + symbol
}

// SymbolFromDevice reports the ticker symbol for an instrument device name.
func SymbolFromDevice(deviceName string) (string, bool) {
	if !strings.HasPrefix(deviceName, InstrumentDevicePrefix) {
		return "", false
	}
	return strings.TrimPrefix(deviceName, InstrumentDevicePrefix), true
}

// MetricKey turns a metric name into the snake_case key used in pivoted
// history rows, e.g. "CPU Usage" -> "cpu_usage".
func MetricKey(metricName string) string {
	return strings.ReplaceAll(strings.ToLower(metricName), " ", "_")
}

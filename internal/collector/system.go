package collector

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	"metrics-monitor/internal/domain"
	"metrics-monitor/internal/util"
)

// SystemSampler produces one flat host snapshot per call.
type SystemSampler interface {
	Sample(ctx context.Context) domain.SystemSample
}

// hostProbes are the individual readings taken for a sample. Each one fails
// independently.
type hostProbes struct {
	cpuPercent func(ctx context.Context) (float64, error)
	memory     func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	disk       func(ctx context.Context, path string) (*disk.UsageStat, error)
	processes  func(ctx context.Context) (float64, float64, error)
	hostInfo   func(ctx context.Context) (*host.InfoStat, error)
	cpuCores   func(ctx context.Context) (int, error)
}

type HostSamplerConfig struct {
	DiskPath    string
	CPUInterval time.Duration
	Clock       clockwork.Clock
	Logger      *util.MetricsLogger
}

type HostSampler struct {
	cfg    HostSamplerConfig
	probes hostProbes
}

func NewHostSampler(cfg HostSamplerConfig) *HostSampler {
	if cfg.DiskPath == "" {
		cfg.DiskPath = "/"
	}
	if cfg.CPUInterval <= 0 {
		cfg.CPUInterval = time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = util.GetLogger("collector")
	}

	interval := cfg.CPUInterval
	return &HostSampler{
		cfg: cfg,
		probes: hostProbes{
			cpuPercent: func(ctx context.Context) (float64, error) {
				percents, err := cpu.PercentWithContext(ctx, interval, false)
				if err != nil || len(percents) == 0 {
					return 0, err
				}
				return percents[0], nil
			},
			memory:    mem.VirtualMemoryWithContext,
			disk:      disk.UsageWithContext,
			processes: processAndThreadCounts,
			hostInfo:  host.InfoWithContext,
			cpuCores: func(ctx context.Context) (int, error) {
				return cpu.CountsWithContext(ctx, true)
			},
		},
	}
}

// processAndThreadCounts sums threads over every process that can still be
// inspected; processes that exit mid-walk are skipped.
func processAndThreadCounts(ctx context.Context) (float64, float64, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	var threads int64
	for _, p := range procs {
		n, err := p.NumThreadsWithContext(ctx)
		if err != nil {
			continue
		}
		threads += int64(n)
	}
	return float64(len(procs)), float64(threads), nil
}

func (h *HostSampler) Sample(ctx context.Context) domain.SystemSample {
	sample := domain.SystemSample{
		Timestamp: domain.FormatTimestamp(h.cfg.Clock.Now()),
		Host:      &domain.HostInfo{},
	}

	if v, err := h.probes.cpuPercent(ctx); err != nil {
		h.probeFailed("cpu", err)
	} else {
		sample.CPUPercent = v
	}

	if vm, err := h.probes.memory(ctx); err != nil {
		h.probeFailed("memory", err)
	} else {
		sample.MemoryPercent = vm.UsedPercent
		sample.Host.MemoryTotal = vm.Total
		sample.Host.MemoryAvailable = vm.Available
	}

	if du, err := h.probes.disk(ctx, h.cfg.DiskPath); err != nil {
		h.probeFailed("disk", err)
	} else {
		sample.DiskPercent = du.UsedPercent
		sample.Host.DiskTotal = du.Total
		sample.Host.DiskUsed = du.Used
		sample.Host.DiskFree = du.Free
	}

	if procs, threads, err := h.probes.processes(ctx); err != nil {
		h.probeFailed("processes", err)
	} else {
		sample.RunningProcesses = procs
		sample.ThreadCount = threads
	}

	if info, err := h.probes.hostInfo(ctx); err != nil {
		h.probeFailed("host", err)
	} else {
		sample.Host.Hostname = info.Hostname
		sample.Host.Platform = info.Platform
		sample.Host.PlatformVersion = info.PlatformVersion
	}

	if cores, err := h.probes.cpuCores(ctx); err != nil {
		h.probeFailed("cpu cores", err)
	} else {
		sample.Host.CPUCores = cores
	}

	return sample
}

func (h *HostSampler) probeFailed(probe string, err error) {
	h.cfg.Logger.LogEvent(util.LOG_LEVEL_WARN, "system sampler:", probe, "reading failed, using zero:", err)
}

package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metrics-monitor/internal/domain"
)

var testNow = time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)

type recordingWriter struct {
	mu          sync.Mutex
	systems     []domain.SystemSample
	instruments []domain.InstrumentSample
	failSystem  error
}

func (w *recordingWriter) StoreSnapshot(ctx context.Context, deviceName string, values map[string]float64, timestamp string) error {
	return nil
}

func (w *recordingWriter) StoreSystemSnapshot(ctx context.Context, sample domain.SystemSample) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failSystem != nil {
		return w.failSystem
	}
	w.systems = append(w.systems, sample)
	return nil
}

func (w *recordingWriter) StoreInstrumentSnapshot(ctx context.Context, sample domain.InstrumentSample) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.instruments = append(w.instruments, sample)
	return nil
}

type stubSystem struct{ sample domain.SystemSample }

func (s stubSystem) Sample(ctx context.Context) domain.SystemSample { return s.sample }

type stubInstruments struct{ sample domain.InstrumentSample }

func (s stubInstruments) Sample(ctx context.Context) domain.InstrumentSample { return s.sample }

type scriptedSource struct {
	prices map[string]float64
	fail   map[string]error
	panics map[string]bool
}

func (s *scriptedSource) Fetch(ctx context.Context, symbol string) (float64, float64, error) {
	if s.panics[symbol] {
		panic("feed exploded")
	}
	if err := s.fail[symbol]; err != nil {
		return 0, 0, err
	}
	return s.prices[symbol], 1000, nil
}

type stubReader struct {
	domain.MetricReader
	prices map[string]float64
}

func (r stubReader) LatestValue(ctx context.Context, deviceName, metricName string) (float64, bool, error) {
	v, ok := r.prices[deviceName]
	return v, ok, nil
}

type channelPublisher chan domain.Report

func (c channelPublisher) Publish(report domain.Report) { c <- report }

func TestHostSamplerZeroesFailedProbes(t *testing.T) {
	sampler := NewHostSampler(HostSamplerConfig{Clock: clockwork.NewFakeClockAt(testNow)})
	sampler.probes = hostProbes{
		cpuPercent: func(ctx context.Context) (float64, error) { return 0, errors.New("no cpu stats") },
		memory: func(ctx context.Context) (*mem.VirtualMemoryStat, error) {
			return &mem.VirtualMemoryStat{UsedPercent: 55.5, Total: 16, Available: 7}, nil
		},
		disk: func(ctx context.Context, path string) (*disk.UsageStat, error) {
			assert.Equal(t, "/", path)
			return &disk.UsageStat{UsedPercent: 71, Total: 100, Used: 71, Free: 29}, nil
		},
		processes: func(ctx context.Context) (float64, float64, error) { return 0, 0, errors.New("denied") },
		hostInfo: func(ctx context.Context) (*host.InfoStat, error) {
			return &host.InfoStat{Hostname: "box", Platform: "linux"}, nil
		},
		cpuCores: func(ctx context.Context) (int, error) { return 8, nil },
	}

	sample := sampler.Sample(context.Background())
	assert.Equal(t, "2024-03-06 12:00:00", sample.Timestamp)
	assert.Equal(t, 0.0, sample.CPUPercent)
	assert.Equal(t, 55.5, sample.MemoryPercent)
	assert.Equal(t, 71.0, sample.DiskPercent)
	assert.Equal(t, 0.0, sample.RunningProcesses)
	assert.Equal(t, 0.0, sample.ThreadCount)
	require.NotNil(t, sample.Host)
	assert.Equal(t, "box", sample.Host.Hostname)
	assert.Equal(t, 8, sample.Host.CPUCores)
	assert.Equal(t, uint64(29), sample.Host.DiskFree)
}

func TestRandomWalkSourceStaysNearBase(t *testing.T) {
	source := NewRandomWalkSource(7)
	base := 150.0 + float64(symbolHash("AAPL")%100)

	for i := 0; i < 50; i++ {
		price, volume, err := source.Fetch(context.Background(), "AAPL")
		require.NoError(t, err)
		assert.InDelta(t, base, price, base*0.05+1e-9)
		assert.Greater(t, volume, 0.0)
	}

	_, _, err := source.Fetch(context.Background(), "")
	assert.Error(t, err)
}

func TestInstrumentSamplerChangeAndIsolation(t *testing.T) {
	source := &scriptedSource{
		prices: map[string]float64{"AAPL": 110, "MSFT": 200, "GOOG": 90},
		fail:   map[string]error{"TSLA": errors.New("rate limited")},
		panics: map[string]bool{"NVDA": true},
	}
	sampler, err := NewInstrumentSampler(InstrumentSamplerConfig{
		Symbols:  []string{"AAPL", "MSFT", "TSLA", "NVDA", "GOOG"},
		Source:   source,
		PoolSize: 2,
		Clock:    clockwork.NewFakeClockAt(testNow),
	})
	require.NoError(t, err)
	defer sampler.Stop()

	sampler.LoadPreviousPrices(context.Background(), stubReader{prices: map[string]float64{
		"Stock-AAPL": 100,
		"Stock-GOOG": 0,
	}})

	sample := sampler.Sample(context.Background())
	assert.Equal(t, "2024-03-06 12:00:00", sample.Timestamp)
	require.Len(t, sample.Stocks, 5)

	aapl := sample.Stocks["AAPL"]
	assert.Equal(t, 110.0, aapl.Price)
	assert.InDelta(t, 10.0, aapl.Change, 1e-9)
	assert.InDelta(t, 10.0, aapl.ChangePercent, 1e-9)
	assert.Equal(t, 110.0*1e9, aapl.MarketCap)

	msft := sample.Stocks["MSFT"]
	assert.Equal(t, 0.0, msft.Change, "no previous price means no change")

	goog := sample.Stocks["GOOG"]
	assert.Equal(t, 90.0, goog.Change)
	assert.Equal(t, 0.0, goog.ChangePercent, "zero previous price gives zero percent")

	assert.Equal(t, domain.Quote{Error: "rate limited"}, sample.Stocks["TSLA"])
	assert.Contains(t, sample.Stocks["NVDA"].Error, "feed exploded")
	assert.Equal(t, 0.0, sample.Stocks["NVDA"].Price)

	// The next sample compares against the prices just seen.
	source.prices["MSFT"] = 190
	next := sampler.Sample(context.Background())
	assert.InDelta(t, -10.0, next.Stocks["MSFT"].Change, 1e-9)
	assert.InDelta(t, -5.0, next.Stocks["MSFT"].ChangePercent, 1e-9)
}

func TestNewInstrumentSamplerRequiresSource(t *testing.T) {
	_, err := NewInstrumentSampler(InstrumentSamplerConfig{Symbols: []string{"AAPL"}})
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	summary := Summarize(
		domain.SystemSample{CPUPercent: 91, MemoryPercent: 80, DiskPercent: 85},
		domain.InstrumentSample{Stocks: map[string]domain.Quote{
			"AAPL": {Change: 1.5},
			"MSFT": {Change: -0.2},
			"GOOG": {},
			"TSLA": {Error: "timeout"},
		}},
	)

	assert.Equal(t, StatusWarning, summary.SystemStatus.Status)
	assert.Equal(t, []string{"High CPU usage", "High disk usage"}, summary.SystemStatus.Warnings)
	assert.Equal(t, map[string]string{
		"AAPL": TrendUp,
		"MSFT": TrendDown,
		"GOOG": TrendNoChange,
		"TSLA": TrendNoData,
	}, summary.StockSummary)

	healthy := Summarize(domain.SystemSample{CPUPercent: 10}, domain.InstrumentSample{})
	assert.Equal(t, StatusHealthy, healthy.SystemStatus.Status)
	assert.Empty(t, healthy.SystemStatus.Warnings)
	assert.NotNil(t, healthy.SystemStatus.Warnings)
}

func newTestPoller(t *testing.T, writer *recordingWriter, clock clockwork.Clock, pub Publisher) *Poller {
	t.Helper()
	poller, err := NewPoller(PollerConfig{
		System:      stubSystem{sample: domain.SystemSample{Timestamp: "2024-03-06 12:00:00", CPUPercent: 12}},
		Instruments: stubInstruments{sample: domain.InstrumentSample{Timestamp: "2024-03-06 12:00:00", Stocks: map[string]domain.Quote{"AAPL": {Price: 1, Change: 1}}}},
		Store:       writer,
		Publisher:   pub,
		Interval:    time.Minute,
		Clock:       clock,
	})
	require.NoError(t, err)
	return poller
}

func TestPollerCollect(t *testing.T) {
	writer := &recordingWriter{}
	poller := newTestPoller(t, writer, clockwork.NewFakeClockAt(testNow), nil)

	_, ok := poller.Latest()
	assert.False(t, ok)

	report, err := poller.Collect(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Stored)
	assert.Equal(t, 12.0, report.System.CPUPercent)
	assert.Equal(t, TrendUp, report.Summary.StockSummary["AAPL"])
	assert.Len(t, writer.systems, 1)
	assert.Len(t, writer.instruments, 1)

	latest, ok := poller.Latest()
	assert.True(t, ok)
	assert.Equal(t, report, latest)
}

func TestPollerCollectReportsStoreFailure(t *testing.T) {
	writer := &recordingWriter{failSystem: errors.New("database is locked")}
	poller := newTestPoller(t, writer, clockwork.NewFakeClockAt(testNow), nil)

	report, err := poller.Collect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
	assert.False(t, report.Stored)
	assert.Len(t, writer.instruments, 1, "instrument snapshot is still attempted")
}

func TestPollerConfigValidate(t *testing.T) {
	_, err := NewPoller(PollerConfig{})
	assert.Error(t, err)

	_, err = NewPoller(PollerConfig{
		System:      stubSystem{},
		Instruments: stubInstruments{},
		Store:       &recordingWriter{},
	})
	assert.Error(t, err, "interval is required")
}

func TestPollerRunTicks(t *testing.T) {
	writer := &recordingWriter{}
	clock := clockwork.NewFakeClockAt(testNow)
	reports := make(channelPublisher, 4)
	poller := newTestPoller(t, writer, clock, reports)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx) }()

	waitReport := func() {
		select {
		case <-reports:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for poll cycle")
		}
	}

	// The first cycle runs immediately.
	waitReport()

	blockCtx, blockCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer blockCancel()
	require.NoError(t, clock.BlockUntilContext(blockCtx, 1))

	clock.Advance(time.Minute)
	waitReport()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop")
	}

	writer.mu.Lock()
	defer writer.mu.Unlock()
	assert.Len(t, writer.systems, 2)
}

func TestGenerateHistory(t *testing.T) {
	writer := &recordingWriter{}
	written, err := GenerateHistory(context.Background(), writer, HistoryOptions{
		Start:   testNow.Add(-2 * time.Hour),
		End:     testNow,
		Step:    time.Hour,
		Symbols: []string{"AAPL", "MSFT"},
		Seed:    1,
	})
	require.NoError(t, err)
	assert.Equal(t, 6, written)
	require.Len(t, writer.systems, 3)
	require.Len(t, writer.instruments, 3)
	assert.Equal(t, "2024-03-06 10:00:00", writer.systems[0].Timestamp)
	assert.Equal(t, "2024-03-06 12:00:00", writer.systems[2].Timestamp)
	assert.Len(t, writer.instruments[0].Stocks, 2)

	for _, s := range writer.systems {
		assert.GreaterOrEqual(t, s.CPUPercent, 20.0)
		assert.LessOrEqual(t, s.CPUPercent, 80.0)
	}

	_, err = GenerateHistory(context.Background(), writer, HistoryOptions{Start: testNow, End: testNow})
	assert.Error(t, err)
	_, err = GenerateHistory(context.Background(), writer, HistoryOptions{Start: testNow, End: testNow.Add(-time.Hour), Step: time.Hour})
	assert.Error(t, err)
}

package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"metrics-monitor/internal/domain"
	"metrics-monitor/internal/telemetry"
	"metrics-monitor/internal/util"
)

// Publisher receives every report produced by a poll cycle.
type Publisher interface {
	Publish(report domain.Report)
}

type PollerConfig struct {
	System      SystemSampler
	Instruments InstrumentSampleSource
	Store       domain.MetricWriter
	Publisher   Publisher

	Interval time.Duration
	Clock    clockwork.Clock
	Logger   *util.MetricsLogger
}

func (c *PollerConfig) Validate() error {
	if c.System == nil {
		return errors.New("system sampler is required")
	}
	if c.Instruments == nil {
		return errors.New("instrument sampler is required")
	}
	if c.Store == nil {
		return errors.New("store is required")
	}
	if c.Interval <= 0 {
		return errors.New("poll interval must be > 0")
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Logger == nil {
		c.Logger = util.GetLogger("poller")
	}
	return nil
}

// Poller drives one collect-store-publish cycle per interval. Cycles never
// overlap: a slow write delays the next tick.
type Poller struct {
	cfg PollerConfig

	collectMu sync.Mutex

	latestMu sync.RWMutex
	latest   *domain.Report
}

func NewPoller(cfg PollerConfig) (*Poller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Poller{cfg: cfg}, nil
}

func (p *Poller) Run(ctx context.Context) error {
	p.cfg.Logger.LogEvent(util.LOG_LEVEL_INFO, "poller: starting with interval", p.cfg.Interval)

	ticker := p.cfg.Clock.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			p.cfg.Logger.LogEvent(util.LOG_LEVEL_INFO, "poller: context done, stopping:", ctx.Err())
			return nil
		case <-ticker.Chan():
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if _, err := p.Collect(ctx); err != nil {
		p.cfg.Logger.LogEvent(util.LOG_LEVEL_ERROR, "poller: cycle failed, retrying next tick:", err)
	}
}

// Collect samples both device classes, stores them and publishes the
// resulting report. The report is returned even when storing failed.
func (p *Poller) Collect(ctx context.Context) (domain.Report, error) {
	p.collectMu.Lock()
	defer p.collectMu.Unlock()

	system := p.cfg.System.Sample(ctx)
	stocks := p.cfg.Instruments.Sample(ctx)

	var errs []error
	if err := p.cfg.Store.StoreSystemSnapshot(ctx, system); err != nil {
		errs = append(errs, fmt.Errorf("error storing system snapshot: %w", err))
	}
	if err := p.cfg.Store.StoreInstrumentSnapshot(ctx, stocks); err != nil {
		errs = append(errs, fmt.Errorf("error storing instrument snapshot: %w", err))
	}
	err := errors.Join(errs...)

	report := domain.Report{
		System:  system,
		Stocks:  stocks,
		Summary: Summarize(system, stocks),
		Stored:  err == nil,
	}

	if err != nil {
		telemetry.PollCyclesTotal.WithLabelValues(telemetry.ResultError).Inc()
	} else {
		telemetry.PollCyclesTotal.WithLabelValues(telemetry.ResultOK).Inc()
	}

	p.latestMu.Lock()
	p.latest = &report
	p.latestMu.Unlock()

	if p.cfg.Publisher != nil {
		p.cfg.Publisher.Publish(report)
	}
	return report, err
}

// Latest returns the report of the most recent cycle, if any ran yet.
func (p *Poller) Latest() (domain.Report, bool) {
	p.latestMu.RLock()
	defer p.latestMu.RUnlock()
	if p.latest == nil {
		return domain.Report{}, false
	}
	return *p.latest, true
}

package collector

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"metrics-monitor/internal/domain"
)

type HistoryOptions struct {
	Start   time.Time
	End     time.Time
	Step    time.Duration
	Symbols []string
	Seed    int64
}

// GenerateHistory writes a system and an instrument snapshot for every step
// from Start to End inclusive through the regular write path. It returns the
// number of snapshots written and stops at the first failure.
func GenerateHistory(ctx context.Context, writer domain.MetricWriter, opts HistoryOptions) (int, error) {
	if opts.Step <= 0 {
		return 0, errors.New("history step must be > 0")
	}
	if opts.End.Before(opts.Start) {
		return 0, errors.New("history end is before start")
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	prices := make(map[string]float64, len(opts.Symbols))
	for _, symbol := range opts.Symbols {
		prices[symbol] = 150.0 + float64(symbolHash(symbol)%100)
	}

	written := 0
	for t := opts.Start; !t.After(opts.End); t = t.Add(opts.Step) {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		ts := domain.FormatTimestamp(t)

		system := domain.SystemSample{
			Timestamp:        ts,
			CPUPercent:       20 + rng.Float64()*60,
			MemoryPercent:    30 + rng.Float64()*40,
			DiskPercent:      45 + rng.Float64()*20,
			RunningProcesses: float64(100 + rng.Intn(50)),
			ThreadCount:      float64(1000 + rng.Intn(500)),
		}
		if err := writer.StoreSystemSnapshot(ctx, system); err != nil {
			return written, fmt.Errorf("error writing system history at %s: %w", ts, err)
		}
		written++

		if len(opts.Symbols) == 0 {
			continue
		}
		stocks := domain.InstrumentSample{Timestamp: ts, Stocks: make(map[string]domain.Quote, len(opts.Symbols))}
		for _, symbol := range opts.Symbols {
			prev := prices[symbol]
			price := prev * (1 + rng.Float64()*0.04 - 0.02)
			change := price - prev
			prices[symbol] = price
			stocks.Stocks[symbol] = domain.Quote{
				Price:         price,
				Volume:        float64(1000000 + rng.Intn(9000000)),
				Change:        change,
				ChangePercent: change / prev * 100,
				MarketCap:     price * marketCapMultiplier,
			}
		}
		if err := writer.StoreInstrumentSnapshot(ctx, stocks); err != nil {
			return written, fmt.Errorf("error writing instrument history at %s: %w", ts, err)
		}
		written++
	}
	return written, nil
}

package collector

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/jonboulle/clockwork"

	"metrics-monitor/internal/domain"
	"metrics-monitor/internal/util"
)

const (
	DefaultInstrumentPoolSize = 4

	marketCapMultiplier = 1e9
)

// InstrumentSampleSource produces one snapshot covering every tracked symbol.
type InstrumentSampleSource interface {
	Sample(ctx context.Context) domain.InstrumentSample
}

// QuoteSource returns the current price and traded volume of a symbol.
type QuoteSource interface {
	Fetch(ctx context.Context, symbol string) (price, volume float64, err error)
}

// RandomWalkSource simulates quotes around a per-symbol base price derived
// from the symbol name, moving at most 5% either way per call.
type RandomWalkSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomWalkSource(seed int64) *RandomWalkSource {
	return &RandomWalkSource{rng: rand.New(rand.NewSource(seed))}
}

func symbolHash(symbol string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return h.Sum32()
}

func (r *RandomWalkSource) Fetch(ctx context.Context, symbol string) (float64, float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	if symbol == "" {
		return 0, 0, errors.New("empty symbol")
	}

	hash := symbolHash(symbol)
	base := 150.0 + float64(hash%100)

	r.mu.Lock()
	fluctuation := r.rng.Float64()*0.1 - 0.05
	volumeJitter := r.rng.Intn(1000001) - 500000
	r.mu.Unlock()

	price := base * (1 + fluctuation)
	volume := 1000000 + float64(hash%9000000) + float64(volumeJitter)
	return price, volume, nil
}

type InstrumentSamplerConfig struct {
	Symbols  []string
	Source   QuoteSource
	PoolSize int
	Clock    clockwork.Clock
	Logger   *util.MetricsLogger
}

// InstrumentSampler fetches all symbols concurrently and derives change
// figures from the previous price it saw for each symbol.
type InstrumentSampler struct {
	cfg  InstrumentSamplerConfig
	pool pond.ResultPool[domain.Quote]

	mu       sync.Mutex
	previous map[string]float64
}

func NewInstrumentSampler(cfg InstrumentSamplerConfig) (*InstrumentSampler, error) {
	if cfg.Source == nil {
		return nil, errors.New("quote source is required")
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = DefaultInstrumentPoolSize
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = util.GetLogger("collector")
	}

	return &InstrumentSampler{
		cfg:      cfg,
		pool:     pond.NewResultPool[domain.Quote](cfg.PoolSize),
		previous: make(map[string]float64),
	}, nil
}

func (s *InstrumentSampler) Symbols() []string {
	return append([]string(nil), s.cfg.Symbols...)
}

// LoadPreviousPrices seeds the change baseline with the latest stored price
// of every symbol. Symbols without history keep no baseline.
func (s *InstrumentSampler) LoadPreviousPrices(ctx context.Context, reader domain.MetricReader) {
	for _, symbol := range s.cfg.Symbols {
		price, found, err := reader.LatestValue(ctx, domain.InstrumentDeviceName(symbol), domain.MetricPrice)
		if err != nil {
			s.cfg.Logger.LogEvent(util.LOG_LEVEL_WARN, "error loading previous price for", symbol+":", err)
			continue
		}
		if found {
			s.mu.Lock()
			s.previous[symbol] = price
			s.mu.Unlock()
		}
	}
}

func (s *InstrumentSampler) Sample(ctx context.Context) domain.InstrumentSample {
	sample := domain.InstrumentSample{
		Timestamp: domain.FormatTimestamp(s.cfg.Clock.Now()),
		Stocks:    make(map[string]domain.Quote, len(s.cfg.Symbols)),
	}
	if len(s.cfg.Symbols) == 0 {
		return sample
	}

	s.mu.Lock()
	previous := make(map[string]float64, len(s.previous))
	for k, v := range s.previous {
		previous[k] = v
	}
	s.mu.Unlock()

	group := s.pool.NewGroupContext(ctx)
	for _, symbol := range s.cfg.Symbols {
		prev, hasPrev := previous[symbol]
		group.Submit(func() domain.Quote {
			return s.quote(ctx, symbol, prev, hasPrev)
		})
	}

	quotes, err := group.Wait()
	if err != nil || len(quotes) != len(s.cfg.Symbols) {
		if err == nil {
			err = fmt.Errorf("expected %d quotes, got %d", len(s.cfg.Symbols), len(quotes))
		}
		s.cfg.Logger.LogEvent(util.LOG_LEVEL_ERROR, "instrument sampler:", err)
		for _, symbol := range s.cfg.Symbols {
			sample.Stocks[symbol] = domain.Quote{Error: err.Error()}
		}
		return sample
	}

	s.mu.Lock()
	for i, symbol := range s.cfg.Symbols {
		sample.Stocks[symbol] = quotes[i]
		if quotes[i].Error == "" {
			s.previous[symbol] = quotes[i].Price
		}
	}
	s.mu.Unlock()
	return sample
}

// quote never fails: a source error or panic becomes a zero quote carrying
// the error text, so the remaining symbols are unaffected.
func (s *InstrumentSampler) quote(ctx context.Context, symbol string, previous float64, hasPrevious bool) (q domain.Quote) {
	defer func() {
		if r := recover(); r != nil {
			q = domain.Quote{Error: fmt.Sprintf("panic: %v", r)}
			s.cfg.Logger.LogEvent(util.LOG_LEVEL_ERROR, "error getting data for", symbol+":", r)
		}
	}()

	price, volume, err := s.cfg.Source.Fetch(ctx, symbol)
	if err != nil {
		s.cfg.Logger.LogEvent(util.LOG_LEVEL_ERROR, "error getting data for", symbol+":", err)
		return domain.Quote{Error: err.Error()}
	}

	q = domain.Quote{
		Price:     price,
		Volume:    volume,
		MarketCap: price * marketCapMultiplier,
	}
	if hasPrevious {
		q.Change = price - previous
		if previous > 0 {
			q.ChangePercent = q.Change / previous * 100
		}
	}
	return q
}

func (s *InstrumentSampler) Stop() {
	s.pool.StopAndWait()
}

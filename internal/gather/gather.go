// Package gather fetches daily closing prices from the Alpaca market-data
// API and persists them to the price store.
package gather

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"backsim/internal/domain"
	"backsim/internal/store"
	"backsim/internal/util"
)

// Gatherer is the interface for all data gathering processes.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Run starts the data gathering process.
	Run(ctx context.Context) error
}

// Instrument maps an exchange ticker symbol to the instrument identifier
// used throughout the engine.
type Instrument struct {
	Symbol string
	ISIN   domain.ISIN
}

// barClient is the slice of the Alpaca market-data client the gatherer
// uses. *marketdata.Client satisfies it.
type barClient interface {
	GetMultiBars(symbols []string, req marketdata.GetBarsRequest) (map[string][]marketdata.Bar, error)
}

// Compile-time interface checks.
var _ Gatherer = (*CloseGatherer)(nil)
var _ barClient = (*marketdata.Client)(nil)

// CloseGatherer gathers daily closing prices for a fixed instrument list
// via the Alpaca market-data API.
type CloseGatherer struct {
	client      barClient
	store       store.PriceStore
	instruments []Instrument
	batchSize   int
	start       time.Time
	end         time.Time
	limiter     *util.RateLimiter
	maxAttempts int
	retryDelay  time.Duration
	log         *slog.Logger
}

// CloseGathererConfig configures a CloseGatherer.
type CloseGathererConfig struct {
	APIKey      string
	APISecret   string
	DataURL     string // empty for the default Alpaca endpoint
	Store       store.PriceStore
	Instruments []Instrument
	Start       time.Time
	End         time.Time // zero value means up to yesterday
	BatchSize   int       // symbols per API call, defaults to 200
	RatePerMin  int       // API calls per minute, defaults to 200
	MaxAttempts int       // retries per batch, defaults to 3
}

// NewCloseGatherer creates a CloseGatherer from the given configuration.
func NewCloseGatherer(cfg CloseGathererConfig) (*CloseGatherer, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("gather: price store is required")
	}
	if len(cfg.Instruments) == 0 {
		return nil, fmt.Errorf("gather: instrument list is empty")
	}
	for _, inst := range cfg.Instruments {
		if inst.Symbol == "" {
			return nil, fmt.Errorf("gather: instrument %s has no symbol", inst.ISIN)
		}
		if err := inst.ISIN.Validate(); err != nil {
			return nil, fmt.Errorf("gather: instrument %s: %w", inst.Symbol, err)
		}
	}

	opts := marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.DataURL != "" {
		opts.BaseURL = cfg.DataURL
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 200
	}
	ratePerMin := cfg.RatePerMin
	if ratePerMin <= 0 {
		ratePerMin = 200
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	end := cfg.End
	if end.IsZero() {
		end = time.Now().UTC().AddDate(0, 0, -1)
	}

	return &CloseGatherer{
		client:      marketdata.NewClient(opts),
		store:       cfg.Store,
		instruments: cfg.Instruments,
		batchSize:   batchSize,
		start:       cfg.Start,
		end:         end,
		limiter:     util.NewRateLimiter(ratePerMin),
		maxAttempts: maxAttempts,
		retryDelay:  time.Second,
		log:         slog.Default().With("gatherer", "daily-closes"),
	}, nil
}

// Name returns the gatherer identifier.
func (g *CloseGatherer) Name() string { return "daily-closes" }

// Run fetches daily bars for all configured instruments and writes their
// closing prices to the store. Writes are idempotent, so reruns over an
// overlapping date range are safe.
func (g *CloseGatherer) Run(ctx context.Context) error {
	bySymbol := make(map[string]domain.ISIN, len(g.instruments))
	symbols := make([]string, 0, len(g.instruments))
	for _, inst := range g.instruments {
		bySymbol[inst.Symbol] = inst.ISIN
		symbols = append(symbols, inst.Symbol)
	}

	runStart := time.Now()
	total := 0

	for i := 0; i < len(symbols); i += g.batchSize {
		batch := symbols[i:min(i+g.batchSize, len(symbols))]

		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}

		var bars map[string][]marketdata.Bar
		err := util.Retry(ctx, g.maxAttempts, g.retryDelay, func() error {
			var err error
			bars, err = g.client.GetMultiBars(batch, marketdata.GetBarsRequest{
				TimeFrame: marketdata.OneDay,
				Start:     g.start,
				End:       g.end,
			})
			return err
		})
		if err != nil {
			return fmt.Errorf("fetching bars for %v: %w", batch, err)
		}

		closes := closesFromBars(bars, bySymbol)
		if len(closes) == 0 {
			g.log.Warn("batch returned no bars", "symbols", batch)
			continue
		}
		if err := g.store.WriteCloses(ctx, closes); err != nil {
			return fmt.Errorf("writing closes: %w", err)
		}
		total += len(closes)

		g.log.Info("batch done", "symbols", len(batch), "closes", len(closes))
	}

	g.log.Info("complete", "closes", total, "elapsed", time.Since(runStart).Round(time.Second))
	return nil
}

// closesFromBars converts the Alpaca multi-bar response to daily closes,
// normalising each bar's timestamp to midnight UTC.
func closesFromBars(bars map[string][]marketdata.Bar, bySymbol map[string]domain.ISIN) []store.DailyClose {
	var closes []store.DailyClose
	for symbol, symbolBars := range bars {
		isin, ok := bySymbol[symbol]
		if !ok {
			continue
		}
		for _, b := range symbolBars {
			ts := b.Timestamp.UTC()
			closes = append(closes, store.DailyClose{
				ISIN:  isin,
				Date:  time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC),
				Close: domain.Amount(b.Close),
			})
		}
	}
	return closes
}

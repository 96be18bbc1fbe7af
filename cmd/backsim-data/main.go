// Command backsim-data fetches daily closing prices from the Alpaca
// market-data API and writes them to the Parquet price store.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backsim/internal/config"
	"backsim/internal/domain"
	"backsim/internal/gather"
	"backsim/internal/store"
	"backsim/internal/util"
)

func main() {
	cfgPath := flag.String("config", "config/backsim.yaml", "path to the YAML configuration file")
	flag.Parse()

	if p := os.Getenv("BACKSIM_CONFIG"); p != "" {
		*cfgPath = p
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	util.SetDefault(util.NewLogger(cfg.Logging.Level))

	start, err := time.Parse("2006-01-02", cfg.Gather.StartDate)
	if err != nil {
		log.Fatalf("parsing gather start date: %v", err)
	}

	var end time.Time
	if cfg.Gather.EndDate != "" {
		end, err = time.Parse("2006-01-02", cfg.Gather.EndDate)
		if err != nil {
			log.Fatalf("parsing gather end date: %v", err)
		}
	} else {
		end, err = gather.LatestFinishedTradingDay(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL)
		if err != nil {
			log.Fatalf("determining end date: %v", err)
		}
	}

	instruments := make([]gather.Instrument, 0, len(cfg.Simulation.Instruments))
	for _, inst := range cfg.Simulation.Instruments {
		instruments = append(instruments, gather.Instrument{
			Symbol: inst.Symbol,
			ISIN:   domain.ISIN(inst.ISIN),
		})
	}

	gatherer, err := gather.NewCloseGatherer(gather.CloseGathererConfig{
		APIKey:      cfg.Alpaca.APIKey,
		APISecret:   cfg.Alpaca.APISecret,
		DataURL:     cfg.Alpaca.DataURL,
		Store:       store.NewParquetPriceStore(cfg.Storage.DataDir),
		Instruments: instruments,
		Start:       start,
		End:         end,
		BatchSize:   cfg.Gather.BatchSize,
		RatePerMin:  cfg.Gather.RateLimitPerMin,
		MaxAttempts: cfg.Gather.MaxAttempts,
	})
	if err != nil {
		log.Fatalf("creating gatherer: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("starting backsim-data",
		"start", start.Format("2006-01-02"),
		"end", end.Format("2006-01-02"),
		"instruments", len(instruments),
	)
	if err := gatherer.Run(ctx); err != nil {
		log.Fatalf("gathering closes: %v", err)
	}
}

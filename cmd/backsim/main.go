// Command backsim replays stored daily closing prices through a trading
// strategy and prints the resulting performance report.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"backsim/internal/account"
	"backsim/internal/broker"
	"backsim/internal/commission"
	"backsim/internal/config"
	"backsim/internal/domain"
	"backsim/internal/marketdata"
	"backsim/internal/report"
	"backsim/internal/simulation"
	"backsim/internal/store"
	"backsim/internal/strategy"
	"backsim/internal/strategy/trigger"
	"backsim/internal/tax"
	"backsim/internal/util"
)

func main() {
	cfgPath := flag.String("config", "config/backsim.yaml", "path to the YAML configuration file")
	save := flag.Bool("save", false, "persist the account transaction log to SQLite after the run")
	flag.Parse()

	if p := os.Getenv("BACKSIM_CONFIG"); p != "" {
		*cfgPath = p
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	util.SetDefault(util.NewLogger(cfg.Logging.Level))

	if err := run(context.Background(), cfg, *save); err != nil {
		log.Fatalf("backsim: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, save bool) error {
	start, err := time.Parse("2006-01-02", cfg.Simulation.StartDate)
	if err != nil {
		return fmt.Errorf("parsing simulation start date: %w", err)
	}
	end, err := time.Parse("2006-01-02", cfg.Simulation.EndDate)
	if err != nil {
		return fmt.Errorf("parsing simulation end date: %w", err)
	}

	priceStore := store.NewParquetPriceStore(cfg.Storage.DataDir)
	snaps, err := priceStore.ReadSnapshots(ctx, start, end)
	if err != nil {
		return fmt.Errorf("reading snapshots: %w", err)
	}
	if len(snaps) < 2 {
		return fmt.Errorf("need at least 2 trading days in [%s, %s], got %d",
			cfg.Simulation.StartDate, cfg.Simulation.EndDate, len(snaps))
	}

	// The first snapshot seeds the history; the rest are simulated days.
	history, err := marketdata.NewHistory(snaps[0])
	if err != nil {
		return fmt.Errorf("seeding history: %w", err)
	}

	cs, err := commission.FromConfig(
		cfg.Simulation.Commission.Kind,
		cfg.Simulation.Commission.Fixed,
		cfg.Simulation.Commission.Rate,
		cfg.Simulation.Commission.MinVariable,
		cfg.Simulation.Commission.MaxVariable,
	)
	if err != nil {
		return err
	}

	acc := account.New(domain.Amount(cfg.Simulation.SeedCapital))
	brk := broker.New(acc, history, cs)

	registry, err := buildRegistry(cfg, acc, brk, history)
	if err != nil {
		return err
	}
	strat, ok := registry.Get(cfg.Simulation.Strategy)
	if !ok {
		return fmt.Errorf("unknown strategy %q, available: %v", cfg.Simulation.Strategy, registry.List())
	}

	var taxes *tax.Ledger
	if cfg.Simulation.TaxRate > 0 {
		taxes = tax.NewLedger(tax.LinearCalculator{Rate: cfg.Simulation.TaxRate})
	}

	result, err := simulation.New(acc, brk, history, strat, taxes).Run(snaps[1:])
	if err != nil {
		return err
	}

	fmt.Print(report.Render(
		strat.Name(),
		cfg.Simulation.StartDate,
		cfg.Simulation.EndDate,
		cfg.Simulation.SeedCapital,
		result,
	))

	if save && cfg.Storage.SQLitePath != "" {
		if err := saveAccount(ctx, cfg.Storage.SQLitePath, acc, cfg.Simulation.SeedCapital); err != nil {
			return fmt.Errorf("saving account: %w", err)
		}
	}
	return nil
}

// buildRegistry wires both built-in strategies from the configuration so the
// run can select one by name.
func buildRegistry(cfg *config.Config, acc *account.Account, brk *broker.Broker, history *marketdata.History) (*strategy.Registry, error) {
	registry := strategy.NewRegistry()

	if cfg.Simulation.Strategy == "progressive" {
		buy, err := triggerFromConfig(cfg.Simulation.Progressive.BuyTrigger)
		if err != nil {
			return nil, fmt.Errorf("buy trigger: %w", err)
		}
		sell, err := triggerFromConfig(cfg.Simulation.Progressive.SellTrigger)
		if err != nil {
			return nil, fmt.Errorf("sell trigger: %w", err)
		}
		reset, err := triggerFromConfig(cfg.Simulation.Progressive.ResetTrigger)
		if err != nil {
			return nil, fmt.Errorf("reset trigger: %w", err)
		}

		progressive, err := strategy.NewProgressive(strategy.ProgressiveConfig{
			ISIN:         domain.ISIN(cfg.Simulation.Progressive.ISIN),
			Account:      acc,
			Broker:       brk,
			History:      history,
			BuyTrigger:   buy,
			SellTrigger:  sell,
			ResetTrigger: reset,
		})
		if err != nil {
			return nil, err
		}
		registry.Register(progressive)
	}

	if cfg.Simulation.Strategy == "compound" {
		buyScorer, err := scorerFromConfig(cfg.Simulation.Compound.BuyScorer)
		if err != nil {
			return nil, fmt.Errorf("buy scorer: %w", err)
		}
		sellScorer, err := scorerFromConfig(cfg.Simulation.Compound.SellScorer)
		if err != nil {
			return nil, fmt.Errorf("sell scorer: %w", err)
		}

		compound, err := strategy.NewCompound(strategy.CompoundConfig{
			Account:              acc,
			Broker:               brk,
			History:              history,
			BuyScorer:            buyScorer,
			SellScorer:           sellScorer,
			MinBuyScore:          cfg.Simulation.Compound.MinBuyScore,
			MinSellScore:         cfg.Simulation.Compound.MinSellScore,
			MaxPercentagePerISIN: cfg.Simulation.Compound.MaxPercentagePerISIN,
		})
		if err != nil {
			return nil, err
		}
		registry.Register(compound)
	}

	return registry, nil
}

func triggerFromConfig(tc config.Trigger) (trigger.Factory, error) {
	switch tc.Kind {
	case "declining-streak":
		return trigger.DecliningStreak{Days: domain.DayCount(tc.Days)}, nil
	case "rising-streak":
		return trigger.RisingStreak{Days: domain.DayCount(tc.Days)}, nil
	case "wait-days":
		return trigger.WaitDays{Days: domain.DayCount(tc.Days)}, nil
	case "below-maximum":
		return trigger.BelowMaximum{MinPercentage: tc.MinPercentage}, nil
	case "always":
		return trigger.Always{}, nil
	case "never":
		return trigger.Never{}, nil
	default:
		return nil, fmt.Errorf("unknown trigger kind %q", tc.Kind)
	}
}

func scorerFromConfig(kind string) (strategy.ScoringStrategy, error) {
	switch kind {
	case "below-maximum":
		return strategy.BelowMaximumScorer{}, nil
	case "rising-streak":
		return strategy.RisingStreakScorer{}, nil
	default:
		return nil, fmt.Errorf("unknown scorer kind %q", kind)
	}
}

func saveAccount(ctx context.Context, dbPath string, acc *account.Account, seedCapital float64) error {
	accountStore, err := store.NewSQLiteAccountStore(dbPath)
	if err != nil {
		return err
	}
	defer accountStore.Close()

	id, err := accountStore.CreateAccount(ctx, domain.Amount(seedCapital))
	if err != nil {
		return err
	}
	if err := accountStore.SaveAccount(ctx, id, acc); err != nil {
		return err
	}
	fmt.Printf("account saved: %s\n", id)
	return nil
}

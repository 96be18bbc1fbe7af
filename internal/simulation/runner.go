// Package simulation drives a backtest day by day: drain the broker's order
// queue at day open, tick the strategy, register the day's closing prices,
// and mark every held position to market. Everything runs on the caller's
// goroutine; independent simulation runs must own independent instances.
package simulation

import (
	"fmt"
	"log/slog"
	"time"

	"backsim/internal/account"
	"backsim/internal/broker"
	"backsim/internal/marketdata"
	"backsim/internal/strategy"
	"backsim/internal/tax"
)

// Runner replays market snapshots through one account, broker, and strategy.
type Runner struct {
	account  *account.Account
	broker   *broker.Broker
	history  *marketdata.History
	strategy strategy.TradingStrategy
	taxes    *tax.Ledger
	log      *slog.Logger

	initialBalance float64
	balances       []float64
	taxYear        int
}

// New creates a Runner. The history must already be seeded with the first
// snapshot; Run consumes the remaining ones. The tax ledger may be nil.
func New(acc *account.Account, brk *broker.Broker, history *marketdata.History, strat strategy.TradingStrategy, taxes *tax.Ledger) *Runner {
	r := &Runner{
		account:  acc,
		broker:   brk,
		history:  history,
		strategy: strat,
		taxes:    taxes,
		log:      slog.Default().With("component", "simulation"),
	}
	if taxes != nil {
		acc.AddListener(taxes)
	}
	r.initialBalance = float64(acc.Balance())
	r.balances = append(r.balances, r.initialBalance)
	r.taxYear = history.LastDate().Year()
	return r
}

// OpenDay executes the orders queued on the previous day at the last known
// closing prices, then asks the strategy to prepare orders for the next
// trading day.
func (r *Runner) OpenDay(date time.Time) error {
	if err := r.broker.NotifyDayOpened(date); err != nil {
		return fmt.Errorf("opening %s: %w", date.Format("2006-01-02"), err)
	}
	if err := r.strategy.PrepareOrdersForNextTradingDay(); err != nil {
		return fmt.Errorf("strategy on %s: %w", date.Format("2006-01-02"), err)
	}
	return nil
}

// CloseDay registers the day's closing prices, marks held positions to
// market, and rolls the tax period on a year change.
func (r *Runner) CloseDay(snapshot marketdata.Snapshot) error {
	if err := r.history.RegisterClosedDay(snapshot); err != nil {
		return fmt.Errorf("closing %s: %w", snapshot.Date.Format("2006-01-02"), err)
	}

	for _, isin := range r.account.HeldInstruments() {
		price, err := r.history.LastClosingPrice(isin)
		if err != nil {
			return err
		}
		r.account.ReportMarketPrice(isin, price)
	}

	if r.taxes != nil && snapshot.Date.Year() != r.taxYear {
		r.taxes.StartNewPeriod()
		r.taxYear = snapshot.Date.Year()
	}

	r.balances = append(r.balances, float64(r.account.Balance()))
	return nil
}

// Run replays the snapshots in order. Each snapshot is one trading day:
// open (drain + strategy tick), then close (register prices, mark to
// market).
func (r *Runner) Run(snapshots []marketdata.Snapshot) (*Result, error) {
	for _, snapshot := range snapshots {
		if err := r.OpenDay(snapshot.Date); err != nil {
			return nil, err
		}
		if err := r.CloseDay(snapshot); err != nil {
			return nil, err
		}
	}

	result := computeResult(r.initialBalance, r.balances, r.account.Transactions())
	if r.taxes != nil {
		reserved, err := r.taxes.ReservedTaxes()
		if err != nil {
			return nil, err
		}
		result.ReservedTaxes = reserved
	}
	r.log.Info("simulation finished",
		"days", len(r.balances)-1,
		"totalReturn", result.TotalReturn,
		"trades", result.TotalTrades,
	)
	return result, nil
}

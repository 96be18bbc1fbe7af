package simulation

import (
	"testing"
	"time"

	"backsim/internal/account"
	"backsim/internal/broker"
	"backsim/internal/commission"
	"backsim/internal/domain"
	"backsim/internal/marketdata"
	"backsim/internal/strategy"
	"backsim/internal/strategy/trigger"
	"backsim/internal/tax"
)

func snapshots(t *testing.T, isin domain.ISIN, closes ...float64) []marketdata.Snapshot {
	t.Helper()
	out := make([]marketdata.Snapshot, len(closes))
	for i, c := range closes {
		out[i] = marketdata.Snapshot{
			Date:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Prices: map[domain.ISIN]domain.Amount{isin: domain.Amount(c)},
		}
	}
	return out
}

func TestRunnerReplaysProgressiveCycle(t *testing.T) {
	snaps := snapshots(t, "DE0001", 1000, 1000, 1000, 1000, 1000)

	history, err := marketdata.NewHistory(snaps[0])
	if err != nil {
		t.Fatalf("NewHistory returned error: %v", err)
	}
	acc := account.New(50000)
	brk := broker.New(acc, history, commission.Free{})
	strat, err := strategy.NewProgressive(strategy.ProgressiveConfig{
		ISIN:         "DE0001",
		Account:      acc,
		Broker:       brk,
		History:      history,
		BuyTrigger:   trigger.Always{},
		SellTrigger:  trigger.WaitDays{Days: 0},
		ResetTrigger: trigger.Never{},
	})
	if err != nil {
		t.Fatalf("NewProgressive returned error: %v", err)
	}
	taxes := tax.NewLedger(tax.LinearCalculator{Rate: 0.25})

	result, err := New(acc, brk, history, strat, taxes).Run(snaps[1:])
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	// Day 2 open: buy of 50 shares executes at 1000. Day 3 open: sell of
	// 50 executes at 1000. Later days: idle.
	if got := acc.HeldQuantity("DE0001"); got != 0 {
		t.Errorf("HeldQuantity = %d, want 0 after full cycle", got)
	}
	if result.TotalTrades != 2 {
		t.Errorf("TotalTrades = %d, want 2", result.TotalTrades)
	}
	if result.WinRate != 0 {
		t.Errorf("WinRate = %v, want 0 (flat round trip)", result.WinRate)
	}
	if got := acc.Balance(); got != 50000 {
		t.Errorf("Balance = %v, want 50000", got)
	}
}

func TestRunnerMarksPositionsToMarket(t *testing.T) {
	snaps := snapshots(t, "DE0001", 1000, 1000, 1100)

	history, err := marketdata.NewHistory(snaps[0])
	if err != nil {
		t.Fatalf("NewHistory returned error: %v", err)
	}
	acc := account.New(50000)
	brk := broker.New(acc, history, commission.Free{})
	strat, err := strategy.NewProgressive(strategy.ProgressiveConfig{
		ISIN:         "DE0001",
		Account:      acc,
		Broker:       brk,
		History:      history,
		BuyTrigger:   trigger.Always{},
		SellTrigger:  trigger.Never{},
		ResetTrigger: trigger.Never{},
	})
	if err != nil {
		t.Fatalf("NewProgressive returned error: %v", err)
	}

	result, err := New(acc, brk, history, strat, nil).Run(snaps[1:])
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	// 50 shares bought at 1000 close at 1100: balance 50000 + 50×100.
	if got := acc.Balance(); got != 55000 {
		t.Errorf("Balance = %v, want 55000 after mark to market", got)
	}
	if result.TotalReturn != 0.1 {
		t.Errorf("TotalReturn = %v, want 0.1", result.TotalReturn)
	}
}

func TestRunnerSurfacesStaleSnapshots(t *testing.T) {
	snaps := snapshots(t, "DE0001", 1000, 1000)

	history, err := marketdata.NewHistory(snaps[0])
	if err != nil {
		t.Fatalf("NewHistory returned error: %v", err)
	}
	acc := account.New(1000)
	brk := broker.New(acc, history, commission.Free{})
	strat, err := strategy.NewProgressive(strategy.ProgressiveConfig{
		ISIN:         "DE0001",
		Account:      acc,
		Broker:       brk,
		History:      history,
		BuyTrigger:   trigger.Never{},
		SellTrigger:  trigger.Never{},
		ResetTrigger: trigger.Never{},
	})
	if err != nil {
		t.Fatalf("NewProgressive returned error: %v", err)
	}

	// Replay the seed snapshot again: its date is not after the last day.
	if _, err := New(acc, brk, history, strat, nil).Run(snaps[:1]); err == nil {
		t.Error("Run with a stale snapshot should fail")
	}
}

package strategy

import (
	"testing"

	"backsim/internal/domain"
	"backsim/internal/marketdata"
)

// fixedScorer returns preset scores per instrument.
type fixedScorer map[domain.ISIN]float64

func (f fixedScorer) Score(_ *marketdata.History, isin domain.ISIN) (Score, error) {
	return Score{Value: f[isin]}, nil
}

func newCompound(t *testing.T, rig *testRig, cfg CompoundConfig) *Compound {
	t.Helper()
	cfg.Account = rig.account
	cfg.Broker = rig.broker
	cfg.History = rig.history
	c, err := NewCompound(cfg)
	if err != nil {
		t.Fatalf("NewCompound returned error: %v", err)
	}
	return c
}

func TestCompoundSplitsCapitalOverEqualScores(t *testing.T) {
	h := testHistory(t, [][]float64{{100}, {100}}, "DE0001", "DE0002")
	rig := newTestRig(t, 10000, h)
	c := newCompound(t, rig, CompoundConfig{
		BuyScorer:            fixedScorer{"DE0001": 0.5, "DE0002": 0.5},
		SellScorer:           fixedScorer{},
		MinBuyScore:          0.1,
		MinSellScore:         1.0,
		MaxPercentagePerISIN: 0.5,
	})

	tick(t, c)
	rig.openDay(t, 1)

	q1 := rig.account.HeldQuantity("DE0001")
	q2 := rig.account.HeldQuantity("DE0002")
	if q1 != 50 || q2 != 50 {
		t.Errorf("quantities = %d/%d, want an even 50/50 split", q1, q2)
	}
	if got := rig.account.AvailableMoney(); got != 0 {
		t.Errorf("AvailableMoney = %v, want 0", got)
	}
}

func TestCompoundRespectsPerInstrumentCap(t *testing.T) {
	h := testHistory(t, [][]float64{{100}, {100}}, "DE0001", "DE0002")
	rig := newTestRig(t, 10000, h)
	c := newCompound(t, rig, CompoundConfig{
		BuyScorer:            fixedScorer{"DE0001": 0.9, "DE0002": 0.1},
		SellScorer:           fixedScorer{},
		MinBuyScore:          0.05,
		MinSellScore:         1.0,
		MaxPercentagePerISIN: 0.2, // 2,000 per instrument on a 10,000 balance
	})

	tick(t, c)
	rig.openDay(t, 1)

	// DE0001's proportional allocation (9,000) is capped at 2,000 → 20
	// shares. DE0002 then gets 0.1/0.1 × 8,000, capped at 2,000 → 20 shares.
	if got := rig.account.HeldQuantity("DE0001"); got != 20 {
		t.Errorf("DE0001 quantity = %d, want 20 (capped)", got)
	}
	if got := rig.account.HeldQuantity("DE0002"); got != 20 {
		t.Errorf("DE0002 quantity = %d, want 20 (capped)", got)
	}
}

func TestCompoundSkipsHeldAndLowScoredInstruments(t *testing.T) {
	h := testHistory(t, [][]float64{{100}, {100}, {100}}, "DE0001", "DE0002", "DE0003")
	rig := newTestRig(t, 10000, h)
	c := newCompound(t, rig, CompoundConfig{
		BuyScorer:            fixedScorer{"DE0001": 0.9, "DE0002": 0.9, "DE0003": 0.01},
		SellScorer:           fixedScorer{},
		MinBuyScore:          0.1,
		MinSellScore:         1.0,
		MaxPercentagePerISIN: 1.0,
	})

	// Open a position in DE0001 first; the buy side must then skip it.
	tick(t, c)
	rig.openDay(t, 1)
	if rig.account.HeldQuantity("DE0001") == 0 {
		t.Fatal("precondition: DE0001 should be held")
	}

	pendingBefore := rig.broker.PendingOrders()
	tick(t, c)
	if got := rig.broker.PendingOrders(); got != pendingBefore {
		t.Errorf("second tick queued %d orders, want 0 (DE0001 held, DE0003 under minimum)", got-pendingBefore)
	}
}

func TestCompoundSellsDownTheRankingUntilMinimum(t *testing.T) {
	h := testHistory(t, [][]float64{{100}, {100}, {100}}, "DE0001", "DE0002", "DE0003")
	rig := newTestRig(t, 30000, h)
	c := newCompound(t, rig, CompoundConfig{
		BuyScorer:            fixedScorer{"DE0001": 0.5, "DE0002": 0.5, "DE0003": 0.5},
		SellScorer:           fixedScorer{"DE0001": 3, "DE0002": 2, "DE0003": 1},
		MinBuyScore:          0.1,
		MinSellScore:         2.0,
		MaxPercentagePerISIN: 0.4,
	})

	tick(t, c)
	rig.openDay(t, 1)
	for _, isin := range []domain.ISIN{"DE0001", "DE0002", "DE0003"} {
		if rig.account.HeldQuantity(isin) == 0 {
			t.Fatalf("precondition: %s should be held", isin)
		}
	}

	tick(t, c)
	rig.openDay(t, 2)

	// Sell scores 3 and 2 pass the minimum of 2; the walk stops at DE0003.
	if got := rig.account.HeldQuantity("DE0001"); got != 0 {
		t.Errorf("DE0001 = %d, want 0 (sold)", got)
	}
	if got := rig.account.HeldQuantity("DE0002"); got != 0 {
		t.Errorf("DE0002 = %d, want 0 (sold)", got)
	}
	if got := rig.account.HeldQuantity("DE0003"); got == 0 {
		t.Error("DE0003 should remain held below the sell minimum")
	}
}

func TestNewCompoundValidation(t *testing.T) {
	h := testHistory(t, [][]float64{{100}}, "DE0001")
	rig := newTestRig(t, 1000, h)

	_, err := NewCompound(CompoundConfig{
		Account: rig.account, Broker: rig.broker, History: rig.history,
		BuyScorer: fixedScorer{}, SellScorer: fixedScorer{},
		MaxPercentagePerISIN: 0,
	})
	if err == nil {
		t.Error("zero per-instrument percentage should fail")
	}

	_, err = NewCompound(CompoundConfig{
		Account: rig.account, Broker: rig.broker, History: rig.history,
		MaxPercentagePerISIN: 0.5,
	})
	if err == nil {
		t.Error("missing scorers should fail")
	}
}

package account

import (
	"errors"
	"testing"
	"time"

	"backsim/internal/domain"
)

var testDate = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func buy(t *testing.T, isin domain.ISIN, qty domain.Quantity, total, comm domain.Amount) *domain.Transaction {
	t.Helper()
	tx, err := domain.NewTransaction(domain.TransactionBuy, isin, qty, total, comm, testDate)
	if err != nil {
		t.Fatalf("NewTransaction returned error: %v", err)
	}
	return tx
}

func sell(t *testing.T, isin domain.ISIN, qty domain.Quantity, total, comm domain.Amount) *domain.Transaction {
	t.Helper()
	tx, err := domain.NewTransaction(domain.TransactionSell, isin, qty, total, comm, testDate)
	if err != nil {
		t.Fatalf("NewTransaction returned error: %v", err)
	}
	return tx
}

func TestBuyAdjustsMoneyAndBalance(t *testing.T) {
	a := New(10000)

	if err := a.RegisterTransaction(buy(t, "DE0001", 10, 1000, 9.9)); err != nil {
		t.Fatalf("RegisterTransaction returned error: %v", err)
	}

	if got := a.AvailableMoney(); got != 10000-1000-9.9 {
		t.Errorf("AvailableMoney = %v, want %v", got, 10000-1000-9.9)
	}
	if got := a.Balance(); got != 10000-9.9 {
		t.Errorf("Balance = %v, want %v", got, 10000-9.9)
	}
	if got := a.Commissions(); got != 9.9 {
		t.Errorf("Commissions = %v, want 9.9", got)
	}

	pos := a.Position("DE0001")
	if pos == nil {
		t.Fatal("Position returned nil after buy")
	}
	if pos.Quantity != 10 || pos.FullMarketPrice != 1000 {
		t.Errorf("position = qty %d price %v, want qty 10 price 1000", pos.Quantity, pos.FullMarketPrice)
	}
}

func TestBuyThenMatchingSellCompensatesPosition(t *testing.T) {
	a := New(10000)

	if err := a.RegisterTransaction(buy(t, "DE0001", 10, 1000, 5)); err != nil {
		t.Fatalf("buy returned error: %v", err)
	}
	if err := a.RegisterTransaction(sell(t, "DE0001", 10, 1200, 5)); err != nil {
		t.Fatalf("sell returned error: %v", err)
	}

	pos := a.Position("DE0001")
	if pos == nil {
		t.Fatal("compensated position must persist, got nil")
	}
	if !pos.Compensated() || pos.FullMarketPrice != 0 {
		t.Errorf("position after full sell = qty %d price %v, want 0/0", pos.Quantity, pos.FullMarketPrice)
	}

	// Cash: 10000 - 1000 - 5 + 1200 - 5; balance: 10000 - 5 + (1200-1000) - 5.
	if got := a.AvailableMoney(); got != 10190 {
		t.Errorf("AvailableMoney = %v, want 10190", got)
	}
	if got := a.Balance(); got != 10190 {
		t.Errorf("Balance = %v, want 10190", got)
	}
	if got := a.Commissions(); got != 10 {
		t.Errorf("Commissions = %v, want 10", got)
	}
}

func TestUnaffordableBuyRollsBackPendingPosition(t *testing.T) {
	a := New(100)

	err := a.RegisterTransaction(buy(t, "DE0001", 10, 1000, 5))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("unaffordable buy = %v, want ErrInsufficientFunds", err)
	}

	if a.Position("DE0001") != nil {
		t.Error("pending position survived a rejected buy")
	}
	if got := a.AvailableMoney(); got != 100 {
		t.Errorf("AvailableMoney = %v, want unchanged 100", got)
	}
	if got := len(a.Transactions()); got != 0 {
		t.Errorf("transaction history has %d entries after rejection, want 0", got)
	}
}

func TestBuyIntoOpenPositionRejected(t *testing.T) {
	a := New(10000)

	if err := a.RegisterTransaction(buy(t, "DE0001", 5, 500, 0)); err != nil {
		t.Fatalf("first buy returned error: %v", err)
	}
	err := a.RegisterTransaction(buy(t, "DE0001", 5, 500, 0))
	if !errors.Is(err, ErrPositionNotCompensated) {
		t.Fatalf("second buy = %v, want ErrPositionNotCompensated", err)
	}

	// The open position must be untouched by the rejection.
	pos := a.Position("DE0001")
	if pos.Quantity != 5 || pos.FullMarketPrice != 500 {
		t.Errorf("position = qty %d price %v, want qty 5 price 500", pos.Quantity, pos.FullMarketPrice)
	}
}

func TestBuyReusesCompensatedPosition(t *testing.T) {
	a := New(10000)

	if err := a.RegisterTransaction(buy(t, "DE0001", 5, 500, 0)); err != nil {
		t.Fatalf("buy returned error: %v", err)
	}
	if err := a.RegisterTransaction(sell(t, "DE0001", 5, 600, 0)); err != nil {
		t.Fatalf("sell returned error: %v", err)
	}
	if err := a.RegisterTransaction(buy(t, "DE0001", 8, 640, 0)); err != nil {
		t.Fatalf("re-buy after compensation returned error: %v", err)
	}

	pos := a.Position("DE0001")
	if pos.Quantity != 8 || pos.FullMarketPrice != 640 {
		t.Errorf("re-bought position = qty %d price %v, want qty 8 price 640", pos.Quantity, pos.FullMarketPrice)
	}
}

func TestSellErrorsAreDistinct(t *testing.T) {
	a := New(10000)

	err := a.RegisterTransaction(sell(t, "DE0001", 5, 500, 0))
	if !errors.Is(err, ErrNoPosition) {
		t.Errorf("sell without position = %v, want ErrNoPosition", err)
	}

	if err := a.RegisterTransaction(buy(t, "DE0001", 10, 1000, 0)); err != nil {
		t.Fatalf("buy returned error: %v", err)
	}

	err = a.RegisterTransaction(sell(t, "DE0001", 4, 400, 0))
	if !errors.Is(err, ErrPartialSellUnsupported) {
		t.Errorf("partial sell = %v, want ErrPartialSellUnsupported", err)
	}
	err = a.RegisterTransaction(sell(t, "DE0001", 11, 1100, 0))
	if !errors.Is(err, ErrExceedingSellUnsupported) {
		t.Errorf("exceeding sell = %v, want ErrExceedingSellUnsupported", err)
	}

	// Ledger unchanged by the rejected sells.
	if got := a.AvailableMoney(); got != 9000 {
		t.Errorf("AvailableMoney = %v, want 9000", got)
	}
	if got := a.HeldQuantity("DE0001"); got != 10 {
		t.Errorf("HeldQuantity = %d, want 10", got)
	}
}

func TestReportMarketPrice(t *testing.T) {
	a := New(10000)

	if err := a.RegisterTransaction(buy(t, "DE0001", 10, 1000, 0)); err != nil {
		t.Fatalf("buy returned error: %v", err)
	}

	a.ReportMarketPrice("DE0001", 110) // position now worth 1100
	if got := a.Balance(); got != 10100 {
		t.Errorf("Balance after price rise = %v, want 10100", got)
	}

	a.ReportMarketPrice("DE0001", 90) // down to 900
	if got := a.Balance(); got != 9900 {
		t.Errorf("Balance after price drop = %v, want 9900", got)
	}

	// Unknown ISINs are a no-op.
	a.ReportMarketPrice("XX9999", 50)
	if got := a.Balance(); got != 9900 {
		t.Errorf("Balance after unknown report = %v, want 9900", got)
	}
}

func TestDividendCreditsCash(t *testing.T) {
	a := New(1000)

	tx, err := domain.NewTransaction(domain.TransactionDividend, "DE0001", 1, 50, 2, testDate)
	if err != nil {
		t.Fatalf("NewTransaction returned error: %v", err)
	}
	if err := a.RegisterTransaction(tx); err != nil {
		t.Fatalf("RegisterTransaction returned error: %v", err)
	}

	if got := a.AvailableMoney(); got != 1048 {
		t.Errorf("AvailableMoney = %v, want 1048", got)
	}
	if got := a.Balance(); got != 1048 {
		t.Errorf("Balance = %v, want 1048", got)
	}
}

type recordingListener struct {
	seen []domain.TransactionType
}

func (r *recordingListener) OnTransactionRegistered(tx *domain.Transaction) error {
	r.seen = append(r.seen, tx.Type)
	return nil
}

func TestListenersSeeAppliedTransactions(t *testing.T) {
	a := New(10000)
	rec := &recordingListener{}
	a.AddListener(rec)

	if err := a.RegisterTransaction(buy(t, "DE0001", 10, 1000, 0)); err != nil {
		t.Fatalf("buy returned error: %v", err)
	}
	if err := a.RegisterTransaction(sell(t, "DE0001", 10, 1100, 0)); err != nil {
		t.Fatalf("sell returned error: %v", err)
	}
	// Rejected transactions must not be observed.
	_ = a.RegisterTransaction(sell(t, "DE0001", 10, 1100, 0))

	if len(rec.seen) != 2 || rec.seen[0] != domain.TransactionBuy || rec.seen[1] != domain.TransactionSell {
		t.Errorf("listener saw %v, want [buy sell]", rec.seen)
	}
}

func TestUnsavedTransactions(t *testing.T) {
	a := New(10000)

	if err := a.RegisterTransaction(buy(t, "DE0001", 10, 1000, 0)); err != nil {
		t.Fatalf("buy returned error: %v", err)
	}
	if err := a.RegisterTransaction(sell(t, "DE0001", 10, 1100, 0)); err != nil {
		t.Fatalf("sell returned error: %v", err)
	}

	a.Transactions()[0].ID = 42 // simulate a persisted transaction

	unsaved := a.UnsavedTransactions()
	if len(unsaved) != 1 || unsaved[0].Type != domain.TransactionSell {
		t.Errorf("UnsavedTransactions = %d entries, want just the sell", len(unsaved))
	}
}

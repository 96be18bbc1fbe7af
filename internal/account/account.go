// Package account implements the trading ledger: positions, transactions,
// money balances, and the bookkeeping invariants that go with them.
package account

import (
	"errors"
	"fmt"

	"backsim/internal/domain"
)

// Ledger state errors. Every rejected transaction leaves the ledger
// unchanged, including rollback of a speculatively created position.
var (
	ErrInsufficientFunds        = errors.New("insufficient funds")
	ErrPositionNotCompensated   = errors.New("subsequent buy for uncompensated position")
	ErrNoPosition               = errors.New("no position for instrument")
	ErrPartialSellUnsupported   = errors.New("sell quantity below held quantity")
	ErrExceedingSellUnsupported = errors.New("sell quantity above held quantity")
)

// Position is an account's holding record for one instrument. A position is
// never deleted: once fully sold it persists at quantity zero so a later buy
// can reuse it. creationPending marks a position created speculatively
// during buy validation, eligible for rollback.
type Position struct {
	ISIN            domain.ISIN
	Quantity        domain.Quantity
	FullMarketPrice domain.Amount

	creationPending bool
}

// Compensated reports whether the position was fully sold (or never filled).
func (p *Position) Compensated() bool { return p.Quantity.IsZero() }

// TransactionListener observes every transaction successfully applied to
// the ledger, in registration order. The tax ledger hooks in here.
type TransactionListener interface {
	OnTransactionRegistered(tx *domain.Transaction) error
}

// Account is one trading ledger. availableMoney is idle cash; balance is
// cash plus the mark-to-market value of open positions, so it also reacts
// to reported price changes.
type Account struct {
	availableMoney domain.Amount
	balance        domain.Amount
	commissions    domain.Amount
	positions      map[domain.ISIN]*Position
	transactions   []*domain.Transaction
	listeners      []TransactionListener
}

// New creates an account holding the given seed capital.
func New(seedCapital domain.Amount) *Account {
	return &Account{
		availableMoney: seedCapital,
		balance:        seedCapital,
		positions:      make(map[domain.ISIN]*Position),
	}
}

// AddListener registers a transaction observer.
func (a *Account) AddListener(l TransactionListener) {
	a.listeners = append(a.listeners, l)
}

// AvailableMoney returns the idle cash.
func (a *Account) AvailableMoney() domain.Amount { return a.availableMoney }

// Balance returns cash plus position market value.
func (a *Account) Balance() domain.Amount { return a.balance }

// Commissions returns the lifetime sum of commissions paid.
func (a *Account) Commissions() domain.Amount { return a.commissions }

// Position returns the holding record for an instrument, or nil if the
// instrument was never bought.
func (a *Account) Position(isin domain.ISIN) *Position {
	return a.positions[isin]
}

// HeldQuantity returns the open quantity for an instrument, zero when the
// position is compensated or was never created.
func (a *Account) HeldQuantity(isin domain.ISIN) domain.Quantity {
	if p, ok := a.positions[isin]; ok {
		return p.Quantity
	}
	return 0
}

// HeldInstruments returns the ISINs of all positions with non-zero quantity.
func (a *Account) HeldInstruments() []domain.ISIN {
	var held []domain.ISIN
	for isin, p := range a.positions {
		if !p.Compensated() {
			held = append(held, isin)
		}
	}
	return held
}

// Transactions returns the processed transaction history in order.
func (a *Account) Transactions() []*domain.Transaction {
	return a.transactions
}

// UnsavedTransactions returns the transactions not yet assigned a persisted
// identifier, in history order. Persistence is append-only.
func (a *Account) UnsavedTransactions() []*domain.Transaction {
	var unsaved []*domain.Transaction
	for _, tx := range a.transactions {
		if tx.ID == 0 {
			unsaved = append(unsaved, tx)
		}
	}
	return unsaved
}

// RegisterTransaction validates and applies one transaction. On any error
// the ledger is left exactly as it was.
func (a *Account) RegisterTransaction(tx *domain.Transaction) error {
	if tx.Quantity <= 0 {
		return fmt.Errorf("%s %s: %w", tx.Type, tx.ISIN, domain.ErrInvalidQuantity)
	}

	switch tx.Type {
	case domain.TransactionBuy:
		if err := a.applyBuy(tx); err != nil {
			return err
		}
	case domain.TransactionSell:
		if err := a.applySell(tx); err != nil {
			return err
		}
	case domain.TransactionDividend:
		a.availableMoney += tx.TotalPrice - tx.Commission
		a.balance += tx.TotalPrice - tx.Commission
		a.commissions += tx.Commission
	default:
		return fmt.Errorf("unknown transaction type %q", tx.Type)
	}

	a.transactions = append(a.transactions, tx)
	for _, l := range a.listeners {
		if err := l.OnTransactionRegistered(tx); err != nil {
			return err
		}
	}
	return nil
}

// applyBuy handles buy bookkeeping. A buy into a position that still holds
// shares is rejected: averaging into an open position is unsupported.
func (a *Account) applyBuy(tx *domain.Transaction) error {
	pos, ok := a.positions[tx.ISIN]
	if !ok {
		pos = &Position{ISIN: tx.ISIN, creationPending: true}
		a.positions[tx.ISIN] = pos
	}

	if !pos.Compensated() {
		return fmt.Errorf("%w: %s holds %d", ErrPositionNotCompensated, tx.ISIN, pos.Quantity)
	}

	cost := tx.TotalPrice + tx.Commission
	if a.availableMoney < cost {
		a.rollbackPending(pos)
		return fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, cost, a.availableMoney)
	}

	pos.Quantity = tx.Quantity
	pos.FullMarketPrice = tx.TotalPrice
	pos.creationPending = false

	a.availableMoney -= cost
	a.balance -= tx.Commission
	a.commissions += tx.Commission
	return nil
}

// applySell handles sell bookkeeping. The sell quantity must match the held
// quantity exactly; partial and exceeding sells are distinct errors.
func (a *Account) applySell(tx *domain.Transaction) error {
	pos, ok := a.positions[tx.ISIN]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPosition, tx.ISIN)
	}
	if tx.Quantity < pos.Quantity {
		return fmt.Errorf("%w: selling %d of %d", ErrPartialSellUnsupported, tx.Quantity, pos.Quantity)
	}
	if tx.Quantity > pos.Quantity {
		return fmt.Errorf("%w: selling %d of %d", ErrExceedingSellUnsupported, tx.Quantity, pos.Quantity)
	}

	margin := tx.TotalPrice - pos.FullMarketPrice
	pos.Quantity = 0
	pos.FullMarketPrice = 0

	a.availableMoney += tx.TotalPrice - tx.Commission
	a.balance += margin - tx.Commission
	a.commissions += tx.Commission
	return nil
}

// rollbackPending removes a position that was created speculatively during
// the current buy's validation. Positions that existed before stay.
func (a *Account) rollbackPending(pos *Position) {
	if pos.creationPending {
		delete(a.positions, pos.ISIN)
	}
}

// ReportMarketPrice marks a held position to the given per-share price and
// moves balance by the resulting value delta. Unknown instruments are
// ignored.
func (a *Account) ReportMarketPrice(isin domain.ISIN, price domain.Amount) {
	pos, ok := a.positions[isin]
	if !ok {
		return
	}
	newValue := price.MulQuantity(pos.Quantity)
	a.balance += newValue - pos.FullMarketPrice
	pos.FullMarketPrice = newValue
}

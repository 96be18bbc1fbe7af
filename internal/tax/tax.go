// Package tax tracks realized profits per category and the tax reserved on
// them, with loss carryforward chained across tax periods.
package tax

import (
	"errors"
	"fmt"

	"backsim/internal/account"
	"backsim/internal/domain"
)

// Category is a profit category taxed independently.
type Category string

const (
	CategorySale      Category = "Sale"
	CategoryDividends Category = "Dividends"
)

// Tax contract errors.
var (
	ErrNegativeTaxableProfit = errors.New("taxable profit must not be negative")
	ErrPaymentExceedsProfit  = errors.New("tax payment exceeds remaining untaxed taxable profit")
	ErrOpenBuyExists         = errors.New("buy registered while another buy is open for the instrument")
	ErrNoOpenBuy             = errors.New("sell registered without an open buy")
	ErrQuantityMismatch      = errors.New("sell quantity does not match the open buy")
)

// Calculator maps a non-negative taxable profit to the tax owed on it.
type Calculator interface {
	Calculate(taxableProfit domain.Amount) (domain.Amount, error)
}

// LinearCalculator taxes profit at a flat rate.
type LinearCalculator struct {
	Rate float64
}

// Calculate returns rate × profit and rejects negative input.
func (c LinearCalculator) Calculate(taxableProfit domain.Amount) (domain.Amount, error) {
	if taxableProfit < 0 {
		return 0, fmt.Errorf("%w: %s", ErrNegativeTaxableProfit, taxableProfit)
	}
	return taxableProfit * domain.Amount(c.Rate), nil
}

// Taxation is one profit category's taxation state in one tax period.
// Accrued and taxed profits are lifetime sums; the previous-period link
// feeds the loss carryforward. Past periods are never mutated: a new year
// clones a fresh link onto the chain.
type Taxation struct {
	accruedProfit domain.Amount
	taxedProfit   domain.Amount
	paidTaxes     domain.Amount
	previous      *Taxation
}

// NewTaxation starts a taxation chain for one category.
func NewTaxation() *Taxation {
	return &Taxation{}
}

// NextPeriod returns the taxation state of the following period, carrying
// the closed period as its loss-carryforward source.
func (t *Taxation) NextPeriod() *Taxation {
	return &Taxation{previous: t}
}

// RegisterProfit accrues a (possibly negative) realized profit.
func (t *Taxation) RegisterProfit(profit domain.Amount) {
	t.accruedProfit += profit
}

// AccruedProfit returns the lifetime accrued profit of this period.
func (t *Taxation) AccruedProfit() domain.Amount { return t.accruedProfit }

// PaidTaxes returns the taxes actually paid in this period.
func (t *Taxation) PaidTaxes() domain.Amount { return t.paidTaxes }

// lossCarryforward is the previous period's unresolved negative taxable
// profit, or zero.
func (t *Taxation) lossCarryforward() domain.Amount {
	if t.previous == nil {
		return 0
	}
	if untaxed := t.previous.UntaxedTaxableProfit(); untaxed < 0 {
		return -untaxed
	}
	return 0
}

// UntaxedTaxableProfit returns the profit still awaiting taxation after
// already-taxed profit and the loss carryforward are deducted. A negative
// result is this period's carryforward into the next.
func (t *Taxation) UntaxedTaxableProfit() domain.Amount {
	return t.accruedProfit - t.taxedProfit - t.lossCarryforward()
}

// ReservedTaxes returns the not-yet-paid tax liability on the untaxed
// taxable profit, zero when there is nothing positive to tax.
func (t *Taxation) ReservedTaxes(calc Calculator) (domain.Amount, error) {
	untaxed := t.UntaxedTaxableProfit()
	if untaxed <= 0 {
		return 0, nil
	}
	return calc.Calculate(untaxed)
}

// RegisterTaxPayment records that taxedProfit has been taxed with paidTax.
// The taxed profit must not exceed the remaining untaxed taxable profit.
func (t *Taxation) RegisterTaxPayment(taxedProfit, paidTax domain.Amount) error {
	if taxedProfit > t.UntaxedTaxableProfit() {
		return fmt.Errorf("%w: taxing %s of %s", ErrPaymentExceedsProfit, taxedProfit, t.UntaxedTaxableProfit())
	}
	t.taxedProfit += taxedProfit
	t.paidTaxes += paidTax
	return nil
}

// Ledger observes account transactions, realizes profits per category, and
// maintains the per-category taxation chains.
type Ledger struct {
	taxations map[Category]*Taxation
	openBuys  map[domain.ISIN]*domain.Transaction
	calc      Calculator
}

var _ account.TransactionListener = (*Ledger)(nil)

// NewLedger creates a tax ledger using the given calculator for reserved
// taxes.
func NewLedger(calc Calculator) *Ledger {
	return &Ledger{
		taxations: map[Category]*Taxation{
			CategorySale:      NewTaxation(),
			CategoryDividends: NewTaxation(),
		},
		openBuys: make(map[domain.ISIN]*domain.Transaction),
		calc:     calc,
	}
}

// Taxation returns the current-period taxation of a category.
func (l *Ledger) Taxation(category Category) *Taxation {
	return l.taxations[category]
}

// StartNewPeriod closes the current tax period of every category and chains
// a fresh one, the old period becoming the carryforward source.
func (l *Ledger) StartNewPeriod() {
	for category, taxation := range l.taxations {
		l.taxations[category] = taxation.NextPeriod()
	}
}

// ReservedTaxes returns the total not-yet-paid tax liability over all
// categories.
func (l *Ledger) ReservedTaxes() (domain.Amount, error) {
	var total domain.Amount
	for _, taxation := range l.taxations {
		reserved, err := taxation.ReservedTaxes(l.calc)
		if err != nil {
			return 0, err
		}
		total += reserved
	}
	return total, nil
}

// OnTransactionRegistered realizes profit from one account transaction. At
// most one buy may be open per instrument, and a sell must compensate the
// open buy's quantity exactly, matching the account ledger's trading rules.
func (l *Ledger) OnTransactionRegistered(tx *domain.Transaction) error {
	switch tx.Type {
	case domain.TransactionBuy:
		if _, open := l.openBuys[tx.ISIN]; open {
			return fmt.Errorf("%w: %s", ErrOpenBuyExists, tx.ISIN)
		}
		l.openBuys[tx.ISIN] = tx

	case domain.TransactionSell:
		buy, open := l.openBuys[tx.ISIN]
		if !open {
			return fmt.Errorf("%w: %s", ErrNoOpenBuy, tx.ISIN)
		}
		if tx.Quantity != buy.Quantity {
			return fmt.Errorf("%w: selling %d, bought %d", ErrQuantityMismatch, tx.Quantity, buy.Quantity)
		}
		profit := (tx.TotalPrice - tx.Commission) - (buy.TotalPrice + buy.Commission)
		l.taxations[CategorySale].RegisterProfit(profit)
		delete(l.openBuys, tx.ISIN)

	case domain.TransactionDividend:
		l.taxations[CategoryDividends].RegisterProfit(tx.TotalPrice)
	}
	return nil
}

// Package broker turns queued order requests into ledger transactions. The
// queue is a plain FIFO buffer between "order placed" and "order executed at
// next day open"; execution prices at the last known closing price.
package broker

import (
	"fmt"
	"log/slog"
	"time"

	"backsim/internal/account"
	"backsim/internal/commission"
	"backsim/internal/domain"
	"backsim/internal/marketdata"
)

// Broker queues order requests and executes them against the account ledger
// at day open.
type Broker struct {
	account     *account.Account
	history     *marketdata.History
	commissions commission.Strategy
	queue       []domain.OrderRequest
	log         *slog.Logger
}

// New creates a broker trading on the given account, priced from the given
// market data history and commission strategy.
func New(acc *account.Account, history *marketdata.History, cs commission.Strategy) *Broker {
	return &Broker{
		account:     acc,
		history:     history,
		commissions: cs,
		log:         slog.Default().With("component", "broker"),
	}
}

// CommissionStrategy returns the configured commission strategy, for
// strategies that size orders by affordability.
func (b *Broker) CommissionStrategy() commission.Strategy { return b.commissions }

// PlaceOrder appends a request to the order queue. The request is validated
// but not priced; pricing happens at the next day open.
func (b *Broker) PlaceOrder(req domain.OrderRequest) error {
	if req.Quantity <= 0 {
		return fmt.Errorf("%s %s: %w", req.Type, req.ISIN, domain.ErrInvalidQuantity)
	}
	if !b.history.Knows(req.ISIN) {
		return fmt.Errorf("%w: %s", marketdata.ErrUnknownInstrument, req.ISIN)
	}
	b.queue = append(b.queue, req)
	return nil
}

// PendingOrders returns the number of queued, not yet executed requests.
func (b *Broker) PendingOrders() int { return len(b.queue) }

// NotifyDayOpened drains the order queue in FIFO order. Each request becomes
// a transaction priced at the instrument's last closing price times the
// requested quantity, with the commission from the configured strategy, and
// is applied through the account ledger. A ledger rejection surfaces
// unretried: the failing request is dropped and later requests stay queued.
func (b *Broker) NotifyDayOpened(date time.Time) error {
	for len(b.queue) > 0 {
		req := b.queue[0]
		b.queue = b.queue[1:]

		if err := b.execute(req, date); err != nil {
			return fmt.Errorf("executing %s %d %s: %w", req.Type, req.Quantity, req.ISIN, err)
		}
	}
	return nil
}

func (b *Broker) execute(req domain.OrderRequest, date time.Time) error {
	price, err := b.history.LastClosingPrice(req.ISIN)
	if err != nil {
		return err
	}

	total := price.MulQuantity(req.Quantity)
	tx, err := domain.NewTransaction(
		transactionType(req.Type), req.ISIN, req.Quantity, total, b.commissions.Calculate(total), date,
	)
	if err != nil {
		return err
	}

	if err := b.account.RegisterTransaction(tx); err != nil {
		return err
	}
	b.log.Debug("order executed",
		"type", tx.Type, "isin", tx.ISIN.String(), "quantity", int64(tx.Quantity),
		"totalPrice", float64(tx.TotalPrice), "commission", float64(tx.Commission))
	return nil
}

func transactionType(t domain.OrderType) domain.TransactionType {
	if t == domain.OrderSell {
		return domain.TransactionSell
	}
	return domain.TransactionBuy
}

// MaxAffordableQuantity returns the largest quantity whose total price plus
// commission fits into money. The scan walks down linearly from the
// commission-free maximum: commission clamps make the feasibility boundary
// non-algebraic, so a binary search is not safe for arbitrary strategies.
func MaxAffordableQuantity(money, price domain.Amount, cs commission.Strategy) domain.Quantity {
	if price <= 0 || money <= 0 {
		return 0
	}
	for qty := domain.Quantity(money / price); qty > 0; qty-- {
		total := price.MulQuantity(qty)
		if total+cs.Calculate(total) <= money {
			return qty
		}
	}
	return 0
}

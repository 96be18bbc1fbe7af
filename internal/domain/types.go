// Package domain defines the value types shared across the backtesting
// engine: instrument identity, money, share quantities, transactions, and
// order requests.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidQuantity is returned when a transaction or order request is
// constructed with a zero or negative quantity.
var ErrInvalidQuantity = errors.New("quantity must be positive")

// ErrEmptyISIN is returned when an instrument identifier is blank.
var ErrEmptyISIN = errors.New("isin must not be empty")

// ISIN identifies a tradable instrument. Two ISINs are equal when their
// text is equal.
type ISIN string

// Validate reports whether the ISIN carries a non-empty identifier.
func (i ISIN) Validate() error {
	if i == "" {
		return ErrEmptyISIN
	}
	return nil
}

func (i ISIN) String() string { return string(i) }

// Amount is a money value in floating point. Transaction totals are fixed
// once at execution time and never re-derived, so rounding does not compound.
type Amount float64

// Add returns a + b.
func (a Amount) Add(b Amount) Amount { return a + b }

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount { return a - b }

// MulQuantity returns the amount scaled by a share count.
func (a Amount) MulQuantity(q Quantity) Amount { return a * Amount(q) }

func (a Amount) String() string { return fmt.Sprintf("%.2f", float64(a)) }

// Quantity is a non-negative number of shares. The zero value marks a
// compensated (fully sold) holding.
type Quantity int64

// IsZero reports whether the quantity is the zero sentinel.
func (q Quantity) IsZero() bool { return q == 0 }

// DayCount counts trading days, e.g. the length of a price streak.
type DayCount int

// TransactionType distinguishes the kinds of ledger transactions.
type TransactionType string

const (
	TransactionBuy      TransactionType = "buy"
	TransactionSell     TransactionType = "sell"
	TransactionDividend TransactionType = "dividend"
)

// Transaction is one executed trade or dividend payment. Transactions are
// immutable once created and append-only in an account's history. ID is the
// persisted identifier; zero means the transaction has not been saved yet.
type Transaction struct {
	ID         int64
	Type       TransactionType
	ISIN       ISIN
	Quantity   Quantity
	TotalPrice Amount
	Commission Amount
	Date       time.Time
}

// NewTransaction validates and creates a transaction. The quantity must be
// positive and the ISIN non-empty.
func NewTransaction(typ TransactionType, isin ISIN, quantity Quantity, totalPrice, commission Amount, date time.Time) (*Transaction, error) {
	if err := isin.Validate(); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("%s %s: %w", typ, isin, ErrInvalidQuantity)
	}
	return &Transaction{
		Type:       typ,
		ISIN:       isin,
		Quantity:   quantity,
		TotalPrice: totalPrice,
		Commission: commission,
		Date:       date,
	}, nil
}

// OrderType distinguishes buy from sell order requests.
type OrderType string

const (
	OrderBuy  OrderType = "buy"
	OrderSell OrderType = "sell"
)

// OrderRequest asks the broker to trade a quantity of one instrument at the
// next day open. Requests are queued FIFO and priced at execution time.
type OrderRequest struct {
	Type     OrderType
	ISIN     ISIN
	Quantity Quantity
}

// NewOrderRequest validates and creates an order request.
func NewOrderRequest(typ OrderType, isin ISIN, quantity Quantity) (OrderRequest, error) {
	if err := isin.Validate(); err != nil {
		return OrderRequest{}, err
	}
	if quantity <= 0 {
		return OrderRequest{}, fmt.Errorf("%s %s: %w", typ, isin, ErrInvalidQuantity)
	}
	return OrderRequest{Type: typ, ISIN: isin, Quantity: quantity}, nil
}

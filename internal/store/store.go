// Package store persists the engine's two durable artifacts: daily closing
// prices (Parquet files on disk) and account transaction histories (SQLite).
package store

import (
	"context"
	"time"

	"backsim/internal/account"
	"backsim/internal/domain"
	"backsim/internal/marketdata"
)

// DailyClose is one instrument's closing price on one trading day.
type DailyClose struct {
	ISIN  domain.ISIN
	Date  time.Time
	Close domain.Amount
}

// PriceStore persists and retrieves daily closing prices.
type PriceStore interface {
	// WriteCloses persists a batch of daily closes, deduplicating by
	// instrument and day.
	WriteCloses(ctx context.Context, closes []DailyClose) error

	// ReadSnapshots returns one snapshot per trading day within
	// [start, end], in strictly increasing date order.
	ReadSnapshots(ctx context.Context, start, end time.Time) ([]marketdata.Snapshot, error)

	// ListInstruments returns all instruments with stored prices.
	ListInstruments(ctx context.Context) ([]domain.ISIN, error)
}

// AccountStore persists account transaction histories. Saving is
// append-only: only transactions without a persisted identifier are
// written. Loading replays the persisted transactions through the ledger to
// reconstruct its state.
type AccountStore interface {
	// CreateAccount persists a new account with the given seed capital and
	// returns its identifier.
	CreateAccount(ctx context.Context, seedCapital domain.Amount) (string, error)

	// GetAccount reconstructs an account from its persisted transactions.
	GetAccount(ctx context.Context, id string) (*account.Account, error)

	// SaveAccount appends the account's unsaved transactions.
	SaveAccount(ctx context.Context, id string, acc *account.Account) error
}

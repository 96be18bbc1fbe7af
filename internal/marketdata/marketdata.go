// Package marketdata holds the historical closing-price store the
// backtesting engine replays: one append-only daily series per instrument
// with running streak statistics, fed by day-ordered snapshots.
package marketdata

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"backsim/internal/domain"
)

// ErrStaleSnapshot is returned when a snapshot's date is not strictly after
// the last registered day.
var ErrStaleSnapshot = errors.New("snapshot date is not after the last registered day")

// ErrMissingPrice is returned when a snapshot omits a known instrument.
var ErrMissingPrice = errors.New("snapshot is missing a price for a known instrument")

// ErrUnknownInstrument is returned when a snapshot prices an instrument the
// store has never seen, or when a caller asks about one.
var ErrUnknownInstrument = errors.New("unknown instrument")

// Snapshot carries the closing prices of one trading day.
type Snapshot struct {
	Date   time.Time
	Prices map[domain.ISIN]domain.Amount
}

// InstrumentHistory is the append-only closing-price series of a single
// instrument, with running statistics recomputed on every appended price.
type InstrumentHistory struct {
	closingPrices []domain.Amount
	maxClose      domain.Amount
	risingStreak  domain.DayCount
	declineStreak domain.DayCount
}

// newInstrumentHistory seeds a history with the first closing price.
func newInstrumentHistory(price domain.Amount) *InstrumentHistory {
	return &InstrumentHistory{
		closingPrices: []domain.Amount{price},
		maxClose:      price,
	}
}

// register appends the next day's closing price. Streaks compare against the
// immediately preceding close only; an unchanged price resets both.
func (h *InstrumentHistory) register(price domain.Amount) {
	last := h.closingPrices[len(h.closingPrices)-1]
	switch {
	case price > last:
		h.risingStreak++
		h.declineStreak = 0
	case price < last:
		h.declineStreak++
		h.risingStreak = 0
	default:
		h.risingStreak = 0
		h.declineStreak = 0
	}
	if price > h.maxClose {
		h.maxClose = price
	}
	h.closingPrices = append(h.closingPrices, price)
}

// LastClosingPrice returns the most recent close.
func (h *InstrumentHistory) LastClosingPrice() domain.Amount {
	return h.closingPrices[len(h.closingPrices)-1]
}

// MaxClosingPrice returns the highest close seen so far.
func (h *InstrumentHistory) MaxClosingPrice() domain.Amount { return h.maxClose }

// RisingDays returns the length of the current rising streak.
func (h *InstrumentHistory) RisingDays() domain.DayCount { return h.risingStreak }

// DecliningDays returns the length of the current declining streak.
func (h *InstrumentHistory) DecliningDays() domain.DayCount { return h.declineStreak }

// Days returns the number of registered trading days.
func (h *InstrumentHistory) Days() int { return len(h.closingPrices) }

// History is the market-wide price store. It is seeded from the first
// snapshot; every later snapshot must price exactly the instruments known
// since seeding and carry a strictly increasing date.
type History struct {
	instruments map[domain.ISIN]*InstrumentHistory
	lastDate    time.Time
}

// NewHistory seeds a History from the first day's snapshot.
func NewHistory(seed Snapshot) (*History, error) {
	if len(seed.Prices) == 0 {
		return nil, errors.New("seed snapshot has no prices")
	}
	h := &History{
		instruments: make(map[domain.ISIN]*InstrumentHistory, len(seed.Prices)),
		lastDate:    seed.Date,
	}
	for isin, price := range seed.Prices {
		if err := isin.Validate(); err != nil {
			return nil, err
		}
		h.instruments[isin] = newInstrumentHistory(price)
	}
	return h, nil
}

// RegisterClosedDay appends one day of closing prices. The snapshot date
// must be strictly after the last registered day, and the price set must
// match the known instrument set exactly.
func (h *History) RegisterClosedDay(s Snapshot) error {
	if !s.Date.After(h.lastDate) {
		return fmt.Errorf("%w: last %s, got %s",
			ErrStaleSnapshot, h.lastDate.Format("2006-01-02"), s.Date.Format("2006-01-02"))
	}
	for isin := range h.instruments {
		if _, ok := s.Prices[isin]; !ok {
			return fmt.Errorf("%w: %s on %s", ErrMissingPrice, isin, s.Date.Format("2006-01-02"))
		}
	}
	for isin := range s.Prices {
		if _, ok := h.instruments[isin]; !ok {
			return fmt.Errorf("%w: %s first priced after seeding", ErrUnknownInstrument, isin)
		}
	}

	for isin, price := range s.Prices {
		h.instruments[isin].register(price)
	}
	h.lastDate = s.Date
	return nil
}

// Instrument returns the history of a single instrument.
func (h *History) Instrument(isin domain.ISIN) (*InstrumentHistory, error) {
	ih, ok := h.instruments[isin]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInstrument, isin)
	}
	return ih, nil
}

// Knows reports whether the instrument is part of the store.
func (h *History) Knows(isin domain.ISIN) bool {
	_, ok := h.instruments[isin]
	return ok
}

// Instruments returns all known ISINs in ascending text order.
func (h *History) Instruments() []domain.ISIN {
	isins := make([]domain.ISIN, 0, len(h.instruments))
	for isin := range h.instruments {
		isins = append(isins, isin)
	}
	sort.Slice(isins, func(i, j int) bool { return isins[i] < isins[j] })
	return isins
}

// LastDate returns the date of the most recently registered day.
func (h *History) LastDate() time.Time { return h.lastDate }

// LastClosingPrice is a convenience accessor for one instrument's last close.
func (h *History) LastClosingPrice(isin domain.ISIN) (domain.Amount, error) {
	ih, err := h.Instrument(isin)
	if err != nil {
		return 0, err
	}
	return ih.LastClosingPrice(), nil
}

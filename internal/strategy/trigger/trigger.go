// Package trigger provides the boolean trade conditions the progressive
// strategy is built from. A trigger is created fresh from a factory on each
// phase entry, bound to one instrument's history, and queried once per day.
package trigger

import (
	"fmt"

	"backsim/internal/domain"
	"backsim/internal/marketdata"
)

// Trigger is a per-day boolean condition. Fires may be called at most once
// per trading day; stateful triggers count their own evaluations.
type Trigger interface {
	Fires() bool
}

// Factory creates a trigger bound to an instrument at phase entry.
type Factory interface {
	Create(history *marketdata.History, isin domain.ISIN) (Trigger, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(history *marketdata.History, isin domain.ISIN) (Trigger, error)

// Create calls f.
func (f FactoryFunc) Create(history *marketdata.History, isin domain.ISIN) (Trigger, error) {
	return f(history, isin)
}

// instrumentFor resolves the instrument history or fails fast: a factory
// must never hand out a trigger for an unknown instrument.
func instrumentFor(history *marketdata.History, isin domain.ISIN) (*marketdata.InstrumentHistory, error) {
	ih, err := history.Instrument(isin)
	if err != nil {
		return nil, fmt.Errorf("creating trigger: %w", err)
	}
	return ih, nil
}

// DecliningStreak fires once the instrument's close has fallen for at least
// Days consecutive days.
type DecliningStreak struct {
	Days domain.DayCount
}

// Create binds the condition to an instrument.
func (d DecliningStreak) Create(history *marketdata.History, isin domain.ISIN) (Trigger, error) {
	if d.Days < 0 {
		return nil, fmt.Errorf("declining streak: negative day count %d", d.Days)
	}
	ih, err := instrumentFor(history, isin)
	if err != nil {
		return nil, err
	}
	return triggerFunc(func() bool { return ih.DecliningDays() >= d.Days }), nil
}

// RisingStreak fires once the instrument's close has risen for at least
// Days consecutive days.
type RisingStreak struct {
	Days domain.DayCount
}

// Create binds the condition to an instrument.
func (r RisingStreak) Create(history *marketdata.History, isin domain.ISIN) (Trigger, error) {
	if r.Days < 0 {
		return nil, fmt.Errorf("rising streak: negative day count %d", r.Days)
	}
	ih, err := instrumentFor(history, isin)
	if err != nil {
		return nil, err
	}
	return triggerFunc(func() bool { return ih.RisingDays() >= r.Days }), nil
}

// WaitDays fires after it has been evaluated Days times; with Days zero it
// fires on its first evaluation. The count starts at trigger creation, so a
// deferred creation defers the countdown too.
type WaitDays struct {
	Days domain.DayCount
}

// Create returns a trigger counting its own evaluations.
func (w WaitDays) Create(_ *marketdata.History, _ domain.ISIN) (Trigger, error) {
	if w.Days < 0 {
		return nil, fmt.Errorf("wait days: negative day count %d", w.Days)
	}
	remaining := w.Days
	return triggerFunc(func() bool {
		if remaining > 0 {
			remaining--
			return false
		}
		return true
	}), nil
}

// BelowMaximum fires while the instrument's last close sits at least
// MinPercentage below its running maximum close.
type BelowMaximum struct {
	MinPercentage float64
}

// Create binds the condition to an instrument.
func (b BelowMaximum) Create(history *marketdata.History, isin domain.ISIN) (Trigger, error) {
	if b.MinPercentage < 0 || b.MinPercentage > 1 {
		return nil, fmt.Errorf("below maximum: percentage %v outside [0,1]", b.MinPercentage)
	}
	ih, err := instrumentFor(history, isin)
	if err != nil {
		return nil, err
	}
	return triggerFunc(func() bool {
		max := ih.MaxClosingPrice()
		if max <= 0 {
			return false
		}
		return ih.LastClosingPrice() <= max*(1-domain.Amount(b.MinPercentage))
	}), nil
}

// Always fires on every evaluation. Test and wiring support.
type Always struct{}

// Create returns a trigger that always fires.
func (Always) Create(_ *marketdata.History, _ domain.ISIN) (Trigger, error) {
	return triggerFunc(func() bool { return true }), nil
}

// Never fires. Test and wiring support.
type Never struct{}

// Create returns a trigger that never fires.
func (Never) Create(_ *marketdata.History, _ domain.ISIN) (Trigger, error) {
	return triggerFunc(func() bool { return false }), nil
}

type triggerFunc func() bool

func (f triggerFunc) Fires() bool { return f() }

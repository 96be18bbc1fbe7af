package strategy

import (
	"fmt"

	"backsim/internal/account"
	"backsim/internal/broker"
	"backsim/internal/domain"
	"backsim/internal/marketdata"
	"backsim/internal/strategy/trigger"
)

// phase is the progressive strategy's current position in its buy → sell →
// reset cycle.
type phase int

const (
	phaseWaitAndBuy phase = iota
	phaseWaitAndSell
	phaseWaitAndReset
)

// ProgressiveConfig wires a Progressive strategy.
type ProgressiveConfig struct {
	ISIN         domain.ISIN
	Account      *account.Account
	Broker       *broker.Broker
	History      *marketdata.History
	BuyTrigger   trigger.Factory
	SellTrigger  trigger.Factory
	ResetTrigger trigger.Factory
}

// Progressive trades a single instrument through a three-phase cycle: wait
// for the buy trigger and invest everything affordable, wait for the sell
// trigger and liquidate, then wait for the reset trigger before arming the
// next buy. Sell and reset triggers are not created in the tick that enters
// their phase; creation is deferred to the following tick so a fresh
// trigger never evaluates against the state that caused the transition.
type Progressive struct {
	cfg ProgressiveConfig

	phase        phase
	buyTrigger   trigger.Trigger
	sellTrigger  trigger.Trigger
	resetTrigger trigger.Trigger
	sellPending  bool
	resetPending bool
}

var _ TradingStrategy = (*Progressive)(nil)

// NewProgressive validates the configuration and creates the strategy with
// an armed buy trigger. The configured instrument must be known to the
// market data history.
func NewProgressive(cfg ProgressiveConfig) (*Progressive, error) {
	if cfg.Account == nil || cfg.Broker == nil || cfg.History == nil {
		return nil, fmt.Errorf("progressive %s: missing collaborators", cfg.ISIN)
	}
	if cfg.BuyTrigger == nil || cfg.SellTrigger == nil || cfg.ResetTrigger == nil {
		return nil, fmt.Errorf("progressive %s: missing trigger factories", cfg.ISIN)
	}
	if !cfg.History.Knows(cfg.ISIN) {
		return nil, fmt.Errorf("progressive: %w: %s", marketdata.ErrUnknownInstrument, cfg.ISIN)
	}

	buyTrigger, err := cfg.BuyTrigger.Create(cfg.History, cfg.ISIN)
	if err != nil {
		return nil, fmt.Errorf("progressive %s: %w", cfg.ISIN, err)
	}
	return &Progressive{cfg: cfg, phase: phaseWaitAndBuy, buyTrigger: buyTrigger}, nil
}

// Name returns "progressive".
func (p *Progressive) Name() string { return "progressive" }

// PrepareOrdersForNextTradingDay advances the state machine by one day:
// promote deferred trigger activations, evaluate the reset phase (which may
// cascade straight into buy evaluation), then evaluate whichever of the
// buy/sell phases is active. At most one order is placed per tick.
func (p *Progressive) PrepareOrdersForNextTradingDay() error {
	if err := p.promotePendingTriggers(); err != nil {
		return err
	}

	if p.phase == phaseWaitAndReset {
		if err := p.evaluateReset(); err != nil {
			return err
		}
	}

	switch p.phase {
	case phaseWaitAndBuy:
		return p.evaluateBuy()
	case phaseWaitAndSell:
		return p.evaluateSell()
	}
	return nil
}

// promotePendingTriggers creates triggers whose activation was deferred by
// the previous tick's phase transition.
func (p *Progressive) promotePendingTriggers() error {
	if p.sellPending {
		t, err := p.cfg.SellTrigger.Create(p.cfg.History, p.cfg.ISIN)
		if err != nil {
			return fmt.Errorf("progressive %s: %w", p.cfg.ISIN, err)
		}
		p.sellTrigger = t
		p.sellPending = false
	}
	if p.resetPending {
		t, err := p.cfg.ResetTrigger.Create(p.cfg.History, p.cfg.ISIN)
		if err != nil {
			return fmt.Errorf("progressive %s: %w", p.cfg.ISIN, err)
		}
		p.resetTrigger = t
		p.resetPending = false
	}
	return nil
}

func (p *Progressive) evaluateBuy() error {
	price, err := p.cfg.History.LastClosingPrice(p.cfg.ISIN)
	if err != nil {
		return err
	}
	qty := broker.MaxAffordableQuantity(p.cfg.Account.AvailableMoney(), price, p.cfg.Broker.CommissionStrategy())
	if qty == 0 || !p.buyTrigger.Fires() {
		return nil
	}

	if err := p.cfg.Broker.PlaceOrder(domain.OrderRequest{
		Type: domain.OrderBuy, ISIN: p.cfg.ISIN, Quantity: qty,
	}); err != nil {
		return err
	}
	p.phase = phaseWaitAndSell
	p.buyTrigger = nil
	p.sellPending = true
	return nil
}

func (p *Progressive) evaluateSell() error {
	if p.sellTrigger == nil || !p.sellTrigger.Fires() {
		return nil
	}
	qty := p.cfg.Account.HeldQuantity(p.cfg.ISIN)
	if qty == 0 {
		// Buy order still queued or rejected; nothing to liquidate yet.
		return nil
	}

	if err := p.cfg.Broker.PlaceOrder(domain.OrderRequest{
		Type: domain.OrderSell, ISIN: p.cfg.ISIN, Quantity: qty,
	}); err != nil {
		return err
	}
	p.phase = phaseWaitAndReset
	p.sellTrigger = nil
	p.resetPending = true
	return nil
}

// evaluateReset transitions back into the buy phase within the same tick,
// so a firing reset cascades directly into buy evaluation.
func (p *Progressive) evaluateReset() error {
	if p.resetTrigger == nil || !p.resetTrigger.Fires() {
		return nil
	}
	buyTrigger, err := p.cfg.BuyTrigger.Create(p.cfg.History, p.cfg.ISIN)
	if err != nil {
		return fmt.Errorf("progressive %s: %w", p.cfg.ISIN, err)
	}
	p.phase = phaseWaitAndBuy
	p.resetTrigger = nil
	p.buyTrigger = buyTrigger
	return nil
}

package strategy

import (
	"fmt"

	"backsim/internal/account"
	"backsim/internal/broker"
	"backsim/internal/domain"
	"backsim/internal/marketdata"
)

// CompoundConfig wires a Compound strategy.
type CompoundConfig struct {
	Account              *account.Account
	Broker               *broker.Broker
	History              *marketdata.History
	BuyScorer            ScoringStrategy
	SellScorer           ScoringStrategy
	MinBuyScore          float64
	MinSellScore         float64
	MaxPercentagePerISIN float64
}

// Compound trades the whole instrument universe: every day it first ranks
// the held instruments with the sell scorer and liquidates the ones scoring
// high enough, then ranks all instruments with the buy scorer and spreads
// the available money over the best candidates proportionally to their
// scores, capped per instrument at a percentage of the account balance.
type Compound struct {
	cfg CompoundConfig
}

var _ TradingStrategy = (*Compound)(nil)

// NewCompound validates the configuration and creates the strategy.
func NewCompound(cfg CompoundConfig) (*Compound, error) {
	if cfg.Account == nil || cfg.Broker == nil || cfg.History == nil {
		return nil, fmt.Errorf("compound: missing collaborators")
	}
	if cfg.BuyScorer == nil || cfg.SellScorer == nil {
		return nil, fmt.Errorf("compound: missing scoring strategies")
	}
	if cfg.MaxPercentagePerISIN <= 0 || cfg.MaxPercentagePerISIN > 1 {
		return nil, fmt.Errorf("compound: max percentage per instrument %v outside (0,1]", cfg.MaxPercentagePerISIN)
	}
	return &Compound{cfg: cfg}, nil
}

// Name returns "compound".
func (c *Compound) Name() string { return "compound" }

// PrepareOrdersForNextTradingDay runs the sell evaluation, then the buy
// evaluation.
func (c *Compound) PrepareOrdersForNextTradingDay() error {
	if err := c.prepareSellOrders(); err != nil {
		return err
	}
	return c.prepareBuyOrders()
}

// prepareSellOrders ranks the held instruments by the sell scorer and sells
// every full holding scoring at least MinSellScore. The ranking is
// descending, so the walk stops at the first instrument below the minimum.
func (c *Compound) prepareSellOrders() error {
	held := c.cfg.Account.HeldInstruments()
	if len(held) == 0 {
		return nil
	}
	scores, err := scoreAll(c.cfg.SellScorer, c.cfg.History, held)
	if err != nil {
		return err
	}

	for _, rs := range scores.Ranked() {
		if rs.Score.Value < c.cfg.MinSellScore {
			break
		}
		if err := c.cfg.Broker.PlaceOrder(domain.OrderRequest{
			Type:     domain.OrderSell,
			ISIN:     rs.ISIN,
			Quantity: c.cfg.Account.HeldQuantity(rs.ISIN),
		}); err != nil {
			return err
		}
	}
	return nil
}

// prepareBuyOrders ranks the whole universe by the buy scorer, drops held
// and sub-minimum instruments, and allocates the available money over the
// remainder proportionally to score, capped per instrument at
// MaxPercentagePerISIN of the account balance. The balance cap (not the
// available-money cap) makes the per-instrument limit scale with realized
// performance rather than idle cash.
func (c *Compound) prepareBuyOrders() error {
	scores, err := scoreAll(c.cfg.BuyScorer, c.cfg.History, c.cfg.History.Instruments())
	if err != nil {
		return err
	}

	candidates := make(Scores, len(scores))
	for isin, score := range scores {
		if score.Value < c.cfg.MinBuyScore {
			continue
		}
		if c.cfg.Account.HeldQuantity(isin) > 0 {
			continue
		}
		candidates[isin] = score
	}
	if len(candidates) == 0 {
		return nil
	}

	maxMoneyPerISIN := c.cfg.Account.Balance() * domain.Amount(c.cfg.MaxPercentagePerISIN)
	remainingMoney := c.cfg.Account.AvailableMoney()
	remainingScore := candidates.Total()
	cs := c.cfg.Broker.CommissionStrategy()

	for _, rs := range candidates.Ranked() {
		if remainingScore <= 0 || remainingMoney <= 0 {
			break
		}

		allocation := domain.Amount(rs.Score.Value/remainingScore) * remainingMoney
		if allocation > maxMoneyPerISIN {
			allocation = maxMoneyPerISIN
		}
		remainingScore -= rs.Score.Value

		price, err := c.cfg.History.LastClosingPrice(rs.ISIN)
		if err != nil {
			return err
		}
		qty := broker.MaxAffordableQuantity(allocation, price, cs)
		if qty == 0 {
			continue
		}

		if err := c.cfg.Broker.PlaceOrder(domain.OrderRequest{
			Type: domain.OrderBuy, ISIN: rs.ISIN, Quantity: qty,
		}); err != nil {
			return err
		}

		total := price.MulQuantity(qty)
		remainingMoney -= total + cs.Calculate(total)
	}
	return nil
}

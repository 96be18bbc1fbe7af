package simulation

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"backsim/internal/domain"
)

// tradingDaysPerYear annualizes the Sharpe ratio.
const tradingDaysPerYear = 252

// Result holds the summary metrics of a finished simulation run.
type Result struct {
	TotalReturn   float64
	MaxDrawdown   float64
	SharpeRatio   float64
	TotalTrades   int
	WinRate       float64
	FinalBalance  domain.Amount
	ReservedTaxes domain.Amount
}

// computeResult derives the run metrics from the daily balance curve and
// the account's transaction history.
func computeResult(initialBalance float64, balances []float64, txs []*domain.Transaction) *Result {
	result := &Result{
		FinalBalance: domain.Amount(balances[len(balances)-1]),
	}
	if initialBalance != 0 {
		result.TotalReturn = (balances[len(balances)-1] - initialBalance) / initialBalance
	}
	result.MaxDrawdown = maxDrawdown(balances)
	result.SharpeRatio = sharpeRatio(dailyReturns(balances))
	result.TotalTrades, result.WinRate = tradeStats(txs)
	return result
}

// dailyReturns converts the balance curve into day-over-day returns.
func dailyReturns(balances []float64) []float64 {
	var returns []float64
	for i := 1; i < len(balances); i++ {
		if balances[i-1] != 0 {
			returns = append(returns, (balances[i]-balances[i-1])/balances[i-1])
		}
	}
	return returns
}

// sharpeRatio annualizes mean/stddev of daily returns, zero risk-free rate.
func sharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean, std := stat.MeanStdDev(returns, nil)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(tradingDaysPerYear)
}

// maxDrawdown returns the largest peak-to-trough loss fraction of the curve.
func maxDrawdown(balances []float64) float64 {
	peak := math.Inf(-1)
	drawdown := 0.0
	for _, b := range balances {
		if b > peak {
			peak = b
		}
		if peak > 0 {
			if dd := (peak - b) / peak; dd > drawdown {
				drawdown = dd
			}
		}
	}
	return drawdown
}

// tradeStats counts executed trades and the fraction of profitable sells.
// Buys and sells alternate per instrument by ledger rule, so pairing the
// last buy with each sell is exact.
func tradeStats(txs []*domain.Transaction) (trades int, winRate float64) {
	openBuys := make(map[domain.ISIN]*domain.Transaction)
	sells, wins := 0, 0

	for _, tx := range txs {
		switch tx.Type {
		case domain.TransactionBuy:
			trades++
			openBuys[tx.ISIN] = tx
		case domain.TransactionSell:
			trades++
			sells++
			if buy, ok := openBuys[tx.ISIN]; ok {
				proceeds := tx.TotalPrice - tx.Commission
				cost := buy.TotalPrice + buy.Commission
				if proceeds > cost {
					wins++
				}
				delete(openBuys, tx.ISIN)
			}
		}
	}
	if sells > 0 {
		winRate = float64(wins) / float64(sells)
	}
	return trades, winRate
}

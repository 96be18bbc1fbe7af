package strategy

import (
	"fmt"
	"sort"

	"backsim/internal/domain"
	"backsim/internal/marketdata"
)

// Score is one instrument's ranking signal: a numeric value plus an
// optional human-readable rationale.
type Score struct {
	Value   float64
	Comment string
}

// ScoringStrategy ranks a single instrument against its price history.
type ScoringStrategy interface {
	Score(history *marketdata.History, isin domain.ISIN) (Score, error)
}

// RankedScore pairs an instrument with its score in a ranking.
type RankedScore struct {
	ISIN  domain.ISIN
	Score Score
}

// Scores collects per-instrument scores and produces a stable, total
// ranking: descending by value, ties broken by ascending ISIN text.
type Scores map[domain.ISIN]Score

// Total returns the sum of all score values.
func (s Scores) Total() float64 {
	total := 0.0
	for _, score := range s {
		total += score.Value
	}
	return total
}

// Ranked returns the scores in ranking order.
func (s Scores) Ranked() []RankedScore {
	ranked := make([]RankedScore, 0, len(s))
	for isin, score := range s {
		ranked = append(ranked, RankedScore{ISIN: isin, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score.Value != ranked[j].Score.Value {
			return ranked[i].Score.Value > ranked[j].Score.Value
		}
		return ranked[i].ISIN < ranked[j].ISIN
	})
	return ranked
}

// scoreAll applies one scoring strategy to a set of instruments.
func scoreAll(scorer ScoringStrategy, history *marketdata.History, isins []domain.ISIN) (Scores, error) {
	scores := make(Scores, len(isins))
	for _, isin := range isins {
		score, err := scorer.Score(history, isin)
		if err != nil {
			return nil, fmt.Errorf("scoring %s: %w", isin, err)
		}
		scores[isin] = score
	}
	return scores, nil
}

// BelowMaximumScorer scores an instrument by how far its last close sits
// below its running maximum: an instrument 25% under its peak scores 0.25.
// Used as a buy-side scorer.
type BelowMaximumScorer struct{}

// Score returns the relative distance below the running maximum in [0, 1].
func (BelowMaximumScorer) Score(history *marketdata.History, isin domain.ISIN) (Score, error) {
	ih, err := history.Instrument(isin)
	if err != nil {
		return Score{}, err
	}
	max := ih.MaxClosingPrice()
	if max <= 0 {
		return Score{Comment: "no positive maximum yet"}, nil
	}
	distance := float64((max - ih.LastClosingPrice()) / max)
	return Score{
		Value:   distance,
		Comment: fmt.Sprintf("last close %.1f%% below maximum %s", distance*100, max),
	}, nil
}

// RisingStreakScorer scores an instrument by the length of its current
// rising streak. Used as a sell-side scorer: the longer the rally on a held
// position, the stronger the signal to take the profit.
type RisingStreakScorer struct{}

// Score returns the rising streak length as the score value.
func (RisingStreakScorer) Score(history *marketdata.History, isin domain.ISIN) (Score, error) {
	ih, err := history.Instrument(isin)
	if err != nil {
		return Score{}, err
	}
	days := ih.RisingDays()
	return Score{
		Value:   float64(days),
		Comment: fmt.Sprintf("close rose %d days in sequence", days),
	}, nil
}

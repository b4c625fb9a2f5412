// Package risk sizes positions and tracks portfolio exposure. Sizing
// follows a fractional Kelly criterion adjusted for volatility and
// bounded by per-trade and portfolio-wide risk limits.
package risk

import (
	"math"

	"github.com/your-org/lro-swing-bot/internal/config"
	"github.com/your-org/lro-swing-bot/internal/errs"
	"github.com/your-org/lro-swing-bot/pkg/ring"
)

const (
	// kellyHistoryCap bounds the trade results feeding the adaptive
	// win-rate and profit factors.
	kellyHistoryCap = 100
	// minAdaptiveSamples is how many results must accumulate before
	// the sizer trusts them over the neutral defaults.
	minAdaptiveSamples = 10

	defaultWinProb = 0.5
	defaultAvgWin  = 1.0
	defaultAvgLoss = 1.0
)

type tradeResult struct {
	win           bool
	profitPercent float64
}

// KellySizer computes position sizes from a fractional Kelly formula.
// It keeps a bounded history of trade results so the win rate and
// average win/loss adapt to realized performance.
type KellySizer struct {
	fraction        float64
	maxRiskPerTrade float64
	heatLimit       float64
	maxPosition     float64
	history         *ring.Buffer[tradeResult]
}

// NewKellySizer creates a sizer from risk configuration. All limits
// are fractions of the account balance.
func NewKellySizer(cfg config.RiskConf) *KellySizer {
	return &KellySizer{
		fraction:        cfg.KellyFraction,
		maxRiskPerTrade: cfg.MaxRiskPerTrade,
		heatLimit:       cfg.MaxPortfolioHeat,
		maxPosition:     cfg.MaxPositionPercent,
		history:         ring.New[tradeResult](kellyHistoryCap),
	}
}

// PositionSize returns the quote-currency size for a new position.
// The Kelly percentage (p*W - (1-p)*L)/W is scaled by the
// conservative fraction, damped by volatility, capped by the
// per-trade risk limit and the remaining heat budget, and finally
// clamped to the maximum position fraction of the balance. The
// result is never NaN or infinite; invalid inputs fail with a
// validation error instead.
func (k *KellySizer) PositionSize(balance, winProb, avgWin, avgLoss, volatility, currentHeat float64) (float64, error) {
	if winProb <= 0 || winProb >= 1 || math.IsNaN(winProb) {
		return 0, errs.Validation("win probability must be within (0, 1), got %v", winProb)
	}
	if avgWin <= 0 || avgLoss <= 0 ||
		math.IsNaN(avgWin) || math.IsInf(avgWin, 0) ||
		math.IsNaN(avgLoss) || math.IsInf(avgLoss, 0) {
		return 0, errs.Validation("average win and loss must be positive and finite, got %v / %v", avgWin, avgLoss)
	}
	if balance < 0 || math.IsNaN(balance) || math.IsInf(balance, 0) {
		return 0, errs.Validation("balance must be a non-negative finite number, got %v", balance)
	}
	if volatility < 0 || math.IsNaN(volatility) || math.IsInf(volatility, 0) {
		return 0, errs.Validation("volatility must be a non-negative finite number, got %v", volatility)
	}
	if currentHeat < 0 || math.IsNaN(currentHeat) || math.IsInf(currentHeat, 0) {
		return 0, errs.Validation("current heat must be a non-negative finite number, got %v", currentHeat)
	}

	lossProb := 1 - winProb
	kelly := (winProb*avgWin - lossProb*avgLoss) / avgWin

	adjusted := kelly * k.fraction
	volAdjusted := adjusted / (1 + volatility)

	riskLimited := math.Min(volAdjusted, k.maxRiskPerTrade)
	heatLimited := math.Min(riskLimited, k.heatLimit-currentHeat)

	final := math.Min(math.Max(heatLimited, 0), k.maxPosition)
	return balance * final, nil
}

// RecordTradeResult appends one closed trade to the history. The
// profit percent is the trade's return relative to its size; losses
// are recorded with their sign, the magnitude is taken when
// averaging.
func (k *KellySizer) RecordTradeResult(win bool, profitPercent float64) {
	if math.IsNaN(profitPercent) || math.IsInf(profitPercent, 0) {
		return
	}
	k.history.Push(tradeResult{win: win, profitPercent: profitPercent})
}

// Metrics returns the adaptive win probability and average win/loss
// magnitudes. Until enough results accumulate it returns neutral
// defaults so early sizing stays conservative.
func (k *KellySizer) Metrics() (winProb, avgWin, avgLoss float64) {
	results := k.history.Values()
	if len(results) < minAdaptiveSamples {
		return defaultWinProb, defaultAvgWin, defaultAvgLoss
	}

	wins := 0
	winSum, lossSum := 0.0, 0.0
	lossCount := 0
	for _, r := range results {
		if r.win {
			wins++
			winSum += r.profitPercent
		} else {
			lossCount++
			lossSum += math.Abs(r.profitPercent)
		}
	}

	// Laplace-smoothed so a uniform streak can never pin the estimate
	// to exactly 0 or 1, which PositionSize rejects.
	winProb = float64(wins+1) / float64(len(results)+2)
	avgWin = defaultAvgWin
	if wins > 0 {
		avgWin = winSum / float64(wins)
	}
	avgLoss = defaultAvgLoss
	if lossCount > 0 {
		avgLoss = lossSum / float64(lossCount)
	}
	return winProb, avgWin, avgLoss
}

// SampleCount reports how many trade results are currently held.
func (k *KellySizer) SampleCount() int {
	return k.history.Len()
}

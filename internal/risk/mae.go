package risk

import (
	"math"

	"github.com/your-org/lro-swing-bot/pkg/ring"
)

const (
	maeHistoryCap = 100
	// defaultMAEPercent is the suggested-stop basis used until losing
	// trades provide real excursion data.
	defaultMAEPercent = 2.0
	// maeBuffer widens the average losing excursion so the suggested
	// stop sits beyond typical adverse noise.
	maeBuffer = 1.2
)

type excursion struct {
	maePercent float64
	losing     bool
}

// MAETracker records the maximum adverse excursion of closed trades.
// The average excursion of losing trades informs where stops should
// sit: a stop well inside typical adverse movement gets shaken out of
// trades that would have recovered.
type MAETracker struct {
	trades *ring.Buffer[excursion]
}

// NewMAETracker creates a tracker bounded to the last 100 trades.
func NewMAETracker() *MAETracker {
	return &MAETracker{trades: ring.New[excursion](maeHistoryCap)}
}

// Record stores one closed trade's worst drawdown while open, as a
// percent of entry.
func (m *MAETracker) Record(maePercent float64, losing bool) {
	if maePercent < 0 || math.IsNaN(maePercent) || math.IsInf(maePercent, 0) {
		return
	}
	m.trades.Push(excursion{maePercent: maePercent, losing: losing})
}

// AverageLosingMAE returns the mean excursion of losing trades, or
// the default when none are recorded.
func (m *MAETracker) AverageLosingMAE() float64 {
	sum := 0.0
	count := 0
	for _, t := range m.trades.Values() {
		if t.losing {
			sum += t.maePercent
			count++
		}
	}
	if count == 0 {
		return defaultMAEPercent
	}
	return sum / float64(count)
}

// SuggestedStopPercent is the stop distance, in percent of entry,
// implied by realized adverse excursions.
func (m *MAETracker) SuggestedStopPercent() float64 {
	return m.AverageLosingMAE() * maeBuffer
}

// Count reports how many trades are currently held.
func (m *MAETracker) Count() int {
	return m.trades.Len()
}

// Package pnl aggregates realized trading performance.
package pnl

import (
	"math"
	"sync"
)

// Tracker accumulates realized PnL and per-trade win/loss statistics.
type Tracker struct {
	mu          sync.RWMutex
	realized    float64
	trades      int
	wins        int
	grossProfit float64
	grossLoss   float64
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// RecordTrade folds one closed trade's realized PnL into the totals.
// Non-finite values are ignored. Breakeven trades count as losses.
func (t *Tracker) RecordTrade(realized float64) {
	if math.IsNaN(realized) || math.IsInf(realized, 0) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.realized += realized
	t.trades++
	if realized > 0 {
		t.wins++
		t.grossProfit += realized
	} else {
		t.grossLoss += -realized
	}
}

// UnrealizedPnL computes the open PnL for a signed position size at the
// current price. The sign convention follows the netting position:
// negative size is a short, so a falling price yields a profit.
func (t *Tracker) UnrealizedPnL(size, avgEntry, price float64) float64 {
	if size == 0 {
		return 0
	}
	return (price - avgEntry) * size
}

// RealizedPnL returns the accumulated realized PnL.
func (t *Tracker) RealizedPnL() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.realized
}

// Summary is a read-only copy of the performance totals.
type Summary struct {
	RealizedPnL float64 `json:"realized_pnl"`
	Trades      int     `json:"trades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	WinRate     float64 `json:"win_rate"`
	GrossProfit float64 `json:"gross_profit"`
	GrossLoss   float64 `json:"gross_loss"`
}

// Summary returns a point-in-time copy of the totals.
func (t *Tracker) Summary() Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := Summary{
		RealizedPnL: t.realized,
		Trades:      t.trades,
		Wins:        t.wins,
		Losses:      t.trades - t.wins,
		GrossProfit: t.grossProfit,
		GrossLoss:   t.grossLoss,
	}
	if t.trades > 0 {
		s.WinRate = float64(t.wins) / float64(t.trades)
	}
	return s
}

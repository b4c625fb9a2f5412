// Package position tracks the bot's netting position: signed size,
// average entry, protective levels and the worst price seen while open.
package position

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Position is a netting position for a single trading pair. Size is in
// base units, positive when long and negative when short.
type Position struct {
	mu         sync.RWMutex
	pair       string
	size       float64
	avgEntry   float64
	stopLoss   float64
	takeProfit float64
	openedAt   time.Time
	worstPrice float64
}

// New creates a flat position for the pair.
func New(pair string) *Position {
	return &Position{pair: pair}
}

// dustSize is the residual below which a position counts as flat.
// Closing fills sized from quote-currency notionals can leave a few
// ulps of base units behind.
const dustSize = 1e-9

// Update nets a fill into the position and returns the realized PnL of
// any portion it closes. Opening and same-direction fills realize
// nothing. An opposite-direction fill realizes on the size it offsets;
// if it overshoots, the remainder opens a fresh position at the fill
// price.
func (p *Position) Update(now time.Time, units, price float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if units == 0 || price <= 0 {
		return 0
	}

	if p.size == 0 {
		p.open(now, units, price)
		return 0
	}

	if sameSign(p.size, units) {
		value := p.size*p.avgEntry + units*price
		p.size += units
		p.avgEntry = value / p.size
		return 0
	}

	closed := math.Min(math.Abs(units), math.Abs(p.size))
	realized := (price - p.avgEntry) * closed
	if p.size < 0 {
		realized = -realized
	}

	remainder := p.size + units
	switch {
	case math.Abs(remainder) < dustSize:
		p.flatten()
	case sameSign(remainder, p.size):
		// Partial close keeps the entry and the trade context.
		p.size = remainder
	default:
		p.open(now, remainder, price)
	}
	return realized
}

func (p *Position) open(now time.Time, units, price float64) {
	p.size = units
	p.avgEntry = price
	p.stopLoss = 0
	p.takeProfit = 0
	p.openedAt = now
	p.worstPrice = price
}

func (p *Position) flatten() {
	p.size = 0
	p.avgEntry = 0
	p.stopLoss = 0
	p.takeProfit = 0
	p.openedAt = time.Time{}
	p.worstPrice = 0
}

func sameSign(a, b float64) bool {
	return (a > 0) == (b > 0)
}

// ObservePrice folds a tick into the worst-excursion tracking. Flat
// positions ignore it.
func (p *Position) ObservePrice(price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.size == 0 || price <= 0 {
		return
	}
	if p.size > 0 && price < p.worstPrice {
		p.worstPrice = price
	}
	if p.size < 0 && price > p.worstPrice {
		p.worstPrice = price
	}
}

// MAEPercent returns the maximum adverse excursion observed since the
// position opened, as a percent of the entry price. Zero when flat or
// when the price never moved against the position.
func (p *Position) MAEPercent() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.size == 0 || p.avgEntry == 0 {
		return 0
	}
	var adverse float64
	if p.size > 0 {
		adverse = p.avgEntry - p.worstPrice
	} else {
		adverse = p.worstPrice - p.avgEntry
	}
	if adverse <= 0 {
		return 0
	}
	return adverse / p.avgEntry * 100
}

// SetProtection records the stop-loss and take-profit levels guarding
// the open position.
func (p *Position) SetProtection(stopLoss, takeProfit float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLoss = stopLoss
	p.takeProfit = takeProfit
}

// Protection returns the current stop-loss and take-profit levels.
func (p *Position) Protection() (stopLoss, takeProfit float64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stopLoss, p.takeProfit
}

// Get returns the current signed size and average entry price.
func (p *Position) Get() (size, avgEntry float64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.size, p.avgEntry
}

// IsOpen reports whether any size is held.
func (p *Position) IsOpen() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.size != 0
}

// IsLong reports whether the held size is positive.
func (p *Position) IsLong() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.size > 0
}

// OpenedAt returns when the current position was opened, or the zero
// time when flat.
func (p *Position) OpenedAt() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.openedAt
}

// View is a read-only copy of the position state.
type View struct {
	Pair       string    `json:"pair"`
	Size       float64   `json:"size"`
	AvgEntry   float64   `json:"avg_entry"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	OpenedAt   time.Time `json:"opened_at"`
	WorstPrice float64   `json:"worst_price"`
}

// Snapshot returns a point-in-time copy of the position.
func (p *Position) Snapshot() View {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return View{
		Pair:       p.pair,
		Size:       p.size,
		AvgEntry:   p.avgEntry,
		StopLoss:   p.stopLoss,
		TakeProfit: p.takeProfit,
		OpenedAt:   p.openedAt,
		WorstPrice: p.worstPrice,
	}
}

// String returns a short representation for logs.
func (p *Position) String() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return fmt.Sprintf("Position{Pair: %s, Size: %.6f, AvgEntry: %.2f}", p.pair, p.size, p.avgEntry)
}

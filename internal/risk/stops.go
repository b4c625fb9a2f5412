package risk

import (
	"github.com/your-org/lro-swing-bot/internal/config"
	"github.com/your-org/lro-swing-bot/internal/indicator"
)

// DynamicStop derives stop-loss levels from the average true range.
// Initial stops sit a multiple of ATR away from entry, clamped to a
// percent band of the entry price. Once a position moves into profit
// past the activation threshold, a trailing stop follows price at a
// fixed ATR distance and only ever tightens.
type DynamicStop struct {
	atr *indicator.ATR

	multiplier     float64
	minStopPercent float64
	maxStopPercent float64

	trailingActivation float64 // unrealized profit percent that arms trailing
	trailingDistance   float64 // ATR multiples between price and trailing stop
}

// NewDynamicStop builds the stop calculator from risk configuration.
func NewDynamicStop(cfg config.RiskConf) *DynamicStop {
	return &DynamicStop{
		atr:                indicator.NewATR(cfg.ATRPeriod),
		multiplier:         cfg.ATRMultiplier,
		minStopPercent:     cfg.MinStopPercent,
		maxStopPercent:     cfg.MaxStopPercent,
		trailingActivation: cfg.TrailingActivationPc,
		trailingDistance:   cfg.TrailingDistanceATR,
	}
}

// ObserveBar feeds one bar into the underlying ATR window.
func (d *DynamicStop) ObserveBar(high, low, close float64) {
	d.atr.Update(high, low, close)
}

// ATRValue exposes the current average true range. ok is false until
// at least one bar has been observed.
func (d *DynamicStop) ATRValue() (float64, bool) {
	return d.atr.Value()
}

// InitialStop returns the protective stop for a fresh position. The
// ATR distance is clamped between minStopPercent and maxStopPercent
// of the entry price, so a stop exists even before the ATR window has
// data.
func (d *DynamicStop) InitialStop(entry float64, isLong bool) float64 {
	atr, _ := d.atr.Value()
	distance := atr * d.multiplier

	minDistance := entry * d.minStopPercent / 100
	maxDistance := entry * d.maxStopPercent / 100
	if distance < minDistance {
		distance = minDistance
	}
	if distance > maxDistance {
		distance = maxDistance
	}

	if isLong {
		return entry - distance
	}
	return entry + distance
}

// TrailingStop proposes a tightened stop for an open position, or
// reports false when no adjustment applies: the position is not yet
// past the activation profit, the ATR window is empty, or the
// candidate stop would loosen the current one.
func (d *DynamicStop) TrailingStop(current, entry, currentStop float64, isLong bool) (float64, bool) {
	if entry == 0 {
		return 0, false
	}

	var profitPercent float64
	if isLong {
		profitPercent = (current - entry) / entry * 100
	} else {
		profitPercent = (entry - current) / entry * 100
	}
	if profitPercent < d.trailingActivation {
		return 0, false
	}

	atr, ok := d.atr.Value()
	if !ok {
		return 0, false
	}
	distance := atr * d.trailingDistance

	if isLong {
		candidate := current - distance
		if candidate > currentStop {
			return candidate, true
		}
		return 0, false
	}
	candidate := current + distance
	if candidate < currentStop {
		return candidate, true
	}
	return 0, false
}

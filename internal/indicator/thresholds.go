package indicator

import (
	"math"

	"github.com/your-org/lro-swing-bot/pkg/ring"
)

// AdaptiveThresholds widens a base overbought/oversold band with recent
// volatility. The scale factor is 1 + 0.5·avg(|Δprice/price|) over a
// bounded window of price changes, so a choppy market needs a larger
// excursion before a signal fires.
type AdaptiveThresholds struct {
	baseOverbought float64
	baseOversold   float64

	changes   *ring.Buffer[float64] // recent |Δprice/price|
	lastPrice float64
	hasLast   bool
}

// NewAdaptiveThresholds creates thresholds around the given base band.
// The window bounds how many price changes contribute to the scale.
func NewAdaptiveThresholds(overbought, oversold float64, window int) *AdaptiveThresholds {
	if window < 1 {
		window = 1
	}
	return &AdaptiveThresholds{
		baseOverbought: overbought,
		baseOversold:   oversold,
		changes:        ring.New[float64](window),
	}
}

// Update records a price observation.
func (a *AdaptiveThresholds) Update(price float64) {
	if a.hasLast && a.lastPrice != 0 {
		a.changes.Push(math.Abs((price - a.lastPrice) / a.lastPrice))
	}
	a.lastPrice = price
	a.hasLast = true
}

// Current returns the scaled overbought and oversold thresholds.
func (a *AdaptiveThresholds) Current() (overbought, oversold float64) {
	scale := 1.0
	if vals := a.changes.Values(); len(vals) > 0 {
		var sum float64
		for _, v := range vals {
			sum += v
		}
		scale = 1.0 + 0.5*(sum/float64(len(vals)))
	}
	return a.baseOverbought * scale, a.baseOversold * scale
}

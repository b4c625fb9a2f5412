// Copyright (c) 2025 LRO-Swing-Bot
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package indicator

import (
	"math"

	"github.com/your-org/lro-swing-bot/pkg/ring"
)

// dispersionScale maps a 5% coefficient of variation to a full score of 1.
const dispersionScale = 20.0

// NormalizedVolatility scores price dispersion on a 0..1 scale: the
// population standard deviation of recent closes over their mean,
// multiplied by dispersionScale and clamped. The safety breaker trips
// when the score exceeds its volatility limit.
type NormalizedVolatility struct {
	prices *ring.Buffer[float64]
}

// NewNormalizedVolatility creates a calculator over the given window of
// close prices.
func NewNormalizedVolatility(window int) *NormalizedVolatility {
	if window < 2 {
		window = 2
	}
	return &NormalizedVolatility{prices: ring.New[float64](window)}
}

// Update records a close price.
func (n *NormalizedVolatility) Update(price float64) {
	n.prices.Push(price)
}

// Value returns the current dispersion score. Fewer than two prices
// yield the neutral midpoint 0.5, and a non-positive mean reads as
// maximal dispersion.
func (n *NormalizedVolatility) Value() float64 {
	vals := n.prices.Values()
	if len(vals) < 2 {
		return 0.5
	}

	var sum float64
	for _, p := range vals {
		sum += p
	}
	mean := sum / float64(len(vals))
	if mean <= 0 {
		return 1.0
	}

	var variance float64
	for _, p := range vals {
		d := p - mean
		variance += d * d
	}
	variance /= float64(len(vals))

	score := math.Sqrt(variance) / mean * dispersionScale
	return math.Min(score, 1.0)
}

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

// Volatility tracks simple returns over a short bounded window. The
// position sizer uses StdDev to damp sizes in rough markets.
type Volatility struct {
	returns   *ring.Buffer[float64]
	lastPrice float64
	hasLast   bool
}

// NewVolatility creates a calculator over the given window of returns.
func NewVolatility(window int) *Volatility {
	if window < 2 {
		window = 2
	}
	return &Volatility{returns: ring.New[float64](window)}
}

// Update records a close price.
func (v *Volatility) Update(price float64) {
	if v.hasLast && v.lastPrice != 0 {
		v.returns.Push((price - v.lastPrice) / v.lastPrice)
	}
	v.lastPrice = price
	v.hasLast = true
}

// StdDev returns the standard deviation of the windowed returns, or 0
// when fewer than two returns have been observed.
func (v *Volatility) StdDev() float64 {
	vals := v.returns.Values()
	if len(vals) < 2 {
		return 0
	}

	var sum float64
	for _, r := range vals {
		sum += r
	}
	mean := sum / float64(len(vals))

	var variance float64
	for _, r := range vals {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(vals))
	return math.Sqrt(variance)
}

// Ready reports whether the window has enough returns for a meaningful
// standard deviation.
func (v *Volatility) Ready() bool {
	return v.returns.Len() >= 2
}

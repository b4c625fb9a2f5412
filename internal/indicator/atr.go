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

// ATR tracks the average true range over a bounded window of bars.
// True range is max(high−low, |high−prevClose|, |low−prevClose|); the
// first bar has no previous close and contributes high−low.
type ATR struct {
	trueRanges *ring.Buffer[float64]
	prevClose  float64
	hasPrev    bool
}

// NewATR creates an ATR over the given period.
func NewATR(period int) *ATR {
	if period < 1 {
		period = 1
	}
	return &ATR{trueRanges: ring.New[float64](period)}
}

// Update records one bar.
func (a *ATR) Update(high, low, close float64) {
	tr := high - low
	if a.hasPrev {
		tr = math.Max(tr, math.Max(
			math.Abs(high-a.prevClose),
			math.Abs(low-a.prevClose),
		))
	}
	a.trueRanges.Push(tr)
	a.prevClose = close
	a.hasPrev = true
}

// Value returns the average true range, or false before any bar arrived.
func (a *ATR) Value() (float64, bool) {
	vals := a.trueRanges.Values()
	if len(vals) == 0 {
		return 0, false
	}
	var sum float64
	for _, tr := range vals {
		sum += tr
	}
	return sum / float64(len(vals)), true
}

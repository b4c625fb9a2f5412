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

	"github.com/your-org/lro-swing-bot/internal/errs"
)

// degenerateEps bounds the regression denominator and the total sum of
// squares below which a fit is considered degenerate.
const degenerateEps = 1e-10

type xyPoint struct {
	x, y float64
}

// Fit is a cached least-squares result over the current window.
type Fit struct {
	Slope     float64
	Intercept float64
	RSquared  float64
}

// PredictAt evaluates the fitted line at x.
func (f Fit) PredictAt(x float64) float64 {
	return f.Intercept + f.Slope*x
}

// RegressionWindow is a fixed-capacity FIFO of (x, y) samples with running
// sums Σx, Σy, Σxy, Σx² and Σy². Adding a sample is O(1): when the window
// is full the oldest sample's contribution is subtracted instead of
// recomputing the sums over the whole window. The cached fit is invalidated
// on every mutation.
type RegressionWindow struct {
	pts   []xyPoint
	head  int
	count int

	sumX, sumY, sumXY, sumXX, sumYY float64

	cacheValid bool
	cache      Fit
}

// NewRegressionWindow creates a window holding up to capacity samples.
func NewRegressionWindow(capacity int) *RegressionWindow {
	if capacity < 2 {
		panic("regression window capacity must be at least 2")
	}
	return &RegressionWindow{pts: make([]xyPoint, capacity)}
}

// Add inserts a sample, evicting the oldest one when the window is full.
// Non-finite input is rejected before any sum is touched, so a bad tick
// can never corrupt the window.
func (w *RegressionWindow) Add(x, y float64) error {
	if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
		return errs.Validation("non-finite regression sample (x=%v, y=%v)", x, y)
	}

	if w.count == len(w.pts) {
		old := w.pts[w.head]
		w.sumX -= old.x
		w.sumY -= old.y
		w.sumXY -= old.x * old.y
		w.sumXX -= old.x * old.x
		w.sumYY -= old.y * old.y
		w.head = (w.head + 1) % len(w.pts)
		w.count--
	}

	w.pts[(w.head+w.count)%len(w.pts)] = xyPoint{x, y}
	w.sumX += x
	w.sumY += y
	w.sumXY += x * y
	w.sumXX += x * x
	w.sumYY += y * y
	w.count++

	w.cacheValid = false
	return nil
}

// Len returns the number of resident samples.
func (w *RegressionWindow) Len() int {
	return w.count
}

// Cap returns the window capacity.
func (w *RegressionWindow) Cap() int {
	return len(w.pts)
}

// Last returns the most recent sample.
func (w *RegressionWindow) Last() (x, y float64, ok bool) {
	if w.count == 0 {
		return 0, 0, false
	}
	p := w.pts[(w.head+w.count-1)%len(w.pts)]
	return p.x, p.y, true
}

// YRange returns the spread between the largest and smallest y in the
// window. This is a scan, not a running value; capacities are small.
func (w *RegressionWindow) YRange() float64 {
	if w.count == 0 {
		return 0
	}
	lo := math.Inf(1)
	hi := math.Inf(-1)
	for i := 0; i < w.count; i++ {
		y := w.pts[(w.head+i)%len(w.pts)].y
		lo = math.Min(lo, y)
		hi = math.Max(hi, y)
	}
	return hi - lo
}

// Calculate returns the least-squares fit over the resident samples.
// It fails with a calculation error when fewer than two samples are
// present or when the x values are too close together for a stable slope.
func (w *RegressionWindow) Calculate() (Fit, error) {
	if w.cacheValid {
		return w.cache, nil
	}
	if w.count < 2 {
		return Fit{}, errs.Calculation("regression needs at least 2 samples, have %d", w.count)
	}

	n := float64(w.count)
	denom := n*w.sumXX - w.sumX*w.sumX
	if math.Abs(denom) < degenerateEps {
		return Fit{}, errs.Calculation("degenerate regression window (denominator %g)", denom)
	}

	slope := (n*w.sumXY - w.sumX*w.sumY) / denom
	intercept := (w.sumY - slope*w.sumX) / n

	// R² from the sums alone: SSres = Σy² − a·Σy − b·Σxy, SStot = Σy² − (Σy)²/n.
	ssTot := w.sumYY - w.sumY*w.sumY/n
	rSquared := 1.0
	if ssTot > degenerateEps {
		ssRes := w.sumYY - intercept*w.sumY - slope*w.sumXY
		rSquared = 1.0 - ssRes/ssTot
	}
	rSquared = math.Max(0, math.Min(1, rSquared))

	w.cache = Fit{Slope: slope, Intercept: intercept, RSquared: rSquared}
	w.cacheValid = true
	return w.cache, nil
}

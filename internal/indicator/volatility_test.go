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
	"testing"
)

const float64EqualityThreshold = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= float64EqualityThreshold
}

func TestVolatility_Update(t *testing.T) {
	tests := []struct {
		name    string
		window  int
		prices  []float64
		want    float64
	}{
		{
			name:   "stable price",
			window: 10,
			prices: []float64{100, 100, 100, 100},
			// All returns are zero.
			want: 0,
		},
		{
			name:   "single return",
			window: 10,
			prices: []float64{100, 102},
			// One return is not enough for a deviation.
			want: 0,
		},
		{
			name:   "fluctuating price",
			window: 10,
			prices: []float64{100, 102, 100},
			// Returns: 0.02, -2/102. Mean ~0.000196.
			// Both deviations are ~0.019804, so stddev ~0.019804.
			want: 0.019803921568,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVolatility(tt.window)
			for _, p := range tt.prices {
				v.Update(p)
			}
			got := v.StdDev()
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("StdDev() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVolatility_WindowEviction(t *testing.T) {
	v := NewVolatility(2)
	// Returns: +10%, -9.09%, then two flat returns push both out.
	for _, p := range []float64{100, 110, 100, 100, 100} {
		v.Update(p)
	}
	if got := v.StdDev(); !almostEqual(got, 0) {
		t.Errorf("expected volatile returns to be evicted, StdDev() = %v", got)
	}
}

func TestVolatility_Ready(t *testing.T) {
	v := NewVolatility(5)
	if v.Ready() {
		t.Error("fresh calculator should not be ready")
	}
	v.Update(100)
	v.Update(101)
	if v.Ready() {
		t.Error("one return should not be ready")
	}
	v.Update(102)
	if !v.Ready() {
		t.Error("two returns should be ready")
	}
}

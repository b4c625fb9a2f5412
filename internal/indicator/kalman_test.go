package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKalmanFilter_FirstUpdate(t *testing.T) {
	k := NewKalmanFilter(0.1, 0.3, 0.0)

	// p=1.0+0.1=1.1, gain=1.1/1.4, x=0+gain*1.0
	got := k.Update(1.0)
	assert.InDelta(t, 1.1/1.4, got, 1e-12)
	assert.Equal(t, got, k.Value())
}

func TestKalmanFilter_ConvergesToConstant(t *testing.T) {
	k := NewKalmanFilter(0.1, 0.3, 0.0)

	var est float64
	for i := 0; i < 100; i++ {
		est = k.Update(5.0)
	}
	assert.InDelta(t, 5.0, est, 0.01, "repeated constant measurements should converge")
}

func TestKalmanFilter_SmoothsSteps(t *testing.T) {
	k := NewKalmanFilter(0.1, 0.3, 0.0)
	k.Update(0.0)

	// A jump is followed, but each estimate stays between the previous
	// estimate and the measurement.
	prev := k.Value()
	for i := 0; i < 10; i++ {
		est := k.Update(10.0)
		assert.Greater(t, est, prev)
		assert.Less(t, est, 10.0)
		prev = est
	}
}

func TestKalmanFilter_StatePersists(t *testing.T) {
	k := NewKalmanFilter(0.1, 0.3, 0.0)
	first := k.Update(2.0)
	second := k.Update(2.0)

	// The second update starts from the first estimate, not from zero.
	assert.Greater(t, second, first)
	assert.LessOrEqual(t, second, 2.0)
}

package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMAETracker_DefaultWhenEmpty(t *testing.T) {
	m := NewMAETracker()

	assert.Equal(t, 2.0, m.AverageLosingMAE())
	assert.InDelta(t, 2.4, m.SuggestedStopPercent(), 1e-9)
}

func TestMAETracker_AveragesLosersOnly(t *testing.T) {
	m := NewMAETracker()

	m.Record(1.0, true)
	m.Record(3.0, true)
	m.Record(10.0, false) // winner, must not move the average

	assert.InDelta(t, 2.0, m.AverageLosingMAE(), 1e-9)
	assert.InDelta(t, 2.4, m.SuggestedStopPercent(), 1e-9)
}

func TestMAETracker_WinnersOnlyKeepsDefault(t *testing.T) {
	m := NewMAETracker()

	m.Record(0.5, false)
	m.Record(1.5, false)

	assert.Equal(t, 2.0, m.AverageLosingMAE())
}

func TestMAETracker_IgnoresInvalid(t *testing.T) {
	m := NewMAETracker()

	m.Record(-1.0, true)
	m.Record(math.NaN(), true)
	m.Record(math.Inf(1), true)

	assert.Equal(t, 0, m.Count())
}

func TestMAETracker_HistoryBounded(t *testing.T) {
	m := NewMAETracker()

	for i := 0; i < maeHistoryCap; i++ {
		m.Record(1.0, true)
	}
	for i := 0; i < maeHistoryCap; i++ {
		m.Record(3.0, true)
	}

	assert.Equal(t, maeHistoryCap, m.Count())
	// The early 1% excursions have been evicted.
	assert.InDelta(t, 3.0, m.AverageLosingMAE(), 1e-9)
}

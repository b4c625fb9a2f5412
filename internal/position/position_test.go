package position

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var opened = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestPosition_OpenLong(t *testing.T) {
	p := New("BTC/USD")

	realized := p.Update(opened, 2, 100)
	assert.Zero(t, realized)

	size, entry := p.Get()
	assert.Equal(t, 2.0, size)
	assert.Equal(t, 100.0, entry)
	assert.True(t, p.IsOpen())
	assert.True(t, p.IsLong())
	assert.Equal(t, opened, p.OpenedAt())
	assert.Equal(t, 100.0, p.Snapshot().WorstPrice)
}

func TestPosition_AddToLongAveragesEntry(t *testing.T) {
	p := New("BTC/USD")
	p.Update(opened, 2, 100)

	realized := p.Update(opened.Add(time.Minute), 1, 106)
	assert.Zero(t, realized)

	size, entry := p.Get()
	assert.Equal(t, 3.0, size)
	assert.InDelta(t, 102.0, entry, 1e-9)
}

func TestPosition_PartialCloseRealizesAndKeepsContext(t *testing.T) {
	p := New("BTC/USD")
	p.Update(opened, 2, 100)

	realized := p.Update(opened.Add(time.Hour), -1, 110)
	assert.InDelta(t, 10.0, realized, 1e-9)

	size, entry := p.Get()
	assert.Equal(t, 1.0, size)
	assert.Equal(t, 100.0, entry)
	assert.Equal(t, opened, p.OpenedAt())
}

func TestPosition_DustRemainderFlattens(t *testing.T) {
	p := New("BTC/USD")
	p.Update(opened, 1, 100)

	// A closing fill a few ulps larger than the position flattens it
	// instead of flipping into a microscopic short.
	realized := p.Update(opened.Add(time.Hour), -(1 + 1e-12), 105)
	assert.InDelta(t, 5.0, realized, 1e-6)
	assert.False(t, p.IsOpen())

	size, entry := p.Get()
	assert.Zero(t, size)
	assert.Zero(t, entry)
}

func TestPosition_FullCloseFlattens(t *testing.T) {
	p := New("BTC/USD")
	p.Update(opened, 2, 100)
	p.SetProtection(95, 108)

	realized := p.Update(opened.Add(time.Hour), -2, 105)
	assert.InDelta(t, 10.0, realized, 1e-9)

	assert.False(t, p.IsOpen())
	size, entry := p.Get()
	assert.Zero(t, size)
	assert.Zero(t, entry)
	stop, tp := p.Protection()
	assert.Zero(t, stop)
	assert.Zero(t, tp)
	assert.True(t, p.OpenedAt().IsZero())
}

func TestPosition_ShortRoundTrip(t *testing.T) {
	p := New("BTC/USD")

	require.Zero(t, p.Update(opened, -3, 100))
	assert.False(t, p.IsLong())

	// Buying back cheaper is a profit on a short.
	realized := p.Update(opened.Add(time.Hour), 3, 90)
	assert.InDelta(t, 30.0, realized, 1e-9)
	assert.False(t, p.IsOpen())
}

func TestPosition_FlipOpensFreshPosition(t *testing.T) {
	p := New("BTC/USD")
	p.Update(opened, 1, 100)

	flipped := opened.Add(2 * time.Hour)
	realized := p.Update(flipped, -2, 110)
	assert.InDelta(t, 10.0, realized, 1e-9)

	size, entry := p.Get()
	assert.Equal(t, -1.0, size)
	assert.Equal(t, 110.0, entry)
	assert.Equal(t, flipped, p.OpenedAt())
}

func TestPosition_MAELong(t *testing.T) {
	p := New("BTC/USD")
	p.Update(opened, 2, 100)

	p.ObservePrice(97)
	p.ObservePrice(99)
	p.ObservePrice(96)
	assert.InDelta(t, 4.0, p.MAEPercent(), 1e-9)
}

func TestPosition_MAEShort(t *testing.T) {
	p := New("BTC/USD")
	p.Update(opened, -1, 100)

	p.ObservePrice(103)
	p.ObservePrice(101)
	assert.InDelta(t, 3.0, p.MAEPercent(), 1e-9)
}

func TestPosition_MAEZeroWhenNeverAdverse(t *testing.T) {
	p := New("BTC/USD")
	assert.Zero(t, p.MAEPercent())

	p.Update(opened, 2, 100)
	p.ObservePrice(105)
	assert.Zero(t, p.MAEPercent())
}

func TestPosition_IgnoresDegenerateFills(t *testing.T) {
	p := New("BTC/USD")

	assert.Zero(t, p.Update(opened, 0, 100))
	assert.Zero(t, p.Update(opened, 1, 0))
	assert.Zero(t, p.Update(opened, 1, -5))
	assert.False(t, p.IsOpen())
}

func TestPosition_Snapshot(t *testing.T) {
	p := New("BTC/USD")
	p.Update(opened, 2, 100)
	p.SetProtection(95, 108)
	p.ObservePrice(98)

	v := p.Snapshot()
	assert.Equal(t, "BTC/USD", v.Pair)
	assert.Equal(t, 2.0, v.Size)
	assert.Equal(t, 100.0, v.AvgEntry)
	assert.Equal(t, 95.0, v.StopLoss)
	assert.Equal(t, 108.0, v.TakeProfit)
	assert.Equal(t, opened, v.OpenedAt)
	assert.Equal(t, 98.0, v.WorstPrice)

	assert.Contains(t, p.String(), "BTC/USD")
}

package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/lro-swing-bot/internal/config"
	"github.com/your-org/lro-swing-bot/internal/errs"
)

func newTestSizer() *KellySizer {
	return NewKellySizer(config.Default().Risk)
}

func TestKellySizer_PositionSizeKnownValue(t *testing.T) {
	s := newTestSizer()

	// kelly = (0.6*2 - 0.4*1)/2 = 0.4; * 0.25 = 0.1; capped by the
	// 2% per-trade limit.
	size, err := s.PositionSize(10000, 0.6, 2.0, 1.0, 0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 200.0, size, 1e-9)
}

func TestKellySizer_VolatilityDampens(t *testing.T) {
	s := newTestSizer()

	// kelly = (0.55 - 0.45)/1 = 0.1; * 0.25 = 0.025.
	calm, err := s.PositionSize(10000, 0.55, 1.0, 1.0, 0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 200.0, calm, 1e-9) // 0.025 capped at 0.02

	stormy, err := s.PositionSize(10000, 0.55, 1.0, 1.0, 1.0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 125.0, stormy, 1e-9) // 0.025/2 = 0.0125
	assert.Less(t, stormy, calm)
}

func TestKellySizer_NegativeEdgeYieldsZero(t *testing.T) {
	s := newTestSizer()

	size, err := s.PositionSize(10000, 0.3, 1.0, 1.0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, size)
}

func TestKellySizer_HeatBudgetCaps(t *testing.T) {
	s := newTestSizer()

	// Raw sizing wants 2%, but only 1% of heat remains.
	size, err := s.PositionSize(10000, 0.6, 2.0, 1.0, 0, 0.05)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, size, 1e-9)

	// Heat already over the limit: nothing to allocate.
	size, err = s.PositionSize(10000, 0.6, 2.0, 1.0, 0, 0.06)
	require.NoError(t, err)
	assert.Equal(t, 0.0, size)
}

func TestKellySizer_InvalidInputs(t *testing.T) {
	s := newTestSizer()

	tests := []struct {
		name string
		args [6]float64 // balance, winProb, avgWin, avgLoss, volatility, heat
	}{
		{"win prob zero", [6]float64{10000, 0, 1, 1, 0, 0}},
		{"win prob one", [6]float64{10000, 1, 1, 1, 0, 0}},
		{"win prob negative", [6]float64{10000, -0.1, 1, 1, 0, 0}},
		{"win prob above one", [6]float64{10000, 1.1, 1, 1, 0, 0}},
		{"win prob NaN", [6]float64{10000, math.NaN(), 1, 1, 0, 0}},
		{"avg win zero", [6]float64{10000, 0.5, 0, 1, 0, 0}},
		{"avg win negative", [6]float64{10000, 0.5, -1, 1, 0, 0}},
		{"avg win infinite", [6]float64{10000, 0.5, math.Inf(1), 1, 0, 0}},
		{"avg loss zero", [6]float64{10000, 0.5, 1, 0, 0, 0}},
		{"avg loss infinite", [6]float64{10000, 0.5, 1, math.Inf(1), 0, 0}},
		{"balance negative", [6]float64{-1, 0.5, 1, 1, 0, 0}},
		{"balance NaN", [6]float64{math.NaN(), 0.5, 1, 1, 0, 0}},
		{"balance infinite", [6]float64{math.Inf(1), 0.5, 1, 1, 0, 0}},
		{"volatility negative", [6]float64{10000, 0.5, 1, 1, -0.5, 0}},
		{"volatility NaN", [6]float64{10000, 0.5, 1, 1, math.NaN(), 0}},
		{"heat negative", [6]float64{10000, 0.5, 1, 1, 0, -0.01}},
		{"heat NaN", [6]float64{10000, 0.5, 1, 1, 0, math.NaN()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tt.args
			size, err := s.PositionSize(a[0], a[1], a[2], a[3], a[4], a[5])
			require.Error(t, err)
			assert.Equal(t, errs.KindValidation, errs.KindOf(err))
			assert.False(t, math.IsNaN(size))
			assert.False(t, math.IsInf(size, 0))
			assert.Equal(t, 0.0, size)
		})
	}
}

func TestKellySizer_SizeNeverNonFinite(t *testing.T) {
	s := newTestSizer()

	// Sweep a grid of valid inputs; the output must stay finite and
	// within the documented clamp.
	for _, p := range []float64{0.01, 0.25, 0.5, 0.75, 0.99} {
		for _, w := range []float64{0.1, 1, 10} {
			for _, l := range []float64{0.1, 1, 10} {
				for _, vol := range []float64{0, 0.5, 5} {
					size, err := s.PositionSize(10000, p, w, l, vol, 0.01)
					require.NoError(t, err)
					require.False(t, math.IsNaN(size))
					require.False(t, math.IsInf(size, 0))
					require.GreaterOrEqual(t, size, 0.0)
					require.LessOrEqual(t, size, 1000.0)
				}
			}
		}
	}
}

func TestKellySizer_MetricsDefaultUntilWarm(t *testing.T) {
	s := newTestSizer()

	p, w, l := s.Metrics()
	assert.Equal(t, 0.5, p)
	assert.Equal(t, 1.0, w)
	assert.Equal(t, 1.0, l)

	// Nine samples still is not enough.
	for i := 0; i < minAdaptiveSamples-1; i++ {
		s.RecordTradeResult(true, 5.0)
	}
	p, w, l = s.Metrics()
	assert.Equal(t, 0.5, p)
	assert.Equal(t, 1.0, w)
	assert.Equal(t, 1.0, l)
}

func TestKellySizer_MetricsAdapt(t *testing.T) {
	s := newTestSizer()

	for i := 0; i < 6; i++ {
		s.RecordTradeResult(true, 2.0)
	}
	for i := 0; i < 4; i++ {
		s.RecordTradeResult(false, -1.0)
	}

	p, w, l := s.Metrics()
	assert.InDelta(t, 7.0/12.0, p, 1e-9) // smoothed (6+1)/(10+2)
	assert.InDelta(t, 2.0, w, 1e-9)
	assert.InDelta(t, 1.0, l, 1e-9)
}

func TestKellySizer_AllWinStreakStillSizes(t *testing.T) {
	s := newTestSizer()

	for i := 0; i < 20; i++ {
		s.RecordTradeResult(true, 3.0)
	}
	p, _, _ := s.Metrics()
	require.Greater(t, p, 0.0)
	require.Less(t, p, 1.0)

	winProb, avgWin, avgLoss := s.Metrics()
	size, err := s.PositionSize(10000, winProb, avgWin, avgLoss, 0, 0)
	require.NoError(t, err)
	assert.Greater(t, size, 0.0)
}

func TestKellySizer_HistoryBounded(t *testing.T) {
	s := newTestSizer()

	for i := 0; i < kellyHistoryCap+50; i++ {
		s.RecordTradeResult(i%2 == 0, 1.0)
	}
	assert.Equal(t, kellyHistoryCap, s.SampleCount())
}

func TestKellySizer_RecordIgnoresNonFinite(t *testing.T) {
	s := newTestSizer()

	s.RecordTradeResult(true, math.NaN())
	s.RecordTradeResult(false, math.Inf(-1))
	assert.Equal(t, 0, s.SampleCount())
}

package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/lro-swing-bot/internal/errs"
)

var fillTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestPaperEngine() *PaperEngine {
	return NewPaperEngine(10000, "BTC/USD", zap.NewNop())
}

func paperIntent(side Side, size, price float64) TradeIntent {
	return TradeIntent{
		ID:        uuid.New(),
		Timestamp: fillTime,
		Pair:      "BTC/USD",
		Side:      side,
		Size:      decimal.NewFromFloat(size),
		Price:     decimal.NewFromFloat(price),
	}
}

func TestPaperEngine_BuyOpensPosition(t *testing.T) {
	e := newTestPaperEngine()

	fill, err := e.Execute(context.Background(), paperIntent(SideBuy, 500, 100))
	require.NoError(t, err)

	assert.InDelta(t, 5.0, fill.Units, 1e-9)
	assert.Equal(t, 100.0, fill.Price)
	assert.Zero(t, fill.Realized)

	size, entry := e.Position().Get()
	assert.InDelta(t, 5.0, size, 1e-9)
	assert.Equal(t, 100.0, entry)

	// Opening does not touch the balance; PnL settles on close.
	assert.InDelta(t, 10000.0, e.Balance(), 1e-9)
}

func TestPaperEngine_SellClosesWithProfit(t *testing.T) {
	e := newTestPaperEngine()
	ctx := context.Background()

	_, err := e.Execute(ctx, paperIntent(SideBuy, 500, 100))
	require.NoError(t, err)

	fill, err := e.Execute(ctx, paperIntent(SideSell, 550, 110))
	require.NoError(t, err)

	assert.InDelta(t, 50.0, fill.Realized, 1e-6)
	assert.False(t, e.Position().IsOpen())
	assert.InDelta(t, 10050.0, e.Balance(), 1e-6)

	perf := e.Performance(110)
	assert.Equal(t, 1, perf.Trades)
	assert.Equal(t, 1, perf.Wins)
	assert.InDelta(t, 50.0, perf.RealizedPnL, 1e-6)
}

func TestPaperEngine_ShortRoundTrip(t *testing.T) {
	e := newTestPaperEngine()
	ctx := context.Background()

	_, err := e.Execute(ctx, paperIntent(SideSell, 300, 100))
	require.NoError(t, err)
	assert.False(t, e.Position().IsLong())

	fill, err := e.Execute(ctx, paperIntent(SideBuy, 270, 90))
	require.NoError(t, err)

	assert.InDelta(t, 30.0, fill.Realized, 1e-6)
	assert.False(t, e.Position().IsOpen())
	assert.InDelta(t, 10030.0, e.Balance(), 1e-6)
}

func TestPaperEngine_BreakevenCloseCountsAsTrade(t *testing.T) {
	e := newTestPaperEngine()
	ctx := context.Background()

	_, err := e.Execute(ctx, paperIntent(SideBuy, 500, 100))
	require.NoError(t, err)
	_, err = e.Execute(ctx, paperIntent(SideSell, 500, 100))
	require.NoError(t, err)

	perf := e.Performance(100)
	assert.Equal(t, 1, perf.Trades)
	assert.Equal(t, 0, perf.Wins)
	assert.InDelta(t, 10000.0, e.Balance(), 1e-6)
}

func TestPaperEngine_RejectsInvalidIntents(t *testing.T) {
	e := newTestPaperEngine()
	ctx := context.Background()

	_, err := e.Execute(ctx, paperIntent(SideBuy, 0, 100))
	assert.True(t, errs.IsKind(err, errs.KindValidation))

	_, err = e.Execute(ctx, paperIntent(SideSell, 100, -5))
	assert.True(t, errs.IsKind(err, errs.KindValidation))

	_, err = e.Execute(ctx, paperIntent(Side("HOLD"), 100, 100))
	assert.True(t, errs.IsKind(err, errs.KindValidation))

	assert.False(t, e.Position().IsOpen())
}

func TestPaperEngine_HonorsContextCancellation(t *testing.T) {
	e := newTestPaperEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Execute(ctx, paperIntent(SideBuy, 500, 100))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPaperEngine_SetBalance(t *testing.T) {
	e := newTestPaperEngine()

	require.NoError(t, e.SetBalance(25000))
	assert.InDelta(t, 25000.0, e.Balance(), 1e-9)

	err := e.SetBalance(-1)
	assert.True(t, errs.IsKind(err, errs.KindValidation))
}

func TestPaperEngine_PerformanceMarksUnrealized(t *testing.T) {
	e := newTestPaperEngine()

	_, err := e.Execute(context.Background(), paperIntent(SideBuy, 500, 100))
	require.NoError(t, err)

	perf := e.Performance(108)
	assert.InDelta(t, 40.0, perf.Unrealized, 1e-6)
	assert.Zero(t, perf.Trades)
}

package csvwriter

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/lro-swing-bot/internal/dbwriter"
	"github.com/your-org/lro-swing-bot/internal/engine"
	"github.com/your-org/lro-swing-bot/internal/signal"
)

var _ dbwriter.Recorder = (*Recorder)(nil)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestRecorder_WritesAllStreams(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewRecorder(dir, zap.NewNop())
	require.NoError(t, err)

	at := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)
	id := uuid.New()

	rec.SaveSignal(signal.Signal{Timestamp: at, Price: 100, Type: signal.Buy, Confidence: 0.7})
	rec.SaveIntent(engine.TradeIntent{
		ID:        id,
		Timestamp: at,
		Pair:      "BTC/USD",
		Side:      engine.SideBuy,
		Size:      decimal.NewFromInt(500),
		Price:     decimal.NewFromInt(100),
		Reason:    "oversold reversal",
	})
	rec.SaveFill(engine.Fill{IntentID: id, Time: at, Pair: "BTC/USD", Side: engine.SideBuy, Units: 5, Price: 100})
	rec.SaveSafetyEvent(engine.SafetyEvent{Time: at, Action: "HALT", Stage: "safety", Reason: "flash move", Price: 84})
	rec.SavePerformance(at, engine.Performance{Balance: 10000})
	rec.Close()

	signals := readCSV(t, filepath.Join(dir, "signals.csv"))
	require.Len(t, signals, 2)
	assert.Equal(t, "BUY", signals[1][5])

	intents := readCSV(t, filepath.Join(dir, "intents.csv"))
	require.Len(t, intents, 2)
	assert.Equal(t, id.String(), intents[1][1])
	assert.Equal(t, "500", intents[1][4])

	fills := readCSV(t, filepath.Join(dir, "fills.csv"))
	require.Len(t, fills, 2)
	assert.Equal(t, "5", fills[1][4])

	events := readCSV(t, filepath.Join(dir, "safety_events.csv"))
	require.Len(t, events, 2)
	assert.Equal(t, "HALT", events[1][1])

	perfs := readCSV(t, filepath.Join(dir, "performance.csv"))
	require.Len(t, perfs, 2)
	assert.Equal(t, "10000", perfs[1][1])
}

func TestRecorder_HeadersMatchColumns(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewRecorder(dir, zap.NewNop())
	require.NoError(t, err)
	rec.Close()

	signals := readCSV(t, filepath.Join(dir, "signals.csv"))
	require.Len(t, signals, 1)
	assert.Equal(t, signalHeader, signals[0])

	perfs := readCSV(t, filepath.Join(dir, "performance.csv"))
	require.Len(t, perfs, 1)
	assert.Equal(t, perfHeader, perfs[0])
}

func TestNewRecorder_RejectsBlockedDir(t *testing.T) {
	dir := t.TempDir()
	blocked := filepath.Join(dir, "occupied")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o644))

	_, err := NewRecorder(blocked, zap.NewNop())
	require.Error(t, err)
}

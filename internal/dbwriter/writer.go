// Package dbwriter persists the bot's audit trail to TimescaleDB.
// Signals, intents, fills, safety events and performance snapshots
// buffer in memory and flush in batches, so recording never blocks the
// tick path on the database.
package dbwriter

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/your-org/lro-swing-bot/internal/config"
	"github.com/your-org/lro-swing-bot/internal/engine"
	"github.com/your-org/lro-swing-bot/internal/errs"
	"github.com/your-org/lro-swing-bot/internal/signal"
)

// Pool abstracts pgxpool.Pool so tests can substitute a fake.
type Pool interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Close()
}

// Writer batches audit records and copies them into TimescaleDB on a
// ticker, on a full buffer and on Close.
type Writer struct {
	pool   Pool
	logger *zap.Logger
	cfg    config.RecorderConf

	mu       sync.Mutex
	signals  []signal.Signal
	intents  []engine.TradeIntent
	fills    []engine.Fill
	events   []engine.SafetyEvent
	perfs    []PerformanceAt
	ticker   *time.Ticker
	shutdown chan struct{}
	once     sync.Once
}

// PerformanceAt pairs an account snapshot with the tick time it was
// taken at.
type PerformanceAt struct {
	At   time.Time
	Perf engine.Performance
}

// NewWriter starts the background flusher over the given pool.
func NewWriter(pool Pool, cfg config.RecorderConf, logger *zap.Logger) (*Writer, error) {
	if pool == nil {
		return nil, errs.Validation("dbwriter needs a connection pool; use the dummy recorder instead")
	}
	if cfg.BatchSize <= 0 {
		logger.Warn("recorder batch_size not positive, defaulting to 100", zap.Int("configured", cfg.BatchSize))
		cfg.BatchSize = 100
	}
	if cfg.FlushSeconds <= 0 {
		logger.Warn("recorder flush_seconds not positive, defaulting to 1", zap.Int("configured", cfg.FlushSeconds))
		cfg.FlushSeconds = 1
	}

	w := &Writer{
		pool:     pool,
		logger:   logger,
		cfg:      cfg,
		signals:  make([]signal.Signal, 0, cfg.BatchSize),
		intents:  make([]engine.TradeIntent, 0, cfg.BatchSize),
		fills:    make([]engine.Fill, 0, cfg.BatchSize),
		events:   make([]engine.SafetyEvent, 0, cfg.BatchSize),
		perfs:    make([]PerformanceAt, 0, cfg.BatchSize),
		ticker:   time.NewTicker(time.Duration(cfg.FlushSeconds) * time.Second),
		shutdown: make(chan struct{}),
	}
	go w.run()
	logger.Info("audit writer started",
		zap.Int("batch_size", cfg.BatchSize),
		zap.Int("flush_seconds", cfg.FlushSeconds),
	)
	return w, nil
}

func (w *Writer) run() {
	for {
		select {
		case <-w.ticker.C:
			w.Flush()
		case <-w.shutdown:
			return
		}
	}
}

// SaveSignal buffers one evaluated signal.
func (w *Writer) SaveSignal(s signal.Signal) {
	w.mu.Lock()
	w.signals = append(w.signals, s)
	full := len(w.signals) >= w.cfg.BatchSize
	w.mu.Unlock()
	if full {
		w.Flush()
	}
}

// SaveIntent buffers one trade intent.
func (w *Writer) SaveIntent(i engine.TradeIntent) {
	w.mu.Lock()
	w.intents = append(w.intents, i)
	full := len(w.intents) >= w.cfg.BatchSize
	w.mu.Unlock()
	if full {
		w.Flush()
	}
}

// SaveFill buffers one simulated fill.
func (w *Writer) SaveFill(f engine.Fill) {
	w.mu.Lock()
	w.fills = append(w.fills, f)
	full := len(w.fills) >= w.cfg.BatchSize
	w.mu.Unlock()
	if full {
		w.Flush()
	}
}

// SaveSafetyEvent buffers one halt or suppression.
func (w *Writer) SaveSafetyEvent(e engine.SafetyEvent) {
	w.mu.Lock()
	w.events = append(w.events, e)
	full := len(w.events) >= w.cfg.BatchSize
	w.mu.Unlock()
	if full {
		w.Flush()
	}
}

// SavePerformance buffers one account snapshot, taken after each
// closed trade.
func (w *Writer) SavePerformance(at time.Time, p engine.Performance) {
	w.mu.Lock()
	w.perfs = append(w.perfs, PerformanceAt{At: at, Perf: p})
	full := len(w.perfs) >= w.cfg.BatchSize
	w.mu.Unlock()
	if full {
		w.Flush()
	}
}

// Flush writes every buffered record out. Failed batches are logged
// and dropped; a write error never reaches the tick path.
func (w *Writer) Flush() {
	w.mu.Lock()
	signals := w.signals
	intents := w.intents
	fills := w.fills
	events := w.events
	perfs := w.perfs
	w.signals = make([]signal.Signal, 0, w.cfg.BatchSize)
	w.intents = make([]engine.TradeIntent, 0, w.cfg.BatchSize)
	w.fills = make([]engine.Fill, 0, w.cfg.BatchSize)
	w.events = make([]engine.SafetyEvent, 0, w.cfg.BatchSize)
	w.perfs = make([]PerformanceAt, 0, w.cfg.BatchSize)
	w.mu.Unlock()

	ctx := context.Background()
	w.copyBatch(ctx, "signals", signalColumns, signalRows(signals))
	w.copyBatch(ctx, "intents", intentColumns, intentRows(intents))
	w.copyBatch(ctx, "fills", fillColumns, fillRows(fills))
	w.copyBatch(ctx, "safety_events", eventColumns, eventRows(events))
	w.copyBatch(ctx, "performance", perfColumns, perfRows(perfs))
}

func (w *Writer) copyBatch(ctx context.Context, table string, columns []string, rows [][]any) {
	if len(rows) == 0 {
		return
	}
	w.logger.Debug("flushing audit batch", zap.String("table", table), zap.Int("count", len(rows)))
	if _, err := w.pool.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows)); err != nil {
		w.logger.Error("audit batch insert failed",
			zap.String("table", table),
			zap.Int("count", len(rows)),
			zap.Error(err),
		)
	}
}

// Close flushes the buffers and closes the pool. Safe to call more
// than once.
func (w *Writer) Close() {
	w.once.Do(func() {
		close(w.shutdown)
		w.ticker.Stop()
		w.Flush()
		w.pool.Close()
		w.logger.Info("audit writer closed")
	})
}

var (
	signalColumns = []string{"time", "price", "value", "deviation", "filtered_value", "type", "confidence", "slope", "r_squared", "overbought", "oversold", "divergence"}
	intentColumns = []string{"time", "id", "pair", "side", "size", "price", "stop_loss", "take_profit", "confidence", "reason"}
	fillColumns   = []string{"time", "intent_id", "pair", "side", "units", "price", "realized"}
	eventColumns  = []string{"time", "action", "stage", "reason", "price"}
	perfColumns   = []string{"time", "balance", "unrealized_pnl", "realized_pnl", "trades", "wins", "losses", "win_rate", "gross_profit", "gross_loss"}
)

func signalRows(signals []signal.Signal) [][]any {
	rows := make([][]any, len(signals))
	for i, s := range signals {
		rows[i] = []any{
			s.Timestamp, s.Price, s.Value, s.Deviation, s.FilteredValue,
			s.Type.String(), s.Confidence, s.Slope, s.RSquared,
			s.Overbought, s.Oversold, s.Divergence.String(),
		}
	}
	return rows
}

func intentRows(intents []engine.TradeIntent) [][]any {
	rows := make([][]any, len(intents))
	for i, it := range intents {
		rows[i] = []any{
			it.Timestamp, it.ID.String(), it.Pair, string(it.Side),
			it.Size.InexactFloat64(), it.Price.InexactFloat64(),
			it.StopLoss.InexactFloat64(), it.TakeProfit.InexactFloat64(),
			it.Confidence, it.Reason,
		}
	}
	return rows
}

func fillRows(fills []engine.Fill) [][]any {
	rows := make([][]any, len(fills))
	for i, f := range fills {
		rows[i] = []any{
			f.Time, f.IntentID.String(), f.Pair, string(f.Side),
			f.Units, f.Price, f.Realized,
		}
	}
	return rows
}

func eventRows(events []engine.SafetyEvent) [][]any {
	rows := make([][]any, len(events))
	for i, e := range events {
		rows[i] = []any{e.Time, e.Action, e.Stage, e.Reason, e.Price}
	}
	return rows
}

func perfRows(perfs []PerformanceAt) [][]any {
	rows := make([][]any, len(perfs))
	for i, p := range perfs {
		rows[i] = []any{
			p.At, p.Perf.Balance, p.Perf.Unrealized, p.Perf.RealizedPnL,
			p.Perf.Trades, p.Perf.Wins, p.Perf.Losses, p.Perf.WinRate,
			p.Perf.GrossProfit, p.Perf.GrossLoss,
		}
	}
	return rows
}

// Package csvwriter records the audit trail to CSV files when no
// database is configured.
package csvwriter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/lro-swing-bot/internal/engine"
	"github.com/your-org/lro-swing-bot/internal/signal"
)

// Recorder writes one CSV file per audit stream under a directory.
// Rows are flushed as they arrive so the files stay tailable.
type Recorder struct {
	logger *zap.Logger

	mu      sync.Mutex
	files   []*os.File
	signals *csv.Writer
	intents *csv.Writer
	fills   *csv.Writer
	events  *csv.Writer
	perfs   *csv.Writer
}

// NewRecorder creates dir if needed and opens the five stream files,
// truncating any previous run.
func NewRecorder(dir string, logger *zap.Logger) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create CSV directory: %w", err)
	}

	r := &Recorder{logger: logger}
	var err error
	if r.signals, err = r.open(dir, "signals.csv", signalHeader); err != nil {
		return nil, err
	}
	if r.intents, err = r.open(dir, "intents.csv", intentHeader); err != nil {
		return nil, err
	}
	if r.fills, err = r.open(dir, "fills.csv", fillHeader); err != nil {
		return nil, err
	}
	if r.events, err = r.open(dir, "safety_events.csv", eventHeader); err != nil {
		return nil, err
	}
	if r.perfs, err = r.open(dir, "performance.csv", perfHeader); err != nil {
		return nil, err
	}
	logger.Info("audit recording to CSV", zap.String("dir", dir))
	return r, nil
}

func (r *Recorder) open(dir, name string, header []string) (*csv.Writer, error) {
	file, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		r.closeFiles()
		return nil, fmt.Errorf("failed to create CSV file %s: %w", name, err)
	}
	r.files = append(r.files, file)
	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		r.closeFiles()
		return nil, fmt.Errorf("failed to write CSV header for %s: %w", name, err)
	}
	w.Flush()
	return w, nil
}

var (
	signalHeader = []string{"time", "price", "value", "deviation", "filtered_value", "type", "confidence", "slope", "r_squared", "overbought", "oversold", "divergence"}
	intentHeader = []string{"time", "id", "pair", "side", "size", "price", "stop_loss", "take_profit", "confidence", "reason"}
	fillHeader   = []string{"time", "intent_id", "pair", "side", "units", "price", "realized"}
	eventHeader  = []string{"time", "action", "stage", "reason", "price"}
	perfHeader   = []string{"time", "balance", "unrealized_pnl", "realized_pnl", "trades", "wins", "losses", "win_rate", "gross_profit", "gross_loss"}
)

// SaveSignal writes one evaluated signal row.
func (r *Recorder) SaveSignal(s signal.Signal) {
	r.write(r.signals, []string{
		s.Timestamp.Format(time.RFC3339Nano),
		ftoa(s.Price), ftoa(s.Value), ftoa(s.Deviation), ftoa(s.FilteredValue),
		s.Type.String(), ftoa(s.Confidence), ftoa(s.Slope), ftoa(s.RSquared),
		ftoa(s.Overbought), ftoa(s.Oversold), s.Divergence.String(),
	})
}

// SaveIntent writes one trade intent row.
func (r *Recorder) SaveIntent(i engine.TradeIntent) {
	r.write(r.intents, []string{
		i.Timestamp.Format(time.RFC3339Nano),
		i.ID.String(), i.Pair, string(i.Side),
		i.Size.String(), i.Price.String(), i.StopLoss.String(), i.TakeProfit.String(),
		ftoa(i.Confidence), i.Reason,
	})
}

// SaveFill writes one simulated fill row.
func (r *Recorder) SaveFill(f engine.Fill) {
	r.write(r.fills, []string{
		f.Time.Format(time.RFC3339Nano),
		f.IntentID.String(), f.Pair, string(f.Side),
		ftoa(f.Units), ftoa(f.Price), ftoa(f.Realized),
	})
}

// SaveSafetyEvent writes one halt or suppression row.
func (r *Recorder) SaveSafetyEvent(e engine.SafetyEvent) {
	r.write(r.events, []string{
		e.Time.Format(time.RFC3339Nano),
		e.Action, e.Stage, e.Reason, ftoa(e.Price),
	})
}

// SavePerformance writes one account snapshot row.
func (r *Recorder) SavePerformance(at time.Time, p engine.Performance) {
	r.write(r.perfs, []string{
		at.Format(time.RFC3339Nano),
		ftoa(p.Balance), ftoa(p.Unrealized), ftoa(p.RealizedPnL),
		strconv.Itoa(p.Trades), strconv.Itoa(p.Wins), strconv.Itoa(p.Losses),
		ftoa(p.WinRate), ftoa(p.GrossProfit), ftoa(p.GrossLoss),
	})
}

func (r *Recorder) write(w *csv.Writer, record []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := w.Write(record); err != nil {
		r.logger.Error("failed to write CSV record", zap.Error(err))
		return
	}
	w.Flush()
	if err := w.Error(); err != nil {
		r.logger.Error("failed to flush CSV record", zap.Error(err))
	}
}

// Close flushes and closes every stream file.
func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range []*csv.Writer{r.signals, r.intents, r.fills, r.events, r.perfs} {
		if w != nil {
			w.Flush()
		}
	}
	r.closeFiles()
	r.logger.Info("CSV recorder closed")
}

func (r *Recorder) closeFiles() {
	for _, f := range r.files {
		if err := f.Close(); err != nil {
			r.logger.Error("failed to close CSV file", zap.String("file", f.Name()), zap.Error(err))
		}
	}
	r.files = nil
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

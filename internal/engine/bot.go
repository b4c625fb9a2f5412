package engine

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/your-org/lro-swing-bot/internal/alert"
	"github.com/your-org/lro-swing-bot/internal/config"
	"github.com/your-org/lro-swing-bot/internal/errs"
	"github.com/your-org/lro-swing-bot/internal/indicator"
	"github.com/your-org/lro-swing-bot/internal/lifecycle"
	"github.com/your-org/lro-swing-bot/internal/metrics"
	"github.com/your-org/lro-swing-bot/internal/position"
	"github.com/your-org/lro-swing-bot/internal/risk"
	"github.com/your-org/lro-swing-bot/internal/safety"
	"github.com/your-org/lro-swing-bot/internal/signal"
	"github.com/your-org/lro-swing-bot/pkg/ring"
)

// recentCap bounds the intents and suppressions retained for
// inspection over HTTP.
const recentCap = 100

// Bot wires the signal engine, risk manager, safety supervisor and
// paper execution into one decision pipeline. Ticks are processed one
// at a time under the lifecycle controller's processing guard; status
// reads are concurrent.
type Bot struct {
	logger   *zap.Logger
	life     *lifecycle.Controller
	notifier alert.Notifier
	recorder AuditSink
	metrics  *metrics.Recorder

	cfgMu  sync.RWMutex
	cfg    *config.Config
	frames *signal.TimeframeSet

	signals *signal.Engine
	vol     *indicator.Volatility
	risk    *risk.Manager
	safety  *safety.Supervisor
	paper   *PaperEngine

	mu         sync.RWMutex
	lastPrice  float64
	intents    *ring.Buffer[TradeIntent]
	suppressed *ring.Buffer[SafetyEvent]
}

// NewBot assembles the pipeline from validated configuration. The sink
// and notifier may be nil; logger and metrics recorder are required.
// Only paper execution is supported: any other mode fails validation,
// so no intent can ever reach a live venue.
func NewBot(cfg *config.Config, sink AuditSink, notifier alert.Notifier, rec *metrics.Recorder, logger *zap.Logger) (*Bot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = NopSink{}
	}
	if notifier == nil {
		notifier = alert.NewNoOpNotifier()
	}

	life := lifecycle.New()
	b := &Bot{
		logger:     logger,
		life:       life,
		notifier:   notifier,
		recorder:   sink,
		metrics:    rec,
		cfg:        cfg,
		frames:     signal.NewTimeframeSet(cfg.Signal.Timeframes),
		signals:    signal.NewEngine(cfg.Signal, logger),
		vol:        indicator.NewVolatility(cfg.Safety.VolatilityWindow),
		risk:       risk.NewManager(cfg.Risk, cfg.Paper.InitialBalance, logger),
		safety:     safety.NewSupervisor(cfg.Safety, life, notifier, logger),
		paper:      NewPaperEngine(cfg.Paper.InitialBalance, cfg.Pair, logger),
		intents:    ring.New[TradeIntent](recentCap),
		suppressed: ring.New[SafetyEvent](recentCap),
	}
	rec.SetBalance(cfg.Paper.InitialBalance)
	return b, nil
}

// HandleTick runs one price point through the pipeline: exit
// management on the open position, signal generation, safety
// evaluation and entry gating. It returns the emitted intent, if any.
// Every accepted tick feeds the rolling statistics even when no intent
// results.
func (b *Bot) HandleTick(ctx context.Context, tick PricePoint) (*TradeIntent, error) {
	if err := tick.Validate(); err != nil {
		b.metrics.RecordDroppedTick()
		b.logger.Warn("dropping malformed tick", zap.Error(err))
		return nil, err
	}

	guard, err := b.life.AcquireProcessing()
	if err != nil {
		return nil, err
	}
	defer guard.Release()
	b.life.Heartbeat()

	started := time.Now()
	defer func() {
		b.metrics.RecordTick(time.Since(started).Seconds())
	}()

	b.mu.Lock()
	b.lastPrice = tick.Close
	b.mu.Unlock()

	cfg := b.currentConfig()

	// Rolling statistics see every bar before any decision is made.
	b.risk.ObserveBar(tick.High, tick.Low, tick.Close)
	b.vol.Update(tick.Close)
	pos := b.paper.Position()
	pos.ObservePrice(tick.Low)
	pos.ObservePrice(tick.High)

	exitIntent := b.manageExits(ctx, tick, cfg)

	if err := b.currentFrames().Update(tick.Close); err != nil {
		b.logger.Warn("timeframe update failed", zap.Error(err))
	}
	sig, sigErr := b.signals.Update(tick.Timestamp, tick.Close)
	if sigErr == nil && sig != nil {
		b.recorder.SaveSignal(*sig)
		b.metrics.RecordSignal(sig.Type.String())
	}

	verdict := b.safety.Evaluate(tick.Timestamp, tick.Close, b.risk.Balance())
	b.metrics.RecordVerdict(verdict.Action.String())
	if verdict.Action == safety.Halt {
		b.life.TriggerEmergencyStop()
		b.recordSafetyEvent(SafetyEvent{
			Time:   tick.Timestamp,
			Action: verdict.Action.String(),
			Stage:  "safety",
			Reason: verdict.Reason,
			Price:  tick.Close,
		})
		b.logger.Error("emergency stop", zap.String("reason", verdict.Reason))
		return nil, errs.StateConflict("emergency stop: %s", verdict.Reason)
	}

	if exitIntent != nil {
		return exitIntent, nil
	}
	if sigErr != nil {
		if errs.IsKind(sigErr, errs.KindCalculation) {
			// Still warming up.
			return nil, nil
		}
		return nil, sigErr
	}

	return b.evaluateEntry(ctx, tick, sig, verdict, cfg)
}

// manageExits tightens the trailing stop and closes the open position
// when its stop, take-profit or maximum hold time is hit. It returns
// the exit intent when one was executed. Exits run before safety
// gating: reducing risk is always allowed.
func (b *Bot) manageExits(ctx context.Context, tick PricePoint, cfg *config.Config) *TradeIntent {
	pos := b.paper.Position()
	if !pos.IsOpen() {
		return nil
	}

	size, entry := pos.Get()
	isLong := size > 0
	stop, takeProfit := pos.Protection()

	if next, ok := b.risk.TrailingStop(tick.Close, entry, stop, isLong); ok {
		pos.SetProtection(next, takeProfit)
		b.risk.TightenStop(cfg.Pair, next)
		stop = next
		b.logger.Info("trailing stop tightened",
			zap.Float64("stop", next),
			zap.Float64("price", tick.Close),
		)
	}

	var reason string
	switch {
	case stop > 0 && isLong && tick.Low <= stop:
		reason = "stop loss hit"
	case stop > 0 && !isLong && tick.High >= stop:
		reason = "stop loss hit"
	case takeProfit > 0 && isLong && tick.High >= takeProfit:
		reason = "take profit hit"
	case takeProfit > 0 && !isLong && tick.Low <= takeProfit:
		reason = "take profit hit"
	case b.safety.CheckHold(pos.OpenedAt(), tick.Timestamp):
		reason = "hold time expired"
	}
	if reason == "" {
		return nil
	}

	// Stops and targets fill at their level, hold expiries at the close.
	price := tick.Close
	switch reason {
	case "stop loss hit":
		price = stop
	case "take profit hit":
		price = takeProfit
	}

	side := SideSell
	if !isLong {
		side = SideBuy
	}
	intent := TradeIntent{
		ID:        uuid.New(),
		Timestamp: tick.Timestamp,
		Pair:      cfg.Pair,
		Side:      side,
		Size:      decimal.NewFromFloat(math.Abs(size) * price),
		Price:     decimal.NewFromFloat(price),
		Reason:    reason,
	}

	// The excursion context dies with the position; capture it first.
	mae := pos.MAEPercent()

	fill, err := b.paper.Execute(ctx, intent)
	if err != nil {
		b.logger.Error("exit execution failed", zap.Error(err), zap.String("reason", reason))
		return nil
	}

	realized := fill.Realized
	win := realized > 0
	if notional := entry * math.Abs(size); notional > 0 {
		b.risk.RecordTradeResult(win, realized/notional*100, mae)
	}
	b.risk.ReleasePosition(cfg.Pair)
	if realized < 0 {
		b.safety.RecordLoss(tick.Timestamp, -realized)
	}
	if err := b.risk.SetBalance(b.paper.Balance()); err != nil {
		b.logger.Error("balance sync failed", zap.Error(err))
	}
	b.life.RecordTradeExecuted()
	b.rememberIntent(intent)
	b.recorder.SaveIntent(intent)
	b.recorder.SaveFill(*fill)
	b.metrics.RecordIntent(string(intent.Side))
	b.metrics.SetPositionOpen(false)
	perf := b.paper.Performance(tick.Close)
	b.recorder.SavePerformance(tick.Timestamp, perf)
	b.metrics.SetBalance(perf.Balance)
	b.metrics.SetRealizedPnL(perf.RealizedPnL)

	b.logger.Info("position closed",
		zap.String("reason", reason),
		zap.Float64("price", price),
		zap.Float64("realized", realized),
		zap.Float64("mae_percent", mae),
		zap.Float64("balance", perf.Balance),
	)
	return &intent
}

// evaluateEntry gates a fresh entry on signal quality, timeframe
// confluence, the safety verdict and the risk budget, then executes
// the approved intent.
func (b *Bot) evaluateEntry(ctx context.Context, tick PricePoint, sig *signal.Signal, verdict safety.Verdict, cfg *config.Config) (*TradeIntent, error) {
	if b.paper.Position().IsOpen() {
		return nil, nil
	}
	if !sig.Type.Actionable() || sig.Confidence < cfg.Signal.MinConfidence {
		return nil, nil
	}
	if score, frames := b.currentFrames().Confluence(sig.Type); frames > 0 && score < cfg.Signal.MinConfluence {
		b.suppress(tick, "confluence", fmt.Sprintf("confluence %.2f below %.2f across %d frames", score, cfg.Signal.MinConfluence, frames))
		return nil, nil
	}
	if verdict.Action != safety.Continue {
		b.suppress(tick, "safety", verdict.Reason)
		return nil, nil
	}

	isLong := sig.Type.Direction() > 0
	decision, err := b.risk.EvaluateEntry(risk.EntryRequest{
		Symbol:     cfg.Pair,
		IsLong:     isLong,
		Price:      tick.Close,
		Volatility: b.vol.StdDev(),
		Confidence: sig.Confidence,
	})
	if err != nil {
		if errs.IsKind(err, errs.KindRiskLimit) {
			b.suppress(tick, "risk", err.Error())
			return nil, nil
		}
		return nil, err
	}

	side := SideBuy
	if !isLong {
		side = SideSell
	}
	intent := TradeIntent{
		ID:         uuid.New(),
		Timestamp:  tick.Timestamp,
		Pair:       cfg.Pair,
		Side:       side,
		Size:       decimal.NewFromFloat(decision.Size),
		Price:      decimal.NewFromFloat(tick.Close),
		StopLoss:   decimal.NewFromFloat(decision.Stop),
		TakeProfit: decimal.NewFromFloat(decision.TakeProfit),
		Confidence: sig.Confidence,
		Reason:     fmt.Sprintf("%s signal, confidence %.2f", sig.Type, sig.Confidence),
	}

	fill, err := b.paper.Execute(ctx, intent)
	if err != nil {
		return nil, err
	}

	b.paper.Position().SetProtection(decision.Stop, decision.TakeProfit)
	b.risk.AdmitPosition(cfg.Pair, tick.Close, decision.Stop, decision.Size)
	b.life.RecordTradeExecuted()
	b.rememberIntent(intent)
	b.recorder.SaveIntent(intent)
	b.recorder.SaveFill(*fill)
	b.metrics.RecordIntent(string(intent.Side))
	b.metrics.SetPositionOpen(true)

	b.logger.Info("trade intent emitted",
		zap.String("id", intent.ID.String()),
		zap.String("side", string(side)),
		zap.Float64("size", decision.Size),
		zap.Float64("price", tick.Close),
		zap.Float64("stop", decision.Stop),
		zap.Float64("take_profit", decision.TakeProfit),
		zap.Float64("confidence", sig.Confidence),
	)
	return &intent, nil
}

// suppress records an entry that qualified on signal quality but was
// rejected by a later gate.
func (b *Bot) suppress(tick PricePoint, stage, reason string) {
	ev := SafetyEvent{
		Time:   tick.Timestamp,
		Action: "SUPPRESSED",
		Stage:  stage,
		Reason: reason,
		Price:  tick.Close,
	}
	b.recordSafetyEvent(ev)
	b.metrics.RecordRejection(stage)
	b.logger.Info("entry suppressed", zap.String("stage", stage), zap.String("reason", reason))
}

func (b *Bot) recordSafetyEvent(ev SafetyEvent) {
	b.mu.Lock()
	b.suppressed.Push(ev)
	b.mu.Unlock()
	b.recorder.SaveSafetyEvent(ev)
}

func (b *Bot) rememberIntent(intent TradeIntent) {
	b.mu.Lock()
	b.intents.Push(intent)
	b.mu.Unlock()
}

func (b *Bot) currentConfig() *config.Config {
	b.cfgMu.RLock()
	defer b.cfgMu.RUnlock()
	return b.cfg
}

func (b *Bot) currentFrames() *signal.TimeframeSet {
	b.cfgMu.RLock()
	defer b.cfgMu.RUnlock()
	return b.frames
}

// Start transitions the bot into the running state.
func (b *Bot) Start() error {
	if err := b.life.TryStart(); err != nil {
		return err
	}
	b.logger.Info("bot started", zap.String("pair", b.currentConfig().Pair))
	return nil
}

// Stop halts tick processing.
func (b *Bot) Stop() error {
	if err := b.life.TryStop(); err != nil {
		return err
	}
	b.logger.Info("bot stopped")
	return nil
}

// Pause suspends tick processing without losing state.
func (b *Bot) Pause() error {
	if err := b.life.TryPause(); err != nil {
		return err
	}
	b.logger.Info("bot paused")
	return nil
}

// Resume lifts a pause.
func (b *Bot) Resume() error {
	if err := b.life.TryResume(); err != nil {
		return err
	}
	b.logger.Info("bot resumed")
	return nil
}

// TriggerEmergencyStop forces the kill switch. It never fails.
func (b *Bot) TriggerEmergencyStop() {
	b.life.TriggerEmergencyStop()
	b.logger.Error("emergency stop triggered manually")
	if err := b.notifier.Send("emergency stop triggered manually"); err != nil {
		b.logger.Error("alert delivery failed", zap.Error(err))
	}
}

// ResetEmergencyStop clears the kill switch and the circuit breaker
// once all in-flight operations have drained.
func (b *Bot) ResetEmergencyStop() error {
	if err := b.life.ResetEmergencyStop(); err != nil {
		return err
	}
	b.safety.ResetBreaker()
	b.logger.Info("emergency stop reset")
	return nil
}

// ResetDailyLoss clears the accumulated daily loss.
func (b *Bot) ResetDailyLoss() {
	b.safety.ResetDailyLoss()
	b.logger.Info("daily loss reset")
}

// Sweep runs the periodic staleness check and pauses the bot when the
// feed has gone quiet.
func (b *Bot) Sweep(now time.Time) safety.Verdict {
	verdict := b.safety.Sweep(now)
	if verdict.Action == safety.Pause {
		b.recordSafetyEvent(SafetyEvent{
			Time:   now,
			Action: verdict.Action.String(),
			Stage:  "safety",
			Reason: verdict.Reason,
		})
		if err := b.life.TryPause(); err == nil {
			b.logger.Warn("bot paused by sweep", zap.String("reason", verdict.Reason))
		}
	}
	return verdict
}

// UpdateConfig validates and applies a new configuration. The signal
// engine, risk manager and safety supervisor reconfigure in place; the
// timeframe windows restart. The paper account is untouched.
func (b *Bot) UpdateConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Pair != b.currentConfig().Pair {
		return errs.Validation("pair cannot change at runtime, restart the bot")
	}

	b.cfgMu.Lock()
	b.cfg = cfg
	b.frames = signal.NewTimeframeSet(cfg.Signal.Timeframes)
	b.cfgMu.Unlock()

	b.signals.Reconfigure(cfg.Signal)
	b.risk.Reconfigure(cfg.Risk)
	b.safety.Reconfigure(cfg.Safety)
	b.logger.Info("configuration updated")
	return nil
}

// Config returns the active configuration.
func (b *Bot) Config() *config.Config {
	return b.currentConfig()
}

// SetBalance replaces the simulated account balance and the balance
// used for sizing.
func (b *Bot) SetBalance(balance float64) error {
	if err := b.paper.SetBalance(balance); err != nil {
		return err
	}
	if err := b.risk.SetBalance(balance); err != nil {
		return err
	}
	b.metrics.SetBalance(balance)
	b.logger.Info("balance set", zap.Float64("balance", balance))
	return nil
}

// BotStatus is the top-level view served by the status endpoint.
type BotStatus struct {
	State      string                 `json:"state"`
	Healthy    bool                   `json:"healthy"`
	Pair       string                 `json:"pair"`
	LastPrice  float64                `json:"last_price"`
	Lifecycle  lifecycle.Snapshot     `json:"lifecycle"`
	Position   position.View          `json:"position"`
	Signals    signal.Stats           `json:"signals"`
	Timeframes []signal.TimeframeView `json:"timeframes"`
}

// Status reports the bot's current state.
func (b *Bot) Status() BotStatus {
	snap := b.life.Snapshot()
	b.mu.RLock()
	last := b.lastPrice
	b.mu.RUnlock()

	return BotStatus{
		State:      snap.State(),
		Healthy:    snap.IsHealthy(time.Now()),
		Pair:       b.currentConfig().Pair,
		LastPrice:  last,
		Lifecycle:  snap,
		Position:   b.paper.Position().Snapshot(),
		Signals:    b.signals.Stats(),
		Timeframes: b.currentFrames().Snapshot(),
	}
}

// RecentSignals returns up to n recent signals, oldest first.
func (b *Bot) RecentSignals(n int) []signal.Signal {
	return b.signals.RecentSignals(n)
}

// RecentIntents returns up to n recent intents, oldest first.
func (b *Bot) RecentIntents(n int) []TradeIntent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.intents.Last(n)
}

// RecentSafetyEvents returns up to n recent halts and suppressions,
// oldest first.
func (b *Bot) RecentSafetyEvents(n int) []SafetyEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.suppressed.Last(n)
}

// RiskSnapshot reports the risk manager's sizing state.
func (b *Bot) RiskSnapshot() risk.Snapshot {
	return b.risk.Snapshot()
}

// SafetyStatus reports the safety supervisor's state.
func (b *Bot) SafetyStatus() safety.Status {
	return b.safety.Status(time.Now())
}

// Performance reports the paper account results marked at the last
// seen price.
func (b *Bot) Performance() Performance {
	b.mu.RLock()
	last := b.lastPrice
	b.mu.RUnlock()
	return b.paper.Performance(last)
}

package risk

import (
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/your-org/lro-swing-bot/internal/config"
	"github.com/your-org/lro-swing-bot/internal/errs"
)

// EntryRequest carries everything the manager needs to judge a new
// position.
type EntryRequest struct {
	Symbol     string
	IsLong     bool
	Price      float64
	Volatility float64
	Confidence float64
}

// EntryDecision is an approved entry: how much to buy or sell and
// where the protective levels sit. RiskPercent is a fraction of the
// account balance.
type EntryDecision struct {
	Size        float64 `json:"size"`
	Stop        float64 `json:"stop"`
	TakeProfit  float64 `json:"take_profit"`
	RiskAmount  float64 `json:"risk_amount"`
	RiskPercent float64 `json:"risk_percent"`
	WinProb     float64 `json:"win_prob"`
	AvgWin      float64 `json:"avg_win"`
	AvgLoss     float64 `json:"avg_loss"`
}

// Snapshot is a read-only view of the manager for monitoring.
type Snapshot struct {
	Balance              float64     `json:"balance"`
	Heat                 HeatSummary `json:"heat"`
	SuggestedStopPercent float64     `json:"suggested_stop_percent"`
	WinProb              float64     `json:"win_prob"`
	AvgWin               float64     `json:"avg_win"`
	AvgLoss              float64     `json:"avg_loss"`
	TradesSampled        int         `json:"trades_sampled"`
}

// Manager owns position sizing, stop placement, portfolio heat and
// excursion tracking under one lock. The orchestrator is its only
// writer; status queries read concurrently.
type Manager struct {
	mu     sync.RWMutex
	logger *zap.Logger
	cfg    config.RiskConf

	sizer *KellySizer
	stops *DynamicStop
	heat  *HeatTracker
	mae   *MAETracker

	balance float64
}

// NewManager assembles the risk engine from validated configuration.
func NewManager(cfg config.RiskConf, initialBalance float64, logger *zap.Logger) *Manager {
	return &Manager{
		logger:  logger,
		cfg:     cfg,
		sizer:   NewKellySizer(cfg),
		stops:   NewDynamicStop(cfg),
		heat:    NewHeatTracker(cfg.MaxPortfolioHeat),
		mae:     NewMAETracker(),
		balance: initialBalance,
	}
}

// minViablePosition is the smallest quote-currency position worth
// opening; computed sizes below it are bumped up to it.
const minViablePosition = 10.0

// EvaluateEntry sizes a candidate position and checks it against the
// heat budget. It does not register the position; call AdmitPosition
// once the intent is actually emitted. A negative edge or a heat
// breach fails with a risk-limit error.
//
// Until enough trade results accumulate to trust the adaptive Kelly
// metrics, sizing falls back to a fixed fraction of balance with the
// same volatility damping and caps.
func (m *Manager) EvaluateEntry(req EntryRequest) (EntryDecision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if req.Price <= 0 || math.IsNaN(req.Price) || math.IsInf(req.Price, 0) {
		return EntryDecision{}, errs.Validation("entry price must be positive and finite, got %v", req.Price)
	}
	if req.Volatility < 0 || math.IsNaN(req.Volatility) || math.IsInf(req.Volatility, 0) {
		return EntryDecision{}, errs.Validation("volatility must be a non-negative finite number, got %v", req.Volatility)
	}

	winProb, avgWin, avgLoss := m.sizer.Metrics()

	var size float64
	if m.sizer.SampleCount() < minAdaptiveSamples {
		size = m.bootstrapSize(req.Volatility)
	} else {
		var err error
		size, err = m.sizer.PositionSize(m.balance, winProb, avgWin, avgLoss, req.Volatility, m.heat.TotalHeat())
		if err != nil {
			return EntryDecision{}, err
		}
		if size <= 0 {
			return EntryDecision{}, errs.RiskLimit("position size is zero: negative edge or heat budget exhausted")
		}
	}

	if size < minViablePosition {
		size = minViablePosition
	}
	if size > m.balance*m.cfg.MaxPositionPercent {
		return EntryDecision{}, errs.RiskLimit(
			"minimum viable position %.2f exceeds the position cap for balance %.2f",
			minViablePosition, m.balance,
		)
	}

	stop := m.stops.InitialStop(req.Price, req.IsLong)

	var takeProfit float64
	if req.IsLong {
		takeProfit = req.Price * (1 + m.cfg.TakeProfitPercent/100)
	} else {
		takeProfit = req.Price * (1 - m.cfg.TakeProfitPercent/100)
	}

	riskPercent := RiskFraction(req.Price, stop, size, m.balance)
	if !m.heat.CanAdd(riskPercent) {
		return EntryDecision{}, errs.RiskLimit(
			"portfolio heat limit: %.4f + %.4f exceeds %.4f",
			m.heat.TotalHeat(), riskPercent, m.cfg.MaxPortfolioHeat,
		)
	}

	return EntryDecision{
		Size:        size,
		Stop:        stop,
		TakeProfit:  takeProfit,
		RiskAmount:  riskPercent * m.balance,
		RiskPercent: riskPercent,
		WinProb:     winProb,
		AvgWin:      avgWin,
		AvgLoss:     avgLoss,
	}, nil
}

// bootstrapSize is the cold-start fallback: a fixed fraction of
// balance damped by volatility and capped by the remaining heat
// budget. Callers must hold m.mu.
func (m *Manager) bootstrapSize(volatility float64) float64 {
	fraction := m.cfg.MaxRiskPerTrade / (1 + volatility)
	if remaining := m.cfg.MaxPortfolioHeat - m.heat.TotalHeat(); fraction > remaining {
		fraction = remaining
	}
	fraction = math.Min(math.Max(fraction, 0), m.cfg.MaxPositionPercent)
	return m.balance * fraction
}

// AdmitPosition registers an opened position with the heat tracker.
func (m *Manager) AdmitPosition(symbol string, entry, stop, size float64) PositionRisk {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos := m.heat.Add(symbol, entry, stop, size, m.balance)
	m.logger.Info("position admitted",
		zap.String("symbol", symbol),
		zap.Float64("entry", entry),
		zap.Float64("stop", stop),
		zap.Float64("size", size),
		zap.Float64("risk_percent", pos.RiskPercent),
	)
	return pos
}

// ReleasePosition removes a closed position from the heat tracker and
// reports whether it was tracked.
func (m *Manager) ReleasePosition(symbol string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.heat.Remove(symbol)
}

// TightenStop records a trailing-stop adjustment so the position's
// heat contribution shrinks with it.
func (m *Manager) TightenStop(symbol string, stop float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heat.UpdateStop(symbol, stop, m.balance)
}

// RecordTradeResult feeds one closed trade into the adaptive sizer
// and the excursion tracker.
func (m *Manager) RecordTradeResult(win bool, profitPercent, maePercent float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sizer.RecordTradeResult(win, profitPercent)
	m.mae.Record(maePercent, !win)
}

// ObserveBar feeds one price bar into the ATR behind stop placement.
func (m *Manager) ObserveBar(high, low, close float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops.ObserveBar(high, low, close)
}

// TrailingStop proposes a tightened stop for an open position. See
// DynamicStop.TrailingStop.
func (m *Manager) TrailingStop(current, entry, currentStop float64, isLong bool) (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stops.TrailingStop(current, entry, currentStop, isLong)
}

// SetBalance replaces the account balance used for sizing.
func (m *Manager) SetBalance(balance float64) error {
	if balance <= 0 || math.IsNaN(balance) || math.IsInf(balance, 0) {
		return errs.Validation("balance must be positive and finite, got %v", balance)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balance = balance
	return nil
}

// Balance returns the account balance used for sizing.
func (m *Manager) Balance() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balance
}

// Reconfigure swaps in new risk parameters. The ATR window restarts;
// trade history and open-position heat carry over.
func (m *Manager) Reconfigure(cfg config.RiskConf) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cfg = cfg
	m.sizer.fraction = cfg.KellyFraction
	m.sizer.maxRiskPerTrade = cfg.MaxRiskPerTrade
	m.sizer.heatLimit = cfg.MaxPortfolioHeat
	m.sizer.maxPosition = cfg.MaxPositionPercent
	m.stops = NewDynamicStop(cfg)
	m.heat.maxHeat = cfg.MaxPortfolioHeat
	m.logger.Info("risk manager reconfigured",
		zap.Float64("max_risk_per_trade", cfg.MaxRiskPerTrade),
		zap.Float64("max_portfolio_heat", cfg.MaxPortfolioHeat),
		zap.Float64("kelly_fraction", cfg.KellyFraction),
	)
}

// Snapshot reports current balance, heat and adaptive metrics.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	winProb, avgWin, avgLoss := m.sizer.Metrics()
	return Snapshot{
		Balance:              m.balance,
		Heat:                 m.heat.Summary(),
		SuggestedStopPercent: m.mae.SuggestedStopPercent(),
		WinProb:              winProb,
		AvgWin:               avgWin,
		AvgLoss:              avgLoss,
		TradesSampled:        m.sizer.SampleCount(),
	}
}

// Positions returns a copy of the tracked open positions.
func (m *Manager) Positions() map[string]PositionRisk {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.heat.Positions()
}

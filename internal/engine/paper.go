package engine

import (
	"context"
	"math"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/your-org/lro-swing-bot/internal/errs"
	"github.com/your-org/lro-swing-bot/internal/pnl"
	"github.com/your-org/lro-swing-bot/internal/position"
)

// PaperEngine simulates execution against a virtual account. Intents
// fill immediately at their stated price; realized PnL from closing
// fills settles into the balance and the trade ledger.
type PaperEngine struct {
	mu      sync.Mutex
	logger  *zap.Logger
	balance decimal.Decimal
	pos     *position.Position
	pnl     *pnl.Tracker
}

// NewPaperEngine creates a simulated account holding the given balance.
func NewPaperEngine(initialBalance float64, pair string, logger *zap.Logger) *PaperEngine {
	return &PaperEngine{
		logger:  logger,
		balance: decimal.NewFromFloat(initialBalance),
		pos:     position.New(pair),
		pnl:     pnl.NewTracker(),
	}
}

// Execute fills the intent at its price, nets it into the position and
// settles any realized PnL. A fill that reduces or closes the position
// counts as a completed trade even when it breaks exactly even.
func (e *PaperEngine) Execute(ctx context.Context, intent TradeIntent) (*Fill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if intent.Side != SideBuy && intent.Side != SideSell {
		return nil, errs.Validation("unknown intent side %q", intent.Side)
	}
	if !intent.Size.IsPositive() {
		return nil, errs.Validation("intent size must be positive, got %s", intent.Size)
	}
	if !intent.Price.IsPositive() {
		return nil, errs.Validation("intent price must be positive, got %s", intent.Price)
	}

	price := intent.Price.InexactFloat64()
	units := intent.Size.Div(intent.Price).InexactFloat64()
	if intent.Side == SideSell {
		units = -units
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	before, _ := e.pos.Get()
	realized := e.pos.Update(intent.Timestamp, units, price)
	after, _ := e.pos.Get()

	if reduced(before, after) {
		e.pnl.RecordTrade(realized)
		if realized != 0 {
			e.balance = e.balance.Add(decimal.NewFromFloat(realized))
		}
	}

	e.logger.Info("paper fill",
		zap.String("intent_id", intent.ID.String()),
		zap.String("side", string(intent.Side)),
		zap.Float64("units", units),
		zap.Float64("price", price),
		zap.Float64("realized", realized),
		zap.String("balance", e.balance.StringFixed(2)),
	)

	return &Fill{
		IntentID: intent.ID,
		Time:     intent.Timestamp,
		Pair:     intent.Pair,
		Side:     intent.Side,
		Units:    units,
		Price:    price,
		Realized: realized,
	}, nil
}

// reduced reports whether a fill shrank, closed or flipped the
// position, i.e. whether some previously open size was closed.
func reduced(before, after float64) bool {
	if before == 0 {
		return false
	}
	return after == 0 || (before > 0) != (after > 0) || math.Abs(after) < math.Abs(before)
}

// Balance returns the current account balance.
func (e *PaperEngine) Balance() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balance.InexactFloat64()
}

// SetBalance replaces the account balance.
func (e *PaperEngine) SetBalance(balance float64) error {
	if balance <= 0 || math.IsNaN(balance) || math.IsInf(balance, 0) {
		return errs.Validation("balance must be positive and finite, got %v", balance)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.balance = decimal.NewFromFloat(balance)
	return nil
}

// Position returns the account's netting position. The position locks
// internally; callers may read it concurrently with fills.
func (e *PaperEngine) Position() *position.Position {
	return e.pos
}

// Performance is the account's point-in-time results.
type Performance struct {
	Balance    float64 `json:"balance"`
	Unrealized float64 `json:"unrealized_pnl"`
	pnl.Summary
}

// Performance reports balance, open-position unrealized PnL at the
// given price and the closed-trade summary.
func (e *PaperEngine) Performance(currentPrice float64) Performance {
	e.mu.Lock()
	defer e.mu.Unlock()

	size, entry := e.pos.Get()
	return Performance{
		Balance:    e.balance.InexactFloat64(),
		Unrealized: e.pnl.UnrealizedPnL(size, entry, currentPrice),
		Summary:    e.pnl.Summary(),
	}
}

// Package engine orchestrates the decision pipeline: it feeds price
// points through the signal, risk and safety layers and turns approved
// entries and exits into trade intents executed against a simulated
// account.
package engine

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/your-org/lro-swing-bot/internal/errs"
	"github.com/your-org/lro-swing-bot/internal/signal"
)

// Side is the direction of a trade intent.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TradeIntent is an order the decision core wants executed. Size is a
// quote-currency notional; the execution engine converts it to base
// units at the fill price.
type TradeIntent struct {
	ID         uuid.UUID       `json:"id"`
	Timestamp  time.Time       `json:"timestamp"`
	Pair       string          `json:"pair"`
	Side       Side            `json:"side"`
	Size       decimal.Decimal `json:"size"`
	Price      decimal.Decimal `json:"price"`
	StopLoss   decimal.Decimal `json:"stop_loss"`
	TakeProfit decimal.Decimal `json:"take_profit"`
	Confidence float64         `json:"confidence"`
	Reason     string          `json:"reason"`
}

// Fill is the simulated execution of an intent. Units are base units,
// Realized is the quote-currency PnL of any position the fill closed.
type Fill struct {
	IntentID uuid.UUID `json:"intent_id"`
	Time     time.Time `json:"time"`
	Pair     string    `json:"pair"`
	Side     Side      `json:"side"`
	Units    float64   `json:"units"`
	Price    float64   `json:"price"`
	Realized float64   `json:"realized"`
}

// SafetyEvent records a halted tick or a suppressed entry for the
// audit trail.
type SafetyEvent struct {
	Time   time.Time `json:"time"`
	Action string    `json:"action"`
	Stage  string    `json:"stage"`
	Reason string    `json:"reason"`
	Price  float64   `json:"price"`
}

// AuditSink receives the records the bot persists for later analysis.
// Implementations must not block the tick path.
type AuditSink interface {
	SaveSignal(s signal.Signal)
	SaveIntent(i TradeIntent)
	SaveFill(f Fill)
	SaveSafetyEvent(e SafetyEvent)
	SavePerformance(at time.Time, p Performance)
}

// NopSink discards everything. It stands in for the database writer
// when audit persistence is disabled.
type NopSink struct{}

func (NopSink) SaveSignal(signal.Signal)               {}
func (NopSink) SaveIntent(TradeIntent)                 {}
func (NopSink) SaveFill(Fill)                          {}
func (NopSink) SaveSafetyEvent(SafetyEvent)            {}
func (NopSink) SavePerformance(time.Time, Performance) {}

// PricePoint is one OHLCV bar pushed into the bot.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Validate rejects bars that would corrupt the rolling statistics.
func (p PricePoint) Validate() error {
	if p.Timestamp.IsZero() {
		return errs.Validation("tick timestamp is zero")
	}
	for _, v := range []float64{p.Open, p.High, p.Low, p.Close, p.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errs.Validation("tick contains a non-finite value: %+v", p)
		}
	}
	if p.Close <= 0 || p.High <= 0 || p.Low <= 0 {
		return errs.Validation("tick prices must be positive: high=%g low=%g close=%g", p.High, p.Low, p.Close)
	}
	if p.High < p.Low {
		return errs.Validation("tick high %g below low %g", p.High, p.Low)
	}
	if p.Close < p.Low || p.Close > p.High {
		return errs.Validation("tick close %g outside [%g, %g]", p.Close, p.Low, p.High)
	}
	if p.Open < 0 || p.Volume < 0 {
		return errs.Validation("tick open and volume must not be negative: open=%g volume=%g", p.Open, p.Volume)
	}
	return nil
}

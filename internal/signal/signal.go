// Package signal provides the logic for generating trading signals.
package signal

import "time"

// SignalType represents the kind of trading signal.
type SignalType int

const (
	// Neutral means no actionable signal.
	Neutral SignalType = iota
	// Buy means the oscillator crossed below the oversold threshold.
	Buy
	// StrongBuy means the oscillator crossed below 1.5x the oversold threshold.
	StrongBuy
	// Sell means the oscillator crossed above the overbought threshold.
	Sell
	// StrongSell means the oscillator crossed above 1.5x the overbought threshold.
	StrongSell
)

// String returns a human-readable representation of the signal type.
func (s SignalType) String() string {
	switch s {
	case Buy:
		return "BUY"
	case StrongBuy:
		return "STRONG_BUY"
	case Sell:
		return "SELL"
	case StrongSell:
		return "STRONG_SELL"
	default:
		return "NEUTRAL"
	}
}

// Direction maps the signal type onto a trade direction: +1 for buys,
// -1 for sells, 0 for neutral.
func (s SignalType) Direction() int {
	switch s {
	case Buy, StrongBuy:
		return 1
	case Sell, StrongSell:
		return -1
	default:
		return 0
	}
}

// Actionable reports whether the signal type calls for an entry.
func (s SignalType) Actionable() bool {
	return s != Neutral
}

// Divergence flags a disagreement between price trend and oscillator trend.
type Divergence int

const (
	// DivergenceNone means price and oscillator agree.
	DivergenceNone Divergence = iota
	// DivergenceBullish means price is falling while the oscillator is rising.
	DivergenceBullish
	// DivergenceBearish means price is rising while the oscillator is falling.
	DivergenceBearish
)

// String returns a human-readable representation of the divergence.
func (d Divergence) String() string {
	switch d {
	case DivergenceBullish:
		return "BULLISH"
	case DivergenceBearish:
		return "BEARISH"
	default:
		return "NONE"
	}
}

// Signal is one evaluated oscillator reading together with its
// classification.
type Signal struct {
	Timestamp     time.Time  `json:"timestamp"`
	Price         float64    `json:"price"`
	Value         float64    `json:"value"`
	Deviation     float64    `json:"deviation"`
	FilteredValue float64    `json:"filtered_value"`
	Type          SignalType `json:"type"`
	Confidence    float64    `json:"confidence"`
	Slope         float64    `json:"slope"`
	RSquared      float64    `json:"r_squared"`
	Overbought    float64    `json:"overbought"`
	Oversold      float64    `json:"oversold"`
	Divergence    Divergence `json:"divergence"`
}

// Stats summarizes the signals an engine has generated so far.
type Stats struct {
	TotalGenerated uint64         `json:"total_generated"`
	ByType         map[string]int `json:"by_type"`
	AvgConfidence  float64        `json:"avg_confidence"`
}

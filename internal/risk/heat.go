package risk

import (
	"math"
	"strings"
)

// PositionRisk is the exposure one open position contributes to the
// portfolio. RiskPercent is a fraction of the account balance, not a
// percentage.
type PositionRisk struct {
	Symbol           string  `json:"symbol"`
	Entry            float64 `json:"entry"`
	Stop             float64 `json:"stop"`
	Size             float64 `json:"size"`
	RiskAmount       float64 `json:"risk_amount"`
	RiskPercent      float64 `json:"risk_percent"`
	CorrelationGroup string  `json:"correlation_group"`
}

// HeatSummary is a read-only view of portfolio exposure.
type HeatSummary struct {
	TotalHeat     float64            `json:"total_heat"`
	PositionCount int                `json:"position_count"`
	LargestRisk   float64            `json:"largest_risk"`
	GroupedRisks  map[string]float64 `json:"grouped_risks"`
	HeatAvailable float64            `json:"heat_available"`
}

// HeatTracker aggregates the stop-loss risk of all open positions so
// that total exposure stays under a configured ceiling.
type HeatTracker struct {
	positions map[string]PositionRisk
	maxHeat   float64
}

// NewHeatTracker creates a tracker with the given heat ceiling,
// expressed as a fraction of the account balance.
func NewHeatTracker(maxHeat float64) *HeatTracker {
	return &HeatTracker{
		positions: make(map[string]PositionRisk),
		maxHeat:   maxHeat,
	}
}

// RiskFraction computes the fraction of balance lost if a position of
// the given quote-currency size is stopped out. Zero entry or balance
// yields zero rather than a division blowup.
func RiskFraction(entry, stop, size, balance float64) float64 {
	if entry == 0 || balance == 0 {
		return 0
	}
	riskAmount := math.Abs(entry - stop) * size / entry
	return riskAmount / balance
}

// Add registers a position, replacing any previous entry under the
// same symbol, and returns the stored record.
func (h *HeatTracker) Add(symbol string, entry, stop, size, balance float64) PositionRisk {
	riskAmount := 0.0
	if entry != 0 {
		riskAmount = math.Abs(entry - stop) * size / entry
	}
	riskPercent := 0.0
	if balance != 0 {
		riskPercent = riskAmount / balance
	}

	pos := PositionRisk{
		Symbol:           symbol,
		Entry:            entry,
		Stop:             stop,
		Size:             size,
		RiskAmount:       riskAmount,
		RiskPercent:      riskPercent,
		CorrelationGroup: correlationGroup(symbol),
	}
	h.positions[symbol] = pos
	return pos
}

// UpdateStop tightens the stored stop for a symbol and recomputes its
// risk contribution. Unknown symbols are ignored.
func (h *HeatTracker) UpdateStop(symbol string, stop, balance float64) {
	pos, ok := h.positions[symbol]
	if !ok {
		return
	}
	pos.Stop = stop
	pos.RiskAmount = 0
	if pos.Entry != 0 {
		pos.RiskAmount = math.Abs(pos.Entry - stop) * pos.Size / pos.Entry
	}
	pos.RiskPercent = 0
	if balance != 0 {
		pos.RiskPercent = pos.RiskAmount / balance
	}
	h.positions[symbol] = pos
}

// Remove drops a closed position and reports whether it was present.
func (h *HeatTracker) Remove(symbol string) bool {
	_, ok := h.positions[symbol]
	delete(h.positions, symbol)
	return ok
}

// TotalHeat sums the risk fractions of all open positions.
func (h *HeatTracker) TotalHeat() float64 {
	total := 0.0
	for _, p := range h.positions {
		total += p.RiskPercent
	}
	return total
}

// CanAdd reports whether a position with the given risk fraction fits
// under the heat ceiling.
func (h *HeatTracker) CanAdd(newRisk float64) bool {
	return h.TotalHeat()+newRisk <= h.maxHeat
}

// Positions returns a copy of all tracked positions keyed by symbol.
func (h *HeatTracker) Positions() map[string]PositionRisk {
	out := make(map[string]PositionRisk, len(h.positions))
	for k, v := range h.positions {
		out[k] = v
	}
	return out
}

// Summary reports aggregate exposure for monitoring.
func (h *HeatTracker) Summary() HeatSummary {
	total := 0.0
	largest := 0.0
	grouped := make(map[string]float64)
	for _, p := range h.positions {
		total += p.RiskPercent
		if p.RiskPercent > largest {
			largest = p.RiskPercent
		}
		grouped[p.CorrelationGroup] += p.RiskPercent
	}
	return HeatSummary{
		TotalHeat:     total,
		PositionCount: len(h.positions),
		LargestRisk:   largest,
		GroupedRisks:  grouped,
		HeatAvailable: h.maxHeat - total,
	}
}

// correlationGroup buckets symbols into coarse asset classes. This is
// a substring heuristic standing in for a real return-correlation
// matrix; symbol matching is case-insensitive.
func correlationGroup(symbol string) string {
	s := strings.ToUpper(symbol)
	switch {
	case strings.Contains(s, "BTC") || strings.Contains(s, "ETH"):
		return "CRYPTO_MAJOR"
	case strings.Contains(s, "USD"):
		return "FOREX_USD"
	default:
		return "OTHER"
	}
}

// Package safety enforces the guards that sit between an approved entry
// and an emitted intent: the volatility circuit breaker, the daily loss
// limit, the stale-feed sweep and the hold-time cap. An active emergency
// stop supersedes everything.
package safety

import "time"

// Action is the supervisor's verdict class for the current tick.
type Action int

const (
	// Continue permits the entry.
	Continue Action = iota
	// Pause asks the orchestrator to stop processing until conditions
	// recover, for example a stalled market-data feed.
	Pause
	// Block suppresses the entry while normal processing continues.
	Block
	// Halt demands an emergency stop.
	Halt
)

// String returns the action's stable name.
func (a Action) String() string {
	switch a {
	case Continue:
		return "CONTINUE"
	case Pause:
		return "PAUSE"
	case Block:
		return "BLOCK"
	case Halt:
		return "HALT"
	default:
		return "UNKNOWN"
	}
}

// Verdict is the outcome of a safety evaluation. Reason is empty for
// Continue.
type Verdict struct {
	Action Action
	Reason string
}

// Status is a point-in-time copy of the supervisor state.
type Status struct {
	EmergencyStopped bool      `json:"emergency_stopped"`
	BreakerActive    bool      `json:"breaker_active"`
	BreakerTrips     int       `json:"breaker_trips"`
	LastTrip         time.Time `json:"last_trip"`
	CooldownSeconds  float64   `json:"cooldown_seconds"`
	DailyLoss        float64   `json:"daily_loss"`
	Volatility       float64   `json:"volatility"`
	LastTick         time.Time `json:"last_tick"`
}

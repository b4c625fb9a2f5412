// Package lifecycle coordinates bot control state with lock-free atomics.
// Start, stop, pause, resume and the signal-processing critical section all
// resolve through compare-and-swap, so concurrent callers get exactly one
// winner and losers observe a typed, retryable error instead of a lost
// update.
package lifecycle

import (
	"sync/atomic"
	"time"

	"github.com/your-org/lro-swing-bot/internal/errs"
)

// healthyHeartbeatAge is the maximum heartbeat age for IsHealthy.
const healthyHeartbeatAge = 60 * time.Second

// Controller owns the lifecycle flags and counters.
// All fields are atomics; the Controller itself is never locked.
type Controller struct {
	running    atomic.Bool
	paused     atomic.Bool
	processing atomic.Bool
	emergency  atomic.Bool

	operations       atomic.Uint64 // successful lifecycle transitions
	activeOps        atomic.Int64  // in-flight guarded operations
	signalsProcessed atomic.Uint64
	tradesExecuted   atomic.Uint64
	lastTransition   atomic.Int64 // unix nanos
	lastHeartbeat    atomic.Int64 // unix nanos
}

// New creates a stopped Controller.
func New() *Controller {
	c := &Controller{}
	now := time.Now().UnixNano()
	c.lastTransition.Store(now)
	c.lastHeartbeat.Store(now)
	return c
}

func (c *Controller) touch() {
	c.operations.Add(1)
	c.lastTransition.Store(time.Now().UnixNano())
}

// TryStart transitions Stopped -> Running. Exactly one of any number of
// concurrent callers succeeds.
func (c *Controller) TryStart() error {
	if c.emergency.Load() {
		return errs.StateConflict("cannot start: emergency stop active")
	}
	if !c.running.CompareAndSwap(false, true) {
		return errs.StateConflict("bot is already running")
	}
	// TriggerEmergencyStop sets the emergency flag before clearing the
	// running flag, so a start that raced it must undo its own win here.
	if c.emergency.Load() {
		c.running.Store(false)
		return errs.StateConflict("cannot start: emergency stop active")
	}
	c.paused.Store(false)
	c.touch()
	return nil
}

// TryStop transitions Running -> Stopped.
func (c *Controller) TryStop() error {
	if c.emergency.Load() {
		return errs.StateConflict("cannot stop: emergency stop active, reset it first")
	}
	if !c.running.CompareAndSwap(true, false) {
		return errs.StateConflict("bot is not running")
	}
	c.paused.Store(false)
	c.touch()
	return nil
}

// TryPause transitions Running -> Paused.
func (c *Controller) TryPause() error {
	if c.emergency.Load() {
		return errs.StateConflict("cannot pause: emergency stop active")
	}
	if !c.running.Load() {
		return errs.StateConflict("cannot pause: bot is not running")
	}
	if !c.paused.CompareAndSwap(false, true) {
		return errs.StateConflict("bot is already paused")
	}
	c.touch()
	return nil
}

// TryResume transitions Paused -> Running. Two concurrent resumes cannot
// both succeed.
func (c *Controller) TryResume() error {
	if c.emergency.Load() {
		return errs.StateConflict("cannot resume: emergency stop active")
	}
	if !c.running.Load() {
		return errs.StateConflict("cannot resume: bot is not running")
	}
	if !c.paused.CompareAndSwap(true, false) {
		return errs.StateConflict("bot is not paused")
	}
	c.touch()
	return nil
}

// TriggerEmergencyStop sets the emergency flag and clears running, paused
// and processing. It is callable from any state and never fails.
func (c *Controller) TriggerEmergencyStop() {
	c.emergency.Store(true)
	c.running.Store(false)
	c.paused.Store(false)
	c.processing.Store(false)
	c.touch()
}

// ResetEmergencyStop clears the emergency flag, returning the bot to
// Stopped. It refuses while guarded operations are still in flight.
func (c *Controller) ResetEmergencyStop() error {
	if !c.emergency.Load() {
		return errs.StateConflict("emergency stop is not triggered")
	}
	if c.activeOps.Load() > 0 {
		return errs.Busy("cannot reset emergency stop: %d operations still active", c.activeOps.Load())
	}
	c.emergency.Store(false)
	c.running.Store(false)
	c.paused.Store(false)
	c.touch()
	return nil
}

// AcquireProcessing claims the signal-processing critical section.
// It fails unless the bot is Running, not Paused and not in emergency,
// and at most one holder exists at a time. The returned guard must be
// released on every exit path; defer g.Release() immediately.
func (c *Controller) AcquireProcessing() (*ProcessingGuard, error) {
	if c.emergency.Load() {
		return nil, errs.StateConflict("cannot process signal: emergency stop active")
	}
	if !c.running.Load() {
		return nil, errs.StateConflict("cannot process signal: bot is not running")
	}
	if c.paused.Load() {
		return nil, errs.StateConflict("cannot process signal: bot is paused")
	}
	if !c.processing.CompareAndSwap(false, true) {
		return nil, errs.Busy("signal processing already in progress")
	}
	c.activeOps.Add(1)
	return &ProcessingGuard{c: c}, nil
}

// RecordTradeExecuted bumps the executed-trade counter.
func (c *Controller) RecordTradeExecuted() {
	c.tradesExecuted.Add(1)
}

// Heartbeat records liveness. The tick pipeline calls it on every
// accepted price point.
func (c *Controller) Heartbeat() {
	c.lastHeartbeat.Store(time.Now().UnixNano())
}

// EmergencyStopped reports whether the emergency flag is set.
func (c *Controller) EmergencyStopped() bool {
	return c.emergency.Load()
}

// ActiveOperations returns the number of in-flight guarded operations.
func (c *Controller) ActiveOperations() int64 {
	return c.activeOps.Load()
}

// Snapshot returns a point-in-time copy of all flags and counters.
// Individual loads are atomic; the composite is not taken under a global
// lock and may straddle a concurrent transition.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		Running:          c.running.Load(),
		Paused:           c.paused.Load(),
		Processing:       c.processing.Load(),
		EmergencyStopped: c.emergency.Load(),
		Operations:       c.operations.Load(),
		ActiveOperations: c.activeOps.Load(),
		SignalsProcessed: c.signalsProcessed.Load(),
		TradesExecuted:   c.tradesExecuted.Load(),
		LastTransition:   time.Unix(0, c.lastTransition.Load()),
		LastHeartbeat:    time.Unix(0, c.lastHeartbeat.Load()),
	}
}

// ProcessingGuard represents held ownership of the signal-processing
// critical section. Release is idempotent and must run on every exit
// path, including early error returns.
type ProcessingGuard struct {
	c        *Controller
	released atomic.Bool
}

// Release clears the processing flag, decrements the active-operation
// count and increments the processed-signal counter. Calling it twice is
// harmless.
func (g *ProcessingGuard) Release() {
	if !g.released.CompareAndSwap(false, true) {
		return
	}
	g.c.processing.Store(false)
	g.c.activeOps.Add(-1)
	g.c.signalsProcessed.Add(1)
}

// Snapshot is a read-only copy of the controller state.
type Snapshot struct {
	Running          bool      `json:"running"`
	Paused           bool      `json:"paused"`
	Processing       bool      `json:"processing"`
	EmergencyStopped bool      `json:"emergency_stopped"`
	Operations       uint64    `json:"operations"`
	ActiveOperations int64     `json:"active_operations"`
	SignalsProcessed uint64    `json:"signals_processed"`
	TradesExecuted   uint64    `json:"trades_executed"`
	LastTransition   time.Time `json:"last_transition"`
	LastHeartbeat    time.Time `json:"last_heartbeat"`
}

// State describes the snapshot as a single state name.
func (s Snapshot) State() string {
	switch {
	case s.EmergencyStopped:
		return "Emergency Stopped"
	case s.Processing:
		return "Processing Signal"
	case s.Paused:
		return "Paused"
	case s.Running:
		return "Running"
	default:
		return "Stopped"
	}
}

// IsHealthy reports whether the bot is alive: no emergency stop and a
// heartbeat younger than a minute.
func (s Snapshot) IsHealthy(now time.Time) bool {
	return !s.EmergencyStopped && now.Sub(s.LastHeartbeat) < healthyHeartbeatAge
}

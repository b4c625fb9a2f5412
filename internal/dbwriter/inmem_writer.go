package dbwriter

import (
	"sync"
	"time"

	"github.com/your-org/lro-swing-bot/internal/engine"
	"github.com/your-org/lro-swing-bot/internal/signal"
)

// InMemRecorder is an in-memory Recorder for tests.
type InMemRecorder struct {
	mu           sync.RWMutex
	Signals      []signal.Signal
	Intents      []engine.TradeIntent
	Fills        []engine.Fill
	SafetyEvents []engine.SafetyEvent
	Performances []PerformanceAt
	IsClosed     bool
}

// NewInMemRecorder creates an empty InMemRecorder.
func NewInMemRecorder() *InMemRecorder {
	return &InMemRecorder{
		Signals:      make([]signal.Signal, 0),
		Intents:      make([]engine.TradeIntent, 0),
		Fills:        make([]engine.Fill, 0),
		SafetyEvents: make([]engine.SafetyEvent, 0),
		Performances: make([]PerformanceAt, 0),
	}
}

// SaveSignal appends a signal to the in-memory slice.
func (r *InMemRecorder) SaveSignal(s signal.Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Signals = append(r.Signals, s)
}

// SaveIntent appends a trade intent to the in-memory slice.
func (r *InMemRecorder) SaveIntent(i engine.TradeIntent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Intents = append(r.Intents, i)
}

// SaveFill appends a fill to the in-memory slice.
func (r *InMemRecorder) SaveFill(f engine.Fill) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Fills = append(r.Fills, f)
}

// SaveSafetyEvent appends a safety event to the in-memory slice.
func (r *InMemRecorder) SaveSafetyEvent(e engine.SafetyEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SafetyEvents = append(r.SafetyEvents, e)
}

// SavePerformance appends a performance snapshot to the in-memory slice.
func (r *InMemRecorder) SavePerformance(at time.Time, p engine.Performance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Performances = append(r.Performances, PerformanceAt{At: at, Perf: p})
}

// Close marks the recorder as closed.
func (r *InMemRecorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.IsClosed = true
}

// Clear resets all the in-memory slices.
func (r *InMemRecorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Signals = make([]signal.Signal, 0)
	r.Intents = make([]engine.TradeIntent, 0)
	r.Fills = make([]engine.Fill, 0)
	r.SafetyEvents = make([]engine.SafetyEvent, 0)
	r.Performances = make([]PerformanceAt, 0)
	r.IsClosed = false
}

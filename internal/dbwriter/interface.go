package dbwriter

import (
	"github.com/your-org/lro-swing-bot/internal/engine"
)

// Recorder is an audit sink that owns resources and must be closed on
// shutdown.
type Recorder interface {
	engine.AuditSink
	Close()
}

var (
	_ Recorder = (*Writer)(nil)
	_ Recorder = (*Dummy)(nil)
	_ Recorder = (*InMemRecorder)(nil)
)

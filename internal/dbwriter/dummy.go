package dbwriter

import (
	"time"

	"go.uber.org/zap"

	"github.com/your-org/lro-swing-bot/internal/engine"
	"github.com/your-org/lro-swing-bot/internal/signal"
)

// Dummy is a no-op Recorder for running without a database.
type Dummy struct{}

// NewDummy creates a recorder that discards everything.
func NewDummy(logger *zap.Logger) *Dummy {
	logger.Info("audit recording disabled, using dummy recorder")
	return &Dummy{}
}

func (Dummy) SaveSignal(signal.Signal)                      {}
func (Dummy) SaveIntent(engine.TradeIntent)                 {}
func (Dummy) SaveFill(engine.Fill)                          {}
func (Dummy) SaveSafetyEvent(engine.SafetyEvent)            {}
func (Dummy) SavePerformance(time.Time, engine.Performance) {}
func (Dummy) Close()                                        {}

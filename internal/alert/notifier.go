// Package alert delivers operator notifications raised by the safety
// supervisor and the trading engine.
package alert

import "go.uber.org/zap"

// Notifier is the interface for sending alert messages.
type Notifier interface {
	Send(message string) error
	Close() error
}

// NoOpNotifier is a notifier that does nothing. It is used when alerting is disabled.
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new NoOpNotifier.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// Send does nothing and returns nil. It's a no-op implementation.
func (n *NoOpNotifier) Send(message string) error {
	// This is a no-op, so we don't send any alert and just return nil.
	return nil
}

// Close does nothing and returns nil.
func (n *NoOpNotifier) Close() error {
	return nil
}

// LogNotifier writes alerts to the structured log at warn level. It is
// the default sink when no external channel is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier backed by the given logger.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the message and never fails.
func (l *LogNotifier) Send(message string) error {
	l.logger.Warn("alert", zap.String("message", message))
	return nil
}

// Close does nothing and returns nil.
func (l *LogNotifier) Close() error {
	return nil
}

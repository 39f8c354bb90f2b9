package notify

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"camera-fleet-engine/internal/types"
)

// Notifier delivers alert events to an external dispatcher (email/SMS/push
// gateways, message brokers, websocket fan-out). Delivery is outside the
// engine's scope; a failed handler is logged and never blocks the tick.
type Notifier interface {
	NotifyAlert(ctx context.Context, dev types.Device, alert types.Alert) error
}

// LogNotifier writes alert events to the structured log
type LogNotifier struct {
	logger *logrus.Entry
}

// NewLogNotifier creates a log-based notifier
func NewLogNotifier(logger *logrus.Entry) *LogNotifier {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	return &LogNotifier{logger: logger}
}

// NotifyAlert logs the alert with a level matching its severity
func (n *LogNotifier) NotifyAlert(_ context.Context, dev types.Device, alert types.Alert) error {
	entry := n.logger.WithFields(logrus.Fields{
		"alert_id":  alert.ID,
		"type":      alert.Type,
		"severity":  alert.Severity,
		"device_id": dev.ID,
		"zone":      dev.Zone,
	})

	message := fmt.Sprintf("[%s] %s", alert.Severity, alert.Message)
	switch alert.Severity {
	case types.SeverityCritical:
		entry.Error(message)
	case types.SeverityWarning:
		entry.Warn(message)
	default:
		entry.Info(message)
	}
	return nil
}

// MultiNotifier fans an alert out to several notifiers. Handler failures are
// collected per sink by the caller's logger, not propagated between sinks.
type MultiNotifier struct {
	sinks  []Notifier
	logger *logrus.Entry
}

// NewMultiNotifier creates a fan-out notifier
func NewMultiNotifier(logger *logrus.Entry, sinks ...Notifier) *MultiNotifier {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	return &MultiNotifier{sinks: sinks, logger: logger}
}

// Add registers another sink
func (m *MultiNotifier) Add(sink Notifier) {
	m.sinks = append(m.sinks, sink)
}

// NotifyAlert delivers the alert to every sink
func (m *MultiNotifier) NotifyAlert(ctx context.Context, dev types.Device, alert types.Alert) error {
	for _, sink := range m.sinks {
		if err := sink.NotifyAlert(ctx, dev, alert); err != nil {
			m.logger.WithError(err).WithField("alert_id", alert.ID).Error("Alert notification sink failed")
		}
	}
	return nil
}

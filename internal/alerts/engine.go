package alerts

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"camera-fleet-engine/internal/settings"
	"camera-fleet-engine/internal/types"
)

// Config holds the alert derivation thresholds
type Config struct {
	HighTempThresholdC  float64 `json:"highTempThresholdC"`  // Temperature above which high_temp fires
	StorageThresholdGB  float64 `json:"storageThresholdGB"`  // Absolute storage threshold when no limit is configured
	StorageThresholdPct float64 `json:"storageThresholdPct"` // Percent of the configured storage limit
	RealertAfterAck     bool    `json:"realertAfterAck"`     // Raise again each evaluation once an alert was acknowledged
}

// DefaultConfig returns the default alert engine configuration
func DefaultConfig() Config {
	return Config{
		HighTempThresholdC:  45.0,
		StorageThresholdGB:  80.0,
		StorageThresholdPct: 80.0,
	}
}

// SettingsProvider supplies the live system settings. The engine reads them
// on each evaluation so runtime updates take effect by the next tick.
type SettingsProvider interface {
	Current() settings.SystemSettings
}

// episodeState tracks one condition instance per (device, type). An episode
// starts when a condition first holds and ends when it clears; the default
// policy raises at most one alert per episode, so an acknowledged alert of an
// unchanged persistent condition is not re-raised.
type episodeState struct {
	active  bool
	alerted bool
}

// Engine derives alerts from device state. Evaluation is idempotent with
// respect to already-open unacknowledged alerts of the same type: at most one
// open alert per (device, type) exists at a time, and coalescing keeps the
// first-observed timestamp.
type Engine struct {
	mu       sync.Mutex
	config   Config
	settings SettingsProvider
	episodes map[string]map[types.AlertType]*episodeState
	logger   *logrus.Entry
}

// NewEngine creates a new alert engine
func NewEngine(config Config, provider SettingsProvider, logger *logrus.Entry) *Engine {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	return &Engine{
		config:   config,
		settings: provider,
		episodes: make(map[string]map[types.AlertType]*episodeState),
		logger:   logger,
	}
}

// Evaluate derives the set of new alerts for a device snapshot. Rules are
// checked in a fixed order and are independent of each other; a condition
// already covered by an open alert, or by an acknowledged alert of the same
// episode, produces nothing.
func (e *Engine) Evaluate(dev types.Device) []types.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	sys := e.settings.Current()
	if !sys.AlertsEnabled {
		return nil
	}

	now := time.Now().UTC()
	var raised []types.Alert

	e.evaluateRule(dev, types.AlertDisconnection, dev.Status == types.StatusOffline, now,
		fmt.Sprintf("Device %s is offline", dev.Name), &raised)

	e.evaluateRule(dev, types.AlertError, dev.Status == types.StatusError, now,
		fmt.Sprintf("Device %s reported an error state", dev.Name), &raised)

	motionActive := sys.MotionDetection && dev.Motion
	motionAt := dev.LastMotionAt
	if motionAt.IsZero() {
		motionAt = now
	}
	e.evaluateRule(dev, types.AlertMotion, motionActive, motionAt,
		fmt.Sprintf("Motion detected on %s in %s", dev.Name, dev.Location), &raised)

	e.evaluateRule(dev, types.AlertHighTemp, dev.Telemetry.TemperatureC > e.config.HighTempThresholdC, now,
		fmt.Sprintf("Device %s temperature %.1f°C exceeds %.1f°C", dev.Name, dev.Telemetry.TemperatureC, e.config.HighTempThresholdC), &raised)

	storageActive, storageMsg := e.storageCondition(dev, sys)
	e.evaluateRule(dev, types.AlertStorage, storageActive, now, storageMsg, &raised)

	return raised
}

// storageCondition checks the storage rule in percent of the configured limit
// when one is set, otherwise against the absolute threshold.
func (e *Engine) storageCondition(dev types.Device, sys settings.SystemSettings) (bool, string) {
	used := dev.Telemetry.StorageUsedGB
	if sys.StorageLimitGB > 0 {
		pct := used / sys.StorageLimitGB * 100
		return pct > e.config.StorageThresholdPct,
			fmt.Sprintf("Device %s storage %.1f GB is %.0f%% of the %.0f GB limit", dev.Name, used, pct, sys.StorageLimitGB)
	}
	return used > e.config.StorageThresholdGB,
		fmt.Sprintf("Device %s storage %.1f GB exceeds %.1f GB", dev.Name, used, e.config.StorageThresholdGB)
}

func (e *Engine) evaluateRule(dev types.Device, alertType types.AlertType, active bool, at time.Time, message string, raised *[]types.Alert) {
	st := e.episode(dev.ID, alertType)

	if !active {
		st.active = false
		st.alerted = false
		return
	}

	defer func() { st.active = true }()

	// An open alert of this type coalesces the condition; the existing
	// timestamp is kept to preserve first-observed semantics.
	if dev.UnacknowledgedAlert(alertType) != nil {
		st.alerted = true
		return
	}

	if st.active && st.alerted && !e.config.RealertAfterAck {
		// Same episode, already alerted and since acknowledged.
		return
	}

	alert := types.Alert{
		ID:        uuid.NewString(),
		DeviceID:  dev.ID,
		Type:      alertType,
		Severity:  types.SeverityFor(alertType),
		Timestamp: at,
		Message:   message,
	}
	st.alerted = true
	*raised = append(*raised, alert)

	e.logger.WithFields(logrus.Fields{
		"device_id": dev.ID,
		"type":      alertType,
		"severity":  alert.Severity,
	}).Debug("Alert condition raised")
}

func (e *Engine) episode(deviceID string, alertType types.AlertType) *episodeState {
	byType, ok := e.episodes[deviceID]
	if !ok {
		byType = make(map[types.AlertType]*episodeState)
		e.episodes[deviceID] = byType
	}
	st, ok := byType[alertType]
	if !ok {
		st = &episodeState{}
		byType[alertType] = st
	}
	return st
}

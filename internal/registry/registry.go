package registry

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"camera-fleet-engine/internal/types"
)

// Telemetry bounds enforced on every tick
const (
	MinTemperatureC = 30.0
	MaxTemperatureC = 50.0
)

// AuditSink receives one entry for every accepted or denied command. The
// registry invokes it synchronously while still holding the device lock, so
// per-device audit order matches the order commands were accepted.
type AuditSink interface {
	Record(subjectID string, actor types.Actor, action types.AuditAction, result string, detail string, origin types.Origin)
}

// Audit result constants
const (
	ResultSuccess = "success"
	ResultDenied  = "denied"
)

// deviceEntry wraps a device with its own lock. All mutation of a device goes
// through this lock; unrelated devices never serialize against each other.
type deviceEntry struct {
	mu  sync.Mutex
	dev types.Device
}

// Registry is the single source of truth for device state
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*deviceEntry
	order   []string

	recMu      sync.RWMutex
	recordings map[string]types.Recording

	audit  AuditSink
	logger *logrus.Entry
}

// Option is a functional option for configuring the Registry
type Option func(*Registry)

// WithAuditSink sets the audit sink invoked on every command
func WithAuditSink(sink AuditSink) Option {
	return func(r *Registry) {
		r.audit = sink
	}
}

// WithLogger sets the logger for the registry
func WithLogger(logger *logrus.Entry) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New creates a new device registry
func New(opts ...Option) *Registry {
	r := &Registry{
		devices:    make(map[string]*deviceEntry),
		recordings: make(map[string]types.Recording),
		logger:     logrus.NewEntry(logrus.New()),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) record(subjectID string, actor types.Actor, action types.AuditAction, result, detail string, origin types.Origin) {
	if r.audit == nil {
		return
	}
	r.audit.Record(subjectID, actor, action, result, detail, origin)
}

// Register adds a device with its initial state. It fails with
// DuplicateDeviceError if the id is already registered.
func (r *Registry) Register(dev types.Device, actor types.Actor, origin types.Origin) error {
	if strings.TrimSpace(dev.ID) == "" {
		return &ValidationError{Field: "id", Message: "device id cannot be empty"}
	}
	if strings.TrimSpace(dev.Name) == "" {
		return &ValidationError{Field: "name", Message: "device name cannot be empty"}
	}
	if !types.IsValidZone(dev.Zone) {
		return &ValidationError{Field: "zone", Message: "unknown zone: " + string(dev.Zone)}
	}
	if dev.Status == "" {
		dev.Status = types.StatusOffline
	}
	if !types.IsValidDeviceStatus(dev.Status) {
		return &ValidationError{Field: "status", Message: "unknown status: " + string(dev.Status)}
	}
	if dev.StreamStatus == "" || !dev.CanAcceptCommands() {
		dev.StreamStatus = types.StreamStopped
	}
	if dev.RegisteredAt.IsZero() {
		dev.RegisteredAt = time.Now().UTC()
	}

	r.mu.Lock()
	if _, exists := r.devices[dev.ID]; exists {
		r.mu.Unlock()
		return &DuplicateDeviceError{ID: dev.ID}
	}
	entry := &deviceEntry{dev: dev}
	entry.mu.Lock()
	r.devices[dev.ID] = entry
	r.order = append(r.order, dev.ID)
	r.mu.Unlock()

	// Recorded under the device lock so the registration entry precedes any
	// command racing in on the freshly published device.
	r.record(dev.ID, actor, types.ActionConfigure, ResultSuccess, "device registered", origin)
	entry.mu.Unlock()
	r.logger.WithFields(logrus.Fields{
		"device_id": dev.ID,
		"zone":      dev.Zone,
		"status":    dev.Status,
	}).Info("Device registered")
	return nil
}

// Get returns a snapshot of the device or NotFoundError
func (r *Registry) Get(id string) (types.Device, error) {
	entry, err := r.entry(id)
	if err != nil {
		return types.Device{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.dev.Clone(), nil
}

// SetPlaying starts or stops live playback on a device. The device must be
// online; a denied attempt is still audited, without a false state-change fact.
func (r *Registry) SetPlaying(id string, playing bool, actor types.Actor, origin types.Origin) error {
	detail := "playback stopped"
	if playing {
		detail = "playback started"
	}
	return r.streamCommand(id, "play", types.ActionPlayback, detail, actor, origin, func(dev *types.Device) {
		if playing {
			dev.StreamStatus = types.StreamLive
		} else if dev.StreamStatus == types.StreamLive {
			dev.StreamStatus = types.StreamStopped
		}
	})
}

// SetRecording starts or stops recording on a device. The device must be online.
func (r *Registry) SetRecording(id string, recording bool, actor types.Actor, origin types.Origin) error {
	detail := "recording stopped"
	if recording {
		detail = "recording started"
	}
	return r.streamCommand(id, "record", types.ActionRecord, detail, actor, origin, func(dev *types.Device) {
		if recording {
			dev.StreamStatus = types.StreamRecording
		} else if dev.StreamStatus == types.StreamRecording {
			dev.StreamStatus = types.StreamStopped
		}
	})
}

// Stop halts any live or recording stream on the device
func (r *Registry) Stop(id string, actor types.Actor, origin types.Origin) error {
	return r.streamCommand(id, "stop", types.ActionPlayback, "stream stopped", actor, origin, func(dev *types.Device) {
		dev.StreamStatus = types.StreamStopped
	})
}

// ToggleMotionDetection flips the motion detection capability flag
func (r *Registry) ToggleMotionDetection(id string, actor types.Actor, origin types.Origin) error {
	return r.streamCommand(id, "toggle-motion-detection", types.ActionConfigure, "motion detection toggled", actor, origin, func(dev *types.Device) {
		dev.Capabilities.MotionDetection = !dev.Capabilities.MotionDetection
	})
}

// streamCommand runs a mutation that requires an online device, auditing the
// outcome either way. The audit write happens under the device lock so the
// per-device trail matches acceptance order.
func (r *Registry) streamCommand(id, command string, action types.AuditAction, detail string, actor types.Actor, origin types.Origin, mutate func(*types.Device)) error {
	entry, err := r.entry(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !entry.dev.CanAcceptCommands() {
		r.record(id, actor, action, ResultDenied, "rejected: device "+string(entry.dev.Status), origin)
		return &InvalidStateTransitionError{DeviceID: id, Status: entry.dev.Status, Command: command}
	}

	mutate(&entry.dev)
	r.record(id, actor, action, ResultSuccess, detail, origin)
	return nil
}

// SetStatus transitions the operating status of a device. Leaving the online
// state forces the stream to stopped; a device that is offline or in error
// never streams live.
func (r *Registry) SetStatus(id string, status types.DeviceStatus, actor types.Actor, origin types.Origin) error {
	if !types.IsValidDeviceStatus(status) {
		return &ValidationError{Field: "status", Message: "unknown status: " + string(status)}
	}
	entry, err := r.entry(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.dev.Status = status
	if status != types.StatusOnline {
		entry.dev.StreamStatus = types.StreamStopped
	}
	r.record(id, actor, types.ActionConfigure, ResultSuccess, "status set to "+string(status), origin)
	r.logger.WithFields(logrus.Fields{
		"device_id": id,
		"status":    status,
	}).Info("Device status changed")
	return nil
}

// SetMotion applies a motion detection event from the external detection feed.
// The device must be online with motion detection enabled.
func (r *Registry) SetMotion(id string, motion bool, at time.Time) error {
	entry, err := r.entry(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !entry.dev.CanAcceptCommands() {
		return &InvalidStateTransitionError{DeviceID: id, Status: entry.dev.Status, Command: "motion"}
	}
	if !entry.dev.Capabilities.MotionDetection {
		return &InvalidStateTransitionError{DeviceID: id, Status: entry.dev.Status, Command: "motion"}
	}

	entry.dev.Motion = motion
	if motion {
		if at.IsZero() {
			at = time.Now().UTC()
		}
		entry.dev.LastMotionAt = at
	}
	return nil
}

// ApplyTelemetryTick advances the telemetry of an online device within bounds.
// Offline, error and maintenance devices are untouched: their telemetry is
// frozen, reflecting a monitoring gap rather than a fabricated reading.
// It returns the post-tick snapshot and whether the tick was applied.
func (r *Registry) ApplyTelemetryTick(id string, delta types.TelemetryDelta) (types.Device, bool, error) {
	entry, err := r.entry(id)
	if err != nil {
		return types.Device{}, false, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.dev.Status != types.StatusOnline {
		return entry.dev.Clone(), false, nil
	}

	tele := &entry.dev.Telemetry
	if delta.UptimeHours > 0 {
		tele.UptimeHours += delta.UptimeHours
	}
	tele.TemperatureC = clamp(tele.TemperatureC+delta.TemperatureC, MinTemperatureC, MaxTemperatureC)
	if delta.StorageUsedGB > 0 {
		tele.StorageUsedGB += delta.StorageUsedGB
	}
	if entry.dev.StreamStatus == types.StreamLive {
		tele.Occupancy += delta.Occupancy
		if tele.Occupancy < 0 {
			tele.Occupancy = 0
		}
	}

	return entry.dev.Clone(), true, nil
}

// AppendAlert appends an alert raised by the alert engine to the device's
// ordered alert list. Insertion order is raised order.
func (r *Registry) AppendAlert(id string, alert types.Alert) error {
	entry, err := r.entry(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	alert.DeviceID = id
	entry.dev.Alerts = append(entry.dev.Alerts, alert)
	r.logger.WithFields(logrus.Fields{
		"device_id": id,
		"alert_id":  alert.ID,
		"type":      alert.Type,
		"severity":  alert.Severity,
	}).Warn("Alert raised")
	return nil
}

// AcknowledgeAlert marks an alert acknowledged. Acknowledging an already
// acknowledged alert is a no-op, not an error. The alert stays in the history.
func (r *Registry) AcknowledgeAlert(id, alertID string, actor types.Actor, origin types.Origin) error {
	entry, err := r.entry(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	for i := range entry.dev.Alerts {
		if entry.dev.Alerts[i].ID != alertID {
			continue
		}
		if !entry.dev.Alerts[i].Acknowledged {
			entry.dev.Alerts[i].Acknowledged = true
			r.record(id, actor, types.ActionConfigure, ResultSuccess, "alert acknowledged: "+alertID, origin)
		}
		return nil
	}
	return &NotFoundError{Kind: "alert", ID: alertID}
}

// Snapshot returns a consistent copy of all devices in registration order.
// Each device is copied under its own lock; readers never hold locks for the
// duration of downstream computation.
func (r *Registry) Snapshot() []types.Device {
	r.mu.RLock()
	entries := make([]*deviceEntry, 0, len(r.order))
	for _, id := range r.order {
		entries = append(entries, r.devices[id])
	}
	r.mu.RUnlock()

	devices := make([]types.Device, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		devices = append(devices, entry.dev.Clone())
		entry.mu.Unlock()
	}
	return devices
}

// OnlineIDs returns the ids of all currently online devices
func (r *Registry) OnlineIDs() []string {
	var ids []string
	for _, dev := range r.Snapshot() {
		if dev.Status == types.StatusOnline {
			ids = append(ids, dev.ID)
		}
	}
	return ids
}

// Count returns the number of registered devices
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// RegisterRecording stores capture session metadata produced by the external
// streaming subsystem. The owning device must exist.
func (r *Registry) RegisterRecording(rec types.Recording, actor types.Actor, origin types.Origin) error {
	if strings.TrimSpace(rec.ID) == "" {
		return &ValidationError{Field: "id", Message: "recording id cannot be empty"}
	}
	if rec.DurationSec < 0 {
		return &ValidationError{Field: "durationSec", Message: "duration cannot be negative"}
	}
	if rec.SizeGB < 0 {
		return &ValidationError{Field: "sizeGB", Message: "size cannot be negative"}
	}
	if _, err := r.entry(rec.DeviceID); err != nil {
		return err
	}

	r.recMu.Lock()
	r.recordings[rec.ID] = rec
	r.recMu.Unlock()

	r.record(rec.ID, actor, types.ActionRecord, ResultSuccess, "recording registered for device "+rec.DeviceID, origin)
	return nil
}

// GetRecording returns recording metadata or NotFoundError
func (r *Registry) GetRecording(id string) (types.Recording, error) {
	r.recMu.RLock()
	defer r.recMu.RUnlock()
	rec, ok := r.recordings[id]
	if !ok {
		return types.Recording{}, &NotFoundError{Kind: "recording", ID: id}
	}
	return rec, nil
}

// ListRecordings returns recordings, optionally filtered by device id,
// ordered by start time with id tie-break.
func (r *Registry) ListRecordings(deviceID string) []types.Recording {
	r.recMu.RLock()
	recs := make([]types.Recording, 0, len(r.recordings))
	for _, rec := range r.recordings {
		if deviceID != "" && rec.DeviceID != deviceID {
			continue
		}
		recs = append(recs, rec)
	}
	r.recMu.RUnlock()

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].StartTime.Equal(recs[j].StartTime) {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].StartTime.Before(recs[j].StartTime)
	})
	return recs
}

func (r *Registry) entry(id string) (*deviceEntry, error) {
	r.mu.RLock()
	entry, ok := r.devices[id]
	r.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{Kind: "device", ID: id}
	}
	return entry, nil
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

package fleet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"camera-fleet-engine/internal/alerts"
	"camera-fleet-engine/internal/audit"
	"camera-fleet-engine/internal/config"
	"camera-fleet-engine/internal/logging"
	"camera-fleet-engine/internal/notify"
	"camera-fleet-engine/internal/query"
	"camera-fleet-engine/internal/registry"
	"camera-fleet-engine/internal/settings"
	"camera-fleet-engine/internal/stats"
	"camera-fleet-engine/internal/store"
	"camera-fleet-engine/internal/telemetry"
	"camera-fleet-engine/internal/types"
)

// SystemActor attributes engine-initiated actions (seeding, startup) in the
// audit trail.
var SystemActor = types.Actor{ID: "system", Name: "engine", Role: "system"}

// TickStats reports telemetry loop progress
type TickStats struct {
	Count      int64     `json:"count"`
	Errors     int64     `json:"errors"`
	LastTickAt time.Time `json:"lastTickAt"`
}

// Manager coordinates the engine components: it owns the telemetry loop,
// routes commands to the registry, fans new alerts out to notifiers and
// exposes the read-side views.
type Manager struct {
	mu     sync.RWMutex
	config *config.Config
	logger *logrus.Logger

	registry    *registry.Registry
	settings    *settings.Manager
	source      telemetry.Source
	alertEngine *alerts.Engine
	auditLog    *audit.Logger
	store       store.Store
	notifier    *notify.MultiNotifier
	aggregator  *stats.Aggregator

	isRunning bool
	startTime time.Time
	tickStats TickStats

	ctx       context.Context
	cancel    context.CancelFunc
	stoppedCh chan struct{}
}

// Option is a functional option for configuring the Manager
type Option func(*Manager)

// WithSource replaces the simulated telemetry source with another feed
func WithSource(source telemetry.Source) Option {
	return func(m *Manager) {
		m.source = source
	}
}

// WithStore replaces the persistence store selected by configuration
func WithStore(s store.Store) Option {
	return func(m *Manager) {
		m.store = s
	}
}

// WithNotifier registers an additional alert notification sink
func WithNotifier(sink notify.Notifier) Option {
	return func(m *Manager) {
		m.notifier.Add(sink)
	}
}

// AddNotifier registers an additional alert sink after construction, e.g.
// the API server's websocket hub.
func (m *Manager) AddNotifier(sink notify.Notifier) {
	m.notifier.Add(sink)
}

// NewManager creates a fleet manager with all components wired
func NewManager(cfg *config.Config, opts ...Option) (*Manager, error) {
	logger := logging.Initialize(cfg.LogLevel)
	if cfg.LogFile != "" {
		if err := logging.SetupFileLogging(logger, cfg.LogFile); err != nil {
			return nil, fmt.Errorf("failed to set up file logging: %w", err)
		}
	}

	settingsMgr, err := settings.NewManager(cfg.Settings, logging.NewComponentLogger(logger, "settings"))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		config:    cfg,
		logger:    logger,
		settings:  settingsMgr,
		notifier:  notify.NewMultiNotifier(logging.NewComponentLogger(logger, "notify")),
		ctx:       ctx,
		cancel:    cancel,
		stoppedCh: make(chan struct{}),
	}

	m.notifier.Add(notify.NewLogNotifier(logging.NewComponentLogger(logger, "notify")))

	for _, opt := range opts {
		opt(m)
	}

	if m.store == nil {
		s, err := openStore(cfg.Store)
		if err != nil {
			cancel()
			return nil, err
		}
		m.store = s
	}

	m.auditLog = audit.NewLogger(
		audit.WithStore(m.store),
		audit.WithLogger(logging.NewComponentLogger(logger, "audit")),
	)
	m.registry = registry.New(
		registry.WithAuditSink(m.auditLog),
		registry.WithLogger(logging.NewComponentLogger(logger, "registry")),
	)
	m.alertEngine = alerts.NewEngine(alerts.Config{
		HighTempThresholdC:  cfg.Alerts.HighTempThresholdC,
		StorageThresholdGB:  cfg.Alerts.StorageThresholdGB,
		StorageThresholdPct: cfg.Alerts.StorageThresholdPct,
		RealertAfterAck:     cfg.Alerts.RealertAfterAck,
	}, settingsMgr, logging.NewComponentLogger(logger, "alerts"))
	m.aggregator = stats.NewAggregator(m.registry, settingsMgr)

	if m.source == nil {
		m.source = telemetry.NewSimulator(telemetry.SimulatorConfig{
			MaxTempStepC:     cfg.Simulator.MaxTempStepC,
			MaxOccupancyStep: cfg.Simulator.MaxOccupancyStep,
			StoragePerHourGB: cfg.Simulator.StoragePerHourGB,
			Seed:             cfg.Simulator.Seed,
		})
	}

	if cfg.Redis.Enabled {
		rn, err := notify.NewRedisNotifier(notify.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			Database: cfg.Redis.Database,
			Queue:    cfg.Redis.Queue,
		})
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to initialize redis notifier: %w", err)
		}
		m.notifier.Add(rn)
	}

	return m, nil
}

func openStore(cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.StoreSQLite:
		return store.NewSQLiteStore(cfg.SQLitePath)
	case config.StorePostgres:
		return store.NewPostgresStore(cfg.PostgresDSN)
	default:
		return store.NewMemoryStore(), nil
	}
}

// Start seeds the fleet and launches the telemetry loop
func (m *Manager) Start() error {
	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		return fmt.Errorf("fleet manager is already running")
	}
	m.isRunning = true
	m.startTime = time.Now().UTC()
	m.mu.Unlock()

	if m.config.SeedFile != "" {
		if err := m.seedFleet(m.config.SeedFile); err != nil {
			return err
		}
	}

	go m.tickLoop()

	m.logger.WithFields(logrus.Fields{
		"tick_interval": m.config.TickInterval(),
		"devices":       m.registry.Count(),
	}).Info("Fleet manager started")
	return nil
}

// Stop cancels the telemetry loop and releases resources. In-flight ticks
// finish; no further ticks are scheduled.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return
	}
	m.isRunning = false
	m.mu.Unlock()

	m.cancel()
	<-m.stoppedCh

	if err := m.store.Close(); err != nil {
		m.logger.WithError(err).Warn("Failed to close store")
	}
	m.logger.Info("Fleet manager stopped")
}

func (m *Manager) seedFleet(path string) error {
	devices, err := config.LoadSeedDevices(path)
	if err != nil {
		return err
	}
	for _, dev := range devices {
		if err := m.registry.Register(dev, SystemActor, types.Origin{Device: "seed"}); err != nil {
			return fmt.Errorf("failed to seed device %s: %w", dev.ID, err)
		}
		m.evaluateDevice(dev.ID)
	}
	m.logger.WithField("count", len(devices)).Info("Fleet seeded")
	return nil
}

func (m *Manager) tickLoop() {
	defer close(m.stoppedCh)

	ticker := time.NewTicker(m.config.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Tick(m.config.TickInterval())
		case <-m.ctx.Done():
			return
		}
	}
}

// Tick advances telemetry for all online devices and re-evaluates alerts for
// every device it updated, plus devices whose operating status keeps an
// alert condition pending. A failure on one device is isolated and logged;
// it never aborts the tick for the rest of the fleet.
func (m *Manager) Tick(elapsed time.Duration) {
	var errors int64
	for _, dev := range m.registry.Snapshot() {
		if dev.Status != types.StatusOnline {
			// Telemetry is frozen, but disconnection/error conditions
			// still need an evaluation pass to stay covered.
			m.evaluateDevice(dev.ID)
			continue
		}

		delta := m.source.Next(dev, elapsed)
		updated, applied, err := m.registry.ApplyTelemetryTick(dev.ID, delta)
		if err != nil {
			errors++
			m.logger.WithError(err).WithField("device_id", dev.ID).Error("Telemetry tick failed for device")
			continue
		}
		if applied {
			m.evaluateSnapshot(updated)
		}
	}

	m.mu.Lock()
	m.tickStats.Count++
	m.tickStats.Errors += errors
	m.tickStats.LastTickAt = time.Now().UTC()
	m.mu.Unlock()
}

// evaluateDevice re-reads the device and runs the alert engine on it
func (m *Manager) evaluateDevice(id string) {
	dev, err := m.registry.Get(id)
	if err != nil {
		return
	}
	m.evaluateSnapshot(dev)
}

func (m *Manager) evaluateSnapshot(dev types.Device) {
	for _, alert := range m.alertEngine.Evaluate(dev) {
		if err := m.registry.AppendAlert(dev.ID, alert); err != nil {
			m.logger.WithError(err).WithField("device_id", dev.ID).Error("Failed to append alert")
			continue
		}
		if err := m.store.SaveAlert(m.ctx, alert); err != nil {
			m.logger.WithError(err).WithField("alert_id", alert.ID).Error("Failed to persist alert")
		}
		m.notifier.NotifyAlert(m.ctx, dev, alert)
	}
}

// Register adds a device and runs an initial alert evaluation on it
func (m *Manager) Register(dev types.Device, actor types.Actor, origin types.Origin) error {
	if err := m.registry.Register(dev, actor, origin); err != nil {
		return err
	}
	m.evaluateDevice(dev.ID)
	return nil
}

// GetDevice returns a device snapshot
func (m *Manager) GetDevice(id string) (types.Device, error) {
	return m.registry.Get(id)
}

// SetPlaying starts or stops live playback
func (m *Manager) SetPlaying(id string, playing bool, actor types.Actor, origin types.Origin) error {
	return m.registry.SetPlaying(id, playing, actor, origin)
}

// SetRecording starts or stops recording
func (m *Manager) SetRecording(id string, recording bool, actor types.Actor, origin types.Origin) error {
	return m.registry.SetRecording(id, recording, actor, origin)
}

// StopStream halts any stream on the device
func (m *Manager) StopStream(id string, actor types.Actor, origin types.Origin) error {
	return m.registry.Stop(id, actor, origin)
}

// ToggleMotionDetection flips the motion detection capability
func (m *Manager) ToggleMotionDetection(id string, actor types.Actor, origin types.Origin) error {
	return m.registry.ToggleMotionDetection(id, actor, origin)
}

// SetStatus transitions a device's operating status and re-evaluates its
// alert conditions immediately, so disconnection/error alerts do not wait
// for the next tick.
func (m *Manager) SetStatus(id string, status types.DeviceStatus, actor types.Actor, origin types.Origin) error {
	if err := m.registry.SetStatus(id, status, actor, origin); err != nil {
		return err
	}
	m.evaluateDevice(id)
	return nil
}

// SetMotion applies an external motion detection event and re-evaluates
func (m *Manager) SetMotion(id string, motion bool, at time.Time) error {
	if err := m.registry.SetMotion(id, motion, at); err != nil {
		return err
	}
	m.evaluateDevice(id)
	return nil
}

// AcknowledgeAlert marks an alert acknowledged, idempotently
func (m *Manager) AcknowledgeAlert(id, alertID string, actor types.Actor, origin types.Origin) error {
	if err := m.registry.AcknowledgeAlert(id, alertID, actor, origin); err != nil {
		return err
	}
	if err := m.store.MarkAlertAcknowledged(m.ctx, alertID); err != nil {
		m.logger.WithError(err).WithField("alert_id", alertID).Error("Failed to persist acknowledgement")
	}
	return nil
}

// RegisterRecording stores capture session metadata
func (m *Manager) RegisterRecording(rec types.Recording, actor types.Actor, origin types.Origin) error {
	return m.registry.RegisterRecording(rec, actor, origin)
}

// GetRecording returns recording metadata
func (m *Manager) GetRecording(id string) (types.Recording, error) {
	return m.registry.GetRecording(id)
}

// ListRecordings lists recordings, optionally for one device
func (m *Manager) ListRecordings(deviceID string) []types.Recording {
	return m.registry.ListRecordings(deviceID)
}

// Snapshot returns a consistent copy of the fleet
func (m *Manager) Snapshot() []types.Device {
	return m.registry.Snapshot()
}

// Statistics computes the current fleet rollup
func (m *Manager) Statistics() stats.FleetStatistics {
	return m.aggregator.Compute()
}

// AuditTrail returns one page of the audit trail for a device or recording
func (m *Manager) AuditTrail(subjectID string, page query.Page) ([]types.AccessLogEntry, int) {
	return query.PaginateAudit(m.auditLog.Entries(subjectID), page)
}

// Settings returns the current system settings
func (m *Manager) Settings() settings.SystemSettings {
	return m.settings.Current()
}

// UpdateSettings applies a partial settings update and audits it. The next
// telemetry evaluation observes the new values.
func (m *Manager) UpdateSettings(req settings.UpdateRequest, actor types.Actor, origin types.Origin) (settings.SystemSettings, error) {
	next, changed, err := m.settings.Update(req)
	if err != nil {
		return next, &registry.ValidationError{Field: "settings", Message: err.Error()}
	}
	if len(changed) > 0 {
		m.auditLog.Record("system", actor, types.ActionConfigure, registry.ResultSuccess,
			fmt.Sprintf("settings updated: %v", changed), origin)
	}
	return next, nil
}

// Logger returns the engine's base logger
func (m *Manager) Logger() *logrus.Logger {
	return m.logger
}

// Ticks reports telemetry loop progress
func (m *Manager) Ticks() TickStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tickStats
}

// Uptime reports how long the manager has been running
func (m *Manager) Uptime() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.startTime.IsZero() {
		return 0
	}
	return time.Since(m.startTime)
}

// DeviceCount returns the number of registered devices
func (m *Manager) DeviceCount() int {
	return m.registry.Count()
}

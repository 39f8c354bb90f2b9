package settings

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// BackupFrequency values recognized by the engine
const (
	BackupHourly = "hourly"
	BackupDaily  = "daily"
	BackupWeekly = "weekly"
)

// SystemSettings is the process-wide configuration read by the telemetry
// simulator and the alert engine on each evaluation. It is initialized once
// at engine start and may be updated at runtime by an operator command.
type SystemSettings struct {
	AutoRecording          bool    `json:"autoRecording" mapstructure:"auto_recording"`
	MotionDetection        bool    `json:"motionDetection" mapstructure:"motion_detection"`
	ContinuousRecording    bool    `json:"continuousRecording" mapstructure:"continuous_recording"`
	RecordingRetentionDays int     `json:"recordingRetentionDays" mapstructure:"recording_retention_days"`
	AlertsEnabled          bool    `json:"alertsEnabled" mapstructure:"alerts_enabled"`
	StorageLimitGB         float64 `json:"storageLimitGB" mapstructure:"storage_limit_gb"`
	BackupFrequency        string  `json:"backupFrequency" mapstructure:"backup_frequency"`
	VideoQuality           string  `json:"videoQuality" mapstructure:"video_quality"`
	StreamBitrate          int     `json:"streamBitrate" mapstructure:"stream_bitrate"`

	// AI feature toggles
	FaceRecognition         bool `json:"faceRecognition" mapstructure:"face_recognition"`
	LicensePlateRecognition bool `json:"licensePlateRecognition" mapstructure:"license_plate_recognition"`
	ObjectTracking          bool `json:"objectTracking" mapstructure:"object_tracking"`
	CrowdDetection          bool `json:"crowdDetection" mapstructure:"crowd_detection"`
	HeatmapAnalytics        bool `json:"heatmapAnalytics" mapstructure:"heatmap_analytics"`
}

// Defaults returns the settings used when no external config provides them
func Defaults() SystemSettings {
	return SystemSettings{
		AutoRecording:          false,
		MotionDetection:        true,
		ContinuousRecording:    false,
		RecordingRetentionDays: 30,
		AlertsEnabled:          true,
		StorageLimitGB:         500,
		BackupFrequency:        BackupDaily,
		VideoQuality:           "1080p",
		StreamBitrate:          4096,
	}
}

// Validate validates the settings
func (s SystemSettings) Validate() error {
	switch s.BackupFrequency {
	case BackupHourly, BackupDaily, BackupWeekly:
	default:
		return fmt.Errorf("backup_frequency must be one of: hourly, daily, weekly")
	}
	if s.RecordingRetentionDays <= 0 {
		return fmt.Errorf("recording_retention_days must be positive")
	}
	if s.StorageLimitGB < 0 {
		return fmt.Errorf("storage_limit_gb cannot be negative")
	}
	if s.StreamBitrate <= 0 {
		return fmt.Errorf("stream_bitrate must be positive")
	}
	return nil
}

// UpdateRequest carries a partial settings update. Nil fields are unchanged.
type UpdateRequest struct {
	AutoRecording           *bool    `json:"autoRecording,omitempty"`
	MotionDetection         *bool    `json:"motionDetection,omitempty"`
	ContinuousRecording     *bool    `json:"continuousRecording,omitempty"`
	RecordingRetentionDays  *int     `json:"recordingRetentionDays,omitempty"`
	AlertsEnabled           *bool    `json:"alertsEnabled,omitempty"`
	StorageLimitGB          *float64 `json:"storageLimitGB,omitempty"`
	BackupFrequency         *string  `json:"backupFrequency,omitempty"`
	VideoQuality            *string  `json:"videoQuality,omitempty"`
	StreamBitrate           *int     `json:"streamBitrate,omitempty"`
	FaceRecognition         *bool    `json:"faceRecognition,omitempty"`
	LicensePlateRecognition *bool    `json:"licensePlateRecognition,omitempty"`
	ObjectTracking          *bool    `json:"objectTracking,omitempty"`
	CrowdDetection          *bool    `json:"crowdDetection,omitempty"`
	HeatmapAnalytics        *bool    `json:"heatmapAnalytics,omitempty"`
}

// Manager holds the live settings and serializes runtime updates. Readers
// call Current on each evaluation rather than caching, so updates take
// effect by the next tick.
type Manager struct {
	mu       sync.RWMutex
	settings SystemSettings
	logger   *logrus.Entry
}

// NewManager creates a settings manager seeded with the given settings
func NewManager(initial SystemSettings, logger *logrus.Entry) (*Manager, error) {
	if err := initial.Validate(); err != nil {
		return nil, fmt.Errorf("invalid initial settings: %w", err)
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	return &Manager{settings: initial, logger: logger}, nil
}

// Current returns a copy of the live settings
func (m *Manager) Current() SystemSettings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// Update applies a partial update and returns the resulting settings along
// with the names of the fields that changed. An update that fails validation
// leaves the live settings untouched.
func (m *Manager) Update(req UpdateRequest) (SystemSettings, []string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.settings
	var changed []string

	if req.AutoRecording != nil && *req.AutoRecording != next.AutoRecording {
		next.AutoRecording = *req.AutoRecording
		changed = append(changed, "autoRecording")
	}
	if req.MotionDetection != nil && *req.MotionDetection != next.MotionDetection {
		next.MotionDetection = *req.MotionDetection
		changed = append(changed, "motionDetection")
	}
	if req.ContinuousRecording != nil && *req.ContinuousRecording != next.ContinuousRecording {
		next.ContinuousRecording = *req.ContinuousRecording
		changed = append(changed, "continuousRecording")
	}
	if req.RecordingRetentionDays != nil && *req.RecordingRetentionDays != next.RecordingRetentionDays {
		next.RecordingRetentionDays = *req.RecordingRetentionDays
		changed = append(changed, "recordingRetentionDays")
	}
	if req.AlertsEnabled != nil && *req.AlertsEnabled != next.AlertsEnabled {
		next.AlertsEnabled = *req.AlertsEnabled
		changed = append(changed, "alertsEnabled")
	}
	if req.StorageLimitGB != nil && *req.StorageLimitGB != next.StorageLimitGB {
		next.StorageLimitGB = *req.StorageLimitGB
		changed = append(changed, "storageLimitGB")
	}
	if req.BackupFrequency != nil && *req.BackupFrequency != next.BackupFrequency {
		next.BackupFrequency = *req.BackupFrequency
		changed = append(changed, "backupFrequency")
	}
	if req.VideoQuality != nil && *req.VideoQuality != next.VideoQuality {
		next.VideoQuality = *req.VideoQuality
		changed = append(changed, "videoQuality")
	}
	if req.StreamBitrate != nil && *req.StreamBitrate != next.StreamBitrate {
		next.StreamBitrate = *req.StreamBitrate
		changed = append(changed, "streamBitrate")
	}
	if req.FaceRecognition != nil && *req.FaceRecognition != next.FaceRecognition {
		next.FaceRecognition = *req.FaceRecognition
		changed = append(changed, "faceRecognition")
	}
	if req.LicensePlateRecognition != nil && *req.LicensePlateRecognition != next.LicensePlateRecognition {
		next.LicensePlateRecognition = *req.LicensePlateRecognition
		changed = append(changed, "licensePlateRecognition")
	}
	if req.ObjectTracking != nil && *req.ObjectTracking != next.ObjectTracking {
		next.ObjectTracking = *req.ObjectTracking
		changed = append(changed, "objectTracking")
	}
	if req.CrowdDetection != nil && *req.CrowdDetection != next.CrowdDetection {
		next.CrowdDetection = *req.CrowdDetection
		changed = append(changed, "crowdDetection")
	}
	if req.HeatmapAnalytics != nil && *req.HeatmapAnalytics != next.HeatmapAnalytics {
		next.HeatmapAnalytics = *req.HeatmapAnalytics
		changed = append(changed, "heatmapAnalytics")
	}

	if len(changed) == 0 {
		return m.settings, nil, nil
	}

	if err := next.Validate(); err != nil {
		return m.settings, nil, fmt.Errorf("invalid settings update: %w", err)
	}

	m.settings = next
	m.logger.WithField("updated_fields", changed).Info("System settings updated")
	return next, changed, nil
}

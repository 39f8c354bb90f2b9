package api

import (
	"time"

	"camera-fleet-engine/internal/stats"
	"camera-fleet-engine/internal/types"
)

// ErrorResponse is the JSON error envelope
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// RegisterDeviceRequest is the payload for device registration
type RegisterDeviceRequest struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Location     string             `json:"location"`
	Zone         types.Zone         `json:"zone"`
	Status       types.DeviceStatus `json:"status,omitempty"`
	Capabilities types.Capabilities `json:"capabilities"`
}

// EnabledRequest toggles a boolean stream command
type EnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// StatusRequest transitions a device's operating status
type StatusRequest struct {
	Status types.DeviceStatus `json:"status"`
}

// MotionRequest carries an external motion detection event
type MotionRequest struct {
	Motion     bool      `json:"motion"`
	DetectedAt time.Time `json:"detectedAt,omitempty"`
}

// RecordingRequest is the payload posted by the capture subsystem
type RecordingRequest struct {
	ID          string    `json:"id"`
	DeviceID    string    `json:"deviceId"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	DurationSec float64   `json:"durationSec"`
	SizeGB      float64   `json:"sizeGB"`
	Quality     string    `json:"quality"`
	MotionCount int       `json:"motionCount"`
}

// DeviceListResponse wraps a filtered device listing
type DeviceListResponse struct {
	Devices []types.Device `json:"devices"`
	Total   int            `json:"total"`
}

// AlertListResponse wraps a filtered alert listing
type AlertListResponse struct {
	Alerts []types.Alert `json:"alerts"`
	Total  int           `json:"total"`
}

// AuditResponse wraps one page of an audit trail
type AuditResponse struct {
	Entries []types.AccessLogEntry `json:"entries"`
	Total   int                    `json:"total"`
	Page    int                    `json:"page"`
	PerPage int                    `json:"perPage"`
}

// HealthResponse reports engine liveness
type HealthResponse struct {
	Status     string                `json:"status"`
	UptimeSec  float64               `json:"uptimeSec"`
	Devices    int                   `json:"devices"`
	Ticks      fleetTickStats        `json:"ticks"`
	Statistics stats.FleetStatistics `json:"statistics"`
}

type fleetTickStats struct {
	Count      int64     `json:"count"`
	Errors     int64     `json:"errors"`
	LastTickAt time.Time `json:"lastTickAt"`
}

package types

import (
	"time"
)

// DeviceStatus represents the operating status of a monitored device
type DeviceStatus string

const (
	StatusOnline      DeviceStatus = "online"
	StatusOffline     DeviceStatus = "offline"
	StatusError       DeviceStatus = "error"
	StatusMaintenance DeviceStatus = "maintenance"
)

// IsValidDeviceStatus checks if the provided operating status is valid
func IsValidDeviceStatus(status DeviceStatus) bool {
	switch status {
	case StatusOnline, StatusOffline, StatusError, StatusMaintenance:
		return true
	default:
		return false
	}
}

// StreamStatus represents the current stream state of a device
type StreamStatus string

const (
	StreamLive      StreamStatus = "live"
	StreamRecording StreamStatus = "recording"
	StreamStopped   StreamStatus = "stopped"
	StreamBuffering StreamStatus = "buffering"
)

// Zone represents the physical zone a device is installed in
type Zone string

const (
	ZoneEntrance   Zone = "entrance"
	ZoneOffice     Zone = "office"
	ZoneStudio     Zone = "studio"
	ZoneParking    Zone = "parking"
	ZoneWarehouse  Zone = "warehouse"
	ZoneServerRoom Zone = "server_room"
	ZoneReception  Zone = "reception"
	ZoneCorridor   Zone = "corridor"
)

// IsValidZone checks if the provided zone is valid
func IsValidZone(zone Zone) bool {
	switch zone {
	case ZoneEntrance, ZoneOffice, ZoneStudio, ZoneParking,
		ZoneWarehouse, ZoneServerRoom, ZoneReception, ZoneCorridor:
		return true
	default:
		return false
	}
}

// Telemetry holds the time-varying metrics of a device. Values are advanced
// only while the device is online; off fleet devices keep their last reading.
type Telemetry struct {
	TemperatureC  float64 `json:"temperatureC"`
	UptimeHours   float64 `json:"uptimeHours"`
	StorageUsedGB float64 `json:"storageUsedGB"`
	Occupancy     int     `json:"occupancy"`
}

// TelemetryDelta is the per-tick advancement produced by a telemetry source.
// Uptime and storage deltas are non-negative; temperature and occupancy
// deltas may be negative. The registry clamps the resulting values.
type TelemetryDelta struct {
	UptimeHours   float64
	TemperatureC  float64
	StorageUsedGB float64
	Occupancy     int
}

// Capabilities holds the feature flags of a device
type Capabilities struct {
	MotionDetection bool `json:"motionDetection"`
	Infrared        bool `json:"infrared"`
	Audio           bool `json:"audio"`
	PanTiltZoom     bool `json:"panTiltZoom"`
}

// Device represents a monitored camera unit tracked by the engine
type Device struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Location     string       `json:"location"`
	Zone         Zone         `json:"zone"`
	Status       DeviceStatus `json:"status"`
	StreamStatus StreamStatus `json:"streamStatus"`
	Capabilities Capabilities `json:"capabilities"`
	Telemetry    Telemetry    `json:"telemetry"`
	Motion       bool         `json:"motion"`
	LastMotionAt time.Time    `json:"lastMotionAt,omitempty"`
	RegisteredAt time.Time    `json:"registeredAt"`
	Alerts       []Alert      `json:"alerts"`
}

// CanAcceptCommands reports whether the device accepts stream commands in its
// current operating status.
func (d *Device) CanAcceptCommands() bool {
	return d.Status == StatusOnline
}

// UnacknowledgedAlert returns the open alert of the given type, if any.
// At most one unacknowledged alert per type exists at a time.
func (d *Device) UnacknowledgedAlert(alertType AlertType) *Alert {
	for i := range d.Alerts {
		if d.Alerts[i].Type == alertType && !d.Alerts[i].Acknowledged {
			return &d.Alerts[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the device, including its alert list
func (d *Device) Clone() Device {
	cp := *d
	cp.Alerts = make([]Alert, len(d.Alerts))
	copy(cp.Alerts, d.Alerts)
	return cp
}

package types

import (
	"time"
)

// AlertType represents the kind of condition an alert was derived from
type AlertType string

const (
	AlertMotion        AlertType = "motion"
	AlertDisconnection AlertType = "disconnection"
	AlertError         AlertType = "error"
	AlertStorage       AlertType = "storage"
	AlertTampering     AlertType = "tampering"
	AlertHighTemp      AlertType = "high_temp"
	AlertLowQuality    AlertType = "low_quality"
)

// IsValidAlertType checks if the provided alert type is valid
func IsValidAlertType(alertType AlertType) bool {
	switch alertType {
	case AlertMotion, AlertDisconnection, AlertError, AlertStorage,
		AlertTampering, AlertHighTemp, AlertLowQuality:
		return true
	default:
		return false
	}
}

// AlertSeverity represents the severity level of an alert
type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "critical"
	SeverityWarning  AlertSeverity = "warning"
	SeverityInfo     AlertSeverity = "info"
)

// SeverityFor returns the severity for an alert type. Severity is a function
// of the type: disconnection, error and tampering are critical; motion,
// high_temp, storage and low_quality are warnings.
func SeverityFor(alertType AlertType) AlertSeverity {
	switch alertType {
	case AlertDisconnection, AlertError, AlertTampering:
		return SeverityCritical
	case AlertMotion, AlertHighTemp, AlertStorage, AlertLowQuality:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// Alert represents a derived health, security or capacity event on a device
type Alert struct {
	ID           string        `json:"id"`
	DeviceID     string        `json:"deviceId"`
	Type         AlertType     `json:"type"`
	Severity     AlertSeverity `json:"severity"`
	Timestamp    time.Time     `json:"timestamp"`
	Acknowledged bool          `json:"acknowledged"`
	Message      string        `json:"message"`
}

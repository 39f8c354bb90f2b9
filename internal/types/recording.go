package types

import (
	"time"
)

// AuditAction represents the kind of user action recorded in an audit entry
type AuditAction string

const (
	ActionView      AuditAction = "view"
	ActionDownload  AuditAction = "download"
	ActionExport    AuditAction = "export"
	ActionDelete    AuditAction = "delete"
	ActionConfigure AuditAction = "configure"
	ActionPlayback  AuditAction = "playback"
	ActionRecord    AuditAction = "record"
)

// IsValidAuditAction checks if the provided audit action is valid
func IsValidAuditAction(action AuditAction) bool {
	switch action {
	case ActionView, ActionDownload, ActionExport, ActionDelete,
		ActionConfigure, ActionPlayback, ActionRecord:
		return true
	default:
		return false
	}
}

// Actor identifies who performed an audited action
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// AnonymousActor is the sentinel identity used when a command arrives without
// attribution. An audit fact is never dropped because the caller is unknown.
var AnonymousActor = Actor{ID: "anonymous", Name: "anonymous"}

// Origin carries the source metadata of a command for audit attribution
type Origin struct {
	IP     string `json:"ip,omitempty"`
	Device string `json:"device,omitempty"`
}

// AccessLogEntry is an immutable audit fact. Entries are append-only; once
// written they are never mutated or removed.
type AccessLogEntry struct {
	ID        string      `json:"id"`
	SubjectID string      `json:"subjectId"`
	Actor     Actor       `json:"actor"`
	Action    AuditAction `json:"action"`
	Result    string      `json:"result"` // "success" or "denied"
	Timestamp time.Time   `json:"timestamp"`
	SourceIP  string      `json:"sourceIp,omitempty"`
	SourceDev string      `json:"sourceDevice,omitempty"`
	Detail    string      `json:"detail,omitempty"`
}

// Recording holds metadata for a capture session. The capture itself is owned
// by the external streaming subsystem; the engine only tracks the metadata and
// the access log.
type Recording struct {
	ID          string    `json:"id"`
	DeviceID    string    `json:"deviceId"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	DurationSec float64   `json:"durationSec"`
	SizeGB      float64   `json:"sizeGB"`
	Quality     string    `json:"quality"`
	MotionCount int       `json:"motionCount"`
}

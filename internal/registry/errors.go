package registry

import (
	"fmt"

	"camera-fleet-engine/internal/types"
)

// NotFoundError indicates an unknown device, alert or recording id
type NotFoundError struct {
	Kind string // "device", "alert", "recording"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// DuplicateDeviceError indicates an attempt to register an id that exists
type DuplicateDeviceError struct {
	ID string
}

func (e *DuplicateDeviceError) Error() string {
	return fmt.Sprintf("device already registered: %s", e.ID)
}

// InvalidStateTransitionError indicates a command incompatible with the
// device's current operating status
type InvalidStateTransitionError struct {
	DeviceID string
	Status   types.DeviceStatus
	Command  string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("command %q rejected: device %s is %s", e.Command, e.DeviceID, e.Status)
}

// ValidationError indicates malformed input to a registry operation
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}

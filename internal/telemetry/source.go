package telemetry

import (
	"time"

	"camera-fleet-engine/internal/types"
)

// Source produces per-tick telemetry advancement for a device. The simulator
// implements it with a bounded random walk; a production deployment can plug
// in a real sensor feed without touching the alert engine.
type Source interface {
	// Next returns the telemetry delta for one device covering the elapsed
	// interval since the previous tick.
	Next(dev types.Device, elapsed time.Duration) types.TelemetryDelta
}

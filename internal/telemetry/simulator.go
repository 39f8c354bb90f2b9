package telemetry

import (
	"math/rand"
	"sync"
	"time"

	"camera-fleet-engine/internal/types"
)

// SimulatorConfig holds configuration for the simulated telemetry source
type SimulatorConfig struct {
	MaxTempStepC     float64 `json:"maxTempStepC"`     // Largest temperature move per tick
	MaxOccupancyStep int     `json:"maxOccupancyStep"` // Largest occupancy move per tick
	StoragePerHourGB float64 `json:"storagePerHourGB"` // Storage growth rate while online
	Seed             int64   `json:"seed"`             // 0 means time-based seeding
}

// DefaultSimulatorConfig returns the default simulator configuration
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		MaxTempStepC:     1.5,
		MaxOccupancyStep: 2,
		StoragePerHourGB: 0.4,
	}
}

// Simulator is a Source producing realistic-looking metrics: temperature
// follows a bounded random walk, uptime tracks wall time, storage grows at a
// steady rate and occupancy takes small random steps.
type Simulator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	config SimulatorConfig
}

// NewSimulator creates a new simulated telemetry source
func NewSimulator(config SimulatorConfig) *Simulator {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{
		rng:    rand.New(rand.NewSource(seed)),
		config: config,
	}
}

// Next returns the simulated delta for one device over the elapsed interval.
// The returned occupancy step is advisory; the registry only applies it while
// the device is actively playing.
func (s *Simulator) Next(dev types.Device, elapsed time.Duration) types.TelemetryDelta {
	s.mu.Lock()
	defer s.mu.Unlock()

	hours := elapsed.Hours()
	occupancy := 0
	if s.config.MaxOccupancyStep > 0 {
		occupancy = s.rng.Intn(2*s.config.MaxOccupancyStep+1) - s.config.MaxOccupancyStep
	}
	return types.TelemetryDelta{
		UptimeHours:   hours,
		TemperatureC:  (s.rng.Float64()*2 - 1) * s.config.MaxTempStepC,
		StorageUsedGB: hours * s.config.StoragePerHourGB,
		Occupancy:     occupancy,
	}
}

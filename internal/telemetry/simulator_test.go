package telemetry

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"camera-fleet-engine/internal/types"
)

func TestSimulatorDeltaBounds(t *testing.T) {
	cfg := DefaultSimulatorConfig()
	cfg.Seed = 7
	sim := NewSimulator(cfg)

	dev := types.Device{ID: "cam-1", Status: types.StatusOnline}
	for i := 0; i < 500; i++ {
		delta := sim.Next(dev, 5*time.Second)
		assert.LessOrEqual(t, math.Abs(delta.TemperatureC), cfg.MaxTempStepC)
		assert.LessOrEqual(t, delta.Occupancy, cfg.MaxOccupancyStep)
		assert.GreaterOrEqual(t, delta.Occupancy, -cfg.MaxOccupancyStep)
		assert.GreaterOrEqual(t, delta.UptimeHours, 0.0)
		assert.GreaterOrEqual(t, delta.StorageUsedGB, 0.0)
	}
}

func TestSimulatorTracksElapsedTime(t *testing.T) {
	cfg := DefaultSimulatorConfig()
	cfg.Seed = 7
	sim := NewSimulator(cfg)

	delta := sim.Next(types.Device{ID: "cam-1"}, time.Hour)
	assert.InDelta(t, 1.0, delta.UptimeHours, 1e-9)
	assert.InDelta(t, cfg.StoragePerHourGB, delta.StorageUsedGB, 1e-9)
}

func TestSimulatorNonPositiveOccupancyStep(t *testing.T) {
	for _, step := range []int{0, -1} {
		cfg := DefaultSimulatorConfig()
		cfg.MaxOccupancyStep = step
		cfg.Seed = 7
		sim := NewSimulator(cfg)

		for i := 0; i < 20; i++ {
			delta := sim.Next(types.Device{ID: "cam-1"}, 5*time.Second)
			assert.Equal(t, 0, delta.Occupancy)
		}
	}
}

func TestSimulatorSeedReproducible(t *testing.T) {
	cfg := DefaultSimulatorConfig()
	cfg.Seed = 42

	a := NewSimulator(cfg)
	b := NewSimulator(cfg)
	dev := types.Device{ID: "cam-1"}
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Next(dev, 5*time.Second), b.Next(dev, 5*time.Second))
	}
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"camera-fleet-engine/internal/types"
)

// seedDevice is the YAML shape of one device in a fleet seed file
type seedDevice struct {
	ID           string  `yaml:"id"`
	Name         string  `yaml:"name"`
	Location     string  `yaml:"location"`
	Zone         string  `yaml:"zone"`
	Status       string  `yaml:"status"`
	Motion       bool    `yaml:"motionDetection"`
	Infrared     bool    `yaml:"infrared"`
	Audio        bool    `yaml:"audio"`
	PanTiltZoom  bool    `yaml:"panTiltZoom"`
	TemperatureC float64 `yaml:"temperatureC"`
	UptimeHours  float64 `yaml:"uptimeHours"`
	StorageGB    float64 `yaml:"storageUsedGB"`
	Occupancy    int     `yaml:"occupancy"`
}

type seedFile struct {
	Devices []seedDevice `yaml:"devices"`
}

// LoadSeedDevices reads the initial fleet from a YAML seed file. The seed
// stands in for an external provisioning system; registration still goes
// through the registry with full validation.
func LoadSeedDevices(path string) ([]types.Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	devices := make([]types.Device, 0, len(seed.Devices))
	for _, s := range seed.Devices {
		devices = append(devices, types.Device{
			ID:       s.ID,
			Name:     s.Name,
			Location: s.Location,
			Zone:     types.Zone(s.Zone),
			Status:   types.DeviceStatus(s.Status),
			Capabilities: types.Capabilities{
				MotionDetection: s.Motion,
				Infrared:        s.Infrared,
				Audio:           s.Audio,
				PanTiltZoom:     s.PanTiltZoom,
			},
			Telemetry: types.Telemetry{
				TemperatureC:  s.TemperatureC,
				UptimeHours:   s.UptimeHours,
				StorageUsedGB: s.StorageGB,
				Occupancy:     s.Occupancy,
			},
		})
	}
	return devices, nil
}

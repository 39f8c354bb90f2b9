package stats

import (
	"time"

	"camera-fleet-engine/internal/settings"
	"camera-fleet-engine/internal/types"
)

// FleetStatistics is one internally consistent rollup over the fleet. All
// figures are computed from a single registry snapshot taken at call start,
// so no statistic reflects a state older than another in the same call.
type FleetStatistics struct {
	Total       int `json:"total"`
	Online      int `json:"online"`
	Offline     int `json:"offline"`
	Error       int `json:"error"`
	Maintenance int `json:"maintenance"`

	Recording      int `json:"recording"`
	MotionDetected int `json:"motionDetected"`

	UnacknowledgedAlerts         int `json:"unacknowledgedAlerts"`
	CriticalUnacknowledgedAlerts int `json:"criticalUnacknowledgedAlerts"`

	TotalStorageGB   float64 `json:"totalStorageGB"`
	StorageUsedPct   float64 `json:"storageUsedPct"`
	AverageUptimeHrs float64 `json:"averageUptimeHrs"`

	GeneratedAt time.Time `json:"generatedAt"`
}

// SnapshotProvider supplies a consistent copy of the current fleet
type SnapshotProvider interface {
	Snapshot() []types.Device
}

// SettingsProvider supplies the live system settings
type SettingsProvider interface {
	Current() settings.SystemSettings
}

// Aggregator recomputes fleet-wide statistics on demand. It is stateless;
// every call reads fresh state.
type Aggregator struct {
	snapshots SnapshotProvider
	settings  SettingsProvider
}

// NewAggregator creates a new statistics aggregator
func NewAggregator(snapshots SnapshotProvider, provider SettingsProvider) *Aggregator {
	return &Aggregator{snapshots: snapshots, settings: provider}
}

// Compute returns the current fleet statistics
func (a *Aggregator) Compute() FleetStatistics {
	devices := a.snapshots.Snapshot()
	sys := a.settings.Current()

	stats := FleetStatistics{
		Total:       len(devices),
		GeneratedAt: time.Now().UTC(),
	}

	var uptimeSum float64
	for i := range devices {
		dev := &devices[i]
		switch dev.Status {
		case types.StatusOnline:
			stats.Online++
		case types.StatusOffline:
			stats.Offline++
		case types.StatusError:
			stats.Error++
		case types.StatusMaintenance:
			stats.Maintenance++
		}

		if dev.StreamStatus == types.StreamRecording {
			stats.Recording++
		}
		if dev.Motion {
			stats.MotionDetected++
		}

		for j := range dev.Alerts {
			if dev.Alerts[j].Acknowledged {
				continue
			}
			stats.UnacknowledgedAlerts++
			if dev.Alerts[j].Severity == types.SeverityCritical {
				stats.CriticalUnacknowledgedAlerts++
			}
		}

		stats.TotalStorageGB += dev.Telemetry.StorageUsedGB
		uptimeSum += dev.Telemetry.UptimeHours
	}

	if len(devices) > 0 {
		stats.AverageUptimeHrs = uptimeSum / float64(len(devices))
	}
	if sys.StorageLimitGB > 0 {
		stats.StorageUsedPct = stats.TotalStorageGB / sys.StorageLimitGB * 100
	}

	return stats
}

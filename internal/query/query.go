package query

import (
	"sort"
	"strings"

	"camera-fleet-engine/internal/types"
)

// DeviceFilter selects devices for presentation. Zero values match everything.
type DeviceFilter struct {
	Text   string             // case-insensitive substring on name or location
	Zone   types.Zone         //
	Status types.DeviceStatus //
}

// AlertFilter selects alerts for presentation. Nil/zero fields match everything.
type AlertFilter struct {
	DeviceID     string
	Severity     types.AlertSeverity
	Type         types.AlertType
	Acknowledged *bool
}

// AlertSortField names the supported alert sort keys
type AlertSortField string

const (
	AlertSortByTimestamp AlertSortField = "timestamp"
	AlertSortBySeverity  AlertSortField = "severity"
	AlertSortByType      AlertSortField = "type"
)

// severityRank orders severities from most to least urgent
var severityRank = map[types.AlertSeverity]int{
	types.SeverityCritical: 0,
	types.SeverityWarning:  1,
	types.SeverityInfo:     2,
}

// FilterDevices returns the devices matching the filter, preserving input
// order. Text matching is a case-insensitive substring check on name and
// location.
func FilterDevices(devices []types.Device, filter DeviceFilter) []types.Device {
	text := strings.ToLower(strings.TrimSpace(filter.Text))
	out := make([]types.Device, 0, len(devices))
	for _, dev := range devices {
		if text != "" &&
			!strings.Contains(strings.ToLower(dev.Name), text) &&
			!strings.Contains(strings.ToLower(dev.Location), text) {
			continue
		}
		if filter.Zone != "" && dev.Zone != filter.Zone {
			continue
		}
		if filter.Status != "" && dev.Status != filter.Status {
			continue
		}
		out = append(out, dev)
	}
	return out
}

// SortDevicesByName sorts devices by name, ties broken by id so repeated
// calls with identical input produce identical order.
func SortDevicesByName(devices []types.Device) {
	sort.SliceStable(devices, func(i, j int) bool {
		if devices[i].Name == devices[j].Name {
			return devices[i].ID < devices[j].ID
		}
		return devices[i].Name < devices[j].Name
	})
}

// CollectAlerts flattens the per-device alert lists of a fleet snapshot,
// preserving raised order within each device.
func CollectAlerts(devices []types.Device) []types.Alert {
	var out []types.Alert
	for i := range devices {
		out = append(out, devices[i].Alerts...)
	}
	return out
}

// FilterAlerts returns the alerts matching the filter, preserving input order
func FilterAlerts(alerts []types.Alert, filter AlertFilter) []types.Alert {
	out := make([]types.Alert, 0, len(alerts))
	for _, alert := range alerts {
		if filter.DeviceID != "" && alert.DeviceID != filter.DeviceID {
			continue
		}
		if filter.Severity != "" && alert.Severity != filter.Severity {
			continue
		}
		if filter.Type != "" && alert.Type != filter.Type {
			continue
		}
		if filter.Acknowledged != nil && alert.Acknowledged != *filter.Acknowledged {
			continue
		}
		out = append(out, alert)
	}
	return out
}

// SortAlerts sorts alerts by the given field. Sorting is stable and ties are
// broken by id for deterministic ordering across repeated calls.
func SortAlerts(alerts []types.Alert, field AlertSortField) {
	less := func(i, j int) bool { return alerts[i].ID < alerts[j].ID }
	switch field {
	case AlertSortBySeverity:
		less = func(i, j int) bool {
			if severityRank[alerts[i].Severity] == severityRank[alerts[j].Severity] {
				return alerts[i].ID < alerts[j].ID
			}
			return severityRank[alerts[i].Severity] < severityRank[alerts[j].Severity]
		}
	case AlertSortByType:
		less = func(i, j int) bool {
			if alerts[i].Type == alerts[j].Type {
				return alerts[i].ID < alerts[j].ID
			}
			return alerts[i].Type < alerts[j].Type
		}
	case AlertSortByTimestamp:
		less = func(i, j int) bool {
			if alerts[i].Timestamp.Equal(alerts[j].Timestamp) {
				return alerts[i].ID < alerts[j].ID
			}
			return alerts[i].Timestamp.Before(alerts[j].Timestamp)
		}
	}
	sort.SliceStable(alerts, less)
}

// Page describes a pagination window
type Page struct {
	Number  int `json:"page"`    // 1-based
	PerPage int `json:"perPage"` //
}

// PaginateAudit returns one page of an audit trail plus the total entry
// count. Page numbers are 1-based; a zero or negative per-page falls back
// to 50.
func PaginateAudit(entries []types.AccessLogEntry, page Page) ([]types.AccessLogEntry, int) {
	total := len(entries)
	perPage := page.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	number := page.Number
	if number <= 0 {
		number = 1
	}

	start := (number - 1) * perPage
	if start >= total {
		return nil, total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	out := make([]types.AccessLogEntry, end-start)
	copy(out, entries[start:end])
	return out, total
}

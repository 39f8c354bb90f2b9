package query

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"camera-fleet-engine/internal/types"
)

func sampleDevices() []types.Device {
	return []types.Device{
		{ID: "cam-1", Name: "Lobby Cam", Location: "Main Lobby", Zone: types.ZoneEntrance, Status: types.StatusOnline},
		{ID: "cam-2", Name: "Dock Cam", Location: "Loading Dock", Zone: types.ZoneWarehouse, Status: types.StatusOffline},
		{ID: "cam-3", Name: "Server Cam", Location: "Server Room", Zone: types.ZoneServerRoom, Status: types.StatusOnline},
		{ID: "cam-4", Name: "lobby overflow", Location: "Annex", Zone: types.ZoneEntrance, Status: types.StatusMaintenance},
	}
}

func TestFilterDevicesText(t *testing.T) {
	devices := sampleDevices()

	matched := FilterDevices(devices, DeviceFilter{Text: "LOBBY"})
	require.Len(t, matched, 2, "text match is case-insensitive over name and location")
	assert.Equal(t, "cam-1", matched[0].ID)
	assert.Equal(t, "cam-4", matched[1].ID)

	matched = FilterDevices(devices, DeviceFilter{Text: "dock"})
	require.Len(t, matched, 1)
	assert.Equal(t, "cam-2", matched[0].ID)
}

func TestFilterDevicesCombined(t *testing.T) {
	devices := sampleDevices()

	matched := FilterDevices(devices, DeviceFilter{Zone: types.ZoneEntrance, Status: types.StatusOnline})
	require.Len(t, matched, 1)
	assert.Equal(t, "cam-1", matched[0].ID)

	assert.Len(t, FilterDevices(devices, DeviceFilter{}), 4, "empty filter matches everything")
	assert.Empty(t, FilterDevices(devices, DeviceFilter{Text: "nowhere"}))
}

func TestSortDevicesByNameDeterministic(t *testing.T) {
	devices := []types.Device{
		{ID: "cam-2", Name: "Same"},
		{ID: "cam-1", Name: "Same"},
		{ID: "cam-3", Name: "Another"},
	}
	SortDevicesByName(devices)
	assert.Equal(t, []string{"cam-3", "cam-1", "cam-2"}, []string{devices[0].ID, devices[1].ID, devices[2].ID})
}

func TestCollectAndFilterAlerts(t *testing.T) {
	devices := []types.Device{
		{ID: "cam-1", Alerts: []types.Alert{
			{ID: "al-1", DeviceID: "cam-1", Type: types.AlertHighTemp, Severity: types.SeverityWarning},
			{ID: "al-2", DeviceID: "cam-1", Type: types.AlertMotion, Severity: types.SeverityWarning, Acknowledged: true},
		}},
		{ID: "cam-2", Alerts: []types.Alert{
			{ID: "al-3", DeviceID: "cam-2", Type: types.AlertDisconnection, Severity: types.SeverityCritical},
		}},
	}

	all := CollectAlerts(devices)
	require.Len(t, all, 3)

	unacked := false
	matched := FilterAlerts(all, AlertFilter{Acknowledged: &unacked})
	assert.Len(t, matched, 2)

	matched = FilterAlerts(all, AlertFilter{DeviceID: "cam-2"})
	require.Len(t, matched, 1)
	assert.Equal(t, "al-3", matched[0].ID)

	matched = FilterAlerts(all, AlertFilter{Severity: types.SeverityCritical})
	require.Len(t, matched, 1)
	assert.Equal(t, types.AlertDisconnection, matched[0].Type)
}

func TestSortAlerts(t *testing.T) {
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	alerts := []types.Alert{
		{ID: "al-b", Type: types.AlertStorage, Severity: types.SeverityWarning, Timestamp: base.Add(time.Minute)},
		{ID: "al-a", Type: types.AlertMotion, Severity: types.SeverityWarning, Timestamp: base.Add(time.Minute)},
		{ID: "al-c", Type: types.AlertDisconnection, Severity: types.SeverityCritical, Timestamp: base},
	}

	bySeverity := append([]types.Alert(nil), alerts...)
	SortAlerts(bySeverity, AlertSortBySeverity)
	assert.Equal(t, "al-c", bySeverity[0].ID, "critical sorts first")
	assert.Equal(t, "al-a", bySeverity[1].ID, "equal severity falls back to id")
	assert.Equal(t, "al-b", bySeverity[2].ID)

	byTime := append([]types.Alert(nil), alerts...)
	SortAlerts(byTime, AlertSortByTimestamp)
	assert.Equal(t, "al-c", byTime[0].ID)
	assert.Equal(t, "al-a", byTime[1].ID, "equal timestamps fall back to id")

	byType := append([]types.Alert(nil), alerts...)
	SortAlerts(byType, AlertSortByType)
	assert.Equal(t, types.AlertDisconnection, byType[0].Type)
}

func TestPaginateAudit(t *testing.T) {
	entries := make([]types.AccessLogEntry, 12)
	for i := range entries {
		entries[i] = types.AccessLogEntry{ID: fmt.Sprintf("e-%02d", i)}
	}

	page, total := PaginateAudit(entries, Page{Number: 1, PerPage: 5})
	assert.Equal(t, 12, total)
	require.Len(t, page, 5)
	assert.Equal(t, "e-00", page[0].ID)

	page, _ = PaginateAudit(entries, Page{Number: 3, PerPage: 5})
	require.Len(t, page, 2)
	assert.Equal(t, "e-10", page[0].ID)

	page, total = PaginateAudit(entries, Page{Number: 4, PerPage: 5})
	assert.Nil(t, page)
	assert.Equal(t, 12, total)

	// Defaults: page 1, 50 per page
	page, _ = PaginateAudit(entries, Page{})
	assert.Len(t, page, 12)
}

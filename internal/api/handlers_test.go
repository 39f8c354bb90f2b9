package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"camera-fleet-engine/internal/config"
	"camera-fleet-engine/internal/fleet"
	"camera-fleet-engine/internal/settings"
	"camera-fleet-engine/internal/types"
)

func newTestServer(t *testing.T) (*Server, *fleet.Manager) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.LogLevel = "error"

	manager, err := fleet.NewManager(cfg)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewServer(cfg.API, manager, logger), manager
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor", "op-1")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func registerTestDevice(t *testing.T, s *Server, id string, status types.DeviceStatus) {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/v1/devices", RegisterDeviceRequest{
		ID:       id,
		Name:     "Camera " + id,
		Location: "Hall",
		Zone:     types.ZoneCorridor,
		Status:   status,
		Capabilities: types.Capabilities{
			MotionDetection: true,
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestRegisterDeviceEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	registerTestDevice(t, s, "cam-1", types.StatusOnline)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/devices/cam-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var dev types.Device
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dev))
	assert.Equal(t, "cam-1", dev.ID)
	assert.Equal(t, types.StreamStopped, dev.StreamStatus)
}

func TestRegisterDuplicateReturnsConflict(t *testing.T) {
	s, _ := newTestServer(t)
	registerTestDevice(t, s, "cam-1", types.StatusOnline)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/devices", RegisterDeviceRequest{
		ID: "cam-1", Name: "Camera cam-1", Zone: types.ZoneCorridor,
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "duplicate_device", resp.Code)
}

func TestGetUnknownDeviceReturns404(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/devices/ghost", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp.Code)
}

func TestCommandOnOfflineDeviceReturnsConflict(t *testing.T) {
	s, _ := newTestServer(t)
	registerTestDevice(t, s, "cam-1", types.StatusOffline)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/devices/cam-1/play", EnabledRequest{Enabled: true})
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_state_transition", resp.Code)
}

func TestStreamCommandFlow(t *testing.T) {
	s, _ := newTestServer(t)
	registerTestDevice(t, s, "cam-1", types.StatusOnline)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/devices/cam-1/play", EnabledRequest{Enabled: true})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/devices/cam-1/record", EnabledRequest{Enabled: true})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/devices/cam-1", nil)
	var dev types.Device
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dev))
	assert.Equal(t, types.StreamRecording, dev.StreamStatus)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/devices/cam-1/stop", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestListDevicesWithFilters(t *testing.T) {
	s, _ := newTestServer(t)
	registerTestDevice(t, s, "cam-1", types.StatusOnline)
	registerTestDevice(t, s, "cam-2", types.StatusOffline)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/devices?status=online", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DeviceListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "cam-1", resp.Devices[0].ID)
}

func TestAlertLifecycleOverHTTP(t *testing.T) {
	s, _ := newTestServer(t)
	registerTestDevice(t, s, "cam-1", types.StatusOnline)

	// Going offline raises a disconnection alert immediately
	rec := doJSON(t, s, http.MethodPost, "/api/v1/devices/cam-1/status", StatusRequest{Status: types.StatusOffline})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/alerts?acknowledged=false", nil)
	var alerts AlertListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alerts))
	require.Equal(t, 1, alerts.Total)
	alert := alerts.Alerts[0]
	assert.Equal(t, types.AlertDisconnection, alert.Type)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/devices/cam-1/alerts/"+alert.ID+"/ack", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/alerts?acknowledged=false", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alerts))
	assert.Equal(t, 0, alerts.Total)
}

func TestDeviceAuditEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	registerTestDevice(t, s, "cam-1", types.StatusOnline)
	doJSON(t, s, http.MethodPost, "/api/v1/devices/cam-1/play", EnabledRequest{Enabled: true})

	rec := doJSON(t, s, http.MethodGet, "/api/v1/devices/cam-1/audit?page=1&perPage=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AuditResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, "op-1", resp.Entries[0].Actor.ID)

	// Audit of an unknown device is 404, not an empty page
	rec = doJSON(t, s, http.MethodGet, "/api/v1/devices/ghost/audit", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnonymousCommandIsAudited(t *testing.T) {
	s, _ := newTestServer(t)
	registerTestDevice(t, s, "cam-1", types.StatusOnline)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/devices/cam-1/stop", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	audit := doJSON(t, s, http.MethodGet, "/api/v1/devices/cam-1/audit", nil)
	var resp AuditResponse
	require.NoError(t, json.Unmarshal(audit.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Total)
	assert.Equal(t, types.AnonymousActor.ID, resp.Entries[1].Actor.ID)
}

func TestSettingsEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var current settings.SystemSettings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &current))
	assert.True(t, current.AlertsEnabled)

	limit := 250.0
	rec = doJSON(t, s, http.MethodPatch, "/api/v1/settings", settings.UpdateRequest{StorageLimitGB: &limit})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated settings.SystemSettings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, 250.0, updated.StorageLimitGB)

	bad := "never"
	rec = doJSON(t, s, http.MethodPatch, "/api/v1/settings", settings.UpdateRequest{BackupFrequency: &bad})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordingEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	registerTestDevice(t, s, "cam-1", types.StatusOnline)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/recordings", RecordingRequest{
		ID:          "rec-1",
		DeviceID:    "cam-1",
		DurationSec: 42,
		SizeGB:      0.5,
		Quality:     "1080p",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, s, http.MethodGet, "/api/v1/recordings/rec-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/recordings?device=cam-1", nil)
	var recs []types.Recording
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recs))
	assert.Len(t, recs, 1)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/recordings/rec-1/audit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var audit AuditResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &audit))
	assert.Equal(t, 1, audit.Total)
}

func TestStatisticsAndHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	registerTestDevice(t, s, "cam-1", types.StatusOnline)
	registerTestDevice(t, s, "cam-2", types.StatusOffline)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/statistics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, float64(2), stats["total"])
	assert.Equal(t, float64(1), stats["online"])

	rec = doJSON(t, s, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, 2, health.Devices)
}

func TestMalformedBodyReturnsBadRequest(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/devices", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

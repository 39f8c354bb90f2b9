package api

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"camera-fleet-engine/internal/fleet"
	"camera-fleet-engine/internal/query"
	"camera-fleet-engine/internal/registry"
	"camera-fleet-engine/internal/settings"
	"camera-fleet-engine/internal/types"
)

// Handlers implements the HTTP command and query endpoints
type Handlers struct {
	manager *fleet.Manager
	logger  *logrus.Logger
}

// NewHandlers creates the endpoint handlers
func NewHandlers(manager *fleet.Manager, logger *logrus.Logger) *Handlers {
	return &Handlers{manager: manager, logger: logger}
}

// actorFrom extracts the caller identity for audit attribution. A missing
// identity is passed through and coerced to the anonymous sentinel by the
// audit logger.
func actorFrom(r *http.Request) types.Actor {
	return types.Actor{
		ID:   r.Header.Get("X-Actor"),
		Name: r.Header.Get("X-Actor-Name"),
		Role: r.Header.Get("X-Actor-Role"),
	}
}

// originFrom extracts command source metadata
func originFrom(r *http.Request) types.Origin {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return types.Origin{IP: host, Device: r.UserAgent()}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// writeError maps the engine's error taxonomy onto HTTP statuses
func writeError(w http.ResponseWriter, err error) {
	var notFound *registry.NotFoundError
	var duplicate *registry.DuplicateDeviceError
	var invalidState *registry.InvalidStateTransitionError
	var validation *registry.ValidationError

	switch {
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "not_found"})
	case errors.As(err, &duplicate):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "duplicate_device"})
	case errors.As(err, &invalidState):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "invalid_state_transition"})
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "validation_failed"})
	default:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "internal"})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "malformed request body", Code: "bad_request"})
		return false
	}
	return true
}

// RegisterDevice handles POST /api/v1/devices
func (h *Handlers) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req RegisterDeviceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	dev := types.Device{
		ID:           req.ID,
		Name:         req.Name,
		Location:     req.Location,
		Zone:         req.Zone,
		Status:       req.Status,
		Capabilities: req.Capabilities,
	}
	if err := h.manager.Register(dev, actorFrom(r), originFrom(r)); err != nil {
		writeError(w, err)
		return
	}

	created, err := h.manager.GetDevice(req.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ListDevices handles GET /api/v1/devices with text/zone/status filters
func (h *Handlers) ListDevices(w http.ResponseWriter, r *http.Request) {
	filter := query.DeviceFilter{
		Text:   r.URL.Query().Get("q"),
		Zone:   types.Zone(r.URL.Query().Get("zone")),
		Status: types.DeviceStatus(r.URL.Query().Get("status")),
	}

	devices := query.FilterDevices(h.manager.Snapshot(), filter)
	if r.URL.Query().Get("sort") == "name" {
		query.SortDevicesByName(devices)
	}
	writeJSON(w, http.StatusOK, DeviceListResponse{Devices: devices, Total: len(devices)})
}

// GetDevice handles GET /api/v1/devices/{id}
func (h *Handlers) GetDevice(w http.ResponseWriter, r *http.Request) {
	dev, err := h.manager.GetDevice(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// SetPlaying handles POST /api/v1/devices/{id}/play
func (h *Handlers) SetPlaying(w http.ResponseWriter, r *http.Request) {
	var req EnabledRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.manager.SetPlaying(mux.Vars(r)["id"], req.Enabled, actorFrom(r), originFrom(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// SetRecording handles POST /api/v1/devices/{id}/record
func (h *Handlers) SetRecording(w http.ResponseWriter, r *http.Request) {
	var req EnabledRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.manager.SetRecording(mux.Vars(r)["id"], req.Enabled, actorFrom(r), originFrom(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// StopStream handles POST /api/v1/devices/{id}/stop
func (h *Handlers) StopStream(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.StopStream(mux.Vars(r)["id"], actorFrom(r), originFrom(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// ToggleMotionDetection handles POST /api/v1/devices/{id}/motion-detection
func (h *Handlers) ToggleMotionDetection(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.ToggleMotionDetection(mux.Vars(r)["id"], actorFrom(r), originFrom(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// SetMotion handles POST /api/v1/devices/{id}/motion, the ingest point for
// the external motion detection feed.
func (h *Handlers) SetMotion(w http.ResponseWriter, r *http.Request) {
	var req MotionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.manager.SetMotion(mux.Vars(r)["id"], req.Motion, req.DetectedAt); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// SetStatus handles POST /api/v1/devices/{id}/status
func (h *Handlers) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.manager.SetStatus(mux.Vars(r)["id"], req.Status, actorFrom(r), originFrom(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// AcknowledgeAlert handles POST /api/v1/devices/{id}/alerts/{alertID}/ack
func (h *Handlers) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.manager.AcknowledgeAlert(vars["id"], vars["alertID"], actorFrom(r), originFrom(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// ListAlerts handles GET /api/v1/alerts with severity/type/ack filters
func (h *Handlers) ListAlerts(w http.ResponseWriter, r *http.Request) {
	filter := query.AlertFilter{
		DeviceID: r.URL.Query().Get("device"),
		Severity: types.AlertSeverity(r.URL.Query().Get("severity")),
		Type:     types.AlertType(r.URL.Query().Get("type")),
	}
	if ackParam := r.URL.Query().Get("acknowledged"); ackParam != "" {
		ack := ackParam == "true"
		filter.Acknowledged = &ack
	}

	alerts := query.FilterAlerts(query.CollectAlerts(h.manager.Snapshot()), filter)
	if sortField := r.URL.Query().Get("sort"); sortField != "" {
		query.SortAlerts(alerts, query.AlertSortField(sortField))
	}
	writeJSON(w, http.StatusOK, AlertListResponse{Alerts: alerts, Total: len(alerts)})
}

// Statistics handles GET /api/v1/statistics
func (h *Handlers) Statistics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Statistics())
}

// DeviceAudit handles GET /api/v1/devices/{id}/audit
func (h *Handlers) DeviceAudit(w http.ResponseWriter, r *http.Request) {
	h.auditPage(w, r, mux.Vars(r)["id"], true)
}

// RecordingAudit handles GET /api/v1/recordings/{id}/audit
func (h *Handlers) RecordingAudit(w http.ResponseWriter, r *http.Request) {
	h.auditPage(w, r, mux.Vars(r)["id"], false)
}

func (h *Handlers) auditPage(w http.ResponseWriter, r *http.Request, subjectID string, isDevice bool) {
	if isDevice {
		if _, err := h.manager.GetDevice(subjectID); err != nil {
			writeError(w, err)
			return
		}
	} else {
		if _, err := h.manager.GetRecording(subjectID); err != nil {
			writeError(w, err)
			return
		}
	}

	page := query.Page{
		Number:  intParam(r, "page", 1),
		PerPage: intParam(r, "perPage", 50),
	}
	entries, total := h.manager.AuditTrail(subjectID, page)
	writeJSON(w, http.StatusOK, AuditResponse{
		Entries: entries,
		Total:   total,
		Page:    page.Number,
		PerPage: page.PerPage,
	})
}

// RegisterRecording handles POST /api/v1/recordings
func (h *Handlers) RegisterRecording(w http.ResponseWriter, r *http.Request) {
	var req RecordingRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rec := types.Recording{
		ID:          req.ID,
		DeviceID:    req.DeviceID,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		DurationSec: req.DurationSec,
		SizeGB:      req.SizeGB,
		Quality:     req.Quality,
		MotionCount: req.MotionCount,
	}
	if err := h.manager.RegisterRecording(rec, actorFrom(r), originFrom(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// ListRecordings handles GET /api/v1/recordings
func (h *Handlers) ListRecordings(w http.ResponseWriter, r *http.Request) {
	recs := h.manager.ListRecordings(r.URL.Query().Get("device"))
	writeJSON(w, http.StatusOK, recs)
}

// GetRecording handles GET /api/v1/recordings/{id}
func (h *Handlers) GetRecording(w http.ResponseWriter, r *http.Request) {
	rec, err := h.manager.GetRecording(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetSettings handles GET /api/v1/settings
func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Settings())
}

// UpdateSettings handles PATCH /api/v1/settings
func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settings.UpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	updated, err := h.manager.UpdateSettings(req, actorFrom(r), originFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Health handles GET /healthz
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ticks := h.manager.Ticks()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		UptimeSec: h.manager.Uptime().Seconds(),
		Devices:   h.manager.DeviceCount(),
		Ticks: fleetTickStats{
			Count:      ticks.Count,
			Errors:     ticks.Errors,
			LastTickAt: ticks.LastTickAt,
		},
		Statistics: h.manager.Statistics(),
	})
}

func intParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

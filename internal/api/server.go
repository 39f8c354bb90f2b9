package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"camera-fleet-engine/internal/config"
	"camera-fleet-engine/internal/fleet"
)

// Server exposes the engine's command and query API over HTTP
type Server struct {
	config     config.APIConfig
	logger     *logrus.Logger
	router     *mux.Router
	httpServer *http.Server
	handlers   *Handlers
	wsManager  *WebSocketManager
}

// NewServer creates a new API server wired to the fleet manager
func NewServer(cfg config.APIConfig, manager *fleet.Manager, logger *logrus.Logger) *Server {
	s := &Server{
		config:    cfg,
		logger:    logger,
		router:    mux.NewRouter(),
		wsManager: NewWebSocketManager(logger),
	}
	s.handlers = NewHandlers(manager, logger)

	s.router.Use(s.requestLogging)
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeout) * time.Second,
	}
	return s
}

// WebSocket returns the websocket manager so it can be registered as an
// alert notification sink.
func (s *Server) WebSocket() *WebSocketManager {
	return s.wsManager
}

func (s *Server) setupRoutes() {
	v1 := s.router.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/devices", s.handlers.RegisterDevice).Methods(http.MethodPost)
	v1.HandleFunc("/devices", s.handlers.ListDevices).Methods(http.MethodGet)
	v1.HandleFunc("/devices/{id}", s.handlers.GetDevice).Methods(http.MethodGet)
	v1.HandleFunc("/devices/{id}/play", s.handlers.SetPlaying).Methods(http.MethodPost)
	v1.HandleFunc("/devices/{id}/record", s.handlers.SetRecording).Methods(http.MethodPost)
	v1.HandleFunc("/devices/{id}/stop", s.handlers.StopStream).Methods(http.MethodPost)
	v1.HandleFunc("/devices/{id}/motion-detection", s.handlers.ToggleMotionDetection).Methods(http.MethodPost)
	v1.HandleFunc("/devices/{id}/motion", s.handlers.SetMotion).Methods(http.MethodPost)
	v1.HandleFunc("/devices/{id}/status", s.handlers.SetStatus).Methods(http.MethodPost)
	v1.HandleFunc("/devices/{id}/alerts/{alertID}/ack", s.handlers.AcknowledgeAlert).Methods(http.MethodPost)
	v1.HandleFunc("/devices/{id}/audit", s.handlers.DeviceAudit).Methods(http.MethodGet)

	v1.HandleFunc("/alerts", s.handlers.ListAlerts).Methods(http.MethodGet)
	v1.HandleFunc("/statistics", s.handlers.Statistics).Methods(http.MethodGet)

	v1.HandleFunc("/recordings", s.handlers.RegisterRecording).Methods(http.MethodPost)
	v1.HandleFunc("/recordings", s.handlers.ListRecordings).Methods(http.MethodGet)
	v1.HandleFunc("/recordings/{id}", s.handlers.GetRecording).Methods(http.MethodGet)
	v1.HandleFunc("/recordings/{id}/audit", s.handlers.RecordingAudit).Methods(http.MethodGet)

	v1.HandleFunc("/settings", s.handlers.GetSettings).Methods(http.MethodGet)
	v1.HandleFunc("/settings", s.handlers.UpdateSettings).Methods(http.MethodPatch)

	s.router.HandleFunc("/healthz", s.handlers.Health).Methods(http.MethodGet)
	s.router.HandleFunc("/ws/events", s.wsManager.HandleConnection)
}

// requestLogging logs each request with method, path, status and duration
func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
			"remote_addr": r.RemoteAddr,
		}).Debug("Request handled")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Start runs the websocket manager and the HTTP listener
func (s *Server) Start(ctx context.Context) error {
	s.wsManager.Start(ctx)

	s.logger.WithField("addr", s.httpServer.Addr).Info("API server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP listener and the websocket manager
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsManager.Stop()
	return s.httpServer.Shutdown(ctx)
}

// Package status provides liveness, readiness and status endpoints for
// plantwised
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/plantwise/plantwise/pkg/logx"
	"github.com/plantwise/plantwise/pkg/models"
	"github.com/plantwise/plantwise/pkg/telem"
)

// Server serves the daemon status endpoints
type Server struct {
	models    *models.Store
	store     *telem.Store
	logger    *logx.Logger
	server    *http.Server
	startTime time.Time
}

// Status is the overall daemon status payload
type Status struct {
	Status     string               `json:"status"`
	Timestamp  time.Time            `json:"timestamp"`
	Uptime     string               `json:"uptime"`
	Model      ModelStatus          `json:"model"`
	Components map[string]Component `json:"components"`
	Telemetry  map[string]int       `json:"telemetry,omitempty"`
	Memory     *MemoryInfo          `json:"memory,omitempty"`
}

// ModelStatus identifies the active model bundle
type ModelStatus struct {
	Version     string    `json:"version"`
	Source      string    `json:"training_data_source"`
	LastTrained time.Time `json:"last_trained"`
}

// Component represents the health of one subsystem
type Component struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	LastCheck time.Time `json:"last_check"`
}

// MemoryInfo reports process memory usage
type MemoryInfo struct {
	Alloc     uint64 `json:"alloc_bytes"`
	Sys       uint64 `json:"sys_bytes"`
	HeapAlloc uint64 `json:"heap_alloc_bytes"`
	HeapInuse uint64 `json:"heap_inuse_bytes"`
	NumGC     uint32 `json:"num_gc"`
}

// NewServer creates a status server
func NewServer(modelStore *models.Store, store *telem.Store, logger *logx.Logger) *Server {
	return &Server{
		models:    modelStore,
		store:     store,
		logger:    logger,
		startTime: time.Now(),
	}
}

// Start starts the status server
func (s *Server) Start(port int) error {
	s.logger.Info("starting status server", "port", port)

	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/status/detailed", s.detailedHandler)
	mux.HandleFunc("/status/ready", s.readyHandler)
	mux.HandleFunc("/status/live", s.liveHandler)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("status server error", "error", err)
		}
	}()

	return nil
}

// Stop stops the status server
func (s *Server) Stop() error {
	s.logger.Info("stopping status server")

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

// statusHandler provides basic daemon status
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := s.getStatus()

	w.Header().Set("Content-Type", "application/json")
	if status.Status == "healthy" {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(status)
}

// detailedHandler adds telemetry and memory information
func (s *Server) detailedHandler(w http.ResponseWriter, r *http.Request) {
	status := s.getStatus()

	if s.store != nil {
		stats := s.store.GetStats()
		status.Telemetry = map[string]int{}
		if v, ok := stats["total_records"].(int); ok {
			status.Telemetry["records"] = v
		}
		if v, ok := stats["total_events"].(int); ok {
			status.Telemetry["events"] = v
		}
		if v, ok := stats["fallback_records"].(int); ok {
			status.Telemetry["fallback_records"] = v
		}
	}
	status.Memory = memoryInfo()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(status)
}

// readyHandler reports readiness: the daemon is ready once a model bundle
// is loaded
func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if s.models != nil && s.models.Version() != "" {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	w.Write([]byte(`{"status":"not ready"}`))
}

// liveHandler reports liveness
func (s *Server) liveHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"alive"}`))
}

// getStatus assembles the basic status payload
func (s *Server) getStatus() Status {
	now := time.Now()
	status := Status{
		Status:     "healthy",
		Timestamp:  now,
		Uptime:     time.Since(s.startTime).Round(time.Second).String(),
		Components: map[string]Component{},
	}

	if s.models != nil && s.models.Version() != "" {
		status.Model = ModelStatus{
			Version:     s.models.Version(),
			Source:      s.models.Source(),
			LastTrained: s.models.LastTrained(),
		}
		status.Components["model_store"] = Component{
			Status:    "healthy",
			Message:   "model bundle loaded",
			LastCheck: now,
		}
	} else {
		status.Status = "unhealthy"
		status.Components["model_store"] = Component{
			Status:    "unhealthy",
			Message:   "no model bundle loaded",
			LastCheck: now,
		}
	}

	if s.store != nil {
		status.Components["telemetry_store"] = Component{
			Status:    "healthy",
			Message:   "telemetry store operational",
			LastCheck: now,
		}
	}

	return status
}

// memoryInfo returns process memory usage
func memoryInfo() *MemoryInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return &MemoryInfo{
		Alloc:     m.Alloc,
		Sys:       m.Sys,
		HeapAlloc: m.HeapAlloc,
		HeapInuse: m.HeapInuse,
		NumGC:     m.NumGC,
	}
}

// Package health provides health and readiness endpoints. The service has
// no external dependencies; health reports the in-memory registry counters
// alongside liveness.
package health

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/thegeek/eml-reader/internal/thread"
)

// RegistryStats reports thread registry counters in the health response.
type RegistryStats struct {
	Threads  int `json:"threads"`
	Messages int `json:"messages"`
}

// HealthResponse is the structured health check response.
type HealthResponse struct {
	Status    string        `json:"status"`
	Timestamp string        `json:"timestamp"`
	Registry  RegistryStats `json:"registry"`
	Version   string        `json:"version,omitempty"`
}

// ReadinessResponse is the readiness probe response.
type ReadinessResponse struct {
	Ready     bool   `json:"ready"`
	Timestamp string `json:"timestamp"`
}

// Handler handles health check requests.
type Handler struct {
	registry *thread.Registry
	version  string
	ready    bool
	mu       sync.RWMutex
}

// NewHandler creates a new health check handler.
func NewHandler(registry *thread.Registry, version string) *Handler {
	return &Handler{
		registry: registry,
		version:  version,
		ready:    true,
	}
}

// SetReady sets the readiness state, typically flipped off during graceful
// shutdown.
func (h *Handler) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

// IsReady returns the current readiness state.
func (h *Handler) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

// Health handles the main health check endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	threads, messages := h.registry.Stats()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Registry:  RegistryStats{Threads: threads, Messages: messages},
		Version:   h.version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// Readiness handles the readiness probe endpoint.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	ready := h.IsReady()

	response := ReadinessResponse{
		Ready:     ready,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(response)
}

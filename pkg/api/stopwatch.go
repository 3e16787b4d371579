package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/psantana5/chrono/pkg/logging"
	"github.com/psantana5/chrono/pkg/registry"
	"github.com/psantana5/chrono/pkg/stopwatch"
)

// StopwatchHandler serves the stopwatch registry over HTTP
type StopwatchHandler struct {
	registry *registry.Registry
	logger   *logging.Logger
	uptime   *stopwatch.Stopwatch
}

// CreateRequest is the body of POST /stopwatches
type CreateRequest struct {
	Name  string `json:"name"`
	Start bool   `json:"start"`
}

// NewStopwatchHandler creates a handler over r
func NewStopwatchHandler(r *registry.Registry, logger *logging.Logger) *StopwatchHandler {
	if logger == nil {
		logger = logging.NewLogger(logging.INFO, false)
	}
	return &StopwatchHandler{
		registry: r,
		logger:   logger.WithField("component", "api"),
		uptime:   stopwatch.StartNew(nil),
	}
}

// RegisterRoutes registers all API routes
func (h *StopwatchHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/stopwatches", h.Create).Methods("POST")
	r.HandleFunc("/stopwatches", h.List).Methods("GET")
	r.HandleFunc("/stopwatches/{id}", h.Get).Methods("GET")
	r.HandleFunc("/stopwatches/{id}", h.Delete).Methods("DELETE")
	r.HandleFunc("/stopwatches/{id}/start", h.transition(h.registry.Start)).Methods("POST")
	r.HandleFunc("/stopwatches/{id}/stop", h.transition(h.registry.Stop)).Methods("POST")
	r.HandleFunc("/stopwatches/{id}/reset", h.transition(h.registry.Reset)).Methods("POST")
	r.HandleFunc("/stopwatches/{id}/restart", h.transition(h.registry.Restart)).Methods("POST")
	r.HandleFunc("/health", h.Health).Methods("GET")
}

// Create registers a new stopwatch
func (h *StopwatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	entry, err := h.registry.Create(req.Name, req.Start)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("Stopwatch created", map[string]interface{}{
		"id":      entry.ID,
		"name":    entry.Name,
		"running": entry.Running,
	})
	writeJSON(w, http.StatusCreated, entry)
}

// List returns all stopwatches
func (h *StopwatchHandler) List(w http.ResponseWriter, r *http.Request) {
	entries := h.registry.List()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stopwatches": entries,
		"count":       len(entries),
	})
}

// Get returns one stopwatch
func (h *StopwatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.registry.Get(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Delete removes a stopwatch
func (h *StopwatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.registry.Delete(id); err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Info("Stopwatch deleted", map[string]interface{}{"id": id})
	w.WriteHeader(http.StatusNoContent)
}

// Health reports liveness and server uptime
func (h *StopwatchHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"uptime_seconds": h.uptime.Elapsed().Seconds(),
		"stopwatches":    h.registry.Len(),
	})
}

func (h *StopwatchHandler) transition(op func(id string) (registry.Entry, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, err := op(mux.Vars(r)["id"])
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.logger.Debug("Stopwatch transition", map[string]interface{}{
			"id":      entry.ID,
			"path":    r.URL.Path,
			"running": entry.Running,
			"elapsed": entry.Elapsed.String(),
		})
		writeJSON(w, http.StatusOK, entry)
	}
}

func (h *StopwatchHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, registry.ErrExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, registry.ErrInvalidName):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("Request failed", map[string]interface{}{"error": err.Error()})
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

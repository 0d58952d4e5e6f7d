// Package handlers provides HTTP handlers for sampler runs.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/mjhmc/internal/export"
	"github.com/aristath/mjhmc/internal/runs"
	"github.com/aristath/mjhmc/internal/sampler"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	// maxRequestBytes bounds the JSON body of a run request.
	maxRequestBytes = 1 << 16
)

// Handler handles run HTTP requests
type Handler struct {
	service *runs.Service
	log     zerolog.Logger
}

// NewHandler creates a new runs handler
func NewHandler(service *runs.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "runs").Logger(),
	}
}

// HandleCreate handles POST /api/runs
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req runs.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	run, _, err := h.service.Execute(r.Context(), req)
	if err != nil {
		h.writeError(w, err, "Failed to execute run")
		return
	}

	h.writeJSON(w, http.StatusCreated, envelope(run))
}

// HandleList handles GET /api/runs
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(parsed, maxListLimit)
	}

	list, err := h.service.List(limit)
	if err != nil {
		h.writeError(w, err, "Failed to list runs")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"runs":  list,
		"count": len(list),
	}))
}

// HandleGet handles GET /api/runs/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err, "Failed to get run")
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(run))
}

// HandleSamples handles GET /api/runs/{id}/samples. The body is the msgpack
// sample envelope.
func (h *Handler) HandleSamples(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	blob, err := h.service.SamplesBlob(id)
	if err != nil {
		h.writeError(w, err, "Failed to get samples")
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(blob)))
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.msgpack"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(blob); err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to write samples")
	}
}

// HandleDelete handles DELETE /api/runs/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err, "Failed to delete run")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDistributions handles GET /api/distributions
func (h *Handler) HandleDistributions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"distributions": h.service.Distributions(),
		"rules":         []string{string(sampler.RuleMetropolis), string(sampler.RuleSymmetric)},
	}))
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, runs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, runs.ErrInvalidRequest), errors.Is(err, sampler.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, sampler.ErrNumerical):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error, msg string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg(msg)
		http.Error(w, msg, status)
		return
	}
	h.log.Debug().Err(err).Int("status", status).Msg(msg)
	http.Error(w, err.Error(), status)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

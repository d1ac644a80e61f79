package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"netcensus/internal/codec"
	"netcensus/internal/core/aggregate"
	"netcensus/internal/domain"
	"netcensus/internal/repository"
	"netcensus/internal/service"
)

// InventoryService is the part of service.AggregationService the API uses
type InventoryService interface {
	Run(ctx context.Context, opts service.RunOptions) (*service.RunResult, error)
	Inventory(ctx context.Context) (*domain.Inventory, error)
	Statistics(ctx context.Context) (*domain.Statistics, error)
	ListDevices(ctx context.Context, filter repository.DeviceFilter) ([]*domain.DeviceRecord, error)
	GetDevice(ctx context.Context, id string) (*domain.DeviceRecord, error)
	ListRuns(ctx context.Context, limit int) ([]*domain.Run, error)
	GetRun(ctx context.Context, id string) (*domain.Run, error)
}

// InventoryHandler handles inventory API requests
type InventoryHandler struct {
	svc    InventoryService
	logger zerolog.Logger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(svc InventoryService, logger zerolog.Logger) *InventoryHandler {
	return &InventoryHandler{svc: svc, logger: logger}
}

// Register mounts the API routes on mux
func (h *InventoryHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/inventory", h.GetInventory)
	mux.HandleFunc("GET /api/statistics", h.GetStatistics)
	mux.HandleFunc("GET /api/devices", h.ListDevices)
	mux.HandleFunc("GET /api/devices/{id}", h.GetDevice)
	mux.HandleFunc("GET /api/runs", h.ListRuns)
	mux.HandleFunc("GET /api/runs/{id}", h.GetRun)
	mux.HandleFunc("POST /api/aggregate", h.Aggregate)
	mux.HandleFunc("GET /api/export/{format}", h.Export)
}

// Error response structure
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// AggregateRequest is the optional body of POST /api/aggregate
type AggregateRequest struct {
	Paths []string `json:"paths,omitempty"`
	Force bool     `json:"force,omitempty"`
}

// AggregateResponse is returned after an aggregation run
type AggregateResponse struct {
	RunID        string   `json:"run_id"`
	Skipped      bool     `json:"skipped"`
	TotalDevices int      `json:"total_devices"`
	Snapshots    int      `json:"snapshots"`
	Rejected     []string `json:"rejected,omitempty"`
}

// GetInventory returns the latest inventory document
func (h *InventoryHandler) GetInventory(w http.ResponseWriter, r *http.Request) {
	inv, err := h.svc.Inventory(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to get inventory", err)
		return
	}

	h.writeJSON(w, inv, http.StatusOK)
}

// GetStatistics returns the statistics block of the latest inventory
func (h *InventoryHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Statistics(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to get statistics", err)
		return
	}

	h.writeJSON(w, stats, http.StatusOK)
}

// ListDevices returns devices of the latest inventory
func (h *InventoryHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		h.writeError(w, "Invalid limit", err.Error(), http.StatusBadRequest)
		return
	}

	devices, err := h.svc.ListDevices(r.Context(), repository.DeviceFilter{
		Vendor:     q.Get("vendor"),
		DeviceType: q.Get("type"),
		Limit:      limit,
	})
	if err != nil {
		h.writeServiceError(w, "Failed to list devices", err)
		return
	}

	h.writeJSON(w, devices, http.StatusOK)
}

// GetDevice returns a single device
func (h *InventoryHandler) GetDevice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, "Invalid device ID", "Device ID is required", http.StatusBadRequest)
		return
	}

	dev, err := h.svc.GetDevice(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "Failed to get device", err)
		return
	}

	h.writeJSON(w, dev, http.StatusOK)
}

// ListRuns returns stored run summaries, newest first
func (h *InventoryHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		h.writeError(w, "Invalid limit", err.Error(), http.StatusBadRequest)
		return
	}

	runs, err := h.svc.ListRuns(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, "Failed to list runs", err)
		return
	}

	h.writeJSON(w, runs, http.StatusOK)
}

// GetRun returns a single run with its document
func (h *InventoryHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, "Failed to get run", err)
		return
	}

	h.writeJSON(w, run, http.StatusOK)
}

// Aggregate triggers an aggregation run
func (h *InventoryHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	var req AggregateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}
	}
	if force, err := strconv.ParseBool(r.URL.Query().Get("force")); err == nil {
		req.Force = req.Force || force
	}

	result, err := h.svc.Run(r.Context(), service.RunOptions{Paths: req.Paths, Force: req.Force})
	if err != nil {
		h.writeServiceError(w, "Aggregation failed", err)
		return
	}

	resp := AggregateResponse{
		RunID:        result.Run.ID,
		Skipped:      result.Skipped,
		TotalDevices: result.Run.TotalDevices,
		Snapshots:    result.Run.SnapshotCount,
	}
	for _, rej := range result.Rejected {
		resp.Rejected = append(resp.Rejected, rej.Error())
	}

	status := http.StatusCreated
	if result.Skipped {
		status = http.StatusOK
	}
	h.writeJSON(w, resp, status)
}

// Export writes the latest inventory as a downloadable document
func (h *InventoryHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.PathValue("format"))
	enc, err := codec.EncoderFor(format)
	if err != nil {
		h.writeError(w, "Unsupported export format", err.Error(), http.StatusBadRequest)
		return
	}

	inv, err := h.svc.Inventory(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to export inventory", err)
		return
	}

	w.Header().Set("Content-Type", codec.ContentType(enc.Format()))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="inventory.%s"`, enc.Format()))
	if err := enc.Encode(inv, w); err != nil {
		h.logger.Error().Err(err).Str("format", enc.Format()).Msg("failed to encode export")
	}
}

func (h *InventoryHandler) writeServiceError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		h.writeError(w, "Not found", err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrNoInventory):
		h.writeError(w, "No inventory", err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrPathNotAllowed):
		h.writeError(w, msg, err.Error(), http.StatusBadRequest)
	case errors.Is(err, aggregate.ErrNoValidInput):
		h.writeError(w, msg, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.logger.Error().Err(err).Msg(msg)
		h.writeError(w, msg, err.Error(), http.StatusInternalServerError)
	}
}

func (h *InventoryHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode JSON")
	}
}

func (h *InventoryHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Details: details,
	}); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode error response")
	}
}

func parseLimit(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("limit must be a non-negative integer, got %q", s)
	}
	return n, nil
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anisong/internal/models"
	"github.com/desertthunder/anisong/internal/services"
	"github.com/desertthunder/anisong/internal/shared"
	"github.com/desertthunder/anisong/internal/tasks"
)

const maxBodyBytes = 1 << 20

// TaskService is the task boundary served over HTTP.
type TaskService interface {
	ListActive(ctx context.Context) []models.Task
	ListHistory() []models.Task
	CreateBatch(ctx context.Context, req tasks.BatchRequest, prog chan<- tasks.ProgressUpdate) ([]models.Task, error)
	StartDownload(ctx context.Context, id string)
	DeleteTask(ctx context.Context, id string)
	ArchiveTask(ctx context.Context, id string) bool
}

// HealthReporter exposes the engine health monitor.
type HealthReporter interface {
	Report() services.HealthReport
}

// TaskHandler serves the task API.
type TaskHandler struct {
	svc    TaskService
	health HealthReporter
	logger *log.Logger
	mux    *http.ServeMux
}

// NewTaskHandler creates a handler over svc. health may be nil.
func NewTaskHandler(svc TaskService, health HealthReporter, logger *log.Logger) *TaskHandler {
	h := &TaskHandler{svc: svc, health: health, logger: logger, mux: http.NewServeMux()}

	h.mux.HandleFunc("GET /api/tasks", h.listActive)
	h.mux.HandleFunc("GET /api/history", h.listHistory)
	h.mux.HandleFunc("POST /api/tasks/batch", h.createBatch)
	h.mux.HandleFunc("POST /api/tasks/{id}/start", h.start)
	h.mux.HandleFunc("POST /api/tasks/{id}/archive", h.archive)
	h.mux.HandleFunc("DELETE /api/tasks/{id}", h.delete)
	h.mux.HandleFunc("GET /api/engine/health", h.engineHealth)
	return h
}

// Routes returns the method patterns served by the handler.
func (h *TaskHandler) Routes() []string {
	return []string{
		"GET /api/tasks",
		"GET /api/history",
		"POST /api/tasks/batch",
		"POST /api/tasks/{id}/start",
		"POST /api/tasks/{id}/archive",
		"DELETE /api/tasks/{id}",
		"GET /api/engine/health",
	}
}

// ServeHTTP dispatches to the matching endpoint.
func (h *TaskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *TaskHandler) listActive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ListActive(r.Context()))
}

func (h *TaskHandler) listHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ListHistory())
}

func (h *TaskHandler) createBatch(w http.ResponseWriter, r *http.Request) {
	var req tasks.BatchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	created, err := h.svc.CreateBatch(r.Context(), req, nil)
	if errors.Is(err, shared.ErrInvalidInput) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("batch failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *TaskHandler) start(w http.ResponseWriter, r *http.Request) {
	h.svc.StartDownload(r.Context(), r.PathValue("id"))
	w.WriteHeader(http.StatusAccepted)
}

func (h *TaskHandler) delete(w http.ResponseWriter, r *http.Request) {
	h.svc.DeleteTask(r.Context(), r.PathValue("id"))
	w.WriteHeader(http.StatusAccepted)
}

func (h *TaskHandler) archive(w http.ResponseWriter, r *http.Request) {
	archived := h.svc.ArchiveTask(r.Context(), r.PathValue("id"))
	writeJSON(w, http.StatusOK, map[string]bool{"archived": archived})
}

func (h *TaskHandler) engineHealth(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		writeError(w, http.StatusServiceUnavailable, "health monitor not running")
		return
	}

	report := h.health.Report()
	body := struct {
		Status    services.EngineHealth `json:"status"`
		Error     string                `json:"error,omitempty"`
		CheckedAt *time.Time            `json:"checked_at,omitempty"`
	}{Status: report.Status}
	if report.Err != nil {
		body.Error = report.Err.Error()
	}
	if !report.CheckedAt.IsZero() {
		body.CheckedAt = &report.CheckedAt
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

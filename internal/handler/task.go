package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hiroki-koketsu/taskboard/internal/auth"
	"github.com/hiroki-koketsu/taskboard/internal/model"
	"github.com/hiroki-koketsu/taskboard/internal/service"
	"github.com/hiroki-koketsu/taskboard/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/hiroki-koketsu/taskboard/internal/handler")

const (
	routeTasks  = "/api/v1/tasks"
	routeTask   = "/api/v1/tasks/{id}"
	routeToggle = "/api/v1/tasks/{id}/toggle"
)

// TaskHandler handles HTTP requests for tasks.
type TaskHandler struct {
	svc     *service.TaskService
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(svc *service.TaskService, logger *slog.Logger, metrics *telemetry.Metrics) *TaskHandler {
	return &TaskHandler{
		svc:     svc,
		logger:  logger,
		metrics: metrics,
	}
}

// ListResponse is the body returned by List.
type ListResponse struct {
	Count int           `json:"count"`
	Tasks []*model.Task `json:"tasks"`
}

// ErrorResponse is the body returned for every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Routes returns the chi router with task routes. Callers mount it behind
// the auth middleware.
func (h *TaskHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/toggle", h.Toggle)

	return r
}

// List returns the caller's tasks, filtered by the priority, status and
// search query parameters.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "TaskHandler.List")
	defer span.End()

	q := r.URL.Query()
	criteria := model.Criteria{
		Priority: q.Get("priority"),
		Status:   q.Get("status"),
		Search:   q.Get("search"),
	}

	h.logger.InfoContext(ctx, "listing tasks",
		slog.String("priority", criteria.Priority),
		slog.String("status", criteria.Status),
	)

	tasks, err := h.svc.List(ctx, principal(ctx), criteria)
	if err != nil {
		h.fail(ctx, w, span, err, "failed to list tasks", http.MethodGet, routeTasks, start)
		return
	}

	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	h.logger.InfoContext(ctx, "tasks listed", slog.Int("count", len(tasks)))

	h.respondJSON(w, http.StatusOK, ListResponse{Count: len(tasks), Tasks: tasks})
	h.recordMetrics(ctx, http.MethodGet, routeTasks, http.StatusOK, start)
}

// Create adds a new task.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "TaskHandler.Create")
	defer span.End()

	var req model.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid request body", slog.Any("error", err))
		h.respondError(w, http.StatusBadRequest, model.KindValidation, "invalid request body")
		h.recordMetrics(ctx, http.MethodPost, routeTasks, http.StatusBadRequest, start)
		return
	}

	task, err := h.svc.Create(ctx, principal(ctx), req)
	if err != nil {
		h.fail(ctx, w, span, err, "failed to create task", http.MethodPost, routeTasks, start)
		return
	}

	span.SetAttributes(attribute.String("task.id", task.ID))
	h.logger.InfoContext(ctx, "task created", slog.String("id", task.ID))

	h.respondJSON(w, http.StatusCreated, task)
	h.recordMetrics(ctx, http.MethodPost, routeTasks, http.StatusCreated, start)
}

// GetByID returns a task by ID.
func (h *TaskHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TaskHandler.GetByID",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	task, err := h.svc.Get(ctx, principal(ctx), id)
	if err != nil {
		h.fail(ctx, w, span, err, "failed to get task", http.MethodGet, routeTask, start)
		return
	}

	h.respondJSON(w, http.StatusOK, task)
	h.recordMetrics(ctx, http.MethodGet, routeTask, http.StatusOK, start)
}

// Update applies a partial update to a task. PUT and PATCH behave the same.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TaskHandler.Update",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	var req model.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid request body", slog.Any("error", err))
		h.respondError(w, http.StatusBadRequest, model.KindValidation, "invalid request body")
		h.recordMetrics(ctx, r.Method, routeTask, http.StatusBadRequest, start)
		return
	}

	h.logger.InfoContext(ctx, "updating task", slog.String("id", id))

	task, err := h.svc.Update(ctx, principal(ctx), id, req)
	if err != nil {
		h.fail(ctx, w, span, err, "failed to update task", r.Method, routeTask, start)
		return
	}

	h.logger.InfoContext(ctx, "task updated", slog.String("id", id))

	h.respondJSON(w, http.StatusOK, task)
	h.recordMetrics(ctx, r.Method, routeTask, http.StatusOK, start)
}

// Toggle flips a task between pending and completed.
func (h *TaskHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TaskHandler.Toggle",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	task, err := h.svc.Toggle(ctx, principal(ctx), id)
	if err != nil {
		if errors.Is(err, model.ErrConflict) {
			h.metrics.ToggleConflicts.Add(ctx, 1)
		}
		h.fail(ctx, w, span, err, "failed to toggle task", http.MethodPost, routeToggle, start)
		return
	}

	h.logger.InfoContext(ctx, "task toggled", slog.String("id", id), slog.String("status", string(task.Status)))

	h.respondJSON(w, http.StatusOK, task)
	h.recordMetrics(ctx, http.MethodPost, routeToggle, http.StatusOK, start)
}

// Delete removes a task.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TaskHandler.Delete",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	h.logger.InfoContext(ctx, "deleting task", slog.String("id", id))

	if err := h.svc.Delete(ctx, principal(ctx), id); err != nil {
		h.fail(ctx, w, span, err, "failed to delete task", http.MethodDelete, routeTask, start)
		return
	}

	h.logger.InfoContext(ctx, "task deleted", slog.String("id", id))

	w.WriteHeader(http.StatusNoContent)
	h.recordMetrics(ctx, http.MethodDelete, routeTask, http.StatusNoContent, start)
}

// Health returns a health check response including store reachability.
func (h *TaskHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "health check failed", slog.Any("error", err))
		h.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func principal(ctx context.Context) model.Principal {
	p, _ := auth.PrincipalFrom(ctx)
	return p
}

// statusFor maps an error category to an HTTP status code.
func statusFor(kind model.ErrorKind) int {
	switch kind {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindUnauthenticated:
		return http.StatusUnauthorized
	case model.KindForbidden:
		return http.StatusForbidden
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindConflict:
		return http.StatusConflict
	case model.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail logs err, writes the error response and records metrics. Client
// errors carry their domain message; server errors never expose the cause.
func (h *TaskHandler) fail(ctx context.Context, w http.ResponseWriter, span trace.Span, err error, msg, method, route string, start time.Time) {
	kind := model.KindOf(err)
	status := statusFor(kind)

	if status >= http.StatusInternalServerError {
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		h.logger.ErrorContext(ctx, msg, slog.Any("error", err))
		h.respondError(w, status, kind, msg)
	} else {
		h.logger.WarnContext(ctx, msg, slog.Any("error", err))
		var te model.TaskError
		errors.As(err, &te)
		h.respondError(w, status, kind, te.Message)
	}

	h.recordMetrics(ctx, method, route, status, start)
}

func (h *TaskHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func (h *TaskHandler) respondError(w http.ResponseWriter, status int, kind model.ErrorKind, message string) {
	if kind == "" {
		kind = "internal"
	}
	h.respondJSON(w, status, ErrorResponse{Error: string(kind), Message: message})
}

func (h *TaskHandler) recordMetrics(ctx context.Context, method, route string, status int, start time.Time) {
	duration := time.Since(start).Seconds()

	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)

	h.metrics.RequestCounter.Add(ctx, 1, attrs)
	h.metrics.RequestDuration.Record(ctx, duration, attrs)
}

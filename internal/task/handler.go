package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/stride-hq/kanban-api/internal/httputil"
	"github.com/stride-hq/kanban-api/internal/logging"
	"github.com/stride-hq/kanban-api/internal/session"
)

// Handler contains HTTP handlers for the task board endpoints. All of them
// require an authenticated identity in the request context.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CreateTaskRequest represents the task creation request body
type CreateTaskRequest struct {
	Text     string  `json:"text"`
	Priority string  `json:"priority"`
	DueDate  *string `json:"dueDate"`
	Labels   string  `json:"labels"`
	ColumnID string  `json:"columnId"`
}

// UpdateTaskRequest represents the task update request body. It carries both
// the single-update patch fields and the batch variants; `batch` selects the
// mode. The original client sent the column under either key, so both are
// accepted.
type UpdateTaskRequest struct {
	Batch      bool    `json:"batch"`
	IDs        []int64 `json:"ids"`
	TasksOrder []Move  `json:"tasks_order"`

	ID          int64            `json:"id"`
	Text        *string          `json:"text"`
	Priority    *string          `json:"priority"`
	DueDate     Optional[string] `json:"dueDate"`
	Labels      *string          `json:"labels"`
	ColumnID    *string          `json:"columnId"`
	ColumnIDAlt *string          `json:"column_id"`
	SortOrder   *int             `json:"sort_order"`
	IsArchived  *bool            `json:"is_archived"`
}

// DeleteTasksRequest represents the batch delete request body
type DeleteTasksRequest struct {
	Batch bool    `json:"batch"`
	IDs   []int64 `json:"ids"`
}

// CreateTaskResponse wraps a created task
type CreateTaskResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Task    *Task  `json:"task"`
}

// List handles GET /tasks
// @Summary      List tasks
// @Description  List the authenticated user's tasks. Active tasks are grouped by column; archived tasks are a flat list.
// @Tags         tasks
// @Produce      json
// @Param        archived query bool false "List archived tasks instead of the board"
// @Success      200 {object} Board
// @Failure      401 {object} httputil.ErrorResponse "Not authenticated"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /tasks [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	ident := session.IdentityFromContext(r.Context())

	if r.URL.Query().Get("archived") == "true" {
		tasks, err := h.service.ListArchived(r.Context(), ident.UserID)
		if err != nil {
			logger.Error("failed to list archived tasks", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to list tasks", httputil.CodeInternalError, http.StatusInternalServerError)
			return
		}
		httputil.RespondJSON(w, map[string][]Task{"archived": tasks}, http.StatusOK)
		return
	}

	board, err := h.service.ListBoard(r.Context(), ident.UserID)
	if err != nil {
		logger.Error("failed to list board", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to list tasks", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, board, http.StatusOK)
}

// Create handles POST /tasks
// @Summary      Create a task
// @Description  Create a task at the tail of its column.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        request body CreateTaskRequest true "Task fields"
// @Success      201 {object} CreateTaskResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse "Not authenticated"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /tasks [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	ident := session.IdentityFromContext(r.Context())

	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid create task request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	created, err := h.service.Create(r.Context(), ident.UserID, CreateParams{
		Text:     req.Text,
		Priority: req.Priority,
		DueDate:  req.DueDate,
		Labels:   req.Labels,
		ColumnID: req.ColumnID,
	})
	if err != nil {
		h.respondServiceError(w, r, "create task", err)
		return
	}

	logger.Info("task created", "task_id", created.ID, "column", *created.ColumnID)

	httputil.RespondJSON(w, CreateTaskResponse{
		Success: true,
		Message: "Task added.",
		Task:    created,
	}, http.StatusCreated)
}

// Update handles PUT /tasks for single patches, batch archive transitions,
// and board reordering.
// @Summary      Update tasks
// @Description  Apply a partial update to one task, or a batch archive/reorder operation.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        request body UpdateTaskRequest true "Patch or batch operation"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse "Not authenticated"
// @Failure      404 {object} httputil.ErrorResponse "Task not found"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /tasks [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	ident := session.IdentityFromContext(r.Context())

	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid update task request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if req.Batch {
		h.handleBatchUpdate(w, r, ident.UserID, &req)
		return
	}

	if req.ID <= 0 {
		httputil.RespondErrorWithCode(w, "task id is required", httputil.CodeTaskIDRequired, http.StatusBadRequest)
		return
	}

	columnID := req.ColumnID
	if columnID == nil {
		columnID = req.ColumnIDAlt
	}

	err := h.service.Update(r.Context(), ident.UserID, req.ID, Patch{
		Text:       req.Text,
		Priority:   req.Priority,
		DueDate:    req.DueDate,
		Labels:     req.Labels,
		ColumnID:   columnID,
		SortOrder:  req.SortOrder,
		IsArchived: req.IsArchived,
	})
	if err != nil {
		h.respondServiceError(w, r, "update task", err)
		return
	}

	httputil.RespondJSON(w, map[string]any{"success": true, "message": "Task updated."}, http.StatusOK)
}

func (h *Handler) handleBatchUpdate(w http.ResponseWriter, r *http.Request, userID int64, req *UpdateTaskRequest) {
	logger := logging.GetLoggerFromContext(r.Context())

	switch {
	case len(req.TasksOrder) > 0:
		if err := h.service.Reorder(r.Context(), userID, req.TasksOrder); err != nil {
			h.respondServiceError(w, r, "reorder tasks", err)
			return
		}
		logger.Info("tasks reordered", "count", len(req.TasksOrder))
		httputil.RespondJSON(w, map[string]any{"success": true, "message": "Task order updated."}, http.StatusOK)

	case req.IsArchived != nil:
		if err := h.service.BatchSetArchived(r.Context(), userID, req.IDs, *req.IsArchived); err != nil {
			h.respondServiceError(w, r, "batch archive tasks", err)
			return
		}
		logger.Info("tasks archive state changed", "count", len(req.IDs), "archived", *req.IsArchived)
		httputil.RespondJSON(w, map[string]any{
			"success": true,
			"message": fmt.Sprintf("%d tasks updated.", len(req.IDs)),
		}, http.StatusOK)

	default:
		httputil.RespondErrorWithCode(w, "batch update type not specified", httputil.CodeInvalidBatch, http.StatusBadRequest)
	}
}

// Delete handles DELETE /tasks for both the single (query param) and batch
// (body) variants.
// @Summary      Delete tasks
// @Description  Delete one task by query id, or a batch by body ids. Batch reports the count actually deleted.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        id query int false "Task id for single delete"
// @Param        request body DeleteTasksRequest false "Batch delete"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse "Not authenticated"
// @Failure      404 {object} httputil.ErrorResponse "Task not found"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /tasks [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	ident := session.IdentityFromContext(r.Context())

	var req DeleteTasksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.Batch {
		deleted, err := h.service.BatchDelete(r.Context(), ident.UserID, req.IDs)
		if err != nil {
			h.respondServiceError(w, r, "batch delete tasks", err)
			return
		}
		logger.Info("tasks deleted", "count", deleted)
		httputil.RespondJSON(w, map[string]any{
			"success": true,
			"deleted": deleted,
			"message": fmt.Sprintf("%d task(s) deleted.", deleted),
		}, http.StatusOK)
		return
	}

	rawID := r.URL.Query().Get("id")
	taskID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || taskID <= 0 {
		httputil.RespondErrorWithCode(w, "task id is required in query string for single delete", httputil.CodeTaskIDRequired, http.StatusBadRequest)
		return
	}

	if err := h.service.Delete(r.Context(), ident.UserID, taskID); err != nil {
		h.respondServiceError(w, r, "delete task", err)
		return
	}

	logger.Info("task deleted", "task_id", taskID)
	httputil.RespondJSON(w, map[string]any{"success": true, "message": "Task deleted."}, http.StatusOK)
}

// respondServiceError maps service errors onto the HTTP error taxonomy.
// Storage failures are logged with detail and surfaced generically.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger := logging.GetLoggerFromContext(r.Context())

	switch {
	case errors.Is(err, ErrTextRequired):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeTaskTextRequired, http.StatusBadRequest)
	case errors.Is(err, ErrInvalidColumn):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidColumn, http.StatusBadRequest)
	case errors.Is(err, ErrInvalidPriority):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidPriority, http.StatusBadRequest)
	case errors.Is(err, ErrInvalidDueDate):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidDueDate, http.StatusBadRequest)
	case errors.Is(err, ErrNoFields):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeNoFieldsToUpdate, http.StatusBadRequest)
	case errors.Is(err, ErrEmptyBatch), errors.Is(err, ErrInvalidTaskID), errors.Is(err, ErrInvalidMove):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidBatch, http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		httputil.RespondErrorWithCode(w, "task not found or not owned by user", httputil.CodeTaskNotFound, http.StatusNotFound)
	default:
		logger.Error(op+" failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to "+op, httputil.CodeInternalError, http.StatusInternalServerError)
	}
}

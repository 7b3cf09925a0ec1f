package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stride-hq/kanban-api/internal/httputil"
	"github.com/stride-hq/kanban-api/internal/logging"
	"github.com/stride-hq/kanban-api/internal/session"
	"github.com/stride-hq/kanban-api/internal/task"
	"github.com/stride-hq/kanban-api/internal/user"
)

// UserStore is the user persistence surface the admin endpoints need.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
	ListWithTaskCounts(ctx context.Context) ([]user.WithTaskCounts, error)
	SetAdmin(ctx context.Context, userID int64, isAdmin bool) error
	DeleteWithTasks(ctx context.Context, userID int64) error
}

// TaskLister exposes the full per-user task listing.
type TaskLister interface {
	ListAllForUser(ctx context.Context, userID int64) ([]task.Task, error)
}

// SessionRevoker destroys a deleted user's sessions.
type SessionRevoker interface {
	DestroyAllForUser(ctx context.Context, userID int64) error
}

// ResetTokenCleaner removes a deleted user's outstanding reset tokens.
type ResetTokenCleaner interface {
	DeleteForEmail(ctx context.Context, email string) error
}

// Handler contains the admin-only HTTP handlers. Routes are mounted behind
// the auth and admin middlewares; every request carries an admin identity.
type Handler struct {
	users    UserStore
	tasks    TaskLister
	sessions SessionRevoker
	resets   ResetTokenCleaner
}

func NewHandler(users UserStore, tasks TaskLister, sessions SessionRevoker, resets ResetTokenCleaner) *Handler {
	return &Handler{users: users, tasks: tasks, sessions: sessions, resets: resets}
}

// ToggleAdminRequest represents the privilege toggle request body
type ToggleAdminRequest struct {
	UserID    int64 `json:"user_id"`
	MakeAdmin bool  `json:"make_admin"`
}

// UsersResponse wraps the user listing
type UsersResponse struct {
	Success bool                  `json:"success"`
	Users   []user.WithTaskCounts `json:"users"`
}

// UserTasksResponse wraps a user's full task list
type UserTasksResponse struct {
	Success   bool        `json:"success"`
	UserEmail string      `json:"user_email"`
	Tasks     []task.Task `json:"tasks"`
}

// ListUsers handles GET /admin/users
// @Summary      List users
// @Description  List all users with active/total task counts, newest first.
// @Tags         admin
// @Produce      json
// @Success      200 {object} UsersResponse
// @Failure      401 {object} httputil.ErrorResponse "Not authenticated"
// @Failure      403 {object} httputil.ErrorResponse "Admin privileges required"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /admin/users [get]
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	users, err := h.users.ListWithTaskCounts(r.Context())
	if err != nil {
		logger.Error("failed to list users", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to fetch users", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, UsersResponse{Success: true, Users: users}, http.StatusOK)
}

// ListUserTasks handles GET /admin/users/{id}/tasks
// @Summary      List a user's tasks
// @Description  List every task of the target user, archived included, plus the user's email for display.
// @Tags         admin
// @Produce      json
// @Param        id path int true "Target user id"
// @Success      200 {object} UserTasksResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid user id"
// @Failure      404 {object} httputil.ErrorResponse "User not found"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /admin/users/{id}/tasks [get]
func (h *Handler) ListUserTasks(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	targetID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || targetID <= 0 {
		httputil.RespondErrorWithCode(w, "invalid target user id", httputil.CodeInvalidUserID, http.StatusBadRequest)
		return
	}

	target, err := h.users.GetByID(r.Context(), targetID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			httputil.RespondErrorWithCode(w, "user not found", httputil.CodeUserNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to get user", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to fetch user tasks", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	tasks, err := h.tasks.ListAllForUser(r.Context(), targetID)
	if err != nil {
		logger.Error("failed to list user tasks", "error", err.Error(), "target_user_id", targetID)
		httputil.RespondErrorWithCode(w, "failed to fetch user tasks", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, UserTasksResponse{
		Success:   true,
		UserEmail: target.Email,
		Tasks:     tasks,
	}, http.StatusOK)
}

// ToggleAdmin handles POST /admin/toggle_admin
// @Summary      Toggle admin status
// @Description  Grant or revoke admin privileges. Admins cannot change their own status.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        request body ToggleAdminRequest true "Target user and desired status"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} httputil.ErrorResponse "Invalid or self-targeting request"
// @Failure      404 {object} httputil.ErrorResponse "User not found"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /admin/toggle_admin [post]
func (h *Handler) ToggleAdmin(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	ident := session.IdentityFromContext(r.Context())

	var req ToggleAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if req.UserID <= 0 {
		httputil.RespondErrorWithCode(w, "invalid user id", httputil.CodeInvalidUserID, http.StatusBadRequest)
		return
	}
	if req.UserID == ident.UserID {
		httputil.RespondErrorWithCode(w, "cannot change own admin status", httputil.CodeSelfModification, http.StatusBadRequest)
		return
	}

	if err := h.users.SetAdmin(r.Context(), req.UserID, req.MakeAdmin); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			httputil.RespondErrorWithCode(w, "user not found", httputil.CodeUserNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to toggle admin status", "error", err.Error(), "target_user_id", req.UserID)
		httputil.RespondErrorWithCode(w, "failed to update user admin status", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("admin status changed", "target_user_id", req.UserID, "is_admin", req.MakeAdmin)

	httputil.RespondJSON(w, map[string]any{"success": true, "message": "User admin status updated."}, http.StatusOK)
}

// DeleteUser handles DELETE /admin/users/{id}
// @Summary      Delete a user
// @Description  Delete a user and all of their tasks transactionally. Admins cannot delete themselves.
// @Tags         admin
// @Produce      json
// @Param        id path int true "Target user id"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} httputil.ErrorResponse "Invalid or self-targeting request"
// @Failure      404 {object} httputil.ErrorResponse "User not found"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /admin/users/{id} [delete]
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	ident := session.IdentityFromContext(r.Context())

	targetID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || targetID <= 0 {
		httputil.RespondErrorWithCode(w, "invalid user id for deletion", httputil.CodeInvalidUserID, http.StatusBadRequest)
		return
	}
	if targetID == ident.UserID {
		httputil.RespondErrorWithCode(w, "cannot delete own account", httputil.CodeSelfModification, http.StatusBadRequest)
		return
	}

	target, err := h.users.GetByID(r.Context(), targetID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			httputil.RespondErrorWithCode(w, "user not found", httputil.CodeUserNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to get user for deletion", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to delete user", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	if err := h.users.DeleteWithTasks(r.Context(), targetID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			httputil.RespondErrorWithCode(w, "user not found", httputil.CodeUserNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to delete user", "error", err.Error(), "target_user_id", targetID)
		httputil.RespondErrorWithCode(w, "failed to delete user", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	// Best-effort cleanup outside the transaction: the account is gone either
	// way.
	if err := h.resets.DeleteForEmail(r.Context(), target.Email); err != nil {
		logger.Warn("failed to delete reset tokens for deleted user", "error", err.Error())
	}
	if err := h.sessions.DestroyAllForUser(r.Context(), targetID); err != nil {
		logger.Warn("failed to destroy sessions for deleted user", "error", err.Error())
	}

	logger.Info("user deleted", "target_user_id", targetID)

	httputil.RespondJSON(w, map[string]any{"success": true, "message": "User and their associated data deleted successfully."}, http.StatusOK)
}

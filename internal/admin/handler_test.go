package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stride-hq/kanban-api/internal/httputil"
	"github.com/stride-hq/kanban-api/internal/session"
	"github.com/stride-hq/kanban-api/internal/task"
	"github.com/stride-hq/kanban-api/internal/user"
)

type fakeUserStore struct {
	users map[int64]*user.User

	adminSet struct {
		userID  int64
		isAdmin bool
	}
	deletedUserID int64
}

func (f *fakeUserStore) GetByID(ctx context.Context, id int64) (*user.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) ListWithTaskCounts(ctx context.Context) ([]user.WithTaskCounts, error) {
	out := make([]user.WithTaskCounts, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, user.WithTaskCounts{ID: u.ID, Email: u.Email, IsAdmin: u.IsAdmin})
	}
	return out, nil
}

func (f *fakeUserStore) SetAdmin(ctx context.Context, userID int64, isAdmin bool) error {
	if _, ok := f.users[userID]; !ok {
		return user.ErrNotFound
	}
	f.adminSet.userID = userID
	f.adminSet.isAdmin = isAdmin
	return nil
}

func (f *fakeUserStore) DeleteWithTasks(ctx context.Context, userID int64) error {
	if _, ok := f.users[userID]; !ok {
		return user.ErrNotFound
	}
	delete(f.users, userID)
	f.deletedUserID = userID
	return nil
}

type fakeTaskLister struct {
	tasks []task.Task
}

func (f *fakeTaskLister) ListAllForUser(ctx context.Context, userID int64) ([]task.Task, error) {
	return f.tasks, nil
}

type fakeSessionRevoker struct {
	destroyedUserIDs []int64
}

func (f *fakeSessionRevoker) DestroyAllForUser(ctx context.Context, userID int64) error {
	f.destroyedUserIDs = append(f.destroyedUserIDs, userID)
	return nil
}

type fakeResetCleaner struct {
	deletedEmails []string
}

func (f *fakeResetCleaner) DeleteForEmail(ctx context.Context, email string) error {
	f.deletedEmails = append(f.deletedEmails, email)
	return nil
}

func newTestHandler() (*Handler, *fakeUserStore, *fakeSessionRevoker, *fakeResetCleaner) {
	users := &fakeUserStore{users: map[int64]*user.User{
		1: {ID: 1, Email: "admin@example.com", IsAdmin: true},
		2: {ID: 2, Email: "member@example.com"},
	}}
	sessions := &fakeSessionRevoker{}
	resets := &fakeResetCleaner{}
	h := NewHandler(users, &fakeTaskLister{tasks: []task.Task{{ID: 10}}}, sessions, resets)
	return h, users, sessions, resets
}

// doAdminRequest runs the handler as user 1 (an admin) with an optional chi
// route parameter.
func doAdminRequest(t *testing.T, handler http.HandlerFunc, method, target, body, paramID string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := session.ContextWithIdentity(req.Context(), &session.Identity{UserID: 1, Email: "admin@example.com", IsAdmin: true})

	if paramID != "" {
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("id", paramID)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	}

	rec := httptest.NewRecorder()
	handler(rec, req.WithContext(ctx))
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()

	var resp httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestListUsers(t *testing.T) {
	h, _, _, _ := newTestHandler()

	rec := doAdminRequest(t, h.ListUsers, http.MethodGet, "/admin/users", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp UsersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Len(t, resp.Users, 2)
}

func TestListUserTasks(t *testing.T) {
	h, _, _, _ := newTestHandler()

	rec := doAdminRequest(t, h.ListUserTasks, http.MethodGet, "/admin/users/2/tasks", "", "2")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp UserTasksResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "member@example.com", resp.UserEmail)
	assert.Len(t, resp.Tasks, 1)
}

func TestListUserTasksUnknownUser(t *testing.T) {
	h, _, _, _ := newTestHandler()

	rec := doAdminRequest(t, h.ListUserTasks, http.MethodGet, "/admin/users/99/tasks", "", "99")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, httputil.CodeUserNotFound, decodeError(t, rec).Code)
}

func TestToggleAdmin(t *testing.T) {
	h, users, _, _ := newTestHandler()

	rec := doAdminRequest(t, h.ToggleAdmin, http.MethodPost, "/admin/toggle_admin", `{"user_id": 2, "make_admin": true}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(2), users.adminSet.userID)
	assert.True(t, users.adminSet.isAdmin)
}

func TestToggleAdminRejectsSelf(t *testing.T) {
	h, _, _, _ := newTestHandler()

	rec := doAdminRequest(t, h.ToggleAdmin, http.MethodPost, "/admin/toggle_admin", `{"user_id": 1, "make_admin": false}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeSelfModification, decodeError(t, rec).Code)
}

func TestToggleAdminUnknownUser(t *testing.T) {
	h, _, _, _ := newTestHandler()

	rec := doAdminRequest(t, h.ToggleAdmin, http.MethodPost, "/admin/toggle_admin", `{"user_id": 99, "make_admin": true}`, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, httputil.CodeUserNotFound, decodeError(t, rec).Code)
}

func TestDeleteUserCleansUp(t *testing.T) {
	h, users, sessions, resets := newTestHandler()

	rec := doAdminRequest(t, h.DeleteUser, http.MethodDelete, "/admin/users/2", "", "2")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, int64(2), users.deletedUserID)
	assert.Equal(t, []string{"member@example.com"}, resets.deletedEmails)
	assert.Equal(t, []int64{2}, sessions.destroyedUserIDs)
}

func TestDeleteUserRejectsSelf(t *testing.T) {
	h, users, _, _ := newTestHandler()

	rec := doAdminRequest(t, h.DeleteUser, http.MethodDelete, "/admin/users/1", "", "1")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeSelfModification, decodeError(t, rec).Code)
	assert.Zero(t, users.deletedUserID)
}

func TestDeleteUserInvalidID(t *testing.T) {
	h, _, _, _ := newTestHandler()

	rec := doAdminRequest(t, h.DeleteUser, http.MethodDelete, "/admin/users/abc", "", "abc")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeInvalidUserID, decodeError(t, rec).Code)
}

package task

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stride-hq/kanban-api/internal/httputil"
	"github.com/stride-hq/kanban-api/internal/session"
)

func doRequest(t *testing.T, handler http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := session.ContextWithIdentity(req.Context(), &session.Identity{UserID: 7, Email: "a@example.com"})
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

func TestListReturnsBoard(t *testing.T) {
	repo := &fakeRepo{active: []Task{
		{ID: 1, ColumnID: col(ColumnTodo)},
		{ID: 2, ColumnID: col(ColumnDone)},
	}}
	h := NewHandler(NewService(repo))

	rec := doRequest(t, h.List, http.MethodGet, "/tasks", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var board Board
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &board))
	assert.Len(t, board.Todo, 1)
	assert.Len(t, board.Done, 1)
	assert.Empty(t, board.InProgress)
}

func TestListArchivedFlag(t *testing.T) {
	repo := &fakeRepo{archived: []Task{{ID: 9, IsArchived: true}}}
	h := NewHandler(NewService(repo))

	rec := doRequest(t, h.List, http.MethodGet, "/tasks?archived=true", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string][]Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp, "archived")
	assert.Len(t, resp["archived"], 1)
}

func TestCreateRejectsMissingText(t *testing.T) {
	h := NewHandler(NewService(&fakeRepo{}))

	rec := doRequest(t, h.Create, http.MethodPost, "/tasks", `{"text": "  "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeTaskTextRequired, decodeError(t, rec).Code)
}

func TestCreateReturnsTask(t *testing.T) {
	repo := &fakeRepo{}
	h := NewHandler(NewService(repo))

	rec := doRequest(t, h.Create, http.MethodPost, "/tasks", `{"text": "write tests", "priority": "high", "columnId": "inprogress"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp CreateTaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Task)
	assert.Equal(t, "write tests", resp.Task.Text)
	assert.Equal(t, "high", repo.created.priority)
	assert.Equal(t, "inprogress", repo.created.columnID)
}

func TestUpdateRequiresTaskID(t *testing.T) {
	h := NewHandler(NewService(&fakeRepo{}))

	rec := doRequest(t, h.Update, http.MethodPut, "/tasks", `{"text": "x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeTaskIDRequired, decodeError(t, rec).Code)
}

func TestUpdateAcceptsBothColumnKeys(t *testing.T) {
	repo := &fakeRepo{}
	h := NewHandler(NewService(repo))

	rec := doRequest(t, h.Update, http.MethodPut, "/tasks", `{"id": 3, "columnId": "done"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, repo.updatedSpec)
	assert.Equal(t, "done", *repo.updatedSpec.Column)

	rec = doRequest(t, h.Update, http.MethodPut, "/tasks", `{"id": 3, "column_id": "inprogress"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "inprogress", *repo.updatedSpec.Column)
}

func TestUpdateBatchDispatch(t *testing.T) {
	t.Run("reorder", func(t *testing.T) {
		repo := &fakeRepo{}
		h := NewHandler(NewService(repo))

		body := `{"batch": true, "tasks_order": [{"id": 1, "columnId": "todo", "sortOrder": 0}]}`
		rec := doRequest(t, h.Update, http.MethodPut, "/tasks", body)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, repo.reorderMoves, 1)
	})

	t.Run("archive", func(t *testing.T) {
		repo := &fakeRepo{}
		h := NewHandler(NewService(repo))

		body := `{"batch": true, "ids": [1, 2], "is_archived": true}`
		rec := doRequest(t, h.Update, http.MethodPut, "/tasks", body)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, repo.batchSpecs, 2)
	})

	t.Run("unspecified batch type", func(t *testing.T) {
		h := NewHandler(NewService(&fakeRepo{}))

		rec := doRequest(t, h.Update, http.MethodPut, "/tasks", `{"batch": true, "ids": [1]}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, httputil.CodeInvalidBatch, decodeError(t, rec).Code)
	})
}

func TestDeleteSingleByQuery(t *testing.T) {
	repo := &fakeRepo{}
	h := NewHandler(NewService(repo))

	rec := doRequest(t, h.Delete, http.MethodDelete, "/tasks?id=12", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{12}, repo.deletedIDs)
}

func TestDeleteRequiresID(t *testing.T) {
	h := NewHandler(NewService(&fakeRepo{}))

	rec := doRequest(t, h.Delete, http.MethodDelete, "/tasks", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeTaskIDRequired, decodeError(t, rec).Code)
}

func TestDeleteBatch(t *testing.T) {
	repo := &fakeRepo{}
	h := NewHandler(NewService(repo))

	rec := doRequest(t, h.Delete, http.MethodDelete, "/tasks", `{"batch": true, "ids": [4, 5, 6]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(3), resp["deleted"])
	assert.Equal(t, []int64{4, 5, 6}, repo.deletedIDs)
}

package task

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo records the calls the service makes so tests can assert on the
// resolved specs without a database.
type fakeRepo struct {
	active   []Task
	archived []Task

	created struct {
		text, priority, labels, columnID string
		dueDate                          *time.Time
	}
	updatedSpec  *UpdateSpec
	updatedID    int64
	batchSpecs   map[int64]UpdateSpec
	reorderMoves []Move
	deletedIDs   []int64
}

func (f *fakeRepo) ListActive(ctx context.Context, userID int64) ([]Task, error) {
	return f.active, nil
}

func (f *fakeRepo) ListArchived(ctx context.Context, userID int64) ([]Task, error) {
	return f.archived, nil
}

func (f *fakeRepo) ListAllForUser(ctx context.Context, userID int64) ([]Task, error) {
	return append(f.active, f.archived...), nil
}

func (f *fakeRepo) Create(ctx context.Context, userID int64, text, priority string, dueDate *time.Time, labels, columnID string) (*Task, error) {
	f.created.text = text
	f.created.priority = priority
	f.created.dueDate = dueDate
	f.created.labels = labels
	f.created.columnID = columnID
	sort := 0
	return &Task{ID: 1, UserID: userID, Text: text, Priority: priority, ColumnID: &columnID, SortOrder: &sort}, nil
}

func (f *fakeRepo) Update(ctx context.Context, userID, taskID int64, spec UpdateSpec) error {
	f.updatedID = taskID
	f.updatedSpec = &spec
	return nil
}

func (f *fakeRepo) BatchUpdate(ctx context.Context, userID int64, specs map[int64]UpdateSpec) error {
	f.batchSpecs = specs
	return nil
}

func (f *fakeRepo) Reorder(ctx context.Context, userID int64, moves []Move) error {
	f.reorderMoves = moves
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, userID, taskID int64) error {
	f.deletedIDs = append(f.deletedIDs, taskID)
	return nil
}

func (f *fakeRepo) BatchDelete(ctx context.Context, userID int64, ids []int64) (int64, error) {
	f.deletedIDs = append(f.deletedIDs, ids...)
	return int64(len(ids)), nil
}

func col(c Column) *string {
	s := string(c)
	return &s
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(&fakeRepo{})
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, CreateParams{Text: "   "})
	assert.ErrorIs(t, err, ErrTextRequired)

	_, err = svc.Create(ctx, 1, CreateParams{Text: "x", Priority: "urgent"})
	assert.ErrorIs(t, err, ErrInvalidPriority)

	_, err = svc.Create(ctx, 1, CreateParams{Text: "x", ColumnID: "backlog"})
	assert.ErrorIs(t, err, ErrInvalidColumn)

	bad := "01-03-2026"
	_, err = svc.Create(ctx, 1, CreateParams{Text: "x", DueDate: &bad})
	assert.ErrorIs(t, err, ErrInvalidDueDate)
}

func TestCreateDefaults(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	created, err := svc.Create(context.Background(), 1, CreateParams{Text: "  buy milk  "})
	require.NoError(t, err)

	assert.Equal(t, "buy milk", repo.created.text)
	assert.Equal(t, PriorityLow, repo.created.priority)
	assert.Equal(t, string(ColumnTodo), repo.created.columnID)
	assert.Nil(t, repo.created.dueDate)
	assert.Equal(t, "buy milk", created.Text)
}

func TestCreateParsesDueDate(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	due := "2026-09-15"
	_, err := svc.Create(context.Background(), 1, CreateParams{Text: "x", DueDate: &due})
	require.NoError(t, err)

	require.NotNil(t, repo.created.dueDate)
	assert.Equal(t, "2026-09-15", repo.created.dueDate.Format(DateLayout))
}

func TestListBoardGroupsByColumn(t *testing.T) {
	repo := &fakeRepo{active: []Task{
		{ID: 1, ColumnID: col(ColumnTodo)},
		{ID: 2, ColumnID: col(ColumnDone)},
		{ID: 3, ColumnID: col(ColumnTodo)},
		{ID: 4, ColumnID: col(ColumnInProgress)},
	}}
	svc := NewService(repo)

	board, err := svc.ListBoard(context.Background(), 1)
	require.NoError(t, err)

	assert.Len(t, board.Todo, 2)
	assert.Len(t, board.InProgress, 1)
	assert.Len(t, board.Done, 1)
	assert.Equal(t, int64(1), board.Todo[0].ID)
	assert.Equal(t, int64(3), board.Todo[1].ID)
}

func TestUpdateEmptyPatch(t *testing.T) {
	svc := NewService(&fakeRepo{})

	err := svc.Update(context.Background(), 1, 5, Patch{})
	assert.ErrorIs(t, err, ErrNoFields)
}

func TestUpdateArchiveClearsBoardPosition(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	archived := true
	sort := 3
	err := svc.Update(context.Background(), 1, 5, Patch{
		IsArchived: &archived,
		ColumnID:   col(ColumnDone),
		SortOrder:  &sort,
	})
	require.NoError(t, err)

	spec := repo.updatedSpec
	require.NotNil(t, spec)
	assert.True(t, *spec.Archived)
	assert.True(t, spec.ClearBoardPosition)
	assert.Nil(t, spec.Column)
	assert.Nil(t, spec.SortOrder)
}

func TestUpdateUnarchiveDefaultsToTodoTail(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	archived := false
	err := svc.Update(context.Background(), 1, 5, Patch{IsArchived: &archived})
	require.NoError(t, err)

	spec := repo.updatedSpec
	require.NotNil(t, spec)
	assert.False(t, *spec.Archived)
	require.NotNil(t, spec.Column)
	assert.Equal(t, string(ColumnTodo), *spec.Column)
	assert.True(t, spec.AssignTrailingSort)
	assert.Equal(t, string(ColumnTodo), spec.TrailingColumn)
}

func TestUpdateUnarchiveHonorsExplicitDestination(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	archived := false
	sort := 2
	err := svc.Update(context.Background(), 1, 5, Patch{
		IsArchived: &archived,
		ColumnID:   col(ColumnInProgress),
		SortOrder:  &sort,
	})
	require.NoError(t, err)

	spec := repo.updatedSpec
	require.NotNil(t, spec)
	require.NotNil(t, spec.Column)
	assert.Equal(t, string(ColumnInProgress), *spec.Column)
	require.NotNil(t, spec.SortOrder)
	assert.Equal(t, 2, *spec.SortOrder)
	assert.False(t, spec.AssignTrailingSort)
}

func TestUpdateDueDateTriState(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	// Explicit null clears the date.
	err := svc.Update(ctx, 1, 5, Patch{DueDate: Optional[string]{Present: true}})
	require.NoError(t, err)
	require.NotNil(t, repo.updatedSpec)
	assert.True(t, repo.updatedSpec.SetDueDate)
	assert.Nil(t, repo.updatedSpec.DueDate)

	// A value sets it.
	err = svc.Update(ctx, 1, 5, Patch{DueDate: Optional[string]{Present: true, Valid: true, Value: "2026-01-31"}})
	require.NoError(t, err)
	require.NotNil(t, repo.updatedSpec.DueDate)
	assert.Equal(t, "2026-01-31", repo.updatedSpec.DueDate.Format(DateLayout))

	// Garbage is rejected.
	err = svc.Update(ctx, 1, 5, Patch{DueDate: Optional[string]{Present: true, Valid: true, Value: "soon"}})
	assert.ErrorIs(t, err, ErrInvalidDueDate)
}

func TestUpdateRejectsInvalidFields(t *testing.T) {
	svc := NewService(&fakeRepo{})
	ctx := context.Background()

	empty := ""
	assert.ErrorIs(t, svc.Update(ctx, 1, 5, Patch{Text: &empty}), ErrTextRequired)

	prio := "critical"
	assert.ErrorIs(t, svc.Update(ctx, 1, 5, Patch{Priority: &prio}), ErrInvalidPriority)

	column := "icebox"
	assert.ErrorIs(t, svc.Update(ctx, 1, 5, Patch{ColumnID: &column}), ErrInvalidColumn)
}

func TestBatchSetArchived(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	assert.ErrorIs(t, svc.BatchSetArchived(ctx, 1, nil, true), ErrEmptyBatch)
	assert.ErrorIs(t, svc.BatchSetArchived(ctx, 1, []int64{1, 0}, true), ErrInvalidTaskID)

	require.NoError(t, svc.BatchSetArchived(ctx, 1, []int64{1, 2}, true))
	require.Len(t, repo.batchSpecs, 2)
	for _, spec := range repo.batchSpecs {
		assert.True(t, *spec.Archived)
		assert.True(t, spec.ClearBoardPosition)
	}

	require.NoError(t, svc.BatchSetArchived(ctx, 1, []int64{3}, false))
	spec := repo.batchSpecs[3]
	assert.False(t, *spec.Archived)
	require.NotNil(t, spec.Column)
	assert.Equal(t, string(ColumnTodo), *spec.Column)
	assert.True(t, spec.AssignTrailingSort)
}

func TestReorderValidatesBeforeWriting(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Reorder(ctx, 1, nil), ErrEmptyBatch)

	err := svc.Reorder(ctx, 1, []Move{
		{ID: 1, ColumnID: "todo", SortOrder: 0},
		{ID: 0, ColumnID: "todo", SortOrder: 1},
	})
	assert.ErrorIs(t, err, ErrInvalidMove)
	assert.Nil(t, repo.reorderMoves, "no write after a failed validation")

	err = svc.Reorder(ctx, 1, []Move{{ID: 1, ColumnID: "later", SortOrder: 0}})
	assert.ErrorIs(t, err, ErrInvalidMove)

	err = svc.Reorder(ctx, 1, []Move{{ID: 1, ColumnID: "done", SortOrder: -1}})
	assert.ErrorIs(t, err, ErrInvalidMove)

	moves := []Move{
		{ID: 1, ColumnID: "done", SortOrder: 0},
		{ID: 2, ColumnID: "todo", SortOrder: 1},
	}
	require.NoError(t, svc.Reorder(ctx, 1, moves))
	assert.Equal(t, moves, repo.reorderMoves)
}

func TestBatchDeleteRequiresIDs(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	_, err := svc.BatchDelete(context.Background(), 1, nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)

	deleted, err := svc.BatchDelete(context.Background(), 1, []int64{4, 5})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
}

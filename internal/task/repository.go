package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/stride-hq/kanban-api/internal/database"
)

var ErrNotFound = errors.New("task not found or not owned by user")

// nextSortOrderExpr computes the trailing position for a (user, column) lane
// inside the statement that uses it, so concurrent writers serialize on the
// row write instead of racing between a read and a write.
const nextSortOrderExpr = "(SELECT COALESCE(MAX(sort_order) + 1, 0) FROM tasks WHERE user_id = ? AND column_id = ? AND is_archived = FALSE)"

// UpdateSpec is a fully resolved partial update, produced by the service from
// a validated Patch. Exactly the listed assignments are applied; ownership is
// enforced by the (id, user_id) filter on the statement itself.
type UpdateSpec struct {
	Text     *string
	Priority *string
	Labels   *string

	SetDueDate bool
	DueDate    *time.Time

	Column    *string
	SortOrder *int

	Archived *bool
	// ClearBoardPosition nulls column/sort (archiving).
	ClearBoardPosition bool
	// AssignTrailingSort computes a trailing sort_order for TrailingColumn
	// (un-archiving without an explicit position).
	AssignTrailingSort bool
	TrailingColumn     string
}

// IsEmpty reports whether the spec assigns nothing.
func (s UpdateSpec) IsEmpty() bool {
	return s.Text == nil && s.Priority == nil && s.Labels == nil &&
		!s.SetDueDate && s.Column == nil && s.SortOrder == nil &&
		s.Archived == nil && !s.ClearBoardPosition && !s.AssignTrailingSort
}

// Repository handles task persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// ListActive returns the user's non-archived tasks ordered for board display.
func (r *Repository) ListActive(ctx context.Context, userID int64) ([]Task, error) {
	var dbTasks []database.Task
	err := r.db.NewSelect().
		Model(&dbTasks).
		Where("user_id = ?", userID).
		Where("is_archived = ?", false).
		OrderExpr("column_id ASC, sort_order ASC, created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list active tasks: %w", err)
	}

	return mapDBTasks(dbTasks), nil
}

// ListArchived returns the user's archived tasks, most recently updated first.
func (r *Repository) ListArchived(ctx context.Context, userID int64) ([]Task, error) {
	var dbTasks []database.Task
	err := r.db.NewSelect().
		Model(&dbTasks).
		Where("user_id = ?", userID).
		Where("is_archived = ?", true).
		OrderExpr("updated_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list archived tasks: %w", err)
	}

	return mapDBTasks(dbTasks), nil
}

// ListAllForUser returns every task of a user, archived included, in the
// ordering the admin view displays.
func (r *Repository) ListAllForUser(ctx context.Context, userID int64) ([]Task, error) {
	var dbTasks []database.Task
	err := r.db.NewSelect().
		Model(&dbTasks).
		Where("user_id = ?", userID).
		OrderExpr("is_archived ASC, column_id ASC, sort_order ASC, created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list user tasks: %w", err)
	}

	return mapDBTasks(dbTasks), nil
}

// Create inserts a new active task at the tail of its column and returns the
// persisted row.
func (r *Repository) Create(ctx context.Context, userID int64, text, priority string, dueDate *time.Time, labels, columnID string) (*Task, error) {
	dbTask := &database.Task{
		UserID:     userID,
		Text:       text,
		Priority:   priority,
		DueDate:    dueDate,
		Labels:     labels,
		ColumnID:   &columnID,
		IsArchived: false,
	}

	_, err := r.db.NewInsert().
		Model(dbTask).
		Value("sort_order", nextSortOrderExpr, userID, columnID).
		Returning("*").
		Exec(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return mapDBTask(dbTask), nil
}

// Update applies a resolved spec to one task. Zero matched rows means the
// (id, user) pair does not exist: Postgres reports matched rows for UPDATE,
// so a no-op value change still counts.
func (r *Repository) Update(ctx context.Context, userID, taskID int64, spec UpdateSpec) error {
	q := r.db.NewUpdate().Model((*database.Task)(nil))
	applySpec(q, userID, spec)
	q = q.Set("updated_at = NOW()").
		Where("id = ?", taskID).
		Where("user_id = ?", userID)

	result, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// BatchUpdate applies one spec per task id inside a single transaction; any
// failure rolls the whole batch back.
func (r *Repository) BatchUpdate(ctx context.Context, userID int64, specs map[int64]UpdateSpec) error {
	return r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for taskID, spec := range specs {
			q := tx.NewUpdate().Model((*database.Task)(nil))
			applySpec(q, userID, spec)
			q = q.Set("updated_at = NOW()").
				Where("id = ?", taskID).
				Where("user_id = ?", userID)

			if _, err := q.Exec(ctx); err != nil {
				return fmt.Errorf("failed to update task %d: %w", taskID, err)
			}
		}
		return nil
	})
}

// Reorder force-places each task at the given column/position and activates
// it. All moves commit together or not at all.
func (r *Repository) Reorder(ctx context.Context, userID int64, moves []Move) error {
	return r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, m := range moves {
			if _, err := tx.NewUpdate().
				Model((*database.Task)(nil)).
				Set("column_id = ?", m.ColumnID).
				Set("sort_order = ?", m.SortOrder).
				Set("is_archived = ?", false).
				Set("updated_at = NOW()").
				Where("id = ?", m.ID).
				Where("user_id = ?", userID).
				Exec(ctx); err != nil {
				return fmt.Errorf("failed to reorder task %d: %w", m.ID, err)
			}
		}
		return nil
	})
}

// Delete removes a single task owned by the user.
func (r *Repository) Delete(ctx context.Context, userID, taskID int64) error {
	result, err := r.db.NewDelete().
		Model((*database.Task)(nil)).
		Where("id = ?", taskID).
		Where("user_id = ?", userID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// BatchDelete removes the given tasks and reports how many rows actually
// matched; ids not owned by the user are silently skipped.
func (r *Repository) BatchDelete(ctx context.Context, userID int64, ids []int64) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*database.Task)(nil)).
		Where("id IN (?)", bun.In(ids)).
		Where("user_id = ?", userID).
		Exec(ctx)

	if err != nil {
		return 0, fmt.Errorf("failed to batch delete tasks: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

func applySpec(q *bun.UpdateQuery, userID int64, spec UpdateSpec) {
	if spec.Text != nil {
		q.Set("text = ?", *spec.Text)
	}
	if spec.Priority != nil {
		q.Set("priority = ?", *spec.Priority)
	}
	if spec.Labels != nil {
		q.Set("labels = ?", *spec.Labels)
	}
	if spec.SetDueDate {
		q.Set("due_date = ?", spec.DueDate)
	}
	if spec.Column != nil {
		q.Set("column_id = ?", *spec.Column)
	}
	if spec.SortOrder != nil {
		q.Set("sort_order = ?", *spec.SortOrder)
	}
	if spec.Archived != nil {
		q.Set("is_archived = ?", *spec.Archived)
	}
	if spec.ClearBoardPosition {
		q.Set("column_id = NULL").Set("sort_order = NULL")
	}
	if spec.AssignTrailingSort {
		q.Set("sort_order = "+nextSortOrderExpr, userID, spec.TrailingColumn)
	}
}

func mapDBTask(dbt *database.Task) *Task {
	t := &Task{
		ID:         dbt.ID,
		UserID:     dbt.UserID,
		Text:       dbt.Text,
		Priority:   dbt.Priority,
		Labels:     dbt.Labels,
		ColumnID:   dbt.ColumnID,
		SortOrder:  dbt.SortOrder,
		IsArchived: dbt.IsArchived,
		CreatedAt:  dbt.CreatedAt,
		UpdatedAt:  dbt.UpdatedAt,
	}
	if dbt.DueDate != nil {
		due := dbt.DueDate.Format(DateLayout)
		t.DueDate = &due
	}
	return t
}

func mapDBTasks(dbTasks []database.Task) []Task {
	tasks := make([]Task, 0, len(dbTasks))
	for i := range dbTasks {
		tasks = append(tasks, *mapDBTask(&dbTasks[i]))
	}
	return tasks
}

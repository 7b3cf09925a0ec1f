package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrTextRequired    = errors.New("task text is required")
	ErrInvalidColumn   = errors.New("unknown board column")
	ErrInvalidPriority = errors.New("unknown priority")
	ErrInvalidDueDate  = errors.New("due date must be formatted YYYY-MM-DD")
	ErrNoFields        = errors.New("no fields provided for update")
	ErrEmptyBatch      = errors.New("no task ids provided")
	ErrInvalidTaskID   = errors.New("invalid task id")
	ErrInvalidMove     = errors.New("invalid reorder entry")
)

// Repo is the persistence surface the service needs.
type Repo interface {
	ListActive(ctx context.Context, userID int64) ([]Task, error)
	ListArchived(ctx context.Context, userID int64) ([]Task, error)
	ListAllForUser(ctx context.Context, userID int64) ([]Task, error)
	Create(ctx context.Context, userID int64, text, priority string, dueDate *time.Time, labels, columnID string) (*Task, error)
	Update(ctx context.Context, userID, taskID int64, spec UpdateSpec) error
	BatchUpdate(ctx context.Context, userID int64, specs map[int64]UpdateSpec) error
	Reorder(ctx context.Context, userID int64, moves []Move) error
	Delete(ctx context.Context, userID, taskID int64) error
	BatchDelete(ctx context.Context, userID int64, ids []int64) (int64, error)
}

// Service holds the board's business rules: validation, the closed column
// enumeration, and archive/unarchive transitions.
type Service struct {
	repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{repo: repo}
}

// ListBoard returns the user's active tasks grouped by lane.
func (s *Service) ListBoard(ctx context.Context, userID int64) (*Board, error) {
	tasks, err := s.repo.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	board := &Board{
		Todo:       make([]Task, 0),
		InProgress: make([]Task, 0),
		Done:       make([]Task, 0),
	}
	for _, t := range tasks {
		if t.ColumnID == nil {
			continue
		}
		switch Column(*t.ColumnID) {
		case ColumnTodo:
			board.Todo = append(board.Todo, t)
		case ColumnInProgress:
			board.InProgress = append(board.InProgress, t)
		case ColumnDone:
			board.Done = append(board.Done, t)
		}
	}

	return board, nil
}

// ListArchived returns the user's archived tasks, newest update first.
func (s *Service) ListArchived(ctx context.Context, userID int64) ([]Task, error) {
	return s.repo.ListArchived(ctx, userID)
}

// Create validates and persists a new task at the tail of its column.
func (s *Service) Create(ctx context.Context, userID int64, params CreateParams) (*Task, error) {
	text := strings.TrimSpace(params.Text)
	if text == "" {
		return nil, ErrTextRequired
	}

	priority := params.Priority
	if priority == "" {
		priority = PriorityLow
	}
	if !ValidPriority(priority) {
		return nil, ErrInvalidPriority
	}

	columnID := params.ColumnID
	if columnID == "" {
		columnID = string(ColumnTodo)
	}
	if !ValidColumn(columnID) {
		return nil, ErrInvalidColumn
	}

	dueDate, err := parseDueDate(params.DueDate)
	if err != nil {
		return nil, err
	}

	return s.repo.Create(ctx, userID, text, priority, dueDate, params.Labels, columnID)
}

// Update applies a partial update to one task. Only fields present in the
// patch change; archiving clears the board position, un-archiving assigns a
// destination column and a trailing position unless one was supplied.
func (s *Service) Update(ctx context.Context, userID, taskID int64, patch Patch) error {
	if patch.IsEmpty() {
		return ErrNoFields
	}

	spec, err := s.resolvePatch(patch)
	if err != nil {
		return err
	}

	return s.repo.Update(ctx, userID, taskID, spec)
}

// BatchSetArchived applies the archive transition to every id in one
// transaction, all-or-nothing.
func (s *Service) BatchSetArchived(ctx context.Context, userID int64, ids []int64, archived bool) error {
	if len(ids) == 0 {
		return ErrEmptyBatch
	}

	specs := make(map[int64]UpdateSpec, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidTaskID, id)
		}
		specs[id] = archiveSpec(archived)
	}

	return s.repo.BatchUpdate(ctx, userID, specs)
}

// Reorder validates every move before any write and applies them atomically:
// a single malformed entry rejects the whole batch.
func (s *Service) Reorder(ctx context.Context, userID int64, moves []Move) error {
	if len(moves) == 0 {
		return ErrEmptyBatch
	}

	for _, m := range moves {
		if m.ID <= 0 {
			return fmt.Errorf("%w: task id %d", ErrInvalidMove, m.ID)
		}
		if !ValidColumn(m.ColumnID) {
			return fmt.Errorf("%w: column %q", ErrInvalidMove, m.ColumnID)
		}
		if m.SortOrder < 0 {
			return fmt.Errorf("%w: sort order %d", ErrInvalidMove, m.SortOrder)
		}
	}

	return s.repo.Reorder(ctx, userID, moves)
}

// Delete removes one task owned by the user.
func (s *Service) Delete(ctx context.Context, userID, taskID int64) error {
	return s.repo.Delete(ctx, userID, taskID)
}

// BatchDelete removes the given tasks and reports the count actually
// deleted; unmatched ids are skipped, not errors.
func (s *Service) BatchDelete(ctx context.Context, userID int64, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, ErrEmptyBatch
	}
	return s.repo.BatchDelete(ctx, userID, ids)
}

// ListAllForUser returns every task of a user for the admin view.
func (s *Service) ListAllForUser(ctx context.Context, userID int64) ([]Task, error) {
	return s.repo.ListAllForUser(ctx, userID)
}

func (s *Service) resolvePatch(patch Patch) (UpdateSpec, error) {
	var spec UpdateSpec

	if patch.Text != nil {
		text := strings.TrimSpace(*patch.Text)
		if text == "" {
			return spec, ErrTextRequired
		}
		spec.Text = &text
	}
	if patch.Priority != nil {
		if !ValidPriority(*patch.Priority) {
			return spec, ErrInvalidPriority
		}
		spec.Priority = patch.Priority
	}
	if patch.Labels != nil {
		spec.Labels = patch.Labels
	}
	if patch.DueDate.Present {
		spec.SetDueDate = true
		if patch.DueDate.Valid && patch.DueDate.Value != "" {
			due, err := time.Parse(DateLayout, patch.DueDate.Value)
			if err != nil {
				return spec, ErrInvalidDueDate
			}
			spec.DueDate = &due
		}
	}
	if patch.ColumnID != nil {
		if !ValidColumn(*patch.ColumnID) {
			return spec, ErrInvalidColumn
		}
		spec.Column = patch.ColumnID
	}
	if patch.SortOrder != nil {
		spec.SortOrder = patch.SortOrder
	}

	if patch.IsArchived != nil {
		spec.Archived = patch.IsArchived
		if *patch.IsArchived {
			// Archiving removes the task from the ordered board.
			spec.Column = nil
			spec.SortOrder = nil
			spec.ClearBoardPosition = true
		} else {
			dest := string(ColumnTodo)
			if spec.Column != nil {
				dest = *spec.Column
			}
			spec.Column = &dest
			if spec.SortOrder == nil {
				spec.AssignTrailingSort = true
				spec.TrailingColumn = dest
			}
		}
	}

	return spec, nil
}

func archiveSpec(archived bool) UpdateSpec {
	flag := archived
	spec := UpdateSpec{Archived: &flag}
	if archived {
		spec.ClearBoardPosition = true
	} else {
		dest := string(ColumnTodo)
		spec.Column = &dest
		spec.AssignTrailingSort = true
		spec.TrailingColumn = dest
	}
	return spec
}

func parseDueDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" || *raw == "null" {
		return nil, nil
	}
	due, err := time.Parse(DateLayout, *raw)
	if err != nil {
		return nil, ErrInvalidDueDate
	}
	return &due, nil
}

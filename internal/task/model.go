package task

import (
	"time"
)

// Column identifies one of the fixed board lanes. It is a closed enumeration:
// every write path validates against it and the schema carries a matching
// CHECK constraint, so active tasks never hold an unknown column.
type Column string

const (
	ColumnTodo       Column = "todo"
	ColumnInProgress Column = "inprogress"
	ColumnDone       Column = "done"
)

// Columns lists all board lanes in display order.
var Columns = []Column{ColumnTodo, ColumnInProgress, ColumnDone}

func ValidColumn(c string) bool {
	switch Column(c) {
	case ColumnTodo, ColumnInProgress, ColumnDone:
		return true
	}
	return false
}

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// DateLayout is the wire format for due dates.
const DateLayout = "2006-01-02"

// Task is the domain representation of a board task. Column and sort order
// are nil exactly when the task is archived.
type Task struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"-"`
	Text       string    `json:"text"`
	Priority   string    `json:"priority"`
	DueDate    *string   `json:"due_date"` // YYYY-MM-DD
	Labels     string    `json:"labels"`
	ColumnID   *string   `json:"column_id"`
	SortOrder  *int      `json:"sort_order"`
	IsArchived bool      `json:"is_archived"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Board groups a user's active tasks by lane.
type Board struct {
	Todo       []Task `json:"todo"`
	InProgress []Task `json:"inprogress"`
	Done       []Task `json:"done"`
}

// CreateParams carries the fields accepted when creating a task.
type CreateParams struct {
	Text     string
	Priority string
	DueDate  *string
	Labels   string
	ColumnID string
}

// Move is one entry of a reorder batch.
type Move struct {
	ID        int64  `json:"id"`
	ColumnID  string `json:"columnId"`
	SortOrder int    `json:"sortOrder"`
}

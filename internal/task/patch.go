package task

import (
	"bytes"
	"encoding/json"
)

// Optional is a tri-state JSON field: absent, explicitly null, or set to a
// value. Partial updates need the distinction for nullable attributes such as
// the due date, where "absent" must leave the column untouched while "null"
// clears it.
type Optional[T any] struct {
	Present bool // field appeared in the request body
	Valid   bool // field carried a non-null value
	Value   T
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Present = true
	if bytes.Equal(data, []byte("null")) {
		o.Valid = false
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

// Patch describes a partial task update: one optional field per mutable
// attribute. Nil pointer fields were absent from the request and are left
// unmodified.
type Patch struct {
	Text       *string
	Priority   *string
	DueDate    Optional[string]
	Labels     *string
	ColumnID   *string
	SortOrder  *int
	IsArchived *bool
}

// IsEmpty reports whether the patch modifies nothing.
func (p Patch) IsEmpty() bool {
	return p.Text == nil &&
		p.Priority == nil &&
		!p.DueDate.Present &&
		p.Labels == nil &&
		p.ColumnID == nil &&
		p.SortOrder == nil &&
		p.IsArchived == nil
}

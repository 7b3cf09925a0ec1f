package task

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalUnmarshal(t *testing.T) {
	type payload struct {
		DueDate Optional[string] `json:"dueDate"`
	}

	t.Run("absent field", func(t *testing.T) {
		var p payload
		require.NoError(t, json.Unmarshal([]byte(`{}`), &p))

		assert.False(t, p.DueDate.Present)
		assert.False(t, p.DueDate.Valid)
	})

	t.Run("explicit null", func(t *testing.T) {
		var p payload
		require.NoError(t, json.Unmarshal([]byte(`{"dueDate": null}`), &p))

		assert.True(t, p.DueDate.Present)
		assert.False(t, p.DueDate.Valid)
	})

	t.Run("value", func(t *testing.T) {
		var p payload
		require.NoError(t, json.Unmarshal([]byte(`{"dueDate": "2026-03-01"}`), &p))

		assert.True(t, p.DueDate.Present)
		assert.True(t, p.DueDate.Valid)
		assert.Equal(t, "2026-03-01", p.DueDate.Value)
	})

	t.Run("wrong type", func(t *testing.T) {
		var p payload
		assert.Error(t, json.Unmarshal([]byte(`{"dueDate": 42}`), &p))
	})
}

func TestPatchIsEmpty(t *testing.T) {
	assert.True(t, Patch{}.IsEmpty())

	text := "buy milk"
	assert.False(t, Patch{Text: &text}.IsEmpty())

	// An explicit null still counts as a modification.
	assert.False(t, Patch{DueDate: Optional[string]{Present: true}}.IsEmpty())

	archived := true
	assert.False(t, Patch{IsArchived: &archived}.IsEmpty())
}

package user

import (
	"time"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose password hash in JSON
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// WithTaskCounts is a user row joined with task aggregates for the admin
// listing.
type WithTaskCounts struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	IsAdmin     bool      `json:"is_admin"`
	CreatedAt   time.Time `json:"created_at"`
	TotalTasks  int       `json:"total_tasks"`
	ActiveTasks int       `json:"active_tasks"`
}

package database

import (
	"time"

	"github.com/uptrace/bun"
)

// User is the bun mapping for the users table.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Email        string    `bun:"email,notnull,unique"`
	PasswordHash string    `bun:"password_hash,notnull"`
	IsAdmin      bool      `bun:"is_admin,notnull,default:false"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Task is the bun mapping for the tasks table. Column and sort order are
// nullable: archived tasks leave the board ordering entirely.
type Task struct {
	bun.BaseModel `bun:"table:tasks,alias:t"`

	ID         int64      `bun:"id,pk,autoincrement"`
	UserID     int64      `bun:"user_id,notnull"`
	Text       string     `bun:"text,notnull"`
	Priority   string     `bun:"priority,notnull,default:'low'"`
	DueDate    *time.Time `bun:"due_date"`
	Labels     string     `bun:"labels,notnull,default:''"`
	ColumnID   *string    `bun:"column_id"`
	SortOrder  *int       `bun:"sort_order"`
	IsArchived bool       `bun:"is_archived,notnull,default:false"`
	CreatedAt  time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt  time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}

// PasswordReset is the bun mapping for the password_resets table. Tokens are
// stored hashed; the plaintext token only ever leaves the process inside the
// reset email.
type PasswordReset struct {
	bun.BaseModel `bun:"table:password_resets,alias:pr"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Email     string    `bun:"email,notnull"`
	TokenHash string    `bun:"token_hash,notnull,unique"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

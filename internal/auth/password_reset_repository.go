package auth

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/stride-hq/kanban-api/internal/database"
)

var ErrResetTokenNotFound = errors.New("invalid or expired reset token")

// PasswordResetRepository stores reset tokens in the password_resets table.
// Tokens are stored hashed so the table contents cannot be replayed; multiple
// outstanding tokens per email are tolerated and all are removed together on
// a successful reset.
type PasswordResetRepository struct {
	db *bun.DB
}

func NewPasswordResetRepository(db *bun.DB) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

// Store persists a new reset token for the email.
func (r *PasswordResetRepository) Store(ctx context.Context, email, token string, expiresAt time.Time) error {
	row := &database.PasswordReset{
		Email:     email,
		TokenHash: hashResetToken(token),
		ExpiresAt: expiresAt,
	}

	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("failed to store password reset token: %w", err)
	}

	return nil
}

// GetEmail resolves an unexpired token to the email it was issued for.
// Expired rows are indistinguishable from absent ones.
func (r *PasswordResetRepository) GetEmail(ctx context.Context, token string) (string, error) {
	row := new(database.PasswordReset)
	err := r.db.NewSelect().
		Model(row).
		Where("token_hash = ?", hashResetToken(token)).
		Where("expires_at > NOW()").
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrResetTokenNotFound
		}
		return "", fmt.Errorf("failed to get password reset token: %w", err)
	}

	return row.Email, nil
}

// DeleteForEmail removes every outstanding token for the email, consumed and
// superseded alike.
func (r *PasswordResetRepository) DeleteForEmail(ctx context.Context, email string) error {
	if _, err := r.db.NewDelete().
		Model((*database.PasswordReset)(nil)).
		Where("email = ?", email).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete password reset tokens: %w", err)
	}

	return nil
}

// DeleteExpired clears expired rows; safe to run periodically.
func (r *PasswordResetRepository) DeleteExpired(ctx context.Context) error {
	if _, err := r.db.NewDelete().
		Model((*database.PasswordReset)(nil)).
		Where("expires_at <= NOW()").
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete expired reset tokens: %w", err)
	}

	return nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

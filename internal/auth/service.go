package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/stride-hq/kanban-api/internal/logging"
	"github.com/stride-hq/kanban-api/internal/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailRequired      = errors.New("email is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrAdminRequired      = errors.New("administrator privileges required")
)

const (
	minPasswordLength  = 6
	resetTokenLifetime = 1 * time.Hour
	resetTokenBytes    = 32
)

// UserRepo is the persistence surface the auth service needs from the user
// store.
type UserRepo interface {
	Create(ctx context.Context, email, passwordHash string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
}

// ResetRepo stores password reset tokens.
type ResetRepo interface {
	Store(ctx context.Context, email, token string, expiresAt time.Time) error
	GetEmail(ctx context.Context, token string) (string, error)
	DeleteForEmail(ctx context.Context, email string) error
}

// SessionRevoker destroys every session of a user; used after a password
// reset.
type SessionRevoker interface {
	DestroyAllForUser(ctx context.Context, userID int64) error
}

// EmailService delivers reset links out-of-band.
type EmailService interface {
	SendPasswordResetEmail(ctx context.Context, toEmail, token string) error
}

// Service handles authentication business logic
type Service struct {
	userRepo     UserRepo
	resetRepo    ResetRepo
	sessions     SessionRevoker
	emailService EmailService
	logger       *logging.Logger
}

func NewService(
	userRepo UserRepo,
	resetRepo ResetRepo,
	sessions SessionRevoker,
	emailService EmailService,
	logger *logging.Logger,
) *Service {
	return &Service{
		userRepo:     userRepo,
		resetRepo:    resetRepo,
		sessions:     sessions,
		emailService: emailService,
		logger:       logger,
	}
}

// Register creates a new user account. The caller is responsible for
// establishing the session afterwards.
func (s *Service) Register(ctx context.Context, email, password string) (*user.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if len(email) > 254 {
		return nil, ErrInvalidEmailFormat
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmailFormat
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if len(password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := s.userRepo.Create(ctx, email, passwordHash)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, user.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return newUser, nil
}

// Login authenticates a user. Unknown email and wrong password fail with the
// same error so account existence never leaks. With adminOnly set, a valid
// non-admin login fails with a distinct forbidden error.
func (s *Service) Login(ctx context.Context, email, password string, adminOnly bool) (*user.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	existingUser, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !verifyPassword(existingUser.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	if adminOnly && !existingUser.IsAdmin {
		return nil, ErrAdminRequired
	}

	return existingUser, nil
}

// RequestPasswordReset issues a reset token when the email is registered.
// Always returns nil so responses cannot be used for account enumeration.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	existingUser, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			s.logger.Warn("failed to get user for password reset", "error", err)
		}
		return nil
	}

	token, err := generateResetToken()
	if err != nil {
		s.logger.Warn("failed to generate password reset token", "error", err)
		return nil
	}

	expiresAt := time.Now().Add(resetTokenLifetime)
	if err := s.resetRepo.Store(ctx, existingUser.Email, token, expiresAt); err != nil {
		s.logger.Warn("failed to store password reset token", "error", err)
		return nil
	}

	// Delivery happens out-of-band; a failed send must not fail the request.
	go func() {
		emailCtx := context.Background()
		if err := s.emailService.SendPasswordResetEmail(emailCtx, existingUser.Email, token); err != nil {
			s.logger.Warn("failed to send password reset email", "email", existingUser.Email, "error", err)
		}
	}()

	return nil
}

// ResetPassword sets a new password for the account matching an unexpired
// token, consumes every token issued for the email, and destroys all of the
// user's sessions.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return ErrPasswordRequired
	}
	if len(newPassword) < minPasswordLength {
		return ErrPasswordTooShort
	}

	email, err := s.resetRepo.GetEmail(ctx, token)
	if err != nil {
		if errors.Is(err, ErrResetTokenNotFound) {
			return ErrResetTokenNotFound
		}
		return fmt.Errorf("failed to get password reset token: %w", err)
	}

	existingUser, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to get user for password reset: %w", err)
	}

	passwordHash, err := hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, existingUser.ID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.resetRepo.DeleteForEmail(ctx, email); err != nil {
		s.logger.Warn("failed to delete password reset tokens", "error", err)
	}

	if err := s.sessions.DestroyAllForUser(ctx, existingUser.ID); err != nil {
		s.logger.Warn("failed to destroy sessions after password reset", "error", err)
	}

	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verifyPassword(encodedHash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password)) == nil
}

// generateResetToken creates a cryptographically secure random token.
func generateResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

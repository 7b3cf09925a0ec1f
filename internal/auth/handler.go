package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/stride-hq/kanban-api/internal/httputil"
	"github.com/stride-hq/kanban-api/internal/logging"
	"github.com/stride-hq/kanban-api/internal/ratelimit"
	"github.com/stride-hq/kanban-api/internal/session"
	"github.com/stride-hq/kanban-api/internal/user"
)

// Handler contains HTTP handlers for authentication and password reset
// endpoints.
type Handler struct {
	service      *Service
	sessions     *session.Store
	rateLimiter  *ratelimit.Limiter
	isProduction bool
	cookieName   string
	sessionTTL   time.Duration
}

func NewHandler(service *Service, sessions *session.Store, rateLimiter *ratelimit.Limiter, isProduction bool, cookieName string, sessionTTL time.Duration) *Handler {
	return &Handler{
		service:      service,
		sessions:     sessions,
		rateLimiter:  rateLimiter,
		isProduction: isProduction,
		cookieName:   cookieName,
		sessionTTL:   sessionTTL,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	IsAdminLogin bool   `json:"isAdminLogin"`
}

// AuthResponse represents a successful register/login response
type AuthResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	UserID  int64  `json:"userId"`
	IsAdmin bool   `json:"isAdmin"`
}

// SessionResponse represents the session check response
type SessionResponse struct {
	LoggedIn bool   `json:"loggedIn"`
	UserID   int64  `json:"userId,omitempty"`
	Email    string `json:"email,omitempty"`
	IsAdmin  bool   `json:"isAdmin,omitempty"`
}

// ForgotPasswordRequest represents the password reset request
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest represents the password reset confirmation
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// Register handles user registration
// @Summary      Register a new user
// @Description  Create an account and log it in under a fresh session.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration credentials"
// @Success      201 {object} AuthResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      409 {object} httputil.ErrorResponse "Email already exists"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ip := getClientIP(r)
	if h.checkRateLimit(w, r, ip, "register") {
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid registration request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	newUser, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrDuplicateEmail):
			logger.Warn("registration failed: email already exists")
			httputil.RespondErrorWithCode(w, "this email address is already registered", httputil.CodeEmailAlreadyExists, http.StatusConflict)
		case errors.Is(err, ErrEmailRequired):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeEmailRequired, http.StatusBadRequest)
		case errors.Is(err, ErrPasswordRequired):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodePasswordRequired, http.StatusBadRequest)
		case errors.Is(err, ErrPasswordTooShort):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodePasswordTooShort, http.StatusBadRequest)
		case errors.Is(err, ErrInvalidEmailFormat):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidEmailFormat, http.StatusBadRequest)
		default:
			logger.Error("registration failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to register user", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	// Auto-login with a regenerated session id (fixation mitigation: any
	// pre-registration anonymous session id is discarded).
	oldID := session.IDFromRequest(r, h.cookieName)
	sessionID, err := h.sessions.Regenerate(r.Context(), oldID, session.Identity{
		UserID:  newUser.ID,
		Email:   newUser.Email,
		IsAdmin: newUser.IsAdmin,
	})
	if err != nil {
		logger.Error("failed to establish session after registration", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to register user", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}
	session.SetCookie(w, h.cookieName, sessionID, h.isProduction, h.sessionTTL)

	logger.Info("user registered", "user_id", newUser.ID)

	httputil.RespondJSON(w, AuthResponse{
		Success: true,
		Message: "Registration successful. You are now logged in.",
		UserID:  newUser.ID,
		IsAdmin: newUser.IsAdmin,
	}, http.StatusCreated)
}

// Login handles user login
// @Summary      User login
// @Description  Authenticate and bind the user to a fresh session. With isAdminLogin set, non-admin accounts are rejected.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} AuthResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Failure      401 {object} httputil.ErrorResponse "Invalid credentials"
// @Failure      403 {object} httputil.ErrorResponse "Admin privileges required"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ip := getClientIP(r)
	if h.checkRateLimit(w, r, ip, "login") {
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	loggedIn, err := h.service.Login(r.Context(), req.Email, req.Password, req.IsAdminLogin)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			logger.Warn("login failed: invalid credentials")
			httputil.RespondErrorWithCode(w, "invalid email or password", httputil.CodeInvalidCredentials, http.StatusUnauthorized)
		case errors.Is(err, ErrAdminRequired):
			logger.Warn("login failed: admin required")
			httputil.RespondErrorWithCode(w, "administrator privileges required", httputil.CodeAdminRequired, http.StatusForbidden)
		default:
			logger.Error("login failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to login", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	oldID := session.IDFromRequest(r, h.cookieName)
	sessionID, err := h.sessions.Regenerate(r.Context(), oldID, session.Identity{
		UserID:  loggedIn.ID,
		Email:   loggedIn.Email,
		IsAdmin: loggedIn.IsAdmin,
	})
	if err != nil {
		logger.Error("failed to establish session after login", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to login", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}
	session.SetCookie(w, h.cookieName, sessionID, h.isProduction, h.sessionTTL)

	logger.Info("user logged in", "user_id", loggedIn.ID, "is_admin", loggedIn.IsAdmin)

	httputil.RespondJSON(w, AuthResponse{
		Success: true,
		Message: "Login successful.",
		UserID:  loggedIn.ID,
		IsAdmin: loggedIn.IsAdmin,
	}, http.StatusOK)
}

// Logout handles user logout
// @Summary      User logout
// @Description  Destroy the session and expire the cookie. Succeeds even without a session.
// @Tags         auth
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Router       /logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if sessionID := session.IDFromRequest(r, h.cookieName); sessionID != "" {
		if err := h.sessions.Destroy(r.Context(), sessionID); err != nil {
			// The cookie is cleared regardless.
			logger.Warn("failed to destroy session", "error", err.Error())
		}
	}

	session.ClearCookie(w, h.cookieName, h.isProduction)

	httputil.RespondJSON(w, map[string]any{"success": true, "message": "Logged out successfully."}, http.StatusOK)
}

// Session handles the session check
// @Summary      Check session
// @Description  Report whether the request carries a valid session and for whom.
// @Tags         auth
// @Produce      json
// @Success      200 {object} SessionResponse
// @Router       /session [get]
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	sessionID := session.IDFromRequest(r, h.cookieName)
	if sessionID == "" {
		httputil.RespondJSON(w, SessionResponse{LoggedIn: false}, http.StatusOK)
		return
	}

	ident, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		httputil.RespondJSON(w, SessionResponse{LoggedIn: false}, http.StatusOK)
		return
	}

	httputil.RespondJSON(w, SessionResponse{
		LoggedIn: true,
		UserID:   ident.UserID,
		Email:    ident.Email,
		IsAdmin:  ident.IsAdmin,
	}, http.StatusOK)
}

// ForgotPassword handles password reset requests
// @Summary      Request password reset
// @Description  Issue a reset token and email the link. Always returns success to prevent account enumeration.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ForgotPasswordRequest true "Email address"
// @Success      200 {object} map[string]string
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /password_reset/request [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid forgot password request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if _, err := mail.ParseAddress(req.Email); err != nil {
		httputil.RespondErrorWithCode(w, "valid email is required", httputil.CodeInvalidEmailFormat, http.StatusBadRequest)
		return
	}

	ip := getClientIP(r)
	if h.checkRateLimit(w, r, ip, "password_reset") {
		return
	}

	onCooldown, err := h.rateLimiter.CheckEmailCooldown(r.Context(), req.Email)
	if err != nil {
		logger.Error("failed to check email cooldown", "error", err.Error())
	} else if onCooldown {
		logger.Warn("reset request on cooldown", "email", req.Email)
		httputil.RespondErrorWithCode(w, "please wait before requesting another reset", httputil.CodeCooldownActive, http.StatusTooManyRequests)
		return
	}
	if err := h.rateLimiter.SetEmailCooldown(r.Context(), req.Email); err != nil {
		logger.Error("failed to set email cooldown", "error", err.Error())
	}

	// Always nil by contract.
	_ = h.service.RequestPasswordReset(r.Context(), req.Email)

	httputil.RespondJSON(w, map[string]string{
		"message": "If an account with that email exists, a password reset link has been sent.",
	}, http.StatusOK)
}

// ResetPassword handles password reset with token
// @Summary      Reset password
// @Description  Set a new password using a valid reset token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ResetPasswordRequest true "Reset token and new password"
// @Success      200 {object} map[string]string
// @Failure      400 {object} httputil.ErrorResponse "Invalid request or token"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /password_reset/perform [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid reset password request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	err := h.service.ResetPassword(r.Context(), req.Token, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrResetTokenNotFound):
			logger.Warn("password reset failed: invalid or expired token")
			httputil.RespondErrorWithCode(w, "invalid or expired reset token", httputil.CodeInvalidResetToken, http.StatusBadRequest)
		case errors.Is(err, ErrPasswordRequired):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodePasswordRequired, http.StatusBadRequest)
		case errors.Is(err, ErrPasswordTooShort):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodePasswordTooShort, http.StatusBadRequest)
		default:
			logger.Error("password reset failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to reset password", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("password reset successfully")

	httputil.RespondJSON(w, map[string]string{
		"message": "Password reset successfully. You can now login with your new password.",
	}, http.StatusOK)
}

// checkRateLimit enforces the per-IP limit for the purpose and records the
// request. Returns true when the response has already been written.
func (h *Handler) checkRateLimit(w http.ResponseWriter, r *http.Request, ip, purpose string) bool {
	logger := logging.GetLoggerFromContext(r.Context())

	exceeded, err := h.rateLimiter.CheckIPRateLimit(r.Context(), ip, purpose)
	if err != nil {
		// Never block legitimate traffic on limiter failures.
		logger.Error("failed to check IP rate limit", "error", err.Error())
		return false
	}
	if exceeded {
		logger.Warn("IP rate limit exceeded", "ip", ip, "purpose", purpose)
		httputil.RespondErrorWithCode(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return true
	}

	if err := h.rateLimiter.RecordIPRequest(r.Context(), ip, purpose); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}

	return false
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return strings.TrimSpace(xri)
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

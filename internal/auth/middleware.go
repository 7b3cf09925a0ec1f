package auth

import (
	"net/http"

	"github.com/stride-hq/kanban-api/internal/httputil"
	"github.com/stride-hq/kanban-api/internal/session"
)

// Middleware gates routes on the session cookie. The resolved identity is
// placed in the request context so operations receive it explicitly instead
// of reading ambient state.
type Middleware struct {
	sessions   *session.Store
	cookieName string
}

func NewMiddleware(sessions *session.Store, cookieName string) *Middleware {
	return &Middleware{sessions: sessions, cookieName: cookieName}
}

// RequireAuth rejects requests without a valid session.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := session.IDFromRequest(r, m.cookieName)
		if sessionID == "" {
			httputil.RespondErrorWithCode(w, "user not authenticated, please login", httputil.CodeNotAuthenticated, http.StatusUnauthorized)
			return
		}

		ident, err := m.sessions.Get(r.Context(), sessionID)
		if err != nil {
			httputil.RespondErrorWithCode(w, "user not authenticated, please login", httputil.CodeNotAuthenticated, http.StatusUnauthorized)
			return
		}

		ctx := session.ContextWithIdentity(r.Context(), ident)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects authenticated requests whose session lacks the admin
// flag. Must run after RequireAuth.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := session.IdentityFromContext(r.Context())
		if ident == nil || !ident.IsAdmin {
			httputil.RespondErrorWithCode(w, "access denied, administrator privileges required", httputil.CodeAdminRequired, http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

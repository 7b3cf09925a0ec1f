package session

import (
	"net/http"
	"time"
)

// SetCookie writes the session cookie. Cross-origin credentialed requests
// require SameSite=None with Secure, which is only viable over HTTPS, so
// development falls back to Lax.
func SetCookie(w http.ResponseWriter, name, sessionID string, isProduction bool, ttl time.Duration) {
	sameSite := http.SameSiteLaxMode
	if isProduction {
		sameSite = http.SameSiteNoneMode
	}

	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: sameSite,
	})
}

// ClearCookie expires the session cookie unconditionally.
func ClearCookie(w http.ResponseWriter, name string, isProduction bool) {
	sameSite := http.SameSiteLaxMode
	if isProduction {
		sameSite = http.SameSiteNoneMode
	}

	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: sameSite,
	})
}

// IDFromRequest extracts the session id from the request cookie. An empty
// string means no cookie was sent.
func IDFromRequest(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writtenCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()

	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %q not set", name)
	return nil
}

func TestSetCookieProduction(t *testing.T) {
	rec := httptest.NewRecorder()
	SetCookie(rec, "sid", "abc123", true, time.Hour)

	c := writtenCookie(t, rec, "sid")
	assert.Equal(t, "abc123", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 3600, c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteNoneMode, c.SameSite)
}

func TestSetCookieDevelopment(t *testing.T) {
	rec := httptest.NewRecorder()
	SetCookie(rec, "sid", "abc123", false, time.Hour)

	c := writtenCookie(t, rec, "sid")
	assert.False(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
}

func TestClearCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearCookie(rec, "sid", true)

	c := writtenCookie(t, rec, "sid")
	assert.Empty(t, c.Value)
	assert.Negative(t, c.MaxAge)
}

func TestIDFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, IDFromRequest(req, "sid"))

	req.AddCookie(&http.Cookie{Name: "sid", Value: "abc123"})
	require.Equal(t, "abc123", IDFromRequest(req, "sid"))
}

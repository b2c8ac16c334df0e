// ABOUTME: Session cookie lifecycle: write on login, clear on logout or bad token, read per request
// ABOUTME: Cookies are HttpOnly, SameSite=Strict, scoped to /, and Secure in production

package auth

import (
	"net/http"
	"time"
)

// DefaultCookieName is used when no cookie name is configured.
const DefaultCookieName = "admin-auth-token"

// CookieManager wraps session tokens in a named cookie.
type CookieManager struct {
	name   string
	secure bool
}

// NewCookieManager creates a manager for the named cookie. secure should be
// true in production so browsers only send the cookie over HTTPS.
func NewCookieManager(name string, secure bool) *CookieManager {
	if name == "" {
		name = DefaultCookieName
	}
	return &CookieManager{name: name, secure: secure}
}

// Name returns the cookie name.
func (m *CookieManager) Name() string {
	return m.name
}

// Write sets the session cookie to token with a max-age matching TokenLifetime.
func (m *CookieManager) Write(w http.ResponseWriter, token string) {
	c := m.base(token)
	c.MaxAge = int(TokenLifetime / time.Second)
	http.SetCookie(w, c)
}

// Clear replaces the session cookie with an empty, already expired one.
func (m *CookieManager) Clear(w http.ResponseWriter) {
	c := m.base("")
	c.Expires = time.Unix(0, 0).UTC()
	c.MaxAge = -1
	http.SetCookie(w, c)
}

// Read returns the raw session token, or false when the cookie is absent or empty.
// It does not validate the token.
func (m *CookieManager) Read(r *http.Request) (string, bool) {
	c, err := r.Cookie(m.name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func (m *CookieManager) base(value string) *http.Cookie {
	return &http.Cookie{
		Name:     m.name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// internal/pkg/session/cookie.go
package session

import (
	"net/http"
	"net/url"
	"time"
)

// CookieTransport stores tokens in an HttpOnly, SameSite=Lax cookie scoped to /.
type CookieTransport struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

func NewCookieTransport(name string, maxAge time.Duration, secure bool) *CookieTransport {
	return &CookieTransport{
		Name:   name,
		MaxAge: maxAge,
		Secure: secure,
	}
}

// Write sets the cookie to the percent-encoded token.
func (t *CookieTransport) Write(w http.ResponseWriter, token string) {
	http.SetCookie(w, t.cookie(url.QueryEscape(token), int(t.MaxAge/time.Second)))
}

// Clear expires the cookie immediately (empty value, Max-Age=0).
func (t *CookieTransport) Clear(w http.ResponseWriter) {
	// net/http renders a negative MaxAge as "Max-Age=0".
	http.SetCookie(w, t.cookie("", -1))
}

// Read returns the decoded cookie value, if any.
func (t *CookieTransport) Read(r *http.Request) (string, bool) {
	c, err := r.Cookie(t.Name)
	if err != nil || c.Value == "" {
		return "", false
	}
	value, err := url.QueryUnescape(c.Value)
	if err != nil || value == "" {
		return "", false
	}
	return value, true
}

func (t *CookieTransport) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     t.Name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   t.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

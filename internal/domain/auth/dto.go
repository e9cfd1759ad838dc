// internal/domain/auth/dto.go
package auth

import "frontier-map-service/internal/pkg/session"

// LoginCallback is the query Discord appends when redirecting back to /api/login.
type LoginCallback struct {
	Code             string `form:"code"`
	State            string `form:"state"`
	Error            string `form:"error"`
	ErrorDescription string `form:"error_description"`
}

// HasCode reports whether the request is the second leg of the OAuth flow.
func (c LoginCallback) HasCode() bool {
	return c.Code != ""
}

// LoginRedirect is where the browser goes to start the Discord consent screen.
type LoginRedirect struct {
	URL   string
	State string
}

// LoginResult is a freshly issued session.
type LoginResult struct {
	Token  string
	Claims session.Claims
}

// MeResponse describes the caller's session.
type MeResponse struct {
	Authenticated bool              `json:"authenticated"`
	User          *session.UserInfo `json:"user"`
}

// LogoutResponse is the body of a successful logout.
type LogoutResponse struct {
	OK bool `json:"ok"`
}

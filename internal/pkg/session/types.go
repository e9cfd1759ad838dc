// internal/pkg/session/types.go
package session

import (
	"fmt"
	"time"
)

// Claims is the payload signed into a session token. The JSON field order is
// part of the wire format: tokens issued by the previous login handler decode
// byte-for-byte.
type Claims struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Avatar   *string `json:"avatar"`
	CanEdit  bool    `json:"canEdit"`
	IssuedAt int64   `json:"iat"` // milliseconds since epoch
}

// NewClaims builds claims for a freshly authenticated user.
func NewClaims(id, username string, avatar *string, canEdit bool, issuedAt time.Time) Claims {
	return Claims{
		ID:       id,
		Username: username,
		Avatar:   avatar,
		CanEdit:  canEdit,
		IssuedAt: issuedAt.UnixMilli(),
	}
}

// IssuedAtTime returns iat as a time.Time.
func (c Claims) IssuedAtTime() time.Time {
	return time.UnixMilli(c.IssuedAt)
}

// AvatarURL returns the Discord CDN URL of the avatar, or "" when unset.
func (c Claims) AvatarURL() string {
	if c.Avatar == nil || *c.Avatar == "" {
		return ""
	}
	return fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", c.ID, *c.Avatar)
}

// UserInfo is the public view of a session returned to the browser.
type UserInfo struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Avatar    *string   `json:"avatar"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CanEdit   bool      `json:"can_edit"`
	LoginAt   time.Time `json:"login_at"`
}

// Info converts claims into the public user view.
func (c Claims) Info() UserInfo {
	return UserInfo{
		ID:        c.ID,
		Username:  c.Username,
		Avatar:    c.Avatar,
		AvatarURL: c.AvatarURL(),
		CanEdit:   c.CanEdit,
		LoginAt:   c.IssuedAtTime().UTC(),
	}
}

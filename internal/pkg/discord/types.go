package discord

// User is the subset of the Discord user object the service reads.
type User struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	Discriminator string  `json:"discriminator"`
	Avatar        *string `json:"avatar"`
}

// DisplayName renders "username#discriminator", defaulting the
// discriminator to 0000 when Discord omits it.
func (u User) DisplayName() string {
	discriminator := u.Discriminator
	if discriminator == "" {
		discriminator = "0000"
	}
	return u.Username + "#" + discriminator
}

// AvatarHash returns the avatar hash, nil when unset or empty.
func (u User) AvatarHash() *string {
	if u.Avatar == nil || *u.Avatar == "" {
		return nil
	}
	hash := *u.Avatar
	return &hash
}

// GuildMember is the subset of the guild member object the service reads.
type GuildMember struct {
	Roles []string `json:"roles"`
}

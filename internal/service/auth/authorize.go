package auth

import (
	"context"

	"frontier-map-service/internal/domain/auth"

	"go.uber.org/zap"
)

// RoleFetcher looks up the caller's role ids in a guild.
type RoleFetcher interface {
	GuildMemberRoles(ctx context.Context, accessToken, guildID string) ([]string, error)
}

// ResolveCanEdit applies the edit policy to a Discord user. The user allow-list
// wins outright; otherwise guild roles are consulted when a role allow-list is
// configured. Any failure to read roles denies editing.
func ResolveCanEdit(ctx context.Context, policy auth.EditPolicy, userID, accessToken string, roles RoleFetcher, logger *zap.Logger) bool {
	if policy.AllowsUser(userID) {
		return true
	}
	if !policy.NeedsRoles() || roles == nil {
		return false
	}
	if policy.GuildID == "" {
		logger.Warn("role allow-list configured without DISCORD_GUILD_ID, skipping role check")
		return false
	}

	memberRoles, err := roles.GuildMemberRoles(ctx, accessToken, policy.GuildID)
	if err != nil {
		logger.Warn("guild role lookup failed, denying edit",
			zap.String("user_id", userID),
			zap.Error(err))
		return false
	}
	return policy.AllowsAnyRole(memberRoles)
}

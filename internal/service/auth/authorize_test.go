package auth

import (
	"context"
	"errors"
	"testing"

	"frontier-map-service/internal/domain/auth"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubRoles struct {
	roles []string
	err   error
	calls int
}

func (s *stubRoles) GuildMemberRoles(context.Context, string, string) ([]string, error) {
	s.calls++
	return s.roles, s.err
}

func TestResolveCanEdit(t *testing.T) {
	tests := []struct {
		name      string
		policy    auth.EditPolicy
		userID    string
		roles     *stubRoles
		want      bool
		wantCalls int
	}{
		{
			name:   "allow-listed user skips role lookup",
			policy: auth.EditPolicy{AllowUserIDs: []string{"42"}, AllowRoleIDs: []string{"r1"}, GuildID: "g"},
			userID: "42",
			roles:  &stubRoles{},
			want:   true,
		},
		{
			name:   "no role list means no lookup",
			policy: auth.EditPolicy{AllowUserIDs: []string{"42"}, GuildID: "g"},
			userID: "7",
			roles:  &stubRoles{roles: []string{"r1"}},
			want:   false,
		},
		{
			name:      "matching role",
			policy:    auth.EditPolicy{AllowRoleIDs: []string{"r1", "r2"}, GuildID: "g"},
			userID:    "7",
			roles:     &stubRoles{roles: []string{"r0", "r2"}},
			want:      true,
			wantCalls: 1,
		},
		{
			name:      "no matching role",
			policy:    auth.EditPolicy{AllowRoleIDs: []string{"r1"}, GuildID: "g"},
			userID:    "7",
			roles:     &stubRoles{roles: []string{"r9"}},
			want:      false,
			wantCalls: 1,
		},
		{
			name:      "no role data",
			policy:    auth.EditPolicy{AllowRoleIDs: []string{"r1"}, GuildID: "g"},
			userID:    "7",
			roles:     &stubRoles{},
			want:      false,
			wantCalls: 1,
		},
		{
			name:      "lookup failure fails closed",
			policy:    auth.EditPolicy{AllowRoleIDs: []string{"r1"}, GuildID: "g"},
			userID:    "7",
			roles:     &stubRoles{roles: []string{"r1"}, err: errors.New("timeout")},
			want:      false,
			wantCalls: 1,
		},
		{
			name:   "missing guild id",
			policy: auth.EditPolicy{AllowRoleIDs: []string{"r1"}},
			userID: "7",
			roles:  &stubRoles{roles: []string{"r1"}},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveCanEdit(context.Background(), tt.policy, tt.userID, "token", tt.roles, zap.NewNop())
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCalls, tt.roles.calls)
		})
	}
}

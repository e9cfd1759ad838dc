// internal/service/auth/auth.go
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"frontier-map-service/internal/config"
	"frontier-map-service/internal/domain/auth"
	"frontier-map-service/internal/pkg/discord"
	xerrors "frontier-map-service/internal/pkg/errors"
	"frontier-map-service/internal/pkg/session"

	"go.uber.org/zap"
)

const (
	stateCookieName = "rp_oauth_state"
	stateBytes      = 32
)

// OAuthProvider is the Discord surface the login flow uses.
type OAuthProvider interface {
	RoleFetcher
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
	CurrentUser(ctx context.Context, accessToken string) (*discord.User, error)
}

// SessionNotifier is told when a session is revoked so sockets opened with it
// can be dropped. sessionKey is the token's session.Fingerprint.
type SessionNotifier interface {
	ForceLogout(userID, sessionKey, reason string)
}

type AuthService struct {
	cfg       config.AuthConfig
	policy    auth.EditPolicy
	provider  OAuthProvider
	store     session.Store
	codec     *session.Codec
	cookies   *session.CookieTransport
	states    *session.CookieTransport
	notifier  SessionNotifier
	logger    *zap.Logger
	configErr error
	now       func() time.Time
}

func NewAuthService(
	cfg config.AuthConfig,
	provider OAuthProvider,
	store session.Store,
	notifier SessionNotifier,
	logger *zap.Logger,
) *AuthService {
	s := &AuthService{
		cfg: cfg,
		policy: auth.EditPolicy{
			AllowUserIDs: cfg.AllowUserIDs,
			AllowRoleIDs: cfg.AllowRoleIDs,
			GuildID:      cfg.DiscordGuildID,
		},
		provider: provider,
		store:    store,
		cookies:  session.NewCookieTransport(cfg.CookieName, cfg.SessionMaxAge, cfg.SecureCookies),
		states:   session.NewCookieTransport(stateCookieName, cfg.StateTTL, cfg.SecureCookies),
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}

	if err := cfg.Validate(); err != nil {
		s.configErr = fmt.Errorf("%w: %v", xerrors.ErrConfiguration, err)
		logger.Warn("login disabled", zap.Error(err))
		return s
	}

	codec, err := session.NewCodec([]byte(cfg.SessionSecret))
	if err != nil {
		s.configErr = fmt.Errorf("%w: %v", xerrors.ErrConfiguration, err)
		return s
	}
	s.codec = codec
	return s
}

// ConfigError is non-nil when the login flow cannot run.
func (s *AuthService) ConfigError() error {
	return s.configErr
}

func (s *AuthService) SessionCookie() *session.CookieTransport { return s.cookies }

func (s *AuthService) StateCookie() *session.CookieTransport { return s.states }

func (s *AuthService) LoginRedirectPath() string { return s.cfg.LoginRedirectPath }

// ========== Login ==========

// BeginLogin creates a single-use state and the Discord authorize URL.
func (s *AuthService) BeginLogin(ctx context.Context) (*auth.LoginRedirect, error) {
	if s.configErr != nil {
		return nil, s.configErr
	}

	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}
	if err := s.store.SaveState(ctx, state, s.cfg.StateTTL); err != nil {
		return nil, fmt.Errorf("failed to save login state: %w", err)
	}

	return &auth.LoginRedirect{
		URL:   s.provider.AuthCodeURL(state),
		State: state,
	}, nil
}

// CompleteLogin finishes the OAuth flow and issues a signed session.
func (s *AuthService) CompleteLogin(ctx context.Context, cb auth.LoginCallback, cookieState string) (*auth.LoginResult, error) {
	if s.configErr != nil {
		return nil, s.configErr
	}
	if cb.Error != "" {
		return nil, fmt.Errorf("%w: discord returned %s", xerrors.ErrUpstream, cb.Error)
	}
	if err := s.checkState(ctx, cb.State, cookieState); err != nil {
		return nil, err
	}

	accessToken, err := s.provider.Exchange(ctx, cb.Code)
	if err != nil {
		return nil, err
	}
	user, err := s.provider.CurrentUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	canEdit := ResolveCanEdit(ctx, s.policy, user.ID, accessToken, s.provider, s.logger)
	claims := session.NewClaims(user.ID, user.DisplayName(), user.AvatarHash(), canEdit, s.now())

	token, err := s.codec.Encode(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}

	s.logger.Info("user logged in",
		zap.String("user_id", claims.ID),
		zap.String("username", claims.Username),
		zap.Bool("can_edit", claims.CanEdit))

	return &auth.LoginResult{Token: token, Claims: claims}, nil
}

func (s *AuthService) checkState(ctx context.Context, state, cookieState string) error {
	if state == "" || cookieState == "" {
		return xerrors.ErrInvalidState
	}
	if subtle.ConstantTimeCompare([]byte(state), []byte(cookieState)) != 1 {
		return xerrors.ErrInvalidState
	}
	ok, err := s.store.ConsumeState(ctx, state)
	if err != nil {
		return fmt.Errorf("failed to consume login state: %w", err)
	}
	if !ok {
		return xerrors.ErrInvalidState
	}
	return nil
}

// ========== Sessions ==========

// ValidateSession decodes a cookie token and rejects revoked or stale sessions.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*session.Claims, error) {
	if s.codec == nil {
		return nil, xerrors.ErrUnauthorized
	}

	claims, err := s.codec.Decode(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrUnauthorized, err)
	}

	revoked, err := s.store.IsRevoked(ctx, session.Fingerprint(token))
	if err != nil {
		return nil, fmt.Errorf("failed to check revocation: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: session revoked", xerrors.ErrUnauthorized)
	}

	if s.remaining(claims) <= 0 {
		return nil, fmt.Errorf("%w: session expired", xerrors.ErrUnauthorized)
	}
	return claims, nil
}

// Logout revokes token for the rest of its lifetime. Tokens that do not decode
// have nothing to revoke.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if s.codec == nil || token == "" {
		return nil
	}
	claims, err := s.codec.Decode(token)
	if err != nil {
		return nil
	}

	ttl := s.remaining(claims)
	if ttl <= 0 {
		return nil
	}
	fingerprint := session.Fingerprint(token)
	if err := s.store.Revoke(ctx, fingerprint, ttl); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	if s.notifier != nil {
		s.notifier.ForceLogout(claims.ID, fingerprint, "User logged out")
	}
	s.logger.Info("user logged out", zap.String("user_id", claims.ID))
	return nil
}

func (s *AuthService) remaining(claims *session.Claims) time.Duration {
	return claims.IssuedAtTime().Add(s.cfg.SessionMaxAge).Sub(s.now())
}

// IsUnauthorized reports whether err means "no usable session".
func IsUnauthorized(err error) bool {
	return errors.Is(err, xerrors.ErrUnauthorized)
}

func generateState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

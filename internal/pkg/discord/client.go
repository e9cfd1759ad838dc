// Package discord talks to the Discord OAuth2 and REST endpoints used by the
// login flow: code exchange, the current user and optional guild roles.
package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	xerrors "frontier-map-service/internal/pkg/errors"

	"golang.org/x/oauth2"
)

const (
	defaultAPIBase = "https://discord.com/api"
	defaultTimeout = 10 * time.Second
	maxBodySize    = 1 << 20
)

// DefaultScopes are requested on every login; guilds.members.read is only
// used when a role allow-list is configured.
var DefaultScopes = []string{"identify", "guilds.members.read"}

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	APIBase      string
	Scopes       []string
	HTTPClient   *http.Client
}

type Client struct {
	oauth   *oauth2.Config
	apiBase string
	http    *http.Client
}

func NewClient(cfg Config) *Client {
	apiBase := strings.TrimRight(cfg.APIBase, "/")
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   apiBase + "/oauth2/authorize",
				TokenURL:  apiBase + "/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiBase: apiBase,
		http:    httpClient,
	}
}

// AuthCodeURL returns the authorize URL the browser is redirected to.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for an access token.
func (c *Client) Exchange(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: discord token exchange failed: %v", xerrors.ErrUpstream, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: discord token exchange returned no access token", xerrors.ErrUpstream)
	}
	return tok.AccessToken, nil
}

// CurrentUser fetches /users/@me.
func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*User, error) {
	status, body, err := c.get(ctx, accessToken, "/users/@me")
	if err != nil {
		return nil, fmt.Errorf("%w: discord /users/@me failed: %v", xerrors.ErrUpstream, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: discord /users/@me returned %d", xerrors.ErrUpstream, status)
	}

	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("%w: failed to decode discord user: %v", xerrors.ErrUpstream, err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: discord user has no id", xerrors.ErrUpstream)
	}
	return &user, nil
}

// GuildMemberRoles returns the caller's role ids in guildID. A non-2xx answer
// (not a member, scope not granted) yields no roles and no error; transport
// failures are returned.
func (c *Client) GuildMemberRoles(ctx context.Context, accessToken, guildID string) ([]string, error) {
	path := fmt.Sprintf("/users/@me/guilds/%s/member", url.PathEscape(guildID))
	status, body, err := c.get(ctx, accessToken, path)
	if err != nil {
		return nil, fmt.Errorf("%w: discord guild member lookup failed: %v", xerrors.ErrUpstream, err)
	}
	if status < 200 || status > 299 {
		return nil, nil
	}

	var member GuildMember
	if err := json.Unmarshal(body, &member); err != nil {
		return nil, fmt.Errorf("%w: failed to decode guild member: %v", xerrors.ErrUpstream, err)
	}
	return member.Roles, nil
}

func (c *Client) get(ctx context.Context, accessToken, path string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+path, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

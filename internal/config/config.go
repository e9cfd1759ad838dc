package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
)

type AppConfig struct {
	// Server
	HTTPAddr       string
	Env            string
	LogLevel       string
	StaticDir      string
	AllowedOrigins []string

	// Storage
	RedisAddr   string
	RedisPass   string
	RedisDB     int
	DatabaseURL string
	MapDataDir  string
	DefaultMap  string

	// Login
	Auth AuthConfig
}

// AuthConfig holds everything the Discord login flow and the session cookie need.
type AuthConfig struct {
	DiscordClientID     string
	DiscordClientSecret string
	DiscordRedirectURI  string
	DiscordGuildID      string
	DiscordAPIBase      string

	AllowUserIDs []string
	AllowRoleIDs []string

	SessionSecret     string
	CookieName        string
	SessionMaxAge     time.Duration
	SecureCookies     bool
	StateTTL          time.Duration
	LoginRedirectPath string
}

// Load loads environment variables into AppConfig.
func Load() AppConfig {
	env := getEnv("APP_ENV", getEnv("NODE_ENV", "development"))

	return AppConfig{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8000"),
		Env:            env,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		StaticDir:      getEnv("STATIC_DIR", ""),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", nil),

		RedisAddr:   getEnv("REDIS_ADDR", ""),
		RedisPass:   getEnv("REDIS_PASS", ""),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		MapDataDir:  getEnv("MAP_DATA_DIR", "./data/maps"),
		DefaultMap:  getEnv("DEFAULT_MAP_SLUG", "rdo_main"),

		Auth: AuthConfig{
			DiscordClientID:     getEnv("DISCORD_CLIENT_ID", ""),
			DiscordClientSecret: getEnv("DISCORD_CLIENT_SECRET", ""),
			DiscordRedirectURI:  getEnv("DISCORD_REDIRECT_URI", ""),
			DiscordGuildID:      getEnv("DISCORD_GUILD_ID", ""),
			DiscordAPIBase:      strings.TrimRight(getEnv("DISCORD_API_BASE", "https://discord.com/api"), "/"),

			AllowUserIDs: getEnvSlice("ALLOW_USER_IDS", nil),
			AllowRoleIDs: getEnvSlice("ALLOW_ROLE_IDS", nil),

			SessionSecret:     getEnv("SESSION_SECRET", ""),
			CookieName:        getEnv("SESSION_COOKIE_NAME", "rp_session"),
			SessionMaxAge:     getEnvDuration("SESSION_MAX_AGE", 7*24*time.Hour),
			SecureCookies:     getEnvBool("SESSION_SECURE_COOKIES", env == "production"),
			StateTTL:          getEnvDuration("OAUTH_STATE_TTL", 10*time.Minute),
			LoginRedirectPath: getEnv("LOGIN_REDIRECT_PATH", "/"),
		},
	}
}

// IsProduction reports whether the service runs in a production deployment.
func (c AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// Validate lists every missing setting the login flow cannot run without.
func (c AuthConfig) Validate() error {
	var missing []string
	if c.DiscordClientID == "" {
		missing = append(missing, "DISCORD_CLIENT_ID")
	}
	if c.DiscordClientSecret == "" {
		missing = append(missing, "DISCORD_CLIENT_SECRET")
	}
	if c.DiscordRedirectURI == "" {
		missing = append(missing, "DISCORD_REDIRECT_URI")
	}
	if c.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing env vars: %s", strings.Join(missing, ", "))
	}
	if c.SessionMaxAge <= 0 {
		return fmt.Errorf("SESSION_MAX_AGE must be positive")
	}
	return nil
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvSlice splits a comma separated list, trimming blanks.
func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	v, err := cast.ToIntE(os.Getenv(key))
	if err != nil || os.Getenv(key) == "" {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := cast.ToBoolE(os.Getenv(key))
	if err != nil || os.Getenv(key) == "" {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := cast.ToDurationE(raw)
	if err != nil {
		return fallback
	}
	return v
}

// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"frontier-map-service/internal/config"
	"frontier-map-service/internal/db"
	"frontier-map-service/internal/domain/mapdoc"
	authHandler "frontier-map-service/internal/handlers/auth"
	mapHandler "frontier-map-service/internal/handlers/mapdoc"
	wsHandler "frontier-map-service/internal/handlers/websocket"
	"frontier-map-service/internal/middleware"
	"frontier-map-service/internal/pkg/discord"
	"frontier-map-service/internal/pkg/session"
	"frontier-map-service/internal/repository/file"
	"frontier-map-service/internal/repository/postgres"
	authUsecase "frontier-map-service/internal/service/auth"
	mapUsecase "frontier-map-service/internal/service/mapdoc"
	"frontier-map-service/internal/websocket"
	wsHandlers "frontier-map-service/internal/websocket/handler"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const memoryStoreCleanup = time.Minute

type Server struct {
	cfg        config.AppConfig
	engine     *gin.Engine
	httpServer *http.Server
	logger     *zap.Logger

	hub       *websocket.Hub
	hubCancel context.CancelFunc
	redis     *redis.Client
	pool      *pgxpool.Pool
}

// NewServer loads configuration, connects the configured backends and builds
// the router. Redis and PostgreSQL are optional.
func NewServer() (*Server, error) {
	cfg := config.Load()

	logger, err := NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return newServer(context.Background(), cfg, logger)
}

func newServer(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (*Server, error) {
	s := &Server{cfg: cfg, logger: logger}

	// ----- Session store -----
	var store session.Store
	if cfg.RedisAddr != "" {
		client, err := db.NewRedisClient(ctx, db.RedisConfig{
			Address:  cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
			PoolSize: 10,
		})
		if err != nil {
			return nil, err
		}
		s.redis = client
		store = session.NewRedisStore(client)
		logger.Info("session store: redis", zap.String("addr", cfg.RedisAddr))
	} else {
		store = session.NewMemoryStore(memoryStoreCleanup)
		logger.Info("session store: in-memory")
	}

	// ----- Map repository -----
	var repo mapdoc.Repository
	if cfg.DatabaseURL != "" {
		pool, err := db.ConnectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			s.close()
			return nil, err
		}
		s.pool = pool
		pgRepo := postgres.NewMapRepository(pool)
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			s.close()
			return nil, err
		}
		repo = pgRepo
		logger.Info("map store: postgres")
	} else {
		fileRepo, err := file.NewMapRepository(cfg.MapDataDir)
		if err != nil {
			s.close()
			return nil, err
		}
		repo = fileRepo
		logger.Info("map store: files", zap.String("dir", cfg.MapDataDir))
	}

	// ----- Discord -----
	discordClient := discord.NewClient(discord.Config{
		ClientID:     cfg.Auth.DiscordClientID,
		ClientSecret: cfg.Auth.DiscordClientSecret,
		RedirectURI:  cfg.Auth.DiscordRedirectURI,
		APIBase:      cfg.Auth.DiscordAPIBase,
	})

	// ----- WebSocket Hub -----
	// The hub validates cookies through the auth service, which in turn
	// notifies the hub on logout.
	var authService *authUsecase.AuthService
	s.hub = websocket.NewHub(websocket.SessionValidatorFunc(func(ctx context.Context, token string) (*session.Claims, error) {
		return authService.ValidateSession(ctx, token)
	}), logger)

	// ----- Services (Usecases) -----
	authService = authUsecase.NewAuthService(cfg.Auth, discordClient, store, s.hub, logger)
	mapService, err := mapUsecase.NewMapService(repo, s.hub, logger)
	if err != nil {
		s.close()
		return nil, err
	}

	s.hub.RegisterHandler(wsHandlers.NewMapHandler(mapService))
	hubCtx, cancel := context.WithCancel(context.Background())
	s.hubCancel = cancel
	go s.hub.Run(hubCtx)

	// ----- Handlers -----
	handlers := &Handlers{
		AuthHandler:    authHandler.NewAuthHandler(authService, logger),
		MapHandler:     mapHandler.NewMapHandler(mapService, logger),
		WSHandler:      wsHandler.NewWebSocketHandler(s.hub, authService.SessionCookie(), cfg.AllowedOrigins, logger),
		AuthMiddleware: middleware.NewAuthMiddleware(authService, authService.SessionCookie(), logger),
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	s.engine = gin.New()
	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(cfg.AllowedOrigins),
		handlers.AuthMiddleware.Session(),
	)
	SetupRouter(s.engine, cfg, handlers)

	s.httpServer = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr), zap.String("env", s.cfg.Env))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains HTTP, stops the hub and releases the backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)

	if s.hubCancel != nil {
		s.hubCancel()
		select {
		case <-s.hub.Done():
		case <-ctx.Done():
		}
	}
	s.close()

	s.logger.Info("server stopped")
	_ = s.logger.Sync()
	return err
}

func (s *Server) close() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

// NewLogger builds the production JSON logger in production and the console
// logger elsewhere, at LOG_LEVEL.
func NewLogger(cfg config.AppConfig) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	}

	if cfg.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}

	return zcfg.Build()
}

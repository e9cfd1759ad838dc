// internal/app/router.go
package app

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"frontier-map-service/internal/config"
	authHandler "frontier-map-service/internal/handlers/auth"
	mapHandler "frontier-map-service/internal/handlers/mapdoc"
	wsHandler "frontier-map-service/internal/handlers/websocket"
	"frontier-map-service/internal/middleware"
	"frontier-map-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	AuthHandler    *authHandler.AuthHandler
	MapHandler     *mapHandler.MapHandler
	WSHandler      *wsHandler.WebSocketHandler
	AuthMiddleware *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, cfg config.AppConfig, h *Handlers) {
	api := r.Group("/api")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ==================== Auth ====================
	api.GET("/login", h.AuthHandler.Login)
	api.GET("/logout", h.AuthHandler.Logout)
	api.POST("/logout", h.AuthHandler.Logout)
	api.GET("/me", h.AuthHandler.Me)

	// ==================== Maps ====================
	maps := api.Group("/maps")
	{
		maps.GET("/:slug", h.MapHandler.Get)
		maps.GET("/:slug/revisions", h.MapHandler.Revisions)
		maps.PUT("/:slug", h.AuthMiddleware.RequireEditor(), h.MapHandler.Put)
	}

	// The static editor loads ./data/maps/<slug>.json directly.
	r.GET("/data/maps/:file", h.MapHandler.GetFile)

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)
	api.GET("/ws/stats", h.AuthMiddleware.RequireEditor(), h.WSHandler.GetStats)

	// ==================== Front-end ====================
	r.NoRoute(staticFallback(cfg.StaticDir))
}

// staticFallback serves the front-end bundle for non-API paths, falling back
// to index.html.
func staticFallback(dir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if dir == "" || strings.HasPrefix(p, "/api/") || (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			response.NotFound(c, "route not found")
			return
		}

		name := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+p)))
		if info, err := os.Stat(name); err == nil && !info.IsDir() {
			c.File(name)
			return
		}

		index := filepath.Join(dir, "index.html")
		if _, err := os.Stat(index); err != nil {
			response.NotFound(c, "route not found")
			return
		}
		c.File(index)
	}
}

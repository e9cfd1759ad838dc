// internal/handlers/auth/auth_handler.go
package auth

import (
	"net/http"

	"frontier-map-service/internal/domain/auth"
	"frontier-map-service/internal/middleware"
	"frontier-map-service/internal/pkg/response"
	authUsecase "frontier-map-service/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *authUsecase.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService *authUsecase.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// ========== Login ==========

// Login starts the Discord OAuth flow, or finishes it when Discord redirects
// back with a code.
func (h *AuthHandler) Login(c *gin.Context) {
	var cb auth.LoginCallback
	if err := c.ShouldBindQuery(&cb); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	if !cb.HasCode() && cb.Error == "" {
		h.beginLogin(c)
		return
	}
	h.completeLogin(c, cb)
}

func (h *AuthHandler) beginLogin(c *gin.Context) {
	redirect, err := h.authService.BeginLogin(c.Request.Context())
	if err != nil {
		h.logger.Error("login start failed", zap.Error(err))
		response.FromError(c, err, "login failed")
		return
	}

	h.authService.StateCookie().Write(c.Writer, redirect.State)
	c.Redirect(http.StatusFound, redirect.URL)
}

func (h *AuthHandler) completeLogin(c *gin.Context, cb auth.LoginCallback) {
	stateCookie := h.authService.StateCookie()
	cookieState, _ := stateCookie.Read(c.Request)
	stateCookie.Clear(c.Writer)

	result, err := h.authService.CompleteLogin(c.Request.Context(), cb, cookieState)
	if err != nil {
		h.logger.Warn("login failed",
			zap.String("ip", c.ClientIP()),
			zap.String("discord_error", cb.Error),
			zap.Error(err),
		)
		response.FromError(c, err, "login failed")
		return
	}

	h.authService.SessionCookie().Write(c.Writer, result.Token)
	c.Redirect(http.StatusFound, h.authService.LoginRedirectPath())
}

// ========== Logout ==========

// Logout clears the session cookie. It succeeds whether or not a session
// existed.
func (h *AuthHandler) Logout(c *gin.Context) {
	cookies := h.authService.SessionCookie()
	if token, ok := cookies.Read(c.Request); ok {
		if err := h.authService.Logout(c.Request.Context(), token); err != nil {
			h.logger.Error("session revocation failed", zap.Error(err))
		}
	}

	cookies.Clear(c.Writer)
	c.JSON(http.StatusOK, auth.LogoutResponse{OK: true})
}

// ========== Session ==========

// Me describes the caller's session.
func (h *AuthHandler) Me(c *gin.Context) {
	resp := auth.MeResponse{}
	if claims, ok := middleware.GetClaims(c); ok {
		info := claims.Info()
		resp.Authenticated = true
		resp.User = &info
	}

	response.Success(c, http.StatusOK, "session", resp)
}

// internal/pkg/response/response.go
package response

import (
	"errors"
	"net/http"

	xerrors "frontier-map-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Response defines the standard API response format.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success sends a successful response with a message and optional data.
func Success(c *gin.Context, status int, message string, data interface{}) {
	if status == 0 {
		status = http.StatusOK
	}

	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends a standardized error response.
func Error(c *gin.Context, code int, message string, err error, data ...interface{}) {
	// Abort before writing so later handlers in the chain do not run.
	c.Abort()

	response := Response{
		Success: false,
		Message: message,
	}

	// 5xx details stay in the logs.
	if err != nil && code < http.StatusInternalServerError {
		response.Error = err.Error()
	}

	if len(data) > 0 {
		response.Data = data[0]
	}

	c.JSON(code, response)
}

// FromError maps a service error onto its HTTP status.
func FromError(c *gin.Context, err error, fallback string) {
	status, message := StatusFor(err)
	if message == "" {
		message = fallback
	}
	Error(c, status, message, err)
}

// StatusFor returns the HTTP status and public message for err.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, xerrors.ErrInvalidInput):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, xerrors.ErrInvalidState):
		return http.StatusBadRequest, "login expired, please try again"
	case errors.Is(err, xerrors.ErrUnauthorized):
		return http.StatusUnauthorized, "login required"
	case errors.Is(err, xerrors.ErrForbidden):
		return http.StatusForbidden, "editing is not allowed for this account"
	case errors.Is(err, xerrors.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, xerrors.ErrConflict):
		return http.StatusPreconditionFailed, "map was changed by someone else"
	case errors.Is(err, xerrors.ErrUpstream):
		return http.StatusBadGateway, "login failed"
	case errors.Is(err, xerrors.ErrConfiguration):
		return http.StatusInternalServerError, "login is not configured"
	default:
		return http.StatusInternalServerError, ""
	}
}

// ValidationError sends a 400 Bad Request response for invalid input.
func ValidationError(c *gin.Context, message string, err error) {
	Error(c, http.StatusBadRequest, message, err)
}

// Unauthorized sends a 401 Unauthorized response.
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message, nil)
}

// Forbidden sends a 403 Forbidden response.
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message, nil)
}

// NotFound sends a 404 Not Found response.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message, nil)
}

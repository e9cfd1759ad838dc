// internal/handlers/mapdoc/mapdoc_handler.go
package mapdoc

import (
	"net/http"
	"strings"
	"sync"

	"frontier-map-service/internal/domain/mapdoc"
	"frontier-map-service/internal/middleware"
	"frontier-map-service/internal/pkg/response"
	mapUsecase "frontier-map-service/internal/service/mapdoc"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

const jsonContentType = "application/json; charset=utf-8"

var registerOnce sync.Once

type MapHandler struct {
	mapService *mapUsecase.MapService
	logger     *zap.Logger
}

func NewMapHandler(mapService *mapUsecase.MapService, logger *zap.Logger) *MapHandler {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			if err := mapdoc.RegisterValidations(v); err != nil {
				logger.Error("failed to register map validations", zap.Error(err))
			}
		}
	})

	return &MapHandler{
		mapService: mapService,
		logger:     logger,
	}
}

// Get serves the stored document verbatim with its ETag.
func (h *MapHandler) Get(c *gin.Context) {
	slug := c.Param("slug")

	stored, err := h.mapService.Get(c.Request.Context(), slug)
	if err != nil {
		h.logger.Error("failed to load map", zap.String("slug", slug), zap.Error(err))
		response.FromError(c, err, "failed to load map")
		return
	}

	c.Header("ETag", stored.ETag)
	c.Header("Cache-Control", "no-cache")
	if match := c.GetHeader("If-None-Match"); match != "" && match == stored.ETag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, jsonContentType, stored.Body)
}

// Put replaces a map. Editors only; If-Match guards against lost updates.
func (h *MapHandler) Put(c *gin.Context) {
	slug := c.Param("slug")

	var doc mapdoc.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		response.ValidationError(c, "invalid map document", err)
		return
	}

	claims, _ := middleware.GetClaims(c)
	stored, err := h.mapService.Save(c.Request.Context(), slug, &doc, c.GetHeader("If-Match"), claims)
	if err != nil {
		h.logger.Warn("map save rejected",
			zap.String("slug", slug),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err))
		response.FromError(c, err, "failed to save map")
		return
	}

	c.Header("ETag", stored.ETag)
	c.Data(http.StatusOK, jsonContentType, stored.Body)
}

// Revisions lists recent saves of a map.
func (h *MapHandler) Revisions(c *gin.Context) {
	slug := c.Param("slug")
	limit := cast.ToInt(c.Query("limit"))

	revisions, err := h.mapService.Revisions(c.Request.Context(), slug, limit)
	if err != nil {
		h.logger.Error("failed to list revisions", zap.String("slug", slug), zap.Error(err))
		response.FromError(c, err, "failed to list revisions")
		return
	}

	response.Success(c, http.StatusOK, "revisions", revisions)
}

// GetFile serves /data/maps/<slug>.json, the path the static editor reads.
func (h *MapHandler) GetFile(c *gin.Context) {
	name := c.Param("file")
	slug, ok := strings.CutSuffix(name, ".json")
	if !ok {
		response.NotFound(c, "map not found")
		return
	}

	for i, p := range c.Params {
		if p.Key == "file" {
			c.Params[i] = gin.Param{Key: "slug", Value: slug}
		}
	}
	h.Get(c)
}

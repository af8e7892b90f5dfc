package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/compass-coaching/compass-go/internal/application/services"
	"github.com/compass-coaching/compass-go/internal/domain/storage"
	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/logging"
	"github.com/compass-coaching/compass-go/internal/presentation/http/middleware"
)

// StorageHandlers exposes the per-user durable key-value slots.
type StorageHandlers struct {
	storageService *services.StorageService
	logger         *logging.ChanneledLogger
}

// NewStorageHandlers creates storage handlers with injected dependencies
func NewStorageHandlers(storageService *services.StorageService, logger *logging.ChanneledLogger) *StorageHandlers {
	return &StorageHandlers{
		storageService: storageService,
		logger:         logger,
	}
}

// GetEntry handles GET /api/v1/storage/:key
func (h *StorageHandlers) GetEntry(c *gin.Context) {
	authenticated, ok := middleware.GetAuthUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	value, err := h.storageService.Get(authenticated.ID, storage.Key(c.Param("key")))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if value == nil {
		c.JSON(http.StatusOK, gin.H{"value": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": value})
}

// PutEntry handles PUT /api/v1/storage/:key
func (h *StorageHandlers) PutEntry(c *gin.Context) {
	authenticated, ok := middleware.GetAuthUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req StorageValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := h.storageService.Set(authenticated.ID, storage.Key(c.Param("key")), req.Value); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteEntry handles DELETE /api/v1/storage/:key
func (h *StorageHandlers) DeleteEntry(c *gin.Context) {
	authenticated, ok := middleware.GetAuthUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	if err := h.storageService.Clear(authenticated.ID, storage.Key(c.Param("key"))); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// StorageValueRequest is the payload for PutEntry
type StorageValueRequest struct {
	Value json.RawMessage `json:"value" binding:"required"`
}

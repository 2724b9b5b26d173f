package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/natgeo/internal/service"
)

// ArtworkHandler handles the provider's artwork endpoints.
type ArtworkHandler struct {
	gallery  *service.GalleryService
	settings *service.SettingsService
	provider string
}

// NewArtworkHandler creates a new artwork handler.
func NewArtworkHandler(gallery *service.GalleryService, settings *service.SettingsService, provider string) *ArtworkHandler {
	return &ArtworkHandler{
		gallery:  gallery,
		settings: settings,
		provider: provider,
	}
}

// List handles GET /api/v1/artwork.
func (h *ArtworkHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	result, err := h.gallery.List(c.Request.Context(), h.provider, limit, offset)
	if err != nil {
		internalError(c, "Failed to list artwork", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Clear handles DELETE /api/v1/artwork. The emptied provider gets a new load.
func (h *ArtworkHandler) Clear(c *gin.Context) {
	removed, run, err := h.settings.ClearArtwork(c.Request.Context())
	if err != nil {
		internalError(c, "Failed to clear artwork", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"removed": removed,
		"run":     run,
	})
}

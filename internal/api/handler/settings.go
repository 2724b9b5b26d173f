package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/natgeo/internal/service"
)

// SettingsHandler handles provider settings endpoints.
type SettingsHandler struct {
	settings *service.SettingsService
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(settings *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// UpdateSettingsRequest represents the settings update request.
type UpdateSettingsRequest struct {
	RandomMode *bool `json:"random_mode" binding:"required"`
}

// Get handles GET /api/v1/settings.
func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.settings.Get(c.Request.Context())
	if err != nil {
		internalError(c, "Failed to load settings", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"random_mode": settings.RandomMode,
		"mode":        settings.Mode(),
	})
}

// Put handles PUT /api/v1/settings. Switching mode clears the artwork and
// returns the run that reloads it.
func (h *SettingsHandler) Put(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	settings, run, err := h.settings.SetRandomMode(c.Request.Context(), *req.RandomMode)
	if err != nil {
		internalError(c, "Failed to update settings", err)
		return
	}

	resp := gin.H{
		"random_mode": settings.RandomMode,
		"mode":        settings.Mode(),
	}
	if run != nil {
		resp["run"] = run
	}
	c.JSON(http.StatusOK, resp)
}

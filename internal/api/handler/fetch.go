package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/natgeo/internal/api/middleware"
	"github.com/timmy/natgeo/internal/domain"
	"github.com/timmy/natgeo/internal/service"
	"gorm.io/gorm"
)

// FetchHandler handles fetch run endpoints.
type FetchHandler struct {
	scheduler *service.Scheduler
	settings  *service.SettingsService
}

// NewFetchHandler creates a new fetch handler.
// Parameters:
//   - scheduler: scheduler that executes fetch runs.
//   - settings: settings service supplying the stored mode.
// Returns:
//   - *FetchHandler: initialized handler.
func NewFetchHandler(scheduler *service.Scheduler, settings *service.SettingsService) *FetchHandler {
	return &FetchHandler{
		scheduler: scheduler,
		settings:  settings,
	}
}

// FetchRequest represents the fetch API request. Mode names the fetch mode
// directly; Random is the boolean form. With neither, the stored setting
// applies.
type FetchRequest struct {
	Random *bool  `json:"random"`
	Mode   string `json:"mode"`
}

// Enqueue handles POST /api/v1/fetch.
func (h *FetchHandler) Enqueue(c *gin.Context) {
	var req FetchRequest
	// An empty body, chunked or not, decodes to io.EOF
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	mode, err := requestedMode(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	if mode == "" {
		settings, err := h.settings.Get(ctx)
		if err != nil {
			internalError(c, "Failed to load settings", err)
			return
		}
		mode = settings.Mode()
	}

	run, err := h.scheduler.Enqueue(ctx, mode)
	if err != nil {
		if errors.Is(err, service.ErrQueueFull) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		internalError(c, "Failed to enqueue fetch", err)
		return
	}

	c.JSON(http.StatusAccepted, run)
}

// ListRuns handles GET /api/v1/runs.
func (h *FetchHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	runs, err := h.scheduler.ListRuns(c.Request.Context(), limit)
	if err != nil {
		internalError(c, "Failed to list runs", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": runs,
		"count":   len(runs),
	})
}

// GetRun handles GET /api/v1/runs/:id.
func (h *FetchHandler) GetRun(c *gin.Context) {
	run, err := h.scheduler.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
			return
		}
		internalError(c, "Failed to get run", err)
		return
	}

	c.JSON(http.StatusOK, run)
}

// requestedMode returns the mode the request asks for, or "" when it names none.
func requestedMode(req *FetchRequest) (domain.FetchMode, error) {
	if req.Mode == "" {
		if req.Random == nil {
			return "", nil
		}
		return domain.ModeFor(*req.Random), nil
	}

	mode, err := domain.ParseFetchMode(req.Mode)
	if err != nil {
		return "", err
	}
	if req.Random != nil && domain.ModeFor(*req.Random) != mode {
		return "", fmt.Errorf("mode %q contradicts random=%t", mode, *req.Random)
	}
	return mode, nil
}

func internalError(c *gin.Context, message string, err error) {
	middleware.GetLogger(c).WithError(err).Error(message)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": message + ": " + err.Error(),
	})
}

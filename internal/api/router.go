package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/natgeo/internal/api/handler"
	"github.com/timmy/natgeo/internal/api/middleware"
	"github.com/timmy/natgeo/internal/logger"
	"github.com/timmy/natgeo/internal/service"
)

// Services bundles what the router's handlers need.
type Services struct {
	Provider  string
	Gallery   *service.GalleryService
	Settings  *service.SettingsService
	Scheduler *service.Scheduler
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(svc *Services, log *logger.Logger, mode string, cors middleware.CORSConfig) *gin.Engine {
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cors))

	healthHandler := handler.NewHealthHandler(svc.Provider)
	fetchHandler := handler.NewFetchHandler(svc.Scheduler, svc.Settings)
	artworkHandler := handler.NewArtworkHandler(svc.Gallery, svc.Settings, svc.Provider)
	settingsHandler := handler.NewSettingsHandler(svc.Settings)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		// Fetch runs
		v1.POST("/fetch", fetchHandler.Enqueue)
		v1.GET("/runs", fetchHandler.ListRuns)
		v1.GET("/runs/:id", fetchHandler.GetRun)

		// Artwork
		v1.GET("/artwork", artworkHandler.List)
		v1.DELETE("/artwork", artworkHandler.Clear)

		// Settings
		v1.GET("/settings", settingsHandler.Get)
		v1.PUT("/settings", settingsHandler.Put)
	}

	return r
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/natgeo/internal/api"
	"github.com/timmy/natgeo/internal/api/middleware"
	"github.com/timmy/natgeo/internal/config"
	"github.com/timmy/natgeo/internal/logger"
	"github.com/timmy/natgeo/internal/repository"
	"github.com/timmy/natgeo/internal/service"
	"github.com/timmy/natgeo/internal/source/natgeo"
	"github.com/timmy/natgeo/internal/storage"
)

func main() {
	appLogger := logger.NewFromEnv(nil)
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = appLogger.WithContext(ctx)

	provider := cfg.Provider.Name
	gallery := service.NewGalleryService(repository.NewArtworkRepository(db))

	var publisher service.ArtworkPublisher = gallery
	if cfg.Mirror.Enabled {
		objectStorage, err := storage.NewStorage(&storage.S3Config{
			Type:      storage.StorageType(cfg.Storage.Type),
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			PublicURL: cfg.Storage.PublicURL,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize storage")
		}
		if err := objectStorage.EnsureBucket(ctx); err != nil {
			appLogger.WithError(err).Fatal("Failed to ensure storage bucket")
		}
		publisher = service.NewMirrorPublisher(gallery, objectStorage, &service.MirrorConfig{
			Prefix:     cfg.Mirror.Prefix,
			RewriteURI: cfg.Mirror.RewriteURI,
			Timeout:    cfg.Mirror.Timeout,
		})
		appLogger.WithField("bucket", cfg.Storage.Bucket).Info("Image mirror enabled")
	}

	src := natgeo.NewClient(&natgeo.Config{
		BaseURL:    cfg.NatGeo.BaseURL,
		UserAgent:  cfg.NatGeo.UserAgent,
		Timeout:    cfg.NatGeo.Timeout,
		RetryCount: cfg.NatGeo.RetryCount,
		RatePerSec: cfg.NatGeo.RatePerSec,
	})

	task, err := service.NewFetchTask(src, publisher, &service.FetchTaskConfig{
		Provider:  provider,
		TimeZone:  cfg.NatGeo.TimeZone,
		FirstYear: cfg.NatGeo.FirstYear,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to create fetch task")
	}

	var online service.ConnectivityChecker = service.AlwaysOnline{}
	if cfg.Schedule.ConnectivityURL != "" {
		online = service.NewHTTPConnectivity(cfg.Schedule.ConnectivityURL, 10*time.Second)
	}

	scheduler := service.NewScheduler(task, online, repository.NewFetchRunRepository(db), appLogger, &service.SchedulerConfig{
		Provider:         provider,
		ConnectivityPoll: cfg.Schedule.ConnectivityPoll,
		BackoffInitial:   cfg.Schedule.BackoffInitial,
		BackoffMax:       cfg.Schedule.BackoffMax,
		MaxAttempts:      cfg.Schedule.MaxAttempts,
		RunTimeout:       cfg.Schedule.RunTimeout,
		QueueSize:        cfg.Schedule.QueueSize,
	})
	scheduler.Start(ctx)

	settings := service.NewSettingsService(
		repository.NewSettingsRepository(db, cfg.Provider.DefaultRandomMode),
		gallery,
		scheduler,
		provider,
	)

	// An empty provider asks for its first artwork right away
	if run, err := settings.RequestLoadIfEmpty(ctx); err != nil {
		appLogger.WithError(err).Error("Failed to request initial load")
	} else if run != nil {
		appLogger.WithField(logger.FieldRunID, run.ID).Info("Initial load requested")
	}
	go settings.RunPeriodic(ctx, cfg.Schedule.Interval)

	router := api.SetupRouter(&api.Services{
		Provider:  provider,
		Gallery:   gallery,
		Settings:  settings,
		Scheduler: scheduler,
	}, appLogger, cfg.Server.Mode, middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port":               cfg.Server.Port,
			"mode":               cfg.Server.Mode,
			logger.FieldProvider: provider,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}

	cancel()
	scheduler.Stop()

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	appLogger.Info("Server exited")
}

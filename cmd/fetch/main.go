package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/natgeo/internal/config"
	"github.com/timmy/natgeo/internal/domain"
	"github.com/timmy/natgeo/internal/logger"
	"github.com/timmy/natgeo/internal/repository"
	"github.com/timmy/natgeo/internal/service"
	"github.com/timmy/natgeo/internal/source"
	"github.com/timmy/natgeo/internal/source/natgeo"
	"github.com/timmy/natgeo/internal/source/staging"
	"github.com/timmy/natgeo/internal/storage"
)

// Exit codes; 75 is EX_TEMPFAIL so callers can retry.
const (
	exitSuccess   = 0
	exitFailed    = 1
	exitRetryable = 75
)

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "natgeo-fetch",
	})
	logger.SetDefaultLogger(appLogger)

	random := flag.Bool("random", false, "Fetch a random photo from a random past month instead of the latest")
	sourceType := flag.String("source", "natgeo", "Photo source: natgeo or staging")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	var src source.PhotoSource
	switch *sourceType {
	case "natgeo":
		src = natgeo.NewClient(&natgeo.Config{
			BaseURL:    cfg.NatGeo.BaseURL,
			UserAgent:  cfg.NatGeo.UserAgent,
			Timeout:    cfg.NatGeo.Timeout,
			RetryCount: cfg.NatGeo.RetryCount,
			RatePerSec: cfg.NatGeo.RatePerSec,
		})
	case "staging":
		src = staging.NewAdapter(cfg.Staging.Path)
	default:
		appLogger.WithField("source", *sourceType).Fatal("Unknown source type")
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	ctx, cancel := context.WithCancel(appLogger.WithContext(context.Background()))
	defer cancel()

	var publisher service.ArtworkPublisher = service.NewGalleryService(repository.NewArtworkRepository(db))
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
		publisher = service.NewMirrorPublisher(publisher, objectStorage, &service.MirrorConfig{
			Prefix:     cfg.Mirror.Prefix,
			RewriteURI: cfg.Mirror.RewriteURI,
			Timeout:    cfg.Mirror.Timeout,
		})
	}

	task, err := service.NewFetchTask(src, publisher, &service.FetchTaskConfig{
		Provider:  cfg.Provider.Name,
		TimeZone:  cfg.NatGeo.TimeZone,
		FirstYear: cfg.NatGeo.FirstYear,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to create fetch task")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	mode := domain.ModeFor(*random)
	appLogger.WithFields(logger.Fields{
		logger.FieldSource: src.GetSourceID(),
		logger.FieldMode:   string(mode),
	}).Info("Starting fetch")

	outcome := task.Run(ctx, mode)
	appLogger.WithField(logger.FieldStatus, string(outcome)).Info("Fetch completed")

	os.Exit(exitCode(outcome))
}

func exitCode(outcome domain.Outcome) int {
	switch outcome {
	case domain.OutcomeSuccess:
		return exitSuccess
	case domain.OutcomeRetryable:
		return exitRetryable
	default:
		return exitFailed
	}
}

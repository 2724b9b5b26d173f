package service

import (
	"context"
	"fmt"
	"time"

	"github.com/timmy/natgeo/internal/domain"
	"github.com/timmy/natgeo/internal/logger"
	"github.com/timmy/natgeo/internal/repository"
)

// Enqueuer schedules fetch runs.
type Enqueuer interface {
	Enqueue(ctx context.Context, mode domain.FetchMode) (*domain.FetchRun, error)
}

// SettingsService owns the provider's mode preference and the load requests
// that depend on it.
type SettingsService struct {
	settings *repository.SettingsRepository
	gallery  *GalleryService
	enqueuer Enqueuer
	provider string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(settings *repository.SettingsRepository, gallery *GalleryService, enqueuer Enqueuer, provider string) *SettingsService {
	return &SettingsService{
		settings: settings,
		gallery:  gallery,
		enqueuer: enqueuer,
		provider: provider,
	}
}

// Get returns the provider's current settings.
func (s *SettingsService) Get(ctx context.Context) (*domain.ProviderSettings, error) {
	settings, err := s.settings.Get(ctx, s.provider)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return settings, nil
}

// SetRandomMode switches between random and latest mode. A switch deletes
// the provider's artwork and requests a load in the new mode; setting the
// current mode again changes nothing and returns a nil run. The mode and the
// artwork change together or not at all. When only the reload cannot be
// queued, the committed settings are returned together with the error.
func (s *SettingsService) SetRandomMode(ctx context.Context, random bool) (*domain.ProviderSettings, *domain.FetchRun, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return nil, nil, err
	}
	if settings.RandomMode == random {
		return settings, nil, nil
	}

	settings.RandomMode = random
	removed, err := s.settings.SwitchMode(ctx, settings)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to switch fetch mode: %w", err)
	}
	logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldMode:  string(settings.Mode()),
		logger.FieldCount: removed,
	}).Info("Fetch mode switched, artwork cleared")

	run, err := s.enqueuer.Enqueue(ctx, settings.Mode())
	if err != nil {
		return settings, nil, fmt.Errorf("fetch mode switched but reload not queued: %w", err)
	}
	return settings, run, nil
}

// RequestLoad enqueues a run in the stored mode.
func (s *SettingsService) RequestLoad(ctx context.Context) (*domain.FetchRun, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return s.enqueuer.Enqueue(ctx, settings.Mode())
}

// ClearArtwork deletes the provider's artwork and requests a new load, the
// way a gallery host asks for artwork once its provider is empty.
func (s *SettingsService) ClearArtwork(ctx context.Context) (int64, *domain.FetchRun, error) {
	removed, err := s.gallery.Clear(ctx, s.provider)
	if err != nil {
		return 0, nil, err
	}
	run, err := s.RequestLoad(ctx)
	if err != nil {
		return removed, nil, err
	}
	return removed, run, nil
}

// RequestLoadIfEmpty enqueues a load when the provider holds no artwork.
// It returns a nil run when artwork exists.
func (s *SettingsService) RequestLoadIfEmpty(ctx context.Context) (*domain.FetchRun, error) {
	count, err := s.gallery.Count(ctx, s.provider)
	if err != nil {
		return nil, fmt.Errorf("failed to count artwork: %w", err)
	}
	if count > 0 {
		return nil, nil
	}
	return s.RequestLoad(ctx)
}

// RunPeriodic requests a load every interval until ctx is cancelled.
func (s *SettingsService) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RequestLoad(ctx); err != nil {
				logger.FromContext(ctx).WithError(err).Error("Periodic load request failed")
			}
		}
	}
}

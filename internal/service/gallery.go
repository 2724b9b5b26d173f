package service

import (
	"context"
	"fmt"

	"github.com/timmy/natgeo/internal/domain"
	"github.com/timmy/natgeo/internal/repository"
)

// GalleryService stores published artwork on behalf of gallery providers.
type GalleryService struct {
	artworks *repository.ArtworkRepository
}

// NewGalleryService creates a new gallery service.
func NewGalleryService(artworks *repository.ArtworkRepository) *GalleryService {
	return &GalleryService{artworks: artworks}
}

// AddArtwork stores art alongside the provider's existing artwork.
func (s *GalleryService) AddArtwork(ctx context.Context, provider string, art *domain.Artwork) error {
	art.ProviderName = provider
	if err := s.artworks.Add(ctx, art); err != nil {
		return fmt.Errorf("failed to add artwork: %w", err)
	}
	return nil
}

// SetArtwork replaces the provider's artwork with art.
func (s *GalleryService) SetArtwork(ctx context.Context, provider string, art *domain.Artwork) error {
	art.ProviderName = provider
	if err := s.artworks.ReplaceAll(ctx, art); err != nil {
		return fmt.Errorf("failed to set artwork: %w", err)
	}
	return nil
}

// ArtworkListResult is a page of a provider's artwork.
type ArtworkListResult struct {
	Total   int64            `json:"total"`
	Results []domain.Artwork `json:"results"`
}

// List returns a page of the provider's artwork, newest first.
func (s *GalleryService) List(ctx context.Context, provider string, limit, offset int) (*ArtworkListResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	total, err := s.artworks.Count(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to count artwork: %w", err)
	}
	results, err := s.artworks.List(ctx, provider, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list artwork: %w", err)
	}
	return &ArtworkListResult{Total: total, Results: results}, nil
}

// Count returns how many artworks the provider holds.
func (s *GalleryService) Count(ctx context.Context, provider string) (int64, error) {
	return s.artworks.Count(ctx, provider)
}

// Clear removes all of the provider's artwork.
func (s *GalleryService) Clear(ctx context.Context, provider string) (int64, error) {
	removed, err := s.artworks.DeleteAll(ctx, provider)
	if err != nil {
		return 0, fmt.Errorf("failed to clear artwork: %w", err)
	}
	return removed, nil
}

package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/timmy/natgeo/internal/domain"
	"gorm.io/gorm"
)

// ArtworkRepository handles the artwork held by gallery providers.
type ArtworkRepository struct {
	db *gorm.DB
}

// NewArtworkRepository creates a new ArtworkRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ArtworkRepository: repository instance bound to db.
func NewArtworkRepository(db *gorm.DB) *ArtworkRepository {
	return &ArtworkRepository{db: db}
}

// Add stores an artwork alongside the provider's existing artwork.
// When the artwork carries a token the provider already holds, that row is
// refreshed in place instead of adding a duplicate.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - art: artwork to store; ID is assigned when empty.
// Returns:
//   - error: non-nil if the write fails.
func (r *ArtworkRepository) Add(ctx context.Context, art *domain.Artwork) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if art.Token != "" {
			var existing domain.Artwork
			err := tx.Where("provider_name = ? AND token = ?", art.ProviderName, art.Token).First(&existing).Error
			if err == nil {
				art.ID = existing.ID
				art.CreatedAt = existing.CreatedAt
				return tx.Save(art).Error
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}
		if art.ID == "" {
			art.ID = uuid.New().String()
		}
		return tx.Create(art).Error
	})
}

// ReplaceAll removes the provider's artwork and stores art as its only artwork.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - art: artwork to store; ID is assigned when empty.
// Returns:
//   - error: non-nil if the transaction fails.
func (r *ArtworkRepository) ReplaceAll(ctx context.Context, art *domain.Artwork) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("provider_name = ?", art.ProviderName).Delete(&domain.Artwork{}).Error; err != nil {
			return err
		}
		if art.ID == "" {
			art.ID = uuid.New().String()
		}
		return tx.Create(art).Error
	})
}

// List returns the provider's artwork, newest first.
func (r *ArtworkRepository) List(ctx context.Context, provider string, limit, offset int) ([]domain.Artwork, error) {
	var artworks []domain.Artwork
	err := r.db.WithContext(ctx).
		Where("provider_name = ?", provider).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&artworks).Error
	return artworks, err
}

// Count returns how many artworks the provider holds.
func (r *ArtworkRepository) Count(ctx context.Context, provider string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Artwork{}).Where("provider_name = ?", provider).Count(&count).Error
	return count, err
}

// DeleteAll removes every artwork of the provider and reports how many were removed.
func (r *ArtworkRepository) DeleteAll(ctx context.Context, provider string) (int64, error) {
	result := r.db.WithContext(ctx).Where("provider_name = ?", provider).Delete(&domain.Artwork{})
	return result.RowsAffected, result.Error
}

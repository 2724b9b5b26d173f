package repository

import (
	"context"
	"errors"

	"github.com/timmy/natgeo/internal/domain"
	"gorm.io/gorm"
)

// SettingsRepository handles persisted provider preferences.
type SettingsRepository struct {
	db            *gorm.DB
	defaultRandom bool
}

// NewSettingsRepository creates a new SettingsRepository.
// Parameters:
//   - db: GORM database handle.
//   - defaultRandom: random mode reported for providers without saved settings.
// Returns:
//   - *SettingsRepository: repository instance bound to db.
func NewSettingsRepository(db *gorm.DB, defaultRandom bool) *SettingsRepository {
	return &SettingsRepository{db: db, defaultRandom: defaultRandom}
}

// Get returns the provider's settings, or the defaults when none were saved.
func (r *SettingsRepository) Get(ctx context.Context, provider string) (*domain.ProviderSettings, error) {
	var settings domain.ProviderSettings
	err := r.db.WithContext(ctx).First(&settings, "provider_name = ?", provider).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.ProviderSettings{ProviderName: provider, RandomMode: r.defaultRandom}, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// Save creates or updates the provider's settings.
func (r *SettingsRepository) Save(ctx context.Context, settings *domain.ProviderSettings) error {
	return r.db.WithContext(ctx).Save(settings).Error
}

// SwitchMode saves settings and deletes the provider's artwork in one
// transaction, so a failed switch leaves both untouched.
// Returns:
//   - int64: number of artworks removed.
//   - error: non-nil if the transaction fails.
func (r *SettingsRepository) SwitchMode(ctx context.Context, settings *domain.ProviderSettings) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(settings).Error; err != nil {
			return err
		}
		res := tx.Where("provider_name = ?", settings.ProviderName).Delete(&domain.Artwork{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

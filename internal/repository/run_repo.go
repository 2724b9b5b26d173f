package repository

import (
	"context"

	"github.com/timmy/natgeo/internal/domain"
	"gorm.io/gorm"
)

// FetchRunRepository handles fetch run history.
type FetchRunRepository struct {
	db *gorm.DB
}

// NewFetchRunRepository creates a new FetchRunRepository.
func NewFetchRunRepository(db *gorm.DB) *FetchRunRepository {
	return &FetchRunRepository{db: db}
}

// Create inserts a new fetch run.
func (r *FetchRunRepository) Create(ctx context.Context, run *domain.FetchRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Update saves all fields of an existing fetch run.
func (r *FetchRunRepository) Update(ctx context.Context, run *domain.FetchRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

// GetByID retrieves a fetch run by its ID.
// Returns gorm.ErrRecordNotFound when no run matches.
func (r *FetchRunRepository) GetByID(ctx context.Context, id string) (*domain.FetchRun, error) {
	var run domain.FetchRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRecent returns the most recently created runs of a provider.
func (r *FetchRunRepository) ListRecent(ctx context.Context, provider string, limit int) ([]domain.FetchRun, error) {
	var runs []domain.FetchRun
	err := r.db.WithContext(ctx).
		Where("provider = ?", provider).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

// ListUnfinished returns the provider's runs that never reached a terminal
// status, oldest first.
func (r *FetchRunRepository) ListUnfinished(ctx context.Context, provider string) ([]domain.FetchRun, error) {
	var runs []domain.FetchRun
	err := r.db.WithContext(ctx).
		Where("provider = ? AND status IN ?", provider, []domain.RunStatus{
			domain.RunStatusPending,
			domain.RunStatusRunning,
			domain.RunStatusRetrying,
		}).
		Order("created_at ASC").
		Find(&runs).Error
	return runs, err
}

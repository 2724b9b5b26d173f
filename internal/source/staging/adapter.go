package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/timmy/natgeo/internal/domain"
	"github.com/timmy/natgeo/internal/source"
)

const (
	SourceID = "staging"

	// LatestFileName holds the current photos of the day.
	LatestFileName = "latest.json"
)

// Adapter implements source.PhotoSource over a directory of gallery files.
// The directory holds latest.json and one YYYY-MM.json file per month, each
// in the same format as the remote gallery API.
type Adapter struct {
	basePath string
}

// NewAdapter creates a new staging adapter.
// Parameters:
//   - basePath: directory containing the gallery files.
// Returns:
//   - *Adapter: initialized staging adapter.
func NewAdapter(basePath string) *Adapter {
	return &Adapter{basePath: basePath}
}

// GetSourceID returns the unique identifier for this source.
func (a *Adapter) GetSourceID() string {
	return SourceID
}

// ListPhotosOfTheDay reads latest.json.
func (a *Adapter) ListPhotosOfTheDay(ctx context.Context) ([]domain.Photo, error) {
	return a.load(ctx, LatestFileName)
}

// ListPhotosOfMonth reads YYYY-MM.json; a missing file means no photos.
func (a *Adapter) ListPhotosOfMonth(ctx context.Context, year, month int) ([]domain.Photo, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month %d", month)
	}
	return a.load(ctx, source.MonthKey(year, month)+".json")
}

func (a *Adapter) load(ctx context.Context, name string) ([]domain.Photo, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", source.ErrTransport, err)
	}

	data, err := os.ReadFile(filepath.Join(a.basePath, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []domain.Photo{}, nil
		}
		return nil, fmt.Errorf("%w: failed to read %s: %v", source.ErrTransport, name, err)
	}

	var gallery source.Gallery
	if err := json.Unmarshal(data, &gallery); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return gallery.Photos(), nil
}

package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/timmy/natgeo/internal/domain"
)

// ErrTransport marks failures caused by I/O rather than by the data itself.
// Callers treat it as retryable.
var ErrTransport = errors.New("photo source transport error")

// PhotoSource defines the interface for photo-of-the-day sources.
type PhotoSource interface {
	// GetSourceID returns the unique identifier for this source.
	// Parameters: none.
	// Returns:
	//   - string: stable source identifier.
	GetSourceID() string

	// ListPhotosOfTheDay returns the current photos of the day, most recent first.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	// Returns:
	//   - []domain.Photo: photos, possibly empty.
	//   - error: wraps ErrTransport on I/O failures.
	ListPhotosOfTheDay(ctx context.Context) ([]domain.Photo, error)

	// ListPhotosOfMonth returns every photo published in the given month.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - year: calendar year.
	//   - month: calendar month, 1-12.
	// Returns:
	//   - []domain.Photo: photos, possibly empty.
	//   - error: wraps ErrTransport on I/O failures.
	ListPhotosOfMonth(ctx context.Context, year, month int) ([]domain.Photo, error)
}

// Gallery is the photo-of-the-day response body shared by the API and staging files.
type Gallery struct {
	Items []GalleryItem `json:"items"`
}

// GalleryItem is one photo entry of a Gallery.
type GalleryItem struct {
	Title       string            `json:"title"`
	Caption     string            `json:"caption"`
	Credit      string            `json:"credit"`
	URL         string            `json:"url"`
	PageURL     string            `json:"pageUrl"`
	PublishDate string            `json:"publishDate"`
	Sizes       map[string]string `json:"sizes,omitempty"`
}

// Photos converts the gallery items to domain photos, keeping their order.
func (g *Gallery) Photos() []domain.Photo {
	photos := make([]domain.Photo, 0, len(g.Items))
	for _, item := range g.Items {
		photos = append(photos, domain.Photo{
			Title:        item.Title,
			PublishDate:  item.PublishDate,
			Photographer: item.Credit,
			Description:  item.Caption,
			PageURL:      item.PageURL,
			ImageURL:     item.URL,
			Sizes:        item.Sizes,
		})
	}
	return photos
}

// MonthKey formats a year and month as used in gallery file and endpoint names.
func MonthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

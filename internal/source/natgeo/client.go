package natgeo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/timmy/natgeo/internal/domain"
	"github.com/timmy/natgeo/internal/source"
)

const (
	SourceID = "natgeo"

	latestPath = "/_jcr_content/.gallery.json"
	monthPath  = "/_jcr_content/.gallery.%s.json"
)

// Config holds configuration for the National Geographic client.
type Config struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	RetryCount int
	RatePerSec float64 // 0 disables rate limiting
}

// Client implements source.PhotoSource against the photo-of-the-day gallery API.
type Client struct {
	client  *resty.Client
	limiter *rate.Limiter
}

// NewClient creates a new National Geographic client.
// Parameters:
//   - cfg: client configuration including base URL and retry policy.
// Returns:
//   - *Client: initialized client.
func NewClient(cfg *Config) *Client {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetHeader("Accept", "application/json")
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	client.SetRetryCount(cfg.RetryCount)
	client.SetRetryWaitTime(500 * time.Millisecond)
	client.SetRetryMaxWaitTime(5 * time.Second)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || isTransientStatus(r.StatusCode())
	})

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
	}

	return &Client{
		client:  client,
		limiter: limiter,
	}
}

// GetSourceID returns the unique identifier for this source
func (c *Client) GetSourceID() string {
	return SourceID
}

// ListPhotosOfTheDay fetches the current photo-of-the-day gallery
func (c *Client) ListPhotosOfTheDay(ctx context.Context) ([]domain.Photo, error) {
	return c.fetch(ctx, latestPath)
}

// ListPhotosOfMonth fetches the gallery of a past or current month
func (c *Client) ListPhotosOfMonth(ctx context.Context, year, month int) ([]domain.Photo, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month %d", month)
	}
	return c.fetch(ctx, fmt.Sprintf(monthPath, source.MonthKey(year, month)))
}

func (c *Client) fetch(ctx context.Context, path string) ([]domain.Photo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", source.ErrTransport, err)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to call gallery API: %v", source.ErrTransport, err)
	}

	status := resp.StatusCode()
	switch {
	case status == http.StatusNotFound:
		// Months without published photos have no gallery document
		return []domain.Photo{}, nil
	case isTransientStatus(status):
		return nil, fmt.Errorf("%w: gallery API status %d", source.ErrTransport, status)
	case status < 200 || status >= 300:
		return nil, fmt.Errorf("gallery API error: status %d", status)
	}

	var gallery source.Gallery
	if err := json.Unmarshal(resp.Body(), &gallery); err != nil {
		return nil, fmt.Errorf("failed to decode gallery: %w", err)
	}

	return gallery.Photos(), nil
}

func isTransientStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

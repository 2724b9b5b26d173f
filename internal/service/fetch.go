package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
	_ "time/tzdata"

	"github.com/timmy/natgeo/internal/domain"
	"github.com/timmy/natgeo/internal/logger"
	"github.com/timmy/natgeo/internal/source"
)

const (
	defaultTimeZone  = "America/New_York"
	defaultFirstYear = 2011
)

// ArtworkPublisher hands artwork to a named gallery provider.
type ArtworkPublisher interface {
	// AddArtwork stores the artwork alongside the provider's existing artwork.
	AddArtwork(ctx context.Context, provider string, art *domain.Artwork) error
	// SetArtwork replaces the provider's artwork with just this one.
	SetArtwork(ctx context.Context, provider string, art *domain.Artwork) error
}

// Rand is the random source used to pick months and photos.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// FetchTaskConfig holds configuration for the fetch task.
type FetchTaskConfig struct {
	Provider  string
	TimeZone  string // calendar used to bound random months; default America/New_York
	FirstYear int    // first year of the random range; default 2011

	Now  func() time.Time // default time.Now
	Rand Rand             // default math/rand/v2 global source
}

// FetchTask fetches one photo of the day and publishes it as artwork.
type FetchTask struct {
	source    source.PhotoSource
	publisher ArtworkPublisher
	provider  string
	location  *time.Location
	firstYear int
	now       func() time.Time
	rng       Rand
}

// NewFetchTask creates a new fetch task.
// Parameters:
//   - src: photo source queried for candidates.
//   - publisher: gallery the selected artwork is published to.
//   - cfg: task configuration.
//
// Returns:
//   - *FetchTask: initialized task.
//   - error: non-nil if the time zone cannot be loaded.
func NewFetchTask(src source.PhotoSource, publisher ArtworkPublisher, cfg *FetchTaskConfig) (*FetchTask, error) {
	tz := cfg.TimeZone
	if tz == "" {
		tz = defaultTimeZone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("failed to load time zone %q: %w", tz, err)
	}

	t := &FetchTask{
		source:    src,
		publisher: publisher,
		provider:  cfg.Provider,
		location:  loc,
		firstYear: cfg.FirstYear,
		now:       cfg.Now,
		rng:       cfg.Rand,
	}
	if t.firstYear <= 0 {
		t.firstYear = defaultFirstYear
	}
	if t.now == nil {
		t.now = time.Now
	}
	if t.rng == nil {
		t.rng = globalRand{}
	}
	return t, nil
}

// Run performs one fetch in the given mode.
// Transport failures are retryable; missing or unusable data fails the run.
func (t *FetchTask) Run(ctx context.Context, mode domain.FetchMode) domain.Outcome {
	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldMode:     string(mode),
		logger.FieldSource:   t.source.GetSourceID(),
		logger.FieldProvider: t.provider,
	})
	start := time.Now()

	photo, err := t.selectPhoto(ctx, mode)
	if err != nil {
		if errors.Is(err, source.ErrTransport) {
			logger.FromContext(ctx).WithError(err).Warn("Error reading photo API")
			return domain.OutcomeRetryable
		}
		logger.FromContext(ctx).WithError(err).Error("Photo API returned unusable data")
		return domain.OutcomeFailed
	}

	if photo == nil {
		logger.CtxWarn(ctx, "No photo returned from API")
		return domain.OutcomeFailed
	}
	if photo.ImageURL == "" {
		logger.CtxWarn(ctx, "Photo url is empty (publish_date=%s)", photo.PublishDate)
		return domain.OutcomeFailed
	}

	art := domain.NewArtworkFromPhoto(photo)
	if mode == domain.FetchModeRandom {
		err = t.publisher.AddArtwork(ctx, t.provider, art)
	} else {
		err = t.publisher.SetArtwork(ctx, t.provider, art)
	}
	if err != nil {
		logger.FromContext(ctx).WithError(err).Errorf("Failed to publish artwork (publish_date=%s)", photo.PublishDate)
		return domain.OutcomeRetryable
	}

	logger.With(logger.Fields{
		"title":        art.Title,
		"publish_date": photo.PublishDate,
	}).WithDuration(time.Since(start).Milliseconds()).
		WithStatus(string(domain.OutcomeSuccess)).
		Info(ctx, "Published artwork")
	return domain.OutcomeSuccess
}

func (t *FetchTask) selectPhoto(ctx context.Context, mode domain.FetchMode) (*domain.Photo, error) {
	switch mode {
	case domain.FetchModeRandom:
		year, month := t.randomMonth()
		key := source.MonthKey(year, month)
		logger.CtxDebug(ctx, "Fetching random photo of %s", key)

		photos, err := t.source.ListPhotosOfMonth(ctx, year, month)
		if err != nil {
			return nil, fmt.Errorf("list photos of %s: %w", key, err)
		}
		if len(photos) == 0 {
			logger.CtxWarn(ctx, "No photos published in %s", key)
			return nil, nil
		}
		return &photos[t.rng.IntN(len(photos))], nil

	case domain.FetchModeLatest:
		photos, err := t.source.ListPhotosOfTheDay(ctx)
		if err != nil {
			return nil, fmt.Errorf("list photos of the day: %w", err)
		}
		if len(photos) == 0 {
			return nil, nil
		}
		return &photos[0], nil

	default:
		return nil, fmt.Errorf("unknown fetch mode %q", mode)
	}
}

// randomMonth picks a uniformly random year from firstYear to the current
// year, then a month of that year that is not in the future.
func (t *FetchTask) randomMonth() (year, month int) {
	now := t.now().In(t.location)
	currentYear, currentMonth := now.Year(), int(now.Month())

	first := t.firstYear
	if first > currentYear {
		first = currentYear
	}

	year = first + t.rng.IntN(currentYear-first+1)
	if year == currentYear {
		month = 1 + t.rng.IntN(currentMonth)
	} else {
		month = 1 + t.rng.IntN(12)
	}
	return year, month
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/natgeo/internal/domain"
	"github.com/timmy/natgeo/internal/repository"
)

type recordingEnqueuer struct {
	mu    sync.Mutex
	modes []domain.FetchMode
	err   error
}

func (e *recordingEnqueuer) Enqueue(_ context.Context, mode domain.FetchMode) (*domain.FetchRun, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	e.modes = append(e.modes, mode)
	return &domain.FetchRun{ID: "run", Mode: mode, Status: domain.RunStatusPending}, nil
}

func (e *recordingEnqueuer) recorded() []domain.FetchMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.FetchMode(nil), e.modes...)
}

func newSettingsFixture(t *testing.T, defaultRandom bool) (*SettingsService, *GalleryService, *recordingEnqueuer) {
	t.Helper()
	db := newTestDB(t)
	gallery := NewGalleryService(repository.NewArtworkRepository(db))
	enq := &recordingEnqueuer{}
	svc := NewSettingsService(repository.NewSettingsRepository(db, defaultRandom), gallery, enq, testProvider)
	return svc, gallery, enq
}

func TestGalleryAddKeepsAndSetReplaces(t *testing.T) {
	ctx := context.Background()
	_, gallery, _ := newSettingsFixture(t, true)

	require.NoError(t, gallery.AddArtwork(ctx, testProvider, &domain.Artwork{Title: "A", Token: "a"}))
	require.NoError(t, gallery.AddArtwork(ctx, testProvider, &domain.Artwork{Title: "B", Token: "b"}))
	require.NoError(t, gallery.AddArtwork(ctx, testProvider, &domain.Artwork{Title: "B again", Token: "b"}))

	page, err := gallery.List(ctx, testProvider, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	require.NoError(t, gallery.SetArtwork(ctx, testProvider, &domain.Artwork{Title: "C", Token: "c"}))
	page, err = gallery.List(ctx, testProvider, 10, 0)
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "C", page.Results[0].Title)
	assert.Equal(t, testProvider, page.Results[0].ProviderName)

	other, err := gallery.Count(ctx, "other")
	require.NoError(t, err)
	assert.Zero(t, other)
}

func TestSettingsDefaults(t *testing.T) {
	svc, _, _ := newSettingsFixture(t, true)

	settings, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, settings.RandomMode)
	assert.Equal(t, domain.FetchModeRandom, settings.Mode())
}

func TestSettingsSwitchClearsAndReloads(t *testing.T) {
	ctx := context.Background()
	svc, gallery, enq := newSettingsFixture(t, true)
	require.NoError(t, gallery.AddArtwork(ctx, testProvider, &domain.Artwork{Title: "old", Token: "old"}))

	settings, run, err := svc.SetRandomMode(ctx, false)
	require.NoError(t, err)
	assert.False(t, settings.RandomMode)
	require.NotNil(t, run)
	assert.Equal(t, domain.FetchModeLatest, run.Mode)
	assert.Equal(t, []domain.FetchMode{domain.FetchModeLatest}, enq.modes)

	count, err := gallery.Count(ctx, testProvider)
	require.NoError(t, err)
	assert.Zero(t, count)

	stored, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.False(t, stored.RandomMode)
}

func TestSettingsSameModeIsNoop(t *testing.T) {
	ctx := context.Background()
	svc, gallery, enq := newSettingsFixture(t, true)
	require.NoError(t, gallery.AddArtwork(ctx, testProvider, &domain.Artwork{Title: "keep", Token: "keep"}))

	_, run, err := svc.SetRandomMode(ctx, true)
	require.NoError(t, err)
	assert.Nil(t, run)
	assert.Empty(t, enq.modes)

	count, err := gallery.Count(ctx, testProvider)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestClearArtworkRequestsLoad(t *testing.T) {
	ctx := context.Background()
	svc, gallery, enq := newSettingsFixture(t, false)
	require.NoError(t, gallery.AddArtwork(ctx, testProvider, &domain.Artwork{Title: "a", Token: "a"}))
	require.NoError(t, gallery.AddArtwork(ctx, testProvider, &domain.Artwork{Title: "b", Token: "b"}))

	removed, run, err := svc.ClearArtwork(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	require.NotNil(t, run)
	assert.Equal(t, []domain.FetchMode{domain.FetchModeLatest}, enq.modes)
}

func TestRequestLoadIfEmpty(t *testing.T) {
	ctx := context.Background()
	svc, gallery, enq := newSettingsFixture(t, true)

	run, err := svc.RequestLoadIfEmpty(ctx)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, []domain.FetchMode{domain.FetchModeRandom}, enq.modes)

	require.NoError(t, gallery.AddArtwork(ctx, testProvider, &domain.Artwork{Title: "a"}))
	run, err = svc.RequestLoadIfEmpty(ctx)
	require.NoError(t, err)
	assert.Nil(t, run)
	assert.Len(t, enq.modes, 1)
}

func TestSettingsSwitchWithFullQueueKeepsSwitch(t *testing.T) {
	ctx := context.Background()
	svc, gallery, enq := newSettingsFixture(t, true)
	require.NoError(t, gallery.AddArtwork(ctx, testProvider, &domain.Artwork{Title: "old", Token: "old"}))
	enq.err = ErrQueueFull

	settings, run, err := svc.SetRandomMode(ctx, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQueueFull))
	assert.Nil(t, run)
	require.NotNil(t, settings)
	assert.False(t, settings.RandomMode)

	stored, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.False(t, stored.RandomMode)

	count, err := gallery.Count(ctx, testProvider)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRunPeriodicUsesStoredMode(t *testing.T) {
	svc, _, enq := newSettingsFixture(t, true)
	_, _, err := svc.SetRandomMode(context.Background(), false)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.RunPeriodic(ctx, 5*time.Millisecond)
		close(done)
	}()

	// the switch itself queued one latest run
	require.Eventually(t, func() bool { return len(enq.recorded()) >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunPeriodic did not return after cancel")
	}
	for _, mode := range enq.recorded() {
		assert.Equal(t, domain.FetchModeLatest, mode)
	}
}

func TestRunPeriodicDisabled(t *testing.T) {
	svc, _, enq := newSettingsFixture(t, true)

	done := make(chan struct{})
	go func() {
		svc.RunPeriodic(context.Background(), 0)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunPeriodic with zero interval should return")
	}
	assert.Empty(t, enq.recorded())
}

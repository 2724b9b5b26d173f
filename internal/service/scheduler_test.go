package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/timmy/natgeo/internal/domain"
	"github.com/timmy/natgeo/internal/repository"
)

// scriptedRunner returns the scripted outcomes in order, then success.
type scriptedRunner struct {
	mu       sync.Mutex
	outcomes []domain.Outcome
	modes    []domain.FetchMode
	active   int32
	overlap  int32
}

func (r *scriptedRunner) Run(_ context.Context, mode domain.FetchMode) domain.Outcome {
	if atomic.AddInt32(&r.active, 1) > 1 {
		atomic.StoreInt32(&r.overlap, 1)
	}
	defer atomic.AddInt32(&r.active, -1)
	time.Sleep(time.Millisecond)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.modes = append(r.modes, mode)
	if len(r.outcomes) == 0 {
		return domain.OutcomeSuccess
	}
	out := r.outcomes[0]
	r.outcomes = r.outcomes[1:]
	return out
}

func (r *scriptedRunner) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.modes)
}

type toggleOnline struct {
	online atomic.Bool
	checks atomic.Int32
}

func (c *toggleOnline) Online(context.Context) bool {
	c.checks.Add(1)
	return c.online.Load()
}

func testSchedulerConfig(maxAttempts int) *SchedulerConfig {
	return &SchedulerConfig{
		Provider:         testProvider,
		ConnectivityPoll: 2 * time.Millisecond,
		BackoffInitial:   time.Millisecond,
		BackoffMax:       5 * time.Millisecond,
		MaxAttempts:      maxAttempts,
		RunTimeout:       time.Second,
		QueueSize:        8,
	}
}

func newTestScheduler(t *testing.T, runner Runner, online ConnectivityChecker, maxAttempts int) *Scheduler {
	t.Helper()
	return startScheduler(t, newTestDB(t), runner, online, testSchedulerConfig(maxAttempts))
}

func startScheduler(t *testing.T, db *gorm.DB, runner Runner, online ConnectivityChecker, cfg *SchedulerConfig) *Scheduler {
	t.Helper()
	s := NewScheduler(runner, online, repository.NewFetchRunRepository(db), nil, cfg)
	s.Start(context.Background())
	t.Cleanup(s.Stop)
	return s
}

func waitForStatus(t *testing.T, s *Scheduler, id string, status domain.RunStatus) *domain.FetchRun {
	t.Helper()
	var run *domain.FetchRun
	require.Eventually(t, func() bool {
		got, err := s.GetRun(context.Background(), id)
		if err != nil {
			return false
		}
		run = got
		return got.Status == status
	}, 2*time.Second, 5*time.Millisecond)
	return run
}

func TestSchedulerRunsEnqueuedFetch(t *testing.T) {
	runner := &scriptedRunner{}
	s := newTestScheduler(t, runner, AlwaysOnline{}, 0)

	queued, err := s.Enqueue(context.Background(), domain.FetchModeRandom)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusPending, queued.Status)
	assert.False(t, queued.Done())

	run := waitForStatus(t, s, queued.ID, domain.RunStatusSucceeded)
	assert.Equal(t, 1, run.Attempts)
	assert.Equal(t, domain.OutcomeSuccess, run.LastOutcome)
	assert.NotNil(t, run.CompletedAt)
	assert.Equal(t, []domain.FetchMode{domain.FetchModeRandom}, runner.modes)
}

func TestSchedulerRetriesRetryable(t *testing.T) {
	runner := &scriptedRunner{outcomes: []domain.Outcome{domain.OutcomeRetryable, domain.OutcomeRetryable}}
	s := newTestScheduler(t, runner, AlwaysOnline{}, 0)

	queued, err := s.Enqueue(context.Background(), domain.FetchModeLatest)
	require.NoError(t, err)

	run := waitForStatus(t, s, queued.ID, domain.RunStatusSucceeded)
	assert.Equal(t, 3, run.Attempts)
	assert.Equal(t, 3, runner.calls())
}

func TestSchedulerDoesNotRetryFailed(t *testing.T) {
	runner := &scriptedRunner{outcomes: []domain.Outcome{domain.OutcomeFailed}}
	s := newTestScheduler(t, runner, AlwaysOnline{}, 0)

	queued, err := s.Enqueue(context.Background(), domain.FetchModeLatest)
	require.NoError(t, err)

	run := waitForStatus(t, s, queued.ID, domain.RunStatusFailed)
	assert.Equal(t, 1, run.Attempts)
	assert.True(t, run.Done())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, runner.calls())
}

func TestSchedulerGivesUpAfterMaxAttempts(t *testing.T) {
	runner := &scriptedRunner{outcomes: []domain.Outcome{
		domain.OutcomeRetryable, domain.OutcomeRetryable, domain.OutcomeRetryable, domain.OutcomeRetryable,
	}}
	s := newTestScheduler(t, runner, AlwaysOnline{}, 2)

	queued, err := s.Enqueue(context.Background(), domain.FetchModeLatest)
	require.NoError(t, err)

	run := waitForStatus(t, s, queued.ID, domain.RunStatusFailed)
	assert.Equal(t, 2, run.Attempts)
	assert.Equal(t, domain.OutcomeRetryable, run.LastOutcome)
	assert.Contains(t, run.ErrorLog, "2 attempts")
}

func TestSchedulerWaitsForConnectivity(t *testing.T) {
	runner := &scriptedRunner{}
	online := &toggleOnline{}
	s := newTestScheduler(t, runner, online, 0)

	queued, err := s.Enqueue(context.Background(), domain.FetchModeLatest)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return online.checks.Load() >= 3 }, time.Second, time.Millisecond)
	assert.Equal(t, 0, runner.calls())

	online.online.Store(true)
	waitForStatus(t, s, queued.ID, domain.RunStatusSucceeded)
	assert.Equal(t, 1, runner.calls())
}

func TestSchedulerRunsOneAtATime(t *testing.T) {
	runner := &scriptedRunner{}
	s := newTestScheduler(t, runner, AlwaysOnline{}, 0)

	var ids []string
	for i := 0; i < 5; i++ {
		run, err := s.Enqueue(context.Background(), domain.FetchModeRandom)
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}
	for _, id := range ids {
		waitForStatus(t, s, id, domain.RunStatusSucceeded)
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&runner.overlap))

	runs, err := s.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 5)
}

func TestSchedulerQueueFull(t *testing.T) {
	runs := repository.NewFetchRunRepository(newTestDB(t))
	// not started, so nothing drains the queue
	s := NewScheduler(&scriptedRunner{}, AlwaysOnline{}, runs, nil, &SchedulerConfig{Provider: testProvider, QueueSize: 1})

	_, err := s.Enqueue(context.Background(), domain.FetchModeLatest)
	require.NoError(t, err)

	_, err = s.Enqueue(context.Background(), domain.FetchModeLatest)
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestSchedulerResumesPendingRunAfterRestart(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	offline := &toggleOnline{}
	first := startScheduler(t, db, &scriptedRunner{}, offline, testSchedulerConfig(0))
	queued, err := first.Enqueue(ctx, domain.FetchModeRandom)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return offline.checks.Load() >= 1 }, time.Second, time.Millisecond)
	first.Stop()

	run, err := first.GetRun(ctx, queued.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusPending, run.Status)

	runner := &scriptedRunner{}
	second := startScheduler(t, db, runner, AlwaysOnline{}, testSchedulerConfig(0))
	run = waitForStatus(t, second, queued.ID, domain.RunStatusSucceeded)
	assert.Equal(t, 1, run.Attempts)
	assert.Equal(t, []domain.FetchMode{domain.FetchModeRandom}, runner.modes)
}

func TestSchedulerRestartHonoursNextRetryAt(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	cfg := testSchedulerConfig(0)
	cfg.BackoffInitial = time.Hour
	cfg.BackoffMax = time.Hour
	first := startScheduler(t, db, &scriptedRunner{outcomes: []domain.Outcome{domain.OutcomeRetryable}}, AlwaysOnline{}, cfg)
	queued, err := first.Enqueue(ctx, domain.FetchModeLatest)
	require.NoError(t, err)
	run := waitForStatus(t, first, queued.ID, domain.RunStatusRetrying)
	require.NotNil(t, run.NextRetryAt)
	first.Stop()

	runner := &scriptedRunner{}
	startScheduler(t, db, runner, AlwaysOnline{}, testSchedulerConfig(0))
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, runner.calls())

	got, err := repository.NewFetchRunRepository(db).GetByID(ctx, queued.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusRetrying, got.Status)
}

func TestSchedulerResumesDueRetry(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	runs := repository.NewFetchRunRepository(db)

	due := time.Now().Add(-time.Minute)
	require.NoError(t, runs.Create(ctx, &domain.FetchRun{
		ID:          "left-over",
		Provider:    testProvider,
		Mode:        domain.FetchModeLatest,
		Status:      domain.RunStatusRetrying,
		Attempts:    2,
		LastOutcome: domain.OutcomeRetryable,
		NextRetryAt: &due,
	}))

	s := startScheduler(t, db, &scriptedRunner{}, AlwaysOnline{}, testSchedulerConfig(0))
	run := waitForStatus(t, s, "left-over", domain.RunStatusSucceeded)
	assert.Equal(t, 3, run.Attempts)
}

func TestSchedulerFailsInterruptedRunAtMaxAttempts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	runs := repository.NewFetchRunRepository(db)

	require.NoError(t, runs.Create(ctx, &domain.FetchRun{
		ID:       "interrupted",
		Provider: testProvider,
		Mode:     domain.FetchModeLatest,
		Status:   domain.RunStatusRunning,
		Attempts: 2,
	}))

	runner := &scriptedRunner{}
	s := startScheduler(t, db, runner, AlwaysOnline{}, testSchedulerConfig(2))
	run := waitForStatus(t, s, "interrupted", domain.RunStatusFailed)
	assert.Contains(t, run.ErrorLog, "interrupted")
	assert.Zero(t, runner.calls())
}

func TestSchedulerDoesNotDoubleQueueEarlyEnqueue(t *testing.T) {
	db := newTestDB(t)
	runner := &scriptedRunner{}
	s := NewScheduler(runner, AlwaysOnline{}, repository.NewFetchRunRepository(db), nil, testSchedulerConfig(0))

	queued, err := s.Enqueue(context.Background(), domain.FetchModeLatest)
	require.NoError(t, err)

	s.Start(context.Background())
	t.Cleanup(s.Stop)

	waitForStatus(t, s, queued.ID, domain.RunStatusSucceeded)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, runner.calls())
}

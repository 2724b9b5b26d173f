package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/timmy/natgeo/internal/domain"
	"github.com/timmy/natgeo/internal/logger"
	"github.com/timmy/natgeo/internal/repository"
)

// ErrQueueFull is returned by Enqueue when no more runs can be queued.
var ErrQueueFull = errors.New("fetch queue is full")

// Runner executes one fetch attempt.
type Runner interface {
	Run(ctx context.Context, mode domain.FetchMode) domain.Outcome
}

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	Provider         string
	ConnectivityPoll time.Duration // wait between connectivity checks
	BackoffInitial   time.Duration
	BackoffMax       time.Duration
	MaxAttempts      int           // 0 retries forever
	RunTimeout       time.Duration // 0 disables the per-attempt timeout
	QueueSize        int
}

// Scheduler runs queued fetches one at a time on a single worker, only while
// the network is reachable, and re-queues retryable attempts with
// exponential backoff.
type Scheduler struct {
	runner Runner
	online ConnectivityChecker
	runs   *repository.FetchRunRepository
	logger *logger.Logger
	cfg    SchedulerConfig
	queue  chan *scheduledRun

	mu      sync.Mutex
	cancel  context.CancelFunc
	tracked map[string]struct{} // runs queued, running or waiting to retry
	wg      sync.WaitGroup
}

type scheduledRun struct {
	run     *domain.FetchRun
	backoff backoff.BackOff
}

// NewScheduler creates a new scheduler. Call Start before runs are executed.
func NewScheduler(
	runner Runner,
	online ConnectivityChecker,
	runs *repository.FetchRunRepository,
	log *logger.Logger,
	cfg *SchedulerConfig,
) *Scheduler {
	c := *cfg
	if c.QueueSize <= 0 {
		c.QueueSize = 16
	}
	if c.ConnectivityPoll <= 0 {
		c.ConnectivityPoll = 30 * time.Second
	}
	if c.BackoffInitial <= 0 {
		c.BackoffInitial = 30 * time.Second
	}
	if c.BackoffMax < c.BackoffInitial {
		c.BackoffMax = c.BackoffInitial
	}
	if online == nil {
		online = AlwaysOnline{}
	}
	if log == nil {
		log = logger.GetDefault()
	}

	return &Scheduler{
		runner: runner,
		online: online,
		runs:   runs,
		logger: log.WithField(logger.FieldComponent, "scheduler"),
		cfg:    c,
		queue:  make(chan *scheduledRun, c.QueueSize),

		tracked: make(map[string]struct{}),
	}
}

func (s *Scheduler) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != logger.GetDefault() {
		return l
	}
	return s.logger
}

// Enqueue records a pending run in the given mode and queues it.
// Parameters:
//   - ctx: context for the database write.
//   - mode: fetch mode of the run.
// Returns:
//   - *domain.FetchRun: snapshot of the queued run.
//   - error: ErrQueueFull when the queue is full, or a storage error.
func (s *Scheduler) Enqueue(ctx context.Context, mode domain.FetchMode) (*domain.FetchRun, error) {
	run := &domain.FetchRun{
		ID:       uuid.New().String(),
		Provider: s.cfg.Provider,
		Mode:     mode,
		Status:   domain.RunStatusPending,
	}
	s.track(run.ID)
	if err := s.runs.Create(ctx, run); err != nil {
		s.untrack(run.ID)
		return nil, fmt.Errorf("failed to record fetch run: %w", err)
	}
	snapshot := *run

	select {
	case s.queue <- &scheduledRun{run: run, backoff: s.newBackOff()}:
	default:
		run.Status = domain.RunStatusFailed
		run.ErrorLog = ErrQueueFull.Error()
		s.save(ctx, run)
		s.untrack(run.ID)
		return nil, ErrQueueFull
	}

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldRunID: run.ID,
		logger.FieldMode:  string(mode),
	}).Info("Fetch run enqueued")
	return &snapshot, nil
}

// GetRun returns a fetch run by ID.
func (s *Scheduler) GetRun(ctx context.Context, id string) (*domain.FetchRun, error) {
	return s.runs.GetByID(ctx, id)
}

// ListRuns returns the most recent fetch runs.
func (s *Scheduler) ListRuns(ctx context.Context, limit int) ([]domain.FetchRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.runs.ListRecent(ctx, s.cfg.Provider, limit)
}

// Start launches the worker and resumes runs an earlier process left
// pending, running or retrying. It stops when ctx is cancelled or Stop is
// called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()

	s.resume(ctx)
}

// resume re-queues persisted runs that never finished. A stored NextRetryAt
// is honoured and the backoff continues from the recorded attempts.
func (s *Scheduler) resume(ctx context.Context) {
	runs, err := s.runs.ListUnfinished(ctx, s.cfg.Provider)
	if err != nil {
		s.log(ctx).WithError(err).Error("Failed to load unfinished fetch runs")
		return
	}

	resumed := 0
	for i := range runs {
		run := &runs[i]
		if run.Done() || !s.track(run.ID) {
			continue
		}
		if s.cfg.MaxAttempts > 0 && run.Attempts >= s.cfg.MaxAttempts {
			s.finish(ctx, run, domain.RunStatusFailed, fmt.Sprintf("interrupted after %d attempts", run.Attempts))
			continue
		}

		b := s.newBackOff()
		for n := 0; n < run.Attempts; n++ {
			b.NextBackOff()
		}
		var delay time.Duration
		if run.NextRetryAt != nil {
			delay = max(time.Until(*run.NextRetryAt), 0)
		}
		s.retryAfter(ctx, &scheduledRun{run: run, backoff: b}, delay)
		resumed++
	}

	if resumed > 0 {
		s.log(ctx).WithField(logger.FieldCount, resumed).Info("Resumed unfinished fetch runs")
	}
}

// track marks a run as held by this scheduler. It returns false when the
// run was already held.
func (s *Scheduler) track(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tracked[id]; ok {
		return false
	}
	s.tracked[id] = struct{}{}
	return true
}

func (s *Scheduler) untrack(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tracked, id)
}

// Stop cancels the worker and pending retries and waits for them to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sr := <-s.queue:
			s.execute(ctx, sr)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, sr *scheduledRun) {
	run := sr.run
	ctx = logger.SetRunID(s.log(ctx).WithContext(ctx), run.ID)

	if !s.waitOnline(ctx) {
		return
	}

	now := time.Now()
	run.Attempts++
	run.Status = domain.RunStatusRunning
	run.NextRetryAt = nil
	if run.StartedAt == nil {
		run.StartedAt = &now
	}
	s.save(ctx, run)

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if s.cfg.RunTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
	}
	start := time.Now()
	outcome := s.runner.Run(runCtx, run.Mode)
	cancel()

	run.LastOutcome = outcome
	entry := logger.With(logger.Fields{
		logger.FieldAttempt: run.Attempts,
		logger.FieldMode:    string(run.Mode),
	}).WithDuration(time.Since(start).Milliseconds()).WithStatus(string(outcome))

	switch outcome {
	case domain.OutcomeSuccess:
		s.finish(ctx, run, domain.RunStatusSucceeded, "")
		entry.Info(ctx, "Fetch run succeeded")

	case domain.OutcomeRetryable:
		if s.cfg.MaxAttempts > 0 && run.Attempts >= s.cfg.MaxAttempts {
			s.finish(ctx, run, domain.RunStatusFailed, fmt.Sprintf("gave up after %d attempts", run.Attempts))
			entry.Warn(ctx, "Fetch run exhausted its attempts")
			return
		}
		delay := sr.backoff.NextBackOff()
		if delay == backoff.Stop {
			s.finish(ctx, run, domain.RunStatusFailed, "retry backoff exhausted")
			entry.Warn(ctx, "Fetch run backoff exhausted")
			return
		}
		next := time.Now().Add(delay)
		run.Status = domain.RunStatusRetrying
		run.NextRetryAt = &next
		s.save(ctx, run)
		entry.WithField("retry_in", delay.String()).Warn(ctx, "Fetch run will be retried")
		s.retryAfter(ctx, sr, delay)

	default:
		s.finish(ctx, run, domain.RunStatusFailed, "run failed, not retried")
		entry.Warn(ctx, "Fetch run failed")
	}
}

func (s *Scheduler) finish(ctx context.Context, run *domain.FetchRun, status domain.RunStatus, errLog string) {
	now := time.Now()
	run.Status = status
	run.CompletedAt = &now
	run.ErrorLog = errLog
	s.save(ctx, run)
	s.untrack(run.ID)
}

// save persists the run even when ctx was cancelled by shutdown.
func (s *Scheduler) save(ctx context.Context, run *domain.FetchRun) {
	if err := s.runs.Update(context.WithoutCancel(ctx), run); err != nil {
		s.log(ctx).WithError(err).Error("Failed to save fetch run")
	}
}

func (s *Scheduler) retryAfter(ctx context.Context, sr *scheduledRun, delay time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		select {
		case s.queue <- sr:
		case <-ctx.Done():
		}
	}()
}

// waitOnline blocks until the network is reachable. It returns false when
// ctx is cancelled first.
func (s *Scheduler) waitOnline(ctx context.Context) bool {
	for {
		if s.online.Online(ctx) {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		s.log(ctx).Debug("Network unavailable, waiting before fetch")

		select {
		case <-ctx.Done():
			return false
		case <-time.After(s.cfg.ConnectivityPoll):
		}
	}
}

func (s *Scheduler) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.BackoffInitial
	b.MaxInterval = s.cfg.BackoffMax
	b.Multiplier = 2
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

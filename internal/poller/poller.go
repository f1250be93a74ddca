// Package poller runs one cancellable, independently scheduled fetch task
// per backend endpoint. Fetches run on a shared worker pool and may
// overlap; each dispatch takes a sequence number and a result is applied
// only when it is newer than the last applied one for that endpoint.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aegisai/aegisdash/internal/logging"
	"github.com/aegisai/aegisdash/internal/metrics"
	"github.com/aegisai/aegisdash/internal/requester"
	"github.com/aegisai/aegisdash/pkg/types"
)

// Errors
var (
	ErrDuplicateTask   = errors.New("poller: task already registered")
	ErrUnknownEndpoint = errors.New("poller: unknown endpoint")
	ErrStopped         = errors.New("poller: scheduler stopped")
	ErrStarted         = errors.New("poller: scheduler already started")
	ErrNoFetch         = errors.New("poller: task has no fetch function")
)

// FetchFunc loads one endpoint. On success it returns the function that
// publishes the result; the scheduler calls it only if the result is not
// stale.
type FetchFunc func(ctx context.Context) (apply func(), err error)

// Task describes one polled endpoint. Interval 0 means fetch once at start
// and then only on Refresh.
type Task struct {
	Endpoint types.Endpoint
	Interval time.Duration
	Fetch    FetchFunc
}

// TaskStats holds per-endpoint counters
type TaskStats struct {
	Interval time.Duration
	Issued   uint64
	Applied  int64
	Stale    int64
	Failed   int64
}

type task struct {
	Task

	issued  atomic.Uint64
	applyMu sync.Mutex
	applied uint64

	appliedCount atomic.Int64
	stale        atomic.Int64
	failed       atomic.Int64

	trigger chan struct{}
	resched chan time.Duration
	cancel  context.CancelFunc
	done    chan struct{}
}

// Scheduler owns the poll tasks
type Scheduler struct {
	pool    *requester.WorkerPool
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	tasks   map[types.Endpoint]*task
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	stopped bool

	loops    sync.WaitGroup
	inflight sync.WaitGroup
}

// New creates a scheduler running fetches on pool
func New(pool *requester.WorkerPool, logger *slog.Logger, m *metrics.Metrics) *Scheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scheduler{
		pool:    pool,
		logger:  logger,
		metrics: m,
		tasks:   make(map[types.Endpoint]*task),
	}
}

// Register adds a task. Tasks registered after Start begin immediately.
func (s *Scheduler) Register(t Task) error {
	if t.Fetch == nil {
		return fmt.Errorf("%w: %s", ErrNoFetch, t.Endpoint)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if _, ok := s.tasks[t.Endpoint]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, t.Endpoint)
	}

	tk := &task{
		Task:    t,
		trigger: make(chan struct{}, 1),
		resched: make(chan time.Duration, 1),
		done:    make(chan struct{}),
	}
	s.tasks[t.Endpoint] = tk

	if s.started {
		s.launch(tk)
	}
	return nil
}

// Start fetches every task once and then keeps each on its own ticker
// until ctx ends or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return ErrStarted
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true

	for _, tk := range s.tasks {
		s.launch(tk)
	}

	s.logger.Info("poller started", slog.Int("tasks", len(s.tasks)))
	return nil
}

// launch must be called with s.mu held
func (s *Scheduler) launch(tk *task) {
	ctx, cancel := context.WithCancel(s.ctx)
	tk.cancel = cancel

	s.loops.Add(1)
	go s.run(ctx, tk, tk.Interval)
}

func (s *Scheduler) run(ctx context.Context, tk *task, interval time.Duration) {
	defer s.loops.Done()
	defer close(tk.done)

	var ticker *time.Ticker
	var tick <-chan time.Time
	setInterval := func(d time.Duration) {
		if ticker != nil {
			ticker.Stop()
			ticker, tick = nil, nil
		}
		if d > 0 {
			ticker = time.NewTicker(d)
			tick = ticker.C
		}
	}
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	s.dispatch(ctx, tk)
	setInterval(interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			s.dispatch(ctx, tk)
		case <-tk.trigger:
			s.dispatch(ctx, tk)
		case d := <-tk.resched:
			setInterval(d)
		}
	}
}

func (s *Scheduler) dispatch(ctx context.Context, tk *task) {
	seq := tk.issued.Add(1)

	s.inflight.Add(1)
	err := s.pool.Submit(func() {
		defer s.inflight.Done()
		s.fetch(ctx, tk, seq)
	})
	if err != nil {
		s.inflight.Done()
		tk.failed.Add(1)
		s.logger.Warn("poll dispatch failed",
			slog.String("endpoint", string(tk.Endpoint)),
			slog.Any("error", err),
		)
	}
}

func (s *Scheduler) fetch(ctx context.Context, tk *task, seq uint64) {
	ep := string(tk.Endpoint)
	start := time.Now()

	apply, err := tk.Fetch(ctx)
	took := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		tk.failed.Add(1)
		s.metrics.ObservePoll(ep, metrics.ResultError, took)
		s.logger.Warn("poll failed",
			slog.String("endpoint", ep),
			slog.Uint64("seq", seq),
			slog.Any("error", err),
		)
		return
	}

	tk.applyMu.Lock()
	if seq <= tk.applied {
		tk.applyMu.Unlock()
		tk.stale.Add(1)
		s.metrics.ObservePoll(ep, metrics.ResultStale, took)
		s.logger.Debug("dropped stale response",
			slog.String("endpoint", ep),
			slog.Uint64("seq", seq),
		)
		return
	}
	tk.applied = seq
	if apply != nil {
		apply()
	}
	tk.applyMu.Unlock()

	tk.appliedCount.Add(1)
	s.metrics.ObservePoll(ep, metrics.ResultOK, took)
	s.logger.Debug("poll applied",
		slog.String("endpoint", ep),
		slog.Uint64("seq", seq),
		slog.Duration("took", took),
	)
}

// Refresh requests an immediate out-of-band fetch of each endpoint. It never
// blocks; a refresh already pending for an endpoint absorbs the new one.
func (s *Scheduler) Refresh(endpoints ...types.Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, ep := range endpoints {
		tk, ok := s.tasks[ep]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownEndpoint, ep))
			continue
		}
		select {
		case tk.trigger <- struct{}{}:
		default:
		}
	}
	return errors.Join(errs...)
}

// Cancel stops and removes one task. Its in-flight fetch is aborted through
// its context.
func (s *Scheduler) Cancel(ep types.Endpoint) error {
	s.mu.Lock()
	tk, ok := s.tasks[ep]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownEndpoint, ep)
	}
	delete(s.tasks, ep)
	running := tk.cancel != nil
	s.mu.Unlock()

	if running {
		tk.cancel()
		<-tk.done
	}

	s.logger.Info("poll task canceled", slog.String("endpoint", string(ep)))
	return nil
}

// Reschedule changes a task's interval. A zero interval stops the ticker
// and leaves the task refresh-only.
func (s *Scheduler) Reschedule(ep types.Endpoint, interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tk, ok := s.tasks[ep]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEndpoint, ep)
	}
	if tk.Interval == interval {
		return nil
	}
	tk.Interval = interval

	select {
	case <-tk.resched:
	default:
	}
	tk.resched <- interval

	s.logger.Info("poll task rescheduled",
		slog.String("endpoint", string(ep)),
		slog.Duration("interval", interval),
	)
	return nil
}

// Stop cancels every task and waits for loops and in-flight fetches
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.loops.Wait()
	s.inflight.Wait()

	s.logger.Info("poller stopped")
}

// Stats returns counters for every registered task
func (s *Scheduler) Stats() map[types.Endpoint]TaskStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[types.Endpoint]TaskStats, len(s.tasks))
	for ep, tk := range s.tasks {
		out[ep] = TaskStats{
			Interval: tk.Interval,
			Issued:   tk.issued.Load(),
			Applied:  tk.appliedCount.Load(),
			Stale:    tk.stale.Load(),
			Failed:   tk.failed.Load(),
		}
	}
	return out
}

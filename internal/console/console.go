// Package console wires the dashboard client together: backend client,
// poll scheduler, state store, action handler and renderer. Front-ends
// (web, terminal, snapshot) drive it through this package.
package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aegisai/aegisdash/internal/actions"
	"github.com/aegisai/aegisdash/internal/backend"
	"github.com/aegisai/aegisdash/internal/config"
	"github.com/aegisai/aegisdash/internal/logging"
	"github.com/aegisai/aegisdash/internal/metrics"
	"github.com/aegisai/aegisdash/internal/poller"
	"github.com/aegisai/aegisdash/internal/render"
	"github.com/aegisai/aegisdash/internal/requester"
	"github.com/aegisai/aegisdash/internal/state"
	"github.com/aegisai/aegisdash/pkg/types"
)

// Options configures a Console
type Options struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Console is the dashboard client
type Console struct {
	cfg     atomic.Pointer[config.Config]
	logger  *slog.Logger
	metrics *metrics.Metrics

	http     *requester.Client
	pool     *requester.WorkerPool
	api      *backend.Client
	store    *state.Store
	sched    *poller.Scheduler
	actions  *actions.Handler
	renderer atomic.Pointer[render.Renderer]
	sessions *Sessions
}

// New builds a console from configuration. Nothing runs until Start.
func New(opts Options) (*Console, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	table, err := cfg.Policy.Table()
	if err != nil {
		return nil, fmt.Errorf("policy table: %w", err)
	}

	pool, err := requester.NewWorkerPool(&requester.WorkerPoolOptions{
		Size:        cfg.Poll.Workers,
		MaxBlocking: cfg.Poll.Workers * 8,
	})
	if err != nil {
		return nil, fmt.Errorf("worker pool: %w", err)
	}

	httpClient := requester.NewClient(&requester.ClientOptions{
		Timeout:             cfg.Backend.Timeout,
		MaxConnsPerHost:     cfg.Poll.Workers * 2,
		MaxIdleConnDuration: 30 * time.Second,
		UserAgent:           cfg.Backend.UserAgent,
		SkipTLSVerify:       cfg.Backend.SkipTLSVerify,
		RPS:                 cfg.Backend.RPS,
		Headers:             cfg.Backend.Headers,
	})

	c := &Console{
		logger:  logger,
		metrics: opts.Metrics,
		http:    httpClient,
		pool:    pool,
		api:     backend.New(httpClient, cfg.Backend.BaseURL),
		store:   state.NewStore(cfg.Policy.Thresholds),
	}
	c.cfg.Store(cfg)
	c.sched = poller.New(pool, logger.With(slog.String("component", "poller")), opts.Metrics)
	c.actions = actions.NewHandler(c.api, c.sched, table, logger.With(slog.String("component", "actions")), opts.Metrics)
	c.renderer.Store(render.New(table, cfg.Policy.Thresholds))
	c.sessions = NewSessions(cfg.Server.SessionTTL, c.sched)

	for _, ep := range types.Endpoints() {
		err := c.sched.Register(poller.Task{
			Endpoint: ep,
			Interval: cfg.Poll.Interval(ep),
			Fetch:    c.fetcher(ep),
		})
		if err != nil {
			pool.Shutdown()
			return nil, err
		}
	}

	return c, nil
}

// fetcher returns the poll function for one endpoint
func (c *Console) fetcher(ep types.Endpoint) poller.FetchFunc {
	switch ep {
	case types.EndpointEmails:
		return func(ctx context.Context) (func(), error) {
			feed, err := c.api.Emails(ctx)
			if errors.Is(err, backend.ErrStatsOnly) {
				c.logger.Debug("email list missing, applying stats only")
				return func() { c.store.SetStats(feed.Stats) }, nil
			}
			if err != nil {
				return nil, err
			}
			return func() { c.store.SetEmails(feed) }, nil
		}
	case types.EndpointBlocked:
		return func(ctx context.Context) (func(), error) {
			blocked, err := c.api.Blocked(ctx)
			if err != nil {
				return nil, err
			}
			return func() { c.store.SetBlocked(blocked) }, nil
		}
	case types.EndpointLoginLogs:
		return func(ctx context.Context) (func(), error) {
			logs, err := c.api.LoginLogs(ctx)
			if err != nil {
				return nil, err
			}
			return func() { c.store.SetLoginLogs(logs) }, nil
		}
	case types.EndpointBankTransactions:
		return func(ctx context.Context) (func(), error) {
			feed, err := c.api.BankTransactions(ctx)
			if err != nil {
				return nil, err
			}
			return func() { c.store.SetBankTransactions(feed) }, nil
		}
	case types.EndpointProfile:
		return func(ctx context.Context) (func(), error) {
			p, err := c.api.Profile(ctx)
			if err != nil {
				return nil, err
			}
			return func() { c.store.SetProfile(p) }, nil
		}
	default:
		return nil
	}
}

// Start runs the pollers and the session sweeper until ctx ends
func (c *Console) Start(ctx context.Context) error {
	if err := c.sched.Start(ctx); err != nil {
		return err
	}
	go c.sessions.Run(ctx)

	c.logger.Info("console started",
		slog.String("backend", c.api.BaseURL()),
		slog.Int("workers", c.Config().Poll.Workers),
	)
	return nil
}

// Stop cancels polling and releases workers
func (c *Console) Stop() {
	c.sched.Stop()
	c.pool.Shutdown()
}

// FetchEach loads every feed once, outside the scheduler, and returns
// the failures keyed by feed. Successful feeds are applied to the store.
func (c *Console) FetchEach(ctx context.Context) map[types.Endpoint]error {
	failed := make(map[types.Endpoint]error)
	for _, ep := range types.Endpoints() {
		start := time.Now()
		apply, err := c.fetcher(ep)(ctx)
		if err != nil {
			c.metrics.ObservePoll(string(ep), metrics.ResultError, time.Since(start))
			failed[ep] = err
			continue
		}
		apply()
		c.metrics.ObservePoll(string(ep), metrics.ResultOK, time.Since(start))
	}
	return failed
}

// FetchAll is FetchEach with the failures joined into one error
func (c *Console) FetchAll(ctx context.Context) error {
	failed := c.FetchEach(ctx)

	var errs []error
	for _, ep := range types.Endpoints() {
		if err, ok := failed[ep]; ok {
			errs = append(errs, fmt.Errorf("%s: %w", ep, err))
		}
	}
	return errors.Join(errs...)
}

// Apply hot-swaps intervals, thresholds, policy table and pool size
func (c *Console) Apply(cfg *config.Config) error {
	table, err := cfg.Policy.Table()
	if err != nil {
		return err
	}

	for _, ep := range types.Endpoints() {
		if err := c.sched.Reschedule(ep, cfg.Poll.Interval(ep)); err != nil {
			return err
		}
	}
	c.pool.Tune(cfg.Poll.Workers)
	c.actions.SetTable(table)
	c.renderer.Store(render.New(table, cfg.Policy.Thresholds))
	c.store.SetThresholds(cfg.Policy.Thresholds)
	c.cfg.Store(cfg)

	c.logger.Info("configuration applied")
	return nil
}

// Config returns the active configuration
func (c *Console) Config() *config.Config {
	return c.cfg.Load()
}

// Store returns the state store
func (c *Console) Store() *state.Store {
	return c.store
}

// Scheduler returns the poll scheduler
func (c *Console) Scheduler() *poller.Scheduler {
	return c.sched
}

// Actions returns the block/unblock handler
func (c *Console) Actions() *actions.Handler {
	return c.actions
}

// Renderer returns the current renderer
func (c *Console) Renderer() *render.Renderer {
	return c.renderer.Load()
}

// Sessions returns the viewer sessions
func (c *Console) Sessions() *Sessions {
	return c.sessions
}

// Metrics returns the metrics sink, possibly nil
func (c *Console) Metrics() *metrics.Metrics {
	return c.metrics
}

// Logger returns the console logger
func (c *Console) Logger() *slog.Logger {
	return c.logger
}

// BaseURL returns the backend root
func (c *Console) BaseURL() string {
	return c.api.BaseURL()
}

// Stats summarises scheduler, transport and pool counters
type Stats struct {
	Polls     map[types.Endpoint]poller.TaskStats
	Transport requester.ClientStats
	Pool      requester.PoolStats
	Sessions  int
}

// Stats returns runtime counters
func (c *Console) Stats() Stats {
	return Stats{
		Polls:     c.sched.Stats(),
		Transport: c.http.Stats(),
		Pool:      c.pool.Stats(),
		Sessions:  c.sessions.Len(),
	}
}

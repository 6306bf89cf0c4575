package query

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Sternrassler/students-view/pkg/cache"
	"github.com/Sternrassler/students-view/pkg/logging"
)

// storeTimeout bounds store writes made by a settling call.
const storeTimeout = 2 * time.Second

// FetchFunc loads the data of a query. The result is stored JSON-encoded.
type FetchFunc func(ctx context.Context) (any, error)

// Options control a single query.
type Options struct {
	// StaleTime is how long a result is served without refetching.
	// Zero means results are stale as soon as they are stored.
	StaleTime time.Duration

	// CacheTime overrides Config.CacheTime for this query.
	CacheTime time.Duration

	// Timeout bounds each call. Zero means no timeout.
	Timeout time.Duration
}

// Config holds the query client configuration.
type Config struct {
	// Store persists results. Defaults to a new cache.MemoryStore.
	Store cache.Store

	// CacheTime is how long results are kept after they were stored
	CacheTime time.Duration

	// Prefetch worker pool
	PrefetchWorkers int
	PrefetchQueue   int
	PrefetchTimeout time.Duration

	// Prefetch token bucket
	PrefetchRate  rate.Limit
	PrefetchBurst int
}

// DefaultConfig returns the default configuration with an in-process store.
func DefaultConfig() Config {
	return Config{
		Store:           cache.NewMemoryStore(),
		CacheTime:       5 * time.Minute,
		PrefetchWorkers: 4,
		PrefetchQueue:   64,
		PrefetchTimeout: 10 * time.Second,
		PrefetchRate:    20,
		PrefetchBurst:   10,
	}
}

// Client tracks queries by key and coordinates their calls.
type Client struct {
	store  cache.Store
	config Config
	logger zerolog.Logger

	mu      sync.Mutex
	queries map[string]*entryState
	latest  map[string]cache.Key
	closed  bool

	prefetcher *prefetcher
}

// entryState is the bookkeeping for one key.
type entryState struct {
	key       cache.Key
	status    Status
	err       error
	updatedAt time.Time
	fn        FetchFunc
	opts      Options
	call      *call
}

// call is one in-flight execution of a FetchFunc.
type call struct {
	done   chan struct{}
	cancel context.CancelCauseFunc

	// set before done is closed
	entry *cache.Entry
	err   error
}

// New creates a query client and starts its prefetch workers.
func New(cfg Config) *Client {
	defaults := DefaultConfig()
	if cfg.Store == nil {
		cfg.Store = defaults.Store
	}
	if cfg.CacheTime <= 0 {
		cfg.CacheTime = defaults.CacheTime
	}
	if cfg.PrefetchWorkers <= 0 {
		cfg.PrefetchWorkers = defaults.PrefetchWorkers
	}
	if cfg.PrefetchQueue <= 0 {
		cfg.PrefetchQueue = defaults.PrefetchQueue
	}
	if cfg.PrefetchTimeout <= 0 {
		cfg.PrefetchTimeout = defaults.PrefetchTimeout
	}
	if cfg.PrefetchRate <= 0 {
		cfg.PrefetchRate = defaults.PrefetchRate
	}
	if cfg.PrefetchBurst <= 0 {
		cfg.PrefetchBurst = defaults.PrefetchBurst
	}

	c := &Client{
		store:   cfg.Store,
		config:  cfg,
		logger:  logging.NewLogger("query-client"),
		queries: make(map[string]*entryState),
		latest:  make(map[string]cache.Key),
	}
	c.prefetcher = newPrefetcher(c, cfg)
	return c
}

// Fetch returns the result for key. A fresh stored result is returned
// directly; otherwise the caller joins the in-flight call or starts one.
//
// ctx only bounds how long the caller waits. The call itself keeps running
// for other readers and settles the query state.
func (c *Client) Fetch(ctx context.Context, key cache.Key, fn FetchFunc, opts Options) (*cache.Entry, error) {
	if fn == nil {
		return nil, ErrNoQueryFunc
	}

	c.mu.Lock()
	q := c.lookupLocked(key)
	q.fn, q.opts = fn, opts
	inflight := q.call != nil
	c.mu.Unlock()

	if !inflight {
		if entry, fresh := c.read(ctx, key, opts.StaleTime); fresh {
			c.logger.Debug().Str("key", key.String()).Msg("Serving fresh result")
			return entry, nil
		}
	}

	c.mu.Lock()
	cl, err := c.startLocked(q)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return c.wait(ctx, q, cl)
}

// Query registers fn for key and returns its current state without blocking.
// A call is started when the query has never run or its result went stale.
// Failed and Cancelled queries are left alone until Refetch.
func (c *Client) Query(ctx context.Context, key cache.Key, fn FetchFunc, opts Options) State {
	c.mu.Lock()
	q := c.lookupLocked(key)
	if fn != nil {
		q.fn, q.opts = fn, opts
	}
	status, inflight, registered := q.status, q.call != nil, q.fn != nil
	c.mu.Unlock()

	if !registered || inflight || (status != StatusIdle && status != StatusSuccess) {
		return c.State(ctx, key)
	}

	entry, fresh := c.read(ctx, key, opts.StaleTime)

	c.mu.Lock()
	switch {
	case fresh && q.status == StatusIdle:
		c.transitionLocked(q, StatusSuccess, nil)
		q.updatedAt = entry.UpdatedAt
	case fresh:
	default:
		if _, err := c.startLocked(q); err != nil {
			c.logger.Debug().Err(err).Str("key", key.String()).Msg("Query not started")
		}
	}
	c.mu.Unlock()

	return c.State(ctx, key)
}

// State returns a snapshot of the query for key. Unknown keys are Idle.
func (c *Client) State(ctx context.Context, key cache.Key) State {
	st := State{Key: key, Status: StatusIdle}

	c.mu.Lock()
	if q, ok := c.queries[key.String()]; ok {
		st.Status = q.status
		st.Err = q.err
		st.Fetching = q.call != nil
		st.UpdatedAt = q.updatedAt
	}
	c.mu.Unlock()

	entry, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		st.Entry = entry
	case !errors.Is(err, cache.ErrCacheMiss):
		c.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache read failed")
	}

	return st
}

// Await blocks until no call is in flight for key or ctx is done, then
// returns the state.
func (c *Client) Await(ctx context.Context, key cache.Key) State {
	k := key.String()
	for {
		c.mu.Lock()
		var cl *call
		if q, ok := c.queries[k]; ok {
			cl = q.call
		}
		c.mu.Unlock()

		if cl == nil {
			return c.State(ctx, key)
		}

		select {
		case <-cl.done:
		case <-ctx.Done():
			return c.State(context.WithoutCancel(ctx), key)
		}
	}
}

// Refetch starts a call for key ignoring staleness, using the last
// registered fetch function. An in-flight call is joined, not restarted.
func (c *Client) Refetch(key cache.Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	q, ok := c.queries[key.String()]
	if !ok || q.fn == nil {
		return ErrNoQueryFunc
	}

	_, err := c.startLocked(q)
	return err
}

// Cancel aborts the in-flight call for key, which settles the query as
// Cancelled. Stored data is kept. Reports whether a call was in flight.
func (c *Client) Cancel(key cache.Key) bool {
	c.mu.Lock()
	var cl *call
	if q, ok := c.queries[key.String()]; ok {
		cl = q.call
	}
	c.mu.Unlock()

	if cl == nil {
		return false
	}

	cl.cancel(ErrCancelled)
	c.logger.Info().Str("key", key.String()).Msg("Query cancelled")
	return true
}

// Invalidate marks the stored result for exactly key as stale. When the
// query has a registered fetch function it is refetched in the background;
// a call already in flight is superseded so that no result fetched before
// the invalidation is stored afterwards.
func (c *Client) Invalidate(ctx context.Context, key cache.Key) error {
	queryInvalidationsTotal.WithLabelValues(key.Resource).Inc()

	entry, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		if !entry.Stale {
			entry.Stale = true
			if err := c.store.Set(ctx, key, entry); err != nil {
				return fmt.Errorf("invalidate %s: %w", key, err)
			}
		}
	case !errors.Is(err, cache.ErrCacheMiss):
		return fmt.Errorf("invalidate %s: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	q, ok := c.queries[key.String()]
	if !ok || q.fn == nil {
		return nil
	}

	if old := q.call; old != nil {
		q.call = nil
		if _, err := c.startLocked(q); err != nil {
			q.call = old
			return err
		}
		old.cancel(errSuperseded)
		c.logger.Debug().Str("key", key.String()).Msg("In-flight call superseded")
		return nil
	}

	_, err = c.startLocked(q)
	return err
}

// Prefetch warms the result for key in the background. It never blocks,
// is a no-op while a call for key is in flight, and drops the request when
// the prefetch pool is saturated or throttled. Reports whether the request
// was accepted.
func (c *Client) Prefetch(key cache.Key, fn FetchFunc, opts Options) bool {
	if fn == nil {
		return false
	}

	c.mu.Lock()
	closed := c.closed
	inflight := false
	if q, ok := c.queries[key.String()]; ok {
		inflight = q.call != nil
	}
	c.mu.Unlock()

	if closed {
		return false
	}
	if inflight {
		queryPrefetchTotal.WithLabelValues("joined").Inc()
		return true
	}

	return c.prefetcher.submit(prefetchTask{key: key, fn: fn, opts: opts})
}

// Latest returns the most recent successful result of any query for
// resource. Pages use it as placeholder data while the next page loads.
func (c *Client) Latest(ctx context.Context, resource string) (*cache.Entry, bool) {
	c.mu.Lock()
	key, ok := c.latest[resource]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}

	entry, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	return entry, true
}

// Close cancels all in-flight calls and stops the prefetch workers.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for _, q := range c.queries {
		if q.call != nil {
			q.call.cancel(ErrClosed)
		}
	}
	c.mu.Unlock()

	c.prefetcher.stop()
	c.logger.Info().Msg("Query client closed")
}

func (c *Client) lookupLocked(key cache.Key) *entryState {
	k := key.String()
	q, ok := c.queries[k]
	if !ok {
		q = &entryState{key: key, status: StatusIdle}
		c.queries[k] = q
	}
	return q
}

// read returns the stored entry for key and whether it is fresh.
func (c *Client) read(ctx context.Context, key cache.Key, staleTime time.Duration) (*cache.Entry, bool) {
	entry, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache read failed")
		}
		queryCacheReadsTotal.WithLabelValues(key.Resource, "miss").Inc()
		return nil, false
	}

	if entry.IsFresh(staleTime) {
		queryCacheReadsTotal.WithLabelValues(key.Resource, "fresh").Inc()
		return entry, true
	}

	queryCacheReadsTotal.WithLabelValues(key.Resource, "stale").Inc()
	return entry, false
}

// startLocked returns the in-flight call for q or starts a new one.
func (c *Client) startLocked(q *entryState) (*call, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if q.call != nil {
		return q.call, nil
	}
	if q.fn == nil {
		return nil, ErrNoQueryFunc
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	cl := &call{done: make(chan struct{}), cancel: cancel}
	q.call = cl

	// a superseding call keeps the query in Loading
	if q.status != StatusLoading {
		c.transitionLocked(q, StatusLoading, nil)
	}

	queryInflight.Inc()
	go c.run(ctx, q, cl, q.fn, q.opts)

	return cl, nil
}

func (c *Client) transitionLocked(q *entryState, next Status, err error) {
	if !q.status.CanTransition(next) {
		c.logger.Error().
			Str("key", q.key.String()).
			Str("from", q.status.String()).
			Str("to", next.String()).
			Msg("Invalid query transition")
		return
	}
	q.status = next
	q.err = err
}

// run executes fn and settles q unless cl was superseded meanwhile.
func (c *Client) run(ctx context.Context, q *entryState, cl *call, fn FetchFunc, opts Options) {
	defer close(cl.done)
	defer cl.cancel(nil)
	defer queryInflight.Dec()

	fetchCtx := ctx
	if opts.Timeout > 0 {
		var stop context.CancelFunc
		fetchCtx, stop = context.WithTimeoutCause(ctx, opts.Timeout, ErrTimeout)
		defer stop()
	}

	start := time.Now()
	v, err := fn(fetchCtx)
	cause := context.Cause(fetchCtx)

	resource := q.key.Resource
	queryFetchDuration.WithLabelValues(resource).Observe(time.Since(start).Seconds())

	var (
		entry  *cache.Entry
		status Status
	)

	// an abort wins over a result that raced it
	switch {
	case errors.Is(cause, errSuperseded):
		queryFetchesTotal.WithLabelValues(resource, "superseded").Inc()
		cl.err = errSuperseded
		return
	case errors.Is(cause, ErrCancelled):
		status = StatusCancelled
		err = fmt.Errorf("%w: %s", ErrCancelled, q.key)
	case errors.Is(cause, ErrTimeout):
		status = StatusFailed
		err = fmt.Errorf("%w after %s: %s", ErrTimeout, opts.Timeout, q.key)
	case errors.Is(cause, ErrClosed):
		status = StatusFailed
		err = ErrClosed
	case err != nil:
		status = StatusFailed
	default:
		entry, err = cache.NewEntry(v, c.cacheTime(opts))
		if err != nil {
			status = StatusFailed
			break
		}
		status = StatusSuccess

		storeCtx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		if err := c.store.Set(storeCtx, q.key, entry); err != nil {
			c.logger.Warn().Err(err).Str("key", q.key.String()).Msg("Failed to store result")
		}
		cancel()
	}

	queryFetchesTotal.WithLabelValues(resource, status.String()).Inc()

	c.mu.Lock()
	if q.call == cl {
		q.call = nil
		c.transitionLocked(q, status, err)
		if status == StatusSuccess {
			q.updatedAt = entry.UpdatedAt
			c.latest[resource] = q.key
		}
	}
	c.mu.Unlock()

	cl.entry, cl.err = entry, err

	event := c.logger.Info()
	if status != StatusSuccess {
		event = c.logger.Warn().Err(err)
	}
	event.
		Str("key", q.key.String()).
		Str("status", status.String()).
		Dur("duration", time.Since(start)).
		Msg("Query settled")
}

// wait blocks until cl settles, following supersedes to the replacing call.
func (c *Client) wait(ctx context.Context, q *entryState, cl *call) (*cache.Entry, error) {
	for {
		select {
		case <-cl.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		if !errors.Is(cl.err, errSuperseded) {
			return cl.entry, cl.err
		}

		c.mu.Lock()
		next := q.call
		status, err := q.status, q.err
		c.mu.Unlock()

		if next != nil {
			cl = next
			continue
		}

		// the replacing call already settled
		if status != StatusSuccess {
			return nil, err
		}
		return c.store.Get(ctx, q.key)
	}
}

func (c *Client) cacheTime(opts Options) time.Duration {
	if opts.CacheTime > 0 {
		return opts.CacheTime
	}
	return c.config.CacheTime
}

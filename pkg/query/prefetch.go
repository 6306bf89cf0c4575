package query

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Sternrassler/students-view/pkg/cache"
)

type prefetchTask struct {
	key  cache.Key
	fn   FetchFunc
	opts Options
}

// prefetcher runs prefetch tasks on a fixed worker pool fed by a bounded queue.
type prefetcher struct {
	client  *Client
	tasks   chan prefetchTask
	limiter *rate.Limiter
	timeout time.Duration
	logger  zerolog.Logger

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newPrefetcher(c *Client, cfg Config) *prefetcher {
	p := &prefetcher{
		client:  c,
		tasks:   make(chan prefetchTask, cfg.PrefetchQueue),
		limiter: rate.NewLimiter(cfg.PrefetchRate, cfg.PrefetchBurst),
		timeout: cfg.PrefetchTimeout,
		logger:  c.logger.With().Str("subcomponent", "prefetch").Logger(),
		done:    make(chan struct{}),
	}

	for i := 0; i < cfg.PrefetchWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	return p
}

// submit enqueues t without blocking.
func (p *prefetcher) submit(t prefetchTask) bool {
	select {
	case <-p.done:
		return false
	default:
	}

	if !p.limiter.Allow() {
		queryPrefetchTotal.WithLabelValues("throttled").Inc()
		p.logger.Debug().Str("key", t.key.String()).Msg("Prefetch throttled")
		return false
	}

	select {
	case p.tasks <- t:
		queryPrefetchTotal.WithLabelValues("scheduled").Inc()
		return true
	default:
		queryPrefetchTotal.WithLabelValues("dropped").Inc()
		p.logger.Debug().Str("key", t.key.String()).Msg("Prefetch queue full")
		return false
	}
}

// worker processes tasks from the queue until stop.
func (p *prefetcher) worker(workerID int) {
	defer p.wg.Done()
	processed := 0

	for {
		select {
		case <-p.done:
			p.logger.Debug().
				Int("worker_id", workerID).
				Int("tasks_processed", processed).
				Msg("Prefetch worker stopping")
			return
		case t := <-p.tasks:
			p.run(t)
			processed++
		}
	}
}

func (p *prefetcher) run(t prefetchTask) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if _, err := p.client.Fetch(ctx, t.key, t.fn, t.opts); err != nil {
		queryPrefetchTotal.WithLabelValues("failed").Inc()
		p.logger.Debug().Err(err).Str("key", t.key.String()).Msg("Prefetch failed")
	}
}

func (p *prefetcher) stop() {
	p.stopOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
}

// Package query implements a keyed, cache-aware data fetching client.
//
// Every query is addressed by a cache.Key and moves through an explicit
// state machine:
//
//	Idle ──► Loading ──► Success
//	            │  ▲  └──► Failed ────┐
//	            │  │                  │ Refetch
//	            │  └──────────────────┤
//	            └──────► Cancelled ───┘
//
// Success moves back to Loading when the entry is invalidated or goes
// stale, while the previous data stays readable. Failed and Cancelled
// queries are never retried automatically; they move to Loading only
// through Refetch.
//
// At most one call is in flight per key. Concurrent readers join the
// running call. Each call runs under its own context, so a caller giving
// up does not abort the call for other readers; Cancel and the per-query
// Timeout do.
//
// Prefetch warms the cache in the background on a bounded, rate limited
// worker pool. It never blocks and swallows errors.
//
// The Client is an ordinary value owned by the application and passed to
// the code that needs it:
//
//	qc := query.New(query.DefaultConfig())
//	defer qc.Close()
//
//	entry, err := qc.Fetch(ctx, cache.NewKey("students", "page", "1"), fetchPage,
//		query.Options{Timeout: 5 * time.Second})
package query

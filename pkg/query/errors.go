package query

import "errors"

var (
	// ErrCancelled is returned for calls aborted through Cancel.
	ErrCancelled = errors.New("query cancelled")

	// ErrTimeout is returned for calls that exceeded their timeout.
	ErrTimeout = errors.New("query timed out")

	// ErrNoQueryFunc is returned when a query has no fetch function to run.
	ErrNoQueryFunc = errors.New("no query function registered")

	// ErrClosed is returned once the client has been closed.
	ErrClosed = errors.New("query client closed")

	// errSuperseded aborts a call replaced by a newer one for the same key.
	errSuperseded = errors.New("query superseded")
)

package query

import (
	"time"

	"github.com/Sternrassler/students-view/pkg/cache"
)

// Status is the lifecycle state of a query.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusFailed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// CanTransition reports whether the state machine allows moving from s to next.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusIdle:
		// Idle → Success hydrates a query from an entry another reader stored
		return next == StatusLoading || next == StatusSuccess
	case StatusLoading:
		return next == StatusSuccess || next == StatusFailed || next == StatusCancelled
	case StatusSuccess, StatusFailed, StatusCancelled:
		return next == StatusLoading
	default:
		return false
	}
}

// State is a snapshot of a query.
type State struct {
	Key    cache.Key
	Status Status

	// Entry is the last stored result. It may be present in every status,
	// e.g. while a stale entry is being refetched.
	Entry *cache.Entry

	// Err is the error of the last settled call for Failed and Cancelled.
	Err error

	// Fetching is true while a call is in flight.
	Fetching bool

	// UpdatedAt is when the last successful call settled.
	UpdatedAt time.Time
}

// HasData reports whether a stored result is available.
func (s State) HasData() bool {
	return s.Entry != nil
}

// IsInitialLoading is true while the first result is loading.
func (s State) IsInitialLoading() bool {
	return s.Status == StatusLoading && s.Entry == nil
}

// Decode unmarshals the stored result into v.
// Returns cache.ErrCacheMiss when there is no data.
func (s State) Decode(v any) error {
	if s.Entry == nil {
		return cache.ErrCacheMiss
	}
	return s.Entry.Decode(v)
}

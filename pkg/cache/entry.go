package cache

import (
	"encoding/json"
	"fmt"
	"time"
)

// Entry represents a cached query result.
type Entry struct {
	// Data is the JSON-encoded result
	Data []byte `json:"data"`

	// UpdatedAt is when the data was fetched from the source
	UpdatedAt time.Time `json:"updated_at"`

	// Expires is when the store drops the entry
	Expires time.Time `json:"expires"`

	// Stale marks an invalidated entry. It stays readable as placeholder
	// data but is never served as fresh.
	Stale bool `json:"stale,omitempty"`
}

// NewEntry encodes v into a new entry that expires after cacheTime.
func NewEntry(v any, cacheTime time.Duration) (*Entry, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode entry: %w", err)
	}

	now := time.Now()
	return &Entry{
		Data:      data,
		UpdatedAt: now,
		Expires:   now.Add(cacheTime),
	}, nil
}

// Decode unmarshals the entry data into v.
func (e *Entry) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return nil
}

// IsExpired returns true if the cache entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Age returns the time since the data was fetched.
func (e *Entry) Age() time.Duration {
	return time.Since(e.UpdatedAt)
}

// IsFresh reports whether the entry can be served without refetching
// under the given stale time. A zero stale time means always stale.
func (e *Entry) IsFresh(staleTime time.Duration) bool {
	if e.Stale || e.IsExpired() {
		return false
	}
	return e.Age() < staleTime
}

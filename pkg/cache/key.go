package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key addresses a cached query result.
type Key struct {
	// Resource is the name of the queried resource (e.g., "students")
	Resource string

	// Params are the parameters that select a subset of the resource
	// (e.g., {"page": "2"})
	Params url.Values
}

// NewKey builds a key from a resource name and alternating param names and values.
// A trailing name without a value is ignored.
func NewKey(resource string, kv ...string) Key {
	k := Key{Resource: resource}
	if len(kv) >= 2 {
		k.Params = make(url.Values, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			k.Params.Add(kv[i], kv[i+1])
		}
	}
	return k
}

// String generates a deterministic key string.
// Format: resource:param1=val1:param2=val2
//
// Example:
//
//	students:page=2
func (k Key) String() string {
	parts := []string{strings.Trim(k.Resource, "/")}

	if len(k.Params) > 0 {
		names := make([]string, 0, len(k.Params))
		for name := range k.Params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, strings.Join(k.Params[name], ",")))
		}
	}

	return strings.Join(parts, ":")
}

// Equal reports whether two keys address the same entry.
func (k Key) Equal(other Key) bool {
	return k.String() == other.String()
}

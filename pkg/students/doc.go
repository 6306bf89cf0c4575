// Package students implements the students list view: a paginated,
// cached list with refetch, cancel, delete and hover prefetch.
//
// The Controller is stateless apart from its dependencies. Query state
// lives in the injected query client, so every request handler can share
// one Controller.
package students

// Package testutil provides testing utilities for the students view.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// Student mirrors the API record shape served by MockAPI.
type Student struct {
	ID        int    `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Avatar    string `json:"avatar"`
}

// Students generates n students with ids 1..n.
func Students(n int) []Student {
	students := make([]Student, 0, n)
	for i := 1; i <= n; i++ {
		students = append(students, Student{
			ID:        i,
			FirstName: fmt.Sprintf("First%d", i),
			LastName:  fmt.Sprintf("Last%d", i),
			Email:     fmt.Sprintf("student%d@example.com", i),
			Avatar:    fmt.Sprintf("https://example.com/avatars/%d.png", i),
		})
	}
	return students
}

// MockAPI is an in-memory students REST API for tests. It serves
// GET /students?_page&_limit with X-Total-Count, GET /students/{id}
// and DELETE /students/{id}.
type MockAPI struct {
	server *httptest.Server

	mu        sync.RWMutex
	students  []Student
	delay     time.Duration
	failWith  int
	omitTotal bool
	counts    map[string]int
}

// NewMockAPI creates a mock API serving the given students in order.
func NewMockAPI(students []Student) *MockAPI {
	m := &MockAPI{
		students: append([]Student(nil), students...),
		counts:   make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /students", m.list)
	mux.HandleFunc("GET /students/{id}", m.get)
	mux.HandleFunc("DELETE /students/{id}", m.delete)

	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.counts[r.Method+" "+r.URL.Path]++
		delay := m.delay
		failWith := m.failWith
		m.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		if failWith != 0 {
			http.Error(w, http.StatusText(failWith), failWith)
			return
		}

		mux.ServeHTTP(w, r)
	}))

	return m
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.CloseClientConnections()
	m.server.Close()
}

// SetDelay delays every response by d, or until the request is aborted.
func (m *MockAPI) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// FailWith makes every request fail with status; 0 restores normal behavior.
func (m *MockAPI) FailWith(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = status
}

// OmitTotalCount stops sending the X-Total-Count header.
func (m *MockAPI) OmitTotalCount(omit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.omitTotal = omit
}

// RequestCount returns the number of requests received for method and path,
// e.g. RequestCount("GET", "/students/7").
func (m *MockAPI) RequestCount(method, path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counts[method+" "+path]
}

// TotalRequests returns the number of requests received.
func (m *MockAPI) TotalRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, n := range m.counts {
		total += n
	}
	return total
}

// Reset clears all request counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts = make(map[string]int)
}

// Len returns the number of stored students.
func (m *MockAPI) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.students)
}

func (m *MockAPI) list(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	students := append([]Student(nil), m.students...)
	omitTotal := m.omitTotal
	m.mu.RUnlock()

	page, _ := strconv.Atoi(r.URL.Query().Get("_page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("_limit"))

	result := students
	if page > 0 && limit > 0 {
		start := (page - 1) * limit
		end := start + limit
		switch {
		case start >= len(students):
			result = []Student{}
		case end > len(students):
			result = students[start:]
		default:
			result = students[start:end]
		}
	}

	if !omitTotal {
		w.Header().Set("X-Total-Count", strconv.Itoa(len(students)))
	}
	writeJSON(w, http.StatusOK, result)
}

func (m *MockAPI) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{})
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.students {
		if s.ID == id {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{})
}

func (m *MockAPI) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{})
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.students {
		if s.ID == id {
			m.students = append(m.students[:i], m.students[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

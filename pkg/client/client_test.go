package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Sternrassler/students-view/internal/testutil"
	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	c, err := New(DefaultConfig(baseURL, "students-view-test/1.0"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c.logger = zerolog.Nop()
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid config",
			config: DefaultConfig("http://localhost:4000", "TestApp/1.0.0"),
		},
		{
			name:        "empty base url",
			config:      DefaultConfig("", "TestApp/1.0.0"),
			expectError: true,
			errorMsg:    "base url is required",
		},
		{
			name:        "relative base url",
			config:      DefaultConfig("localhost", "TestApp/1.0.0"),
			expectError: true,
			errorMsg:    `invalid base url "localhost"`,
		},
		{
			name:        "empty user agent",
			config:      DefaultConfig("http://localhost:4000", ""),
			expectError: true,
			errorMsg:    "user-agent is required",
		},
		{
			name: "negative retries",
			config: Config{
				BaseURL:    "http://localhost:4000",
				UserAgent:  "TestApp/1.0.0",
				MaxRetries: -1,
			},
			expectError: true,
			errorMsg:    "max_retries must be >= 0 (got -1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.config)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got nil")
					return
				}
				if tt.errorMsg != "" && err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
				return
			}

			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}
			if client == nil {
				t.Error("Client is nil")
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("http://localhost:4000", "TestApp/1.0.0")

	if cfg.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0 (retries disabled)", cfg.MaxRetries)
	}
	if cfg.Timeout <= 0 {
		t.Errorf("Timeout = %v, should be > 0", cfg.Timeout)
	}
}

func TestGetStudents_Page(t *testing.T) {
	mock := testutil.NewMockAPI(testutil.Students(25))
	defer mock.Close()

	c := newTestClient(t, mock.URL())

	page, err := c.GetStudents(context.Background(), 2, 10)
	if err != nil {
		t.Fatalf("GetStudents() error = %v", err)
	}

	if page.TotalCount != 25 {
		t.Errorf("TotalCount = %d, want 25", page.TotalCount)
	}
	if len(page.Students) != 10 {
		t.Fatalf("len(Students) = %d, want 10", len(page.Students))
	}
	for i, s := range page.Students {
		if want := 11 + i; s.ID != want {
			t.Errorf("Students[%d].ID = %d, want %d", i, s.ID, want)
		}
	}
	if page.Page != 2 || page.Limit != 10 {
		t.Errorf("Page/Limit = %d/%d, want 2/10", page.Page, page.Limit)
	}
}

func TestGetStudents_QueryParams(t *testing.T) {
	var gotQuery, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("X-Total-Count", "0")
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	page, err := c.GetStudents(context.Background(), 3, 10)
	if err != nil {
		t.Fatalf("GetStudents() error = %v", err)
	}

	if gotQuery != "_limit=10&_page=3" {
		t.Errorf("query = %q, want %q", gotQuery, "_limit=10&_page=3")
	}
	if gotUA != "students-view-test/1.0" {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if page.Students == nil {
		t.Error("Students should be an empty slice, not nil")
	}
}

func TestGetStudents_TotalCountHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "present", header: "42", want: 42},
		{name: "missing", header: "", want: 0},
		{name: "malformed", header: "many", want: 0},
		{name: "negative", header: "-3", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.header != "" {
					w.Header().Set("X-Total-Count", tt.header)
				}
				w.Write([]byte(`[]`))
			}))
			defer server.Close()

			c := newTestClient(t, server.URL)
			page, err := c.GetStudents(context.Background(), 1, 10)
			if err != nil {
				t.Fatalf("GetStudents() error = %v", err)
			}
			if page.TotalCount != tt.want {
				t.Errorf("TotalCount = %d, want %d", page.TotalCount, tt.want)
			}
		})
	}
}

func TestGetStudents_InvalidRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Total-Count", "1")
		w.Write([]byte(`[{"id": 1, "last_name": "Doe", "email": "not-an-email"}]`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	_, err := c.GetStudents(context.Background(), 1, 10)
	if !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("error = %v, want ErrInvalidRecord", err)
	}
}

func TestGetStudent(t *testing.T) {
	mock := testutil.NewMockAPI(testutil.Students(10))
	defer mock.Close()

	c := newTestClient(t, mock.URL())

	student, err := c.GetStudent(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetStudent() error = %v", err)
	}
	if student.ID != 7 || student.LastName != "Last7" {
		t.Errorf("GetStudent() = %+v", student)
	}
	if student.Email != "student7@example.com" {
		t.Errorf("Email = %q", student.Email)
	}
}

func TestGetStudent_NotFound(t *testing.T) {
	mock := testutil.NewMockAPI(testutil.Students(3))
	defer mock.Close()

	c := newTestClient(t, mock.URL())

	_, err := c.GetStudent(context.Background(), 99)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %T is not *APIError", err)
	}
	if apiErr.ErrorClass != ErrorClassClient {
		t.Errorf("ErrorClass = %s, want client", apiErr.ErrorClass)
	}
}

func TestDeleteStudent(t *testing.T) {
	mock := testutil.NewMockAPI(testutil.Students(10))
	defer mock.Close()

	c := newTestClient(t, mock.URL())
	ctx := context.Background()

	if err := c.DeleteStudent(ctx, 5); err != nil {
		t.Fatalf("DeleteStudent() error = %v", err)
	}
	if mock.Len() != 9 {
		t.Errorf("mock has %d students, want 9", mock.Len())
	}

	if err := c.DeleteStudent(ctx, 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteStudent() error = %v, want ErrNotFound", err)
	}
}

func TestDo_NoRetryByDefault(t *testing.T) {
	mock := testutil.NewMockAPI(testutil.Students(10))
	defer mock.Close()
	mock.FailWith(http.StatusServiceUnavailable)

	c := newTestClient(t, mock.URL())

	_, err := c.GetStudents(context.Background(), 1, 10)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.ErrorClass != ErrorClassServer {
		t.Errorf("ErrorClass = %s, want server", apiErr.ErrorClass)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("single attempt must not report retry exhaustion")
	}
	if n := mock.RequestCount("GET", "/students"); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}
}

func TestDo_RetryEnabled(t *testing.T) {
	mock := testutil.NewMockAPI(testutil.Students(10))
	defer mock.Close()
	mock.FailWith(http.StatusInternalServerError)

	cfg := DefaultConfig(mock.URL(), "TestApp/1.0.0")
	cfg.MaxRetries = 2
	cfg.InitialBackoff = time.Millisecond
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = c.GetStudents(context.Background(), 1, 10)
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("error = %v, want ErrRetryExhausted", err)
	}
	if n := mock.RequestCount("GET", "/students"); n != 3 {
		t.Errorf("requests = %d, want 3", n)
	}
}

func TestDo_ClientErrorNotRetried(t *testing.T) {
	mock := testutil.NewMockAPI(testutil.Students(1))
	defer mock.Close()

	cfg := DefaultConfig(mock.URL(), "TestApp/1.0.0")
	cfg.MaxRetries = 3
	cfg.InitialBackoff = time.Millisecond
	c, _ := New(cfg)

	if _, err := c.GetStudent(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if n := mock.RequestCount("GET", "/students/42"); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	mock := testutil.NewMockAPI(testutil.Students(10))
	defer mock.Close()
	mock.SetDelay(2 * time.Second)

	c := newTestClient(t, mock.URL())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := c.GetStudents(ctx, 1, 10)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("request took %v after cancel", elapsed)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.ErrorClass != ErrorClassCancelled {
		t.Errorf("ErrorClass = %s, want cancelled", apiErr.ErrorClass)
	}
}

func TestDo_Deadline(t *testing.T) {
	mock := testutil.NewMockAPI(testutil.Students(10))
	defer mock.Close()
	mock.SetDelay(2 * time.Second)

	c := newTestClient(t, mock.URL())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := c.GetStudents(ctx, 1, 10)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want context.DeadlineExceeded", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.ErrorClass != ErrorClassNetwork {
		t.Errorf("error = %v, want network class", err)
	}
}

func TestClassifyError(t *testing.T) {
	c := &Client{logger: zerolog.Nop()}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name       string
		ctx        context.Context
		statusCode int
		err        error
		expected   ErrorClass
	}{
		{
			name:     "network error",
			ctx:      context.Background(),
			err:      io.EOF,
			expected: ErrorClassNetwork,
		},
		{
			name:     "cancelled context",
			ctx:      cancelled,
			err:      context.Canceled,
			expected: ErrorClassCancelled,
		},
		{
			name:       "client error 404",
			ctx:        context.Background(),
			statusCode: 404,
			expected:   ErrorClassClient,
		},
		{
			name:       "client error 400",
			ctx:        context.Background(),
			statusCode: 400,
			expected:   ErrorClassClient,
		},
		{
			name:       "server error 500",
			ctx:        context.Background(),
			statusCode: 500,
			expected:   ErrorClassServer,
		},
		{
			name:       "server error 503",
			ctx:        context.Background(),
			statusCode: 503,
			expected:   ErrorClassServer,
		},
		{
			name:       "success",
			ctx:        context.Background(),
			statusCode: 200,
			expected:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp *http.Response
			if tt.err == nil {
				resp = &http.Response{StatusCode: tt.statusCode}
			}
			if got := c.classifyError(tt.ctx, resp, tt.err); got != tt.expected {
				t.Errorf("classifyError() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	c := newTestClient(t, "http://api.example.com/v1/")

	got := c.resolve("students/5", nil)
	if got != "http://api.example.com/v1/students/5" {
		t.Errorf("resolve() = %q", got)
	}
}

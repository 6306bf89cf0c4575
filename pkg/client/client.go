// Package client provides the students REST API client with error
// classification, optional retries and Prometheus instrumentation.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/go-querystring/query"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for API client operations.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "students_api_requests_total",
		Help: "Total students API requests by endpoint and status",
	}, []string{"method", "endpoint", "status"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "students_api_request_duration_seconds",
		Help:    "Students API request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"method", "endpoint"})

	apiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "students_api_errors_total",
		Help: "Total students API errors by class",
	}, []string{"class"})
)

// Endpoint labels. Path parameters are kept out of metric labels.
const (
	endpointStudents = "/students"
	endpointStudent  = "/students/{id}"
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassCancelled represents requests aborted by their context.
	ErrorClassCancelled ErrorClass = "cancelled"
)

// Client talks to the students REST API.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	validate   *validator.Validate
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the REST API (e.g., "http://localhost:4000")
	BaseURL string

	// User-Agent header sent with every request
	UserAgent string

	// Timeout bounds a single HTTP exchange. Callers bound whole
	// operations through their context.
	Timeout time.Duration

	// Retry. MaxRetries 0 disables retries.
	MaxRetries     int
	InitialBackoff time.Duration
}

// DefaultConfig returns a default configuration with retries disabled.
func DefaultConfig(baseURL, userAgent string) Config {
	return Config{
		BaseURL:        baseURL,
		UserAgent:      userAgent,
		Timeout:        30 * time.Second,
		MaxRetries:     0,
		InitialBackoff: 1 * time.Second,
	}
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil || baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.MaxRetries)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:  baseURL,
		validate: validator.New(),
		config:   cfg,
		logger:   log.With().Str("component", "students-client").Logger(),
	}, nil
}

// GetStudents fetches one page of students together with the total count
// reported in the X-Total-Count header.
func (c *Client) GetStudents(ctx context.Context, page, limit int) (*StudentsPage, error) {
	params, err := query.Values(ListOptions{Page: page, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("encode list options: %w", err)
	}

	resp, err := c.do(ctx, http.MethodGet, endpointStudents, c.resolve("students", params))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var students []Student
	if err := json.NewDecoder(resp.Body).Decode(&students); err != nil {
		return nil, fmt.Errorf("decode students: %w", err)
	}

	for i := range students {
		if err := c.validate.Struct(students[i]); err != nil {
			return nil, fmt.Errorf("%w: student at index %d: %v", ErrInvalidRecord, i, err)
		}
	}

	if students == nil {
		students = []Student{}
	}

	return &StudentsPage{
		Students:   students,
		TotalCount: c.totalCount(resp.Header),
		Page:       page,
		Limit:      limit,
	}, nil
}

// GetStudent fetches a single student by id.
func (c *Client) GetStudent(ctx context.Context, id int) (*Student, error) {
	resp, err := c.do(ctx, http.MethodGet, endpointStudent, c.resolve("students/"+strconv.Itoa(id), nil))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var student Student
	if err := json.NewDecoder(resp.Body).Decode(&student); err != nil {
		return nil, fmt.Errorf("decode student: %w", err)
	}

	if err := c.validate.Struct(student); err != nil {
		return nil, fmt.Errorf("%w: student %d: %v", ErrInvalidRecord, id, err)
	}

	return &student, nil
}

// DeleteStudent deletes a student by id.
func (c *Client) DeleteStudent(ctx context.Context, id int) error {
	resp, err := c.do(ctx, http.MethodDelete, endpointStudent, c.resolve("students/"+strconv.Itoa(id), nil))
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	c.logger.Info().Int("id", id).Msg("Student deleted")
	return nil
}

// Ping checks that the API answers list requests.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.GetStudents(ctx, 1, 1)
	return err
}

// resolve builds an absolute URL below the base URL.
func (c *Client) resolve(path string, params url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + path
	u.RawQuery = params.Encode()
	return u.String()
}

// totalCount parses the total count header. A missing or malformed header counts as 0.
func (c *Client) totalCount(header http.Header) int {
	raw := header.Get(TotalCountHeader)
	if raw == "" {
		c.logger.Warn().Msg("Response without total count header")
		return 0
	}

	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		c.logger.Warn().Str("value", raw).Msg("Malformed total count header")
		return 0
	}
	return n
}

// do performs an HTTP request with error classification, optional retries
// and metrics. Responses with status >= 400 are returned as *APIError.
func (c *Client) do(ctx context.Context, method, endpoint, rawURL string) (*http.Response, error) {
	startTime := time.Now()
	defer func() {
		apiRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(startTime).Seconds())
	}()

	var resp *http.Response

	retryErr := retryWithBackoff(ctx, c.retryConfig(), func() error {
		req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", "application/json")

		c.logger.Debug().
			Str("method", method).
			Str("url", rawURL).
			Msg("Executing API request")

		r, err := c.httpClient.Do(req)
		if err != nil {
			errClass := c.classifyError(ctx, nil, err)
			apiErrorsTotal.WithLabelValues(string(errClass)).Inc()
			apiRequestsTotal.WithLabelValues(method, endpoint, string(errClass)).Inc()

			event := c.logger.Warn()
			if errClass == ErrorClassCancelled {
				event = c.logger.Debug()
			}
			event.Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")

			return &APIError{
				Method:     method,
				Endpoint:   endpoint,
				ErrorClass: errClass,
				Message:    "request failed",
				Err:        err,
			}
		}

		apiRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(r.StatusCode)).Inc()

		if r.StatusCode >= 400 {
			errClass := c.classifyError(ctx, r, nil)
			apiErrorsTotal.WithLabelValues(string(errClass)).Inc()

			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", r.StatusCode).
				Str("error_class", string(errClass)).
				Msg("API request error")

			_, _ = io.Copy(io.Discard, io.LimitReader(r.Body, 4096))
			r.Body.Close()

			return &APIError{
				Method:     method,
				Endpoint:   endpoint,
				StatusCode: r.StatusCode,
				ErrorClass: errClass,
				Message:    r.Status,
			}
		}

		resp = r
		return nil
	}, func(err error) ErrorClass {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return apiErr.ErrorClass
		}
		return ""
	})

	if retryErr != nil {
		return nil, retryErr
	}

	return resp, nil
}

func (c *Client) retryConfig() RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = c.config.MaxRetries + 1
	if c.config.InitialBackoff > 0 {
		cfg.InitialBackoff = c.config.InitialBackoff
	}
	return cfg
}

// classifyError categorizes a failure for observability and retry decisions.
func (c *Client) classifyError(ctx context.Context, resp *http.Response, err error) ErrorClass {
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return ErrorClassCancelled
		}
		// Deadlines count as network failures
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return ErrorClassClient
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

package students

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/students-view/pkg/cache"
	"github.com/Sternrassler/students-view/pkg/client"
	"github.com/Sternrassler/students-view/pkg/logging"
	"github.com/Sternrassler/students-view/pkg/pagination"
	"github.com/Sternrassler/students-view/pkg/query"
)

const (
	// PageSize is the number of students per page.
	PageSize = pagination.DefaultPageSize

	// PageTimeout aborts a page request that takes longer.
	PageTimeout = 5 * time.Second

	// DetailStaleTime is how long a fetched student is served from cache.
	DetailStaleTime = 10 * time.Second

	// ResourcePage and ResourceStudent name the cached resources.
	ResourcePage    = "students"
	ResourceStudent = "student"

	// PageParam is the query parameter holding the current page.
	PageParam = "page"
)

// API is the subset of the students REST client used by the controller.
type API interface {
	GetStudents(ctx context.Context, page, limit int) (*client.StudentsPage, error)
	GetStudent(ctx context.Context, id int) (*client.Student, error)
	DeleteStudent(ctx context.Context, id int) error
}

// Cache is the query client used by the controller.
type Cache interface {
	Query(ctx context.Context, key cache.Key, fn query.FetchFunc, opts query.Options) query.State
	Await(ctx context.Context, key cache.Key) query.State
	Fetch(ctx context.Context, key cache.Key, fn query.FetchFunc, opts query.Options) (*cache.Entry, error)
	Refetch(key cache.Key) error
	Cancel(key cache.Key) bool
	Invalidate(ctx context.Context, key cache.Key) error
	Prefetch(key cache.Key, fn query.FetchFunc, opts query.Options) bool
	Latest(ctx context.Context, resource string) (*cache.Entry, bool)
}

// Config holds the controller configuration.
type Config struct {
	PageSize        int
	PageTimeout     time.Duration
	DetailStaleTime time.Duration

	// RenderWait is how long Load waits for an in-flight page before
	// returning the loading state. Zero returns immediately.
	RenderWait time.Duration
}

// DefaultConfig returns the default controller configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:        PageSize,
		PageTimeout:     PageTimeout,
		DetailStaleTime: DetailStaleTime,
		RenderWait:      300 * time.Millisecond,
	}
}

// Controller drives the students list view.
type Controller struct {
	api    API
	cache  Cache
	config Config
	logger zerolog.Logger
}

// New creates a controller. Zero config values fall back to the defaults.
func New(api API, qc Cache, cfg Config) *Controller {
	defaults := DefaultConfig()
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaults.PageSize
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = defaults.PageTimeout
	}
	if cfg.DetailStaleTime <= 0 {
		cfg.DetailStaleTime = defaults.DetailStaleTime
	}
	if cfg.RenderWait < 0 {
		cfg.RenderWait = 0
	}

	return &Controller{
		api:    api,
		cache:  qc,
		config: cfg,
		logger: logging.NewLogger("students-controller"),
	}
}

// PageKey is the query key of a list page.
func PageKey(page int) cache.Key {
	return cache.NewKey(ResourcePage, "page", strconv.Itoa(page))
}

// StudentKey is the query key of a single student.
func StudentKey(id int) cache.Key {
	return cache.NewKey(ResourceStudent, "id", strconv.Itoa(id))
}

// PageFromQuery returns the page selected by the URL query. Missing,
// malformed and non-positive values select page 1.
func PageFromQuery(values url.Values) int {
	return pagination.PageFromQuery(values, PageParam)
}

// PageHref is the list URL of a page.
func PageHref(page int) string {
	return "/students?" + PageParam + "=" + strconv.Itoa(page)
}

// View is everything needed to render one list page.
type View struct {
	Page       int
	Status     query.Status
	Students   []client.Student
	TotalCount int
	Pagination pagination.Nav

	// HasData is true when Students holds a decoded result.
	HasData bool

	// Placeholder is true when Students belong to a previously loaded page
	// shown while this page loads.
	Placeholder bool

	Fetching  bool
	Err       error
	UpdatedAt time.Time
}

// InitialLoading is true while the page loads with nothing to show.
func (v View) InitialLoading() bool {
	return v.Status == query.StatusLoading && !v.HasData
}

// Failed is true when the last fetch of the page failed.
func (v View) Failed() bool {
	return v.Status == query.StatusFailed
}

// Cancelled is true when the last fetch of the page was cancelled.
func (v View) Cancelled() bool {
	return v.Status == query.StatusCancelled
}

// Load returns the view of page, starting a fetch when the page is not
// cached or stale. It waits up to RenderWait for an in-flight fetch.
func (c *Controller) Load(ctx context.Context, page int) View {
	key := PageKey(page)

	st := c.cache.Query(ctx, key, c.pageFunc(page), c.pageOptions())
	if st.Fetching && c.config.RenderWait > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, c.config.RenderWait)
		st = c.cache.Await(waitCtx, key)
		cancel()
	}

	view := View{
		Page:      page,
		Status:    st.Status,
		Fetching:  st.Fetching,
		Err:       st.Err,
		UpdatedAt: st.UpdatedAt,
	}

	entry := st.Entry
	if entry == nil && st.Status == query.StatusLoading {
		if latest, ok := c.cache.Latest(ctx, ResourcePage); ok {
			entry = latest
			view.Placeholder = true
		}
	}

	if entry != nil {
		var data client.StudentsPage
		if err := entry.Decode(&data); err != nil {
			c.logger.Warn().Err(err).Int("page", page).Msg("Discarding undecodable page")
			view.Placeholder = false
		} else {
			view.Students = data.Students
			view.TotalCount = data.TotalCount
			view.HasData = true
		}
	}

	view.Pagination = pagination.Build(page, view.TotalCount, c.config.PageSize, PageHref)
	return view
}

// Refetch reloads page regardless of freshness. Failed and cancelled
// pages only ever reload through here.
func (c *Controller) Refetch(ctx context.Context, page int) error {
	err := c.cache.Refetch(PageKey(page))
	if errors.Is(err, query.ErrNoQueryFunc) {
		c.cache.Query(ctx, PageKey(page), c.pageFunc(page), c.pageOptions())
		return nil
	}
	return err
}

// Cancel aborts the in-flight request for page. Reports whether one was running.
func (c *Controller) Cancel(page int) bool {
	return c.cache.Cancel(PageKey(page))
}

// PrefetchStudent warms the cached record of student id without blocking.
func (c *Controller) PrefetchStudent(id int) bool {
	return c.cache.Prefetch(StudentKey(id), c.studentFunc(id), c.studentOptions())
}

// Student returns student id, served from cache while fresh.
func (c *Controller) Student(ctx context.Context, id int) (*client.Student, error) {
	entry, err := c.cache.Fetch(ctx, StudentKey(id), c.studentFunc(id), c.studentOptions())
	if err != nil {
		return nil, err
	}

	var student client.Student
	if err := entry.Decode(&student); err != nil {
		return nil, err
	}
	return &student, nil
}

// Delete removes student id and invalidates the page it was listed on.
// The returned toast reports the outcome in either case.
func (c *Controller) Delete(ctx context.Context, page, id int) (Toast, error) {
	if err := c.api.DeleteStudent(ctx, id); err != nil {
		c.logger.Warn().Err(err).Int("id", id).Msg("Delete failed")
		return Toast{
			Level:   ToastError,
			Message: fmt.Sprintf("Delete student with id = %d failed: %s", id, failureReason(err)),
		}, err
	}

	if err := c.cache.Invalidate(ctx, PageKey(page)); err != nil {
		c.logger.Warn().Err(err).Int("page", page).Msg("Page invalidation failed")
	}

	return Toast{
		Level:   ToastSuccess,
		Message: fmt.Sprintf("Delete student with id = %d successfully!", id),
	}, nil
}

func (c *Controller) pageFunc(page int) query.FetchFunc {
	return func(ctx context.Context) (any, error) {
		return c.api.GetStudents(ctx, page, c.config.PageSize)
	}
}

func (c *Controller) pageOptions() query.Options {
	return query.Options{Timeout: c.config.PageTimeout}
}

func (c *Controller) studentFunc(id int) query.FetchFunc {
	return func(ctx context.Context) (any, error) {
		return c.api.GetStudent(ctx, id)
	}
}

func (c *Controller) studentOptions() query.Options {
	return query.Options{
		StaleTime: c.config.DetailStaleTime,
		Timeout:   c.config.PageTimeout,
	}
}

// failureReason is the short cause shown to users.
func failureReason(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

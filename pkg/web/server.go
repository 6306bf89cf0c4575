package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/students-view/pkg/client"
	"github.com/Sternrassler/students-view/pkg/logging"
	"github.com/Sternrassler/students-view/pkg/metrics"
	"github.com/Sternrassler/students-view/pkg/students"
)

//go:embed templates/*.html
var templateFS embed.FS

// skeletonRows is the number of placeholder bars shown on initial load.
const skeletonRows = 13

// refreshSeconds is the reload interval of pages loading with nothing
// of their own to show. A background refetch of cached data never refreshes.
const refreshSeconds = 1

// Controller is the students view logic behind the handlers.
type Controller interface {
	Load(ctx context.Context, page int) students.View
	Refetch(ctx context.Context, page int) error
	Cancel(page int) bool
	PrefetchStudent(id int) bool
	Student(ctx context.Context, id int) (*client.Student, error)
	Delete(ctx context.Context, page, id int) (students.Toast, error)
}

// Pinger is a dependency checked by /ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check is a named readiness check.
type Check struct {
	Name   string
	Pinger Pinger
}

// Server renders the students view.
type Server struct {
	ctrl         Controller
	checks       []Check
	readyTimeout time.Duration
	pages        map[string]*template.Template
	mux          *http.ServeMux
	logger       zerolog.Logger
}

// pageData is passed to every template.
type pageData struct {
	Refresh  int
	Toast    *students.Toast
	View     students.View
	Skeleton []struct{}
	Student  *client.Student
}

// NewServer creates a server. checks are run by /ready in order.
func NewServer(ctrl Controller, checks ...Check) (*Server, error) {
	pages := make(map[string]*template.Template)
	for _, name := range []string{"students.html", "student.html"} {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}

	s := &Server{
		ctrl:         ctrl,
		checks:       checks,
		readyTimeout: 2 * time.Second,
		pages:        pages,
		mux:          http.NewServeMux(),
		logger:       logging.NewLogger("web"),
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/students", http.StatusFound)
	})
	s.mux.HandleFunc("GET /students", s.handleList)
	s.mux.HandleFunc("POST /students/refetch", s.handleRefetch)
	s.mux.HandleFunc("POST /students/cancel", s.handleCancel)
	s.mux.HandleFunc("GET /students/{id}", s.handleStudent)
	s.mux.HandleFunc("POST /students/{id}/delete", s.handleDelete)
	s.mux.HandleFunc("POST /students/{id}/prefetch", s.handlePrefetch)

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /ready", s.handleReady)
	s.mux.Handle("GET /metrics", metrics.Handler())
}

// Handler returns the root handler with request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	page := students.PageFromQuery(r.URL.Query())
	view := s.ctrl.Load(r.Context(), page)

	data := pageData{
		Toast: popFlash(w, r),
		View:  view,
	}
	if view.InitialLoading() {
		data.Refresh = refreshSeconds
		data.Skeleton = make([]struct{}, skeletonRows)
	}
	if view.Placeholder {
		data.Refresh = refreshSeconds
	}

	s.render(w, http.StatusOK, "students.html", data)
}

func (s *Server) handleRefetch(w http.ResponseWriter, r *http.Request) {
	page := students.PageFromQuery(r.URL.Query())

	if err := s.ctrl.Refetch(r.Context(), page); err != nil {
		s.logger.Warn().Err(err).Int("page", page).Msg("Refetch failed")
	}

	http.Redirect(w, r, students.PageHref(page), http.StatusSeeOther)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	page := students.PageFromQuery(r.URL.Query())

	if !s.ctrl.Cancel(page) {
		s.logger.Debug().Int("page", page).Msg("Nothing to cancel")
	}

	http.Redirect(w, r, students.PageHref(page), http.StatusSeeOther)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	page := students.PageFromQuery(r.URL.Query())

	// the toast carries the outcome, errors are logged by the controller
	toast, _ := s.ctrl.Delete(r.Context(), page, id)
	setFlash(w, toast)

	http.Redirect(w, r, students.PageHref(page), http.StatusSeeOther)
}

func (s *Server) handlePrefetch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	s.ctrl.PrefetchStudent(id)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	student, err := s.ctrl.Student(r.Context(), id)
	switch {
	case errors.Is(err, client.ErrNotFound):
		http.Error(w, "student not found", http.StatusNotFound)
		return
	case err != nil:
		s.logger.Warn().Err(err).Int("id", id).Msg("Student lookup failed")
		http.Error(w, "failed to load student", http.StatusBadGateway)
		return
	}

	s.render(w, http.StatusOK, "student.html", pageData{Student: student})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.readyTimeout)
	defer cancel()

	for _, check := range s.checks {
		if err := check.Pinger.Ping(ctx); err != nil {
			s.logger.Warn().Err(err).Str("check", check.Name).Msg("Readiness check failed")
			http.Error(w, "not ready: "+check.Name, http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := s.pages[name].ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error().Err(err).Str("template", name).Msg("Template rendering failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// pathID parses the {id} path value. It answers 400 for malformed ids.
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 1 {
		http.Error(w, "invalid student id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// statusRecorder captures the response status for request logs.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		if strings.HasPrefix(r.URL.Path, "/metrics") {
			return
		}

		event := s.logger.Debug()
		if rec.status >= 500 {
			event = s.logger.Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

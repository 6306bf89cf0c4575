// Command students-web serves the paginated students list backed by the
// students REST API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/Sternrassler/students-view/internal/config"
	"github.com/Sternrassler/students-view/pkg/cache"
	"github.com/Sternrassler/students-view/pkg/client"
	"github.com/Sternrassler/students-view/pkg/logging"
	"github.com/Sternrassler/students-view/pkg/query"
	"github.com/Sternrassler/students-view/pkg/students"
	"github.com/Sternrassler/students-view/pkg/web"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("students-web stopped")
	}
}

func run(args []string) error {
	path, err := config.Path(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, config.Usage())
		return err
	}

	logging.Setup(logging.Config{
		Level:   logging.LogLevel(cfg.Log.Level),
		Pretty:  cfg.Log.Pretty,
		Output:  os.Stderr,
		Service: "students-web",
	})
	logger := logging.NewLogger("main")

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	server := &http.Server{
		Addr:         cfg.HTTPServer.Addr,
		Handler:      a.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.FetchTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().
			Str("address", cfg.HTTPServer.Addr).
			Str("upstream", cfg.BaseURL).
			Bool("redis", cfg.Redis.URL != "").
			Msg("Server started")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutdown signal received, stopping server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info().Msg("Server stopped gracefully")
	return nil
}

// app wires the components of the service.
type app struct {
	handler http.Handler
	queries *query.Client
	redis   *redis.Client
}

func newApp(cfg *config.Config) (*app, error) {
	api, err := client.New(client.Config{
		BaseURL:        cfg.BaseURL,
		UserAgent:      cfg.UserAgent,
		Timeout:        cfg.RequestTimeout,
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("create api client: %w", err)
	}

	a := &app{}
	checks := []web.Check{{Name: "upstream", Pinger: api}}

	var store cache.Store = cache.NewMemoryStore()
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		a.redis = redis.NewClient(opts)

		manager := cache.NewManager(a.redis).WithPrefix(cfg.Redis.Prefix)
		store = manager
		checks = append(checks, web.Check{Name: "redis", Pinger: manager})
	}

	a.queries = query.New(query.Config{
		Store:           store,
		CacheTime:       cfg.CacheTime,
		PrefetchWorkers: cfg.PrefetchWorkers,
		PrefetchRate:    rate.Limit(cfg.PrefetchRate),
		PrefetchBurst:   cfg.PrefetchBurst,
	})

	ctrl := students.New(api, a.queries, students.Config{
		PageSize:        students.PageSize,
		PageTimeout:     cfg.FetchTimeout,
		DetailStaleTime: cfg.DetailStaleTime,
		RenderWait:      cfg.RenderWait,
	})

	server, err := web.NewServer(ctrl, checks...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.handler = server.Handler()

	return a, nil
}

// Close stops the query client and the redis connection.
func (a *app) Close() {
	if a.queries != nil {
		a.queries.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close redis client")
		}
	}
}

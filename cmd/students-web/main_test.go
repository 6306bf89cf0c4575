package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/Sternrassler/students-view/internal/config"
	"github.com/Sternrassler/students-view/internal/testutil"
)

func testConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Addr = ":0"
	cfg.ShutdownTimeout = time.Second
	cfg.BaseURL = baseURL
	cfg.UserAgent = "students-web-test/1.0"
	cfg.RequestTimeout = 5 * time.Second
	cfg.FetchTimeout = 5 * time.Second
	cfg.DetailStaleTime = 10 * time.Second
	cfg.CacheTime = time.Minute
	cfg.RenderWait = 2 * time.Second
	cfg.PrefetchWorkers = 2
	cfg.PrefetchRate = 10
	cfg.PrefetchBurst = 5
	cfg.Prefix = "query:"
	cfg.Level = "info"
	return cfg
}

func get(t *testing.T, h http.Handler, target string) (*http.Response, string) {
	t.Helper()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", target, nil))
	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func TestNewApp_MemoryStore(t *testing.T) {
	api := testutil.NewMockAPI(testutil.Students(25))
	defer api.Close()

	a, err := newApp(testConfig(api.URL()))
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.Close()

	if a.redis != nil {
		t.Error("redis client created without REDIS_URL")
	}

	resp, body := get(t, a.handler, "/students?page=2")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Last11<") {
		t.Error("page 2 not rendered")
	}

	resp, _ = get(t, a.handler, "/ready")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected /ready status 200, got %d", resp.StatusCode)
	}
}

func TestNewApp_RedisStore(t *testing.T) {
	api := testutil.NewMockAPI(testutil.Students(25))
	defer api.Close()

	mr := miniredis.RunT(t)

	cfg := testConfig(api.URL())
	cfg.Redis.URL = "redis://" + mr.Addr()

	a, err := newApp(cfg)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.Close()

	resp, _ := get(t, a.handler, "/students")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if !mr.Exists("query:students:page=1") {
		t.Errorf("page not stored in redis, keys: %v", mr.Keys())
	}

	resp, _ = get(t, a.handler, "/ready")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected /ready status 200, got %d", resp.StatusCode)
	}

	mr.Close()
	resp, body := get(t, a.handler, "/ready")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected /ready status 503 with redis down, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "redis") {
		t.Errorf("Expected failing check in body, got %s", body)
	}
}

func TestNewApp_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{
			name:   "missing user agent",
			mutate: func(c *config.Config) { c.UserAgent = "" },
		},
		{
			name:   "bad redis url",
			mutate: func(c *config.Config) { c.Redis.URL = "http://not-redis" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("http://localhost:4000")
			tt.mutate(cfg)

			if _, err := newApp(cfg); err == nil {
				t.Error("newApp() expected error")
			}
		})
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("API_BASE_URL", "not a url")

	if err := run(nil); err == nil {
		t.Error("run() expected error")
	}
}

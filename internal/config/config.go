// Package config loads the students-web configuration.
//
// Values come from an optional YAML file and the environment, the
// environment taking precedence. The file path is read from CONFIG_PATH
// or the --config flag.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/Sternrassler/students-view/pkg/logging"
)

// Config is the root configuration structure.
type Config struct {
	HTTPServer `yaml:"http_server"`
	Upstream   `yaml:"upstream"`
	Query      `yaml:"query"`
	Redis      `yaml:"redis"`
	Log        `yaml:"log"`
}

// HTTPServer holds the listener settings.
type HTTPServer struct {
	Addr            string        `yaml:"address" env:"HTTP_ADDR" env-default:":8080" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"10s" validate:"gt=0"`
}

// Upstream describes the students REST API.
type Upstream struct {
	BaseURL        string        `yaml:"base_url" env:"API_BASE_URL" env-required:"true" validate:"required,url"`
	UserAgent      string        `yaml:"user_agent" env:"USER_AGENT" env-default:"students-view/0.1.0" validate:"required"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"API_REQUEST_TIMEOUT" env-default:"30s" validate:"gt=0"`
	MaxRetries     int           `yaml:"max_retries" env:"API_MAX_RETRIES" env-default:"0" validate:"gte=0"`
}

// Query holds the query cache settings.
type Query struct {
	FetchTimeout    time.Duration `yaml:"fetch_timeout" env:"FETCH_TIMEOUT" env-default:"5s" validate:"gt=0"`
	DetailStaleTime time.Duration `yaml:"detail_stale_time" env:"DETAIL_STALE_TIME" env-default:"10s" validate:"gt=0"`
	CacheTime       time.Duration `yaml:"cache_time" env:"CACHE_TIME" env-default:"5m" validate:"gt=0"`
	RenderWait      time.Duration `yaml:"render_wait" env:"RENDER_WAIT" env-default:"300ms" validate:"gte=0"`
	PrefetchWorkers int           `yaml:"prefetch_workers" env:"PREFETCH_WORKERS" env-default:"4" validate:"gt=0"`
	PrefetchRate    float64       `yaml:"prefetch_rate" env:"PREFETCH_RATE" env-default:"20" validate:"gt=0"`
	PrefetchBurst   int           `yaml:"prefetch_burst" env:"PREFETCH_BURST" env-default:"10" validate:"gt=0"`
}

// Redis enables the shared Redis store when URL is set.
type Redis struct {
	URL    string `yaml:"url" env:"REDIS_URL" validate:"omitempty,url"`
	Prefix string `yaml:"prefix" env:"REDIS_PREFIX" env-default:"query:"`
}

// Log holds the logger settings.
type Log struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Pretty bool   `yaml:"pretty" env:"LOG_PRETTY" env-default:"false"`
}

// Load reads the configuration from path, or from the environment alone
// when path is empty, and validates it.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Path returns the config file path from CONFIG_PATH or the --config flag
// in args. An empty path means environment only.
func Path(args []string) (string, error) {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path, nil
	}

	fs := flag.NewFlagSet("students-web", flag.ContinueOnError)
	path := fs.String("config", "", "Path to the configuration YAML file")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	return *path, nil
}

// Validate checks the struct tag constraints and the log level.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config: %s failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if !logging.LogLevel(c.Log.Level).Valid() {
		return fmt.Errorf("invalid config: unknown log level %q", c.Log.Level)
	}

	return nil
}

// Usage describes the supported environment variables.
func Usage() string {
	var cfg Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return text
}

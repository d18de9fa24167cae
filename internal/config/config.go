package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Storage  StorageConfig  `yaml:"storage"`
	Events   EventsConfig   `yaml:"events"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type HTTPConfig struct {
	Port             string        `yaml:"port"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`
	CORSAllowOrigins []string      `yaml:"cors_allow_origins"`
	SessionCookie    string        `yaml:"session_cookie"`
	SecureCookie     bool          `yaml:"secure_cookie"`
}

type UpstreamConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	OrderURL        string        `yaml:"order_url"`
	CanvasOrderPath string        `yaml:"canvas_order_path"`
	MerchOrderPath  string        `yaml:"merch_order_path"`
	OrderHealthPath string        `yaml:"order_health_path"`
	// CatalogURL is optional; without it merch prices come from the request.
	CatalogURL string `yaml:"catalog_url"`
}

type StorageConfig struct {
	Driver        string `yaml:"driver"`
	Dir           string `yaml:"dir"`
	Path          string `yaml:"path"`
	DSN           string `yaml:"dsn"`
	KeyPrefix     string `yaml:"key_prefix"`
	RunMigrations bool   `yaml:"run_migrations"`
	// MaxSessions bounds the carts held in memory; idle ones are dropped
	// after SessionIdleTimeout and read back from storage on demand.
	MaxSessions        int           `yaml:"max_sessions"`
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout"`
}

type EventsConfig struct {
	// RabbitMQURL empty disables publishing; accepted orders are only logged.
	RabbitMQURL string `yaml:"rabbitmq_url"`
	Producer    string `yaml:"producer"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:             "8080",
			ShutdownTimeout:  10 * time.Second,
			SessionCookie:    "sid",
		},
		Upstream: UpstreamConfig{
			Timeout:         10 * time.Second,
			OrderURL:        "http://localhost:3000",
			CanvasOrderPath: "/api/orders/canvas",
			MerchOrderPath:  "/api/orders/products",
			OrderHealthPath: "/health",
		},
		Storage: StorageConfig{
			Driver:             StorageSQLite,
			Path:               "storefront.db",
			Dir:                "carts",
			KeyPrefix:          "tattoo-cart",
			MaxSessions:        10000,
			SessionIdleTimeout: 30 * time.Minute,
		},
		Events: EventsConfig{
			Producer: "storefront",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path or a missing file means defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.HTTP.Port = getenv("PORT", c.HTTP.Port)
	c.HTTP.ShutdownTimeout = parseDuration(os.Getenv("SHUTDOWN_TIMEOUT"), c.HTTP.ShutdownTimeout)
	if v := os.Getenv("CORS_ALLOW_ORIGINS"); strings.TrimSpace(v) != "" {
		c.HTTP.CORSAllowOrigins = splitCSV(v)
	}
	c.HTTP.SessionCookie = getenv("SESSION_COOKIE", c.HTTP.SessionCookie)
	c.HTTP.SecureCookie = parseBool(os.Getenv("SECURE_COOKIE"), c.HTTP.SecureCookie)

	c.Upstream.Timeout = parseDuration(os.Getenv("UPSTREAM_TIMEOUT"), c.Upstream.Timeout)
	c.Upstream.OrderURL = getenv("ORDER_URL", c.Upstream.OrderURL)
	c.Upstream.CanvasOrderPath = getenv("CANVAS_ORDER_PATH", c.Upstream.CanvasOrderPath)
	c.Upstream.MerchOrderPath = getenv("MERCH_ORDER_PATH", c.Upstream.MerchOrderPath)
	c.Upstream.CatalogURL = getenv("CATALOG_URL", c.Upstream.CatalogURL)

	c.Storage.Driver = getenv("CART_STORAGE", c.Storage.Driver)
	c.Storage.Dir = getenv("CART_STORAGE_DIR", c.Storage.Dir)
	c.Storage.Path = getenv("CART_SQLITE_PATH", c.Storage.Path)
	c.Storage.DSN = getenv("CART_DB_DSN", c.Storage.DSN)
	c.Storage.KeyPrefix = getenv("CART_KEY_PREFIX", c.Storage.KeyPrefix)
	c.Storage.RunMigrations = parseBool(os.Getenv("RUN_MIGRATIONS"), c.Storage.RunMigrations)
	c.Storage.MaxSessions = parseInt(os.Getenv("CART_MAX_SESSIONS"), c.Storage.MaxSessions)
	c.Storage.SessionIdleTimeout = parseDuration(os.Getenv("CART_SESSION_IDLE_TIMEOUT"), c.Storage.SessionIdleTimeout)

	c.Events.RabbitMQURL = getenv("RABBITMQ_URL", c.Events.RabbitMQURL)

	c.Logging.Level = getenv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getenv("LOG_FORMAT", c.Logging.Format)
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.Port == "" {
		errs = append(errs, errors.New("http.port is required"))
	}
	if c.Upstream.OrderURL == "" {
		errs = append(errs, errors.New("upstream.order_url is required"))
	}
	if c.Upstream.Timeout <= 0 {
		errs = append(errs, errors.New("upstream.timeout must be positive"))
	}

	switch c.Storage.Driver {
	case StorageMemory:
	case StorageFile:
		if c.Storage.Dir == "" {
			errs = append(errs, errors.New("storage.dir is required for the file driver"))
		}
	case StorageSQLite:
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage.path is required for the sqlite driver"))
		}
	case StoragePostgres:
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}

	if c.Storage.MaxSessions < 1 {
		errs = append(errs, errors.New("storage.max_sessions must be positive"))
	}
	if c.Storage.SessionIdleTimeout <= 0 {
		errs = append(errs, errors.New("storage.session_idle_timeout must be positive"))
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func parseBool(v string, def bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

func parseInt(v string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

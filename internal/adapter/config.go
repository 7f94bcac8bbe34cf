package adapter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FeedSource identifies where comment pages come from
type FeedSource string

const (
	FeedSourceMock FeedSource = "mock"
	FeedSourceHTTP FeedSource = "http"
)

// CacheBackend identifies the snapshot store implementation
type CacheBackend string

const (
	CacheBackendBolt   CacheBackend = "bolt"
	CacheBackendRedis  CacheBackend = "redis"
	CacheBackendMemory CacheBackend = "memory"
)

// Config holds all application configuration
type Config struct {
	Feed    FeedConfig    `mapstructure:"feed"`
	List    ListConfig    `mapstructure:"list"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// FeedConfig holds page source configuration
type FeedConfig struct {
	Source    FeedSource    `mapstructure:"source"`     // "mock" or "http"
	URL       string        `mapstructure:"url"`        // Base URL for the http source
	Latency   time.Duration `mapstructure:"latency"`    // Simulated delay (mock only)
	Total     int           `mapstructure:"total"`      // Comments available (mock only, 0 = unbounded)
	FailEvery int           `mapstructure:"fail_every"` // Fail every Nth fetch (mock only, 0 = never)
	Timeout   time.Duration `mapstructure:"timeout"`    // Per-page fetch timeout
}

// ListConfig holds list behaviour
type ListConfig struct {
	PageSize    int    `mapstructure:"page_size"`
	Orientation string `mapstructure:"orientation"` // "vertical" or "horizontal"
	Overscan    int    `mapstructure:"overscan"`    // Placeholder rows shown past loaded data
}

// CacheConfig holds snapshot store configuration
type CacheConfig struct {
	Backend CacheBackend `mapstructure:"backend"` // "bolt", "redis" or "memory"
	Path    string       `mapstructure:"path"`    // Bolt cache directory
	Key     string       `mapstructure:"key"`     // Snapshot key
	Redis   RedisConfig  `mapstructure:"redis"`
}

// RedisConfig holds redis connection settings
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MetricsConfig holds the optional prometheus listener
type MetricsConfig struct {
	Listen string `mapstructure:"listen"` // e.g. "127.0.0.1:9464"; empty disables
}

// ServerConfig holds murmurd settings
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Feed: FeedConfig{
			Source:  FeedSourceMock,
			Latency: 800 * time.Millisecond,
			Total:   0,
			Timeout: 30 * time.Second,
		},
		List: ListConfig{
			PageSize:    20,
			Orientation: "vertical",
			Overscan:    3,
		},
		Cache: CacheConfig{
			Backend: CacheBackendBolt,
			Path:    defaultCachePath(),
			Key:     "comments-list",
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		Server: ServerConfig{
			Listen: ":8080",
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "murmur", "murmur.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "murmur", "murmur.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "murmur")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "murmur")
	}
}

// defaultCachePath returns the default cache directory path for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "murmur", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "murmur", "cache")
	}
}

// newViper returns a viper instance seeded with defaults so that every key
// can be overridden from the environment (MURMUR_LIST_PAGE_SIZE etc).
func newViper() *viper.Viper {
	v := viper.New()
	d := DefaultConfig()

	v.SetDefault("feed.source", string(d.Feed.Source))
	v.SetDefault("feed.url", d.Feed.URL)
	v.SetDefault("feed.latency", d.Feed.Latency)
	v.SetDefault("feed.total", d.Feed.Total)
	v.SetDefault("feed.fail_every", d.Feed.FailEvery)
	v.SetDefault("feed.timeout", d.Feed.Timeout)

	v.SetDefault("list.page_size", d.List.PageSize)
	v.SetDefault("list.orientation", d.List.Orientation)
	v.SetDefault("list.overscan", d.List.Overscan)

	v.SetDefault("cache.backend", string(d.Cache.Backend))
	v.SetDefault("cache.path", d.Cache.Path)
	v.SetDefault("cache.key", d.Cache.Key)
	v.SetDefault("cache.redis.addr", d.Cache.Redis.Addr)
	v.SetDefault("cache.redis.password", d.Cache.Redis.Password)
	v.SetDefault("cache.redis.db", d.Cache.Redis.DB)

	v.SetDefault("metrics.listen", d.Metrics.Listen)
	v.SetDefault("server.listen", d.Server.Listen)

	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.level", d.Logging.Level)

	v.SetEnvPrefix("MURMUR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig loads configuration from file and environment.
// An empty path searches the default config directory and the working directory.
func LoadConfig(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the list cannot work with
func (c *Config) Validate() error {
	if c.List.PageSize <= 0 {
		return fmt.Errorf("list.page_size must be positive, got %d", c.List.PageSize)
	}
	if c.List.Overscan < 0 {
		return fmt.Errorf("list.overscan must not be negative, got %d", c.List.Overscan)
	}
	switch c.List.Orientation {
	case "vertical", "horizontal":
	default:
		return fmt.Errorf("list.orientation must be vertical or horizontal, got %q", c.List.Orientation)
	}
	switch c.Feed.Source {
	case FeedSourceMock:
	case FeedSourceHTTP:
		if c.Feed.URL == "" {
			return fmt.Errorf("feed.url is required for the http source")
		}
	default:
		return fmt.Errorf("unknown feed.source %q", c.Feed.Source)
	}
	switch c.Cache.Backend {
	case CacheBackendBolt, CacheBackendRedis, CacheBackendMemory:
	default:
		return fmt.Errorf("unknown cache.backend %q", c.Cache.Backend)
	}
	return nil
}

// FeedID identifies the configured comment source; snapshots are kept per feed
func (c *Config) FeedID() string {
	if c.Feed.Source == FeedSourceHTTP {
		return c.Feed.URL
	}
	return fmt.Sprintf("mock:%d", c.Feed.Total)
}

// WriteDefaultConfig writes the default configuration as YAML to path
// (the default config directory when empty) and returns the file written.
func WriteDefaultConfig(path string) (string, error) {
	if path == "" {
		path = filepath.Join(defaultConfigPath(), "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	v := newViper()
	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return path, nil
}

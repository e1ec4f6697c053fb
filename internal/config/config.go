package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all service settings, loaded once at startup.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Render      RenderConfig      `yaml:"render"`
	Limits      LimitsConfig      `yaml:"limits"`
	Cache       CacheConfig       `yaml:"cache"`
	Logger      LoggerConfig      `yaml:"logger"`
	RateLimiter RateLimiterConfig `yaml:"ratelimiter"`
	Auth        AuthConfig        `yaml:"auth"`
	Archive     ArchiveConfig     `yaml:"archive"`
}

type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    string `yaml:"port"`
	Prefork bool   `yaml:"prefork"`
}

type RenderConfig struct {
	// DefaultWidth is the target image width when the request does not
	// specify one.
	DefaultWidth int `yaml:"default_width"`
	MaxWidth     int `yaml:"max_width"`
	TimeoutSecs  int `yaml:"timeout_secs"`
	// PoolSize bounds concurrent renders. Zero disables the pool and
	// renders inline per request.
	PoolSize    int `yaml:"pool_size"`
	JPEGQuality int `yaml:"jpeg_quality"`
}

type LimitsConfig struct {
	MaxPDFBytes int `yaml:"max_pdf_bytes"`
}

type CacheConfig struct {
	RedisHost         string        `yaml:"redis_host"`
	ImageCacheEnabled bool          `yaml:"image_cache_enabled"`
	ImageCacheTTL     time.Duration `yaml:"image_cache_ttl"`
	ImageCacheDB      int           `yaml:"image_cache_db"`
	RateLimitDB       int           `yaml:"rate_limit_db"`
}

type LoggerConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type RateLimiterConfig struct {
	Interval          time.Duration `yaml:"interval"`
	UserLimit         int           `yaml:"user_limit"`
	EnableUserLimiter bool          `yaml:"enable_user_limiter"`
}

type AuthConfig struct {
	Postgres PostgresConfig `yaml:"postgres"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
}

const defaultMaxPDFBytes = 250 * 1024 * 1024

// Load reads the config from CONFIG_PATH, falling back to ./config.yaml.
func Load() Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	return LoadFrom(path)
}

// LoadFrom reads, defaults and validates the config at the given path.
// Invalid configuration is a programming or deployment error, so it panics.
func LoadFrom(path string) Config {
	raw, err := os.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("config: cannot read %s: %v", path, err))
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		panic(fmt.Sprintf("config: cannot parse %s: %v", path, err))
	}

	applyDefaults(&cfg)
	validate(&cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":3000"
	}
	if cfg.Render.DefaultWidth == 0 {
		cfg.Render.DefaultWidth = 800
	}
	if cfg.Render.MaxWidth == 0 {
		cfg.Render.MaxWidth = 4096
	}
	if cfg.Render.TimeoutSecs == 0 {
		cfg.Render.TimeoutSecs = 30
	}
	if cfg.Render.JPEGQuality == 0 {
		cfg.Render.JPEGQuality = 90
	}
	if cfg.Limits.MaxPDFBytes == 0 {
		cfg.Limits.MaxPDFBytes = defaultMaxPDFBytes
	}
	if cfg.Cache.ImageCacheTTL == 0 {
		cfg.Cache.ImageCacheTTL = time.Minute
	}
	if cfg.RateLimiter.Interval == 0 {
		cfg.RateLimiter.Interval = time.Minute
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
}

func validate(cfg *Config) {
	if cfg.Render.DefaultWidth < 16 || cfg.Render.DefaultWidth > cfg.Render.MaxWidth {
		panic(fmt.Sprintf("config: default_width %d out of range", cfg.Render.DefaultWidth))
	}
	if cfg.Render.TimeoutSecs < 0 {
		panic("config: timeout_secs must not be negative")
	}
	if cfg.Render.PoolSize < 0 {
		panic("config: pool_size must not be negative")
	}
	if cfg.Render.JPEGQuality < 1 || cfg.Render.JPEGQuality > 100 {
		panic(fmt.Sprintf("config: jpeg_quality %d out of range", cfg.Render.JPEGQuality))
	}
	if cfg.Limits.MaxPDFBytes <= 0 {
		panic("config: max_pdf_bytes must be positive")
	}
	if cfg.RateLimiter.UserLimit < 0 {
		panic("config: user_limit must not be negative")
	}
	if cfg.Archive.Enabled {
		if cfg.Archive.Endpoint == "" || cfg.Archive.Bucket == "" {
			panic("config: archive enabled but endpoint or bucket missing")
		}
	}
}

// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Upload   UploadConfig
	Limits   LimitsConfig
	Database DatabaseConfig
	Journal  JournalConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadHeaderTimeout bounds how long a client may take to send headers (default: 10s)
	ReadHeaderTimeout time.Duration `env:"SERVER_READ_HEADER_TIMEOUT" default:"10s"`

	// ReadTimeout is the maximum duration for reading the request body.
	// Zero leaves large uploads unbounded (default: 0s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"0s"`

	// WriteTimeout is the maximum duration for writing the response (default: 0s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// UploadConfig holds multipart parsing and staging settings.
type UploadConfig struct {
	// TmpDir is the base directory for staged files (default: $TMPDIR/formstage)
	TmpDir string `env:"UPLOAD_TMPDIR"`

	// MaxConcurrent is the maximum number of bodies parsed at once (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for a parse slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout caps the duration of one upload request (default: 10m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"10m"`

	// Retain keeps staged files after the response; the journal sweeper
	// removes them once they expire (default: false)
	Retain bool `env:"UPLOAD_RETAIN" default:"false"`

	// DefCharset decodes field values without a declared charset (default: utf-8)
	DefCharset string `env:"UPLOAD_DEF_CHARSET" default:"utf-8"`

	// Whitelist replaces the default extension list when set
	Whitelist []string `env:"UPLOAD_WHITELIST"`

	// FileExtensions are added to the default extension list
	FileExtensions []string `env:"UPLOAD_FILE_EXTENSIONS"`
}

// LimitsConfig holds per-request multipart limits. Zero disables a limit.
type LimitsConfig struct {
	FieldNameSize ByteSize `env:"LIMIT_FIELD_NAME_SIZE" default:"100"`
	FieldSize     ByteSize `env:"LIMIT_FIELD_SIZE" default:"100kb"`
	Fields        int      `env:"LIMIT_FIELDS" default:"10"`
	FileSize      ByteSize `env:"LIMIT_FILE_SIZE" default:"10mb"`
	Files         int      `env:"LIMIT_FILES" default:"10"`
	Parts         int      `env:"LIMIT_PARTS" default:"0"`
}

// DatabaseConfig holds the optional journal database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty disables the journal.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// JournalConfig holds retention settings for staged files.
type JournalConfig struct {
	// TTL is how long a retained file is kept (default: 24h)
	TTL time.Duration `env:"JOURNAL_TTL" default:"24h"`

	// SweepInterval is how often expired files are removed (default: 1h)
	SweepInterval time.Duration `env:"JOURNAL_SWEEP_INTERVAL" default:"1h"`

	// BatchSize is the number of files removed per sweep query (default: 500)
	BatchSize int `env:"JOURNAL_BATCH_SIZE" default:"500"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for upload endpoints (default: 20)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey enables X-API-Key checks on upload endpoints (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	// Enabled mounts the metrics endpoint (default: true)
	Enabled bool `env:"METRICS_ENABLED" default:"true"`

	// Path is the metrics endpoint path (default: /metrics)
	Path string `env:"METRICS_PATH" default:"/metrics"`

	// Namespace prefixes every metric name (default: formstage)
	Namespace string `env:"METRICS_NAMESPACE" default:"formstage"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Dir returns the staging directory, defaulting to a formstage directory
// under the OS temp dir.
func (c *UploadConfig) Dir() string {
	if c.TmpDir != "" {
		return c.TmpDir
	}
	return filepath.Join(os.TempDir(), "formstage")
}

// JournalEnabled reports whether a journal database is configured.
func (c *Config) JournalEnabled() bool {
	return c.Database.URL != ""
}

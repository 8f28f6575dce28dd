// Package config provides centralized configuration management for the service.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server  ServerConfig
	Remote  RemoteConfig
	Session SessionConfig
	Import  ImportConfig
	Cache   CacheConfig
	Audit   AuditConfig
	Rate    RateLimitConfig
	Logging LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 2m,
	// large enough for a full import pass to finish and report)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"2m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// RemoteConfig holds settings for the remote POS data service.
type RemoteConfig struct {
	// BaseURL is the root URL of the remote data service (required)
	// Supports both POS_API_URL and API_URL env vars for compatibility
	BaseURL string `env:"POS_API_URL" envAlt:"API_URL" required:"true"`

	// Timeout is the per-request timeout for remote calls (default: 30s)
	Timeout time.Duration `env:"POS_API_TIMEOUT" default:"30s"`

	// RequestsPerSecond caps the outbound request rate (default: 20)
	RequestsPerSecond float64 `env:"POS_API_RPS" default:"20"`

	// Burst is the rate limiter burst size (default: 10)
	Burst int `env:"POS_API_BURST" default:"10"`
}

// SessionConfig holds settings for the local session store.
type SessionConfig struct {
	// File is the path of the persisted session (current user + bearer token)
	File string `env:"SESSION_FILE" default:".pos-session.json"`

	// Token, if set, overrides the token stored in the session file.
	// Useful for headless deployments where no login flow runs.
	Token string `env:"POS_API_TOKEN"`
}

// ImportConfig holds import pass processing settings.
type ImportConfig struct {
	// MaxFileSize is the maximum allowed upload size in bytes (default: 20MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"20971520"`

	// MaxConcurrent is the maximum number of parallel import passes (default: 1;
	// the engine serializes mutations within a pass and the catalog snapshot is
	// only coherent while a single pass runs)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"1"`

	// MaxWaitTime is how long a request waits for a pass slot (default: 30s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration for a single import pass (default: 10m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"10m"`
}

// CacheConfig holds settings for the client-side collection cache.
type CacheConfig struct {
	// TTL is how long fetched collections stay valid (default: 5m)
	TTL time.Duration `env:"CACHE_TTL" default:"5m"`
}

// AuditConfig holds settings for the optional import history store.
type AuditConfig struct {
	// DatabaseURL is the PostgreSQL connection string for import audit history.
	// When empty, audit recording is disabled.
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of pooled connections (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// HistoryLimit is the default page size for history listings (default: 50)
	HistoryLimit int `env:"AUDIT_HISTORY_LIMIT" default:"50"`
}

// RateLimitConfig holds inbound rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ImportLimit is requests per minute for the import endpoint (default: 10)
	ImportLimit int `env:"RATE_LIMIT_IMPORT" default:"10"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}

// Package config provides centralized configuration management for the
// service. It loads configuration from environment variables with sensible
// defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Upload   UploadConfig
	Sync     SyncConfig
	Takealot TakealotConfig
	Rate     RateLimitConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// RedisConfig holds settings for the reconciliation state store.
type RedisConfig struct {
	// Addr is the Redis host:port (default: localhost:6379)
	Addr string `env:"REDIS_ADDR" default:"localhost:6379"`

	// DB is the Redis logical database (default: 0)
	DB int `env:"REDIS_DB" default:"0"`

	// Password is the Redis auth password (optional)
	Password string `env:"REDIS_PASSWORD"`

	// SessionTTL is how long an unconfirmed reconciliation is kept (default: 30m)
	SessionTTL time.Duration `env:"SESSION_TTL" default:"30m"`
}

// UploadConfig holds picking-list upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 10MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"10485760"`

	// MaxConcurrent is the maximum number of parallel reconciliations (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for a reconciliation slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`
}

// SyncConfig holds the order-sync business settings.
type SyncConfig struct {
	// DefaultStockLocation is the stock location ID that availability is
	// scoped to. Zero means global availability, with a warning to the user.
	DefaultStockLocation int64 `env:"DEFAULT_STOCK_LOCATION"`

	// CustomerName is the fixed customer record sales orders are addressed to
	CustomerName string `env:"VENDOR_CUSTOMER_NAME" default:"TakeALot"`

	// OrderBaseURL prefixes the order URL returned to the client (optional)
	OrderBaseURL string `env:"ORDER_BASE_URL"`
}

// TakealotConfig holds the vendor API settings for stock sync.
type TakealotConfig struct {
	// APIKey authenticates against the seller API; stock sync is disabled
	// when empty
	APIKey string `env:"TAKEALOT_API_KEY"`

	// BaseURL is the seller API root (default: production endpoint)
	BaseURL string `env:"TAKEALOT_API_BASE_URL" default:"https://seller-api.takealot.com/v2/"`

	// WarehouseID is the merchant warehouse stock updates apply to
	WarehouseID string `env:"TAKEALOT_WAREHOUSE_ID"`

	// Timeout bounds a single batch call (default: 10s)
	Timeout time.Duration `env:"TAKEALOT_TIMEOUT" default:"10s"`

	// PartialBatch declares whether the API returns per-item results.
	// Leave false until confirmed against the vendor account.
	PartialBatch bool `env:"TAKEALOT_PARTIAL_BATCH" default:"false"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
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
	return c.Host + ":" + strconv.Itoa(c.Port)
}

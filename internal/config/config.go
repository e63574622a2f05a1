package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds configuration for the gateway.
type Config struct {
	HTTPPort         string
	EventLogPath     string
	CoefficientsFile string // optional YAML coefficient table
	ShutdownTimeout  time.Duration

	// JWTSecret enables POST /auth/token and protects /insights when set.
	JWTSecret []byte
	// APIKeyHashes is "id=<argon2id hash>;..." and protects /chat when set.
	APIKeyHashes string

	RateLimitPerMinute int

	Database      DatabaseConfig
	Cache         CacheConfig
	Redis         RedisConfig
	Queue         QueueConfig
	Provider      ProviderConfig
	Budget        BudgetConfig
	RequestLogger RequestLoggerConfig
	LoggingSink   LoggingSinkConfig
}

// DatabaseConfig holds database connection settings. An empty URL disables
// the Postgres usage mirror.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// CacheConfig holds cache settings
type CacheConfig struct {
	APIKeyCacheSize int
	APIKeyCacheTTL  time.Duration
}

// RedisConfig holds Redis connection settings. An empty Address keeps
// queues, rate limits and budgets in process memory.
type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Enabled reports whether a Redis address is configured.
func (c RedisConfig) Enabled() bool {
	return c.Address != ""
}

// QueueConfig holds settings shared by the usage and billing workers
type QueueConfig struct {
	BatchSize    int
	BatchTimeout time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// ProviderConfig holds provider credentials and request settings. A
// provider without an API key stays unconfigured.
type ProviderConfig struct {
	RequestTimeout    time.Duration
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	MistralAPIKey     string
	OpenRouterAPIKey  string
	HuggingFaceAPIKey string
}

// BudgetConfig holds monthly per-caller limits. Zero means unlimited.
type BudgetConfig struct {
	MonthlyCostEUR float64
	MonthlyCarbonG float64
}

// RequestLoggerConfig configures the JSONL access log. An empty template
// disables it.
type RequestLoggerConfig struct {
	FilePathTemplate string
	MaxSize          int64
	MaxFiles         int
	BufferSize       int
	FlushInterval    time.Duration
	MaxBodyBytes     int
}

// LoggingSinkConfig holds configuration for the S3-based usage archive
type LoggingSinkConfig struct {
	Enabled       bool          // Whether to enable S3 archiving
	BufferSize    int           // In-memory queue size
	FlushSize     int           // Flush to S3 after this many records
	FlushInterval time.Duration // Flush to S3 after this duration
	S3Bucket      string        // S3 bucket name
	S3Region      string        // AWS region
	S3Prefix      string        // Prefix for S3 keys (e.g., "usage/")
	S3Endpoint    string        // Custom endpoint, e.g. MinIO
	PodName       string        // Pod identifier for multi-pod deployments
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getEnvInt64(key string, defaultValue int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	intVal, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return defaultValue
	}
	return intVal
}

func getEnvFloat(key string, defaultValue float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getEnvBool(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(strings.ToLower(val))
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getEnvString(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:           getEnvString("HTTP_PORT", "8000"),
		EventLogPath:       getEnvString("EVENT_LOG_PATH", "ecologits-traces.jsonl"),
		CoefficientsFile:   getEnvString("COEFFICIENTS_FILE", ""),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		JWTSecret:          []byte(getEnvString("JWT_SECRET", "")),
		APIKeyHashes:       getEnvString("GATEWAY_API_KEY_HASHES", ""),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 0),
		Database: DatabaseConfig{
			URL:             getEnvString("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),
		},
		Cache: CacheConfig{
			APIKeyCacheSize: getEnvInt("CACHE_API_KEY_SIZE", 1000),
			APIKeyCacheTTL:  getEnvDuration("CACHE_API_KEY_TTL", 5*time.Minute),
		},
		Redis: RedisConfig{
			Address:      getEnvString("REDIS_ADDRESS", ""),
			Password:     getEnvString("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Queue: QueueConfig{
			BatchSize:    getEnvInt("QUEUE_BATCH_SIZE", 100),
			BatchTimeout: getEnvDuration("QUEUE_BATCH_TIMEOUT", 5*time.Second),
			MaxRetries:   getEnvInt("QUEUE_MAX_RETRIES", 3),
			RetryBackoff: getEnvDuration("QUEUE_RETRY_BACKOFF", 1*time.Second),
		},
		Provider: ProviderConfig{
			RequestTimeout:    getEnvDuration("PROVIDER_REQUEST_TIMEOUT", 60*time.Second),
			OpenAIAPIKey:      getEnvString("OPENAI_API_KEY", ""),
			OpenAIBaseURL:     getEnvString("OPENAI_BASE_URL", ""),
			MistralAPIKey:     getEnvString("MISTRAL_API_KEY", ""),
			OpenRouterAPIKey:  getEnvString("OPENROUTER_API_KEY", ""),
			HuggingFaceAPIKey: getEnvString("HUGGINGFACE_API_KEY", ""),
		},
		Budget: BudgetConfig{
			MonthlyCostEUR: getEnvFloat("COST_BUDGET_EUR", 0),
			MonthlyCarbonG: getEnvFloat("CARBON_BUDGET_G", 0),
		},
		RequestLogger: RequestLoggerConfig{
			FilePathTemplate: getEnvString("REQUEST_LOGGER_FILE_PATH_TEMPLATE", ""),
			MaxSize:          getEnvInt64("REQUEST_LOGGER_MAX_SIZE", 10_485_760),             // default 10 MB
			MaxFiles:         getEnvInt("REQUEST_LOGGER_MAX_FILES", 5),                       // default 5
			BufferSize:       getEnvInt("REQUEST_LOGGER_BUFFER_SIZE", 1000),                  // default 1000
			FlushInterval:    getEnvDuration("REQUEST_LOGGER_FLUSH_INTERVAL", 1*time.Second), // default 1 second
			MaxBodyBytes:     getEnvInt("REQUEST_LOGGER_MAX_BODY_BYTES", 4096),
		},
		LoggingSink: LoggingSinkConfig{
			Enabled:       getEnvBool("LOGGING_SINK_ENABLED", false),
			BufferSize:    getEnvInt("LOGGING_SINK_BUFFER_SIZE", 10000),
			FlushSize:     getEnvInt("LOGGING_SINK_FLUSH_SIZE", 1000),
			FlushInterval: getEnvDuration("LOGGING_SINK_FLUSH_INTERVAL", 5*time.Minute),
			S3Bucket:      getEnvString("LOGGING_SINK_S3_BUCKET", ""),
			S3Region:      getEnvString("LOGGING_SINK_S3_REGION", "us-east-1"),
			S3Prefix:      getEnvString("LOGGING_SINK_S3_PREFIX", "usage/"),
			S3Endpoint:    getEnvString("LOGGING_SINK_S3_ENDPOINT", ""),
			PodName:       getEnvString("POD_NAME", "gateway-0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the gateway cannot start with.
func (c *Config) Validate() error {
	if c.EventLogPath == "" {
		return fmt.Errorf("EVENT_LOG_PATH must not be empty")
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative, got %d", c.RateLimitPerMinute)
	}
	if c.Budget.MonthlyCostEUR < 0 || c.Budget.MonthlyCarbonG < 0 {
		return fmt.Errorf("budgets must not be negative")
	}
	if c.LoggingSink.Enabled && c.LoggingSink.S3Bucket == "" {
		return fmt.Errorf("LOGGING_SINK_S3_BUCKET is required when LOGGING_SINK_ENABLED is true")
	}
	if len(c.JWTSecret) > 0 && len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 bytes")
	}
	return nil
}

package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultRepositoryID is the repository scan results are imported into when
// none is configured.
const DefaultRepositoryID = "1"

// Config holds all application configuration.
type Config struct {
	Platform PlatformConfig
	Settle   SettleConfig
	Resolve  ResolveConfig
	Log      LogConfig
	Lock     LockConfig
	Sink     SinkConfig
	Metrics  MetricsConfig
}

// PlatformConfig holds the connection to the scanning platform.
type PlatformConfig struct {
	Server             string
	Username           string
	Password           string
	RepositoryID       string
	Timeout            time.Duration // Per-request timeout; exports get ExportTimeout
	ExportTimeout      time.Duration
	InsecureSkipVerify bool
	RequestsPerSecond  float64 // 0 disables client-side pacing
	Burst              int
	UserAgent          string
}

// SettleConfig holds the eventual-consistency poll budget.
type SettleConfig struct {
	Interval    time.Duration
	MaxInterval time.Duration
	MaxAttempts int
	Timeout     time.Duration
	Exponential bool
}

// ResolveConfig holds name resolution settings.
type ResolveConfig struct {
	Ambiguity string // warn or error
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// LockConfig holds the optional Redis lock used to serialize stages that
// touch the same resource names.
type LockConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
	WaitTimeout   time.Duration
	DialTimeout   time.Duration
	TLSEnabled    bool
	TLSSkipVerify bool
	MaxRetries    int
	MinRetryDelay time.Duration
	MaxRetryDelay time.Duration
}

// Enabled reports whether a lock backend is configured.
func (c *LockConfig) Enabled() bool {
	return c.RedisAddr != ""
}

// SinkConfig holds the optional S3 destination for retrieved reports.
type SinkConfig struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // for S3-compatible storage
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	RoleARN         string
	ExternalID      string
	UsePathStyle    bool
}

// Enabled reports whether a report bucket is configured.
func (c *SinkConfig) Enabled() bool {
	return c.Bucket != ""
}

// MetricsConfig holds metrics output configuration.
type MetricsConfig struct {
	TextfilePath string // node_exporter textfile collector target
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Platform: PlatformConfig{
			Server:             getEnv("SCANCTL_SERVER", ""),
			Username:           getEnv("SCANCTL_USERNAME", ""),
			Password:           getEnv("SCANCTL_PASSWORD", ""),
			RepositoryID:       getEnv("SCANCTL_REPOSITORY_ID", DefaultRepositoryID),
			Timeout:            getEnvDuration("SCANCTL_TIMEOUT", 60*time.Second),
			ExportTimeout:      getEnvDuration("SCANCTL_EXPORT_TIMEOUT", 10*time.Minute),
			InsecureSkipVerify: getEnvBool("SCANCTL_INSECURE_SKIP_VERIFY", false),
			RequestsPerSecond:  getEnvFloat("SCANCTL_REQUESTS_PER_SECOND", 5),
			Burst:              getEnvInt("SCANCTL_REQUEST_BURST", 5),
			UserAgent:          getEnv("SCANCTL_USER_AGENT", "scanctl"),
		},
		Settle: SettleConfig{
			Interval:    getEnvDuration("SCANCTL_SETTLE_INTERVAL", 2*time.Second),
			MaxInterval: getEnvDuration("SCANCTL_SETTLE_MAX_INTERVAL", 15*time.Second),
			MaxAttempts: getEnvInt("SCANCTL_SETTLE_MAX_ATTEMPTS", 30),
			Timeout:     getEnvDuration("SCANCTL_SETTLE_TIMEOUT", 2*time.Minute),
			Exponential: getEnvBool("SCANCTL_SETTLE_EXPONENTIAL", false),
		},
		Resolve: ResolveConfig{
			Ambiguity: getEnv("SCANCTL_AMBIGUITY", "warn"),
		},
		Log: LogConfig{
			Level:  getEnv("SCANCTL_LOG_LEVEL", "info"),
			Format: getEnv("SCANCTL_LOG_FORMAT", "text"),
		},
		Lock: LockConfig{
			RedisAddr:     getEnv("SCANCTL_LOCK_REDIS_ADDR", ""),
			RedisPassword: getEnv("SCANCTL_LOCK_REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("SCANCTL_LOCK_REDIS_DB", 0),
			TTL:           getEnvDuration("SCANCTL_LOCK_TTL", 20*time.Minute),
			WaitTimeout:   getEnvDuration("SCANCTL_LOCK_WAIT", 2*time.Minute),
			DialTimeout:   getEnvDuration("SCANCTL_LOCK_DIAL_TIMEOUT", 5*time.Second),
			TLSEnabled:    getEnvBool("SCANCTL_LOCK_REDIS_TLS", false),
			TLSSkipVerify: getEnvBool("SCANCTL_LOCK_REDIS_TLS_SKIP_VERIFY", false),
			MaxRetries:    getEnvInt("SCANCTL_LOCK_REDIS_MAX_RETRIES", 2),
			MinRetryDelay: getEnvDuration("SCANCTL_LOCK_REDIS_MIN_RETRY_DELAY", 100*time.Millisecond),
			MaxRetryDelay: getEnvDuration("SCANCTL_LOCK_REDIS_MAX_RETRY_DELAY", 2*time.Second),
		},
		Sink: SinkConfig{
			Bucket:          getEnv("SCANCTL_S3_BUCKET", ""),
			Prefix:          getEnv("SCANCTL_S3_PREFIX", ""),
			Region:          getEnv("SCANCTL_S3_REGION", "us-east-1"),
			Endpoint:        getEnv("SCANCTL_S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("SCANCTL_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("SCANCTL_S3_SECRET_ACCESS_KEY", ""),
			SessionToken:    getEnv("SCANCTL_S3_SESSION_TOKEN", ""),
			RoleARN:         getEnv("SCANCTL_S3_ROLE_ARN", ""),
			ExternalID:      getEnv("SCANCTL_S3_EXTERNAL_ID", ""),
			UsePathStyle:    getEnvBool("SCANCTL_S3_USE_PATH_STYLE", false),
		},
		Metrics: MetricsConfig{
			TextfilePath: getEnv("SCANCTL_METRICS_FILE", ""),
		},
	}

	return cfg, nil
}

// Validate validates the configuration. Connection parameters are checked
// separately by ValidateConnection because flags may still fill them in.
func (c *Config) Validate() error {
	if err := c.validateLog(); err != nil {
		return err
	}
	if err := c.validateSettle(); err != nil {
		return err
	}
	if err := c.validatePlatform(); err != nil {
		return err
	}
	switch strings.ToLower(c.Resolve.Ambiguity) {
	case "", "warn", "error":
	default:
		return fmt.Errorf("invalid SCANCTL_AMBIGUITY: %s (must be warn or error)", c.Resolve.Ambiguity)
	}
	if c.Lock.Enabled() && c.Lock.TTL <= 0 {
		return fmt.Errorf("SCANCTL_LOCK_TTL must be positive, got %v", c.Lock.TTL)
	}
	// A fetch holds its lease across the export and two settle polls.
	if hold := c.Platform.ExportTimeout + 2*c.Settle.Timeout; c.Lock.Enabled() && c.Lock.TTL <= hold {
		return fmt.Errorf("SCANCTL_LOCK_TTL must exceed SCANCTL_EXPORT_TIMEOUT plus twice SCANCTL_SETTLE_TIMEOUT (%v), got %v", hold, c.Lock.TTL)
	}
	if c.Sink.AccessKeyID != "" && c.Sink.SecretAccessKey == "" {
		return fmt.Errorf("SCANCTL_S3_SECRET_ACCESS_KEY is required when SCANCTL_S3_ACCESS_KEY_ID is set")
	}
	return nil
}

// ValidateConnection checks that the platform can be addressed and logged into.
func (c *Config) ValidateConnection() error {
	if c.Platform.Server == "" {
		return fmt.Errorf("server is required")
	}
	u, err := url.Parse(c.Platform.ServerURL())
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid server: %s", c.Platform.Server)
	}
	if c.Platform.Username == "" {
		return fmt.Errorf("username is required")
	}
	if c.Platform.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

func (c *Config) validatePlatform() error {
	if c.Platform.RepositoryID == "" {
		return fmt.Errorf("SCANCTL_REPOSITORY_ID must not be empty")
	}
	if c.Platform.Timeout <= 0 {
		return fmt.Errorf("SCANCTL_TIMEOUT must be positive, got %v", c.Platform.Timeout)
	}
	if c.Platform.RequestsPerSecond < 0 {
		return fmt.Errorf("SCANCTL_REQUESTS_PER_SECOND must be non-negative, got %f", c.Platform.RequestsPerSecond)
	}
	return nil
}

func (c *Config) validateSettle() error {
	if c.Settle.Interval <= 0 {
		return fmt.Errorf("SCANCTL_SETTLE_INTERVAL must be positive, got %v", c.Settle.Interval)
	}
	if c.Settle.Timeout <= 0 {
		return fmt.Errorf("SCANCTL_SETTLE_TIMEOUT must be positive, got %v", c.Settle.Timeout)
	}
	if c.Settle.MaxAttempts < 0 {
		return fmt.Errorf("SCANCTL_SETTLE_MAX_ATTEMPTS must be non-negative, got %d", c.Settle.MaxAttempts)
	}
	return nil
}

// validateLog validates logging configuration.
func (c *Config) validateLog() error {
	validLevels := map[string]bool{
		"debug": true, "DEBUG": true,
		"info": true, "INFO": true,
		"warn": true, "WARN": true,
		"error": true, "ERROR": true,
	}
	if c.Log.Level != "" && !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid SCANCTL_LOG_LEVEL: %s (must be debug, info, warn, or error)", c.Log.Level)
	}

	validFormats := map[string]bool{
		"json": true, "JSON": true,
		"text": true, "TEXT": true,
		"": true,
	}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid SCANCTL_LOG_FORMAT: %s (must be json or text)", c.Log.Format)
	}
	return nil
}

// ServerURL returns the platform base URL. A bare host gets the https scheme.
func (c *PlatformConfig) ServerURL() string {
	s := strings.TrimRight(c.Server, "/")
	if s != "" && !strings.Contains(s, "://") {
		s = "https://" + s
	}
	return s
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

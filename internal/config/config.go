package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	AI           AIConfig
	RateLimit    RateLimitConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Kafka        KafkaConfig
	Sweep        SweepConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AIConfig configures the ticket classifier. An empty APIKey disables it.
type AIConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
	MaxRetries     int
}

// RateLimitConfig sizes the ticket creation window. The general API limiter
// uses a window six times as long.
type RateLimitConfig struct {
	WindowMS           int
	MaxRequests        int
	GeneralMaxRequests int
}

// AuthConfig defines staff authentication parameters.
type AuthConfig struct {
	Enabled               bool
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// NotificationConfig holds outbound notification endpoints.
type NotificationConfig struct {
	WebhookURL string
}

// KafkaConfig configures the optional event sink. No brokers disables it.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// SweepConfig schedules re-classification of tickets stuck in Processing.
type SweepConfig struct {
	Schedule      string
	MinAgeSeconds int
	BatchSize     int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-intake"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", getEnv("PORT", "5000")),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 60),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 10),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		AI: AIConfig{
			APIKey:         os.Getenv("OPENAI_API_KEY"),
			BaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:          getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
			TimeoutSeconds: getEnvAsInt("AI_TIMEOUT_SECONDS", 30),
			MaxRetries:     getEnvAsInt("AI_MAX_RETRIES", 0),
		},
		RateLimit: RateLimitConfig{
			WindowMS:           getEnvAsInt("RATE_LIMIT_WINDOW_MS", 60000),
			MaxRequests:        getEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 10),
			GeneralMaxRequests: getEnvAsInt("RATE_LIMIT_GENERAL_MAX_REQUESTS", 100),
		},
		Auth: AuthConfig{
			Enabled:               getEnvAsBool("AUTH_ENABLED", false),
			JWTSecret:             os.Getenv("AUTH_JWT_SECRET"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 480),
		},
		Notification: NotificationConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		Kafka: KafkaConfig{
			Brokers:  getEnvAsList("KAFKA_BROKERS"),
			Topic:    getEnv("KAFKA_TOPIC", "ticket-events"),
			ClientID: getEnv("KAFKA_CLIENT_ID", "ticket-intake"),
		},
		Sweep: SweepConfig{
			Schedule:      getEnv("CLASSIFY_SWEEP_SCHEDULE", ""),
			MinAgeSeconds: getEnvAsInt("CLASSIFY_SWEEP_MIN_AGE_SECONDS", 120),
			BatchSize:     getEnvAsInt("CLASSIFY_SWEEP_BATCH_SIZE", 50),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail at request time.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.App.Port) == "" {
		errs = append(errs, errors.New("APP_PORT must not be empty"))
	}
	if c.RateLimit.WindowMS <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW_MS must be positive"))
	}
	if c.RateLimit.MaxRequests <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_MAX_REQUESTS must be positive"))
	}
	if c.RateLimit.GeneralMaxRequests <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_GENERAL_MAX_REQUESTS must be positive"))
	}
	if c.AI.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("AI_TIMEOUT_SECONDS must be positive"))
	}
	if c.AI.MaxRetries < 0 {
		errs = append(errs, errors.New("AI_MAX_RETRIES must not be negative"))
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required when AUTH_ENABLED is set"))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// IsProduction reports whether error details should be redacted.
func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(a.Env, "production")
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Enabled reports whether a classifier API key is configured.
func (a AIConfig) Enabled() bool {
	return strings.TrimSpace(a.APIKey) != ""
}

// Timeout returns the per-call classifier timeout.
func (a AIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// Window returns the ticket creation window.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowMS) * time.Millisecond
}

// GeneralWindow returns the window used by the general API limiter.
func (r RateLimitConfig) GeneralWindow() time.Duration {
	return 6 * r.Window()
}

// MinAge returns how long a ticket must sit in Processing before it is swept.
func (s SweepConfig) MinAge() time.Duration {
	return time.Duration(s.MinAgeSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

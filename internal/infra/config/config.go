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

const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"

	PaymentsDemo = "demo"
	PaymentsHTTP = "http"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                  string
	LogLevel             string
	HTTPAddr             string
	PublicURL            string
	AdminToken           string
	StorageDriver        string
	MongoURI             string
	MongoDB              string
	PostgresDSN          string
	RedisAddr            string
	KafkaBrokers         []string
	KafkaTopicPrefix     string
	KafkaPaymentsTopic   string
	KafkaGroupID         string
	HoldTTL              time.Duration
	SweepInterval        time.Duration
	AllowSameDayTurnover bool
	PlatformFeeBPS       int64
	PlatformFeeWaived    bool
	Currency             string
	PaymentsMode         string
	PaymentsURL          string
	PaymentsToken        string
	WebhookSecret        string
	IdempotencyTTL       time.Duration
	OutboxPollInterval   time.Duration
	RetryBackoff         []time.Duration
	SeedDemoData         bool
}

// Load reads an optional .env file (DOTENV_PATH, default ".env") and then
// parses configuration from the environment. Real env vars win over the file.
func Load() (Config, error) {
	path := getEnv("DOTENV_PATH", ".env")
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", path, err)
	}

	cfg := Config{
		Env:                getEnv("APP_ENV", "dev"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		PublicURL:          getEnv("PUBLIC_URL", "http://localhost:8080"),
		AdminToken:         os.Getenv("ADMIN_TOKEN"),
		StorageDriver:      strings.ToLower(getEnv("STORAGE_DRIVER", DriverMemory)),
		MongoURI:           os.Getenv("MONGO_URI"),
		MongoDB:            getEnv("MONGO_DB", "doorly"),
		PostgresDSN:        os.Getenv("POSTGRES_DSN"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		KafkaTopicPrefix:   getEnv("KAFKA_TOPIC_PREFIX", "doorly."),
		KafkaPaymentsTopic: getEnv("KAFKA_PAYMENTS_TOPIC", "payments.events.v1"),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "doorly-bookings"),
		Currency:           strings.ToUpper(getEnv("CURRENCY", "ARS")),
		PaymentsMode:       strings.ToLower(getEnv("PAYMENTS_MODE", PaymentsDemo)),
		PaymentsURL:        os.Getenv("PAYMENTS_URL"),
		PaymentsToken:      os.Getenv("PAYMENTS_TOKEN"),
		WebhookSecret:      os.Getenv("PAYMENTS_WEBHOOK_SECRET"),
	}
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	if cfg.HoldTTL, err = parseDurationEnv("HOLD_TTL", 15*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.SweepInterval, err = parseDurationEnv("SWEEP_INTERVAL", time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = parseDurationEnv("IDEMP_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.AllowSameDayTurnover, err = parseBoolEnv("ALLOW_SAME_DAY_TURNOVER", false); err != nil {
		return Config{}, err
	}
	if cfg.PlatformFeeWaived, err = parseBoolEnv("PLATFORM_FEE_WAIVED", true); err != nil {
		return Config{}, err
	}
	if cfg.SeedDemoData, err = parseBoolEnv("SEED_DEMO_DATA", cfg.StorageDriver == DriverMemory); err != nil {
		return Config{}, err
	}
	if cfg.PlatformFeeBPS, err = parseIntEnv("PLATFORM_FEE_BPS", 1000); err != nil {
		return Config{}, err
	}

	retryStr := getEnv("RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StorageDriver {
	case DriverMemory:
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for the %s driver", DriverMongo)
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the %s driver", DriverPostgres)
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	switch c.PaymentsMode {
	case PaymentsDemo:
	case PaymentsHTTP:
		if c.PaymentsURL == "" {
			return fmt.Errorf("PAYMENTS_URL is required when PAYMENTS_MODE=%s", PaymentsHTTP)
		}
		if c.WebhookSecret == "" {
			return fmt.Errorf("PAYMENTS_WEBHOOK_SECRET is required when PAYMENTS_MODE=%s", PaymentsHTTP)
		}
	default:
		return fmt.Errorf("unknown PAYMENTS_MODE %q", c.PaymentsMode)
	}
	if c.HoldTTL <= 0 {
		return fmt.Errorf("HOLD_TTL must be positive")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive")
	}
	if c.PlatformFeeBPS < 0 || c.PlatformFeeBPS > 10000 {
		return fmt.Errorf("PLATFORM_FEE_BPS must be within 0..10000")
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("CURRENCY must be an ISO 4217 code")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int64) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return n, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("DOTENV_PATH", filepath.Join(t.TempDir(), "missing.env"))
	for _, key := range []string{
		"APP_ENV", "STORAGE_DRIVER", "MONGO_URI", "POSTGRES_DSN", "PAYMENTS_MODE", "PAYMENTS_URL",
		"PAYMENTS_WEBHOOK_SECRET",
		"HOLD_TTL", "SWEEP_INTERVAL", "PLATFORM_FEE_BPS", "PLATFORM_FEE_WAIVED", "CURRENCY",
		"KAFKA_BROKERS", "ALLOW_SAME_DAY_TURNOVER", "RETRY_BACKOFF", "SEED_DEMO_DATA",
	} {
		unset(t, key)
	}
}

// unset clears key for the test. Empty values are not enough: godotenv never
// overrides a variable that is present.
func unset(t *testing.T, key string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	require.NoError(t, os.Unsetenv(key))
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, 15*time.Minute, cfg.HoldTTL)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, int64(1000), cfg.PlatformFeeBPS)
	assert.True(t, cfg.PlatformFeeWaived)
	assert.False(t, cfg.AllowSameDayTurnover)
	assert.True(t, cfg.SeedDemoData)
	assert.Equal(t, "ARS", cfg.Currency)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadReadsDotEnvWithoutOverridingEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HOLD_TTL=5m\nKAFKA_BROKERS=a:9092, b:9092\nCURRENCY=usd\n"), 0o600))
	t.Setenv("DOTENV_PATH", path)
	t.Setenv("CURRENCY", "EUR")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.HoldTTL)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "EUR", cfg.Currency)
}

func TestLoadValidatesDriverRequirements(t *testing.T) {
	isolate(t)
	t.Setenv("STORAGE_DRIVER", "postgres")

	_, err := Load()
	require.ErrorContains(t, err, "POSTGRES_DSN")

	t.Setenv("STORAGE_DRIVER", "mongo")
	_, err = Load()
	require.ErrorContains(t, err, "MONGO_URI")

	t.Setenv("STORAGE_DRIVER", "sqlite")
	_, err = Load()
	require.ErrorContains(t, err, "unknown STORAGE_DRIVER")
}

func TestLoadRequiresWebhookSecretForHTTPPayments(t *testing.T) {
	isolate(t)
	t.Setenv("PAYMENTS_MODE", "http")
	t.Setenv("PAYMENTS_URL", "https://gateway.example")

	_, err := Load()
	require.ErrorContains(t, err, "PAYMENTS_WEBHOOK_SECRET")

	t.Setenv("PAYMENTS_WEBHOOK_SECRET", "s3cret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.WebhookSecret)
}

func TestLoadRejectsBadValues(t *testing.T) {
	isolate(t)
	t.Setenv("HOLD_TTL", "soon")
	_, err := Load()
	require.ErrorContains(t, err, "HOLD_TTL")

	unset(t, "HOLD_TTL")
	t.Setenv("PAYMENTS_MODE", "http")
	_, err = Load()
	require.ErrorContains(t, err, "PAYMENTS_URL")

	unset(t, "PAYMENTS_MODE")
	t.Setenv("PLATFORM_FEE_BPS", "20000")
	_, err = Load()
	require.ErrorContains(t, err, "PLATFORM_FEE_BPS")
}

// Package config loads Harrier configuration from defaults, an optional YAML
// file, a .env file and HARRIER_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/engine"
)

// Environment variables.
const (
	EnvConfigFile = "HARRIER_CONFIG"
	EnvProfile    = "HARRIER_PROFILE"
)

// Load builds the configuration. path may be empty, in which case
// HARRIER_CONFIG is consulted.
func Load(path string) (*domain.Config, error) {
	// Missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	cfg := domain.DefaultConfig()
	if os.Getenv(EnvProfile) == "cluster" {
		cfg = domain.ClusterConfig()
	}

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile overlays a YAML file onto cfg. ${VAR} references are expanded.
func loadFile(path string, cfg *domain.Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(raw))
	expanded = strings.ReplaceAll(expanded, "\r\n", "\n")

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides individual settings from HARRIER_* variables.
func applyEnv(cfg *domain.Config) error {
	var errs []error

	setString(&cfg.Server.Host, "HARRIER_HOST")
	errs = append(errs, setInt(&cfg.Server.Port, "HARRIER_PORT"))
	errs = append(errs, setInt(&cfg.Server.SubmitRateLimit, "HARRIER_SUBMIT_RATE_LIMIT"))

	setString(&cfg.Repository.Driver, "HARRIER_DB_DRIVER")
	setString(&cfg.Repository.SQLitePath, "HARRIER_SQLITE_PATH")
	setString(&cfg.Repository.PostgresHost, "HARRIER_POSTGRES_HOST")
	errs = append(errs, setInt(&cfg.Repository.PostgresPort, "HARRIER_POSTGRES_PORT"))
	setString(&cfg.Repository.PostgresUser, "HARRIER_POSTGRES_USER")
	setString(&cfg.Repository.PostgresPassword, "HARRIER_POSTGRES_PASSWORD")
	setString(&cfg.Repository.PostgresDB, "HARRIER_POSTGRES_DB")
	setString(&cfg.Repository.PostgresSSLMode, "HARRIER_POSTGRES_SSLMODE")

	setString(&cfg.Cache.Type, "HARRIER_CACHE")
	setString(&cfg.Cache.RedisAddr, "HARRIER_REDIS_ADDR")
	setString(&cfg.Cache.RedisPassword, "HARRIER_REDIS_PASSWORD")

	setString(&cfg.EventBus.Type, "HARRIER_BUS")
	setString(&cfg.EventBus.NATSUrl, "HARRIER_NATS_URL")
	setString(&cfg.EventBus.NATSToken, "HARRIER_NATS_TOKEN")

	setString(&cfg.Extraction.Endpoint, "HARRIER_EXTRACTION_URL")
	setString(&cfg.Extraction.APIKey, "HARRIER_EXTRACTION_API_KEY")
	errs = append(errs, setInt(&cfg.Extraction.MaxRetries, "HARRIER_EXTRACTION_RETRIES"))
	errs = append(errs, setDuration(&cfg.Extraction.Timeout, "HARRIER_EXTRACTION_TIMEOUT"))

	errs = append(errs, setInt(&cfg.Scoring.BatchWorkers, "HARRIER_BATCH_WORKERS"))
	errs = append(errs, setDuration(&cfg.Scheduler.Retention, "HARRIER_RETENTION"))

	setString(&cfg.Logging.Level, "HARRIER_LOG_LEVEL")
	if os.Getenv("HARRIER_DEBUG") == "true" {
		cfg.Logging.Level = "debug"
	}
	errs = append(errs, setBool(&cfg.Tracing.Enabled, "HARRIER_TRACING"))

	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: invalid integer %q", key, v)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q", key, v)
	}
	*dst = d
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks struct tags plus the cross-field constraints tags cannot
// express.
func Validate(cfg *domain.Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := engine.NewThresholds(cfg.Scoring.FraudTiers, domain.FraudTierOrder()...); err != nil {
		return fmt.Errorf("invalid configuration: scoring.fraudTiers: %w", err)
	}
	if _, err := engine.NewThresholds(cfg.Scoring.UnderwritingTiers, domain.UnderwritingTierOrder()...); err != nil {
		return fmt.Errorf("invalid configuration: scoring.underwritingTiers: %w", err)
	}
	if cfg.Repository.Driver == "postgres" && cfg.Repository.PostgresHost == "" {
		return fmt.Errorf("invalid configuration: repository.postgresHost is required for postgres")
	}
	if cfg.Cache.Type == "redis" && cfg.Cache.RedisAddr == "" {
		return fmt.Errorf("invalid configuration: cache.redisAddr is required for redis")
	}
	if cfg.EventBus.Type == "nats" && cfg.EventBus.NATSUrl == "" {
		return fmt.Errorf("invalid configuration: eventBus.natsUrl is required for nats")
	}
	return nil
}

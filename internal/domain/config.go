package domain

import "time"

// Config holds the complete Harrier configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`

	// Scoring thresholds and batch sizing
	Scoring ScoringConfig `yaml:"scoring"`

	// Document intake
	Upload     UploadConfig     `yaml:"upload"`
	Extraction ExtractionConfig `yaml:"extraction"`

	// Background work
	Scheduler SchedulerConfig `yaml:"scheduler"`
	History   HistoryConfig   `yaml:"history"`

	// Component configurations
	Repository RepositoryConfig `yaml:"repository"`
	Cache      CacheConfig      `yaml:"cache"`
	EventBus   EventBusConfig   `yaml:"eventBus"`

	// Observability
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout  int      `yaml:"readTimeout"`  // seconds
	WriteTimeout int      `yaml:"writeTimeout"` // seconds
	CORSOrigins  []string `yaml:"corsOrigins"`

	// SubmitRateLimit caps async submissions per tenant per minute. Zero
	// disables the limit.
	SubmitRateLimit int `yaml:"submitRateLimit" validate:"min=0"`
}

// TierBand maps scores at or above Lower to Tier, up to the next band.
type TierBand struct {
	Tier  string `yaml:"tier" validate:"required"`
	Lower int    `yaml:"lower" validate:"min=0,max=100"`
}

// ScoringConfig holds tier thresholds for both engines.
type ScoringConfig struct {
	FraudTiers        []TierBand `yaml:"fraudTiers" validate:"required,min=1,dive"`
	UnderwritingTiers []TierBand `yaml:"underwritingTiers" validate:"required,min=1,dive"`

	// BatchWorkers bounds concurrent scoring inside one batch.
	BatchWorkers int `yaml:"batchWorkers" validate:"min=1"`

	// MaxBatchSize rejects larger batch requests.
	MaxBatchSize int `yaml:"maxBatchSize" validate:"min=1"`
}

// UploadConfig limits what the document endpoint accepts.
type UploadConfig struct {
	MaxBytes     int64    `yaml:"maxBytes" validate:"min=1"`
	AllowedTypes []string `yaml:"allowedTypes" validate:"required,min=1"`
}

// ExtractionConfig points at the external extraction service.
type ExtractionConfig struct {
	// Endpoint is empty when extraction is disabled.
	Endpoint   string        `yaml:"endpoint" validate:"omitempty,url"`
	APIKey     string        `yaml:"apiKey"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"maxRetries" validate:"min=0,max=10"`
	RetryDelay time.Duration `yaml:"retryDelay"`
}

// SchedulerConfig holds cron specs for periodic jobs. An empty spec
// disables the job.
type SchedulerConfig struct {
	RuleReloadSpec string `yaml:"ruleReloadSpec"`
	PruneSpec      string `yaml:"pruneSpec"`

	// Retention is how long assessment records are kept.
	Retention time.Duration `yaml:"retention"`
}

// HistoryConfig controls claim history enrichment.
type HistoryConfig struct {
	Enabled bool          `yaml:"enabled"`
	Window  time.Duration `yaml:"window"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"serviceName"`
}

// FraudTierOrder lists the fraud risk levels from lowest to highest.
func FraudTierOrder() []string {
	return []string{RiskLow, RiskMedium, RiskHigh}
}

// UnderwritingTierOrder lists the underwriting tiers from best to worst.
func UnderwritingTierOrder() []string {
	return []string{TierPreferred, TierStandard, TierSubstandard, TierDecline}
}

// DefaultFraudTiers are the fraud risk bands.
func DefaultFraudTiers() []TierBand {
	return []TierBand{
		{Tier: RiskLow, Lower: 0},
		{Tier: RiskMedium, Lower: 30},
		{Tier: RiskHigh, Lower: 60},
	}
}

// DefaultUnderwritingTiers are the underwriting bands.
func DefaultUnderwritingTiers() []TierBand {
	return []TierBand{
		{Tier: TierPreferred, Lower: 0},
		{Tier: TierStandard, Lower: 25},
		{Tier: TierSubstandard, Lower: 50},
		{Tier: TierDecline, Lower: 70},
	}
}

// DefaultConfig returns a single-node configuration: SQLite, in-process
// cache and channel bus.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
			CORSOrigins:  []string{"*"},

			SubmitRateLimit: 600,
		},
		Scoring: ScoringConfig{
			FraudTiers:        DefaultFraudTiers(),
			UnderwritingTiers: DefaultUnderwritingTiers(),
			BatchWorkers:      8,
			MaxBatchSize:      5000,
		},
		Upload: UploadConfig{
			MaxBytes:     10 << 20,
			AllowedTypes: []string{"application/pdf", "image/png", "image/jpeg"},
		},
		Extraction: ExtractionConfig{
			Timeout:    60 * time.Second,
			MaxRetries: 2,
			RetryDelay: time.Second,
		},
		Scheduler: SchedulerConfig{
			RuleReloadSpec: "0 */5 * * * *",
			PruneSpec:      "0 0 3 * * *",
			Retention:      90 * 24 * time.Hour,
		},
		History: HistoryConfig{
			Enabled: true,
			Window:  365 * 24 * time.Hour,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./harrier.db",
		},
		Cache: CacheConfig{
			Type:          "memory",
			LocalMaxSize:  10000,
			LocalTTL:      5 * time.Minute,
			AssessmentTTL: time.Hour,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "harrier",
		},
	}
}

// ClusterConfig returns a multi-node configuration: PostgreSQL, Redis
// behind the local LRU and NATS.
func ClusterConfig() *Config {
	cfg := DefaultConfig()
	cfg.Repository = RepositoryConfig{
		Driver:          "postgres",
		PostgresHost:    "localhost",
		PostgresPort:    5432,
		PostgresDB:      "harrier",
		PostgresSSLMode: "disable",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
		LocalTTL:       time.Minute,
		AssessmentTTL:  time.Hour,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}

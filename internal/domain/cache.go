package domain

import (
	"context"
	"time"
)

// Cache stores recently produced assessments.
// An in-process LRU serves a single node; Redis (optionally fronted by the
// LRU) serves a cluster. All methods require tenantID.
type Cache interface {
	// Get returns nil, nil on a miss.
	Get(ctx context.Context, tenantID string, key string) ([]byte, error)
	Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, tenantID string, key string) error

	// IncrementCounter atomically increments a windowed counter.
	IncrementCounter(ctx context.Context, tenantID string, key string, window time.Duration) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// CacheConfig configures the cache.
type CacheConfig struct {
	// Type is "memory" or "redis".
	Type string `yaml:"type" validate:"oneof=memory redis"`

	LocalMaxSize int           `yaml:"localMaxSize"`
	LocalTTL     time.Duration `yaml:"localTTL"`

	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`

	// EnableTwoPhase checks the local LRU before Redis.
	EnableTwoPhase bool `yaml:"enableTwoPhase"`

	// AssessmentTTL is how long scored assessments stay cached.
	AssessmentTTL time.Duration `yaml:"assessmentTTL"`
}

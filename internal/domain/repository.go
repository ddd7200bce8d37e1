// Package domain defines the core types and interfaces for Harrier.
package domain

import (
	"context"
	"time"
)

// Repository persists definitions, documents and assessment records.
// All methods require tenantID for tenant isolation.
type Repository interface {
	// Field definitions
	SaveFieldDefinition(ctx context.Context, tenantID string, field *FieldDefinition) error
	ListFieldDefinitions(ctx context.Context, tenantID string) ([]*FieldDefinition, error)
	DeleteFieldDefinition(ctx context.Context, tenantID string, fieldID string) error

	// Validation rules
	SaveValidationRule(ctx context.Context, tenantID string, rule *ValidationRule) error
	GetValidationRule(ctx context.Context, tenantID string, ruleID string) (*ValidationRule, error)
	ListValidationRules(ctx context.Context, tenantID string) ([]*ValidationRule, error)
	DeleteValidationRule(ctx context.Context, tenantID string, ruleID string) error
	ListRuleTenants(ctx context.Context) ([]string, error)

	// Documents
	SaveDocument(ctx context.Context, tenantID string, doc *Document) error
	GetDocument(ctx context.Context, tenantID string, docID string) (*Document, error)

	// Assessments
	SaveAssessment(ctx context.Context, tenantID string, rec *AssessmentRecord) error
	GetAssessment(ctx context.Context, tenantID string, id string) (*AssessmentRecord, error)
	CountAssessmentsBySubject(ctx context.Context, tenantID string, q SubjectQuery) (int64, error)
	PruneAssessments(ctx context.Context, before time.Time) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryConfig configures the store.
type RepositoryConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver" validate:"oneof=sqlite postgres"`

	SQLitePath string `yaml:"sqlitePath"`

	PostgresHost     string `yaml:"postgresHost"`
	PostgresPort     int    `yaml:"postgresPort"`
	PostgresUser     string `yaml:"postgresUser"`
	PostgresPassword string `yaml:"postgresPassword"`
	PostgresDB       string `yaml:"postgresDB"`
	PostgresSSLMode  string `yaml:"postgresSSLMode"`

	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

package repository

// Schema definitions for the Harrier store.
// Compatible with both SQLite and PostgreSQL; JSON documents live in TEXT
// columns.

const schemaFieldDefinitions = `
CREATE TABLE IF NOT EXISTS field_definitions (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    label TEXT NOT NULL,
    type TEXT NOT NULL,
    required INTEGER NOT NULL DEFAULT 0,
    description TEXT,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id)
);

CREATE INDEX IF NOT EXISTS idx_field_definitions_tenant ON field_definitions(tenant_id);
`

const schemaValidationRules = `
CREATE TABLE IF NOT EXISTS validation_rules (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    conditions TEXT NOT NULL,
    logic TEXT NOT NULL,
    action TEXT NOT NULL,
    message TEXT,
    expression TEXT,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id)
);

CREATE INDEX IF NOT EXISTS idx_validation_rules_tenant ON validation_rules(tenant_id);
`

const schemaDocuments = `
CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    filename TEXT NOT NULL,
    content_type TEXT NOT NULL,
    size INTEGER NOT NULL,
    fields TEXT NOT NULL,
    verdict TEXT,
    uploaded_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_tenant ON documents(tenant_id);
`

// schemaAssessments stores scored assessments of both kinds. payload holds
// the full assessment JSON; the other columns support lookups and pruning.
// source_id is the scored claim or application ID, empty when the caller
// sent none. evaluated_at is unix milliseconds so range scans compare numerically on
// both drivers.
const schemaAssessments = `
CREATE TABLE IF NOT EXISTS assessments (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    subject TEXT NOT NULL,
    source_id TEXT NOT NULL DEFAULT '',
    tier TEXT NOT NULL,
    score INTEGER NOT NULL,
    evaluated_at BIGINT NOT NULL,
    payload TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assessments_tenant ON assessments(tenant_id);
CREATE INDEX IF NOT EXISTS idx_assessments_subject ON assessments(tenant_id, kind, subject, evaluated_at);
CREATE INDEX IF NOT EXISTS idx_assessments_evaluated ON assessments(evaluated_at);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaFieldDefinitions,
		schemaValidationRules,
		schemaDocuments,
		schemaAssessments,
	}
}

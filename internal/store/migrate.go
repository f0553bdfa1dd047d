package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaSQL is the full database schema. Every statement is idempotent
// so Migrate can run on every startup.
const schemaSQL = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS ontology_entities (
    id          TEXT NOT NULL,
    type        TEXT NOT NULL,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    synonyms    TEXT[] NOT NULL DEFAULT '{}',
    xrefs       TEXT[] NOT NULL DEFAULT '{}',
    iri         TEXT NOT NULL DEFAULT '',
    embedding   vector(1536),
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (id, type)
);

CREATE INDEX IF NOT EXISTS idx_ontology_entities_type
    ON ontology_entities (type);

CREATE INDEX IF NOT EXISTS idx_ontology_entities_embedding
    ON ontology_entities USING hnsw (embedding vector_cosine_ops);

CREATE TABLE IF NOT EXISTS mappings (
    id               BIGSERIAL PRIMARY KEY,
    run_id           TEXT NOT NULL,
    column_name      TEXT NOT NULL,
    mention          TEXT NOT NULL,
    entity_id        TEXT NOT NULL,
    entity_name      TEXT NOT NULL,
    types            TEXT[] NOT NULL DEFAULT '{}',
    score            DOUBLE PRECISION NOT NULL,
    normalised_score DOUBLE PRECISION NOT NULL,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_mappings_run_id
    ON mappings (run_id);

CREATE INDEX IF NOT EXISTS idx_mappings_entity_mention
    ON mappings (entity_id, mention);
`

// Migrate applies the database schema.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

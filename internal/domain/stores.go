package domain

import "context"

// SearchOpts tunes ontology retrieval.
type SearchOpts struct {
	TopK  int
	Types []EntityType
}

// OntologyStore handles storage and retrieval of ontology entities.
type OntologyStore interface {
	Upsert(ctx context.Context, entities []EntityRecord) error
	GetByID(ctx context.Context, id string) (*EntityRecord, error)
	Search(ctx context.Context, embedding []float32, opts SearchOpts) ([]EntityMatch, error)
	// LoadXrefs returns one row per (entity, xref) pair, ordered by entity id.
	LoadXrefs(ctx context.Context, types []EntityType) ([]XrefRow, error)
	CountByType(ctx context.Context) (map[EntityType]int64, error)
}

// MappingStore persists resolved mention mappings for curator review.
// The engine only appends; UpdateByID serves the review surface, where a
// nil score keeps the recorded one.
type MappingStore interface {
	Append(ctx context.Context, records []MappingRecord) ([]MappingRecord, error)
	GetByID(ctx context.Context, id int64) (*MappingRecord, error)
	ListByRun(ctx context.Context, runID string) ([]MappingRecord, error)
	UpdateByID(ctx context.Context, id int64, entityID, entityName string, score *float64) (*MappingRecord, error)
	Aggregate(ctx context.Context, types []EntityType) ([]MappingAggregate, error)
}

// LLMClient answers a single free-form prompt.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

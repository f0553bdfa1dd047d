package domain

import "time"

// NormalizationAlgorithm selects how raw mentions are resolved to
// ontology entities.
type NormalizationAlgorithm string

const (
	AlgorithmRetrieval                         NormalizationAlgorithm = "retrieval"
	AlgorithmRetrievalAndClassification        NormalizationAlgorithm = "retrieval_and_classification"
	AlgorithmAgenticRetrievalAndClassification NormalizationAlgorithm = "agentic_retrieval_and_classification"
)

// Mapping is the resolved link between a raw mention and an ontology entity.
type Mapping struct {
	EntityID        string       `json:"id"`
	Mention         string       `json:"mention"`
	Types           []EntityType `json:"types"`
	EntityName      string       `json:"name,omitempty"`
	Score           float64      `json:"score"`
	NormalisedScore float64      `json:"normalised_score,omitempty"`
	RecordID        int64        `json:"mapping_id,omitempty"`
}

// MappingRecord is a persisted mapping available for curator review.
// Reviews overwrite the entity in place; the original resolution stays
// visible in the decision log.
type MappingRecord struct {
	ID              int64        `json:"id"`
	RunID           string       `json:"run_id"`
	ColumnName      string       `json:"column_name"`
	Mention         string       `json:"mention"`
	EntityID        string       `json:"entity_id"`
	EntityName      string       `json:"entity_name"`
	Types           []EntityType `json:"types"`
	Score           float64      `json:"score"`
	NormalisedScore float64      `json:"normalised_score"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// MappingAggregate summarises how a mention has been mapped across runs.
type MappingAggregate struct {
	Mention    string  `json:"mention"`
	EntityID   string  `json:"entity_id"`
	EntityName string  `json:"entity_name"`
	Count      int64   `json:"count"`
	MeanScore  float64 `json:"mean_score"`
}

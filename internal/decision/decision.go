// Package decision records the choices the engine makes while processing
// a dataset, grouped per pipeline node for later inspection.
package decision

import (
	"time"

	"github.com/concordbio/concord/internal/domain"
)

type Status string

const (
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Type classifies a recorded decision.
type Type string

const (
	TypeRetrievalTypeIdentified  Type = "retrieval_type_identified"
	TypeExtractionTypeIdentified Type = "extraction_type_identified"
	TypeURLRetrieved             Type = "url_retrieved"
	TypeFileCopied               Type = "file_copied"
	TypeFileFormatIdentified     Type = "file_format_identified"
	TypeSchemaIdentified         Type = "schema_identified"
	TypeColumnAligned            Type = "column_aligned"
	TypeUnableToProcess          Type = "unable_to_process"
)

// OpType discriminates the Operation variant.
type OpType string

const (
	OpRename    OpType = "rename"
	OpMapping   OpType = "mapping"
	OpInference OpType = "inference"
	OpSetValue  OpType = "set_value"
	OpMapToNull OpType = "map_to_null"
)

type MappingType string

const (
	MappingFreeText MappingType = "free_text"
	MappingXref     MappingType = "xref"
)

type InferenceType string

const (
	InferenceDerived   InferenceType = "derived"
	InferenceExtracted InferenceType = "extracted"
)

// Operation is a single transformation applied to a column. Type selects
// the variant; only the fields of that variant are set.
type Operation struct {
	Type OpType `json:"type"`

	// rename
	OriginalName string `json:"original_name,omitempty"`
	NewName      string `json:"new_name,omitempty"`

	// mapping
	MappingType MappingType      `json:"mapping_type,omitempty"`
	Mappings    []domain.Mapping `json:"mappings,omitempty"`

	// inference
	InferenceType InferenceType `json:"inference_type,omitempty"`
	Data          any           `json:"data,omitempty"`

	// set_value
	Value any `json:"value,omitempty"`

	// map_to_null
	Values []string `json:"values,omitempty"`
}

func Rename(originalName, newName string) Operation {
	return Operation{Type: OpRename, OriginalName: originalName, NewName: newName}
}

func MappingOp(mt MappingType, mappings []domain.Mapping) Operation {
	return Operation{Type: OpMapping, MappingType: mt, Mappings: mappings}
}

func Inference(it InferenceType, data any) Operation {
	return Operation{Type: OpInference, InferenceType: it, Data: data}
}

func SetValue(value any) Operation {
	return Operation{Type: OpSetValue, Value: value}
}

func MapToNull(values []string) Operation {
	return Operation{Type: OpMapToNull, Values: values}
}

// ColumnAlignment collects every operation applied to one target column.
type ColumnAlignment struct {
	ColumnName string      `json:"column_name"`
	Operations []Operation `json:"operations"`
}

// Decision carries either a free-form message or a column alignment.
type Decision struct {
	Type      Type             `json:"type"`
	Content   string           `json:"content,omitempty"`
	Alignment *ColumnAlignment `json:"alignment,omitempty"`
}

// Message builds a plain-text decision.
func Message(t Type, content string) Decision {
	return Decision{Type: t, Content: content}
}

// Node is one unit of pipeline work together with everything decided
// while it ran.
type Node struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Status      Status     `json:"status"`
	Decisions   []Decision `json:"decisions"`
	UpstreamIDs []string   `json:"upstream_node_ids"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  time.Time  `json:"finished_at"`
	Duration    float64    `json:"duration"`
}

package schema

import (
	"strings"

	"github.com/concordbio/concord/internal/domain"
)

// Kind discriminates the closed set of column value types.
type Kind uint8

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindEntity
	KindAminoAcidSequence
	KindNucleotideSequence
)

// ValueType is the declared type of a schema column: a primitive kind, a
// sequence alphabet, or an entity type parameterized by ontology types and
// a normalization algorithm.
type ValueType struct {
	kind  Kind
	types []domain.EntityType
	algo  domain.NormalizationAlgorithm
}

func StringType() ValueType { return ValueType{kind: KindString} }
func IntType() ValueType    { return ValueType{kind: KindInt} }
func FloatType() ValueType  { return ValueType{kind: KindFloat} }
func BoolType() ValueType   { return ValueType{kind: KindBool} }

func AminoAcidSequenceType() ValueType  { return ValueType{kind: KindAminoAcidSequence} }
func NucleotideSequenceType() ValueType { return ValueType{kind: KindNucleotideSequence} }

// Entity declares a column whose values must be normalized to ontology
// entity identifiers of the given types.
func Entity(algo domain.NormalizationAlgorithm, types ...domain.EntityType) ValueType {
	return ValueType{kind: KindEntity, types: types, algo: algo}
}

func (t ValueType) Kind() Kind     { return t.kind }
func (t ValueType) IsEntity() bool { return t.kind == KindEntity }

func (t ValueType) EntityTypes() []domain.EntityType { return t.types }

func (t ValueType) Algorithm() domain.NormalizationAlgorithm { return t.algo }

func (t ValueType) String() string {
	switch t.kind {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindAminoAcidSequence:
		return "amino_acid_sequence"
	case KindNucleotideSequence:
		return "nucleotide_sequence"
	case KindEntity:
		names := make([]string, len(t.types))
		for i, et := range t.types {
			names[i] = string(et)
		}
		return "entity[" + strings.Join(names, ", ") + "]"
	default:
		return "unknown"
	}
}

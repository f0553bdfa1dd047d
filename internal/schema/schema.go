// Package schema declares target dataset schemas: typed columns with
// aliases and inference rules, plus the scheduling of rule execution.
package schema

import (
	"regexp"
	"strings"

	"github.com/concordbio/concord/internal/frame"
)

// ColumnSpec declares one target column of a schema.
type ColumnSpec struct {
	Name        string
	Type        ValueType
	Description string
	Required    bool
	Nullable    bool
	// Default fills the column when no alias, match or rule produces it.
	// A null default on a required non-nullable column means alignment
	// must fail instead.
	Default frame.Value
	Aliases []string
	Rules   []Rule
}

// Schema is an ordered set of column specs a dataset is aligned to.
type Schema struct {
	Name        string
	Description string
	Columns     []ColumnSpec
}

func (s *Schema) Column(name string) (*ColumnSpec, bool) {
	for i := range s.Columns {
		if s.Columns[i].Name == name {
			return &s.Columns[i], true
		}
	}
	return nil, false
}

func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i := range s.Columns {
		names[i] = s.Columns[i].Name
	}
	return names
}

var (
	nonWordPattern    = regexp.MustCompile(`\W+`)
	digitLetterBound  = regexp.MustCompile(`(\d)([a-zA-Z])`)
	letterDigitBound  = regexp.MustCompile(`([a-zA-Z])(\d)`)
	camelCaseBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// ToSnakeCase renders a raw column name in snake_case so source and
// schema column names can be compared on equal footing.
func ToSnakeCase(s string) string {
	s = nonWordPattern.ReplaceAllString(s, "_")
	s = digitLetterBound.ReplaceAllString(s, "${1}_${2}")
	s = letterDigitBound.ReplaceAllString(s, "${1}_${2}")
	s = camelCaseBoundary.ReplaceAllString(s, "${1}_${2}")
	s = strings.ToLower(s)
	return strings.Trim(s, "_")
}

package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownSchema is returned when no registered schema matches a name.
var ErrUnknownSchema = errors.New("unknown schema")

// Builtin returns the registered target schemas. Each call builds fresh
// values so callers can't mutate shared state.
func Builtin() []*Schema {
	return []*Schema{GWAS(), RNASeq()}
}

// Get returns the registered schema with the given name, matched
// case-insensitively.
func Get(name string) (*Schema, error) {
	for _, s := range Builtin() {
		if strings.EqualFold(s.Name, name) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSchema, name)
}

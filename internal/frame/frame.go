// Package frame provides a small column-oriented table used to carry
// tabular datasets through schema alignment and normalization.
package frame

import (
	"encoding/json"
	"fmt"
)

// Series is a named column of values.
type Series struct {
	Name   string
	Values []Value
}

func NewSeries(name string, values ...Value) Series {
	return Series{Name: name, Values: values}
}

func (s Series) Len() int { return len(s.Values) }

// AllNull reports whether every value in the column is null. An empty
// column counts as all null.
func (s Series) AllNull() bool {
	for _, v := range s.Values {
		if !v.IsNull() {
			return false
		}
	}
	return true
}

// DistinctNonNull returns the display form of each distinct non-null value
// in first-occurrence order.
func (s Series) DistinctNonNull() []string {
	seen := make(map[string]struct{}, len(s.Values))
	out := make([]string, 0, len(s.Values))
	for _, v := range s.Values {
		if v.IsNull() {
			continue
		}
		d := v.Display()
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

// WithName returns a copy of the series under a new name, sharing values.
func (s Series) WithName(name string) Series {
	return Series{Name: name, Values: s.Values}
}

// Frame is an ordered collection of equal-length columns with unique names.
type Frame struct {
	columns []Series
	byName  map[string]int
}

// New builds a frame from the given columns. All columns must have the
// same length and distinct non-empty names.
func New(columns ...Series) (*Frame, error) {
	f := &Frame{byName: make(map[string]int, len(columns))}
	for _, col := range columns {
		if col.Name == "" {
			return nil, fmt.Errorf("frame: column with empty name")
		}
		if _, ok := f.byName[col.Name]; ok {
			return nil, fmt.Errorf("frame: duplicate column %q", col.Name)
		}
		if len(f.columns) > 0 && col.Len() != f.columns[0].Len() {
			return nil, fmt.Errorf("frame: column %q has %d rows, want %d", col.Name, col.Len(), f.columns[0].Len())
		}
		f.byName[col.Name] = len(f.columns)
		f.columns = append(f.columns, col)
	}
	return f, nil
}

func (f *Frame) NumRows() int {
	if len(f.columns) == 0 {
		return 0
	}
	return f.columns[0].Len()
}

func (f *Frame) NumColumns() int { return len(f.columns) }

// ColumnNames returns the column names in frame order.
func (f *Frame) ColumnNames() []string {
	names := make([]string, len(f.columns))
	for i, col := range f.columns {
		names[i] = col.Name
	}
	return names
}

func (f *Frame) HasColumn(name string) bool {
	_, ok := f.byName[name]
	return ok
}

func (f *Frame) Column(name string) (Series, bool) {
	i, ok := f.byName[name]
	if !ok {
		return Series{}, false
	}
	return f.columns[i], true
}

// SetColumn replaces the column with the same name, or appends a new one.
// The column length must match the frame unless the frame is empty.
func (f *Frame) SetColumn(col Series) error {
	if col.Name == "" {
		return fmt.Errorf("frame: column with empty name")
	}
	if len(f.columns) > 0 && col.Len() != f.NumRows() {
		return fmt.Errorf("frame: column %q has %d rows, want %d", col.Name, col.Len(), f.NumRows())
	}
	if i, ok := f.byName[col.Name]; ok {
		f.columns[i] = col
		return nil
	}
	if f.byName == nil {
		f.byName = make(map[string]int)
	}
	f.byName[col.Name] = len(f.columns)
	f.columns = append(f.columns, col)
	return nil
}

// Rename applies a batch of column renames. Every source must exist and
// the result must not collide with a surviving column.
func (f *Frame) Rename(mapping map[string]string) error {
	for from := range mapping {
		if _, ok := f.byName[from]; !ok {
			return fmt.Errorf("frame: no column %q to rename", from)
		}
	}
	next := make(map[string]int, len(f.columns))
	for i, col := range f.columns {
		name := col.Name
		if to, ok := mapping[name]; ok {
			name = to
		}
		if _, dup := next[name]; dup {
			return fmt.Errorf("frame: rename would duplicate column %q", name)
		}
		next[name] = i
		f.columns[i] = col.WithName(name)
	}
	f.byName = next
	return nil
}

// Select returns a new frame holding the named columns in the given order.
func (f *Frame) Select(names []string) (*Frame, error) {
	cols := make([]Series, 0, len(names))
	for _, name := range names {
		col, ok := f.Column(name)
		if !ok {
			return nil, fmt.Errorf("frame: no column %q", name)
		}
		cols = append(cols, col)
	}
	return New(cols...)
}

// Row returns the values of row i in column order.
func (f *Frame) Row(i int) []Value {
	row := make([]Value, len(f.columns))
	for c, col := range f.columns {
		row[c] = col.Values[i]
	}
	return row
}

// Head returns a new frame holding at most n rows of each column.
func (f *Frame) Head(n int) *Frame {
	if n > f.NumRows() {
		n = f.NumRows()
	}
	cols := make([]Series, len(f.columns))
	for i, col := range f.columns {
		cols[i] = Series{Name: col.Name, Values: col.Values[:n]}
	}
	out, _ := New(cols...)
	return out
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	cols := make([]Series, len(f.columns))
	for i, col := range f.columns {
		values := make([]Value, len(col.Values))
		copy(values, col.Values)
		cols[i] = Series{Name: col.Name, Values: values}
	}
	out, _ := New(cols...)
	return out
}

type frameJSON struct {
	Columns []string  `json:"columns"`
	Rows    [][]Value `json:"rows"`
}

func (f *Frame) MarshalJSON() ([]byte, error) {
	out := frameJSON{Columns: f.ColumnNames(), Rows: make([][]Value, f.NumRows())}
	for i := 0; i < f.NumRows(); i++ {
		out.Rows[i] = f.Row(i)
	}
	return json.Marshal(out)
}

func (f *Frame) UnmarshalJSON(b []byte) error {
	var in frameJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	cols := make([]Series, len(in.Columns))
	for i, name := range in.Columns {
		cols[i] = Series{Name: name, Values: make([]Value, 0, len(in.Rows))}
	}
	for r, row := range in.Rows {
		if len(row) != len(in.Columns) {
			return fmt.Errorf("frame: row %d has %d values, want %d", r, len(row), len(in.Columns))
		}
		for c, v := range row {
			cols[c].Values = append(cols[c].Values, v)
		}
	}
	parsed, err := New(cols...)
	if err != nil {
		return err
	}
	*f = *parsed
	return nil
}

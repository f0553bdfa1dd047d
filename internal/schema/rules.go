package schema

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/concordbio/concord/internal/frame"
)

// RuleKind tags how an inference rule produces its values.
type RuleKind string

const (
	RuleDerived   RuleKind = "derived"
	RuleExtracted RuleKind = "extracted"
)

// Session is the state visible to inference rules while one dataset is
// being aligned. The frame reflects columns inferred so far.
type Session struct {
	Frame     *frame.Frame
	Schema    *Schema
	Context   []string
	FilePath  string
	Extractor Extractor
}

// Extractor answers a question against free-text passages.
type Extractor interface {
	Extract(ctx context.Context, passages []string, question string) (*Extraction, error)
}

// Extraction is an answer together with the passages that supported it.
type Extraction struct {
	Answer     string      `json:"answer"`
	References []Reference `json:"references,omitempty"`
}

type Reference struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

// Rule infers a missing column's values. Guards are evaluated in
// declaration order; the first satisfied rule runs. Infer returns the
// column values plus optional auxiliary data for the decision log.
type Rule interface {
	Kind() RuleKind
	DependsOn() []string
	Guard(s *Session) bool
	Infer(ctx context.Context, s *Session) ([]frame.Value, any, error)
}

func hasColumns(f *frame.Frame, names []string) bool {
	for _, name := range names {
		if !f.HasColumn(name) {
			return false
		}
	}
	return true
}

// floatAt reads a numeric operand. Null propagates as ok=false.
func floatAt(f *frame.Frame, name string, row int) (val float64, isInt bool, ok bool, err error) {
	col, exists := f.Column(name)
	if !exists {
		return 0, false, false, fmt.Errorf("column %q not in frame", name)
	}
	v := col.Values[row]
	if v.IsNull() {
		return 0, false, false, nil
	}
	coerced, err := v.CoerceFloat()
	if err != nil {
		return 0, false, false, fmt.Errorf("column %q row %d: %w", name, row, err)
	}
	fv, _ := coerced.FloatVal()
	return fv, v.Kind() == frame.KindInt, true, nil
}

// SumColumns derives a column as the row-wise sum of other columns.
type SumColumns struct {
	Columns []string
}

func (r SumColumns) Kind() RuleKind      { return RuleDerived }
func (r SumColumns) DependsOn() []string { return r.Columns }
func (r SumColumns) Guard(s *Session) bool {
	return hasColumns(s.Frame, r.Columns)
}

func (r SumColumns) Infer(ctx context.Context, s *Session) ([]frame.Value, any, error) {
	values := make([]frame.Value, s.Frame.NumRows())
	for row := range values {
		sum := 0.0
		allInt := true
		null := false
		for _, name := range r.Columns {
			v, isInt, ok, err := floatAt(s.Frame, name, row)
			if err != nil {
				return nil, nil, err
			}
			if !ok {
				null = true
				break
			}
			sum += v
			allInt = allInt && isInt
		}
		switch {
		case null:
			values[row] = frame.Null()
		case allInt:
			values[row] = frame.Int(int64(sum))
		default:
			values[row] = frame.Float(sum)
		}
	}
	return values, nil, nil
}

// DifferenceColumns derives a column as minuend - subtrahend.
type DifferenceColumns struct {
	Minuend    string
	Subtrahend string
}

func (r DifferenceColumns) Kind() RuleKind      { return RuleDerived }
func (r DifferenceColumns) DependsOn() []string { return []string{r.Minuend, r.Subtrahend} }
func (r DifferenceColumns) Guard(s *Session) bool {
	return hasColumns(s.Frame, r.DependsOn())
}

func (r DifferenceColumns) Infer(ctx context.Context, s *Session) ([]frame.Value, any, error) {
	values := make([]frame.Value, s.Frame.NumRows())
	for row := range values {
		a, aInt, aOK, err := floatAt(s.Frame, r.Minuend, row)
		if err != nil {
			return nil, nil, err
		}
		b, bInt, bOK, err := floatAt(s.Frame, r.Subtrahend, row)
		if err != nil {
			return nil, nil, err
		}
		switch {
		case !aOK || !bOK:
			values[row] = frame.Null()
		case aInt && bInt:
			values[row] = frame.Int(int64(a - b))
		default:
			values[row] = frame.Float(a - b)
		}
	}
	return values, nil, nil
}

// unaryNumeric applies fn element-wise to one source column.
func unaryNumeric(s *Session, column string, fn func(float64) float64) ([]frame.Value, error) {
	values := make([]frame.Value, s.Frame.NumRows())
	for row := range values {
		v, _, ok, err := floatAt(s.Frame, column, row)
		if err != nil {
			return nil, err
		}
		if !ok {
			values[row] = frame.Null()
			continue
		}
		values[row] = frame.Float(fn(v))
	}
	return values, nil
}

// LogColumn derives the natural log of a source column.
type LogColumn struct {
	Column string
}

func (r LogColumn) Kind() RuleKind        { return RuleDerived }
func (r LogColumn) DependsOn() []string   { return []string{r.Column} }
func (r LogColumn) Guard(s *Session) bool { return s.Frame.HasColumn(r.Column) }
func (r LogColumn) Infer(ctx context.Context, s *Session) ([]frame.Value, any, error) {
	values, err := unaryNumeric(s, r.Column, math.Log)
	return values, nil, err
}

// ExpColumn derives e raised to a source column.
type ExpColumn struct {
	Column string
}

func (r ExpColumn) Kind() RuleKind        { return RuleDerived }
func (r ExpColumn) DependsOn() []string   { return []string{r.Column} }
func (r ExpColumn) Guard(s *Session) bool { return s.Frame.HasColumn(r.Column) }
func (r ExpColumn) Infer(ctx context.Context, s *Session) ([]frame.Value, any, error) {
	values, err := unaryNumeric(s, r.Column, math.Exp)
	return values, nil, err
}

// NegLog10Column derives -log10 of a source column (e.g. p-values).
type NegLog10Column struct {
	Column string
}

func (r NegLog10Column) Kind() RuleKind        { return RuleDerived }
func (r NegLog10Column) DependsOn() []string   { return []string{r.Column} }
func (r NegLog10Column) Guard(s *Session) bool { return s.Frame.HasColumn(r.Column) }
func (r NegLog10Column) Infer(ctx context.Context, s *Session) ([]frame.Value, any, error) {
	values, err := unaryNumeric(s, r.Column, func(v float64) float64 { return -math.Log10(v) })
	return values, nil, err
}

// PowNeg10Column derives 10^-x of a source column, the inverse of
// NegLog10Column.
type PowNeg10Column struct {
	Column string
}

func (r PowNeg10Column) Kind() RuleKind        { return RuleDerived }
func (r PowNeg10Column) DependsOn() []string   { return []string{r.Column} }
func (r PowNeg10Column) Guard(s *Session) bool { return s.Frame.HasColumn(r.Column) }
func (r PowNeg10Column) Infer(ctx context.Context, s *Session) ([]frame.Value, any, error) {
	values, err := unaryNumeric(s, r.Column, func(v float64) float64 { return math.Pow(10, -v) })
	return values, nil, err
}

// ConcatColumns derives a column by joining the display form of other
// columns with a separator. Null operands join as empty strings.
type ConcatColumns struct {
	Columns   []string
	Separator string
}

func (r ConcatColumns) Kind() RuleKind      { return RuleDerived }
func (r ConcatColumns) DependsOn() []string { return r.Columns }
func (r ConcatColumns) Guard(s *Session) bool {
	return hasColumns(s.Frame, r.Columns)
}

func (r ConcatColumns) Infer(ctx context.Context, s *Session) ([]frame.Value, any, error) {
	cols := make([]frame.Series, len(r.Columns))
	for i, name := range r.Columns {
		col, ok := s.Frame.Column(name)
		if !ok {
			return nil, nil, fmt.Errorf("column %q not in frame", name)
		}
		cols[i] = col
	}
	values := make([]frame.Value, s.Frame.NumRows())
	for row := range values {
		parts := make([]string, len(cols))
		for i, col := range cols {
			parts[i] = col.Values[row].Display()
		}
		values[row] = frame.String(strings.Join(parts, r.Separator))
	}
	return values, nil, nil
}

// FileStem derives a column from the source file's base name without
// extension, broadcast to every row.
type FileStem struct{}

func (FileStem) Kind() RuleKind        { return RuleDerived }
func (FileStem) DependsOn() []string   { return nil }
func (FileStem) Guard(s *Session) bool { return true }

func (FileStem) Infer(ctx context.Context, s *Session) ([]frame.Value, any, error) {
	base := filepath.Base(s.FilePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if s.FilePath == "" {
		stem = ""
	}
	values := make([]frame.Value, s.Frame.NumRows())
	for row := range values {
		values[row] = frame.String(stem)
	}
	return values, nil, nil
}

// ParseKind controls how an extracted answer is converted to a value.
type ParseKind uint8

const (
	ParseNone ParseKind = iota
	ParseInt
	ParseFloat
)

// ExtractFromContext infers a column by asking a question against the
// session's free-text context and broadcasting the answer.
type ExtractFromContext struct {
	Question string
	Parse    ParseKind
}

func (r ExtractFromContext) Kind() RuleKind      { return RuleExtracted }
func (r ExtractFromContext) DependsOn() []string { return nil }
func (r ExtractFromContext) Guard(s *Session) bool {
	return len(s.Context) > 0 && s.Extractor != nil
}

func (r ExtractFromContext) Infer(ctx context.Context, s *Session) ([]frame.Value, any, error) {
	resp, err := s.Extractor.Extract(ctx, s.Context, r.Question)
	if err != nil {
		return nil, nil, fmt.Errorf("extracting answer for %q: %w", r.Question, err)
	}
	// No answer, or an answer the parser can't use, broadcasts null; the
	// column falls through to its default if nulls are not allowed.
	value := frame.Null()
	if resp.Answer != "" {
		if parsed, err := r.parseAnswer(resp.Answer); err == nil {
			value = parsed
		}
	}
	values := make([]frame.Value, s.Frame.NumRows())
	for row := range values {
		values[row] = value
	}
	return values, resp, nil
}

func (r ExtractFromContext) parseAnswer(answer string) (frame.Value, error) {
	switch r.Parse {
	case ParseInt:
		i, err := parseExtractedInt(answer)
		if err != nil {
			return frame.Value{}, err
		}
		return frame.Int(i), nil
	case ParseFloat:
		f, err := parseExtractedFloat(answer)
		if err != nil {
			return frame.Value{}, err
		}
		return frame.Float(f), nil
	default:
		return frame.String(answer), nil
	}
}

var (
	scientificPattern = regexp.MustCompile(`\d+(?:\.\d+)?[eE][+\-]?\d+`)
	nonIntegerChars   = regexp.MustCompile(`[^0-9\-]`)
	decimalPattern    = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
)

// parseExtractedInt pulls an integer out of a model answer like
// "around 12,500 cases" or "1.2e4".
func parseExtractedInt(s string) (int64, error) {
	if m := scientificPattern.FindString(s); m != "" {
		if f, err := strconv.ParseFloat(m, 64); err == nil {
			return int64(f), nil
		}
	}
	cleaned := nonIntegerChars.ReplaceAllString(s, "")
	i, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("no integer found in %q", s)
	}
	return i, nil
}

// parseExtractedFloat pulls a number out of a model answer, taking the
// first numeric token so trailing prose punctuation is ignored.
func parseExtractedFloat(s string) (float64, error) {
	if m := scientificPattern.FindString(s); m != "" {
		if f, err := strconv.ParseFloat(m, 64); err == nil {
			return f, nil
		}
	}
	if m := decimalPattern.FindString(s); m != "" {
		if f, err := strconv.ParseFloat(m, 64); err == nil {
			return f, nil
		}
	}
	return 0, fmt.Errorf("no number found in %q", s)
}

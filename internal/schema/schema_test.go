package schema

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/concordbio/concord/internal/domain"
	"github.com/concordbio/concord/internal/frame"
)

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"P-value", "p_value"},
		{"P.value", "p_value"},
		{"LOG(OR)_SE", "log_or__se"},
		{"TotalSampleSize", "total_sample_size"},
		{"hm_effect_allele", "hm_effect_allele"},
		{"A1FREQ", "a_1_freq"},
		{"log10P", "log_10_p"},
		{"#CHROM", "chrom"},
		{"base pair location", "base_pair_location"},
		{"already_snake", "already_snake"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ToSnakeCase(tt.in)
			if got != tt.want {
				t.Errorf("ToSnakeCase(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCoerceValuesPrimitives(t *testing.T) {
	col := frame.NewSeries("position",
		frame.String("12345"),
		frame.Float(678),
		frame.Null(),
	)
	spec := ColumnSpec{Name: "position", Type: IntType()}

	coerced, rejected, err := spec.CoerceValues(col)
	if err != nil {
		t.Fatalf("CoerceValues: %v", err)
	}
	if len(rejected) != 0 {
		t.Errorf("rejected = %v, want none", rejected)
	}
	if v, ok := coerced.Values[0].IntVal(); !ok || v != 12345 {
		t.Errorf("values[0] = %v, want 12345", coerced.Values[0])
	}
	if v, ok := coerced.Values[1].IntVal(); !ok || v != 678 {
		t.Errorf("values[1] = %v, want 678", coerced.Values[1])
	}
	if !coerced.Values[2].IsNull() {
		t.Errorf("values[2] = %v, want null", coerced.Values[2])
	}
}

func TestCoerceValuesSequence(t *testing.T) {
	col := frame.NewSeries("sequence",
		frame.String(" ACGT "),
		frame.String("not a sequence"),
		frame.String("ACGT"),
		frame.String("not a sequence"),
		frame.Null(),
	)
	spec := ColumnSpec{Name: "sequence", Type: NucleotideSequenceType()}

	coerced, rejected, err := spec.CoerceValues(col)
	if err != nil {
		t.Fatalf("CoerceValues: %v", err)
	}
	if len(rejected) != 1 || rejected[0] != "not a sequence" {
		t.Errorf("rejected = %v, want one distinct entry", rejected)
	}
	if s, _ := coerced.Values[0].StringVal(); s != "ACGT" {
		t.Errorf("values[0] = %v, want trimmed ACGT", coerced.Values[0])
	}
	if !coerced.Values[1].IsNull() || !coerced.Values[3].IsNull() {
		t.Error("invalid sequences should map to null")
	}
	if !coerced.Values[4].IsNull() {
		t.Error("null should stay null")
	}
}

func TestCoerceValuesEntityRejected(t *testing.T) {
	spec := ColumnSpec{Name: "trait_id", Type: Entity(domain.AlgorithmRetrieval, domain.EntityDisease)}
	if _, _, err := spec.CoerceValues(frame.NewSeries("trait_id")); err == nil {
		t.Fatal("expected error for entity column")
	}
}

func inferenceSession(t *testing.T, cols ...frame.Series) *Session {
	t.Helper()
	f, err := frame.New(cols...)
	if err != nil {
		t.Fatalf("building frame: %v", err)
	}
	return &Session{Frame: f, Schema: GWAS()}
}

func TestSumColumnsInfer(t *testing.T) {
	s := inferenceSession(t,
		frame.NewSeries("num_cases", frame.Int(10), frame.Int(3), frame.Null()),
		frame.NewSeries("num_controls", frame.Int(20), frame.Int(4), frame.Int(5)),
	)
	rule := SumColumns{Columns: []string{"num_cases", "num_controls"}}
	if !rule.Guard(s) {
		t.Fatal("guard should pass when both columns present")
	}

	values, _, err := rule.Infer(context.Background(), s)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if v, ok := values[0].IntVal(); !ok || v != 30 {
		t.Errorf("values[0] = %v, want int 30", values[0])
	}
	if v, ok := values[1].IntVal(); !ok || v != 7 {
		t.Errorf("values[1] = %v, want int 7", values[1])
	}
	if !values[2].IsNull() {
		t.Errorf("values[2] = %v, want null", values[2])
	}
}

func TestSumColumnsFloatOperand(t *testing.T) {
	s := inferenceSession(t,
		frame.NewSeries("num_cases", frame.Float(10.5)),
		frame.NewSeries("num_controls", frame.Int(20)),
	)
	values, _, err := SumColumns{Columns: []string{"num_cases", "num_controls"}}.Infer(context.Background(), s)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if v, ok := values[0].FloatVal(); !ok || v != 30.5 {
		t.Errorf("values[0] = %v, want float 30.5", values[0])
	}
}

func TestDifferenceColumnsInfer(t *testing.T) {
	s := inferenceSession(t,
		frame.NewSeries("num_samples", frame.Int(100), frame.Null()),
		frame.NewSeries("num_controls", frame.Int(60), frame.Int(1)),
	)
	rule := DifferenceColumns{Minuend: "num_samples", Subtrahend: "num_controls"}

	values, _, err := rule.Infer(context.Background(), s)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if v, ok := values[0].IntVal(); !ok || v != 40 {
		t.Errorf("values[0] = %v, want int 40", values[0])
	}
	if !values[1].IsNull() {
		t.Errorf("values[1] = %v, want null", values[1])
	}
}

func TestNumericRuleErrorsOnNonNumeric(t *testing.T) {
	s := inferenceSession(t,
		frame.NewSeries("num_cases", frame.String("many")),
		frame.NewSeries("num_controls", frame.Int(1)),
	)
	rule := SumColumns{Columns: []string{"num_cases", "num_controls"}}
	if _, _, err := rule.Infer(context.Background(), s); err == nil {
		t.Fatal("expected error for non-numeric operand")
	}
}

func TestLogAndExpRoundTrip(t *testing.T) {
	s := inferenceSession(t,
		frame.NewSeries("odds_ratio", frame.Float(2.0), frame.Null()),
	)
	values, _, err := LogColumn{Column: "odds_ratio"}.Infer(context.Background(), s)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if v, _ := values[0].FloatVal(); math.Abs(v-math.Log(2.0)) > 1e-12 {
		t.Errorf("values[0] = %v, want ln(2)", values[0])
	}
	if !values[1].IsNull() {
		t.Errorf("values[1] = %v, want null", values[1])
	}

	s = inferenceSession(t,
		frame.NewSeries("effect_size", frame.Float(math.Log(2.0))),
	)
	values, _, err = ExpColumn{Column: "effect_size"}.Infer(context.Background(), s)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if v, _ := values[0].FloatVal(); math.Abs(v-2.0) > 1e-12 {
		t.Errorf("values[0] = %v, want 2.0", values[0])
	}
}

func TestNegLog10AndInverse(t *testing.T) {
	s := inferenceSession(t,
		frame.NewSeries("p_value", frame.Float(0.001)),
	)
	values, _, err := NegLog10Column{Column: "p_value"}.Infer(context.Background(), s)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if v, _ := values[0].FloatVal(); math.Abs(v-3.0) > 1e-12 {
		t.Errorf("-log10(0.001) = %v, want 3", values[0])
	}

	s = inferenceSession(t,
		frame.NewSeries("negative_log10_p_value", frame.Float(3.0)),
	)
	values, _, err = PowNeg10Column{Column: "negative_log10_p_value"}.Infer(context.Background(), s)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if v, _ := values[0].FloatVal(); math.Abs(v-0.001) > 1e-12 {
		t.Errorf("10^-3 = %v, want 0.001", values[0])
	}
}

func TestConcatColumnsInfer(t *testing.T) {
	s := inferenceSession(t,
		frame.NewSeries("chromosome", frame.String("1"), frame.String("X")),
		frame.NewSeries("position", frame.Int(12345), frame.Null()),
		frame.NewSeries("effect_allele", frame.String("A"), frame.String("T")),
		frame.NewSeries("non_effect_allele", frame.String("G"), frame.String("C")),
	)
	rule := ConcatColumns{
		Columns:   []string{"chromosome", "position", "effect_allele", "non_effect_allele"},
		Separator: ":",
	}

	values, _, err := rule.Infer(context.Background(), s)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if got, _ := values[0].StringVal(); got != "1:12345:A:G" {
		t.Errorf("values[0] = %q, want 1:12345:A:G", got)
	}
	if got, _ := values[1].StringVal(); got != "X::T:C" {
		t.Errorf("values[1] = %q, want X::T:C (null joins as empty)", got)
	}
}

func TestFileStemInfer(t *testing.T) {
	s := inferenceSession(t,
		frame.NewSeries("chromosome", frame.String("1"), frame.String("2")),
	)
	s.FilePath = "/data/uploads/ukbb_gwas_height.tsv"

	rule := FileStem{}
	if !rule.Guard(s) {
		t.Fatal("file stem guard should always pass")
	}
	values, _, err := rule.Infer(context.Background(), s)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("len(values) = %d, want 2", len(values))
	}
	for i, v := range values {
		if got, _ := v.StringVal(); got != "ukbb_gwas_height" {
			t.Errorf("values[%d] = %q, want ukbb_gwas_height", i, got)
		}
	}
}

type fakeExtractor struct {
	answer string
	err    error
	asked  []string
}

func (f *fakeExtractor) Extract(ctx context.Context, passages []string, question string) (*Extraction, error) {
	f.asked = append(f.asked, question)
	if f.err != nil {
		return nil, f.err
	}
	return &Extraction{Answer: f.answer}, nil
}

func TestExtractFromContext(t *testing.T) {
	tests := []struct {
		name   string
		parse  ParseKind
		answer string
		check  func(t *testing.T, v frame.Value)
	}{
		{
			name:   "string answer",
			parse:  ParseNone,
			answer: "GRCh38",
			check: func(t *testing.T, v frame.Value) {
				if s, _ := v.StringVal(); s != "GRCh38" {
					t.Errorf("value = %v, want GRCh38", v)
				}
			},
		},
		{
			name:   "int with separators",
			parse:  ParseInt,
			answer: "There were around 12,500 cases.",
			check: func(t *testing.T, v frame.Value) {
				if i, _ := v.IntVal(); i != 12500 {
					t.Errorf("value = %v, want 12500", v)
				}
			},
		},
		{
			name:   "int in scientific notation",
			parse:  ParseInt,
			answer: "1.25e4",
			check: func(t *testing.T, v frame.Value) {
				if i, _ := v.IntVal(); i != 12500 {
					t.Errorf("value = %v, want 12500", v)
				}
			},
		},
		{
			name:   "float with prose",
			parse:  ParseFloat,
			answer: "The frequency is 0.25.",
			check: func(t *testing.T, v frame.Value) {
				if f, _ := v.FloatVal(); math.Abs(f-0.25) > 1e-12 {
					t.Errorf("value = %v, want 0.25", v)
				}
			},
		},
		{
			name:   "float in scientific notation",
			parse:  ParseFloat,
			answer: "5.1e-8",
			check: func(t *testing.T, v frame.Value) {
				if f, _ := v.FloatVal(); math.Abs(f-5.1e-8) > 1e-20 {
					t.Errorf("value = %v, want 5.1e-8", v)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := &fakeExtractor{answer: tt.answer}
			s := inferenceSession(t,
				frame.NewSeries("chromosome", frame.String("1"), frame.String("2")),
			)
			s.Context = []string{"study abstract"}
			s.Extractor = ext

			rule := ExtractFromContext{Question: "q", Parse: tt.parse}
			if !rule.Guard(s) {
				t.Fatal("guard should pass with context and extractor")
			}
			values, data, err := rule.Infer(context.Background(), s)
			if err != nil {
				t.Fatalf("Infer: %v", err)
			}
			if len(values) != 2 {
				t.Fatalf("len(values) = %d, want broadcast to 2 rows", len(values))
			}
			tt.check(t, values[0])
			tt.check(t, values[1])
			if _, ok := data.(*Extraction); !ok {
				t.Errorf("inference data = %T, want *Extraction", data)
			}
		})
	}
}

func TestExtractFromContextGuard(t *testing.T) {
	s := inferenceSession(t,
		frame.NewSeries("chromosome", frame.String("1")),
	)
	rule := ExtractFromContext{Question: "q"}
	if rule.Guard(s) {
		t.Error("guard should fail without context passages")
	}
	s.Context = []string{"abstract"}
	if rule.Guard(s) {
		t.Error("guard should fail without an extractor")
	}
}

func TestExtractFromContextUnparseableAnswer(t *testing.T) {
	ext := &fakeExtractor{answer: "unknown"}
	s := inferenceSession(t,
		frame.NewSeries("chromosome", frame.String("1"), frame.String("2")),
	)
	s.Context = []string{"abstract"}
	s.Extractor = ext

	// An answer the parser can't use counts as no answer: null broadcasts
	// so the column can fall through to its default.
	rule := ExtractFromContext{Question: "q", Parse: ParseInt}
	values, _, err := rule.Infer(context.Background(), s)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("len(values) = %d, want 2", len(values))
	}
	for i, v := range values {
		if !v.IsNull() {
			t.Errorf("values[%d] = %v, want null", i, v)
		}
	}
}

func TestRegistry(t *testing.T) {
	s, err := Get("gwas")
	if err != nil {
		t.Fatalf("Get(gwas): %v", err)
	}
	if s.Name != "GWAS" {
		t.Errorf("name = %q, want GWAS", s.Name)
	}

	s, err = Get("RNA-SEQ")
	if err != nil {
		t.Fatalf("Get(RNA-SEQ): %v", err)
	}
	if s.Name != "RNA-seq" {
		t.Errorf("name = %q, want RNA-seq", s.Name)
	}

	if _, err := Get("proteomics"); !errors.Is(err, ErrUnknownSchema) {
		t.Errorf("err = %v, want ErrUnknownSchema", err)
	}
}

func TestGWASColumnLookup(t *testing.T) {
	s := GWAS()
	col, ok := s.Column("p_value")
	if !ok {
		t.Fatal("p_value should be a GWAS column")
	}
	if col.Type.Kind() != KindFloat {
		t.Errorf("p_value kind = %v, want float", col.Type.Kind())
	}
	if _, ok := s.Column("nonexistent"); ok {
		t.Error("lookup of unknown column should fail")
	}

	trait, _ := s.Column("trait_id")
	if !trait.Type.IsEntity() {
		t.Fatal("trait_id should be an entity column")
	}
	types := trait.Type.EntityTypes()
	if len(types) != 1 || types[0] != domain.EntityDisease {
		t.Errorf("trait_id entity types = %v, want [Disease]", types)
	}
}

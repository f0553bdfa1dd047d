package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/concordbio/concord/internal/decision"
	"github.com/concordbio/concord/internal/embedding"
	"github.com/concordbio/concord/internal/frame"
	"github.com/concordbio/concord/internal/llm"
	"github.com/concordbio/concord/internal/schema"
)

func setupAlignerTest() (*Aligner, *llm.MockClient) {
	llmClient := llm.NewMockClient()
	llmClient.CompleteResponse = ""
	normalizer := NewNormalizer(&mockOntologyStore{}, embedding.NewMockClient(), llmClient, testLogger())
	return NewAligner(llmClient, normalizer, nil, testLogger()), llmClient
}

// samplesSchema requires num_samples, inferable from cases + controls.
func samplesSchema() *schema.Schema {
	return &schema.Schema{
		Name: "samples",
		Columns: []schema.ColumnSpec{
			{Name: "num_cases", Type: schema.IntType(), Required: true, Aliases: []string{"N_CASE"}},
			{Name: "num_controls", Type: schema.IntType(), Required: true, Aliases: []string{"N_CONTROL"}},
			{
				Name: "num_samples", Type: schema.IntType(), Required: true,
				Rules: []schema.Rule{schema.SumColumns{Columns: []string{"num_cases", "num_controls"}}},
			},
		},
	}
}

func TestAlignFrameRenamesAndInfers(t *testing.T) {
	aligner, _ := setupAlignerTest()
	f, err := frame.New(
		frame.NewSeries("N_CASE", frame.Int(10), frame.Int(20)),
		frame.NewSeries("N_CONTROL", frame.Int(5), frame.Int(7)),
	)
	if err != nil {
		t.Fatalf("frame.New: %v", err)
	}

	rec := decision.NewNodeRecorder("n1", "test")
	aligned, err := aligner.AlignFrame(context.Background(), AlignRequest{Frame: f, Schema: samplesSchema()}, rec)
	if err != nil {
		t.Fatalf("AlignFrame: %v", err)
	}

	wantCols := []string{"num_cases", "num_controls", "num_samples"}
	gotCols := aligned.ColumnNames()
	if len(gotCols) != len(wantCols) {
		t.Fatalf("columns = %v, want %v", gotCols, wantCols)
	}
	for i := range wantCols {
		if gotCols[i] != wantCols[i] {
			t.Fatalf("columns = %v, want %v", gotCols, wantCols)
		}
	}

	samples, _ := aligned.Column("num_samples")
	for i, want := range []int64{15, 27} {
		if got, ok := samples.Values[i].IntVal(); !ok || got != want {
			t.Errorf("num_samples[%d] = %v, want %d", i, samples.Values[i], want)
		}
	}

	// Two renames plus one derived inference, each on its own column.
	decisions := rec.Decisions()
	if len(decisions) != 3 {
		t.Fatalf("decisions = %d, want 3", len(decisions))
	}
	opTypes := map[decision.OpType]int{}
	for _, d := range decisions {
		if d.Type != decision.TypeColumnAligned || d.Alignment == nil {
			t.Fatalf("unexpected decision %+v", d)
		}
		for _, op := range d.Alignment.Operations {
			opTypes[op.Type]++
		}
	}
	if opTypes[decision.OpRename] != 2 || opTypes[decision.OpInference] != 1 {
		t.Errorf("operations = %v, want 2 renames and 1 inference", opTypes)
	}
}

func TestAlignFrameIdempotent(t *testing.T) {
	aligner, llmClient := setupAlignerTest()
	f, err := frame.New(
		frame.NewSeries("num_cases", frame.Int(10)),
		frame.NewSeries("num_controls", frame.Int(5)),
		frame.NewSeries("num_samples", frame.Int(15)),
	)
	if err != nil {
		t.Fatalf("frame.New: %v", err)
	}

	rec := decision.NewNodeRecorder("n1", "test")
	aligned, err := aligner.AlignFrame(context.Background(), AlignRequest{Frame: f, Schema: samplesSchema()}, rec)
	if err != nil {
		t.Fatalf("AlignFrame: %v", err)
	}
	if got, _ := aligned.Column("num_samples"); got.Values[0] != frame.Int(15) {
		t.Errorf("num_samples = %v, want 15", got.Values[0])
	}
	if len(rec.Decisions()) != 0 {
		t.Errorf("decisions = %d, want none for an already-aligned frame", len(rec.Decisions()))
	}
	if llmClient.CallCount() != 0 {
		t.Errorf("LLM calls = %d, want 0", llmClient.CallCount())
	}
}

func TestAlignFrameSemanticMatch(t *testing.T) {
	aligner, llmClient := setupAlignerTest()
	llmClient.CompleteFunc = func(ctx context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "target_column") {
			return "p_val_column", nil
		}
		return "", nil
	}

	s := &schema.Schema{
		Name: "pvalues",
		Columns: []schema.ColumnSpec{
			{Name: "p_value", Type: schema.FloatType(), Required: true, Description: "The association p-value."},
		},
	}
	f, _ := frame.New(frame.NewSeries("P-VAL.column", frame.Float(0.05)))

	rec := decision.NewNodeRecorder("n1", "test")
	aligned, err := aligner.AlignFrame(context.Background(), AlignRequest{Frame: f, Schema: s}, rec)
	if err != nil {
		t.Fatalf("AlignFrame: %v", err)
	}
	col, ok := aligned.Column("p_value")
	if !ok {
		t.Fatalf("p_value column missing, got %v", aligned.ColumnNames())
	}
	if v, _ := col.Values[0].FloatVal(); v != 0.05 {
		t.Errorf("p_value = %v, want 0.05", col.Values[0])
	}
	decisions := rec.Decisions()
	if len(decisions) != 1 || decisions[0].Alignment.Operations[0].Type != decision.OpRename {
		t.Fatalf("expected a single rename decision, got %+v", decisions)
	}
	if got := decisions[0].Alignment.Operations[0].OriginalName; got != "P-VAL.column" {
		t.Errorf("rename source = %q, want the raw column name", got)
	}
}

func TestAlignFrameMalformedMatcherAnswerFallsThrough(t *testing.T) {
	aligner, llmClient := setupAlignerTest()
	// Model names a column that does not exist in the source frame.
	llmClient.CompleteResponse = "no_such_column"

	s := &schema.Schema{
		Name: "opt",
		Columns: []schema.ColumnSpec{
			{Name: "anything", Type: schema.StringType(), Required: true, Nullable: true},
		},
	}
	f, _ := frame.New(frame.NewSeries("unrelated", frame.String("x")))

	rec := decision.NewNodeRecorder("n1", "test")
	aligned, err := aligner.AlignFrame(context.Background(), AlignRequest{Frame: f, Schema: s}, rec)
	if err != nil {
		t.Fatalf("AlignFrame: %v", err)
	}
	col, _ := aligned.Column("anything")
	if !col.AllNull() {
		t.Errorf("column = %v, want null default", col.Values)
	}
	decisions := rec.Decisions()
	if len(decisions) != 1 || decisions[0].Alignment.Operations[0].Type != decision.OpSetValue {
		t.Fatalf("expected a set_value decision, got %+v", decisions)
	}
}

func TestAlignFrameMissingRequiredColumn(t *testing.T) {
	aligner, _ := setupAlignerTest()
	s := &schema.Schema{
		Name: "strict",
		Columns: []schema.ColumnSpec{
			{Name: "required_col", Type: schema.StringType(), Required: true},
		},
	}
	f, _ := frame.New(frame.NewSeries("unrelated", frame.String("x")))

	rec := decision.NewNodeRecorder("n1", "test")
	_, err := aligner.AlignFrame(context.Background(), AlignRequest{Frame: f, Schema: s}, rec)
	if !errors.Is(err, ErrMissingRequiredColumn) {
		t.Fatalf("err = %v, want ErrMissingRequiredColumn", err)
	}
}

func TestAlignFrameNullabilityValidation(t *testing.T) {
	aligner, _ := setupAlignerTest()
	s := &schema.Schema{
		Name: "strict",
		Columns: []schema.ColumnSpec{
			{Name: "position", Type: schema.IntType(), Required: true},
		},
	}
	f, _ := frame.New(frame.NewSeries("position", frame.Int(1), frame.Null()))

	rec := decision.NewNodeRecorder("n1", "test")
	_, err := aligner.AlignFrame(context.Background(), AlignRequest{Frame: f, Schema: s}, rec)
	if !errors.Is(err, ErrSchemaValidation) {
		t.Fatalf("err = %v, want ErrSchemaValidation", err)
	}
}

func TestAlignFrameDropsUnclaimedColumns(t *testing.T) {
	aligner, _ := setupAlignerTest()
	s := &schema.Schema{
		Name: "narrow",
		Columns: []schema.ColumnSpec{
			{Name: "kept", Type: schema.StringType(), Required: true},
		},
	}
	f, _ := frame.New(
		frame.NewSeries("kept", frame.String("a")),
		frame.NewSeries("dropped", frame.String("b")),
	)

	rec := decision.NewNodeRecorder("n1", "test")
	aligned, err := aligner.AlignFrame(context.Background(), AlignRequest{Frame: f, Schema: s}, rec)
	if err != nil {
		t.Fatalf("AlignFrame: %v", err)
	}
	if aligned.NumColumns() != 1 || !aligned.HasColumn("kept") {
		t.Errorf("columns = %v, want only kept", aligned.ColumnNames())
	}
}

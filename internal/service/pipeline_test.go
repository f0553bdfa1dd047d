package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/concordbio/concord/internal/decision"
	"github.com/concordbio/concord/internal/domain"
	"github.com/concordbio/concord/internal/embedding"
	"github.com/concordbio/concord/internal/frame"
	"github.com/concordbio/concord/internal/llm"
	"github.com/concordbio/concord/internal/schema"
)

func setupPipelineTest(t *testing.T, llmClient *llm.MockClient, entities ...domain.EntityRecord) (*PipelineService, *mockMappingStore, *decision.DirSink, *embedding.MockClient) {
	t.Helper()
	ontology := &mockOntologyStore{entities: entities}
	embedder := embedding.NewMockClient()
	mappings := &mockMappingStore{}
	sink := decision.NewDirSink(t.TempDir())

	normalizer := NewNormalizer(ontology, embedder, llmClient, testLogger())
	extractor := NewPassageExtractor(embedder, llmClient, testLogger())
	aligner := NewAligner(llmClient, normalizer, extractor, testLogger())
	identifier := NewSchemaIdentifier(llmClient, testLogger())
	return NewPipelineService(aligner, identifier, mappings, sink, testLogger()), mappings, sink, embedder
}

func gwasFrame(t *testing.T) *frame.Frame {
	t.Helper()
	f, err := frame.New(
		frame.NewSeries("trait_id", frame.String("asthma")),
		frame.NewSeries("N_CASE", frame.Int(100)),
		frame.NewSeries("N_CONTROL", frame.Int(200)),
		frame.NewSeries("CHR", frame.String("1")),
		frame.NewSeries("POS", frame.Int(12345)),
		frame.NewSeries("REF", frame.String("A")),
		frame.NewSeries("ALT", frame.String("G")),
		frame.NewSeries("BETA", frame.Float(0.12)),
		frame.NewSeries("SE", frame.Float(0.01)),
		frame.NewSeries("P", frame.Float(0.005)),
		frame.NewSeries("EAF", frame.Float(0.21)),
	)
	if err != nil {
		t.Fatalf("frame.New: %v", err)
	}
	return f
}

func TestPipelineProcessGWAS(t *testing.T) {
	llmClient := llm.NewMockClient()
	llmClient.CompleteFunc = func(ctx context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "free text or as identifiers") {
			return "free text", nil
		}
		return "", nil
	}

	pipeline, mappings, sink, embedder := setupPipelineTest(t, llmClient,
		domain.EntityRecord{ID: "MONDO:0004979", Name: "asthma", Type: domain.EntityDisease, Embedding: []float32{1, 0, 0}},
	)
	embedder.Vectors["asthma"] = []float32{1, 0, 0}

	result, err := pipeline.Process(context.Background(), ProcessRequest{
		Frame:      gwasFrame(t),
		SchemaName: "GWAS",
		FilePath:   "ukb_asthma.tsv",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if result.Schema != "GWAS" {
		t.Errorf("schema = %q, want GWAS", result.Schema)
	}
	want := schema.GWAS().ColumnNames()
	got := result.Frame.ColumnNames()
	if len(got) != len(want) {
		t.Fatalf("columns = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("columns = %v, want %v", got, want)
		}
	}

	samples, _ := result.Frame.Column("num_samples")
	if v, _ := samples.Values[0].IntVal(); v != 300 {
		t.Errorf("num_samples = %v, want 300", samples.Values[0])
	}
	variant, _ := result.Frame.Column("variant_id")
	if v, _ := variant.Values[0].StringVal(); v != "1:12345:G:A" {
		t.Errorf("variant_id = %v, want 1:12345:G:A", variant.Values[0])
	}
	dataset, _ := result.Frame.Column("dataset_id")
	if v, _ := dataset.Values[0].StringVal(); v != "ukb_asthma" {
		t.Errorf("dataset_id = %v, want ukb_asthma", dataset.Values[0])
	}
	trait, _ := result.Frame.Column("trait_id")
	if v, _ := trait.Values[0].StringVal(); v != "MONDO:0004979" {
		t.Errorf("trait_id = %v, want MONDO:0004979", trait.Values[0])
	}

	// The node was persisted with terminal success status.
	node, err := sink.GetNode(result.RunID, result.NodeID)
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if node.Status != decision.StatusSuccess {
		t.Errorf("node status = %q, want success", node.Status)
	}

	stored, err := mappings.ListByRun(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("ListByRun: %v", err)
	}
	if len(stored) != 1 || stored[0].Mention != "asthma" || stored[0].EntityID != "MONDO:0004979" {
		t.Fatalf("stored mappings = %+v, want the asthma resolution", stored)
	}
	if stored[0].NormalisedScore < 0.999 {
		t.Errorf("normalised score = %v, want ~1", stored[0].NormalisedScore)
	}
}

func TestPipelineProcessFailureIsLogged(t *testing.T) {
	llmClient := llm.NewMockClient()
	llmClient.CompleteResponse = ""
	pipeline, _, sink, _ := setupPipelineTest(t, llmClient)

	f, _ := frame.New(frame.NewSeries("unrelated", frame.String("x")))
	_, err := pipeline.Process(context.Background(), ProcessRequest{
		Frame:      f,
		SchemaName: "GWAS",
		RunID:      "run-1",
	})
	if !errors.Is(err, ErrMissingRequiredColumn) {
		t.Fatalf("err = %v, want ErrMissingRequiredColumn", err)
	}

	nodes, err := sink.ListNodes("run-1")
	if err != nil {
		t.Fatalf("ListNodes: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("nodes = %d, want 1", len(nodes))
	}
	if nodes[0].Status != decision.StatusFailed {
		t.Errorf("status = %q, want failed", nodes[0].Status)
	}
	last := nodes[0].Decisions[len(nodes[0].Decisions)-1]
	if last.Type != decision.TypeUnableToProcess {
		t.Errorf("last decision = %q, want unable_to_process", last.Type)
	}
}

func TestPipelineProcessUnknownSchemaName(t *testing.T) {
	llmClient := llm.NewMockClient()
	pipeline, _, _, _ := setupPipelineTest(t, llmClient)

	f, _ := frame.New(frame.NewSeries("c", frame.Int(1)))
	_, err := pipeline.Process(context.Background(), ProcessRequest{Frame: f, SchemaName: "nope"})
	if !errors.Is(err, schema.ErrUnknownSchema) {
		t.Fatalf("err = %v, want ErrUnknownSchema", err)
	}
}

func TestPipelineProcessNoSchemaMatched(t *testing.T) {
	llmClient := llm.NewMockClient()
	llmClient.CompleteResponse = "Other"
	pipeline, _, _, _ := setupPipelineTest(t, llmClient)

	f, _ := frame.New(frame.NewSeries("c", frame.Int(1)))
	_, err := pipeline.Process(context.Background(), ProcessRequest{Frame: f, RunID: "run-2"})
	if !errors.Is(err, ErrNoSchemaMatched) {
		t.Fatalf("err = %v, want ErrNoSchemaMatched", err)
	}
}

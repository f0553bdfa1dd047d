package service

import (
	"context"
	"strings"
	"testing"

	"github.com/concordbio/concord/internal/embedding"
	"github.com/concordbio/concord/internal/llm"
)

func TestExtractAnswersWithCitations(t *testing.T) {
	llmClient := llm.NewMockClient()
	llmClient.CompleteResponse = "GRCh38 [[0]]"
	extractor := NewPassageExtractor(embedding.NewMockClient(), llmClient, testLogger())

	passages := []string{"The study was aligned against genome build GRCh38."}
	got, err := extractor.Extract(context.Background(), passages, "What is the genome build?")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Answer != "GRCh38" {
		t.Errorf("answer = %q, want GRCh38", got.Answer)
	}
	if len(got.References) != 1 || !strings.Contains(got.References[0].Text, "GRCh38") {
		t.Errorf("references = %+v, want the source chunk", got.References)
	}
}

func TestExtractIgnoresOutOfRangeCitations(t *testing.T) {
	llmClient := llm.NewMockClient()
	llmClient.CompleteResponse = "12500 [[0, 7]]"
	extractor := NewPassageExtractor(embedding.NewMockClient(), llmClient, testLogger())

	got, err := extractor.Extract(context.Background(), []string{"There were 12500 cases."}, "How many cases?")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Answer != "12500" {
		t.Errorf("answer = %q, want 12500", got.Answer)
	}
	if len(got.References) != 1 {
		t.Errorf("references = %d, want 1 (index 7 dropped)", len(got.References))
	}
}

func TestExtractNoneMeansNoAnswer(t *testing.T) {
	llmClient := llm.NewMockClient()
	llmClient.CompleteResponse = "None"
	extractor := NewPassageExtractor(embedding.NewMockClient(), llmClient, testLogger())

	got, err := extractor.Extract(context.Background(), []string{"Unrelated text here."}, "What is the genome build?")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Answer != "" || len(got.References) != 0 {
		t.Errorf("extraction = %+v, want empty", got)
	}
}

func TestExtractEmptyPassages(t *testing.T) {
	llmClient := llm.NewMockClient()
	extractor := NewPassageExtractor(embedding.NewMockClient(), llmClient, testLogger())

	got, err := extractor.Extract(context.Background(), nil, "Anything?")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Answer != "" {
		t.Errorf("answer = %q, want empty", got.Answer)
	}
	if llmClient.CallCount() != 0 {
		t.Errorf("LLM calls = %d, want 0", llmClient.CallCount())
	}
}

func TestParseCitedAnswer(t *testing.T) {
	tests := []struct {
		in         string
		wantAnswer string
		wantCited  []int
	}{
		{"GRCh38 [[0]]", "GRCh38", []int{0}},
		{"around 500 cases [[1,2]]", "around 500 cases", []int{1, 2}},
		{"no citations at all", "no citations at all", nil},
		{`"quoted" [[3]]`, "quoted", []int{3}},
	}
	for _, tt := range tests {
		answer, cited := parseCitedAnswer(tt.in)
		if answer != tt.wantAnswer {
			t.Errorf("parseCitedAnswer(%q) answer = %q, want %q", tt.in, answer, tt.wantAnswer)
		}
		if len(cited) != len(tt.wantCited) {
			t.Errorf("parseCitedAnswer(%q) cited = %v, want %v", tt.in, cited, tt.wantCited)
			continue
		}
		for i := range cited {
			if cited[i] != tt.wantCited[i] {
				t.Errorf("parseCitedAnswer(%q) cited = %v, want %v", tt.in, cited, tt.wantCited)
			}
		}
	}
}

func TestChunkPassagesSplitsOnSentences(t *testing.T) {
	long := strings.Repeat("This sentence pads the passage out to a useful length. ", 40)
	chunks := chunkPassages([]string{long}, 1000)
	if len(chunks) < 2 {
		t.Fatalf("chunks = %d, want several for a %d-char passage", len(chunks), len(long))
	}
	for i, chunk := range chunks {
		if !strings.HasSuffix(strings.TrimSpace(chunk), ".") {
			t.Errorf("chunk %d does not end on a sentence boundary: %q", i, chunk[len(chunk)-20:])
		}
		if len(chunk) > 1100 {
			t.Errorf("chunk %d is %d chars, want around the target size", i, len(chunk))
		}
	}
}

func TestChunkPassagesNoPunctuation(t *testing.T) {
	chunks := chunkPassages([]string{"a passage without sentence punctuation"}, 1000)
	if len(chunks) != 1 || chunks[0] != "a passage without sentence punctuation" {
		t.Errorf("chunks = %v, want the passage untouched", chunks)
	}
}

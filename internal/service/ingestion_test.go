package service

import (
	"context"
	"strings"
	"testing"

	"github.com/concordbio/concord/internal/domain"
	"github.com/concordbio/concord/internal/embedding"
)

const nodesDump = "id\tname\tcategory\tdescription\tsynonym\txref\tiri\n" +
	"MONDO:0004979\tasthma\tbiolink:Disease\tA bronchial disease.\tbronchial asthma|asthma bronchiale\tDOID:2841|MESH:D001249\thttp://purl.obolibrary.org/obo/MONDO_0004979\n" +
	"UBERON:0002048\tlung\tbiolink:GrossAnatomicalStructure\tRespiration organ.\t\tMESH:D008168\t\n" +
	"X:1\tmystery\tbiolink:NotARealCategory\t\t\t\t\n" +
	"X:2\t\tbiolink:Disease\tno name\t\t\t\n"

func TestIngestNodes(t *testing.T) {
	ontology := &mockOntologyStore{}
	svc := NewIngestionService(ontology, embedding.NewMockClient(), testLogger())

	count, err := svc.IngestNodes(context.Background(), strings.NewReader(nodesDump))
	if err != nil {
		t.Fatalf("IngestNodes: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2 (unknown category and empty name skipped)", count)
	}

	asthma, err := ontology.GetByID(context.Background(), "MONDO:0004979")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if asthma.Type != domain.EntityDisease {
		t.Errorf("type = %q, want Disease (biolink: prefix stripped)", asthma.Type)
	}
	if len(asthma.Synonyms) != 2 || asthma.Synonyms[0] != "bronchial asthma" {
		t.Errorf("synonyms = %v, want the |-joined pair split", asthma.Synonyms)
	}
	if len(asthma.Xrefs) != 2 || asthma.Xrefs[1] != "MESH:D001249" {
		t.Errorf("xrefs = %v, want the |-joined pair split", asthma.Xrefs)
	}
	if len(asthma.Embedding) == 0 {
		t.Error("embedding not set")
	}

	lung, err := ontology.GetByID(context.Background(), "UBERON:0002048")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if lung.Type != domain.EntityGrossAnatomicalStructure || len(lung.Synonyms) != 0 {
		t.Errorf("unexpected lung record %+v", lung)
	}
}

func TestIngestNodesIdempotent(t *testing.T) {
	ontology := &mockOntologyStore{}
	svc := NewIngestionService(ontology, embedding.NewMockClient(), testLogger())

	for i := 0; i < 2; i++ {
		if _, err := svc.IngestNodes(context.Background(), strings.NewReader(nodesDump)); err != nil {
			t.Fatalf("IngestNodes pass %d: %v", i, err)
		}
	}
	counts, err := ontology.CountByType(context.Background())
	if err != nil {
		t.Fatalf("CountByType: %v", err)
	}
	if counts[domain.EntityDisease] != 1 || counts[domain.EntityGrossAnatomicalStructure] != 1 {
		t.Errorf("counts = %v, want one of each after re-ingest", counts)
	}
}

func TestIngestNodesMissingColumn(t *testing.T) {
	svc := NewIngestionService(&mockOntologyStore{}, embedding.NewMockClient(), testLogger())

	_, err := svc.IngestNodes(context.Background(), strings.NewReader("id\tname\nX:1\tthing\n"))
	if err == nil || !strings.Contains(err.Error(), "category") {
		t.Fatalf("err = %v, want missing category column", err)
	}
}

func TestSplitMultiValue(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"one", 1},
		{"a|b|c", 3},
		{"a||b", 2},
	}
	for _, tt := range tests {
		if got := splitMultiValue(tt.in); len(got) != tt.want {
			t.Errorf("splitMultiValue(%q) = %v, want %d parts", tt.in, got, tt.want)
		}
	}
}

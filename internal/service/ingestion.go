package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/concordbio/concord/internal/domain"
)

// ingestBatchSize is how many entities are embedded and upserted at once.
const ingestBatchSize = 64

// ErrMissingColumn is returned when the node dump header lacks a column
// the ingestion needs.
var ErrMissingColumn = errors.New("node dump missing column")

// biolinkPrefix precedes category values in knowledge-graph node dumps.
const biolinkPrefix = "biolink:"

// IngestionService loads a knowledge-graph node dump into the ontology
// store, embedding entity names along the way. Re-ingesting the same
// dump overwrites existing entities.
type IngestionService struct {
	store    domain.OntologyStore
	embedder domain.EmbeddingClient
	logger   *zap.Logger
}

func NewIngestionService(store domain.OntologyStore, embedder domain.EmbeddingClient, logger *zap.Logger) *IngestionService {
	return &IngestionService{store: store, embedder: embedder, logger: logger}
}

// IngestNodes streams a tab-separated node dump with a header row.
// Rows with unknown entity types or empty names are skipped. Returns how
// many entities were stored.
func (s *IngestionService) IngestNodes(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("reading header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"id", "name", "category"} {
		if _, ok := cols[required]; !ok {
			return 0, fmt.Errorf("%w: %q", ErrMissingColumn, required)
		}
	}

	total := 0
	skipped := 0
	batch := make([]domain.EntityRecord, 0, ingestBatchSize)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return total, fmt.Errorf("reading row: %w", err)
		}

		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		category := strings.TrimPrefix(field("category"), biolinkPrefix)
		name := field("name")
		if name == "" || !domain.ValidEntityType(category) {
			skipped++
			continue
		}

		batch = append(batch, domain.EntityRecord{
			ID:          field("id"),
			Name:        name,
			Description: field("description"),
			Type:        domain.EntityType(category),
			Synonyms:    splitMultiValue(field("synonym")),
			Xrefs:       splitMultiValue(field("xref")),
			IRI:         field("iri"),
		})
		if len(batch) == ingestBatchSize {
			if err := s.flush(ctx, batch); err != nil {
				return total, err
			}
			total += len(batch)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := s.flush(ctx, batch); err != nil {
			return total, err
		}
		total += len(batch)
	}

	s.logger.Info("node dump ingested",
		zap.Int("stored", total),
		zap.Int("skipped", skipped))
	return total, nil
}

// flush embeds the batch's names and upserts it.
func (s *IngestionService) flush(ctx context.Context, batch []domain.EntityRecord) error {
	names := make([]string, len(batch))
	for i, e := range batch {
		names[i] = e.Name
	}
	vectors, err := s.embedder.EmbedBatch(ctx, names)
	if err != nil {
		return fmt.Errorf("embedding batch: %w", err)
	}
	for i := range batch {
		batch[i].Embedding = vectors[i]
	}
	if err := s.store.Upsert(ctx, batch); err != nil {
		return fmt.Errorf("upserting batch: %w", err)
	}
	return nil
}

// splitMultiValue splits a |-joined cell, dropping empty parts.
func splitMultiValue(cell string) []string {
	if cell == "" {
		return nil
	}
	parts := strings.Split(cell, "|")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

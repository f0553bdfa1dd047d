package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/concordbio/concord/internal/domain"
)

// OntologyRetriever resolves mention strings to candidate ontology
// entities by embedding the mentions and running a nearest-neighbour
// search over the stored entity embeddings.
type OntologyRetriever struct {
	store    domain.OntologyStore
	embedder domain.EmbeddingClient
}

func NewOntologyRetriever(store domain.OntologyStore, embedder domain.EmbeddingClient) *OntologyRetriever {
	return &OntologyRetriever{store: store, embedder: embedder}
}

// Retrieve returns the topK closest entities of the given types for each
// query, in query order. Candidates come back sorted by similarity,
// best first.
func (r *OntologyRetriever) Retrieve(ctx context.Context, queries []string, topK int, types []domain.EntityType) ([][]domain.EntityMatch, error) {
	if len(queries) == 0 {
		return nil, nil
	}
	vectors, err := r.embedder.EmbedBatch(ctx, queries)
	if err != nil {
		return nil, fmt.Errorf("embedding %d queries: %w", len(queries), err)
	}
	results := make([][]domain.EntityMatch, len(queries))
	for i, vector := range vectors {
		matches, err := r.store.Search(ctx, vector, domain.SearchOpts{TopK: topK, Types: types})
		if err != nil {
			return nil, fmt.Errorf("searching for %q: %w", queries[i], err)
		}
		results[i] = matches
	}
	return results, nil
}

// ScoredChunk is one context chunk with its similarity to a query.
type ScoredChunk struct {
	Index      int
	Text       string
	Similarity float64
}

// PassageIndex is a small in-memory dense index over free-text chunks,
// built once per alignment session for retrieval-augmented extraction.
type PassageIndex struct {
	chunks   []string
	vectors  [][]float32
	embedder domain.EmbeddingClient
}

func BuildPassageIndex(ctx context.Context, embedder domain.EmbeddingClient, chunks []string) (*PassageIndex, error) {
	vectors, err := embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}
	return &PassageIndex{chunks: chunks, vectors: vectors, embedder: embedder}, nil
}

// Retrieve returns the topK chunks most similar to the query, best first.
func (idx *PassageIndex) Retrieve(ctx context.Context, query string, topK int) ([]ScoredChunk, error) {
	if len(idx.chunks) == 0 {
		return nil, nil
	}
	vector, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	scored := make([]ScoredChunk, len(idx.chunks))
	for i, chunk := range idx.chunks {
		scored[i] = ScoredChunk{Index: i, Text: chunk, Similarity: cosineSimilarity(vector, idx.vectors[i])}
	}
	sort.SliceStable(scored, func(a, b int) bool { return scored[a].Similarity > scored[b].Similarity })
	if topK > 0 && topK < len(scored) {
		scored = scored[:topK]
	}
	return scored, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

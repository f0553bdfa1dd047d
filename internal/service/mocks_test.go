package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/concordbio/concord/internal/domain"
	"github.com/concordbio/concord/internal/store"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

// mockOntologyStore implements domain.OntologyStore in memory. Search
// ranks the stored entities by cosine similarity to the query vector.
type mockOntologyStore struct {
	mu          sync.Mutex
	entities    []domain.EntityRecord
	searchCalls int
	xrefCalls   int
}

var _ domain.OntologyStore = (*mockOntologyStore)(nil)

func (m *mockOntologyStore) Upsert(ctx context.Context, entities []domain.EntityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
outer:
	for _, e := range entities {
		for i := range m.entities {
			if m.entities[i].ID == e.ID && m.entities[i].Type == e.Type {
				m.entities[i] = e
				continue outer
			}
		}
		m.entities = append(m.entities, e)
	}
	return nil
}

func (m *mockOntologyStore) GetByID(ctx context.Context, id string) (*domain.EntityRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entities {
		if m.entities[i].ID == id {
			e := m.entities[i]
			return &e, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockOntologyStore) Search(ctx context.Context, embedding []float32, opts domain.SearchOpts) ([]domain.EntityMatch, error) {
	m.mu.Lock()
	m.searchCalls++
	entities := make([]domain.EntityRecord, len(m.entities))
	copy(entities, m.entities)
	m.mu.Unlock()

	var matches []domain.EntityMatch
	for _, e := range entities {
		if len(e.Embedding) == 0 || !typeAllowed(e.Type, opts.Types) {
			continue
		}
		matches = append(matches, domain.EntityMatch{
			EntityRecord: e,
			Similarity:   cosineSimilarity(embedding, e.Embedding),
		})
	}
	sort.SliceStable(matches, func(a, b int) bool { return matches[a].Similarity > matches[b].Similarity })
	topK := opts.TopK
	if topK <= 0 {
		topK = 10
	}
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *mockOntologyStore) LoadXrefs(ctx context.Context, types []domain.EntityType) ([]domain.XrefRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.xrefCalls++
	var rows []domain.XrefRow
	for _, e := range m.entities {
		if !typeAllowed(e.Type, types) {
			continue
		}
		for _, x := range e.Xrefs {
			rows = append(rows, domain.XrefRow{EntityID: e.ID, EntityName: e.Name, Xref: x})
		}
	}
	return rows, nil
}

func (m *mockOntologyStore) CountByType(ctx context.Context) (map[domain.EntityType]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[domain.EntityType]int64)
	for _, e := range m.entities {
		counts[e.Type]++
	}
	return counts, nil
}

func typeAllowed(t domain.EntityType, types []domain.EntityType) bool {
	if len(types) == 0 {
		return true
	}
	for _, allowed := range types {
		if t == allowed {
			return true
		}
	}
	return false
}

// mockMappingStore implements domain.MappingStore in memory.
type mockMappingStore struct {
	mu      sync.Mutex
	records []domain.MappingRecord
	nextID  int64
}

var _ domain.MappingStore = (*mockMappingStore)(nil)

func (m *mockMappingStore) Append(ctx context.Context, records []domain.MappingRecord) ([]domain.MappingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.MappingRecord, len(records))
	for i, r := range records {
		m.nextID++
		r.ID = m.nextID
		r.NormalisedScore = (r.Score + 1) / 2
		r.CreatedAt = time.Now().UTC()
		r.UpdatedAt = r.CreatedAt
		m.records = append(m.records, r)
		out[i] = r
	}
	return out, nil
}

func (m *mockMappingStore) GetByID(ctx context.Context, id int64) (*domain.MappingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == id {
			r := m.records[i]
			return &r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockMappingStore) ListByRun(ctx context.Context, runID string) ([]domain.MappingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.MappingRecord
	for _, r := range m.records {
		if r.RunID == runID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockMappingStore) UpdateByID(ctx context.Context, id int64, entityID, entityName string, score *float64) (*domain.MappingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == id {
			m.records[i].EntityID = entityID
			m.records[i].EntityName = entityName
			if score != nil {
				m.records[i].Score = *score
				m.records[i].NormalisedScore = (*score + 1) / 2
			}
			m.records[i].UpdatedAt = time.Now().UTC()
			r := m.records[i]
			return &r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockMappingStore) Aggregate(ctx context.Context, types []domain.EntityType) ([]domain.MappingAggregate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	type key struct{ mention, entityID string }
	sums := make(map[key]*domain.MappingAggregate)
	var order []key
	for _, r := range m.records {
		k := key{r.Mention, r.EntityID}
		agg, ok := sums[k]
		if !ok {
			agg = &domain.MappingAggregate{Mention: r.Mention, EntityID: r.EntityID, EntityName: r.EntityName}
			sums[k] = agg
			order = append(order, k)
		}
		agg.MeanScore = (agg.MeanScore*float64(agg.Count) + r.Score) / float64(agg.Count+1)
		agg.Count++
	}
	out := make([]domain.MappingAggregate, 0, len(order))
	for _, k := range order {
		out = append(out, *sums[k])
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Count > out[b].Count })
	return out, nil
}

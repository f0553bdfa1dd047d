package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/concordbio/concord/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

type OntologyStore struct {
	db *pgxpool.Pool
}

func NewOntologyStore(db *pgxpool.Pool) *OntologyStore {
	return &OntologyStore{db: db}
}

var _ domain.OntologyStore = (*OntologyStore)(nil)

// Upsert writes entities keyed by (id, type) so re-ingesting the same
// dump overwrites rather than duplicates. All rows go in one transaction.
func (s *OntologyStore) Upsert(ctx context.Context, entities []domain.EntityRecord) error {
	if len(entities) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entities {
		var embedding *pgvector.Vector
		if len(e.Embedding) > 0 {
			v := pgvector.NewVector(e.Embedding)
			embedding = &v
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO ontology_entities (id, type, name, description, synonyms, xrefs, iri, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (id, type) DO UPDATE
			 SET name = EXCLUDED.name,
			     description = EXCLUDED.description,
			     synonyms = EXCLUDED.synonyms,
			     xrefs = EXCLUDED.xrefs,
			     iri = EXCLUDED.iri,
			     embedding = EXCLUDED.embedding,
			     updated_at = NOW()`,
			e.ID, string(e.Type), e.Name, e.Description, e.Synonyms, e.Xrefs, e.IRI, embedding,
		)
		if err != nil {
			return fmt.Errorf("upserting entity %q: %w", e.ID, err)
		}
	}
	return tx.Commit(ctx)
}

func (s *OntologyStore) GetByID(ctx context.Context, id string) (*domain.EntityRecord, error) {
	e := &domain.EntityRecord{}
	var typ string
	err := s.db.QueryRow(ctx,
		`SELECT id, type, name, description, synonyms, xrefs, iri
		 FROM ontology_entities WHERE id = $1
		 ORDER BY type LIMIT 1`,
		id,
	).Scan(&e.ID, &typ, &e.Name, &e.Description, &e.Synonyms, &e.Xrefs, &e.IRI)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	e.Type = domain.EntityType(typ)
	return e, nil
}

func (s *OntologyStore) Search(ctx context.Context, embedding []float32, opts domain.SearchOpts) ([]domain.EntityMatch, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = 10
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, type, name, description, synonyms, xrefs, iri,
		        1 - (embedding <=> $1::vector) as similarity
		 FROM ontology_entities
		 WHERE embedding IS NOT NULL
		   AND (cardinality($2::text[]) = 0 OR type = ANY($2::text[]))
		 ORDER BY similarity DESC
		 LIMIT $3`,
		pgvector.NewVector(embedding), typeStrings(opts.Types), topK,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []domain.EntityMatch
	for rows.Next() {
		var m domain.EntityMatch
		var typ string
		if err := rows.Scan(&m.ID, &typ, &m.Name, &m.Description, &m.Synonyms, &m.Xrefs, &m.IRI, &m.Similarity); err != nil {
			return nil, err
		}
		m.Type = domain.EntityType(typ)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// LoadXrefs explodes each entity's xref list into one row per
// (entity, xref) pair, ordered by entity id.
func (s *OntologyStore) LoadXrefs(ctx context.Context, types []domain.EntityType) ([]domain.XrefRow, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, x.xref
		 FROM ontology_entities, LATERAL unnest(xrefs) AS x(xref)
		 WHERE cardinality($1::text[]) = 0 OR type = ANY($1::text[])
		 ORDER BY id`,
		typeStrings(types),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var xrefs []domain.XrefRow
	for rows.Next() {
		var x domain.XrefRow
		if err := rows.Scan(&x.EntityID, &x.EntityName, &x.Xref); err != nil {
			return nil, err
		}
		xrefs = append(xrefs, x)
	}
	return xrefs, rows.Err()
}

func (s *OntologyStore) CountByType(ctx context.Context) (map[domain.EntityType]int64, error) {
	rows, err := s.db.Query(ctx,
		`SELECT type, COUNT(*) FROM ontology_entities GROUP BY type`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.EntityType]int64)
	for rows.Next() {
		var typ string
		var count int64
		if err := rows.Scan(&typ, &count); err != nil {
			return nil, err
		}
		counts[domain.EntityType(typ)] = count
	}
	return counts, rows.Err()
}

func typeStrings(types []domain.EntityType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

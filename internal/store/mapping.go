package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/concordbio/concord/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MappingStore struct {
	db *pgxpool.Pool
}

func NewMappingStore(db *pgxpool.Pool) *MappingStore {
	return &MappingStore{db: db}
}

var _ domain.MappingStore = (*MappingStore)(nil)

// Append inserts the records and returns them with assigned ids. The
// similarity score is also stored shifted into [0, 1] so the review UI
// can show a percentage.
func (s *MappingStore) Append(ctx context.Context, records []domain.MappingRecord) ([]domain.MappingRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	out := make([]domain.MappingRecord, len(records))
	for i, r := range records {
		r.NormalisedScore = (r.Score + 1) / 2
		err := tx.QueryRow(ctx,
			`INSERT INTO mappings (run_id, column_name, mention, entity_id, entity_name, types, score, normalised_score)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id, created_at, updated_at`,
			r.RunID, r.ColumnName, r.Mention, r.EntityID, r.EntityName, typeStrings(r.Types), r.Score, r.NormalisedScore,
		).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("inserting mapping for %q: %w", r.Mention, err)
		}
		out[i] = r
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MappingStore) GetByID(ctx context.Context, id int64) (*domain.MappingRecord, error) {
	r := &domain.MappingRecord{}
	var types []string
	err := s.db.QueryRow(ctx,
		`SELECT id, run_id, column_name, mention, entity_id, entity_name, types, score, normalised_score, created_at, updated_at
		 FROM mappings WHERE id = $1`,
		id,
	).Scan(&r.ID, &r.RunID, &r.ColumnName, &r.Mention, &r.EntityID, &r.EntityName, &types, &r.Score, &r.NormalisedScore, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	r.Types = entityTypes(types)
	return r, nil
}

func (s *MappingStore) ListByRun(ctx context.Context, runID string) ([]domain.MappingRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, run_id, column_name, mention, entity_id, entity_name, types, score, normalised_score, created_at, updated_at
		 FROM mappings WHERE run_id = $1 ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.MappingRecord
	for rows.Next() {
		var r domain.MappingRecord
		var types []string
		if err := rows.Scan(&r.ID, &r.RunID, &r.ColumnName, &r.Mention, &r.EntityID, &r.EntityName, &types, &r.Score, &r.NormalisedScore, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.Types = entityTypes(types)
		records = append(records, r)
	}
	return records, rows.Err()
}

// UpdateByID replaces a mapping's resolved entity. A nil score keeps the
// recorded one.
func (s *MappingStore) UpdateByID(ctx context.Context, id int64, entityID, entityName string, score *float64) (*domain.MappingRecord, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE mappings
		 SET entity_id = $2,
		     entity_name = $3,
		     score = COALESCE($4, score),
		     normalised_score = COALESCE(($4 + 1) / 2, normalised_score),
		     updated_at = NOW()
		 WHERE id = $1`,
		id, entityID, entityName, score,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

// Aggregate groups mappings by (entity, mention) across runs, most
// frequent first, optionally filtered to entity types.
func (s *MappingStore) Aggregate(ctx context.Context, types []domain.EntityType) ([]domain.MappingAggregate, error) {
	rows, err := s.db.Query(ctx,
		`SELECT mention, entity_id, entity_name, COUNT(*), AVG(score)
		 FROM mappings
		 WHERE cardinality($1::text[]) = 0 OR types && $1::text[]
		 GROUP BY mention, entity_id, entity_name
		 ORDER BY COUNT(*) DESC, mention`,
		typeStrings(types),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var aggregates []domain.MappingAggregate
	for rows.Next() {
		var a domain.MappingAggregate
		if err := rows.Scan(&a.Mention, &a.EntityID, &a.EntityName, &a.Count, &a.MeanScore); err != nil {
			return nil, err
		}
		aggregates = append(aggregates, a)
	}
	return aggregates, rows.Err()
}

func entityTypes(types []string) []domain.EntityType {
	out := make([]domain.EntityType, len(types))
	for i, t := range types {
		out[i] = domain.EntityType(t)
	}
	return out
}

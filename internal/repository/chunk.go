package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/luminary-chat/luminary/internal/domain"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository implements the search-backend contract over the
// database-side retrieval functions. Both search calls are pure reads and
// safe to run concurrently.
type ChunkRepository struct {
	pool *pgxpool.Pool
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{pool: pool}
}

// Insert stores a chunk with its embedding.
func (r *ChunkRepository) Insert(ctx context.Context, c *domain.Chunk) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if len(c.Embedding) != domain.EmbeddingDimensions {
		return domain.NewDomainError(domain.ErrCodeValidation, "embedding has wrong dimensions")
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO persona_chunks (id, persona_id, content, document_title, source_key, embedding, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.PersonaID, c.Content, c.DocumentTitle, c.SourceKey, pgvector.NewVector(c.Embedding), c.Metadata,
	)
	return err
}

// VectorSearch runs pure cosine-similarity retrieval via match_chunks.
// Similarity is a cosine score; match_threshold is the minimum similarity
// cutoff. Returns up to matchCount rows, fewer is not an error.
func (r *ChunkRepository) VectorSearch(ctx context.Context, embedding []float32, personaSlug string, matchThreshold float64, matchCount int) ([]*domain.RetrievalCandidate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, content, document_title, similarity, metadata
		 FROM match_chunks($1, $2, $3, $4)`,
		pgvector.NewVector(embedding), personaSlug, matchThreshold, matchCount,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]*domain.RetrievalCandidate, 0)
	for rows.Next() {
		var c domain.RetrievalCandidate
		if err := rows.Scan(&c.ID, &c.Content, &c.DocumentTitle, &c.Similarity, &c.Metadata); err != nil {
			return nil, err
		}
		results = append(results, &c)
	}

	return results, rows.Err()
}

// HybridSearch fuses vector and full-text retrieval via
// hybrid_search_chunks. keyword_rank is null for rows the keyword leg never
// matched; combined_score is the fused RRF score.
func (r *ChunkRepository) HybridSearch(ctx context.Context, embedding []float32, queryText, personaSlug string, matchCount int, vectorThreshold, keywordWeight float64, rrfConstant int) ([]*domain.RetrievalCandidate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, content, document_title, similarity, keyword_rank, combined_score, metadata
		 FROM hybrid_search_chunks($1, $2, $3, $4, $5, $6, $7)`,
		pgvector.NewVector(embedding), queryText, personaSlug, matchCount, vectorThreshold, keywordWeight, rrfConstant,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]*domain.RetrievalCandidate, 0)
	for rows.Next() {
		var c domain.RetrievalCandidate
		if err := rows.Scan(&c.ID, &c.Content, &c.DocumentTitle, &c.Similarity, &c.KeywordRank, &c.CombinedScore, &c.Metadata); err != nil {
			return nil, err
		}
		results = append(results, &c)
	}

	return results, rows.Err()
}

// GetByID fetches a single chunk without its embedding; used by the
// source-document endpoint.
func (r *ChunkRepository) GetByID(ctx context.Context, id string) (*domain.Chunk, error) {
	var c domain.Chunk
	err := r.pool.QueryRow(ctx,
		`SELECT c.id, c.persona_id, p.slug, c.content, c.document_title, c.source_key, c.metadata, c.created_at
		 FROM persona_chunks c
		 JOIN personas p ON p.id = c.persona_id
		 WHERE c.id = $1`,
		id,
	).Scan(&c.ID, &c.PersonaID, &c.PersonaSlug, &c.Content, &c.DocumentTitle, &c.SourceKey, &c.Metadata, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChunkNotFound
		}
		return nil, err
	}

	return &c, nil
}

// CountByPersona reports the corpus size for a persona; used by the admin CLI.
func (r *ChunkRepository) CountByPersona(ctx context.Context, personaSlug string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*)
		 FROM persona_chunks c
		 JOIN personas p ON p.id = c.persona_id
		 WHERE p.slug = $1`,
		personaSlug,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/luminary-chat/luminary/internal/domain"
	"github.com/luminary-chat/luminary/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// axisEmbedding returns a unit vector along the given axis. Identical axes
// have cosine similarity 1.0, distinct axes 0.0, which makes search
// assertions deterministic.
func axisEmbedding(axis int) []float32 {
	v := make([]float32, domain.EmbeddingDimensions)
	v[axis] = 1.0
	return v
}

func seedChunkCorpus(ctx context.Context, t *testing.T, personas *PersonaRepository, chunks *ChunkRepository) *domain.Persona {
	t.Helper()

	p := &domain.Persona{Slug: "elon-musk", Name: "Elon Musk"}
	require.NoError(t, personas.Create(ctx, p))

	title := "Interview 2019"
	sourceKey := "sources/interview-2019.pdf"
	fixtures := []*domain.Chunk{
		{
			ID:        "c-1",
			PersonaID: p.ID,
			Content:   "Reusable rockets make spaceflight affordable.",
			Embedding: axisEmbedding(0),
		},
		{
			ID:            "c-2",
			PersonaID:     p.ID,
			Content:       "Autopilot safety improves with every fleet mile.",
			DocumentTitle: &title,
			SourceKey:     &sourceKey,
			Embedding:     axisEmbedding(1),
			Metadata:      map[string]any{"year": 2019},
		},
		{
			ID:        "c-3",
			PersonaID: p.ID,
			Content:   "Solar energy is the long term answer.",
			Embedding: axisEmbedding(2),
		},
	}
	for _, c := range fixtures {
		require.NoError(t, chunks.Insert(ctx, c))
	}

	return p
}

func TestChunkRepository_VectorSearch(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	personas := NewPersonaRepository(pool)
	chunks := NewChunkRepository(pool)
	seedChunkCorpus(ctx, t, personas, chunks)

	results, err := chunks.VectorSearch(ctx, axisEmbedding(1), "elon-musk", 0.5, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c-2", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
	require.NotNil(t, results[0].DocumentTitle)
	assert.Equal(t, "Interview 2019", *results[0].DocumentTitle)
	assert.Equal(t, float64(2019), results[0].Metadata["year"])
}

func TestChunkRepository_VectorSearch_ThresholdFiltersAll(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	personas := NewPersonaRepository(pool)
	chunks := NewChunkRepository(pool)
	seedChunkCorpus(ctx, t, personas, chunks)

	// A direction orthogonal to the whole corpus matches nothing.
	results, err := chunks.VectorSearch(ctx, axisEmbedding(42), "elon-musk", 0.5, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChunkRepository_VectorSearch_ScopedToPersona(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	personas := NewPersonaRepository(pool)
	chunks := NewChunkRepository(pool)
	seedChunkCorpus(ctx, t, personas, chunks)

	other := &domain.Persona{Slug: "ada-lovelace", Name: "Ada Lovelace"}
	require.NoError(t, personas.Create(ctx, other))

	results, err := chunks.VectorSearch(ctx, axisEmbedding(0), "ada-lovelace", 0.0, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChunkRepository_HybridSearch(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	personas := NewPersonaRepository(pool)
	chunks := NewChunkRepository(pool)
	seedChunkCorpus(ctx, t, personas, chunks)

	results, err := chunks.HybridSearch(ctx, axisEmbedding(1), "autopilot safety", "elon-musk", 5, 0.0, 0.3, 60)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	// The chunk matching both legs wins the fused ranking and carries a
	// keyword rank; purely vector-side rows leave it null.
	top := results[0]
	assert.Equal(t, "c-2", top.ID)
	require.NotNil(t, top.KeywordRank)
	assert.Equal(t, 1, *top.KeywordRank)
	require.NotNil(t, top.CombinedScore)

	for _, r := range results[1:] {
		assert.Nil(t, r.KeywordRank)
		require.NotNil(t, r.CombinedScore)
		assert.Less(t, *r.CombinedScore, *top.CombinedScore)
	}
}

func TestChunkRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	personas := NewPersonaRepository(pool)
	chunks := NewChunkRepository(pool)
	seedChunkCorpus(ctx, t, personas, chunks)

	chunk, err := chunks.GetByID(ctx, "c-2")
	require.NoError(t, err)
	assert.Equal(t, "elon-musk", chunk.PersonaSlug)
	require.NotNil(t, chunk.SourceKey)
	assert.Equal(t, "sources/interview-2019.pdf", *chunk.SourceKey)

	_, err = chunks.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrChunkNotFound)
}

func TestChunkRepository_CountByPersona(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	personas := NewPersonaRepository(pool)
	chunks := NewChunkRepository(pool)
	seedChunkCorpus(ctx, t, personas, chunks)

	count, err := chunks.CountByPersona(ctx, "elon-musk")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	count, err = chunks.CountByPersona(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

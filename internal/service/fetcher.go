package service

import (
	"context"
	"log"
	"strings"

	"github.com/luminary-chat/luminary/internal/domain"
)

const (
	// DefaultTopK is the number of grounding chunks returned when the
	// caller does not ask for a specific count.
	DefaultTopK = 5

	// rerankOversampleFactor widens the candidate pool when a reranker
	// will run; the cross-encoder's value comes from re-ordering a wider
	// pool than the final cut.
	rerankOversampleFactor = 3
)

// EmbeddingClient defines the interface for generating query embeddings.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ChunkSearchRepository defines the search-backend contract: two
// persona-scoped, read-only retrieval primitives. Both return up to
// matchCount rows; fewer is never an error.
type ChunkSearchRepository interface {
	VectorSearch(ctx context.Context, embedding []float32, personaSlug string, matchThreshold float64, matchCount int) ([]*domain.RetrievalCandidate, error)
	HybridSearch(ctx context.Context, embedding []float32, queryText, personaSlug string, matchCount int, vectorThreshold, keywordWeight float64, rrfConstant int) ([]*domain.RetrievalCandidate, error)
}

// FetchInput carries one candidate-fetch request.
type FetchInput struct {
	Query       string
	PersonaSlug string
	TopK        int
	UseHybrid   bool

	// WillRerank widens the fetch to TopK * 3 so the downstream
	// cross-encoder has material to re-order.
	WillRerank bool

	VectorThreshold float64
	KeywordWeight   float64
	RRFConstant     int
}

// CandidateFetcher turns a user query into a pool of retrieval candidates
// ready for reranking: one embedding call, one search-backend call.
type CandidateFetcher struct {
	embedding EmbeddingClient
	repo      ChunkSearchRepository
}

// NewCandidateFetcher creates a new CandidateFetcher.
func NewCandidateFetcher(embedding EmbeddingClient, repo ChunkSearchRepository) *CandidateFetcher {
	return &CandidateFetcher{embedding: embedding, repo: repo}
}

// Fetch returns up to TopK (or TopK * 3 when WillRerank) candidates.
//
// Grounding is an enhancement, not a prerequisite: a failed embedding call
// or an empty result set degrades to an empty list, logged, so the persona
// can still answer ungrounded. A search-backend failure is returned as a
// typed store error; the orchestrator's preset decides whether it fails
// open too.
func (f *CandidateFetcher) Fetch(ctx context.Context, input FetchInput) ([]*domain.RetrievalCandidate, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return []*domain.RetrievalCandidate{}, nil
	}

	topK := input.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	matchCount := topK
	if input.WillRerank {
		matchCount = topK * rerankOversampleFactor
	}

	embedding, err := f.embedding.GenerateEmbedding(ctx, query)
	if err != nil {
		log.Printf("retrieval degraded to ungrounded: %v", domain.NewProviderError(err))
		return []*domain.RetrievalCandidate{}, nil
	}

	var candidates []*domain.RetrievalCandidate
	if input.UseHybrid {
		candidates, err = f.repo.HybridSearch(ctx, embedding, query, input.PersonaSlug, matchCount,
			input.VectorThreshold, input.KeywordWeight, input.RRFConstant)
	} else {
		candidates, err = f.repo.VectorSearch(ctx, embedding, input.PersonaSlug, input.VectorThreshold, matchCount)
	}
	if err != nil {
		return nil, domain.NewStoreError(err)
	}

	normalizeCandidates(candidates)
	return candidates, nil
}

// normalizeCandidates collapses the two row shapes into one: when a hybrid
// row carries a combined score, that score becomes the candidate's
// similarity, so every downstream consumer sorts and displays one field.
func normalizeCandidates(candidates []*domain.RetrievalCandidate) {
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if c.CombinedScore != nil {
			c.Similarity = *c.CombinedScore
		}
	}
}

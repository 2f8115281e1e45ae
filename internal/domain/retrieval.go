package domain

// SearchMode tags which retrieval path produced a result set. It is computed
// from the flags actually used, never guessed. Vector-only retrieval is never
// labeled rerank-aware, even when reranking ran on top of it.
type SearchMode string

const (
	SearchModeHybridRerank SearchMode = "hybrid+rerank"
	SearchModeHybrid       SearchMode = "hybrid"
	SearchModeVector       SearchMode = "vector"
)

// RerankState records whether the cross-encoder actually scored a chunk.
// A RerankScore of 0 means "scored zero" only under StateReranked; under
// StateRerankFailed it is the explicit not-ranked sentinel, and under
// StateNotReranked the score is a copy of Similarity.
type RerankState string

const (
	StateNotReranked  RerankState = "not_reranked"
	StateReranked     RerankState = "reranked"
	StateRerankFailed RerankState = "rerank_failed"
)

// RetrievalCandidate is an ephemeral per-query value produced by the
// candidate fetcher. Similarity is the one authoritative score after row
// normalization: raw cosine similarity in vector mode, the fused combined
// score in hybrid mode. The two are not comparable in absolute magnitude.
type RetrievalCandidate struct {
	ID            string
	Content       string
	DocumentTitle *string
	Similarity    float64
	KeywordRank   *int
	CombinedScore *float64
	Metadata      map[string]any
}

// DocumentID implements service.Document.
func (c *RetrievalCandidate) DocumentID() string { return c.ID }

// DocumentContent implements service.Document.
func (c *RetrievalCandidate) DocumentContent() string { return c.Content }

// RankedChunk is the final output unit after (optional) reranking.
// Constructed once per request, never persisted.
type RankedChunk struct {
	RetrievalCandidate
	RerankScore float64
	RerankState RerankState
}

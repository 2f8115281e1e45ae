package service

import (
	"context"
	"log"
	"sort"

	"github.com/luminary-chat/luminary/internal/domain"
	"github.com/luminary-chat/luminary/internal/rerank"
	"github.com/luminary-chat/luminary/internal/telemetry"
)

// Document is the minimal shape the reranker needs. Anything carrying an
// identifier and a text body can be reranked; all other fields ride along
// untouched on the generic item.
type Document interface {
	DocumentID() string
	DocumentContent() string
}

// RerankClient defines the interface for the cross-encoder provider.
type RerankClient interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]rerank.Result, error)
}

// Ranked pairs an input item with its cross-encoder score and the state
// recording whether the score is real.
type Ranked[T Document] struct {
	Item  T
	Score float64
	State domain.RerankState
}

// RerankDocuments scores items against the query with the cross-encoder and
// returns them sorted by relevance descending, truncated to topN. topN <= 0
// means "rerank everything, drop nothing".
//
// Empty input returns immediately without calling the provider; the rerank
// API is billed per call. Any provider error degrades to the first topN
// items in their original order with score 0 and StateRerankFailed; the
// error is logged and never propagated. This sits on the hot path of every
// chat turn, so a rerank outage must not take down chat.
func RerankDocuments[T Document](ctx context.Context, client RerankClient, query string, items []T, topN int) []Ranked[T] {
	if len(items) == 0 {
		return []Ranked[T]{}
	}

	if topN <= 0 || topN > len(items) {
		topN = len(items)
	}

	documents := make([]string, len(items))
	for i, item := range items {
		documents[i] = item.DocumentContent()
	}

	results, err := client.Rerank(ctx, query, documents, topN)
	if err != nil {
		log.Printf("rerank failed, falling back to retrieval order: %v", domain.NewRerankError(err))
		telemetry.AddBreadcrumb(ctx, "rerank", "cross-encoder unavailable, kept retrieval order")
		fallback := make([]Ranked[T], 0, topN)
		for _, item := range items[:topN] {
			fallback = append(fallback, Ranked[T]{Item: item, Score: 0, State: domain.StateRerankFailed})
		}
		return fallback
	}

	// The provider does not guarantee sorted output. Stable sort keeps
	// provider order on ties.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})

	if len(results) > topN {
		results = results[:topN]
	}

	ranked := make([]Ranked[T], 0, len(results))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(items) {
			continue
		}
		ranked = append(ranked, Ranked[T]{
			Item:  items[r.Index],
			Score: r.RelevanceScore,
			State: domain.StateReranked,
		})
	}

	return ranked
}

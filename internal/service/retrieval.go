package service

import (
	"context"
	"log"
	"strings"

	"github.com/luminary-chat/luminary/internal/domain"
	"github.com/luminary-chat/luminary/internal/telemetry"
)

// Default tunables for the two retrieval presets. The chat path casts a
// wider net (low vector threshold inside hybrid search) than the
// exploratory search endpoint; the divergence is intentional and pinned by
// a regression test.
const (
	ChatVectorThreshold   = 0.3
	SearchVectorThreshold = 0.65
	DefaultKeywordWeight  = 0.3
	DefaultRRFConstant    = 60
)

// RetrievalPreset names a configuration of the retrieval pipeline. The two
// call sites in the system (chat-time grounding and the standalone search
// endpoint) are thin preset objects over one shared control flow.
type RetrievalPreset struct {
	Name            string
	VectorThreshold float64
	KeywordWeight   float64
	RRFConstant     int

	// FailOpen swallows search-backend errors and degrades to an empty
	// grounding list. The chat path fails open; the search endpoint
	// surfaces store errors as the one allowed hard failure.
	FailOpen bool
}

// ChatPreset returns the preset used for chat-time grounding.
func ChatPreset() RetrievalPreset {
	return RetrievalPreset{
		Name:            "chat",
		VectorThreshold: ChatVectorThreshold,
		KeywordWeight:   DefaultKeywordWeight,
		RRFConstant:     DefaultRRFConstant,
		FailOpen:        true,
	}
}

// SearchPreset returns the preset used by the user-facing search endpoint.
func SearchPreset() RetrievalPreset {
	return RetrievalPreset{
		Name:            "search",
		VectorThreshold: SearchVectorThreshold,
		KeywordWeight:   DefaultKeywordWeight,
		RRFConstant:     DefaultRRFConstant,
		FailOpen:        false,
	}
}

// RetrieveInput is one retrieval request. Zero values fall back to the
// preset's defaults; the pointer fields distinguish "unset" from an
// explicit false/zero override.
type RetrieveInput struct {
	Query         string
	PersonaSlug   string
	TopK          int
	Threshold     *float64
	UseHybrid     *bool
	UseRerank     *bool
	KeywordWeight *float64
}

// RetrieveOutput is the ranked grounding set plus the observability tag
// recording which code path actually ran.
type RetrieveOutput struct {
	Chunks      []*domain.RankedChunk
	Query       string
	PersonaSlug string
	SearchMode  domain.SearchMode
}

// RetrievalService is the single retrieval entry point consumed by prompt
// generation and the search endpoint. Stateless per call; the injected
// clients are process-wide and safe for concurrent reuse.
type RetrievalService struct {
	fetcher *CandidateFetcher
	rerank  RerankClient
	preset  RetrievalPreset
}

// NewRetrievalService creates a retrieval service with the given preset.
// rerankClient may be nil, in which case reranking is skipped regardless of
// the per-call flag.
func NewRetrievalService(fetcher *CandidateFetcher, rerankClient RerankClient, preset RetrievalPreset) *RetrievalService {
	return &RetrievalService{
		fetcher: fetcher,
		rerank:  rerankClient,
		preset:  preset,
	}
}

// Preset returns the service's preset.
func (s *RetrievalService) Preset() RetrievalPreset {
	return s.preset
}

// Retrieve runs the pipeline: fetch (oversampled iff reranking), rerank,
// tag. "No results" is never an error; the prompt builder treats an empty
// chunk list as "omit the grounding section".
func (s *RetrievalService) Retrieve(ctx context.Context, input RetrieveInput) (*RetrieveOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, domain.ErrMissingQuery
	}
	if strings.TrimSpace(input.PersonaSlug) == "" {
		return nil, domain.ErrMissingPersonaSlug
	}

	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Retrieve", telemetry.SpanAttributes{
		PersonaSlug: input.PersonaSlug,
		Operation:   s.preset.Name,
	})
	defer span.End()

	topK := input.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	useHybrid := true
	if input.UseHybrid != nil {
		useHybrid = *input.UseHybrid
	}

	useRerank := true
	if input.UseRerank != nil {
		useRerank = *input.UseRerank
	}
	if s.rerank == nil {
		useRerank = false
	}

	threshold := s.preset.VectorThreshold
	if input.Threshold != nil {
		threshold = *input.Threshold
	}

	keywordWeight := s.preset.KeywordWeight
	if input.KeywordWeight != nil {
		keywordWeight = *input.KeywordWeight
	}

	candidates, err := s.fetcher.Fetch(ctx, FetchInput{
		Query:           input.Query,
		PersonaSlug:     input.PersonaSlug,
		TopK:            topK,
		UseHybrid:       useHybrid,
		WillRerank:      useRerank,
		VectorThreshold: threshold,
		KeywordWeight:   keywordWeight,
		RRFConstant:     s.preset.RRFConstant,
	})
	if err != nil {
		if !s.preset.FailOpen {
			return nil, err
		}
		log.Printf("retrieval (%s) degraded to ungrounded: %v", s.preset.Name, err)
		telemetry.CaptureError(ctx, err)
		candidates = []*domain.RetrievalCandidate{}
	}

	var chunks []*domain.RankedChunk
	if useRerank && len(candidates) > 0 {
		ranked := RerankDocuments(ctx, s.rerank, input.Query, candidates, topK)
		chunks = make([]*domain.RankedChunk, 0, len(ranked))
		for _, r := range ranked {
			chunks = append(chunks, &domain.RankedChunk{
				RetrievalCandidate: *r.Item,
				RerankScore:        r.Score,
				RerankState:        r.State,
			})
		}
	} else {
		if len(candidates) > topK {
			candidates = candidates[:topK]
		}
		chunks = make([]*domain.RankedChunk, 0, len(candidates))
		for _, c := range candidates {
			chunks = append(chunks, &domain.RankedChunk{
				RetrievalCandidate: *c,
				RerankScore:        c.Similarity,
				RerankState:        domain.StateNotReranked,
			})
		}
	}

	return &RetrieveOutput{
		Chunks:      chunks,
		Query:       input.Query,
		PersonaSlug: input.PersonaSlug,
		SearchMode:  computeSearchMode(useHybrid, useRerank),
	}, nil
}

// computeSearchMode derives the observability tag from the flags actually
// used. Vector-only retrieval is never labeled rerank-aware even when
// reranking ran on top of it.
func computeSearchMode(useHybrid, useRerank bool) domain.SearchMode {
	switch {
	case useHybrid && useRerank:
		return domain.SearchModeHybridRerank
	case useHybrid:
		return domain.SearchModeHybrid
	default:
		return domain.SearchModeVector
	}
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/luminary-chat/luminary/internal/api"
	"github.com/luminary-chat/luminary/internal/domain"
	"github.com/luminary-chat/luminary/internal/service"
)

// RetrievalService is the orchestrator surface the search endpoint consumes.
type RetrievalService interface {
	Retrieve(ctx context.Context, input service.RetrieveInput) (*service.RetrieveOutput, error)
}

type SearchHandler struct {
	retrieval RetrievalService
	personas  service.PersonaRepository
}

func NewSearchHandler(retrieval RetrievalService, personas service.PersonaRepository) *SearchHandler {
	return &SearchHandler{retrieval: retrieval, personas: personas}
}

type SearchRequest struct {
	Query         string   `json:"query"`
	PersonaSlug   string   `json:"persona_slug"`
	TopK          int      `json:"top_k,omitempty"`
	Threshold     *float64 `json:"threshold,omitempty"`
	UseHybrid     *bool    `json:"use_hybrid,omitempty"`
	UseRerank     *bool    `json:"use_rerank,omitempty"`
	KeywordWeight *float64 `json:"keyword_weight,omitempty"`
}

type RankedChunkResponse struct {
	ID            string         `json:"id"`
	Content       string         `json:"content"`
	DocumentTitle *string        `json:"document_title,omitempty"`
	Similarity    float64        `json:"similarity"`
	KeywordRank   *int           `json:"keyword_rank,omitempty"`
	CombinedScore *float64       `json:"combined_score,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	RerankScore   float64        `json:"rerank_score"`
	RerankState   string         `json:"rerank_state"`
}

type SearchResponse struct {
	Success     bool                   `json:"success"`
	Chunks      []*RankedChunkResponse `json:"chunks"`
	Query       string                 `json:"query,omitempty"`
	PersonaSlug string                 `json:"persona_slug,omitempty"`
	SearchMode  string                 `json:"search_mode,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

func searchError(w http.ResponseWriter, status int, message string) {
	api.JSON(w, status, SearchResponse{Success: false, Chunks: []*RankedChunkResponse{}, Error: message})
}

// Search runs the user-facing retrieval endpoint on the search preset.
// Missing input fails 400 before any network call; a search-backend
// failure is the one error that surfaces as a 500. Rerank outages are
// invisible here beyond rerank_state.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		searchError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		searchError(w, http.StatusBadRequest, domain.ErrMissingQuery.Message)
		return
	}
	if req.PersonaSlug == "" {
		searchError(w, http.StatusBadRequest, domain.ErrMissingPersonaSlug.Message)
		return
	}

	persona, err := h.personas.GetBySlug(r.Context(), req.PersonaSlug)
	if err != nil {
		searchError(w, api.DomainErrorToHTTP(err), err.Error())
		return
	}
	if persona.Archived {
		searchError(w, http.StatusNotFound, domain.ErrPersonaNotFound.Message)
		return
	}

	out, err := h.retrieval.Retrieve(r.Context(), service.RetrieveInput{
		Query:         req.Query,
		PersonaSlug:   req.PersonaSlug,
		TopK:          req.TopK,
		Threshold:     req.Threshold,
		UseHybrid:     req.UseHybrid,
		UseRerank:     req.UseRerank,
		KeywordWeight: req.KeywordWeight,
	})
	if err != nil {
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == domain.ErrCodeValidation {
			searchError(w, http.StatusBadRequest, err.Error())
			return
		}
		searchError(w, http.StatusInternalServerError, err.Error())
		return
	}

	chunks := make([]*RankedChunkResponse, len(out.Chunks))
	for i, c := range out.Chunks {
		chunks[i] = &RankedChunkResponse{
			ID:            c.ID,
			Content:       c.Content,
			DocumentTitle: c.DocumentTitle,
			Similarity:    c.Similarity,
			KeywordRank:   c.KeywordRank,
			CombinedScore: c.CombinedScore,
			Metadata:      c.Metadata,
			RerankScore:   c.RerankScore,
			RerankState:   string(c.RerankState),
		}
	}

	api.JSON(w, http.StatusOK, SearchResponse{
		Success:     true,
		Chunks:      chunks,
		Query:       out.Query,
		PersonaSlug: out.PersonaSlug,
		SearchMode:  string(out.SearchMode),
	})
}

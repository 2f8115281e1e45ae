package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/luminary-chat/luminary/internal/domain"
	"github.com/luminary-chat/luminary/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRetrievalService is a mock implementation of RetrievalService
type MockRetrievalService struct {
	mock.Mock
}

func (m *MockRetrievalService) Retrieve(ctx context.Context, input service.RetrieveInput) (*service.RetrieveOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RetrieveOutput), args.Error(1)
}

// MockPersonaRepo is a mock implementation of service.PersonaRepository
type MockPersonaRepo struct {
	mock.Mock
}

func (m *MockPersonaRepo) GetBySlug(ctx context.Context, slug string) (*domain.Persona, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Persona), args.Error(1)
}

func doSearch(t *testing.T, handler *SearchHandler, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.Search(rec, req)
	return rec
}

func decodeSearch(t *testing.T, rec *httptest.ResponseRecorder) SearchResponse {
	t.Helper()
	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestSearchHandler_Success(t *testing.T) {
	mockRetrieval := new(MockRetrievalService)
	mockPersonas := new(MockPersonaRepo)
	handler := NewSearchHandler(mockRetrieval, mockPersonas)

	mockPersonas.On("GetBySlug", mock.Anything, "elon-musk").
		Return(&domain.Persona{ID: "p-1", Slug: "elon-musk", Name: "Elon Musk"}, nil)
	mockRetrieval.On("Retrieve", mock.Anything, mock.MatchedBy(func(in service.RetrieveInput) bool {
		return in.Query == "tesla autopilot" && in.PersonaSlug == "elon-musk" && in.TopK == 3
	})).Return(&service.RetrieveOutput{
		Chunks: []*domain.RankedChunk{
			{
				RetrievalCandidate: domain.RetrievalCandidate{ID: "c-4", Content: "AI will transform transportation.", Similarity: 0.031},
				RerankScore:        0.95,
				RerankState:        domain.StateReranked,
			},
		},
		Query:       "tesla autopilot",
		PersonaSlug: "elon-musk",
		SearchMode:  domain.SearchModeHybridRerank,
	}, nil)

	rec := doSearch(t, handler, SearchRequest{Query: "tesla autopilot", PersonaSlug: "elon-musk", TopK: 3})

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeSearch(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "hybrid+rerank", resp.SearchMode)
	assert.Equal(t, "elon-musk", resp.PersonaSlug)
	require.Len(t, resp.Chunks, 1)
	assert.Equal(t, "c-4", resp.Chunks[0].ID)
	assert.InDelta(t, 0.95, resp.Chunks[0].RerankScore, 1e-9)
	assert.Equal(t, "reranked", resp.Chunks[0].RerankState)
}

func TestSearchHandler_MissingQuery(t *testing.T) {
	mockRetrieval := new(MockRetrievalService)
	mockPersonas := new(MockPersonaRepo)
	handler := NewSearchHandler(mockRetrieval, mockPersonas)

	rec := doSearch(t, handler, SearchRequest{PersonaSlug: "elon-musk"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeSearch(t, rec)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "query")
	// Validation fails before any lookup or network call.
	mockPersonas.AssertNotCalled(t, "GetBySlug", mock.Anything, mock.Anything)
	mockRetrieval.AssertNotCalled(t, "Retrieve", mock.Anything, mock.Anything)
}

func TestSearchHandler_MissingPersonaSlug(t *testing.T) {
	mockRetrieval := new(MockRetrievalService)
	mockPersonas := new(MockPersonaRepo)
	handler := NewSearchHandler(mockRetrieval, mockPersonas)

	rec := doSearch(t, handler, SearchRequest{Query: "tesla"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeSearch(t, rec).Error, "persona_slug")
	mockRetrieval.AssertNotCalled(t, "Retrieve", mock.Anything, mock.Anything)
}

func TestSearchHandler_UnknownPersona(t *testing.T) {
	mockRetrieval := new(MockRetrievalService)
	mockPersonas := new(MockPersonaRepo)
	handler := NewSearchHandler(mockRetrieval, mockPersonas)

	mockPersonas.On("GetBySlug", mock.Anything, "nobody").Return(nil, domain.ErrPersonaNotFound)

	rec := doSearch(t, handler, SearchRequest{Query: "tesla", PersonaSlug: "nobody"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	mockRetrieval.AssertNotCalled(t, "Retrieve", mock.Anything, mock.Anything)
}

func TestSearchHandler_ArchivedPersona(t *testing.T) {
	mockRetrieval := new(MockRetrievalService)
	mockPersonas := new(MockPersonaRepo)
	handler := NewSearchHandler(mockRetrieval, mockPersonas)

	mockPersonas.On("GetBySlug", mock.Anything, "elon-musk").
		Return(&domain.Persona{ID: "p-1", Slug: "elon-musk", Name: "Elon Musk", Archived: true}, nil)

	rec := doSearch(t, handler, SearchRequest{Query: "tesla", PersonaSlug: "elon-musk"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	mockRetrieval.AssertNotCalled(t, "Retrieve", mock.Anything, mock.Anything)
}

func TestSearchHandler_StoreErrorIs500(t *testing.T) {
	mockRetrieval := new(MockRetrievalService)
	mockPersonas := new(MockPersonaRepo)
	handler := NewSearchHandler(mockRetrieval, mockPersonas)

	mockPersonas.On("GetBySlug", mock.Anything, "elon-musk").
		Return(&domain.Persona{ID: "p-1", Slug: "elon-musk", Name: "Elon Musk"}, nil)
	mockRetrieval.On("Retrieve", mock.Anything, mock.Anything).
		Return(nil, domain.NewStoreError(errors.New("connection refused")))

	rec := doSearch(t, handler, SearchRequest{Query: "tesla", PersonaSlug: "elon-musk"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeSearch(t, rec)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "search backend")
}

func TestSearchHandler_EmptyResultsAre200(t *testing.T) {
	mockRetrieval := new(MockRetrievalService)
	mockPersonas := new(MockPersonaRepo)
	handler := NewSearchHandler(mockRetrieval, mockPersonas)

	mockPersonas.On("GetBySlug", mock.Anything, "elon-musk").
		Return(&domain.Persona{ID: "p-1", Slug: "elon-musk", Name: "Elon Musk"}, nil)
	mockRetrieval.On("Retrieve", mock.Anything, mock.Anything).Return(&service.RetrieveOutput{
		Chunks:      []*domain.RankedChunk{},
		Query:       "tesla",
		PersonaSlug: "elon-musk",
		SearchMode:  domain.SearchModeHybrid,
	}, nil)

	rec := doSearch(t, handler, SearchRequest{Query: "tesla", PersonaSlug: "elon-musk"})

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeSearch(t, rec)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Chunks)
}

func TestSearchHandler_InvalidBody(t *testing.T) {
	handler := NewSearchHandler(new(MockRetrievalService), new(MockPersonaRepo))

	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	handler.Search(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

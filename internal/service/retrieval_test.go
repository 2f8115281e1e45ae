package service

import (
	"context"
	"errors"
	"testing"

	"github.com/luminary-chat/luminary/internal/domain"
	"github.com/luminary-chat/luminary/internal/rerank"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newRetrievalFixture(preset RetrievalPreset) (*MockEmbeddingClient, *MockChunkSearchRepository, *MockRerankClient, *RetrievalService) {
	mockEmbedding := new(MockEmbeddingClient)
	mockRepo := new(MockChunkSearchRepository)
	mockRerank := new(MockRerankClient)
	svc := NewRetrievalService(NewCandidateFetcher(mockEmbedding, mockRepo), mockRerank, preset)
	return mockEmbedding, mockRepo, mockRerank, svc
}

func TestRetrieve_Validation(t *testing.T) {
	_, _, _, svc := newRetrievalFixture(SearchPreset())

	t.Run("missing query", func(t *testing.T) {
		out, err := svc.Retrieve(context.Background(), RetrieveInput{PersonaSlug: "elon-musk"})
		assert.Nil(t, out)
		assert.ErrorIs(t, err, domain.ErrMissingQuery)
	})

	t.Run("missing persona slug", func(t *testing.T) {
		out, err := svc.Retrieve(context.Background(), RetrieveInput{Query: "tesla"})
		assert.Nil(t, out)
		assert.ErrorIs(t, err, domain.ErrMissingPersonaSlug)
	})
}

func TestRetrieve_SearchModeTagging(t *testing.T) {
	cases := []struct {
		name      string
		useHybrid bool
		useRerank bool
		want      domain.SearchMode
	}{
		{"hybrid with rerank", true, true, domain.SearchModeHybridRerank},
		{"hybrid without rerank", true, false, domain.SearchModeHybrid},
		{"vector without rerank", false, false, domain.SearchModeVector},
		// Vector-only is never labeled rerank-aware, even when rerank runs.
		{"vector with rerank", false, true, domain.SearchModeVector},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mockEmbedding, mockRepo, mockRerank, svc := newRetrievalFixture(SearchPreset())

			mockEmbedding.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(testEmbedding(), nil)
			cands := []*domain.RetrievalCandidate{{ID: "c-1", Content: "x", Similarity: 0.8}}
			mockRepo.On("HybridSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
				mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(cands, nil).Maybe()
			mockRepo.On("VectorSearch", mock.Anything, mock.Anything, mock.Anything,
				mock.Anything, mock.Anything).Return(cands, nil).Maybe()
			mockRerank.On("Rerank", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return([]rerank.Result{{Index: 0, RelevanceScore: 0.5}}, nil).Maybe()

			out, err := svc.Retrieve(context.Background(), RetrieveInput{
				Query:       "tesla",
				PersonaSlug: "elon-musk",
				UseHybrid:   boolPtr(tc.useHybrid),
				UseRerank:   boolPtr(tc.useRerank),
			})

			require.NoError(t, err)
			assert.Equal(t, tc.want, out.SearchMode)
		})
	}
}

func TestRetrieve_NilRerankClientNeverTagsRerank(t *testing.T) {
	mockEmbedding := new(MockEmbeddingClient)
	mockRepo := new(MockChunkSearchRepository)
	svc := NewRetrievalService(NewCandidateFetcher(mockEmbedding, mockRepo), nil, ChatPreset())

	mockEmbedding.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(testEmbedding(), nil)
	// No reranker: the fetch must not oversample either.
	mockRepo.On("HybridSearch", mock.Anything, mock.Anything, "tesla", "elon-musk", 5,
		mock.Anything, mock.Anything, mock.Anything).Return([]*domain.RetrievalCandidate{}, nil)

	out, err := svc.Retrieve(context.Background(), RetrieveInput{Query: "tesla", PersonaSlug: "elon-musk"})

	require.NoError(t, err)
	assert.Equal(t, domain.SearchModeHybrid, out.SearchMode)
	mockRepo.AssertExpectations(t)
}

func TestRetrieve_PresetThresholdsDiverge(t *testing.T) {
	// The chat path and the search endpoint intentionally use different
	// default vector thresholds; this pins them so they never silently
	// converge.
	assert.InDelta(t, 0.3, ChatPreset().VectorThreshold, 1e-9)
	assert.InDelta(t, 0.65, SearchPreset().VectorThreshold, 1e-9)
	assert.NotEqual(t, ChatPreset().VectorThreshold, SearchPreset().VectorThreshold)

	t.Run("chat preset passes 0.3 to the backend", func(t *testing.T) {
		mockEmbedding, mockRepo, mockRerank, svc := newRetrievalFixture(ChatPreset())
		mockEmbedding.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(testEmbedding(), nil)
		mockRepo.On("HybridSearch", mock.Anything, mock.Anything, "q", "a", 15, 0.3, 0.3, 60).
			Return([]*domain.RetrievalCandidate{}, nil)
		mockRerank.On("Rerank", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return([]rerank.Result{}, nil).Maybe()

		_, err := svc.Retrieve(context.Background(), RetrieveInput{Query: "q", PersonaSlug: "a"})
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("search preset passes 0.65 to the backend", func(t *testing.T) {
		mockEmbedding, mockRepo, mockRerank, svc := newRetrievalFixture(SearchPreset())
		mockEmbedding.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(testEmbedding(), nil)
		mockRepo.On("HybridSearch", mock.Anything, mock.Anything, "q", "a", 15, 0.65, 0.3, 60).
			Return([]*domain.RetrievalCandidate{}, nil)
		mockRerank.On("Rerank", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return([]rerank.Result{}, nil).Maybe()

		_, err := svc.Retrieve(context.Background(), RetrieveInput{Query: "q", PersonaSlug: "a"})
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})
}

func TestRetrieve_ExplicitThresholdOverridesPreset(t *testing.T) {
	mockEmbedding, mockRepo, mockRerank, svc := newRetrievalFixture(SearchPreset())
	mockEmbedding.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(testEmbedding(), nil)
	mockRepo.On("HybridSearch", mock.Anything, mock.Anything, "q", "a", 15, 0.5, 0.3, 60).
		Return([]*domain.RetrievalCandidate{}, nil)
	_ = mockRerank

	_, err := svc.Retrieve(context.Background(), RetrieveInput{
		Query:       "q",
		PersonaSlug: "a",
		Threshold:   floatPtr(0.5),
	})
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestRetrieve_StoreErrorFailsOpenOnChatPreset(t *testing.T) {
	mockEmbedding, mockRepo, _, svc := newRetrievalFixture(ChatPreset())
	mockEmbedding.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(testEmbedding(), nil)
	mockRepo.On("HybridSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	out, err := svc.Retrieve(context.Background(), RetrieveInput{Query: "q", PersonaSlug: "a"})

	require.NoError(t, err)
	assert.Empty(t, out.Chunks)
	assert.Equal(t, domain.SearchModeHybridRerank, out.SearchMode)
}

func TestRetrieve_StoreErrorPropagatesOnSearchPreset(t *testing.T) {
	mockEmbedding, mockRepo, _, svc := newRetrievalFixture(SearchPreset())
	mockEmbedding.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(testEmbedding(), nil)
	mockRepo.On("HybridSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	out, err := svc.Retrieve(context.Background(), RetrieveInput{Query: "q", PersonaSlug: "a"})

	assert.Nil(t, out)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeStore, domainErr.Code)
}

func TestRetrieve_RerankFailureFallsBackToRetrievalOrder(t *testing.T) {
	mockEmbedding, mockRepo, mockRerank, svc := newRetrievalFixture(SearchPreset())
	mockEmbedding.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(testEmbedding(), nil)
	mockRepo.On("HybridSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(candidateFixtures(), nil)
	mockRerank.On("Rerank", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("rerank outage"))

	out, err := svc.Retrieve(context.Background(), RetrieveInput{Query: "q", PersonaSlug: "a", TopK: 3})

	require.NoError(t, err)
	require.Len(t, out.Chunks, 3)
	assert.Equal(t, "c-1", out.Chunks[0].ID)
	assert.Equal(t, "c-2", out.Chunks[1].ID)
	assert.Equal(t, "c-3", out.Chunks[2].ID)
	for _, c := range out.Chunks {
		assert.Zero(t, c.RerankScore)
		assert.Equal(t, domain.StateRerankFailed, c.RerankState)
	}
}

func TestRetrieve_SkippedRerankCopiesSimilarity(t *testing.T) {
	mockEmbedding, mockRepo, _, svc := newRetrievalFixture(SearchPreset())
	mockEmbedding.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(testEmbedding(), nil)
	mockRepo.On("HybridSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(candidateFixtures(), nil)

	out, err := svc.Retrieve(context.Background(), RetrieveInput{
		Query:       "q",
		PersonaSlug: "a",
		TopK:        2,
		UseRerank:   boolPtr(false),
	})

	require.NoError(t, err)
	require.Len(t, out.Chunks, 2)
	assert.InDelta(t, 0.81, out.Chunks[0].RerankScore, 1e-9)
	assert.Equal(t, domain.StateNotReranked, out.Chunks[0].RerankState)
}

func TestRetrieve_EndToEndScenario(t *testing.T) {
	mockEmbedding, mockRepo, mockRerank, svc := newRetrievalFixture(ChatPreset())

	mockEmbedding.On("GenerateEmbedding", mock.Anything, "Tesla autopilot").Return(testEmbedding(), nil)
	mockRepo.On("HybridSearch", mock.Anything, mock.Anything, "Tesla autopilot", "elon-musk", 3,
		0.3, 0.3, 60).Return(candidateFixtures(), nil)
	mockRerank.On("Rerank", mock.Anything, "Tesla autopilot", mock.Anything, 1).
		Return([]rerank.Result{{Index: 3, RelevanceScore: 0.95}}, nil)

	out, err := svc.Retrieve(context.Background(), RetrieveInput{
		Query:       "Tesla autopilot",
		PersonaSlug: "elon-musk",
		TopK:        1,
	})

	require.NoError(t, err)
	require.Len(t, out.Chunks, 1)
	assert.Equal(t, "c-4", out.Chunks[0].ID)
	assert.Equal(t, "AI will transform transportation.", out.Chunks[0].Content)
	assert.InDelta(t, 0.95, out.Chunks[0].RerankScore, 1e-9)
	assert.Equal(t, domain.StateReranked, out.Chunks[0].RerankState)
	assert.Equal(t, domain.SearchModeHybridRerank, out.SearchMode)
}

func TestRetrieve_EmptyResultsAreNotAnError(t *testing.T) {
	mockEmbedding, mockRepo, mockRerank, svc := newRetrievalFixture(SearchPreset())
	mockEmbedding.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(testEmbedding(), nil)
	mockRepo.On("HybridSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]*domain.RetrievalCandidate{}, nil)

	out, err := svc.Retrieve(context.Background(), RetrieveInput{Query: "q", PersonaSlug: "a"})

	require.NoError(t, err)
	assert.Empty(t, out.Chunks)
	// No candidates: the rerank provider must not be called at all.
	mockRerank.AssertNotCalled(t, "Rerank", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

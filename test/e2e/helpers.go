//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/luminary-chat/luminary/internal/api/handlers"
	"github.com/luminary-chat/luminary/internal/domain"
	"github.com/luminary-chat/luminary/internal/rerank"
	"github.com/luminary-chat/luminary/internal/repository"
	"github.com/luminary-chat/luminary/internal/server"
	"github.com/luminary-chat/luminary/internal/service"
	"github.com/luminary-chat/luminary/internal/testutil"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	Pool       *pgxpool.Pool
	Personas   *repository.PersonaRepository
	Chunks     *repository.ChunkRepository
	Server     *httptest.Server
	RerankStub *httptest.Server
	Embedder   *stubEmbedder
	HTTPClient *http.Client
}

// stubEmbedder returns canned embeddings for known texts so retrieval is
// deterministic without an external provider.
type stubEmbedder struct {
	vectors map[string][]float32
}

func (s *stubEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return axisEmbedding(0), nil
}

// Set registers the embedding returned for an exact text.
func (s *stubEmbedder) Set(text string, embedding []float32) {
	s.vectors[text] = embedding
}

func axisEmbedding(axis int) []float32 {
	v := make([]float32, domain.EmbeddingDimensions)
	v[axis] = 1.0
	return v
}

// stubCompletion streams canned deltas.
type stubCompletion struct {
	deltas []string
	pos    int
}

func (s *stubCompletion) Recv() (string, error) {
	if s.pos >= len(s.deltas) {
		return "", io.EOF
	}
	d := s.deltas[s.pos]
	s.pos++
	return d, nil
}

func (s *stubCompletion) Close() error { return nil }

type stubCompletionClient struct {
	deltas []string
}

func (c *stubCompletionClient) StreamCompletion(ctx context.Context, systemPrompt, userMessage string) (service.CompletionStream, error) {
	return &stubCompletion{deltas: c.deltas}, nil
}

// newRerankStub serves the cross-encoder protocol: documents containing the
// query's first word win.
func newRerankStub() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string   `json:"query"`
			Documents []string `json:"documents"`
			TopN      int      `json:"top_n"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		needle := strings.ToLower(strings.Fields(req.Query)[0])
		type result struct {
			Index          int     `json:"index"`
			RelevanceScore float64 `json:"relevance_score"`
		}
		results := make([]result, 0, len(req.Documents))
		for i, doc := range req.Documents {
			score := 0.1 - float64(i)*0.001
			if strings.Contains(strings.ToLower(doc), needle) {
				score = 0.9 - float64(i)*0.001
			}
			results = append(results, result{Index: i, RelevanceScore: score})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"results": results})
	}))
}

// SetupE2EEnv creates a full test environment: pgvector container, migrated
// schema, stub providers, and the real router over real repositories.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	personaRepo := repository.NewPersonaRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)

	embedder := &stubEmbedder{vectors: map[string][]float32{}}
	rerankStub := newRerankStub()
	rerankClient := rerank.NewClient(rerank.Config{URL: rerankStub.URL})

	fetcher := service.NewCandidateFetcher(embedder, chunkRepo)
	searchRetrieval := service.NewRetrievalService(fetcher, rerankClient, service.SearchPreset())
	chatRetrieval := service.NewRetrievalService(fetcher, rerankClient, service.ChatPreset())
	chatSvc := service.NewChatService(personaRepo, chatRetrieval, &stubCompletionClient{
		deltas: []string{"Reusable ", "rockets ", "change everything."},
	})

	router := server.NewRouter(server.RouterConfig{
		SearchHandler:  handlers.NewSearchHandler(searchRetrieval, personaRepo),
		PersonaHandler: handlers.NewPersonaHandler(personaRepo),
		ChatHandler:    handlers.NewChatHandler(chatSvc),
		ChunkHandler:   handlers.NewChunkHandler(chunkRepo, nil),
	})

	srv := httptest.NewServer(router)

	return &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		Pool:       pool,
		Personas:   personaRepo,
		Chunks:     chunkRepo,
		Server:     srv,
		RerankStub: rerankStub,
		Embedder:   embedder,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup tears down the server and containers.
func (e *E2ETestEnv) Cleanup() {
	e.Server.Close()
	e.RerankStub.Close()
	e.Pool.Close()
	_ = e.PostgresC.Terminate(e.Ctx)
}

// Get performs a GET against the test server and returns status and body.
func (e *E2ETestEnv) Get(path string) (int, []byte, error) {
	resp, err := e.HTTPClient.Get(e.Server.URL + path)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, body, err
}

// Post performs a JSON POST against the test server.
func (e *E2ETestEnv) Post(path string, payload any) (int, []byte, http.Header, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, nil, err
	}
	resp, err := e.HTTPClient.Post(e.Server.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, body, resp.Header, err
}

// SeedPersona creates a persona with a small chunk corpus. Chunk i sits on
// axis i so queries can target one chunk exactly.
func (e *E2ETestEnv) SeedPersona(slug, name string, contents []string) *domain.Persona {
	e.T.Helper()

	p := &domain.Persona{Slug: slug, Name: name}
	if err := e.Personas.Create(e.Ctx, p); err != nil {
		e.T.Fatalf("failed to seed persona: %v", err)
	}

	for i, content := range contents {
		chunk := &domain.Chunk{
			ID:        fmt.Sprintf("%s-c-%d", slug, i),
			PersonaID: p.ID,
			Content:   content,
			Embedding: axisEmbedding(i),
		}
		if err := e.Chunks.Insert(e.Ctx, chunk); err != nil {
			e.T.Fatalf("failed to seed chunk: %v", err)
		}
	}

	return p
}

package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/luminary-chat/luminary/internal/api"
	"github.com/luminary-chat/luminary/internal/domain"
)

// ChunkReader fetches single chunks for the source-document endpoint.
type ChunkReader interface {
	GetByID(ctx context.Context, id string) (*domain.Chunk, error)
}

// SourceURLSigner produces presigned download URLs for source documents.
type SourceURLSigner interface {
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
}

type ChunkHandler struct {
	chunks  ChunkReader
	storage SourceURLSigner
}

// NewChunkHandler creates a chunk handler. storage may be nil when no
// object store is configured; the source endpoint then reports unavailable.
func NewChunkHandler(chunks ChunkReader, storage SourceURLSigner) *ChunkHandler {
	return &ChunkHandler{chunks: chunks, storage: storage}
}

type ChunkSourceResponse struct {
	ChunkID       string  `json:"chunk_id"`
	DocumentTitle *string `json:"document_title,omitempty"`
	DownloadURL   string  `json:"download_url"`
}

// GetSource returns a presigned URL for the source document a chunk was
// cut from, for the chat UI's "view source" link.
func (h *ChunkHandler) GetSource(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		api.Error(w, http.StatusServiceUnavailable, "source storage not configured")
		return
	}

	id := chi.URLParam(r, "id")

	chunk, err := h.chunks.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if chunk.SourceKey == nil || *chunk.SourceKey == "" {
		api.HandleError(w, domain.ErrChunkNoSourceDoc)
		return
	}

	url, err := h.storage.GenerateDownloadURL(r.Context(), *chunk.SourceKey)
	if err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to generate download URL")
		return
	}

	api.Success(w, http.StatusOK, ChunkSourceResponse{
		ChunkID:       chunk.ID,
		DocumentTitle: chunk.DocumentTitle,
		DownloadURL:   url,
	})
}

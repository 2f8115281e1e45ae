package domain

import "time"

// EmbeddingDimensions is the fixed width of chunk embeddings. Set at
// ingestion time and never changed by the retrieval path.
const EmbeddingDimensions = 1536

// Chunk is an immutable, persona-scoped unit of retrievable text. Chunks are
// written by the ingestion pipeline and read-only from this subsystem.
type Chunk struct {
	ID            string
	PersonaID     string
	PersonaSlug   string
	Content       string
	DocumentTitle *string
	SourceKey     *string
	Embedding     []float32
	Metadata      map[string]any
	CreatedAt     time.Time
}

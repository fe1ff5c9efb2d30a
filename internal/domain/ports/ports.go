// Package ports defines interfaces for external dependencies.
// Clean Architecture: These are the boundaries - usecases depend on these abstractions,
// not concrete implementations. Adapters implement these interfaces.
package ports

import (
	"context"

	"github.com/localdocs/docchat/internal/domain/entities"
)

// EmbeddingService generates vector embeddings for text.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// LLMService generates text responses from a language model.
type LLMService interface {
	// Generate produces a complete response for a prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateStream produces an incremental response. The returned channel is
	// closed after a token with Done=true or Error!=nil has been delivered.
	GenerateStream(ctx context.Context, prompt string) (<-chan StreamToken, error)
}

// VectorStore persists and queries chunk embeddings.
// Search results come back ascending by distance (best match first) with ranks
// unassigned; the retrieval engine owns rank assignment.
type VectorStore interface {
	// Store saves chunks with their embeddings.
	Store(ctx context.Context, chunks []entities.Chunk) error

	// Search finds the topK most similar chunks to a query embedding.
	Search(ctx context.Context, embedding []float32, topK int) ([]entities.RetrievedChunk, error)

	// Delete removes all chunks for a document.
	Delete(ctx context.Context, documentID string) error

	// Clear removes all data from the store.
	Clear(ctx context.Context) error

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)
}

// DocumentLoader reads and parses documents from various formats.
type DocumentLoader interface {
	// Load reads a document from the given path.
	Load(ctx context.Context, path string) (*entities.Document, error)

	// SupportedExtensions returns file extensions this loader handles.
	SupportedExtensions() []string
}

// DocumentParser extracts text from binary document formats.
type DocumentParser interface {
	// Parse extracts text content from document bytes.
	Parse(ctx context.Context, data []byte, filename string) (string, error)

	// SupportedFormats returns formats this parser handles (e.g., "pdf").
	SupportedFormats() []string
}

// StreamToken represents a single fragment of a streaming LLM response.
type StreamToken struct {
	Content string
	Done    bool
	Error   error
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)

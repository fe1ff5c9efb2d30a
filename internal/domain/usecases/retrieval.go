package usecases

import (
	"context"
	"fmt"
	"sort"

	"github.com/localdocs/docchat/internal/domain/entities"
	"github.com/localdocs/docchat/internal/domain/ports"
)

// RetrievalEngine turns a question into a ranked set of supporting chunks.
// It never mutates the vector store.
type RetrievalEngine struct {
	embedder ports.EmbeddingService
	store    ports.VectorStore
}

// NewRetrievalEngine creates a retrieval engine. The store may be nil until
// one is attached; Retrieve fails with ErrNotInitialized in that state.
func NewRetrievalEngine(embedder ports.EmbeddingService, store ports.VectorStore) *RetrievalEngine {
	return &RetrievalEngine{embedder: embedder, store: store}
}

// Retrieve returns at most k chunks ordered ascending by relevance score
// (best match first), ranks contiguous from 1. Zero hits is a normal result,
// not an error: callers treat it as "no relevant information found".
func (e *RetrievalEngine) Retrieve(ctx context.Context, query string, k int) ([]entities.RetrievedChunk, error) {
	if e.store == nil {
		return nil, entities.ErrNotInitialized
	}
	if k <= 0 {
		k = 10
	}

	embedding, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := e.store.Search(ctx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("searching vectors: %w", err)
	}

	// Stable sort: ties keep the store's original order.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score < results[j].Score
	})
	for i := range results {
		results[i].Rank = i + 1
	}

	return results, nil
}

// Package vectordb provides vector store adapters.
// Clean Architecture: adapters implementing ports.VectorStore.
// All stores report cosine distance (lower = closer) and return results
// ascending by distance.
package vectordb

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/localdocs/docchat/internal/domain/entities"
)

// InMemoryStore is a simple in-memory vector store, used as the default
// backend and in tests.
type InMemoryStore struct {
	mu     sync.RWMutex
	chunks map[string]entities.Chunk // chunkID -> chunk
	docs   map[string][]string       // docID -> []chunkID
	order  []string                  // insertion order, for stable tie-breaks
}

// NewInMemoryStore creates a new in-memory vector store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		chunks: make(map[string]entities.Chunk),
		docs:   make(map[string][]string),
	}
}

// Store saves chunks with their embeddings.
func (s *InMemoryStore) Store(ctx context.Context, chunks []entities.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunk := range chunks {
		if _, exists := s.chunks[chunk.ID]; !exists {
			s.order = append(s.order, chunk.ID)
			s.docs[chunk.DocumentID] = append(s.docs[chunk.DocumentID], chunk.ID)
		}
		s.chunks[chunk.ID] = chunk
	}
	return nil
}

// Search returns the topK closest chunks ascending by cosine distance.
func (s *InMemoryStore) Search(ctx context.Context, embedding []float32, topK int) ([]entities.RetrievedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]entities.RetrievedChunk, 0, len(s.order))
	for _, id := range s.order {
		chunk, ok := s.chunks[id]
		if !ok {
			continue
		}
		results = append(results, entities.RetrievedChunk{
			Chunk: chunk,
			Score: CosineDistance(embedding, chunk.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score < results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Delete removes all chunks for a document.
func (s *InMemoryStore) Delete(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chunkIDs, ok := s.docs[documentID]
	if !ok {
		return nil
	}
	for _, id := range chunkIDs {
		delete(s.chunks, id)
	}
	delete(s.docs, documentID)
	return nil
}

// Clear removes all data from the store.
func (s *InMemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks = make(map[string]entities.Chunk)
	s.docs = make(map[string][]string)
	s.order = nil
	return nil
}

// Count returns the number of stored chunks.
func (s *InMemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

// CosineDistance is 1 - cosine similarity: 0 for identical directions, up to
// 2 for opposite ones. Mismatched or zero vectors get the maximum distance.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

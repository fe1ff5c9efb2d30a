package usecases

import (
	"context"

	"github.com/localdocs/docchat/internal/domain/entities"
	"github.com/localdocs/docchat/internal/domain/ports"
)

// mockEmbedder implements ports.EmbeddingService for testing.
type mockEmbedder struct {
	embedFn func(text string) ([]float32, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.embedFn != nil {
		return m.embedFn(text)
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i := range texts {
		emb, err := m.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		result[i] = emb
	}
	return result, nil
}

// mockVectorStore implements ports.VectorStore for testing.
type mockVectorStore struct {
	chunks   []entities.Chunk
	searchFn func(emb []float32, topK int) ([]entities.RetrievedChunk, error)
	storeFn  func(chunks []entities.Chunk) error
	clearFn  func() error
	cleared  int
}

func (m *mockVectorStore) Store(ctx context.Context, chunks []entities.Chunk) error {
	if m.storeFn != nil {
		return m.storeFn(chunks)
	}
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *mockVectorStore) Search(ctx context.Context, emb []float32, topK int) ([]entities.RetrievedChunk, error) {
	if m.searchFn != nil {
		return m.searchFn(emb, topK)
	}
	var results []entities.RetrievedChunk
	for i, c := range m.chunks {
		if i >= topK {
			break
		}
		results = append(results, entities.RetrievedChunk{Chunk: c, Score: 0.5})
	}
	return results, nil
}

func (m *mockVectorStore) Delete(ctx context.Context, docID string) error {
	return nil
}

func (m *mockVectorStore) Clear(ctx context.Context) error {
	m.cleared++
	if m.clearFn != nil {
		return m.clearFn()
	}
	m.chunks = nil
	return nil
}

func (m *mockVectorStore) Count(ctx context.Context) (int, error) {
	return len(m.chunks), nil
}

// mockLLM implements ports.LLMService for testing.
type mockLLM struct {
	generateFn func(prompt string) (string, error)
	tokens     []ports.StreamToken
	streamErr  error
	prompts    []string
}

func (m *mockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.generateFn != nil {
		return m.generateFn(prompt)
	}
	return "mock answer", nil
}

func (m *mockLLM) GenerateStream(ctx context.Context, prompt string) (<-chan ports.StreamToken, error) {
	m.prompts = append(m.prompts, prompt)
	if m.streamErr != nil {
		return nil, m.streamErr
	}
	ch := make(chan ports.StreamToken, len(m.tokens)+1)
	for _, tok := range m.tokens {
		ch <- tok
	}
	close(ch)
	return ch, nil
}

// mockLoader implements ports.DocumentLoader for testing.
type mockLoader struct {
	loadFn func(path string) (*entities.Document, error)
	exts   []string
}

func (m *mockLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	if m.loadFn != nil {
		return m.loadFn(path)
	}
	return &entities.Document{ID: path, Name: path, Path: path, Content: "content"}, nil
}

func (m *mockLoader) SupportedExtensions() []string {
	if m.exts != nil {
		return m.exts
	}
	return []string{".txt", ".md"}
}

// retrieved builds a RetrievedChunk with the fields tests care about.
func retrieved(rank int, source, content string, score float64) entities.RetrievedChunk {
	return entities.RetrievedChunk{
		Chunk: entities.Chunk{
			ID:         source,
			SourceName: source,
			Content:    content,
			Metadata:   map[string]string{"filename": source},
		},
		Score: score,
		Rank:  rank,
	}
}

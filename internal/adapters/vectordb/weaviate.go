package vectordb

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/localdocs/docchat/internal/domain/entities"
)

// chunkNamespace derives stable Weaviate object UUIDs from chunk IDs.
var chunkNamespace = uuid.MustParse("8f7a1c2e-5d4b-4a3f-9e6d-0b1c2d3e4f5a")

// WeaviateStore implements ports.VectorStore against a Weaviate cluster.
// Embeddings are supplied by the ingestion pipeline, so the class carries no
// vectorizer. The reported score is Weaviate's own distance for the query,
// lower is closer; callers must not assume a fixed range.
type WeaviateStore struct {
	client *weaviate.Client
	class  string
	logger *slog.Logger
}

// WeaviateOptions configures the connection.
type WeaviateOptions struct {
	Host   string
	Scheme string
	APIKey string
	Class  string
}

// NewWeaviateStore connects to Weaviate and ensures the chunk class exists.
func NewWeaviateStore(opts WeaviateOptions, logger *slog.Logger) (*WeaviateStore, error) {
	if opts.Scheme == "" {
		opts.Scheme = "http"
	}
	if opts.Class == "" {
		opts.Class = "DocumentChunk"
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg := weaviate.Config{
		Host:   opts.Host,
		Scheme: opts.Scheme,
	}
	if opts.APIKey != "" {
		cfg.AuthConfig = auth.ApiKey{Value: opts.APIKey}
	}

	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating weaviate client: %w", err)
	}

	store := &WeaviateStore{client: client, class: opts.Class, logger: logger}
	if err := store.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *WeaviateStore) ensureSchema(ctx context.Context) error {
	exists, err := s.client.Schema().ClassExistenceChecker().WithClassName(s.class).Do(ctx)
	if err != nil {
		return fmt.Errorf("checking class %s: %w", s.class, err)
	}
	if exists {
		return nil
	}

	class := &models.Class{
		Class:       s.class,
		Description: "Document chunk with externally supplied embedding",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{Name: "chunkId", DataType: []string{"text"}},
			{Name: "documentId", DataType: []string{"text"}},
			{Name: "sourceName", DataType: []string{"text"}},
			{Name: "content", DataType: []string{"text"}},
			{Name: "chunkIndex", DataType: []string{"int"}},
			{Name: "metadata", DataType: []string{"text"}},
		},
	}
	if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("creating class %s: %w", s.class, err)
	}
	s.logger.Info("weaviate class created", "class", s.class)
	return nil
}

// Store batches chunks into Weaviate with their embeddings as object vectors.
func (s *WeaviateStore) Store(ctx context.Context, chunks []entities.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	objects := make([]*models.Object, len(chunks))
	for i, chunk := range chunks {
		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata: %w", err)
		}
		objects[i] = &models.Object{
			Class: s.class,
			ID:    strfmt.UUID(uuid.NewSHA1(chunkNamespace, []byte(chunk.ID)).String()),
			Properties: map[string]interface{}{
				"chunkId":    chunk.ID,
				"documentId": chunk.DocumentID,
				"sourceName": chunk.SourceName,
				"content":    chunk.Content,
				"chunkIndex": chunk.Index,
				"metadata":   string(metadataJSON),
			},
			Vector: models.C11yVector(chunk.Embedding),
		}
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("batching objects: %w", err)
	}
	for _, r := range resp {
		if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
			return fmt.Errorf("batch insert: %s", r.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// Search runs a nearVector query and returns results ascending by distance.
func (s *WeaviateStore) Search(ctx context.Context, embedding []float32, topK int) ([]entities.RetrievedChunk, error) {
	nearVector := (&graphql.NearVectorArgumentBuilder{}).WithVector(embedding)

	result, err := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithNearVector(nearVector).
		WithFields(
			graphql.Field{Name: "chunkId"},
			graphql.Field{Name: "documentId"},
			graphql.Field{Name: "sourceName"},
			graphql.Field{Name: "content"},
			graphql.Field{Name: "chunkIndex"},
			graphql.Field{Name: "metadata"},
			graphql.Field{Name: "_additional", Fields: []graphql.Field{
				{Name: "distance"},
			}},
		).
		WithLimit(topK).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate search: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("weaviate search: %s", result.Errors[0].Message)
	}

	var chunks []entities.RetrievedChunk
	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return chunks, nil
	}
	items, ok := data[s.class].([]interface{})
	if !ok {
		return chunks, nil
	}

	for _, item := range items {
		props, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		chunk := entities.Chunk{
			ID:         asString(props["chunkId"]),
			DocumentID: asString(props["documentId"]),
			SourceName: asString(props["sourceName"]),
			Content:    asString(props["content"]),
			Index:      int(asFloat(props["chunkIndex"])),
		}
		if md := asString(props["metadata"]); md != "" {
			_ = json.Unmarshal([]byte(md), &chunk.Metadata)
		}

		var distance float64
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			distance = asFloat(additional["distance"])
		}
		chunks = append(chunks, entities.RetrievedChunk{Chunk: chunk, Score: distance})
	}
	return chunks, nil
}

// Delete removes all chunks for a document.
func (s *WeaviateStore) Delete(ctx context.Context, documentID string) error {
	where := filters.Where().
		WithPath([]string{"documentId"}).
		WithOperator(filters.Equal).
		WithValueText(documentID)

	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(s.class).
		WithWhere(where).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", documentID, err)
	}
	return nil
}

// Clear drops and recreates the class, removing all data.
func (s *WeaviateStore) Clear(ctx context.Context) error {
	if err := s.client.Schema().ClassDeleter().WithClassName(s.class).Do(ctx); err != nil {
		return fmt.Errorf("dropping class %s: %w", s.class, err)
	}
	return s.ensureSchema(ctx)
}

// Count returns the number of stored chunks via a meta aggregation.
func (s *WeaviateStore) Count(ctx context.Context) (int, error) {
	result, err := s.client.GraphQL().Aggregate().
		WithClassName(s.class).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("aggregating count: %w", err)
	}

	data, ok := result.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	items, ok := data[s.class].([]interface{})
	if !ok || len(items) == 0 {
		return 0, nil
	}
	props, ok := items[0].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	meta, ok := props["meta"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	return int(asFloat(meta["count"])), nil
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case json.Number:
		f, _ := n.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}

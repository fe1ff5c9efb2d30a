package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/localdocs/docchat/internal/domain/ports"
)

// CachedEmbedder decorates an EmbeddingService with a Redis cache keyed by
// content hash. Cache failures are logged and fall through to the inner
// embedder; the cache must never break embedding.
type CachedEmbedder struct {
	inner  ports.EmbeddingService
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// NewCachedEmbedder connects to Redis and wraps inner. ttl <= 0 means
// entries never expire.
func NewCachedEmbedder(inner ports.EmbeddingService, addr, password string, db int, ttl time.Duration, logger *slog.Logger) (*CachedEmbedder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &CachedEmbedder{
		inner:  inner,
		client: client,
		ttl:    ttl,
		prefix: "docchat:embedding:",
		logger: logger,
	}, nil
}

// Embed returns the cached vector for text when present, otherwise delegates
// and stores the result.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached []float32
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
		// Corrupted entry: fall through and overwrite.
	} else if err != redis.Nil {
		c.logger.Warn("embedding cache read failed", "error", err)
	}

	embedding, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(embedding); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("embedding cache write failed", "error", err)
		}
	}
	return embedding, nil
}

// EmbedBatch embeds each text through the cache.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := c.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Close releases the Redis connection.
func (c *CachedEmbedder) Close() error {
	return c.client.Close()
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.prefix + hex.EncodeToString(sum[:])
}

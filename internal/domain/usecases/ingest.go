package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/localdocs/docchat/internal/domain/entities"
	"github.com/localdocs/docchat/internal/domain/ports"
)

// IngestionPipeline loads documents, segments them, embeds the chunks and
// replaces the vector store contents. It is a coarse-grained, non-cancelable
// operation; success flips readiness to ready.
type IngestionPipeline struct {
	loader    ports.DocumentLoader
	segmenter *Segmenter
	embedder  ports.EmbeddingService
	store     ports.VectorStore
	readiness *Readiness
	running   atomic.Bool
	logger    *slog.Logger
}

// NewIngestionPipeline creates an ingestion pipeline.
func NewIngestionPipeline(
	loader ports.DocumentLoader,
	segmenter *Segmenter,
	embedder ports.EmbeddingService,
	store ports.VectorStore,
	readiness *Readiness,
	logger *slog.Logger,
) *IngestionPipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestionPipeline{
		loader:    loader,
		segmenter: segmenter,
		embedder:  embedder,
		store:     store,
		readiness: readiness,
		logger:    logger,
	}
}

// Initialize ingests every supported file under sourceDir from scratch,
// replacing prior index contents. Re-running while ready is allowed; a second
// call while one is in flight is rejected with ErrIngestionBusy. Per-document
// load failures are logged and skipped - ingestion is best-effort across
// documents. Any unrecoverable failure leaves readiness not-initialized.
func (p *IngestionPipeline) Initialize(ctx context.Context, sourceDir string) (*entities.IngestReport, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, entities.ErrIngestionBusy
	}
	defer p.running.Store(false)

	paths, err := p.listIngestible(sourceDir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, entities.ErrNoDocuments
	}

	var chunks []entities.Chunk
	loaded := 0
	for _, path := range paths {
		doc, err := p.loader.Load(ctx, path)
		if err != nil {
			p.logger.Warn("skipping document", "path", path, "error", err)
			continue
		}
		docChunks := p.segmenter.Segment(doc)
		p.logger.Info("document segmented", "name", doc.Name, "chunks", len(docChunks))
		chunks = append(chunks, docChunks...)
		loaded++
	}
	if loaded == 0 {
		p.readiness.Set(false)
		return nil, fmt.Errorf("%w: no document could be loaded", entities.ErrIngestion)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		p.readiness.Set(false)
		return nil, fmt.Errorf("%w: embedding chunks: %v", entities.ErrIngestion, err)
	}
	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}

	// Replace semantics: re-running ingests from scratch.
	if err := p.store.Clear(ctx); err != nil {
		p.readiness.Set(false)
		return nil, fmt.Errorf("%w: clearing store: %v", entities.ErrIngestion, err)
	}
	if err := p.store.Store(ctx, chunks); err != nil {
		p.readiness.Set(false)
		return nil, fmt.Errorf("%w: storing chunks: %v", entities.ErrIngestion, err)
	}

	p.readiness.Set(true)
	p.logger.Info("ingestion complete", "documents", loaded, "chunks", len(chunks))

	return &entities.IngestReport{DocumentsLoaded: loaded, TotalChunks: len(chunks)}, nil
}

// Reset clears the vector store and reverts readiness to not-initialized.
func (p *IngestionPipeline) Reset(ctx context.Context) error {
	p.readiness.Set(false)
	return p.store.Clear(ctx)
}

func (p *IngestionPipeline) listIngestible(sourceDir string) ([]string, error) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, entities.ErrNoDocuments
		}
		return nil, fmt.Errorf("%w: reading %s: %v", entities.ErrIngestion, sourceDir, err)
	}

	supported := make(map[string]bool)
	for _, ext := range p.loader.SupportedExtensions() {
		supported[ext] = true
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if !supported[strings.ToLower(filepath.Ext(entry.Name()))] {
			p.logger.Warn("unsupported file ignored", "name", entry.Name())
			continue
		}
		paths = append(paths, filepath.Join(sourceDir, entry.Name()))
	}
	return paths, nil
}

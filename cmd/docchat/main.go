// Command docchat serves retrieval-augmented question answering over a local
// document collection.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/localdocs/docchat/internal/adapters/embedding"
	"github.com/localdocs/docchat/internal/adapters/filewatcher"
	"github.com/localdocs/docchat/internal/adapters/llm"
	"github.com/localdocs/docchat/internal/adapters/loader"
	"github.com/localdocs/docchat/internal/adapters/parser"
	"github.com/localdocs/docchat/internal/adapters/vectordb"
	"github.com/localdocs/docchat/internal/config"
	"github.com/localdocs/docchat/internal/domain/ports"
	"github.com/localdocs/docchat/internal/domain/usecases"
	httpserver "github.com/localdocs/docchat/internal/infrastructure/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "docchat:", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real environment always wins.
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Adapters.
	docLoader := loader.NewMultiLoader(
		loader.NewTextLoader(),
		loader.NewHTMLLoader(),
		loader.NewPDFLoader(parser.NewPDFParser()),
	)

	embedder, closeEmbedder, err := buildEmbedder(cfg, logger)
	if err != nil {
		return err
	}
	defer closeEmbedder()

	store, closeStore, err := buildStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	generator := llm.NewOllamaAdapter(cfg.Ollama.BaseURL, cfg.Ollama.ChatModel)

	// Use cases.
	readiness := usecases.NewReadiness()
	segmenter := usecases.NewSegmenter(cfg.Chunking.Size, cfg.Chunking.Overlap)
	retrieval := usecases.NewRetrievalEngine(embedder, store)
	composer := usecases.NewPromptComposer(cfg.Retrieval.HistoryWindow)
	ledger := usecases.NewConversationLedger()
	synthesis := usecases.NewSynthesisController(
		retrieval, composer, ledger, generator, readiness,
		cfg.Retrieval.TopK, cfg.Retrieval.HistoryWindow, logger,
	)
	pipeline := usecases.NewIngestionPipeline(docLoader, segmenter, embedder, store, readiness, logger)

	if cfg.Watch {
		if err := startWatcher(ctx, cfg, docLoader, pipeline, logger); err != nil {
			return err
		}
	}

	server := httpserver.NewServer(
		synthesis, pipeline, ledger, readiness, store, docLoader,
		cfg.DocumentsDir, cfg.Server.Addr, logger,
	)
	return server.Start(ctx)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func buildEmbedder(cfg *config.Config, logger *slog.Logger) (ports.EmbeddingService, func(), error) {
	base := embedding.NewOllamaAdapter(cfg.Ollama.BaseURL, cfg.Ollama.EmbedModel)
	if cfg.Cache.Type != "redis" {
		return base, func() {}, nil
	}

	cached, err := embedding.NewCachedEmbedder(
		base,
		cfg.Cache.Redis.Addr,
		cfg.Cache.Redis.Password,
		cfg.Cache.Redis.DB,
		time.Duration(cfg.Cache.Redis.TTLSecs)*time.Second,
		logger,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting embedding cache: %w", err)
	}
	return cached, func() { cached.Close() }, nil
}

func buildStore(cfg *config.Config, logger *slog.Logger) (ports.VectorStore, func(), error) {
	switch cfg.Store.Type {
	case "memory":
		return vectordb.NewInMemoryStore(), func() {}, nil
	case "sqlite":
		store, err := vectordb.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return store, func() { store.Close() }, nil
	case "weaviate":
		store, err := vectordb.NewWeaviateStore(vectordb.WeaviateOptions{
			Host:   cfg.Store.Weaviate.Host,
			Scheme: cfg.Store.Weaviate.Scheme,
			APIKey: cfg.Store.Weaviate.APIKey,
			Class:  cfg.Store.Weaviate.Class,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting weaviate store: %w", err)
		}
		return store, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store type %q", cfg.Store.Type)
	}
}

// startWatcher re-ingests the documents directory when its contents change.
// Events are debounced so one bulk copy triggers one ingestion.
func startWatcher(ctx context.Context, cfg *config.Config, docLoader ports.DocumentLoader, pipeline *usecases.IngestionPipeline, logger *slog.Logger) error {
	watcher, err := filewatcher.NewFSNotifyWatcher(docLoader.SupportedExtensions(), logger)
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}

	if err := os.MkdirAll(cfg.DocumentsDir, 0o755); err != nil {
		return fmt.Errorf("creating documents dir: %w", err)
	}

	events, err := watcher.Watch(ctx, cfg.DocumentsDir)
	if err != nil {
		return fmt.Errorf("watching %s: %w", cfg.DocumentsDir, err)
	}

	go func() {
		defer watcher.Stop()

		const debounce = 2 * time.Second
		var timer *time.Timer
		var timerC <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				logger.Info("documents changed", "path", event.Path)
				if timer == nil {
					timer = time.NewTimer(debounce)
					timerC = timer.C
				} else {
					timer.Reset(debounce)
				}
			case <-timerC:
				timer = nil
				timerC = nil
				report, err := pipeline.Initialize(ctx, cfg.DocumentsDir)
				if err != nil {
					logger.Warn("automatic re-ingestion failed", "error", err)
					continue
				}
				logger.Info("automatic re-ingestion complete",
					"documents", report.DocumentsLoaded, "chunks", report.TotalChunks)
			}
		}
	}()
	return nil
}

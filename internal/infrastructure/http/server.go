// Package http provides the HTTP server infrastructure.
// Clean Architecture: framework/driver layer - outermost circle.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/localdocs/docchat/internal/domain/ports"
	"github.com/localdocs/docchat/internal/domain/usecases"
)

// Server is the HTTP server for the document Q&A API.
type Server struct {
	synthesis *usecases.SynthesisController
	pipeline  *usecases.IngestionPipeline
	ledger    *usecases.ConversationLedger
	readiness *usecases.Readiness
	store     ports.VectorStore
	loader    ports.DocumentLoader
	docsDir   string
	addr      string
	logger    *slog.Logger
}

// NewServer creates a new HTTP server.
func NewServer(
	synthesis *usecases.SynthesisController,
	pipeline *usecases.IngestionPipeline,
	ledger *usecases.ConversationLedger,
	readiness *usecases.Readiness,
	store ports.VectorStore,
	loader ports.DocumentLoader,
	docsDir, addr string,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		synthesis: synthesis,
		pipeline:  pipeline,
		ledger:    ledger,
		readiness: readiness,
		store:     store,
		loader:    loader,
		docsDir:   docsDir,
		addr:      addr,
		logger:    logger,
	}
}

// Router builds the route table. Exposed for tests.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/supported-formats", s.handleSupportedFormats).Methods(http.MethodGet)

	r.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/documents", s.handleListDocuments).Methods(http.MethodGet)
	r.HandleFunc("/documents/{filename}", s.handleDeleteDocument).Methods(http.MethodDelete)

	r.HandleFunc("/initialize", s.handleInitialize).Methods(http.MethodPost)
	r.HandleFunc("/ask", s.handleAsk).Methods(http.MethodPost)
	r.HandleFunc("/ask/stream", s.handleAskStream).Methods(http.MethodPost)

	r.HandleFunc("/conversations", s.handleListConversations).Methods(http.MethodGet)
	r.HandleFunc("/conversations", s.handleClearConversations).Methods(http.MethodDelete)
	r.HandleFunc("/conversations/{id}", s.handleGetConversation).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{id}", s.handleDeleteConversation).Methods(http.MethodDelete)

	r.HandleFunc("/reset", s.handleReset).Methods(http.MethodDelete)

	return corsMiddleware(s.loggingMiddleware(r))
}

// Start runs the HTTP server until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 300 * time.Second, // longer for streaming
	}

	s.logger.Info("server starting", "addr", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Session-ID")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/localdocs/docchat/internal/domain/entities"
)

// errorResponse is the uniform error body. Code is machine-readable so
// clients can branch without matching message strings.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encoding response", "error", err)
	}
}

// writeError maps taxonomy errors to distinct statuses and codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var status int
	var code string
	switch {
	case errors.Is(err, entities.ErrNotReady), errors.Is(err, entities.ErrNotInitialized):
		status, code = http.StatusBadRequest, "not_initialized"
	case errors.Is(err, entities.ErrNoDocuments):
		status, code = http.StatusBadRequest, "no_documents"
	case errors.Is(err, entities.ErrSessionNotFound):
		status, code = http.StatusNotFound, "session_not_found"
	case errors.Is(err, entities.ErrIngestionBusy):
		status, code = http.StatusConflict, "ingestion_in_progress"
	case errors.Is(err, entities.ErrGeneration):
		status, code = http.StatusBadGateway, "generation_failed"
	case errors.Is(err, entities.ErrIngestion):
		status, code = http.StatusInternalServerError, "ingestion_failed"
	default:
		status, code = http.StatusInternalServerError, "internal_error"
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Welcome to the docchat API",
		"endpoints": map[string]string{
			"GET /":                             "this route index",
			"GET /health":                       "system health and readiness",
			"GET /supported-formats":            "supported file types",
			"POST /upload":                      "upload a document",
			"GET /documents":                    "list documents",
			"DELETE /documents/{filename}":      "delete a document",
			"POST /initialize":                  "ingest documents and prepare the system",
			"POST /ask":                         "ask a question",
			"POST /ask/stream":                  "ask a question, streamed over SSE",
			"GET /conversations":                "list conversation sessions",
			"GET /conversations/{id}":           "get conversation history",
			"DELETE /conversations/{id}":        "clear one conversation",
			"DELETE /conversations":             "clear all conversations",
			"DELETE /reset":                     "clear documents and reset the system",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ready := s.readiness.Ready()
	status := "not_initialized"
	if ready {
		status = "ready"
	}

	docCount := 0
	if entries, err := os.ReadDir(s.docsDir); err == nil {
		for _, e := range entries {
			if !e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
				docCount++
			}
		}
	}

	chunkCount, err := s.store.Count(r.Context())
	if err != nil {
		s.logger.Warn("counting chunks", "error", err)
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          status,
		"system_ready":    ready,
		"documents_count": docCount,
		"chunks_indexed":  chunkCount,
		"timestamp":       time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleSupportedFormats(w http.ResponseWriter, r *http.Request) {
	exts := s.loader.SupportedExtensions()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"supported_formats": exts,
		"total_formats":     len(exts),
		"note":              "upload any of these file types using POST /upload",
	})
}

func (s *Server) supportedExt(ext string) bool {
	for _, e := range s.loader.SupportedExtensions() {
		if e == ext {
			return true
		}
	}
	return false
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "multipart field 'file' required", Code: "bad_request"})
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	if !s.supportedExt(ext) {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("unsupported file type %q", ext),
			Code:  "unsupported_format",
		})
		return
	}

	if err := os.MkdirAll(s.docsDir, 0o755); err != nil {
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Code: "internal_error"})
		return
	}

	dst, err := os.Create(filepath.Join(s.docsDir, name))
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Code: "internal_error"})
		return
	}
	defer dst.Close()

	size, err := io.Copy(dst, file)
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Code: "internal_error"})
		return
	}

	s.logger.Info("document uploaded", "name", name, "bytes", size)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "file uploaded successfully",
		"filename": name,
		"size_kb":  float64(size) / 1024,
		"next":     "call POST /initialize to index the new document",
	})
}

type documentInfo struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	SizeKB   float64 `json:"size_kb"`
	Modified string  `json:"modified"`
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.docsDir)
	if err != nil {
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"documents": []documentInfo{}, "count": 0})
		return
	}

	docs := make([]documentInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		docs = append(docs, documentInfo{
			Name:     entry.Name(),
			Type:     strings.ToLower(filepath.Ext(entry.Name())),
			SizeKB:   float64(info.Size()) / 1024,
			Modified: info.ModTime().Format(time.RFC3339),
		})
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Modified > docs[j].Modified })

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"count":     len(docs),
	})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	filename := filepath.Base(mux.Vars(r)["filename"])
	path := filepath.Join(s.docsDir, filename)

	if _, err := os.Stat(path); err != nil {
		s.writeJSON(w, http.StatusNotFound, errorResponse{
			Error: fmt.Sprintf("document %q not found", filename),
			Code:  "document_not_found",
		})
		return
	}

	if err := os.Remove(path); err != nil {
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Code: "internal_error"})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("document %q deleted", filename),
		"note":    "re-initialize to update the index",
	})
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	// The pipeline is non-cancelable once started; detach from the request
	// context so a dropped client does not abort a half-finished ingestion.
	report, err := s.pipeline.Initialize(context.WithoutCancel(r.Context()), s.docsDir)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":             "system initialized successfully",
		"status":              "ready",
		"documents_processed": report.DocumentsLoaded,
		"total_chunks":        report.TotalChunks,
	})
}

type askRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

func (s *Server) decodeAsk(w http.ResponseWriter, r *http.Request) (askRequest, bool) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body", Code: "bad_request"})
		return req, false
	}
	if strings.TrimSpace(req.Question) == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "question required", Code: "bad_request"})
		return req, false
	}
	if req.SessionID == "" {
		req.SessionID = r.Header.Get("X-Session-ID")
	}
	return req, true
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeAsk(w, r)
	if !ok {
		return
	}

	result, err := s.synthesis.Answer(r.Context(), req.Question, req.SessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("X-Session-ID", result.SessionID)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAskStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeAsk(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming not supported", Code: "internal_error"})
		return
	}

	sessionID, events, err := s.synthesis.AnswerStream(r.Context(), req.Question, req.SessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Session-ID", sessionID)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			s.logger.Warn("encoding stream event", "error", err)
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	sessions := s.ledger.ListSessions()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions":        sessions,
		"active_sessions": len(sessions),
	})
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.ledger.Exists(id) {
		s.writeError(w, fmt.Errorf("%w: %s", entities.ErrSessionNotFound, id))
		return
	}

	history := s.ledger.History(id)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id":         id,
		"conversation_count": len(history),
		"conversations":      history,
	})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.ledger.Clear(id); err != nil {
		s.writeError(w, fmt.Errorf("%w: %s", err, id))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":    fmt.Sprintf("conversation history for session %q cleared", id),
		"session_id": id,
	})
}

func (s *Server) handleClearConversations(w http.ResponseWriter, r *http.Request) {
	count := s.ledger.ClearAll()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":          fmt.Sprintf("cleared %d conversation session(s)", count),
		"sessions_cleared": count,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	removed := 0
	if entries, err := os.ReadDir(s.docsDir); err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if err := os.Remove(filepath.Join(s.docsDir, entry.Name())); err != nil {
				s.logger.Warn("removing document", "name", entry.Name(), "error", err)
				continue
			}
			removed++
		}
	}

	if err := s.pipeline.Reset(context.WithoutCancel(r.Context())); err != nil {
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Code: "internal_error"})
		return
	}
	cleared := s.ledger.ClearAll()

	s.logger.Info("system reset", "documents_removed", removed, "sessions_cleared", cleared)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":           "system reset successfully",
		"documents_removed": removed,
		"sessions_cleared":  cleared,
		"status":            "not_initialized",
	})
}

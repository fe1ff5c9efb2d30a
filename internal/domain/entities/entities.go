// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import "time"

// Document represents a source document (PDF, TXT, MD, CSV, HTML).
// This is a core entity - no knowledge of storage or external systems.
type Document struct {
	ID        string
	Name      string
	Path      string
	Content   string
	Metadata  map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Chunk is a bounded slice of a source document's text, the unit of retrieval.
// Immutable once produced by the segmenter; owned by the vector store after ingestion.
type Chunk struct {
	ID         string
	DocumentID string
	SourceName string // source filename for citation
	Content    string
	Index      int               // position within the document
	Metadata   map[string]string // loader-provided metadata
	Embedding  []float32         // vector representation (populated by adapter)
}

// RetrievedChunk wraps a Chunk with its relevance for one query.
// Score is a distance (lower = closer); callers must not assume a fixed range,
// the exact metric is owned by the vector store backend.
// Rank is 1-based and contiguous, ascending by Score; ties keep store order.
// Created fresh per query, never persisted.
type RetrievedChunk struct {
	Chunk Chunk
	Score float64
	Rank  int
}

// SourceSummary is a truncated preview of a retrieved chunk used in answers
// and ledger entries. Never the full chunk text, to keep turns small.
type SourceSummary struct {
	ContentPreview string            `json:"content_preview"`
	Metadata       map[string]string `json:"metadata"`
	Score          float64           `json:"relevance_score"`
}

// ConversationTurn is one question/answer exchange plus its cited sources.
type ConversationTurn struct {
	Question  string          `json:"question"`
	Answer    string          `json:"answer"`
	Sources   []SourceSummary `json:"sources"`
	Timestamp time.Time       `json:"timestamp"`
}

// SessionSummary is the observability view of one conversation session.
type SessionSummary struct {
	SessionID            string    `json:"session_id"`
	TurnCount            int       `json:"conversation_count"`
	LastTimestamp        time.Time `json:"last_updated"`
	FirstQuestionPreview string    `json:"first_question_preview"`
}

// AnswerResult is the atomic-mode response for one question.
type AnswerResult struct {
	Question  string          `json:"question"`
	Answer    string          `json:"answer"`
	Sources   []SourceSummary `json:"sources"`
	SessionID string          `json:"session_id"`
}

// StreamEvent is one discrete event of a streaming answer. The stream always
// terminates with a Done=true event, success or failure.
type StreamEvent struct {
	Question    string          `json:"question,omitempty"`
	Sources     []SourceSummary `json:"sources,omitempty"`
	AnswerChunk string          `json:"answer_chunk,omitempty"`
	Answer      string          `json:"answer,omitempty"`
	Error       string          `json:"error,omitempty"`
	Done        bool            `json:"done"`
}

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	DocumentsLoaded int `json:"documents_loaded"`
	TotalChunks     int `json:"total_chunks"`
}

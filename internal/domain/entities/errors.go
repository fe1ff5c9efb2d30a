package entities

import "errors"

// Error taxonomy. Every failure maps to one of these sentinels so callers can
// branch with errors.Is instead of string matching. Underlying causes are
// attached by wrapping.
var (
	// ErrNotReady: a question was asked before ingestion succeeded.
	ErrNotReady = errors.New("system not initialized")

	// ErrNotInitialized: the retrieval engine has no vector store attached.
	ErrNotInitialized = errors.New("no vector store attached")

	// ErrNoDocuments: ingestion was attempted with nothing to ingest.
	ErrNoDocuments = errors.New("no documents found")

	// ErrSessionNotFound: an operation referenced an unknown session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrGeneration: the generation backend failed; surfaced, never retried.
	ErrGeneration = errors.New("generation failed")

	// ErrIngestion: unrecoverable failure while loading/chunking/embedding.
	ErrIngestion = errors.New("ingestion failed")

	// ErrIngestionBusy: a second initialize was requested while one is running.
	ErrIngestionBusy = errors.New("ingestion already in progress")
)

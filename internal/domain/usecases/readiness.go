// Package usecases contains application business rules.
// Clean Architecture: Usecases orchestrate entities and depend on port interfaces.
// They contain NO framework code - just the retrieval-and-synthesis pipeline.
package usecases

import "sync/atomic"

// Readiness is the process-wide flag gating question answering. It flips to
// ready only after an ingestion run succeeds and reverts on reset or failure.
// Constructed explicitly and injected, never a package global.
type Readiness struct {
	ready atomic.Bool
}

// NewReadiness starts in the not-initialized state.
func NewReadiness() *Readiness {
	return &Readiness{}
}

// Ready reports whether the vector index has been populated.
func (r *Readiness) Ready() bool {
	return r.ready.Load()
}

// Set transitions the readiness flag.
func (r *Readiness) Set(ready bool) {
	r.ready.Store(ready)
}

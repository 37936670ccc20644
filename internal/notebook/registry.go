package notebook

import (
	"context"
	"sync"
)

// Registry tracks which documents have a live stream. At most one
// stream may be registered per document, a second submission on the
// same document cancels the first instead of queueing.
type Registry struct {
	mu     sync.Mutex
	active map[string]context.CancelFunc
}

func NewRegistry() *Registry {
	return &Registry{active: make(map[string]context.CancelFunc)}
}

// Begin registers cancel under docID. It returns false if a stream is
// already registered, leaving the existing registration untouched.
func (r *Registry) Begin(docID string, cancel context.CancelFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[docID]; ok {
		return false
	}
	r.active[docID] = cancel
	return true
}

// Cancel aborts the stream registered under docID, if any, and releases
// the registration. It reports whether a stream was active.
func (r *Registry) Cancel(docID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cancel, ok := r.active[docID]
	if !ok {
		return false
	}
	cancel()
	delete(r.active, docID)
	return true
}

// End releases the registration without cancelling.
func (r *Registry) End(docID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, docID)
}

func (r *Registry) IsStreaming(docID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[docID]
	return ok
}

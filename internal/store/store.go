// Package store holds the in-memory mapping from stable conversation id to
// Document that backs both the search index and query responses.
package store

import (
	"sync"

	"github.com/mquayle/convoindex/internal/document"
)

// Store is a concurrency-safe document map keyed by conversation id.
type Store struct {
	mu   sync.RWMutex
	docs map[string]*document.Document
}

// New creates an empty Store.
func New() *Store {
	return &Store{docs: make(map[string]*document.Document)}
}

// Put inserts or replaces a document. A document is considered unchanged,
// and thus not replaced, when an existing entry has the same ContentHash.
func (s *Store) Put(doc *document.Document) (replaced bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.docs[doc.ID]
	if ok && existing.ContentHash == doc.ContentHash {
		return false
	}
	s.docs[doc.ID] = doc
	return ok
}

// Get returns the document for id, if present.
func (s *Store) Get(id string) (*document.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[id]
	return d, ok
}

// Delete removes a document from the store.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
}

// All returns every stored document. The returned slice is a snapshot; the
// caller may safely mutate it without affecting the store.
func (s *Store) All() []*document.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*document.Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	return out
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Package store keeps the open documents of a session, keyed by path.
//
// The store lock guards only the map. Every entry carries its own lock, so
// work on one document never waits on another.
package store

import (
	"leptosls/internal/document"
	"sort"
	"sync"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

type entry struct {
	mu     sync.RWMutex
	doc    *document.Document
	closed bool
}

// Store maps document keys to documents. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		entries: make(map[string]*entry),
	}
}

// Open inserts doc under key, replacing whatever was there.
func (s *Store) Open(key string, doc *document.Document) {
	for {
		e := s.lookupOrCreate(key)
		e.mu.Lock()
		if e.closed {
			// Lost a race with Close; the entry is gone from the map.
			e.mu.Unlock()
			continue
		}
		e.doc = doc
		e.mu.Unlock()
		return
	}
}

func (s *Store) lookupOrCreate(key string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	return e
}

func (s *Store) lookup(key string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	return e, ok
}

// View runs fn with shared access to the document under key. fn must not
// retain or modify doc.
func (s *Store) View(key string, fn func(doc *document.Document) error) error {
	e, ok := s.lookup(key)
	if !ok {
		return notFound(key)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed || e.doc == nil {
		return notFound(key)
	}
	return fn(e.doc)
}

// Snapshot returns an independent copy of the document under key.
func (s *Store) Snapshot(key string) (*document.Document, error) {
	var snapshot *document.Document
	err := s.View(key, func(doc *document.Document) error {
		snapshot = doc.Clone()
		return nil
	})
	return snapshot, err
}

// Region returns a copy of the text between start and end of the document
// under key.
func (s *Store) Region(key string, start, end protocol.Position) (string, error) {
	var text string
	err := s.View(key, func(doc *document.Document) (err error) {
		text, err = doc.Region(start, end)
		return err
	})
	return text, err
}

// Mutate runs fn with exclusive access to the document under key. fn
// works on a clone, which replaces the stored document only if fn returns
// nil.
func (s *Store) Mutate(key string, fn func(doc *document.Document) error) error {
	e, ok := s.lookup(key)
	if !ok {
		return notFound(key)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.doc == nil {
		return notFound(key)
	}

	working := e.doc.Clone()
	if err := fn(working); err != nil {
		return err
	}
	e.doc = working
	return nil
}

// Close removes the document under key. Later operations on key fail with
// ErrDocumentNotFound until it is opened again.
func (s *Store) Close(key string) error {
	s.mu.Lock()
	e, ok := s.entries[key]
	if ok {
		delete(s.entries, key)
	}
	s.mu.Unlock()

	if !ok {
		return notFound(key)
	}

	e.mu.Lock()
	e.closed = true
	e.doc = nil
	e.mu.Unlock()
	return nil
}

// Keys returns the keys of all open documents, sorted.
func (s *Store) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// Len returns the number of open documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

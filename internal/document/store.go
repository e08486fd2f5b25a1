package document

import (
	"context"
	"fmt"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/oxhq/sqlls/internal/catalog"
	"github.com/oxhq/sqlls/internal/dialect"
	"github.com/oxhq/sqlls/internal/grammar"
	"github.com/oxhq/sqlls/internal/ir"
	"github.com/oxhq/sqlls/internal/model"
)

// Store owns every open Document, keyed by URI. One Store is shared by
// a whole server session.
type Store struct {
	factory  *grammar.Factory
	registry *ir.Registry
	cat      catalog.Catalog

	mu   sync.RWMutex
	docs map[string]*Document
}

// NewStore builds an empty document store.
func NewStore(factory *grammar.Factory, registry *ir.Registry, cat catalog.Catalog) *Store {
	return &Store{factory: factory, registry: registry, cat: cat, docs: make(map[string]*Document)}
}

// Open registers a newly opened document, replacing any prior entry
// for the same URI (a duplicate didOpen is treated as a resync, not
// an error, matching typical LSP client behavior after a crash).
func (s *Store) Open(ctx context.Context, uri string, d dialect.Dialect, version int, text []byte, dialectVersion *semver.Version, filter catalog.SchemaFilter) (*Document, error) {
	doc, err := New(ctx, uri, d, version, text, s.factory, s.registry, s.cat, dialectVersion, filter)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.docs[uri] = doc
	s.mu.Unlock()
	return doc, nil
}

// Get returns the open document for uri, or an error if it is not
// open (an LSP client requesting a position-based operation against a
// document it never opened is a protocol violation, reported as an
// error rather than silently returning empty results).
func (s *Store) Get(uri string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[uri]
	if !ok {
		return nil, fmt.Errorf("document: %s: %w", uri, model.ErrDocumentNotOpen)
	}
	return doc, nil
}

// Close discards an open document.
func (s *Store) Close(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, uri)
}

// Len reports the number of currently open documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

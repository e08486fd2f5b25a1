// Package server wires every shared collaborator (document store,
// grammar factory, lowering registry, catalog, logger) into one
// struct exposing the core's external interface as plain Go methods:
// document lifecycle plus completion, hover, diagnostics, and symbols
// queries.
package server

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/oxhq/sqlls/internal/catalog"
	"github.com/oxhq/sqlls/internal/completion"
	"github.com/oxhq/sqlls/internal/config"
	"github.com/oxhq/sqlls/internal/dialect"
	"github.com/oxhq/sqlls/internal/diagnostics"
	"github.com/oxhq/sqlls/internal/document"
	"github.com/oxhq/sqlls/internal/grammar"
	"github.com/oxhq/sqlls/internal/hover"
	"github.com/oxhq/sqlls/internal/ir"
	"github.com/oxhq/sqlls/internal/lspmodel"
	"github.com/oxhq/sqlls/internal/resolve"
	"github.com/oxhq/sqlls/internal/symbols"
)

// Server wires every component behind the core's external interface.
// It holds no transport concerns (JSON-RPC framing, stdio
// plumbing) — those belong to an editor-integration layer outside
// this module.
type Server struct {
	log     *zap.Logger
	store   *document.Store
	grammar *grammar.Factory
	loweri  *ir.Registry
	cat     catalog.Catalog

	completion *completion.Engine
	hovers     *hover.Provider
}

// New builds a Server. cat is the outbound Catalog implementation the
// caller supplies (an in-memory fixture, or glue over a live
// database/static file/cache — all out of scope for this module).
// fold selects the engine-wide identifier case-folding rule.
func New(log *zap.Logger, cat catalog.Catalog, fold resolve.FoldingRule) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	factory := grammar.NewFactory()
	registry := ir.NewRegistry()

	store := document.NewStore(factory, registry, cat)
	return &Server{
		log:        log,
		store:      store,
		grammar:    factory,
		loweri:     registry,
		cat:        cat,
		completion: completion.NewEngine(store, fold),
		hovers:     hover.NewProvider(store, fold),
	}
}

// RegisterLowering installs the Lowering implementation for a dialect
// (see cmd/sqllsd for the standard wiring of every supported dialect).
func (s *Server) RegisterLowering(d dialect.Dialect, l ir.Lowering) error {
	return s.loweri.Register(d.String(), l)
}

// Open implements open(uri, text, dialect, engine_config).
func (s *Server) Open(ctx context.Context, uri string, text string, cfg config.EngineConfig) error {
	cfg = cfg.Defaulted()
	version, err := cfg.ParsedDialectVersion()
	if err != nil {
		return fmt.Errorf("server: open %s: %w", uri, err)
	}
	doc, err := s.store.Open(ctx, uri, cfg.Dialect, 1, []byte(text), version, cfg.SchemaFilter)
	if err != nil {
		s.log.Warn("open failed", zap.String("uri", uri), zap.Error(err))
		return fmt.Errorf("server: open %s: %w", uri, err)
	}
	doc.SetCatalogTimeout(cfg.QueryTimeout)
	s.log.Debug("document opened", zap.String("uri", uri), zap.String("dialect", cfg.Dialect.String()))
	return nil
}

// ContentChange is one entry of change(uri, [ContentChange]): either
// a ranged replacement (Range non-nil) or a whole-document
// replacement (Range nil).
type ContentChange struct {
	Range   *document.Range
	NewText string
}

// Change implements change(uri, [ContentChange]).
func (s *Server) Change(ctx context.Context, uri string, version int, changes []ContentChange) error {
	doc, err := s.store.Get(uri)
	if err != nil {
		return fmt.Errorf("server: change %s: %w", uri, err)
	}
	for _, c := range changes {
		if c.Range == nil {
			if err := doc.ReplaceAll(ctx, version, []byte(c.NewText)); err != nil {
				return fmt.Errorf("server: change %s: %w", uri, err)
			}
			continue
		}
		if err := doc.ApplyChange(ctx, *c.Range, c.NewText); err != nil {
			return fmt.Errorf("server: change %s: %w", uri, err)
		}
	}
	return nil
}

// Close implements close(uri).
func (s *Server) Close(uri string) {
	s.store.Close(uri)
	s.log.Debug("document closed", zap.String("uri", uri))
}

// Completion implements completion(uri, position, trigger) ->
// CompletionList. trigger is accepted for interface parity with the
// LSP wire protocol but does not change candidate generation: every
// context already recomputes its own candidate set regardless of
// what triggered the request.
func (s *Server) Completion(ctx context.Context, uri string, pos lspmodel.Position, trigger string) (lspmodel.CompletionList, error) {
	return s.completion.Complete(ctx, uri, pos)
}

// Hover implements hover(uri, position) -> Option<Hover>.
func (s *Server) Hover(ctx context.Context, uri string, pos lspmodel.Position) (*lspmodel.Hover, error) {
	return s.hovers.Hover(ctx, uri, pos)
}

// Diagnostics implements diagnostics(uri) -> [Diagnostic].
func (s *Server) Diagnostics(ctx context.Context, uri string) ([]lspmodel.Diagnostic, error) {
	doc, err := s.store.Get(uri)
	if err != nil {
		return nil, fmt.Errorf("server: diagnostics %s: %w", uri, err)
	}
	return diagnostics.Collect(ctx, doc)
}

// Symbols implements symbols(uri) -> [DocumentSymbol].
func (s *Server) Symbols(ctx context.Context, uri string) ([]symbols.DocumentSymbol, error) {
	return symbols.List(ctx, s.store, uri)
}

// OpenDocumentCount reports how many documents are currently open
// (used by health checks / tests, not part of the external interface).
func (s *Server) OpenDocumentCount() int {
	return s.store.Len()
}

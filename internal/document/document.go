// Package document owns the per-document state of the server:
// text buffer, incremental CST maintenance, and single-flighted
// derived-cache rebuilds (lowered IR + scope tree), so concurrent
// completion/hover/diagnostics requests against the same version never
// redo the same work.
package document

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/oxhq/sqlls/internal/catalog"
	"github.com/oxhq/sqlls/internal/dialect"
	"github.com/oxhq/sqlls/internal/grammar"
	"github.com/oxhq/sqlls/internal/ir"
	"github.com/oxhq/sqlls/internal/scope"

	"github.com/Masterminds/semver/v3"
)

// Position is a zero-based LSP position.
type Position struct {
	Line, Character uint32
}

// Range is a half-open LSP range.
type Range struct {
	Start, End Position
}

// snapshot is the full set of derived caches for one CST version.
// Rebuilt atomically as a unit so readers never observe a lowering
// result paired with a stale scope tree.
type snapshot struct {
	version   int
	lowering  ir.LoweringResult
	scopes    *scope.Tree
	scopeDiag []scope.Diagnostic
}

// Document is one open buffer plus its derived caches. Every exported
// method is safe for concurrent use.
type Document struct {
	URI string

	mu      sync.RWMutex
	buf     *buffer
	cst     *grammar.CST
	dlct    dialect.Dialect
	version int

	factory     *grammar.Factory
	registry    *ir.Registry
	cat         catalog.Catalog
	dlctVersion *semver.Version
	filter      catalog.SchemaFilter
	catTimeout  time.Duration

	cache atomic.Pointer[snapshot]
	sf    singleflight.Group
}

// New opens a document, performing the initial parse.
func New(ctx context.Context, uri string, d dialect.Dialect, version int, text []byte,
	factory *grammar.Factory, registry *ir.Registry, cat catalog.Catalog, dialectVersion *semver.Version,
	filter catalog.SchemaFilter) (*Document, error) {

	cst, err := factory.Parse(ctx, d, text)
	if err != nil {
		return nil, fmt.Errorf("document: initial parse of %s: %w", uri, err)
	}
	return &Document{
		URI:         uri,
		buf:         newBuffer(text),
		cst:         cst,
		dlct:        d,
		version:     version,
		factory:     factory,
		registry:    registry,
		cat:         cat,
		dlctVersion: dialectVersion,
		filter:      filter,
	}, nil
}

// DefaultCatalogTimeout bounds catalog prefetches during rebuilds when
// the engine configuration does not override it.
const DefaultCatalogTimeout = 5 * time.Second

// SetCatalogTimeout overrides the per-rebuild catalog prefetch
// deadline (EngineConfig.QueryTimeout). Zero keeps the default.
func (d *Document) SetCatalogTimeout(t time.Duration) {
	d.mu.Lock()
	d.catTimeout = t
	d.mu.Unlock()
}

// SchemaFilter returns the engine-configured schema filter for this
// document.
func (d *Document) SchemaFilter() catalog.SchemaFilter {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.filter
}

// Catalog returns the catalog backing this document, so callers (the
// Completion Engine) can query it directly for candidates that are not
// scope-bound (e.g. table-name completion).
func (d *Document) Catalog() catalog.Catalog {
	return d.cat
}

// Text returns the document's current full text. Callers must not
// mutate the returned slice.
func (d *Document) Text() []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.buf.Bytes()
}

// Version returns the current document version (bumped on every edit).
func (d *Document) Version() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// CST returns the current CST snapshot.
func (d *Document) CST() *grammar.CST {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cst
}

// Dialect returns the document's configured dialect.
func (d *Document) Dialect() dialect.Dialect {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dlct
}

// ByteOffset translates a zero-based LSP position into a byte offset
// within the document's current text.
func (d *Document) ByteOffset(line, character uint32) uint32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.buf.OffsetForPosition(line, character)
}

// PositionAt translates a byte offset into a zero-based LSP position.
func (d *Document) PositionAt(offset uint32) Position {
	d.mu.RLock()
	defer d.mu.RUnlock()
	line, col := d.buf.PositionForOffset(offset)
	return Position{Line: line, Character: col}
}

// ApplyChange applies one incremental text edit: rng names the byte
// span being replaced (in LSP line/character coordinates) and
// newText is its replacement. The CST is incrementally reparsed and
// the version counter is bumped; derived caches (lowering, scope
// tree) are invalidated lazily — the next Rebuild call recomputes
// them from the new CST.
func (d *Document) ApplyChange(ctx context.Context, rng Range, newText string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	startByte := d.buf.OffsetForPosition(rng.Start.Line, rng.Start.Character)
	endByte := d.buf.OffsetForPosition(rng.End.Line, rng.End.Character)

	edit := grammar.Edit{
		StartByte:   startByte,
		OldEndByte:  endByte,
		NewEndByte:  startByte + uint32(len(newText)),
		StartPoint:  grammar.Point{Row: rng.Start.Line, Column: rng.Start.Character},
		OldEndPoint: grammar.Point{Row: rng.End.Line, Column: rng.End.Character},
	}

	newFullText := d.buf.Apply(startByte, endByte, []byte(newText))
	endLine, endCol := d.buf.PositionForOffset(edit.NewEndByte)
	edit.NewEndPoint = grammar.Point{Row: endLine, Column: endCol}

	cst, err := d.factory.Reparse(ctx, d.cst, edit, newFullText)
	if err != nil {
		return fmt.Errorf("document: reparse of %s: %w", d.URI, err)
	}
	d.cst = cst
	d.version++
	// The derived-cache snapshot is version-keyed, so bumping the
	// version implicitly invalidates it; the singleflight key is
	// version-qualified too, so a rebuild in flight for the old
	// version never satisfies a request for this one.
	return nil
}

// ReplaceAll replaces the full document text (used for
// TextDocumentContentChangeEvent variants with no range, i.e. whole
// document sync).
func (d *Document) ReplaceAll(ctx context.Context, version int, text []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cst, err := d.factory.Parse(ctx, d.dlct, text)
	if err != nil {
		return fmt.Errorf("document: full-sync parse of %s: %w", d.URI, err)
	}
	d.buf = newBuffer(text)
	d.cst = cst
	d.version = version
	return nil
}

// Rebuild returns the lowered IR and scope tree for the document's
// current version, computing them at most once per version even
// under concurrent callers (singleflight.Group keyed by version).
func (d *Document) Rebuild(ctx context.Context) (ir.LoweringResult, *scope.Tree, []scope.Diagnostic, error) {
	d.mu.RLock()
	cst := d.cst
	version := d.version
	d.mu.RUnlock()

	if s := d.cache.Load(); s != nil && s.version == version {
		return s.lowering, s.scopes, s.scopeDiag, nil
	}

	key := fmt.Sprintf("%d", version)
	v, err, _ := d.sf.Do(key, func() (any, error) {
		return d.rebuildOnce(ctx, cst, version)
	})
	if err != nil {
		return ir.LoweringResult{}, nil, nil, err
	}
	s := v.(*snapshot)
	return s.lowering, s.scopes, s.scopeDiag, nil
}

func (d *Document) rebuildOnce(ctx context.Context, cst *grammar.CST, version int) (*snapshot, error) {
	lowering := d.registry.For(cst.Dialect().String())
	if lowering == nil {
		return nil, fmt.Errorf("document: no lowering registered for dialect %s", cst.Dialect())
	}

	result := lowering.Lower(cst.Root(), d.dlctVersion)

	var q *ir.Query
	if result.Stmt != nil {
		q = result.Stmt.Query
	}

	refs := collectTableRefs(q)

	// The prefetch is the only suspending stage of a rebuild; it runs
	// under the configured catalog timeout so a slow catalog degrades
	// to empty columns instead of stalling the request.
	d.mu.RLock()
	timeout := d.catTimeout
	d.mu.RUnlock()
	if timeout <= 0 {
		timeout = DefaultCatalogTimeout
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	view := catalog.Prefetch(fetchCtx, d.cat, refs)

	tree, diags := scope.Build(q, view)

	s := &snapshot{version: version, lowering: result, scopes: tree, scopeDiag: diags}
	d.cache.Store(s)
	return s, nil
}

// collectTableRefs walks q collecting every base-table reference so
// they can be prefetched from the catalog in one batch before scope
// building starts.
func collectTableRefs(q *ir.Query) []catalog.TableRef {
	var out []catalog.TableRef
	if q == nil {
		return out
	}
	for _, cte := range q.With {
		out = append(out, collectTableRefs(cte.Body)...)
	}
	out = append(out, collectSetExprRefs(&q.Body)...)
	return out
}

func collectSetExprRefs(se *ir.SetExpr) []catalog.TableRef {
	if se == nil {
		return nil
	}
	if se.Kind != ir.SetExprSelect {
		return append(collectSetExprRefs(se.Left), collectSetExprRefs(se.Right)...)
	}
	if se.Select == nil {
		return nil
	}
	var out []catalog.TableRef
	for _, item := range se.Select.From {
		out = append(out, fromItemRefs(item)...)
	}
	for _, j := range se.Select.Joins {
		out = append(out, fromItemRefs(j.Item)...)
	}
	for _, p := range se.Select.Projections {
		out = append(out, exprRefs(p.Expr)...)
	}
	out = append(out, exprRefs(se.Select.Where)...)
	out = append(out, exprRefs(se.Select.Having)...)
	return out
}

func fromItemRefs(item ir.FromItem) []catalog.TableRef {
	switch item.Kind {
	case ir.FromSubquery:
		return collectTableRefs(item.Subquery)
	default:
		if item.Table == nil {
			return nil
		}
		return []catalog.TableRef{{Schema: item.Table.Schema, Table: item.Table.Name}}
	}
}

func exprRefs(e ir.Expr) []catalog.TableRef {
	var out []catalog.TableRef
	if e.Subquery != nil {
		out = append(out, collectTableRefs(e.Subquery)...)
	}
	for _, a := range e.Args {
		out = append(out, exprRefs(a)...)
	}
	return out
}


// Package catalog defines the outbound Catalog contract the core
// consumes plus a synchronous, prefetched view of it that the Scope
// Builder can use without suspending: column metadata is fetched in
// parallel before scope building starts and consumed synchronously
// during it.
//
// Concrete implementations over live databases, static files, or
// caches are explicitly out of scope; this package only owns the
// trait plus a minimal in-memory implementation used for tests and
// the demo entrypoint.
package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/gobwas/glob"
)

// ColumnMetadata is one column as reported by the catalog.
type ColumnMetadata struct {
	Name     string
	DataType string
	Nullable bool
	Comment  string
}

// TableMetadata is one table/view as reported by the catalog.
type TableMetadata struct {
	Schema  string
	Name    string
	Columns []ColumnMetadata
}

// FunctionMetadata is one builtin or user-defined function.
type FunctionMetadata struct {
	Schema      string
	Name        string
	Signature   string
	IsAggregate bool
	IsWindow    bool
}

// Catalog is the outbound interface the core consumes. Implementations
// over live databases, static files (YAML/JSON), or caches are glue
// and live outside this package.
type Catalog interface {
	ListTables(ctx context.Context, filter SchemaFilter) ([]TableMetadata, error)
	GetColumns(ctx context.Context, schema, table string) ([]ColumnMetadata, error)
	GetColumnsBatch(ctx context.Context, refs []TableRef) (map[TableRef][]ColumnMetadata, error)
	ListFunctions(ctx context.Context, filter SchemaFilter) ([]FunctionMetadata, error)
	TableExists(ctx context.Context, schema, table string) (bool, error)
}

// TableRef identifies one table for a batched lookup.
type TableRef struct {
	Schema string
	Table  string
}

// SchemaFilter is a glob-based predicate restricting which database
// objects are visible.
type SchemaFilter struct {
	AllowedSchemas     []string
	AllowedTablesGlob  []string
	ExcludedTablesGlob []string

	compileOnce sync.Once
	allowed     []glob.Glob
	excluded    []glob.Glob
}

func (f *SchemaFilter) compile() {
	f.compileOnce.Do(func() {
		for _, p := range f.AllowedTablesGlob {
			if g, err := glob.Compile(p); err == nil {
				f.allowed = append(f.allowed, g)
			}
		}
		for _, p := range f.ExcludedTablesGlob {
			if g, err := glob.Compile(p); err == nil {
				f.excluded = append(f.excluded, g)
			}
		}
	})
}

// Allows reports whether (schema, table) passes the filter: the
// schema is allowed (or no allowlist set), the table is not excluded,
// and the table is allowed (or no allowlist set).
func (f *SchemaFilter) Allows(schema, table string) bool {
	if f == nil {
		return true
	}
	f.compile()

	if len(f.AllowedSchemas) > 0 {
		ok := false
		for _, s := range f.AllowedSchemas {
			if strings.EqualFold(s, schema) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	for _, g := range f.excluded {
		if g.Match(table) {
			return false
		}
	}

	if len(f.allowed) > 0 {
		ok := false
		for _, g := range f.allowed {
			if g.Match(table) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	return true
}

// PrefetchedView is a synchronous snapshot of catalog data gathered
// before scope building starts, so the scope builder itself never
// suspends. Misses are represented as "not found", never as errors —
// a catalog miss becomes an UNDEFINED_TABLE diagnostic, not an
// aborted scope build.
type PrefetchedView struct {
	mu      sync.RWMutex
	columns map[TableRef][]ColumnMetadata
	tables  map[string][]TableMetadata // schema -> tables, "" for default schema
}

// NewPrefetchedView builds an empty view.
func NewPrefetchedView() *PrefetchedView {
	return &PrefetchedView{
		columns: make(map[TableRef][]ColumnMetadata),
		tables:  make(map[string][]TableMetadata),
	}
}

// Prefetch populates the view for every table referenced by refs
// with a single GetColumnsBatch call over the deduplicated refs,
// passing ctx through to the catalog. Prefetch itself starts no
// goroutines and applies no timeout of its own; whether the batch is
// fetched concurrently depends on the Catalog implementation.
// A failed or timed-out fetch degrades to empty columns, not an
// error — callers that need to observe a timeout should wrap cat
// with a context deadline.
func Prefetch(ctx context.Context, cat Catalog, refs []TableRef) *PrefetchedView {
	v := NewPrefetchedView()
	if len(refs) == 0 {
		return v
	}

	unique := dedupeRefs(refs)
	results, _ := cat.GetColumnsBatch(ctx, unique)

	v.mu.Lock()
	defer v.mu.Unlock()
	for _, ref := range unique {
		if cols, ok := results[ref]; ok {
			v.columns[ref] = cols
		}
	}
	return v
}

func dedupeRefs(refs []TableRef) []TableRef {
	seen := map[TableRef]bool{}
	out := make([]TableRef, 0, len(refs))
	for _, r := range refs {
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

// Columns returns the prefetched columns for (schema, table), and
// whether the table was found in the catalog at all (false ==
// UNDEFINED_TABLE).
func (v *PrefetchedView) Columns(schema, table string) ([]ColumnMetadata, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	cols, ok := v.columns[TableRef{Schema: schema, Table: table}]
	return cols, ok
}

// ListTables returns every table known to the view, filtered and
// sorted for stable completion ordering.
func (v *PrefetchedView) ListTables(filter SchemaFilter) []TableMetadata {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var out []TableMetadata
	for schema, tables := range v.tables {
		for _, t := range tables {
			if filter.Allows(schema, t.Name) {
				out = append(out, t)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

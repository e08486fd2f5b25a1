// Package scope builds the nested scope tree: which tables (and
// synthetic tables from subqueries/CTEs) are visible at each position,
// with aliases.
//
// Scopes are arena-allocated per document and linked by ScopeId index
// rather than owning pointers, so no back-pointer can outlive its
// arena.
package scope

import (
	"github.com/oxhq/sqlls/internal/catalog"
	"github.com/oxhq/sqlls/internal/ir"
)

// ScopeId indexes into a Tree's arena. The zero value is the id of the
// first scope added (the root); NoScope is used as the explicit
// "no parent" sentinel.
type ScopeId int

const NoScope ScopeId = -1

// Kind is the closed set of scope kinds.
type Kind int

const (
	KindSelect Kind = iota
	KindCTE
	KindSubquery
)

// Origin is the closed set of places a TableSymbol can come from.
type Origin int

const (
	OriginCatalog Origin = iota
	OriginSubquery
	OriginCTE
)

// ColumnSymbol is one column binding on a TableSymbol.
type ColumnSymbol struct {
	Name               string
	DataType           *string // nil when unknown (subquery-derived)
	Nullable           bool
	Comment            *string
	OwningTableDisplay string
}

// TableSymbol is one binding in a scope: one base table, one
// subquery, or one CTE appearance.
type TableSymbol struct {
	TableName string
	Alias     string // "" if none
	Columns   []ColumnSymbol
	Origin    Origin
	Ambiguous bool // set when the display name collides with a sibling's
	Span      ir.Span
}

// DisplayName returns the name by which the user refers to this
// symbol in its scope: the alias if present, else the table name.
func (t TableSymbol) DisplayName() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.TableName
}

// Scope is one node in the scope tree.
type Scope struct {
	Tables   []TableSymbol
	Parent   ScopeId
	CSTRange ir.Span
	Kind     Kind
}

// Tree owns every Scope for one document as an arena, indexed by
// ScopeId. The root scope (if any) is index 0.
type Tree struct {
	scopes []Scope
}

// NewTree creates an empty scope arena.
func NewTree() *Tree { return &Tree{} }

// Add appends a scope to the arena and returns its id.
func (t *Tree) Add(s Scope) ScopeId {
	t.scopes = append(t.scopes, s)
	return ScopeId(len(t.scopes) - 1)
}

// Get returns the scope for id. Panics on an out-of-range id, which
// would indicate an internal invariant violation (never a user-caused
// error) — callers that accept untrusted ids should bounds-check first.
func (t *Tree) Get(id ScopeId) *Scope {
	return &t.scopes[id]
}

// Len returns the number of scopes in the arena.
func (t *Tree) Len() int { return len(t.scopes) }

// Root returns the id of the outermost scope, or NoScope if the tree
// is empty.
func (t *Tree) Root() ScopeId {
	if len(t.scopes) == 0 {
		return NoScope
	}
	return 0
}

// ScopeAt descends from root into the deepest scope whose CSTRange
// contains offset.
func (t *Tree) ScopeAt(offset uint32) ScopeId {
	root := t.Root()
	if root == NoScope {
		return NoScope
	}
	return t.scopeAtFrom(root, offset)
}

func (t *Tree) scopeAtFrom(id ScopeId, offset uint32) ScopeId {
	best := id
	for {
		found := NoScope
		for i := range t.scopes {
			s := &t.scopes[i]
			if s.Parent != best {
				continue
			}
			if uint32(s.CSTRange.Start) <= offset && offset < uint32(s.CSTRange.End) {
				found = ScopeId(i)
				break
			}
		}
		if found == NoScope {
			return best
		}
		best = found
	}
}

// VisibleColumns returns the union of columns of TableSymbols across
// the scope chain (parent scopes included), minus shadowing. Within
// one scope, a later TableSymbol with the same display name shadows
// an earlier one for column visibility purposes; Ambiguous is still
// reported by the caller via Diagnostics.
func (t *Tree) VisibleColumns(id ScopeId) []ColumnSymbol {
	var out []ColumnSymbol
	seen := map[string]bool{} // display_name already contributed at a closer scope
	for cur := id; cur != NoScope; {
		s := t.Get(cur)
		byName := map[string]TableSymbol{}
		order := []string{}
		for _, tbl := range s.Tables {
			name := tbl.DisplayName()
			if _, ok := byName[name]; !ok {
				order = append(order, name)
			}
			byName[name] = tbl // later binding shadows earlier one
		}
		for _, name := range order {
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, byName[name].Columns...)
		}
		cur = s.Parent
	}
	return out
}

// VisibleTables returns every TableSymbol across the scope chain,
// closest scope first, in FROM/JOIN source order within each scope.
func (t *Tree) VisibleTables(id ScopeId) []TableSymbol {
	var out []TableSymbol
	for cur := id; cur != NoScope; {
		s := t.Get(cur)
		out = append(out, s.Tables...)
		cur = s.Parent
	}
	return out
}

// catalogLookup is the narrow slice of the Catalog the Scope Builder
// needs: synchronous column lookup over a prefetched view, so scope
// building itself never suspends.
type catalogLookup interface {
	Columns(schema, table string) ([]catalog.ColumnMetadata, bool)
}

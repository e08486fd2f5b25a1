package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/sqlls/internal/ir"
)

func TestDisplayNamePrefersAlias(t *testing.T) {
	t.Parallel()
	withAlias := TableSymbol{TableName: "users", Alias: "u"}
	assert.Equal(t, "u", withAlias.DisplayName())

	withoutAlias := TableSymbol{TableName: "users"}
	assert.Equal(t, "users", withoutAlias.DisplayName())
}

func TestTreeAddGetLen(t *testing.T) {
	t.Parallel()
	tree := NewTree()
	assert.Equal(t, NoScope, tree.Root())
	assert.Equal(t, 0, tree.Len())

	id := tree.Add(Scope{Parent: NoScope, Kind: KindSelect})
	require.Equal(t, ScopeId(0), id)
	assert.Equal(t, 1, tree.Len())
	assert.Equal(t, ScopeId(0), tree.Root())
	assert.Equal(t, KindSelect, tree.Get(id).Kind)
}

func TestScopeAtDescendsToDeepestContainingRange(t *testing.T) {
	t.Parallel()
	tree := NewTree()
	outer := tree.Add(Scope{Parent: NoScope, CSTRange: ir.Span{Start: 0, End: 100}})
	inner := tree.Add(Scope{Parent: outer, CSTRange: ir.Span{Start: 20, End: 60}})
	innermost := tree.Add(Scope{Parent: inner, CSTRange: ir.Span{Start: 30, End: 40}})

	assert.Equal(t, outer, tree.ScopeAt(5))
	assert.Equal(t, inner, tree.ScopeAt(25))
	assert.Equal(t, innermost, tree.ScopeAt(35))
	// Past every range: falls back to the closest ancestor reached.
	assert.Equal(t, outer, tree.ScopeAt(99))
}

func TestScopeAtEmptyTree(t *testing.T) {
	t.Parallel()
	tree := NewTree()
	assert.Equal(t, NoScope, tree.ScopeAt(0))
}

func TestVisibleTablesWalksParentChain(t *testing.T) {
	t.Parallel()
	tree := NewTree()
	outerID := tree.Add(Scope{
		Parent: NoScope,
		Tables: []TableSymbol{{TableName: "users", Alias: "u"}},
	})
	innerID := tree.Add(Scope{
		Parent: outerID,
		Tables: []TableSymbol{{TableName: "orders", Alias: "o"}},
	})

	tables := tree.VisibleTables(innerID)
	require.Len(t, tables, 2)
	assert.Equal(t, "orders", tables[0].TableName, "closest scope first")
	assert.Equal(t, "users", tables[1].TableName)
}

func TestVisibleColumnsUnionMinusShadowing(t *testing.T) {
	t.Parallel()
	tree := NewTree()
	outerID := tree.Add(Scope{
		Parent: NoScope,
		Tables: []TableSymbol{{
			TableName: "users",
			Alias:     "u",
			Columns:   []ColumnSymbol{{Name: "id"}, {Name: "name"}},
		}},
	})
	// Inner scope reuses display name "u" for a different table: per I3
	// this shadows the outer "u" for column visibility purposes.
	innerID := tree.Add(Scope{
		Parent: outerID,
		Tables: []TableSymbol{{
			TableName: "orders",
			Alias:     "u",
			Columns:   []ColumnSymbol{{Name: "order_id"}},
		}},
	})

	cols := tree.VisibleColumns(innerID)
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	assert.ElementsMatch(t, []string{"order_id"}, names, "inner 'u' shadows outer 'u' entirely")
}

func TestVisibleColumnsAcrossDistinctNames(t *testing.T) {
	t.Parallel()
	tree := NewTree()
	outerID := tree.Add(Scope{
		Parent: NoScope,
		Tables: []TableSymbol{{
			TableName: "users",
			Alias:     "u",
			Columns:   []ColumnSymbol{{Name: "id"}},
		}},
	})
	innerID := tree.Add(Scope{
		Parent: outerID,
		Tables: []TableSymbol{{
			TableName: "orders",
			Alias:     "o",
			Columns:   []ColumnSymbol{{Name: "order_id"}},
		}},
	})

	cols := tree.VisibleColumns(innerID)
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	assert.ElementsMatch(t, []string{"id", "order_id"}, names)
}

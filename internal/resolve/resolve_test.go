package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/sqlls/internal/scope"
)

func buildScope(tables ...scope.TableSymbol) (*scope.Tree, scope.ScopeId) {
	tree := scope.NewTree()
	id := tree.Add(scope.Scope{Parent: scope.NoScope, Tables: tables})
	return tree, id
}

func TestResolveExactMatch(t *testing.T) {
	u := scope.TableSymbol{TableName: "users", Alias: "u"}
	o := scope.TableSymbol{TableName: "orders", Alias: "o"}
	tree, id := buildScope(u, o)

	res := Resolve("u", tree, id, FoldNever)
	require.Equal(t, OutcomeUnique, res.Outcome)
	assert.Equal(t, "users", res.Unique.TableName)
}

func TestResolveCaseInsensitiveExact(t *testing.T) {
	// A second, unrelated table keeps SingleTableFallback from masking
	// the case-folding behavior under test.
	u := scope.TableSymbol{TableName: "Users", Alias: "U"}
	o := scope.TableSymbol{TableName: "orders", Alias: "o"}
	tree, id := buildScope(u, o)

	res := Resolve("u", tree, id, FoldUnquotedOnly)
	require.Equal(t, OutcomeUnique, res.Outcome)
	assert.Equal(t, "Users", res.Unique.TableName)

	res = Resolve("u", tree, id, FoldNever)
	assert.Equal(t, OutcomeNotFound, res.Outcome)
}

func TestResolveStartsWithUnique(t *testing.T) {
	usr := scope.TableSymbol{TableName: "users", Alias: "usr"}
	tree, id := buildScope(usr)

	res := Resolve("us", tree, id, FoldNever)
	require.Equal(t, OutcomeUnique, res.Outcome)
	assert.Equal(t, "users", res.Unique.TableName)
}

func TestResolveStartsWithAmbiguous(t *testing.T) {
	a := scope.TableSymbol{TableName: "users", Alias: "usr_a"}
	b := scope.TableSymbol{TableName: "users2", Alias: "usr_b"}
	tree, id := buildScope(a, b)

	// StartsWithUnique only matches when exactly one symbol starts with
	// the prefix; "usr" matches two, no later strategy applies, and the
	// scope has two tables, so nothing resolves.
	res := Resolve("usr", tree, id, FoldNever)
	assert.Equal(t, OutcomeNotFound, res.Outcome)
	assert.Len(t, res.Matches, 0)
}

func TestResolveInitialPlusDigits(t *testing.T) {
	u1 := scope.TableSymbol{TableName: "users", Alias: "u1"}
	u2 := scope.TableSymbol{TableName: "users", Alias: "u2"}
	tree, id := buildScope(u1, u2)

	res := Resolve("u1", tree, id, FoldNever)
	require.Equal(t, OutcomeUnique, res.Outcome)
	assert.Equal(t, "u1", res.Unique.Alias)

	res = Resolve("u2", tree, id, FoldNever)
	require.Equal(t, OutcomeUnique, res.Outcome)
	assert.Equal(t, "u2", res.Unique.Alias)
}

func TestResolveInitialPlusDigitsMatchesUnaliasedTable(t *testing.T) {
	u := scope.TableSymbol{TableName: "users"}
	o := scope.TableSymbol{TableName: "orders"}
	tree, id := buildScope(u, o)

	res := Resolve("u1", tree, id, FoldNever)
	require.Equal(t, OutcomeUnique, res.Outcome)
	assert.Equal(t, "users", res.Unique.TableName, "an unaliased table whose name begins with the captured letter matches")
}

func TestResolveInitialPlusDigitsAmbiguousAcrossUnaliasedTables(t *testing.T) {
	a := scope.TableSymbol{TableName: "users"}
	b := scope.TableSymbol{TableName: "user_accounts"}
	tree, id := buildScope(a, b)

	res := Resolve("u1", tree, id, FoldNever)
	require.Equal(t, OutcomeAmbiguous, res.Outcome)
	assert.Len(t, res.Matches, 2)
}

func TestResolveSingleTableFallback(t *testing.T) {
	u := scope.TableSymbol{TableName: "users"}
	tree, id := buildScope(u)

	res := Resolve("anything", tree, id, FoldNever)
	require.Equal(t, OutcomeUnique, res.Outcome)
	assert.Equal(t, "users", res.Unique.TableName)
}

func TestResolveDoesNotCrossScopesForInitialPlusDigits(t *testing.T) {
	// InitialPlusDigits never crosses scopes on its own, and
	// SingleTableFallback is tried
	// before giving up on the current scope: a scope with exactly one
	// table resolves any otherwise-unmatched prefix to that table
	// without ever consulting the parent, even though "u1" looks like
	// it should match the outer scope's "u1"-aliased table.
	outer := scope.NewTree()
	outerID := outer.Add(scope.Scope{
		Parent: scope.NoScope,
		Tables: []scope.TableSymbol{{TableName: "users", Alias: "u1"}},
	})
	innerID := outer.Add(scope.Scope{
		Parent: outerID,
		Tables: []scope.TableSymbol{{TableName: "orders", Alias: "o"}},
	})

	res := Resolve("u1", outer, innerID, FoldNever)
	require.Equal(t, OutcomeUnique, res.Outcome)
	assert.Equal(t, "orders", res.Unique.TableName, "single-table fallback claims the inner scope before the parent is ever consulted")
}

func TestResolveFallsBackToParentWhenCurrentScopeTrulyEmpty(t *testing.T) {
	outer := scope.NewTree()
	outerID := outer.Add(scope.Scope{
		Parent: scope.NoScope,
		Tables: []scope.TableSymbol{{TableName: "users", Alias: "u"}},
	})
	// An inner scope with no tables of its own (e.g. a correlated
	// subquery with only a WHERE clause) has every strategy produce
	// an empty set, so Resolve retries in the parent.
	innerID := outer.Add(scope.Scope{Parent: outerID})

	res := Resolve("u", outer, innerID, FoldNever)
	require.Equal(t, OutcomeUnique, res.Outcome)
	assert.Equal(t, "users", res.Unique.TableName)
}

func TestResolveNotFound(t *testing.T) {
	tree, id := buildScope()
	res := Resolve("missing", tree, id, FoldNever)
	assert.Equal(t, OutcomeNotFound, res.Outcome)
}

// Package e2e exercises a fully wired Server end to end: document
// open through completion and diagnostics, over an in-memory
// catalog, instead of testing one component at a time.
package e2e

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oxhq/sqlls/internal/catalog"
	"github.com/oxhq/sqlls/internal/config"
	"github.com/oxhq/sqlls/internal/dialect"
	"github.com/oxhq/sqlls/internal/ir"
	"github.com/oxhq/sqlls/internal/lspmodel"
	"github.com/oxhq/sqlls/internal/resolve"
	"github.com/oxhq/sqlls/internal/server"
)

// schemaCatalog builds the shared fixture schema: users{id, username,
// email}, orders{id, user_id, total, status}, order_items{id,
// order_id, product_id, quantity}.
func schemaCatalog() *catalog.Memory {
	mem := catalog.NewMemory()
	mem.AddTable("", "users",
		catalog.Col("id", "INT", false),
		catalog.Col("username", "VARCHAR", false),
		catalog.Col("email", "VARCHAR", true),
	)
	mem.AddTable("", "orders",
		catalog.Col("id", "INT", false),
		catalog.Col("user_id", "INT", false),
		catalog.Col("total", "DECIMAL", false),
		catalog.Col("status", "VARCHAR", false),
	)
	mem.AddTable("", "order_items",
		catalog.Col("id", "INT", false),
		catalog.Col("order_id", "INT", false),
		catalog.Col("product_id", "INT", false),
		catalog.Col("quantity", "INT", false),
	)
	return mem
}

func newServer(t *testing.T) *server.Server {
	t.Helper()
	srv := server.New(zap.NewNop(), schemaCatalog(), resolve.FoldUnquotedOnly)
	for _, d := range []dialect.Dialect{dialect.MySQL, dialect.PostgreSQL, dialect.TiDB, dialect.MariaDB, dialect.CockroachDB} {
		require.NoError(t, srv.RegisterLowering(d, ir.NewDialectLowering(d)))
	}
	return srv
}

func labels(list lspmodel.CompletionList) []string {
	out := make([]string, len(list.Items))
	for i, it := range list.Items {
		out[i] = it.Label
	}
	return out
}

// Scenario 1: SELECT ▎ FROM users, MySQL.
func TestScenario1_SelectProjectionListsTableColumns(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	const uri = "file:///s1.sql"
	require.NoError(t, srv.Open(ctx, uri, "SELECT  FROM users", config.EngineConfig{Dialect: dialect.MySQL}))

	list, err := srv.Completion(ctx, uri, lspmodel.Position{Line: 0, Character: 7}, "")
	require.NoError(t, err)

	ls := labels(list)
	assert.Contains(t, ls, "id")
	assert.Contains(t, ls, "username")
	assert.Contains(t, ls, "email")
	assert.Contains(t, ls, "*")
	assert.Contains(t, ls, "users.*")
	assert.Contains(t, ls, "DISTINCT")
	assert.NotContains(t, ls, "user_id")
	assert.NotContains(t, ls, "total")

	var sawCount bool
	for _, it := range list.Items {
		if it.Label == "COUNT" {
			sawCount = true
			assert.Equal(t, lspmodel.KindFunction, it.Kind)
		}
	}
	assert.True(t, sawCount, "expected COUNT aggregate candidate")
}

// Scenario 2: SELECT u.▎ FROM users u JOIN orders o ON u.id = o.user_id.
func TestScenario2_QualifiedAliasResolvesToOneTable(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	const uri = "file:///s2.sql"
	sql := "SELECT u. FROM users u JOIN orders o ON u.id = o.user_id"
	require.NoError(t, srv.Open(ctx, uri, sql, config.EngineConfig{Dialect: dialect.MySQL}))

	list, err := srv.Completion(ctx, uri, lspmodel.Position{Line: 0, Character: 9}, "")
	require.NoError(t, err)

	ls := labels(list)
	assert.ElementsMatch(t, []string{"id", "username", "email"}, ls)
	assert.NotContains(t, ls, "total")
	assert.NotContains(t, ls, "status")
}

// Scenario 3: self-join must not error and must resolve each alias to
// its own column set.
func TestScenario3_SelfJoinResolvesWithoutAmbiguityError(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	const uri = "file:///s3.sql"
	sql := "SELECT u1.name, u2. FROM users u1 JOIN users u2 ON u1.id = u2.id"
	require.NoError(t, srv.Open(ctx, uri, sql, config.EngineConfig{Dialect: dialect.MySQL}))

	list, err := srv.Completion(ctx, uri, lspmodel.Position{Line: 0, Character: 19}, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"id", "username", "email"}, labels(list))
}

// Scenario 4: subquery-derived columns in FROM.
func TestScenario4_SubqueryProjectionDerivesSyntheticColumns(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	const uri = "file:///s4.sql"
	sql := "SELECT s. FROM (SELECT id, username AS name FROM users) AS s"
	require.NoError(t, srv.Open(ctx, uri, sql, config.EngineConfig{Dialect: dialect.MySQL}))

	list, err := srv.Completion(ctx, uri, lspmodel.Position{Line: 0, Character: 9}, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"id", "name"}, labels(list))
}

// Scenario 5: FROM-table completion is case-insensitive, PostgreSQL.
func TestScenario5_FromTableCompletionIsCaseInsensitive(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	const uri = "file:///s5.sql"
	sql := "SELECT * FROM u"
	require.NoError(t, srv.Open(ctx, uri, sql, config.EngineConfig{Dialect: dialect.PostgreSQL}))

	list, err := srv.Completion(ctx, uri, lspmodel.Position{Line: 0, Character: 15}, "")
	require.NoError(t, err)

	var found bool
	for _, it := range list.Items {
		if it.Label == "users" {
			found = true
			assert.Equal(t, lspmodel.KindStruct, it.Kind)
		}
	}
	assert.True(t, found, "expected 'users' among FROM-table candidates")
}

// Scenario 6: unknown table reference produces UNDEFINED_TABLE.
func TestScenario6_UnknownTableProducesUndefinedTableDiagnostic(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	const uri = "file:///s6.sql"
	require.NoError(t, srv.Open(ctx, uri, "SELECT id FROM unknown_table", config.EngineConfig{Dialect: dialect.MySQL}))

	diags, err := srv.Diagnostics(ctx, uri)
	require.NoError(t, err)

	var found *lspmodel.Diagnostic
	for i := range diags {
		if diags[i].Code == "UNDEFINED_TABLE" {
			found = &diags[i]
		}
	}
	require.NotNil(t, found, "expected one UNDEFINED_TABLE diagnostic")
}

// Scenario 7: unsupported window function on MySQL 5.7 degrades to
// Partial lowering; completion still works on the surrounding clauses.
func TestScenario7_UnsupportedWindowFunctionDegradesToPartial(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	const uri = "file:///s7.sql"
	sql := "SELECT ROW_NUMBER() OVER (ORDER BY id) FROM users"
	cfg := config.EngineConfig{Dialect: dialect.MySQL, DialectVersion: "5.7.0"}
	require.NoError(t, srv.Open(ctx, uri, sql, cfg))

	diags, err := srv.Diagnostics(ctx, uri)
	require.NoError(t, err)
	var sawUnsupported bool
	for _, d := range diags {
		if d.Code == "UNSUPPORTED_FEATURE" {
			sawUnsupported = true
		}
	}
	assert.True(t, sawUnsupported, "expected UNSUPPORTED_FEATURE diagnostic for the window function")

	// Completion in the FROM clause still works off the Partial lowering.
	list, err := srv.Completion(ctx, uri, lspmodel.Position{Line: 0, Character: uint32(len(sql))}, "")
	require.NoError(t, err)
	assert.NotEmpty(t, list.Items)
}

// Boundary: empty document offers no completions except KeywordOnly.
func TestBoundary_EmptyDocumentOffersOnlyKeywords(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	const uri = "file:///empty.sql"
	require.NoError(t, srv.Open(ctx, uri, "", config.EngineConfig{Dialect: dialect.MySQL}))

	list, err := srv.Completion(ctx, uri, lspmodel.Position{Line: 0, Character: 0}, "")
	require.NoError(t, err)
	require.NotEmpty(t, list.Items)
	for _, it := range list.Items {
		assert.Equal(t, lspmodel.KindKeyword, it.Kind)
	}
}

// Boundary: cursor at EOF after "SELECT " is SelectProjection.
func TestBoundary_CursorAfterSelectIsProjectionContext(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	const uri = "file:///afterselect.sql"
	require.NoError(t, srv.Open(ctx, uri, "SELECT ", config.EngineConfig{Dialect: dialect.MySQL}))

	list, err := srv.Completion(ctx, uri, lspmodel.Position{Line: 0, Character: 7}, "")
	require.NoError(t, err)
	assert.Contains(t, labels(list), "*")
}

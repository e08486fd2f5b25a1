package diagnostics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/sqlls/internal/catalog"
	"github.com/oxhq/sqlls/internal/dialect"
	"github.com/oxhq/sqlls/internal/document"
	"github.com/oxhq/sqlls/internal/grammar"
	"github.com/oxhq/sqlls/internal/ir"
	"github.com/oxhq/sqlls/internal/lspmodel"
)

func newDoc(t *testing.T, text string) *document.Document {
	t.Helper()
	mem := catalog.NewMemory().AddTable("", "users",
		catalog.Col("id", "INT", false),
		catalog.Col("name", "VARCHAR", true),
	)
	registry := ir.NewRegistry()
	require.NoError(t, registry.Register(dialect.MySQL.String(), ir.NewDialectLowering(dialect.MySQL)))

	doc, err := document.New(context.Background(), "file:///d.sql", dialect.MySQL, 1, []byte(text),
		grammar.NewFactory(), registry, mem, nil, catalog.SchemaFilter{})
	require.NoError(t, err)
	return doc
}

func TestCollectFlagsUndefinedTable(t *testing.T) {
	t.Parallel()
	doc := newDoc(t, "SELECT id FROM ghost")
	diags, err := Collect(context.Background(), doc)
	require.NoError(t, err)

	var found bool
	for _, d := range diags {
		if d.Code == "UNDEFINED_TABLE" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCollectCleanQueryHasNoDiagnostics(t *testing.T) {
	t.Parallel()
	doc := newDoc(t, "SELECT id FROM users")
	diags, err := Collect(context.Background(), doc)
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestCollectFlagsSyntaxErrorOnMalformedInput(t *testing.T) {
	t.Parallel()
	doc := newDoc(t, "SELECT FROM WHERE")
	diags, err := Collect(context.Background(), doc)
	require.NoError(t, err)

	var found bool
	for _, d := range diags {
		if d.Code == "SYNTAX" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCollectFlagsAmbiguousColumnWithRelatedTables(t *testing.T) {
	t.Parallel()
	mem := catalog.NewMemory().
		AddTable("", "users", catalog.Col("id", "INT", false)).
		AddTable("", "orders", catalog.Col("id", "INT", false), catalog.Col("user_id", "INT", false))
	registry := ir.NewRegistry()
	require.NoError(t, registry.Register(dialect.MySQL.String(), ir.NewDialectLowering(dialect.MySQL)))

	sql := "SELECT id FROM users u JOIN orders o ON u.id = o.user_id"
	doc, err := document.New(context.Background(), "file:///amb.sql", dialect.MySQL, 1, []byte(sql),
		grammar.NewFactory(), registry, mem, nil, catalog.SchemaFilter{})
	require.NoError(t, err)

	diags, err := Collect(context.Background(), doc)
	require.NoError(t, err)

	var found *lspmodel.Diagnostic
	for i := range diags {
		if diags[i].Code == "AMBIGUOUS_COLUMN" {
			found = &diags[i]
		}
	}
	require.NotNil(t, found, "bare 'id' matches both users and orders")
	assert.Len(t, found.Related, 2, "related information names both providing tables")
}

func TestCollectFlagsUndefinedColumn(t *testing.T) {
	t.Parallel()
	doc := newDoc(t, "SELECT nope FROM users")
	diags, err := Collect(context.Background(), doc)
	require.NoError(t, err)

	var found bool
	for _, d := range diags {
		if d.Code == "UNDEFINED_COLUMN" {
			found = true
		}
	}
	assert.True(t, found)
}

package hover

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
	"github.com/oxhq/sqlls/internal/resolve"
)

func newTestStore(t *testing.T) *document.Store {
	t.Helper()
	mem := catalog.NewMemory().AddTable("", "users",
		catalog.Col("id", "INT", false),
		catalog.Col("username", "VARCHAR", false),
	)
	registry := ir.NewRegistry()
	require.NoError(t, registry.Register(dialect.MySQL.String(), ir.NewDialectLowering(dialect.MySQL)))
	return document.NewStore(grammar.NewFactory(), registry, mem)
}

func TestHoverOnQualifiedColumnRendersType(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	sql := "SELECT u.id FROM users u"
	_, err := store.Open(context.Background(), "file:///h.sql", dialect.MySQL, 1, []byte(sql), nil, catalog.SchemaFilter{})
	require.NoError(t, err)

	p := NewProvider(store, resolve.FoldUnquotedOnly)
	// "id" starts right after "u." at index 9.
	hov, err := p.Hover(context.Background(), "file:///h.sql", lspmodel.Position{Line: 0, Character: 10})
	require.NoError(t, err)
	require.NotNil(t, hov)
	assert.Contains(t, hov.Markdown, "id")
	assert.Contains(t, hov.Markdown, "INT")
}

func TestHoverOnBareTableRendersColumnCount(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	sql := "SELECT id FROM users"
	_, err := store.Open(context.Background(), "file:///h2.sql", dialect.MySQL, 1, []byte(sql), nil, catalog.SchemaFilter{})
	require.NoError(t, err)

	p := NewProvider(store, resolve.FoldUnquotedOnly)
	hov, err := p.Hover(context.Background(), "file:///h2.sql", lspmodel.Position{Line: 0, Character: 17})
	require.NoError(t, err)
	require.NotNil(t, hov)
	assert.Contains(t, hov.Markdown, "users")
	assert.Contains(t, hov.Markdown, "columns")
}

func TestHoverUnknownURIErrors(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	p := NewProvider(store, resolve.FoldUnquotedOnly)
	_, err := p.Hover(context.Background(), "file:///missing.sql", lspmodel.Position{})
	assert.Error(t, err)
}

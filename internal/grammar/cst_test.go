package grammar

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/sqlls/internal/dialect"
)

func TestFactoryParseProducesRootNode(t *testing.T) {
	t.Parallel()
	f := NewFactory()
	cst, err := f.Parse(context.Background(), dialect.MySQL, []byte("SELECT id FROM users"))
	require.NoError(t, err)
	require.NotNil(t, cst)

	root := cst.Root()
	require.NotNil(t, root)
	assert.False(t, cst.HasErrors())
	assert.Equal(t, dialect.MySQL, cst.Dialect())
	assert.Equal(t, []byte("SELECT id FROM users"), cst.Source())
}

func TestFactoryParseMalformedInputStillProducesTree(t *testing.T) {
	t.Parallel()
	f := NewFactory()
	cst, err := f.Parse(context.Background(), dialect.MySQL, []byte("SELECT FROM WHERE"))
	require.NoError(t, err, "parsing never fails: malformed input yields ERROR nodes, not an error return")
	require.NotNil(t, cst.Root())
}

func TestFactoryParserIsCachedPerFamily(t *testing.T) {
	t.Parallel()
	f := NewFactory()
	p1 := f.parserFor(dialect.FamilyMySQL)
	p2 := f.parserFor(dialect.FamilyMySQL)
	assert.Same(t, p1, p2)
}

func TestByteRangeContains(t *testing.T) {
	t.Parallel()
	r := ByteRange{Start: 10, End: 20}
	assert.True(t, r.Contains(10))
	assert.True(t, r.Contains(19))
	assert.False(t, r.Contains(20))
	assert.False(t, r.Contains(9))
}

func TestByteRangeContainsRange(t *testing.T) {
	t.Parallel()
	outer := ByteRange{Start: 0, End: 100}
	inner := ByteRange{Start: 10, End: 20}
	assert.True(t, outer.ContainsRange(inner))
	assert.False(t, inner.ContainsRange(outer))
}

func TestNodeAtFindsSmallestSpanningNode(t *testing.T) {
	t.Parallel()
	f := NewFactory()
	src := []byte("SELECT id FROM users")
	cst, err := f.Parse(context.Background(), dialect.MySQL, src)
	require.NoError(t, err)

	// Offset into "users".
	n := NodeAt(cst, 18)
	require.NotNil(t, n)
	assert.Contains(t, n.Text(), "users")
}

func TestNodeAtNilCST(t *testing.T) {
	t.Parallel()
	assert.Nil(t, NodeAt(nil, 0))
}

func TestCSTNilReceiverIsSafe(t *testing.T) {
	t.Parallel()
	var c *CST
	assert.Nil(t, c.Root())
	assert.False(t, c.HasErrors())
}

func TestReparseIncrementallyUpdatesTree(t *testing.T) {
	t.Parallel()
	f := NewFactory()
	ctx := context.Background()
	src := []byte("SELECT id FROM users")
	cst, err := f.Parse(ctx, dialect.MySQL, src)
	require.NoError(t, err)

	newSrc := []byte("SELECT id, name FROM users")
	edit := Edit{
		StartByte:   9,
		OldEndByte:  9,
		NewEndByte:  15,
		StartPoint:  Point{Row: 0, Column: 9},
		OldEndPoint: Point{Row: 0, Column: 9},
		NewEndPoint: Point{Row: 0, Column: 15},
	}
	next, err := f.Reparse(ctx, cst, edit, newSrc)
	require.NoError(t, err)
	require.NotNil(t, next.Root())
	assert.Equal(t, newSrc, next.Source())
	assert.False(t, next.HasErrors())
}

func TestReparseMatchesFreshParseAtEveryOffset(t *testing.T) {
	t.Parallel()
	f := NewFactory()
	ctx := context.Background()
	src := []byte("SELECT id FROM users")
	cst, err := f.Parse(ctx, dialect.MySQL, src)
	require.NoError(t, err)

	newSrc := []byte("SELECT id, name FROM users")
	edit := Edit{
		StartByte:   9,
		OldEndByte:  9,
		NewEndByte:  15,
		StartPoint:  Point{Row: 0, Column: 9},
		OldEndPoint: Point{Row: 0, Column: 9},
		NewEndPoint: Point{Row: 0, Column: 15},
	}
	reparsed, err := f.Reparse(ctx, cst, edit, newSrc)
	require.NoError(t, err)
	fresh, err := f.Parse(ctx, dialect.MySQL, newSrc)
	require.NoError(t, err)

	// The incremental result must be observationally identical to a
	// fresh parse at every byte offset.
	for o := uint32(0); o < uint32(len(newSrc)); o++ {
		assert.Equal(t, NodeAt(fresh, o).Text(), NodeAt(reparsed, o).Text(), "offset %d", o)
	}
}

func TestWalkVisitsEveryDescendant(t *testing.T) {
	t.Parallel()
	f := NewFactory()
	cst, err := f.Parse(context.Background(), dialect.MySQL, []byte("SELECT id FROM users"))
	require.NoError(t, err)

	count := 0
	cst.Root().Walk(func(n *Node) bool {
		count++
		return true
	})
	assert.Greater(t, count, 1)
}

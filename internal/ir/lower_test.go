package ir

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/sqlls/internal/dialect"
	"github.com/oxhq/sqlls/internal/grammar"
)

func lower(t *testing.T, d dialect.Dialect, sql string) LoweringResult {
	t.Helper()
	f := grammar.NewFactory()
	cst, err := f.Parse(context.Background(), d, []byte(sql))
	require.NoError(t, err)

	l := NewDialectLowering(d)
	return l.Lower(cst.Root(), nil)
}

func TestLowerSimpleSelectSucceeds(t *testing.T) {
	t.Parallel()
	res := lower(t, dialect.MySQL, "SELECT id, name FROM users")
	require.Equal(t, OutcomeSuccess, res.Outcome)
	require.NotNil(t, res.Stmt)
	assert.Equal(t, StmtQuery, res.Stmt.Kind)
	require.NotNil(t, res.Stmt.Query)
	require.NotNil(t, res.Stmt.Query.Body.Select)
	assert.Len(t, res.Stmt.Query.Body.Select.From, 1)
}

func TestLowerJoinProducesFromAndJoinSiblings(t *testing.T) {
	t.Parallel()
	res := lower(t, dialect.MySQL, "SELECT u.id FROM users u JOIN orders o ON u.id = o.user_id")
	require.Equal(t, OutcomeSuccess, res.Outcome)
	sel := res.Stmt.Query.Body.Select
	require.Len(t, sel.From, 1)
	require.Len(t, sel.Joins, 1)
	assert.Equal(t, JoinInner, sel.Joins[0].Kind)
}

func TestLowerInsertProducesDML(t *testing.T) {
	t.Parallel()
	res := lower(t, dialect.MySQL, "INSERT INTO users (id, name) VALUES (1, 'a')")
	require.Equal(t, OutcomeSuccess, res.Outcome)
	require.Equal(t, StmtInsert, res.Stmt.Kind)
	require.NotNil(t, res.Stmt.DML)
}

func TestLowerUpdateProducesDML(t *testing.T) {
	t.Parallel()
	res := lower(t, dialect.MySQL, "UPDATE users SET name = 'a' WHERE id = 1")
	require.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, StmtUpdate, res.Stmt.Kind)
}

func TestLowerDeleteProducesDML(t *testing.T) {
	t.Parallel()
	res := lower(t, dialect.MySQL, "DELETE FROM users WHERE id = 1")
	require.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, StmtDelete, res.Stmt.Kind)
}

func TestLowerGarbageInputFails(t *testing.T) {
	t.Parallel()
	res := lower(t, dialect.MySQL, "")
	assert.Equal(t, OutcomeFailed, res.Outcome)
	require.NotNil(t, res.Err)
}

func TestLowerNilNodeFails(t *testing.T) {
	t.Parallel()
	l := NewDialectLowering(dialect.MySQL)
	res := l.Lower(nil, nil)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, FallbackNoCompletion, res.Fallback)
}

func TestDiagnosticsResetsBetweenLowerCalls(t *testing.T) {
	t.Parallel()
	l := NewDialectLowering(dialect.PostgreSQL)
	f := grammar.NewFactory()
	ctx := context.Background()

	// PostgreSQL does not support MySQL's "LIMIT a, b" shorthand, so
	// this lowering call is expected to flag an UNSUPPORTED_FEATURE
	// diagnostic.
	cst1, err := f.Parse(ctx, dialect.PostgreSQL, []byte("SELECT id FROM users LIMIT 1, 2"))
	require.NoError(t, err)
	l.Lower(cst1.Root(), nil)
	first := l.Diagnostics()

	cst2, err := f.Parse(ctx, dialect.PostgreSQL, []byte("SELECT id FROM users"))
	require.NoError(t, err)
	l.Lower(cst2.Root(), nil)
	second := l.Diagnostics()

	assert.NotEmpty(t, first)
	assert.Empty(t, second, "a clean statement after a flagged one must not carry over stale diagnostics")
}

func TestRegistryRegisterAndFor(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	l := NewDialectLowering(dialect.MySQL)
	require.NoError(t, r.Register("mysql", l))
	assert.Same(t, l, r.For("mysql"))
	assert.Nil(t, r.For("postgresql"))
}

func TestRegistryRejectsDuplicateAndEmptyFamily(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	l := NewDialectLowering(dialect.MySQL)
	require.NoError(t, r.Register("mysql", l))

	err := r.Register("mysql", l)
	assert.Error(t, err)

	err = r.Register("", l)
	assert.Error(t, err)
}

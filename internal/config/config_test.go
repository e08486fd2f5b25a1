package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/sqlls/internal/dialect"
)

func TestDefaultedFillsZeroValues(t *testing.T) {
	t.Parallel()
	c := EngineConfig{Dialect: dialect.MySQL}
	out := c.Defaulted()
	assert.Equal(t, DefaultMaxConnections, out.MaxConnections)
	assert.Equal(t, DefaultQueryTimeout, out.QueryTimeout)
}

func TestDefaultedPreservesExplicitValues(t *testing.T) {
	t.Parallel()
	c := EngineConfig{MaxConnections: 3, QueryTimeout: 2 * time.Second}
	out := c.Defaulted()
	assert.Equal(t, 3, out.MaxConnections)
	assert.Equal(t, 2*time.Second, out.QueryTimeout)
}

func TestParsedDialectVersionEmptyIsNilNoError(t *testing.T) {
	t.Parallel()
	c := EngineConfig{}
	v, err := c.ParsedDialectVersion()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestParsedDialectVersionParsesSemver(t *testing.T) {
	t.Parallel()
	c := EngineConfig{DialectVersion: "8.0.1"}
	v, err := c.ParsedDialectVersion()
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, uint64(8), v.Major())
}

func TestParsedDialectVersionRejectsGarbage(t *testing.T) {
	t.Parallel()
	c := EngineConfig{DialectVersion: "not-a-version"}
	_, err := c.ParsedDialectVersion()
	assert.Error(t, err)
}

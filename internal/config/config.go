// Package config defines the per-URI engine configuration struct.
// There is deliberately no flag/env/file loader here: the
// caller (an editor-integration layer, out of scope for this module)
// populates one EngineConfig per document.
package config

import (
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/oxhq/sqlls/internal/catalog"
	"github.com/oxhq/sqlls/internal/dialect"
)

// EngineConfig is the per-document configuration supplied on open.
type EngineConfig struct {
	Dialect        dialect.Dialect
	DialectVersion string
	SchemaFilter   catalog.SchemaFilter
	MaxConnections int
	QueryTimeout   time.Duration
}

// DefaultMaxConnections bounds the shared catalog connection pool.
const DefaultMaxConnections = 10

// DefaultQueryTimeout bounds individual catalog operations.
const DefaultQueryTimeout = 5 * time.Second

// Defaulted returns a copy of c with zero-valued fields replaced by
// their documented defaults.
func (c EngineConfig) Defaulted() EngineConfig {
	out := c
	if out.MaxConnections == 0 {
		out.MaxConnections = DefaultMaxConnections
	}
	if out.QueryTimeout == 0 {
		out.QueryTimeout = DefaultQueryTimeout
	}
	return out
}

// ParsedDialectVersion parses DialectVersion with full semantic
// version ordering, returning nil (not an error) when the field is
// empty — version-gated dialect features are then treated as
// unsupported rather than guessed.
func (c EngineConfig) ParsedDialectVersion() (*semver.Version, error) {
	if c.DialectVersion == "" {
		return nil, nil
	}
	return dialect.ParseVersion(c.DialectVersion)
}

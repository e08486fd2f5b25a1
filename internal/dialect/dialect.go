// Package dialect defines the closed set of SQL dialects the core
// understands and the pure feature-support rules that depend on them.
package dialect

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Dialect is a closed tag identifying a SQL flavor.
type Dialect int

const (
	Unknown Dialect = iota
	MySQL
	PostgreSQL
	TiDB
	MariaDB
	CockroachDB
)

func (d Dialect) String() string {
	switch d {
	case MySQL:
		return "mysql"
	case PostgreSQL:
		return "postgresql"
	case TiDB:
		return "tidb"
	case MariaDB:
		return "mariadb"
	case CockroachDB:
		return "cockroachdb"
	default:
		return "unknown"
	}
}

// Family is the parser-sharing compatibility group a dialect belongs to.
// "Each dialect maps to exactly one grammar and one lowering
// implementation; compatibility groups share their parser."
type Family int

const (
	FamilyUnknown Family = iota
	FamilyMySQL
	FamilyPostgreSQL
)

// FamilyOf returns the compatibility group backing a dialect's parser.
func FamilyOf(d Dialect) Family {
	switch d {
	case MySQL, TiDB, MariaDB:
		return FamilyMySQL
	case PostgreSQL, CockroachDB:
		return FamilyPostgreSQL
	default:
		return FamilyUnknown
	}
}

// Feature is a closed set of dialect-sensitive SQL capabilities.
type Feature int

const (
	FeatureWindowFunctions Feature = iota
	FeatureCTE
	FeatureRecursiveCTE
	FeatureLateral
	FeatureQualify
	FeatureFullOuterJoin
	FeatureJSONOps
	FeatureArrayOps
	FeatureDistinctOn
	FeatureLimitOffsetComma // MySQL "LIMIT a, b"
)

// versionGate pairs a feature with the minimum dialect version that
// supports it. Absence from the map for a given dialect means the
// feature is unconditionally supported (or unconditionally absent, see
// unsupported below) rather than version-gated.
type versionGate struct {
	dialect Dialect
	feature Feature
	min     *semver.Version
}

var (
	mustVer = func(s string) *semver.Version { v := semver.MustParse(s); return v }

	gates = []versionGate{
		{MySQL, FeatureWindowFunctions, mustVer("8.0.0")},
		{TiDB, FeatureWindowFunctions, mustVer("3.0.0")},
		{MariaDB, FeatureWindowFunctions, mustVer("10.2.0")},
		{PostgreSQL, FeatureLateral, mustVer("9.3.0")},
		{CockroachDB, FeatureLateral, mustVer("1.0.0")},
	}

	// unsupported lists (dialect, feature) pairs that are never
	// supported regardless of version, independent of the gate table.
	unsupported = map[Dialect]map[Feature]bool{
		MySQL:       {FeatureDistinctOn: true, FeatureQualify: true, FeatureFullOuterJoin: true},
		TiDB:        {FeatureDistinctOn: true, FeatureQualify: true, FeatureFullOuterJoin: true},
		MariaDB:     {FeatureDistinctOn: true, FeatureQualify: true, FeatureFullOuterJoin: true},
		PostgreSQL:  {FeatureLimitOffsetComma: true},
		CockroachDB: {FeatureLimitOffsetComma: true},
	}

	// alwaysOn lists features every dialect supports unconditionally.
	alwaysOn = map[Feature]bool{
		FeatureCTE:          true,
		FeatureRecursiveCTE: true,
		FeatureJSONOps:      true,
		FeatureArrayOps:     true,
	}
)

// Supports reports whether a dialect at a given version supports a
// feature. version may be nil, in which case only unconditional
// (non-version-gated) rules apply and any version-gated feature is
// reported unsupported — callers that care about a version-gated
// feature must supply a version.
func Supports(d Dialect, version *semver.Version, f Feature) bool {
	if unsupported[d] != nil && unsupported[d][f] {
		return false
	}
	if alwaysOn[f] {
		return true
	}
	for _, g := range gates {
		if g.dialect != d || g.feature != f {
			continue
		}
		if version == nil {
			return false
		}
		return version.Compare(g.min) >= 0
	}
	// No explicit gate and not unconditionally on/off: treat MySQL-family
	// LIMIT-comma and PostgreSQL DISTINCT ON as dialect-native defaults.
	switch f {
	case FeatureLimitOffsetComma:
		return FamilyOf(d) == FamilyMySQL
	case FeatureDistinctOn:
		return FamilyOf(d) == FamilyPostgreSQL
	case FeatureFullOuterJoin:
		return FamilyOf(d) == FamilyPostgreSQL
	case FeatureQualify:
		return false
	case FeatureWindowFunctions:
		return FamilyOf(d) == FamilyPostgreSQL
	case FeatureLateral:
		return false
	}
	return false
}

// ParseVersion parses a dialect version string. Version comparisons
// use full semantic-version ordering, never lexicographic.
func ParseVersion(s string) (*semver.Version, error) {
	v, err := semver.NewVersion(s)
	if err != nil {
		return nil, fmt.Errorf("dialect: invalid version %q: %w", s, err)
	}
	return v, nil
}

// Package resolve maps a user-written qualifier (bare identifier or
// alias) to a concrete table in the current scope using a fixed,
// ordered strategy chain.
package resolve

import (
	"regexp"
	"strings"

	"github.com/oxhq/sqlls/internal/scope"
)

// Outcome is the closed resolution result.
type Outcome int

const (
	OutcomeUnique Outcome = iota
	OutcomeAmbiguous
	OutcomeNotFound
)

// Resolution is the result of resolving one prefix in one scope.
type Resolution struct {
	Outcome Outcome
	Unique  scope.TableSymbol
	Matches []scope.TableSymbol // populated for Ambiguous
}

// FoldingRule selects how identifier case folding behaves for
// CaseInsensitiveExact. Folding is a configurable engine property,
// not a per-dialect constant.
type FoldingRule int

const (
	FoldNever FoldingRule = iota
	FoldUnquotedOnly
	FoldAlways
)

var initialPlusDigits = regexp.MustCompile(`^([A-Za-z])(\d*)$`)

// Resolve maps prefix to a table in scope id within tree, trying the
// five strategies in fixed order; the first strategy that yields a
// non-empty match set decides the outcome — a strategy is never
// allowed to fall through once it matches something.
// Parent scopes are retried with the same order only if every
// strategy produced an empty set in the starting scope (correlated
// references).
func Resolve(prefix string, tree *scope.Tree, id scope.ScopeId, fold FoldingRule) Resolution {
	for cur := id; cur != scope.NoScope; {
		s := tree.Get(cur)
		if res, ok := resolveInScope(prefix, s.Tables, fold); ok {
			return res
		}
		cur = s.Parent
	}
	return Resolution{Outcome: OutcomeNotFound}
}

func resolveInScope(prefix string, tables []scope.TableSymbol, fold FoldingRule) (Resolution, bool) {
	if m := exactMatch(prefix, tables); len(m) > 0 {
		return decide(m), true
	}
	if fold != FoldNever {
		if m := caseInsensitiveExact(prefix, tables, fold); len(m) > 0 {
			return decide(m), true
		}
	}
	if m := startsWithUnique(prefix, tables); len(m) > 0 {
		return decide(m), true
	}
	if m := initialPlusDigitsMatch(prefix, tables); len(m) > 0 {
		return decide(m), true
	}
	if len(tables) == 1 {
		return Resolution{Outcome: OutcomeUnique, Unique: tables[0]}, true
	}
	return Resolution{}, false
}

func decide(matches []scope.TableSymbol) Resolution {
	if len(matches) == 1 {
		return Resolution{Outcome: OutcomeUnique, Unique: matches[0]}
	}
	return Resolution{Outcome: OutcomeAmbiguous, Matches: matches}
}

// exactMatch: display_name() == prefix.
func exactMatch(prefix string, tables []scope.TableSymbol) []scope.TableSymbol {
	var out []scope.TableSymbol
	for _, t := range tables {
		if t.DisplayName() == prefix {
			out = append(out, t)
		}
	}
	return out
}

// caseInsensitiveExact: case-folded equality, gated by the dialect's
// identifier folding rule.
func caseInsensitiveExact(prefix string, tables []scope.TableSymbol, fold FoldingRule) []scope.TableSymbol {
	lower := strings.ToLower(prefix)
	var out []scope.TableSymbol
	for _, t := range tables {
		if strings.ToLower(t.DisplayName()) == lower {
			out = append(out, t)
		}
	}
	return out
}

// startsWithUnique: display_name() starts with prefix AND exactly one
// symbol in scope starts with prefix.
func startsWithUnique(prefix string, tables []scope.TableSymbol) []scope.TableSymbol {
	if prefix == "" {
		return nil
	}
	var out []scope.TableSymbol
	for _, t := range tables {
		if strings.HasPrefix(t.DisplayName(), prefix) {
			out = append(out, t)
		}
	}
	if len(out) != 1 {
		return nil
	}
	return out
}

// initialPlusDigitsMatch: prefix matches ^([A-Za-z])(\d*)$; pick the
// symbols whose table_name begins with the captured letter and whose
// alias, if any, equals the whole prefix — for an unaliased symbol
// the alias clause is vacuous, so the letter test alone decides.
// This strategy never crosses into parent scopes on its own —
// Resolve's outer loop only retries it in a parent scope when this
// scope's pass produced nothing at all.
func initialPlusDigitsMatch(prefix string, tables []scope.TableSymbol) []scope.TableSymbol {
	m := initialPlusDigits.FindStringSubmatch(prefix)
	if m == nil {
		return nil
	}
	letter := m[1]
	var out []scope.TableSymbol
	for _, t := range tables {
		if !strings.HasPrefix(strings.ToLower(t.TableName), strings.ToLower(letter)) {
			continue
		}
		if t.Alias != "" && t.Alias != prefix {
			continue
		}
		out = append(out, t)
	}
	return out
}

package completion

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/oxhq/sqlls/internal/catalog"
	cctx "github.com/oxhq/sqlls/internal/context"
	"github.com/oxhq/sqlls/internal/dialect"
	"github.com/oxhq/sqlls/internal/lspmodel"
	"github.com/oxhq/sqlls/internal/resolve"
	"github.com/oxhq/sqlls/internal/scope"
)

// candidate is the pre-render, pre-filter form of one completion item.
type candidate struct {
	label      string
	kind       lspmodel.CompletionItemKind
	detail     string
	doc        string
	insertText string
	sourceRank int // lower sorts first within a tie (closest-scope-first rule)
}

// generate builds the raw candidate list for one CompletionContext.
func generate(ctx context.Context, c cctx.Context, tree *scope.Tree, scopeID scope.ScopeId,
	d dialect.Dialect, cat catalog.Catalog, filter catalog.SchemaFilter, fold resolve.FoldingRule) []candidate {

	switch c.Kind {
	case cctx.KeywordOnly:
		return keywordCandidates(dialect.StatementKeywords(d))

	case cctx.SelectProjection:
		cands := selectProjectionCandidates(tree, scopeID, d)
		return append(cands, functionCandidates(ctx, cat, filter)...)

	case cctx.FromTable, cctx.JoinTable:
		return fromTableCandidates(ctx, tree, scopeID, d, cat, filter)

	case cctx.WhereClause, cctx.HavingClause, cctx.GroupByColumn, cctx.OnCondition, cctx.JoinCondition:
		cands := columnCandidates(tree, scopeID)
		cands = append(cands, aggregateCandidates(d)...)
		return append(cands, functionCandidates(ctx, cat, filter)...)

	case cctx.OrderByColumn:
		cands := columnCandidates(tree, scopeID)
		return append(cands, keywordCandidates(dialect.OrderByKeywords(d))...)

	case cctx.Qualified:
		return qualifiedCandidates(c.Prefix, tree, scopeID, fold, cat, ctx, filter)

	case cctx.InsertColumnList, cctx.UpdateSetColumn:
		return tableColumnCandidates(tree, scopeID, c.Table)

	case cctx.FunctionCallArg:
		cands := columnCandidates(tree, scopeID)
		cands = append(cands, aggregateCandidates(d)...)
		return append(cands, functionCandidates(ctx, cat, filter)...)

	default:
		return nil
	}
}

func keywordCandidates(kws []string) []candidate {
	out := make([]candidate, 0, len(kws))
	for _, k := range kws {
		out = append(out, candidate{label: k, kind: lspmodel.KindKeyword, insertText: k})
	}
	return out
}

// selectProjectionCandidates implements the SelectProjection row:
// columns of all visible tables, aggregate/window functions, bare
// `*`, `table.*` per visible table, and DISTINCT/FROM keywords.
func selectProjectionCandidates(tree *scope.Tree, scopeID scope.ScopeId, d dialect.Dialect) []candidate {
	var out []candidate
	out = append(out, candidate{label: "*", kind: lspmodel.KindOperator, insertText: "*"})

	if tree != nil {
		for rank, t := range tree.VisibleTables(scopeID) {
			// Accepting table.* expands to the qualified column list
			// when the columns are known.
			insert := t.DisplayName() + ".*"
			if len(t.Columns) > 0 {
				names := make([]string, len(t.Columns))
				for i, col := range t.Columns {
					names[i] = t.DisplayName() + "." + col.Name
				}
				insert = strings.Join(names, ", ")
			}
			out = append(out, candidate{
				label:      t.DisplayName() + ".*",
				kind:       lspmodel.KindOperator,
				insertText: insert,
				sourceRank: rank,
			})
		}
	}

	out = append(out, columnCandidates(tree, scopeID)...)
	out = append(out, aggregateCandidates(d)...)
	out = append(out, keywordCandidates([]string{"DISTINCT", "FROM"})...)
	return out
}

func aggregateCandidates(d dialect.Dialect) []candidate {
	var out []candidate
	for _, fn := range dialect.AggregateFunctions(d) {
		out = append(out, candidate{label: fn, kind: lspmodel.KindFunction, insertText: fn + "()", detail: "aggregate"})
	}
	return out
}

// functionCandidates lists catalog functions (built-in and
// user-defined), subject to the schema filter. A catalog failure means
// fewer completions, never an error.
func functionCandidates(ctx context.Context, cat catalog.Catalog, filter catalog.SchemaFilter) []candidate {
	if cat == nil {
		return nil
	}
	fns, err := cat.ListFunctions(ctx, filter)
	if err != nil {
		return nil
	}
	var out []candidate
	for _, fn := range fns {
		out = append(out, candidate{
			label:      fn.Name,
			kind:       lspmodel.KindFunction,
			detail:     fn.Signature,
			insertText: fn.Name + "()",
		})
	}
	return out
}

// columnCandidates lists every column visible at scopeID, closest
// scope ranked first.
func columnCandidates(tree *scope.Tree, scopeID scope.ScopeId) []candidate {
	if tree == nil {
		return nil
	}
	var out []candidate
	for rank, col := range tree.VisibleColumns(scopeID) {
		detail := columnDetail(col)
		out = append(out, candidate{
			label:      col.Name,
			kind:       lspmodel.KindField,
			detail:     detail,
			insertText: col.Name,
			sourceRank: rank,
		})
	}
	return out
}

func columnDetail(col scope.ColumnSymbol) string {
	dt := "unknown"
	if col.DataType != nil {
		dt = *col.DataType
	}
	if col.Nullable {
		return dt + ", nullable"
	}
	return dt + ", not null"
}

// fromTableCandidates lists catalog tables (subject to the schema
// filter) plus CTE names already declared earlier in the query, plus
// join keywords.
func fromTableCandidates(ctx context.Context, tree *scope.Tree, scopeID scope.ScopeId, d dialect.Dialect,
	cat catalog.Catalog, filter catalog.SchemaFilter) []candidate {

	var out []candidate
	if cat != nil {
		tables, err := cat.ListTables(ctx, filter)
		if err == nil {
			for _, t := range tables {
				name := t.Name
				if t.Schema != "" {
					name = t.Schema + "." + t.Name
				}
				out = append(out, candidate{
					label:      name,
					kind:       lspmodel.KindStruct,
					detail:     fmt.Sprintf("%d columns", len(t.Columns)),
					insertText: name,
				})
			}
		}
	}
	if tree != nil {
		for _, t := range tree.VisibleTables(scopeID) {
			out = append(out, candidate{label: t.DisplayName(), kind: lspmodel.KindStruct, insertText: t.DisplayName()})
		}
	}
	out = append(out, keywordCandidates(dialect.JoinKeywords(d))...)
	return out
}

// qualifiedCandidates implements the Qualified{prefix} row: resolve
// the prefix against the current scope and render the winning
// table's columns, falling back to a catalog table listing on
// NotFound (the user may be typing a schema-qualified name).
func qualifiedCandidates(prefix string, tree *scope.Tree, scopeID scope.ScopeId, fold resolve.FoldingRule,
	cat catalog.Catalog, ctx context.Context, filter catalog.SchemaFilter) []candidate {

	if prefix == "" {
		return columnCandidates(tree, scopeID)
	}
	if tree == nil {
		return nil
	}
	res := resolve.Resolve(prefix, tree, scopeID, fold)
	switch res.Outcome {
	case resolve.OutcomeUnique:
		out := make([]candidate, 0, len(res.Unique.Columns))
		for _, col := range res.Unique.Columns {
			out = append(out, candidate{label: col.Name, kind: lspmodel.KindField, detail: columnDetail(col), insertText: col.Name})
		}
		return out
	case resolve.OutcomeAmbiguous:
		return nil
	default: // NotFound
		return fromTableCandidates(ctx, tree, scopeID, dialect.Unknown, cat, filter)
	}
}

func tableColumnCandidates(tree *scope.Tree, scopeID scope.ScopeId, table string) []candidate {
	if tree == nil {
		return nil
	}
	for _, t := range tree.VisibleTables(scopeID) {
		if t.DisplayName() == table || t.TableName == table {
			out := make([]candidate, 0, len(t.Columns))
			for _, col := range t.Columns {
				out = append(out, candidate{label: col.Name, kind: lspmodel.KindField, detail: columnDetail(col), insertText: col.Name})
			}
			return out
		}
	}
	return nil
}

// filterByPrefix keeps candidates matching the typed prefix:
// case-insensitive for keywords/functions, dialect-folding-aware for
// identifiers.
func filterByPrefix(cands []candidate, prefix string, fold resolve.FoldingRule) []candidate {
	if prefix == "" {
		return cands
	}
	var out []candidate
	lowerPrefix := strings.ToLower(prefix)
	for _, c := range cands {
		switch c.kind {
		case lspmodel.KindKeyword, lspmodel.KindFunction:
			if strings.HasPrefix(strings.ToLower(c.label), lowerPrefix) {
				out = append(out, c)
			}
		default:
			if fold == resolve.FoldNever {
				if strings.HasPrefix(c.label, prefix) {
					out = append(out, c)
				}
			} else if strings.HasPrefix(strings.ToLower(c.label), lowerPrefix) {
				out = append(out, c)
			}
		}
	}
	return out
}

// dedupe keeps the first occurrence of each (label, kind) pair in
// source order. Idempotent: running it twice yields the same list.
func dedupe(cands []candidate) []candidate {
	seen := make(map[string]bool, len(cands))
	out := make([]candidate, 0, len(cands))
	for _, c := range cands {
		key := c.label + "\x00" + fmt.Sprint(c.kind)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// rank orders exact-case prefix matches before case-insensitive
// ones, then by sourceRank (closest scope first), then
// lexicographically by label. Catalog order is not a separate key:
// candidates with equal sourceRank are ordered by label alone.
func rank(cands []candidate, prefix string) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		ea, eb := strings.HasPrefix(a.label, prefix), strings.HasPrefix(b.label, prefix)
		if ea != eb {
			return ea
		}
		if a.sourceRank != b.sourceRank {
			return a.sourceRank < b.sourceRank
		}
		return a.label < b.label
	})
}

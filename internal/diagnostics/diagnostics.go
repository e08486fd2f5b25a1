// Package diagnostics aggregates CST, lowering, and
// scope-construction findings into the wire Diagnostic format.
package diagnostics

import (
	"context"
	"fmt"

	"github.com/oxhq/sqlls/internal/document"
	"github.com/oxhq/sqlls/internal/grammar"
	"github.com/oxhq/sqlls/internal/ir"
	"github.com/oxhq/sqlls/internal/lspmodel"
	"github.com/oxhq/sqlls/internal/model"
	"github.com/oxhq/sqlls/internal/scope"
)

// Collect computes the full diagnostic set for a document's current
// version: SYNTAX from the CST, UNSUPPORTED_FEATURE from lowering,
// UNDEFINED_TABLE/AMBIGUOUS_TABLE from scope construction, and
// UNDEFINED_COLUMN/AMBIGUOUS_COLUMN from unqualified column
// references.
func Collect(ctx context.Context, doc *document.Document) ([]lspmodel.Diagnostic, error) {
	cst := doc.CST()
	lowering, tree, scopeDiags, err := doc.Rebuild(ctx)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("diagnostics: %w", model.ErrCancelled)
	}

	var out []lspmodel.Diagnostic
	out = append(out, syntaxDiagnostics(doc, cst)...)
	out = append(out, unsupportedDiagnostics(doc, lowering)...)
	out = append(out, scopeDiagnostics(doc, scopeDiags)...)

	var q *ir.Query
	if lowering.Stmt != nil {
		q = lowering.Stmt.Query
	}
	out = append(out, columnDiagnostics(doc, tree, q)...)

	return out, nil
}

func toRange(doc *document.Document, span grammar.ByteRange) lspmodel.Range {
	start := doc.PositionAt(span.Start)
	end := doc.PositionAt(span.End)
	return lspmodel.Range{
		Start: lspmodel.Position{Line: start.Line, Character: start.Character},
		End:   lspmodel.Position{Line: end.Line, Character: end.Character},
	}
}

// syntaxDiagnostics walks the CST for ERROR and missing nodes.
func syntaxDiagnostics(doc *document.Document, cst *grammar.CST) []lspmodel.Diagnostic {
	if cst == nil {
		return nil
	}
	root := cst.Root()
	if root == nil {
		return nil
	}
	var out []lspmodel.Diagnostic
	root.Walk(func(n *grammar.Node) bool {
		switch {
		case n.IsError():
			parent := n.Parent()
			msg := "syntax error"
			if parent != nil {
				msg = fmt.Sprintf("syntax error in %s", parent.Kind())
			}
			out = append(out, lspmodel.Diagnostic{
				Range: toRange(doc, n.Range()), Severity: lspmodel.SeverityError,
				Code: "SYNTAX", Message: msg,
			})
			return false // ERROR subtree nodes are noise once the ERROR itself is reported
		case n.IsMissing():
			out = append(out, lspmodel.Diagnostic{
				Range: toRange(doc, n.Range()), Severity: lspmodel.SeverityError,
				Code: "SYNTAX", Message: fmt.Sprintf("missing %s", n.Kind()),
			})
		}
		return true
	})
	return out
}

func unsupportedDiagnostics(doc *document.Document, result ir.LoweringResult) []lspmodel.Diagnostic {
	var out []lspmodel.Diagnostic
	for _, span := range result.Unsupported {
		out = append(out, lspmodel.Diagnostic{
			Range: toRange(doc, span), Severity: lspmodel.SeverityWarning,
			Code: "UNSUPPORTED_FEATURE", Message: "this construct is not supported by the configured dialect and was not lowered",
		})
	}
	return out
}

func scopeDiagnostics(doc *document.Document, diags []scope.Diagnostic) []lspmodel.Diagnostic {
	out := make([]lspmodel.Diagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, lspmodel.Diagnostic{
			Range: toRange(doc, d.Span), Severity: lspmodel.SeverityError,
			Code: d.Code, Message: d.Message,
		})
	}
	return out
}

// columnDiagnostics walks every unqualified column reference in q and
// flags those matching zero (UNDEFINED_COLUMN) or two-or-more distinct
// tables (AMBIGUOUS_COLUMN) among the columns visible at that
// reference's enclosing scope.
func columnDiagnostics(doc *document.Document, tree *scope.Tree, q *ir.Query) []lspmodel.Diagnostic {
	if tree == nil || q == nil {
		return nil
	}
	var out []lspmodel.Diagnostic
	walkIdentifiers(q, func(e *ir.Expr) {
		if e.KindOf() != ir.ExprIdentifier || len(e.Parts) != 1 {
			return
		}
		name := e.Parts[0]
		scopeID := tree.ScopeAt(e.Span.Start)
		cols := tree.VisibleColumns(scopeID)

		owners := map[string]bool{}
		for _, c := range cols {
			if c.Name == name {
				owners[c.OwningTableDisplay] = true
			}
		}
		switch len(owners) {
		case 0:
			out = append(out, lspmodel.Diagnostic{
				Range: toRange(doc, e.Span), Severity: lspmodel.SeverityError,
				Code: "UNDEFINED_COLUMN", Message: fmt.Sprintf("column %q not found in any visible table", name),
			})
		case 1:
			// unambiguous, no diagnostic
		default:
			// related carries the span of each table providing the
			// column, so the editor can jump to the competing bindings.
			var related []lspmodel.RelatedInformation
			for _, t := range tree.VisibleTables(scopeID) {
				if owners[t.DisplayName()] {
					related = append(related, lspmodel.RelatedInformation{
						Range:   toRange(doc, t.Span),
						Message: fmt.Sprintf("column %q is provided by %s", name, t.DisplayName()),
					})
				}
			}
			out = append(out, lspmodel.Diagnostic{
				Range: toRange(doc, e.Span), Severity: lspmodel.SeverityError,
				Code: "AMBIGUOUS_COLUMN", Message: fmt.Sprintf("column %q is ambiguous across %d visible tables", name, len(owners)),
				Related: related,
			})
		}
	})
	return out
}

// walkIdentifiers visits every Expr reachable from q that could be a
// column reference (projection lists, WHERE/HAVING/GROUP BY/ORDER BY,
// join conditions), including inside subqueries.
func walkIdentifiers(q *ir.Query, visit func(*ir.Expr)) {
	if q == nil {
		return
	}
	for _, cte := range q.With {
		walkIdentifiers(cte.Body, visit)
	}
	walkSetExpr(&q.Body, visit)
	for _, ok := range q.OrderBy {
		walkExpr(&ok.Expr, visit)
	}
}

func walkSetExpr(se *ir.SetExpr, visit func(*ir.Expr)) {
	if se == nil {
		return
	}
	if se.Kind != ir.SetExprSelect {
		walkSetExpr(se.Left, visit)
		walkSetExpr(se.Right, visit)
		return
	}
	sel := se.Select
	if sel == nil {
		return
	}
	for i := range sel.Projections {
		walkExpr(&sel.Projections[i].Expr, visit)
	}
	for i := range sel.Joins {
		walkExpr(&sel.Joins[i].On, visit)
	}
	walkExpr(&sel.Where, visit)
	for i := range sel.GroupBy {
		walkExpr(&sel.GroupBy[i], visit)
	}
	walkExpr(&sel.Having, visit)
	for _, item := range sel.From {
		if item.Subquery != nil {
			walkIdentifiers(item.Subquery, visit)
		}
	}
	for _, j := range sel.Joins {
		if j.Item.Subquery != nil {
			walkIdentifiers(j.Item.Subquery, visit)
		}
	}
}

func walkExpr(e *ir.Expr, visit func(*ir.Expr)) {
	if e == nil || e.IsEmpty() {
		return
	}
	visit(e)
	if e.Subquery != nil {
		walkIdentifiers(e.Subquery, visit)
	}
	for i := range e.Args {
		walkExpr(&e.Args[i], visit)
	}
	walkExpr(e.Left, visit)
	walkExpr(e.Right, visit)
	walkExpr(e.Operand, visit)
	for i := range e.WhenThen {
		walkExpr(&e.WhenThen[i].When, visit)
		walkExpr(&e.WhenThen[i].Then, visit)
	}
	walkExpr(e.Else, visit)
	walkExpr(e.InExpr, visit)
	for i := range e.InList {
		walkExpr(&e.InList[i], visit)
	}
}

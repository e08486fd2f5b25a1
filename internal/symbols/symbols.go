// Package symbols implements the symbols(uri) query: a read-only
// projection of the scope tree already built for
// completion/diagnostics, listing every table/CTE binding with its
// line/character range.
package symbols

import (
	"context"
	"fmt"

	"github.com/oxhq/sqlls/internal/document"
	"github.com/oxhq/sqlls/internal/grammar"
	"github.com/oxhq/sqlls/internal/lspmodel"
	"github.com/oxhq/sqlls/internal/scope"
)

// DocumentSymbol names one table/CTE binding visible anywhere in the
// document, independent of scope nesting (a flat listing, since
// editors render this as an outline rather than a scope tree).
type DocumentSymbol struct {
	Name  string
	Kind  string // "table" | "cte" | "subquery"
	Range lspmodel.Range
}

// List returns every table/CTE/subquery binding recorded across the
// document's scope tree.
func List(ctx context.Context, store *document.Store, uri string) ([]DocumentSymbol, error) {
	doc, err := store.Get(uri)
	if err != nil {
		return nil, err
	}
	_, tree, _, err := doc.Rebuild(ctx)
	if err != nil {
		return nil, fmt.Errorf("symbols: %w", err)
	}
	if tree == nil {
		return nil, nil
	}

	var out []DocumentSymbol
	for i := 0; i < tree.Len(); i++ {
		s := tree.Get(scope.ScopeId(i))
		for _, t := range s.Tables {
			out = append(out, DocumentSymbol{
				Name:  t.DisplayName(),
				Kind:  kindOf(t.Origin),
				Range: spanToRange(doc, t.Span),
			})
		}
	}
	return out, nil
}

func kindOf(origin scope.Origin) string {
	switch origin {
	case scope.OriginCTE:
		return "cte"
	case scope.OriginSubquery:
		return "subquery"
	default:
		return "table"
	}
}

func spanToRange(doc *document.Document, span grammar.ByteRange) lspmodel.Range {
	start := doc.PositionAt(span.Start)
	end := doc.PositionAt(span.End)
	return lspmodel.Range{
		Start: lspmodel.Position{Line: start.Line, Character: start.Character},
		End:   lspmodel.Position{Line: end.Line, Character: end.Character},
	}
}

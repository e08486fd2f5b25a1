// Package hover renders hovers as "completion at a point, rendered as
// one item" rather than a separate resolution path — it reuses the
// same scope lookup and alias resolution the completion engine uses.
package hover

import (
	"context"
	"fmt"
	"strings"

	"github.com/oxhq/sqlls/internal/document"
	"github.com/oxhq/sqlls/internal/grammar"
	"github.com/oxhq/sqlls/internal/lspmodel"
	"github.com/oxhq/sqlls/internal/resolve"
	"github.com/oxhq/sqlls/internal/scope"
)

// Provider renders hovers for documents owned by a Store.
type Provider struct {
	store *document.Store
	fold  resolve.FoldingRule
}

// NewProvider builds a hover Provider over store.
func NewProvider(store *document.Store, fold resolve.FoldingRule) *Provider {
	return &Provider{store: store, fold: fold}
}

// Hover implements hover(uri, position) -> Option<Hover>. A nil,nil
// result means no hover applies at that position.
func (p *Provider) Hover(ctx context.Context, uri string, pos lspmodel.Position) (*lspmodel.Hover, error) {
	doc, err := p.store.Get(uri)
	if err != nil {
		return nil, err
	}

	cst := doc.CST()
	offset := doc.ByteOffset(pos.Line, pos.Character)
	node := grammar.NodeAt(cst, offset)
	if node == nil || node.Text() == "" {
		return nil, nil
	}
	text := node.Text()

	_, tree, _, err := doc.Rebuild(ctx)
	if err != nil {
		return nil, fmt.Errorf("hover: %w", err)
	}
	scopeID := tree.ScopeAt(offset)

	if qualifier, ok := qualifierBefore(cst, node); ok {
		res := resolve.Resolve(qualifier, tree, scopeID, p.fold)
		if res.Outcome == resolve.OutcomeUnique {
			if col, ok := findColumn(res.Unique.Columns, text); ok {
				return columnHover(doc, node, res.Unique.DisplayName(), col), nil
			}
		}
	}

	for _, t := range tree.VisibleTables(scopeID) {
		if t.DisplayName() == text || t.TableName == text {
			return tableHover(doc, node, t), nil
		}
	}

	for _, col := range tree.VisibleColumns(scopeID) {
		if col.Name == text {
			return columnHover(doc, node, col.OwningTableDisplay, col), nil
		}
	}

	return nil, nil
}

// qualifierBefore reports the identifier immediately before a '.'
// preceding node's start, mirroring the context detector's Qualified
// tie-break.
func qualifierBefore(cst *grammar.CST, node *grammar.Node) (string, bool) {
	src := cst.Source()
	start := node.Range().Start
	if start == 0 || src[start-1] != '.' {
		return "", false
	}
	end := int(start) - 1
	begin := end
	for begin > 0 && isIdentByte(src[begin-1]) {
		begin--
	}
	if begin == end {
		return "", false
	}
	return string(src[begin:end]), true
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func findColumn(cols []scope.ColumnSymbol, name string) (scope.ColumnSymbol, bool) {
	for _, c := range cols {
		if c.Name == name {
			return c, true
		}
	}
	return scope.ColumnSymbol{}, false
}

func columnHover(doc *document.Document, node *grammar.Node, owner string, col scope.ColumnSymbol) *lspmodel.Hover {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s.%s**", owner, col.Name)
	if col.DataType != nil {
		fmt.Fprintf(&b, " — `%s`", *col.DataType)
	}
	if col.Nullable {
		b.WriteString(" (nullable)")
	} else {
		b.WriteString(" (not null)")
	}
	if col.Comment != nil && *col.Comment != "" {
		fmt.Fprintf(&b, "\n\n%s", *col.Comment)
	}
	start := doc.PositionAt(node.Range().Start)
	end := doc.PositionAt(node.Range().End)
	return &lspmodel.Hover{
		Range:    lspmodel.Range{Start: lspmodel.Position(start), End: lspmodel.Position(end)},
		Markdown: b.String(),
	}
}

func tableHover(doc *document.Document, node *grammar.Node, t scope.TableSymbol) *lspmodel.Hover {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**", t.DisplayName())
	if t.Alias != "" && t.Alias != t.TableName {
		fmt.Fprintf(&b, " (%s)", t.TableName)
	}
	fmt.Fprintf(&b, " — %d columns", len(t.Columns))
	start := doc.PositionAt(node.Range().Start)
	end := doc.PositionAt(node.Range().End)
	return &lspmodel.Hover{
		Range:    lspmodel.Range{Start: lspmodel.Position(start), End: lspmodel.Position(end)},
		Markdown: b.String(),
	}
}

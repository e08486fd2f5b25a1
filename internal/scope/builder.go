package scope

import (
	"fmt"

	"github.com/oxhq/sqlls/internal/catalog"
	"github.com/oxhq/sqlls/internal/ir"
)

// Diagnostic mirrors ir.Diagnostic's shape for scope-construction-time
// findings (UNDEFINED_TABLE, AMBIGUOUS_TABLE).
type Diagnostic struct {
	Span    ir.Span
	Code    string
	Message string
}

// Builder walks a lowered Query (or the Select bodies recoverable from
// a partial lowering) and builds its Scope tree.
type Builder struct {
	view        catalogLookup
	tree        *Tree
	diagnostics []Diagnostic
}

// NewBuilder creates a Builder consuming a prefetched, synchronous
// catalog view; scope building itself never suspends.
func NewBuilder(view *catalog.PrefetchedView) *Builder {
	return &Builder{view: view, tree: NewTree()}
}

// Build lowers q into a full Scope tree and returns it along with any
// diagnostics raised during construction (duplicate display names,
// catalog misses).
func Build(q *ir.Query, view *catalog.PrefetchedView) (*Tree, []Diagnostic) {
	b := NewBuilder(view)
	if q == nil {
		return b.tree, b.diagnostics
	}
	b.buildQuery(q, NoScope)
	return b.tree, b.diagnostics
}

func (b *Builder) emit(d Diagnostic) { b.diagnostics = append(b.diagnostics, d) }

// buildQuery builds the scope(s) for one Query, attaching them under
// parent. Returns the id of the scope representing the query's final
// projection (the body's SELECT scope), used by callers that need to
// reference the query's own output columns (e.g. subqueries).
func (b *Builder) buildQuery(q *ir.Query, parent ScopeId) ScopeId {
	if q == nil {
		return NoScope
	}

	// WITH clauses are walked first; each CTE is visible in subsequent
	// CTEs (linear order) and in the main body.
	// Recursive CTEs are also visible inside their own body, so their
	// symbol is registered before the body is built.
	cteScope := parent
	if len(q.With) > 0 {
		cteScope = b.tree.Add(Scope{Parent: parent, Kind: KindCTE, CSTRange: q.With[0].Span})
	}
	for _, cte := range q.With {
		sym := TableSymbol{TableName: cte.Name, Alias: cte.Name, Origin: OriginCTE, Span: cte.Span}
		if cte.Recursive {
			b.appendTable(cteScope, sym)
			if cte.Body != nil {
				b.buildQuery(cte.Body, cteScope)
				b.setCTEColumns(cteScope, cte.Name, b.projectionColumns(&cte.Body.Body))
			}
		} else {
			if cte.Body != nil {
				// The body gets its own scope under the WITH scope so
				// completion inside the CTE text sees the body's tables
				// (and every earlier CTE through the parent chain).
				b.buildQuery(cte.Body, cteScope)
				sym.Columns = b.projectionColumns(&cte.Body.Body)
			}
			b.appendTable(cteScope, sym)
		}
	}

	bodyID := b.buildSetExpr(&q.Body, cteScope)
	if cteScope != parent && bodyID != NoScope {
		// Widen the WITH scope over the main body so position→scope
		// lookup descends through it for offsets past the CTE list.
		ws := b.tree.Get(cteScope)
		if end := b.tree.Get(bodyID).CSTRange.End; end > ws.CSTRange.End {
			ws.CSTRange.End = end
		}
	}
	return bodyID
}

// setCTEColumns backfills a recursive CTE's derived columns: the symbol
// is registered before its body is built, so the projection-derived
// column list only becomes known afterwards.
func (b *Builder) setCTEColumns(id ScopeId, name string, cols []ColumnSymbol) {
	s := b.tree.Get(id)
	for i := range s.Tables {
		if s.Tables[i].Origin == OriginCTE && s.Tables[i].TableName == name {
			s.Tables[i].Columns = cols
		}
	}
}

func (b *Builder) buildSetExpr(se *ir.SetExpr, parent ScopeId) ScopeId {
	if se == nil {
		return NoScope
	}
	switch se.Kind {
	case ir.SetExprSelect:
		return b.buildSelect(se.Select, parent)
	default:
		left := b.buildSetExpr(se.Left, parent)
		b.buildSetExpr(se.Right, parent)
		return left
	}
}

// buildSelect creates one scope per SELECT and fills it from the
// FROM/JOIN lists in source order.
func (b *Builder) buildSelect(sel *ir.Select, parent ScopeId) ScopeId {
	if sel == nil {
		return NoScope
	}
	id := b.tree.Add(Scope{Parent: parent, Kind: KindSelect, CSTRange: sel.Span})

	for _, item := range sel.From {
		b.appendTable(id, b.fromItemSymbol(item, id))
	}
	for _, j := range sel.Joins {
		b.appendTable(id, b.fromItemSymbol(j.Item, id))
	}

	// Correlated subqueries in the projection list / WHERE / HAVING
	// get the current scope as their parent, so resolution can walk
	// outward for correlated references.
	for _, p := range sel.Projections {
		b.buildExprSubqueries(p.Expr, id)
	}
	if !sel.Where.IsEmpty() {
		b.buildExprSubqueries(sel.Where, id)
	}
	if !sel.Having.IsEmpty() {
		b.buildExprSubqueries(sel.Having, id)
	}

	return id
}

func (b *Builder) buildExprSubqueries(e ir.Expr, parent ScopeId) {
	if e.Subquery != nil {
		b.buildQuery(e.Subquery, parent)
	}
	for _, a := range e.Args {
		b.buildExprSubqueries(a, parent)
	}
	if e.Left != nil {
		b.buildExprSubqueries(*e.Left, parent)
	}
	if e.Right != nil {
		b.buildExprSubqueries(*e.Right, parent)
	}
	if e.Operand != nil {
		b.buildExprSubqueries(*e.Operand, parent)
	}
	for _, wt := range e.WhenThen {
		b.buildExprSubqueries(wt.When, parent)
		b.buildExprSubqueries(wt.Then, parent)
	}
	if e.Else != nil {
		b.buildExprSubqueries(*e.Else, parent)
	}
	if e.InExpr != nil {
		b.buildExprSubqueries(*e.InExpr, parent)
	}
	for _, in := range e.InList {
		b.buildExprSubqueries(in, parent)
	}
}

// fromItemSymbol turns one FROM/JOIN contribution into a TableSymbol,
// recursing into subqueries to build their child scope as a side
// effect.
func (b *Builder) fromItemSymbol(item ir.FromItem, parentScope ScopeId) TableSymbol {
	switch item.Kind {
	case ir.FromSubquery:
		b.buildQuery(item.Subquery, parentScope)
		var cols []ColumnSymbol
		if item.Subquery != nil {
			cols = b.projectionColumns(&item.Subquery.Body)
		}
		return TableSymbol{
			TableName: item.Alias,
			Alias:     item.Alias,
			Origin:    OriginSubquery,
			Columns:   cols,
			Span:      item.Span,
		}
	case ir.FromCTERef:
		ref := item.Table
		if ref == nil {
			return TableSymbol{Span: item.Span}
		}
		// A CTE reference resolves against the WITH clause's own scope,
		// already registered as an ancestor of parentScope — never the
		// catalog, which knows nothing about it.
		cte, ok := b.lookupCTE(parentScope, ref.Name)
		alias := ref.Alias
		if alias == "" {
			alias = ref.Name
		}
		if !ok {
			b.emit(Diagnostic{
				Span:    ref.Span,
				Code:    "UNDEFINED_TABLE",
				Message: fmt.Sprintf("CTE %s not found", ref.Name),
			})
		}
		return TableSymbol{
			TableName: ref.Name,
			Alias:     alias,
			Origin:    OriginCTE,
			Columns:   cte.Columns,
			Span:      item.Span,
		}
	default:
		ref := item.Table
		if ref == nil {
			return TableSymbol{Span: item.Span}
		}
		cols, found := b.lookupColumns(ref.Schema, ref.Name)
		if !found {
			b.emit(Diagnostic{
				Span:    ref.Span,
				Code:    "UNDEFINED_TABLE",
				Message: fmt.Sprintf("table %s not found in catalog", qualifiedName(ref.Schema, ref.Name)),
			})
		}
		return TableSymbol{
			TableName: ref.Name,
			Alias:     ref.Alias,
			Origin:    OriginCatalog,
			Columns:   columnSymbolsFor(ref.Alias, ref.Name, cols),
			Span:      item.Span,
		}
	}
}

// lookupCTE walks the scope chain starting at parentScope for a
// TableSymbol of OriginCTE named name, matching how a real reference
// resolves against whichever WITH clause is in scope (the query's own,
// or an enclosing query's for a correlated subquery under a WITH).
func (b *Builder) lookupCTE(parentScope ScopeId, name string) (TableSymbol, bool) {
	for cur := parentScope; cur != NoScope; {
		s := b.tree.Get(cur)
		for _, t := range s.Tables {
			if t.Origin == OriginCTE && t.TableName == name {
				return t, true
			}
		}
		cur = s.Parent
	}
	return TableSymbol{}, false
}

func (b *Builder) lookupColumns(schema, table string) ([]catalog.ColumnMetadata, bool) {
	if b.view == nil {
		return nil, false
	}
	return b.view.Columns(schema, table)
}

func columnSymbolsFor(alias, table string, cols []catalog.ColumnMetadata) []ColumnSymbol {
	display := alias
	if display == "" {
		display = table
	}
	out := make([]ColumnSymbol, 0, len(cols))
	for _, c := range cols {
		dt := c.DataType
		var dtPtr *string
		if dt != "" {
			dtPtr = &dt
		}
		var comment *string
		if c.Comment != "" {
			comment = &c.Comment
		}
		out = append(out, ColumnSymbol{
			Name:               c.Name,
			DataType:           dtPtr,
			Nullable:           c.Nullable,
			Comment:            comment,
			OwningTableDisplay: display,
		})
	}
	return out
}

// appendTable adds a TableSymbol to a scope. Within a scope,
// display names must be unique; duplicates are flagged Ambiguous on
// BOTH symbols and the later binding shadows the earlier one in
// resolution (handled by Tree.VisibleColumns).
func (b *Builder) appendTable(id ScopeId, sym TableSymbol) {
	s := b.tree.Get(id)
	name := sym.DisplayName()
	for i := range s.Tables {
		if s.Tables[i].DisplayName() == name {
			s.Tables[i].Ambiguous = true
			sym.Ambiguous = true
			b.emit(Diagnostic{
				Span:    sym.Span,
				Code:    "AMBIGUOUS_TABLE",
				Message: fmt.Sprintf("duplicate table reference %q in this scope", name),
			})
			break
		}
	}
	s.Tables = append(s.Tables, sym)
}

// projectionColumns derives subquery column names from a SELECT
// projection list. SELECT * / t.* contribute nothing here (callers must
// consult the catalog at completion time); unaliased non-identifier
// expressions are omitted (cannot be safely referenced).
func (b *Builder) projectionColumns(se *ir.SetExpr) []ColumnSymbol {
	if se == nil || se.Kind != ir.SetExprSelect || se.Select == nil {
		return nil
	}
	var out []ColumnSymbol
	for _, p := range se.Select.Projections {
		name := projectionColumnName(p)
		if name == "" {
			continue
		}
		out = append(out, ColumnSymbol{Name: name})
	}
	return out
}

func projectionColumnName(p ir.Projection) string {
	if p.Alias != "" {
		return p.Alias
	}
	switch p.Expr.KindOf() {
	case ir.ExprIdentifier, ir.ExprQualifiedName:
		if n := len(p.Expr.Parts); n > 0 {
			return p.Expr.Parts[n-1]
		}
	}
	return ""
}

func qualifiedName(schema, table string) string {
	if schema == "" {
		return table
	}
	return schema + "." + table
}

package ir

import (
	"strings"

	"github.com/oxhq/sqlls/internal/dialect"
	"github.com/oxhq/sqlls/internal/grammar"
)

// lowerTopQuery lowers a full query (WITH ... SELECT ... ORDER BY ...
// LIMIT ...) rooted at node. Returns nil when the statement is
// structurally empty (no select list, no FROM), which callers report
// as a failed lowering.
func (c *lowerCtx) lowerTopQuery(node *grammar.Node) (*Query, []Span) {
	q := &Query{}

	if with := node.ChildByFieldName("with"); with != nil {
		q.With = c.lowerWith(with)
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		body = firstChildKind(node, "select_clause", "select_statement", "union_expression")
	}
	if body == nil {
		// Hard structural impossibility.
		return nil, c.unsupported
	}
	q.Body = c.lowerSetExpr(body)

	if ob := node.ChildByFieldName("order_by"); ob != nil {
		q.OrderBy = c.lowerOrderBy(ob)
	}
	if lim := node.ChildByFieldName("limit"); lim != nil {
		c.lowerLimitOffset(node, lim, q)
	}

	return q, c.unsupported
}

func (c *lowerCtx) lowerWith(node *grammar.Node) []CTE {
	var out []CTE
	for _, ch := range node.Children() {
		if ch.Kind() != "common_table_expression" {
			continue
		}
		name := ch.ChildByFieldName("name")
		body := ch.ChildByFieldName("body")
		recursive := strings.Contains(strings.ToLower(node.Text()), "recursive")
		cte := CTE{Span: ch.Range(), Recursive: recursive}
		if name != nil {
			cte.Name = identText(name)
		}
		if body != nil {
			sub, _ := c.lowerTopQuery(body)
			cte.Body = sub
		}
		out = append(out, cte)
	}
	return out
}

func (c *lowerCtx) lowerSetExpr(node *grammar.Node) SetExpr {
	switch {
	case containsAny(node, "union"):
		return SetExpr{
			Kind:  SetExprUnion,
			AllOp: strings.Contains(strings.ToLower(node.Text()), "all"),
			Left:  ptrSetExpr(c.lowerSetExpr(node.ChildByFieldName("left"))),
			Right: ptrSetExpr(c.lowerSetExpr(node.ChildByFieldName("right"))),
		}
	case containsAny(node, "intersect"):
		return SetExpr{Kind: SetExprIntersect, Left: ptrSetExpr(c.lowerSetExpr(node.ChildByFieldName("left"))), Right: ptrSetExpr(c.lowerSetExpr(node.ChildByFieldName("right")))}
	case containsAny(node, "except", "minus"):
		return SetExpr{Kind: SetExprExcept, Left: ptrSetExpr(c.lowerSetExpr(node.ChildByFieldName("left"))), Right: ptrSetExpr(c.lowerSetExpr(node.ChildByFieldName("right")))}
	default:
		return SetExpr{Kind: SetExprSelect, Select: c.lowerSelect(node)}
	}
}

func ptrSetExpr(s SetExpr) *SetExpr { return &s }

func (c *lowerCtx) lowerSelect(node *grammar.Node) *Select {
	sel := &Select{Span: node.Range(), DialectExtensions: map[string]any{}}

	if d := firstChildKind(node, "select_list", "select_expression_list"); d != nil {
		for _, item := range d.Children() {
			sel.Projections = append(sel.Projections, c.lowerProjection(item))
		}
	}

	lowText := strings.ToLower(node.Text())
	sel.Distinct = strings.Contains(lowText, "distinct") && !strings.Contains(lowText, "distinct on")

	if don := firstChildKind(node, "distinct_on_clause"); don != nil {
		if c.l.dialect != 0 && dialect.FamilyOf(c.l.dialect) != dialect.FamilyPostgreSQL {
			c.markUnsupported(don.Range(), "DISTINCT ON")
		} else {
			for _, e := range don.Children() {
				sel.DistinctOn = append(sel.DistinctOn, c.lowerExpr(e))
			}
			sel.DialectExtensions["distinct_on"] = true
		}
	}

	if from := firstChildKind(node, "from_clause"); from != nil {
		items, joins := c.lowerFrom(from)
		sel.From = items
		sel.Joins = joins
	}

	if where := firstChildKind(node, "where_clause"); where != nil {
		if e := firstExprChild(where); e != nil {
			x := c.lowerExpr(e)
			sel.Where = x
		}
	}

	if gb := firstChildKind(node, "group_by_clause"); gb != nil {
		for _, e := range gb.Children() {
			if e.Kind() == "group_by" || e.Kind() == "identifier" || strings.Contains(e.Kind(), "expression") {
				sel.GroupBy = append(sel.GroupBy, c.lowerExpr(e))
			}
		}
	}

	if hv := firstChildKind(node, "having_clause"); hv != nil {
		if e := firstExprChild(hv); e != nil {
			sel.Having = c.lowerExpr(e)
		}
	}

	if ql := firstChildKind(node, "qualify_clause"); ql != nil {
		if !dialect.Supports(c.l.dialect, c.version, dialect.FeatureQualify) {
			c.markUnsupported(ql.Range(), "QUALIFY")
		} else if e := firstExprChild(ql); e != nil {
			sel.Qualify = c.lowerExpr(e)
		}
	}

	for _, w := range node.Children() {
		if w.Kind() == "window_clause" {
			sel.Windows = append(sel.Windows, c.lowerWindowDef(w))
		}
	}

	return sel
}

func (c *lowerCtx) lowerProjection(node *grammar.Node) Projection {
	if node.Kind() == "wildcard" || node.Text() == "*" {
		return Projection{Expr: Expr{Span: node.Range()}.withKind(ExprWildcard), Span: node.Range()}
	}
	p := Projection{Span: node.Range()}
	alias := node.ChildByFieldName("alias")
	exprNode := node.ChildByFieldName("expression")
	if exprNode == nil {
		exprNode = firstExprChild(node)
	}
	if exprNode != nil {
		p.Expr = c.lowerExpr(exprNode)
	}
	if alias != nil {
		p.Alias = identText(alias)
	}
	return p
}

// lowerFrom walks the FROM clause, producing FromItems in source
// order and Joins as siblings (not nested).
func (c *lowerCtx) lowerFrom(node *grammar.Node) ([]FromItem, []Join) {
	var items []FromItem
	var joins []Join
	for _, ch := range node.Children() {
		if isLateral(ch) && !dialect.Supports(c.l.dialect, c.version, dialect.FeatureLateral) {
			c.markUnsupported(ch.Range(), "LATERAL")
		}
		switch {
		case isJoinKind(ch):
			joins = append(joins, c.lowerJoin(ch))
		case ch.Kind() == "subquery" || ch.Kind() == "parenthesized_select":
			items = append(items, c.lowerSubqueryFromItem(ch))
		case ch.Kind() == "table_reference" || ch.Kind() == "aliased_relation" || ch.Kind() == "object_reference":
			items = append(items, c.lowerTableFromItem(ch))
		}
	}
	return items, joins
}

func isLateral(n *grammar.Node) bool {
	if strings.Contains(strings.ToLower(n.Kind()), "lateral") {
		return true
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(n.Text())), "lateral ")
}

func isJoinKind(n *grammar.Node) bool {
	k := strings.ToLower(n.Kind())
	return strings.Contains(k, "join")
}

func (c *lowerCtx) lowerJoin(node *grammar.Node) Join {
	j := Join{Span: node.Range(), Kind: joinKindOf(node)}
	rel := node.ChildByFieldName("relation")
	if rel == nil {
		rel = firstChildKind(node, "table_reference", "aliased_relation", "subquery", "object_reference")
	}
	if rel != nil {
		if rel.Kind() == "subquery" || rel.Kind() == "parenthesized_select" {
			j.Item = c.lowerSubqueryFromItem(rel)
		} else {
			j.Item = c.lowerTableFromItem(rel)
		}
	}
	if on := node.ChildByFieldName("condition"); on != nil {
		j.On = c.lowerExpr(on)
	} else if on := firstChildKind(node, "join_condition"); on != nil {
		if e := firstExprChild(on); e != nil {
			j.On = c.lowerExpr(e)
		}
	}
	return j
}

func joinKindOf(node *grammar.Node) JoinKind {
	t := strings.ToLower(node.Kind() + " " + node.Text())
	switch {
	case strings.Contains(t, "left"):
		return JoinLeft
	case strings.Contains(t, "right"):
		return JoinRight
	case strings.Contains(t, "full"):
		return JoinFull
	case strings.Contains(t, "cross"):
		return JoinCross
	default:
		return JoinInner
	}
}

func (c *lowerCtx) lowerTableFromItem(node *grammar.Node) FromItem {
	ref := &TableRef{Span: node.Range()}
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		nameNode = firstChildKind(node, "object_reference", "identifier", "dotted_name")
	}
	if nameNode != nil {
		parts := splitQualified(nameNode)
		switch len(parts) {
		case 1:
			ref.Name = parts[0]
		case 2:
			ref.Schema, ref.Name = parts[0], parts[1]
		default:
			if len(parts) > 0 {
				ref.Name = parts[len(parts)-1]
			}
		}
	}
	alias := node.ChildByFieldName("alias")
	if alias != nil {
		ref.Alias = identText(alias)
	}
	return FromItem{Kind: FromTable, Table: ref, Alias: ref.Alias, Span: node.Range()}
}

func (c *lowerCtx) lowerSubqueryFromItem(node *grammar.Node) FromItem {
	item := FromItem{Kind: FromSubquery, Span: node.Range()}
	inner := firstChildKind(node, "select_statement", "query_expression")
	if inner != nil {
		sub, _ := c.lowerTopQuery(inner)
		item.Subquery = sub
	}
	if alias := node.ChildByFieldName("alias"); alias != nil {
		item.Alias = identText(alias)
	}
	return item
}

func (c *lowerCtx) lowerOrderBy(node *grammar.Node) []OrderKey {
	var out []OrderKey
	for _, ch := range node.Children() {
		if ch.Kind() != "order_by_expression" && !strings.Contains(ch.Kind(), "sort") {
			continue
		}
		k := OrderKey{}
		exprNode := ch.ChildByFieldName("expression")
		if exprNode == nil {
			exprNode = firstExprChild(ch)
		}
		if exprNode != nil {
			k.Expr = c.lowerExpr(exprNode)
		}
		low := strings.ToLower(ch.Text())
		k.Descending = strings.Contains(low, "desc")
		if strings.Contains(low, "nulls first") {
			t := true
			k.NullsFirst = &t
		} else if strings.Contains(low, "nulls last") {
			f := false
			k.NullsFirst = &f
		}
		out = append(out, k)
	}
	return out
}

// lowerLimitOffset normalizes the version-sensitive LIMIT/OFFSET
// forms: MySQL "LIMIT a, b" and "LIMIT b OFFSET a" both canonicalize
// to {limit=b, offset=a}.
func (c *lowerCtx) lowerLimitOffset(stmtNode, limNode *grammar.Node, q *Query) {
	low := strings.ToLower(limNode.Text())
	if strings.Contains(low, ",") && !strings.Contains(low, "offset") {
		if !dialect.Supports(c.l.dialect, c.version, dialect.FeatureLimitOffsetComma) {
			c.markUnsupported(limNode.Range(), "LIMIT a, b")
		}
		children := limNode.Children()
		if len(children) >= 2 {
			q.Offset = c.lowerExpr(children[0])
			q.Limit = c.lowerExpr(children[1])
		}
		return
	}
	if off := stmtNode.ChildByFieldName("offset"); off != nil {
		q.Offset = c.lowerExpr(off)
	} else if off := firstChildKind(limNode, "offset_clause"); off != nil {
		if e := firstExprChild(off); e != nil {
			q.Offset = c.lowerExpr(e)
		}
	}
	if e := firstExprChild(limNode); e != nil {
		q.Limit = c.lowerExpr(e)
	}
}

func (c *lowerCtx) lowerWindowDef(node *grammar.Node) WindowDef {
	w := WindowDef{Span: node.Range()}
	if n := node.ChildByFieldName("name"); n != nil {
		w.Name = identText(n)
	}
	if pb := firstChildKind(node, "partition_by_clause"); pb != nil {
		for _, e := range pb.Children() {
			w.PartitionBy = append(w.PartitionBy, c.lowerExpr(e))
		}
	}
	if ob := firstChildKind(node, "order_by_clause"); ob != nil {
		w.OrderBy = c.lowerOrderBy(ob)
	}
	return w
}

func (c *lowerCtx) lowerInsert(node *grammar.Node) *DML {
	dml := &DML{}
	if t := node.ChildByFieldName("table"); t != nil {
		dml.Table = c.lowerTableFromItem(t).Table
	}
	if cols := firstChildKind(node, "column_list"); cols != nil {
		for _, ch := range cols.Children() {
			dml.InsertCols = append(dml.InsertCols, identifierOf(ch))
		}
	}
	return dml
}

func (c *lowerCtx) lowerUpdate(node *grammar.Node) *DML {
	dml := &DML{}
	if t := node.ChildByFieldName("table"); t != nil {
		dml.Table = c.lowerTableFromItem(t).Table
	}
	if set := firstChildKind(node, "set_clause", "update_set_clause"); set != nil {
		for _, assign := range set.Children() {
			if lhs := assign.ChildByFieldName("column"); lhs != nil {
				dml.SetColumns = append(dml.SetColumns, identifierOf(lhs))
			}
		}
	}
	if where := firstChildKind(node, "where_clause"); where != nil {
		if e := firstExprChild(where); e != nil {
			dml.Where = c.lowerExpr(e)
		}
	}
	return dml
}

func (c *lowerCtx) lowerDelete(node *grammar.Node) *DML {
	dml := &DML{}
	if t := node.ChildByFieldName("table"); t != nil {
		dml.Table = c.lowerTableFromItem(t).Table
	} else if t := firstChildKind(node, "table_reference", "object_reference"); t != nil {
		dml.Table = c.lowerTableFromItem(t).Table
	}
	if where := firstChildKind(node, "where_clause"); where != nil {
		if e := firstExprChild(where); e != nil {
			dml.Where = c.lowerExpr(e)
		}
	}
	return dml
}

func firstChildKind(n *grammar.Node, kinds ...string) *grammar.Node {
	if n == nil {
		return nil
	}
	for _, ch := range n.Children() {
		for _, k := range kinds {
			if ch.Kind() == k {
				return ch
			}
		}
	}
	return nil
}

func firstExprChild(n *grammar.Node) *grammar.Node {
	cs := n.Children()
	if len(cs) == 0 {
		return nil
	}
	return cs[len(cs)-1]
}

func identText(n *grammar.Node) string {
	if n == nil {
		return ""
	}
	return strings.Trim(n.Text(), "`\"[]")
}

// identifierOf lowers one name node to an Identifier, unifying MySQL
// backtick quoting and PostgreSQL double quoting into the same
// Identifier with a quotedness flag.
func identifierOf(n *grammar.Node) Identifier {
	raw := n.Text()
	quoted := strings.HasPrefix(raw, "`") || strings.HasPrefix(raw, `"`)
	return Identifier{Name: identText(n), Quoted: quoted, Span: n.Range()}
}

func splitQualified(n *grammar.Node) []string {
	txt := identText(n)
	if txt == "" {
		return nil
	}
	parts := strings.Split(txt, ".")
	for i, p := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(p), "`\"[]")
	}
	return parts
}

func (e Expr) withKind(k ExprKind) Expr {
	e.kind = k
	return e
}

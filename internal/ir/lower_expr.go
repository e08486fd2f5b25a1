package ir

import (
	"strconv"
	"strings"

	"github.com/oxhq/sqlls/internal/dialect"
	"github.com/oxhq/sqlls/internal/grammar"
)

// lowerExpr maps a CST expression subtree to an IR Expr. Because the
// concrete grammar is an opaque dependency, this dispatches on broad
// node-kind substrings (mirroring providers/base.BaseProvider's
// isClassScope/isFunctionScope heuristics) rather than an exhaustive
// enumeration of one grammar's exact node taxonomy.
func (c *lowerCtx) lowerExpr(node *grammar.Node) Expr {
	if node == nil {
		return Expr{}
	}
	span := node.Range()

	switch {
	case node.Kind() == "*" || node.Text() == "*":
		return Expr{Span: span}.withKind(ExprWildcard)

	case node.Kind() == "qualified_wildcard" || (strings.HasSuffix(node.Text(), ".*") && !strings.Contains(node.Text(), "(")):
		qual := strings.TrimSuffix(node.Text(), ".*")
		e := Expr{Span: span, Qualifier: qual}
		return e.withKind(ExprQualifiedWildcard)

	case node.Kind() == "dotted_name" || node.Kind() == "qualified_identifier" || node.Kind() == "field_access" || node.Kind() == "column_reference":
		parts := splitQualified(node)
		if len(parts) <= 1 {
			return Expr{Span: span, Parts: parts}.withKind(ExprIdentifier)
		}
		return Expr{Span: span, Parts: parts}.withKind(ExprQualifiedName)

	case node.Kind() == "identifier":
		return Expr{Span: span, Parts: []string{identText(node)}}.withKind(ExprIdentifier)

	case containsAny(node, "literal", "number", "string", "null", "true", "false"):
		return Expr{Span: span, Literal: literalValue(node)}.withKind(ExprLiteral)

	case containsAny(node, "binary_expression", "binary_op", "comparison"):
		left := node.ChildByFieldName("left")
		right := node.ChildByFieldName("right")
		op := node.ChildByFieldName("operator")
		e := Expr{Span: span, Op: opText(op, node)}
		if left != nil {
			l := c.lowerExpr(left)
			e.Left = &l
		}
		if right != nil {
			r := c.lowerExpr(right)
			e.Right = &r
		}
		return e.withKind(ExprBinary)

	case containsAny(node, "unary_expression", "not_expression"):
		operand := node.ChildByFieldName("operand")
		e := Expr{Span: span, Op: opText(node.ChildByFieldName("operator"), node)}
		if operand == nil {
			operand = firstExprChild(node)
		}
		if operand != nil {
			o := c.lowerExpr(operand)
			e.Operand = &o
		}
		return e.withKind(ExprUnary)

	case containsAny(node, "window_call"):
		return c.lowerWindowCall(node)

	case containsAny(node, "aggregate"):
		return c.lowerCallLike(node, ExprAggregate)

	case containsAny(node, "function_call", "invocation"):
		return c.lowerCallLike(node, ExprCall)

	case containsAny(node, "case_expression", "case_when"):
		return c.lowerCase(node)

	case containsAny(node, "exists"):
		e := Expr{Span: span}
		if sub := firstChildKind(node, "select_statement", "query_expression"); sub != nil {
			q, _ := c.lowerTopQuery(sub)
			e.Subquery = q
		}
		return e.withKind(ExprExists)

	case containsAny(node, "in_expression"):
		e := Expr{Span: span, Negated: strings.Contains(strings.ToLower(node.Text()), "not in")}
		if left := node.ChildByFieldName("left"); left != nil {
			l := c.lowerExpr(left)
			e.InExpr = &l
		}
		if sub := firstChildKind(node, "select_statement", "query_expression"); sub != nil {
			q, _ := c.lowerTopQuery(sub)
			e.Subquery = q
		} else {
			for _, ch := range node.Children() {
				if ch == node.ChildByFieldName("left") {
					continue
				}
				e.InList = append(e.InList, c.lowerExpr(ch))
			}
		}
		return e.withKind(ExprIn)

	case node.Kind() == "subquery" || node.Kind() == "parenthesized_select":
		e := Expr{Span: span}
		if inner := firstChildKind(node, "select_statement", "query_expression"); inner != nil {
			q, _ := c.lowerTopQuery(inner)
			e.Subquery = q
		}
		return e.withKind(ExprSubquery)

	case node.Kind() == "json_operator" || strings.Contains(node.Text(), "->"):
		if !dialect.Supports(c.l.dialect, c.version, dialect.FeatureJSONOps) {
			c.markUnsupported(span, "JSON operator")
		}
		return Expr{Span: span, Op: "->"}.withKind(ExprBinary)

	default:
		// Unknown shape: preserve the raw identifier-like text so
		// completion/diagnostics still have something to anchor on,
		// rather than propagating a hard failure for one expression.
		return Expr{Span: span, Parts: []string{node.Text()}}.withKind(ExprIdentifier)
	}
}

func (c *lowerCtx) lowerCallLike(node *grammar.Node, kind ExprKind) Expr {
	span := node.Range()
	e := Expr{Span: span}
	name := node.ChildByFieldName("function")
	if name == nil {
		name = firstChildKind(node, "identifier", "function_name")
	}
	if name != nil {
		e.FuncName = identText(name)
	}
	lowText := strings.ToLower(node.Text())
	e.Distinct = strings.Contains(lowText, "distinct")
	if args := node.ChildByFieldName("arguments"); args != nil {
		for _, a := range args.Children() {
			e.Args = append(e.Args, c.lowerExpr(a))
		}
	}
	if over := firstChildKind(node, "over_clause", "window_spec"); over != nil {
		spec := &WindowSpec{}
		if n := over.ChildByFieldName("name"); n != nil {
			spec.Name = identText(n)
		}
		if pb := firstChildKind(over, "partition_by_clause"); pb != nil {
			for _, e2 := range pb.Children() {
				spec.PartitionBy = append(spec.PartitionBy, c.lowerExpr(e2))
			}
		}
		if ob := firstChildKind(over, "order_by_clause"); ob != nil {
			spec.OrderBy = c.lowerOrderBy(ob)
		}
		e.Over = spec
		kind = ExprWindowCall
		if !dialect.Supports(c.l.dialect, c.version, dialect.FeatureWindowFunctions) {
			c.markUnsupported(span, "window function")
		}
	}
	return e.withKind(kind)
}

func (c *lowerCtx) lowerWindowCall(node *grammar.Node) Expr {
	return c.lowerCallLike(node, ExprWindowCall)
}

func (c *lowerCtx) lowerCase(node *grammar.Node) Expr {
	span := node.Range()
	e := Expr{Span: span}
	if operand := node.ChildByFieldName("operand"); operand != nil {
		o := c.lowerExpr(operand)
		e.CaseOperand = &o
	}
	for _, ch := range node.Children() {
		switch ch.Kind() {
		case "when_clause":
			when := ch.ChildByFieldName("condition")
			then := ch.ChildByFieldName("result")
			wc := WhenClause{}
			if when != nil {
				wc.When = c.lowerExpr(when)
			}
			if then != nil {
				wc.Then = c.lowerExpr(then)
			}
			e.WhenThen = append(e.WhenThen, wc)
		case "else_clause":
			if r := firstExprChild(ch); r != nil {
				el := c.lowerExpr(r)
				e.Else = &el
			}
		}
	}
	return e.withKind(ExprCase)
}

func opText(opNode, parent *grammar.Node) string {
	if opNode != nil {
		return opNode.Text()
	}
	for _, op := range []string{"<=", ">=", "<>", "!=", "=", "<", ">", "+", "-", "*", "/", "%", "AND", "OR", "NOT", "LIKE", "IS"} {
		if strings.Contains(strings.ToUpper(parent.Text()), op) {
			return op
		}
	}
	return ""
}

func literalValue(node *grammar.Node) any {
	txt := node.Text()
	low := strings.ToLower(txt)
	switch low {
	case "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(txt, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(txt, 64); err == nil {
		return f
	}
	return strings.Trim(txt, "'\"")
}

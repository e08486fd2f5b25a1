// Package context classifies the cursor's syntactic position into a
// CompletionContext by walking ancestors of the node at that offset.
package context

import (
	"strings"

	"github.com/oxhq/sqlls/internal/grammar"
)

// Kind is the closed CompletionContext tag.
type Kind int

const (
	None Kind = iota
	KeywordOnly
	SelectProjection
	FromTable
	JoinTable
	JoinCondition
	WhereClause
	GroupByColumn
	OrderByColumn
	HavingClause
	OnCondition
	Qualified
	FunctionCallArg
	InsertColumnList
	UpdateSetColumn
	ValueExpression
)

// Context is the classified cursor position.
type Context struct {
	Kind   Kind
	Prefix string // set for Qualified: the identifier text to the left of '.'
	Table  string // set for InsertColumnList / UpdateSetColumn
}

var clauseKinds = map[string]Kind{
	"select_list":        SelectProjection,
	"select_expression":  SelectProjection,
	"from_clause":        FromTable,
	"join_clause":        JoinTable,
	"where_clause":       WhereClause,
	"group_by_clause":    GroupByColumn,
	"having_clause":      HavingClause,
	"order_by_clause":    OrderByColumn,
}

// Detect classifies the cursor position at byteOffset within cst.
func Detect(cst *grammar.CST, byteOffset uint32) Context {
	if cst == nil {
		return Context{Kind: None}
	}

	if qualified, ok := detectQualified(cst, byteOffset); ok {
		return qualified
	}

	node := grammar.NodeAt(cst, byteOffset)
	if node == nil {
		return detectTopLevel(cst, byteOffset)
	}
	if node.IsError() {
		if p := node.Parent(); p != nil {
			node = p
		}
	}

	for n := node; n != nil; n = n.Parent() {
		switch n.Kind() {
		case "insert_statement":
			if inInsertColumnList(n, byteOffset) {
				return Context{Kind: InsertColumnList, Table: insertTableName(n)}
			}
		case "update_statement":
			if inUpdateSetList(n, byteOffset) {
				return Context{Kind: UpdateSetColumn, Table: updateTableName(n)}
			}
		case "on_clause", "join_condition":
			return Context{Kind: OnCondition}
		case "function_call", "invocation", "argument_list":
			if inArgumentList(n, byteOffset) {
				return Context{Kind: FunctionCallArg}
			}
		}
		if k, ok := clauseKinds[n.Kind()]; ok {
			return Context{Kind: k}
		}
		if n.Kind() == "join_clause" {
			return Context{Kind: JoinTable}
		}
	}

	return detectTopLevel(cst, byteOffset)
}

// detectQualified implements the tie-break rule: Qualified wins
// whenever the character immediately left of the cursor is '.',
// regardless of the outer clause.
func detectQualified(cst *grammar.CST, byteOffset uint32) (Context, bool) {
	src := cst.Source()
	if byteOffset == 0 || byteOffset > uint32(len(src)) {
		return Context{}, false
	}
	if src[byteOffset-1] != '.' {
		return Context{}, false
	}
	prefix := identifierBefore(src, byteOffset-1)
	return Context{Kind: Qualified, Prefix: prefix}, true
}

// identifierBefore scans left from (exclusive) end collecting
// identifier bytes, returning "" if the character left of '.' is not
// part of an identifier (a '.' with nothing to its left yields an
// empty prefix).
func identifierBefore(src []byte, dotOffset uint32) string {
	end := int(dotOffset)
	start := end
	for start > 0 && isIdentByte(src[start-1]) {
		start--
	}
	return string(src[start:end])
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// detectTopLevel handles the empty-document / top-of-statement /
// after-terminator cases that never resolve to a named node.
func detectTopLevel(cst *grammar.CST, byteOffset uint32) Context {
	src := cst.Source()
	before := src
	if int(byteOffset) <= len(src) {
		before = src[:byteOffset]
	}
	trimmed := strings.TrimRight(string(before), " \t\r\n")
	if trimmed == "" || strings.HasSuffix(trimmed, ";") {
		return Context{Kind: KeywordOnly}
	}
	if strings.HasSuffix(strings.ToUpper(trimmed), "SELECT") {
		return Context{Kind: SelectProjection}
	}
	return Context{Kind: None}
}

func inInsertColumnList(n *grammar.Node, offset uint32) bool {
	cols := n.ChildByFieldName("columns")
	if cols == nil {
		return false
	}
	return cols.Range().Contains(offset) || cols.Range().End == offset
}

func insertTableName(n *grammar.Node) string {
	if t := n.ChildByFieldName("table"); t != nil {
		return t.Text()
	}
	return ""
}

func inUpdateSetList(n *grammar.Node, offset uint32) bool {
	set := n.ChildByFieldName("set_clause")
	if set == nil {
		// Fall back to a substring search among named children for a
		// node kind resembling a SET list when the grammar doesn't
		// expose a "set_clause" field name.
		for _, c := range n.Children() {
			if strings.Contains(c.Kind(), "set") && c.Range().Contains(offset) {
				return true
			}
		}
		return false
	}
	return set.Range().Contains(offset)
}

func updateTableName(n *grammar.Node) string {
	if t := n.ChildByFieldName("table"); t != nil {
		return t.Text()
	}
	return ""
}

func inArgumentList(n *grammar.Node, offset uint32) bool {
	args := n.ChildByFieldName("arguments")
	if args == nil {
		args = n
	}
	return args.Range().Contains(offset) || args.Range().End == offset
}

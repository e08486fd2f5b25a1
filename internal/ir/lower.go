package ir

import (
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/oxhq/sqlls/internal/dialect"
	"github.com/oxhq/sqlls/internal/grammar"
)

// dialectLowering is the one concrete Lowering implementation shared
// by every dialect family, parameterized by the family's feature
// table. Most SQL dialects share the overwhelming bulk of their
// syntax; what differs is which forms are valid (checked via
// dialect.Supports) and how a handful of forms normalize to the
// canonical IR.
type dialectLowering struct {
	dialect dialect.Dialect

	mu   sync.Mutex
	diag []Diagnostic
}

// NewDialectLowering builds the Lowering implementation for d.
func NewDialectLowering(d dialect.Dialect) Lowering {
	return &dialectLowering{dialect: d}
}

func (l *dialectLowering) Diagnostics() []Diagnostic {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Diagnostic, len(l.diag))
	copy(out, l.diag)
	return out
}

func (l *dialectLowering) emit(d Diagnostic) {
	l.mu.Lock()
	l.diag = append(l.diag, d)
	l.mu.Unlock()
}

func (l *dialectLowering) unsupported(span Span, feature string) {
	l.emit(Diagnostic{Span: span, Code: "UNSUPPORTED_FEATURE", Message: "unsupported in " + l.dialect.String() + ": " + feature})
}

func (l *dialectLowering) syntaxErr(span Span, msg string) {
	l.emit(Diagnostic{Span: span, Code: "SYNTAX", Message: msg})
}

// Lower implements the three-outcome lowering contract.
func (l *dialectLowering) Lower(node *grammar.Node, version *semver.Version) LoweringResult {
	l.mu.Lock()
	l.diag = nil
	l.mu.Unlock()

	if node == nil {
		return LoweringResult{Outcome: OutcomeFailed, Err: &LoweringError{Message: "nil node"}, Fallback: FallbackNoCompletion}
	}

	node.Walk(func(n *grammar.Node) bool {
		if n.IsError() {
			l.syntaxErr(n.Range(), "syntax error")
			return false
		}
		return true
	})

	stmtNode := findStatementNode(node)
	if stmtNode == nil {
		return LoweringResult{
			Outcome:  OutcomeFailed,
			Err:      &LoweringError{Message: "no recognizable statement", Span: node.Range()},
			Fallback: FallbackKeywordsOnly,
		}
	}

	lc := &lowerCtx{l: l, version: version}

	switch {
	case isKind(stmtNode, "select_statement", "query_expression"):
		sel, unsupported := lc.lowerTopQuery(stmtNode)
		if sel == nil {
			return LoweringResult{
				Outcome:  OutcomeFailed,
				Err:      &LoweringError{Message: "select statement has neither select list nor FROM", Span: stmtNode.Range()},
				Fallback: FallbackSyntaxBased,
			}
		}
		stmt := &Stmt{Kind: StmtQuery, Span: stmtNode.Range(), Query: sel}
		if len(unsupported) > 0 {
			return LoweringResult{Outcome: OutcomePartial, Stmt: stmt, Unsupported: unsupported}
		}
		return LoweringResult{Outcome: OutcomeSuccess, Stmt: stmt}

	case isKind(stmtNode, "insert_statement"):
		dml := lc.lowerInsert(stmtNode)
		return LoweringResult{Outcome: OutcomeSuccess, Stmt: &Stmt{Kind: StmtInsert, Span: stmtNode.Range(), DML: dml}}

	case isKind(stmtNode, "update_statement"):
		dml := lc.lowerUpdate(stmtNode)
		return LoweringResult{Outcome: OutcomeSuccess, Stmt: &Stmt{Kind: StmtUpdate, Span: stmtNode.Range(), DML: dml}}

	case isKind(stmtNode, "delete_statement"):
		dml := lc.lowerDelete(stmtNode)
		return LoweringResult{Outcome: OutcomeSuccess, Stmt: &Stmt{Kind: StmtDelete, Span: stmtNode.Range(), DML: dml}}

	default:
		return LoweringResult{
			Outcome:  OutcomeFailed,
			Err:      &LoweringError{Message: "unrecognized statement kind: " + stmtNode.Kind(), Span: stmtNode.Range()},
			Fallback: FallbackSyntaxBased,
		}
	}
}

// lowerCtx threads per-call state (dialect version, accumulated
// unsupported spans) through the recursive-descent lowering.
type lowerCtx struct {
	l           *dialectLowering
	version     *semver.Version
	unsupported []Span
}

func (c *lowerCtx) markUnsupported(span Span, feature string) {
	c.unsupported = append(c.unsupported, span)
	c.l.unsupported(span, feature)
}

// findStatementNode locates the first statement-shaped node in the
// tree, skipping ERROR nodes (each contributes a SYNTAX diagnostic;
// recovered siblings are still lowered).
func findStatementNode(root *grammar.Node) *grammar.Node {
	var found *grammar.Node
	root.Walk(func(n *grammar.Node) bool {
		if found != nil {
			return false
		}
		if n.IsError() {
			return false // don't recurse into ERROR subtrees
		}
		if isKind(n, "select_statement", "query_expression", "insert_statement", "update_statement", "delete_statement") {
			found = n
			return false
		}
		return true
	})
	return found
}

func isKind(n *grammar.Node, kinds ...string) bool {
	if n == nil {
		return false
	}
	k := n.Kind()
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

func containsAny(n *grammar.Node, substrs ...string) bool {
	if n == nil {
		return false
	}
	k := n.Kind()
	for _, s := range substrs {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

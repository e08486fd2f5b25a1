// Package ir defines the dialect-independent intermediate
// representation the Grammar Adapter's CST is lowered into, and the
// three-outcome lowering contract.
package ir

import (
	"github.com/oxhq/sqlls/internal/grammar"
)

// Span anchors an IR node back to the CST range it was lowered from,
// for diagnostics. Every span lies within its parent node's span.
type Span = grammar.ByteRange

// StmtKind is the closed set of statement shapes the IR recognizes.
type StmtKind int

const (
	StmtUnknown StmtKind = iota
	StmtQuery
	StmtInsert
	StmtUpdate
	StmtDelete
)

// Stmt is the top-level IR node for one SQL statement.
type Stmt struct {
	Kind  StmtKind
	Span  Span
	Query *Query  // set when Kind == StmtQuery
	DML   *DML    // set when Kind is Insert/Update/Delete
}

// DML covers INSERT/UPDATE/DELETE. Type checking and DDL semantics
// are out of scope; this carries just enough structure for
// column-list and SET-clause completion to be answerable.
type DML struct {
	Table      *TableRef
	InsertCols []Identifier // explicit column list, if present
	SetColumns []Identifier // UPDATE SET targets
	Where      Expr
}

// Query is a full SELECT statement including WITH/ORDER BY/LIMIT.
type Query struct {
	With    []CTE
	Body    SetExpr
	OrderBy []OrderKey
	Limit   Expr
	Offset  Expr
}

// SetExprKind distinguishes SELECT bodies from set operations.
type SetExprKind int

const (
	SetExprSelect SetExprKind = iota
	SetExprUnion
	SetExprIntersect
	SetExprExcept
)

// SetExpr is either a bare Select or a set operation combining two
// SetExprs.
type SetExpr struct {
	Kind   SetExprKind
	Select *Select // set when Kind == SetExprSelect
	Left   *SetExpr
	Right  *SetExpr
	AllOp  bool // UNION ALL vs UNION
}

// CTE is one WITH clause entry.
type CTE struct {
	Name      string
	Recursive bool
	Body      *Query
	Span      Span
}

// Select is the IR for one SELECT body.
type Select struct {
	Distinct          bool
	DistinctOn        []Expr // PostgreSQL dialect extension
	Projections       []Projection
	From              []FromItem
	Joins             []Join
	Where             Expr
	GroupBy           []Expr
	Having            Expr
	Windows           []WindowDef
	Qualify           Expr
	DialectExtensions map[string]any
	Span              Span
}

// Projection is one SELECT-list entry.
type Projection struct {
	Expr  Expr
	Alias string // "" if unaliased
	Span  Span
}

// FromKind distinguishes the three things that can appear in FROM.
type FromKind int

const (
	FromTable FromKind = iota
	FromSubquery
	FromCTERef
)

// FromItem is one comma-separated entry in a FROM clause. Joins are
// modeled separately in Select.Joins, as siblings, never nested
// under the relation they join.
type FromItem struct {
	Kind     FromKind
	Table    *TableRef // set for FromTable / FromCTERef
	Subquery *Query    // set for FromSubquery
	Alias    string
	Span     Span
}

// JoinKind is the closed set of join forms recognized at the IR level.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinRight
	JoinFull
	JoinCross
)

// Join is one JOIN clause, a sibling of FromItem entries.
type Join struct {
	Kind JoinKind
	Item FromItem
	On   Expr
	Span Span
}

// TableRef names a base table, possibly schema-qualified and aliased.
type TableRef struct {
	Schema string
	Name   string
	Alias  string
	Span   Span
}

// OrderKey is one ORDER BY entry.
type OrderKey struct {
	Expr       Expr
	Descending bool
	NullsFirst *bool // nil means dialect default
}

// WindowDef is a named window definition (WINDOW w AS (...)).
type WindowDef struct {
	Name        string
	PartitionBy []Expr
	OrderBy     []OrderKey
	Span        Span
}

// Identifier is a single (possibly quoted) name.
type Identifier struct {
	Name   string
	Quoted bool
	Span   Span
}

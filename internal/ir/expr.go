package ir

// ExprKind is the closed set of expression shapes.
type ExprKind int

const (
	ExprIdentifier ExprKind = iota
	ExprQualifiedName
	ExprLiteral
	ExprBinary
	ExprUnary
	ExprCall
	ExprAggregate
	ExprWindowCall
	ExprCase
	ExprSubquery
	ExprExists
	ExprIn
	ExprWildcard
	ExprQualifiedWildcard
)

// Expr is the closed IR expression node. Exactly one of the
// kind-specific fields is populated, selected by Kind.
type Expr struct {
	kind ExprKind
	Span Span

	// ExprIdentifier / ExprQualifiedName
	Parts []string // ["a","b"] for a.b, ["a","b","c"] for a.b.c

	// ExprLiteral
	Literal any

	// ExprBinary / ExprUnary
	Op       string
	Left     *Expr
	Right    *Expr
	Operand  *Expr

	// ExprCall / ExprAggregate / ExprWindowCall
	FuncName string
	Args     []Expr
	Distinct bool
	Over     *WindowSpec // non-nil for ExprWindowCall

	// ExprCase
	CaseOperand *Expr
	WhenThen    []WhenClause
	Else        *Expr

	// ExprSubquery / ExprExists / ExprIn
	Subquery *Query
	InList   []Expr
	InExpr   *Expr
	Negated  bool

	// ExprQualifiedWildcard
	Qualifier string
}

// KindOf returns the expression's kind tag.
func (e *Expr) KindOf() ExprKind { return e.kind }

// SetKind is used by the lowering stage to tag a freshly built Expr.
func (e *Expr) SetKind(k ExprKind) { e.kind = k }

// WhenClause is one WHEN ... THEN ... arm of a CASE expression.
type WhenClause struct {
	When Expr
	Then Expr
}

// WindowSpec is the OVER (...) clause of a window call.
type WindowSpec struct {
	Name        string // reference to a named WINDOW, if any
	PartitionBy []Expr
	OrderBy     []OrderKey
}

// IsEmpty reports whether e is the zero Expr (used as "no expression"
// sentinel for optional fields like Where/Having/Limit).
func (e Expr) IsEmpty() bool {
	return e.kind == ExprIdentifier && len(e.Parts) == 0 && e.Literal == nil &&
		e.Left == nil && e.Right == nil && e.FuncName == "" && e.Subquery == nil
}

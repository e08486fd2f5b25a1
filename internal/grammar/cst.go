// Package grammar produces and
// incrementally updates a CST for a given dialect and exposes typed
// node access over it.
//
// The concrete tree-sitter SQL grammar is treated as an opaque
// dependency — this package only depends on the
// generic tree-sitter runtime (github.com/smacker/go-tree-sitter) plus
// one shared grammar package
// (github.com/smacker/go-tree-sitter/sql), since syntax recovery and
// node shape are dialect-agnostic; dialect identity changes what is
// semantically valid, which is the Lowering stage's concern.
package grammar

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/oxhq/sqlls/internal/dialect"
)

// Point is a 1:1 mirror of tree-sitter's row/column position, kept as
// its own type so callers never import the tree-sitter package
// directly outside this adapter; a borrowed node must never cross a
// cache boundary.
type Point struct {
	Row    uint32
	Column uint32
}

// ByteRange is a half-open [Start, End) byte range.
type ByteRange struct {
	Start, End uint32
}

func (r ByteRange) Contains(offset uint32) bool {
	return offset >= r.Start && offset < r.End
}

// ContainsRange reports whether r fully contains o (used for scope
// nesting checks).
func (r ByteRange) ContainsRange(o ByteRange) bool {
	return r.Start <= o.Start && o.End <= r.End
}

// Edit describes a single text mutation for incremental reparsing.
type Edit struct {
	StartByte, OldEndByte, NewEndByte    uint32
	StartPoint, OldEndPoint, NewEndPoint Point
}

// CST wraps a tree-sitter parse tree together with the source bytes it
// was parsed from and the dialect that produced it. A CST is not an
// immutable snapshot: Reparse applies the edit to the receiver's
// tree in place before reparsing, so a Reparse changes the CST it
// was called on.
type CST struct {
	tree    *sitter.Tree
	source  []byte
	dialect dialect.Dialect
}

// Root returns the root named node of the tree.
func (c *CST) Root() *Node {
	if c == nil || c.tree == nil {
		return nil
	}
	return &Node{n: c.tree.RootNode(), src: c.source}
}

// Source returns the byte slice the CST was parsed from. Callers must
// not mutate it.
func (c *CST) Source() []byte { return c.source }

// Dialect returns the dialect this CST was parsed under.
func (c *CST) Dialect() dialect.Dialect { return c.dialect }

// HasErrors reports whether the tree contains any ERROR or missing
// node anywhere.
func (c *CST) HasErrors() bool {
	if c == nil || c.tree == nil {
		return false
	}
	return c.tree.RootNode().HasError()
}

// Node is a typed, read-only view over a tree-sitter node plus the
// source bytes needed to extract its text.
type Node struct {
	n   *sitter.Node
	src []byte
}

func wrap(n *sitter.Node, src []byte) *Node {
	if n == nil {
		return nil
	}
	return &Node{n: n, src: src}
}

func (n *Node) Kind() string {
	if n == nil || n.n == nil {
		return ""
	}
	return n.n.Type()
}

func (n *Node) IsError() bool {
	return n != nil && n.n != nil && n.n.Type() == "ERROR"
}

func (n *Node) IsMissing() bool {
	return n != nil && n.n != nil && n.n.IsMissing()
}

func (n *Node) Range() ByteRange {
	if n == nil || n.n == nil {
		return ByteRange{}
	}
	return ByteRange{Start: n.n.StartByte(), End: n.n.EndByte()}
}

func (n *Node) StartPoint() Point {
	p := n.n.StartPoint()
	return Point{Row: p.Row, Column: p.Column}
}

func (n *Node) EndPoint() Point {
	p := n.n.EndPoint()
	return Point{Row: p.Row, Column: p.Column}
}

func (n *Node) Text() string {
	if n == nil || n.n == nil {
		return ""
	}
	return n.n.Content(n.src)
}

func (n *Node) Parent() *Node {
	if n == nil || n.n == nil {
		return nil
	}
	return wrap(n.n.Parent(), n.src)
}

func (n *Node) ChildByFieldName(name string) *Node {
	if n == nil || n.n == nil {
		return nil
	}
	return wrap(n.n.ChildByFieldName(name), n.src)
}

func (n *Node) NamedChildCount() int {
	if n == nil || n.n == nil {
		return 0
	}
	return int(n.n.NamedChildCount())
}

func (n *Node) NamedChild(i int) *Node {
	if n == nil || n.n == nil {
		return nil
	}
	return wrap(n.n.NamedChild(i), n.src)
}

// Children returns every named child in source order.
func (n *Node) Children() []*Node {
	if n == nil || n.n == nil {
		return nil
	}
	out := make([]*Node, 0, n.n.NamedChildCount())
	for i := 0; i < int(n.n.NamedChildCount()); i++ {
		out = append(out, wrap(n.n.NamedChild(i), n.src))
	}
	return out
}

// Walk calls fn for this node and every descendant, depth-first,
// pre-order. Returning false from fn skips the subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || n.n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children() {
		c.Walk(fn)
	}
}

// NodeAt finds the smallest named node spanning offset. If the offset
// sits on a boundary, the preceding node wins. If the offset resolves
// inside an ERROR node, that ERROR node is returned; Parent() still
// reaches the nearest named ancestor.
func NodeAt(c *CST, offset uint32) *Node {
	if c == nil || c.tree == nil {
		return nil
	}
	root := c.tree.RootNode()
	best := root
	for {
		var next *sitter.Node
		for i := 0; i < int(best.NamedChildCount()); i++ {
			ch := best.NamedChild(i)
			start, end := ch.StartByte(), ch.EndByte()
			if offset > start && offset < end {
				next = ch
				break
			}
			if offset == start {
				// boundary: preceding node wins, so only descend if this
				// child's start is a proper interior point already
				// handled above; an exact-start match keeps `best`
				// unless no earlier sibling has already claimed it.
				continue
			}
			if offset == end {
				next = ch
			}
		}
		if next == nil {
			break
		}
		best = next
	}
	return wrap(best, c.source)
}

// parseCtx parses source with parser (already set to a dialect's
// language); when old is non-nil, its unchanged subtrees are reused.
func parseCtx(ctx context.Context, parser *sitter.Parser, old *sitter.Tree, source []byte) (*sitter.Tree, error) {
	return parser.ParseCtx(ctx, old, source)
}

package formula

import "github.com/shopspring/decimal"

// node is a parsed expression. The set of node types is closed: the
// interpreter switches over exactly these.
type node interface {
	position() int
}

type numberLit struct {
	pos   int
	value decimal.Decimal
}

type stringLit struct {
	pos   int
	value string
}

type boolLit struct {
	pos   int
	value bool
}

type ident struct {
	pos  int
	name string
}

type unary struct {
	pos int
	op  tokenKind
	x   node
}

type binary struct {
	pos         int
	op          tokenKind
	left, right node
}

type ternary struct {
	pos               int
	cond, then, else_ node
}

type call struct {
	pos  int
	fn   string
	args []node
}

func (n *numberLit) position() int { return n.pos }
func (n *stringLit) position() int { return n.pos }
func (n *boolLit) position() int   { return n.pos }
func (n *ident) position() int     { return n.pos }
func (n *unary) position() int     { return n.pos }
func (n *binary) position() int    { return n.pos }
func (n *ternary) position() int   { return n.pos }
func (n *call) position() int      { return n.pos }

// walk visits n and all of its children depth first.
func walk(n node, visit func(node)) {
	visit(n)
	switch t := n.(type) {
	case *unary:
		walk(t.x, visit)
	case *binary:
		walk(t.left, visit)
		walk(t.right, visit)
	case *ternary:
		walk(t.cond, visit)
		walk(t.then, visit)
		walk(t.else_, visit)
	case *call:
		for _, a := range t.args {
			walk(a, visit)
		}
	}
}

package expr

import (
	"math"
	"strconv"
	"strings"
)

// Node is a parsed expression. The node set is closed: numbers, declared
// symbols, named constants, negation, the four arithmetic operators plus
// power, and calls into the fixed function vocabulary.
type Node interface {
	String() string
	compile() evalFunc
}

type evalFunc func(slots []float64) float64

type Num struct{ Value float64 }

func (n *Num) String() string { return strconv.FormatFloat(n.Value, 'g', -1, 64) }

func (n *Num) compile() evalFunc {
	v := n.Value
	return func([]float64) float64 { return v }
}

// Sym is a declared coordinate or parameter, bound to a slot index at
// compile time.
type Sym struct {
	Name string
	Slot int
}

func (s *Sym) String() string { return s.Name }

func (s *Sym) compile() evalFunc {
	slot := s.Slot
	return func(slots []float64) float64 { return slots[slot] }
}

type Const struct {
	Name  string
	Value float64
}

func (c *Const) String() string { return c.Name }

func (c *Const) compile() evalFunc {
	v := c.Value
	return func([]float64) float64 { return v }
}

type Neg struct{ X Node }

func (n *Neg) String() string { return "(-" + n.X.String() + ")" }

func (n *Neg) compile() evalFunc {
	if v, ok := constValue(n); ok {
		return func([]float64) float64 { return v }
	}
	x := n.X.compile()
	return func(slots []float64) float64 { return -x(slots) }
}

type Binary struct {
	Op   byte
	L, R Node
}

func (b *Binary) String() string {
	return "(" + b.L.String() + " " + string(b.Op) + " " + b.R.String() + ")"
}

func (b *Binary) compile() evalFunc {
	if v, ok := constValue(b); ok {
		return func([]float64) float64 { return v }
	}
	l, r := b.L.compile(), b.R.compile()
	switch b.Op {
	case '+':
		return func(s []float64) float64 { return l(s) + r(s) }
	case '-':
		return func(s []float64) float64 { return l(s) - r(s) }
	case '*':
		return func(s []float64) float64 { return l(s) * r(s) }
	case '/':
		return func(s []float64) float64 { return l(s) / r(s) }
	case '^':
		if n, ok := b.R.(*Num); ok && n.Value == 2 {
			return func(s []float64) float64 { v := l(s); return v * v }
		}
		return func(s []float64) float64 { return math.Pow(l(s), r(s)) }
	}
	panic("expr: unknown operator " + string(b.Op))
}

type Call struct {
	Func string
	Args []Node
}

func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return c.Func + "(" + strings.Join(args, ", ") + ")"
}

func (c *Call) compile() evalFunc {
	if v, ok := constValue(c); ok {
		return func([]float64) float64 { return v }
	}
	def := functions[c.Func]
	if def.arity == 1 {
		f, x := def.unary, c.Args[0].compile()
		return func(s []float64) float64 { return f(x(s)) }
	}
	f, x, y := def.binary, c.Args[0].compile(), c.Args[1].compile()
	return func(s []float64) float64 { return f(x(s), y(s)) }
}

// constValue folds subtrees that reference no symbols.
func constValue(n Node) (float64, bool) {
	switch n := n.(type) {
	case *Num:
		return n.Value, true
	case *Const:
		return n.Value, true
	case *Sym:
		return 0, false
	case *Neg:
		v, ok := constValue(n.X)
		return -v, ok
	case *Binary:
		l, ok := constValue(n.L)
		if !ok {
			return 0, false
		}
		r, ok := constValue(n.R)
		if !ok {
			return 0, false
		}
		return n.apply(l, r), true
	case *Call:
		def := functions[n.Func]
		vals := make([]float64, len(n.Args))
		for i, a := range n.Args {
			v, ok := constValue(a)
			if !ok {
				return 0, false
			}
			vals[i] = v
		}
		if def.arity == 1 {
			return def.unary(vals[0]), true
		}
		return def.binary(vals[0], vals[1]), true
	}
	return 0, false
}

func (b *Binary) apply(l, r float64) float64 {
	switch b.Op {
	case '+':
		return l + r
	case '-':
		return l - r
	case '*':
		return l * r
	case '/':
		return l / r
	}
	return math.Pow(l, r)
}

// walk visits n and all of its descendants.
func walk(n Node, visit func(Node)) {
	visit(n)
	switch n := n.(type) {
	case *Neg:
		walk(n.X, visit)
	case *Binary:
		walk(n.L, visit)
		walk(n.R, visit)
	case *Call:
		for _, a := range n.Args {
			walk(a, visit)
		}
	}
}

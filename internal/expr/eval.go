package expr

import (
	"fmt"
	"sort"
)

// Evaluator is a compiled expression. It is immutable and safe for
// concurrent use.
type Evaluator struct {
	src     string
	root    Node
	fn      evalFunc
	symbols []string
	used    []string
}

// Compile parses src against the ordered list of declared symbols. The
// position of each symbol in the list is its slot in EvalSlots. Compile is
// the only place syntax and unknown-symbol errors surface.
func Compile(src string, symbols []string) (*Evaluator, error) {
	slots := make(map[string]int, len(symbols))
	for i, s := range symbols {
		if _, dup := slots[s]; !dup {
			slots[s] = i
		}
	}

	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	r := &resolver{src: src, symbols: slots}
	toks, err = r.resolve(toks)
	if err != nil {
		return nil, err
	}

	p := &parser{src: src, toks: toks, symbols: slots}
	root, err := p.parse()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	walk(root, func(n Node) {
		if s, ok := n.(*Sym); ok {
			seen[s.Name] = true
		}
	})
	used := make([]string, 0, len(seen))
	for name := range seen {
		used = append(used, name)
	}
	sort.Strings(used)

	return &Evaluator{
		src:     src,
		root:    root,
		fn:      root.compile(),
		symbols: append([]string(nil), symbols...),
		used:    used,
	}, nil
}

// EvalSlots evaluates with vals[i] bound to the i-th declared symbol.
// Domain violations yield NaN or Inf rather than an error.
func (e *Evaluator) EvalSlots(vals []float64) float64 {
	return e.fn(vals)
}

// Eval evaluates with symbol values taken from bindings. Every symbol the
// expression references must be bound.
func (e *Evaluator) Eval(bindings map[string]float64) (float64, error) {
	vals := make([]float64, len(e.symbols))
	for _, name := range e.used {
		if _, ok := bindings[name]; !ok {
			return 0, fmt.Errorf("expr: no binding for %q", name)
		}
	}
	for i, name := range e.symbols {
		vals[i] = bindings[name]
	}
	return e.fn(vals), nil
}

// Symbols returns the declared symbols the expression references, sorted.
func (e *Evaluator) Symbols() []string {
	return append([]string(nil), e.used...)
}

func (e *Evaluator) Source() string { return e.src }

func (e *Evaluator) Root() Node { return e.root }

// String returns the canonical fully parenthesized form.
func (e *Evaluator) String() string { return e.root.String() }

package equations

import (
	"fmt"
	"strings"

	"github.com/san-kum/phaseplane/internal/dynamo"
	"github.com/san-kum/phaseplane/internal/expr"
)

// MaxDim is the largest number of phase coordinates supported.
const MaxDim = 2

// DifferentialEquation is one scalar component of the vector field, the
// right-hand side of coord' = expression.
type DifferentialEquation struct {
	coord string
	eval  *expr.Evaluator
}

func (d *DifferentialEquation) Coord() string { return d.coord }

func (d *DifferentialEquation) Expr() string { return d.eval.Source() }

func (d *DifferentialEquation) Evaluator() *expr.Evaluator { return d.eval }

func (d *DifferentialEquation) String() string {
	return d.coord + "' = " + d.eval.Source()
}

// System is an immutable system of first-order ODEs. It implements
// dynamo.System.
type System struct {
	coords []string
	eqns   []*DifferentialEquation
	params ParameterSet
	// template holds one slot per coordinate (zeroed) followed by the
	// parameter values in sorted-name order.
	template []float64
}

// New validates and compiles a system. Parameter values may be numbers or
// numeric strings.
func New(coords []string, exprs []string, params map[string]any) (*System, error) {
	if err := validateCoords(coords); err != nil {
		return nil, err
	}
	if len(exprs) != len(coords) {
		return nil, fmt.Errorf("%w: %d coordinates but %d equations", dynamo.ErrDimensionMismatch, len(coords), len(exprs))
	}

	isCoord := make(map[string]bool, len(coords))
	for _, c := range coords {
		isCoord[c] = true
	}
	for name := range params {
		switch {
		case !expr.IsIdentifier(name):
			return nil, &dynamo.ConfigError{Kind: dynamo.ErrParameterValidity, Field: "params", Value: name, Msg: fmt.Sprintf("%q is not a valid identifier", name)}
		case isCoord[name]:
			return nil, &dynamo.ConfigError{Kind: dynamo.ErrParameterValidity, Field: "params", Value: name, Msg: fmt.Sprintf("%q is already a phase coordinate", name)}
		case expr.IsFunction(name):
			return nil, &dynamo.ConfigError{Kind: dynamo.ErrParameterValidity, Field: "params", Value: name, Msg: fmt.Sprintf("%q is a reserved function name", name)}
		}
	}

	ps, err := CoerceParams(params)
	if err != nil {
		return nil, err
	}

	names := ps.Names()
	symbols := make([]string, 0, len(coords)+len(names))
	symbols = append(symbols, coords...)
	symbols = append(symbols, names...)

	template := make([]float64, len(symbols))
	for i, name := range names {
		template[len(coords)+i] = ps[name]
	}

	eqns := make([]*DifferentialEquation, len(coords))
	for i, src := range exprs {
		ev, err := expr.Compile(src, symbols)
		if err != nil {
			return nil, fmt.Errorf("equation %s': %w", coords[i], err)
		}
		eqns[i] = &DifferentialEquation{coord: coords[i], eval: ev}
	}

	return &System{
		coords:   append([]string(nil), coords...),
		eqns:     eqns,
		params:   ps,
		template: template,
	}, nil
}

func validateCoords(coords []string) error {
	if len(coords) == 0 || len(coords) > MaxDim {
		return fmt.Errorf("%w: need 1 to %d coordinates, got %d", dynamo.ErrInvalidCoordinates, MaxDim, len(coords))
	}
	seen := make(map[string]bool, len(coords))
	for _, c := range coords {
		if !expr.IsIdentifier(c) || expr.IsFunction(c) {
			return fmt.Errorf("%w: %q is not a usable coordinate name", dynamo.ErrInvalidCoordinates, c)
		}
		if seen[c] {
			return fmt.Errorf("%w: duplicate coordinate %q", dynamo.ErrInvalidCoordinates, c)
		}
		seen[c] = true
	}
	return nil
}

func (s *System) Dim() int { return len(s.coords) }

// Derive evaluates every component at x. It allocates its own slot buffer
// so concurrent calls never share state.
func (s *System) Derive(x dynamo.State, _ float64) dynamo.State {
	slots := make([]float64, len(s.template))
	copy(slots, s.template)
	copy(slots, x[:len(s.coords)])

	dx := make(dynamo.State, len(s.eqns))
	for i, eq := range s.eqns {
		dx[i] = eq.eval.EvalSlots(slots)
	}
	return dx
}

// Component evaluates only the i-th component at x.
func (s *System) Component(i int, x dynamo.State) float64 {
	slots := make([]float64, len(s.template))
	copy(slots, s.template)
	copy(slots, x[:len(s.coords)])
	return s.eqns[i].eval.EvalSlots(slots)
}

func (s *System) Coords() []string { return append([]string(nil), s.coords...) }

func (s *System) Exprs() []string {
	out := make([]string, len(s.eqns))
	for i, eq := range s.eqns {
		out[i] = eq.Expr()
	}
	return out
}

func (s *System) Params() ParameterSet { return s.params.Clone() }

func (s *System) Equation(i int) *DifferentialEquation { return s.eqns[i] }

// WithParams builds a new system with the same coordinates and equations
// but different parameters.
func (s *System) WithParams(params map[string]any) (*System, error) {
	return New(s.coords, s.Exprs(), params)
}

func (s *System) String() string {
	parts := make([]string, len(s.eqns))
	for i, eq := range s.eqns {
		parts[i] = eq.String()
	}
	return strings.Join(parts, ", ")
}

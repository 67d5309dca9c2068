package analysis

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/phaseplane/internal/dynamo"
)

// Kind classifies an equilibrium by the eigenvalues of its Jacobian.
type Kind int

const (
	Degenerate Kind = iota
	Saddle
	StableNode
	UnstableNode
	StableFocus
	UnstableFocus
	Center
	// Stable and Unstable apply to one-dimensional systems.
	Stable
	Unstable
)

func (k Kind) String() string {
	switch k {
	case Degenerate:
		return "degenerate"
	case Saddle:
		return "saddle"
	case StableNode:
		return "stable node"
	case UnstableNode:
		return "unstable node"
	case StableFocus:
		return "stable focus"
	case UnstableFocus:
		return "unstable focus"
	case Center:
		return "center"
	case Stable:
		return "stable"
	case Unstable:
		return "unstable"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(text []byte) error {
	for c := Degenerate; c <= Unstable; c++ {
		if c.String() == string(text) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("analysis: unknown kind %q", text)
}

// IsStable reports whether small perturbations decay.
func (k Kind) IsStable() bool {
	return k == StableNode || k == StableFocus || k == Stable
}

type FixedPoint struct {
	State       dynamo.State `json:"state"`
	Jacobian    [][]float64  `json:"jacobian"`
	Eigenvalues []complex128 `json:"-"`
	Kind        Kind         `json:"kind"`
}

// Options tunes the equilibrium search. Zero fields take defaults.
type Options struct {
	// Seeds is the number of Newton starting points per axis.
	Seeds   int
	MaxIter int
	Tol     float64
}

func (o Options) withDefaults(dim int) Options {
	if o.Seeds <= 0 {
		o.Seeds = 16
		if dim == 1 {
			o.Seeds = 64
		}
	}
	if o.MaxIter <= 0 {
		o.MaxIter = 50
	}
	if o.Tol <= 0 {
		o.Tol = 1e-10
	}
	return o
}

// FixedPoints finds equilibria of sys inside window by Newton iteration
// from a lattice of seeds, then classifies each one. For one-dimensional
// systems the search runs along window axis 1, the coordinate axis.
func FixedPoints(sys dynamo.System, window dynamo.Window, opts Options) ([]FixedPoint, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	dim := sys.Dim()
	if dim != 1 && dim != 2 {
		return nil, fmt.Errorf("%w: cannot analyze a %d-dimensional field", dynamo.ErrDimensionMismatch, dim)
	}
	opts = opts.withDefaults(dim)

	var seeds []dynamo.State
	if dim == 1 {
		ys := floats.Span(make([]float64, opts.Seeds), window[1].Min, window[1].Max)
		for _, y := range ys {
			seeds = append(seeds, dynamo.State{y})
		}
	} else {
		xs := floats.Span(make([]float64, opts.Seeds), window[0].Min, window[0].Max)
		ys := floats.Span(make([]float64, opts.Seeds), window[1].Min, window[1].Max)
		for _, y := range ys {
			for _, x := range xs {
				seeds = append(seeds, dynamo.State{x, y})
			}
		}
	}

	inside := func(s dynamo.State) bool {
		if dim == 1 {
			return window[1].Contains(s[0])
		}
		return window.Contains([2]float64{s[0], s[1]})
	}

	diag := math.Hypot(window[0].Span(), window[1].Span())
	var found []FixedPoint
	for _, seed := range seeds {
		root, ok := newton(sys, seed, opts)
		if !ok || !inside(root) {
			continue
		}
		if duplicate(found, root, 1e-6*diag) {
			continue
		}
		found = append(found, classify(sys, root))
	}

	sort.Slice(found, func(i, j int) bool {
		a, b := found[i].State, found[j].State
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
	return found, nil
}

func newton(sys dynamo.System, x dynamo.State, opts Options) (dynamo.State, bool) {
	n := len(x)
	x = x.Clone()
	for iter := 0; iter < opts.MaxIter; iter++ {
		f := sys.Derive(x, 0)
		if !f.IsValid() {
			return nil, false
		}
		if f.Norm() < opts.Tol {
			return x, true
		}

		J := jacobian(sys, x)
		var delta mat.VecDense
		if err := delta.SolveVec(J, mat.NewVecDense(n, f.Clone())); err != nil {
			return nil, false
		}

		step := 0.0
		for i := 0; i < n; i++ {
			x[i] -= delta.AtVec(i)
			step = math.Max(step, math.Abs(delta.AtVec(i)))
		}
		if !x.IsValid() {
			return nil, false
		}
		if step < 1e-14*(1+x.Norm()) {
			break
		}
	}
	f := sys.Derive(x, 0)
	return x, f.IsValid() && f.Norm() < math.Sqrt(opts.Tol)
}

// jacobian approximates dF/dx by central differences.
func jacobian(sys dynamo.System, x dynamo.State) *mat.Dense {
	n := len(x)
	J := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		h := 1e-6 * math.Max(1, math.Abs(x[j]))
		xp, xm := x.Clone(), x.Clone()
		xp[j] += h
		xm[j] -= h
		fp, fm := sys.Derive(xp, 0), sys.Derive(xm, 0)
		for i := 0; i < n; i++ {
			J.Set(i, j, (fp[i]-fm[i])/(2*h))
		}
	}
	return J
}

func duplicate(found []FixedPoint, x dynamo.State, tol float64) bool {
	for _, fp := range found {
		if fp.State.Sub(x).Norm() < tol {
			return true
		}
	}
	return false
}

func classify(sys dynamo.System, x dynamo.State) FixedPoint {
	J := jacobian(sys, x)
	n := len(x)

	fp := FixedPoint{State: x, Jacobian: make([][]float64, n)}
	for i := 0; i < n; i++ {
		fp.Jacobian[i] = mat.Row(nil, i, J)
	}

	var eig mat.Eigen
	if !eig.Factorize(J, mat.EigenNone) {
		fp.Kind = Degenerate
		return fp
	}
	fp.Eigenvalues = eig.Values(nil)
	fp.Kind = kindOf(fp.Eigenvalues, mat.Norm(J, 1))
	return fp
}

// kindOf classifies from eigenvalues; scale sets the tolerance below
// which a real or imaginary part counts as zero.
func kindOf(ev []complex128, scale float64) Kind {
	eps := 1e-6 * math.Max(1, scale)

	if len(ev) == 1 {
		switch re := real(ev[0]); {
		case re < -eps:
			return Stable
		case re > eps:
			return Unstable
		}
		return Degenerate
	}

	l1, l2 := ev[0], ev[1]
	if math.Abs(imag(l1)) > eps {
		switch re := real(l1); {
		case math.Abs(re) <= eps:
			return Center
		case re < 0:
			return StableFocus
		}
		return UnstableFocus
	}

	r1, r2 := real(l1), real(l2)
	switch {
	case math.Abs(r1) <= eps || math.Abs(r2) <= eps:
		return Degenerate
	case r1*r2 < 0:
		return Saddle
	case r1 < 0:
		return StableNode
	}
	return UnstableNode
}

// EigenString formats an eigenvalue compactly for tables.
func EigenString(v complex128) string {
	if math.Abs(imag(v)) < 1e-12 {
		return fmt.Sprintf("%.4g", real(v))
	}
	return fmt.Sprintf("%.4g%+.4gi", real(v), imag(v))
}

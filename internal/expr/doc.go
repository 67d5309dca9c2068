// Package expr compiles algebraic equation text into evaluable functions.
//
// Expressions are infix strings over + - * / ^ (or **), parentheses, a
// fixed function vocabulary (sin, cos, exp, log, sqrt, ...), the constant
// pi, and caller-declared symbols. Adjacent factors multiply implicitly:
//
//	ev, err := expr.Compile("ax - y + b(x^2-y^2) + axy", []string{"x", "y", "a", "b"})
//	v := ev.EvalSlots([]float64{1, 2, 3, 4})
//
// A run of letters with no operator is split greedily into the longest
// declared symbols, left to right, backtracking when a long match leaves
// an unsplittable tail. With x, y and a declared, "axy" compiles exactly
// like "a*x*y".
//
// User text is never executed: [Compile] builds a syntax tree over the
// closed node set and lowers it to a tree of closures bound to slot
// indices, so evaluation does no map lookups or string work.
package expr

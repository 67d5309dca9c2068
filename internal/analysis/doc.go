// Package analysis locates and classifies equilibria of planar and scalar
// vector fields.
//
// [FixedPoints] runs Newton's method from a lattice of seeds across the
// axes window, merges converged roots, and classifies each one from the
// eigenvalues of a central-difference Jacobian:
//
//	fps, err := analysis.FixedPoints(sys, window, analysis.Options{})
//	for _, fp := range fps {
//	    fmt.Println(fp.State, fp.Kind)
//	}
//
// Planar equilibria are saddles, nodes, foci or centers; scalar ones are
// stable or unstable. Zero eigenvalues make a point degenerate.
package analysis

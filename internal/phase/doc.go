// Package phase holds the phase-space model: one system, one axes window,
// and the artifacts derived from them (direction field, seeded
// trajectories, nullclines, equilibria).
//
// A Model moves between three states:
//
//	Uninitialized -> Ready            New succeeded
//	Ready         -> Stale            UpdateSystem or ApplyConfig accepted
//	Stale         -> Ready            derived artifacts rebuilt
//
// Rejected updates never leave Ready. Trajectories can only be added while
// the model is Ready.
package phase

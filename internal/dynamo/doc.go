// Package dynamo provides the shared data model for phase-plane analysis.
//
// The package defines the types every other package exchanges:
//
//   - [State]: vector of phase-coordinate values
//   - [System]: interface for vector fields (dX/dt = F(X, t))
//   - [Window]: rectangular display domain, one [Interval] per axis
//   - [TimeBounds]: forward and reverse integration limits
//   - [Trajectory]: time-ordered samples produced by one integration
//
// # Errors
//
// Configuration failures wrap one of the sentinel errors ([ErrSyntax],
// [ErrUnknownSymbol], [ErrParameterType], [ErrParameterValidity],
// [ErrLimitType], [ErrLimitMagnitude], ...) and can be inspected with
// errors.Is:
//
//	if errors.Is(err, dynamo.ErrParameterType) {
//	    // highlight the parameter field
//	}
//
// Evaluation domain errors are not returned. A derivative that divides by
// zero or takes the log of a negative number yields NaN or Inf, which
// [State.IsValid] detects.
package dynamo

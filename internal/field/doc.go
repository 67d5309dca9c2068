// Package field samples a vector field on a regular lattice for quiver
// style display.
package field

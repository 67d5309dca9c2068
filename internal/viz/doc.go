// Package viz renders phase portraits in the terminal.
//
//   - [Canvas]: Braille-based pixel canvas, 2x4 dots per cell
//   - [Render]: layered portrait of a phase snapshot (field, nullclines,
//     trajectories, equilibria), colored per layer with lipgloss
//   - [Explorer]: Bubble Tea program for seeding trajectories interactively
//
// # Key Bindings
//
//	Arrows/HJKL - Move the cursor (shift for larger steps)
//	Enter       - Seed a trajectory at the cursor
//	U / C       - Remove the last trajectory / clear all
//	N / F       - Toggle nullclines / equilibria
//	Tab, + / -  - Select and scale a parameter
//	z / Z       - Zoom in / out around the cursor
//	S           - Save a bundle to the store
//	T           - Cycle color themes
package viz

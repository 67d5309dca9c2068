// Package export writes phase portraits out of the process: a JSON bundle,
// CSV tables and an SVG rendering, plus a directory store that keeps all
// three per bundle.
package export

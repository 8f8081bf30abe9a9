// Package viz is the terminal front end: a Bubble Tea program that runs sorting
// algorithms and shows the array as a colored grid.
//
// The grid is drawn by a render.GridRenderer into a [TermSurface]. The program's frame
// tick drives a render.PulseClock, so an algorithm advances at most one rendered frame per
// tick.
//
// # Key Bindings
//
//	Space/C - Cancel the running algorithm
//	R       - Reshuffle and restart
//	N/P     - Next/previous preset
//	T       - Cycle color themes
//	?       - Show help overlay
//	Q       - Quit
package viz

// Package viz renders rollouts in the terminal: a braille-canvas live
// view driven by bubbletea plus static trajectory and phase charts for
// the CLI.
//
// Live view key bindings:
//
//	space    pause / resume
//	r        reset state, time and parameters
//	tab      select the next tunable parameter
//	up/down  tune the selected parameter by 5%
//	?        toggle the help overlay
//	q        quit
package viz

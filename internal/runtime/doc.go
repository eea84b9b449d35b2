// Package runtime implements the per-session state machine.
//
// The machine owns the current state and sequences the effects of a move:
// the leave script of the old state, the swap, and the enter script of the new
// state. Transition scripts may redirect a move by returning a next state override.
package runtime

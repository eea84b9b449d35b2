/*
Package vars implements the typed, ordered variable set of a session.

A Var is a tagged variant (int, double, bool or string) with optional constraints:
a [min, max] range for numbers and a maximum length for strings. The Manager keeps
vars in insertion order and assigns each one a SetIndex, which is the order used for
display and save games.
*/
package vars

/*
Package session maps opaque session ids to isolated bundles of runtime state.

Every session owns its own locale, vars, assets and state machine. Sessions are
created on first reference, pinged on every reference and disposed by a periodic
expiry sweep or on shutdown. A session that is still in use by a script run is
finalized only once the run releases it.
*/
package session

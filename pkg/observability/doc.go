/*
Package observability provides lifecycle hooks for monitoring the Fable engine.

Metrics turns engine events into Prometheus collectors, LogHooks writes them to a
structured logger, and Chain fans one event out to several hook sets.
*/
package observability

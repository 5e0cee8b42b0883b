/*
Package observability provides tools for monitoring sequence runs.

It builds lifecycle hooks that record Prometheus metrics or write debug logs,
and combines several hook sets into one.
*/
package observability

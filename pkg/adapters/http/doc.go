// Package http exposes registered pipelines over HTTP.
//
// Routes:
//
//	GET  /pipelines               list pipeline names
//	POST /pipelines/{name}/runs   start a run, body {"arg": ...}; ?wait=true blocks until it settles
//	GET  /runs/{id}               fetch a run record
//	GET  /metrics                 Prometheus exposition, when a gatherer is configured
package http

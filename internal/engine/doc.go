// Package engine is an HTTP client for the external query engine under test.
//
// The engine is a collaborator, not part of this repository: it exposes a
// REST surface for creating datasets and procedures and for running SQL
// queries that return table-shaped JSON. The client applies no retry and no
// timeout of its own; the injected http.Client and the caller's context own
// all transport policy. A non-success status from any endpoint is surfaced
// immediately as a *RequestError.
package engine

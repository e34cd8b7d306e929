// Package errors defines the failure taxonomy of the SPARQL protocol client.
// Every error is an *Error carrying a machine-readable Code plus the endpoint,
// HTTP method, status code and a body excerpt when they are known, so callers
// can tell a rejected credential from unparseable data from an unreachable
// network.
package errors

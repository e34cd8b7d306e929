// Package negotiation computes Accept headers for SPARQL protocol operations
// and resolves response Content-Types to internal format tags.
//
// Each operation Kind has a weighted default Accept list. A caller-supplied
// Accept header replaces the list entirely. On the response side, media type
// parameters are ignored, a missing Content-Type falls back to the preferred
// type that was requested, and the generic application/json and
// application/xml types are read as SPARQL results for Select and Ask.
package negotiation

// Package endpoint holds the per-destination override registry.
//
// An override can rewrite the parameters and headers of a request, swap in
// a different transport, or replace the authentication used for matching
// endpoints. Keys ending in "/" are prefixes; any other key matches one
// endpoint URL exactly. Lookup prefers an exact key, then the longest
// matching prefix.
//
// The registry is copy-on-write: lookups read an immutable snapshot without
// locking and never observe a partial update.
package endpoint

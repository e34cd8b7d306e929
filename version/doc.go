// Package version reports the sparqlkit build version. Values are set at
// link time:
//
//	go build -ldflags "-X github.com/kbukum/sparqlkit/version.Version=1.2.0"
//
// Unset fields fall back to the module build info.
package version

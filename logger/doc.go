// Package logger provides structured logging for sparqlkit using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers with the protocol client's standard fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("httpclient")
//	log.Warn("draining unconsumed body", logger.Fields(logger.FieldEndpoint, url))
package logger

// Package validation validates sparqlkit configuration and request values.
//
// Struct tag validation uses go-playground/validator with the extra tag
// "absurl" (absolute http or https URL). Programmatic checks collect field
// errors and report them as a single INVALID_REQUEST error.
//
//	type Target struct {
//	    Endpoint string `validate:"required,absurl"`
//	}
//	err := validation.Validate(target)
package validation

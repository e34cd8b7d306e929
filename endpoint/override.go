package endpoint

import (
	"net/http"
	"sort"

	"github.com/kbukum/sparqlkit/httpclient"
)

// Modifier rewrites the parameters and headers of a request. It runs after
// every other parameter and header has been set, so it has the final say.
type Modifier func(params *httpclient.Params, headers *httpclient.Headers)

// Override is what a registry key maps to. Zero fields leave the request
// unchanged.
type Override struct {
	// Modifier edits parameters and headers.
	Modifier Modifier
	// Transport replaces the client transport for matching endpoints.
	Transport http.RoundTripper
	// Auth replaces the client authentication for matching endpoints.
	Auth *httpclient.AuthConfig
}

// Apply runs the modifier, if any.
func (o Override) Apply(params *httpclient.Params, headers *httpclient.Headers) {
	if o.Modifier != nil {
		o.Modifier(params, headers)
	}
}

// IsZero reports whether the override changes nothing.
func (o Override) IsZero() bool {
	return o.Modifier == nil && o.Transport == nil && o.Auth == nil
}

// SetHeaders returns a Modifier that sets each header, in key order.
func SetHeaders(headers map[string]string) Modifier {
	keys := sortedKeys(headers)
	return func(_ *httpclient.Params, h *httpclient.Headers) {
		for _, k := range keys {
			h.Set(k, headers[k])
		}
	}
}

// SetParams returns a Modifier that sets each parameter, replacing any
// existing values. New parameters are appended in key order, so the
// encoded query string is stable.
func SetParams(params map[string]string) Modifier {
	keys := sortedKeys(params)
	return func(p *httpclient.Params, _ *httpclient.Headers) {
		for _, k := range keys {
			p.Set(k, params[k])
		}
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Chain combines modifiers, applied in order.
func Chain(mods ...Modifier) Modifier {
	return func(p *httpclient.Params, h *httpclient.Headers) {
		for _, m := range mods {
			if m != nil {
				m(p, h)
			}
		}
	}
}

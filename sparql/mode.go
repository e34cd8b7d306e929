package sparql

import (
	"strings"

	"github.com/kbukum/sparqlkit/httpclient"
	"github.com/kbukum/sparqlkit/negotiation"
)

// SendMode selects how parameters travel to the endpoint.
type SendMode string

const (
	// GetWithLimit sends GET while the full URL fits the length limit and
	// falls back to a form POST otherwise. It is the default.
	GetWithLimit SendMode = "get-with-limit"
	// GetAlways puts every parameter in the URL.
	GetAlways SendMode = "get"
	// PostForm sends every parameter as an urlencoded form body.
	PostForm SendMode = "post-form"
	// PostBody sends the query or update text as the raw body and the other
	// parameters in the URL.
	PostBody SendMode = "post-body"
)

// DefaultMaxGetLength is the URL length up to which GetWithLimit uses GET.
const DefaultMaxGetLength = 2048

// Valid reports whether m is a known mode. The empty mode is valid and
// means GetWithLimit.
func (m SendMode) Valid() bool {
	switch m {
	case "", GetWithLimit, GetAlways, PostForm, PostBody:
		return true
	}
	return false
}

func (m SendMode) normalize() SendMode {
	if m == "" {
		return GetWithLimit
	}
	return m
}

// Dispatch is the method, URL and body chosen for one request.
type Dispatch struct {
	Method string
	URL    string
	// Body is empty for GET.
	Body string
	// ContentType describes Body; empty when there is none.
	ContentType string
}

// SelectMode decides how a query or update request is sent. payloadKey names
// the parameter holding the query or update text. Update kinds are never
// sent with GET. A limit of zero or less means DefaultMaxGetLength.
func SelectMode(kind Kind, baseURL string, params *httpclient.Params, payloadKey string, mode SendMode, limit int) Dispatch {
	if limit <= 0 {
		limit = DefaultMaxGetLength
	}
	mode = mode.normalize()
	if kind == Update && (mode == GetAlways || mode == GetWithLimit) {
		mode = PostForm
	}
	if params == nil || params.Len() == 0 {
		if kind == Update {
			return Dispatch{Method: "POST", URL: baseURL, ContentType: negotiation.MediaForm}
		}
		return Dispatch{Method: "GET", URL: baseURL}
	}

	switch mode {
	case PostBody:
		if payload := params.Values(payloadKey); len(payload) == 1 {
			return Dispatch{
				Method:      "POST",
				URL:         withQuery(baseURL, params.Without(payloadKey).Encode()),
				Body:        payload[0],
				ContentType: bodyContentType(kind),
			}
		}
		return formPost(baseURL, params)
	case PostForm:
		return formPost(baseURL, params)
	case GetAlways:
		return Dispatch{Method: "GET", URL: withQuery(baseURL, params.Encode())}
	default:
		qs := params.Encode()
		if len(baseURL)+1+len(qs) <= limit {
			return Dispatch{Method: "GET", URL: withQuery(baseURL, qs)}
		}
		return formPost(baseURL, params)
	}
}

func formPost(baseURL string, params *httpclient.Params) Dispatch {
	return Dispatch{
		Method:      "POST",
		URL:         baseURL,
		Body:        params.Encode(),
		ContentType: negotiation.MediaForm,
	}
}

func bodyContentType(kind Kind) string {
	if kind == Update {
		return negotiation.MediaSPARQLUpdate
	}
	return negotiation.MediaSPARQLQuery
}

// withQuery appends qs to base, joining with '&' when base already carries a
// query string.
func withQuery(base, qs string) string {
	if qs == "" {
		return base
	}
	if strings.Contains(base, "?") {
		if strings.HasSuffix(base, "?") || strings.HasSuffix(base, "&") {
			return base + qs
		}
		return base + "&" + qs
	}
	return base + "?" + qs
}

// Package httpclient is the transport layer of the SPARQL protocol client.
//
// It provides the building blocks every protocol operation goes through:
//
//   - Params and Headers: the ordered parameter multimap and the
//     case-insensitive header set assembled per request
//   - Adapter: sends a Request over net/http with auth, TLS, optional
//     HTTP/2, a circuit breaker and a rate limiter, and never retries
//   - Classify: maps a status code to an Outcome, draining or capturing the
//     body on every path that does not return it
//   - Body: the open response stream, decoded transparently, released
//     exactly once
//
// # Basic Usage
//
//	a, err := httpclient.New(httpclient.Config{
//	    Timeout: 30 * time.Second,
//	    Auth:    httpclient.BearerAuth("my-token"),
//	})
//
//	resp, err := a.Do(ctx, httpclient.Request{
//	    Method:  http.MethodGet,
//	    URL:     "https://example.org/sparql?query=ASK%7B%7D",
//	    Headers: httpclient.NewHeaders().Set("Accept", "application/sparql-results+json"),
//	})
//	if err != nil {
//	    return err
//	}
//	defer resp.Body.Close()
package httpclient

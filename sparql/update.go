package sparql

import (
	"context"
	"io"

	"github.com/kbukum/sparqlkit/httpclient"
)

// Update runs a SPARQL Update request. Updates are always sent with POST: a
// GET mode falls back to a form body.
func (c *Client) Update(ctx context.Context, endpointURL, update string, opts ...Option) error {
	cl, err := c.newCall(Update, endpointURL, newRequestConfig(opts))
	if err != nil {
		return err
	}
	req := c.protocolRequest(cl, ParamUpdate, update)
	resp, err := c.send(ctx, cl, req)
	if err != nil {
		return err
	}
	return discard(resp.Body)
}

// discard reads a bounded tail of a response the client does not decode and
// closes it.
func discard(body *httpclient.Body) error {
	_, _ = io.CopyN(io.Discard, body, trailingLimit)
	return body.Close()
}

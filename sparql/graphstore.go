package sparql

import (
	"bytes"
	"context"
	"net/http"

	"github.com/piprate/json-gold/ld"

	"github.com/kbukum/sparqlkit/errors"
	"github.com/kbukum/sparqlkit/httpclient"
	"github.com/kbukum/sparqlkit/negotiation"
	"github.com/kbukum/sparqlkit/rdfio"
)

// GraphGet fetches the target graph. A 204 response or an empty body yields
// an empty graph. Use DatasetGet for the whole dataset.
func (c *Client) GraphGet(ctx context.Context, endpointURL string, target Target, opts ...Option) (*ld.RDFDataset, error) {
	if err := checkGraphTarget(GraphGet, target); err != nil {
		return nil, err
	}
	return c.fetch(ctx, GraphGet, endpointURL, target, opts)
}

// GraphPost adds the triples of graph to the target graph.
func (c *Client) GraphPost(ctx context.Context, endpointURL string, target Target, graph *ld.RDFDataset, opts ...Option) error {
	if err := checkGraphTarget(GraphPost, target); err != nil {
		return err
	}
	return c.store(ctx, GraphPost, http.MethodPost, endpointURL, target, graph, opts)
}

// GraphPut replaces the target graph with graph.
func (c *Client) GraphPut(ctx context.Context, endpointURL string, target Target, graph *ld.RDFDataset, opts ...Option) error {
	if err := checkGraphTarget(GraphPut, target); err != nil {
		return err
	}
	return c.store(ctx, GraphPut, http.MethodPut, endpointURL, target, graph, opts)
}

// GraphDelete removes the target graph. Targeting the default graph clears it.
func (c *Client) GraphDelete(ctx context.Context, endpointURL string, target Target, opts ...Option) error {
	if err := checkGraphTarget(GraphDelete, target); err != nil {
		return err
	}
	cl, err := c.gspCall(GraphDelete, endpointURL, opts)
	if err != nil {
		return err
	}
	req := cl.gspRequest(c, http.MethodDelete, target, nil, "")
	resp, err := c.send(ctx, cl, req)
	if err != nil {
		return err
	}
	return discard(resp.Body)
}

// DatasetGet fetches the whole dataset.
func (c *Client) DatasetGet(ctx context.Context, endpointURL string, opts ...Option) (*ld.RDFDataset, error) {
	return c.fetch(ctx, DatasetGet, endpointURL, Dataset(), opts)
}

// DatasetPost adds the quads of ds to the dataset.
func (c *Client) DatasetPost(ctx context.Context, endpointURL string, ds *ld.RDFDataset, opts ...Option) error {
	return c.store(ctx, DatasetPost, http.MethodPost, endpointURL, Dataset(), ds, opts)
}

// DatasetPut replaces the dataset with ds.
func (c *Client) DatasetPut(ctx context.Context, endpointURL string, ds *ld.RDFDataset, opts ...Option) error {
	return c.store(ctx, DatasetPut, http.MethodPut, endpointURL, Dataset(), ds, opts)
}

// checkGraphTarget rejects targets that do not name one graph. The whole
// dataset is only reachable through the Dataset operations.
func checkGraphTarget(kind Kind, target Target) error {
	if target.IsGraph() {
		return nil
	}
	return errors.InvalidRequest("sparql: " + kind.String() + " needs the default graph or a named graph").
		WithDetail("target", target.String())
}

func (c *Client) gspCall(kind Kind, endpointURL string, opts []Option) (*call, error) {
	rc := newRequestConfig(opts)
	rc.Mode = ""
	cl, err := c.newCall(kind, endpointURL, rc)
	if err != nil {
		return nil, err
	}
	cl.mode = ""
	for _, kv := range rc.Params {
		cl.params.Add(kv[0], kv[1])
	}
	return cl, nil
}

// gspRequest builds a Graph Store request. Override parameters follow the
// target selector in the URL.
func (cl *call) gspRequest(c *Client, method string, target Target, body []byte, contentType string) httpclient.Request {
	cl.applyOverride(c.registry)
	d := Dispatch{
		Method:      method,
		URL:         withQuery(target.URL(cl.endpointURL), cl.params.Encode()),
		Body:        string(body),
		ContentType: contentType,
	}
	return cl.request(d)
}

func (c *Client) fetch(ctx context.Context, kind Kind, endpointURL string, target Target, opts []Option) (*ld.RDFDataset, error) {
	cl, err := c.gspCall(kind, endpointURL, opts)
	if err != nil {
		return nil, err
	}
	req := cl.gspRequest(c, http.MethodGet, target, nil, "")
	resp, err := c.send(ctx, cl, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNoContent {
		_ = resp.Body.Close()
		return rdfio.NewGraph(), nil
	}
	format, err := c.resolve(cl, req, resp)
	if err != nil {
		return nil, err
	}
	ds, err := c.graphs.Decode(format, resp.Body)
	if err != nil {
		_ = resp.Body.Close()
		return nil, withRequest(err, req, resp)
	}
	return ds, discard(resp.Body)
}

func (c *Client) store(ctx context.Context, kind Kind, method, endpointURL string, target Target, ds *ld.RDFDataset, opts []Option) error {
	cl, err := c.gspCall(kind, endpointURL, opts)
	if err != nil {
		return err
	}
	format := cl.rc.Format
	if format == negotiation.FormatNone {
		format = c.config.GraphFormat
		if kind == DatasetPost || kind == DatasetPut {
			format = c.config.DatasetFormat
		}
	}
	if !c.graphs.CanEncode(kind, format) {
		return errors.InvalidRequest("sparql: no " + kind.String() + " encoder for " + string(format)).
			WithRequest(method, endpointURL)
	}
	var buf bytes.Buffer
	if err := c.graphs.Encode(format, &buf, ds); err != nil {
		if e, ok := errors.AsError(err); ok {
			return e.WithRequest(method, endpointURL)
		}
		return err
	}
	req := cl.gspRequest(c, method, target, buf.Bytes(), format.MediaType())
	resp, err := c.send(ctx, cl, req)
	if err != nil {
		return err
	}
	return discard(resp.Body)
}

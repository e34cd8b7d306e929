package sparql

import (
	"context"
	"io"
	"sync"

	"github.com/piprate/json-gold/ld"

	"github.com/kbukum/sparqlkit/errors"
	"github.com/kbukum/sparqlkit/httpclient"
	"github.com/kbukum/sparqlkit/negotiation"
	"github.com/kbukum/sparqlkit/results"
)

// State is the lifecycle state of an Execution.
type State int

const (
	StateIdle State = iota
	StateDispatched
	StateAwaitingStatus
	StateSuccess
	StateFailed
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDispatched:
		return "dispatched"
	case StateAwaitingStatus:
		return "awaiting-status"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// trailingLimit bounds the bytes read past a decoded document before the
// body is closed.
const trailingLimit = 64 << 10

// Execution is one query against one endpoint. It is dispatched by the first
// of Select, Ask, Construct, Describe or JSON and can run only once. Close
// is idempotent and may be called from another goroutine: an in-flight
// request is cancelled, and a read blocked on the response stream is
// aborted before the stream is released.
type Execution struct {
	client      *Client
	endpointURL string
	query       string
	rc          *RequestConfig

	mu     sync.Mutex
	state  State
	id     string
	method string
	cancel context.CancelFunc
	body   *httpclient.Body
}

// Query prepares a query execution. Nothing is sent until one of its
// result methods is called.
func (c *Client) Query(endpointURL, query string, opts ...Option) *Execution {
	return &Execution{
		client:      c,
		endpointURL: endpointURL,
		query:       query,
		rc:          newRequestConfig(opts),
	}
}

// State returns the current state.
func (e *Execution) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// ID returns the request ID sent as X-Request-ID, empty before dispatch.
func (e *Execution) ID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.id
}

// Close releases the response body and cancels an in-flight request.
func (e *Execution) Close() error {
	e.mu.Lock()
	if e.state == StateClosed {
		e.mu.Unlock()
		return nil
	}
	e.state = StateClosed
	body, cancel := e.body, e.cancel
	e.body, e.cancel = nil, nil
	e.mu.Unlock()

	var err error
	if body != nil {
		err = body.Close()
	}
	if cancel != nil {
		cancel()
	}
	return err
}

// Select runs a SELECT query. Rows stream from the response; closing them
// closes the execution.
func (e *Execution) Select(ctx context.Context) (*results.Rows, error) {
	body, format, err := e.execute(ctx, Select)
	if err != nil {
		return nil, err
	}
	rows, err := results.DecodeRows(format, execBody{body: body, exec: e})
	if err != nil {
		return nil, e.fail(err)
	}
	return rows, nil
}

// Ask runs an ASK query.
func (e *Execution) Ask(ctx context.Context) (bool, error) {
	body, format, err := e.execute(ctx, Ask)
	if err != nil {
		return false, err
	}
	v, err := results.DecodeBoolean(format, body)
	if err != nil {
		return false, e.fail(err)
	}
	return v, e.finish(body)
}

// Construct runs a CONSTRUCT query.
func (e *Execution) Construct(ctx context.Context) (*ld.RDFDataset, error) {
	return e.graph(ctx, Construct)
}

// Describe runs a DESCRIBE query.
func (e *Execution) Describe(ctx context.Context) (*ld.RDFDataset, error) {
	return e.graph(ctx, Describe)
}

func (e *Execution) graph(ctx context.Context, kind Kind) (*ld.RDFDataset, error) {
	body, format, err := e.execute(ctx, kind)
	if err != nil {
		return nil, err
	}
	ds, err := e.client.graphs.Decode(format, body)
	if err != nil {
		return nil, e.fail(err)
	}
	return ds, e.finish(body)
}

// JSON runs a query answered with plain JSON, such as a JSON query
// extension. A top-level array is returned as is; any other value is
// wrapped in a one-element slice.
func (e *Execution) JSON(ctx context.Context) ([]any, error) {
	body, format, err := e.execute(ctx, JSONQuery)
	if err != nil {
		return nil, err
	}
	if format != negotiation.FormatJSON {
		return nil, e.fail(errors.Negotiation(JSONQuery.String(), format.MediaType()))
	}
	v, err := results.DecodeJSON(body)
	if err != nil {
		return nil, e.fail(err)
	}
	return v, e.finish(body)
}

// execute moves the execution from Idle to Success or Failed. On success it
// returns the open body and the negotiated format.
func (e *Execution) execute(ctx context.Context, kind Kind) (*httpclient.Body, negotiation.Format, error) {
	c := e.client

	e.mu.Lock()
	switch e.state {
	case StateIdle:
	case StateClosed:
		e.mu.Unlock()
		return nil, negotiation.FormatNone, errors.ClosedExecution(kind.String())
	default:
		e.mu.Unlock()
		return nil, negotiation.FormatNone, errors.InvalidRequest("sparql: execution already dispatched")
	}
	cl, err := c.newCall(kind, e.endpointURL, e.rc)
	if err != nil {
		e.state = StateFailed
		e.mu.Unlock()
		return nil, negotiation.FormatNone, err
	}
	req := c.protocolRequest(cl, ParamQuery, e.query)
	ctx, cancel := context.WithCancel(ctx)
	e.id = cl.id
	e.method = req.Method
	e.cancel = cancel
	e.state = StateDispatched
	e.mu.Unlock()

	resp, err := c.send(ctx, cl, req)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateClosed {
		if resp != nil {
			_ = resp.Body.Close()
		}
		cancel()
		return nil, negotiation.FormatNone, errors.ClosedExecution(kind.String())
	}
	if err != nil {
		e.failed()
		return nil, negotiation.FormatNone, err
	}
	e.state = StateAwaitingStatus

	format, err := c.resolve(cl, req, resp)
	if err != nil {
		e.failed()
		return nil, negotiation.FormatNone, err
	}
	e.state = StateSuccess
	e.body = resp.Body
	return resp.Body, format, nil
}

// failed moves to Failed and releases the request context. e.mu is held.
func (e *Execution) failed() {
	e.state = StateFailed
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// fail closes the execution after a decode error.
func (e *Execution) fail(err error) error {
	_ = e.Close()
	e.mu.Lock()
	defer e.mu.Unlock()
	if ae, ok := errors.AsError(err); ok {
		ae.WithRequest(e.method, stripQuery(e.endpointURL))
	}
	return err
}

// finish reads a bounded tail past the decoded document, so a complete body
// is released as consumed, then closes the execution.
func (e *Execution) finish(body io.Reader) error {
	_, _ = io.CopyN(io.Discard, body, trailingLimit)
	return e.Close()
}

// execBody hands the response stream to a results iterator; closing it
// closes the execution.
type execBody struct {
	body *httpclient.Body
	exec *Execution
}

func (b execBody) Read(p []byte) (int, error) { return b.body.Read(p) }
func (b execBody) Close() error               { return b.exec.Close() }

// Select runs a SELECT query in one call. Close the returned rows.
func (c *Client) Select(ctx context.Context, endpointURL, query string, opts ...Option) (*results.Rows, error) {
	return c.Query(endpointURL, query, opts...).Select(ctx)
}

// Ask runs an ASK query in one call.
func (c *Client) Ask(ctx context.Context, endpointURL, query string, opts ...Option) (bool, error) {
	return c.Query(endpointURL, query, opts...).Ask(ctx)
}

// Construct runs a CONSTRUCT query in one call.
func (c *Client) Construct(ctx context.Context, endpointURL, query string, opts ...Option) (*ld.RDFDataset, error) {
	return c.Query(endpointURL, query, opts...).Construct(ctx)
}

// Describe runs a DESCRIBE query in one call.
func (c *Client) Describe(ctx context.Context, endpointURL, query string, opts ...Option) (*ld.RDFDataset, error) {
	return c.Query(endpointURL, query, opts...).Describe(ctx)
}

// JSON runs a JSON query in one call.
func (c *Client) JSON(ctx context.Context, endpointURL, query string, opts ...Option) ([]any, error) {
	return c.Query(endpointURL, query, opts...).JSON(ctx)
}

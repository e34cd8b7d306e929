package sparql

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/sparqlkit/endpoint"
	"github.com/kbukum/sparqlkit/errors"
	"github.com/kbukum/sparqlkit/httpclient"
	"github.com/kbukum/sparqlkit/logger"
	"github.com/kbukum/sparqlkit/negotiation"
	"github.com/kbukum/sparqlkit/observability"
	"github.com/kbukum/sparqlkit/rdfio"
	"github.com/kbukum/sparqlkit/resilience"
	"github.com/kbukum/sparqlkit/results"
	"github.com/kbukum/sparqlkit/validation"
)

// Client runs protocol operations against SPARQL endpoints. It is immutable
// after New and safe for concurrent use.
type Client struct {
	config     Config
	adapter    *httpclient.Adapter
	registry   *endpoint.Registry
	negotiator *negotiation.Negotiator
	graphs     *rdfio.Registry
	metrics    *observability.Metrics
	log        *logger.Logger
}

type clientOptions struct {
	graphs   *rdfio.Registry
	registry *endpoint.Registry
	metrics  *observability.Metrics
	log      *logger.Logger
	http     []httpclient.Option
}

// ClientOption configures New.
type ClientOption func(*clientOptions)

// WithCodecs sets the graph codec registry. Defaults to rdfio.Default().
func WithCodecs(r *rdfio.Registry) ClientOption {
	return func(o *clientOptions) { o.graphs = r }
}

// WithEndpointRegistry sets the override registry. Defaults to
// endpoint.Default().
func WithEndpointRegistry(r *endpoint.Registry) ClientOption {
	return func(o *clientOptions) { o.registry = r }
}

// WithMetrics records operation metrics. Without it only spans are emitted.
func WithMetrics(m *observability.Metrics) ClientOption {
	return func(o *clientOptions) { o.metrics = m }
}

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) ClientOption {
	return func(o *clientOptions) { o.log = l }
}

// WithHTTPOptions passes options to the underlying adapter.
func WithHTTPOptions(opts ...httpclient.Option) ClientOption {
	return func(o *clientOptions) { o.http = append(o.http, opts...) }
}

// New creates a client from cfg.
func New(cfg Config, opts ...ClientOption) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := clientOptions{
		graphs:   rdfio.Default(),
		registry: endpoint.Default(),
		log:      logger.Get("sparql"),
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{
		config:   cfg,
		registry: o.registry,
		graphs:   o.graphs,
		metrics:  o.metrics,
		log:      o.log,
	}
	c.negotiator = negotiation.New(negotiation.DecoderFunc(c.canDecode))

	httpOpts := []httpclient.Option{httpclient.WithAdapterLogger(o.log.WithComponent("httpclient"))}
	if o.metrics != nil {
		m := o.metrics
		httpOpts = append(httpOpts, httpclient.WithDrainObserver(func(n int64) {
			m.RecordDrain(context.Background(), n)
		}))
	}
	adapter, err := httpclient.New(cfg.HTTP, append(httpOpts, o.http...)...)
	if err != nil {
		return nil, err
	}
	c.adapter = adapter
	return c, nil
}

func (c *Client) canDecode(kind negotiation.Kind, format negotiation.Format) bool {
	return results.CanDecode(kind, format) || c.graphs.CanDecode(kind, format)
}

// WithRegistry returns a client sharing c's transport that looks up endpoint
// overrides in r.
func (c *Client) WithRegistry(r *endpoint.Registry) *Client {
	cp := *c
	cp.registry = r
	return &cp
}

// Config returns a copy of the client configuration.
func (c *Client) Config() Config {
	return c.config
}

// CircuitState reports the state of the client's circuit breaker.
func (c *Client) CircuitState() resilience.State {
	return c.adapter.CircuitState()
}

// Close releases idle connections.
func (c *Client) Close(ctx context.Context) error {
	return c.adapter.Close(ctx)
}

var (
	defaultOnce   sync.Once
	defaultMu     sync.RWMutex
	defaultClient *Client
)

// DefaultClient returns the process-wide client, created with a zero Config
// on first use.
func DefaultClient() *Client {
	defaultOnce.Do(func() {
		defaultMu.Lock()
		defer defaultMu.Unlock()
		if defaultClient != nil {
			return
		}
		c, err := New(Config{})
		if err != nil {
			panic("sparql: default client: " + err.Error())
		}
		defaultClient = c
	})
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultClient
}

// SetDefaultClient replaces the process-wide client.
func SetDefaultClient(c *Client) {
	defaultOnce.Do(func() {})
	defaultMu.Lock()
	defaultClient = c
	defaultMu.Unlock()
}

// call is one request under assembly.
type call struct {
	kind        Kind
	endpointURL string
	rc          *RequestConfig
	id          string
	mode        SendMode
	params      *httpclient.Params
	headers     *httpclient.Headers
	override    endpoint.Override
	overridden  bool
}

// newCall starts a request from fresh copies of the client defaults. The
// Accept header, per-call headers and the request ID are set here; the
// endpoint override runs afterwards in applyOverride.
func (c *Client) newCall(kind Kind, endpointURL string, rc *RequestConfig) (*call, error) {
	if !validation.IsAbsoluteURL(endpointURL) {
		return nil, errors.InvalidRequest("sparql: endpoint must be an absolute http(s) URL").
			WithDetail("endpoint", endpointURL)
	}
	if !rc.Mode.Valid() {
		return nil, errors.InvalidRequest("sparql: unknown send mode " + string(rc.Mode))
	}

	cl := &call{
		kind:        kind,
		endpointURL: endpointURL,
		rc:          rc,
		mode:        rc.Mode,
		params:      httpclient.NewParams(),
		headers:     httpclient.HeadersFrom(c.config.Headers),
	}
	if cl.mode == "" {
		cl.mode = c.config.Mode
	}
	cl.headers.Set("Accept", c.negotiator.Accept(kind, rc.Accept))
	for name, value := range rc.Headers {
		cl.headers.Set(name, value)
	}
	cl.headers.SetDefault(HeaderRequestID, uuid.NewString())
	cl.id = cl.headers.Get(HeaderRequestID)
	return cl, nil
}

// addGraphParams adds the dataset parameters of kind and the extra
// parameters of the call.
func (cl *call) addGraphParams() {
	if cl.kind.IsQuery() {
		for _, g := range cl.rc.DefaultGraphURIs {
			cl.params.Add(ParamDefaultGraphURI, g)
		}
		for _, g := range cl.rc.NamedGraphURIs {
			cl.params.Add(ParamNamedGraphURI, g)
		}
	}
	if cl.kind == Update {
		for _, g := range cl.rc.UsingGraphURIs {
			cl.params.Add(ParamUsingGraphURI, g)
		}
		for _, g := range cl.rc.UsingNamedGraphURIs {
			cl.params.Add(ParamUsingNamedGraphURI, g)
		}
	}
	for _, kv := range cl.rc.Params {
		cl.params.Add(kv[0], kv[1])
	}
}

// applyOverride runs the registered override for the endpoint. It is the
// last change made to parameters and headers.
func (cl *call) applyOverride(r *endpoint.Registry) {
	if r == nil {
		return
	}
	o, ok := r.Lookup(cl.endpointURL)
	if !ok {
		return
	}
	o.Apply(cl.params, cl.headers)
	cl.override = o
	cl.overridden = true
}

// request freezes the headers and builds the transport request for d.
func (cl *call) request(d Dispatch) httpclient.Request {
	if d.ContentType != "" {
		cl.headers.SetDefault("Content-Type", d.ContentType)
	}
	cl.headers.Freeze()
	req := httpclient.Request{
		Method:        d.Method,
		URL:           d.URL,
		Headers:       cl.headers,
		ContentLength: -1,
		Auth:          cl.override.Auth,
		Transport:     cl.override.Transport,
		Timeout:       cl.rc.Timeout,
	}
	if d.Body != "" {
		req.Body = strings.NewReader(d.Body)
		req.ContentLength = int64(len(d.Body))
	}
	return req
}

// protocolRequest assembles a Query or Update protocol request carrying
// payload under payloadKey.
func (c *Client) protocolRequest(cl *call, payloadKey, payload string) httpclient.Request {
	cl.params.Add(payloadKey, payload)
	cl.addGraphParams()
	cl.applyOverride(c.registry)

	limit := cl.rc.MaxGetLength
	if limit <= 0 {
		limit = c.config.MaxGetLength
	}
	d := SelectMode(cl.kind, cl.endpointURL, cl.params, payloadKey, cl.mode, limit)
	return cl.request(d)
}

// send dispatches req once and records the span, metrics and logs of the
// exchange. On success the caller owns the response body.
func (c *Client) send(ctx context.Context, cl *call, req httpclient.Request) (*httpclient.Response, error) {
	endpointURL := stripQuery(req.URL)
	op := observability.NewOperation(cl.kind.String(), endpointURL, req.Method, string(cl.mode), cl.id, c.metrics)
	ctx = op.Start(ctx)

	fields := logger.Fields(
		logger.FieldKind, cl.kind.String(),
		logger.FieldMethod, req.Method,
		logger.FieldEndpoint, endpointURL,
		logger.FieldExecutionID, cl.id,
	)
	if cl.overridden {
		fields[logger.FieldOverride] = true
	}
	c.log.Debug("dispatching request", fields)

	resp, err := c.adapter.Do(ctx, req)
	if err != nil {
		op.End(ctx, 0, "", err)
		c.log.WithError(err).Debug("request failed", logger.MergeWithDuration(fields, op.Duration()))
		return nil, err
	}
	op.End(ctx, resp.StatusCode, resp.ContentType, nil)
	fields[logger.FieldStatus] = resp.StatusCode
	fields[logger.FieldContentType] = resp.ContentType
	c.log.Debug("response received", logger.MergeWithDuration(fields, op.Duration()))
	return resp, nil
}

// resolve maps the response Content-Type to a decodable format. On failure
// the body is released and the error carries the request context.
func (c *Client) resolve(cl *call, req httpclient.Request, resp *httpclient.Response) (negotiation.Format, error) {
	format, err := c.negotiator.Resolve(cl.kind, resp.ContentType, cl.headers.Get("Accept"))
	if err != nil {
		_ = resp.Body.Close()
		return negotiation.FormatNone, withRequest(err, req, resp)
	}
	return format, nil
}

// withRequest attaches method, endpoint and response details to err.
func withRequest(err error, req httpclient.Request, resp *httpclient.Response) error {
	e, ok := errors.AsError(err)
	if !ok {
		e = errors.Decode("", err)
	}
	e.WithRequest(req.Method, stripQuery(req.URL))
	if resp != nil {
		if e.StatusCode == 0 {
			e.StatusCode = resp.StatusCode
		}
		if e.ContentType == "" {
			e.ContentType = resp.ContentType
		}
	}
	return e
}

func stripQuery(rawURL string) string {
	base, _, _ := strings.Cut(rawURL, "?")
	return base
}

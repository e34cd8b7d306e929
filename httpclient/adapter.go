package httpclient

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"

	"github.com/kbukum/sparqlkit/errors"
	"github.com/kbukum/sparqlkit/logger"
	"github.com/kbukum/sparqlkit/resilience"
)

// Adapter sends fully assembled protocol requests over net/http, classifies
// the status and hands back an open Body on success. It never retries.
type Adapter struct {
	httpClient *http.Client
	config     Config
	cb         *resilience.CircuitBreaker
	rl         *resilience.RateLimiter
	log        *logger.Logger
	onDrain    func(n int64)
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithTransport replaces the default transport, for instance with a test
// round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(a *Adapter) { a.httpClient.Transport = rt }
}

// WithAdapterLogger sets the logger used by the adapter and its bodies.
func WithAdapterLogger(l *logger.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.log = l
		}
	}
}

// WithDrainObserver registers fn to be told how many bytes each drained
// body discarded.
func WithDrainObserver(fn func(n int64)) Option {
	return func(a *Adapter) { a.onDrain = fn }
}

// New creates a new HTTP adapter with the given configuration.
func New(cfg Config, opts ...Option) (*Adapter, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport, err := newTransport(&cfg)
	if err != nil {
		return nil, err
	}

	a := &Adapter{
		httpClient: &http.Client{
			Transport:     transport,
			CheckRedirect: redirectPolicy(cfg.FollowRedirects, cfg.MaxRedirects),
		},
		config: cfg,
		log:    logger.Get("httpclient"),
	}

	if cfg.CircuitBreaker != nil {
		cbCfg := *cfg.CircuitBreaker
		if cbCfg.Name == "" {
			cbCfg.Name = cfg.Name
		}
		if cbCfg.IsFailure == nil {
			cbCfg.IsFailure = countsAgainstCircuit
		}
		a.cb = resilience.NewCircuitBreaker(cbCfg)
	}
	if cfg.RateLimiter != nil {
		a.rl = resilience.NewRateLimiter(*cfg.RateLimiter)
	}

	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// newTransport builds a dedicated transport so HTTP/2 can be configured
// without touching http.DefaultTransport.
func newTransport(cfg *Config) (*http.Transport, error) {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout, KeepAlive: 30 * time.Second}
	t := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     cfg.HTTP2 == nil,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ExpectContinueTimeout: time.Second,
		// Content-Encoding is decoded by Wrap, never by the transport.
		DisableCompression: true,
	}

	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, err
	}
	if tlsCfg != nil {
		t.TLSClientConfig = tlsCfg
	}

	if cfg.HTTP2 != nil {
		t2, err := http2.ConfigureTransports(t)
		if err != nil {
			return nil, errors.InvalidRequest("httpclient: configure http2").WithCause(err)
		}
		t2.ReadIdleTimeout = cfg.HTTP2.ReadIdleTimeout
		t2.PingTimeout = cfg.HTTP2.PingTimeout
	}
	return t, nil
}

// redirectPolicy stops at the first redirect unless following is enabled;
// the last 3xx response is then returned to the classifier.
func redirectPolicy(follow bool, max int) func(*http.Request, []*http.Request) error {
	return func(_ *http.Request, via []*http.Request) error {
		if !follow || len(via) > max {
			return http.ErrUseLastResponse
		}
		return nil
	}
}

// countsAgainstCircuit trips the breaker on transport failures and 5xx only.
func countsAgainstCircuit(err error) bool {
	return errors.IsTransport(err) || errors.IsServer(err)
}

// Do sends req once. Rate limiting and the circuit breaker run first when
// configured. Every error carries the request method and endpoint. On
// success the caller owns Response.Body.
func (a *Adapter) Do(ctx context.Context, req Request) (*Response, error) {
	if a.rl != nil {
		if err := a.rl.Wait(ctx); err != nil {
			return nil, annotate(err, req)
		}
	}

	var resp *Response
	send := func() error {
		var err error
		resp, err = a.roundTrip(ctx, req)
		return err
	}

	var err error
	if a.cb != nil {
		err = a.cb.Execute(send)
	} else {
		err = send()
	}
	if err != nil {
		return nil, annotate(err, req)
	}
	return resp, nil
}

func (a *Adapter) roundTrip(ctx context.Context, req Request) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = a.config.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)

	httpReq, err := a.buildRequest(ctx, req)
	if err != nil {
		cancel()
		return nil, err
	}

	raw, err := a.clientFor(req).Do(httpReq)
	if err != nil {
		cancel()
		return nil, dispatchError(ctx, err)
	}

	outcome := ClassifyResponse(raw, a.config.DrainLimit)
	if err := outcome.Err(); err != nil {
		cancel()
		if e, ok := errors.AsError(err); ok {
			e.ContentType = raw.Header.Get("Content-Type")
		}
		a.log.Debug("request failed", logger.Fields(
			logger.FieldMethod, req.Method,
			logger.FieldEndpoint, endpointOf(req.URL),
			logger.FieldStatus, raw.StatusCode,
		))
		return nil, err
	}

	body, err := Wrap(raw,
		WithDrainLimit(a.config.DrainLimit),
		WithLogger(a.log.WithFields(logger.Fields(logger.FieldEndpoint, endpointOf(req.URL)))),
		WithContext(ctx),
		WithCancel(cancel),
		WithDrainHook(a.onDrain),
	)
	if err != nil {
		return nil, err
	}
	return &Response{
		StatusCode:  raw.StatusCode,
		Header:      raw.Header,
		ContentType: raw.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// buildRequest constructs the *http.Request. Authentication is applied
// before the request headers so that headers set by endpoint overrides win.
func (a *Adapter) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, req.Body)
	if err != nil {
		return nil, errors.InvalidRequest("create request").WithCause(err)
	}
	if req.Body != nil && req.ContentLength >= 0 {
		httpReq.ContentLength = req.ContentLength
	}

	auth := a.config.Auth
	if req.Auth != nil {
		auth = req.Auth
	}
	if err := auth.apply(httpReq); err != nil {
		return nil, err
	}

	req.Headers.Apply(httpReq.Header)
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", a.config.UserAgent)
	}
	if httpReq.Header.Get("Accept-Encoding") == "" {
		httpReq.Header.Set("Accept-Encoding", DefaultAcceptEncoding)
	}
	return httpReq, nil
}

func (a *Adapter) clientFor(req Request) *http.Client {
	if req.Transport == nil {
		return a.httpClient
	}
	return &http.Client{
		Transport:     req.Transport,
		CheckRedirect: a.httpClient.CheckRedirect,
	}
}

// dispatchError maps a failed round trip to TIMEOUT or TRANSPORT_ERROR.
func dispatchError(ctx context.Context, err error) error {
	if e, ok := errors.AsError(err); ok {
		return e
	}
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) || isTimeout(err) {
		return errors.Timeout(err)
	}
	return errors.Transport(err)
}

// annotate attaches method and endpoint to err.
func annotate(err error, req Request) error {
	e, ok := errors.AsError(err)
	if !ok {
		e = errors.Transport(err)
	}
	return e.WithRequest(req.Method, endpointOf(req.URL))
}

// endpointOf strips the query string, which may hold a long query text or
// an API key.
func endpointOf(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// Name returns the configured client name.
func (a *Adapter) Name() string {
	return a.config.Name
}

// IsAvailable reports false while the circuit breaker is open.
func (a *Adapter) IsAvailable(_ context.Context) bool {
	if a.cb != nil {
		return a.cb.State() != resilience.StateOpen
	}
	return true
}

// CircuitState returns the breaker state, or StateClosed without a breaker.
func (a *Adapter) CircuitState() resilience.State {
	if a.cb == nil {
		return resilience.StateClosed
	}
	return a.cb.State()
}

// Close releases idle connections.
func (a *Adapter) Close(_ context.Context) error {
	a.httpClient.CloseIdleConnections()
	return nil
}

// Unwrap returns the underlying *http.Client for advanced use cases.
func (a *Adapter) Unwrap() *http.Client {
	return a.httpClient
}

// GetConfig returns the adapter's configuration.
func (a *Adapter) GetConfig() Config {
	return a.config
}

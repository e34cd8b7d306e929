package sparqltest

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/piprate/json-gold/ld"

	"github.com/kbukum/sparqlkit/logger"
	"github.com/kbukum/sparqlkit/negotiation"
	"github.com/kbukum/sparqlkit/rdfio"
)

const (
	queryPath = "/sparql"
	dataPath  = "/data"
)

// Request is a recorded inbound request.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	RawQuery    string
	Header      http.Header
	ContentType string
	Body        string
	// Form holds the urlencoded body, if any.
	Form url.Values
}

// Forced replaces the normal response.
type Forced struct {
	Status      int
	Body        string
	ContentType string
}

// Server is a fake SPARQL Query, Update and Graph Store endpoint.
type Server struct {
	*httptest.Server

	engine *gin.Engine
	store  *store
	log    *logger.Logger

	mu          sync.Mutex
	requests    []Request
	forced      *Forced
	contentType string
	ctForced    bool
	encoding    string
	token       string
}

// TB is the subset of testing.TB the server needs.
type TB interface {
	Helper()
	Cleanup(func())
}

// Option configures a Server.
type Option func(*Server)

// WithDataset seeds the store.
func WithDataset(ds *ld.RDFDataset) Option {
	return func(s *Server) { rdfio.Merge(s.store.ds, ds) }
}

// WithStatus makes every response use status and body.
func WithStatus(status int, body string) Option {
	return func(s *Server) { s.forced = &Forced{Status: status, Body: body} }
}

// WithContentType declares ct on every successful response regardless of
// the payload written. An empty value suppresses the header.
func WithContentType(ct string) Option {
	return func(s *Server) {
		s.contentType = ct
		s.ctForced = true
	}
}

// WithContentEncoding compresses responses with gzip, deflate or zstd, or
// only declares any other coding.
func WithContentEncoding(enc string) Option {
	return func(s *Server) { s.encoding = enc }
}

// WithBearer rejects requests without "Authorization: Bearer <token>" with 401.
func WithBearer(token string) Option {
	return func(s *Server) { s.token = token }
}

// New starts a server and closes it when the test ends.
func New(t TB, opts ...Option) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		engine: gin.New(),
		store:  newStore(),
		log:    logger.Get("sparqltest"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine.Use(s.recovery(), s.record(), s.requestLogger(), s.guard())
	s.engine.GET(queryPath, s.handleQuery)
	s.engine.POST(queryPath, s.handleProtocol)
	for _, m := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete} {
		s.engine.Handle(m, dataPath, s.handleGraphStore)
	}

	s.Server = httptest.NewServer(s.engine)
	t.Cleanup(s.Close)
	return s
}

// QueryURL is the Query and Update endpoint.
func (s *Server) QueryURL() string { return s.URL + queryPath }

// GraphStoreURL is the Graph Store endpoint.
func (s *Server) GraphStoreURL() string { return s.URL + dataPath }

// Requests returns the recorded requests in arrival order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastRequest returns the most recent request.
func (s *Server) LastRequest() (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}, false
	}
	return s.requests[len(s.requests)-1], true
}

// Force replaces every following response; nil restores normal handling.
func (s *Server) Force(f *Forced) {
	s.mu.Lock()
	s.forced = f
	s.mu.Unlock()
}

// Dataset returns a copy of the stored dataset.
func (s *Server) Dataset() *ld.RDFDataset {
	return s.store.snapshot()
}

// Len counts the stored quads.
func (s *Server) Len() int {
	return rdfio.Len(s.store.snapshot())
}

// recovery answers 500 after a handler panic.
func (s *Server) recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				s.log.Error("panic recovered", logger.Fields(
					"error", fmt.Sprintf("%v", err),
					"stack", string(debug.Stack()),
					"path", c.Request.URL.Path,
				))
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// record buffers the body and stores the request.
func (s *Server) record() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		r := Request{
			Method:      c.Request.Method,
			Path:        c.Request.URL.Path,
			Query:       c.Request.URL.Query(),
			RawQuery:    c.Request.URL.RawQuery,
			Header:      c.Request.Header.Clone(),
			ContentType: c.ContentType(),
			Body:        string(body),
		}
		if r.ContentType == negotiation.MediaForm {
			r.Form, _ = url.ParseQuery(r.Body)
		}
		if id := c.GetHeader("X-Request-ID"); id != "" {
			c.Header("X-Request-ID", id)
		}

		s.mu.Lock()
		s.requests = append(s.requests, r)
		s.mu.Unlock()
		c.Set("request", r)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := logger.Fields(
			logger.FieldMethod, c.Request.Method,
			"path", c.Request.URL.Path,
			logger.FieldStatus, c.Writer.Status(),
		)
		s.log.Debug("request completed", logger.MergeWithDuration(fields, time.Since(start)))
	}
}

// guard applies the auth check and forced responses.
func (s *Server) guard() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		forced, token := s.forced, s.token
		s.mu.Unlock()

		if token != "" && c.GetHeader("Authorization") != "Bearer "+token {
			c.Header("WWW-Authenticate", `Bearer realm="sparql"`)
			c.Data(http.StatusUnauthorized, "text/plain", []byte("authentication required"))
			c.Abort()
			return
		}
		if forced != nil {
			ct := forced.ContentType
			if ct == "" {
				ct = "text/plain"
			}
			c.Data(forced.Status, ct, []byte(forced.Body))
			c.Abort()
			return
		}
		c.Next()
	}
}

func requestOf(c *gin.Context) Request {
	v, _ := c.Get("request")
	r, _ := v.(Request)
	return r
}

// respond writes payload, applying the Content-Type and Content-Encoding
// hooks.
func (s *Server) respond(c *gin.Context, status int, contentType string, payload []byte) {
	if s.ctForced {
		contentType = s.contentType
	}
	if s.encoding != "" {
		encoded, err := encode(s.encoding, payload)
		if err != nil {
			c.Data(http.StatusInternalServerError, "text/plain", []byte(err.Error()))
			return
		}
		c.Header("Content-Encoding", s.encoding)
		payload = encoded
	}
	if contentType == "" {
		c.Status(status)
		c.Writer.Header()["Content-Type"] = nil
		_, _ = c.Writer.Write(payload)
		return
	}
	c.Data(status, contentType, payload)
}

func (s *Server) badRequest(c *gin.Context, err error) {
	c.Data(http.StatusBadRequest, "text/plain; charset=utf-8", []byte(err.Error()))
}

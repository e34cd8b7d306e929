package httpclient

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/kbukum/sparqlkit/errors"
	"github.com/kbukum/sparqlkit/logger"
)

// DefaultDrainLimit bounds how many bytes Close discards from an unread body
// before closing it.
const DefaultDrainLimit int64 = 1 << 20

// State is the lifecycle state of a Body.
type State int

const (
	StateOpen State = iota
	StateConsumed
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateConsumed:
		return "consumed"
	default:
		return "closed"
	}
}

// Body owns one open response stream. Reading to end of stream moves it to
// StateConsumed and releases the connection; Close on an open body drains a
// bounded remainder first. Both states are terminal and further Close calls
// are no-ops. A Body is not safe for concurrent use.
type Body struct {
	raw        io.ReadCloser
	reader     *lazyReader
	state      State
	drainLimit int64
	log        *logger.Logger
	cancel     context.CancelFunc
	onDrain    func(n int64)
	mu         sync.Mutex
	abort      context.CancelFunc
	ctx        context.Context
}

// BodyOption configures Wrap.
type BodyOption func(*Body)

// WithDrainLimit sets the drain bound used by Close.
func WithDrainLimit(n int64) BodyOption {
	return func(b *Body) {
		if n > 0 {
			b.drainLimit = n
		}
	}
}

// WithLogger sets the logger used for drain warnings.
func WithLogger(l *logger.Logger) BodyOption {
	return func(b *Body) {
		if l != nil {
			b.log = l
		}
	}
}

// WithCancel registers a function run when the body is released, typically
// the cancel of a per-request context.
func WithCancel(cancel context.CancelFunc) BodyOption {
	return func(b *Body) { b.cancel, b.abort = cancel, cancel }
}

// WithContext ties the body to the request context. A read failing after
// its deadline passed is reported as a timeout.
func WithContext(ctx context.Context) BodyOption {
	return func(b *Body) { b.ctx = ctx }
}

// WithDrainHook registers a function called with the number of bytes
// discarded whenever an unread body is drained.
func WithDrainHook(fn func(n int64)) BodyOption {
	return func(b *Body) { b.onDrain = fn }
}

// Wrap takes ownership of resp.Body. Content-Encoding is decoded
// transparently; an unknown coding fails here, after the body has been
// drained and closed.
func Wrap(resp *http.Response, opts ...BodyOption) (*Body, error) {
	b := &Body{
		raw:        resp.Body,
		drainLimit: DefaultDrainLimit,
		log:        logger.Get("httpclient"),
	}
	if b.raw == nil {
		b.raw = http.NoBody
	}
	for _, opt := range opts {
		opt(b)
	}
	codings, err := parseEncodings(resp.Header.Get("Content-Encoding"))
	if err != nil {
		b.release(true)
		b.state = StateClosed
		return nil, err
	}
	b.reader = &lazyReader{src: b.raw, codings: codings}
	return b, nil
}

// Read reads decoded bytes. At end of stream the body becomes consumed and
// the connection is released. A read failure closes the body and is
// reported as a transport error. Reads after release return io.EOF.
func (b *Body) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateOpen {
		return 0, io.EOF
	}
	n, err := b.reader.Read(p)
	switch {
	case err == nil:
		return n, nil
	case err == io.EOF:
		b.state = StateConsumed
		b.release(true)
		return n, io.EOF
	default:
		err = b.readError(err)
		b.state = StateClosed
		b.release(false)
		return n, err
	}
}

// Close releases the body. An open body is drained up to the drain limit and
// a warning is logged, since draining may block. Closing a consumed or
// closed body does nothing.
func (b *Body) Close() error {
	if !b.mu.TryLock() {
		// A Read holds the body; abort the request so it returns.
		if b.abort != nil {
			b.abort()
		}
		b.mu.Lock()
	}
	defer b.mu.Unlock()
	if b.state != StateOpen {
		return nil
	}
	b.state = StateClosed
	n, _ := io.CopyN(io.Discard, b.raw, b.drainLimit)
	b.log.Warn("response body closed before end of stream, drained remainder",
		logger.Fields(logger.FieldDrained, n))
	if b.onDrain != nil {
		b.onDrain(n)
	}
	b.release(false)
	return nil
}

// Consumed reports whether the body was read to end of stream.
func (b *Body) Consumed() bool { return b.State() == StateConsumed }

// State returns the lifecycle state.
func (b *Body) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// release frees the decoders and the raw stream. b.mu is held. With drain set, unread raw
// bytes are discarded first; a decoder may stop short of the trailer.
func (b *Body) release(drain bool) {
	if b.reader != nil {
		b.reader.close()
	}
	if drain {
		_, _ = io.CopyN(io.Discard, b.raw, b.drainLimit)
	}
	_ = b.raw.Close()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

// readError maps a failure while reading a body to the error taxonomy.
func (b *Body) readError(err error) error {
	if _, ok := errors.AsError(err); ok {
		return err
	}
	if isTimeout(err) || (b.ctx != nil && stderrors.Is(b.ctx.Err(), context.DeadlineExceeded)) {
		return errors.Timeout(err)
	}
	return errors.Transport(err)
}

func isTimeout(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return stderrors.As(err, &ne) && ne.Timeout()
}

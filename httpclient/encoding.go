package httpclient

import (
	"bufio"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	"github.com/kbukum/sparqlkit/errors"
)

// Content codings understood by Wrap.
const (
	EncodingIdentity = "identity"
	EncodingGzip     = "gzip"
	EncodingXGzip    = "x-gzip"
	EncodingDeflate  = "deflate"
	EncodingZstd     = "zstd"
)

// DefaultAcceptEncoding is sent unless the caller sets Accept-Encoding.
const DefaultAcceptEncoding = "gzip, deflate"

// parseEncodings splits a Content-Encoding value into codings in the order
// they were applied, identity removed. An unknown coding is an error.
func parseEncodings(header string) ([]string, error) {
	var codings []string
	for _, tok := range strings.Split(header, ",") {
		enc := strings.ToLower(strings.TrimSpace(tok))
		switch enc {
		case "", EncodingIdentity:
			continue
		case EncodingGzip, EncodingXGzip, EncodingDeflate, EncodingZstd:
			codings = append(codings, enc)
		default:
			return nil, errors.UnsupportedEncoding(enc)
		}
	}
	return codings, nil
}

// decodeChain wraps r with decoders for codings, last applied first.
// The returned closer releases the decoders, not r.
func decodeChain(r io.Reader, codings []string) (io.Reader, func(), error) {
	var closers []func()
	release := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	for i := len(codings) - 1; i >= 0; i-- {
		next, closeFn, err := decoder(codings[i], r)
		if err != nil {
			release()
			return nil, nil, err
		}
		closers = append(closers, closeFn)
		r = next
	}
	return r, release, nil
}

func decoder(enc string, r io.Reader) (io.Reader, func(), error) {
	switch enc {
	case EncodingGzip, EncodingXGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() { _ = zr.Close() }, nil
	case EncodingDeflate:
		return deflateReader(r)
	case EncodingZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	default:
		return nil, nil, errors.UnsupportedEncoding(enc)
	}
}

// deflateReader accepts zlib-wrapped data as the coding requires, and raw
// DEFLATE as some servers send.
func deflateReader(r io.Reader) (io.Reader, func(), error) {
	br := bufio.NewReader(r)
	hdr, _ := br.Peek(2)
	if len(hdr) == 2 && isZlibHeader(hdr[0], hdr[1]) {
		zr, err := zlib.NewReader(br)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() { _ = zr.Close() }, nil
	}
	fr := flate.NewReader(br)
	return fr, func() { _ = fr.Close() }, nil
}

func isZlibHeader(cmf, flg byte) bool {
	return cmf&0x0f == 8 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}

// lazyReader defers decoder construction to the first Read, so an empty
// compressed body reads as empty instead of failing on a missing header.
type lazyReader struct {
	src     io.Reader
	codings []string
	r       io.Reader
	release func()
}

func (l *lazyReader) Read(p []byte) (int, error) {
	if l.r == nil {
		if len(l.codings) == 0 {
			l.r = l.src
		} else {
			r, release, err := decodeChain(l.src, l.codings)
			if err == io.EOF {
				return 0, io.EOF
			}
			if err != nil {
				return 0, errors.Decode(strings.Join(l.codings, ", "), err)
			}
			l.r, l.release = r, release
		}
	}
	return l.r.Read(p)
}

func (l *lazyReader) close() {
	if l.release != nil {
		l.release()
		l.release = nil
	}
}

// Package wire reads and writes the small subset of HTTP/1.1 the ping
// listener speaks: one read per connection, one response, then close.
package wire

import (
	"bytes"
	"errors"
	"io"
	"strings"
)

// BufferSize bounds a request. Anything past it is never read.
const BufferSize = 4096

var ErrEmptyRequest = errors.New("empty request")

type Request struct {
	Method  string
	Target  string
	Version string
}

// ReadRequest performs a single read of at most BufferSize bytes. A read that
// yields no bytes is reported as an error and the caller sends nothing back.
func ReadRequest(r io.Reader) (*Request, error) {
	buf := make([]byte, BufferSize)
	n, err := r.Read(buf)
	if n <= 0 {
		if err == nil || err == io.EOF {
			err = ErrEmptyRequest
		}
		return nil, err
	}
	return ParseRequest(buf[:n]), nil
}

// ParseRequest splits the request line on whitespace. Missing fields are left
// empty; headers and body are ignored.
func ParseRequest(raw []byte) *Request {
	line := raw
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		line = raw[:i]
	}
	fields := strings.Fields(string(line))

	req := &Request{}
	if len(fields) > 0 {
		req.Method = fields[0]
	}
	if len(fields) > 1 {
		req.Target = fields[1]
	}
	if len(fields) > 2 {
		req.Version = fields[2]
	}
	return req
}

// Path is the target without its query string.
func (r *Request) Path() string {
	if i := strings.IndexByte(r.Target, '?'); i >= 0 {
		return r.Target[:i]
	}
	return r.Target
}

// Query returns the raw, undecoded value of the first key=value pair named
// key. Pairs without '=' are skipped.
func (r *Request) Query(key string) (string, bool) {
	i := strings.IndexByte(r.Target, '?')
	if i < 0 {
		return "", false
	}
	query := r.Target[i+1:]

	for query != "" {
		var pair string
		pair, query, _ = strings.Cut(query, "&")
		name, value, ok := strings.Cut(pair, "=")
		if ok && name == key {
			return value, true
		}
	}
	return "", false
}

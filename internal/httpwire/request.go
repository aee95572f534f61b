// Package httpwire implements the minimal HTTP/1.1 wire codec the gateway
// speaks: request-line and header parsing over partially buffered input, and
// deterministic response serialization.
//
// This is deliberately not net/http. The server owns the raw sockets, frames
// exactly one request per connection, and treats an absent Content-Length as
// "body ends when the peer closes the stream".
package httpwire

import (
	"bytes"
	"fmt"
	"strings"
)

// Header is a simple header map. Keys are stored as received; Get falls back
// to a case-insensitive scan so lookups like "content-length" still work.
type Header map[string]string

// Get returns the value for key, preferring an exact match.
func (h Header) Get(key string) string {
	if v, ok := h[key]; ok {
		return v
	}
	for k, v := range h {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// Request is one framed HTTP request. Immutable once built.
type Request struct {
	Method string
	Path   string
	Proto  string
	Header Header
	Body   []byte
}

var (
	crlfTerminator = []byte("\r\n\r\n")
	lfTerminator   = []byte("\n\n")
)

// FindHeaderEnd locates the blank line terminating the header block and
// returns the index just past it, or -1 if the block is still incomplete.
func FindHeaderEnd(buf []byte) int {
	crlf := bytes.Index(buf, crlfTerminator)
	lf := bytes.Index(buf, lfTerminator)
	switch {
	case crlf < 0 && lf < 0:
		return -1
	case crlf < 0:
		return lf + len(lfTerminator)
	case lf < 0 || crlf <= lf:
		return crlf + len(crlfTerminator)
	default:
		return lf + len(lfTerminator)
	}
}

// ParseRequestHead parses the request line and header block. head must be the
// bytes up to (and excluding) the blank line.
func ParseRequestHead(head []byte) (*Request, error) {
	lines := strings.Split(strings.ReplaceAll(string(head), "\r\n", "\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, fmt.Errorf("empty request head")
	}

	fields := strings.Fields(lines[0])
	if len(fields) < 2 {
		return nil, fmt.Errorf("malformed request line: %q", lines[0])
	}
	req := &Request{
		Method: fields[0],
		Path:   fields[1],
		Header: Header{},
	}
	if len(fields) >= 3 {
		req.Proto = fields[2]
	}

	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		req.Header[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return req, nil
}

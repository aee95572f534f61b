// Per-connection request framing.
package server

import (
	"fmt"
	"strconv"

	"github.com/applelocal/localgate/internal/httpwire"
)

// connState tracks one connection's framing progress.
type connState int

const (
	stateAwaitingHeaders connState = iota
	stateAwaitingBody
	stateComplete
	stateAborted
)

// framer assembles exactly one HTTP request from an incremental byte stream.
//
// Bytes are appended chunk by chunk. Once the blank line after the headers is
// seen, the request line and header block are parsed; the body is then
// governed by Content-Length when present. Without Content-Length, whatever
// trailing bytes have been buffered when the stream ends become the body —
// correct only for peers that close right after sending, which is exactly
// the one-request-per-connection model this server speaks.
type framer struct {
	state     connState
	buf       []byte
	head      *httpwire.Request
	bodyStart int
	// declared is the Content-Length value, or -1 when absent.
	declared int
}

func newFramer() *framer {
	return &framer{declared: -1}
}

// feed appends a chunk and returns the framed request once complete. A nil
// request with nil error means "keep reading".
func (f *framer) feed(chunk []byte) (*httpwire.Request, error) {
	switch f.state {
	case stateComplete, stateAborted:
		// One request per connection; surplus bytes are ignored.
		return nil, nil
	}

	f.buf = append(f.buf, chunk...)

	if f.state == stateAwaitingHeaders {
		end := httpwire.FindHeaderEnd(f.buf)
		if end < 0 {
			return nil, nil
		}
		head, err := httpwire.ParseRequestHead(f.buf[:end])
		if err != nil {
			f.state = stateAborted
			return nil, err
		}
		f.head = head
		f.bodyStart = end
		if cl := head.Header.Get("Content-Length"); cl != "" {
			n, err := strconv.Atoi(cl)
			if err != nil || n < 0 {
				f.state = stateAborted
				return nil, fmt.Errorf("invalid Content-Length: %q", cl)
			}
			f.declared = n
		}
		f.state = stateAwaitingBody
	}

	if f.declared >= 0 && len(f.buf)-f.bodyStart >= f.declared {
		f.head.Body = f.buf[f.bodyStart : f.bodyStart+f.declared]
		f.state = stateComplete
		return f.head, nil
	}

	// Either more declared body is owed, or the body length is unknown until
	// end of stream.
	return nil, nil
}

// finish resolves the frame at end of stream. Only a request whose body was
// undeclared can complete here; anything else is a truncated message.
func (f *framer) finish() (*httpwire.Request, error) {
	switch f.state {
	case stateComplete:
		return f.head, nil
	case stateAwaitingBody:
		if f.declared < 0 {
			f.head.Body = f.buf[f.bodyStart:]
			f.state = stateComplete
			return f.head, nil
		}
		f.state = stateAborted
		return nil, fmt.Errorf("stream ended with %d of %d body bytes",
			len(f.buf)-f.bodyStart, f.declared)
	default:
		f.state = stateAborted
		return nil, fmt.Errorf("stream ended before headers were complete")
	}
}

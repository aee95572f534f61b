package httpwire

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Response is one HTTP response ready to be serialized.
type Response struct {
	Status int
	Header Header
	Body   []byte
}

// NewResponse builds an empty response with the given status.
func NewResponse(status int) *Response {
	return &Response{Status: status, Header: Header{}}
}

// Marshal serializes the response deterministically: status line, computed
// Content-Length, the remaining headers in sorted order, blank line, body.
func (r *Response) Marshal() []byte {
	var b strings.Builder

	text := http.StatusText(r.Status)
	if text == "" {
		text = "Status"
	}
	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", r.Status, text)
	fmt.Fprintf(&b, "Content-Length: %d\r\n", len(r.Body))

	keys := make([]string, 0, len(r.Header))
	for k := range r.Header {
		if strings.EqualFold(k, "Content-Length") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\r\n", k, r.Header[k])
	}

	b.WriteString("\r\n")
	b.Write(r.Body)
	return []byte(b.String())
}

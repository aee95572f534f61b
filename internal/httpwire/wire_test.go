package httpwire_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applelocal/localgate/internal/httpwire"
)

func TestFindHeaderEnd(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{"incomplete head", "GET / HTTP/1.1\r\nHost: x", -1},
		{"empty buffer", "", -1},
		{"crlf terminator", "GET / HTTP/1.1\r\n\r\n", 18},
		{"lf terminator", "GET / HTTP/1.1\n\n", 16},
		{"crlf with body", "GET / HTTP/1.1\r\n\r\nbody", 18},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, httpwire.FindHeaderEnd([]byte(tt.input)))
		})
	}
}

func TestParseRequestHead(t *testing.T) {
	head := "POST /v1/chat/completions HTTP/1.1\r\n" +
		"Content-Type: application/json\r\n" +
		"Content-Length: 17\r\n"

	req, err := httpwire.ParseRequestHead([]byte(head))
	require.NoError(t, err)

	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "/v1/chat/completions", req.Path)
	assert.Equal(t, "HTTP/1.1", req.Proto)
	assert.Equal(t, "application/json", req.Header["Content-Type"])
	assert.Equal(t, "17", req.Header["Content-Length"])
}

func TestParseRequestHead_TrimsHeaderValues(t *testing.T) {
	req, err := httpwire.ParseRequestHead([]byte("GET / HTTP/1.1\r\nHost:   example   \r\n"))
	require.NoError(t, err)
	assert.Equal(t, "example", req.Header["Host"])
}

func TestParseRequestHead_TwoTokenRequestLine(t *testing.T) {
	req, err := httpwire.ParseRequestHead([]byte("GET /\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/", req.Path)
	assert.Empty(t, req.Proto)
}

func TestParseRequestHead_Malformed(t *testing.T) {
	_, err := httpwire.ParseRequestHead([]byte("GARBAGE\r\n"))
	require.Error(t, err)

	_, err = httpwire.ParseRequestHead([]byte(""))
	require.Error(t, err)
}

func TestHeaderGet_CaseInsensitive(t *testing.T) {
	h := httpwire.Header{"Content-Length": "42"}
	assert.Equal(t, "42", h.Get("Content-Length"))
	assert.Equal(t, "42", h.Get("content-length"))
	assert.Equal(t, "", h.Get("Authorization"))
}

func TestResponseMarshal_Deterministic(t *testing.T) {
	resp := httpwire.NewResponse(200)
	resp.Header["Content-Type"] = "application/json"
	resp.Header["Access-Control-Allow-Origin"] = "*"
	resp.Body = []byte("{}")

	expected := "HTTP/1.1 200 OK\r\n" +
		"Content-Length: 2\r\n" +
		"Access-Control-Allow-Origin: *\r\n" +
		"Content-Type: application/json\r\n" +
		"\r\n" +
		"{}"
	assert.Equal(t, expected, string(resp.Marshal()))

	// A second serialization must be byte-identical.
	assert.Equal(t, expected, string(resp.Marshal()))
}

func TestResponseMarshal_EmptyBody(t *testing.T) {
	resp := httpwire.NewResponse(204)
	expected := "HTTP/1.1 204 No Content\r\nContent-Length: 0\r\n\r\n"
	assert.Equal(t, expected, string(resp.Marshal()))
}

func TestResponseMarshal_IgnoresCallerContentLength(t *testing.T) {
	resp := httpwire.NewResponse(200)
	resp.Header["Content-Length"] = "999"
	resp.Body = []byte("abc")
	assert.Contains(t, string(resp.Marshal()), "Content-Length: 3\r\n")
	assert.NotContains(t, string(resp.Marshal()), "999")
}

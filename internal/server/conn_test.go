package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFramer_CompleteRequestInOneChunk(t *testing.T) {
	raw := "POST /v1/chat/completions HTTP/1.1\r\n" +
		"Content-Type: application/json\r\n" +
		"Content-Length: 7\r\n" +
		"\r\n" +
		`{"a":1}`

	f := newFramer()
	req, err := f.feed([]byte(raw))
	require.NoError(t, err)
	require.NotNil(t, req)

	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "/v1/chat/completions", req.Path)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(req.Body))
}

func TestFramer_BodyArrivesAcrossChunks(t *testing.T) {
	f := newFramer()

	req, err := f.feed([]byte("POST /api/chat HTTP/1.1\r\nContent-Length: 10\r\n\r\n"))
	require.NoError(t, err)
	assert.Nil(t, req, "must keep reading until the declared body arrives")

	req, err = f.feed([]byte("01234"))
	require.NoError(t, err)
	assert.Nil(t, req)

	req, err = f.feed([]byte("56789"))
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, "0123456789", string(req.Body))
}

func TestFramer_HeadersSplitAcrossChunks(t *testing.T) {
	f := newFramer()

	req, err := f.feed([]byte("GET /v1/mod"))
	require.NoError(t, err)
	assert.Nil(t, req)

	req, err = f.feed([]byte("els HTTP/1.1\r\nHost: localhost\r\n\r"))
	require.NoError(t, err)
	assert.Nil(t, req)

	req, err = f.feed([]byte("\n"))
	require.NoError(t, err)
	require.Nil(t, req, "no Content-Length: body waits for end of stream")

	req, err = f.finish()
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/v1/models", req.Path)
	assert.Empty(t, req.Body)
}

func TestFramer_NoContentLengthTakesTrailingBytes(t *testing.T) {
	f := newFramer()

	req, err := f.feed([]byte("POST /api/chat HTTP/1.1\r\n\r\ntrailing body"))
	require.NoError(t, err)
	assert.Nil(t, req)

	req, err = f.finish()
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, "trailing body", string(req.Body))
}

func TestFramer_TruncatedBodyFailsAtEOF(t *testing.T) {
	f := newFramer()

	req, err := f.feed([]byte("POST /api/chat HTTP/1.1\r\nContent-Length: 100\r\n\r\nshort"))
	require.NoError(t, err)
	assert.Nil(t, req)

	_, err = f.finish()
	require.Error(t, err)
}

func TestFramer_EOFBeforeHeaders(t *testing.T) {
	f := newFramer()

	_, err := f.feed([]byte("POST /api/chat HTT"))
	require.NoError(t, err)

	_, err = f.finish()
	require.Error(t, err)
}

func TestFramer_MalformedRequestLine(t *testing.T) {
	f := newFramer()
	_, err := f.feed([]byte("NONSENSE\r\n\r\n"))
	require.Error(t, err)
	assert.Equal(t, stateAborted, f.state)
}

func TestFramer_InvalidContentLength(t *testing.T) {
	f := newFramer()
	_, err := f.feed([]byte("POST / HTTP/1.1\r\nContent-Length: banana\r\n\r\n"))
	require.Error(t, err)
}

func TestFramer_ZeroContentLength(t *testing.T) {
	f := newFramer()
	req, err := f.feed([]byte("POST / HTTP/1.1\r\nContent-Length: 0\r\n\r\n"))
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Empty(t, req.Body)
}

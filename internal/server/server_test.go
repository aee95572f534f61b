package server_test

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applelocal/localgate/internal/httpwire"
	"github.com/applelocal/localgate/internal/server"
)

// okHandler answers every request with 200 "ok".
type okHandler struct{}

func (okHandler) Handle(_ context.Context, _ *httpwire.Request) *httpwire.Response {
	resp := httpwire.NewResponse(200)
	resp.Header["Content-Type"] = "text/plain"
	resp.Body = []byte("ok")
	return resp
}

func startServer(t *testing.T) *server.Server {
	t.Helper()
	srv := server.New("127.0.0.1", 0, okHandler{})
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)
	return srv
}

func roundTrip(t *testing.T, addr net.Addr, raw string) string {
	t.Helper()
	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(raw))
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	resp, err := io.ReadAll(conn)
	require.NoError(t, err)
	return string(resp)
}

func TestServer_ServesOneRequestPerConnection(t *testing.T) {
	srv := startServer(t)

	resp := roundTrip(t, srv.Addr(), "GET / HTTP/1.1\r\nContent-Length: 0\r\n\r\n")
	assert.Contains(t, resp, "HTTP/1.1 200 OK")
	assert.Contains(t, resp, "ok")
}

func TestServer_TruncatedRequestGets400(t *testing.T) {
	srv := startServer(t)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	// Declared 100 bytes, send 5, half-close the write side.
	_, err = conn.Write([]byte("POST /api/chat HTTP/1.1\r\nContent-Length: 100\r\n\r\nshort"))
	require.NoError(t, err)
	require.NoError(t, conn.(*net.TCPConn).CloseWrite())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	resp, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Contains(t, string(resp), "HTTP/1.1 400 Bad Request")
	assert.Contains(t, string(resp), "Bad Request")
}

func TestServer_ReportsReadiness(t *testing.T) {
	srv := server.New("127.0.0.1", 0, okHandler{})
	require.NoError(t, srv.Start())
	defer srv.Stop()

	select {
	case ev := <-srv.Events():
		assert.Equal(t, server.StateReady, ev.State)
		assert.NotEmpty(t, ev.Addr)
	case <-time.After(time.Second):
		t.Fatal("no readiness event")
	}
}

func TestServer_BindErrorOnTakenPort(t *testing.T) {
	first := startServer(t)
	port := first.Addr().(*net.TCPAddr).Port

	second := server.New("127.0.0.1", port, okHandler{})
	err := second.Start()
	require.Error(t, err)

	var bindErr *server.BindError
	require.True(t, errors.As(err, &bindErr))
	assert.Equal(t, port, bindErr.Port)
}

func TestServer_StopIsIdempotent(t *testing.T) {
	srv := server.New("127.0.0.1", 0, okHandler{})
	require.NoError(t, srv.Start())

	srv.Stop()
	srv.Stop()
	assert.Zero(t, srv.ConnCount())
	assert.Nil(t, srv.Addr())

	// Stopping a never-started server must also be safe.
	server.New("127.0.0.1", 0, okHandler{}).Stop()
}

func TestServer_SetPortTakesEffectOnNextStart(t *testing.T) {
	srv := server.New("127.0.0.1", 1, okHandler{})
	srv.SetPort(0)
	require.NoError(t, srv.Start())
	defer srv.Stop()
	assert.NotNil(t, srv.Addr())
}

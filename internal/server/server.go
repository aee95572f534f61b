// Package server owns the raw TCP listener and the per-connection lifecycle.
//
// One accept loop; one goroutine per accepted connection; one request and one
// response per connection, then close. The tracked-connection set is the only
// shared mutable state and sits behind the server mutex so Stop can cancel
// in-flight connections instead of leaking sockets.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/applelocal/localgate/internal/config"
	"github.com/applelocal/localgate/internal/httpwire"
)

// Handler produces one response per framed request. Handle may block for
// arbitrary wall-clock time (generation calls); the context is cancelled when
// the server stops.
type Handler interface {
	Handle(ctx context.Context, req *httpwire.Request) *httpwire.Response
}

// BindError reports that the listen port could not be bound.
type BindError struct {
	Port int
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind port %d: %v", e.Port, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// State is the listener's externally observable state.
type State int

const (
	// StateReady means the listener is accepting connections.
	StateReady State = iota
	// StateFailed means binding failed; the listener is stopped.
	StateFailed
	// StateStopped means the listener was shut down.
	StateStopped
)

// Event reports a listener state change.
type Event struct {
	State State
	Addr  string
	Err   error
}

// Server is the listener/acceptor.
type Server struct {
	handler Handler

	mu       sync.Mutex
	host     string
	port     int
	listener net.Listener
	conns    map[net.Conn]struct{}
	cancel   context.CancelFunc

	events chan Event
}

// New builds a stopped server. Call Start to bind.
func New(host string, port int, handler Handler) *Server {
	return &Server{
		handler: handler,
		host:    host,
		port:    port,
		conns:   make(map[net.Conn]struct{}),
		events:  make(chan Event, 4),
	}
}

// Events reports readiness asynchronously. The channel is buffered and never
// blocks the server; callers that care about readiness should drain it.
func (s *Server) Events() <-chan Event { return s.events }

// SetPort changes the listen port. Takes effect on the next Start.
func (s *Server) SetPort(port int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.port = port
}

// Addr returns the bound address, or nil when stopped. Useful when the
// configured port is 0.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start binds the TCP listener and launches the accept loop. Returns a
// *BindError when the port is unavailable; readiness is also reported on the
// event channel.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return fmt.Errorf("server already started")
	}

	addr := net.JoinHostPort(s.host, fmt.Sprintf("%d", s.port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		bindErr := &BindError{Port: s.port, Err: err}
		s.emit(Event{State: StateFailed, Err: bindErr})
		return bindErr
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.listener = listener
	s.cancel = cancel

	log.Info().Str("addr", listener.Addr().String()).Msg("Listening")
	s.emit(Event{State: StateReady, Addr: listener.Addr().String()})

	go s.acceptLoop(ctx, listener)
	return nil
}

// Stop cancels the listener and forcibly closes all tracked connections.
// Idempotent.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.conns = make(map[net.Conn]struct{})
}

// ConnCount reports the number of tracked connections.
func (s *Server) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) acceptLoop(ctx context.Context, listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.emit(Event{State: StateStopped})
				return
			}
			log.Debug().Err(err).Msg("Accept failed")
			continue
		}
		s.track(conn)
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) release(conn net.Conn) {
	_ = conn.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

// handleConn frames exactly one request, dispatches it, writes exactly one
// response, and closes the connection regardless of the client's Connection
// header.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer s.release(conn)

	req, ok := s.readRequest(conn)
	if !ok {
		return
	}
	if req == nil {
		s.writeBadRequest(conn)
		return
	}

	resp := s.handler.Handle(ctx, req)
	if resp == nil {
		resp = httpwire.NewResponse(500)
	}
	if _, err := conn.Write(resp.Marshal()); err != nil {
		log.Debug().Err(err).Msg("Response write failed")
	}
}

// readRequest drives the framer until a request completes or the stream
// ends. Returns (nil, true) for malformed or truncated input that deserves a
// 400, and (nil, false) for transport errors where no response can be sent.
func (s *Server) readRequest(conn net.Conn) (*httpwire.Request, bool) {
	f := newFramer()
	chunk := make([]byte, config.DefaultBufferSize)

	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			req, ferr := f.feed(chunk[:n])
			if ferr != nil {
				log.Debug().Err(ferr).Msg("Malformed request")
				return nil, true
			}
			if req != nil {
				return req, true
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				req, ferr := f.finish()
				if ferr != nil {
					log.Debug().Err(ferr).Msg("Truncated request")
					return nil, true
				}
				return req, true
			}
			log.Debug().Err(err).Msg("Connection read failed")
			return nil, false
		}
	}
}

func (s *Server) writeBadRequest(conn net.Conn) {
	resp := httpwire.NewResponse(400)
	resp.Header["Content-Type"] = "text/plain"
	resp.Body = []byte("Bad Request")
	_, _ = conn.Write(resp.Marshal())
}

// emit never blocks; the event buffer is best-effort observability.
func (s *Server) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
}

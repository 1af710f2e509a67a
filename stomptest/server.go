// Package stomptest provides a loopback STOMP broker for tests.
package stomptest

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
)

// Handler handles one accepted broker connection.
type Handler interface {
	// Handle is called in its own goroutine for each new connection and owns it.
	Handle(conn *net.TCPConn)
}

// Server accepts TCP connections and hands each one to a Handler.
type Server struct {
	listener *net.TCPListener
	logger   *slog.Logger

	mu       sync.Mutex
	shutdown bool
	wg       sync.WaitGroup
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// ServerLoggerOption sets the logger for the server.
func ServerLoggerOption(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a server bound to addr.
// Returns an error if the address cannot be bound.
func New(addr *net.TCPAddr, opts ...ServerOption) (*Server, error) {
	listener, err := net.ListenTCP(addr.Network(), addr)
	if err != nil {
		return nil, err
	}

	s := &Server{
		listener: listener,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// NewLocal creates a server on an ephemeral loopback port.
func NewLocal(opts ...ServerOption) (*Server, error) {
	return New(&net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}, opts...)
}

// Serve accepts connections until ctx is canceled or Close is called, then waits
// for running handlers to return.
func (s *Server) Serve(ctx context.Context, handler Handler) error {
	s.logger.Debug("broker started", "addr", s.listener.Addr())

	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		_ = s.listener.Close()
	})
	defer stop()
	defer s.wg.Wait()

	for {
		conn, err := s.listener.AcceptTCP()
		if err != nil {
			s.mu.Lock()
			isShutdown := s.shutdown
			s.mu.Unlock()

			if isShutdown {
				s.logger.Debug("broker stopped", "addr", s.listener.Addr())
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				return nil
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			s.logger.Error("accept error", "error", err)
			return err
		}

		s.logger.Debug("accepted connection", "remote_addr", conn.RemoteAddr())
		_ = conn.SetNoDelay(true)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			handler.Handle(conn)
		}()
	}
}

// Close stops accepting connections.
func (s *Server) Close() error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	return s.listener.Close()
}

// Addr returns the listener's network address.
func (s *Server) Addr() *net.TCPAddr {
	return s.listener.Addr().(*net.TCPAddr)
}

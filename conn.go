// Package stomp provides a client for consuming STOMP message feeds.
// It connects to a broker, subscribes to topics, and decodes the incoming byte
// stream into messages, inflating gzip compressed bodies on the way.
package stomp

import (
	"context"
	"crypto/tls"
	"io"
	"iter"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Errors returned by connection operations.
var (
	// ErrNoHandshakeResponse is returned when the transport closes before answering CONNECT.
	ErrNoHandshakeResponse = errors.New("no response to CONNECT, connection may have been closed")
	// ErrInvalidSink is returned when no message sink is provided.
	ErrInvalidSink = errors.New("invalid sink callback")
	// ErrInvalidTopic is returned when subscribing to an empty topic.
	ErrInvalidTopic = errors.New("invalid topic")
)

// ErrConnectionClosed is returned when operating on a closed connection.
var ErrConnectionClosed = errors.New("connection closed")

// errStopIteration ends the read loop when a range over Messages breaks early.
var errStopIteration = errors.New("stop iteration")

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

type remoteAddresser interface {
	RemoteAddr() net.Addr
}

// Conn is a STOMP session with a broker.
// Subscribe may be called while ReadMessages runs, but only one read loop may run
// at a time.
type Conn struct {
	transport io.ReadWriteCloser
	reader    *streamReader
	logger    Logger

	opts options

	writeMu sync.Mutex
	closed  atomic.Bool
}

// Connect dials host:port over TCP, or TLS when TLSConfigOption is set, and
// performs the CONNECT handshake. ctx bounds both the dial and the handshake.
func Connect(ctx context.Context, host string, port int, creds Credentials, opt ...Option) (*Conn, error) {
	opts := newOptions(opt)
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	var (
		raw net.Conn
		err error
	)
	if opts.tlsConfig != nil {
		dialer := &tls.Dialer{NetDialer: opts.dialer, Config: opts.tlsConfig}
		raw, err = dialer.DialContext(ctx, "tcp", addr)
	} else {
		raw, err = opts.dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}
	opts.logger.Debug("dialed broker", "addr", addr, "tls", opts.tlsConfig != nil)

	return newConnWithOptions(ctx, raw, host, creds, opts)
}

// NewConn performs the CONNECT handshake over an already connected transport.
// host is sent in the CONNECT frame's host header.
func NewConn(transport io.ReadWriteCloser, host string, creds Credentials, opt ...Option) (*Conn, error) {
	return newConnWithOptions(context.Background(), transport, host, creds, newOptions(opt))
}

// newConnWithOptions wraps transport and runs the handshake, closing transport on failure.
func newConnWithOptions(ctx context.Context, transport io.ReadWriteCloser, host string, creds Credentials, opts options) (*Conn, error) {
	c := &Conn{
		transport: transport,
		reader:    newStreamReader(transport, opts),
		logger:    opts.logger,
		opts:      opts,
	}

	if err := c.handshake(ctx, host, creds); err != nil {
		c.closeConn()
		return nil, err
	}
	return c, nil
}

// handshake sends CONNECT and waits for one read of the broker's reply.
// The reply is logged but not validated.
func (c *Conn) handshake(ctx context.Context, host string, creds Credentials) error {
	if err := c.write(connectFrame(host, creds)); err != nil {
		return errors.Wrap(err, "send CONNECT")
	}
	c.logger.Debug("sent CONNECT", "host", host, "login", creds.Login)

	if rd, ok := c.transport.(readDeadliner); ok {
		deadline := time.Now().Add(c.opts.handshakeTimeout)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		_ = rd.SetReadDeadline(deadline)
		stop := context.AfterFunc(ctx, func() { _ = rd.SetReadDeadline(time.Now()) })
		defer func() {
			stop()
			_ = rd.SetReadDeadline(time.Time{})
		}()
	}

	buf := make([]byte, handshakeBufferSize)
	n, err := c.transport.Read(buf)
	if n == 0 {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err == nil || errors.Is(err, io.EOF) {
			return ErrNoHandshakeResponse
		}
		return errors.Wrap(err, "read CONNECT response")
	}

	response := Frame{Headers: lossyString(buf[:n])}
	command := response.Command()
	if command != CommandConnected {
		c.logger.Warn("unexpected CONNECT response", "addr", c.Addr(), "command", command)
	}
	c.logger.Info("connection established", "addr", c.Addr(), "response", command)
	return nil
}

// Subscribe asks the broker to deliver messages published to /topic/<topic> and
// returns the generated subscription id.
func (c *Conn) Subscribe(topic string) (string, error) {
	if c.closed.Load() {
		return "", ErrConnectionClosed
	}
	if topic == "" {
		return "", ErrInvalidTopic
	}

	id := "sub-" + uuid.NewRandom().String()
	if err := c.write(subscribeFrame(id, topic)); err != nil {
		return "", errors.Wrapf(err, "subscribe to %s", topic)
	}

	c.logger.Info("subscribed", "topic", topic, "id", id)
	return id, nil
}

// ReadMessages reads and decodes frames until the broker closes the stream, in
// which case it returns nil. sink is called inline, once per frame, in stream
// order; a sink error stops the loop immediately and is returned as is. Transport
// errors are returned wrapped.
//
// Frame bodies are gzip inflated when possible. Empty bodies yield an empty
// message and bodies that do not inflate are delivered as text.
func (c *Conn) ReadMessages(sink Sink) error {
	if sink == nil {
		return ErrInvalidSink
	}
	if c.closed.Load() {
		return ErrConnectionClosed
	}

	err := c.reader.run(sink)
	if err != nil && c.closed.Load() && errors.Is(err, net.ErrClosed) {
		return ErrConnectionClosed
	}
	return err
}

// Messages returns the read loop as a sequence. Each element is a message and a
// nil error, except a final element carrying the error that ended the loop.
// Breaking out of the range stops reading without closing the connection.
func (c *Conn) Messages() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		err := c.ReadMessages(func(message string) error {
			if !yield(message, nil) {
				return errStopIteration
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopIteration) {
			yield("", err)
		}
	}
}

// Run runs ReadMessages until it returns or ctx is done, in which case the
// connection is closed and ctx.Err() is returned.
// The connection is always closed when Run returns.
func (c *Conn) Run(ctx context.Context, sink Sink) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, child := errgroup.WithContext(runCtx)

	group.Go(func() error {
		defer cancel()
		return c.ReadMessages(sink)
	})

	group.Go(func() error {
		<-child.Done()
		return c.Close()
	})

	err := group.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		c.logger.Info("connection closed", "addr", c.Addr(), "reason", ctxErr)
		return ctxErr
	}
	if err != nil {
		c.logger.Info("connection closed with error", "addr", c.Addr(), "error", err)
	} else {
		c.logger.Info("connection closed", "addr", c.Addr())
	}
	return err
}

// Close closes the underlying transport. Safe to call multiple times.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil // already closed
	}
	return c.transport.Close()
}

// IsClosed returns true if the connection has been closed.
func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}

// Addr returns the remote address of the connection, or nil when the transport
// does not expose one.
func (c *Conn) Addr() net.Addr {
	if ra, ok := c.transport.(remoteAddresser); ok {
		return ra.RemoteAddr()
	}
	return nil
}

// write sends one encoded frame with a deadline where the transport supports it.
func (c *Conn) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if wd, ok := c.transport.(writeDeadliner); ok {
		_ = wd.SetWriteDeadline(time.Now().Add(c.opts.writeTimeout))
	}

	if _, err := c.transport.Write(data); err != nil {
		c.logger.Debug("write error", "addr", c.Addr(), "error", err)
		return err
	}
	return nil
}

// closeConn marks the connection as closed and closes the underlying transport.
func (c *Conn) closeConn() {
	c.closed.Store(true)
	c.transport.Close()
}

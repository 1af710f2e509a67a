package stomp

import (
	"crypto/tls"
	"net"
	"time"
)

// options holds the configuration for a connection.
type options struct {
	logger  Logger
	metrics *Metrics

	dialer    *net.Dialer
	tlsConfig *tls.Config

	readBufferSize   int           // size of the scratch buffer for a single transport read
	maxFrameSize     int           // maximum bytes buffered while waiting for a frame, 0 for no limit
	handshakeTimeout time.Duration // deadline for the CONNECT response
	writeTimeout     time.Duration // deadline for writing one outgoing frame
}

// Default configuration values.
const (
	// defaultReadBufferSize is the size of the scratch buffer for one transport read.
	defaultReadBufferSize = 4096
	// handshakeBufferSize bounds the single read that awaits the CONNECT response.
	handshakeBufferSize = 8192
	// defaultHandshakeTimeout bounds the wait for the CONNECT response.
	defaultHandshakeTimeout = 30 * time.Second
	// defaultWriteTimeout bounds writing a single outgoing frame.
	defaultWriteTimeout = 10 * time.Second
)

// Option is a function that configures connection options.
type Option func(*options)

// checkOptions sets default values for connection options.
func checkOptions(opts *options) {
	if opts.readBufferSize <= 0 {
		opts.readBufferSize = defaultReadBufferSize
	}

	if opts.maxFrameSize < 0 {
		opts.maxFrameSize = 0
	}

	if opts.handshakeTimeout <= 0 {
		opts.handshakeTimeout = defaultHandshakeTimeout
	}

	if opts.writeTimeout <= 0 {
		opts.writeTimeout = defaultWriteTimeout
	}

	if opts.dialer == nil {
		opts.dialer = &net.Dialer{}
	}

	if opts.logger == nil {
		opts.logger = defaultLogger()
	}
}

func newOptions(opt []Option) options {
	var opts options
	for _, o := range opt {
		o(&opts)
	}
	checkOptions(&opts)
	return opts
}

// ReadBufferSizeOption returns an Option that sets how many bytes a single
// transport read may return.
func ReadBufferSizeOption(size int) Option {
	return func(o *options) {
		o.readBufferSize = size
	}
}

// MaxFrameSizeOption returns an Option that bounds how many bytes may be buffered
// while waiting for a frame to complete. When exceeded the read loop fails with
// ErrFrameTooLarge. Zero, the default, waits for more bytes indefinitely.
func MaxFrameSizeOption(size int) Option {
	return func(o *options) {
		o.maxFrameSize = size
	}
}

// HandshakeTimeoutOption returns an Option that bounds the wait for the broker's
// response to CONNECT. It only applies to transports that support read deadlines.
func HandshakeTimeoutOption(timeout time.Duration) Option {
	return func(o *options) {
		o.handshakeTimeout = timeout
	}
}

// WriteTimeoutOption returns an Option that sets the write deadline for each
// outgoing frame. It only applies to transports that support write deadlines.
func WriteTimeoutOption(timeout time.Duration) Option {
	return func(o *options) {
		o.writeTimeout = timeout
	}
}

// DialerOption returns an Option that sets the dialer used by Connect.
func DialerOption(dialer *net.Dialer) Option {
	return func(o *options) {
		o.dialer = dialer
	}
}

// TLSConfigOption returns an Option that makes Connect wrap the TCP connection in TLS.
func TLSConfigOption(config *tls.Config) Option {
	return func(o *options) {
		o.tlsConfig = config
	}
}

// MetricsOption returns an Option that records read loop activity in m.
// The caller owns registration of m.
func MetricsOption(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// LoggerOption returns an Option that sets the logger.
// If not set, the default slog logger will be used.
func LoggerOption(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

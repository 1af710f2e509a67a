package stomp

import (
	"crypto/tls"
	"net"
	"testing"
	"time"
)

func TestReadBufferSizeOption(t *testing.T) {
	opt := ReadBufferSizeOption(100)

	var opts options
	opt(&opts)

	if opts.readBufferSize != 100 {
		t.Errorf("readBufferSize = %d, want 100", opts.readBufferSize)
	}
}

func TestMaxFrameSizeOption(t *testing.T) {
	opt := MaxFrameSizeOption(4096)

	var opts options
	opt(&opts)

	if opts.maxFrameSize != 4096 {
		t.Errorf("maxFrameSize = %d, want 4096", opts.maxFrameSize)
	}
}

func TestHandshakeTimeoutOption(t *testing.T) {
	timeout := time.Minute * 5
	opt := HandshakeTimeoutOption(timeout)

	var opts options
	opt(&opts)

	if opts.handshakeTimeout != timeout {
		t.Errorf("handshakeTimeout = %v, want %v", opts.handshakeTimeout, timeout)
	}
}

func TestWriteTimeoutOption(t *testing.T) {
	opt := WriteTimeoutOption(time.Second)

	var opts options
	opt(&opts)

	if opts.writeTimeout != time.Second {
		t.Errorf("writeTimeout = %v, want %v", opts.writeTimeout, time.Second)
	}
}

func TestDialerOption(t *testing.T) {
	dialer := &net.Dialer{Timeout: time.Second}
	opt := DialerOption(dialer)

	var opts options
	opt(&opts)

	if opts.dialer != dialer {
		t.Error("dialer not set correctly")
	}
}

func TestTLSConfigOption(t *testing.T) {
	config := &tls.Config{ServerName: "broker.example"}
	opt := TLSConfigOption(config)

	var opts options
	opt(&opts)

	if opts.tlsConfig != config {
		t.Error("tlsConfig not set correctly")
	}
}

func TestMetricsOption(t *testing.T) {
	m := NewMetrics("test")
	opt := MetricsOption(m)

	var opts options
	opt(&opts)

	if opts.metrics != m {
		t.Error("metrics not set correctly")
	}
}

func TestLoggerOption(t *testing.T) {
	logger := &mockLogger{}
	opt := LoggerOption(logger)

	var opts options
	opt(&opts)

	if opts.logger != logger {
		t.Error("logger not set correctly")
	}
}

func TestCheckOptions_DefaultValues(t *testing.T) {
	opts := &options{maxFrameSize: -1}
	checkOptions(opts)

	if opts.readBufferSize != defaultReadBufferSize {
		t.Errorf("readBufferSize = %d, want %d", opts.readBufferSize, defaultReadBufferSize)
	}

	if opts.maxFrameSize != 0 {
		t.Errorf("maxFrameSize = %d, want 0", opts.maxFrameSize)
	}

	if opts.handshakeTimeout != defaultHandshakeTimeout {
		t.Errorf("handshakeTimeout = %v, want %v", opts.handshakeTimeout, defaultHandshakeTimeout)
	}

	if opts.writeTimeout != defaultWriteTimeout {
		t.Errorf("writeTimeout = %v, want %v", opts.writeTimeout, defaultWriteTimeout)
	}

	if opts.dialer == nil {
		t.Error("dialer should have default value")
	}

	if opts.logger == nil {
		t.Error("logger should have default value")
	}

	if opts.metrics != nil {
		t.Error("metrics should stay nil by default")
	}
}

func TestNewOptions_AppliesInOrder(t *testing.T) {
	opts := newOptions([]Option{ReadBufferSizeOption(10), ReadBufferSizeOption(20)})

	if opts.readBufferSize != 20 {
		t.Errorf("readBufferSize = %d, want 20", opts.readBufferSize)
	}
}

package stomp

import (
	"io"

	"github.com/pkg/errors"
)

// ErrFrameTooLarge is returned when more bytes than MaxFrameSizeOption allows are
// buffered without completing a frame.
var ErrFrameTooLarge = errors.New("frame too large")

// Sink receives each decoded message in stream order.
// A non-nil error stops the read loop and is returned to its caller.
type Sink func(message string) error

// streamReader turns arbitrarily fragmented transport reads into frames.
// buf is the accumulator: it always holds exactly the received bytes that do not
// yet belong to a frame handed to the sink.
type streamReader struct {
	r       io.Reader
	buf     []byte
	scratch []byte

	maxFrameSize int
	logger       Logger
	metrics      *Metrics
}

func newStreamReader(r io.Reader, opts options) *streamReader {
	return &streamReader{
		r:            r,
		scratch:      make([]byte, opts.readBufferSize),
		maxFrameSize: opts.maxFrameSize,
		logger:       opts.logger,
		metrics:      opts.metrics,
	}
}

// run reads until the transport reports io.EOF, which ends the loop without error.
// It may be called again after a sink error; the accumulator carries over.
// Bytes delivered together with io.EOF are decoded first. Any other read error,
// and any sink error, ends the loop and is returned.
func (s *streamReader) run(sink Sink) error {
	// frames left over from a loop that stopped early are delivered before reading
	if err := s.drain(sink); err != nil {
		return err
	}

	for {
		n, err := s.r.Read(s.scratch)
		if n > 0 {
			s.metrics.bytesRead(n)
			s.buf = append(s.buf, s.scratch[:n]...)
			if drainErr := s.drain(sink); drainErr != nil {
				return drainErr
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Info("stream closed by peer", "buffered", len(s.buf))
				return nil
			}
			return errors.Wrap(err, "read from transport")
		}
	}
}

// drain hands every complete frame in the accumulator to sink, then drops the
// consumed prefix.
func (s *streamReader) drain(sink Sink) error {
	consumed := 0
	defer func() {
		s.buf = s.buf[:copy(s.buf, s.buf[consumed:])]
		s.metrics.buffered(len(s.buf))
	}()

	for {
		frame, n, ok := ParseFrame(s.buf[consumed:])
		if !ok {
			break
		}
		consumed += n

		message, fallback := decodeBody(frame.Body)
		s.metrics.frameDecoded(fallback)
		if fallback {
			s.logger.Debug("frame body is not compressed text, delivering raw",
				"command", frame.Command(), "body_len", len(frame.Body))
		}

		if err := sink(message); err != nil {
			return err
		}
		s.metrics.messageDelivered()
	}

	if pending := len(s.buf) - consumed; s.maxFrameSize > 0 && pending > s.maxFrameSize {
		return errors.Wrapf(ErrFrameTooLarge, "%d bytes buffered, limit %d", pending, s.maxFrameSize)
	}
	return nil
}

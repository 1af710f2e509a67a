package stomp

import (
	"bytes"
	"io"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// ErrDecompress is wrapped by every error returned from Decompress.
var ErrDecompress = errors.New("decompress body")

// Decompress inflates a gzip compressed body and returns it as text.
// Only the first gzip member is read. A malformed stream, a checksum mismatch or
// output that is not valid UTF-8 all yield an error wrapping ErrDecompress.
func Decompress(body []byte) (string, error) {
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrapf(ErrDecompress, "read gzip header: %v", err)
	}
	defer zr.Close()
	zr.Multistream(false)

	out, err := io.ReadAll(zr)
	if err != nil {
		return "", errors.Wrapf(ErrDecompress, "inflate: %v", err)
	}

	if !utf8.Valid(out) {
		return "", errors.Wrap(ErrDecompress, "inflated body is not valid UTF-8")
	}

	return string(out), nil
}

// decodeBody turns a frame body into the message handed to the sink.
// Bodies that are not compressed text fall back to a lossy text decoding.
func decodeBody(body []byte) (message string, fallback bool) {
	if len(body) == 0 {
		return "", false
	}

	text, err := Decompress(body)
	if err != nil {
		return lossyString(body), true
	}
	return text, false
}

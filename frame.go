package stomp

import (
	"bytes"
	"strconv"
	"strings"
)

const (
	// nullByte terminates every STOMP frame.
	nullByte = 0x00
	// contentLengthHeader is matched case-sensitively as a line prefix.
	contentLengthHeader = "content-length:"
)

// headerDelimiter separates the header block from the body.
var headerDelimiter = []byte("\n\n")

// Frame is one complete STOMP frame extracted from the stream.
// Headers holds the raw header block (command line included) decoded as text;
// invalid UTF-8 is replaced rather than rejected.
type Frame struct {
	Headers string
	Body    []byte
}

// Command returns the first line of the header block.
func (f Frame) Command() string {
	command, _, _ := strings.Cut(f.Headers, "\n")
	return strings.TrimSuffix(command, "\r")
}

// Header returns the value of the first header line named key.
func (f Frame) Header(key string) (string, bool) {
	prefix := key + ":"
	for _, line := range headerLines(f.Headers) {
		if value, ok := strings.CutPrefix(line, prefix); ok {
			return value, true
		}
	}
	return "", false
}

// ParseFrame extracts the first complete frame from data.
//
// It returns the frame and the number of leading bytes it occupies. ok is false
// when data does not yet hold a complete frame; that is not an error, the caller
// should wait for more bytes and try again with the grown buffer.
//
// A content-length header bounds the body exactly and the byte following it is
// consumed as the terminator. Without one, the body runs to the first null byte
// after the headers. content-length always wins, so bodies may contain null bytes.
func ParseFrame(data []byte) (frame Frame, n int, ok bool) {
	headerLen := bytes.Index(data, headerDelimiter)
	if headerLen < 0 {
		return Frame{}, 0, false
	}
	headerEnd := headerLen + len(headerDelimiter)
	headers := lossyString(data[:headerLen])

	if length, found := contentLength(headers); found {
		return parseFixedLengthBody(data, headerEnd, length, headers)
	}
	return parseNullTerminatedBody(data, headerEnd, headers)
}

func parseFixedLengthBody(data []byte, headerEnd int, length uint64, headers string) (Frame, int, bool) {
	// Checked against the remaining bytes first so a huge declared length cannot overflow.
	if length >= uint64(len(data)-headerEnd) {
		return Frame{}, 0, false
	}
	bodyEnd := headerEnd + int(length)

	return Frame{
		Headers: headers,
		Body:    bytes.Clone(data[headerEnd:bodyEnd]),
	}, bodyEnd + 1, true
}

func parseNullTerminatedBody(data []byte, headerEnd int, headers string) (Frame, int, bool) {
	nullPos := bytes.IndexByte(data[headerEnd:], nullByte)
	if nullPos < 0 {
		return Frame{}, 0, false
	}
	bodyEnd := headerEnd + nullPos

	return Frame{
		Headers: headers,
		Body:    bytes.Clone(data[headerEnd:bodyEnd]),
	}, bodyEnd + 1, true
}

// contentLength returns the value of the first content-length line that parses
// as a non-negative decimal integer.
func contentLength(headers string) (uint64, bool) {
	for _, line := range headerLines(headers) {
		value, ok := strings.CutPrefix(line, contentLengthHeader)
		if !ok {
			continue
		}
		length, err := strconv.ParseUint(strings.TrimSpace(value), 10, 63)
		if err != nil {
			continue
		}
		return length, true
	}
	return 0, false
}

// headerLines splits a header block on line feeds, dropping a trailing carriage
// return from each line.
func headerLines(headers string) []string {
	if headers == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(headers, "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// lossyString decodes b as UTF-8, mapping every invalid byte to U+FFFD.
func lossyString(b []byte) string {
	return string(bytes.Runes(b))
}

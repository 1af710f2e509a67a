package stomp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	for _, tc := range []struct {
		name     string
		in       string
		ok       bool
		headers  string
		body     string
		consumed int
	}{
		{
			name: "partial header",
			in:   "MESSAGE\ndestination:/topic/x\n",
		},
		{
			name: "empty buffer",
			in:   "",
		},
		{
			name:     "null terminated",
			in:       "MESSAGE\n\nworld\x00",
			ok:       true,
			headers:  "MESSAGE",
			body:     "world",
			consumed: 15,
		},
		{
			name: "null terminated body incomplete",
			in:   "MESSAGE\n\nwor",
		},
		{
			name:     "content-length includes null byte",
			in:       "MESSAGE\ncontent-length:5\n\nhe\x00lo\x00",
			ok:       true,
			headers:  "MESSAGE\ncontent-length:5",
			body:     "he\x00lo",
			consumed: 32,
		},
		{
			name: "content-length body incomplete",
			in:   "MESSAGE\ncontent-length:5\n\nhell",
		},
		{
			name: "content-length terminator missing",
			in:   "MESSAGE\ncontent-length:5\n\nhello",
		},
		{
			name:     "content-length zero",
			in:       "MESSAGE\ncontent-length:0\n\n\x00",
			ok:       true,
			headers:  "MESSAGE\ncontent-length:0",
			body:     "",
			consumed: 27,
		},
		{
			name:     "empty header block",
			in:       "\n\nbody\x00",
			ok:       true,
			headers:  "",
			body:     "body",
			consumed: 7,
		},
		{
			name:     "stops at first null byte",
			in:       "MESSAGE\n\nab\x00cd\x00",
			ok:       true,
			headers:  "MESSAGE",
			body:     "ab",
			consumed: 12,
		},
		{
			name:     "unparsable content-length falls back to null scan",
			in:       "MESSAGE\ncontent-length:abc\n\nxy\x00",
			ok:       true,
			headers:  "MESSAGE\ncontent-length:abc",
			body:     "xy",
			consumed: 31,
		},
		{
			name:     "first parsable content-length wins",
			in:       "MESSAGE\ncontent-length:-1\ncontent-length: 2 \ncontent-length:9\n\nab\x00",
			ok:       true,
			headers:  "MESSAGE\ncontent-length:-1\ncontent-length: 2 \ncontent-length:9",
			body:     "ab",
			consumed: 66,
		},
		{
			name:     "header name is case sensitive",
			in:       "MESSAGE\nContent-Length:5\n\nab\x00",
			ok:       true,
			headers:  "MESSAGE\nContent-Length:5",
			body:     "ab",
			consumed: 29,
		},
		{
			name: "huge content-length waits",
			in:   "MESSAGE\ncontent-length:9223372036854775807\n\nab\x00",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			in := []byte(tc.in)
			frame, n, ok := ParseFrame(in)
			require.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.in, string(in), "input must not be modified")
			if !tc.ok {
				assert.Equal(t, 0, n)
				return
			}
			assert.Equal(t, tc.headers, frame.Headers)
			assert.Equal(t, tc.body, string(frame.Body))
			assert.Equal(t, tc.consumed, n)
		})
	}
}

func TestParseFrame_BodyIsCopied(t *testing.T) {
	in := []byte("MESSAGE\n\nabc\x00")
	frame, _, ok := ParseFrame(in)
	require.True(t, ok)

	in[9] = 'z'
	assert.Equal(t, "abc", string(frame.Body))
}

func TestParseFrame_LossyHeaders(t *testing.T) {
	frame, n, ok := ParseFrame([]byte("MESS\xffAGE\n\n\x00"))
	require.True(t, ok)
	assert.Equal(t, "MESS�AGE", frame.Headers)
	assert.Equal(t, 11, n)
	assert.Empty(t, frame.Body)
}

func TestParseFrame_CRLFHeaders(t *testing.T) {
	frame, _, ok := ParseFrame([]byte("MESSAGE\r\ncontent-length:3\r\n\n\x00\x00\x00\x00"))
	require.True(t, ok)
	assert.Equal(t, []byte{0, 0, 0}, frame.Body)
	assert.Equal(t, "MESSAGE", frame.Command())
}

func TestFrame_Header(t *testing.T) {
	frame := Frame{Headers: "MESSAGE\ndestination:/topic/darwin\nsubscription:sub-1\ndestination:/other"}

	value, ok := frame.Header("destination")
	assert.True(t, ok)
	assert.Equal(t, "/topic/darwin", value)

	_, ok = frame.Header("content-type")
	assert.False(t, ok)

	assert.Equal(t, "MESSAGE", frame.Command())
}

func TestLossyString(t *testing.T) {
	assert.Equal(t, "", lossyString(nil))
	assert.Equal(t, "héllo", lossyString([]byte("héllo")))
	assert.Equal(t, "a��b", lossyString([]byte{'a', 0xff, 0xfe, 'b'}))
}

package stomptest

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"sync"
	"time"
)

// ConnectedFrame is the default reply to CONNECT.
var ConnectedFrame = []byte("CONNECTED\nversion:1.2\nserver:stomptest\nheart-beat:0,0\n\n\x00")

// Broker is a Handler that answers CONNECT, waits for AwaitFrames more client
// frames (typically SUBSCRIBE), then writes Chunks in order, one write per chunk.
// Unless KeepOpen is set the connection is closed afterwards, which the client
// observes as end of stream.
type Broker struct {
	// Response replaces ConnectedFrame when non-nil.
	Response []byte
	// NoResponse closes the connection right after CONNECT is received.
	NoResponse bool
	// AwaitFrames is the number of client frames to read after CONNECT before
	// playing Chunks.
	AwaitFrames int
	// Chunks are written one by one after the awaited frames arrive.
	Chunks [][]byte
	// ChunkDelay is slept between chunks so they tend to arrive as separate reads.
	ChunkDelay time.Duration
	// KeepOpen leaves the connection open until the client closes it.
	KeepOpen bool

	mu     sync.Mutex
	frames []string
	done   chan struct{}
	once   sync.Once
}

// Handle implements Handler.
func (b *Broker) Handle(conn *net.TCPConn) {
	defer b.finish()
	defer conn.Close()

	r := bufio.NewReader(conn)
	if !b.readFrame(r) {
		return
	}
	if b.NoResponse {
		return
	}

	response := b.Response
	if response == nil {
		response = ConnectedFrame
	}
	if _, err := conn.Write(response); err != nil {
		return
	}

	for i := 0; i < b.AwaitFrames; i++ {
		if !b.readFrame(r) {
			return
		}
	}

	for i, chunk := range b.Chunks {
		if i > 0 && b.ChunkDelay > 0 {
			time.Sleep(b.ChunkDelay)
		}
		if _, err := conn.Write(chunk); err != nil {
			return
		}
	}

	if b.KeepOpen {
		_, _ = io.Copy(io.Discard, r)
	}
}

// Frames returns the client frames received so far, terminators stripped.
func (b *Broker) Frames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.frames...)
}

// Done is closed when the first handled connection has finished.
func (b *Broker) Done() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done == nil {
		b.done = make(chan struct{})
	}
	return b.done
}

func (b *Broker) readFrame(r *bufio.Reader) bool {
	frame, err := r.ReadBytes(0)
	if err != nil {
		return false
	}
	b.mu.Lock()
	b.frames = append(b.frames, string(bytes.TrimSuffix(frame, []byte{0})))
	b.mu.Unlock()
	return true
}

func (b *Broker) finish() {
	b.once.Do(func() {
		b.mu.Lock()
		if b.done == nil {
			b.done = make(chan struct{})
		}
		close(b.done)
		b.mu.Unlock()
	})
}

package stomp

import (
	"context"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// stompSubprotocols are offered during the websocket upgrade.
var stompSubprotocols = []string{"v12.stomp", "v11.stomp", "v10.stomp"}

// DialWebSocket connects to a broker's STOMP over WebSocket endpoint (ws:// or
// wss://) and performs the CONNECT handshake. The URL host is sent as the CONNECT
// host header.
func DialWebSocket(ctx context.Context, rawURL string, creds Credentials, opt ...Option) (*Conn, error) {
	opts := newOptions(opt)

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parse websocket url %q", rawURL)
	}

	dialer := &websocket.Dialer{
		NetDialContext:   opts.dialer.DialContext,
		TLSClientConfig:  opts.tlsConfig,
		HandshakeTimeout: opts.handshakeTimeout,
		Subprotocols:     stompSubprotocols,
	}
	ws, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", u.Redacted())
	}
	opts.logger.Debug("websocket upgraded", "url", u.Redacted(), "subprotocol", ws.Subprotocol())

	return newConnWithOptions(ctx, newWebSocketTransport(ws), u.Hostname(), creds, opts)
}

// webSocketTransport exposes a websocket connection as a byte stream. Message
// boundaries are dropped: the stream reader finds frame boundaries itself.
type webSocketTransport struct {
	ws      *websocket.Conn
	current io.Reader
}

func newWebSocketTransport(ws *websocket.Conn) *webSocketTransport {
	return &webSocketTransport{ws: ws}
}

func (t *webSocketTransport) Read(p []byte) (int, error) {
	for {
		if t.current == nil {
			_, r, err := t.ws.NextReader()
			if err != nil {
				return 0, t.mapError(err)
			}
			t.current = r
		}

		n, err := t.current.Read(p)
		if errors.Is(err, io.EOF) {
			t.current = nil
			if n == 0 {
				continue
			}
			err = nil
		}
		return n, err
	}
}

func (t *webSocketTransport) Write(p []byte) (int, error) {
	if err := t.ws.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, t.mapError(err)
	}
	return len(p), nil
}

// Close sends a close message and closes the underlying connection.
func (t *webSocketTransport) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = t.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return t.ws.Close()
}

func (t *webSocketTransport) SetReadDeadline(deadline time.Time) error {
	return t.ws.SetReadDeadline(deadline)
}

func (t *webSocketTransport) SetWriteDeadline(deadline time.Time) error {
	return t.ws.SetWriteDeadline(deadline)
}

func (t *webSocketTransport) RemoteAddr() net.Addr {
	return t.ws.RemoteAddr()
}

// mapError turns a normal close by the peer into io.EOF so the read loop ends cleanly.
func (t *webSocketTransport) mapError(err error) error {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return io.EOF
	}
	return err
}

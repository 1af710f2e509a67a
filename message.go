package stomp

import (
	"strings"
)

// Client commands sent by Conn.
const (
	CommandConnect   = "CONNECT"
	CommandSubscribe = "SUBSCRIBE"
	// CommandConnected is the broker's reply to a successful CONNECT.
	CommandConnected = "CONNECTED"
)

const (
	acceptVersion = "1.2"
	ackAuto       = "auto"
	topicPrefix   = "/topic/"
)

// Credentials are sent as the login and passcode headers of CONNECT.
type Credentials struct {
	Login    string
	Passcode string
}

// header is one name:value line of an outgoing frame.
type header struct {
	name, value string
}

// encodeFrame renders a bodyless frame. Header values are written verbatim.
func encodeFrame(command string, headers ...header) []byte {
	var b strings.Builder
	b.WriteString(command)
	b.WriteByte('\n')
	for _, h := range headers {
		b.WriteString(h.name)
		b.WriteByte(':')
		b.WriteString(h.value)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteByte(nullByte)
	return []byte(b.String())
}

func connectFrame(host string, creds Credentials) []byte {
	return encodeFrame(CommandConnect,
		header{"accept-version", acceptVersion},
		header{"host", host},
		header{"login", creds.Login},
		header{"passcode", creds.Passcode},
	)
}

func subscribeFrame(id, topic string) []byte {
	return encodeFrame(CommandSubscribe,
		header{"id", id},
		header{"destination", topicPrefix + topic},
		header{"ack", ackAuto},
	)
}

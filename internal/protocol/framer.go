package protocol

import (
	"errors"
	"fmt"
)

// HeaderLen is the Dialect A common header: length, hub id, message type.
const HeaderLen = 3

// ErrMalformedLength is returned when a declared message length cannot hold
// a header. The accumulated bytes are discarded since no boundary can be
// recovered from them.
var ErrMalformedLength = errors.New("protocol: malformed message length")

// Message is one complete Dialect A message.
type Message struct {
	HubID   byte
	Type    MessageType
	Payload []byte // bytes after the type tag
}

// Port returns the first payload byte, which is the port id for every
// port-scoped message type.
func (m Message) Port() byte {
	return Byte(m.Payload, 0)
}

func (m Message) String() string {
	return fmt.Sprintf("%s % x", m.Type, m.Payload)
}

// Framer reassembles length-prefixed messages from notification chunks of
// any size. It is not safe for concurrent use.
type Framer struct {
	buf []byte
}

// Push appends chunk and returns every message now complete, in order.
// Trailing bytes of an incomplete message stay buffered.
func (f *Framer) Push(chunk []byte) ([]Message, error) {
	f.buf = append(f.buf, chunk...)

	var msgs []Message
	for len(f.buf) > 0 {
		n := int(f.buf[0])
		if n < HeaderLen {
			f.buf = nil
			return msgs, fmt.Errorf("%w: %d", ErrMalformedLength, n)
		}
		if n > len(f.buf) {
			break
		}
		raw := f.buf[:n]
		payload := make([]byte, n-HeaderLen)
		copy(payload, raw[HeaderLen:])
		msgs = append(msgs, Message{
			HubID:   raw[1],
			Type:    MessageType(raw[2]),
			Payload: payload,
		})
		f.buf = f.buf[n:]
	}
	if len(f.buf) == 0 {
		f.buf = nil
	}
	return msgs, nil
}

// Buffered returns the number of bytes waiting for the rest of a message.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

// Reset drops any partially received message.
func (f *Framer) Reset() {
	f.buf = nil
}

// Frame prefixes payload (type tag first) with the common header.
func Frame(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+2)
	out = append(out, byte(len(payload)+2), 0x00)
	return append(out, payload...)
}

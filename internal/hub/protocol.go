package hub

import (
	"context"

	"github.com/chaz8081/hubctl/internal/device"
	"github.com/chaz8081/hubctl/internal/protocol"
)

// Protocol is one wire dialect. Both dialects feed the same attachment
// state machine on their Hub; they differ only in how messages are
// framed, routed and encoded.
//
// Connect is called without the hub lock. Every other method is called
// with it held.
type Protocol interface {
	Dialect() device.Dialect

	// Connect discovers characteristics, subscribes to notifications and
	// runs the capability handshake.
	Connect(ctx context.Context) error
	// Send writes one payload on channel ch.
	Send(ch protocol.Channel, data []byte) error
	// Subscribe enables value reports for mode on port.
	Subscribe(port byte, t device.Type, mode byte) error
	// Unsubscribe disables value reports for mode on port.
	Unsubscribe(port byte, t device.Type, mode byte) error
	// SubscribeCombined enables one multiplexed report carrying every
	// dataset.
	SubscribeCombined(port byte, datasets []device.Dataset) error

	SetName(name string) error
	Shutdown() error
	CreateVirtualPort(first, second byte) error
	DeleteVirtualPort(id byte) error
	RequestPortInformation(port byte) error
	RequestModeInformation(port, mode byte) error

	// reset drops per-connection state such as partial messages.
	reset()
}

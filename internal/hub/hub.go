// Package hub is the protocol engine for LEGO Powered Up and WeDo 2.0 hubs.
// A Hub owns its port table and every attached device, feeds inbound
// notifications through the attachment state machine and serializes
// outgoing commands over a Transport.
package hub

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/chaz8081/hubctl/internal/device"
	"github.com/chaz8081/hubctl/internal/protocol"
)

// Options configures a Hub.
type Options struct {
	// AutoSubscribe makes Subscribe send the mode-subscription command.
	// When false, Subscribe only registers interest.
	AutoSubscribe bool
	// SubscriptionBuffer is the channel size of every subscription and of
	// the hub event stream.
	SubscriptionBuffer int
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		AutoSubscribe:      true,
		SubscriptionBuffer: 32,
	}
}

// State is the connection lifecycle of a hub.
type State uint8

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// EventKind classifies hub events.
type EventKind uint8

const (
	EventAttach EventKind = iota + 1
	EventDetach
	EventButton
	EventBattery
	EventRSSI
	EventDisconnect
)

func (k EventKind) String() string {
	switch k {
	case EventAttach:
		return "attach"
	case EventDetach:
		return "detach"
	case EventButton:
		return "button"
	case EventBattery:
		return "battery"
	case EventRSSI:
		return "rssi"
	case EventDisconnect:
		return "disconnect"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

// Event is a hub-level observation.
type Event struct {
	Kind       EventKind
	Attachment Attachment         // attach, detach
	Button     device.ButtonState // button
	Value      int                // battery percent, rssi dBm
}

// Hub is one connected brick. All state is guarded by mu: notification
// dispatch and command issue both run with it held, so inbound messages
// are processed strictly in arrival order and writes leave in issue order.
type Hub struct {
	transport Transport
	proto     Protocol
	hubType   protocol.HubType
	opts      Options

	mu       sync.Mutex
	state    State
	name     string
	firmware string
	hardware string
	mac      string
	battery  int
	rssi     int

	ports  *portTable
	subs   map[byte][]*Subscription
	events chan Event
}

// New creates a hub of type t over transport. The dialect follows from the
// hub type. Panics if transport is nil.
func New(transport Transport, t protocol.HubType, opts Options) *Hub {
	if transport == nil {
		panic("hub: nil transport")
	}
	if opts.SubscriptionBuffer <= 0 {
		opts.SubscriptionBuffer = 32
	}
	h := &Hub{
		transport: transport,
		hubType:   t,
		opts:      opts,
		name:      transport.Name(),
		ports:     newPortTable(t),
		subs:      make(map[byte][]*Subscription),
		events:    make(chan Event, opts.SubscriptionBuffer),
	}
	if t == protocol.HubWeDo2SmartHub {
		h.proto = newWeDo2Protocol(h)
	} else {
		h.proto = newLPF2Protocol(h)
	}
	return h
}

// Connect establishes the transport link and runs the dialect handshake.
// Dialect A hubs whose firmware is below the supported minimum fail with a
// *FirmwareError and are disconnected again.
func (h *Hub) Connect(ctx context.Context) error {
	h.mu.Lock()
	if h.state != StateDisconnected {
		state := h.state
		h.mu.Unlock()
		return fmt.Errorf("hub: connect: already %s", state)
	}
	h.state = StateConnecting
	h.mu.Unlock()

	if err := h.transport.Connect(ctx); err != nil {
		h.reset()
		return fmt.Errorf("hub: connect %s: %w", h.transport.Address(), err)
	}
	h.transport.OnDisconnect(h.handleDisconnect)

	if err := h.proto.Connect(ctx); err != nil {
		if derr := h.transport.Disconnect(); derr != nil {
			slog.Warn("[HUB] disconnect after failed handshake", "error", derr)
		}
		h.reset()
		return fmt.Errorf("hub: connect %s: %w", h.transport.Address(), err)
	}

	h.mu.Lock()
	h.state = StateConnected
	h.mu.Unlock()
	slog.Info("[HUB] connected", "name", h.Name(), "type", h.hubType, "firmware", h.FirmwareVersion())
	return nil
}

// Disconnect closes the link. Pending commands resolve with
// ErrNotConnected and subscriptions are closed.
func (h *Hub) Disconnect() error {
	err := h.transport.Disconnect()
	h.handleDisconnect()
	if err != nil {
		return fmt.Errorf("hub: disconnect: %w", err)
	}
	return nil
}

func (h *Hub) handleDisconnect() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == StateDisconnected {
		return
	}
	h.teardown()
	h.emit(Event{Kind: EventDisconnect})
	slog.Info("[HUB] disconnected", "name", h.name)
}

// reset returns a hub whose connect failed to the disconnected state.
func (h *Hub) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.teardown()
}

// teardown drops every device. Caller must hold mu.
func (h *Hub) teardown() {
	for _, p := range h.ports.byID {
		p.cancelPending(ErrNotConnected)
		h.closeSubscriptions(p.id)
		p.device = nil
	}
	h.ports = newPortTable(h.hubType)
	h.proto.reset()
	h.state = StateDisconnected
}

// emit publishes ev without blocking. Events nobody reads are dropped; the
// hub state they describe is still recorded. Caller must hold mu.
func (h *Hub) emit(ev Event) {
	select {
	case h.events <- ev:
	default:
		slog.Debug("[HUB] event buffer full, dropping event", "kind", ev.Kind)
	}
}

// Events returns the hub event stream. It is never closed.
func (h *Hub) Events() <-chan Event {
	return h.events
}

// Type returns the hub type.
func (h *Hub) Type() protocol.HubType {
	return h.hubType
}

// Dialect returns the wire dialect the hub speaks.
func (h *Hub) Dialect() device.Dialect {
	return h.proto.Dialect()
}

// State returns the connection state.
func (h *Hub) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Name returns the advertised name.
func (h *Hub) Name() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.name
}

// FirmwareVersion returns the reported firmware version.
func (h *Hub) FirmwareVersion() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.firmware
}

// HardwareVersion returns the reported hardware version.
func (h *Hub) HardwareVersion() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hardware
}

// PrimaryMAC returns the hub's primary hardware address, if reported.
func (h *Hub) PrimaryMAC() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mac
}

// BatteryLevel returns the battery charge in percent.
func (h *Hub) BatteryLevel() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.battery
}

// RSSI returns the last reported signal strength in dBm.
func (h *Hub) RSSI() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rssi
}

// PortNames returns every addressable port name, sorted.
func (h *Hub) PortNames() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.ports.byName))
	for name := range h.ports.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Attachments returns the occupied ports ordered by id.
func (h *Hub) Attachments() []Attachment {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Attachment
	for _, p := range h.ports.byID {
		if p.device != nil {
			out = append(out, p.attachment())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Attachment returns the device at the named port.
func (h *Hub) Attachment(name string) (Attachment, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.ports.lookup(name)
	if !ok {
		return Attachment{}, fmt.Errorf("%w: %q", ErrUnknownPort, name)
	}
	if p.device == nil {
		return Attachment{}, fmt.Errorf("%w: %s", ErrNoDevice, name)
	}
	return p.attachment(), nil
}

// lookupDevice resolves a port name to a connected device. Caller must
// hold mu.
func (h *Hub) lookupDevice(name string) (*port, *device.Device, error) {
	if h.state != StateConnected {
		return nil, nil, ErrNotConnected
	}
	p, ok := h.ports.lookup(name)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownPort, name)
	}
	if p.device == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoDevice, name)
	}
	return p, p.device, nil
}

// send writes packets in order. Caller must hold mu.
func (h *Hub) send(pkts []device.Packet) error {
	for _, pkt := range pkts {
		if err := h.proto.Send(pkt.Channel, pkt.Data); err != nil {
			return err
		}
	}
	return nil
}

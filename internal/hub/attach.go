package hub

import (
	"log/slog"

	"github.com/chaz8081/hubctl/internal/device"
	"github.com/chaz8081/hubctl/internal/protocol"
)

// The handlers below are the dialect-independent state machine. Protocols
// call them from notification dispatch with mu held.

// attach binds a new device of type t to port id. A device already at the
// port is detached first.
func (h *Hub) attach(id byte, t device.Type, hw, sw string) {
	p := h.ports.get(id)
	if p.device != nil {
		h.detach(id)
		p = h.ports.get(id)
	}
	d := device.New(t, id, h.hubType, h.proto.Dialect())
	d.HardwareVersion = hw
	d.SoftwareVersion = sw
	p.device = d
	if !t.Known() {
		slog.Warn("[HUB] attached unknown device type", "port", p.name, "type", uint16(t))
	}
	slog.Info("[HUB] attached", "port", p.name, "type", t)
	h.emit(Event{Kind: EventAttach, Attachment: p.attachment()})
}

// attachVirtual creates the virtual port id combining first and second.
func (h *Hub) attachVirtual(id byte, t device.Type, first, second byte) {
	if old, ok := h.ports.byID[id]; ok && old.device != nil {
		h.detach(id)
	}
	p := h.ports.addVirtual(id, first, second)
	p.device = device.New(t, id, h.hubType, h.proto.Dialect())
	slog.Info("[HUB] attached virtual port", "port", p.name, "type", t, "first", first, "second", second)
	h.emit(Event{Kind: EventAttach, Attachment: p.attachment()})
}

// detach destroys the device at id and every virtual port built on it.
// A pending command there resolves with ErrDetached.
func (h *Hub) detach(id byte) {
	p, ok := h.ports.byID[id]
	if !ok {
		return
	}
	for _, v := range h.ports.virtualsOf(id) {
		h.detach(v.id)
	}
	if p.device == nil {
		return
	}
	gone := p.attachment()
	p.cancelPending(ErrDetached)
	h.closeSubscriptions(id)
	p.device = nil
	p.info = nil
	p.modes = nil
	if p.virtual {
		h.ports.remove(id)
	}
	slog.Info("[HUB] detached", "port", gone.Port, "type", gone.Type)
	h.emit(Event{Kind: EventDetach, Attachment: gone})
}

// value decodes a single-mode report and fans it out to subscribers.
func (h *Hub) value(id byte, data []byte) {
	p, ok := h.ports.byID[id]
	if !ok || p.device == nil {
		return
	}
	mr, ok := p.device.Decode(data)
	if !ok {
		slog.Debug("[HUB] dropped value", "port", p.name, "data", data)
		return
	}
	h.deliver(p, mr)
}

// combinedValue decodes a multiplexed report.
func (h *Hub) combinedValue(id byte, pointer uint16, data []byte) {
	p, ok := h.ports.byID[id]
	if !ok || p.device == nil {
		return
	}
	for _, mr := range p.device.DecodeCombined(pointer, data) {
		h.deliver(p, mr)
	}
}

// confirmMode records the mode the hub says a port reports.
func (h *Hub) confirmMode(id, mode byte) {
	if p, ok := h.ports.byID[id]; ok && p.device != nil {
		p.device.ConfirmMode(mode)
	}
}

// feedback applies one port output feedback report. A command still in
// progress keeps its slot; otherwise completion resolves it and a discard
// fails it.
func (h *Hub) feedback(id, flags byte) {
	p, ok := h.ports.byID[id]
	if !ok || p.pending == nil || !p.pending.feedback {
		return
	}
	switch {
	case flags&protocol.FeedbackInProgress != 0:
	case flags&protocol.FeedbackCompleted != 0:
		p.cancelPending(nil)
	case flags&protocol.FeedbackDiscarded != 0:
		p.cancelPending(ErrDiscarded)
	case flags&protocol.FeedbackIdle != 0:
		p.cancelPending(nil)
	}
}

func (h *Hub) setPortInfo(id byte, update func(*PortInfo)) {
	p := h.ports.get(id)
	if p.info == nil {
		p.info = &PortInfo{}
	}
	update(p.info)
}

func (h *Hub) setModeInfo(id, mode byte, update func(*ModeInfo)) {
	p := h.ports.get(id)
	if p.modes == nil {
		p.modes = make(map[byte]*ModeInfo)
	}
	mi, ok := p.modes[mode]
	if !ok {
		mi = &ModeInfo{}
		p.modes[mode] = mi
	}
	update(mi)
}

func (h *Hub) setButton(state device.ButtonState) {
	slog.Debug("[HUB] button", "state", state)
	h.emit(Event{Kind: EventButton, Button: state})
}

func (h *Hub) setBattery(level int) {
	h.battery = level
	h.emit(Event{Kind: EventBattery, Value: level})
}

func (h *Hub) setRSSI(rssi int) {
	h.rssi = rssi
	h.emit(Event{Kind: EventRSSI, Value: rssi})
}

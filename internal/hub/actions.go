package hub

import "fmt"

// connected returns ErrNotConnected unless the handshake finished. Caller
// must hold mu.
func (h *Hub) connected() error {
	if h.state != StateConnected {
		return ErrNotConnected
	}
	return nil
}

// SetName changes the advertised name. Names longer than the dialect
// allows are rejected before anything is sent.
func (h *Hub) SetName(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.connected(); err != nil {
		return fmt.Errorf("hub: set name: %w", err)
	}
	if err := h.proto.SetName(name); err != nil {
		return fmt.Errorf("hub: set name: %w", err)
	}
	h.name = name
	return nil
}

// Shutdown switches the hub off. The transport reports the disconnect.
func (h *Hub) Shutdown() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.connected(); err != nil {
		return fmt.Errorf("hub: shutdown: %w", err)
	}
	if err := h.proto.Shutdown(); err != nil {
		return fmt.Errorf("hub: shutdown: %w", err)
	}
	return nil
}

// CreateVirtualPort asks the hub to combine two ports holding devices of
// the same type. The virtual port appears with an attach event once the
// hub confirms; its name is the two port names joined in id order.
func (h *Hub) CreateVirtualPort(first, second string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	a, da, err := h.lookupDevice(first)
	if err != nil {
		return fmt.Errorf("hub: create virtual port: %w", err)
	}
	b, db, err := h.lookupDevice(second)
	if err != nil {
		return fmt.Errorf("hub: create virtual port: %w", err)
	}
	if a.virtual || b.virtual || a.id == b.id {
		return fmt.Errorf("hub: create virtual port %s+%s: %w", first, second, ErrUnsupported)
	}
	if da.Type != db.Type {
		return fmt.Errorf("hub: create virtual port %s (%s) + %s (%s): %w",
			first, da.Type, second, db.Type, ErrPortTypeMismatch)
	}
	if err := h.proto.CreateVirtualPort(a.id, b.id); err != nil {
		return fmt.Errorf("hub: create virtual port: %w", err)
	}
	return nil
}

// DeleteVirtualPort asks the hub to split a virtual port.
func (h *Hub) DeleteVirtualPort(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.connected(); err != nil {
		return fmt.Errorf("hub: delete virtual port: %w", err)
	}
	p, ok := h.ports.lookup(name)
	if !ok || !p.virtual {
		return fmt.Errorf("hub: delete virtual port: %w: %q", ErrUnknownPort, name)
	}
	if err := h.proto.DeleteVirtualPort(p.id); err != nil {
		return fmt.Errorf("hub: delete virtual port: %w", err)
	}
	return nil
}

// RequestPortInformation asks the hub to describe the named port's modes
// and mode combinations. Answers are available from PortInformation.
func (h *Hub) RequestPortInformation(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, _, err := h.lookupDevice(name)
	if err != nil {
		return fmt.Errorf("hub: port information: %w", err)
	}
	if err := h.proto.RequestPortInformation(p.id); err != nil {
		return fmt.Errorf("hub: port information: %w", err)
	}
	return nil
}

// RequestModeInformation asks the hub to describe one mode of the named
// port. Answers are available from ModeInformation.
func (h *Hub) RequestModeInformation(name string, mode byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, _, err := h.lookupDevice(name)
	if err != nil {
		return fmt.Errorf("hub: mode information: %w", err)
	}
	if err := h.proto.RequestModeInformation(p.id, mode); err != nil {
		return fmt.Errorf("hub: mode information: %w", err)
	}
	return nil
}

// PortInformation returns what the hub reported about the named port.
func (h *Hub) PortInformation(name string) (PortInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.ports.lookup(name)
	if !ok || p.info == nil {
		return PortInfo{}, false
	}
	info := *p.info
	info.Combinations = append([]uint16(nil), p.info.Combinations...)
	return info, true
}

// ModeInformation returns what the hub reported about each mode of the
// named port.
func (h *Hub) ModeInformation(name string) map[byte]ModeInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.ports.lookup(name)
	if !ok {
		return nil
	}
	out := make(map[byte]ModeInfo, len(p.modes))
	for mode, mi := range p.modes {
		out[mode] = *mi
	}
	return out
}

package hub

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/chaz8081/hubctl/internal/device"
)

// Reading is one decoded value delivered to a subscription.
type Reading struct {
	Port       string
	Capability string
	Value      device.Reading
}

// Subscription streams readings of one or more capabilities of a port.
// C is closed when the subscription is closed or its device detaches.
type Subscription struct {
	C <-chan Reading

	c            chan Reading
	h            *Hub
	port         byte
	portName     string
	capabilities []string
	closed       bool
}

// Port returns the name of the subscribed port.
func (s *Subscription) Port() string {
	return s.portName
}

// Close stops delivery. When it was the port's last subscription the
// value reports are switched off.
func (s *Subscription) Close() {
	h := s.h
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.closed {
		return
	}
	s.close()
	subs := slices.DeleteFunc(h.subs[s.port], func(o *Subscription) bool { return o == s })
	if len(subs) > 0 {
		h.subs[s.port] = subs
		return
	}
	delete(h.subs, s.port)

	p, ok := h.ports.byID[s.port]
	if !ok || p.device == nil || h.state != StateConnected {
		return
	}
	d := p.device
	if mode, ok := d.Mode(); ok && h.opts.AutoSubscribe {
		modes := []byte{mode}
		if ds := d.Combined(); ds != nil {
			modes = modes[:0]
			for _, dataset := range ds {
				modes = append(modes, dataset.Mode)
			}
		}
		for _, m := range modes {
			if err := h.proto.Unsubscribe(p.id, d.Type, m); err != nil {
				slog.Warn("[HUB] unsubscribe", "port", p.name, "mode", m, "error", err)
				break
			}
		}
	}
	d.ClearMode()
}

func (s *Subscription) close() {
	s.closed = true
	close(s.c)
}

func (s *Subscription) wants(capability string) bool {
	return slices.Contains(s.capabilities, capability)
}

// Subscribe streams readings of capability from the device at port. The
// device is switched to the capability's mode; subscribing again to the
// mode already active sends nothing. Switching to another mode closes the
// port's existing subscriptions, which would receive nothing afterwards.
// A subscriber that falls behind loses readings rather than stalling
// dispatch.
func (h *Hub) Subscribe(portName, capability string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, d, err := h.lookupDevice(portName)
	if err != nil {
		return nil, fmt.Errorf("hub: subscribe: %w", err)
	}
	mode, ok := d.Type.Mode(capability)
	if !ok {
		return nil, fmt.Errorf("hub: subscribe %s %s on %s: %w", d.Type, capability, portName, ErrUnsupported)
	}
	if err := h.selectMode(p, d, mode, h.opts.AutoSubscribe); err != nil {
		return nil, fmt.Errorf("hub: subscribe %s on %s: %w", capability, portName, err)
	}
	return h.addSubscription(p, []string{capability}), nil
}

// SubscribeCombined streams several capabilities of a multi-dataset device
// through one multiplexed report.
func (h *Hub) SubscribeCombined(portName string, capabilities ...string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, d, err := h.lookupDevice(portName)
	if err != nil {
		return nil, fmt.Errorf("hub: subscribe combined: %w", err)
	}
	if !d.Type.Combinable() || len(capabilities) == 0 {
		return nil, fmt.Errorf("hub: subscribe combined on %s (%s): %w", portName, d.Type, ErrUnsupported)
	}
	datasets := make([]device.Dataset, 0, len(capabilities))
	for _, c := range capabilities {
		mode, ok := d.Type.Mode(c)
		if !ok {
			return nil, fmt.Errorf("hub: subscribe combined %s %s: %w", d.Type, c, ErrUnsupported)
		}
		datasets = append(datasets, device.Dataset{Mode: mode})
	}
	if !slices.Equal(d.Combined(), datasets) {
		if h.opts.AutoSubscribe {
			if err := h.proto.SubscribeCombined(p.id, datasets); err != nil {
				return nil, fmt.Errorf("hub: subscribe combined on %s: %w", portName, err)
			}
		}
		h.closeSubscriptions(p.id)
		d.SetMode(datasets[0].Mode)
		d.SetCombined(datasets)
	}
	return h.addSubscription(p, capabilities), nil
}

// selectMode switches d to mode, sending the subscription command when
// send is set, and closes the subscriptions of the mode it replaces. It is
// a no-op when mode is already active. Caller must hold mu.
func (h *Hub) selectMode(p *port, d *device.Device, mode byte, send bool) error {
	if cur, ok := d.Mode(); ok && cur == mode && d.Combined() == nil {
		return nil
	}
	if send {
		if err := h.proto.Subscribe(p.id, d.Type, mode); err != nil {
			return err
		}
	}
	h.closeSubscriptions(p.id)
	d.SetCombined(nil)
	d.SetMode(mode)
	return nil
}

func (h *Hub) addSubscription(p *port, capabilities []string) *Subscription {
	c := make(chan Reading, h.opts.SubscriptionBuffer)
	s := &Subscription{
		C:            c,
		c:            c,
		h:            h,
		port:         p.id,
		portName:     p.name,
		capabilities: capabilities,
	}
	h.subs[p.id] = append(h.subs[p.id], s)
	return s
}

// deliver fans a reading out to the port's subscribers. Caller must hold
// mu.
func (h *Hub) deliver(p *port, mr device.ModeReading) {
	for _, s := range h.subs[p.id] {
		if !s.wants(mr.Capability) {
			continue
		}
		select {
		case s.c <- Reading{Port: p.name, Capability: mr.Capability, Value: mr.Reading}:
		default:
			slog.Warn("[HUB] subscriber buffer full, dropping reading", "port", p.name, "capability", mr.Capability)
		}
	}
}

// closeSubscriptions closes every subscription on port id. Caller must
// hold mu.
func (h *Hub) closeSubscriptions(id byte) {
	for _, s := range h.subs[id] {
		if !s.closed {
			s.close()
		}
	}
	delete(h.subs, id)
}

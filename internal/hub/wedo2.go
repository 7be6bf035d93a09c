package hub

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chaz8081/hubctl/internal/device"
	"github.com/chaz8081/hubctl/internal/protocol"
)

// MaxNameWeDo2 is the longest name a WeDo 2.0 hub accepts.
const MaxNameWeDo2 = 20

// WeDo 2.0 input value formats.
const (
	wedo2FormatRaw byte = 0x00
	wedo2FormatSI  byte = 0x02
)

// wedo2Protocol speaks Dialect B: no envelope, one characteristic per
// message family.
type wedo2Protocol struct {
	h *Hub
}

func newWeDo2Protocol(h *Hub) *wedo2Protocol {
	return &wedo2Protocol{h: h}
}

func (p *wedo2Protocol) Dialect() device.Dialect { return device.DialectWeDo2 }

func (p *wedo2Protocol) reset() {}

func (p *wedo2Protocol) Connect(ctx context.Context) error {
	t := p.h.transport
	discover := []struct {
		service string
		chars   []string
	}{
		{protocol.WeDo2HubServiceUUID, []string{
			protocol.WeDo2NameCharUUID,
			protocol.WeDo2ButtonCharUUID,
			protocol.WeDo2PortTypeCharUUID,
			protocol.WeDo2DisconnectCharUUID,
		}},
		{protocol.WeDo2ExtendedServiceUUID, []string{
			protocol.WeDo2SensorValueCharUUID,
			protocol.WeDo2PortTypeWriteCharUUID,
			protocol.WeDo2MotorValueCharUUID,
		}},
		{protocol.BatteryServiceUUID, []string{protocol.BatteryLevelCharUUID}},
		{protocol.DeviceInfoServiceUUID, []string{protocol.FirmwareRevisionCharUUID}},
	}
	for _, d := range discover {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.DiscoverCharacteristics(d.service, d.chars...); err != nil {
			return fmt.Errorf("discover %s: %w", d.service, err)
		}
	}

	subscriptions := []struct {
		char   string
		onData func([]byte)
	}{
		{protocol.WeDo2PortTypeCharUUID, p.onPortType},
		{protocol.WeDo2SensorValueCharUUID, p.onSensorValue},
		{protocol.WeDo2ButtonCharUUID, p.onButton},
		{protocol.BatteryLevelCharUUID, p.onBattery},
	}
	for _, s := range subscriptions {
		if err := t.Subscribe(s.char, s.onData); err != nil {
			return fmt.Errorf("subscribe %s: %w", s.char, err)
		}
	}

	fw, err := t.Read(protocol.FirmwareRevisionCharUUID)
	if err != nil {
		return fmt.Errorf("read firmware: %w", err)
	}
	battery, err := t.Read(protocol.BatteryLevelCharUUID)
	if err != nil {
		return fmt.Errorf("read battery: %w", err)
	}

	p.h.mu.Lock()
	defer p.h.mu.Unlock()
	p.h.firmware = protocol.DecodeString(fw)
	if len(battery) > 0 {
		p.h.battery = int(battery[0])
	}
	return nil
}

// Send writes data unframed to the channel's characteristic.
func (p *wedo2Protocol) Send(ch protocol.Channel, data []byte) error {
	slog.Debug("[HUB] send", "channel", ch, "data", fmt.Sprintf("% x", data))
	if err := p.h.transport.Write(ch.UUID(), data); err != nil {
		return fmt.Errorf("write %s: %w", ch, err)
	}
	return nil
}

// wedo2InputSetup builds the port-type-write command selecting mode on port.
// The RGB light takes the SI format; sensors report raw values.
func wedo2InputSetup(port byte, t device.Type, mode byte, enable bool) []byte {
	format := wedo2FormatRaw
	if t == device.HubLED {
		format = wedo2FormatSI
	}
	var notify byte
	if enable {
		notify = 0x01
	}
	return []byte{0x01, 0x02, port, byte(t), mode, 0x01, 0x00, 0x00, 0x00, format, notify}
}

func (p *wedo2Protocol) Subscribe(port byte, t device.Type, mode byte) error {
	return p.Send(protocol.ChannelPortType, wedo2InputSetup(port, t, mode, true))
}

func (p *wedo2Protocol) Unsubscribe(port byte, t device.Type, mode byte) error {
	return p.Send(protocol.ChannelPortType, wedo2InputSetup(port, t, mode, false))
}

func (p *wedo2Protocol) SubscribeCombined(byte, []device.Dataset) error {
	return fmt.Errorf("combined modes on %s: %w", p.Dialect(), ErrUnsupported)
}

// SetName writes name to the name characteristic twice.
func (p *wedo2Protocol) SetName(name string) error {
	if len(name) > MaxNameWeDo2 {
		return fmt.Errorf("%w: %d > %d bytes", ErrNameTooLong, len(name), MaxNameWeDo2)
	}
	for range 2 {
		if err := p.Send(protocol.ChannelName, []byte(name)); err != nil {
			return err
		}
	}
	return nil
}

func (p *wedo2Protocol) Shutdown() error {
	return p.Send(protocol.ChannelDisconnect, []byte{0x00})
}

func (p *wedo2Protocol) CreateVirtualPort(byte, byte) error {
	return fmt.Errorf("virtual ports on %s: %w", p.Dialect(), ErrUnsupported)
}

func (p *wedo2Protocol) DeleteVirtualPort(byte) error {
	return fmt.Errorf("virtual ports on %s: %w", p.Dialect(), ErrUnsupported)
}

func (p *wedo2Protocol) RequestPortInformation(byte) error {
	return fmt.Errorf("port information on %s: %w", p.Dialect(), ErrUnsupported)
}

func (p *wedo2Protocol) RequestModeInformation(byte, byte) error {
	return fmt.Errorf("mode information on %s: %w", p.Dialect(), ErrUnsupported)
}

// onPortType handles attach events: port, event, hub index, device type.
func (p *wedo2Protocol) onPortType(data []byte) {
	p.h.mu.Lock()
	defer p.h.mu.Unlock()
	slog.Debug("[HUB] recv port type", "data", fmt.Sprintf("% x", data))
	if len(data) < 2 {
		return
	}
	switch data[1] {
	case protocol.EventDetached:
		p.h.detach(data[0])
	case protocol.EventAttached:
		if len(data) >= 4 {
			p.h.attach(data[0], device.Type(data[3]), "", "")
		}
	}
}

// onSensorValue handles value reports: format revision, port, value bytes.
func (p *wedo2Protocol) onSensorValue(data []byte) {
	p.h.mu.Lock()
	defer p.h.mu.Unlock()
	slog.Debug("[HUB] recv sensor value", "data", fmt.Sprintf("% x", data))
	if len(data) < 2 {
		return
	}
	p.h.value(data[1], data[2:])
}

func (p *wedo2Protocol) onButton(data []byte) {
	p.h.mu.Lock()
	defer p.h.mu.Unlock()
	if protocol.Byte(data, 0) == 1 {
		p.h.setButton(device.ButtonPressed)
	} else {
		p.h.setButton(device.ButtonReleased)
	}
}

func (p *wedo2Protocol) onBattery(data []byte) {
	p.h.mu.Lock()
	defer p.h.mu.Unlock()
	if len(data) > 0 {
		p.h.setBattery(int(data[0]))
	}
}

package hub

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chaz8081/hubctl/internal/device"
	"github.com/chaz8081/hubctl/internal/protocol"
)

// MaxNameLPF2 is the longest advertising name a Dialect A hub accepts.
const MaxNameLPF2 = 14

// lpf2Protocol speaks Dialect A: length-prefixed messages on one shared
// characteristic.
type lpf2Protocol struct {
	h       *Hub
	framer  protocol.Framer
	waiters map[protocol.HubProperty]chan []byte
}

func newLPF2Protocol(h *Hub) *lpf2Protocol {
	return &lpf2Protocol{h: h, waiters: make(map[protocol.HubProperty]chan []byte)}
}

func (p *lpf2Protocol) Dialect() device.Dialect { return device.DialectLPF2 }

func (p *lpf2Protocol) reset() {
	p.framer.Reset()
	for prop, ch := range p.waiters {
		close(ch)
		delete(p.waiters, prop)
	}
}

func (p *lpf2Protocol) Connect(ctx context.Context) error {
	t := p.h.transport
	if err := t.DiscoverCharacteristics(protocol.LPF2HubServiceUUID, protocol.LPF2AllCharUUID); err != nil {
		return fmt.Errorf("discover: %w", err)
	}
	if err := t.Subscribe(protocol.LPF2AllCharUUID, p.notify); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	p.h.mu.Lock()
	fw := p.await(protocol.PropFirmwareVersion)
	err := p.sendAll(
		propertyMessage(protocol.PropButtonState, protocol.PropOpEnableUpdates),
		propertyMessage(protocol.PropFirmwareVersion, protocol.PropOpRequestUpdate),
	)
	p.h.mu.Unlock()
	if err != nil {
		return err
	}

	select {
	case raw, ok := <-fw:
		if !ok {
			return fmt.Errorf("firmware version: %w", ErrNotConnected)
		}
		version := protocol.DecodeVersion(protocol.Uint32(raw, 0))
		if err := checkFirmware(p.h.Name(), p.h.hubType, version); err != nil {
			return err
		}
	case <-ctx.Done():
		return fmt.Errorf("firmware version: %w", ctx.Err())
	}

	p.h.mu.Lock()
	defer p.h.mu.Unlock()
	return p.sendAll(
		propertyMessage(protocol.PropHardwareVersion, protocol.PropOpRequestUpdate),
		propertyMessage(protocol.PropRSSI, protocol.PropOpEnableUpdates),
		propertyMessage(protocol.PropBatteryVoltage, protocol.PropOpEnableUpdates),
		propertyMessage(protocol.PropPrimaryMAC, protocol.PropOpRequestUpdate),
	)
}

// await registers interest in the next update of prop. Caller must hold
// the hub lock.
func (p *lpf2Protocol) await(prop protocol.HubProperty) <-chan []byte {
	ch := make(chan []byte, 1)
	p.waiters[prop] = ch
	return ch
}

func propertyMessage(prop protocol.HubProperty, op byte) []byte {
	return []byte{byte(protocol.MsgHubProperties), byte(prop), op}
}

func (p *lpf2Protocol) sendAll(msgs ...[]byte) error {
	for _, m := range msgs {
		if err := p.Send(protocol.ChannelAll, m); err != nil {
			return err
		}
	}
	return nil
}

// Send frames data and writes it to the shared characteristic. Every
// channel maps onto it.
func (p *lpf2Protocol) Send(_ protocol.Channel, data []byte) error {
	frame := protocol.Frame(data)
	slog.Debug("[HUB] send", "data", fmt.Sprintf("% x", frame))
	if err := p.h.transport.Write(protocol.LPF2AllCharUUID, frame); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func inputFormat(port, mode byte, enable bool) []byte {
	var notify byte
	if enable {
		notify = 0x01
	}
	return []byte{byte(protocol.MsgPortInputFormatSetup), port, mode, 0x01, 0x00, 0x00, 0x00, notify}
}

func (p *lpf2Protocol) Subscribe(port byte, _ device.Type, mode byte) error {
	return p.Send(protocol.ChannelAll, inputFormat(port, mode, true))
}

func (p *lpf2Protocol) Unsubscribe(port byte, _ device.Type, mode byte) error {
	return p.Send(protocol.ChannelAll, inputFormat(port, mode, false))
}

// SubscribeCombined locks the port's input setup, enables each mode while
// collecting its dataset descriptor, sets the combination and unlocks
// with multi-update on.
func (p *lpf2Protocol) SubscribeCombined(port byte, datasets []device.Dataset) error {
	combined := byte(protocol.MsgPortInputFormatCombined)
	msgs := [][]byte{{combined, port, protocol.CombinedLock}}
	set := []byte{combined, port, protocol.CombinedSetModeDataSet, 0x00}
	for _, ds := range datasets {
		msgs = append(msgs, inputFormat(port, ds.Mode, true))
		set = append(set, ds.Byte())
	}
	msgs = append(msgs, set, []byte{combined, port, protocol.CombinedUnlockMultiOn})
	return p.sendAll(msgs...)
}

func (p *lpf2Protocol) SetName(name string) error {
	if len(name) > MaxNameLPF2 {
		return fmt.Errorf("%w: %d > %d bytes", ErrNameTooLong, len(name), MaxNameLPF2)
	}
	msg := propertyMessage(protocol.PropAdvertisingName, protocol.PropOpSet)
	return p.Send(protocol.ChannelAll, append(msg, name...))
}

func (p *lpf2Protocol) Shutdown() error {
	return p.Send(protocol.ChannelAll, []byte{byte(protocol.MsgHubActions), 0x01})
}

func (p *lpf2Protocol) CreateVirtualPort(first, second byte) error {
	if first > second {
		first, second = second, first
	}
	return p.Send(protocol.ChannelAll, []byte{byte(protocol.MsgVirtualPortSetup), 0x01, first, second})
}

func (p *lpf2Protocol) DeleteVirtualPort(id byte) error {
	return p.Send(protocol.ChannelAll, []byte{byte(protocol.MsgVirtualPortSetup), 0x00, id})
}

func (p *lpf2Protocol) RequestPortInformation(port byte) error {
	req := byte(protocol.MsgPortInformationRequest)
	return p.sendAll(
		[]byte{req, port, portInfoModes},
		[]byte{req, port, portInfoCombinations},
	)
}

// Mode information types requested for every mode.
var modeInfoTypes = []byte{
	modeInfoName, modeInfoRaw, modeInfoPct, modeInfoSI, modeInfoSymbol, modeInfoValueFormat,
}

func (p *lpf2Protocol) RequestModeInformation(port, mode byte) error {
	msgs := make([][]byte, 0, len(modeInfoTypes))
	for _, it := range modeInfoTypes {
		msgs = append(msgs, []byte{byte(protocol.MsgPortModeInfoRequest), port, mode, it})
	}
	return p.sendAll(msgs...)
}

// notify is the characteristic callback. It reassembles messages and
// dispatches each one under the hub lock.
func (p *lpf2Protocol) notify(chunk []byte) {
	p.h.mu.Lock()
	defer p.h.mu.Unlock()
	msgs, err := p.framer.Push(chunk)
	for _, m := range msgs {
		p.dispatch(m)
	}
	if err != nil {
		slog.Warn("[HUB] dropped malformed data", "error", err)
	}
}

func (p *lpf2Protocol) dispatch(m protocol.Message) {
	slog.Debug("[HUB] recv", "type", m.Type, "payload", fmt.Sprintf("% x", m.Payload))
	h := p.h
	pl := m.Payload
	switch m.Type {
	case protocol.MsgHubProperties:
		p.handleProperty(pl)
	case protocol.MsgHubAttachedIO:
		p.handleAttach(pl)
	case protocol.MsgGenericError:
		if len(pl) >= 2 {
			slog.Warn("[HUB] hub reported error", "command", protocol.MessageType(pl[0]), "code", pl[1])
		}
	case protocol.MsgPortInformation:
		p.handlePortInfo(pl)
	case protocol.MsgPortModeInformation:
		p.handleModeInfo(pl)
	case protocol.MsgPortValueSingle:
		if len(pl) >= 1 {
			h.value(pl[0], pl[1:])
		}
	case protocol.MsgPortValueCombined:
		if len(pl) >= 3 {
			h.combinedValue(pl[0], protocol.Uint16(pl, 1), pl[3:])
		}
	case protocol.MsgPortInputFormatSingle:
		if len(pl) >= 2 {
			h.confirmMode(pl[0], pl[1])
		}
	case protocol.MsgPortOutputFeedback:
		for i := 0; i+1 < len(pl); i += 2 {
			h.feedback(pl[i], pl[i+1])
		}
	}
}

func (p *lpf2Protocol) handleProperty(pl []byte) {
	if len(pl) < 2 || pl[1] != protocol.PropOpUpdate {
		return
	}
	h := p.h
	prop := protocol.HubProperty(pl[0])
	v := pl[2:]
	switch prop {
	case protocol.PropAdvertisingName:
		h.name = protocol.DecodeString(v)
	case protocol.PropButtonState:
		if protocol.Byte(v, 0) == 1 {
			h.setButton(device.ButtonPressed)
		} else {
			h.setButton(device.ButtonReleased)
		}
	case protocol.PropFirmwareVersion:
		h.firmware = protocol.DecodeVersion(protocol.Uint32(v, 0))
	case protocol.PropHardwareVersion:
		h.hardware = protocol.DecodeVersion(protocol.Uint32(v, 0))
	case protocol.PropRSSI:
		if rssi := int(protocol.Int8(v, 0)); rssi != 0 {
			h.setRSSI(rssi)
		}
	case protocol.PropBatteryVoltage:
		if len(v) >= 1 {
			h.setBattery(int(v[0]))
		}
	case protocol.PropPrimaryMAC:
		if len(v) >= 6 {
			h.mac = protocol.DecodeMAC(v[:6])
		}
	}
	if ch, ok := p.waiters[prop]; ok {
		delete(p.waiters, prop)
		ch <- v
	}
}

func (p *lpf2Protocol) handleAttach(pl []byte) {
	if len(pl) < 2 {
		return
	}
	h := p.h
	id := pl[0]
	switch pl[1] {
	case protocol.EventDetached:
		h.detach(id)
	case protocol.EventAttached:
		if len(pl) < 4 {
			return
		}
		var hw, sw string
		if len(pl) >= 12 {
			hw = protocol.DecodeVersion(protocol.Uint32(pl, 4))
			sw = protocol.DecodeVersion(protocol.Uint32(pl, 8))
		}
		h.attach(id, device.Type(protocol.Uint16(pl, 2)), hw, sw)
	case protocol.EventAttachedVirtual:
		if len(pl) < 6 {
			return
		}
		h.attachVirtual(id, device.Type(protocol.Uint16(pl, 2)), pl[4], pl[5])
	}
}

// Port and mode information types.
const (
	portInfoModes        byte = 0x01
	portInfoCombinations byte = 0x02

	modeInfoName        byte = 0x00
	modeInfoRaw         byte = 0x01
	modeInfoPct         byte = 0x02
	modeInfoSI          byte = 0x03
	modeInfoSymbol      byte = 0x04
	modeInfoValueFormat byte = 0x80
)

func (p *lpf2Protocol) handlePortInfo(pl []byte) {
	if len(pl) < 2 {
		return
	}
	switch pl[1] {
	case portInfoModes:
		if len(pl) < 8 {
			return
		}
		p.h.setPortInfo(pl[0], func(pi *PortInfo) {
			caps := pl[2]
			pi.Output = caps&0x01 != 0
			pi.Input = caps&0x02 != 0
			pi.Combinable = caps&0x04 != 0
			pi.Synchronized = caps&0x08 != 0
			pi.ModeCount = int(pl[3])
			pi.InputModes = protocol.Uint16(pl, 4)
			pi.OutputModes = protocol.Uint16(pl, 6)
		})
	case portInfoCombinations:
		p.h.setPortInfo(pl[0], func(pi *PortInfo) {
			pi.Combinations = pi.Combinations[:0]
			for off := 2; off+2 <= len(pl); off += 2 {
				mask := protocol.Uint16(pl, off)
				if mask == 0 {
					break
				}
				pi.Combinations = append(pi.Combinations, mask)
			}
		})
	}
}

func (p *lpf2Protocol) handleModeInfo(pl []byte) {
	if len(pl) < 3 {
		return
	}
	v := pl[3:]
	p.h.setModeInfo(pl[0], pl[1], func(mi *ModeInfo) {
		switch pl[2] {
		case modeInfoName:
			mi.Name = protocol.DecodeString(v)
		case modeInfoRaw:
			mi.RawMin, mi.RawMax = protocol.Float32(v, 0), protocol.Float32(v, 4)
		case modeInfoPct:
			mi.PctMin, mi.PctMax = protocol.Float32(v, 0), protocol.Float32(v, 4)
		case modeInfoSI:
			mi.SIMin, mi.SIMax = protocol.Float32(v, 0), protocol.Float32(v, 4)
		case modeInfoSymbol:
			mi.Symbol = protocol.DecodeString(v)
		case modeInfoValueFormat:
			mi.Datasets = int(protocol.Byte(v, 0))
			mi.Format = protocol.Byte(v, 1)
			mi.Figures = int(protocol.Byte(v, 2))
			mi.Decimals = int(protocol.Byte(v, 3))
		}
	})
}

package device

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/chaz8081/hubctl/internal/protocol"
)

// ErrUnsupported is returned when a device type or dialect cannot carry a
// command.
var ErrUnsupported = errors.New("device: unsupported command")

// Packet is one outgoing payload. For Dialect A the data starts at the
// message type tag and is framed by the hub protocol; for Dialect B it is
// written as is to the channel's characteristic.
type Packet struct {
	Channel protocol.Channel
	Data    []byte
}

// WeDo 2.0 output command ids, first byte after the port.
const (
	wedo2OutputPower byte = 0x01
	wedo2OutputTone  byte = 0x02
	wedo2StopTone    byte = 0x03
	wedo2OutputLED   byte = 0x04
)

func (d *Device) unsupported(what string) error {
	return fmt.Errorf("%w: %s on %s (%s)", ErrUnsupported, what, d.Type, d.Dialect)
}

// writeDirect builds a WriteDirectModeData output command.
func (d *Device) writeDirect(mode byte, data ...byte) Packet {
	msg := []byte{byte(protocol.MsgPortOutputCommand), d.PortID, protocol.StartupFeedback, protocol.SubWriteDirectModeData, mode}
	return Packet{Channel: protocol.ChannelAll, Data: append(msg, data...)}
}

// wedo2Output builds a legacy output command: port, command, length, data.
func (d *Device) wedo2Output(command byte, data ...byte) Packet {
	msg := []byte{d.PortID, command, byte(len(data))}
	return Packet{Channel: protocol.ChannelMotorValue, Data: append(msg, data...)}
}

func (d *Device) outputCommand(sub byte, data ...byte) Packet {
	msg := []byte{byte(protocol.MsgPortOutputCommand), d.PortID, protocol.StartupFeedback, sub}
	return Packet{Channel: protocol.ChannelAll, Data: append(msg, data...)}
}

// EncodePower sets motor power directly. 0 floats, BrakeSentinel brakes.
func (d *Device) EncodePower(power int) ([]Packet, error) {
	if !d.Type.IsMotor() {
		return nil, d.unsupported("power")
	}
	if d.Dialect == DialectWeDo2 {
		return []Packet{d.wedo2Output(wedo2OutputPower, speedByte(power))}, nil
	}
	return []Packet{d.writeDirect(ModeMotorPower, speedByte(power))}, nil
}

func durationMillis(duration time.Duration) []byte {
	ms := duration.Milliseconds()
	if ms > 0xffff {
		ms = 0xffff
	}
	if ms < 0 {
		ms = 0
	}
	return binary.LittleEndian.AppendUint16(nil, uint16(ms))
}

// EncodeSpeed starts a tacho motor at a regulated speed. With a non-zero
// duration the hub runs it for that long and then applies the braking
// style.
func (d *Device) EncodeSpeed(speed int, duration time.Duration) ([]Packet, error) {
	if !d.Type.IsTacho() || d.Dialect != DialectLPF2 {
		return nil, d.unsupported("speed")
	}
	p := d.Profile
	if duration > 0 {
		data := durationMillis(duration)
		data = append(data, speedByte(speed), p.maxPower(), byte(p.Braking), p.useProfile())
		return []Packet{d.outputCommand(protocol.SubStartSpeedForTime, data...)}, nil
	}
	return []Packet{d.outputCommand(protocol.SubStartSpeed, speedByte(speed), p.maxPower(), p.useProfile())}, nil
}

// EncodeSpeedPair drives both motors of a virtual port.
func (d *Device) EncodeSpeedPair(first, second int, duration time.Duration) ([]Packet, error) {
	if !d.Type.IsTacho() || d.Dialect != DialectLPF2 {
		return nil, d.unsupported("speed pair")
	}
	p := d.Profile
	if duration > 0 {
		data := durationMillis(duration)
		data = append(data, speedByte(first), speedByte(second), p.maxPower(), byte(p.Braking), p.useProfile())
		return []Packet{d.outputCommand(protocol.SubStartSpeedForTimePr, data...)}, nil
	}
	return []Packet{d.outputCommand(protocol.SubStartSpeedPair, speedByte(first), speedByte(second), p.maxPower(), p.useProfile())}, nil
}

// EncodeRotateByDegrees turns a tacho motor by a relative angle. A
// negative angle reverses the direction of speed.
func (d *Device) EncodeRotateByDegrees(degrees, speed int) ([]Packet, error) {
	if !d.Type.IsTacho() || d.Dialect != DialectLPF2 {
		return nil, d.unsupported("rotate by degrees")
	}
	if degrees < 0 {
		degrees = -degrees
		speed = -speed
	}
	p := d.Profile
	data := binary.LittleEndian.AppendUint32(nil, uint32(degrees))
	data = append(data, speedByte(speed), p.maxPower(), byte(p.Braking), p.useProfile())
	return []Packet{d.outputCommand(protocol.SubStartSpeedForDegrees, data...)}, nil
}

// EncodeGotoAngle moves an absolute motor to angle.
func (d *Device) EncodeGotoAngle(angle, speed int) ([]Packet, error) {
	if d.Type.Class() != ClassAbsoluteMotor || d.Dialect != DialectLPF2 {
		return nil, d.unsupported("goto angle")
	}
	p := d.Profile
	data := binary.LittleEndian.AppendUint32(nil, uint32(int32(NormalizeAngle(angle))))
	data = append(data, speedByte(speed), p.maxPower(), byte(p.Braking), p.useProfile())
	return []Packet{d.outputCommand(protocol.SubGotoAbsolutePosition, data...)}, nil
}

// EncodeGotoAnglePair moves both motors of a virtual port.
func (d *Device) EncodeGotoAnglePair(first, second, speed int) ([]Packet, error) {
	if d.Type.Class() != ClassAbsoluteMotor || d.Dialect != DialectLPF2 {
		return nil, d.unsupported("goto angle pair")
	}
	p := d.Profile
	data := binary.LittleEndian.AppendUint32(nil, uint32(int32(NormalizeAngle(first))))
	data = binary.LittleEndian.AppendUint32(data, uint32(int32(NormalizeAngle(second))))
	data = append(data, speedByte(speed), p.maxPower(), byte(p.Braking), p.useProfile())
	return []Packet{d.outputCommand(protocol.SubGotoAbsolutePair, data...)}, nil
}

// EncodeResetZero presets the encoder position to zero.
func (d *Device) EncodeResetZero() ([]Packet, error) {
	if !d.Type.IsTacho() || d.Dialect != DialectLPF2 {
		return nil, d.unsupported("reset zero")
	}
	return []Packet{d.writeDirect(ModeMotorPreset, 0x00, 0x00, 0x00, 0x00)}, nil
}

// EncodeAccelerationTime sets the time to ramp from 0 to 100% speed.
func (d *Device) EncodeAccelerationTime(duration time.Duration) ([]Packet, error) {
	if !d.Type.IsTacho() || d.Dialect != DialectLPF2 {
		return nil, d.unsupported("acceleration time")
	}
	data := append(durationMillis(duration), 0x00)
	return []Packet{d.outputCommand(0x05, data...)}, nil
}

// EncodeDecelerationTime sets the time to ramp from 100% to 0 speed.
func (d *Device) EncodeDecelerationTime(duration time.Duration) ([]Packet, error) {
	if !d.Type.IsTacho() || d.Dialect != DialectLPF2 {
		return nil, d.unsupported("deceleration time")
	}
	data := append(durationMillis(duration), 0x00)
	return []Packet{d.outputCommand(0x06, data...)}, nil
}

// EncodeBrightness sets a light's brightness in percent.
func (d *Device) EncodeBrightness(brightness int) ([]Packet, error) {
	if d.Type.Class() != ClassLight {
		return nil, d.unsupported("brightness")
	}
	b := byte(clamp(brightness, 0, 100))
	if d.Dialect == DialectWeDo2 {
		return []Packet{d.wedo2Output(wedo2OutputPower, b)}, nil
	}
	return []Packet{d.writeDirect(0x00, b)}, nil
}

// EncodeColor sets an indexed LED color. The hub LED and the
// color-distance sensor's LED accept it. The caller must have put the
// device in ColorMode first.
func (d *Device) EncodeColor(c Color) ([]Packet, error) {
	switch {
	case d.Type == HubLED && d.Dialect == DialectWeDo2:
		return []Packet{d.wedo2Output(wedo2OutputLED, byte(c))}, nil
	case d.Type == HubLED:
		return []Packet{d.writeDirect(ModeLEDColor, byte(c))}, nil
	case d.Type == ColorDistanceSensor && d.Dialect == DialectLPF2:
		return []Packet{d.writeDirect(ModeColorDistLED, byte(c))}, nil
	}
	return nil, d.unsupported("color")
}

// ColorMode is the output mode EncodeColor expects to be active.
func (d *Device) ColorMode() byte {
	if d.Type == ColorDistanceSensor {
		return ModeColorDistLED
	}
	return ModeLEDColor
}

// EncodeRGB sets the hub LED to an RGB value. The device must be in
// ModeLEDRGB.
func (d *Device) EncodeRGB(r, g, b byte) ([]Packet, error) {
	if d.Type != HubLED {
		return nil, d.unsupported("rgb")
	}
	if d.Dialect == DialectWeDo2 {
		return []Packet{d.wedo2Output(wedo2OutputLED, r, g, b)}, nil
	}
	return []Packet{d.writeDirect(ModeLEDRGB, r, g, b)}, nil
}

// EncodeTone plays a tone. On the WeDo 2.0 piezo buzzer frequency is in Hz
// and duration bounds the tone; on the Duplo train base speaker frequency
// is a tone index and duration is ignored.
func (d *Device) EncodeTone(frequency uint16, duration time.Duration) ([]Packet, error) {
	switch {
	case d.Type == PiezoBuzzer && d.Dialect == DialectWeDo2:
		data := binary.LittleEndian.AppendUint16(nil, frequency)
		data = append(data, durationMillis(duration)...)
		return []Packet{d.wedo2Output(wedo2OutputTone, data...)}, nil
	case d.Type == DuploTrainBaseSpeaker && d.Dialect == DialectLPF2:
		return []Packet{d.writeDirect(ModeSpeakerTone, byte(frequency))}, nil
	}
	return nil, d.unsupported("tone")
}

// EncodeStopTone silences the WeDo 2.0 piezo buzzer.
func (d *Device) EncodeStopTone() ([]Packet, error) {
	if d.Type != PiezoBuzzer || d.Dialect != DialectWeDo2 {
		return nil, d.unsupported("stop tone")
	}
	return []Packet{{Channel: protocol.ChannelMotorValue, Data: []byte{d.PortID, wedo2StopTone, 0x00}}}, nil
}

// EncodeSound plays a Duplo train base sound. The device must be in
// ModeSpeakerSound.
func (d *Device) EncodeSound(s Sound) ([]Packet, error) {
	if d.Type != DuploTrainBaseSpeaker || d.Dialect != DialectLPF2 {
		return nil, d.unsupported("sound")
	}
	return []Packet{d.writeDirect(ModeSpeakerSound, byte(s))}, nil
}

// EncodeMatrix sets all nine pixels of the 3x3 light matrix, row by row,
// at brightness percent. The device must be in ModeMatrixPixels.
func (d *Device) EncodeMatrix(colors [9]Color, brightness int) ([]Packet, error) {
	if d.Type != Technic3x3ColorLightMatrix || d.Dialect != DialectLPF2 {
		return nil, d.unsupported("matrix")
	}
	level := byte(clamp(brightness, 0, 100) / 10)
	data := make([]byte, 9)
	for i, c := range colors {
		if !c.Valid() {
			c = Black
		}
		data[i] = byte(c)&0x0f | level<<4
	}
	return []Packet{d.writeDirect(ModeMatrixPixels, data...)}, nil
}

// EncodeSensorLights sets the built-in LEDs of the Technic color sensor
// (three segments) or distance sensor (four segments: top left, top right,
// bottom left, bottom right), each in percent.
func (d *Device) EncodeSensorLights(levels ...int) ([]Packet, error) {
	var mode byte
	var want int
	switch d.Type {
	case TechnicColorSensor:
		mode, want = ModeTechnicColorLED, 3
	case TechnicDistanceSensor:
		mode, want = ModeTechnicDistLED, 4
	default:
		return nil, d.unsupported("sensor lights")
	}
	if len(levels) != want {
		return nil, fmt.Errorf("device: %s needs %d light levels, got %d", d.Type, want, len(levels))
	}
	data := make([]byte, want)
	for i, l := range levels {
		data[i] = byte(clamp(l, 0, 100))
	}
	return []Packet{d.writeDirect(mode, data...)}, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

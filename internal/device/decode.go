package device

import (
	"math"

	"github.com/chaz8081/hubctl/internal/protocol"
)

// Dialect selects the wire format a device's hub speaks.
type Dialect uint8

const (
	// DialectLPF2 is the unified length-prefixed protocol.
	DialectLPF2 Dialect = iota
	// DialectWeDo2 is the legacy per-characteristic protocol.
	DialectWeDo2
)

func (d Dialect) String() string {
	if d == DialectWeDo2 {
		return "wedo2"
	}
	return "lpf2"
}

type scale struct{ value, raw float64 }

// Voltage sensor reference scales per hub type.
var voltageScales = map[protocol.HubType]scale{
	protocol.HubUnknown:          {9.615, 3893},
	protocol.HubMoveHub:          {9.615, 3893},
	protocol.HubTechnicMediumHub: {9.615, 4095},
	protocol.HubRemoteControl:    {6.4, 3200},
	protocol.HubDuploTrainBase:   {6.4, 3047},
}

// Current sensor reference scales per hub type.
var currentScales = map[protocol.HubType]scale{
	protocol.HubUnknown:          {2444, 4095},
	protocol.HubTechnicMediumHub: {4175, 4095},
}

func scaleFor(table map[protocol.HubType]scale, hub protocol.HubType) scale {
	if s, ok := table[hub]; ok {
		return s
	}
	return table[protocol.HubUnknown]
}

// minLen is the smallest value payload each mode can be decoded from.
func minLen(t Type, mode byte) int {
	w := t.DatasetWidth(mode)
	switch t {
	case TiltSensor, MoveHubTiltSensor:
		return 2
	case MotionSensor:
		return 1
	case ColorDistanceSensor:
		if mode == 0x08 {
			return 4
		}
	case MarioAccelerometer:
		if mode == 0x01 {
			return 2
		}
	}
	return w
}

// Decode turns a value payload for device type t in mode into a Reading.
// data holds only the value bytes: the port id and any dialect envelope
// are already stripped. It reports false for payloads that do not belong
// to the mode (too short, unknown mode, or a sentinel value).
func Decode(t Type, hub protocol.HubType, dialect Dialect, mode byte, data []byte) (Reading, bool) {
	if len(data) < minLen(t, mode) {
		return nil, false
	}
	switch t {
	case TiltSensor:
		if mode != 0x00 {
			return nil, false
		}
		return Tilt{X: wrapTilt(data[0]), Y: wrapTilt(data[1])}, true

	case MoveHubTiltSensor:
		if mode != 0x00 {
			return nil, false
		}
		return Tilt{X: -int(int8(data[0])), Y: int(int8(data[1]))}, true

	case TechnicMediumHubTiltSensor:
		switch mode {
		case 0x00:
			z := -int(protocol.Int16(data, 0))
			y := int(protocol.Int16(data, 2))
			x := int(protocol.Int16(data, 4))
			return Tilt{X: x, Y: y, Z: z}, true
		case 0x01:
			return Count{Value: protocol.Uint32(data, 0)}, true
		}

	case MotionSensor:
		if mode != 0x00 {
			return nil, false
		}
		distance := int(data[0])
		if protocol.Byte(data, 1) == 1 {
			distance += 255
		}
		return Distance{Millimeters: distance * 10}, true

	case ColorDistanceSensor:
		switch mode {
		case 0x00:
			if c := Color(data[0]); c.Valid() {
				return ColorReading{Color: c}, true
			}
		case 0x01:
			if data[0] <= 10 {
				return Distance{Millimeters: int(math.Floor(float64(data[0])*25.4)) - 20}, true
			}
		case 0x02:
			return Count{Value: protocol.Uint32(data, 0)}, true
		case 0x03, 0x04:
			return Percent{Value: int(data[0])}, true
		case 0x06:
			return RGB{
				R: int(protocol.Uint16(data, 0)),
				G: int(protocol.Uint16(data, 2)),
				B: int(protocol.Uint16(data, 4)),
			}, true
		case 0x08:
			color := Color(data[0])
			if !color.Valid() {
				color = NoColor
			}
			distance := float64(data[1])
			if partial := data[3]; partial > 0 {
				distance += 1.0 / float64(partial)
			}
			return ColorAndDistance{
				Color:       color,
				Millimeters: int(math.Floor(distance*25.4)) - 20,
			}, true
		}

	case MediumLinearMotor, MoveHubMediumLinearMotor,
		TechnicLargeLinearMotor, TechnicXLargeLinearMotor,
		TechnicMediumAngularMotor, TechnicLargeAngularMotor,
		TechnicSmallAngularMotor, TechnicMediumAngularMotorGrey,
		TechnicLargeAngularMotorGrey:
		switch mode {
		case 0x02:
			return Rotation{Degrees: protocol.Int32(data, 0)}, true
		case 0x03:
			if t.Class() == ClassAbsoluteMotor {
				return Absolute{Angle: NormalizeAngle(int(protocol.Int16(data, 0)))}, true
			}
		}

	case TechnicMediumHubAccelerometer:
		if mode == 0x00 {
			return Accel{
				X: roundHalfUp(float64(protocol.Int16(data, 0)) / 4.096),
				Y: roundHalfUp(float64(protocol.Int16(data, 2)) / 4.096),
				Z: roundHalfUp(float64(protocol.Int16(data, 4)) / 4.096),
			}, true
		}

	case TechnicMediumHubGyroSensor:
		if mode == 0x00 {
			return Gyro{
				X: roundHalfUp(float64(protocol.Int16(data, 0)) * 7 / 400),
				Y: roundHalfUp(float64(protocol.Int16(data, 2)) * 7 / 400),
				Z: roundHalfUp(float64(protocol.Int16(data, 4)) * 7 / 400),
			}, true
		}

	case TechnicMediumHubTemperature:
		if mode == 0x00 {
			return Temperature{Celsius: float64(protocol.Int16(data, 0)) / 10}, true
		}

	case TechnicMediumHubGestureSensor:
		if mode == 0x00 {
			return Gesture{Code: int(data[0])}, true
		}

	case VoltageSensor:
		if mode != 0x00 {
			return nil, false
		}
		if dialect == DialectWeDo2 {
			return Voltage{Volts: float64(protocol.Int16(data, 0)) / 40}, true
		}
		s := scaleFor(voltageScales, hub)
		return Voltage{Volts: float64(protocol.Uint16(data, 0)) * s.value / s.raw}, true

	case CurrentSensor:
		if mode != 0x00 {
			return nil, false
		}
		if dialect == DialectWeDo2 {
			return Current{MilliAmps: float64(protocol.Int16(data, 0))}, true
		}
		s := scaleFor(currentScales, hub)
		return Current{MilliAmps: float64(protocol.Uint16(data, 0)) * s.value / s.raw}, true

	case RemoteControlButton:
		if mode == 0x00 {
			return Button{State: ButtonState(data[0])}, true
		}

	case RemoteControlRSSI:
		if mode == 0x00 {
			return RSSI{DBm: int(int8(data[0]))}, true
		}

	case DuploTrainBaseColorSensor:
		switch mode {
		case 0x00:
			if c := Color(data[0]); c.Valid() {
				return ColorReading{Color: c}, true
			}
		case 0x02:
			return Percent{Value: int(data[0])}, true
		case 0x03:
			return RGB{
				R: int(protocol.Uint16(data, 0)) / 2,
				G: int(protocol.Uint16(data, 2)) / 2,
				B: int(protocol.Uint16(data, 4)) / 2,
			}, true
		}

	case DuploTrainBaseSpeedometer:
		if mode == 0x00 {
			return Speed{Value: int(protocol.Int16(data, 0))}, true
		}

	case TechnicColorSensor:
		switch mode {
		case 0x00:
			if c := Color(data[0]); c.Valid() {
				return ColorReading{Color: c}, true
			}
		case 0x01, 0x02:
			return Percent{Value: int(data[0])}, true
		}

	case TechnicDistanceSensor:
		if mode == 0x00 || mode == 0x01 {
			return Distance{Millimeters: int(protocol.Uint16(data, 0))}, true
		}

	case TechnicForceSensor:
		switch mode {
		case 0x00:
			return Force{Newtons: float64(data[0]) / 10}, true
		case 0x01:
			return Touch{Touched: data[0] != 0}, true
		case 0x02:
			return Tap{Taps: int(data[0])}, true
		}

	case MarioAccelerometer:
		switch mode {
		case 0x00:
			return Accel{X: int(data[0]), Y: int(data[1]), Z: int(data[2])}, true
		case 0x01:
			return Gesture{Code: int(protocol.Uint16(data, 0))}, true
		}

	case MarioBarcodeSensor:
		switch mode {
		case 0x00:
			r := Barcode{Barcode: -1, Color: -1}
			if code := protocol.Uint16(data, 0); code != 0xffff {
				r.Barcode = int(code)
			} else if color := protocol.Uint16(data, 2); color != 0xffff {
				r.Color = int(color)
			} else {
				return nil, false
			}
			return r, true
		case 0x01:
			return RGB{R: int(data[0]), G: int(data[2]), B: int(data[4])}, true
		}

	case MarioPantsSensor:
		if mode == 0x00 {
			return Pants{Code: int(data[0])}, true
		}

	case Unknown, SimpleMediumLinearMotor, TrainMotor, Light, PiezoBuzzer,
		HubLED, DuploTrainBaseMotor, DuploTrainBaseSpeaker,
		Technic3x3ColorLightMatrix:
		// output-only devices
	}
	return nil, false
}

// wrapTilt maps a raw tilt byte to a signed angle: values above 160 wrap
// around to negative.
func wrapTilt(raw byte) int {
	if raw > 160 {
		return int(raw) - 255
	}
	return int(raw)
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// Package device models the motors, sensors and lights that attach to hub
// ports: the closed set of device types, their mode maps, payload decoding
// and output command encoding for both wire dialects.
package device

import (
	"fmt"
	"slices"
)

// Type is the device type id reported in an attach event.
type Type uint16

const (
	Unknown                       Type = 0
	SimpleMediumLinearMotor       Type = 1
	TrainMotor                    Type = 2
	Light                         Type = 8
	VoltageSensor                 Type = 20
	CurrentSensor                 Type = 21
	PiezoBuzzer                   Type = 22
	HubLED                        Type = 23
	TiltSensor                    Type = 34
	MotionSensor                  Type = 35
	ColorDistanceSensor           Type = 37
	MediumLinearMotor             Type = 38
	MoveHubMediumLinearMotor      Type = 39
	MoveHubTiltSensor             Type = 40
	DuploTrainBaseMotor           Type = 41
	DuploTrainBaseSpeaker         Type = 42
	DuploTrainBaseColorSensor     Type = 43
	DuploTrainBaseSpeedometer     Type = 44
	TechnicLargeLinearMotor       Type = 46
	TechnicXLargeLinearMotor      Type = 47
	TechnicMediumAngularMotor     Type = 48
	TechnicLargeAngularMotor      Type = 49
	TechnicMediumHubGestureSensor Type = 54
	RemoteControlButton           Type = 55
	RemoteControlRSSI             Type = 56
	TechnicMediumHubAccelerometer Type = 57
	TechnicMediumHubGyroSensor    Type = 58
	TechnicMediumHubTiltSensor    Type = 59
	TechnicMediumHubTemperature   Type = 60
	TechnicColorSensor            Type = 61
	TechnicDistanceSensor         Type = 62
	TechnicForceSensor            Type = 63
	Technic3x3ColorLightMatrix    Type = 64
	TechnicSmallAngularMotor      Type = 65
	MarioAccelerometer            Type = 71
	MarioBarcodeSensor            Type = 73
	MarioPantsSensor              Type = 74
	TechnicMediumAngularMotorGrey Type = 75
	TechnicLargeAngularMotorGrey  Type = 76
)

// Class groups device types that share a command surface.
type Class uint8

const (
	ClassUnknown Class = iota
	ClassSensor
	ClassBasicMotor
	ClassTachoMotor
	ClassAbsoluteMotor
	ClassLight
	ClassHubLED
	ClassSpeaker
	ClassMatrix
)

// Capabilities reported by sensors, keyed by name in mode maps.
const (
	CapTilt             = "tilt"
	CapDistance         = "distance"
	CapFastDistance     = "fastDistance"
	CapDistanceCount    = "distanceCount"
	CapColor            = "color"
	CapColorAndDistance = "colorAndDistance"
	CapReflect          = "reflect"
	CapAmbient          = "ambient"
	CapRGB              = "rgbIntensity"
	CapRotate           = "rotate"
	CapAbsolute         = "absolute"
	CapAccel            = "accel"
	CapGyro             = "gyro"
	CapVoltage          = "voltage"
	CapCurrent          = "current"
	CapButton           = "button"
	CapTemperature      = "temperature"
	CapSpeed            = "speed"
	CapForce            = "force"
	CapTouched          = "touched"
	CapTapped           = "tapped"
	CapGesture          = "gesture"
	CapRSSI             = "rssi"
	CapImpactCount      = "impactCount"
	CapBarcode          = "barcode"
	CapPants            = "pants"
)

// Output modes used by command encoders.
const (
	ModeMotorPower      byte = 0x00
	ModeMotorPreset     byte = 0x02
	ModeLEDColor        byte = 0x00
	ModeLEDRGB          byte = 0x01
	ModeColorDistLED    byte = 0x05
	ModeSpeakerSound    byte = 0x01
	ModeSpeakerTone     byte = 0x02
	ModeMatrixPixels    byte = 0x02
	ModeTechnicColorLED byte = 0x03
	ModeTechnicDistLED  byte = 0x05
)

type descriptor struct {
	name       string
	class      Class
	modes      map[string]byte
	widths     map[byte]int // bytes per combined-mode dataset; 1 when absent
	combinable bool
}

var (
	tachoModes    = map[string]byte{CapRotate: 0x02}
	absoluteModes = map[string]byte{CapRotate: 0x02, CapAbsolute: 0x03}
	motorWidths   = map[byte]int{0x02: 4, 0x03: 2}
)

var descriptors = map[Type]descriptor{
	Unknown:                 {name: "UNKNOWN", class: ClassUnknown},
	SimpleMediumLinearMotor: {name: "SIMPLE_MEDIUM_LINEAR_MOTOR", class: ClassBasicMotor},
	TrainMotor:              {name: "TRAIN_MOTOR", class: ClassBasicMotor},
	Light:                   {name: "LIGHT", class: ClassLight},
	VoltageSensor:           {name: "VOLTAGE_SENSOR", class: ClassSensor, modes: map[string]byte{CapVoltage: 0x00}, widths: map[byte]int{0x00: 2}},
	CurrentSensor:           {name: "CURRENT_SENSOR", class: ClassSensor, modes: map[string]byte{CapCurrent: 0x00}, widths: map[byte]int{0x00: 2}},
	PiezoBuzzer:             {name: "PIEZO_BUZZER", class: ClassSpeaker},
	HubLED:                  {name: "HUB_LED", class: ClassHubLED},
	TiltSensor:              {name: "TILT_SENSOR", class: ClassSensor, modes: map[string]byte{CapTilt: 0x00}},
	MotionSensor:            {name: "MOTION_SENSOR", class: ClassSensor, modes: map[string]byte{CapDistance: 0x00}},
	ColorDistanceSensor: {
		name:  "COLOR_DISTANCE_SENSOR",
		class: ClassSensor,
		modes: map[string]byte{
			CapColor:            0x00,
			CapDistance:         0x01,
			CapDistanceCount:    0x02,
			CapReflect:          0x03,
			CapAmbient:          0x04,
			CapRGB:              0x06,
			CapColorAndDistance: 0x08,
		},
		widths:     map[byte]int{0x02: 4, 0x06: 6},
		combinable: true,
	},
	MediumLinearMotor:             {name: "MEDIUM_LINEAR_MOTOR", class: ClassTachoMotor, modes: tachoModes, widths: motorWidths, combinable: true},
	MoveHubMediumLinearMotor:      {name: "MOVE_HUB_MEDIUM_LINEAR_MOTOR", class: ClassTachoMotor, modes: tachoModes, widths: motorWidths, combinable: true},
	MoveHubTiltSensor:             {name: "MOVE_HUB_TILT_SENSOR", class: ClassSensor, modes: map[string]byte{CapTilt: 0x00}},
	DuploTrainBaseMotor:           {name: "DUPLO_TRAIN_BASE_MOTOR", class: ClassBasicMotor},
	DuploTrainBaseSpeaker:         {name: "DUPLO_TRAIN_BASE_SPEAKER", class: ClassSpeaker},
	DuploTrainBaseColorSensor:     {name: "DUPLO_TRAIN_BASE_COLOR_SENSOR", class: ClassSensor, modes: map[string]byte{CapColor: 0x00, CapReflect: 0x02, CapRGB: 0x03}, widths: map[byte]int{0x03: 6}},
	DuploTrainBaseSpeedometer:     {name: "DUPLO_TRAIN_BASE_SPEEDOMETER", class: ClassSensor, modes: map[string]byte{CapSpeed: 0x00}, widths: map[byte]int{0x00: 2}},
	TechnicLargeLinearMotor:       {name: "TECHNIC_LARGE_LINEAR_MOTOR", class: ClassAbsoluteMotor, modes: absoluteModes, widths: motorWidths, combinable: true},
	TechnicXLargeLinearMotor:      {name: "TECHNIC_XLARGE_LINEAR_MOTOR", class: ClassAbsoluteMotor, modes: absoluteModes, widths: motorWidths, combinable: true},
	TechnicMediumAngularMotor:     {name: "TECHNIC_MEDIUM_ANGULAR_MOTOR", class: ClassAbsoluteMotor, modes: absoluteModes, widths: motorWidths, combinable: true},
	TechnicLargeAngularMotor:      {name: "TECHNIC_LARGE_ANGULAR_MOTOR", class: ClassAbsoluteMotor, modes: absoluteModes, widths: motorWidths, combinable: true},
	TechnicMediumHubGestureSensor: {name: "TECHNIC_MEDIUM_HUB_GESTURE_SENSOR", class: ClassSensor, modes: map[string]byte{CapGesture: 0x00}},
	RemoteControlButton:           {name: "REMOTE_CONTROL_BUTTON", class: ClassSensor, modes: map[string]byte{CapButton: 0x00}},
	RemoteControlRSSI:             {name: "REMOTE_CONTROL_RSSI", class: ClassSensor, modes: map[string]byte{CapRSSI: 0x00}},
	TechnicMediumHubAccelerometer: {name: "TECHNIC_MEDIUM_HUB_ACCELEROMETER", class: ClassSensor, modes: map[string]byte{CapAccel: 0x00}, widths: map[byte]int{0x00: 6}},
	TechnicMediumHubGyroSensor:    {name: "TECHNIC_MEDIUM_HUB_GYRO_SENSOR", class: ClassSensor, modes: map[string]byte{CapGyro: 0x00}, widths: map[byte]int{0x00: 6}},
	TechnicMediumHubTiltSensor:    {name: "TECHNIC_MEDIUM_HUB_TILT_SENSOR", class: ClassSensor, modes: map[string]byte{CapTilt: 0x00, CapImpactCount: 0x01}, widths: map[byte]int{0x00: 6, 0x01: 4}},
	TechnicMediumHubTemperature:   {name: "TECHNIC_MEDIUM_HUB_TEMPERATURE_SENSOR", class: ClassSensor, modes: map[string]byte{CapTemperature: 0x00}, widths: map[byte]int{0x00: 2}},
	TechnicColorSensor:            {name: "TECHNIC_COLOR_SENSOR", class: ClassSensor, modes: map[string]byte{CapColor: 0x00, CapReflect: 0x01, CapAmbient: 0x02}, combinable: true},
	TechnicDistanceSensor:         {name: "TECHNIC_DISTANCE_SENSOR", class: ClassSensor, modes: map[string]byte{CapDistance: 0x00, CapFastDistance: 0x01}, widths: map[byte]int{0x00: 2, 0x01: 2}},
	TechnicForceSensor:            {name: "TECHNIC_FORCE_SENSOR", class: ClassSensor, modes: map[string]byte{CapForce: 0x00, CapTouched: 0x01, CapTapped: 0x02}},
	Technic3x3ColorLightMatrix:    {name: "TECHNIC_3X3_COLOR_LIGHT_MATRIX", class: ClassMatrix},
	TechnicSmallAngularMotor:      {name: "TECHNIC_SMALL_ANGULAR_MOTOR", class: ClassAbsoluteMotor, modes: absoluteModes, widths: motorWidths, combinable: true},
	MarioAccelerometer:            {name: "MARIO_ACCELEROMETER", class: ClassSensor, modes: map[string]byte{CapAccel: 0x00, CapGesture: 0x01}, widths: map[byte]int{0x00: 3, 0x01: 4}},
	MarioBarcodeSensor:            {name: "MARIO_BARCODE_SENSOR", class: ClassSensor, modes: map[string]byte{CapBarcode: 0x00, CapRGB: 0x01}, widths: map[byte]int{0x00: 4, 0x01: 6}},
	MarioPantsSensor:              {name: "MARIO_PANTS_SENSOR", class: ClassSensor, modes: map[string]byte{CapPants: 0x00}},
	TechnicMediumAngularMotorGrey: {name: "TECHNIC_MEDIUM_ANGULAR_MOTOR_GREY", class: ClassAbsoluteMotor, modes: absoluteModes, widths: motorWidths, combinable: true},
	TechnicLargeAngularMotorGrey:  {name: "TECHNIC_LARGE_ANGULAR_MOTOR_GREY", class: ClassAbsoluteMotor, modes: absoluteModes, widths: motorWidths, combinable: true},
}

func (t Type) String() string {
	if d, ok := descriptors[t]; ok {
		return d.name
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint16(t))
}

// Known reports whether t is one of the modelled device types.
func (t Type) Known() bool {
	_, ok := descriptors[t]
	return ok && t != Unknown
}

// Class returns the command surface of t.
func (t Type) Class() Class {
	return descriptors[t].class
}

// IsMotor reports whether t accepts power/speed commands.
func (t Type) IsMotor() bool {
	switch t.Class() {
	case ClassBasicMotor, ClassTachoMotor, ClassAbsoluteMotor:
		return true
	}
	return false
}

// IsTacho reports whether t has a rotation encoder and reports command
// completion itself.
func (t Type) IsTacho() bool {
	switch t.Class() {
	case ClassTachoMotor, ClassAbsoluteMotor:
		return true
	}
	return false
}

// Combinable reports whether t supports multiplexed multi-mode reporting.
func (t Type) Combinable() bool {
	return descriptors[t].combinable
}

// Mode returns the mode number for a capability name.
func (t Type) Mode(capability string) (byte, bool) {
	m, ok := descriptors[t].modes[capability]
	return m, ok
}

// Capability returns the capability name for a mode number.
func (t Type) Capability(mode byte) (string, bool) {
	for name, m := range descriptors[t].modes {
		if m == mode {
			return name, true
		}
	}
	return "", false
}

// Capabilities returns every capability name t reports, sorted.
func (t Type) Capabilities() []string {
	modes := descriptors[t].modes
	out := make([]string, 0, len(modes))
	for name := range modes {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// DatasetWidth is the byte width of one dataset of mode in a combined
// value report.
func (t Type) DatasetWidth(mode byte) int {
	if w, ok := descriptors[t].widths[mode]; ok {
		return w
	}
	return 1
}

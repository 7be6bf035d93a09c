package device

import "fmt"

// Color is an LPF2 color index.
type Color uint8

const (
	Black     Color = 0
	Pink      Color = 1
	Purple    Color = 2
	Blue      Color = 3
	LightBlue Color = 4
	Cyan      Color = 5
	Green     Color = 6
	Yellow    Color = 7
	Orange    Color = 8
	Red       Color = 9
	White     Color = 10
	NoColor   Color = 255
)

// Valid reports whether c names a real color rather than the no-color sentinel.
func (c Color) Valid() bool {
	return c <= White
}

func (c Color) String() string {
	switch c {
	case Black:
		return "black"
	case Pink:
		return "pink"
	case Purple:
		return "purple"
	case Blue:
		return "blue"
	case LightBlue:
		return "light-blue"
	case Cyan:
		return "cyan"
	case Green:
		return "green"
	case Yellow:
		return "yellow"
	case Orange:
		return "orange"
	case Red:
		return "red"
	case White:
		return "white"
	case NoColor:
		return "none"
	default:
		return fmt.Sprintf("color(%d)", uint8(c))
	}
}

// ButtonState is a hub or remote control button event.
type ButtonState uint8

const (
	ButtonReleased ButtonState = 0
	ButtonUp       ButtonState = 1
	ButtonPressed  ButtonState = 2
	ButtonStop     ButtonState = 127
	ButtonDown     ButtonState = 255
)

func (b ButtonState) String() string {
	switch b {
	case ButtonReleased:
		return "released"
	case ButtonUp:
		return "up"
	case ButtonPressed:
		return "pressed"
	case ButtonStop:
		return "stop"
	case ButtonDown:
		return "down"
	default:
		return fmt.Sprintf("button(%d)", uint8(b))
	}
}

// BrakingStyle is how a tacho motor ends a positioned or timed command.
type BrakingStyle uint8

const (
	BrakeFloat BrakingStyle = 0
	BrakeHold  BrakingStyle = 126
	BrakeBrake BrakingStyle = 127
)

// Sound is a Duplo train base sound effect.
type Sound uint8

const (
	SoundBrake            Sound = 3
	SoundStationDeparture Sound = 5
	SoundWaterRefill      Sound = 7
	SoundHorn             Sound = 9
	SoundSteam            Sound = 10
)

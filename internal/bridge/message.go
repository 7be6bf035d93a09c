// Package bridge exposes a connected hub to websocket clients. Clients get
// a snapshot of the hub on connect, every hub event, and the readings of
// the capabilities they subscribe to; they drive motors and lights with
// JSON requests.
package bridge

import (
	"time"

	"github.com/chaz8081/hubctl/internal/device"
	"github.com/chaz8081/hubctl/internal/hub"
)

// Message types sent to clients.
const (
	TypeHub     = "hub"
	TypeEvent   = "event"
	TypeReading = "reading"
	TypeResult  = "result"
)

// Message is one JSON frame sent to a client.
type Message struct {
	Type       string   `json:"type"`
	ID         int      `json:"id,omitempty"`
	Hub        *HubInfo `json:"hub,omitempty"`
	Event      string   `json:"event,omitempty"`
	Port       string   `json:"port,omitempty"`
	Device     string   `json:"device,omitempty"`
	Capability string   `json:"capability,omitempty"`
	Value      any      `json:"value,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// HubInfo is the hub snapshot sent on connect.
type HubInfo struct {
	Name     string       `json:"name"`
	Type     string       `json:"type"`
	Firmware string       `json:"firmware,omitempty"`
	Battery  int          `json:"battery"`
	Ports    []PortStatus `json:"ports"`
}

// PortStatus describes one occupied port.
type PortStatus struct {
	Port         string   `json:"port"`
	Device       string   `json:"device"`
	Virtual      bool     `json:"virtual,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// Request ops.
const (
	OpSubscribe   = "subscribe"
	OpUnsubscribe = "unsubscribe"
	OpPower       = "power"
	OpSpeed       = "speed"
	OpStop        = "stop"
	OpBrake       = "brake"
	OpRotate      = "rotate"
	OpAngle       = "angle"
	OpColor       = "color"
	OpBrightness  = "brightness"
)

// Request is one JSON frame received from a client. Value is the power,
// speed, degrees, angle, color or brightness argument of the op.
type Request struct {
	ID         int    `json:"id"`
	Op         string `json:"op"`
	Port       string `json:"port"`
	Capability string `json:"capability,omitempty"`
	Value      int    `json:"value,omitempty"`
	Speed      int    `json:"speed,omitempty"`
	DurationMS int    `json:"duration_ms,omitempty"`
}

func (r Request) duration() time.Duration {
	return time.Duration(r.DurationMS) * time.Millisecond
}

func eventMessage(ev hub.Event) Message {
	m := Message{Type: TypeEvent, Event: ev.Kind.String()}
	switch ev.Kind {
	case hub.EventAttach, hub.EventDetach:
		m.Port = ev.Attachment.Port
		m.Device = ev.Attachment.Type.String()
	case hub.EventButton:
		m.Value = ev.Button.String()
	case hub.EventBattery, hub.EventRSSI:
		m.Value = ev.Value
	}
	return m
}

func readingMessage(r hub.Reading) Message {
	return Message{
		Type:       TypeReading,
		Port:       r.Port,
		Capability: r.Capability,
		Value:      readingValue(r.Value),
	}
}

// readingValue flattens single-field readings to their value. Colors are
// sent by name.
func readingValue(r device.Reading) any {
	switch v := r.(type) {
	case device.ColorReading:
		return v.Color.String()
	case device.ColorAndDistance:
		return map[string]any{"color": v.Color.String(), "millimeters": v.Millimeters}
	case device.Distance:
		return v.Millimeters
	case device.Rotation:
		return v.Degrees
	case device.Absolute:
		return v.Angle
	case device.Percent:
		return v.Value
	case device.Speed:
		return v.Value
	case device.Count:
		return v.Value
	case device.Voltage:
		return v.Volts
	case device.Current:
		return v.MilliAmps
	case device.Temperature:
		return v.Celsius
	case device.Force:
		return v.Newtons
	case device.Touch:
		return v.Touched
	case device.Tap:
		return v.Taps
	case device.Button:
		return v.State.String()
	default:
		return r
	}
}

func snapshot(e Engine) *HubInfo {
	info := &HubInfo{
		Name:     e.Name(),
		Type:     e.Type().String(),
		Firmware: e.FirmwareVersion(),
		Battery:  e.BatteryLevel(),
		Ports:    []PortStatus{},
	}
	for _, a := range e.Attachments() {
		info.Ports = append(info.Ports, PortStatus{
			Port:         a.Port,
			Device:       a.Type.String(),
			Virtual:      a.Virtual,
			Capabilities: a.Type.Capabilities(),
		})
	}
	return info
}

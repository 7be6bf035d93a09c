package main

import (
	"fmt"
	"strings"

	"github.com/chaz8081/hubctl/internal/device"
	"github.com/chaz8081/hubctl/internal/hub"
)

// formatReading renders a reading for terminal output.
func formatReading(r device.Reading) string {
	switch v := r.(type) {
	case device.Tilt:
		return fmt.Sprintf("x=%d y=%d z=%d", v.X, v.Y, v.Z)
	case device.Accel:
		return fmt.Sprintf("x=%d y=%d z=%d mg", v.X, v.Y, v.Z)
	case device.Gyro:
		return fmt.Sprintf("x=%d y=%d z=%d dps", v.X, v.Y, v.Z)
	case device.Distance:
		return fmt.Sprintf("%d mm", v.Millimeters)
	case device.ColorReading:
		return v.Color.String()
	case device.ColorAndDistance:
		return fmt.Sprintf("%s %d mm", v.Color, v.Millimeters)
	case device.Rotation:
		return fmt.Sprintf("%d°", v.Degrees)
	case device.Absolute:
		return fmt.Sprintf("%d°", v.Angle)
	case device.Voltage:
		return fmt.Sprintf("%.2f V", v.Volts)
	case device.Current:
		return fmt.Sprintf("%.0f mA", v.MilliAmps)
	case device.Temperature:
		return fmt.Sprintf("%.1f °C", v.Celsius)
	case device.Force:
		return fmt.Sprintf("%.1f N", v.Newtons)
	case device.Percent:
		return fmt.Sprintf("%d%%", v.Value)
	case device.RGB:
		return fmt.Sprintf("r=%d g=%d b=%d", v.R, v.G, v.B)
	case device.Button:
		return v.State.String()
	case device.RSSI:
		return fmt.Sprintf("%d dBm", v.DBm)
	default:
		return fmt.Sprintf("%+v", r)
	}
}

// formatAttachment renders an occupied port as "A  TECHNIC_LARGE_LINEAR_MOTOR (hw 1.0.0.0 sw 1.0.0.0)".
func formatAttachment(a hub.Attachment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-8s %s", a.Port, a.Type)
	if a.Virtual {
		b.WriteString(" [virtual]")
	}
	if a.HardwareVersion != "" || a.SoftwareVersion != "" {
		fmt.Fprintf(&b, " (hw %s sw %s)", a.HardwareVersion, a.SoftwareVersion)
	}
	return b.String()
}

// formatPortModes renders the mode numbers a port reported.
func formatPortModes(pi hub.PortInfo) string {
	return fmt.Sprintf("modes: in %v out %v", pi.InputModeNumbers(), pi.OutputModeNumbers())
}

// formatEvent renders a hub event as one line.
func formatEvent(ev hub.Event) string {
	switch ev.Kind {
	case hub.EventAttach, hub.EventDetach:
		return fmt.Sprintf("%s %s %s", ev.Kind, ev.Attachment.Port, ev.Attachment.Type)
	case hub.EventButton:
		return fmt.Sprintf("button %s", ev.Button)
	case hub.EventBattery:
		return fmt.Sprintf("battery %d%%", ev.Value)
	case hub.EventRSSI:
		return fmt.Sprintf("rssi %d dBm", ev.Value)
	default:
		return ev.Kind.String()
	}
}

package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chaz8081/hubctl/internal/ble"
	"github.com/chaz8081/hubctl/internal/capture"
	"github.com/chaz8081/hubctl/internal/config"
	"github.com/chaz8081/hubctl/internal/device"
	"github.com/chaz8081/hubctl/internal/hub"
	"github.com/chaz8081/hubctl/internal/protocol"
)

func TestFormatReading(t *testing.T) {
	tests := []struct {
		in   device.Reading
		want string
	}{
		{device.Tilt{X: 10, Y: -5}, "x=10 y=-5 z=0"},
		{device.Distance{Millimeters: 157}, "157 mm"},
		{device.ColorReading{Color: device.Red}, "red"},
		{device.ColorAndDistance{Color: device.Blue, Millimeters: 40}, "blue 40 mm"},
		{device.Rotation{Degrees: 90}, "90°"},
		{device.Voltage{Volts: 7.5}, "7.50 V"},
		{device.Percent{Value: 42}, "42%"},
		{device.Count{Value: 3}, "{Value:3}"},
	}
	for _, tt := range tests {
		if got := formatReading(tt.in); got != tt.want {
			t.Errorf("formatReading(%+v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		ev   hub.Event
		want string
	}{
		{hub.Event{Kind: hub.EventAttach, Attachment: hub.Attachment{Port: "A", Type: device.TiltSensor}}, "attach A " + device.TiltSensor.String()},
		{hub.Event{Kind: hub.EventBattery, Value: 80}, "battery 80%"},
		{hub.Event{Kind: hub.EventButton, Button: device.ButtonPressed}, "button pressed"},
		{hub.Event{Kind: hub.EventDisconnect}, "disconnect"},
	}
	for _, tt := range tests {
		if got := formatEvent(tt.ev); got != tt.want {
			t.Errorf("formatEvent(%+v) = %q, want %q", tt.ev, got, tt.want)
		}
	}
}

func TestParseSubscriptions(t *testing.T) {
	subs, err := parseSubscriptions([]string{"A:tilt", "C:color,distance"})
	if err != nil {
		t.Fatalf("parseSubscriptions() error = %v", err)
	}
	if got := subs["A"]; len(got) != 1 || got[0] != "tilt" {
		t.Errorf("A = %v", got)
	}
	if got := subs["C"]; len(got) != 2 || got[1] != "distance" {
		t.Errorf("C = %v", got)
	}

	for _, bad := range []string{"A", ":tilt", "A:"} {
		if _, err := parseSubscriptions([]string{bad}); err == nil {
			t.Errorf("parseSubscriptions(%q) should fail", bad)
		}
	}
}

func TestFilterHubs(t *testing.T) {
	lpf2 := func(name, addr string, system byte) ble.Advertisement {
		return ble.Advertisement{
			Name:             name,
			Address:          addr,
			ServiceUUIDs:     []string{protocol.LPF2HubServiceUUID},
			ManufacturerData: map[uint16][]byte{protocol.LEGOCompanyID: {0x00, system}},
		}
	}
	ads := []ble.Advertisement{
		lpf2("Technic Hub", "90:84:2B:00:00:01", protocol.SystemTechnicMediumHub),
		lpf2("Train", "90:84:2B:00:00:02", protocol.SystemHub),
		{Name: "Headphones", Address: "00:11:22:33:44:55"},
		{Name: "Smart Hub", Address: "A0:E6:F8:00:00:03", ServiceUUIDs: []string{protocol.WeDo2HubServiceUUID}},
	}

	if got := filterHubs(ads, "", ""); len(got) != 3 {
		t.Fatalf("filterHubs() = %d hubs, want 3", len(got))
	}
	got := filterHubs(ads, "Train", "")
	if len(got) != 1 || got[0].hubType != protocol.HubHub {
		t.Errorf("name filter = %+v", got)
	}
	got = filterHubs(ads, "", "a0:e6:f8:00:00:03")
	if len(got) != 1 || got[0].hubType != protocol.HubWeDo2SmartHub {
		t.Errorf("address filter = %+v", got)
	}
}

func TestFilterHubsLogsIgnoredAdvertisement(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	filterHubs([]ble.Advertisement{{Name: "Headphones", Address: "00:11:22:33:44:55"}}, "", "")
	if !strings.Contains(buf.String(), "[HUBCTL] ignoring advertisement") {
		t.Errorf("log = %q, want a prefixed ignore message", buf.String())
	}
}

func TestClientOptionsFromConfig(t *testing.T) {
	hc := config.Default().Hub
	hc.WriteDelay = 15 * time.Millisecond
	opts := clientOptions(hc)
	if opts.WriteDelay != 15*time.Millisecond || opts.ConnectTimeout != hc.ConnectTimeout {
		t.Errorf("clientOptions() = %+v", opts)
	}
}

func TestFormatPortModes(t *testing.T) {
	pi := hub.PortInfo{ModeCount: 6, InputModes: 0x1e, OutputModes: 0x01}
	if got, want := formatPortModes(pi), "modes: in [1 2 3 4] out [0]"; got != want {
		t.Errorf("formatPortModes() = %q, want %q", got, want)
	}
}

func TestReplayPrintsReadings(t *testing.T) {
	header := capture.Header{Version: capture.Version, HubType: protocol.HubWeDo2SmartHub, Name: "Smart Hub"}
	player := capture.NewPlayer(header, []capture.Record{
		{Direction: capture.Read, Char: protocol.FirmwareRevisionCharUUID, Data: []byte("1.0.0.0224")},
		{Direction: capture.Read, Char: protocol.BatteryLevelCharUUID, Data: []byte{90}},
		{Direction: capture.In, Char: protocol.WeDo2PortTypeCharUUID, Data: []byte{0x01, 0x01, 0x00, 0x22}},
		{Direction: capture.Out, Char: protocol.WeDo2PortTypeWriteCharUUID},
		{Direction: capture.In, Char: protocol.WeDo2SensorValueCharUUID, Data: []byte{0x00, 0x01, 10, 250}},
	}, capture.DefaultPlayerOptions())
	h := hub.New(player, header.HubType, hub.DefaultOptions())
	if err := h.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer h.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var out bytes.Buffer
	if err := replay(ctx, &out, h, player, map[string][]string{"A": {device.CapTilt}}); err != nil {
		t.Fatalf("replay() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{"tilt", "x=10 y=-5 z=0", "Replay finished: engine wrote 1 messages", "Smart Hub"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if n := strings.Count(got, "x=10 y=-5 z=0"); n != 1 {
		t.Errorf("reading printed %d times, want 1", n)
	}
}

// fakeHubView is a static hubView.
type fakeHubView struct {
	ports []hub.Attachment
}

func (f *fakeHubView) Name() string                  { return "Technic Hub" }
func (f *fakeHubView) Type() protocol.HubType        { return protocol.HubTechnicMediumHub }
func (f *fakeHubView) FirmwareVersion() string       { return "1.1.0.0" }
func (f *fakeHubView) BatteryLevel() int             { return 90 }
func (f *fakeHubView) RSSI() int                     { return -60 }
func (f *fakeHubView) Attachments() []hub.Attachment { return f.ports }

func TestDashboardModel(t *testing.T) {
	view := &fakeHubView{}
	var m tea.Model = newDashboardModel(view)

	view.ports = []hub.Attachment{{Port: "A", Type: device.TechnicLargeLinearMotor}}
	m, _ = m.Update(eventMsg(hub.Event{Kind: hub.EventAttach, Attachment: view.ports[0]}))
	m, _ = m.Update(readingMsg(hub.Reading{Port: "A", Capability: device.CapRotate, Value: device.Rotation{Degrees: 45}}))
	m, _ = m.Update(eventMsg(hub.Event{Kind: hub.EventBattery, Value: 55}))

	dm := m.(dashboardModel)
	if len(dm.ports) != 1 || dm.battery != 55 {
		t.Errorf("ports %v battery %d", dm.ports, dm.battery)
	}
	if line := dm.readings["A/"+device.CapRotate]; line == nil || line.value != "45°" || line.count != 1 {
		t.Errorf("reading line = %+v", line)
	}
	if len(dm.log) != 2 {
		t.Errorf("log has %d entries, want 2", len(dm.log))
	}

	v := m.View()
	for _, want := range []string{"Technic Hub", "55%", "45°", device.TechnicLargeLinearMotor.String()} {
		if !strings.Contains(v, want) {
			t.Errorf("View() missing %q", want)
		}
	}

	m, _ = m.Update(eventMsg(hub.Event{Kind: hub.EventDetach, Attachment: view.ports[0]}))
	if dm := m.(dashboardModel); len(dm.readings) != 0 {
		t.Errorf("readings kept after detach: %v", dm.readings)
	}

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil || !m.(dashboardModel).quitting {
		t.Error("q should quit")
	}
}

func TestDashboardLogLimit(t *testing.T) {
	var m tea.Model = newDashboardModel(&fakeHubView{})
	for i := range 25 {
		m, _ = m.Update(logMsg{text: strings.Repeat("x", i)})
	}
	if n := len(m.(dashboardModel).log); n != 10 {
		t.Errorf("log has %d entries, want 10", n)
	}
}

package bridge

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chaz8081/hubctl/internal/capture"
	"github.com/chaz8081/hubctl/internal/device"
	"github.com/chaz8081/hubctl/internal/hub"
	"github.com/chaz8081/hubctl/internal/protocol"
)

// replayHub connects a WeDo 2.0 hub to a capture with a tilt sensor on
// port A whose first reading follows the input setup write.
func replayHub(t *testing.T) *hub.Hub {
	t.Helper()
	header := capture.Header{Version: capture.Version, HubType: protocol.HubWeDo2SmartHub, Name: "Smart Hub"}
	p := capture.NewPlayer(header, []capture.Record{
		{Direction: capture.Read, Char: protocol.FirmwareRevisionCharUUID, Data: []byte("1.0.0.0224")},
		{Direction: capture.Read, Char: protocol.BatteryLevelCharUUID, Data: []byte{64}},
		{Direction: capture.In, Char: protocol.WeDo2PortTypeCharUUID, Data: []byte{0x01, 0x01, 0x00, 0x22}},
		{Direction: capture.Out, Char: protocol.WeDo2PortTypeWriteCharUUID},
		{Direction: capture.In, Char: protocol.WeDo2SensorValueCharUUID, Data: []byte{0x00, 0x01, 10, 250}},
	}, capture.DefaultPlayerOptions())

	h := hub.New(p, header.HubType, hub.DefaultOptions())
	if err := h.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = h.Disconnect() })

	deadline := time.Now().Add(time.Second)
	for {
		if _, err := h.Attachment("A"); err == nil {
			return h
		}
		if time.Now().After(deadline) {
			t.Fatal("tilt sensor never attached")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func dial(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var m Message
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return m
}

func TestBridgeSnapshot(t *testing.T) {
	h := replayHub(t)
	conn := dial(t, NewServer(h))

	m := readMessage(t, conn)
	if m.Type != TypeHub || m.Hub == nil {
		t.Fatalf("first message = %+v, want hub snapshot", m)
	}
	if m.Hub.Name != "Smart Hub" || m.Hub.Type != "WEDO2_SMART_HUB" || m.Hub.Battery != 64 {
		t.Errorf("snapshot = %+v", m.Hub)
	}
	if len(m.Hub.Ports) != 1 || m.Hub.Ports[0].Port != "A" || m.Hub.Ports[0].Device != device.TiltSensor.String() {
		t.Errorf("ports = %+v", m.Hub.Ports)
	}
}

func TestBridgeSubscribeStreamsReadings(t *testing.T) {
	h := replayHub(t)
	conn := dial(t, NewServer(h))
	readMessage(t, conn)

	if err := conn.WriteJSON(Request{ID: 1, Op: OpSubscribe, Port: "A", Capability: device.CapTilt}); err != nil {
		t.Fatal(err)
	}

	var gotResult, gotReading bool
	for !gotResult || !gotReading {
		m := readMessage(t, conn)
		switch m.Type {
		case TypeResult:
			if m.ID != 1 || m.Error != "" {
				t.Fatalf("result = %+v", m)
			}
			gotResult = true
		case TypeReading:
			v, ok := m.Value.(map[string]any)
			if !ok || m.Capability != device.CapTilt || v["X"] != float64(10) || v["Y"] != float64(-5) {
				t.Fatalf("reading = %+v", m)
			}
			gotReading = true
		}
	}
}

func TestBridgeCommandError(t *testing.T) {
	h := replayHub(t)
	conn := dial(t, NewServer(h))
	readMessage(t, conn)

	if err := conn.WriteJSON(Request{ID: 7, Op: OpPower, Port: "Z", Value: 50}); err != nil {
		t.Fatal(err)
	}
	m := readMessage(t, conn)
	if m.Type != TypeResult || m.ID != 7 || m.Error == "" {
		t.Errorf("result = %+v, want an unknown port error", m)
	}

	if err := conn.WriteJSON(Request{ID: 8, Op: "dance", Port: "A"}); err != nil {
		t.Fatal(err)
	}
	m = readMessage(t, conn)
	if m.ID != 8 || !strings.Contains(m.Error, "unknown op") {
		t.Errorf("result = %+v", m)
	}
}

func TestBridgeBroadcastsEvents(t *testing.T) {
	h := replayHub(t)
	s := NewServer(h)
	conn := dial(t, s)
	readMessage(t, conn)

	deadline := time.Now().Add(time.Second)
	for s.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	s.broadcast(eventMessage(hub.Event{Kind: hub.EventBattery, Value: 50}))

	m := readMessage(t, conn)
	if m.Type != TypeEvent || m.Event != "battery" || m.Value != float64(50) {
		t.Errorf("event = %+v", m)
	}
}

func TestReadingValue(t *testing.T) {
	tests := []struct {
		in   device.Reading
		want any
	}{
		{device.Distance{Millimeters: 120}, 120},
		{device.ColorReading{Color: device.Blue}, device.Blue.String()},
		{device.Rotation{Degrees: -90}, int32(-90)},
		{device.Touch{Touched: true}, true},
		{device.Tilt{X: 1, Y: 2}, device.Tilt{X: 1, Y: 2}},
	}
	for _, tt := range tests {
		if got := readingValue(tt.in); got != tt.want {
			t.Errorf("readingValue(%+v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

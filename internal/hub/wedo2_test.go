package hub

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chaz8081/hubctl/internal/device"
	"github.com/chaz8081/hubctl/internal/protocol"
)

func connectWeDo2(t *testing.T) (*Hub, *mockTransport) {
	t.Helper()
	tr := newMockTransport(t, "Smart Hub")
	tr.reads[protocol.FirmwareRevisionCharUUID] = []byte("1.0.0.0224")
	tr.reads[protocol.BatteryLevelCharUUID] = []byte{80}
	h := New(tr, protocol.HubWeDo2SmartHub, DefaultOptions())
	if err := h.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	return h, tr
}

// writesTo returns the payloads written to char.
func writesTo(tr *mockTransport, char string) [][]byte {
	var out [][]byte
	for _, w := range tr.allWrites() {
		if w.char == char {
			out = append(out, w.data)
		}
	}
	return out
}

func TestWeDo2Connect(t *testing.T) {
	h, tr := connectWeDo2(t)
	if h.Dialect() != device.DialectWeDo2 {
		t.Errorf("Dialect() = %v", h.Dialect())
	}
	if h.FirmwareVersion() != "1.0.0.0224" || h.BatteryLevel() != 80 {
		t.Errorf("firmware %q battery %d", h.FirmwareVersion(), h.BatteryLevel())
	}
	if len(tr.allWrites()) != 0 {
		t.Errorf("handshake wrote %+v", tr.allWrites())
	}
}

func TestWeDo2AttachAndSensorValue(t *testing.T) {
	h, tr := connectWeDo2(t)
	tr.notify(t, protocol.WeDo2PortTypeCharUUID, []byte{0x01, 0x01, 0x00, 0x22})
	ev := nextEvent(t, h, EventAttach)
	if ev.Attachment.Port != "A" || ev.Attachment.Type != device.TiltSensor {
		t.Fatalf("attach = %+v", ev.Attachment)
	}

	sub, err := h.Subscribe("A", device.CapTilt)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	got := writesTo(tr, protocol.WeDo2PortTypeWriteCharUUID)
	want := []byte{0x01, 0x02, 0x01, 0x22, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x01}
	if len(got) != 1 || !bytes.Equal(got[0], want) {
		t.Errorf("input setup = % x, want % x", got, want)
	}

	tr.notify(t, protocol.WeDo2SensorValueCharUUID, []byte{0x00, 0x01, 10, 250})
	if r := nextReading(t, sub); r.Value != (device.Tilt{X: 10, Y: -5}) {
		t.Errorf("reading = %+v", r)
	}

	tr.notify(t, protocol.WeDo2PortTypeCharUUID, []byte{0x01, 0x00})
	nextEvent(t, h, EventDetach)
	if _, ok := <-sub.C; ok {
		t.Error("subscription open after detach")
	}
}

func TestWeDo2Motor(t *testing.T) {
	h, tr := connectWeDo2(t)
	tr.notify(t, protocol.WeDo2PortTypeCharUUID, []byte{0x02, 0x01, 0x00, 0x01})

	if err := h.SetPower(context.Background(), "B", 50, 0); err != nil {
		t.Fatalf("SetPower() error = %v", err)
	}
	if err := h.SetSpeed(context.Background(), "B", -100, 0); err != nil {
		t.Fatalf("SetSpeed() error = %v", err)
	}
	got := writesTo(tr, protocol.WeDo2MotorValueCharUUID)
	if len(got) != 2 || !bytes.Equal(got[0], []byte{0x02, 0x01, 0x01, 50}) || !bytes.Equal(got[1], []byte{0x02, 0x01, 0x01, 0x9c}) {
		t.Errorf("motor writes = % x", got)
	}
	if err := h.RotateByDegrees(context.Background(), "B", 90, 50); !errors.Is(err, ErrUnsupported) {
		t.Errorf("RotateByDegrees() error = %v, want ErrUnsupported", err)
	}
}

func TestWeDo2LEDAndBuzzer(t *testing.T) {
	h, tr := connectWeDo2(t)
	tr.notify(t, protocol.WeDo2PortTypeCharUUID, []byte{0x06, 0x01, 0x00, 0x17})
	tr.notify(t, protocol.WeDo2PortTypeCharUUID, []byte{0x05, 0x01, 0x00, 0x16})
	ctx := context.Background()

	if err := h.SetColor(ctx, "HUB_LED", device.Red); err != nil {
		t.Fatalf("SetColor() error = %v", err)
	}
	setup := writesTo(tr, protocol.WeDo2PortTypeWriteCharUUID)
	if len(setup) != 1 || !bytes.Equal(setup[0], []byte{0x01, 0x02, 0x06, 0x17, 0x00, 0x01, 0x00, 0x00, 0x00, 0x02, 0x01}) {
		t.Errorf("LED setup = % x", setup)
	}

	start := time.Now()
	if err := h.PlayTone(ctx, "PIEZO_BUZZER", 440, 30*time.Millisecond); err != nil {
		t.Fatalf("PlayTone() error = %v", err)
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Error("PlayTone() returned before the tone ended")
	}

	got := writesTo(tr, protocol.WeDo2MotorValueCharUUID)
	want := [][]byte{
		{0x06, 0x04, 0x01, 0x09},
		{0x05, 0x02, 0x04, 0xb8, 0x01, 30, 0x00},
	}
	if len(got) != len(want) {
		t.Fatalf("output writes = % x, want % x", got, want)
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("write %d = % x, want % x", i, got[i], want[i])
		}
	}
}

func TestWeDo2HubActions(t *testing.T) {
	h, tr := connectWeDo2(t)
	if err := h.SetName("a name of 21 bytes!!!"); !errors.Is(err, ErrNameTooLong) {
		t.Errorf("SetName(21 bytes) error = %v, want ErrNameTooLong", err)
	}
	if err := h.SetName("WeDo"); err != nil {
		t.Fatalf("SetName() error = %v", err)
	}
	if got := writesTo(tr, protocol.WeDo2NameCharUUID); len(got) != 2 || string(got[1]) != "WeDo" {
		t.Errorf("name writes = %q", got)
	}

	tr.notify(t, protocol.WeDo2ButtonCharUUID, []byte{0x01})
	if ev := nextEvent(t, h, EventButton); ev.Button != device.ButtonPressed {
		t.Errorf("button = %v", ev.Button)
	}
	tr.notify(t, protocol.BatteryLevelCharUUID, []byte{65})
	if ev := nextEvent(t, h, EventBattery); ev.Value != 65 {
		t.Errorf("battery = %d", ev.Value)
	}

	if err := h.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if got := writesTo(tr, protocol.WeDo2DisconnectCharUUID); len(got) != 1 || !bytes.Equal(got[0], []byte{0x00}) {
		t.Errorf("shutdown writes = % x", got)
	}
}

func TestWeDo2UnsupportedOperations(t *testing.T) {
	h, tr := connectWeDo2(t)
	tr.notify(t, protocol.WeDo2PortTypeCharUUID, []byte{0x01, 0x01, 0x00, 0x01})
	tr.notify(t, protocol.WeDo2PortTypeCharUUID, []byte{0x02, 0x01, 0x00, 0x01})

	if err := h.CreateVirtualPort("A", "B"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("CreateVirtualPort() error = %v, want ErrUnsupported", err)
	}
	if err := h.RequestPortInformation("A"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("RequestPortInformation() error = %v, want ErrUnsupported", err)
	}
}

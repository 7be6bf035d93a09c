package hub

import (
	"errors"
	"testing"
	"time"

	"github.com/chaz8081/hubctl/internal/device"
	"github.com/chaz8081/hubctl/internal/protocol"
)

func nextReading(t *testing.T, s *Subscription) Reading {
	t.Helper()
	select {
	case r, ok := <-s.C:
		if !ok {
			t.Fatal("subscription closed")
		}
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("no reading")
		return Reading{}
	}
}

func assertNoReading(t *testing.T, s *Subscription) {
	t.Helper()
	select {
	case r := <-s.C:
		t.Errorf("unexpected reading %+v", r)
	default:
	}
}

// colorSensorHub returns a Technic hub with a color sensor at port A.
func colorSensorHub(t *testing.T) (*Hub, *mockTransport) {
	t.Helper()
	h, tr := connectLPF2(t, protocol.HubTechnicMediumHub, "1.1.00.0004")
	tr.message(t, 0x04, 0x00, 0x01, 0x3d, 0x00)
	return h, tr
}

func TestSubscribeIsIdempotent(t *testing.T) {
	h, tr := colorSensorHub(t)
	first, err := h.Subscribe("A", device.CapColor)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	second, err := h.Subscribe("A", device.CapColor)
	if err != nil {
		t.Fatalf("second Subscribe() error = %v", err)
	}
	assertSent(t, tr.sent(), []byte{0x41, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01})

	tr.message(t, 0x45, 0x00, byte(device.Blue))
	for _, s := range []*Subscription{first, second} {
		r := nextReading(t, s)
		if r.Port != "A" || r.Capability != device.CapColor || r.Value != (device.ColorReading{Color: device.Blue}) {
			t.Errorf("reading = %+v", r)
		}
	}
}

func TestSubscribeSwitchesMode(t *testing.T) {
	h, tr := colorSensorHub(t)
	color, _ := h.Subscribe("A", device.CapColor)
	reflect, err := h.Subscribe("A", device.CapReflect)
	if err != nil {
		t.Fatalf("Subscribe(reflect) error = %v", err)
	}
	assertSent(t, tr.sent(),
		[]byte{0x41, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01},
		[]byte{0x41, 0x00, 0x01, 0x01, 0x00, 0x00, 0x00, 0x01},
	)

	if _, ok := <-color.C; ok {
		t.Error("color subscription still open after the mode switch")
	}
	color.Close()
	if n := len(tr.sent()); n != 2 {
		t.Errorf("closing a displaced subscription sent %d messages", n)
	}

	tr.message(t, 0x45, 0x00, 42)
	if r := nextReading(t, reflect); r.Value != (device.Percent{Value: 42}) {
		t.Errorf("reflect reading = %+v", r)
	}
}

func TestSubscribeCombinedClosesSingleModeSubscription(t *testing.T) {
	h, tr := connectLPF2(t, protocol.HubHub, "1.1.00.0004")
	tr.message(t, 0x04, 0x00, 0x01, 0x25, 0x00)

	single, _ := h.Subscribe("A", device.CapColor)
	combined, err := h.SubscribeCombined("A", device.CapColor, device.CapDistance)
	if err != nil {
		t.Fatalf("SubscribeCombined() error = %v", err)
	}
	if _, ok := <-single.C; ok {
		t.Error("single-mode subscription still open after switching to combined")
	}
	tr.message(t, 0x46, 0x00, 0x01, 0x00, byte(device.Red))
	if r := nextReading(t, combined); r.Value != (device.ColorReading{Color: device.Red}) {
		t.Errorf("combined reading = %+v", r)
	}
}

func TestValueDroppedWhileHubReportsOtherMode(t *testing.T) {
	h, tr := colorSensorHub(t)
	sub, _ := h.Subscribe("A", device.CapReflect)

	tr.message(t, 0x47, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01)
	tr.message(t, 0x45, 0x00, 42)
	assertNoReading(t, sub)

	tr.message(t, 0x47, 0x00, 0x01, 0x01, 0x00, 0x00, 0x00, 0x01)
	tr.message(t, 0x45, 0x00, 43)
	if r := nextReading(t, sub); r.Value != (device.Percent{Value: 43}) {
		t.Errorf("reading = %+v", r)
	}
}

func TestSubscriptionCloseUnsubscribesLast(t *testing.T) {
	h, tr := colorSensorHub(t)
	first, _ := h.Subscribe("A", device.CapColor)
	second, _ := h.Subscribe("A", device.CapColor)
	tr.clearWrites()

	first.Close()
	if len(tr.sent()) != 0 {
		t.Errorf("closing one of two subscriptions sent % x", tr.sent())
	}
	if _, ok := <-first.C; ok {
		t.Error("closed subscription channel still open")
	}

	second.Close()
	second.Close()
	assertSent(t, tr.sent(), []byte{0x41, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00})

	again, _ := h.Subscribe("A", device.CapColor)
	if again == nil || len(tr.sent()) != 2 {
		t.Errorf("resubscribe after close sent % x", tr.sent())
	}
}

func TestSubscribeErrors(t *testing.T) {
	h, _ := colorSensorHub(t)
	if _, err := h.Subscribe("A", device.CapTilt); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Subscribe(tilt) error = %v, want ErrUnsupported", err)
	}
	if _, err := h.Subscribe("B", device.CapColor); !errors.Is(err, ErrNoDevice) {
		t.Errorf("Subscribe(B) error = %v, want ErrNoDevice", err)
	}
}

func TestSubscribeWithoutAutoSubscribe(t *testing.T) {
	opts := DefaultOptions()
	opts.AutoSubscribe = false
	h, tr := connectLPF2With(t, protocol.HubTechnicMediumHub, "1.1.00.0004", opts)
	tr.message(t, 0x04, 0x00, 0x01, 0x3d, 0x00)

	sub, err := h.Subscribe("A", device.CapAmbient)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if len(tr.sent()) != 0 {
		t.Errorf("Subscribe without auto-subscribe sent % x", tr.sent())
	}
	tr.message(t, 0x45, 0x00, 7)
	if r := nextReading(t, sub); r.Capability != device.CapAmbient {
		t.Errorf("reading = %+v", r)
	}
}

func TestDetachClosesSubscriptions(t *testing.T) {
	h, tr := colorSensorHub(t)
	sub, _ := h.Subscribe("A", device.CapColor)
	tr.message(t, 0x04, 0x00, 0x00)
	if _, ok := <-sub.C; ok {
		t.Error("subscription open after detach")
	}
	sub.Close()
}

func TestSlowSubscriberDoesNotStallDispatch(t *testing.T) {
	opts := DefaultOptions()
	opts.SubscriptionBuffer = 1
	h, tr := connectLPF2With(t, protocol.HubTechnicMediumHub, "1.1.00.0004", opts)
	tr.message(t, 0x04, 0x00, 0x01, 0x3d, 0x00)
	sub, _ := h.Subscribe("A", device.CapReflect)

	for v := range byte(5) {
		tr.message(t, 0x45, 0x00, v)
	}
	if n := len(sub.C); n != 1 {
		t.Errorf("buffered readings = %d, want 1", n)
	}
	if r := nextReading(t, sub); r.Value != (device.Percent{Value: 0}) {
		t.Errorf("kept reading = %+v, want the first", r)
	}
}

func TestSubscribeCombined(t *testing.T) {
	h, tr := connectLPF2(t, protocol.HubHub, "1.1.00.0004")
	tr.message(t, 0x04, 0x00, 0x01, 0x25, 0x00)

	sub, err := h.SubscribeCombined("A", device.CapColor, device.CapDistance)
	if err != nil {
		t.Fatalf("SubscribeCombined() error = %v", err)
	}
	assertSent(t, tr.sent(),
		[]byte{0x42, 0x00, 0x02},
		[]byte{0x41, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01},
		[]byte{0x41, 0x00, 0x01, 0x01, 0x00, 0x00, 0x00, 0x01},
		[]byte{0x42, 0x00, 0x01, 0x00, 0x00, 0x10},
		[]byte{0x42, 0x00, 0x03},
	)

	tr.message(t, 0x46, 0x00, 0x03, 0x00, byte(device.Blue), 7)
	got := map[string]device.Reading{}
	for range 2 {
		r := nextReading(t, sub)
		got[r.Capability] = r.Value
	}
	if got[device.CapColor] != (device.ColorReading{Color: device.Blue}) {
		t.Errorf("color = %+v", got[device.CapColor])
	}
	if got[device.CapDistance] != (device.Distance{Millimeters: 157}) {
		t.Errorf("distance = %+v", got[device.CapDistance])
	}

	tr.clearWrites()
	if _, err := h.SubscribeCombined("A", device.CapColor, device.CapDistance); err != nil {
		t.Fatalf("repeat SubscribeCombined() error = %v", err)
	}
	if len(tr.sent()) != 0 {
		t.Errorf("repeat SubscribeCombined sent % x", tr.sent())
	}

	tr.message(t, 0x46, 0x00, 0x02, 0x00, 3)
	if r := nextReading(t, sub); r.Capability != device.CapDistance {
		t.Errorf("pointer 2 reading = %+v, want distance only", r)
	}
}

func TestCombinedSubscriptionCloseDisablesEveryMode(t *testing.T) {
	h, tr := connectLPF2(t, protocol.HubHub, "1.1.00.0004")
	tr.message(t, 0x04, 0x00, 0x01, 0x25, 0x00)

	first, _ := h.SubscribeCombined("A", device.CapColor, device.CapDistance)
	second, _ := h.SubscribeCombined("A", device.CapColor, device.CapDistance)
	tr.clearWrites()

	first.Close()
	if len(tr.sent()) != 0 {
		t.Errorf("closing one of two combined subscriptions sent % x", tr.sent())
	}
	second.Close()
	assertSent(t, tr.sent(),
		[]byte{0x41, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00},
		[]byte{0x41, 0x00, 0x01, 0x01, 0x00, 0x00, 0x00, 0x00},
	)

	tr.clearWrites()
	if _, err := h.SubscribeCombined("A", device.CapColor, device.CapDistance); err != nil {
		t.Fatalf("SubscribeCombined() after close error = %v", err)
	}
	if n := len(tr.sent()); n != 5 {
		t.Errorf("resubscribe after close sent %d messages, want the full setup of 5", n)
	}
}

func TestSubscribeCombinedUnsupported(t *testing.T) {
	h, tr := connectLPF2(t, protocol.HubHub, "1.1.00.0004")
	tr.message(t, 0x04, 0x00, 0x01, 0x02, 0x00)
	if _, err := h.SubscribeCombined("A", device.CapRotate); !errors.Is(err, ErrUnsupported) {
		t.Errorf("SubscribeCombined on a train motor error = %v, want ErrUnsupported", err)
	}
}

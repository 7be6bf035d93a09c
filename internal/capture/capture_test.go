package capture

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/chaz8081/hubctl/internal/device"
	"github.com/chaz8081/hubctl/internal/hub"
	"github.com/chaz8081/hubctl/internal/protocol"
)

// fakeTransport is a minimal in-memory hub.Transport.
type fakeTransport struct {
	mu     sync.Mutex
	subs   map[string]func([]byte)
	writes [][]byte
	reads  map[string][]byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{subs: make(map[string]func([]byte)), reads: make(map[string][]byte)}
}

func (f *fakeTransport) Connect(context.Context) error                   { return nil }
func (f *fakeTransport) Disconnect() error                               { return nil }
func (f *fakeTransport) DiscoverCharacteristics(string, ...string) error { return nil }
func (f *fakeTransport) OnDisconnect(func())                             {}
func (f *fakeTransport) Name() string                                    { return "Technic Hub" }
func (f *fakeTransport) Address() string                                 { return "90:84:2b:00:00:01" }

func (f *fakeTransport) Subscribe(char string, cb func([]byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[char] = cb
	return nil
}

func (f *fakeTransport) Write(_ string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, data)
	return nil
}

func (f *fakeTransport) Read(char string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.reads[char]
	if !ok {
		return nil, errors.New("no value")
	}
	return v, nil
}

func (f *fakeTransport) notify(char string, data []byte) {
	f.mu.Lock()
	cb := f.subs[char]
	f.mu.Unlock()
	cb(data)
}

func TestRecorderWritesCapture(t *testing.T) {
	var buf bytes.Buffer
	ft := newFakeTransport()
	ft.reads["2a19"] = []byte{90}

	rec, err := NewRecorder(&buf, ft, protocol.HubTechnicMediumHub)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	var got []byte
	if err := rec.Subscribe(protocol.LPF2AllCharUUID, func(b []byte) { got = b }); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if err := rec.Write(protocol.LPF2AllCharUUID, []byte{0x05, 0x00, 0x01, 0x03, 0x05}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	ft.notify(protocol.LPF2AllCharUUID, []byte{0x05, 0x00, 0x01, 0x03, 0x06})
	if v, err := rec.Read("2a19"); err != nil || !bytes.Equal(v, []byte{90}) {
		t.Fatalf("Read() = % x, %v", v, err)
	}
	if !bytes.Equal(got, []byte{0x05, 0x00, 0x01, 0x03, 0x06}) {
		t.Errorf("notification not forwarded: % x", got)
	}
	if rec.Err() != nil {
		t.Fatalf("Err() = %v", rec.Err())
	}

	h, records, err := ReadAll(&buf)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if h.Version != Version || h.HubType != protocol.HubTechnicMediumHub || h.Name != "Technic Hub" || h.Address != "90:84:2b:00:00:01" {
		t.Errorf("header = %+v", h)
	}
	if h.Started == 0 {
		t.Error("header has no start time")
	}
	want := []Direction{Out, In, Read}
	if len(records) != len(want) {
		t.Fatalf("records = %+v", records)
	}
	for i, d := range want {
		if records[i].Direction != d {
			t.Errorf("records[%d].Direction = %v, want %v", i, records[i].Direction, d)
		}
	}
	if records[1].Char != protocol.LPF2AllCharUUID || records[1].Data[4] != 0x06 {
		t.Errorf("notification record = %+v", records[1])
	}
	if records[2].Offset < records[0].Offset {
		t.Errorf("offsets not monotonic: %d then %d", records[0].Offset, records[2].Offset)
	}
}

func TestReadAllTruncated(t *testing.T) {
	var buf bytes.Buffer
	rec, err := NewRecorder(&buf, newFakeTransport(), protocol.HubHub)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	for range 3 {
		_ = rec.Write("c", []byte{1, 2, 3})
	}
	data := buf.Bytes()[:buf.Len()-1]

	_, records, err := ReadAll(bytes.NewReader(data))
	if err == nil {
		t.Fatal("ReadAll() error = nil, want truncation error")
	}
	if len(records) != 2 {
		t.Errorf("len(records) = %d, want 2", len(records))
	}
}

func TestReadAllVersion(t *testing.T) {
	data, err := cbor.Marshal(Header{Version: 99})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := ReadAll(bytes.NewReader(data)); !errors.Is(err, ErrVersion) {
		t.Errorf("ReadAll() error = %v, want ErrVersion", err)
	}
}

func TestPlayerHoldsNotificationUntilWrite(t *testing.T) {
	p := NewPlayer(Header{Version: Version}, []Record{
		{Direction: Out, Char: "w", Data: []byte{1}},
		{Direction: In, Char: "n", Data: []byte{2}},
	}, DefaultPlayerOptions())
	got := make(chan []byte, 1)
	if err := p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := p.Subscribe("n", func(b []byte) { got <- b }); err != nil {
		t.Fatal(err)
	}

	select {
	case b := <-got:
		t.Fatalf("delivered % x before the write", b)
	case <-time.After(50 * time.Millisecond):
	}

	if err := p.Write("w", []byte{1}); err != nil {
		t.Fatal(err)
	}
	select {
	case b := <-got:
		if !bytes.Equal(b, []byte{2}) {
			t.Errorf("delivered % x", b)
		}
	case <-time.After(time.Second):
		t.Fatal("notification not delivered")
	}
	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("playback did not finish")
	}
	if w := p.Writes(); len(w) != 1 || w[0].Char != "w" {
		t.Errorf("Writes() = %+v", w)
	}
}

func TestPlayerSkipsUnsubscribed(t *testing.T) {
	p := NewPlayer(Header{Version: Version}, []Record{
		{Direction: In, Char: "nobody", Data: []byte{1}},
	}, PlayerOptions{StepTimeout: 20 * time.Millisecond})
	if err := p.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("playback did not finish")
	}
}

func TestPlayerReads(t *testing.T) {
	p := NewPlayer(Header{Version: Version}, []Record{
		{Direction: Read, Char: "r", Data: []byte{1}},
		{Direction: Read, Char: "r", Data: []byte{2}},
	}, DefaultPlayerOptions())
	for i, want := range []byte{1, 2, 2} {
		v, err := p.Read("r")
		if err != nil || len(v) != 1 || v[0] != want {
			t.Errorf("Read() #%d = % x, %v, want %x", i, v, err, want)
		}
	}
	if _, err := p.Read("other"); err == nil {
		t.Error("Read() of unrecorded characteristic succeeded")
	}
}

func TestPlayerDisconnect(t *testing.T) {
	p := NewPlayer(Header{Version: Version}, []Record{
		{Direction: In, Char: "n", Data: []byte{1}},
	}, DefaultPlayerOptions())
	called := false
	p.OnDisconnect(func() { called = true })
	if err := p.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	p.End()
	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("playback did not stop")
	}
	if !called {
		t.Error("End() did not report the disconnect")
	}
	if err := p.Write("w", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Write() after End = %v, want ErrClosed", err)
	}
}

func TestReplayIntoHub(t *testing.T) {
	header := Header{Version: Version, HubType: protocol.HubWeDo2SmartHub, Name: "Smart Hub"}
	p := NewPlayer(header, []Record{
		{Direction: Read, Char: protocol.FirmwareRevisionCharUUID, Data: []byte("1.0.0.0224")},
		{Direction: Read, Char: protocol.BatteryLevelCharUUID, Data: []byte{77}},
		{Direction: In, Char: protocol.WeDo2PortTypeCharUUID, Data: []byte{0x01, 0x01, 0x00, 0x22}},
	}, DefaultPlayerOptions())

	h := hub.New(p, header.HubType, hub.DefaultOptions())
	if err := h.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer h.Disconnect()
	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("playback did not finish")
	}

	if h.Name() != "Smart Hub" || h.FirmwareVersion() != "1.0.0.0224" || h.BatteryLevel() != 77 {
		t.Errorf("hub name %q firmware %q battery %d", h.Name(), h.FirmwareVersion(), h.BatteryLevel())
	}
	a, err := h.Attachment("A")
	if err != nil {
		t.Fatalf("Attachment() error = %v", err)
	}
	if a.Type != device.TiltSensor {
		t.Errorf("attached %v, want %v", a.Type, device.TiltSensor)
	}
}

func TestPlayerUngated(t *testing.T) {
	p := NewPlayer(Header{Version: Version}, []Record{
		{Direction: Out, Char: "w", Data: []byte{1}},
		{Direction: In, Char: "n", Data: []byte{2}},
	}, PlayerOptions{Ungated: true})
	got := make(chan []byte, 1)
	if err := p.Subscribe("n", func(b []byte) { got <- b }); err != nil {
		t.Fatal(err)
	}
	if err := p.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("ungated notification waited for a write")
	}
}

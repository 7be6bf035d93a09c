package capture

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/chaz8081/hubctl/internal/hub"
	"github.com/chaz8081/hubctl/internal/protocol"
)

// Recorder is a hub.Transport that forwards to another transport and
// appends every write, read and notification to a capture stream.
type Recorder struct {
	next  hub.Transport
	start time.Time

	mu  sync.Mutex
	enc *cbor.Encoder
	err error
}

var _ hub.Transport = (*Recorder)(nil)

// NewRecorder writes the capture header to w and returns a recorder
// wrapping next.
func NewRecorder(w io.Writer, next hub.Transport, t protocol.HubType) (*Recorder, error) {
	r := &Recorder{
		next:  next,
		start: time.Now(),
		enc:   cbor.NewEncoder(w),
	}
	h := Header{
		Version: Version,
		HubType: t,
		Name:    next.Name(),
		Address: next.Address(),
		Started: r.start.UnixMilli(),
	}
	if err := r.enc.Encode(h); err != nil {
		return nil, fmt.Errorf("capture: write header: %w", err)
	}
	return r, nil
}

// Err returns the first error hit while writing records. Recording stops
// after it.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Recorder) record(dir Direction, char string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}
	rec := Record{
		Offset:    int64(time.Since(r.start)),
		Direction: dir,
		Char:      char,
		Data:      append([]byte(nil), data...),
	}
	if err := r.enc.Encode(rec); err != nil {
		r.err = fmt.Errorf("capture: write record: %w", err)
		slog.Error("[CAPTURE] recording stopped", "error", err)
	}
}

func (r *Recorder) Connect(ctx context.Context) error { return r.next.Connect(ctx) }

func (r *Recorder) Disconnect() error { return r.next.Disconnect() }

func (r *Recorder) DiscoverCharacteristics(serviceUUID string, charUUIDs ...string) error {
	return r.next.DiscoverCharacteristics(serviceUUID, charUUIDs...)
}

// Subscribe records each notification before handing it on.
func (r *Recorder) Subscribe(charUUID string, onData func([]byte)) error {
	return r.next.Subscribe(charUUID, func(data []byte) {
		r.record(In, charUUID, data)
		onData(data)
	})
}

// Write records data and forwards it. Failed writes are recorded too.
func (r *Recorder) Write(charUUID string, data []byte) error {
	r.record(Out, charUUID, data)
	return r.next.Write(charUUID, data)
}

func (r *Recorder) Read(charUUID string) ([]byte, error) {
	data, err := r.next.Read(charUUID)
	if err != nil {
		return nil, err
	}
	r.record(Read, charUUID, data)
	return data, nil
}

func (r *Recorder) OnDisconnect(callback func()) { r.next.OnDisconnect(callback) }

func (r *Recorder) Name() string { return r.next.Name() }

func (r *Recorder) Address() string { return r.next.Address() }

package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chaz8081/hubctl/internal/hub"
)

// ErrClosed is returned by a Player once it has been disconnected.
var ErrClosed = errors.New("capture: player closed")

// PlayerOptions configures playback.
type PlayerOptions struct {
	// Pace replays notifications at their recorded spacing scaled by this
	// factor. Zero replays as fast as the engine consumes them.
	Pace float64
	// StepTimeout bounds the wait for a subscription or a write the next
	// notification depends on. The notification is skipped afterwards.
	StepTimeout time.Duration
	// Ungated delivers notifications without waiting for the writes that
	// preceded them in the capture.
	Ungated bool
}

// DefaultPlayerOptions returns sensible defaults.
func DefaultPlayerOptions() PlayerOptions {
	return PlayerOptions{StepTimeout: 2 * time.Second}
}

// Player is a hub.Transport that answers from a capture. Notifications are
// delivered in recorded order; one recorded after a write is held back
// until the engine has written as many times as the capture had by then.
// Reads return the recorded values of each characteristic in turn.
type Player struct {
	header  Header
	records []Record
	opts    PlayerOptions

	mu           sync.Mutex
	subs         map[string]func([]byte)
	reads        map[string][][]byte
	writes       []Record
	disconnectCb func()
	running      bool
	closed       bool
	changed      chan struct{}
	stop         chan struct{}
	done         chan struct{}
}

var _ hub.Transport = (*Player)(nil)

// NewPlayer returns a player for a capture decoded by ReadAll.
func NewPlayer(h Header, records []Record, opts PlayerOptions) *Player {
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = DefaultPlayerOptions().StepTimeout
	}
	p := &Player{
		header:  h,
		records: records,
		opts:    opts,
		subs:    make(map[string]func([]byte)),
		reads:   make(map[string][][]byte),
		changed: make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, rec := range records {
		if rec.Direction == Read {
			p.reads[rec.Char] = append(p.reads[rec.Char], rec.Data)
		}
	}
	return p
}

// Header returns the capture header.
func (p *Player) Header() Header { return p.header }

// Done is closed once every notification has been delivered or skipped.
func (p *Player) Done() <-chan struct{} { return p.done }

// Writes returns what the engine wrote during playback.
func (p *Player) Writes() []Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Record(nil), p.writes...)
}

// Connect starts playback.
func (p *Player) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if !p.running {
		p.running = true
		go p.run()
	}
	return nil
}

// Disconnect stops playback. The disconnect callback is not called.
func (p *Player) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.stop)
	if !p.running {
		close(p.done)
	}
	return nil
}

// End simulates link loss: playback stops and the disconnect callback runs.
func (p *Player) End() {
	p.mu.Lock()
	cb := p.disconnectCb
	p.mu.Unlock()
	_ = p.Disconnect()
	if cb != nil {
		cb()
	}
}

func (p *Player) DiscoverCharacteristics(string, ...string) error { return nil }

func (p *Player) Subscribe(charUUID string, onData func([]byte)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.subs[charUUID] = onData
	p.signal()
	return nil
}

func (p *Player) Write(charUUID string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.writes = append(p.writes, Record{Direction: Out, Char: charUUID, Data: append([]byte(nil), data...)})
	p.signal()
	return nil
}

// Read returns the next recorded value of charUUID, repeating the last one
// once they run out.
func (p *Player) Read(charUUID string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	values := p.reads[charUUID]
	if len(values) == 0 {
		return nil, fmt.Errorf("capture: no recorded read of %s", charUUID)
	}
	v := values[0]
	if len(values) > 1 {
		p.reads[charUUID] = values[1:]
	}
	return append([]byte(nil), v...), nil
}

func (p *Player) OnDisconnect(callback func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnectCb = callback
}

func (p *Player) Name() string { return p.header.Name }

func (p *Player) Address() string { return p.header.Address }

// signal wakes the playback loop. Caller must hold mu.
func (p *Player) signal() {
	select {
	case p.changed <- struct{}{}:
	default:
	}
}

func (p *Player) run() {
	defer close(p.done)
	var outs int
	var last int64
	for i, rec := range p.records {
		switch rec.Direction {
		case Out:
			if !p.opts.Ungated {
				outs++
			}
			continue
		case Read:
			continue
		}

		if p.opts.Pace > 0 && rec.Offset > last {
			if !p.sleep(time.Duration(float64(rec.Offset-last) * p.opts.Pace)) {
				return
			}
		}
		last = rec.Offset

		cb, ok := p.await(rec.Char, outs)
		if !ok {
			select {
			case <-p.stop:
				return
			default:
			}
			slog.Warn("[CAPTURE] skipping notification", "index", i, "char", rec.Char)
			continue
		}
		cb(append([]byte(nil), rec.Data...))
	}
}

// await waits until char has a subscriber and at least outs writes were
// made, returning the subscriber.
func (p *Player) await(char string, outs int) (func([]byte), bool) {
	timeout := time.NewTimer(p.opts.StepTimeout)
	defer timeout.Stop()
	for {
		p.mu.Lock()
		cb, ok := p.subs[char]
		ready := ok && len(p.writes) >= outs
		p.mu.Unlock()
		if ready {
			return cb, true
		}
		select {
		case <-p.changed:
		case <-timeout.C:
			return nil, false
		case <-p.stop:
			return nil, false
		}
	}
}

func (p *Player) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-p.stop:
		return false
	}
}

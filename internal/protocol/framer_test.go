package protocol

import (
	"bytes"
	"errors"
	"testing"
)

var sampleMessage = []byte{0x08, 0x00, 0x45, 0x00, 0x01, 0x02, 0x03, 0x04}

func TestFramerSingleChunk(t *testing.T) {
	var f Framer
	msgs, err := f.Push(sampleMessage)
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].Type != MsgPortValueSingle {
		t.Errorf("Type = %v, want %v", msgs[0].Type, MsgPortValueSingle)
	}
	if !bytes.Equal(msgs[0].Payload, []byte{0x00, 0x01, 0x02, 0x03, 0x04}) {
		t.Errorf("Payload = % x", msgs[0].Payload)
	}
	if f.Buffered() != 0 {
		t.Errorf("Buffered() = %d, want 0", f.Buffered())
	}
}

func TestFramerChunkBoundaryIndependent(t *testing.T) {
	var whole Framer
	want, _ := whole.Push(sampleMessage)

	var split Framer
	first, err := split.Push(sampleMessage[:3])
	if err != nil {
		t.Fatalf("Push(first) error = %v", err)
	}
	if len(first) != 0 {
		t.Fatalf("partial chunk dispatched %d messages, want 0", len(first))
	}
	if split.Buffered() != 3 {
		t.Errorf("Buffered() = %d, want 3", split.Buffered())
	}
	got, err := split.Push(sampleMessage[3:])
	if err != nil {
		t.Fatalf("Push(second) error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d messages, want 1", len(got))
	}
	if got[0].Type != want[0].Type || !bytes.Equal(got[0].Payload, want[0].Payload) {
		t.Errorf("split delivery = %v, want %v", got[0], want[0])
	}
}

func TestFramerByteAtATime(t *testing.T) {
	var f Framer
	var got []Message
	for _, b := range sampleMessage {
		msgs, err := f.Push([]byte{b})
		if err != nil {
			t.Fatalf("Push() error = %v", err)
		}
		got = append(got, msgs...)
	}
	if len(got) != 1 {
		t.Fatalf("got %d messages, want 1", len(got))
	}
}

func TestFramerMultipleAndPartialInOneChunk(t *testing.T) {
	attach := []byte{0x05, 0x00, 0x04, 0x01, 0x00}
	chunk := append(append(append([]byte{}, sampleMessage...), attach...), 0x06, 0x00)

	var f Framer
	msgs, err := f.Push(chunk)
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[1].Type != MsgHubAttachedIO {
		t.Errorf("msgs[1].Type = %v, want %v", msgs[1].Type, MsgHubAttachedIO)
	}
	if f.Buffered() != 2 {
		t.Errorf("Buffered() = %d, want 2 (tail held)", f.Buffered())
	}

	msgs, err = f.Push([]byte{0x82, 0x00, 0x0a, 0x00})
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if len(msgs) != 1 || msgs[0].Type != MsgPortOutputFeedback {
		t.Fatalf("tail message = %v, want one feedback message", msgs)
	}
	if msgs[0].Port() != 0x00 {
		t.Errorf("Port() = %d, want 0", msgs[0].Port())
	}
}

func TestFramerMalformedLength(t *testing.T) {
	var f Framer
	_, err := f.Push([]byte{0x00, 0x01, 0x02})
	if !errors.Is(err, ErrMalformedLength) {
		t.Fatalf("Push() error = %v, want ErrMalformedLength", err)
	}
	if f.Buffered() != 0 {
		t.Errorf("Buffered() = %d, want 0 after malformed length", f.Buffered())
	}

	msgs, err := f.Push(sampleMessage)
	if err != nil || len(msgs) != 1 {
		t.Errorf("framer did not recover: msgs=%d err=%v", len(msgs), err)
	}
}

func TestFrame(t *testing.T) {
	got := Frame([]byte{0x41, 0x00, 0x08, 0x01, 0x00, 0x00, 0x00, 0x01})
	want := []byte{0x0a, 0x00, 0x41, 0x00, 0x08, 0x01, 0x00, 0x00, 0x00, 0x01}
	if !bytes.Equal(got, want) {
		t.Errorf("Frame() = % x, want % x", got, want)
	}
}

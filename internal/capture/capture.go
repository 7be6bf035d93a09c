// Package capture records the traffic between a hub engine and its BLE
// transport to a CBOR stream, and plays such a stream back as a transport.
//
// A capture is one Header item followed by Record items, each a CBOR map
// with small integer keys.
package capture

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/chaz8081/hubctl/internal/protocol"
)

// Version is the capture format version written by Recorder.
const Version = 1

// Direction says which way a record travelled.
type Direction uint8

const (
	// In is a notification from the hub.
	In Direction = iota + 1
	// Out is a write to the hub.
	Out
	// Read is the value returned by a characteristic read.
	Read
)

func (d Direction) String() string {
	switch d {
	case In:
		return "in"
	case Out:
		return "out"
	case Read:
		return "read"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// Header describes the hub a capture was taken from.
type Header struct {
	Version int              `cbor:"1,keyasint"`
	HubType protocol.HubType `cbor:"2,keyasint"`
	Name    string           `cbor:"3,keyasint,omitempty"`
	Address string           `cbor:"4,keyasint,omitempty"`
	Started int64            `cbor:"5,keyasint,omitempty"` // unix milliseconds
}

// Record is one characteristic operation.
type Record struct {
	Offset    int64     `cbor:"1,keyasint"` // nanoseconds since Header.Started
	Direction Direction `cbor:"2,keyasint"`
	Char      string    `cbor:"3,keyasint"`
	Data      []byte    `cbor:"4,keyasint"`
}

// ErrVersion is returned for captures written by an unknown format version.
var ErrVersion = errors.New("capture: unsupported version")

// ReadAll decodes a whole capture. A stream that ends inside a record
// yields the records before it along with the error.
func ReadAll(r io.Reader) (Header, []Record, error) {
	dec := cbor.NewDecoder(r)
	var h Header
	if err := dec.Decode(&h); err != nil {
		return Header{}, nil, fmt.Errorf("capture: read header: %w", err)
	}
	if h.Version != Version {
		return h, nil, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	var records []Record
	for {
		var rec Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return h, records, nil
		}
		if err != nil {
			return h, records, fmt.Errorf("capture: read record %d: %w", len(records), err)
		}
		records = append(records, rec)
	}
}

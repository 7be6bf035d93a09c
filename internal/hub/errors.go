package hub

import (
	"errors"
	"fmt"

	"github.com/chaz8081/hubctl/internal/device"
	"github.com/chaz8081/hubctl/internal/protocol"
)

var (
	ErrNotConnected     = errors.New("hub: not connected")
	ErrUnknownPort      = errors.New("hub: unknown port")
	ErrNoDevice         = errors.New("hub: no device attached")
	ErrUnsupported      = device.ErrUnsupported
	ErrPortTypeMismatch = errors.New("hub: ports hold different device types")
	ErrNameTooLong      = errors.New("hub: name too long")

	// ErrDetached resolves a pending command whose device was detached.
	ErrDetached = errors.New("hub: device detached")
	// ErrInterrupted resolves a pending command replaced by a newer one on
	// the same port.
	ErrInterrupted = errors.New("hub: command interrupted")
	// ErrDiscarded resolves a pending command the hub reported discarded.
	ErrDiscarded = errors.New("hub: command discarded")

	ErrFirmware = errors.New("hub: firmware too old")
)

// FirmwareError reports a hub whose firmware is below the minimum this
// package supports for its type.
type FirmwareError struct {
	Hub      string
	Type     protocol.HubType
	Reported string
	Required string
}

func (e *FirmwareError) Error() string {
	return fmt.Sprintf("hub: %s (%s) firmware %s is below required %s", e.Hub, e.Type, e.Reported, e.Required)
}

// Is matches ErrFirmware.
func (e *FirmwareError) Is(target error) bool {
	return target == ErrFirmware
}

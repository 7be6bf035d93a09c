package device

import (
	"github.com/chaz8081/hubctl/internal/protocol"
)

// Dataset addresses one value slot of one mode in a combined-mode report.
type Dataset struct {
	Mode  byte
	Index byte
}

// Byte packs the dataset as the hub expects it: mode in the high nibble,
// index in the low nibble.
func (ds Dataset) Byte() byte {
	return ds.Mode<<4 | ds.Index&0x0f
}

// ModeReading pairs a decoded reading with the mode that produced it.
type ModeReading struct {
	Mode       byte
	Capability string
	Reading    Reading
}

// Device is one device instance bound to one hub port. It is owned by its
// hub and not safe for concurrent use.
type Device struct {
	Type            Type
	PortID          byte
	Hub             protocol.HubType
	Dialect         Dialect
	HardwareVersion string
	SoftwareVersion string
	Profile         MotorProfile

	mode      byte
	hasMode   bool
	reporting byte
	confirmed bool
	combined  []Dataset
}

// New returns a device of type t attached at port.
func New(t Type, port byte, hub protocol.HubType, dialect Dialect) *Device {
	return &Device{
		Type:    t,
		PortID:  port,
		Hub:     hub,
		Dialect: dialect,
		Profile: DefaultMotorProfile(),
	}
}

// Mode returns the active input mode, if one has been set.
func (d *Device) Mode() (byte, bool) {
	return d.mode, d.hasMode
}

// SetMode records mode as active. Reports arriving before the hub
// confirms a different mode are still decoded with mode.
func (d *Device) SetMode(mode byte) {
	d.mode = mode
	d.hasMode = true
	d.confirmed = false
}

// ClearMode forgets the active mode.
func (d *Device) ClearMode() {
	d.hasMode = false
	d.confirmed = false
	d.combined = nil
}

// ConfirmMode records the mode the hub says it is reporting.
func (d *Device) ConfirmMode(mode byte) {
	d.reporting = mode
	d.confirmed = true
}

// Combined returns the datasets of the active combined-mode subscription.
func (d *Device) Combined() []Dataset {
	return d.combined
}

// SetCombined records a combined-mode subscription.
func (d *Device) SetCombined(ds []Dataset) {
	d.combined = ds
}

// Decode decodes a single-mode value report using the active mode. Reports
// are dropped when no mode is active or the hub has confirmed it is
// reporting a different one.
func (d *Device) Decode(data []byte) (ModeReading, bool) {
	if !d.hasMode {
		return ModeReading{}, false
	}
	if d.confirmed && d.reporting != d.mode {
		return ModeReading{}, false
	}
	r, ok := Decode(d.Type, d.Hub, d.Dialect, d.mode, data)
	if !ok {
		return ModeReading{}, false
	}
	name, _ := d.Type.Capability(d.mode)
	return ModeReading{Mode: d.mode, Capability: name, Reading: r}, true
}

// DecodeCombined splits a combined-mode value report into one reading per
// dataset flagged in pointer. Datasets are laid out in subscription order,
// each DatasetWidth bytes wide. Index-0 datasets are decoded as their
// mode's first value; datasets with index > 0 are skipped.
func (d *Device) DecodeCombined(pointer uint16, data []byte) []ModeReading {
	var out []ModeReading
	off := 0
	for i, ds := range d.combined {
		if pointer&(1<<uint(i)) == 0 {
			continue
		}
		w := d.Type.DatasetWidth(ds.Mode)
		if off+w > len(data) {
			break
		}
		slot := data[off : off+w]
		off += w
		if ds.Index != 0 {
			continue
		}
		r, ok := Decode(d.Type, d.Hub, d.Dialect, ds.Mode, slot)
		if !ok {
			continue
		}
		name, _ := d.Type.Capability(ds.Mode)
		out = append(out, ModeReading{Mode: ds.Mode, Capability: name, Reading: r})
	}
	return out
}

package hub

import (
	"fmt"

	"github.com/chaz8081/hubctl/internal/device"
	"github.com/chaz8081/hubctl/internal/protocol"
)

// portMaps holds the fixed port names of each hub type.
var portMaps = map[protocol.HubType]map[string]byte{
	protocol.HubWeDo2SmartHub: {
		"A":              0x01,
		"B":              0x02,
		"CURRENT_SENSOR": 0x03,
		"VOLTAGE_SENSOR": 0x04,
		"PIEZO_BUZZER":   0x05,
		"HUB_LED":        0x06,
	},
	protocol.HubMoveHub: {
		"A":              0x00,
		"B":              0x01,
		"C":              0x02,
		"D":              0x03,
		"HUB_LED":        0x32,
		"TILT_SENSOR":    0x3a,
		"CURRENT_SENSOR": 0x3b,
		"VOLTAGE_SENSOR": 0x3c,
	},
	protocol.HubHub: {
		"A":              0x00,
		"B":              0x01,
		"HUB_LED":        0x32,
		"CURRENT_SENSOR": 0x3b,
		"VOLTAGE_SENSOR": 0x3c,
	},
	protocol.HubRemoteControl: {
		"LEFT":                0x00,
		"RIGHT":               0x01,
		"HUB_LED":             0x34,
		"VOLTAGE_SENSOR":      0x3b,
		"REMOTE_CONTROL_RSSI": 0x3c,
	},
	protocol.HubDuploTrainBase: {
		"MOTOR":          0x00,
		"SPEAKER":        0x01,
		"HUB_LED":        0x11,
		"COLOR":          0x12,
		"SPEEDOMETER":    0x13,
		"VOLTAGE_SENSOR": 0x14,
	},
	protocol.HubTechnicMediumHub: {
		"A":                  0x00,
		"B":                  0x01,
		"C":                  0x02,
		"D":                  0x03,
		"HUB_LED":            0x32,
		"CURRENT_SENSOR":     0x3b,
		"VOLTAGE_SENSOR":     0x3c,
		"TEMPERATURE_SENSOR": 0x3d,
		"ACCELEROMETER":      0x61,
		"GYRO_SENSOR":        0x62,
		"TILT_SENSOR":        0x63,
	},
	protocol.HubTechnicSmallHub: {
		"A":              0x00,
		"B":              0x01,
		"HUB_LED":        0x31,
		"CURRENT_SENSOR": 0x3b,
		"VOLTAGE_SENSOR": 0x3c,
		"ACCELEROMETER":  0x61,
		"GYRO_SENSOR":    0x62,
		"TILT_SENSOR":    0x63,
	},
	protocol.HubMario: {},
}

// PortInfo is what a hub reported about a port's modes (0x43).
type PortInfo struct {
	Output       bool
	Input        bool
	Combinable   bool
	Synchronized bool
	ModeCount    int
	InputModes   uint16
	OutputModes  uint16
	Combinations []uint16
}

// InputModeNumbers lists the modes the port can report, ascending.
func (pi PortInfo) InputModeNumbers() []byte { return modeNumbers(pi.InputModes, pi.ModeCount) }

// OutputModeNumbers lists the modes the port can be written in, ascending.
func (pi PortInfo) OutputModeNumbers() []byte { return modeNumbers(pi.OutputModes, pi.ModeCount) }

func modeNumbers(mask uint16, count int) []byte {
	if count <= 0 || count > 16 {
		count = 16
	}
	var out []byte
	for i, set := range protocol.Bits(mask, count) {
		if set {
			out = append(out, byte(i))
		}
	}
	return out
}

// ModeInfo is what a hub reported about one mode of a port (0x44).
type ModeInfo struct {
	Name     string
	Symbol   string
	RawMin   float32
	RawMax   float32
	PctMin   float32
	PctMax   float32
	SIMin    float32
	SIMax    float32
	Datasets int
	Format   byte
	Figures  int
	Decimals int
}

// port is one entry of the port table. Physical ports come from the hub
// type's fixed map or from attach reports at unnamed ids; virtual ports
// reference two physical ones.
type port struct {
	name    string
	id      byte
	virtual bool
	first   byte
	second  byte

	device  *device.Device
	pending *completion

	info  *PortInfo
	modes map[byte]*ModeInfo
}

// Attachment describes the device occupying a port.
type Attachment struct {
	Port            string
	ID              byte
	Virtual         bool
	Type            device.Type
	HardwareVersion string
	SoftwareVersion string
}

func (p *port) attachment() Attachment {
	a := Attachment{Port: p.name, ID: p.id, Virtual: p.virtual}
	if p.device != nil {
		a.Type = p.device.Type
		a.HardwareVersion = p.device.HardwareVersion
		a.SoftwareVersion = p.device.SoftwareVersion
	}
	return a
}

// portTable maps names and ids to ports. It is owned by its Hub and only
// touched with the hub's lock held.
type portTable struct {
	byID   map[byte]*port
	byName map[string]byte
}

func newPortTable(t protocol.HubType) *portTable {
	pt := &portTable{
		byID:   make(map[byte]*port),
		byName: make(map[string]byte),
	}
	for name, id := range portMaps[t] {
		pt.byID[id] = &port{name: name, id: id}
		pt.byName[name] = id
	}
	return pt
}

// lookup resolves a port name.
func (pt *portTable) lookup(name string) (*port, bool) {
	id, ok := pt.byName[name]
	if !ok {
		return nil, false
	}
	p, ok := pt.byID[id]
	return p, ok
}

// get returns the port at id, creating an entry named after the id when
// the hub reports a port it has no fixed name for.
func (pt *portTable) get(id byte) *port {
	if p, ok := pt.byID[id]; ok {
		return p
	}
	p := &port{name: portIDName(id), id: id}
	pt.byID[id] = p
	pt.byName[p.name] = id
	return p
}

// addVirtual registers a virtual port for the pair first/second.
func (pt *portTable) addVirtual(id, first, second byte) *port {
	pt.remove(id)
	name := pt.get(first).name + pt.get(second).name
	p := &port{name: name, id: id, virtual: true, first: first, second: second}
	pt.byID[id] = p
	pt.byName[name] = id
	return p
}

// virtualsOf returns the virtual ports referencing physical port id.
func (pt *portTable) virtualsOf(id byte) []*port {
	var out []*port
	for _, p := range pt.byID {
		if p.virtual && (p.first == id || p.second == id) {
			out = append(out, p)
		}
	}
	return out
}

func (pt *portTable) remove(id byte) {
	if p, ok := pt.byID[id]; ok {
		delete(pt.byName, p.name)
		delete(pt.byID, id)
	}
}

func portIDName(id byte) string {
	return fmt.Sprintf("PORT_%02X", id)
}

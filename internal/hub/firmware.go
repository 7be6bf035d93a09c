package hub

import "github.com/chaz8081/hubctl/internal/protocol"

// minFirmware is the oldest firmware each hub type is driven with. Types
// without an entry accept any version.
var minFirmware = map[protocol.HubType]string{
	protocol.HubMoveHub: "2.0.00.0017",
	protocol.HubHub:     "1.1.00.0004",
}

// MinFirmware returns the minimum firmware for t, if one applies.
func MinFirmware(t protocol.HubType) (string, bool) {
	v, ok := minFirmware[t]
	return v, ok
}

// checkFirmware fails when reported is below the minimum for t.
func checkFirmware(name string, t protocol.HubType, reported string) error {
	required, ok := minFirmware[t]
	if !ok {
		return nil
	}
	if protocol.CompareVersion(reported, required) < 0 {
		return &FirmwareError{Hub: name, Type: t, Reported: reported, Required: required}
	}
	return nil
}

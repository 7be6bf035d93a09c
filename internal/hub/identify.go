package hub

import (
	"github.com/chaz8081/hubctl/internal/ble"
	"github.com/chaz8081/hubctl/internal/protocol"
)

// systemTypes maps the manufacturer data system-type byte to a hub type.
var systemTypes = map[byte]protocol.HubType{
	protocol.SystemDuploTrainBase:   protocol.HubDuploTrainBase,
	protocol.SystemMoveHub:          protocol.HubMoveHub,
	protocol.SystemHub:              protocol.HubHub,
	protocol.SystemRemoteControl:    protocol.HubRemoteControl,
	protocol.SystemMario:            protocol.HubMario,
	protocol.SystemTechnicMediumHub: protocol.HubTechnicMediumHub,
	protocol.SystemTechnicSmallHub:  protocol.HubTechnicSmallHub,
}

// Identify determines the hub type from an advertisement. WeDo 2.0 hubs
// advertise their own service; LPF2 hubs advertise the shared hub service
// and carry the system type in the LEGO manufacturer data after the
// firmware byte.
func Identify(adv ble.Advertisement) (protocol.HubType, bool) {
	if adv.HasService(protocol.WeDo2HubServiceUUID) {
		return protocol.HubWeDo2SmartHub, true
	}
	if !adv.HasService(protocol.LPF2HubServiceUUID) {
		return protocol.HubUnknown, false
	}
	data, ok := adv.ManufacturerData[protocol.LEGOCompanyID]
	if !ok || len(data) < 2 {
		return protocol.HubUnknown, false
	}
	t, ok := systemTypes[data[1]]
	return t, ok
}

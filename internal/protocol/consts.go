// Package protocol implements the wire level of the LEGO Wireless Protocol
// (LPF2) and the older WeDo 2.0 characteristic protocol: identifiers,
// message framing and the byte codec shared by both dialects.
package protocol

import "fmt"

// BLE services.
const (
	LPF2HubServiceUUID       = "00001623-1212-efde-1623-785feabcd123"
	WeDo2HubServiceUUID      = "00001523-1212-efde-1523-785feabcd123"
	WeDo2ExtendedServiceUUID = "00004f0e-1212-efde-1523-785feabcd123"
	DeviceInfoServiceUUID    = "0000180a-0000-1000-8000-00805f9b34fb"
	BatteryServiceUUID       = "0000180f-0000-1000-8000-00805f9b34fb"
)

// BLE characteristics.
const (
	// LPF2AllCharUUID carries every Dialect A message in both directions.
	LPF2AllCharUUID = "00001624-1212-efde-1623-785feabcd123"

	WeDo2NameCharUUID          = "00001524-1212-efde-1523-785feabcd123"
	WeDo2ButtonCharUUID        = "00001526-1212-efde-1523-785feabcd123"
	WeDo2PortTypeCharUUID      = "00001527-1212-efde-1523-785feabcd123"
	WeDo2LowVoltageCharUUID    = "00001528-1212-efde-1523-785feabcd123"
	WeDo2HighCurrentCharUUID   = "00001529-1212-efde-1523-785feabcd123"
	WeDo2LowSignalCharUUID     = "0000152a-1212-efde-1523-785feabcd123"
	WeDo2DisconnectCharUUID    = "0000152b-1212-efde-1523-785feabcd123"
	WeDo2SensorValueCharUUID   = "00001560-1212-efde-1523-785feabcd123"
	WeDo2ValueFormatCharUUID   = "00001561-1212-efde-1523-785feabcd123"
	WeDo2PortTypeWriteCharUUID = "00001563-1212-efde-1523-785feabcd123"
	WeDo2MotorValueCharUUID    = "00001565-1212-efde-1523-785feabcd123"

	BatteryLevelCharUUID     = "00002a19-0000-1000-8000-00805f9b34fb"
	FirmwareRevisionCharUUID = "00002a26-0000-1000-8000-00805f9b34fb"
)

// LEGOCompanyID is the Bluetooth SIG company identifier in LPF2 advertisements.
const LEGOCompanyID uint16 = 0x0397

// Channel names the message family an outgoing payload belongs to. Dialect A
// multiplexes every channel over one characteristic; Dialect B maps each to
// its own characteristic.
type Channel uint8

const (
	ChannelAll        Channel = iota // Dialect A shared characteristic
	ChannelPortType                  // B: port mode setup
	ChannelMotorValue                // B: output commands
	ChannelName                      // B: advertised name
	ChannelDisconnect                // B: switch off
)

// UUID returns the characteristic that carries ch.
func (ch Channel) UUID() string {
	switch ch {
	case ChannelPortType:
		return WeDo2PortTypeWriteCharUUID
	case ChannelMotorValue:
		return WeDo2MotorValueCharUUID
	case ChannelName:
		return WeDo2NameCharUUID
	case ChannelDisconnect:
		return WeDo2DisconnectCharUUID
	default:
		return LPF2AllCharUUID
	}
}

func (ch Channel) String() string {
	switch ch {
	case ChannelAll:
		return "all"
	case ChannelPortType:
		return "port-type"
	case ChannelMotorValue:
		return "motor-value"
	case ChannelName:
		return "name"
	case ChannelDisconnect:
		return "disconnect"
	default:
		return fmt.Sprintf("channel(%d)", uint8(ch))
	}
}

// MessageType is the tag at offset 2 of every Dialect A message.
type MessageType byte

const (
	MsgHubProperties            MessageType = 0x01
	MsgHubActions               MessageType = 0x02
	MsgHubAlerts                MessageType = 0x03
	MsgHubAttachedIO            MessageType = 0x04
	MsgGenericError             MessageType = 0x05
	MsgPortInformationRequest   MessageType = 0x21
	MsgPortModeInfoRequest      MessageType = 0x22
	MsgPortInputFormatSetup     MessageType = 0x41
	MsgPortInputFormatCombined  MessageType = 0x42
	MsgPortInformation          MessageType = 0x43
	MsgPortModeInformation      MessageType = 0x44
	MsgPortValueSingle          MessageType = 0x45
	MsgPortValueCombined        MessageType = 0x46
	MsgPortInputFormatSingle    MessageType = 0x47
	MsgPortInputFormatCombinedR MessageType = 0x48
	MsgVirtualPortSetup         MessageType = 0x61
	MsgPortOutputCommand        MessageType = 0x81
	MsgPortOutputFeedback       MessageType = 0x82
)

func (t MessageType) String() string {
	switch t {
	case MsgHubProperties:
		return "HUB_PROPERTIES"
	case MsgHubActions:
		return "HUB_ACTIONS"
	case MsgHubAlerts:
		return "HUB_ALERTS"
	case MsgHubAttachedIO:
		return "HUB_ATTACHED_IO"
	case MsgGenericError:
		return "GENERIC_ERROR"
	case MsgPortInformationRequest:
		return "PORT_INFORMATION_REQUEST"
	case MsgPortModeInfoRequest:
		return "PORT_MODE_INFORMATION_REQUEST"
	case MsgPortInputFormatSetup:
		return "PORT_INPUT_FORMAT_SETUP_SINGLE"
	case MsgPortInputFormatCombined:
		return "PORT_INPUT_FORMAT_SETUP_COMBINED"
	case MsgPortInformation:
		return "PORT_INFORMATION"
	case MsgPortModeInformation:
		return "PORT_MODE_INFORMATION"
	case MsgPortValueSingle:
		return "PORT_VALUE_SINGLE"
	case MsgPortValueCombined:
		return "PORT_VALUE_COMBINED"
	case MsgPortInputFormatSingle:
		return "PORT_INPUT_FORMAT_SINGLE"
	case MsgPortInputFormatCombinedR:
		return "PORT_INPUT_FORMAT_COMBINED"
	case MsgVirtualPortSetup:
		return "VIRTUAL_PORT_SETUP"
	case MsgPortOutputCommand:
		return "PORT_OUTPUT_COMMAND"
	case MsgPortOutputFeedback:
		return "PORT_OUTPUT_COMMAND_FEEDBACK"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02x)", byte(t))
	}
}

// HubProperty selects a property in a MsgHubProperties message.
type HubProperty byte

const (
	PropAdvertisingName  HubProperty = 0x01
	PropButtonState      HubProperty = 0x02
	PropFirmwareVersion  HubProperty = 0x03
	PropHardwareVersion  HubProperty = 0x04
	PropRSSI             HubProperty = 0x05
	PropBatteryVoltage   HubProperty = 0x06
	PropBatteryType      HubProperty = 0x07
	PropManufacturerName HubProperty = 0x08
	PropRadioFirmware    HubProperty = 0x09
	PropLWPVersion       HubProperty = 0x0a
	PropSystemTypeID     HubProperty = 0x0b
	PropHWNetworkID      HubProperty = 0x0c
	PropPrimaryMAC       HubProperty = 0x0d
	PropSecondaryMAC     HubProperty = 0x0e
)

// Hub property operations.
const (
	PropOpSet            byte = 0x01
	PropOpEnableUpdates  byte = 0x02
	PropOpDisableUpdates byte = 0x03
	PropOpReset          byte = 0x04
	PropOpRequestUpdate  byte = 0x05
	PropOpUpdate         byte = 0x06
)

// Attached I/O events.
const (
	EventDetached        byte = 0x00
	EventAttached        byte = 0x01
	EventAttachedVirtual byte = 0x02
)

// Port output feedback flags.
const (
	FeedbackInProgress byte = 0x01
	FeedbackCompleted  byte = 0x02
	FeedbackDiscarded  byte = 0x04
	FeedbackIdle       byte = 0x08
	FeedbackBusy       byte = 0x10
)

// Output command startup/completion byte: execute immediately, request feedback.
const StartupFeedback byte = 0x11

// Output sub-commands.
const (
	SubStartSpeed           byte = 0x07
	SubStartSpeedPair       byte = 0x08
	SubStartSpeedForTime    byte = 0x09
	SubStartSpeedForTimePr  byte = 0x0a
	SubStartSpeedForDegrees byte = 0x0b
	SubGotoAbsolutePosition byte = 0x0d
	SubGotoAbsolutePair     byte = 0x0e
	SubWriteDirectModeData  byte = 0x51
)

// Combined-mode input format setup sub-commands.
const (
	CombinedSetModeDataSet byte = 0x01
	CombinedLock           byte = 0x02
	CombinedUnlockMultiOn  byte = 0x03
	CombinedUnlockMultiOff byte = 0x04
)

// HubType identifies a hub family.
type HubType uint8

const (
	HubUnknown HubType = iota
	HubWeDo2SmartHub
	HubMoveHub
	HubHub
	HubRemoteControl
	HubDuploTrainBase
	HubTechnicMediumHub
	HubMario
	HubTechnicSmallHub
)

func (t HubType) String() string {
	switch t {
	case HubWeDo2SmartHub:
		return "WEDO2_SMART_HUB"
	case HubMoveHub:
		return "MOVE_HUB"
	case HubHub:
		return "HUB"
	case HubRemoteControl:
		return "REMOTE_CONTROL"
	case HubDuploTrainBase:
		return "DUPLO_TRAIN_BASE"
	case HubTechnicMediumHub:
		return "TECHNIC_MEDIUM_HUB"
	case HubMario:
		return "MARIO"
	case HubTechnicSmallHub:
		return "TECHNIC_SMALL_HUB"
	default:
		return "UNKNOWN"
	}
}

// Manufacturer data system-type bytes advertised by LPF2 hubs.
const (
	SystemDuploTrainBase   byte = 0x20
	SystemMoveHub          byte = 0x40
	SystemHub              byte = 0x41
	SystemRemoteControl    byte = 0x42
	SystemMario            byte = 0x43
	SystemTechnicMediumHub byte = 0x80
	SystemTechnicSmallHub  byte = 0x83
)

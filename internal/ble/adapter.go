// Package ble provides the Bluetooth Low Energy link to LEGO hubs. It
// handles scanning, connection management and characteristic access, and
// exposes a connected peripheral as a hub transport.
package ble

import (
	"context"
	"strings"
)

// Characteristic represents a BLE GATT characteristic.
type Characteristic interface {
	// Write sends data to the characteristic without waiting for a response.
	Write(data []byte) error
	// Read returns the characteristic's current value.
	Read() ([]byte, error)
	// Subscribe registers a callback for notifications on this characteristic.
	Subscribe(callback func(data []byte)) error
}

// Advertisement is a peripheral seen while scanning.
type Advertisement struct {
	Name    string
	Address string
	RSSI    int
	// ServiceUUIDs lists the advertised services that matched the scan
	// filter.
	ServiceUUIDs []string
	// ManufacturerData is keyed by Bluetooth company identifier.
	ManufacturerData map[uint16][]byte
}

// HasService reports whether the advertisement carries uuid.
func (a Advertisement) HasService(uuid string) bool {
	for _, s := range a.ServiceUUIDs {
		if strings.EqualFold(s, uuid) {
			return true
		}
	}
	return false
}

// Connection represents an active BLE connection to a peripheral.
type Connection interface {
	// DiscoverCharacteristic finds a characteristic by UUID within a service.
	DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error)
	// Disconnect terminates the connection.
	Disconnect() error
	// OnDisconnect registers a callback invoked when the connection drops.
	OnDisconnect(callback func())
}

// Adapter abstracts the BLE hardware adapter for testing.
type Adapter interface {
	// Enable powers on the BLE adapter.
	Enable() error
	// Scan reports peripherals advertising any of serviceUUIDs until ctx
	// is done. Each address is reported once.
	Scan(ctx context.Context, serviceUUIDs ...string) ([]Advertisement, error)
	// Connect establishes a connection to the peripheral at address.
	Connect(ctx context.Context, address string) (Connection, error)
}

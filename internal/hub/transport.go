package hub

import "context"

// Transport is the BLE link a hub talks over. Implementations must deliver
// notifications for one characteristic in arrival order and must not
// reorder writes.
type Transport interface {
	// Connect establishes the link.
	Connect(ctx context.Context) error
	// Disconnect tears the link down.
	Disconnect() error
	// DiscoverCharacteristics resolves charUUIDs within serviceUUID so they
	// can be read, written or subscribed.
	DiscoverCharacteristics(serviceUUID string, charUUIDs ...string) error
	// Subscribe delivers every notification on charUUID to onData.
	Subscribe(charUUID string, onData func([]byte)) error
	// Write sends data to charUUID.
	Write(charUUID string, data []byte) error
	// Read returns the current value of charUUID.
	Read(charUUID string) ([]byte, error)
	// OnDisconnect registers a callback for link loss.
	OnDisconnect(callback func())
	// Name is the peripheral's advertised name.
	Name() string
	// Address is the peripheral's address or platform identifier.
	Address() string
}

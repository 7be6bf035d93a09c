package ble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// ErrNotConnected is returned by characteristic operations on a client
// without a live connection.
var ErrNotConnected = errors.New("ble: not connected")

// ClientOptions configures the BLE client behavior.
type ClientOptions struct {
	ConnectTimeout time.Duration // bound on Connect when ctx has no deadline
	WriteDelay     time.Duration // pause after each write; 0 for none
}

// DefaultClientOptions returns sensible defaults.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		ConnectTimeout: 15 * time.Second,
	}
}

// Client is the link to one hub. It resolves characteristics by UUID and
// reports link loss once per connection. It does not reconnect.
type Client struct {
	adapter Adapter
	adv     Advertisement
	opts    ClientOptions

	mu           sync.Mutex
	conn         Connection
	chars        map[string]Characteristic
	connected    bool
	disconnectCb func()
}

// NewClient creates a client for the peripheral described by adv.
func NewClient(adapter Adapter, adv Advertisement, opts ClientOptions) *Client {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 15 * time.Second
	}
	return &Client{
		adapter: adapter,
		adv:     adv,
		opts:    opts,
		chars:   make(map[string]Characteristic),
	}
}

// Name returns the advertised name.
func (c *Client) Name() string { return c.adv.Name }

// Address returns the peripheral address.
func (c *Client) Address() string { return c.adv.Address }

// Connect establishes the BLE connection.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.adapter.Enable(); err != nil {
		return fmt.Errorf("ble: enable adapter: %w", err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.ConnectTimeout)
		defer cancel()
	}

	conn, err := c.adapter.Connect(ctx, c.adv.Address)
	if err != nil {
		return fmt.Errorf("ble: connect to %s: %w", c.adv.Address, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	clear(c.chars)
	c.mu.Unlock()

	conn.OnDisconnect(func() {
		if !c.setDisconnected(conn) {
			return
		}
		slog.Warn("[BLE] disconnected", "address", c.adv.Address)
		c.mu.Lock()
		cb := c.disconnectCb
		c.mu.Unlock()
		if cb != nil {
			cb()
		}
	})

	slog.Info("[BLE] connected", "address", c.adv.Address, "name", c.adv.Name)
	return nil
}

// setDisconnected marks the client as disconnected. It reports false when
// conn is no longer the current connection.
func (c *Client) setDisconnected(conn Connection) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || c.conn != conn {
		return false
	}
	c.connected = false
	c.conn = nil
	clear(c.chars)
	return true
}

// OnDisconnect registers a callback for link loss not caused by
// Disconnect.
func (c *Client) OnDisconnect(cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectCb = cb
}

// Disconnect tears the link down.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil || !c.setDisconnected(conn) {
		return nil
	}
	if err := conn.Disconnect(); err != nil {
		return fmt.Errorf("ble: disconnect %s: %w", c.adv.Address, err)
	}
	slog.Info("[BLE] disconnected", "address", c.adv.Address)
	return nil
}

// DiscoverCharacteristics resolves charUUIDs within serviceUUID.
func (c *Client) DiscoverCharacteristics(serviceUUID string, charUUIDs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return ErrNotConnected
	}
	for _, id := range charUUIDs {
		char, err := c.conn.DiscoverCharacteristic(serviceUUID, id)
		if err != nil {
			return fmt.Errorf("ble: discover characteristic %s: %w", id, err)
		}
		c.chars[strings.ToLower(id)] = char
	}
	slog.Debug("[BLE] discovered", "service", serviceUUID, "characteristics", len(charUUIDs))
	return nil
}

func (c *Client) characteristic(uuid string) (Characteristic, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil, ErrNotConnected
	}
	char, ok := c.chars[strings.ToLower(uuid)]
	if !ok {
		return nil, fmt.Errorf("ble: characteristic %s not discovered", uuid)
	}
	return char, nil
}

// Subscribe delivers notifications on uuid to onData.
func (c *Client) Subscribe(uuid string, onData func([]byte)) error {
	char, err := c.characteristic(uuid)
	if err != nil {
		return err
	}
	if err := char.Subscribe(onData); err != nil {
		return fmt.Errorf("ble: subscribe %s: %w", uuid, err)
	}
	return nil
}

// Write sends data to uuid.
func (c *Client) Write(uuid string, data []byte) error {
	char, err := c.characteristic(uuid)
	if err != nil {
		return err
	}
	if err := char.Write(data); err != nil {
		return fmt.Errorf("ble: write %s: %w", uuid, err)
	}
	if c.opts.WriteDelay > 0 {
		time.Sleep(c.opts.WriteDelay)
	}
	return nil
}

// Read returns the current value of uuid.
func (c *Client) Read(uuid string) ([]byte, error) {
	char, err := c.characteristic(uuid)
	if err != nil {
		return nil, err
	}
	data, err := char.Read()
	if err != nil {
		return nil, fmt.Errorf("ble: read %s: %w", uuid, err)
	}
	return data, nil
}

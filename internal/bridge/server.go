package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chaz8081/hubctl/internal/device"
	"github.com/chaz8081/hubctl/internal/hub"
	"github.com/chaz8081/hubctl/internal/protocol"
)

const (
	sendBuffer = 64
	writeWait  = 5 * time.Second
)

// Engine is the hub surface the bridge drives. *hub.Hub implements it.
type Engine interface {
	Name() string
	Type() protocol.HubType
	FirmwareVersion() string
	BatteryLevel() int
	Attachments() []hub.Attachment
	Events() <-chan hub.Event
	Subscribe(port, capability string) (*hub.Subscription, error)
	SetPower(ctx context.Context, port string, power int, duration time.Duration) error
	SetSpeed(ctx context.Context, port string, speed int, duration time.Duration) error
	Stop(ctx context.Context, port string) error
	Brake(ctx context.Context, port string) error
	RotateByDegrees(ctx context.Context, port string, degrees, speed int) error
	GotoAngle(ctx context.Context, port string, angle, speed int) error
	SetColor(ctx context.Context, port string, c device.Color) error
	SetBrightness(ctx context.Context, port string, brightness int, duration time.Duration) error
}

// Server is an http.Handler that upgrades requests to websocket sessions
// against one hub.
type Server struct {
	engine   Engine
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewServer returns a bridge for engine. Call Run to start event fan-out.
func NewServer(engine Engine) *Server {
	return &Server{
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*client]struct{}),
	}
}

// Run broadcasts hub events to every client until ctx is done. The hub
// event stream has a single consumer, so nothing else may read it while
// Run is active.
func (s *Server) Run(ctx context.Context) {
	events := s.engine.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			s.broadcast(eventMessage(ev))
		}
	}
}

func (s *Server) broadcast(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.enqueue(m)
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("[BRIDGE] upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	c := &client{
		s:    s,
		conn: conn,
		send: make(chan Message, sendBuffer),
		done: make(chan struct{}),
		subs: make(map[string]*hub.Subscription),
	}
	slog.Info("[BRIDGE] client connected", "remote", r.RemoteAddr)

	c.enqueue(Message{Type: TypeHub, Hub: snapshot(s.engine)})
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	go c.writeLoop()
	c.readLoop(r.Context())

	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.close()
	slog.Info("[BRIDGE] client disconnected", "remote", r.RemoteAddr)
}

// client is one websocket session.
type client struct {
	s    *Server
	conn *websocket.Conn
	send chan Message
	done chan struct{}

	mu     sync.Mutex
	subs   map[string]*hub.Subscription
	closed bool
}

// enqueue queues m without blocking; a client that falls behind loses
// messages.
func (c *client) enqueue(m Message) {
	select {
	case <-c.done:
	case c.send <- m:
	default:
		slog.Warn("[BRIDGE] client buffer full, dropping message", "type", m.Type)
	}
}

func (c *client) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case m := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(m); err != nil {
				slog.Debug("[BRIDGE] write", "error", err)
				_ = c.conn.Close()
				return
			}
		}
	}
}

func (c *client) readLoop(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	for {
		var req Request
		if err := c.conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("[BRIDGE] read", "error", err)
			}
			return
		}
		if req.Op == OpSubscribe || req.Op == OpUnsubscribe {
			c.result(req, c.handleSubscription(req))
			continue
		}
		// Commands block until the hub reports completion.
		go func(req Request) {
			c.result(req, c.handleCommand(ctx, req))
		}(req)
	}
}

func (c *client) result(req Request, err error) {
	m := Message{Type: TypeResult, ID: req.ID, Port: req.Port}
	if err != nil {
		m.Error = err.Error()
	}
	c.enqueue(m)
}

func subKey(port, capability string) string {
	return port + "/" + capability
}

func (c *client) handleSubscription(req Request) error {
	key := subKey(req.Port, req.Capability)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("bridge: client closed")
	}
	if req.Op == OpUnsubscribe {
		sub, ok := c.subs[key]
		if !ok {
			return fmt.Errorf("bridge: not subscribed to %s", key)
		}
		delete(c.subs, key)
		sub.Close()
		return nil
	}
	if _, ok := c.subs[key]; ok {
		return nil
	}
	sub, err := c.s.engine.Subscribe(req.Port, req.Capability)
	if err != nil {
		return err
	}
	c.subs[key] = sub
	go c.forward(key, sub)
	return nil
}

// forward relays readings until sub closes. A subscription the hub closed
// (detach, or another mode selected on the port) is forgotten so the
// client can subscribe again.
func (c *client) forward(key string, sub *hub.Subscription) {
	for r := range sub.C {
		c.enqueue(readingMessage(r))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs[key] == sub {
		delete(c.subs, key)
	}
}

func (c *client) handleCommand(ctx context.Context, req Request) error {
	e := c.s.engine
	switch req.Op {
	case OpPower:
		return e.SetPower(ctx, req.Port, req.Value, req.duration())
	case OpSpeed:
		return e.SetSpeed(ctx, req.Port, req.Value, req.duration())
	case OpStop:
		return e.Stop(ctx, req.Port)
	case OpBrake:
		return e.Brake(ctx, req.Port)
	case OpRotate:
		return e.RotateByDegrees(ctx, req.Port, req.Value, req.Speed)
	case OpAngle:
		return e.GotoAngle(ctx, req.Port, req.Value, req.Speed)
	case OpColor:
		return e.SetColor(ctx, req.Port, device.Color(req.Value))
	case OpBrightness:
		return e.SetBrightness(ctx, req.Port, req.Value, req.duration())
	default:
		return fmt.Errorf("bridge: unknown op %q", req.Op)
	}
}

// close releases the client's subscriptions and stops its writer.
func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for key, sub := range c.subs {
		sub.Close()
		delete(c.subs, key)
	}
	close(c.done)
	_ = c.conn.Close()
}

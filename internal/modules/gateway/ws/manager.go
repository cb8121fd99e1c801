package ws

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/frankieli/roulette_table/internal/config"
	gatewayDomain "github.com/frankieli/roulette_table/internal/modules/gateway/domain"
	"github.com/frankieli/roulette_table/internal/modules/roulette/domain"
	"github.com/frankieli/roulette_table/pkg/logger"
)

// ErrConnectionClosed is returned by Send on a closed connection.
var ErrConnectionClosed = errors.New("connection closed")

type CloseReason string

const (
	ReasonWriteError     CloseReason = "write_error"
	ReasonPingError      CloseReason = "ping_error"
	ReasonReadError      CloseReason = "read_error"
	ReasonShutdown       CloseReason = "server_shutdown"
	ReasonTimeout        CloseReason = "timeout"
	ReasonIdle           CloseReason = "idle"
	ReasonLeave          CloseReason = "leave"
	ReasonSessionActive  CloseReason = "session_active"
	ReasonLoginExhausted CloseReason = "login_attempts_exhausted"
)

// Connection is one WebSocket client. It implements domain.Channel: events
// are queued on send and written by WritePump; frames read by ReadPump are
// delivered on Inbox.
type Connection struct {
	ID   string
	Conn *websocket.Conn

	send chan []byte
	// frames queued on send and not yet written
	queued    atomic.Int64
	inbox     chan []byte
	done      chan struct{}
	manager   *Manager
	cfg       config.WebSocketConfig
	closeOnce sync.Once
}

// Manager tracks live connections
type Manager struct {
	clients    map[string]*Connection
	register   chan *Connection
	unregister chan *Connection
	stop       chan struct{}
	stopOnce   sync.Once
	cfg        config.WebSocketConfig
	mu         sync.RWMutex
}

// NewManager creates a new connection manager
func NewManager(cfg config.WebSocketConfig) *Manager {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 54 * time.Second
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 512
	}
	return &Manager{
		clients:    make(map[string]*Connection),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		stop:       make(chan struct{}),
		cfg:        cfg,
	}
}

// Register wraps conn and adds it to the manager. Run must be running.
func (m *Manager) Register(conn *websocket.Conn) *Connection {
	c := &Connection{
		ID:      uuid.NewString(),
		Conn:    conn,
		send:    make(chan []byte, m.cfg.SendBuffer),
		inbox:   make(chan []byte),
		done:    make(chan struct{}),
		manager: m,
		cfg:     m.cfg,
	}
	select {
	case m.register <- c:
	case <-m.stop:
		c.CloseWithReason(ReasonShutdown, nil)
	}
	return c
}

// Run starts the manager loop; it returns after Shutdown.
func (m *Manager) Run() {
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			m.clients[client.ID] = client
			m.mu.Unlock()

		case client := <-m.unregister:
			m.mu.Lock()
			delete(m.clients, client.ID)
			m.mu.Unlock()

		case <-m.stop:
			return
		}
	}
}

// Len returns the number of live connections
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Broadcast queues an event on every live connection without blocking;
// connections with a full buffer are closed.
func (m *Manager) Broadcast(event domain.Event) {
	message, err := gatewayDomain.EncodeEvent(event)
	if err != nil {
		logger.ErrorGlobal().Err(err).Msg("failed to encode broadcast")
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, client := range m.clients {
		client.queued.Add(1)
		select {
		case client.send <- message:
		case <-client.done:
			client.queued.Add(-1)
		default:
			client.queued.Add(-1)
			client.CloseWithReason(ReasonTimeout, nil)
		}
	}
}

// Shutdown says goodbye to every client and closes all connections
func (m *Manager) Shutdown() {
	m.Broadcast(domain.Event{Type: domain.EventGoodbye, Message: "server shutting down"})

	m.mu.Lock()
	clients := make([]*Connection, 0, len(m.clients))
	for _, client := range m.clients {
		clients = append(clients, client)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, client := range clients {
		wg.Add(1)
		go func(c *Connection) {
			defer wg.Done()
			c.Flush(c.cfg.WriteWait)
			c.CloseWithReason(ReasonShutdown, nil)
		}(client)
	}
	wg.Wait()
	m.stopOnce.Do(func() { close(m.stop) })
}

// SessionID identifies the connection
func (c *Connection) SessionID() string {
	return c.ID
}

// Inbox delivers client frames; it is closed when the read side ends.
func (c *Connection) Inbox() <-chan []byte {
	return c.inbox
}

// Done is closed once the connection is closed.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Send queues event for the writer. If the buffer stays full until ctx is
// done, the client is too slow and the connection is closed.
func (c *Connection) Send(ctx context.Context, event domain.Event) error {
	message, err := gatewayDomain.EncodeEvent(event)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	c.queued.Add(1)
	select {
	case c.send <- message:
		return nil
	default:
		// Buffer full, wait a bit
	}

	select {
	case c.send <- message:
		return nil
	case <-c.done:
		c.queued.Add(-1)
		return ErrConnectionClosed
	case <-ctx.Done():
		c.queued.Add(-1)
		c.CloseWithReason(ReasonTimeout, ctx.Err())
		return ctx.Err()
	}
}

// CloseWithReason closes the connection with a reason
func (c *Connection) CloseWithReason(r CloseReason, err error) {
	c.closeOnce.Do(func() {
		event := logger.Info(context.Background())
		if err != nil {
			event = logger.Warn(context.Background()).Err(err)
		}
		event.
			Str("session_id", c.ID).
			Str("reason", string(r)).
			Msg("ws connection closed")
		close(c.done)
		c.Conn.Close()
	})
}

// WritePump writes queued frames and keeps the connection alive with pings.
// Frames queued before Close are flushed first.
func (c *Connection) WritePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case message := <-c.send:
			err := c.write(websocket.TextMessage, message)
			c.queued.Add(-1)
			if err != nil {
				c.CloseWithReason(ReasonWriteError, err)
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.CloseWithReason(ReasonPingError, err)
				return
			}

		case <-c.done:
			return
		}
	}
}

func (c *Connection) write(messageType int, payload []byte) error {
	c.Conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
	return c.Conn.WriteMessage(messageType, payload)
}

// Flush waits until queued frames were written or timeout elapses. Used
// before closing so a final GOODBYE reaches the client.
func (c *Connection) Flush(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for c.queued.Load() > 0 && time.Now().Before(deadline) {
		select {
		case <-c.done:
			return
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// ReadPump reads frames into Inbox until the connection fails, then
// unregisters and closes it.
func (c *Connection) ReadPump() {
	var readErr error
	defer func() {
		close(c.inbox)
		select {
		case c.manager.unregister <- c:
		case <-c.manager.stop:
		}
		c.CloseWithReason(ReasonReadError, readErr)
	}()

	c.Conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				readErr = err
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))

		select {
		case c.inbox <- message:
		case <-c.done:
			return
		}
	}
}

package wsserver

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/qualicam/streaming-server/internal/logger"
	"github.com/qualicam/streaming-server/pkg/quality"
)

// closeGrace bounds the write of a close control frame.
const closeGrace = time.Second

// client is one subscribed WebSocket connection. It satisfies
// stream.Subscriber; sends serialize on writeMu because gorilla allows
// only one concurrent writer per connection.
type client struct {
	id          string
	conn        *websocket.Conn
	quality     int
	remoteAddr  string
	connectedAt time.Time

	writeMu    sync.Mutex
	framesSent atomic.Uint64

	closeOnce sync.Once
	closeErr  error
}

func newClient(conn *websocket.Conn, q int, remoteAddr string) *client {
	return &client{
		id:          uuid.NewString(),
		conn:        conn,
		quality:     q,
		remoteAddr:  remoteAddr,
		connectedAt: time.Now(),
	}
}

// SendFrame pushes one complete encoded frame as a binary message.
func (c *client) SendFrame(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return err
	}
	c.framesSent.Add(1)
	return nil
}

// Close releases the transport. Safe to call from both the read-loop
// teardown and a broadcast-failure eviction.
func (c *client) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// handleWebSocket is the subscription endpoint: validate the requested
// quality, register demand, then block reading purely to detect the
// session closing. Inbound application data is ignored.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	q, err := strconv.Atoi(r.PathValue("quality"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("WebSocket", "Upgrade failed: %v", err)
		return
	}

	if !quality.Valid(q) {
		s.metrics.ClientsRejected.Add(1)
		logger.Debug("WebSocket", "Rejected quality %d from %s", q, r.RemoteAddr)
		refuse(conn, websocket.CloseUnsupportedData, "Invalid quality parameter")
		return
	}

	if s.cfg.MaxClients > 0 && s.registry.Count() >= s.cfg.MaxClients {
		s.metrics.ClientsRejected.Add(1)
		logger.Warn("WebSocket", "At capacity (%d clients), refusing %s", s.cfg.MaxClients, r.RemoteAddr)
		refuse(conn, websocket.CloseTryAgainLater, "Server at capacity")
		return
	}

	c := newClient(conn, q, r.RemoteAddr)
	s.addClient(c)
	s.registry.Subscribe(c, q)
	s.metrics.ClientsConnected.Add(1)
	s.metrics.ActiveClients.Store(uint64(s.registry.Count()))
	logger.Info("WebSocket", "Client %s subscribed at quality %d (total clients: %d)",
		c.id, q, s.registry.Count())

	defer func() {
		// Unconditional: a broadcast-failure eviction may already have
		// removed the registration, which makes this a no-op.
		s.registry.Unsubscribe(c)
		s.removeClient(c)
		_ = c.Close()
		s.metrics.ActiveClients.Store(uint64(s.registry.Count()))
		logger.Info("WebSocket", "Client %s disconnected (remaining clients: %d)",
			c.id, s.registry.Count())
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// refuse closes a connection that never entered shared state, with a
// machine-readable close code.
func refuse(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
	_ = conn.Close()
}

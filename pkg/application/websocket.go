package application

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 16
)

type HuberOptions struct {
	Logger      *logrus.Logger
	CheckOrigin func(r *http.Request) bool
	// OnJoin is called after a connection subscribes to a channel; it may push an initial snapshot.
	OnJoin func(channel string, send func(v any) error)
}

// Huber upgrades connections and fans messages out per channel.
// Clients pick a channel with the ?channel= query parameter.
type Huber interface {
	http.Handler
	Broadcast(channel string, v any) error
	ConnectionsInChannel(channel string) int
	SetOnJoin(f func(channel string, send func(v any) error))
}

type connection struct {
	conn    *websocket.Conn
	send    chan []byte
	channel string
	once    sync.Once
}

func (c *connection) close() {
	c.once.Do(func() { close(c.send) })
}

type huber struct {
	upgrader websocket.Upgrader
	logger   *logrus.Logger

	mu       sync.RWMutex
	channels map[string]map[*connection]struct{}
	onJoin   func(channel string, send func(v any) error)
}

func NewHub(opts *HuberOptions) Huber {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &huber{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger:   logger,
		channels: make(map[string]map[*connection]struct{}),
		onJoin:   opts.OnJoin,
	}
}

func (h *huber) SetOnJoin(f func(channel string, send func(v any) error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onJoin = f
}

func (h *huber) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		http.Error(w, "channel is required", http.StatusBadRequest)
		return
	}
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	c := &connection{conn: ws, send: make(chan []byte, sendBufferSize), channel: channel}
	h.join(c)
	go h.writePump(c)

	h.mu.RLock()
	onJoin := h.onJoin
	h.mu.RUnlock()
	if onJoin != nil {
		onJoin(channel, func(v any) error { return h.sendTo(c, v) })
	}
	h.readPump(c)
}

func (h *huber) join(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.channels[c.channel]
	if !ok {
		conns = make(map[*connection]struct{})
		h.channels[c.channel] = conns
	}
	conns[c] = struct{}{}
}

func (h *huber) leave(c *connection) {
	h.mu.Lock()
	if conns, ok := h.channels[c.channel]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.channels, c.channel)
		}
	}
	h.mu.Unlock()
	c.close()
}

// readPump only drains control frames; the dashboard never sends data over the socket.
func (h *huber) readPump(c *connection) {
	defer func() {
		h.leave(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.WithError(err).Debug("websocket closed unexpectedly")
			}
			return
		}
	}
}

func (h *huber) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *huber) sendTo(c *connection, v any) (err error) {
	msg, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encode websocket message")
	}
	defer func() {
		// send on a connection closed concurrently
		if recover() != nil {
			err = errors.New("websocket connection closed")
		}
	}()
	select {
	case c.send <- msg:
		return nil
	default:
		return errors.New("websocket send buffer full")
	}
}

// Broadcast encodes v once and queues it for every connection in the channel.
// Slow connections whose buffer is full are skipped.
func (h *huber) Broadcast(channel string, v any) error {
	msg, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encode websocket message")
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.channels[channel] {
		select {
		case c.send <- msg:
		default:
			h.logger.WithField("channel", channel).Debug("dropping websocket message for slow client")
		}
	}
	return nil
}

func (h *huber) ConnectionsInChannel(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

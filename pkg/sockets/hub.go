package sockets

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub accepts websocket clients and broadcasts messages to all of them.
type Hub struct {
	upgrader websocket.Upgrader
	connOpts []func(*Conn)
	logger   *zap.Logger

	mu    sync.RWMutex
	conns map[*Conn]struct{}
}

func NewHub(connOpts []func(*Conn), hubOpts ...func(*Hub)) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connOpts: connOpts,
		logger:   zap.L(),
		conns:    make(map[*Conn]struct{}),
	}
	for _, o := range hubOpts {
		o(h)
	}
	return h
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := newConn(ws, h.connOpts...)

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", zap.String("remote", r.RemoteAddr))

	go c.writeLoop()
	if c.onConnected != nil {
		c.onConnected(c)
	}
	go func() {
		c.readLoop()
		h.mu.Lock()
		delete(h.conns, c)
		h.mu.Unlock()
		h.logger.Debug("websocket client disconnected", zap.String("remote", r.RemoteAddr))
	}()
}

// Broadcast queues body on every connected client.
func (h *Hub) Broadcast(body []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		if err := c.Send(Msg{Body: body}); err != nil {
			h.logger.Debug("dropping websocket message", zap.Error(err))
		}
	}
}

func (h *Hub) BroadcastJSON(v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(body)
	return nil
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		c.close()
		delete(h.conns, c)
	}
}

package sockets

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrClosed   = errors.New("closed connection")
	ErrSlowPeer = errors.New("send buffer full")
)

const (
	defaultSendBuffer = 32
	writeWait         = 10 * time.Second
)

type Connection interface {
	Send(msg Msg) error
	io.Closer
}

// Conn is one accepted websocket client. Writes go through a buffered
// queue drained by a single writer goroutine.
type Conn struct {
	ws               *websocket.Conn
	mu               sync.Mutex
	closed           bool
	send             chan []byte
	done             chan struct{}
	sendBuffer       int
	pingIntervalSecs int
	onError          func(err error)
	onMessage        func([]byte, Connection)
	onConnected      func(Connection)
	pingMsg          []byte
}

func newConn(ws *websocket.Conn, opts ...func(*Conn)) *Conn {
	c := &Conn{
		ws:         ws,
		sendBuffer: defaultSendBuffer,
		done:       make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	c.send = make(chan []byte, c.sendBuffer)
	return c
}

// Msg is the message structure.
type Msg struct {
	Body []byte
}

// Closes the connection.
func (c *Conn) Close() error {
	c.close()
	return nil
}

func (c *Conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	_ = c.ws.Close()
}

// Send queues msg. A peer that does not keep up is disconnected.
func (c *Conn) Send(msg Msg) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- msg.Body:
		return nil
	default:
		go c.fail(ErrSlowPeer)
		return ErrSlowPeer
	}
}

func (c *Conn) fail(err error) {
	c.close()
	if c.onError != nil {
		c.onError(err)
	}
}

func (c *Conn) readLoop() {
	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.fail(err)
				return
			}
			c.close()
			return
		}
		if c.onMessage != nil {
			c.onMessage(msg, c)
		}
	}
}

func (c *Conn) writeLoop() {
	var tick <-chan time.Time
	if c.pingIntervalSecs > 0 {
		ticker := time.NewTicker(time.Second * time.Duration(c.pingIntervalSecs))
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-c.done:
			return
		case body := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, body); err != nil {
				c.fail(err)
				return
			}
		case <-tick:
			var err error
			if len(c.pingMsg) > 0 {
				_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
				err = c.ws.WriteMessage(websocket.TextMessage, c.pingMsg)
			} else {
				err = c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			}
			if err != nil {
				c.fail(err)
				return
			}
		}
	}
}

package link

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arunika/dollcore/pkg/buffer"
)

// DefaultRecvQueue is how many inbound frames a connection buffers for
// TryRecv before the oldest is overwritten.
const DefaultRecvQueue = 32

// wsWriteTimeout bounds a single frame write so a stalled TCP peer cannot
// pin the device loop.
const wsWriteTimeout = 5 * time.Second

// Conn is one open duplex channel. WriteText runs on the device loop;
// received frames are buffered so TryRecv never blocks.
type Conn interface {
	// WriteText writes one text frame.
	WriteText(frame []byte) error

	// TryRecv returns the next buffered inbound frame, or false when none
	// is waiting.
	TryRecv() ([]byte, bool)

	// Err reports a terminal receive failure, or nil while the connection
	// is healthy.
	Err() error

	// Close tears the connection down. Safe to call more than once.
	Close() error
}

// Dialer opens a Conn to the channel endpoint.
type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (Conn, error)
}

// WebsocketDialer dials over gorilla/websocket.
type WebsocketDialer struct {
	// RecvQueue overrides the inbound frame buffer depth.
	RecvQueue int
}

func (d *WebsocketDialer) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	depth := d.RecvQueue
	if depth <= 0 {
		depth = DefaultRecvQueue
	}
	c := &wsConn{
		ws:    ws,
		recvQ: buffer.NewRing[[]byte](depth),
	}
	go c.receiveLoop()
	return c, nil
}

type wsConn struct {
	ws    *websocket.Conn
	recvQ *buffer.Ring[[]byte]

	wmu sync.Mutex // gorilla allows one concurrent writer

	mu  sync.Mutex
	err error

	closeOnce sync.Once
}

func (c *wsConn) receiveLoop() {
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if c.err == nil {
				c.err = err
			}
			c.mu.Unlock()
			return
		}
		// The protocol is one JSON message per text frame.
		if kind != websocket.TextMessage {
			continue
		}
		c.recvQ.Push(data)
	}
}

func (c *wsConn) WriteText(frame []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}

func (c *wsConn) TryRecv() ([]byte, bool) {
	return c.recvQ.TryPop()
}

func (c *wsConn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.ws.Close()
	})
	return nil
}

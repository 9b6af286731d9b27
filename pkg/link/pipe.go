package link

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync"
)

// PipeDialer is an in-memory Dialer for tests and the simulated device.
// Every successful Dial produces a client Conn paired with a PipeServer the
// test scripts.
type PipeDialer struct {
	mu      sync.Mutex
	dialErr error
	hang    bool
	dials   int
	lastURL string
	lastHdr http.Header
	servers []*PipeServer
}

func NewPipeDialer() *PipeDialer {
	return &PipeDialer{}
}

func (d *PipeDialer) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	d.mu.Lock()
	d.dials++
	d.lastURL = url
	d.lastHdr = header.Clone()
	dialErr, hang := d.dialErr, d.hang
	d.mu.Unlock()

	if hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if dialErr != nil {
		return nil, dialErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn := &pipeConn{}
	srv := &PipeServer{conn: conn}
	conn.server = srv
	d.mu.Lock()
	d.servers = append(d.servers, srv)
	d.mu.Unlock()
	return conn, nil
}

// SetDialErr scripts Dial to fail. Nil restores success.
func (d *PipeDialer) SetDialErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialErr = err
}

// SetHang scripts Dial to block until its context is done.
func (d *PipeDialer) SetHang(hang bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hang = hang
}

// DialCount reports how many dials were attempted.
func (d *PipeDialer) DialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// LastURL returns the URL of the most recent dial.
func (d *PipeDialer) LastURL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastURL
}

// LastHeader returns the headers of the most recent dial.
func (d *PipeDialer) LastHeader() http.Header {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastHdr
}

// Server returns the server end of the n-th successful dial.
func (d *PipeDialer) Server(n int) *PipeServer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.servers[n]
}

// LastServer returns the server end of the most recent successful dial.
func (d *PipeDialer) LastServer() *PipeServer {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.servers) == 0 {
		return nil
	}
	return d.servers[len(d.servers)-1]
}

// PipeServer is the scripted far end of a piped connection.
type PipeServer struct {
	conn *pipeConn
}

// Send delivers a frame to the device side.
func (s *PipeServer) Send(frame []byte) {
	s.conn.deliver(frame)
}

// Received returns every frame the device has written, in order.
func (s *PipeServer) Received() [][]byte {
	return s.conn.sentFrames()
}

// Fail breaks the connection from the server side; the device observes err
// through Conn.Err.
func (s *PipeServer) Fail(err error) {
	s.conn.fail(err)
}

// Closed reports whether the device closed its end.
func (s *PipeServer) Closed() bool {
	return s.conn.isClosed()
}

type pipeConn struct {
	server *PipeServer

	mu     sync.Mutex
	inbox  [][]byte
	sent   [][]byte
	err    error
	closed bool
}

func (c *pipeConn) WriteText(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("link: write on closed pipe")
	}
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, bytes.Clone(frame))
	return nil
}

func (c *pipeConn) TryRecv() ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inbox) == 0 {
		return nil, false
	}
	frame := c.inbox[0]
	c.inbox = c.inbox[1:]
	return frame, true
}

func (c *pipeConn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *pipeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *pipeConn) deliver(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.err != nil {
		return
	}
	c.inbox = append(c.inbox, bytes.Clone(frame))
}

func (c *pipeConn) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

func (c *pipeConn) sentFrames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sent))
	for i, f := range c.sent {
		out[i] = bytes.Clone(f)
	}
	return out
}

func (c *pipeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

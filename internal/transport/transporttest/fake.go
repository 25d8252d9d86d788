// Package transporttest provides an in-memory transport for tests.
package transporttest

import (
	"context"
	"sync"
	"time"

	"github.com/abhijit77github/turn-game/internal/transport"
	"github.com/coder/websocket"
)

// Conn is an in-memory transport.Conn. The test plays the server: Push sends
// a frame to the client and Drop ends the connection.
type Conn struct {
	URL string

	frames chan []byte
	done   chan struct{}
	once   sync.Once

	mu        sync.Mutex
	err       error
	written   []string
	closeCode websocket.StatusCode
}

func NewConn(url string) *Conn {
	return &Conn{
		URL:       url,
		frames:    make(chan []byte, 32),
		done:      make(chan struct{}),
		closeCode: -1,
	}
}

func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	select {
	case d := <-c.frames:
		return d, nil
	case <-c.done:
		c.mu.Lock()
		defer c.mu.Unlock()
		return nil, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Conn) Write(_ context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, string(data))
	return nil
}

func (c *Conn) Close(code websocket.StatusCode, reason string) error {
	c.mu.Lock()
	c.closeCode = code
	c.mu.Unlock()
	c.Drop(websocket.CloseError{Code: code, Reason: reason})
	return nil
}

// Push queues a server frame for the client to read.
func (c *Conn) Push(frame string) { c.frames <- []byte(frame) }

// Drop ends the connection; pending and later reads fail with err.
func (c *Conn) Drop(err error) {
	c.once.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.done)
	})
}

// Written returns the frames the client sent, in order.
func (c *Conn) Written() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.written...)
}

// CloseCode is the code the client closed with, or -1.
func (c *Conn) CloseCode() websocket.StatusCode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode
}

// Dialer hands out a new Conn per dial and remembers them.
type Dialer struct {
	mu    sync.Mutex
	err   error
	dials int
	conns chan *Conn
}

func NewDialer() *Dialer {
	return &Dialer{conns: make(chan *Conn, 16)}
}

// Fail makes subsequent dials return err; nil restores them.
func (d *Dialer) Fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

// Dials counts every call to Dial, failed or not.
func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *Dialer) Dial(_ context.Context, url string) (transport.Conn, error) {
	d.mu.Lock()
	d.dials++
	err := d.err
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	c := NewConn(url)
	d.conns <- c
	return c, nil
}

// Next returns the next connection dialed, waiting up to timeout. It returns
// nil when nothing was dialed in time.
func (d *Dialer) Next(timeout time.Duration) *Conn {
	select {
	case c := <-d.conns:
		return c
	case <-time.After(timeout):
		return nil
	}
}

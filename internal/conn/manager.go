// internal/conn/manager.go
package conn

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/abhijit77github/turn-game/internal/middleware"
	"github.com/abhijit77github/turn-game/internal/sched"
	"github.com/abhijit77github/turn-game/internal/transport"
	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

// State is the lifecycle of the room connection.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Errored
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

const (
	// ReconnectDelay is the flat wait before redialing after an abnormal close.
	ReconnectDelay = 3 * time.Second

	dialTimeout  = 10 * time.Second
	writeTimeout = 5 * time.Second
	outboxSize   = 16
)

var (
	ErrNotConnected = errors.New("not connected")
	ErrOutboxFull   = errors.New("outbox full")
)

// Handlers receive connection events. They run on the session loop goroutine.
type Handlers struct {
	OnState   func(State)
	OnMessage func(data []byte)
	OnError   func(err error)
	OnClose   func(code websocket.StatusCode)
}

type Options struct {
	ServerURL string
	Dialer    transport.Dialer
	Scheduler sched.Scheduler
	// Post hands a closure to the session loop. Reader and dial goroutines
	// never touch Manager state directly.
	Post     func(func())
	Logger   logrus.FieldLogger
	Handlers Handlers
}

// link is one dialed (or dialing) connection.
type link struct {
	gen    int
	url    string
	conn   transport.Conn
	ctx    context.Context
	cancel context.CancelFunc
	out    chan []byte

	closeCode   websocket.StatusCode
	closeReason string
}

// Manager owns the session's single connection: it is the only writer and the
// only closer. All methods must be called from the session loop goroutine.
type Manager struct {
	opts Options
	log  logrus.FieldLogger

	state     State
	room      string
	user      string
	gen       int
	attempts  int
	live      *link
	reconnect *sched.Task

	// writers counts write pumps that have not closed their connection yet.
	writers sync.WaitGroup
}

func NewManager(opts Options) *Manager {
	if opts.Dialer == nil {
		opts.Dialer = transport.WebSocketDialer{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Manager{opts: opts, log: opts.Logger, state: Disconnected}
}

func (m *Manager) State() State { return m.state }

// Attempts counts dials since the manager was created.
func (m *Manager) Attempts() int { return m.attempts }

// ReconnectPending reports whether a reconnect task is scheduled.
func (m *Manager) ReconnectPending() bool { return m.reconnect.Pending() }

// Active reports whether a room is bound to the manager.
func (m *Manager) Active() bool { return m.room != "" }

// Connect opens a connection for room/user. Any previous connection is closed
// first, so there are never two live connections for one session.
func (m *Manager) Connect(room, user string) {
	m.cancelReconnect()
	m.teardown(websocket.StatusNormalClosure, "replaced")

	m.room, m.user = room, user
	u, err := transport.RoomURL(m.opts.ServerURL, room, user)
	if err != nil {
		m.log.Errorf("Cannot build room url for %s: %v", room, err)
		m.setState(Errored)
		m.emitError(err)
		return
	}

	m.gen++
	m.attempts++
	ctx, cancel := context.WithCancel(context.Background())
	l := &link{
		gen:    m.gen,
		url:    u,
		ctx:    ctx,
		cancel: cancel,
		out:    make(chan []byte, outboxSize),
	}
	m.live = l
	m.setState(Connecting)
	m.log.Debugf("Dialing %s (attempt %d)", u, m.attempts)

	go func() {
		dctx, dcancel := context.WithTimeout(ctx, dialTimeout)
		c, err := m.opts.Dialer.Dial(dctx, u)
		dcancel()
		m.opts.Post(func() { m.dialed(l, c, err) })
	}()
}

// Shutdown is the explicit exit: it unbinds the room, cancels any pending
// reconnect and closes with a normal-closure code. No reconnect follows.
func (m *Manager) Shutdown(reason string) {
	m.room, m.user = "", ""
	m.cancelReconnect()
	m.teardown(websocket.StatusNormalClosure, reason)
	m.setState(Disconnected)
}

// Drain waits up to timeout for torn-down connections to flush their outboxes
// and close. It is safe to call from any goroutine.
func (m *Manager) Drain(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		m.writers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Send queues one frame on the write pump.
func (m *Manager) Send(data []byte) error {
	l := m.live
	if l == nil || l.conn == nil || m.state != Connected {
		return ErrNotConnected
	}
	select {
	case l.out <- data:
		return nil
	default:
		m.log.Warnf("Outbox for %s is full, dropping frame", l.url)
		return ErrOutboxFull
	}
}

func (m *Manager) dialed(l *link, c transport.Conn, err error) {
	if m.live != l {
		// replaced or shut down while dialing
		if c != nil {
			go c.Close(websocket.StatusNormalClosure, "superseded")
		}
		return
	}
	if err != nil {
		m.log.Warnf("Dial %s failed: %v", l.url, err)
		m.live = nil
		l.cancel()
		m.setState(Errored)
		m.emitError(err)
		m.closed(websocket.StatusAbnormalClosure)
		return
	}

	l.conn = c
	m.setState(Connected)
	middleware.LogWebSocketConnect(m.log, l.url, m.attempts)
	m.writers.Add(1)
	go m.readPump(l)
	go m.writePump(l)
}

func (m *Manager) readPump(l *link) {
	for {
		data, err := l.conn.Read(l.ctx)
		if err != nil {
			m.opts.Post(func() { m.readFailed(l, err) })
			return
		}
		m.opts.Post(func() {
			if m.live == l && m.opts.Handlers.OnMessage != nil {
				m.opts.Handlers.OnMessage(data)
			}
		})
	}
}

// writePump sends queued frames in order. When out is closed it flushes what
// is left, then closes the connection with the code teardown recorded.
func (m *Manager) writePump(l *link) {
	defer m.writers.Done()
	defer l.cancel()
	for data := range l.out {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := l.conn.Write(ctx, data)
		cancel()
		if err != nil {
			// the read pump notices the broken connection
			m.log.Warnf("Error writing to %s: %v", l.url, err)
		}
	}
	if err := l.conn.Close(l.closeCode, l.closeReason); err != nil {
		m.log.Debugf("Close %s: %v", l.url, err)
	}
}

func (m *Manager) readFailed(l *link, err error) {
	if m.live != l {
		// torn down by us; the close was intentional
		return
	}
	m.live = nil
	code := transport.CloseStatus(err)
	middleware.LogWebSocketDisconnect(m.log, l.url, int(code), err)

	l.closeCode, l.closeReason = websocket.StatusNormalClosure, ""
	close(l.out)

	if !transport.IsNormalClosure(code) {
		m.setState(Errored)
		m.emitError(fmt.Errorf("connection lost: %w", err))
	}
	m.closed(code)
}

func (m *Manager) closed(code websocket.StatusCode) {
	m.setState(Disconnected)
	if m.opts.Handlers.OnClose != nil {
		m.opts.Handlers.OnClose(code)
	}
	if transport.IsNormalClosure(code) || m.room == "" {
		return
	}
	m.scheduleReconnect()
}

func (m *Manager) scheduleReconnect() {
	m.cancelReconnect()
	room, user := m.room, m.user
	m.log.Infof("Reconnecting to %s in %s", room, ReconnectDelay)
	m.reconnect = m.opts.Scheduler.AfterFunc("reconnect", ReconnectDelay, func() {
		m.reconnect = nil
		if m.room != room || m.user != user {
			return
		}
		m.Connect(room, user)
	})
}

func (m *Manager) cancelReconnect() {
	m.reconnect.Stop()
	m.reconnect = nil
}

// teardown drops the live link. A dialing link is aborted; an open one has its
// outbox flushed and is closed by the write pump.
func (m *Manager) teardown(code websocket.StatusCode, reason string) {
	l := m.live
	if l == nil {
		return
	}
	m.live = nil
	if l.conn == nil {
		l.cancel()
		return
	}
	l.closeCode, l.closeReason = code, reason
	close(l.out)
}

func (m *Manager) setState(s State) {
	if m.state == s {
		return
	}
	m.state = s
	if m.opts.Handlers.OnState != nil {
		m.opts.Handlers.OnState(s)
	}
}

func (m *Manager) emitError(err error) {
	if m.opts.Handlers.OnError != nil {
		m.opts.Handlers.OnError(err)
	}
}

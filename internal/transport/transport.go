// internal/transport/transport.go
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/coder/websocket"
)

// Conn is one duplex text-frame connection to the game server.
type Conn interface {
	// Read blocks for the next text frame.
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// Dialer is the transport factory a session is built with.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, url string) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, url string) (Conn, error) { return f(ctx, url) }

// WebSocketDialer dials with github.com/coder/websocket.
type WebSocketDialer struct {
	HTTPClient *http.Client
	HTTPHeader http.Header
	// ReadLimit caps inbound frame size; full chain-reaction boards exceed the
	// library default of 32 KiB.
	ReadLimit int64
}

const defaultReadLimit = 1 << 20

func (d WebSocketDialer) Dial(ctx context.Context, u string) (Conn, error) {
	c, _, err := websocket.Dial(ctx, u, &websocket.DialOptions{
		HTTPClient: d.HTTPClient,
		HTTPHeader: d.HTTPHeader,
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}
	limit := d.ReadLimit
	if limit <= 0 {
		limit = defaultReadLimit
	}
	c.SetReadLimit(limit)
	return &wsConn{c: c}, nil
}

type wsConn struct {
	c *websocket.Conn
}

func (w *wsConn) Read(ctx context.Context) ([]byte, error) {
	for {
		typ, data, err := w.c.Read(ctx)
		if err != nil {
			return nil, err
		}
		// the protocol is JSON text only
		if typ != websocket.MessageText {
			continue
		}
		return data, nil
	}
}

func (w *wsConn) Write(ctx context.Context, data []byte) error {
	return w.c.Write(ctx, websocket.MessageText, data)
}

func (w *wsConn) Close(code websocket.StatusCode, reason string) error {
	return w.c.Close(code, reason)
}

// CloseStatus extracts the close code from a read error. Errors without a
// close frame (dropped TCP, reset) report StatusAbnormalClosure (1006).
func CloseStatus(err error) websocket.StatusCode {
	if code := websocket.CloseStatus(err); code != -1 {
		return code
	}
	return websocket.StatusAbnormalClosure
}

// IsNormalClosure reports whether code is a clean, expected shutdown.
func IsNormalClosure(code websocket.StatusCode) bool {
	return code == websocket.StatusNormalClosure || code == websocket.StatusGoingAway
}

var ErrBadServerURL = errors.New("bad server url")

// RoomURL builds {ws|wss}://{host}:{port}/ws/{roomCode}/{username} from the
// server's HTTP base URL; https selects wss.
func RoomURL(base, roomCode, username string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadServerURL, err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrBadServerURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrBadServerURL)
	}
	u.Path = "/ws/" + roomCode + "/" + username
	u.RawPath = "/ws/" + url.PathEscape(roomCode) + "/" + url.PathEscape(username)
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

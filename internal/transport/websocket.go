package transport

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrClientGone is returned by Send once the peer has closed the connection.
var ErrClientGone = errors.New("websocket client disconnected")

const wsWriteTimeout = 5 * time.Second

// WebSocketTransport sends binary messages to one connected client. A
// background reader watches for the client hanging up.
type WebSocketTransport struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// NewUpgrader returns an upgrader accepting the given origins. An empty list
// or "*" allows every origin.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 32 * 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Non-browser clients do not send an Origin header.
		return origin == "" || slices.Contains(allowed, origin)
	}
}

// UpgradeWebSocket upgrades the request and starts watching the connection
// for disconnects. On failure the upgrader has already replied to the client.
func UpgradeWebSocket(u *websocket.Upgrader, w http.ResponseWriter, r *http.Request, responseHeader http.Header) (*WebSocketTransport, error) {
	conn, err := u.Upgrade(w, r, responseHeader)
	if err != nil {
		return nil, fmt.Errorf("websocket upgrade: %w", err)
	}

	t := &WebSocketTransport{
		conn: conn,
		done: make(chan struct{}),
	}
	go t.readLoop()
	return t, nil
}

// readLoop discards client messages until the connection fails.
func (t *WebSocketTransport) readLoop() {
	defer close(t.done)
	for {
		if _, _, err := t.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Done is closed when the client disconnects.
func (t *WebSocketTransport) Done() <-chan struct{} {
	return t.done
}

// Send writes data as a single binary message.
func (t *WebSocketTransport) Send(data []byte) error {
	select {
	case <-t.done:
		return ErrClientGone
	default:
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	t.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return t.conn.WriteMessage(websocket.BinaryMessage, data)
}

// Close sends a normal close frame and closes the connection.
func (t *WebSocketTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = t.conn.Close()
	})
	return err
}

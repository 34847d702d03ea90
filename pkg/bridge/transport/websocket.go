package transport

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/entrhq/questpilot/pkg/bridge/wire"
)

// wsEndpoint adapts a websocket connection to the Endpoint interface so a
// bridge can run against a browser on another machine. Envelopes are JSON
// frames; the same source allow-list as the in-process pair applies.
type wsEndpoint struct {
	conn   *websocket.Conn
	recv   chan wire.Envelope
	accept []wire.Source

	writeMu sync.Mutex
	mu      sync.Mutex
	closed  bool
	dropped int
}

// DialWebSocket connects the page side of the bridge to a remote bridge
// host. Only widget-sourced envelopes are accepted from the peer.
func DialWebSocket(url string) (Endpoint, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial bridge host: %w", err)
	}
	return newWSEndpoint(conn, wire.SourceWidget), nil
}

// Upgrader upgrades HTTP requests into widget-side endpoints for a bridge
// host. AllowedOrigins is matched against the Origin header; an empty list
// accepts only same-host requests (gorilla's default policy).
type Upgrader struct {
	AllowedOrigins []string
	upgrader       websocket.Upgrader
	once           sync.Once
}

// Upgrade converts the request into an endpoint that accepts page-sourced
// envelopes from the remote client.
func (u *Upgrader) Upgrade(w http.ResponseWriter, r *http.Request) (Endpoint, error) {
	u.once.Do(func() {
		if len(u.AllowedOrigins) > 0 {
			origins := make(map[string]bool, len(u.AllowedOrigins))
			for _, o := range u.AllowedOrigins {
				origins[o] = true
			}
			u.upgrader.CheckOrigin = func(r *http.Request) bool {
				return origins[r.Header.Get("Origin")]
			}
		}
	})

	conn, err := u.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket upgrade failed: %w", err)
	}
	return newWSEndpoint(conn, wire.SourcePage), nil
}

func newWSEndpoint(conn *websocket.Conn, accept wire.Source) *wsEndpoint {
	e := &wsEndpoint{
		conn:   conn,
		recv:   make(chan wire.Envelope, pairBuffer),
		accept: []wire.Source{accept},
	}
	go e.readPump()
	return e
}

// readPump decodes inbound frames and applies the allow-list. Malformed
// frames are dropped rather than tearing the connection down.
func (e *wsEndpoint) readPump() {
	defer close(e.recv)
	for {
		var env wire.Envelope
		if err := e.conn.ReadJSON(&env); err != nil {
			return
		}
		if !allowed(env, e.accept) {
			e.mu.Lock()
			e.dropped++
			e.mu.Unlock()
			continue
		}
		select {
		case e.recv <- env:
		default:
			e.mu.Lock()
			e.dropped++
			e.mu.Unlock()
		}
	}
}

// Send writes the envelope as a JSON frame.
func (e *wsEndpoint) Send(env wire.Envelope) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.mu.Unlock()

	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	if err := e.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("websocket send failed: %w", err)
	}
	return nil
}

// Receive returns accepted envelopes from the peer.
func (e *wsEndpoint) Receive() <-chan wire.Envelope {
	return e.recv
}

// Close closes the underlying connection, which terminates the read pump.
func (e *wsEndpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.conn.Close()
}

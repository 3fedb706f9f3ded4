package trace

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// StreamSink is an io.Writer that fans every write out to every currently
// connected websocket client, for live-tailing a Registrar's debug trace
// lines (spec §6 Diagnostics) from a browser instead of a log file. Wire it
// in by giving a Registrar a *log.Logger whose output is
// io.MultiWriter(os.Stdout, sink) (or just the sink, to suppress local
// logging entirely).
type StreamSink struct {
	mu      sync.Mutex
	clients map[*streamClient]struct{}
}

type streamClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewStreamSink constructs an empty sink with no connected clients.
func NewStreamSink() *StreamSink {
	return &StreamSink{clients: make(map[*streamClient]struct{})}
}

// Write implements io.Writer. It never blocks on a slow client: a client
// whose send buffer is full is dropped rather than backing up the whole
// trace path, since a debug line that never reaches an inspector is far
// cheaper than one that stalls dispatch.
func (s *StreamSink) Write(p []byte) (int, error) {
	line := append([]byte(nil), p...)
	s.mu.Lock()
	for c := range s.clients {
		select {
		case c.send <- line:
		default:
			delete(s.clients, c)
			close(c.send)
		}
	}
	s.mu.Unlock()
	return len(p), nil
}

// ServeHTTP upgrades the request to a websocket and streams trace lines to
// it until the client disconnects or the request context is cancelled.
func (s *StreamSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()

	c := &streamClient{conn: conn, send: make(chan []byte, 64)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
	}()

	ctx := r.Context()
	for {
		select {
		case line, ok := <-c.send:
			if !ok {
				conn.Close(websocket.StatusPolicyViolation, "slow consumer")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Write(writeCtx, websocket.MessageText, line)
			cancel()
			if err != nil {
				return
			}
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "server shutting down")
			return
		}
	}
}

package bedrock

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

// WebSocketStream is a StreamTransport over a WebSocket connection, for
// gateways that front the model service over ws. Credential resolution is
// external: callers pass prebuilt auth headers to DialStream.
type WebSocketStream struct {
	conn *websocket.Conn
	mu   sync.Mutex // protects writes
	once sync.Once
}

// DialStream opens a WebSocket connection to the model service endpoint.
func DialStream(ctx context.Context, url string, header http.Header) (*WebSocketStream, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("bedrock: dial %q: %w", url, err)
	}
	return &WebSocketStream{conn: conn}, nil
}

// NewWebSocketStream wraps an already-established connection.
func NewWebSocketStream(conn *websocket.Conn) *WebSocketStream {
	return &WebSocketStream{conn: conn}
}

func (s *WebSocketStream) Send(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

func (s *WebSocketStream) Receive(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, data, err := s.conn.ReadMessage()
	return data, err
}

func (s *WebSocketStream) Close() error {
	var err error
	s.once.Do(func() {
		err = s.conn.Close()
	})
	return err
}

package kodi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"

	"kodarr/internal/services"
)

// wsReadLimit accommodates full movie catalogs.
const wsReadLimit = 64 << 20

// WSSession keeps one WebSocket connection to ws://address:ws_port/jsonrpc.
// Calls are serialized; server notifications arriving between responses are
// skipped. The connection is dialled lazily and redialled after any failure.
type WSSession struct {
	url      string
	user     string
	password string

	mu     sync.Mutex
	conn   *websocket.Conn
	nextID atomic.Int64
}

// NewWSSession constructs a WebSocket session.
func NewWSSession(url, user, password string) *WSSession {
	return &WSSession{url: url, user: user, password: password}
}

// WSEndpoint renders the WebSocket URL for a host.
func WSEndpoint(address string, port int) string {
	return fmt.Sprintf("ws://%s/jsonrpc", net.JoinHostPort(address, fmt.Sprint(port)))
}

// Call implements Session.
func (s *WSSession) Call(ctx context.Context, method string, params any, timeout time.Duration) (json.RawMessage, error) {
	id := s.nextID.Add(1)
	payload, err := encodeRequest(id, method, params)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, effectiveTimeout(timeout))
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	conn, err := s.connect(callCtx, method)
	if err != nil {
		return nil, err
	}

	if err := conn.Write(callCtx, websocket.MessageText, payload); err != nil {
		s.drop()
		return nil, classifyWSError(callCtx, method, err)
	}

	for {
		_, data, err := conn.Read(callCtx)
		if err != nil {
			s.drop()
			return nil, classifyWSError(callCtx, method, err)
		}
		resp, err := decodeResponse(method, data)
		if err != nil {
			return nil, err
		}
		if resp.ID == nil || *resp.ID != id {
			continue
		}
		return resultOf(method, resp)
	}
}

// Close closes the underlying connection if one is open.
func (s *WSSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close(websocket.StatusNormalClosure, "")
	s.conn = nil
	return err
}

func (s *WSSession) connect(ctx context.Context, method string) (*websocket.Conn, error) {
	if s.conn != nil {
		return s.conn, nil
	}
	opts := &websocket.DialOptions{}
	if s.user != "" {
		header := http.Header{}
		token := base64.StdEncoding.EncodeToString([]byte(s.user + ":" + s.password))
		header.Set("Authorization", "Basic "+token)
		opts.HTTPHeader = header
	}
	conn, resp, err := websocket.Dial(ctx, s.url, opts)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, services.Wrap(services.ErrAuth, "kodi", method, fmt.Sprintf("websocket handshake status %d, check credentials", resp.StatusCode), err)
		}
		if resp != nil {
			return nil, services.Wrap(services.ErrProtocol, "kodi", method, fmt.Sprintf("websocket handshake status %d", resp.StatusCode), err)
		}
		return nil, classifyWSError(ctx, method, err)
	}
	conn.SetReadLimit(wsReadLimit)
	s.conn = conn
	return conn, nil
}

func (s *WSSession) drop() {
	if s.conn != nil {
		_ = s.conn.CloseNow()
		s.conn = nil
	}
}

func classifyWSError(ctx context.Context, method string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "kodi", method, "websocket call timed out", err)
	}
	var closeErr websocket.CloseError
	if errors.As(err, &closeErr) {
		return services.Wrap(services.ErrConnection, "kodi", method, fmt.Sprintf("websocket closed with status %d", closeErr.Code), err)
	}
	return services.Wrap(services.ErrConnection, "kodi", method, "websocket call failed", err)
}
